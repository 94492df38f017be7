package service

import "errors"

var (
	// ErrValidation is returned when a request fails validation.
	ErrValidation = errors.New("validation failed")
	// ErrSessionClosed is returned when a closed session is used.
	ErrSessionClosed = errors.New("session closed")
)
