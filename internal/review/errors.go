package review

import "errors"

var (
	// ErrNotFound is returned when a review request id is unknown.
	ErrNotFound = errors.New("review request not found")
	// ErrClosed is returned when acting on a completed or cancelled request.
	ErrClosed = errors.New("review request is closed")
	// ErrNoBlocks is returned when a request references no blocks.
	ErrNoBlocks = errors.New("review request has no blocks")
)
