package relay

import "errors"

var (
	// ErrClosed is returned when publishing to or subscribing on a closed relay.
	ErrClosed = errors.New("relay is closed")
	// ErrUnknownRelay is returned by New for an unsupported relay name.
	ErrUnknownRelay = errors.New("unknown relay")
)
