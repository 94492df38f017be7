package revision

import "errors"

var (
	// ErrNotPublished is returned when a revision is requested for a block that is not published.
	ErrNotPublished = errors.New("block is not published")
	// ErrNotFound is returned when a revision or its block does not exist.
	ErrNotFound = errors.New("revision not found")
)
