package conflict

import "errors"

var (
	// ErrNotFound is returned for an unknown conflict id.
	ErrNotFound = errors.New("conflict not found")
	// ErrResolved is returned when resolving a conflict twice.
	ErrResolved = errors.New("conflict already resolved")
	// ErrUnknownStrategy is returned for a resolution strategy outside the known set.
	ErrUnknownStrategy = errors.New("unknown resolution strategy")
	// ErrInvalidSide is returned when a resolution names no valid side.
	ErrInvalidSide = errors.New("invalid resolution side")
	// ErrMergeValue is returned for a merged resolution without a value on a
	// field that cannot be merged as text.
	ErrMergeValue = errors.New("merged value required")
)
