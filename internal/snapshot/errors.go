package snapshot

import "errors"

var (
	// ErrNotFound is returned for an unknown snapshot id.
	ErrNotFound = errors.New("snapshot not found")
	// ErrNoWorkspace is returned when a snapshot is requested without a workspace.
	ErrNoWorkspace = errors.New("snapshot requires a workspace")
)
