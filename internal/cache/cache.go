package cache

import (
	"context"

	"github.com/emrgen/canvas/internal/graph"
)

// WorkspaceCache is a cache for workspace states.
type WorkspaceCache interface {
	// GetState gets the state of a workspace from the cache. A miss returns a
	// nil state and no error.
	GetState(ctx context.Context, workspaceID string) (*graph.State, error)
	// SetState sets the state of a workspace in the cache.
	SetState(ctx context.Context, workspaceID string, version uint64, state graph.State) error
	// GetVersion gets the version last cached for a workspace, zero on a miss.
	GetVersion(ctx context.Context, workspaceID string) (uint64, error)
	// DeleteState deletes a workspace from the cache.
	DeleteState(ctx context.Context, workspaceID string) error
}

var _ WorkspaceCache = (*Nop)(nil)

// Nop caches nothing.
type Nop struct{}

func NewNop() *Nop {
	return &Nop{}
}

func (n *Nop) GetState(context.Context, string) (*graph.State, error) {
	return nil, nil
}

func (n *Nop) SetState(context.Context, string, uint64, graph.State) error {
	return nil
}

func (n *Nop) GetVersion(context.Context, string) (uint64, error) {
	return 0, nil
}

func (n *Nop) DeleteState(context.Context, string) error {
	return nil
}
