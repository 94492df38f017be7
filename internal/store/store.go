package store

import (
	"context"

	"github.com/emrgen/canvas/internal/graph"
	"github.com/emrgen/canvas/internal/model"
)

type Store interface {
	WorkspaceStore
	StateStore
	Transaction(ctx context.Context, f func(tx Store) error) error
	Migrate() error
}

type WorkspaceStore interface {
	// CreateWorkspace creates a new workspace.
	CreateWorkspace(ctx context.Context, ws *model.Workspace) error
	// GetWorkspace retrieves a workspace by ID.
	GetWorkspace(ctx context.Context, id string) (*model.Workspace, error)
	// ListWorkspaces retrieves every workspace, oldest first.
	ListWorkspaces(ctx context.Context) ([]*model.Workspace, error)
	// DeleteWorkspace deletes a workspace and everything stored for it.
	DeleteWorkspace(ctx context.Context, id string) error
}

type StateStore interface {
	// LoadState reads the full state of a workspace.
	LoadState(ctx context.Context, workspaceID string) (*graph.State, error)
	// SaveChanges writes only what changed in a workspace: it upserts the
	// listed blocks, relationships and review requests, deletes the removed
	// ones, appends new revisions and snapshots and deletes pruned snapshots.
	SaveChanges(ctx context.Context, workspaceID string, changes graph.Changes) error
}
