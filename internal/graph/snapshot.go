package graph

import (
	"errors"
	"fmt"

	"github.com/emrgen/canvas/internal/snapshot"
)

// CreateSnapshot captures the live graph under a label.
func (s *Store) CreateSnapshot(label string) (*snapshot.Snapshot, error) {
	return s.snapshots.Create(s.workspaceID, s.blocks, s.relationships, label)
}

// Snapshots lists the workspace snapshots, newest first.
func (s *Store) Snapshots() []*snapshot.Snapshot {
	return s.snapshots.List(s.workspaceID)
}

// LatestSnapshot returns the newest snapshot, or nil.
func (s *Store) LatestSnapshot() *snapshot.Snapshot {
	return s.snapshots.Latest(s.workspaceID)
}

func (s *Store) Snapshot(id string) (*snapshot.Snapshot, error) {
	snap, err := s.snapshots.Get(s.workspaceID, id)
	return snap, snapshotErr(err)
}

// CompareSnapshots diffs snapshot a against snapshot b.
func (s *Store) CompareSnapshots(a, b string) (snapshot.Comparison, error) {
	from, err := s.Snapshot(a)
	if err != nil {
		return snapshot.Comparison{}, err
	}
	to, err := s.Snapshot(b)
	if err != nil {
		return snapshot.Comparison{}, err
	}
	return snapshot.Compare(from, to), nil
}

// PreviewSnapshotRestore reports what restoring a snapshot would change
// without changing anything.
func (s *Store) PreviewSnapshotRestore(id string) (snapshot.Comparison, error) {
	restored, err := s.snapshots.Restore(s.workspaceID, id, s.blocks, s.relationships)
	if err != nil {
		return snapshot.Comparison{}, snapshotErr(err)
	}
	return restored.Changes, nil
}

// RestoreSnapshot replaces the live graph with a snapshot's content as one
// undoable action and returns what changed.
func (s *Store) RestoreSnapshot(id string) (snapshot.Comparison, error) {
	restored, err := s.snapshots.Restore(s.workspaceID, id, s.blocks, s.relationships)
	if err != nil {
		return snapshot.Comparison{}, snapshotErr(err)
	}

	ops := s.syncOps(s.blocks, restored.Blocks, s.relationships, restored.Relationships)
	s.blocks = restored.Blocks
	s.relationships = restored.Relationships
	s.pruneSelection()
	s.commit(fmt.Sprintf("Restore snapshot %q", restored.Snapshot.Label), ops...)

	return restored.Changes, nil
}

// PruneSnapshots keeps the newest keep snapshots and returns the dropped ids.
func (s *Store) PruneSnapshots(keep int) []string {
	return s.snapshots.Prune(s.workspaceID, keep)
}

func snapshotErr(err error) error {
	if errors.Is(err, snapshot.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
