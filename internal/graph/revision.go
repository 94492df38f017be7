package graph

import (
	"errors"
	"fmt"

	"github.com/emrgen/canvas/internal/model"
	"github.com/emrgen/canvas/internal/revision"
	"github.com/sirupsen/logrus"
)

// CreateRevision records the fields of a published block as a new revision.
func (s *Store) CreateRevision(blockID, comment string) (*revision.Revision, error) {
	b := s.block(blockID)
	if b == nil {
		return nil, ErrNotFound
	}
	return s.revisions.Create(b, s.actor.ID, s.actor.Name, comment)
}

// Revisions lists a block's revisions, newest first.
func (s *Store) Revisions(blockID string) []*revision.Revision {
	return s.revisions.List(blockID)
}

func (s *Store) Revision(id string) (*revision.Revision, error) {
	rev, err := s.revisions.Get(id)
	if errors.Is(err, revision.ErrNotFound) {
		return nil, ErrNotFound
	}
	return rev, err
}

// RestoreRevision copies a revision's fields back onto its block. The block
// keeps its id and returns to draft whatever its current status, which is not
// a lifecycle edge from published, so the operations are forced. The revision
// itself is kept.
func (s *Store) RestoreRevision(revisionID string) (*model.Block, error) {
	rev, err := s.Revision(revisionID)
	if err != nil {
		return nil, err
	}
	current := s.block(rev.BlockID)
	if current == nil {
		return nil, fmt.Errorf("block %s of revision %s: %w", rev.BlockID, rev.ID, ErrNotFound)
	}

	next := current.Clone()
	next.ApplyFields(rev.Fields)
	next.Status = model.StatusDraft
	next.UpdatedAt = s.now()

	ops := s.fieldOps(current, next)
	for i := range ops {
		ops[i].Forced = true
	}
	s.replaceBlock(next)
	s.commit(fmt.Sprintf("Restore %q to version %d", next.Title, rev.Version), ops...)
	logrus.Infof("block %s restored to revision %d", next.ID, rev.Version)

	return next.Clone(), nil
}
