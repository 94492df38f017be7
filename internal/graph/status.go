package graph

import (
	"fmt"

	"github.com/Masterminds/semver"
	"github.com/emrgen/canvas/internal/conflict"
	"github.com/emrgen/canvas/internal/lifecycle"
	"github.com/emrgen/canvas/internal/model"
	"github.com/sirupsen/logrus"
)

// firstVersion is the publication version of a block published for the first time.
const firstVersion = "0.0.1"

// BlockStatus returns a block's status and whether the block exists.
func (s *Store) BlockStatus(id string) (model.Status, bool) {
	b := s.block(id)
	if b == nil {
		return "", false
	}
	return b.Status, true
}

// AvailableTransitions lists the statuses a block may move to next.
func (s *Store) AvailableTransitions(id string) ([]model.Status, error) {
	b := s.block(id)
	if b == nil {
		return nil, ErrNotFound
	}
	return lifecycle.AvailableTransitions(b.Status), nil
}

// TransitionStatus moves a block along a lifecycle edge.
func (s *Store) TransitionStatus(id string, to model.Status) error {
	op, err := s.transition(id, to)
	if err != nil {
		return err
	}
	s.commit(fmt.Sprintf("Move %s to %s", id, to), op)
	return nil
}

// transition applies a guarded status change without committing it.
func (s *Store) transition(id string, to model.Status) (conflict.Operation, error) {
	current := s.block(id)
	if current == nil {
		return conflict.Operation{}, ErrNotFound
	}
	if !lifecycle.CanTransition(current.Status, to) {
		return conflict.Operation{}, &TransitionError{BlockID: id, From: current.Status, To: to}
	}
	if _, err := s.setStatus(current, to); err != nil {
		return conflict.Operation{}, err
	}
	return s.statusOp(id, current.Status, to), nil
}

// setStatus replaces current with a copy in status to. Entering
// pending-review stamps the submission time and entering published stamps
// the next publication version.
func (s *Store) setStatus(current *model.Block, to model.Status) (*model.Block, error) {
	now := s.now()
	next := current.Clone()
	next.Status = to
	next.UpdatedAt = now
	switch to {
	case model.StatusPendingReview:
		next.SubmittedForReviewAt = &now
	case model.StatusPublished:
		version, err := nextVersion(current.PublishedVersion)
		if err != nil {
			return nil, err
		}
		next.PublishedVersion = version
		next.PublishedAt = &now
	}
	s.replaceBlock(next)
	return next, nil
}

// Publish moves an approved block to published and stamps the next
// publication version.
func (s *Store) Publish(id string) (*model.Block, error) {
	current := s.block(id)
	if current == nil {
		return nil, ErrNotFound
	}
	if current.Status != model.StatusApproved {
		return nil, &NotApprovedError{BlockID: id, Status: current.Status}
	}

	next, err := s.setStatus(current, model.StatusPublished)
	if err != nil {
		return nil, err
	}

	s.commit(fmt.Sprintf("Publish %q v%s", next.Title, next.PublishedVersion), s.statusOp(id, current.Status, model.StatusPublished))
	logrus.Infof("block %s published as version %s", id, next.PublishedVersion)

	return next.Clone(), nil
}

func nextVersion(previous string) (string, error) {
	if previous == "" {
		return firstVersion, nil
	}
	v, err := semver.NewVersion(previous)
	if err != nil {
		return "", fmt.Errorf("published version %q: %w", previous, err)
	}
	next := v.IncPatch()
	return next.String(), nil
}

// ApproveBlocks sets every listed block to approved. See SetStatuses.
func (s *Store) ApproveBlocks(ids []string) int {
	return s.SetStatuses(ids, model.StatusApproved)
}

// RejectBlocks sets every listed block to needs-changes. See SetStatuses.
func (s *Store) RejectBlocks(ids []string) int {
	return s.SetStatuses(ids, model.StatusNeedsChanges)
}

// SetStatuses sets the status of every listed block directly, without the
// lifecycle guard. Unknown ids are skipped and every edge the lifecycle table
// would reject is logged. It returns the number of blocks changed, all
// recorded as one action. The operations are forced so other actors apply
// them the same way.
func (s *Store) SetStatuses(ids []string, to model.Status) int {
	var ops []conflict.Operation
	for _, id := range ids {
		current := s.block(id)
		if current == nil || current.Status == to {
			continue
		}
		if !lifecycle.CanTransition(current.Status, to) {
			logrus.Warnf("batch status change of block %s from %s to %s bypasses the lifecycle", id, current.Status, to)
		}
		if _, err := s.setStatus(current, to); err != nil {
			logrus.Errorf("batch status change of block %s: %v", id, err)
			continue
		}
		op := s.statusOp(id, current.Status, to)
		op.Forced = true
		ops = append(ops, op)
	}
	if len(ops) > 0 {
		s.commit(fmt.Sprintf("Set %d blocks to %s", len(ops), to), ops...)
	}
	return len(ops)
}

// workflow lets the review tracker drive guarded transitions that are
// committed together as one action.
type workflow struct {
	s   *Store
	ops []conflict.Operation
}

func (w *workflow) BlockStatus(id string) (model.Status, bool) {
	return w.s.BlockStatus(id)
}

func (w *workflow) TransitionStatus(id string, to model.Status) error {
	op, err := w.s.transition(id, to)
	if err != nil {
		return err
	}
	w.ops = append(w.ops, op)
	return nil
}
