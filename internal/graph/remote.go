package graph

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/emrgen/canvas/internal/conflict"
	"github.com/emrgen/canvas/internal/model"
	"github.com/sirupsen/logrus"
)

// ApplyRemote applies an operation made by another actor. When the operation
// collides with an unsettled local edit of the same field it is not applied:
// the conflict is returned and stays pending until resolved. Remote changes
// are recorded in history like local ones, and local operations not drained
// yet are rebased onto them.
func (s *Store) ApplyRemote(op conflict.Operation) (*conflict.Conflict, error) {
	if c := s.conflicts.ReceiveRemote(op); c != nil {
		return c, nil
	}

	if err := s.applyRemote(op); err != nil {
		s.rollback()
		logrus.Warnf("remote %s of block %s by %s not applied: %v", op.Action, op.BlockID, op.UserID, err)
		return nil, err
	}
	for i, pending := range s.outbox {
		s.outbox[i] = conflict.TransformOperation(pending, op)
	}
	s.pushHistory(fmt.Sprintf("Remote %s by %s", op.Action, op.UserID))
	s.version++

	return nil, nil
}

func (s *Store) applyRemote(op conflict.Operation) error {
	switch op.Action {
	case conflict.ActionCreate:
		b, err := decodeBlock(op.NewValue)
		if err != nil {
			return err
		}
		if b.ID == "" {
			b.ID = op.BlockID
		}
		if s.block(b.ID) != nil {
			return fmt.Errorf("block %s: %w", b.ID, ErrDuplicate)
		}
		b.WorkspaceID = s.workspaceID
		s.blocks = append(s.blocks, b)
		return nil

	case conflict.ActionDelete:
		if removed, _ := s.removeBlock(op.BlockID); removed == nil {
			return ErrNotFound
		}
		return nil

	case conflict.ActionMove:
		if op.Position == nil {
			return fmt.Errorf("move without position: %w", model.ErrInvalidFieldValue)
		}
		return s.setField(op.BlockID, model.FieldPosition, *op.Position, false)

	case conflict.ActionUpdate:
		return s.setField(op.BlockID, op.Field, op.NewValue, op.Forced)

	case conflict.ActionRelate:
		var r model.Relationship
		if err := decode(op.NewValue, &r); err != nil {
			return err
		}
		if s.block(r.SourceID) == nil || s.block(r.TargetID) == nil {
			return fmt.Errorf("%w: endpoint missing", ErrInvalidRelationship)
		}
		r.WorkspaceID = s.workspaceID
		if i := s.relationshipIndex(r.ID); i >= 0 {
			s.relationships[i] = &r
		} else {
			s.relationships = append(s.relationships, &r)
		}
		return nil

	case conflict.ActionUnrelate:
		i := s.relationshipIndex(op.Target)
		if i < 0 {
			return ErrNotFound
		}
		s.relationships = slices.Delete(s.relationships, i, i+1)
		return nil

	case conflict.ActionComment:
		var c model.Comment
		if err := decode(op.NewValue, &c); err != nil {
			return err
		}
		current := s.block(op.BlockID)
		if current == nil {
			return ErrNotFound
		}
		if findComment(current.Comments, c.ID) != nil {
			return nil
		}
		next := current.Clone()
		if err := attachComment(next, op.Target, c); err != nil {
			return err
		}
		s.replaceBlock(next)
		return nil

	case conflict.ActionResolveComment:
		current := s.block(op.BlockID)
		if current == nil {
			return ErrNotFound
		}
		next := current.Clone()
		c := findComment(next.Comments, op.Target)
		if c == nil {
			return fmt.Errorf("comment %s: %w", op.Target, ErrNotFound)
		}
		if c.Resolved {
			return nil
		}
		c.Resolved = true
		s.replaceBlock(next)
		return nil
	}
	return fmt.Errorf("unknown action %q", op.Action)
}

// setField writes one field value without committing. Status goes through
// the lifecycle guard unless forced.
func (s *Store) setField(blockID, field string, value any, forced bool) error {
	current := s.block(blockID)
	if current == nil {
		return ErrNotFound
	}

	if field == model.FieldStatus {
		var to model.Status
		if err := decode(value, &to); err != nil {
			return err
		}
		if to == current.Status {
			return nil
		}
		if forced {
			_, err := s.setStatus(current, to)
			return err
		}
		_, err := s.transition(blockID, to)
		return err
	}

	next := current.Clone()
	if err := next.SetField(field, value); err != nil {
		return err
	}
	next.UpdatedAt = s.now()
	s.replaceBlock(next)
	return nil
}

// Conflicts returns the unresolved conflicts in detection order.
func (s *Store) Conflicts() []*conflict.Conflict {
	return s.conflicts.Pending()
}

func (s *Store) AllConflicts() []*conflict.Conflict {
	return s.conflicts.All()
}

func (s *Store) PendingConflicts() int {
	return s.conflicts.PendingCount()
}

// SubscribeConflicts registers a listener for added and resolved conflicts.
func (s *Store) SubscribeConflicts(l conflict.Listener) func() {
	return s.conflicts.Subscribe(l)
}

// Operations returns the rolling operation log, oldest first.
func (s *Store) Operations() []conflict.Operation {
	return s.conflicts.Operations()
}

// ResolveConflict writes the winning value to the block and then records the
// decision. The write is a local action so it reaches the other actors. When
// the write fails the conflict stays pending.
func (s *Store) ResolveConflict(id string, side conflict.Side, merged any) (*conflict.Conflict, error) {
	decided, err := s.conflicts.Decide(id, side, merged)
	if err != nil {
		return nil, conflictErr(err)
	}
	return s.settle(decided)
}

// ResolveConflictWith resolves a conflict by strategy.
func (s *Store) ResolveConflictWith(id string, strategy conflict.Strategy) (*conflict.Conflict, error) {
	decided, err := s.conflicts.DecideWith(id, strategy)
	if err != nil {
		return nil, conflictErr(err)
	}
	return s.settle(decided)
}

func (s *Store) settle(decided *conflict.Conflict) (*conflict.Conflict, error) {
	if err := s.applyResolution(decided); err != nil {
		return nil, err
	}
	c, err := s.conflicts.Resolve(decided.ID, decided.Resolution, decided.ResolvedValue)
	if err != nil {
		return nil, conflictErr(err)
	}
	return c, nil
}

func (s *Store) applyResolution(c *conflict.Conflict) error {
	current := s.block(c.BlockID)
	if current == nil {
		logrus.Infof("conflict %s resolved for deleted block %s", c.ID, c.BlockID)
		return nil
	}

	var before any = current.Status
	if c.Field != model.FieldStatus {
		value, err := current.FieldValue(c.Field)
		if err != nil {
			return err
		}
		before = value
	}
	if conflict.SameValue(before, c.ResolvedValue) {
		return nil
	}

	if err := s.setField(c.BlockID, c.Field, c.ResolvedValue, false); err != nil {
		s.rollback()
		return err
	}

	op := s.operation(conflict.ActionUpdate, c.BlockID)
	op.Field = c.Field
	op.OldValue = before
	op.NewValue = c.ResolvedValue
	s.commit(fmt.Sprintf("Resolve conflict on %s", c.Field), op)
	return nil
}

func conflictErr(err error) error {
	if errors.Is(err, conflict.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func decodeBlock(v any) (*model.Block, error) {
	if b, ok := v.(*model.Block); ok {
		return b.Clone(), nil
	}
	var b model.Block
	if err := decode(v, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func decode(v any, target any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: %v", model.ErrInvalidFieldValue, err)
	}
	return nil
}
