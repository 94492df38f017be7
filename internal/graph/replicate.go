package graph

import (
	"github.com/emrgen/canvas/internal/conflict"
	"github.com/emrgen/canvas/internal/model"
)

// syncOps lists the operations that take another actor from one graph to the
// other: created blocks, block edits, relationship changes and deleted blocks,
// in that order. Every operation is forced.
func (s *Store) syncOps(beforeBlocks, afterBlocks []*model.Block, beforeRels, afterRels []*model.Relationship) []conflict.Operation {
	prev := indexBlocks(beforeBlocks)
	next := indexBlocks(afterBlocks)

	var created, edited, related, deleted []conflict.Operation
	for _, b := range afterBlocks {
		old, ok := prev[b.ID]
		switch {
		case !ok:
			op := s.operation(conflict.ActionCreate, b.ID)
			op.NewValue = b.Clone()
			created = append(created, op)
		case old != b:
			edited = append(edited, s.blockOps(old, b)...)
		}
	}

	prevRels := indexRelationships(beforeRels)
	nextRels := indexRelationships(afterRels)
	for _, r := range beforeRels {
		if _, ok := nextRels[r.ID]; !ok {
			related = append(related, s.unrelateOp(r))
		}
	}
	for _, r := range afterRels {
		if prevRels[r.ID] != r {
			related = append(related, s.relateOp(r))
		}
	}

	for _, b := range beforeBlocks {
		if _, ok := next[b.ID]; !ok {
			op := s.operation(conflict.ActionDelete, b.ID)
			op.OldValue = b.Clone()
			deleted = append(deleted, op)
		}
	}

	ops := make([]conflict.Operation, 0, len(created)+len(edited)+len(related)+len(deleted))
	ops = append(ops, created...)
	ops = append(ops, edited...)
	ops = append(ops, related...)
	ops = append(ops, deleted...)
	for i := range ops {
		ops[i].Forced = true
	}
	return ops
}

// blockOps is fieldOps plus the comment thread.
func (s *Store) blockOps(before, after *model.Block) []conflict.Operation {
	ops := s.fieldOps(before, after)
	oldComments, _ := before.FieldValue(model.FieldComments)
	newComments, _ := after.FieldValue(model.FieldComments)
	if !conflict.SameValue(oldComments, newComments) {
		op := s.operation(conflict.ActionUpdate, after.ID)
		op.Field = model.FieldComments
		op.OldValue = oldComments
		op.NewValue = newComments
		ops = append(ops, op)
	}
	return ops
}

func (s *Store) relateOp(r *model.Relationship) conflict.Operation {
	op := s.operation(conflict.ActionRelate, r.SourceID)
	op.Target = r.ID
	op.NewValue = r.Clone()
	return op
}

func (s *Store) unrelateOp(r *model.Relationship) conflict.Operation {
	op := s.operation(conflict.ActionUnrelate, r.SourceID)
	op.Target = r.ID
	op.OldValue = r.Clone()
	return op
}

func indexBlocks(blocks []*model.Block) map[string]*model.Block {
	m := make(map[string]*model.Block, len(blocks))
	for _, b := range blocks {
		m[b.ID] = b
	}
	return m
}

func indexRelationships(relationships []*model.Relationship) map[string]*model.Relationship {
	m := make(map[string]*model.Relationship, len(relationships))
	for _, r := range relationships {
		m[r.ID] = r
	}
	return m
}
