package graph

import (
	"fmt"
	"slices"

	"github.com/emrgen/canvas/internal/model"
	"github.com/google/uuid"
)

type NewRelationship struct {
	SourceID string
	TargetID string
	Type     model.RelationshipType
	Label    string
	Animated bool
}

type RelationshipPatch struct {
	Type     *model.RelationshipType
	Label    *string
	Animated *bool
}

// AddRelationship connects two existing blocks. An edge with the same
// endpoints and type may exist only once.
func (s *Store) AddRelationship(in NewRelationship) (*model.Relationship, error) {
	if !in.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidRelationship, in.Type)
	}
	if in.SourceID == in.TargetID {
		return nil, fmt.Errorf("%w: block %s cannot relate to itself", ErrInvalidRelationship, in.SourceID)
	}
	source, target := s.block(in.SourceID), s.block(in.TargetID)
	if source == nil || target == nil {
		return nil, fmt.Errorf("%w: endpoint missing", ErrInvalidRelationship)
	}
	exists := slices.ContainsFunc(s.relationships, func(r *model.Relationship) bool {
		return r.SourceID == in.SourceID && r.TargetID == in.TargetID && r.Type == in.Type
	})
	if exists {
		return nil, fmt.Errorf("%s %s %s: %w", in.SourceID, in.Type, in.TargetID, ErrDuplicate)
	}

	r := &model.Relationship{
		ID:          uuid.New().String(),
		WorkspaceID: s.workspaceID,
		SourceID:    in.SourceID,
		TargetID:    in.TargetID,
		Type:        in.Type,
		Label:       in.Label,
		Animated:    in.Animated,
		CreatedAt:   s.now(),
	}
	s.relationships = append(s.relationships, r)
	s.commit(fmt.Sprintf("Connect %q %s %q", source.Title, r.Type, target.Title), s.relateOp(r))

	return r.Clone(), nil
}

func (s *Store) UpdateRelationship(id string, patch RelationshipPatch) (*model.Relationship, error) {
	i := s.relationshipIndex(id)
	if i < 0 {
		return nil, ErrNotFound
	}

	next := s.relationships[i].Clone()
	if patch.Type != nil {
		if !patch.Type.Valid() {
			return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidRelationship, *patch.Type)
		}
		next.Type = *patch.Type
	}
	if patch.Label != nil {
		next.Label = *patch.Label
	}
	if patch.Animated != nil {
		next.Animated = *patch.Animated
	}
	if *next == *s.relationships[i] {
		return next, nil
	}

	s.relationships[i] = next
	s.commit("Edit relationship", s.relateOp(next))

	return next.Clone(), nil
}

func (s *Store) RemoveRelationship(id string) error {
	i := s.relationshipIndex(id)
	if i < 0 {
		return ErrNotFound
	}
	removed := s.relationships[i]
	s.relationships = slices.Delete(s.relationships, i, i+1)
	s.commit("Remove relationship", s.unrelateOp(removed))
	return nil
}
