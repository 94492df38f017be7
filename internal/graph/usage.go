package graph

import (
	"github.com/emrgen/canvas/internal/model"
)

// Usage is everything in the workspace that refers to a block.
type Usage struct {
	BlockID        string                `json:"blockId"`
	ReviewRequests []string              `json:"reviewRequests"`
	Snapshots      []string              `json:"snapshots"`
	Incoming       []*model.Relationship `json:"incoming"`
	Outgoing       []*model.Relationship `json:"outgoing"`
	Children       []string              `json:"children"`
	DanglingParent bool                  `json:"danglingParent"`
}

// InUse reports whether deleting the block would affect anything else.
func (u *Usage) InUse() bool {
	return len(u.ReviewRequests) > 0 || len(u.Incoming) > 0 || len(u.Outgoing) > 0 || len(u.Children) > 0
}

// UsageOf reports the review requests, snapshots, relationships and child
// blocks referring to a block.
func (s *Store) UsageOf(blockID string) (*Usage, error) {
	b := s.block(blockID)
	if b == nil {
		return nil, ErrNotFound
	}

	u := &Usage{
		BlockID:        blockID,
		ReviewRequests: s.reviews.Referencing(blockID),
		Snapshots:      s.snapshots.Containing(s.workspaceID, blockID),
		Incoming:       []*model.Relationship{},
		Outgoing:       []*model.Relationship{},
		Children:       []string{},
		DanglingParent: b.ParentID != "" && s.block(b.ParentID) == nil,
	}
	for _, r := range s.relationships {
		if r.TargetID == blockID {
			u.Incoming = append(u.Incoming, r.Clone())
		}
		if r.SourceID == blockID {
			u.Outgoing = append(u.Outgoing, r.Clone())
		}
	}
	for _, child := range s.blocks {
		if child.ParentID == blockID {
			u.Children = append(u.Children, child.ID)
		}
	}
	return u, nil
}
