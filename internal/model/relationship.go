package model

import (
	"slices"
	"time"
)

// RelationshipType is the fixed vocabulary of edge types.
type RelationshipType string

const (
	RelationshipFlowsInto  RelationshipType = "flows-into"
	RelationshipSolves     RelationshipType = "solves"
	RelationshipDependsOn  RelationshipType = "depends-on"
	RelationshipReferences RelationshipType = "references"
	RelationshipEnables    RelationshipType = "enables"
	RelationshipPartOf     RelationshipType = "part-of"
)

var relationshipTypes = []RelationshipType{
	RelationshipFlowsInto,
	RelationshipSolves,
	RelationshipDependsOn,
	RelationshipReferences,
	RelationshipEnables,
	RelationshipPartOf,
}

// Valid reports whether t belongs to the relationship vocabulary.
func (t RelationshipType) Valid() bool {
	return slices.Contains(relationshipTypes, t)
}

// Relationship is a typed directed edge between two blocks.
type Relationship struct {
	ID          string           `json:"id"`
	WorkspaceID string           `json:"workspaceId"`
	SourceID    string           `json:"sourceId"`
	TargetID    string           `json:"targetId"`
	Type        RelationshipType `json:"type"`
	Label       string           `json:"label,omitempty"`
	Animated    bool             `json:"animated,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
}

// Clone returns a copy of the relationship.
func (r *Relationship) Clone() *Relationship {
	if r == nil {
		return nil
	}
	clone := *r
	return &clone
}

// Touches reports whether the relationship has blockID as either endpoint.
func (r *Relationship) Touches(blockID string) bool {
	return r.SourceID == blockID || r.TargetID == blockID
}

// CloneRelationships copies a relationship slice.
func CloneRelationships(rels []*Relationship) []*Relationship {
	out := make([]*Relationship, 0, len(rels))
	for _, r := range rels {
		out = append(out, r.Clone())
	}
	return out
}
