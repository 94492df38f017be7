package graph

import (
	"reflect"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/emrgen/canvas/internal/model"
	"github.com/emrgen/canvas/internal/review"
	"github.com/emrgen/canvas/internal/revision"
	"github.com/emrgen/canvas/internal/snapshot"
)

// Mark records the graph at one point so the changes made after it can be
// listed. The zero Mark is an empty graph.
type Mark struct {
	blocks        map[string]*model.Block
	relationships map[string]*model.Relationship
	reviews       map[string]*review.Request
	revisions     mapset.Set[string]
	snapshots     mapset.Set[string]
}

// Changes is what a store changed since a Mark. Blocks, relationships and
// review requests are the created or modified ones, in graph order.
type Changes struct {
	Blocks               []*model.Block
	DeletedBlocks        []string
	Relationships        []*model.Relationship
	DeletedRelationships []string
	Reviews              []*review.Request
	Revisions            []*revision.Revision
	Snapshots            []*snapshot.Snapshot
	DeletedSnapshots     []string
	// Order maps every live block id to its position in the graph.
	Order map[string]int
}

func (c Changes) Empty() bool {
	return len(c.Blocks) == 0 && len(c.DeletedBlocks) == 0 &&
		len(c.Relationships) == 0 && len(c.DeletedRelationships) == 0 &&
		len(c.Reviews) == 0 && len(c.Revisions) == 0 &&
		len(c.Snapshots) == 0 && len(c.DeletedSnapshots) == 0
}

// Mark records the live graph. Blocks and relationships are copy-on-write,
// so holding their pointers is enough to detect later changes.
func (s *Store) Mark() Mark {
	m := Mark{
		blocks:        indexBlocks(s.blocks),
		relationships: indexRelationships(s.relationships),
		reviews:       make(map[string]*review.Request),
		revisions:     mapset.NewThreadUnsafeSet[string](),
		snapshots:     mapset.NewThreadUnsafeSet(s.snapshots.IDs(s.workspaceID)...),
	}
	for _, req := range s.reviews.All() {
		m.reviews[req.ID] = req
	}
	for _, rev := range s.revisions.All() {
		m.revisions.Add(rev.ID)
	}
	return m
}

// ChangesSince lists what changed after m was taken.
func (s *Store) ChangesSince(m Mark) Changes {
	var c Changes

	c.Order = make(map[string]int, len(s.blocks))
	for i, b := range s.blocks {
		c.Order[b.ID] = i
		if m.blocks[b.ID] != b {
			c.Blocks = append(c.Blocks, b.Clone())
		}
	}
	live := indexBlocks(s.blocks)
	for id := range m.blocks {
		if _, ok := live[id]; !ok {
			c.DeletedBlocks = append(c.DeletedBlocks, id)
		}
	}

	for _, r := range s.relationships {
		if m.relationships[r.ID] != r {
			c.Relationships = append(c.Relationships, r.Clone())
		}
	}
	liveRels := indexRelationships(s.relationships)
	for id := range m.relationships {
		if _, ok := liveRels[id]; !ok {
			c.DeletedRelationships = append(c.DeletedRelationships, id)
		}
	}

	for _, req := range s.reviews.All() {
		if prev, ok := m.reviews[req.ID]; !ok || !reflect.DeepEqual(prev, req) {
			c.Reviews = append(c.Reviews, req)
		}
	}

	for _, rev := range s.revisions.All() {
		if m.revisions == nil || !m.revisions.Contains(rev.ID) {
			c.Revisions = append(c.Revisions, rev)
		}
	}

	current := mapset.NewThreadUnsafeSet(s.snapshots.IDs(s.workspaceID)...)
	for _, id := range current.ToSlice() {
		if m.snapshots != nil && m.snapshots.Contains(id) {
			continue
		}
		if snap, err := s.snapshots.Get(s.workspaceID, id); err == nil {
			c.Snapshots = append(c.Snapshots, snap)
		}
	}
	if m.snapshots != nil {
		c.DeletedSnapshots = m.snapshots.Difference(current).ToSlice()
	}

	return c
}
