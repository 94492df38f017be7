package snapshot

import (
	"github.com/emrgen/canvas/internal/model"
)

// BlockChange lists the fields that differ for a block present on both sides.
type BlockChange struct {
	BlockID string   `json:"blockId"`
	Title   string   `json:"title"`
	Fields  []string `json:"fields"`
}

// RelationshipChange lists the fields that differ for a relationship present on both sides.
type RelationshipChange struct {
	RelationshipID string   `json:"relationshipId"`
	Fields         []string `json:"fields"`
}

// Comparison is the structural difference between two graph states, read
// from A to B.
type Comparison struct {
	Added                 []*model.Block        `json:"added"`
	Removed               []*model.Block        `json:"removed"`
	Modified              []BlockChange         `json:"modified"`
	RelationshipsAdded    []*model.Relationship `json:"relationshipsAdded"`
	RelationshipsRemoved  []*model.Relationship `json:"relationshipsRemoved"`
	RelationshipsModified []RelationshipChange  `json:"relationshipsModified"`
	NodeDelta             int                   `json:"nodeDelta"`
	DaysBetween           float64               `json:"daysBetween"`
}

// Empty reports whether the two sides hold the same graph.
func (c Comparison) Empty() bool {
	return len(c.Added) == 0 && len(c.Removed) == 0 && len(c.Modified) == 0 &&
		len(c.RelationshipsAdded) == 0 && len(c.RelationshipsRemoved) == 0 && len(c.RelationshipsModified) == 0
}

// Compare diffs snapshot a against snapshot b.
func Compare(a, b *Snapshot) Comparison {
	cmp := CompareCollections(a.Blocks, a.Relationships, b.Blocks, b.Relationships)
	cmp.DaysBetween = b.CreatedAt.Sub(a.CreatedAt).Hours() / 24
	return cmp
}

// CompareCollections diffs two graph states given as collections.
func CompareCollections(aBlocks []*model.Block, aRels []*model.Relationship, bBlocks []*model.Block, bRels []*model.Relationship) Comparison {
	blockID := func(b *model.Block) string { return b.ID }
	relID := func(r *model.Relationship) string { return r.ID }

	aIDs, bIDs := ids(aBlocks, blockID), ids(bBlocks, blockID)
	aIndex := index(aBlocks)

	cmp := Comparison{
		Added:                 []*model.Block{},
		Removed:               []*model.Block{},
		Modified:              []BlockChange{},
		RelationshipsAdded:    []*model.Relationship{},
		RelationshipsRemoved:  []*model.Relationship{},
		RelationshipsModified: []RelationshipChange{},
		NodeDelta:             len(bBlocks) - len(aBlocks),
	}

	for _, b := range bBlocks {
		if !aIDs.Contains(b.ID) {
			cmp.Added = append(cmp.Added, b.Clone())
			continue
		}
		if fields := ChangedBlockFields(aIndex[b.ID], b, BlockFields); len(fields) > 0 {
			cmp.Modified = append(cmp.Modified, BlockChange{BlockID: b.ID, Title: b.Title, Fields: fields})
		}
	}
	for _, a := range aBlocks {
		if !bIDs.Contains(a.ID) {
			cmp.Removed = append(cmp.Removed, a.Clone())
		}
	}

	aRelIDs, bRelIDs := ids(aRels, relID), ids(bRels, relID)
	aRelIndex := make(map[string]*model.Relationship, len(aRels))
	for _, r := range aRels {
		aRelIndex[r.ID] = r
	}
	for _, r := range bRels {
		if !aRelIDs.Contains(r.ID) {
			cmp.RelationshipsAdded = append(cmp.RelationshipsAdded, r.Clone())
			continue
		}
		if fields := ChangedRelationshipFields(aRelIndex[r.ID], r); len(fields) > 0 {
			cmp.RelationshipsModified = append(cmp.RelationshipsModified, RelationshipChange{RelationshipID: r.ID, Fields: fields})
		}
	}
	for _, r := range aRels {
		if !bRelIDs.Contains(r.ID) {
			cmp.RelationshipsRemoved = append(cmp.RelationshipsRemoved, r.Clone())
		}
	}

	return cmp
}
