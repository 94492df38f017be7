package snapshot

import (
	"fmt"
	"testing"
	"time"

	"github.com/emrgen/canvas/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func blocks(n int) []*model.Block {
	var out []*model.Block
	for i := 0; i < n; i++ {
		out = append(out, &model.Block{
			ID:     fmt.Sprintf("b%d", i),
			Type:   model.BlockTypeProduct,
			Status: model.StatusDraft,
			Title:  fmt.Sprintf("Block %d", i),
		})
	}
	return out
}

func TestEngine_CompareAfterDelete(t *testing.T) {
	e := NewEngine(nil)
	live := blocks(5)

	s1, err := e.Create("ws", live, nil, "S1")
	require.NoError(t, err)
	assert.Len(t, s1.Summary.Added, 5)

	live = live[1:]
	s2, err := e.Create("ws", live, nil, "S2")
	require.NoError(t, err)
	assert.Equal(t, []string{"Block 0"}, s2.Summary.Removed)

	cmp := Compare(s1, s2)
	assert.Len(t, cmp.Removed, 1)
	assert.Len(t, cmp.Added, 0)
	assert.Equal(t, "b0", cmp.Removed[0].ID)
	assert.Equal(t, -1, cmp.NodeDelta)
}

func TestEngine_SnapshotIsIsolatedFromLiveGraph(t *testing.T) {
	e := NewEngine(nil)
	live := blocks(2)
	rels := []*model.Relationship{{ID: "r1", SourceID: "b0", TargetID: "b1", Type: model.RelationshipDependsOn}}

	snap, err := e.Create("ws", live, rels, "")
	require.NoError(t, err)
	assert.NotEmpty(t, snap.Label)

	live[0].Title = "changed"
	live[0].Tags = append(live[0].Tags, "x")
	rels[0].Label = "changed"

	assert.Equal(t, "Block 0", snap.Blocks[0].Title)
	assert.Empty(t, snap.Blocks[0].Tags)
	assert.Empty(t, snap.Relationships[0].Label)
}

func TestEngine_ReadsAreCopies(t *testing.T) {
	e := NewEngine(nil)
	snap, err := e.Create("ws", blocks(2), nil, "baseline")
	require.NoError(t, err)
	snap.Blocks[0].Title = "from create"

	listed := e.List("ws")
	require.Len(t, listed, 1)
	listed[0].Label = "renamed"
	listed[0].Blocks[1].Title = "from list"

	got, err := e.Get("ws", snap.ID)
	require.NoError(t, err)
	assert.Equal(t, "baseline", got.Label)
	assert.Equal(t, "Block 0", got.Blocks[0].Title)
	assert.Equal(t, "Block 1", got.Blocks[1].Title)
	got.Blocks = nil

	latest := e.Latest("ws")
	require.NotNil(t, latest)
	assert.Len(t, latest.Blocks, 2)

	res, err := e.Restore("ws", snap.ID, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "Block 0", res.Blocks[0].Title)
}

func TestEngine_RestoreRoundTrip(t *testing.T) {
	e := NewEngine(nil)
	original := blocks(3)
	rels := []*model.Relationship{{ID: "r1", SourceID: "b0", TargetID: "b1", Type: model.RelationshipFlowsInto}}

	snap, err := e.Create("ws", original, rels, "before")
	require.NoError(t, err)

	current := model.CloneBlocks(original[:2])
	current[0].Content = "rewritten"

	restored, err := e.Restore("ws", snap.ID, current, nil)
	require.NoError(t, err)
	assert.Len(t, restored.Changes.Added, 1)
	assert.Len(t, restored.Changes.RelationshipsAdded, 1)
	require.Len(t, restored.Changes.Modified, 1)
	assert.Equal(t, []string{model.FieldContent}, restored.Changes.Modified[0].Fields)

	// restoring then comparing against the snapshot yields no difference
	again := CompareCollections(restored.Blocks, restored.Relationships, snap.Blocks, snap.Relationships)
	assert.True(t, again.Empty())

	restored.Blocks[0].Title = "mutated"
	assert.Equal(t, "Block 0", snap.Blocks[0].Title)

	_, err = e.Restore("ws", "missing", nil, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEngine_SummaryTracksModifiedTitles(t *testing.T) {
	e := NewEngine(nil)
	live := blocks(2)
	_, err := e.Create("ws", live, nil, "one")
	require.NoError(t, err)

	next := model.CloneBlocks(live)
	next[1].Status = model.StatusPendingReview
	next[0].Position = model.Position{X: 10}
	next = append(next, &model.Block{ID: "b9", Title: "New"})

	snap, err := e.Create("ws", next, nil, "two")
	require.NoError(t, err)
	assert.Equal(t, []string{"New"}, snap.Summary.Added)
	assert.Equal(t, []string{"Block 1"}, snap.Summary.Modified)
	assert.Empty(t, snap.Summary.Removed)
}

func TestEngine_ListPruneAndLoad(t *testing.T) {
	c := &clock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	e := NewEngine(c.now)

	var created []*Snapshot
	for i := 0; i < 4; i++ {
		snap, err := e.Create("ws", blocks(1), nil, fmt.Sprint(i))
		require.NoError(t, err)
		created = append(created, snap)
		c.t = c.t.Add(24 * time.Hour)
	}

	list := e.List("ws")
	require.Len(t, list, 4)
	assert.Equal(t, "3", list[0].Label)
	assert.Equal(t, []string{created[3].ID, created[2].ID, created[1].ID, created[0].ID}, e.Containing("ws", "b0"))
	assert.InDelta(t, 3.0, Compare(created[0], created[3]).DaysBetween, 0.001)

	removed := e.Prune("ws", 2)
	assert.Equal(t, []string{created[1].ID, created[0].ID}, removed)
	assert.Len(t, e.List("ws"), 2)
	assert.Nil(t, e.Prune("ws", 5))

	other := NewEngine(nil)
	other.Load("ws", []*Snapshot{created[0], created[2], created[1]})
	loaded := other.List("ws")
	assert.Equal(t, created[2].ID, loaded[0].ID)
	assert.Equal(t, created[0].ID, loaded[2].ID)

	_, err := e.Create("", nil, nil, "x")
	assert.ErrorIs(t, err, ErrNoWorkspace)
}
