package store

import (
	"context"
	"testing"
	"time"

	"github.com/emrgen/canvas/internal/compress"
	"github.com/emrgen/canvas/internal/graph"
	"github.com/emrgen/canvas/internal/model"
	"github.com/emrgen/canvas/internal/tester"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWorkspace(t *testing.T, s Store) string {
	t.Helper()
	ws := &model.Workspace{ID: uuid.New().String(), Name: "Launch"}
	require.NoError(t, s.CreateWorkspace(context.TODO(), ws))
	return ws.ID
}

func populated(t *testing.T, workspaceID string) *graph.Store {
	t.Helper()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	g := graph.New(graph.Options{
		WorkspaceID: workspaceID,
		Actor:       graph.Actor{ID: "alice", Name: "Alice"},
		Clock:       func() time.Time { return now },
	})

	for _, id := range []string{"b1", "b2", "b3"} {
		_, err := g.AddBlock(graph.NewBlock{ID: workspaceID + id, Type: model.BlockTypeFeature, Title: id, Tags: []string{"launch"}})
		require.NoError(t, err)
	}
	_, err := g.AddRelationship(graph.NewRelationship{SourceID: workspaceID + "b1", TargetID: workspaceID + "b2", Type: model.RelationshipFlowsInto})
	require.NoError(t, err)
	_, err = g.CreateRevision(workspaceID+"b1", "first cut")
	require.NoError(t, err)
	_, err = g.RequestReview(graph.ReviewInput{
		BlockIDs:     []string{workspaceID + "b2"},
		ReviewerID:   "bob",
		ReviewerName: "Bob",
		DueBy:        now.Add(48 * time.Hour),
	})
	require.NoError(t, err)
	_, err = g.CreateSnapshot("baseline")
	require.NoError(t, err)

	return g
}

func TestGormStore_Workspaces(t *testing.T) {
	s := NewGormStore(tester.TestDB(), compress.NewNop())
	ctx := context.TODO()

	id := newWorkspace(t, s)
	ws, err := s.GetWorkspace(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Launch", ws.Name)

	all, err := s.ListWorkspaces(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, all)

	require.NoError(t, s.DeleteWorkspace(ctx, id))
	_, err = s.GetWorkspace(ctx, id)
	assert.ErrorIs(t, err, ErrWorkspaceNotFound)
}

func TestGormStore_SaveLoadState(t *testing.T) {
	tests := []struct {
		name  string
		codec compress.Compress
	}{
		{name: "nop", codec: compress.NewNop()},
		{name: "gzip", codec: compress.NewGZip()},
		{name: "brotli", codec: compress.NewBrotli()},
		{name: "lz4", codec: compress.NewLZ4()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.TODO()
			s := NewGormStore(tester.TestDB(), tt.codec)
			id := newWorkspace(t, s)
			g := populated(t, id)

			err := s.Transaction(ctx, func(tx Store) error {
				return tx.SaveChanges(ctx, id, g.ChangesSince(graph.Mark{}))
			})
			require.NoError(t, err)

			state, err := s.LoadState(ctx, id)
			require.NoError(t, err)

			want := g.Export()
			require.Len(t, state.Blocks, len(want.Blocks))
			for i, b := range want.Blocks {
				assert.Equal(t, b.ID, state.Blocks[i].ID)
				assert.Equal(t, b.Title, state.Blocks[i].Title)
				assert.Equal(t, b.Status, state.Blocks[i].Status)
				assert.Equal(t, b.Tags, state.Blocks[i].Tags)
			}
			require.Len(t, state.Relationships, 1)
			assert.Equal(t, want.Relationships[0].SourceID, state.Relationships[0].SourceID)
			assert.Equal(t, model.RelationshipFlowsInto, state.Relationships[0].Type)
			require.Len(t, state.Revisions, 1)
			assert.Equal(t, "first cut", state.Revisions[0].Comment)
			require.Len(t, state.Reviews, 1)
			assert.Equal(t, "bob", state.Reviews[0].ReviewerID)
			require.Len(t, state.Snapshots, 1)
			assert.Equal(t, "baseline", state.Snapshots[0].Label)
			assert.Len(t, state.Snapshots[0].Blocks, 3)

			// a store with another codec still reads the rows
			other := NewGormStore(tester.TestDB(), compress.NewNop())
			again, err := other.LoadState(ctx, id)
			require.NoError(t, err)
			assert.Len(t, again.Blocks, 3)
		})
	}
}

func TestGormStore_SaveChanges(t *testing.T) {
	ctx := context.TODO()
	s := NewGormStore(tester.TestDB(), compress.NewGZip())
	id := newWorkspace(t, s)
	g := populated(t, id)
	require.NoError(t, s.SaveChanges(ctx, id, g.ChangesSince(graph.Mark{})))
	mark := g.Mark()

	assert.True(t, g.ChangesSince(mark).Empty())

	require.NoError(t, g.RemoveBlock(id+"b3"))
	title := "b1 renamed"
	_, err := g.UpdateBlock(id+"b1", graph.BlockPatch{Title: &title})
	require.NoError(t, err)
	_, err = g.CreateRevision(id+"b1", "second cut")
	require.NoError(t, err)
	g.PruneSnapshots(0)

	changes := g.ChangesSince(mark)
	require.Len(t, changes.Blocks, 1)
	assert.Equal(t, id+"b1", changes.Blocks[0].ID)
	assert.Equal(t, []string{id + "b3"}, changes.DeletedBlocks)
	assert.Len(t, changes.Revisions, 1)
	assert.Empty(t, changes.Snapshots)
	assert.Len(t, changes.DeletedSnapshots, 1)
	assert.Empty(t, changes.Relationships)
	assert.Empty(t, changes.Reviews)
	require.NoError(t, s.SaveChanges(ctx, id, changes))

	state, err := s.LoadState(ctx, id)
	require.NoError(t, err)
	require.Len(t, state.Blocks, 2)
	assert.Equal(t, "b1 renamed", state.Blocks[0].Title)
	assert.Equal(t, id+"b2", state.Blocks[1].ID)
	assert.Equal(t, model.StatusPendingReview, state.Blocks[1].Status)
	assert.Len(t, state.Revisions, 2)
	assert.Empty(t, state.Snapshots)
}

func TestGormStore_SaveChangesLeavesOtherRows(t *testing.T) {
	ctx := context.TODO()
	s := NewGormStore(tester.TestDB(), compress.NewLZ4())
	id := newWorkspace(t, s)

	// two stores loaded from the same rows edit different blocks
	first := populated(t, id)
	require.NoError(t, s.SaveChanges(ctx, id, first.ChangesSince(graph.Mark{})))
	state, err := s.LoadState(ctx, id)
	require.NoError(t, err)
	second := graph.New(graph.Options{WorkspaceID: id, Actor: graph.Actor{ID: "bob"}})
	second.Load(*state)

	firstMark, secondMark := first.Mark(), second.Mark()
	require.NoError(t, first.RemoveBlock(id+"b3"))
	require.NoError(t, s.SaveChanges(ctx, id, first.ChangesSince(firstMark)))

	title := "edited by bob"
	_, err = second.UpdateBlock(id+"b2", graph.BlockPatch{Title: &title})
	require.NoError(t, err)
	require.NoError(t, s.SaveChanges(ctx, id, second.ChangesSince(secondMark)))

	state, err = s.LoadState(ctx, id)
	require.NoError(t, err)
	require.Len(t, state.Blocks, 2)
	assert.Equal(t, "edited by bob", state.Blocks[1].Title)
}

func TestProvider(t *testing.T) {
	s := NewGormStore(tester.TestDB(), nil)

	p := NewWorkspaceStoreProvider()
	_, err := p.Provide("ws")
	assert.ErrorIs(t, err, ErrStoreNotFound)

	p.Register("ws", s)
	got, err := p.Provide("ws")
	require.NoError(t, err)
	assert.Same(t, s, got)

	got, err = NewDefaultProvider(s).Provide("any")
	require.NoError(t, err)
	assert.Same(t, s, got)
}
