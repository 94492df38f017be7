package service

import (
	"context"
	"testing"
	"time"

	"github.com/emrgen/canvas/internal/cache"
	"github.com/emrgen/canvas/internal/compress"
	"github.com/emrgen/canvas/internal/graph"
	"github.com/emrgen/canvas/internal/model"
	"github.com/emrgen/canvas/internal/relay"
	"github.com/emrgen/canvas/internal/review"
	"github.com/emrgen/canvas/internal/store"
	"github.com/emrgen/canvas/internal/tester"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = graph.Actor{ID: "alice", Name: "Alice"}
	bob   = graph.Actor{ID: "bob", Name: "Bob"}
)

func newService(t *testing.T, r relay.Relay, c cache.WorkspaceCache) *WorkspaceService {
	t.Helper()
	svc := NewWorkspaceService(store.NewGormStore(tester.TestDB(), compress.NewGZip()), c, r, Options{})
	t.Cleanup(svc.Close)
	return svc
}

func newWorkspace(t *testing.T, svc *WorkspaceService) string {
	t.Helper()
	ws, err := svc.CreateWorkspace(context.TODO(), &CreateWorkspaceRequest{Name: "Launch"})
	require.NoError(t, err)
	return ws.ID
}

func TestWorkspaceService_CreateWorkspace(t *testing.T) {
	svc := newService(t, nil, nil)
	ctx := context.TODO()

	tests := []struct {
		name    string
		req     CreateWorkspaceRequest
		wantErr error
	}{
		{name: "generated id", req: CreateWorkspaceRequest{Name: "Q3 launch"}},
		{name: "given id", req: CreateWorkspaceRequest{ID: "ws-given", Name: "Given"}},
		{name: "missing name", req: CreateWorkspaceRequest{}, wantErr: ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ws, err := svc.CreateWorkspace(ctx, &tt.req)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, ws.ID)
			if tt.req.ID != "" {
				assert.Equal(t, tt.req.ID, ws.ID)
			}

			got, err := svc.GetWorkspace(ctx, ws.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.req.Name, got.Name)
		})
	}
}

func TestWorkspaceService_Persistence(t *testing.T) {
	ctx := context.TODO()
	svc := newService(t, nil, nil)
	id := newWorkspace(t, svc)

	sess, err := svc.Open(ctx, id)
	require.NoError(t, err)
	again, err := svc.Open(ctx, id)
	require.NoError(t, err)
	assert.Same(t, sess, again)

	b, err := sess.AddBlock(ctx, alice, &AddBlockRequest{Type: model.BlockTypeFeature, Title: "Dashboards"})
	require.NoError(t, err)
	_, err = sess.AddComment(ctx, bob, b.ID, &CommentRequest{Content: "Needs a screenshot"})
	require.NoError(t, err)

	// a second process sees the persisted workspace
	other := newService(t, nil, nil)
	sess2, err := other.Open(ctx, id)
	require.NoError(t, err)
	require.NoError(t, sess2.View(func(g *graph.Store) {
		got, err := g.Block(b.ID)
		require.NoError(t, err)
		assert.Equal(t, "Dashboards", got.Title)
		require.Len(t, got.Comments, 1)
		assert.Equal(t, "bob", got.Comments[0].AuthorID)
	}))

	require.NoError(t, svc.DeleteWorkspace(ctx, id))
	_, err = svc.Open(ctx, id)
	assert.ErrorIs(t, err, store.ErrWorkspaceNotFound)
	assert.ErrorIs(t, sess.View(func(*graph.Store) {}), ErrSessionClosed)
}

func TestSession_Validation(t *testing.T) {
	ctx := context.TODO()
	svc := newService(t, nil, nil)
	sess, err := svc.Open(ctx, newWorkspace(t, svc))
	require.NoError(t, err)

	_, err = sess.AddBlock(ctx, alice, &AddBlockRequest{Type: "banner", Title: "x"})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = sess.AddBlock(ctx, alice, &AddBlockRequest{Type: model.BlockTypeFAQ, Title: "x", Status: model.StatusPublished})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = sess.AddRelationship(ctx, alice, &AddRelationshipRequest{SourceID: "a", TargetID: "a", Type: model.RelationshipSolves})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = sess.SetStatus(ctx, alice, &StatusRequest{BlockIDs: []string{"a"}, Status: "done"})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = sess.ResolveConflict(ctx, alice, "c", &ResolveConflictRequest{})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = sess.CompleteReview(ctx, alice, "r", &CompleteReviewRequest{Resolution: "maybe"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSession_Workflow(t *testing.T) {
	ctx := context.TODO()
	svc := newService(t, nil, nil)
	sess, err := svc.Open(ctx, newWorkspace(t, svc))
	require.NoError(t, err)

	a, err := sess.AddBlock(ctx, alice, &AddBlockRequest{Type: model.BlockTypePainPoint, Title: "Slow exports"})
	require.NoError(t, err)
	b, err := sess.AddBlock(ctx, alice, &AddBlockRequest{Type: model.BlockTypeValueProp, Title: "Instant exports"})
	require.NoError(t, err)
	_, err = sess.AddRelationship(ctx, alice, &AddRelationshipRequest{SourceID: b.ID, TargetID: a.ID, Type: model.RelationshipSolves})
	require.NoError(t, err)

	// a single block goes through the guard
	_, err = sess.SetStatus(ctx, alice, &StatusRequest{BlockIDs: []string{a.ID}, Status: model.StatusPublished})
	assert.ErrorIs(t, err, graph.ErrInvalidTransition)

	req, err := sess.RequestReview(ctx, alice, &RequestReviewRequest{
		BlockIDs:   []string{a.ID, b.ID},
		ReviewerID: "bob",
		DueBy:      time.Now().Add(24 * time.Hour),
	})
	require.NoError(t, err)

	done, err := sess.CompleteReview(ctx, bob, req.ID, &CompleteReviewRequest{Resolution: review.ResolutionApproved})
	require.NoError(t, err)
	assert.Equal(t, review.StatusCompleted, done.Status)

	require.NoError(t, sess.Do(ctx, alice, func(g *graph.Store) error {
		_, err := g.Publish(a.ID)
		return err
	}))

	// the batch path bypasses the guard
	n, err := sess.SetStatus(ctx, alice, &StatusRequest{BlockIDs: []string{a.ID, b.ID}, Status: model.StatusDraft})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	snap, err := sess.CreateSnapshot(ctx, alice, &SnapshotRequest{Label: "after review"})
	require.NoError(t, err)
	assert.Equal(t, "after review", snap.Label)

	state, err := svc.store.LoadState(ctx, sess.WorkspaceID())
	require.NoError(t, err)
	drafts := 0
	for _, b := range state.Blocks {
		if b.Status == model.StatusDraft {
			drafts++
		}
	}
	assert.Equal(t, 2, drafts)
}

func TestSession_RemoteOperations(t *testing.T) {
	ctx := context.TODO()
	r := relay.NewLocal()
	first := newService(t, r, nil)
	second := newService(t, r, nil)
	id := newWorkspace(t, first)

	s1, err := first.Open(ctx, id)
	require.NoError(t, err)
	s2, err := second.Open(ctx, id)
	require.NoError(t, err)

	b, err := s1.AddBlock(ctx, alice, &AddBlockRequest{ID: id + "-b1", Type: model.BlockTypeMessage, Title: "Hello"})
	require.NoError(t, err)

	title := "Hello, world"
	_, err = s1.UpdateBlock(ctx, alice, b.ID, &UpdateBlockRequest{Title: &title})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		var got string
		_ = s2.View(func(g *graph.Store) {
			if b, err := g.Block(b.ID); err == nil {
				got = b.Title
			}
		})
		return got == title
	}, 2*time.Second, 10*time.Millisecond)

	// the first process does not apply its own operations twice
	require.NoError(t, s1.View(func(g *graph.Store) {
		assert.Len(t, g.Blocks(), 1)
		assert.Empty(t, g.Conflicts())
	}))
}

func TestSession_Presence(t *testing.T) {
	ctx := context.TODO()
	r := relay.NewLocal()
	first := newService(t, r, nil)
	second := newService(t, r, nil)
	id := newWorkspace(t, first)

	s1, err := first.Open(ctx, id)
	require.NoError(t, err)
	s2, err := second.Open(ctx, id)
	require.NoError(t, err)

	cursor := model.Position{X: 10, Y: 20}
	require.NoError(t, s1.UpdatePresence(ctx, alice, relay.Presence{Cursor: &cursor, Selection: []string{"b1"}}))

	assert.Eventually(t, func() bool { return len(s2.Peers()) == 1 }, 2*time.Second, 10*time.Millisecond)
	peer := s2.Peers()[0]
	assert.Equal(t, "alice", peer.ActorID)
	assert.Equal(t, cursor, *peer.Cursor)
	assert.Len(t, s1.Peers(), 1)

	require.NoError(t, s1.UpdatePresence(ctx, alice, relay.Presence{Leaving: true}))
	assert.Eventually(t, func() bool { return len(s2.Peers()) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestWorkspaceService_Update(t *testing.T) {
	ctx := context.TODO()
	svc := newService(t, nil, cache.NewRedisWorkspaceCache(tester.Redis(t), compress.NewNop()))
	id := newWorkspace(t, svc)

	sess, err := svc.Open(ctx, id)
	require.NoError(t, err)
	_, err = sess.AddBlock(ctx, alice, &AddBlockRequest{Type: model.BlockTypeCampaign, Title: "Spring"})
	require.NoError(t, err)

	err = svc.Update(ctx, id, func(g *graph.Store) (bool, error) {
		_, err := g.CreateSnapshot("nightly")
		return true, err
	})
	require.NoError(t, err)

	state, err := svc.store.LoadState(ctx, id)
	require.NoError(t, err)
	require.Len(t, state.Snapshots, 1)
	assert.Equal(t, "nightly", state.Snapshots[0].Label)

	// a write evicts the cached state and the next load fills it again
	cached, err := svc.cache.GetState(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, cached)

	_, err = svc.loadState(ctx, id)
	require.NoError(t, err)
	cached, err = svc.cache.GetState(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Len(t, cached.Snapshots, 1)
}

func TestSession_UndoAcrossProcesses(t *testing.T) {
	ctx := context.TODO()
	r := relay.NewLocal()
	first := newService(t, r, nil)
	second := newService(t, r, nil)
	id := newWorkspace(t, first)

	s1, err := first.Open(ctx, id)
	require.NoError(t, err)
	s2, err := second.Open(ctx, id)
	require.NoError(t, err)

	titleIn := func(s *Session, blockID string) string {
		var title string
		_ = s.View(func(g *graph.Store) {
			if b, err := g.Block(blockID); err == nil {
				title = b.Title
			}
		})
		return title
	}

	b, err := s1.AddBlock(ctx, alice, &AddBlockRequest{ID: id + "-b1", Type: model.BlockTypeFeature, Title: "Exports"})
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return titleIn(s2, b.ID) == "Exports" }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, s1.Do(ctx, alice, func(g *graph.Store) error {
		_, err := g.Undo()
		return err
	}))
	assert.Eventually(t, func() bool { return titleIn(s2, b.ID) == "" }, 2*time.Second, 10*time.Millisecond)

	// a later write in the second process does not bring the undone block back
	c, err := s2.AddBlock(ctx, bob, &AddBlockRequest{ID: id + "-b2", Type: model.BlockTypeFeature, Title: "Imports"})
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return titleIn(s1, c.ID) == "Imports" }, 2*time.Second, 10*time.Millisecond)

	third := newService(t, nil, nil)
	s3, err := third.Open(ctx, id)
	require.NoError(t, err)
	require.NoError(t, s3.View(func(g *graph.Store) {
		blocks := g.Blocks()
		require.Len(t, blocks, 1)
		assert.Equal(t, c.ID, blocks[0].ID)
	}))
}

func TestSession_Watch(t *testing.T) {
	ctx := context.TODO()
	r := relay.NewLocal()
	first := newService(t, r, nil)
	second := newService(t, r, nil)
	id := newWorkspace(t, first)

	s1, err := first.Open(ctx, id)
	require.NoError(t, err)
	s2, err := second.Open(ctx, id)
	require.NoError(t, err)

	events, stop, err := s2.Watch()
	require.NoError(t, err)
	defer stop()

	next := func() Event {
		select {
		case e := <-events:
			return e
		case <-time.After(2 * time.Second):
			t.Fatal("no event")
			return Event{}
		}
	}

	b, err := s1.AddBlock(ctx, alice, &AddBlockRequest{ID: id + "-b1", Type: model.BlockTypeMessage, Title: "Hi"})
	require.NoError(t, err)
	e := next()
	assert.Equal(t, EventOperation, e.Kind)
	assert.True(t, e.Remote)
	require.NotNil(t, e.Operation)
	assert.Equal(t, b.ID, e.Operation.BlockID)

	cursor := model.Position{X: 1, Y: 2}
	require.NoError(t, s1.UpdatePresence(ctx, alice, relay.Presence{Cursor: &cursor}))
	e = next()
	assert.Equal(t, EventPresence, e.Kind)
	require.NotNil(t, e.Peer)
	assert.Equal(t, "alice", e.Peer.ActorID)

	title := "Hello"
	_, err = s2.UpdateBlock(ctx, bob, b.ID, &UpdateBlockRequest{Title: &title})
	require.NoError(t, err)
	e = next()
	assert.Equal(t, EventOperation, e.Kind)
	assert.False(t, e.Remote)

	// closing the session closes the channel
	s2.Close()
	for range events {
	}
}
