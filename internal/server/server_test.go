package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/emrgen/canvas/internal/compress"
	"github.com/emrgen/canvas/internal/conflict"
	"github.com/emrgen/canvas/internal/graph"
	"github.com/emrgen/canvas/internal/model"
	"github.com/emrgen/canvas/internal/review"
	"github.com/emrgen/canvas/internal/service"
	"github.com/emrgen/canvas/internal/snapshot"
	"github.com/emrgen/canvas/internal/store"
	"github.com/emrgen/canvas/internal/tester"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	svc := service.NewWorkspaceService(store.NewGormStore(tester.TestDB(), compress.NewGZip()), nil, nil, service.Options{})
	t.Cleanup(svc.Close)
	return NewServer(svc)
}

// call sends a request as actor and decodes the response into out when out
// is not nil.
func call(t *testing.T, srv http.Handler, method, path, actor string, body, out any) int {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if actor != "" {
		req.Header.Set(actorIDHeader, actor)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if out != nil && rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec.Code
}

func createWorkspace(t *testing.T, srv http.Handler) string {
	t.Helper()
	var ws model.Workspace
	code := call(t, srv, http.MethodPost, "/v1/workspaces", "alice", service.CreateWorkspaceRequest{Name: "Launch"}, &ws)
	require.Equal(t, http.StatusCreated, code)
	return ws.ID
}

func addBlock(t *testing.T, srv http.Handler, ws string, typ model.BlockType, title string) *model.Block {
	t.Helper()
	var b model.Block
	code := call(t, srv, http.MethodPost, "/v1/workspaces/"+ws+"/blocks", "alice",
		service.AddBlockRequest{Type: typ, Title: title}, &b)
	require.Equal(t, http.StatusCreated, code)
	return &b
}

func TestServer_Health(t *testing.T) {
	srv := newTestServer(t)

	var res map[string]string
	assert.Equal(t, http.StatusOK, call(t, srv, http.MethodGet, "/health", "", nil, &res))
	assert.Equal(t, "ok", res["status"])
}

func TestServer_ActorRequired(t *testing.T) {
	srv := newTestServer(t)

	var res errorResponse
	code := call(t, srv, http.MethodPost, "/v1/workspaces", "", service.CreateWorkspaceRequest{Name: "Anonymous"}, &res)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Contains(t, res.Error, actorIDHeader)

	// reads do not need an actor
	assert.Equal(t, http.StatusOK, call(t, srv, http.MethodGet, "/v1/workspaces", "", nil, nil))
}

func TestServer_Workspaces(t *testing.T) {
	srv := newTestServer(t)
	id := createWorkspace(t, srv)

	var ws model.Workspace
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodGet, "/v1/workspaces/"+id, "", nil, &ws))
	assert.Equal(t, "Launch", ws.Name)

	var all []model.Workspace
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodGet, "/v1/workspaces", "", nil, &all))
	ids := make([]string, 0, len(all))
	for _, w := range all {
		ids = append(ids, w.ID)
	}
	assert.Contains(t, ids, id)

	assert.Equal(t, http.StatusNoContent, call(t, srv, http.MethodDelete, "/v1/workspaces/"+id, "alice", nil, nil))
	assert.Equal(t, http.StatusNotFound, call(t, srv, http.MethodGet, "/v1/workspaces/"+id, "", nil, nil))
	assert.Equal(t, http.StatusNotFound, call(t, srv, http.MethodGet, "/v1/workspaces/"+id+"/blocks", "", nil, nil))
}

func TestServer_Blocks(t *testing.T) {
	srv := newTestServer(t)
	ws := createWorkspace(t, srv)
	base := "/v1/workspaces/" + ws

	pain := addBlock(t, srv, ws, model.BlockTypePainPoint, "Slow exports")
	value := addBlock(t, srv, ws, model.BlockTypeValueProp, "Instant exports")
	assert.Equal(t, model.StatusDraft, pain.Status)

	title := "Very slow exports"
	var updated model.Block
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodPatch, base+"/blocks/"+pain.ID, "alice",
		service.UpdateBlockRequest{Title: &title}, &updated))
	assert.Equal(t, title, updated.Title)

	var moved model.Block
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodPut, base+"/blocks/"+pain.ID+"/position", "alice",
		model.Position{X: 120, Y: 80}, &moved))
	assert.Equal(t, model.Position{X: 120, Y: 80}, moved.Position)

	var filtered []model.Block
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodGet, base+"/blocks?type=pain-point", "", nil, &filtered))
	require.Len(t, filtered, 1)
	assert.Equal(t, pain.ID, filtered[0].ID)

	var rel model.Relationship
	require.Equal(t, http.StatusCreated, call(t, srv, http.MethodPost, base+"/relationships", "alice",
		service.AddRelationshipRequest{SourceID: value.ID, TargetID: pain.ID, Type: model.RelationshipSolves}, &rel))

	var rels []model.Relationship
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodGet, base+"/relationships", "", nil, &rels))
	assert.Len(t, rels, 1)

	var comment model.Comment
	require.Equal(t, http.StatusCreated, call(t, srv, http.MethodPost, base+"/blocks/"+pain.ID+"/comments", "bob",
		service.CommentRequest{Content: "Which formats?"}, &comment))
	assert.Equal(t, http.StatusNoContent, call(t, srv, http.MethodPost,
		base+"/blocks/"+pain.ID+"/comments/"+comment.ID+"/resolve", "alice", nil, nil))

	var transitions []model.Status
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodGet, base+"/blocks/"+pain.ID+"/transitions", "", nil, &transitions))
	assert.NotEmpty(t, transitions)

	var hist historyResponse
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodGet, base+"/history", "", nil, &hist))
	assert.True(t, hist.CanUndo)
	assert.False(t, hist.CanRedo)

	require.Equal(t, http.StatusNoContent, call(t, srv, http.MethodDelete, base+"/blocks/"+pain.ID, "alice", nil, nil))
	assert.Equal(t, http.StatusNotFound, call(t, srv, http.MethodGet, base+"/blocks/"+pain.ID, "", nil, nil))

	// removing a block drops its relationships
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodGet, base+"/relationships", "", nil, &rels))
	assert.Empty(t, rels)

	var undone historyResponse
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodPost, base+"/undo", "alice", nil, &undone))
	assert.NotEmpty(t, undone.Undone)
	assert.True(t, undone.CanRedo)
	assert.Equal(t, http.StatusOK, call(t, srv, http.MethodGet, base+"/blocks/"+pain.ID, "", nil, nil))

	var redone historyResponse
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodPost, base+"/redo", "alice", nil, &redone))
	assert.Equal(t, undone.Undone, redone.Redone)
}

func TestServer_ReviewAndPublish(t *testing.T) {
	srv := newTestServer(t)
	ws := createWorkspace(t, srv)
	base := "/v1/workspaces/" + ws

	b := addBlock(t, srv, ws, model.BlockTypeMessage, "Exports in seconds")

	// the lifecycle guard refuses a single draft going straight to published
	assert.Equal(t, http.StatusConflict, call(t, srv, http.MethodPost, base+"/blocks/status", "alice",
		service.StatusRequest{BlockIDs: []string{b.ID}, Status: model.StatusPublished}, nil))
	assert.Equal(t, http.StatusConflict, call(t, srv, http.MethodPost, base+"/blocks/"+b.ID+"/publish", "alice", nil, nil))

	var req review.Request
	require.Equal(t, http.StatusCreated, call(t, srv, http.MethodPost, base+"/reviews", "alice",
		service.RequestReviewRequest{BlockIDs: []string{b.ID}, ReviewerID: "bob", DueBy: time.Now().Add(time.Hour)}, &req))
	assert.Equal(t, review.StatusPending, req.Status)

	var mine []review.Request
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodGet, base+"/reviews?reviewer=bob", "", nil, &mine))
	assert.Len(t, mine, 1)

	var done review.Request
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodPost, base+"/reviews/"+req.ID+"/complete", "bob",
		service.CompleteReviewRequest{Resolution: review.ResolutionApproved}, &done))
	assert.Equal(t, review.StatusCompleted, done.Status)

	// a completed review cannot be completed again
	assert.Equal(t, http.StatusConflict, call(t, srv, http.MethodPost, base+"/reviews/"+req.ID+"/cancel", "bob", nil, nil))

	var published model.Block
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodPost, base+"/blocks/"+b.ID+"/publish", "alice", nil, &published))
	assert.Equal(t, model.StatusPublished, published.Status)
	assert.NotEmpty(t, published.PublishedVersion)

	var rev map[string]any
	require.Equal(t, http.StatusCreated, call(t, srv, http.MethodPost, base+"/blocks/"+b.ID+"/revisions", "alice",
		revisionRequest{Comment: "launch copy"}, &rev))

	var revs []map[string]any
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodGet, base+"/blocks/"+b.ID+"/revisions", "", nil, &revs))
	assert.Len(t, revs, 1)

	var recs []graph.Recommendation
	assert.Equal(t, http.StatusOK, call(t, srv, http.MethodGet, base+"/governance", "", nil, &recs))
}

func TestServer_Snapshots(t *testing.T) {
	srv := newTestServer(t)
	ws := createWorkspace(t, srv)
	base := "/v1/workspaces/" + ws

	addBlock(t, srv, ws, model.BlockTypePersona, "Ops lead")

	var first snapshot.Snapshot
	require.Equal(t, http.StatusCreated, call(t, srv, http.MethodPost, base+"/snapshots", "alice",
		service.SnapshotRequest{Label: "one block"}, &first))
	assert.Equal(t, "one block", first.Label)

	addBlock(t, srv, ws, model.BlockTypePersona, "Finance lead")

	var second snapshot.Snapshot
	require.Equal(t, http.StatusCreated, call(t, srv, http.MethodPost, base+"/snapshots", "alice", nil, &second))

	var snaps []snapshot.Snapshot
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodGet, base+"/snapshots", "", nil, &snaps))
	assert.Len(t, snaps, 2)

	assert.Equal(t, http.StatusOK, call(t, srv, http.MethodGet, base+"/snapshots/"+first.ID, "", nil, nil))
	assert.Equal(t, http.StatusOK, call(t, srv, http.MethodGet,
		fmt.Sprintf("%s/snapshots/compare?from=%s&to=%s", base, first.ID, second.ID), "", nil, nil))
	assert.Equal(t, http.StatusOK, call(t, srv, http.MethodGet, base+"/snapshots/"+first.ID+"/preview", "", nil, nil))
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodPost, base+"/snapshots/"+first.ID+"/restore", "alice", nil, nil))

	var blocks []model.Block
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodGet, base+"/blocks", "", nil, &blocks))
	require.Len(t, blocks, 1)
	assert.Equal(t, "Ops lead", blocks[0].Title)

	assert.Equal(t, http.StatusNotFound, call(t, srv, http.MethodGet, base+"/snapshots/missing", "", nil, nil))
}

func TestServer_Presence(t *testing.T) {
	srv := newTestServer(t)
	ws := createWorkspace(t, srv)
	base := "/v1/workspaces/" + ws

	cursor := model.Position{X: 1, Y: 2}
	require.Equal(t, http.StatusNoContent, call(t, srv, http.MethodPut, base+"/presence", "alice",
		map[string]any{"cursor": cursor}, nil))

	var peers []service.Peer
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodGet, base+"/presence", "", nil, &peers))
	require.Len(t, peers, 1)
	assert.Equal(t, "alice", peers[0].ActorID)
	assert.Equal(t, cursor, *peers[0].Cursor)
}

func TestServer_Operations(t *testing.T) {
	srv := newTestServer(t)
	ws := createWorkspace(t, srv)
	b := addBlock(t, srv, ws, model.BlockTypeFeature, "Exports")

	var ops []conflict.Operation
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodGet, "/v1/workspaces/"+ws+"/operations", "", nil, &ops))
	require.NotEmpty(t, ops)
	last := ops[len(ops)-1]
	assert.Equal(t, conflict.ActionCreate, last.Action)
	assert.Equal(t, b.ID, last.BlockID)
	assert.Equal(t, "alice", last.UserID)
}

func TestServer_Events(t *testing.T) {
	srv := newTestServer(t)
	ws := createWorkspace(t, srv)
	hs := httptest.NewServer(srv)
	defer hs.Close()

	url := "ws" + strings.TrimPrefix(hs.URL, "http") + "/v1/workspaces/" + ws + "/events"
	conn, res, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, http.StatusSwitchingProtocols, res.StatusCode)

	b := addBlock(t, srv, ws, model.BlockTypeMessage, "Hello")

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var e service.Event
	require.NoError(t, conn.ReadJSON(&e))
	assert.Equal(t, service.EventOperation, e.Kind)
	require.NotNil(t, e.Operation)
	assert.Equal(t, conflict.ActionCreate, e.Operation.Action)
	assert.Equal(t, b.ID, e.Operation.BlockID)

	cursor := model.Position{X: 3, Y: 4}
	require.Equal(t, http.StatusNoContent, call(t, srv, http.MethodPut, "/v1/workspaces/"+ws+"/presence", "bob",
		map[string]any{"cursor": cursor}, nil))
	require.NoError(t, conn.ReadJSON(&e))
	assert.Equal(t, service.EventPresence, e.Kind)
	require.NotNil(t, e.Peer)
	assert.Equal(t, "bob", e.Peer.ActorID)
}

func TestServer_EventsUnknownWorkspace(t *testing.T) {
	hs := httptest.NewServer(newTestServer(t))
	defer hs.Close()

	url := "ws" + strings.TrimPrefix(hs.URL, "http") + "/v1/workspaces/missing/events"
	_, res, err := websocket.DefaultDialer.Dial(url, nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestServer_TransitionRefused(t *testing.T) {
	srv := newTestServer(t)
	ws := createWorkspace(t, srv)
	b := addBlock(t, srv, ws, model.BlockTypeFAQ, "Refunds")

	var res transitionResponse
	code := call(t, srv, http.MethodPost, "/v1/workspaces/"+ws+"/blocks/status", "alice",
		service.StatusRequest{BlockIDs: []string{b.ID}, Status: model.StatusPublished}, &res)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, b.ID, res.BlockID)
	assert.Equal(t, model.StatusDraft, res.From)
	assert.Equal(t, model.StatusPublished, res.To)
	assert.NotEmpty(t, res.Error)
}

func TestServer_BadRequests(t *testing.T) {
	srv := newTestServer(t)
	ws := createWorkspace(t, srv)
	base := "/v1/workspaces/" + ws

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{name: "malformed body", method: http.MethodPost, path: base + "/blocks", body: "{", want: http.StatusBadRequest},
		{name: "missing title", method: http.MethodPost, path: base + "/blocks",
			body: service.AddBlockRequest{Type: model.BlockTypeProduct}, want: http.StatusBadRequest},
		{name: "unknown block type", method: http.MethodPost, path: base + "/blocks",
			body: service.AddBlockRequest{Type: "slogan", Title: "Hi"}, want: http.StatusBadRequest},
		{name: "unknown block", method: http.MethodGet, path: base + "/blocks/missing", want: http.StatusNotFound},
		{name: "unknown workspace", method: http.MethodGet, path: "/v1/workspaces/missing/blocks", want: http.StatusNotFound},
		{name: "nothing to undo", method: http.MethodPost, path: base + "/undo", want: http.StatusConflict},
		{name: "unknown conflict", method: http.MethodPost, path: base + "/conflicts/missing/resolve",
			body: service.ResolveConflictRequest{Side: "local"}, want: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var res errorResponse
			assert.Equal(t, tt.want, call(t, srv, tt.method, tt.path, "alice", tt.body, &res))
			assert.NotEmpty(t, res.Error)
		})
	}
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{err: service.ErrValidation, want: http.StatusBadRequest},
		{err: fmt.Errorf("block b1: %w", graph.ErrNotFound), want: http.StatusNotFound},
		{err: store.ErrWorkspaceNotFound, want: http.StatusNotFound},
		{err: graph.ErrInvalidTransition, want: http.StatusConflict},
		{err: &graph.TransitionError{BlockID: "b1", From: model.StatusDraft, To: model.StatusPublished}, want: http.StatusConflict},
		{err: conflict.ErrMergeValue, want: http.StatusBadRequest},
		{err: service.ErrSessionClosed, want: http.StatusServiceUnavailable},
		{err: errors.New("disk full"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusOf(tt.err))
		})
	}
}
