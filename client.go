package canvas

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/emrgen/canvas/internal/conflict"
	"github.com/emrgen/canvas/internal/graph"
	"github.com/emrgen/canvas/internal/model"
	"github.com/emrgen/canvas/internal/review"
	"github.com/emrgen/canvas/internal/revision"
	"github.com/emrgen/canvas/internal/service"
	"github.com/emrgen/canvas/internal/snapshot"
)

// APIError is returned for every non 2xx response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Message)
}

// History is the undo state of a workspace.
type History struct {
	Entries []string `json:"entries"`
	CanUndo bool     `json:"canUndo"`
	CanRedo bool     `json:"canRedo"`
	Undone  string   `json:"undone,omitempty"`
	Redone  string   `json:"redone,omitempty"`
}

// BlockQuery filters ListBlocks. Empty fields match everything.
type BlockQuery struct {
	Types    []string
	Statuses []string
	Tags     []string
	Query    string
}

// Client talks to a canvas server as a single actor.
type Client struct {
	baseURL   string
	actorID   string
	actorName string
	http      *http.Client
}

// NewClient creates a client for the server at addr, e.g. "localhost:4020".
func NewClient(addr, actorID, actorName string) *Client {
	if !strings.HasPrefix(addr, "http://") && !strings.HasPrefix(addr, "https://") {
		addr = "http://" + addr
	}
	return &Client{
		baseURL:   strings.TrimSuffix(addr, "/") + "/v1",
		actorID:   actorID,
		actorName: actorName,
		http:      &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.actorID != "" {
		req.Header.Set("X-Actor-Id", c.actorID)
		req.Header.Set("X-Actor-Name", c.actorName)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusBadRequest {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(res.Body).Decode(&e)
		return &APIError{StatusCode: res.StatusCode, Message: e.Error}
	}
	if out == nil || res.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(res.Body).Decode(out)
}

func workspacePath(ws string, parts ...string) string {
	path := "/workspaces/" + url.PathEscape(ws)
	for _, p := range parts {
		path += "/" + url.PathEscape(p)
	}
	return path
}

func (c *Client) CreateWorkspace(ctx context.Context, req *service.CreateWorkspaceRequest) (*model.Workspace, error) {
	var ws model.Workspace
	if err := c.do(ctx, http.MethodPost, "/workspaces", req, &ws); err != nil {
		return nil, err
	}
	return &ws, nil
}

func (c *Client) ListWorkspaces(ctx context.Context) ([]*model.Workspace, error) {
	var workspaces []*model.Workspace
	err := c.do(ctx, http.MethodGet, "/workspaces", nil, &workspaces)
	return workspaces, err
}

func (c *Client) DeleteWorkspace(ctx context.Context, ws string) error {
	return c.do(ctx, http.MethodDelete, workspacePath(ws), nil, nil)
}

func (c *Client) AddBlock(ctx context.Context, ws string, req *service.AddBlockRequest) (*model.Block, error) {
	var b model.Block
	if err := c.do(ctx, http.MethodPost, workspacePath(ws, "blocks"), req, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (c *Client) GetBlock(ctx context.Context, ws, id string) (*model.Block, error) {
	var b model.Block
	if err := c.do(ctx, http.MethodGet, workspacePath(ws, "blocks", id), nil, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (c *Client) ListBlocks(ctx context.Context, ws string, q BlockQuery) ([]*model.Block, error) {
	values := url.Values{}
	for _, t := range q.Types {
		values.Add("type", t)
	}
	for _, s := range q.Statuses {
		values.Add("status", s)
	}
	for _, t := range q.Tags {
		values.Add("tag", t)
	}
	if q.Query != "" {
		values.Set("q", q.Query)
	}

	path := workspacePath(ws, "blocks")
	if len(values) > 0 {
		path += "?" + values.Encode()
	}

	var blocks []*model.Block
	err := c.do(ctx, http.MethodGet, path, nil, &blocks)
	return blocks, err
}

func (c *Client) UpdateBlock(ctx context.Context, ws, id string, req *service.UpdateBlockRequest) (*model.Block, error) {
	var b model.Block
	if err := c.do(ctx, http.MethodPatch, workspacePath(ws, "blocks", id), req, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (c *Client) RemoveBlock(ctx context.Context, ws, id string) error {
	return c.do(ctx, http.MethodDelete, workspacePath(ws, "blocks", id), nil, nil)
}

func (c *Client) Transitions(ctx context.Context, ws, id string) ([]model.Status, error) {
	var statuses []model.Status
	err := c.do(ctx, http.MethodGet, workspacePath(ws, "blocks", id, "transitions"), nil, &statuses)
	return statuses, err
}

// SetStatus moves blocks to a status and returns how many changed.
func (c *Client) SetStatus(ctx context.Context, ws string, req *service.StatusRequest) (int, error) {
	var res struct {
		Changed int `json:"changed"`
	}
	err := c.do(ctx, http.MethodPost, workspacePath(ws, "blocks", "status"), req, &res)
	return res.Changed, err
}

func (c *Client) Publish(ctx context.Context, ws, id string) (*model.Block, error) {
	var b model.Block
	if err := c.do(ctx, http.MethodPost, workspacePath(ws, "blocks", id, "publish"), nil, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (c *Client) Usage(ctx context.Context, ws, id string) (*graph.Usage, error) {
	var u graph.Usage
	if err := c.do(ctx, http.MethodGet, workspacePath(ws, "blocks", id, "usage"), nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) AddComment(ctx context.Context, ws, blockID string, req *service.CommentRequest) (*model.Comment, error) {
	var cm model.Comment
	if err := c.do(ctx, http.MethodPost, workspacePath(ws, "blocks", blockID, "comments"), req, &cm); err != nil {
		return nil, err
	}
	return &cm, nil
}

func (c *Client) AddRelationship(ctx context.Context, ws string, req *service.AddRelationshipRequest) (*model.Relationship, error) {
	var r model.Relationship
	if err := c.do(ctx, http.MethodPost, workspacePath(ws, "relationships"), req, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *Client) ListRelationships(ctx context.Context, ws string) ([]*model.Relationship, error) {
	var rels []*model.Relationship
	err := c.do(ctx, http.MethodGet, workspacePath(ws, "relationships"), nil, &rels)
	return rels, err
}

func (c *Client) RemoveRelationship(ctx context.Context, ws, id string) error {
	return c.do(ctx, http.MethodDelete, workspacePath(ws, "relationships", id), nil, nil)
}

func (c *Client) CreateRevision(ctx context.Context, ws, blockID, comment string) (*revision.Revision, error) {
	var rev revision.Revision
	body := map[string]string{"comment": comment}
	if err := c.do(ctx, http.MethodPost, workspacePath(ws, "blocks", blockID, "revisions"), body, &rev); err != nil {
		return nil, err
	}
	return &rev, nil
}

func (c *Client) ListRevisions(ctx context.Context, ws, blockID string) ([]*revision.Revision, error) {
	var revs []*revision.Revision
	err := c.do(ctx, http.MethodGet, workspacePath(ws, "blocks", blockID, "revisions"), nil, &revs)
	return revs, err
}

func (c *Client) RestoreRevision(ctx context.Context, ws, id string) (*model.Block, error) {
	var b model.Block
	if err := c.do(ctx, http.MethodPost, workspacePath(ws, "revisions", id, "restore"), nil, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (c *Client) RequestReview(ctx context.Context, ws string, req *service.RequestReviewRequest) (*review.Request, error) {
	var r review.Request
	if err := c.do(ctx, http.MethodPost, workspacePath(ws, "reviews"), req, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *Client) StartReview(ctx context.Context, ws, id string) (*review.Request, error) {
	var r review.Request
	if err := c.do(ctx, http.MethodPost, workspacePath(ws, "reviews", id, "start"), nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *Client) CompleteReview(ctx context.Context, ws, id string, req *service.CompleteReviewRequest) (*review.Request, error) {
	var r review.Request
	if err := c.do(ctx, http.MethodPost, workspacePath(ws, "reviews", id, "complete"), req, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *Client) CancelReview(ctx context.Context, ws, id string) (*review.Request, error) {
	var r review.Request
	if err := c.do(ctx, http.MethodPost, workspacePath(ws, "reviews", id, "cancel"), nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *Client) ListReviews(ctx context.Context, ws string) ([]*review.Request, error) {
	var reqs []*review.Request
	err := c.do(ctx, http.MethodGet, workspacePath(ws, "reviews"), nil, &reqs)
	return reqs, err
}

func (c *Client) CreateSnapshot(ctx context.Context, ws, label string) (*snapshot.Snapshot, error) {
	var snap snapshot.Snapshot
	if err := c.do(ctx, http.MethodPost, workspacePath(ws, "snapshots"), &service.SnapshotRequest{Label: label}, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (c *Client) ListSnapshots(ctx context.Context, ws string) ([]*snapshot.Snapshot, error) {
	var snaps []*snapshot.Snapshot
	err := c.do(ctx, http.MethodGet, workspacePath(ws, "snapshots"), nil, &snaps)
	return snaps, err
}

func (c *Client) CompareSnapshots(ctx context.Context, ws, from, to string) (*snapshot.Comparison, error) {
	var cmp snapshot.Comparison
	path := workspacePath(ws, "snapshots", "compare") + "?" + url.Values{"from": {from}, "to": {to}}.Encode()
	if err := c.do(ctx, http.MethodGet, path, nil, &cmp); err != nil {
		return nil, err
	}
	return &cmp, nil
}

func (c *Client) PreviewSnapshotRestore(ctx context.Context, ws, id string) (*snapshot.Comparison, error) {
	var cmp snapshot.Comparison
	if err := c.do(ctx, http.MethodGet, workspacePath(ws, "snapshots", id, "preview"), nil, &cmp); err != nil {
		return nil, err
	}
	return &cmp, nil
}

func (c *Client) RestoreSnapshot(ctx context.Context, ws, id string) (*snapshot.Comparison, error) {
	var cmp snapshot.Comparison
	if err := c.do(ctx, http.MethodPost, workspacePath(ws, "snapshots", id, "restore"), nil, &cmp); err != nil {
		return nil, err
	}
	return &cmp, nil
}

func (c *Client) Conflicts(ctx context.Context, ws string) ([]*conflict.Conflict, error) {
	var out []*conflict.Conflict
	err := c.do(ctx, http.MethodGet, workspacePath(ws, "conflicts"), nil, &out)
	return out, err
}

func (c *Client) ResolveConflict(ctx context.Context, ws, id string, req *service.ResolveConflictRequest) (*conflict.Conflict, error) {
	var out conflict.Conflict
	if err := c.do(ctx, http.MethodPost, workspacePath(ws, "conflicts", id, "resolve"), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) History(ctx context.Context, ws string) (*History, error) {
	var h History
	if err := c.do(ctx, http.MethodGet, workspacePath(ws, "history"), nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

func (c *Client) Undo(ctx context.Context, ws string) (*History, error) {
	var h History
	if err := c.do(ctx, http.MethodPost, workspacePath(ws, "undo"), nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

func (c *Client) Redo(ctx context.Context, ws string) (*History, error) {
	var h History
	if err := c.do(ctx, http.MethodPost, workspacePath(ws, "redo"), nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

func (c *Client) Governance(ctx context.Context, ws string) ([]graph.Recommendation, error) {
	var recs []graph.Recommendation
	err := c.do(ctx, http.MethodGet, workspacePath(ws, "governance"), nil, &recs)
	return recs, err
}
