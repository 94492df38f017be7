package review

import (
	"slices"
	"sort"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/emrgen/canvas/internal/lifecycle"
	"github.com/emrgen/canvas/internal/model"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusInReview  Status = "in-review"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

type Resolution string

const (
	ResolutionApproved     Resolution = "approved"
	ResolutionNeedsChanges Resolution = "needs-changes"
)

// Request is a review envelope over one or more blocks.
type Request struct {
	ID                string     `json:"id"`
	WorkspaceID       string     `json:"workspaceId"`
	BlockIDs          []string   `json:"blockIds"`
	RequesterID       string     `json:"requesterId"`
	RequesterName     string     `json:"requesterName"`
	ReviewerID        string     `json:"reviewerId"`
	ReviewerName      string     `json:"reviewerName"`
	DueBy             time.Time  `json:"dueBy"`
	Context           string     `json:"context,omitempty"`
	Status            Status     `json:"status"`
	Resolution        Resolution `json:"resolution,omitempty"`
	ResolutionComment string     `json:"resolutionComment,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	CompletedAt       *time.Time `json:"completedAt,omitempty"`
}

// Open reports whether the request still awaits a decision.
func (r *Request) Open() bool {
	return r.Status == StatusPending || r.Status == StatusInReview
}

func (r *Request) clone() *Request {
	clone := *r
	clone.BlockIDs = slices.Clone(r.BlockIDs)
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		clone.CompletedAt = &t
	}
	return &clone
}

// Workflow is the view of the block graph the tracker needs to drive status
// changes. Transition must apply the lifecycle guard.
type Workflow interface {
	BlockStatus(id string) (model.Status, bool)
	TransitionStatus(id string, to model.Status) error
}

// NewRequest is the input for Tracker.Create.
type NewRequest struct {
	WorkspaceID   string
	BlockIDs      []string
	RequesterID   string
	RequesterName string
	ReviewerID    string
	ReviewerName  string
	DueBy         time.Time
	Context       string
}

// Tracker keeps the review requests of one workspace.
type Tracker struct {
	requests map[string]*Request
	order    []string
	now      func() time.Time
}

func NewTracker(now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{
		requests: make(map[string]*Request),
		now:      now,
	}
}

// Create opens a pending request and submits every referenced draft block for
// review. Blocks already past draft are left as they are.
func (t *Tracker) Create(w Workflow, in NewRequest) (*Request, error) {
	if len(in.BlockIDs) == 0 {
		return nil, ErrNoBlocks
	}

	req := &Request{
		ID:            uuid.New().String(),
		WorkspaceID:   in.WorkspaceID,
		BlockIDs:      unique(in.BlockIDs),
		RequesterID:   in.RequesterID,
		RequesterName: in.RequesterName,
		ReviewerID:    in.ReviewerID,
		ReviewerName:  in.ReviewerName,
		DueBy:         in.DueBy,
		Context:       in.Context,
		Status:        StatusPending,
		CreatedAt:     t.now(),
	}

	for _, id := range req.BlockIDs {
		status, ok := w.BlockStatus(id)
		if !ok || status != model.StatusDraft {
			continue
		}
		if err := w.TransitionStatus(id, model.StatusPendingReview); err != nil {
			return nil, err
		}
	}

	t.requests[req.ID] = req
	t.order = append(t.order, req.ID)
	logrus.Infof("review request %s opened for %d blocks, reviewer %s", req.ID, len(req.BlockIDs), req.ReviewerID)

	return req.clone(), nil
}

// Start marks a pending request as being reviewed.
func (t *Tracker) Start(id string) (*Request, error) {
	req, ok := t.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	if req.Status != StatusPending {
		return nil, ErrClosed
	}
	req.Status = StatusInReview
	return req.clone(), nil
}

// Complete resolves the request and moves every referenced block that is
// still pending review to approved or needs-changes. Blocks resolved
// elsewhere in the meantime are skipped.
func (t *Tracker) Complete(w Workflow, id string, resolution Resolution, comment string) (*Request, error) {
	req, ok := t.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	if !req.Open() {
		return nil, ErrClosed
	}

	target := model.StatusNeedsChanges
	if resolution == ResolutionApproved {
		target = model.StatusApproved
	} else {
		resolution = ResolutionNeedsChanges
	}

	var eligible []string
	for _, blockID := range req.BlockIDs {
		status, ok := w.BlockStatus(blockID)
		if !ok || status != model.StatusPendingReview {
			continue
		}
		if !lifecycle.CanTransition(status, target) {
			continue
		}
		eligible = append(eligible, blockID)
	}

	for _, blockID := range eligible {
		if err := w.TransitionStatus(blockID, target); err != nil {
			return nil, err
		}
	}

	now := t.now()
	req.Status = StatusCompleted
	req.Resolution = resolution
	req.ResolutionComment = comment
	req.CompletedAt = &now
	logrus.Infof("review request %s completed as %s, %d blocks moved to %s", id, resolution, len(eligible), target)

	return req.clone(), nil
}

// Cancel closes the request. Block statuses are not reverted.
func (t *Tracker) Cancel(id string) (*Request, error) {
	req, ok := t.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	if !req.Open() {
		return nil, ErrClosed
	}
	req.Status = StatusCancelled
	return req.clone(), nil
}

// Get returns a request by id.
func (t *Tracker) Get(id string) (*Request, error) {
	req, ok := t.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	return req.clone(), nil
}

// PendingFor returns the open requests assigned to a reviewer.
func (t *Tracker) PendingFor(reviewerID string) []*Request {
	return t.filter(func(r *Request) bool {
		return r.ReviewerID == reviewerID && r.Open()
	})
}

// RaisedBy returns the requests raised by a requester.
func (t *Tracker) RaisedBy(requesterID string) []*Request {
	return t.filter(func(r *Request) bool {
		return r.RequesterID == requesterID
	})
}

// Overdue returns the open requests whose due date has passed, earliest first.
func (t *Tracker) Overdue(now time.Time) []*Request {
	out := t.filter(func(r *Request) bool {
		return r.Open() && !r.DueBy.IsZero() && r.DueBy.Before(now)
	})
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DueBy.Before(out[j].DueBy)
	})
	return out
}

// Referencing returns the ids of requests that reference a block.
func (t *Tracker) Referencing(blockID string) []string {
	var ids []string
	for _, id := range t.order {
		if slices.Contains(t.requests[id].BlockIDs, blockID) {
			ids = append(ids, id)
		}
	}
	return ids
}

// DetachBlock removes a deleted block from every request that references it.
func (t *Tracker) DetachBlock(blockID string) {
	for _, id := range t.order {
		req := t.requests[id]
		req.BlockIDs = slices.DeleteFunc(req.BlockIDs, func(b string) bool {
			return b == blockID
		})
	}
}

// All returns every request in creation order.
func (t *Tracker) All() []*Request {
	return t.filter(func(*Request) bool { return true })
}

// Load replaces the tracker content with persisted requests.
func (t *Tracker) Load(requests []*Request) {
	t.requests = make(map[string]*Request)
	t.order = nil
	sorted := slices.Clone(requests)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})
	for _, r := range sorted {
		t.requests[r.ID] = r.clone()
		t.order = append(t.order, r.ID)
	}
}

func (t *Tracker) filter(keep func(*Request) bool) []*Request {
	var out []*Request
	for _, id := range t.order {
		if req := t.requests[id]; keep(req) {
			out = append(out, req.clone())
		}
	}
	return out
}

func unique(ids []string) []string {
	seen := mapset.NewThreadUnsafeSetWithSize[string](len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen.Add(id) {
			out = append(out, id)
		}
	}
	return out
}
