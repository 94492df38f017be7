package graph

import (
	"errors"
	"fmt"
	"time"

	"github.com/emrgen/canvas/internal/review"
)

// ReviewInput is a review request raised by the store's actor.
type ReviewInput struct {
	BlockIDs     []string
	ReviewerID   string
	ReviewerName string
	DueBy        time.Time
	Context      string
}

// RequestReview opens a review request and submits the referenced draft
// blocks. The status changes form one undoable action.
func (s *Store) RequestReview(in ReviewInput) (*review.Request, error) {
	w := &workflow{s: s}
	req, err := s.reviews.Create(w, review.NewRequest{
		WorkspaceID:   s.workspaceID,
		BlockIDs:      in.BlockIDs,
		RequesterID:   s.actor.ID,
		RequesterName: s.actor.Name,
		ReviewerID:    in.ReviewerID,
		ReviewerName:  in.ReviewerName,
		DueBy:         in.DueBy,
		Context:       in.Context,
	})
	if err != nil {
		s.rollback()
		return nil, err
	}
	if len(w.ops) > 0 {
		s.commit(fmt.Sprintf("Request review of %d blocks", len(w.ops)), w.ops...)
	}
	return req, nil
}

// StartReview marks a pending request as in review.
func (s *Store) StartReview(id string) (*review.Request, error) {
	req, err := s.reviews.Start(id)
	return req, reviewErr(err)
}

// CompleteReview closes a request with a resolution and moves the blocks
// still pending review accordingly.
func (s *Store) CompleteReview(id string, resolution review.Resolution, comment string) (*review.Request, error) {
	w := &workflow{s: s}
	req, err := s.reviews.Complete(w, id, resolution, comment)
	if err != nil {
		s.rollback()
		return nil, reviewErr(err)
	}
	if len(w.ops) > 0 {
		s.commit(fmt.Sprintf("Review %s: %s", id, req.Resolution), w.ops...)
	}
	return req, nil
}

// CancelReview closes a request without touching block statuses.
func (s *Store) CancelReview(id string) (*review.Request, error) {
	req, err := s.reviews.Cancel(id)
	return req, reviewErr(err)
}

func (s *Store) Review(id string) (*review.Request, error) {
	req, err := s.reviews.Get(id)
	return req, reviewErr(err)
}

func (s *Store) Reviews() []*review.Request {
	return s.reviews.All()
}

// ReviewsFor returns the open requests assigned to a reviewer.
func (s *Store) ReviewsFor(reviewerID string) []*review.Request {
	return s.reviews.PendingFor(reviewerID)
}

// ReviewsBy returns the requests raised by a requester.
func (s *Store) ReviewsBy(requesterID string) []*review.Request {
	return s.reviews.RaisedBy(requesterID)
}

func (s *Store) OverdueReviews() []*review.Request {
	return s.reviews.Overdue(s.now())
}

func reviewErr(err error) error {
	if errors.Is(err, review.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
