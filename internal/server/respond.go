package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/emrgen/canvas/internal/conflict"
	"github.com/emrgen/canvas/internal/graph"
	"github.com/emrgen/canvas/internal/model"
	"github.com/emrgen/canvas/internal/review"
	"github.com/emrgen/canvas/internal/revision"
	"github.com/emrgen/canvas/internal/service"
	"github.com/emrgen/canvas/internal/store"
	"github.com/sirupsen/logrus"
)

type errorResponse struct {
	Error string `json:"error"`
}

type transitionResponse struct {
	Error   string       `json:"error"`
	BlockID string       `json:"blockId"`
	From    model.Status `json:"from"`
	To      model.Status `json:"to"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logrus.Errorf("failed to write response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}

// respondErr maps an error to its http status.
func respondErr(w http.ResponseWriter, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		logrus.Errorf("request failed: %v", err)
	}
	var terr *graph.TransitionError
	if errors.As(err, &terr) {
		respondJSON(w, status, transitionResponse{Error: err.Error(), BlockID: terr.BlockID, From: terr.From, To: terr.To})
		return
	}
	respondError(w, status, err.Error())
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, model.ErrInvalidBlockType),
		errors.Is(err, model.ErrInvalidFieldValue),
		errors.Is(err, model.ErrUnknownField),
		errors.Is(err, graph.ErrInvalidRelationship),
		errors.Is(err, graph.ErrInvalidStatus),
		errors.Is(err, graph.ErrEmptyComment),
		errors.Is(err, review.ErrNoBlocks),
		errors.Is(err, conflict.ErrUnknownStrategy),
		errors.Is(err, conflict.ErrInvalidSide),
		errors.Is(err, conflict.ErrMergeValue):
		return http.StatusBadRequest
	case errors.Is(err, graph.ErrNotFound),
		errors.Is(err, store.ErrWorkspaceNotFound),
		errors.Is(err, store.ErrStoreNotFound):
		return http.StatusNotFound
	case errors.Is(err, graph.ErrInvalidTransition),
		errors.Is(err, graph.ErrNotApproved),
		errors.Is(err, graph.ErrDuplicate),
		errors.Is(err, graph.ErrNothingToUndo),
		errors.Is(err, graph.ErrNothingToRedo),
		errors.Is(err, revision.ErrNotPublished),
		errors.Is(err, review.ErrClosed),
		errors.Is(err, conflict.ErrResolved):
		return http.StatusConflict
	case errors.Is(err, service.ErrSessionClosed):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// decode reads a JSON request body into v. An empty body leaves v untouched.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request payload: "+err.Error())
		return false
	}
	return true
}
