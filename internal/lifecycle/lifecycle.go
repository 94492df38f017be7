// Package lifecycle holds the table of legal block status transitions. Every
// component that changes a block's status consults it.
package lifecycle

import (
	"slices"

	"github.com/emrgen/canvas/internal/model"
)

var transitions = map[model.Status][]model.Status{
	model.StatusDraft:         {model.StatusPendingReview, model.StatusArchived},
	model.StatusPendingReview: {model.StatusApproved, model.StatusNeedsChanges},
	model.StatusNeedsChanges:  {model.StatusDraft},
	model.StatusApproved:      {model.StatusPublished, model.StatusDraft},
	model.StatusPublished:     {model.StatusArchived},
	model.StatusVision:        {model.StatusDraft},
	model.StatusArchived:      {model.StatusDraft},
}

var statuses = []model.Status{
	model.StatusVision,
	model.StatusDraft,
	model.StatusPendingReview,
	model.StatusNeedsChanges,
	model.StatusApproved,
	model.StatusPublished,
	model.StatusArchived,
}

// CanTransition reports whether a block may move from one status to another.
func CanTransition(from, to model.Status) bool {
	return slices.Contains(transitions[from], to)
}

// AvailableTransitions returns the statuses reachable from the given one.
// Unknown statuses have none.
func AvailableTransitions(from model.Status) []model.Status {
	return slices.Clone(transitions[from])
}

// Known reports whether s appears in the table.
func Known(s model.Status) bool {
	_, ok := transitions[s]
	return ok
}

// Statuses lists every status in workflow order.
func Statuses() []model.Status {
	return slices.Clone(statuses)
}

// CanRevise reports whether a block in status s may be copied into a revision.
func CanRevise(s model.Status) bool {
	return s == model.StatusPublished
}
