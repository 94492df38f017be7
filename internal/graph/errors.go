package graph

import (
	"errors"
	"fmt"

	"github.com/emrgen/canvas/internal/model"
)

var (
	// ErrNotFound is returned when a block, relationship or comment does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidTransition is matched by every TransitionError.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrNotApproved is matched by every NotApprovedError.
	ErrNotApproved = errors.New("block is not approved")
	// ErrDuplicate is returned when an id or an identical relationship already exists.
	ErrDuplicate = errors.New("already exists")
	// ErrInvalidRelationship is returned for self loops, unknown endpoints or types.
	ErrInvalidRelationship = errors.New("invalid relationship")
	// ErrInvalidStatus is returned when a block is created in a status other than draft or vision.
	ErrInvalidStatus = errors.New("invalid status for a new block")
	// ErrNothingToUndo is returned when the past stack holds only the loaded state.
	ErrNothingToUndo = errors.New("nothing to undo")
	// ErrNothingToRedo is returned when the future stack is empty.
	ErrNothingToRedo = errors.New("nothing to redo")
	// ErrEmptyComment is returned for a comment without content.
	ErrEmptyComment = errors.New("comment is empty")
)

// TransitionError reports a status change the lifecycle table does not allow.
type TransitionError struct {
	BlockID string
	From    model.Status
	To      model.Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("block %s: cannot transition from %s to %s", e.BlockID, e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// NotApprovedError reports a publish attempt on a block that is not approved.
type NotApprovedError struct {
	BlockID string
	Status  model.Status
}

func (e *NotApprovedError) Error() string {
	return fmt.Sprintf("block %s is %s, only approved blocks can be published", e.BlockID, e.Status)
}

func (e *NotApprovedError) Is(target error) bool {
	return target == ErrNotApproved
}
