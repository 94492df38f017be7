package conflict

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/emrgen/canvas/internal/model"
	"github.com/google/uuid"
)

type Action string

const (
	ActionUpdate Action = "update"
	ActionCreate Action = "create"
	ActionDelete Action = "delete"
	ActionMove   Action = "move"

	// ActionRelate creates or replaces the relationship in NewValue.
	ActionRelate Action = "relate"
	// ActionUnrelate removes the relationship named by Target.
	ActionUnrelate Action = "unrelate"
	// ActionComment adds the comment in NewValue, as a reply to Target when set.
	ActionComment Action = "comment"
	// ActionResolveComment resolves the comment named by Target.
	ActionResolveComment Action = "resolve-comment"
)

// Operation is one edit exchanged between actors. Timestamp is in unix
// milliseconds.
//
// A forced status operation was accepted at its origin without the lifecycle
// guard (batch changes, restores, undo and redo) and is applied the same way
// by every other actor.
type Operation struct {
	ID        string          `json:"id"`
	Action    Action          `json:"action"`
	BlockID   string          `json:"blockId"`
	UserID    string          `json:"userId"`
	Timestamp int64           `json:"timestamp"`
	Field     string          `json:"field,omitempty"`
	OldValue  any             `json:"oldValue,omitempty"`
	NewValue  any             `json:"newValue,omitempty"`
	Position  *model.Position `json:"position,omitempty"`
	Target    string          `json:"target,omitempty"`
	Forced    bool            `json:"forced,omitempty"`
}

// NewOperation stamps an operation with an id and the current time.
func NewOperation(action Action, blockID, userID string) Operation {
	return Operation{
		ID:        uuid.New().String(),
		Action:    action,
		BlockID:   blockID,
		UserID:    userID,
		Timestamp: time.Now().UnixMilli(),
	}
}

// TargetField is the block field the operation writes. Moves always write
// the position.
func (op Operation) TargetField() string {
	if op.Action == ActionMove {
		return model.FieldPosition
	}
	return op.Field
}

// Value is the value the operation writes.
func (op Operation) Value() any {
	if op.Action == ActionMove && op.Position != nil {
		return *op.Position
	}
	return op.NewValue
}

// writesField reports whether the operation is a field-level edit.
func (op Operation) writesField() bool {
	switch op.Action {
	case ActionUpdate:
		return op.Field != ""
	case ActionMove:
		return true
	}
	return false
}

// serialize renders a value for comparison. Typed values and their decoded
// JSON forms serialize identically.
func serialize(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%#v", v)
	}
	return string(data)
}

// SameValue reports whether two values serialize identically.
func SameValue(a, b any) bool {
	return serialize(a) == serialize(b)
}
