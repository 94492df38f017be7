package conflict

import (
	"time"

	"github.com/google/uuid"
)

// Strategy selects how a conflict is resolved without a human.
type Strategy string

const (
	StrategyLastWriteWins  Strategy = "last-write-wins"
	StrategyFirstWriteWins Strategy = "first-write-wins"
	StrategyServerWins     Strategy = "server-wins"
)

// Side names the winner of a resolved conflict.
type Side string

const (
	SideLocal  Side = "local"
	SideRemote Side = "remote"
	SideMerged Side = "merged"
)

// MergeMarker separates the two sides when both changed a text value.
const MergeMarker = "\n\n<<<<<<< concurrent edit >>>>>>>\n\n"

// Conflict is a detected divergence between two edits of the same field.
type Conflict struct {
	ID              string     `json:"id"`
	BlockID         string     `json:"blockId"`
	Field           string     `json:"field"`
	BaseValue       any        `json:"baseValue,omitempty"`
	LocalValue      any        `json:"localValue"`
	RemoteValue     any        `json:"remoteValue"`
	LocalUserID     string     `json:"localUserId"`
	RemoteUserID    string     `json:"remoteUserId"`
	LocalTimestamp  int64      `json:"localTimestamp"`
	RemoteTimestamp int64      `json:"remoteTimestamp"`
	DetectedAt      time.Time  `json:"detectedAt"`
	Resolved        bool       `json:"resolved"`
	Resolution      Side       `json:"resolution,omitempty"`
	ResolvedValue   any        `json:"resolvedValue,omitempty"`
	ResolvedAt      *time.Time `json:"resolvedAt,omitempty"`
}

// Resolution is the outcome of an automatic resolution.
type Resolution struct {
	Side  Side
	Value any
}

// DetectConflict compares a local and a remote edit of the same block field.
// It returns nil when the edits touch different fields or write the same
// value, whatever their timestamps.
func DetectConflict(local, remote Operation) *Conflict {
	if local.BlockID != remote.BlockID {
		return nil
	}
	if !local.writesField() || !remote.writesField() {
		return nil
	}
	field := local.TargetField()
	if field != remote.TargetField() {
		return nil
	}
	if SameValue(local.Value(), remote.Value()) {
		return nil
	}

	return &Conflict{
		ID:              uuid.New().String(),
		BlockID:         local.BlockID,
		Field:           field,
		BaseValue:       local.OldValue,
		LocalValue:      local.Value(),
		RemoteValue:     remote.Value(),
		LocalUserID:     local.UserID,
		RemoteUserID:    remote.UserID,
		LocalTimestamp:  local.Timestamp,
		RemoteTimestamp: remote.Timestamp,
		DetectedAt:      time.Now(),
	}
}

// AutoResolve picks a winner by strategy. Equal timestamps go to the remote
// side for both timestamp strategies.
func AutoResolve(c *Conflict, strategy Strategy) (Resolution, error) {
	remote := Resolution{Side: SideRemote, Value: c.RemoteValue}
	local := Resolution{Side: SideLocal, Value: c.LocalValue}

	switch strategy {
	case StrategyLastWriteWins:
		if c.LocalTimestamp > c.RemoteTimestamp {
			return local, nil
		}
		return remote, nil
	case StrategyFirstWriteWins:
		if c.LocalTimestamp < c.RemoteTimestamp {
			return local, nil
		}
		return remote, nil
	case StrategyServerWins:
		return remote, nil
	}
	return Resolution{}, ErrUnknownStrategy
}

// MergeTextValues merges two concurrent edits of a text field against their
// common base. When only one side changed, that side wins verbatim. When both
// changed, the values are concatenated around MergeMarker; no character-level
// merge is attempted.
func MergeTextValues(base, local, remote string) string {
	switch {
	case local == remote:
		return local
	case local == base:
		return remote
	case remote == base:
		return local
	}
	return local + MergeMarker + remote
}

// MergedValue merges the two sides of a text conflict against the value the
// local edit replaced.
func (c *Conflict) MergedValue() (string, error) {
	local, ok := c.LocalValue.(string)
	if !ok {
		return "", ErrMergeValue
	}
	remote, ok := c.RemoteValue.(string)
	if !ok {
		return "", ErrMergeValue
	}
	var base string
	if c.BaseValue != nil {
		if base, ok = c.BaseValue.(string); !ok {
			return "", ErrMergeValue
		}
	}
	return MergeTextValues(base, local, remote), nil
}

// TransformOperation rebases a pending local edit onto a remote edit of the
// same field that was applied first, so the local edit's old value reflects
// the state it will actually overwrite.
func TransformOperation(local, remote Operation) Operation {
	if local.BlockID != remote.BlockID || !local.writesField() || !remote.writesField() {
		return local
	}
	if local.TargetField() != remote.TargetField() {
		return local
	}
	local.OldValue = remote.Value()
	return local
}

func (c *Conflict) clone() *Conflict {
	clone := *c
	if c.ResolvedAt != nil {
		t := *c.ResolvedAt
		clone.ResolvedAt = &t
	}
	return &clone
}
