package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/emrgen/canvas/internal/conflict"
	"github.com/emrgen/canvas/internal/graph"
	"github.com/emrgen/canvas/internal/lifecycle"
	"github.com/emrgen/canvas/internal/model"
	"github.com/emrgen/canvas/internal/review"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	maxTitleLength   = 200
	maxCommentLength = 10000
)

func invalid(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrValidation, err)
}

func validBlockType(v any) error {
	v, _ = validation.Indirect(v)
	t, _ := v.(model.BlockType)
	if t != "" && !t.Valid() {
		return errors.New("unknown block type")
	}
	return nil
}

func validStatus(v any) error {
	v, _ = validation.Indirect(v)
	s, _ := v.(model.Status)
	if s != "" && !lifecycle.Known(s) {
		return errors.New("unknown status")
	}
	return nil
}

func validRelationshipType(v any) error {
	v, _ = validation.Indirect(v)
	t, _ := v.(model.RelationshipType)
	if t != "" && !t.Valid() {
		return errors.New("unknown relationship type")
	}
	return nil
}

type CreateWorkspaceRequest struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

func (r *CreateWorkspaceRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.ID, validation.Length(0, 64)),
		validation.Field(&r.Name, validation.Required, validation.Length(1, maxTitleLength)),
	)
}

type AddBlockRequest struct {
	ID          string          `json:"id,omitempty"`
	Type        model.BlockType `json:"type"`
	Company     string          `json:"company,omitempty"`
	Status      model.Status    `json:"status,omitempty"`
	Title       string          `json:"title"`
	Subtitle    string          `json:"subtitle,omitempty"`
	Content     string          `json:"content,omitempty"`
	Tags        []string        `json:"tags,omitempty"`
	Position    model.Position  `json:"position"`
	Size        model.Size      `json:"size"`
	ExternalURL string          `json:"externalUrl,omitempty"`
	ParentID    string          `json:"parentId,omitempty"`
	OwnerID     string          `json:"ownerId,omitempty"`
}

func (r *AddBlockRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Type, validation.Required, validation.By(validBlockType)),
		validation.Field(&r.Status, validation.In(model.StatusDraft, model.StatusVision)),
		validation.Field(&r.Title, validation.Required, validation.Length(1, maxTitleLength)),
		validation.Field(&r.Tags, validation.Each(validation.Required)),
	)
}

func (r *AddBlockRequest) block() graph.NewBlock {
	return graph.NewBlock{
		ID:          r.ID,
		Type:        r.Type,
		Company:     r.Company,
		Status:      r.Status,
		Title:       r.Title,
		Subtitle:    r.Subtitle,
		Content:     r.Content,
		Tags:        r.Tags,
		Position:    r.Position,
		Size:        r.Size,
		ExternalURL: r.ExternalURL,
		ParentID:    r.ParentID,
		OwnerID:     r.OwnerID,
	}
}

// UpdateBlockRequest changes the fields that are set.
type UpdateBlockRequest struct {
	Type        *model.BlockType `json:"type,omitempty"`
	Company     *string          `json:"company,omitempty"`
	Title       *string          `json:"title,omitempty"`
	Subtitle    *string          `json:"subtitle,omitempty"`
	Content     *string          `json:"content,omitempty"`
	Tags        *[]string        `json:"tags,omitempty"`
	Position    *model.Position  `json:"position,omitempty"`
	Size        *model.Size      `json:"size,omitempty"`
	ExternalURL *string          `json:"externalUrl,omitempty"`
	ParentID    *string          `json:"parentId,omitempty"`
	OwnerID     *string          `json:"ownerId,omitempty"`
}

func (r *UpdateBlockRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Type, validation.By(validBlockType)),
		validation.Field(&r.Title, validation.NilOrNotEmpty, validation.Length(1, maxTitleLength)),
	)
}

func (r *UpdateBlockRequest) patch() graph.BlockPatch {
	return graph.BlockPatch{
		Type:        r.Type,
		Company:     r.Company,
		Title:       r.Title,
		Subtitle:    r.Subtitle,
		Content:     r.Content,
		Tags:        r.Tags,
		Position:    r.Position,
		Size:        r.Size,
		ExternalURL: r.ExternalURL,
		ParentID:    r.ParentID,
		OwnerID:     r.OwnerID,
	}
}

type AddRelationshipRequest struct {
	SourceID string                 `json:"sourceId"`
	TargetID string                 `json:"targetId"`
	Type     model.RelationshipType `json:"type"`
	Label    string                 `json:"label,omitempty"`
	Animated bool                   `json:"animated,omitempty"`
}

func (r *AddRelationshipRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.SourceID, validation.Required),
		validation.Field(&r.TargetID, validation.Required, validation.NotIn(r.SourceID).Error("must differ from the source")),
		validation.Field(&r.Type, validation.Required, validation.By(validRelationshipType)),
	)
}

// StatusRequest moves one or more blocks to a status.
type StatusRequest struct {
	BlockIDs []string     `json:"blockIds"`
	Status   model.Status `json:"status"`
}

func (r *StatusRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.BlockIDs, validation.Required, validation.Each(validation.Required)),
		validation.Field(&r.Status, validation.Required, validation.By(validStatus)),
	)
}

type RequestReviewRequest struct {
	BlockIDs     []string  `json:"blockIds"`
	ReviewerID   string    `json:"reviewerId"`
	ReviewerName string    `json:"reviewerName"`
	DueBy        time.Time `json:"dueBy"`
	Context      string    `json:"context,omitempty"`
}

func (r *RequestReviewRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.BlockIDs, validation.Required, validation.Each(validation.Required)),
		validation.Field(&r.ReviewerID, validation.Required),
		validation.Field(&r.DueBy, validation.Required),
	)
}

type CompleteReviewRequest struct {
	Resolution review.Resolution `json:"resolution"`
	Comment    string            `json:"comment,omitempty"`
}

func (r *CompleteReviewRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Resolution, validation.Required, validation.In(review.ResolutionApproved, review.ResolutionNeedsChanges)),
		validation.Field(&r.Comment, validation.Length(0, maxCommentLength)),
	)
}

type CommentRequest struct {
	ParentID string `json:"parentId,omitempty"`
	Content  string `json:"content"`
}

func (r *CommentRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Content, validation.Required, validation.Length(1, maxCommentLength)),
	)
}

// ResolveConflictRequest settles a conflict either by naming the winning side
// or by an automatic strategy. A merged side without a merged value takes the
// three-way merge of the text values.
type ResolveConflictRequest struct {
	Side     conflict.Side     `json:"side,omitempty"`
	Merged   any               `json:"merged,omitempty"`
	Strategy conflict.Strategy `json:"strategy,omitempty"`
}

func (r *ResolveConflictRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Side,
			validation.Required.When(r.Strategy == ""),
			validation.Empty.When(r.Strategy != "").Error("side and strategy are exclusive"),
			validation.In(conflict.SideLocal, conflict.SideRemote, conflict.SideMerged)),
		validation.Field(&r.Strategy, validation.In(conflict.StrategyLastWriteWins, conflict.StrategyFirstWriteWins, conflict.StrategyServerWins)),
		validation.Field(&r.Merged, validation.Empty.When(r.Side != conflict.SideMerged).Error("merged needs the merged side")),
	)
}

type SnapshotRequest struct {
	Label string `json:"label,omitempty"`
}

func (r *SnapshotRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Label, validation.Length(0, maxTitleLength)),
	)
}
