package model

import (
	"slices"
	"time"
)

// Status is the lifecycle state of a block.
type Status string

const (
	StatusDraft         Status = "draft"
	StatusPendingReview Status = "pending-review"
	StatusApproved      Status = "approved"
	StatusNeedsChanges  Status = "needs-changes"
	StatusPublished     Status = "published"
	StatusArchived      Status = "archived"
	StatusVision        Status = "vision"
)

// BlockType is the content category of a block.
type BlockType string

const (
	BlockTypeProduct    BlockType = "product"
	BlockTypeFeature    BlockType = "feature"
	BlockTypePainPoint  BlockType = "pain-point"
	BlockTypeValueProp  BlockType = "value-prop"
	BlockTypePersona    BlockType = "persona"
	BlockTypeMessage    BlockType = "message"
	BlockTypeProofPoint BlockType = "proof-point"
	BlockTypeCampaign   BlockType = "campaign"
	BlockTypePage       BlockType = "page"
	BlockTypeFAQ        BlockType = "faq"
)

var blockTypes = []BlockType{
	BlockTypeProduct,
	BlockTypeFeature,
	BlockTypePainPoint,
	BlockTypeValueProp,
	BlockTypePersona,
	BlockTypeMessage,
	BlockTypeProofPoint,
	BlockTypeCampaign,
	BlockTypePage,
	BlockTypeFAQ,
}

// BlockTypes returns every known block type.
func BlockTypes() []BlockType {
	return slices.Clone(blockTypes)
}

// Valid reports whether t is a known block type.
func (t BlockType) Valid() bool {
	return slices.Contains(blockTypes, t)
}

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Comment is a review comment on a block. Replies nest one level per reply.
type Comment struct {
	ID         string    `json:"id"`
	AuthorID   string    `json:"authorId"`
	AuthorName string    `json:"authorName"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"createdAt"`
	Resolved   bool      `json:"resolved"`
	Replies    []Comment `json:"replies,omitempty"`
}

func (c Comment) clone() Comment {
	if c.Replies == nil {
		return c
	}
	replies := make([]Comment, len(c.Replies))
	for i, r := range c.Replies {
		replies[i] = r.clone()
	}
	c.Replies = replies
	return c
}

// Block is a content unit placed on the canvas.
type Block struct {
	ID                   string     `json:"id"`
	Type                 BlockType  `json:"type"`
	Company              string     `json:"company"`
	Status               Status     `json:"status"`
	Title                string     `json:"title"`
	Subtitle             string     `json:"subtitle,omitempty"`
	Content              string     `json:"content,omitempty"`
	Tags                 []string   `json:"tags,omitempty"`
	Position             Position   `json:"position"`
	Size                 Size       `json:"size"`
	ExternalURL          string     `json:"externalUrl,omitempty"`
	ParentID             string     `json:"parentId,omitempty"`
	WorkspaceID          string     `json:"workspaceId"`
	CreatedAt            time.Time  `json:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt"`
	OwnerID              string     `json:"ownerId,omitempty"`
	SubmittedForReviewAt *time.Time `json:"submittedForReviewAt,omitempty"`
	PublishedVersion     string     `json:"publishedVersion,omitempty"`
	PublishedAt          *time.Time `json:"publishedAt,omitempty"`
	Comments             []Comment  `json:"comments,omitempty"`
}

// Clone returns a deep copy of the block.
func (b *Block) Clone() *Block {
	if b == nil {
		return nil
	}
	clone := *b
	clone.Tags = slices.Clone(b.Tags)
	if b.SubmittedForReviewAt != nil {
		t := *b.SubmittedForReviewAt
		clone.SubmittedForReviewAt = &t
	}
	if b.PublishedAt != nil {
		t := *b.PublishedAt
		clone.PublishedAt = &t
	}
	clone.Comments = cloneComments(b.Comments)
	return &clone
}

func cloneComments(comments []Comment) []Comment {
	if comments == nil {
		return nil
	}
	out := make([]Comment, len(comments))
	for i, c := range comments {
		out[i] = c.clone()
	}
	return out
}

// HasTag reports whether the block carries tag.
func (b *Block) HasTag(tag string) bool {
	return slices.Contains(b.Tags, tag)
}

// CloneBlocks deep copies a block slice.
func CloneBlocks(blocks []*Block) []*Block {
	out := make([]*Block, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, b.Clone())
	}
	return out
}
