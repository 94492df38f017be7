package snapshot

import (
	"slices"

	"github.com/emrgen/canvas/internal/model"
)

// BlockComparator compares one named block field.
type BlockComparator struct {
	Field string
	Equal func(a, b *model.Block) bool
}

// RelationshipComparator compares one named relationship field.
type RelationshipComparator struct {
	Field string
	Equal func(a, b *model.Relationship) bool
}

// BlockFields is the exhaustive list of compared block fields. Timestamps are
// bookkeeping and are not compared.
var BlockFields = []BlockComparator{
	{model.FieldType, func(a, b *model.Block) bool { return a.Type == b.Type }},
	{model.FieldCompany, func(a, b *model.Block) bool { return a.Company == b.Company }},
	{model.FieldStatus, func(a, b *model.Block) bool { return a.Status == b.Status }},
	{model.FieldTitle, func(a, b *model.Block) bool { return a.Title == b.Title }},
	{model.FieldSubtitle, func(a, b *model.Block) bool { return a.Subtitle == b.Subtitle }},
	{model.FieldContent, func(a, b *model.Block) bool { return a.Content == b.Content }},
	{model.FieldTags, func(a, b *model.Block) bool { return slices.Equal(a.Tags, b.Tags) }},
	{model.FieldPosition, func(a, b *model.Block) bool { return a.Position == b.Position }},
	{model.FieldSize, func(a, b *model.Block) bool { return a.Size == b.Size }},
	{model.FieldExternalURL, func(a, b *model.Block) bool { return a.ExternalURL == b.ExternalURL }},
	{model.FieldParentID, func(a, b *model.Block) bool { return a.ParentID == b.ParentID }},
	{model.FieldOwnerID, func(a, b *model.Block) bool { return a.OwnerID == b.OwnerID }},
	{"comments", func(a, b *model.Block) bool { return commentsEqual(a.Comments, b.Comments) }},
}

// SummaryFields are the fields whose change marks a block as modified in a
// snapshot's change summary.
var SummaryFields = []BlockComparator{
	{model.FieldTitle, func(a, b *model.Block) bool { return a.Title == b.Title }},
	{model.FieldContent, func(a, b *model.Block) bool { return a.Content == b.Content }},
	{model.FieldStatus, func(a, b *model.Block) bool { return a.Status == b.Status }},
}

// RelationshipFields is the exhaustive list of compared relationship fields.
var RelationshipFields = []RelationshipComparator{
	{"sourceId", func(a, b *model.Relationship) bool { return a.SourceID == b.SourceID }},
	{"targetId", func(a, b *model.Relationship) bool { return a.TargetID == b.TargetID }},
	{"type", func(a, b *model.Relationship) bool { return a.Type == b.Type }},
	{"label", func(a, b *model.Relationship) bool { return a.Label == b.Label }},
	{"animated", func(a, b *model.Relationship) bool { return a.Animated == b.Animated }},
}

// ChangedBlockFields returns the names of fields that differ between a and b.
func ChangedBlockFields(a, b *model.Block, comparators []BlockComparator) []string {
	var changed []string
	for _, c := range comparators {
		if !c.Equal(a, b) {
			changed = append(changed, c.Field)
		}
	}
	return changed
}

// ChangedRelationshipFields returns the names of fields that differ between a and b.
func ChangedRelationshipFields(a, b *model.Relationship) []string {
	var changed []string
	for _, c := range RelationshipFields {
		if !c.Equal(a, b) {
			changed = append(changed, c.Field)
		}
	}
	return changed
}

func commentsEqual(a, b []model.Comment) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		x, y := a[i], b[i]
		if x.ID != y.ID || x.AuthorID != y.AuthorID || x.Content != y.Content || x.Resolved != y.Resolved {
			return false
		}
		if !commentsEqual(x.Replies, y.Replies) {
			return false
		}
	}
	return true
}
