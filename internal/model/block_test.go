package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlock_Clone(t *testing.T) {
	submitted := time.Now()
	block := &Block{
		ID:                   "b1",
		Title:                "Launch",
		Tags:                 []string{"q3"},
		SubmittedForReviewAt: &submitted,
		Comments: []Comment{{
			ID:      "c1",
			Content: "tighten the headline",
			Replies: []Comment{{ID: "c2", Content: "done"}},
		}},
	}

	clone := block.Clone()
	clone.Tags[0] = "q4"
	clone.Comments[0].Replies[0].Content = "changed"
	*clone.SubmittedForReviewAt = submitted.Add(time.Hour)

	assert.Equal(t, "q3", block.Tags[0])
	assert.Equal(t, "done", block.Comments[0].Replies[0].Content)
	assert.True(t, block.SubmittedForReviewAt.Equal(submitted))
}

func TestBlock_SetField(t *testing.T) {
	block := &Block{ID: "b1", Type: BlockTypeFeature}

	tests := []struct {
		name    string
		field   string
		value   any
		wantErr error
		check   func(t *testing.T, b *Block)
	}{
		{
			name:  "title from string",
			field: FieldTitle,
			value: "Alpha",
			check: func(t *testing.T, b *Block) { assert.Equal(t, "Alpha", b.Title) },
		},
		{
			name:  "tags from decoded json",
			field: FieldTags,
			value: []any{"a", "b"},
			check: func(t *testing.T, b *Block) { assert.Equal(t, []string{"a", "b"}, b.Tags) },
		},
		{
			name:  "position from decoded json",
			field: FieldPosition,
			value: map[string]any{"x": 10.5, "y": -3.0},
			check: func(t *testing.T, b *Block) { assert.Equal(t, Position{X: 10.5, Y: -3}, b.Position) },
		},
		{
			name:  "comments from decoded json",
			field: FieldComments,
			value: []any{map[string]any{"id": "c1", "authorId": "bob", "content": "ok", "resolved": true}},
			check: func(t *testing.T, b *Block) {
				require.Len(t, b.Comments, 1)
				assert.Equal(t, "bob", b.Comments[0].AuthorID)
				assert.True(t, b.Comments[0].Resolved)
			},
		},
		{
			name:    "unknown type rejected",
			field:   FieldType,
			value:   "spaceship",
			wantErr: ErrInvalidBlockType,
		},
		{
			name:    "status is not an editable field",
			field:   FieldStatus,
			value:   "published",
			wantErr: ErrUnknownField,
		},
		{
			name:    "wrong shape",
			field:   FieldTitle,
			value:   []any{1, 2},
			wantErr: ErrInvalidFieldValue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := block.SetField(tt.field, tt.value)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, block)
		})
	}
}

func TestBlock_FieldsRoundTrip(t *testing.T) {
	block := &Block{
		ID:       "b1",
		Type:     BlockTypePage,
		Status:   StatusPublished,
		Title:    "Pricing",
		Tags:     []string{"web"},
		Position: Position{X: 1, Y: 2},
	}

	fields := block.Fields()
	fields.Tags[0] = "mutated"
	assert.Equal(t, "web", block.Tags[0])

	other := &Block{ID: "b2"}
	other.ApplyFields(block.Fields())
	assert.Equal(t, "b2", other.ID)
	assert.Equal(t, "Pricing", other.Title)
	assert.Equal(t, StatusPublished, other.Status)
}
