package model

import (
	"encoding/json"
	"fmt"
	"slices"
)

// Editable field names. These are the names carried on edit operations and
// the names reported by the diff engine.
const (
	FieldTitle       = "title"
	FieldSubtitle    = "subtitle"
	FieldContent     = "content"
	FieldTags        = "tags"
	FieldPosition    = "position"
	FieldSize        = "size"
	FieldExternalURL = "externalUrl"
	FieldParentID    = "parentId"
	FieldType        = "type"
	FieldCompany     = "company"
	FieldOwnerID     = "ownerId"
	FieldStatus      = "status"
	// FieldComments carries a block's whole comment thread. It is only
	// written when replaying undo, redo and restores on another actor.
	FieldComments = "comments"
)

// Fields is the editable part of a block, the unit copied into revisions.
type Fields struct {
	Type        BlockType `json:"type"`
	Company     string    `json:"company"`
	Status      Status    `json:"status"`
	Title       string    `json:"title"`
	Subtitle    string    `json:"subtitle,omitempty"`
	Content     string    `json:"content,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	Position    Position  `json:"position"`
	Size        Size      `json:"size"`
	ExternalURL string    `json:"externalUrl,omitempty"`
	ParentID    string    `json:"parentId,omitempty"`
}

// Fields copies the editable fields out of the block.
func (b *Block) Fields() Fields {
	return Fields{
		Type:        b.Type,
		Company:     b.Company,
		Status:      b.Status,
		Title:       b.Title,
		Subtitle:    b.Subtitle,
		Content:     b.Content,
		Tags:        slices.Clone(b.Tags),
		Position:    b.Position,
		Size:        b.Size,
		ExternalURL: b.ExternalURL,
		ParentID:    b.ParentID,
	}
}

// ApplyFields overwrites the block's editable fields, including status.
func (b *Block) ApplyFields(f Fields) {
	b.Type = f.Type
	b.Company = f.Company
	b.Status = f.Status
	b.Title = f.Title
	b.Subtitle = f.Subtitle
	b.Content = f.Content
	b.Tags = slices.Clone(f.Tags)
	b.Position = f.Position
	b.Size = f.Size
	b.ExternalURL = f.ExternalURL
	b.ParentID = f.ParentID
}

// FieldValue returns the current value of a named editable field.
func (b *Block) FieldValue(field string) (any, error) {
	switch field {
	case FieldTitle:
		return b.Title, nil
	case FieldSubtitle:
		return b.Subtitle, nil
	case FieldContent:
		return b.Content, nil
	case FieldTags:
		return slices.Clone(b.Tags), nil
	case FieldPosition:
		return b.Position, nil
	case FieldSize:
		return b.Size, nil
	case FieldExternalURL:
		return b.ExternalURL, nil
	case FieldParentID:
		return b.ParentID, nil
	case FieldType:
		return b.Type, nil
	case FieldCompany:
		return b.Company, nil
	case FieldOwnerID:
		return b.OwnerID, nil
	case FieldComments:
		return cloneComments(b.Comments), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownField, field)
}

// SetField assigns a named editable field. Values may arrive already typed or
// as decoded JSON (string, []any, map[string]any), so they are normalized
// through a JSON round trip into the field's concrete type. Status is not
// settable here; it only moves through the lifecycle API.
func (b *Block) SetField(field string, value any) error {
	switch field {
	case FieldTitle:
		return decodeInto(value, &b.Title)
	case FieldSubtitle:
		return decodeInto(value, &b.Subtitle)
	case FieldContent:
		return decodeInto(value, &b.Content)
	case FieldTags:
		var tags []string
		if err := decodeInto(value, &tags); err != nil {
			return err
		}
		b.Tags = tags
		return nil
	case FieldPosition:
		return decodeInto(value, &b.Position)
	case FieldSize:
		return decodeInto(value, &b.Size)
	case FieldExternalURL:
		return decodeInto(value, &b.ExternalURL)
	case FieldParentID:
		return decodeInto(value, &b.ParentID)
	case FieldType:
		var t BlockType
		if err := decodeInto(value, &t); err != nil {
			return err
		}
		if !t.Valid() {
			return fmt.Errorf("%w: %s", ErrInvalidBlockType, t)
		}
		b.Type = t
		return nil
	case FieldCompany:
		return decodeInto(value, &b.Company)
	case FieldOwnerID:
		return decodeInto(value, &b.OwnerID)
	case FieldComments:
		var comments []Comment
		if err := decodeInto(value, &comments); err != nil {
			return err
		}
		b.Comments = comments
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnknownField, field)
}

func decodeInto(value any, target any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFieldValue, err)
	}
	return nil
}
