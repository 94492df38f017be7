package graph

import (
	"fmt"
	"slices"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/emrgen/canvas/internal/conflict"
	"github.com/emrgen/canvas/internal/model"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// NewBlock is the input for AddBlock. ID is generated when empty and Status
// defaults to draft.
type NewBlock struct {
	ID          string
	Type        model.BlockType
	Company     string
	Status      model.Status
	Title       string
	Subtitle    string
	Content     string
	Tags        []string
	Position    model.Position
	Size        model.Size
	ExternalURL string
	ParentID    string
	OwnerID     string
}

// BlockPatch changes the fields that are set. Status is not part of a patch.
type BlockPatch struct {
	Type        *model.BlockType
	Company     *string
	Title       *string
	Subtitle    *string
	Content     *string
	Tags        *[]string
	Position    *model.Position
	Size        *model.Size
	ExternalURL *string
	ParentID    *string
	OwnerID     *string
}

func (p BlockPatch) apply(b *model.Block) error {
	if p.Type != nil {
		if !p.Type.Valid() {
			return fmt.Errorf("%w: %s", model.ErrInvalidBlockType, *p.Type)
		}
		b.Type = *p.Type
	}
	if p.Company != nil {
		b.Company = *p.Company
	}
	if p.Title != nil {
		b.Title = *p.Title
	}
	if p.Subtitle != nil {
		b.Subtitle = *p.Subtitle
	}
	if p.Content != nil {
		b.Content = *p.Content
	}
	if p.Tags != nil {
		b.Tags = slices.Clone(*p.Tags)
	}
	if p.Position != nil {
		b.Position = *p.Position
	}
	if p.Size != nil {
		b.Size = *p.Size
	}
	if p.ExternalURL != nil {
		b.ExternalURL = *p.ExternalURL
	}
	if p.ParentID != nil {
		b.ParentID = *p.ParentID
	}
	if p.OwnerID != nil {
		b.OwnerID = *p.OwnerID
	}
	return nil
}

// editableFields are the fields an update operation may carry.
var editableFields = []string{
	model.FieldType,
	model.FieldCompany,
	model.FieldTitle,
	model.FieldSubtitle,
	model.FieldContent,
	model.FieldTags,
	model.FieldPosition,
	model.FieldSize,
	model.FieldExternalURL,
	model.FieldParentID,
	model.FieldOwnerID,
}

// fieldOps builds one update operation per editable field that differs.
func (s *Store) fieldOps(before, after *model.Block) []conflict.Operation {
	var ops []conflict.Operation
	for _, field := range editableFields {
		oldValue, _ := before.FieldValue(field)
		newValue, _ := after.FieldValue(field)
		if conflict.SameValue(oldValue, newValue) {
			continue
		}
		op := s.operation(conflict.ActionUpdate, after.ID)
		op.Field = field
		op.OldValue = oldValue
		op.NewValue = newValue
		ops = append(ops, op)
	}
	if before.Status != after.Status {
		ops = append(ops, s.statusOp(after.ID, before.Status, after.Status))
	}
	return ops
}

func (s *Store) statusOp(blockID string, from, to model.Status) conflict.Operation {
	op := s.operation(conflict.ActionUpdate, blockID)
	op.Field = model.FieldStatus
	op.OldValue = from
	op.NewValue = to
	return op
}

// AddBlock places a new block on the canvas.
func (s *Store) AddBlock(in NewBlock) (*model.Block, error) {
	if !in.Type.Valid() {
		return nil, fmt.Errorf("%w: %s", model.ErrInvalidBlockType, in.Type)
	}
	status := in.Status
	if status == "" {
		status = model.StatusDraft
	}
	if status != model.StatusDraft && status != model.StatusVision {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}
	id := in.ID
	if id == "" {
		id = uuid.New().String()
	}
	if s.block(id) != nil {
		return nil, fmt.Errorf("block %s: %w", id, ErrDuplicate)
	}

	now := s.now()
	b := &model.Block{
		ID:          id,
		Type:        in.Type,
		Company:     in.Company,
		Status:      status,
		Title:       in.Title,
		Subtitle:    in.Subtitle,
		Content:     in.Content,
		Tags:        slices.Clone(in.Tags),
		Position:    in.Position,
		Size:        in.Size,
		ExternalURL: in.ExternalURL,
		ParentID:    in.ParentID,
		WorkspaceID: s.workspaceID,
		CreatedAt:   now,
		UpdatedAt:   now,
		OwnerID:     in.OwnerID,
	}
	s.blocks = append(s.blocks, b)

	op := s.operation(conflict.ActionCreate, id)
	op.NewValue = b.Clone()
	s.commit(fmt.Sprintf("Add %s %q", b.Type, b.Title), op)

	return b.Clone(), nil
}

// UpdateBlock applies a patch. A patch that changes nothing is not recorded.
func (s *Store) UpdateBlock(id string, patch BlockPatch) (*model.Block, error) {
	current := s.block(id)
	if current == nil {
		return nil, ErrNotFound
	}

	next := current.Clone()
	if err := patch.apply(next); err != nil {
		return nil, err
	}
	ops := s.fieldOps(current, next)
	if len(ops) == 0 {
		return current.Clone(), nil
	}

	next.UpdatedAt = s.now()
	s.replaceBlock(next)
	s.commit(fmt.Sprintf("Edit %q", next.Title), ops...)

	return next.Clone(), nil
}

// MoveBlock changes a block's canvas position.
func (s *Store) MoveBlock(id string, to model.Position) (*model.Block, error) {
	current := s.block(id)
	if current == nil {
		return nil, ErrNotFound
	}
	if current.Position == to {
		return current.Clone(), nil
	}

	next := current.Clone()
	next.Position = to
	next.UpdatedAt = s.now()
	s.replaceBlock(next)

	op := s.operation(conflict.ActionMove, id)
	op.OldValue = current.Position
	op.Position = &to
	s.commit(fmt.Sprintf("Move %q", next.Title), op)

	return next.Clone(), nil
}

// RemoveBlock deletes a block together with every relationship touching it
// and drops it from review requests. Children keep their parent id.
func (s *Store) RemoveBlock(id string) error {
	removed, cascaded := s.removeBlock(id)
	if removed == nil {
		return ErrNotFound
	}

	op := s.operation(conflict.ActionDelete, id)
	op.OldValue = removed.Clone()
	s.commit(fmt.Sprintf("Delete %q", removed.Title), op)
	logrus.Infof("block %s removed with %d relationships", id, cascaded)

	return nil
}

func (s *Store) removeBlock(id string) (*model.Block, int) {
	i := s.blockIndex(id)
	if i < 0 {
		return nil, 0
	}
	removed := s.blocks[i]

	s.blocks = slices.Delete(s.blocks, i, i+1)
	before := len(s.relationships)
	s.relationships = slices.DeleteFunc(s.relationships, func(r *model.Relationship) bool {
		return r.Touches(id)
	})
	s.reviews.DetachBlock(id)
	s.pruneSelection()

	return removed, before - len(s.relationships)
}

// BlockFilter selects blocks. Empty criteria match everything; Tags match
// when the block carries any of them; Query matches title, subtitle or
// content case-insensitively.
type BlockFilter struct {
	Types    []model.BlockType
	Statuses []model.Status
	Tags     []string
	Company  string
	OwnerID  string
	Query    string
}

func (f BlockFilter) match(b *model.Block) bool {
	if len(f.Types) > 0 && !slices.Contains(f.Types, b.Type) {
		return false
	}
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, b.Status) {
		return false
	}
	if len(f.Tags) > 0 && !slices.ContainsFunc(f.Tags, b.HasTag) {
		return false
	}
	if f.Company != "" && f.Company != b.Company {
		return false
	}
	if f.OwnerID != "" && f.OwnerID != b.OwnerID {
		return false
	}
	if f.Query != "" {
		q := strings.ToLower(f.Query)
		text := strings.ToLower(b.Title + "\n" + b.Subtitle + "\n" + b.Content)
		if !strings.Contains(text, q) {
			return false
		}
	}
	return true
}

// Filter returns copies of the blocks matching f.
func (s *Store) Filter(f BlockFilter) []*model.Block {
	var out []*model.Block
	for _, b := range s.blocks {
		if f.match(b) {
			out = append(out, b.Clone())
		}
	}
	return out
}

// Select replaces the selection. Unknown ids are ignored.
func (s *Store) Select(ids ...string) []string {
	seen := mapset.NewThreadUnsafeSet[string]()
	s.selection = nil
	for _, id := range ids {
		if s.block(id) == nil || !seen.Add(id) {
			continue
		}
		s.selection = append(s.selection, id)
	}
	return s.Selection()
}

// Selection returns the selected block ids in selection order.
func (s *Store) Selection() []string {
	return slices.Clone(s.selection)
}
