package graph

import (
	"fmt"
	"strings"

	"github.com/emrgen/canvas/internal/conflict"
	"github.com/emrgen/canvas/internal/model"
	"github.com/google/uuid"
)

// AddComment attaches a top level comment by the store's actor.
func (s *Store) AddComment(blockID, content string) (*model.Comment, error) {
	return s.comment(blockID, "", content)
}

// ReplyToComment nests a reply under an existing comment or reply.
func (s *Store) ReplyToComment(blockID, commentID, content string) (*model.Comment, error) {
	return s.comment(blockID, commentID, content)
}

func (s *Store) comment(blockID, parentID, content string) (*model.Comment, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyComment
	}
	current := s.block(blockID)
	if current == nil {
		return nil, ErrNotFound
	}

	c := model.Comment{
		ID:         uuid.New().String(),
		AuthorID:   s.actor.ID,
		AuthorName: s.actor.Name,
		Content:    content,
		CreatedAt:  s.now(),
	}

	next := current.Clone()
	if err := attachComment(next, parentID, c); err != nil {
		return nil, err
	}

	op := s.operation(conflict.ActionComment, blockID)
	op.Target = parentID
	op.NewValue = c
	s.replaceBlock(next)
	s.commit(fmt.Sprintf("Comment on %q", next.Title), op)

	return &c, nil
}

func attachComment(b *model.Block, parentID string, c model.Comment) error {
	if parentID == "" {
		b.Comments = append(b.Comments, c)
		return nil
	}
	parent := findComment(b.Comments, parentID)
	if parent == nil {
		return fmt.Errorf("comment %s: %w", parentID, ErrNotFound)
	}
	parent.Replies = append(parent.Replies, c)
	return nil
}

// ResolveComment marks a comment resolved. Resolving twice is a no-op.
func (s *Store) ResolveComment(blockID, commentID string) error {
	current := s.block(blockID)
	if current == nil {
		return ErrNotFound
	}

	next := current.Clone()
	c := findComment(next.Comments, commentID)
	if c == nil {
		return fmt.Errorf("comment %s: %w", commentID, ErrNotFound)
	}
	if c.Resolved {
		return nil
	}
	c.Resolved = true

	op := s.operation(conflict.ActionResolveComment, blockID)
	op.Target = commentID
	s.replaceBlock(next)
	s.commit(fmt.Sprintf("Resolve comment on %q", next.Title), op)
	return nil
}

func findComment(comments []model.Comment, id string) *model.Comment {
	for i := range comments {
		if comments[i].ID == id {
			return &comments[i]
		}
		if found := findComment(comments[i].Replies, id); found != nil {
			return found
		}
	}
	return nil
}
