package revision

import (
	"sort"
	"time"

	"github.com/emrgen/canvas/internal/lifecycle"
	"github.com/emrgen/canvas/internal/model"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Revision is an immutable, versioned copy of a published block's fields.
type Revision struct {
	ID            string       `json:"id"`
	BlockID       string       `json:"blockId"`
	WorkspaceID   string       `json:"workspaceId"`
	Version       int          `json:"version"`
	Fields        model.Fields `json:"fields"`
	CreatedBy     string       `json:"createdBy"`
	CreatedByName string       `json:"createdByName"`
	Comment       string       `json:"comment,omitempty"`
	CreatedAt     time.Time    `json:"createdAt"`
}

// Store keeps every revision of every block in memory. Revisions are append
// only; nothing here removes one.
type Store struct {
	byBlock map[string][]*Revision
	byID    map[string]*Revision
	now     func() time.Time
}

// NewStore creates an empty revision store.
func NewStore(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		byBlock: make(map[string][]*Revision),
		byID:    make(map[string]*Revision),
		now:     now,
	}
}

// Create copies the block's editable fields into a new revision. The block
// must be published; the copy is stamped as a draft.
func (s *Store) Create(block *model.Block, actorID, actorName, comment string) (*Revision, error) {
	if block == nil {
		return nil, ErrNotFound
	}
	if !lifecycle.CanRevise(block.Status) {
		logrus.Warnf("revision rejected for block %s in status %s", block.ID, block.Status)
		return nil, ErrNotPublished
	}

	fields := block.Fields()
	fields.Status = model.StatusDraft

	rev := &Revision{
		ID:            uuid.New().String(),
		BlockID:       block.ID,
		WorkspaceID:   block.WorkspaceID,
		Version:       s.MaxVersion(block.ID) + 1,
		Fields:        fields,
		CreatedBy:     actorID,
		CreatedByName: actorName,
		Comment:       comment,
		CreatedAt:     s.now(),
	}

	s.add(rev)
	logrus.Infof("created revision %d of block %s", rev.Version, block.ID)

	return rev.clone(), nil
}

// MaxVersion returns the highest version recorded for a block, 0 if none.
func (s *Store) MaxVersion(blockID string) int {
	highest := 0
	for _, rev := range s.byBlock[blockID] {
		if rev.Version > highest {
			highest = rev.Version
		}
	}
	return highest
}

// List returns a block's revisions, newest version first.
func (s *Store) List(blockID string) []*Revision {
	revs := s.byBlock[blockID]
	out := make([]*Revision, 0, len(revs))
	for _, rev := range revs {
		out = append(out, rev.clone())
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Version > out[j].Version
	})
	return out
}

// Get returns a revision by id.
func (s *Store) Get(id string) (*Revision, error) {
	rev, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return rev.clone(), nil
}

// All returns every revision in the store, grouped by block in creation order.
func (s *Store) All() []*Revision {
	out := make([]*Revision, 0, len(s.byID))
	blockIDs := make([]string, 0, len(s.byBlock))
	for id := range s.byBlock {
		blockIDs = append(blockIDs, id)
	}
	sort.Strings(blockIDs)
	for _, id := range blockIDs {
		for _, rev := range s.byBlock[id] {
			out = append(out, rev.clone())
		}
	}
	return out
}

// Load replaces the store content with previously persisted revisions.
func (s *Store) Load(revs []*Revision) {
	s.byBlock = make(map[string][]*Revision)
	s.byID = make(map[string]*Revision)
	for _, rev := range revs {
		s.add(rev.clone())
	}
}

func (s *Store) add(rev *Revision) {
	s.byBlock[rev.BlockID] = append(s.byBlock[rev.BlockID], rev)
	s.byID[rev.ID] = rev
}

func (r *Revision) clone() *Revision {
	clone := *r
	clone.Fields.Tags = append([]string(nil), r.Fields.Tags...)
	return &clone
}
