// Package graph is the orchestrator of one workspace's content graph. It owns
// the live blocks and relationships and routes every change through the
// lifecycle table, the history stack and the conflict log.
//
// Blocks and relationships are copy-on-write: the store never mutates a value
// it has handed to a history entry or a snapshot. A change clones the value,
// modifies the clone and replaces the pointer in the live slice.
//
// A Store is not safe for concurrent use.
package graph

import (
	"slices"
	"time"

	"github.com/emrgen/canvas/internal/conflict"
	"github.com/emrgen/canvas/internal/history"
	"github.com/emrgen/canvas/internal/model"
	"github.com/emrgen/canvas/internal/review"
	"github.com/emrgen/canvas/internal/revision"
	"github.com/emrgen/canvas/internal/snapshot"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Actor is the person on whose behalf local changes are made.
type Actor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Options struct {
	WorkspaceID       string
	HistoryLimit      int
	OperationLogLimit int
	Actor             Actor
	Clock             func() time.Time
}

// State is everything the store persists for a workspace.
type State struct {
	Blocks        []*model.Block
	Relationships []*model.Relationship
	Revisions     []*revision.Revision
	Reviews       []*review.Request
	Snapshots     []*snapshot.Snapshot
}

type Store struct {
	workspaceID string
	actor       Actor
	now         func() time.Time

	blocks        []*model.Block
	relationships []*model.Relationship
	selection     []string

	history   *history.Manager
	revisions *revision.Store
	reviews   *review.Tracker
	snapshots *snapshot.Engine
	conflicts *conflict.Detector

	// outbox holds the local operations not yet taken by Drain.
	outbox  []conflict.Operation
	version uint64
}

// New creates an empty store for a workspace.
func New(opts Options) *Store {
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	s := &Store{
		workspaceID: opts.WorkspaceID,
		actor:       opts.Actor,
		now:         now,
		history:     history.NewManager(opts.HistoryLimit),
		revisions:   revision.NewStore(now),
		reviews:     review.NewTracker(now),
		snapshots:   snapshot.NewEngine(now),
		conflicts:   conflict.NewDetector(opts.OperationLogLimit, now),
	}
	s.pushHistory("Loaded")
	return s
}

func (s *Store) WorkspaceID() string {
	return s.workspaceID
}

func (s *Store) Actor() Actor {
	return s.actor
}

// SetActor changes the actor stamped on later changes.
func (s *Store) SetActor(a Actor) {
	s.actor = a
}

// Version increases with every committed change, local or remote.
func (s *Store) Version() uint64 {
	return s.version
}

// Load replaces the whole workspace state and starts a fresh history.
func (s *Store) Load(state State) {
	s.blocks = model.CloneBlocks(state.Blocks)
	s.relationships = model.CloneRelationships(state.Relationships)
	s.selection = nil
	s.revisions.Load(state.Revisions)
	s.reviews.Load(state.Reviews)
	s.snapshots.Load(s.workspaceID, state.Snapshots)
	s.history.Clear()
	s.pushHistory("Loaded")
	logrus.Infof("workspace %s loaded: %d blocks, %d relationships", s.workspaceID, len(s.blocks), len(s.relationships))
}

// Export returns the persisted state. The returned blocks and relationships
// are copies.
func (s *Store) Export() State {
	return State{
		Blocks:        model.CloneBlocks(s.blocks),
		Relationships: model.CloneRelationships(s.relationships),
		Revisions:     s.revisions.All(),
		Reviews:       s.reviews.All(),
		Snapshots:     s.snapshots.List(s.workspaceID),
	}
}

// Drain returns and clears the local operations recorded since the last call.
func (s *Store) Drain() []conflict.Operation {
	ops := s.outbox
	s.outbox = nil
	return ops
}

// Block returns a copy of a block.
func (s *Store) Block(id string) (*model.Block, error) {
	b := s.block(id)
	if b == nil {
		return nil, ErrNotFound
	}
	return b.Clone(), nil
}

// Blocks returns copies of every block in insertion order.
func (s *Store) Blocks() []*model.Block {
	return model.CloneBlocks(s.blocks)
}

// Relationships returns copies of every relationship.
func (s *Store) Relationships() []*model.Relationship {
	return model.CloneRelationships(s.relationships)
}

// Relationship returns a copy of a relationship.
func (s *Store) Relationship(id string) (*model.Relationship, error) {
	i := s.relationshipIndex(id)
	if i < 0 {
		return nil, ErrNotFound
	}
	return s.relationships[i].Clone(), nil
}

func (s *Store) block(id string) *model.Block {
	if i := s.blockIndex(id); i >= 0 {
		return s.blocks[i]
	}
	return nil
}

func (s *Store) blockIndex(id string) int {
	return slices.IndexFunc(s.blocks, func(b *model.Block) bool { return b.ID == id })
}

func (s *Store) relationshipIndex(id string) int {
	return slices.IndexFunc(s.relationships, func(r *model.Relationship) bool { return r.ID == id })
}

// replaceBlock swaps the live pointer for a modified copy.
func (s *Store) replaceBlock(b *model.Block) {
	if i := s.blockIndex(b.ID); i >= 0 {
		s.blocks[i] = b
	}
}

// commit records a finished action: a history entry, the operations in the
// conflict log and the outbox.
func (s *Store) commit(description string, ops ...conflict.Operation) {
	s.pushHistory(description)
	s.emit(ops...)
	s.version++
}

// emit logs local operations and queues them for Drain.
func (s *Store) emit(ops ...conflict.Operation) {
	for _, op := range ops {
		s.conflicts.Record(op)
	}
	s.outbox = append(s.outbox, ops...)
}

func (s *Store) pushHistory(description string) {
	s.history.Push(&history.Entry{
		Blocks:        slices.Clone(s.blocks),
		Relationships: slices.Clone(s.relationships),
		Description:   description,
		Timestamp:     s.now(),
	})
}

// rollback discards uncommitted changes by reloading the current history entry.
func (s *Store) rollback() {
	if entry := s.history.Current(); entry != nil {
		s.restoreEntry(entry)
	}
}

func (s *Store) restoreEntry(entry *history.Entry) {
	s.blocks = slices.Clone(entry.Blocks)
	s.relationships = slices.Clone(entry.Relationships)
	s.pruneSelection()
}

func (s *Store) pruneSelection() {
	s.selection = slices.DeleteFunc(s.selection, func(id string) bool {
		return s.block(id) == nil
	})
}

func (s *Store) operation(action conflict.Action, blockID string) conflict.Operation {
	return conflict.Operation{
		ID:        uuid.New().String(),
		Action:    action,
		BlockID:   blockID,
		UserID:    s.actor.ID,
		Timestamp: s.now().UnixMilli(),
	}
}

// CanUndo reports whether an action can be undone. The loaded state at the
// bottom of the stack is never undone.
func (s *Store) CanUndo() bool {
	past, _ := s.history.Depth()
	return past > 1
}

func (s *Store) CanRedo() bool {
	return s.history.CanRedo()
}

// Undo reverts the last action and returns its description. The reverted
// changes are queued as forced operations for the other actors.
func (s *Store) Undo() (string, error) {
	if !s.CanUndo() {
		return "", ErrNothingToUndo
	}
	undone := s.history.Current().Description
	s.travel(s.history.Undo())
	logrus.Infof("workspace %s: undo %q", s.workspaceID, undone)
	return undone, nil
}

// Redo reapplies the last undone action and returns its description.
func (s *Store) Redo() (string, error) {
	entry := s.history.Redo()
	if entry == nil {
		return "", ErrNothingToRedo
	}
	s.travel(entry)
	logrus.Infof("workspace %s: redo %q", s.workspaceID, entry.Description)
	return entry.Description, nil
}

// travel loads a history entry and emits what changed.
func (s *Store) travel(entry *history.Entry) {
	blocks, relationships := s.blocks, s.relationships
	s.restoreEntry(entry)
	s.emit(s.syncOps(blocks, s.blocks, relationships, s.relationships)...)
	s.version++
}

// HistoryDescriptions lists the undoable actions, oldest first.
func (s *Store) HistoryDescriptions() []string {
	return s.history.Descriptions()
}
