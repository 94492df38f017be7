package snapshot

import (
	"fmt"
	"sort"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/emrgen/canvas/internal/model"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Summary lists the titles of blocks added, modified and removed since the
// previous snapshot of the same workspace.
type Summary struct {
	Added    []string `json:"added"`
	Modified []string `json:"modified"`
	Removed  []string `json:"removed"`
}

// Snapshot is a named full copy of a workspace graph. Snapshots are never
// modified after creation.
type Snapshot struct {
	ID            string                `json:"id"`
	WorkspaceID   string                `json:"workspaceId"`
	Label         string                `json:"label"`
	CreatedAt     time.Time             `json:"createdAt"`
	Blocks        []*model.Block        `json:"blocks"`
	Relationships []*model.Relationship `json:"relationships"`
	Summary       Summary               `json:"summary"`
}

// Clone returns a deep copy of the snapshot.
func (s *Snapshot) Clone() *Snapshot {
	clone := *s
	clone.Blocks = model.CloneBlocks(s.Blocks)
	clone.Relationships = model.CloneRelationships(s.Relationships)
	clone.Summary = Summary{
		Added:    append([]string(nil), s.Summary.Added...),
		Modified: append([]string(nil), s.Summary.Modified...),
		Removed:  append([]string(nil), s.Summary.Removed...),
	}
	return &clone
}

// Restoration is what a restore hands back to the caller: the snapshot's
// collections and what loading them will change in the current graph.
type Restoration struct {
	Snapshot      *Snapshot
	Blocks        []*model.Block
	Relationships []*model.Relationship
	Changes       Comparison
}

// Engine keeps the snapshots of every workspace, newest first.
type Engine struct {
	byWorkspace map[string][]*Snapshot
	now         func() time.Time
}

func NewEngine(now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{
		byWorkspace: make(map[string][]*Snapshot),
		now:         now,
	}
}

// Create captures blocks and relationships under a label and summarizes the
// difference to the previous snapshot.
func (e *Engine) Create(workspaceID string, blocks []*model.Block, relationships []*model.Relationship, label string) (*Snapshot, error) {
	if workspaceID == "" {
		return nil, ErrNoWorkspace
	}

	now := e.now()
	if label == "" {
		label = fmt.Sprintf("Snapshot %s", now.Format("2006-01-02 15:04"))
	}

	snap := &Snapshot{
		ID:            uuid.New().String(),
		WorkspaceID:   workspaceID,
		Label:         label,
		CreatedAt:     now,
		Blocks:        model.CloneBlocks(blocks),
		Relationships: model.CloneRelationships(relationships),
	}

	if prev := e.latest(workspaceID); prev != nil {
		snap.Summary = summarize(prev.Blocks, snap.Blocks)
	} else {
		snap.Summary = summarize(nil, snap.Blocks)
	}

	e.byWorkspace[workspaceID] = append([]*Snapshot{snap}, e.byWorkspace[workspaceID]...)
	logrus.Infof("snapshot %s (%s) of workspace %s: %d blocks, %d relationships", snap.ID, label, workspaceID, len(snap.Blocks), len(snap.Relationships))

	return snap.Clone(), nil
}

// List returns copies of a workspace's snapshots, newest first.
func (e *Engine) List(workspaceID string) []*Snapshot {
	snaps := e.byWorkspace[workspaceID]
	out := make([]*Snapshot, 0, len(snaps))
	for _, snap := range snaps {
		out = append(out, snap.Clone())
	}
	return out
}

// IDs returns the ids of a workspace's snapshots, newest first.
func (e *Engine) IDs(workspaceID string) []string {
	snaps := e.byWorkspace[workspaceID]
	ids := make([]string, 0, len(snaps))
	for _, snap := range snaps {
		ids = append(ids, snap.ID)
	}
	return ids
}

// Latest returns a copy of the newest snapshot, or nil.
func (e *Engine) Latest(workspaceID string) *Snapshot {
	if snap := e.latest(workspaceID); snap != nil {
		return snap.Clone()
	}
	return nil
}

func (e *Engine) latest(workspaceID string) *Snapshot {
	snaps := e.byWorkspace[workspaceID]
	if len(snaps) == 0 {
		return nil
	}
	return snaps[0]
}

// Get returns a copy of a snapshot.
func (e *Engine) Get(workspaceID, id string) (*Snapshot, error) {
	snap, err := e.get(workspaceID, id)
	if err != nil {
		return nil, err
	}
	return snap.Clone(), nil
}

func (e *Engine) get(workspaceID, id string) (*Snapshot, error) {
	for _, snap := range e.byWorkspace[workspaceID] {
		if snap.ID == id {
			return snap, nil
		}
	}
	return nil, ErrNotFound
}

// Restore returns copies of the snapshot's collections for the caller to load.
// The engine does not touch the live graph.
func (e *Engine) Restore(workspaceID, snapshotID string, currentBlocks []*model.Block, currentRelationships []*model.Relationship) (*Restoration, error) {
	snap, err := e.get(workspaceID, snapshotID)
	if err != nil {
		return nil, err
	}

	return &Restoration{
		Snapshot:      snap.Clone(),
		Blocks:        model.CloneBlocks(snap.Blocks),
		Relationships: model.CloneRelationships(snap.Relationships),
		Changes:       CompareCollections(currentBlocks, currentRelationships, snap.Blocks, snap.Relationships),
	}, nil
}

// Containing returns the ids of snapshots that include a block.
func (e *Engine) Containing(workspaceID, blockID string) []string {
	var ids []string
	for _, snap := range e.byWorkspace[workspaceID] {
		for _, b := range snap.Blocks {
			if b.ID == blockID {
				ids = append(ids, snap.ID)
				break
			}
		}
	}
	return ids
}

// Prune keeps the newest keep snapshots of a workspace and returns the ids of
// the dropped ones.
func (e *Engine) Prune(workspaceID string, keep int) []string {
	snaps := e.byWorkspace[workspaceID]
	if keep < 0 || len(snaps) <= keep {
		return nil
	}
	var removed []string
	for _, snap := range snaps[keep:] {
		removed = append(removed, snap.ID)
	}
	e.byWorkspace[workspaceID] = snaps[:keep:keep]
	return removed
}

// Load replaces a workspace's snapshots with persisted ones.
func (e *Engine) Load(workspaceID string, snaps []*Snapshot) {
	sorted := append([]*Snapshot(nil), snaps...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	e.byWorkspace[workspaceID] = sorted
}

func summarize(before, after []*model.Block) Summary {
	prev := index(before)
	next := index(after)

	summary := Summary{
		Added:    []string{},
		Modified: []string{},
		Removed:  []string{},
	}
	for _, b := range after {
		old, ok := prev[b.ID]
		if !ok {
			summary.Added = append(summary.Added, b.Title)
			continue
		}
		if len(ChangedBlockFields(old, b, SummaryFields)) > 0 {
			summary.Modified = append(summary.Modified, b.Title)
		}
	}
	for _, b := range before {
		if _, ok := next[b.ID]; !ok {
			summary.Removed = append(summary.Removed, b.Title)
		}
	}
	return summary
}

func index(blocks []*model.Block) map[string]*model.Block {
	m := make(map[string]*model.Block, len(blocks))
	for _, b := range blocks {
		m[b.ID] = b
	}
	return m
}

func ids[T any](items []T, id func(T) string) mapset.Set[string] {
	set := mapset.NewSetWithSize[string](len(items))
	for _, item := range items {
		set.Add(id(item))
	}
	return set
}
