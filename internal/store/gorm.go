package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/emrgen/canvas/internal/compress"
	"github.com/emrgen/canvas/internal/graph"
	"github.com/emrgen/canvas/internal/model"
	"github.com/emrgen/canvas/internal/review"
	"github.com/emrgen/canvas/internal/revision"
	"github.com/emrgen/canvas/internal/snapshot"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const batchSize = 100

func NewGormStore(db *gorm.DB, codec compress.Compress) *GormStore {
	if codec == nil {
		codec = compress.NewNop()
	}
	return &GormStore{
		db:    db,
		codec: codec,
	}
}

var _ Store = (*GormStore)(nil)

// GormStore keeps workspaces in a relational database. Payload columns hold
// JSON encoded with the store's codec; each row records its codec so rows
// written under another codec stay readable.
type GormStore struct {
	db    *gorm.DB
	codec compress.Compress
}

func (g *GormStore) CreateWorkspace(ctx context.Context, ws *model.Workspace) error {
	return g.db.WithContext(ctx).Create(ws).Error
}

func (g *GormStore) GetWorkspace(ctx context.Context, id string) (*model.Workspace, error) {
	var ws model.Workspace
	err := g.db.WithContext(ctx).Where("id = ?", id).First(&ws).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrWorkspaceNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ws, nil
}

func (g *GormStore) ListWorkspaces(ctx context.Context) ([]*model.Workspace, error) {
	var workspaces []*model.Workspace
	err := g.db.WithContext(ctx).Order("created_at asc").Find(&workspaces).Error
	return workspaces, err
}

// DeleteWorkspace removes the workspace row and every row scoped to it.
// NOTE: should run in a transaction
func (g *GormStore) DeleteWorkspace(ctx context.Context, id string) error {
	db := g.db.WithContext(ctx)
	for _, record := range []any{
		&model.BlockRecord{},
		&model.RelationshipRecord{},
		&model.RevisionRecord{},
		&model.ReviewRequestRecord{},
		&model.SnapshotRecord{},
	} {
		if err := db.Where("workspace_id = ?", id).Delete(record).Error; err != nil {
			return err
		}
	}
	return db.Where("id = ?", id).Delete(&model.Workspace{}).Error
}

func (g *GormStore) LoadState(ctx context.Context, workspaceID string) (*graph.State, error) {
	db := g.db.WithContext(ctx)
	state := &graph.State{}

	var blocks []*model.BlockRecord
	if err := db.Where("workspace_id = ?", workspaceID).Order("created_at asc, seq asc").Find(&blocks).Error; err != nil {
		return nil, err
	}
	for _, record := range blocks {
		b := &model.Block{}
		if err := g.decode(record.Payload, record.Compression, b); err != nil {
			return nil, fmt.Errorf("block %s: %w", record.ID, err)
		}
		state.Blocks = append(state.Blocks, b)
	}

	var rels []*model.RelationshipRecord
	if err := db.Where("workspace_id = ?", workspaceID).Order("created_at asc, seq asc").Find(&rels).Error; err != nil {
		return nil, err
	}
	for _, record := range rels {
		state.Relationships = append(state.Relationships, &model.Relationship{
			ID:          record.ID,
			WorkspaceID: record.WorkspaceID,
			SourceID:    record.SourceID,
			TargetID:    record.TargetID,
			Type:        model.RelationshipType(record.Type),
			Label:       record.Label,
			Animated:    record.Animated,
			CreatedAt:   record.CreatedAt,
		})
	}

	var revs []*model.RevisionRecord
	if err := db.Where("workspace_id = ?", workspaceID).Order("block_id asc, version asc").Find(&revs).Error; err != nil {
		return nil, err
	}
	for _, record := range revs {
		rev := &revision.Revision{}
		if err := g.decode(record.Payload, record.Compression, rev); err != nil {
			return nil, fmt.Errorf("revision %s: %w", record.ID, err)
		}
		state.Revisions = append(state.Revisions, rev)
	}

	var reqs []*model.ReviewRequestRecord
	if err := db.Where("workspace_id = ?", workspaceID).Order("created_at asc").Find(&reqs).Error; err != nil {
		return nil, err
	}
	for _, record := range reqs {
		req := &review.Request{}
		if err := g.decode(record.Payload, record.Compression, req); err != nil {
			return nil, fmt.Errorf("review request %s: %w", record.ID, err)
		}
		state.Reviews = append(state.Reviews, req)
	}

	var snaps []*model.SnapshotRecord
	if err := db.Where("workspace_id = ?", workspaceID).Order("created_at desc").Find(&snaps).Error; err != nil {
		return nil, err
	}
	for _, record := range snaps {
		snap := &snapshot.Snapshot{}
		if err := g.decode(record.Payload, record.Compression, snap); err != nil {
			return nil, fmt.Errorf("snapshot %s: %w", record.ID, err)
		}
		state.Snapshots = append(state.Snapshots, snap)
	}

	return state, nil
}

// SaveChanges writes the changes of a workspace. Rows of entities that did
// not change are left alone.
// NOTE: should run in a transaction
func (g *GormStore) SaveChanges(ctx context.Context, workspaceID string, changes graph.Changes) error {
	db := g.db.WithContext(ctx)

	blocks := make([]*model.BlockRecord, 0, len(changes.Blocks))
	for _, b := range changes.Blocks {
		payload, err := g.encode(b)
		if err != nil {
			return err
		}
		blocks = append(blocks, &model.BlockRecord{
			ID:          b.ID,
			WorkspaceID: workspaceID,
			Type:        string(b.Type),
			Status:      string(b.Status),
			Title:       b.Title,
			Seq:         changes.Order[b.ID],
			Payload:     payload,
			Compression: g.codec.Name(),
			CreatedAt:   b.CreatedAt,
			UpdatedAt:   b.UpdatedAt,
		})
	}
	if err := upsert(db, blocks); err != nil {
		return err
	}
	if err := deleteRows(db, workspaceID, &model.BlockRecord{}, changes.DeletedBlocks); err != nil {
		return err
	}

	rels := make([]*model.RelationshipRecord, 0, len(changes.Relationships))
	for i, r := range changes.Relationships {
		rels = append(rels, &model.RelationshipRecord{
			ID:          r.ID,
			WorkspaceID: workspaceID,
			SourceID:    r.SourceID,
			TargetID:    r.TargetID,
			Type:        string(r.Type),
			Label:       r.Label,
			Animated:    r.Animated,
			Seq:         i,
			CreatedAt:   r.CreatedAt,
		})
	}
	if err := upsert(db, rels); err != nil {
		return err
	}
	if err := deleteRows(db, workspaceID, &model.RelationshipRecord{}, changes.DeletedRelationships); err != nil {
		return err
	}

	reqs := make([]*model.ReviewRequestRecord, 0, len(changes.Reviews))
	for _, req := range changes.Reviews {
		payload, err := g.encode(req)
		if err != nil {
			return err
		}
		reqs = append(reqs, &model.ReviewRequestRecord{
			ID:          req.ID,
			WorkspaceID: workspaceID,
			Status:      string(req.Status),
			ReviewerID:  req.ReviewerID,
			RequesterID: req.RequesterID,
			Payload:     payload,
			Compression: g.codec.Name(),
			CreatedAt:   req.CreatedAt,
		})
	}
	if err := upsert(db, reqs); err != nil {
		return err
	}

	revs := make([]*model.RevisionRecord, 0, len(changes.Revisions))
	for _, rev := range changes.Revisions {
		payload, err := g.encode(rev)
		if err != nil {
			return err
		}
		revs = append(revs, &model.RevisionRecord{
			ID:          rev.ID,
			WorkspaceID: workspaceID,
			BlockID:     rev.BlockID,
			Version:     rev.Version,
			CreatedBy:   rev.CreatedBy,
			Payload:     payload,
			Compression: g.codec.Name(),
			CreatedAt:   rev.CreatedAt,
		})
	}
	if err := appendOnly(db, revs); err != nil {
		return err
	}

	snaps := make([]*model.SnapshotRecord, 0, len(changes.Snapshots))
	for _, snap := range changes.Snapshots {
		payload, err := g.encode(snap)
		if err != nil {
			return err
		}
		snaps = append(snaps, &model.SnapshotRecord{
			ID:          snap.ID,
			WorkspaceID: workspaceID,
			Label:       snap.Label,
			Payload:     payload,
			Compression: g.codec.Name(),
			CreatedAt:   snap.CreatedAt,
		})
	}
	if err := appendOnly(db, snaps); err != nil {
		return err
	}
	if err := deleteRows(db, workspaceID, &model.SnapshotRecord{}, changes.DeletedSnapshots); err != nil {
		return err
	}

	logrus.Debugf("saved workspace %s: %d/%d blocks, %d/%d relationships, %d revisions, %d reviews, %d/%d snapshots written/deleted",
		workspaceID, len(blocks), len(changes.DeletedBlocks), len(rels), len(changes.DeletedRelationships),
		len(revs), len(reqs), len(snaps), len(changes.DeletedSnapshots))
	return nil
}

func (g *GormStore) Migrate() error {
	return model.Migrate(g.db)
}

func (g *GormStore) Transaction(ctx context.Context, f func(tx Store) error) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return f(&GormStore{db: tx, codec: g.codec})
	})
}

func (g *GormStore) encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return g.codec.Encode(data)
}

func (g *GormStore) decode(payload []byte, codecName string, v any) error {
	codec := g.codec
	if codecName != codec.Name() {
		var err error
		if codec, err = compress.New(codecName); err != nil {
			return err
		}
	}
	data, err := codec.Decode(payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// upsert inserts rows and overwrites the rows already stored under their
// primary key.
func upsert[T any](db *gorm.DB, rows []*T) error {
	if len(rows) == 0 {
		return nil
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).CreateInBatches(rows, batchSize).Error
}

func deleteRows(db *gorm.DB, workspaceID string, row any, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return db.Where("workspace_id = ? AND id IN ?", workspaceID, ids).Delete(row).Error
}

// appendOnly inserts rows whose primary key is not stored yet.
func appendOnly[T any](db *gorm.DB, rows []*T) error {
	if len(rows) == 0 {
		return nil
	}
	return db.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(rows, batchSize).Error
}
