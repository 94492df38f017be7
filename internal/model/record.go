package model

import (
	"time"
)

// Workspace is a canvas owned by a team.
type Workspace struct {
	ID        string    `gorm:"primaryKey;uuid;not null;" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BlockRecord is the stored form of a block. The block itself is kept as a
// compressed JSON payload; the columns next to it exist for querying.
type BlockRecord struct {
	ID          string `gorm:"primaryKey;not null;"`
	WorkspaceID string `gorm:"index;not null"`
	Type        string `gorm:"index"`
	Status      string `gorm:"index"`
	Title       string
	Seq         int    // position in the block order when last written
	Payload     []byte `gorm:"not null"`
	Compression string // the codec used to encode the payload
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type RelationshipRecord struct {
	ID          string `gorm:"primaryKey;not null;"`
	WorkspaceID string `gorm:"index;not null"`
	SourceID    string `gorm:"index;not null"`
	TargetID    string `gorm:"index;not null"`
	Type        string `gorm:"not null"`
	Label       string
	Animated    bool
	Seq         int
	CreatedAt   time.Time
}

// RevisionRecord rows are append only.
type RevisionRecord struct {
	ID          string `gorm:"primaryKey;not null;"`
	WorkspaceID string `gorm:"index;not null"`
	BlockID     string `gorm:"index;not null"`
	Version     int    `gorm:"not null"`
	CreatedBy   string
	Payload     []byte `gorm:"not null"`
	Compression string
	CreatedAt   time.Time
}

type ReviewRequestRecord struct {
	ID          string `gorm:"primaryKey;not null;"`
	WorkspaceID string `gorm:"index;not null"`
	Status      string `gorm:"index"`
	ReviewerID  string `gorm:"index"`
	RequesterID string `gorm:"index"`
	Payload     []byte `gorm:"not null"`
	Compression string
	CreatedAt   time.Time
}

type SnapshotRecord struct {
	ID          string `gorm:"primaryKey;not null;"`
	WorkspaceID string `gorm:"index;not null"`
	Label       string
	Payload     []byte `gorm:"not null"`
	Compression string
	CreatedAt   time.Time
}
