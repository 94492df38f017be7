package model

import "gorm.io/gorm"

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&Workspace{}); err != nil {
		return err
	}

	if err := db.AutoMigrate(&BlockRecord{}, &RelationshipRecord{}); err != nil {
		return err
	}

	if err := db.AutoMigrate(&RevisionRecord{}, &ReviewRequestRecord{}, &SnapshotRecord{}); err != nil {
		return err
	}

	return nil
}
