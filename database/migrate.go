package database

import (
	"insureflow/migrations"
	"insureflow/models"

	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	if err := migrations.CreateHistoryTable(db); err != nil {
		return err
	}
	// AutoMigrate picks up column additions on existing installs
	return db.AutoMigrate(&models.HistoryEntry{})
}
