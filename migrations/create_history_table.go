package migrations

import (
	"gorm.io/gorm"
)

// CreateHistoryTable creates the history_entries table with its indexes.
func CreateHistoryTable(db *gorm.DB) error {
	return db.Exec(`
		CREATE TABLE IF NOT EXISTS history_entries (
			id SERIAL PRIMARY KEY,
			summary VARCHAR(255),
			record JSONB,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_history_created_at ON history_entries(created_at DESC);
	`).Error
}
