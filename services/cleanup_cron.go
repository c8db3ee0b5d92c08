package services

import (
	"log"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// History kept after the nightly trim.
const historyKeep = 200

// StartCleanupCron trims the history table every night at 03:00 so the
// append-only log does not grow without bound.
func StartCleanupCron(db *gorm.DB) {
	c := cron.New()
	c.AddFunc("0 3 * * *", func() {
		if err := TrimHistory(db, historyKeep); err != nil {
			log.Printf("history trim failed: %v", err)
			return
		}
		log.Println("history trimmed")
	})
	c.Start()
}

// TrimHistory deletes everything but the newest keep entries.
func TrimHistory(db *gorm.DB, keep int) error {
	return db.Exec(`
		DELETE FROM history_entries
		WHERE id NOT IN (
			SELECT id FROM history_entries ORDER BY created_at DESC LIMIT ?
		)
	`, keep).Error
}
