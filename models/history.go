package models

import (
	"time"

	"gorm.io/datatypes"
)

// HistoryEntry is the admin-side audit/reuse log. Append-only: entries are
// never edited after creation. Summary is a derived display string
// (proposer name + plate), not authoritative data.
type HistoryEntry struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	Summary   string         `json:"summary" gorm:"type:varchar(255)"`
	Record    datatypes.JSON `json:"record" gorm:"type:jsonb"`
	CreatedAt time.Time      `json:"timestamp"`
}

// HistoryEntryRequest is one entry as carried by the history API. The set
// action replaces the whole list, last writer wins.
type HistoryEntryRequest struct {
	Summary string          `json:"summary"`
	Record  InsuranceRecord `json:"record"`
}
