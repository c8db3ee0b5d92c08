package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"insureflow/models"
	"insureflow/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// HistoryController serves the admin-side audit/reuse log. The set action
// replaces the whole list; last writer wins, no merge.
type HistoryController struct {
	db *gorm.DB
}

func NewHistoryController(db *gorm.DB) *HistoryController {
	return &HistoryController{db: db}
}

// Handle dispatches on the action query parameter:
// GET  /api/history?action=get
// POST /api/history?action=set
func (hc *HistoryController) Handle(c *gin.Context) {
	switch c.Query("action") {
	case "get":
		hc.list(c)
	case "set":
		hc.replace(c)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "action must be get or set"})
	}
}

func (hc *HistoryController) list(c *gin.Context) {
	var entries []models.HistoryEntry
	if err := hc.db.Order("created_at DESC").Find(&entries).Error; err != nil {
		utils.LogError(err, "history list")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load history"})
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (hc *HistoryController) replace(c *gin.Context) {
	var incoming []models.HistoryEntryRequest
	if err := c.ShouldBindJSON(&incoming); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid history body", "details": err.Error()})
		return
	}

	entries := make([]models.HistoryEntry, 0, len(incoming))
	for _, in := range incoming {
		snapshot, err := json.Marshal(in.Record)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid record snapshot"})
			return
		}
		summary := in.Summary
		if summary == "" {
			summary = HistorySummary(&in.Record)
		}
		entries = append(entries, models.HistoryEntry{
			Summary: summary,
			Record:  snapshot,
		})
	}

	err := hc.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`DELETE FROM history_entries`).Error; err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}
		return tx.Create(&entries).Error
	})
	if err != nil {
		utils.LogError(err, "history replace")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(entries)})
}

// HistorySummary derives the display string for an entry: proposer name
// plus plate. Display only, never authoritative.
func HistorySummary(r *models.InsuranceRecord) string {
	return fmt.Sprintf("%s %s", r.Proposer.Name, r.Vehicle.Plate)
}
