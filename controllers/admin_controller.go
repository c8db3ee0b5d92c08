package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"insureflow/config"
	"insureflow/models"
	"insureflow/services"
	"insureflow/utils"

	"github.com/gin-gonic/gin"
	qrcode "github.com/skip2/go-qrcode"
	"gorm.io/gorm"
)

// AdminController backs the staff form: draft persistence, shareable link
// generation with QR codes, and the history log append on share.
type AdminController struct {
	drafts *services.DraftWriter
	store  services.RecordStore
	db     *gorm.DB
	cfg    *config.Config
}

func NewAdminController(drafts *services.DraftWriter, store services.RecordStore, db *gorm.DB, cfg *config.Config) *AdminController {
	return &AdminController{drafts: drafts, store: store, db: db, cfg: cfg}
}

// SaveDraft handles POST /api/admin/draft. Writes are debounced: rapid
// edits collapse into one store write about a second after the last one.
func (ac *AdminController) SaveDraft(c *gin.Context) {
	var rec models.InsuranceRecord
	if err := c.ShouldBindJSON(&rec); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid record body", "details": err.Error()})
		return
	}
	utils.RecalcPremium(&rec)
	ac.drafts.Queue(&rec)
	c.JSON(http.StatusOK, gin.H{"success": true, "premium": rec.Project.Premium})
}

// GetDraft handles GET /api/admin/draft.
func (ac *AdminController) GetDraft(c *gin.Context) {
	rec, ok := ac.drafts.Load(c.Request.Context())
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no draft saved"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

// Share handles POST /api/admin/share. The record is persisted to the
// store and referenced by id in the link; if the store is unavailable the
// record travels inline as an encoded token instead. Either way a history
// entry is appended.
func (ac *AdminController) Share(c *gin.Context) {
	var rec models.InsuranceRecord
	if err := c.ShouldBindJSON(&rec); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid record body", "details": err.Error()})
		return
	}
	if !rec.HasIdentity() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "proposer identity and vehicle identity are required before sharing"})
		return
	}
	utils.RecalcPremium(&rec)

	ctx, cancel := context.WithTimeout(c.Request.Context(), services.InitialFetchTimeout)
	defer cancel()

	resp := gin.H{"success": true}
	id, err := ac.store.Save(ctx, &rec)
	if err != nil {
		// persistence fallback: carry the record inline in the link
		utils.LogError(err, "share save")
		token := utils.EncodeRecord(&rec)
		resp["token"] = token
		resp["link"] = fmt.Sprintf("%s?token=%s", ac.cfg.ShareBaseURL, token)
	} else {
		resp["id"] = id
		resp["link"] = fmt.Sprintf("%s?id=%s", ac.cfg.ShareBaseURL, url.QueryEscape(id))
	}

	ac.appendHistory(&rec)
	c.JSON(http.StatusOK, resp)
}

func (ac *AdminController) appendHistory(rec *models.InsuranceRecord) {
	snapshot, err := json.Marshal(rec)
	if err != nil {
		utils.LogError(err, "history snapshot")
		return
	}
	entry := models.HistoryEntry{
		Summary: HistorySummary(rec),
		Record:  snapshot,
	}
	if err := ac.db.Create(&entry).Error; err != nil {
		utils.LogError(err, "history append")
	}
}

// ShareQR handles GET /api/admin/share/qr?link=<url> and answers with a
// PNG QR code for the shareable link.
func (ac *AdminController) ShareQR(c *gin.Context) {
	link := c.Query("link")
	if link == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "link parameter is required"})
		return
	}
	png, err := qrcode.Encode(link, qrcode.Medium, 256)
	if err != nil {
		utils.LogError(err, "qr encode")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate QR code"})
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}
