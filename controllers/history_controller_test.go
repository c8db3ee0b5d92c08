package controllers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"insureflow/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func historyRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	gin.SetMode(gin.TestMode)
	db := testDB(t)
	hc := NewHistoryController(db)
	r := gin.New()
	r.GET("/api/history", hc.Handle)
	r.POST("/api/history", hc.Handle)
	return r, db
}

func TestHistoryUnknownAction(t *testing.T) {
	r, _ := historyRouter(t)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/history?action=drop", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, 400, w.Code)
}

func TestHistoryGetEmpty(t *testing.T) {
	r, _ := historyRouter(t)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/history?action=get", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, 200, w.Code)

	var entries []models.HistoryEntry
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	assert.Empty(t, entries)
}

func TestHistorySetOverwritesLastWriterWins(t *testing.T) {
	r, db := historyRouter(t)

	first := []models.HistoryEntryRequest{
		{Summary: "one", Record: validRecord()},
		{Summary: "two", Record: validRecord()},
	}
	body, _ := json.Marshal(first)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/history?action=set", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	assert.Equal(t, 200, w.Code)

	second := []models.HistoryEntryRequest{
		{Record: validRecord()}, // summary derived when omitted
	}
	body, _ = json.Marshal(second)
	w = httptest.NewRecorder()
	req, _ = http.NewRequest("POST", "/api/history?action=set", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	assert.Equal(t, 200, w.Code)

	var count int64
	db.Model(&models.HistoryEntry{}).Count(&count)
	assert.Equal(t, int64(1), count, "set replaces the whole list, no merge")

	var entry models.HistoryEntry
	db.First(&entry)
	assert.Equal(t, "张伟 京A88888", entry.Summary)
}

func TestHistorySetInvalidBody(t *testing.T) {
	r, _ := historyRouter(t)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/history?action=set", bytes.NewBufferString("{oops"))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	assert.Equal(t, 400, w.Code)
}
