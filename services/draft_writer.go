package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"insureflow/models"
	"insureflow/utils"
)

const (
	draftKey      = "admin_draft_current"
	draftTTL      = 7 * 24 * time.Hour
	DraftDebounce = 1 * time.Second
)

// DraftWriter persists the admin form's working draft to Redis with a
// debounce: a queued write waits out the debounce window and any newer
// write during that window supersedes it, so rapid typing does not churn
// the store. Single writer: only the admin form feeds it.
type DraftWriter struct {
	rdb      *redis.Client
	debounce time.Duration

	mu      sync.Mutex
	pending *models.InsuranceRecord
	timer   *time.Timer
}

func NewDraftWriter(rdb *redis.Client, debounce time.Duration) *DraftWriter {
	if debounce <= 0 {
		debounce = DraftDebounce
	}
	return &DraftWriter{rdb: rdb, debounce: debounce}
}

// Queue replaces any pending draft and re-arms the debounce timer.
func (w *DraftWriter) Queue(r *models.InsuranceRecord) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending = r
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.Flush)
}

// Flush writes the pending draft immediately, if there is one.
func (w *DraftWriter) Flush() {
	w.mu.Lock()
	r := w.pending
	w.pending = nil
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()

	if r == nil {
		return
	}
	data, err := json.Marshal(r)
	if err != nil {
		utils.LogError(err, "draft marshal")
		return
	}
	if err := w.rdb.Set(context.Background(), draftKey, data, draftTTL).Err(); err != nil {
		utils.LogError(err, "draft write")
	}
}

// Load returns the current draft: the still-pending one if the debounce
// window is open, otherwise whatever Redis holds.
func (w *DraftWriter) Load(ctx context.Context) (*models.InsuranceRecord, bool) {
	w.mu.Lock()
	if w.pending != nil {
		r := *w.pending
		w.mu.Unlock()
		return &r, true
	}
	w.mu.Unlock()

	val, err := w.rdb.Get(ctx, draftKey).Result()
	if err != nil {
		return nil, false
	}
	var r models.InsuranceRecord
	if err := json.Unmarshal([]byte(val), &r); err != nil {
		return nil, false
	}
	return &r, true
}

// Close flushes any pending draft. Called on shutdown.
func (w *DraftWriter) Close() {
	w.Flush()
}
