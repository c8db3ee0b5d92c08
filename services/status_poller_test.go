package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"insureflow/models"

	"github.com/stretchr/testify/assert"
)

// fakeStore counts fetches and flips the record to paid after paidAfter
// attempts (never, if paidAfter < 0).
type fakeStore struct {
	mu        sync.Mutex
	fetches   int
	paidAfter int
	err       error
}

func (f *fakeStore) FetchByID(ctx context.Context, id string) (*models.InsuranceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.err != nil {
		return nil, f.err
	}
	rec := &models.InsuranceRecord{OrderID: id, Status: models.StatusPending}
	if f.paidAfter >= 0 && f.fetches > f.paidAfter {
		rec.Status = models.StatusPaid
	}
	return rec, nil
}

func (f *fakeStore) Save(ctx context.Context, r *models.InsuranceRecord) (string, error) {
	return r.OrderID, nil
}

func (f *fakeStore) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}

func newTestPoller(store RecordStore, onPaid func(*models.InsuranceRecord)) *StatusPoller {
	p := NewStatusPoller(store, "ord-1", onPaid)
	p.Interval = 2 * time.Millisecond
	p.FetchTimeout = 50 * time.Millisecond
	return p
}

func TestPollerStopsAfterAttemptBudget(t *testing.T) {
	store := &fakeStore{paidAfter: -1}
	paid := false
	exhausted := make(chan struct{})

	p := newTestPoller(store, func(*models.InsuranceRecord) { paid = true })
	p.MaxAttempts = 5
	p.OnExhausted = func() { close(exhausted) }
	p.Start()

	select {
	case <-p.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not terminate")
	}
	<-exhausted

	assert.Equal(t, 5, store.fetchCount(), "exactly MaxAttempts fetches, then silence")
	assert.False(t, paid, "no transition is forced when payment never confirms")
}

func TestPollerFiresOnPaidOnce(t *testing.T) {
	store := &fakeStore{paidAfter: 2}
	var mu sync.Mutex
	calls := 0

	p := newTestPoller(store, func(rec *models.InsuranceRecord) {
		mu.Lock()
		calls++
		mu.Unlock()
		assert.Equal(t, models.StatusPaid, rec.Status)
	})
	p.Start()

	select {
	case <-p.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not terminate")
	}

	mu.Lock()
	assert.Equal(t, 1, calls)
	mu.Unlock()
	assert.Equal(t, 3, store.fetchCount(), "polling stops right after the paid fetch")
}

func TestPollerRetriesThroughErrors(t *testing.T) {
	store := &fakeStore{paidAfter: -1, err: ErrStoreUnavailable}

	p := newTestPoller(store, nil)
	p.MaxAttempts = 4
	p.Start()

	select {
	case <-p.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not terminate")
	}
	assert.Equal(t, 4, store.fetchCount(), "fetch errors are swallowed and retried")
}

func TestPollerStop(t *testing.T) {
	store := &fakeStore{paidAfter: -1}

	p := newTestPoller(store, nil)
	p.Interval = 10 * time.Millisecond
	p.Start()
	p.Stop()
	p.Stop() // safe to call twice

	select {
	case <-p.Done():
	case <-time.After(time.Second):
		t.Fatal("poller did not stop")
	}
}

func TestPollerRegistryOnePerSession(t *testing.T) {
	store := &fakeStore{paidAfter: -1}
	reg := NewPollerRegistry()

	p1 := newTestPoller(store, nil)
	p2 := newTestPoller(store, nil)

	assert.True(t, reg.StartFor("s1", p1))
	assert.False(t, reg.StartFor("s1", p2), "second poller for the same session is refused")

	reg.StopFor("s1")
	select {
	case <-p1.Done():
	case <-time.After(time.Second):
		t.Fatal("registry stop did not reach the poller")
	}
}
