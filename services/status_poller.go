package services

import (
	"context"
	"sync"
	"time"

	"insureflow/models"
	"insureflow/utils"
)

// Poller defaults: one fetch every 3 seconds, 5 second deadline per fetch,
// hard stop after 30 attempts (~90 seconds) even if payment was never
// confirmed. After exhaustion the user's only recourse is a manual refresh.
const (
	DefaultPollInterval = 3 * time.Second
	DefaultPollAttempts = 30
)

// StatusPoller watches one order while its session sits on the pay step
// and fires OnPaid once when the remote status flips to paid. Fetch
// failures of any kind are logged and retried; they never fail the flow.
type StatusPoller struct {
	Store        RecordStore
	OrderID      string
	Interval     time.Duration
	FetchTimeout time.Duration
	MaxAttempts  int
	// OnPaid receives the refreshed record. Called at most once.
	OnPaid func(r *models.InsuranceRecord)
	// OnExhausted, if set, runs after the attempt budget is spent.
	OnExhausted func()

	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

func NewStatusPoller(store RecordStore, orderID string, onPaid func(*models.InsuranceRecord)) *StatusPoller {
	return &StatusPoller{
		Store:        store,
		OrderID:      orderID,
		Interval:     DefaultPollInterval,
		FetchTimeout: PollFetchTimeout,
		MaxAttempts:  DefaultPollAttempts,
		OnPaid:       onPaid,
	}
}

// Start launches the polling loop. Fetches run inline in the loop, so a
// slow request delays the next tick instead of stacking a second request
// on top of it.
func (p *StatusPoller) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})

	go func() {
		defer close(p.done)
		ticker := time.NewTicker(p.Interval)
		defer ticker.Stop()

		for attempt := 0; attempt < p.MaxAttempts; attempt++ {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			fetchCtx, fetchCancel := context.WithTimeout(ctx, p.FetchTimeout)
			rec, err := p.Store.FetchByID(fetchCtx, p.OrderID)
			fetchCancel()
			if err != nil {
				// non-fatal: timeouts, not-found and backend errors are
				// all retried until the budget runs out
				utils.LogError(err, "status poll "+p.OrderID)
				continue
			}
			if rec.Status == models.StatusPaid {
				if p.OnPaid != nil {
					p.OnPaid(rec)
				}
				return
			}
		}
		if p.OnExhausted != nil {
			p.OnExhausted()
		}
	}()
}

// Stop cancels the ticker and abandons any in-flight fetch. Safe to call
// more than once and before Start has done anything.
func (p *StatusPoller) Stop() {
	p.stopOnce.Do(func() {
		if p.cancel != nil {
			p.cancel()
		}
	})
}

// Done is closed when the loop has fully exited.
func (p *StatusPoller) Done() <-chan struct{} {
	if p.done == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return p.done
}
