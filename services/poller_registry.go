package services

import "sync"

// PollerRegistry owns the live pollers, one per session at most. It is the
// teardown point: when a session ends or is abandoned its poller is
// stopped here, releasing the timer and any in-flight request.
type PollerRegistry struct {
	mu      sync.Mutex
	pollers map[string]*StatusPoller
}

func NewPollerRegistry() *PollerRegistry {
	return &PollerRegistry{pollers: make(map[string]*StatusPoller)}
}

// StartFor registers and starts a poller for the session unless one is
// already running.
func (r *PollerRegistry) StartFor(sessionID string, p *StatusPoller) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.pollers[sessionID]; exists {
		return false
	}
	r.pollers[sessionID] = p
	p.Start()
	return true
}

// StopFor stops and forgets the session's poller, if any.
func (r *PollerRegistry) StopFor(sessionID string) {
	r.mu.Lock()
	p := r.pollers[sessionID]
	delete(r.pollers, sessionID)
	r.mu.Unlock()
	if p != nil {
		p.Stop()
	}
}

// Remove forgets a poller that stopped on its own.
func (r *PollerRegistry) Remove(sessionID string) {
	r.mu.Lock()
	delete(r.pollers, sessionID)
	r.mu.Unlock()
}
