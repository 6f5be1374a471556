package inflight

import (
	"context"
	"sync"
	"time"

	"whatsup-go/internal/whatsup"
)

type lease struct {
	token  string
	expiry time.Time
}

// MemoryTracker keeps leases in a map. It only protects cycles running in
// the same process.
type MemoryTracker struct {
	mu     sync.Mutex
	leases map[string]lease
	ttl    time.Duration
	clock  whatsup.Clock
}

var _ whatsup.InFlightTracker = (*MemoryTracker)(nil)

// NewMemoryTracker creates a tracker whose leases last ttl. A nil clock uses RealClock.
func NewMemoryTracker(ttl time.Duration, clock whatsup.Clock) *MemoryTracker {
	if clock == nil {
		clock = whatsup.RealClock{}
	}
	return &MemoryTracker{
		leases: make(map[string]lease),
		ttl:    ttl,
		clock:  clock,
	}
}

// Acquire takes the lease for id unless an unexpired one is held.
func (t *MemoryTracker) Acquire(_ context.Context, id string, token string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock.Now()
	if l, ok := t.leases[id]; ok && now.Before(l.expiry) {
		return false, nil
	}
	t.leases[id] = lease{token: token, expiry: now.Add(t.ttl)}
	return true, nil
}

// Renew extends the lease if token still holds it and it has not expired.
func (t *MemoryTracker) Renew(_ context.Context, id string, token string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock.Now()
	l, ok := t.leases[id]
	if !ok || l.token != token || !now.Before(l.expiry) {
		return false, nil
	}
	t.leases[id] = lease{token: token, expiry: now.Add(t.ttl)}
	return true, nil
}

// Release drops the lease if token holds it.
func (t *MemoryTracker) Release(_ context.Context, id string, token string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if l, ok := t.leases[id]; ok && l.token == token {
		delete(t.leases, id)
	}
	return nil
}

// Len returns the number of leases currently held, expired ones excluded.
func (t *MemoryTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock.Now()
	n := 0
	for _, l := range t.leases {
		if now.Before(l.expiry) {
			n++
		}
	}
	return n
}
