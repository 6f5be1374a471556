package testutil

import (
	"fmt"
	"sync"
	"time"

	"whatsup-go/internal/whatsup"
)

var (
	_ whatsup.Clock       = (*StubClock)(nil)
	_ whatsup.IDGenerator = (*StubIDGenerator)(nil)
)

// StubClock is a manually driven whatsup.Clock. Fetch goroutines read it
// while tests advance it, so access is locked.
type StubClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewStubClock(t time.Time) *StubClock {
	return &StubClock{now: t.UTC()}
}

// FixedClock starts at 2024-01-15 10:30:00 UTC.
func FixedClock() *StubClock {
	return NewStubClock(time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC))
}

func (c *StubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward, e.g. past a check interval or quiet window.
func (c *StubClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Set jumps the clock to t.
func (c *StubClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t.UTC()
	c.mu.Unlock()
}

// StubIDGenerator hands out "<prefix>-1", "<prefix>-2", ... Prefix defaults to "id".
type StubIDGenerator struct {
	Prefix string

	mu   sync.Mutex
	next int
}

func NewStubIDGenerator() *StubIDGenerator {
	return &StubIDGenerator{Prefix: "id"}
}

func (g *StubIDGenerator) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return fmt.Sprintf("%s-%d", g.Prefix, g.next)
}
