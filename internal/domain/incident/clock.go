package incident

import (
	"sync"
	"time"
)

// Clock abstracts time so runs can pin a reference instant. Age derivations
// and run reports must never read the wall clock directly.
type Clock interface {
	Now() time.Time
}

// RealClock reads the system clock in UTC.
type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now().UTC()
}

// FixedClock always returns the same instant. It backs the -as-of flag so a
// rerun reproduces the original run's age calculations exactly.
type FixedClock struct {
	t time.Time
}

func NewFixedClock(t time.Time) FixedClock {
	return FixedClock{t: t.UTC()}
}

func (c FixedClock) Now() time.Time {
	return c.t
}

// MockClock is a controllable clock for tests.
type MockClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewMockClock(t time.Time) *MockClock {
	return &MockClock{now: t.UTC()}
}

func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set pins the clock to t.
func (c *MockClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t.UTC()
}
