// Package clock provides the time source used to stamp envelopes.
package clock

import (
	"sync"
	"time"
)

// Clock returns the current time
type Clock interface {
	Now() time.Time
}

// System is the wall clock
type System struct{}

// Now returns time.Now in UTC
func (System) Now() time.Time {
	return time.Now().UTC()
}

// NewSystem creates the wall clock
func NewSystem() Clock {
	return System{}
}

// Fixed is a clock that always reports the same instant until advanced
type Fixed struct {
	mu  sync.Mutex
	now time.Time
}

// NewFixed creates a fixed clock set to t
func NewFixed(t time.Time) *Fixed {
	return &Fixed{now: t}
}

// Now returns the fixed instant
func (f *Fixed) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Advance moves the clock forward by d
func (f *Fixed) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}
