// Package clock supplies the timestamps stamped on events, reservations
// and notices. Services take a Clock so tests can pin and advance time.
package clock

import (
	"sync"
	"time"
)

// Clock reports the current instant.
type Clock interface {
	Now() time.Time
}

// Func adapts a plain function to Clock.
type Func func() time.Time

// Now calls f.
func (f Func) Now() time.Time { return f() }

// NewSystem returns the wall clock. Stored timestamps are UTC so the
// Postgres and in-memory backends agree on them.
func NewSystem() Clock {
	return Func(func() time.Time { return time.Now().UTC() })
}

// Manual is a clock that only moves when told to. It is safe for use by
// concurrent reservation workers.
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

// NewManual returns a Manual clock reading start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start.UTC()}
}

// Now returns the clock's current reading.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the clock forward by d and returns the new reading.
func (m *Manual) Advance(d time.Duration) time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
	return m.now
}
