// Package clock supplies the ledger's notion of "now" in whole seconds.
package clock

import (
	"sync"
	"time"
)

// Clock returns the current time in seconds. Successive calls never go
// backwards.
type Clock interface {
	Now() uint64
}

// Func adapts a function to the Clock interface.
type Func func() uint64

// Now implements Clock.
func (f Func) Now() uint64 { return f() }

// System is a wall clock that never reports a value lower than one it has
// already returned, even if the host clock is stepped back.
type System struct {
	mu   sync.Mutex
	last uint64
}

// NewSystem returns a System clock.
func NewSystem() *System { return &System{} }

// Now implements Clock.
func (s *System) Now() uint64 {
	n := uint64(time.Now().Unix())

	s.mu.Lock()
	defer s.mu.Unlock()
	if n < s.last {
		return s.last
	}
	s.last = n
	return n
}

// Manual is a clock driven by hand, for tests and simulations.
type Manual struct {
	mu  sync.Mutex
	now uint64
}

// NewManual returns a Manual clock starting at start.
func NewManual(start uint64) *Manual { return &Manual{now: start} }

// Now implements Clock.
func (m *Manual) Now() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Set moves the clock to t. Moving backwards is ignored.
func (m *Manual) Set(t uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t > m.now {
		m.now = t
	}
}

// Advance moves the clock forward by d seconds.
func (m *Manual) Advance(d uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now += d
}
