// Package clock abstracts the wall clock so cache freshness can be tested
// without sleeping.
package clock

import (
	"sync"
	"time"
)

// Clock is an interface for time operations.
type Clock interface {
	Now() time.Time
}

// RealClock reads the system time.
type RealClock struct{}

// NewRealClock creates a new RealClock.
func NewRealClock() Clock {
	return RealClock{}
}

// Now returns the current system time.
func (RealClock) Now() time.Time {
	return time.Now()
}

// MockClock is a manually driven clock for tests.
// It is safe for concurrent use.
type MockClock struct {
	mu      sync.Mutex
	current time.Time
}

// NewMockClock creates a new MockClock starting at the given time.
func NewMockClock(start time.Time) *MockClock {
	return &MockClock{current: start}
}

// Now returns the mock current time.
func (m *MockClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Set sets the mock current time.
func (m *MockClock) Set(t time.Time) {
	m.mu.Lock()
	m.current = t
	m.mu.Unlock()
}

// Advance moves the mock clock forward by d.
func (m *MockClock) Advance(d time.Duration) {
	m.mu.Lock()
	m.current = m.current.Add(d)
	m.mu.Unlock()
}
