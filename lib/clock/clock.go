// Package clock abstracts time so that panels and caches can run against a simulated clock in tests.
package clock

import (
	"sync"
	"time"
)

// Clock provides the current time and tickers.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

// Ticker delivers ticks on C until stopped.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Real is the wall clock.
var Real Clock = realClock{} //nolint:gochecknoglobals // stateless

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) NewTicker(d time.Duration) Ticker { return realTicker{time.NewTicker(d)} }

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// Mock is a manually advanced clock. Tickers created from it fire when Add moves the time past their next deadline.
type Mock struct {
	l       sync.Mutex
	now     time.Time
	tickers []*mockTicker
}

// NewMock returns a Mock set at the given time.
func NewMock(now time.Time) *Mock {
	return &Mock{now: now}
}

// Now returns the mocked time.
func (m *Mock) Now() time.Time {
	m.l.Lock()
	defer m.l.Unlock()

	return m.now
}

// NewTicker returns a ticker firing every d of mocked time.
func (m *Mock) NewTicker(d time.Duration) Ticker {
	if d <= 0 {
		panic("clock: non-positive interval for NewTicker")
	}

	m.l.Lock()
	defer m.l.Unlock()

	t := &mockTicker{c: make(chan time.Time, 1), d: d, next: m.now.Add(d), m: m}
	m.tickers = append(m.tickers, t)

	return t
}

// Add advances the clock by d, firing due tickers once per elapsed interval. As with time.Ticker, a tick is dropped
// when the previous one has not been received yet.
func (m *Mock) Add(d time.Duration) {
	m.l.Lock()
	defer m.l.Unlock()

	m.now = m.now.Add(d)

	for _, t := range m.tickers {
		for !t.stopped && !t.next.After(m.now) {
			select {
			case t.c <- t.next:
			default:
			}

			t.next = t.next.Add(t.d)
		}
	}
}

// Tickers returns the number of tickers that have not been stopped.
func (m *Mock) Tickers() int {
	m.l.Lock()
	defer m.l.Unlock()

	n := 0

	for _, t := range m.tickers {
		if !t.stopped {
			n++
		}
	}

	return n
}

type mockTicker struct {
	c       chan time.Time
	d       time.Duration
	next    time.Time
	stopped bool
	m       *Mock
}

func (t *mockTicker) C() <-chan time.Time { return t.c }

func (t *mockTicker) Stop() {
	t.m.l.Lock()
	t.stopped = true
	t.m.l.Unlock()
}
