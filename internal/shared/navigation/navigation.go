package navigation

import (
	"net/url"
	"sync"
	"time"

	"storefront/internal/shared"
)

// Navigator moves the shopper to another screen.
type Navigator interface {
	Navigate(route shared.Route, query url.Values)
}

// Timer is a scheduled callback that can be cancelled
type Timer interface {
	Stop() bool
}

// Scheduler runs f after d. Abstracted so redirect countdowns are testable.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// RealScheduler uses time.AfterFunc
type RealScheduler struct{}

func (RealScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Visit is one recorded navigation
type Visit struct {
	Route shared.Route
	Query url.Values
}

// URL renders the visit as a relative URL
func (v Visit) URL() string {
	if len(v.Query) == 0 {
		return string(v.Route)
	}
	return string(v.Route) + "?" + v.Query.Encode()
}

// History records navigations instead of performing them.
type History struct {
	mu     sync.Mutex
	visits []Visit
}

func (h *History) Navigate(route shared.Route, query url.Values) {
	h.mu.Lock()
	h.visits = append(h.visits, Visit{Route: route, Query: query})
	h.mu.Unlock()
}

func (h *History) Visits() []Visit {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Visit, len(h.visits))
	copy(out, h.visits)
	return out
}

// Last returns the most recent visit, ok=false when nothing was visited
func (h *History) Last() (Visit, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.visits) == 0 {
		return Visit{}, false
	}
	return h.visits[len(h.visits)-1], true
}

// ManualScheduler collects scheduled callbacks until Fire is called.
type ManualScheduler struct {
	mu      sync.Mutex
	pending []*manualTimer
}

type manualTimer struct {
	s       *ManualScheduler
	delay   time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

func (s *ManualScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTimer{s: s, delay: d, f: f}
	s.pending = append(s.pending, t)
	return t
}

// Delays returns the delay of every scheduled, not yet fired callback
func (s *ManualScheduler) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []time.Duration
	for _, t := range s.pending {
		if !t.fired && !t.stopped {
			out = append(out, t.delay)
		}
	}
	return out
}

// Fire runs every pending callback as if its delay had elapsed
func (s *ManualScheduler) Fire() int {
	s.mu.Lock()
	var due []*manualTimer
	for _, t := range s.pending {
		if !t.fired && !t.stopped {
			t.fired = true
			due = append(due, t)
		}
	}
	s.pending = nil
	s.mu.Unlock()

	for _, t := range due {
		t.f()
	}
	return len(due)
}
