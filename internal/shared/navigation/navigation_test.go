package navigation

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"storefront/internal/shared"
)

func TestVisit_URL(t *testing.T) {
	assert.Equal(t, "/", Visit{Route: shared.RouteHome}.URL())
	assert.Equal(t, "/payment?order=ORD-1&retry=true",
		Visit{Route: shared.RoutePayment, Query: url.Values{"order": {"ORD-1"}, "retry": {"true"}}}.URL())
}

func TestHistory_Last(t *testing.T) {
	h := &History{}
	_, ok := h.Last()
	assert.False(t, ok)

	h.Navigate(shared.RoutePayment, nil)
	h.Navigate(shared.RouteHome, nil)

	last, ok := h.Last()
	assert.True(t, ok)
	assert.Equal(t, shared.RouteHome, last.Route)
	assert.Len(t, h.Visits(), 2)
}

func TestManualScheduler_StopAndFire(t *testing.T) {
	s := &ManualScheduler{}
	var fired []string

	s.AfterFunc(5*time.Second, func() { fired = append(fired, "a") })
	stopped := s.AfterFunc(3*time.Second, func() { fired = append(fired, "b") })

	assert.Equal(t, []time.Duration{5 * time.Second, 3 * time.Second}, s.Delays())
	assert.True(t, stopped.Stop())
	assert.False(t, stopped.Stop())

	assert.Equal(t, 1, s.Fire())
	assert.Equal(t, []string{"a"}, fired)
	assert.Zero(t, s.Fire())
	assert.Empty(t, s.Delays())
}

func TestManualScheduler_StopAfterFire(t *testing.T) {
	s := &ManualScheduler{}
	timer := s.AfterFunc(time.Second, func() {})
	s.Fire()
	assert.False(t, timer.Stop())
}
