// Package latest keeps only the newest of overlapping requests and
// debounces bursts of input, as the admin search box needs.
package latest

import (
	"context"
	"sync"
	"time"

	"github.com/felixgeelhaar/nexora/internal/metrics"
)

// Ticket identifies one request started through a Tracker.
type Ticket uint64

// Tracker issues increasing tickets. Starting a request cancels the one
// before it, and results carrying an old ticket are reported as stale.
type Tracker struct {
	scope   string
	metrics *metrics.Metrics

	mu     sync.Mutex
	seq    Ticket
	cancel context.CancelFunc
}

// NewTracker returns a tracker. scope labels the stale response metric.
func NewTracker(scope string, m *metrics.Metrics) *Tracker {
	return &Tracker{scope: scope, metrics: m}
}

// Begin starts a request derived from parent and supersedes the previous
// one, whose context is cancelled.
func (t *Tracker) Begin(parent context.Context) (context.Context, Ticket) {
	ctx, cancel := context.WithCancel(parent)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		t.cancel()
	}
	t.seq++
	t.cancel = cancel
	return ctx, t.seq
}

// Accept reports whether tk is still the newest request. Stale tickets are
// counted.
func (t *Tracker) Accept(tk Ticket) bool {
	t.mu.Lock()
	current := tk == t.seq
	t.mu.Unlock()

	if !current && t.metrics != nil {
		t.metrics.StaleResponses.WithLabelValues(t.scope).Inc()
	}
	return current
}

// Done releases the context of tk if it is still the newest request.
func (t *Tracker) Done(tk Ticket) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if tk == t.seq && t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
}

// Cancel abandons the request in flight. Its result will be stale.
func (t *Tracker) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	t.seq++
}

// Debouncer tells an event loop whether input has been quiet for a while.
// The loop schedules its own timer for Delay and checks Settled when it
// fires.
type Debouncer struct {
	delay time.Duration

	mu  sync.Mutex
	seq uint64
}

// NewDebouncer returns a debouncer with the given quiet period.
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Delay is the quiet period.
func (d *Debouncer) Delay() time.Duration {
	return d.delay
}

// Next records new input and returns its sequence number.
func (d *Debouncer) Next() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seq++
	return d.seq
}

// Settled reports whether no input arrived after seq.
func (d *Debouncer) Settled(seq uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return seq == d.seq
}

// Stop makes every pending sequence number unsettled.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seq++
}
