package latest

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/felixgeelhaar/nexora/internal/metrics"
)

func TestTrackerSupersedes(t *testing.T) {
	_, reg := metrics.NewRegistry()
	tr := NewTracker("users", reg)

	first, t1 := tr.Begin(context.Background())
	second, t2 := tr.Begin(context.Background())

	assert.ErrorIs(t, first.Err(), context.Canceled, "older request is cancelled")
	assert.NoError(t, second.Err())

	assert.False(t, tr.Accept(t1))
	assert.True(t, tr.Accept(t2))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.StaleResponses.WithLabelValues("users")))

	tr.Done(t2)
	assert.ErrorIs(t, second.Err(), context.Canceled, "Done releases the context")
}

func TestTrackerDoneIgnoresOldTicket(t *testing.T) {
	tr := NewTracker("projects", nil)

	_, t1 := tr.Begin(context.Background())
	ctx, _ := tr.Begin(context.Background())
	tr.Done(t1)

	assert.NoError(t, ctx.Err())
}

func TestTrackerCancel(t *testing.T) {
	tr := NewTracker("reports", nil)
	ctx, tk := tr.Begin(context.Background())

	tr.Cancel()
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
	assert.False(t, tr.Accept(tk))
}

func TestDebouncerStop(t *testing.T) {
	d := NewDebouncer(10 * time.Millisecond)
	seq := d.Next()
	d.Stop()
	assert.False(t, d.Settled(seq), "stopped input never settles")
}

func TestDebouncerSequence(t *testing.T) {
	d := NewDebouncer(300 * time.Millisecond)
	assert.Equal(t, 300*time.Millisecond, d.Delay())

	first := d.Next()
	second := d.Next()
	assert.False(t, d.Settled(first))
	assert.True(t, d.Settled(second))
}
