package voting

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSweeperMetrics() (prometheus.Gauge, prometheus.Counter) {
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{Name: "test_sessions_active"})
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_sessions_swept_total"})
	return gauge, counter
}

func TestSweeper_EvictsOldSessions(t *testing.T) {
	clock := clockwork.NewFakeClock()
	reg := NewRegistry(clock)
	reg.Create("req-1", "msg-1", "chan-1")

	gauge, counter := newSweeperMetrics()
	sw := NewSweeper(reg, 30*time.Minute, time.Hour, clock, gauge, counter)
	sw.Start()
	defer sw.Stop()

	// Wait for the sweep loop to arm its ticker before advancing.
	clock.BlockUntil(1)

	// First pass: the session is 30m old and survives.
	clock.Advance(30 * time.Minute)
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(gauge) == 1
	}, time.Second, 10*time.Millisecond, "sweep pass should publish the live count")
	assert.Equal(t, 1, reg.Len())

	// Second pass: 61m old now, past the 1h max age.
	clock.Advance(31 * time.Minute)
	require.Eventually(t, func() bool {
		return reg.Len() == 0
	}, time.Second, 10*time.Millisecond, "expired session should be swept")
	assert.Equal(t, 1.0, testutil.ToFloat64(counter))
}

func TestSweeper_LeavesYoungSessionsAlone(t *testing.T) {
	clock := clockwork.NewFakeClock()
	reg := NewRegistry(clock)
	reg.Create("req-1", "msg-1", "chan-1")
	reg.Create("req-2", "msg-2", "chan-2")

	gauge, counter := newSweeperMetrics()
	sw := NewSweeper(reg, 5*time.Minute, time.Hour, clock, gauge, counter)
	sw.Start()
	defer sw.Stop()

	clock.BlockUntil(1)
	clock.Advance(5 * time.Minute)

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(gauge) == 2
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, 2, reg.Len())
	assert.Equal(t, 0.0, testutil.ToFloat64(counter))
}

func TestSweeper_StopIsIdempotent(t *testing.T) {
	clock := clockwork.NewFakeClock()
	reg := NewRegistry(clock)

	gauge, counter := newSweeperMetrics()
	sw := NewSweeper(reg, time.Minute, time.Hour, clock, gauge, counter)
	sw.Start()

	sw.Stop()
	sw.Stop()
}
