package harness

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestRun_Iterations(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	cfg := Config{Threads: 4, Iterations: 2000, LatencySample: 64}

	r, err := Run(context.Background(), cfg, Deps{
		Logger:  zaptest.NewLogger(t),
		Metrics: m,
		Clock:   clockwork.NewFakeClock(),
	})
	require.NoError(t, err)
	require.NoError(t, r.Check())

	require.Equal(t, 8000, r.Counter)
	require.Equal(t, 8000, r.Expected)
	require.Equal(t, []uint64{2000, 2000, 2000, 2000}, r.Acquisitions)
	require.Zero(t, r.Elapsed)
	require.Zero(t, r.Fairness.CV)
	require.EqualValues(t, 4*32, r.Latency.Samples)

	for _, w := range []string{"0", "1", "2", "3"} {
		require.EqualValues(t, 2000, testutil.ToFloat64(m.acquisitions.WithLabelValues(w)))
	}
	require.Zero(t, testutil.ToFloat64(m.workers))
	require.Zero(t, testutil.ToFloat64(m.drains))

	n, err := testutil.GatherAndCount(reg, AcquisitionsN, DrainsN, WorkersN, AcquireN)
	require.NoError(t, err)
	require.Equal(t, 4+1+1+1, n)
}

func TestRun_Default(t *testing.T) {
	if testing.Short() {
		t.Skip("one million critical sections")
	}
	r, err := Run(context.Background(), DefaultConfig(), Deps{})
	require.NoError(t, err)
	require.NoError(t, r.Check())
	require.Equal(t, 1_000_000, r.Counter)
}

func TestRun_TicketCeiling(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	cfg := Config{Threads: 4, Iterations: 1000, MaxTicket: 1, LatencySample: 1}

	r, err := Run(context.Background(), cfg, Deps{Metrics: m})
	require.NoError(t, err)
	require.NoError(t, r.Check())
	require.Equal(t, 4000, r.Counter)

	var drains uint64
	for _, d := range r.Drains {
		drains += d
	}
	require.EqualValues(t, drains, testutil.ToFloat64(m.drains))
}

func TestRun_Timed(t *testing.T) {
	cfg := Config{Threads: 3, Duration: Duration(50 * time.Millisecond), LatencySample: 16}

	r, err := Run(context.Background(), cfg, Deps{})
	require.NoError(t, err)
	require.NoError(t, r.Check())
	require.Zero(t, r.Expected)
	require.Positive(t, r.Total())
	require.GreaterOrEqual(t, r.Elapsed, 50*time.Millisecond)
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r, err := Run(ctx, Config{Threads: 2, Iterations: 10, LatencySample: 1}, Deps{})
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, r)
	require.Zero(t, r.Counter)
	require.Zero(t, r.Total())
}

func TestRun_InvalidConfig(t *testing.T) {
	r, err := Run(context.Background(), Config{}, Deps{})
	require.ErrorIs(t, err, ErrInvalidConfig)
	require.Nil(t, r)
}

func TestReport_Check(t *testing.T) {
	r := &Report{Counter: 5, Acquisitions: []uint64{3, 3}}
	require.ErrorIs(t, r.Check(), ErrLostUpdate)

	r = &Report{Counter: 6, Expected: 8, Acquisitions: []uint64{3, 3}}
	require.ErrorIs(t, r.Check(), ErrLostUpdate)

	r = &Report{Counter: 6, Expected: 6, Acquisitions: []uint64{3, 3}}
	require.NoError(t, r.Check())
}

func TestFairness(t *testing.T) {
	require.Equal(t, FairnessSummary{}, fairness(nil))
	require.Equal(t, FairnessSummary{Mean: 4}, fairness([]uint64{4}))

	f := fairness([]uint64{10, 10, 10})
	require.Equal(t, 10.0, f.Mean)
	require.Zero(t, f.StdDev)
	require.Zero(t, f.CV)

	f = fairness([]uint64{5, 15})
	require.Equal(t, 10.0, f.Mean)
	require.InDelta(t, 7.0711, f.StdDev, 1e-3)
	require.InDelta(t, 0.7071, f.CV, 1e-3)
}

func TestReport_WriteTo(t *testing.T) {
	r, err := Run(context.Background(), Config{Threads: 2, Iterations: 10, LatencySample: 1}, Deps{})
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := r.WriteTo(&buf)
	require.NoError(t, err)
	require.EqualValues(t, buf.Len(), n)
	require.Contains(t, buf.String(), "counter:    20\n")
	require.Contains(t, buf.String(), "threads:    2\n")
}
