package harness

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/llxisdsh/bakery"
)

const (
	// maxLatencyMicros bounds the recorded acquire latency; slower samples
	// are clamped.
	maxLatencyMicros = 10 * 1000 * 1000
	latencySigFigs   = 3

	// ctxCheckEvery is how many critical sections a worker runs between
	// context checks.
	ctxCheckEvery = 1024
)

// Deps are the collaborators of a run. Zero fields get defaults: a nop
// logger, unregistered metrics and the real clock.
type Deps struct {
	Logger  *zap.Logger
	Metrics *Metrics
	Clock   clockwork.Clock
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Metrics == nil {
		d.Metrics = NewMetrics(nil)
	}
	if d.Clock == nil {
		d.Clock = clockwork.NewRealClock()
	}
	return d
}

// Run spawns cfg.Threads workers, worker i using lock identity i, and has
// each of them repeatedly increment a SharedCounter under the lock.
//
// Cancelling ctx stops workers between critical sections; a worker never
// abandons a Lock call in progress. The report is returned even when the
// run was interrupted.
func Run(ctx context.Context, cfg Config, deps Deps) (*Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	deps = deps.withDefaults()
	log, m, clock := deps.Logger, deps.Metrics, deps.Clock

	lock := bakery.New(cfg.Threads, bakery.WithMaxTicket(cfg.MaxTicket))
	var counter SharedCounter
	acquisitions := make([]uint64, cfg.Threads)
	hists := make([]*hdrhistogram.Histogram, cfg.Threads)

	log.Info("starting run",
		zap.Int("threads", cfg.Threads),
		zap.Int("iterations", cfg.Iterations),
		zap.Duration("duration", time.Duration(cfg.Duration)),
		zap.Uint32("max_ticket", cfg.MaxTicket))

	start := clock.Now()
	deadline := start.Add(time.Duration(cfg.Duration))
	timed := cfg.Duration > 0

	m.workers.Set(float64(cfg.Threads))
	g, gctx := errgroup.WithContext(ctx)
	for id := range cfg.Threads {
		hg := hdrhistogram.New(1, maxLatencyMicros, latencySigFigs)
		hists[id] = hg
		entered := m.acquisitions.WithLabelValues(strconv.Itoa(id))

		g.Go(func() error {
			defer m.workers.Dec()
			log.Debug("worker startup", zap.Int("worker", id))

			var n uint64
			for {
				if timed {
					if !clock.Now().Before(deadline) {
						break
					}
				} else if n == uint64(cfg.Iterations) {
					break
				}
				if n%ctxCheckEvery == 0 {
					if err := gctx.Err(); err != nil {
						acquisitions[id] = n
						return err
					}
				}

				sample := n%uint64(cfg.LatencySample) == 0
				var t0 time.Time
				if sample {
					t0 = clock.Now()
				}
				lock.Lock(id)
				var waited time.Duration
				if sample {
					waited = clock.Since(t0)
				}
				counter.Add(1)
				lock.Unlock(id)

				n++
				entered.Inc()
				if sample {
					m.acquire.Observe(waited.Seconds())
					_ = hg.RecordValue(min(waited.Microseconds(), maxLatencyMicros))
				}
			}
			acquisitions[id] = n
			log.Debug("worker done", zap.Int("worker", id), zap.Uint64("acquisitions", n))
			return nil
		})
	}
	err := g.Wait()
	elapsed := clock.Since(start)

	r := newReport(cfg, lock, counter.Load(), acquisitions, hists, elapsed)
	m.drains.Add(float64(lock.TotalDrains()))

	log.Info("run finished",
		zap.Int("counter", r.Counter),
		zap.Uint64("drains", lock.TotalDrains()),
		zap.Duration("elapsed", elapsed))

	if err != nil {
		return r, fmt.Errorf("harness: run interrupted: %w", err)
	}
	return r, nil
}
