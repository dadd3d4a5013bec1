package harness

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"gonum.org/v1/gonum/stat"

	"github.com/llxisdsh/bakery"
)

// ErrLostUpdate means the shared counter disagrees with the number of
// critical sections the workers entered.
var ErrLostUpdate = errors.New("harness: lost update")

// Report summarizes one run.
type Report struct {
	Threads int
	// Counter is the final value of the shared counter.
	Counter int
	// Expected is Threads*Iterations in iteration mode, zero in timed mode.
	Expected     int
	Acquisitions []uint64
	Drains       []uint64
	Elapsed      time.Duration
	Latency      LatencySummary
	Fairness     FairnessSummary

	// Histogram holds the merged sampled acquire latencies in microseconds.
	Histogram *hdrhistogram.Histogram
}

// LatencySummary holds sampled acquire latencies in microseconds.
type LatencySummary struct {
	Samples int64
	P50     int64
	P99     int64
	P999    int64
	Max     int64
}

// FairnessSummary describes how evenly critical sections were spread over
// workers.
type FairnessSummary struct {
	Mean   float64
	StdDev float64
	// CV is StdDev/Mean; zero is perfectly even.
	CV float64
}

func newReport(
	cfg Config,
	lock *bakery.Lock,
	counter int,
	acquisitions []uint64,
	hists []*hdrhistogram.Histogram,
	elapsed time.Duration,
) *Report {
	r := &Report{
		Threads:      cfg.Threads,
		Counter:      counter,
		Acquisitions: acquisitions,
		Drains:       make([]uint64, cfg.Threads),
		Elapsed:      elapsed,
		Histogram:    hdrhistogram.New(1, maxLatencyMicros, latencySigFigs),
	}
	if cfg.Duration == 0 {
		r.Expected = cfg.Threads * cfg.Iterations
	}
	for id := range cfg.Threads {
		r.Drains[id] = lock.Drains(id)
	}
	for _, h := range hists {
		r.Histogram.Merge(h)
	}
	r.Latency = LatencySummary{
		Samples: r.Histogram.TotalCount(),
		P50:     r.Histogram.ValueAtQuantile(50),
		P99:     r.Histogram.ValueAtQuantile(99),
		P999:    r.Histogram.ValueAtQuantile(99.9),
		Max:     r.Histogram.Max(),
	}
	r.Fairness = fairness(acquisitions)
	return r
}

func fairness(acquisitions []uint64) FairnessSummary {
	xs := make([]float64, len(acquisitions))
	for i, n := range acquisitions {
		xs[i] = float64(n)
	}
	var f FairnessSummary
	if len(xs) < 2 {
		if len(xs) == 1 {
			f.Mean = xs[0]
		}
		return f
	}
	f.Mean, f.StdDev = stat.MeanStdDev(xs, nil)
	if f.Mean > 0 && !math.IsNaN(f.StdDev) {
		f.CV = f.StdDev / f.Mean
	}
	return f
}

// Total returns the number of critical sections entered by all workers.
func (r *Report) Total() uint64 {
	var n uint64
	for _, a := range r.Acquisitions {
		n += a
	}
	return n
}

// Check returns ErrLostUpdate when the counter does not account for every
// critical section.
func (r *Report) Check() error {
	if total := r.Total(); uint64(r.Counter) != total {
		return fmt.Errorf("%w: counter %d, acquisitions %d", ErrLostUpdate, r.Counter, total)
	}
	if r.Expected != 0 && r.Counter != r.Expected {
		return fmt.Errorf("%w: counter %d, want %d", ErrLostUpdate, r.Counter, r.Expected)
	}
	return nil
}

// WriteTo prints a human readable summary.
func (r *Report) WriteTo(w io.Writer) (int64, error) {
	var drains uint64
	for _, d := range r.Drains {
		drains += d
	}
	var b bytes.Buffer
	fmt.Fprintf(&b, "counter:    %d\n", r.Counter)
	fmt.Fprintf(&b, "threads:    %d\n", r.Threads)
	fmt.Fprintf(&b, "elapsed:    %s\n", r.Elapsed)
	fmt.Fprintf(&b, "drains:     %d\n", drains)
	fmt.Fprintf(&b, "acquire us: p50=%d p99=%d p999=%d max=%d (%d samples)\n",
		r.Latency.P50, r.Latency.P99, r.Latency.P999, r.Latency.Max, r.Latency.Samples)
	fmt.Fprintf(&b, "fairness:   mean=%.1f stddev=%.1f cv=%.4f\n",
		r.Fairness.Mean, r.Fairness.StdDev, r.Fairness.CV)
	return b.WriteTo(w)
}
