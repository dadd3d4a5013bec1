package harness

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	AcquisitionsH = "The total number of critical sections entered, per worker"
	AcquisitionsN = "bakery_acquisitions_total"
	DrainsH       = "The total number of doorway back-offs caused by the ticket ceiling"
	DrainsN       = "bakery_overflow_drains_total"
	WorkersH      = "The number of workers currently contending for the lock"
	WorkersN      = "bakery_workers"
	AcquireH      = "Sampled time spent in Lock, in seconds"
	AcquireN      = "bakery_acquire_seconds"
)

// Metrics groups the harness collectors.
type Metrics struct {
	acquisitions *prometheus.CounterVec
	drains       prometheus.Counter
	workers      prometheus.Gauge
	acquire      prometheus.Histogram
}

// NewMetrics registers the harness collectors with reg. A nil reg yields
// working but unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		acquisitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: AcquisitionsN,
			Help: AcquisitionsH,
		}, []string{"worker"}),
		drains: f.NewCounter(prometheus.CounterOpts{
			Name: DrainsN,
			Help: DrainsH,
		}),
		workers: f.NewGauge(prometheus.GaugeOpts{
			Name: WorkersN,
			Help: WorkersH,
		}),
		acquire: f.NewHistogram(prometheus.HistogramOpts{
			Name:    AcquireN,
			Help:    AcquireH,
			Buckets: prometheus.ExponentialBuckets(1e-7, 4, 12),
		}),
	}
}
