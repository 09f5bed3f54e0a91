// Package metrics exposes proofreading progress as Prometheus metrics and a
// JSON status document.
package metrics

import (
	"math"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/rtm0/oisst/internal/proofread"
)

const (
	namespace = "oisst"
	subsystem = "proofread"
)

// Check is the last outcome as reported by the status endpoint. JSON has no
// NaN, so a missing raw value is flagged instead.
type Check struct {
	proofread.Outcome
	RawMissing bool      `json:"raw_missing,omitempty"`
	At         time.Time `json:"at"`
}

// Status summarises a proofreading run.
type Status struct {
	RunID      string    `json:"run_id"`
	Started    time.Time `json:"started"`
	Checks     int       `json:"checks"`
	Mismatches int       `json:"mismatches"`
	LastError  string    `json:"last_error,omitempty"`
	Last       *Check    `json:"last,omitempty"`
}

// Recorder observes proofreading checks. It is safe for concurrent use.
type Recorder struct {
	registry *prometheus.Registry

	checks     prometheus.Counter
	mismatches prometheus.Counter
	errors     prometheus.Counter
	duration   prometheus.Histogram
	lastCheck  prometheus.Gauge
	absDiff    prometheus.Gauge

	mu     sync.Mutex
	status Status
	now    func() time.Time
}

// NewRecorder creates a recorder with its own registry.
func NewRecorder(runID string) *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		now:      time.Now,
	}
	r.status = Status{RunID: runID, Started: r.now().UTC()}

	auto := promauto.With(r.registry)
	r.checks = auto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "checks_total",
		Help:      "Total number of sampled cells compared",
	})
	r.mismatches = auto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "mismatches_total",
		Help:      "Total number of cells whose stored value differs from the dataset",
	})
	r.errors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "errors_total",
		Help:      "Total number of checks that could not be completed",
	})
	r.duration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "check_duration_seconds",
		Help:      "Time spent reading the dataset and the database for one check",
		Buckets:   prometheus.DefBuckets,
	})
	r.lastCheck = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "last_check_unixtime",
		Help:      "Unix time of the last completed check",
	})
	r.absDiff = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "abs_diff",
		Help:      "Absolute difference between stored and dataset value in the last check",
	})
	return r
}

// Registry returns the registry holding the recorder's collectors.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Observe implements proofread.Observer.
func (r *Recorder) Observe(o proofread.Outcome, took time.Duration) {
	now := r.now()
	r.checks.Inc()
	if !o.Match {
		r.mismatches.Inc()
	}
	r.duration.Observe(took.Seconds())
	r.lastCheck.Set(float64(now.Unix()))

	c := Check{Outcome: o, At: now.UTC()}
	if math.IsNaN(o.Raw) {
		c.Raw = 0
		c.RawMissing = true
	} else {
		r.absDiff.Set(math.Abs(o.Stored - o.Raw))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.status.Checks++
	if !o.Match {
		r.status.Mismatches++
	}
	r.status.Last = &c
}

// Failed implements proofread.Observer.
func (r *Recorder) Failed(err error) {
	r.errors.Inc()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.status.LastError = err.Error()
}

// Status returns a snapshot of the run.
func (r *Recorder) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.status
	if s.Last != nil {
		last := *s.Last
		s.Last = &last
	}
	return s
}
