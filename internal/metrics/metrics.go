// Package metrics records operational counters and timings for csvsplit
// runs behind a small pluggable Backend.
//
// The global backend defaults to a no-op, so instrumentation is always safe
// to call. Concrete systems (Prometheus Pushgateway, DogStatsD) live in
// subpackages and are installed by the command with SetBackend.
package metrics

import (
	"sync"
	"time"
)

// Metric names emitted by the helpers below.
const (
	StepTotal           = "csvsplit_step_total"
	StepDurationSeconds = "csvsplit_step_duration_seconds"
	RecordsTotal        = "csvsplit_records_total"
	ChunksTotal         = "csvsplit_chunks_total"
)

// Step names passed to RecordStep by the pipeline.
const (
	StepHeaderScan = "header_scan"
	StepConvert    = "convert"
)

// Record kinds passed to RecordRow by the pipeline.
const (
	KindRead            = "read"
	KindWritten         = "written"
	KindDateParseFailed = "date_parse_failed"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	mu.Lock()
	backend = b
	mu.Unlock()
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// Flush delegates to the current backend.
func Flush() error {
	return current().Flush()
}

// RecordStep counts one execution of a pipeline phase and observes its
// duration, labelled success or failure by err.
func RecordStep(job, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}

	lbls := Labels{
		"job":    job,
		"step":   step,
		"status": status,
	}

	b := current()
	b.IncCounter(StepTotal, 1, lbls)
	b.ObserveHistogram(StepDurationSeconds, d.Seconds(), lbls)
}

// RecordRow adds delta to the record counter for kind. Non-positive deltas
// are dropped.
func RecordRow(job, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	current().IncCounter(RecordsTotal, float64(delta), Labels{
		"job":  job,
		"kind": kind,
	})
}

// RecordChunks adds delta closed chunks for job, labelled with the chunking
// mode.
func RecordChunks(job, mode string, delta int64) {
	if delta <= 0 {
		return
	}
	current().IncCounter(ChunksTotal, float64(delta), Labels{
		"job":  job,
		"mode": mode,
	})
}

