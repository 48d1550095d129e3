package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Error kinds used as the "kind" label of treeclean_errors_total
var ErrorKinds = []string{"access", "not_found", "filesystem", "safety"}

// Set holds the metrics of one cleaning run. Each Set owns its registry so
// a one-shot process can dump exactly what it did to a textfile.
type Set struct {
	registry *prometheus.Registry

	// EntriesDeleted counts files and directories removed
	EntriesDeleted prometheus.Counter

	// BytesFreed sums the sizes of removed entries
	BytesFreed prometheus.Counter

	// EntriesRetained counts candidate directories kept because something inside survived
	EntriesRetained prometheus.Counter

	// Errors counts failures by kind
	Errors *prometheus.CounterVec

	// RunDuration tracks how long cleaning runs take
	RunDuration prometheus.Histogram

	// LastRunTimestamp records Unix timestamp of the last run
	LastRunTimestamp prometheus.Gauge

	// LastRunSuccess is 1 when the last run finished without failures
	LastRunSuccess prometheus.Gauge
}

// New creates and registers a metric set on reg.
func New(reg *prometheus.Registry) *Set {
	s := &Set{
		registry: reg,
		EntriesDeleted: counter(
			"entries_deleted_total",
			"Total number of files and directories deleted.",
		),
		BytesFreed: counter(
			"bytes_freed_total",
			"Total bytes freed by deleted entries.",
		),
		EntriesRetained: counter(
			"entries_retained_total",
			"Candidate directories kept because they were not empty after cleanup.",
		),
		Errors: counterVec(
			"errors_total",
			"Total number of errors by kind.",
			"kind",
		),
		RunDuration: secondsHistogram(
			"run_duration_seconds",
			"Duration of cleaning runs in seconds.",
		),
		LastRunTimestamp: gauge(
			"last_run_timestamp",
			"Timestamp of the last cleaning run (Unix epoch seconds).",
		),
		LastRunSuccess: gauge(
			"last_run_success",
			"1 if the last cleaning run finished without failures, 0 otherwise.",
		),
	}

	reg.MustRegister(
		s.EntriesDeleted,
		s.BytesFreed,
		s.EntriesRetained,
		s.Errors,
		s.RunDuration,
		s.LastRunTimestamp,
		s.LastRunSuccess,
	)

	// Pre-create every error series so a clean run still exports zeros
	for _, kind := range ErrorKinds {
		s.Errors.WithLabelValues(kind)
	}

	return s
}

// RecordRun stores duration, timestamp and outcome of a finished run.
func (s *Set) RecordRun(finished time.Time, took time.Duration, ok bool) {
	s.RunDuration.Observe(took.Seconds())
	s.LastRunTimestamp.Set(float64(finished.Unix()))
	if ok {
		s.LastRunSuccess.Set(1)
	} else {
		s.LastRunSuccess.Set(0)
	}
}

// WriteTextfile writes all metrics in text exposition format for the
// node_exporter textfile collector. The file is replaced atomically.
func (s *Set) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, s.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
