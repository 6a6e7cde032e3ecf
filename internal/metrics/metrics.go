// =============================================================================
// DMARC Report Parser - Run Metrics
// =============================================================================
//
// This module counts what a process run did and writes the counters in the
// Prometheus text format, for node_exporter's textfile collector. Nothing is
// served over HTTP; a batch run is too short-lived to be scraped.
//
// METRICS:
//   dmarc_reports_processed_total{status}  reports by outcome (success/failure)
//   dmarc_records_parsed_total             records across successful reports
//   dmarc_report_parse_seconds             per-report processing time
//
// =============================================================================

package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Report outcomes used as the status label.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Recorder owns a private registry with the run metrics. It is safe for
// concurrent use.
type Recorder struct {
	registry *prometheus.Registry

	reportsTotal *prometheus.CounterVec
	recordsTotal prometheus.Counter
	parseSeconds prometheus.Histogram
}

// New creates a Recorder with every metric registered.
func New() (*Recorder, error) {
	r := &Recorder{
		// Custom registry, the default one carries Go runtime collectors.
		registry: prometheus.NewRegistry(),
	}

	r.reportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dmarc_reports_processed_total",
			Help: "Total number of DMARC aggregate reports processed",
		},
		[]string{"status"},
	)

	r.recordsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dmarc_records_parsed_total",
			Help: "Total number of <record> elements turned into table rows",
		},
	)

	r.parseSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dmarc_report_parse_seconds",
			Help:    "Per-report processing time distribution in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		},
	)

	collectors := []prometheus.Collector{
		r.reportsTotal,
		r.recordsTotal,
		r.parseSeconds,
	}
	for _, c := range collectors {
		if err := r.registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metric: %w", err)
		}
	}

	// Expose both series from the start so a run with no failures still
	// writes a zero for them.
	r.reportsTotal.WithLabelValues(StatusSuccess)
	r.reportsTotal.WithLabelValues(StatusFailure)

	return r, nil
}

// ObserveSuccess records a report that produced a table of records rows.
func (r *Recorder) ObserveSuccess(records int, elapsed time.Duration) {
	r.reportsTotal.WithLabelValues(StatusSuccess).Inc()
	r.recordsTotal.Add(float64(records))
	r.parseSeconds.Observe(elapsed.Seconds())
}

// ObserveFailure records a report that could not be processed.
func (r *Recorder) ObserveFailure(elapsed time.Duration) {
	r.reportsTotal.WithLabelValues(StatusFailure).Inc()
	r.parseSeconds.Observe(elapsed.Seconds())
}

// Registry returns the registry holding the run metrics.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// WriteTextfile writes the metrics to path atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
