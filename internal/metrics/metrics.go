// Package metrics holds marcoutd's custom Prometheus collectors,
// adapted from the teacher's internal/services/metrics.go shape
// (promauto-registered counters/histograms, one global instance) but
// scoped to export-pipeline concerns instead of chat/websocket ones.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the export engine's Prometheus collectors.
type Metrics struct {
	RecordsProcessed prometheus.Counter
	FieldsSkipped    *prometheus.CounterVec
	CodecErrors      prometheus.Counter
	ParseDuration    prometheus.Histogram
}

var global *Metrics

// Init registers the collectors and stores the global instance.
func Init() *Metrics {
	m := &Metrics{
		RecordsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "marcout_records_processed_total",
			Help: "Total number of records evaluated across all export requests",
		}),
		FieldsSkipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "marcout_fields_skipped_total",
			Help: "Total number of fields skipped due to recoverable evaluation errors, by reason",
		}, []string{"reason"}),
		CodecErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "marcout_codec_errors_total",
			Help: "Total number of ISO 2709 encode/decode failures",
		}),
		ParseDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "marcout_dsl_parse_duration_seconds",
			Help:    "Time to compile a MARCout export definition into an Engine",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
	}
	global = m
	return m
}

// Get returns the global instance, or nil if Init was never called.
func Get() *Metrics { return global }
