package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder with prometheus collectors
type PrometheusRecorder struct {
	operations      *prometheus.CounterVec
	duration        *prometheus.HistogramVec
	retries         *prometheus.CounterVec
	journalFailures *prometheus.CounterVec
}

// NewPrometheusRecorder creates the collectors under the given namespace
func NewPrometheusRecorder(namespace string) *PrometheusRecorder {
	return &PrometheusRecorder{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ledger_operations_total",
				Help:      "Total number of ledger operations per operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "ledger_operation_duration_seconds",
				Help:      "Ledger operation latency in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"operation"},
		),
		retries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ledger_retries_total",
				Help:      "Total number of retried storage attempts per operation",
			},
			[]string{"operation"},
		),
		journalFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "journal_failures_total",
				Help:      "Total number of ledger events that could not be published per sink",
			},
			[]string{"sink"},
		),
	}
}

// Register adds all collectors to a registry
func (p *PrometheusRecorder) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{p.operations, p.duration, p.retries, p.journalFailures} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (p *PrometheusRecorder) ObserveOperation(operation, outcome string, duration time.Duration) {
	p.operations.WithLabelValues(operation, outcome).Inc()
	p.duration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (p *PrometheusRecorder) IncRetry(operation string) {
	p.retries.WithLabelValues(operation).Inc()
}

func (p *PrometheusRecorder) IncJournalFailure(sink string) {
	p.journalFailures.WithLabelValues(sink).Inc()
}
