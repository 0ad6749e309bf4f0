package services

import (
	"time"

	"github.com/ruralpay/atm/internal/journal"
	"github.com/ruralpay/atm/internal/logging"
	"github.com/ruralpay/atm/internal/metrics"
)

// Option configures a service
type Option func(*serviceOptions)

type serviceOptions struct {
	retry   RetryPolicy
	journal journal.Journal
	metrics metrics.Recorder
	logger  *logging.Logger
	now     func() time.Time
}

func defaultOptions() serviceOptions {
	return serviceOptions{
		retry:   DefaultRetryPolicy(),
		journal: journal.Discard{},
		metrics: metrics.NoOpRecorder{},
		logger:  logging.NewNoOpLogger(),
		now:     time.Now,
	}
}

func applyOptions(opts []Option) serviceOptions {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o serviceOptions) retrier() *retrier {
	return &retrier{policy: o.retry, metrics: o.metrics, logger: o.logger}
}

// WithRetryPolicy overrides the storage retry policy
func WithRetryPolicy(p RetryPolicy) Option {
	return func(o *serviceOptions) { o.retry = p }
}

// WithJournal sets where committed ledger events are published
func WithJournal(j journal.Journal) Option {
	return func(o *serviceOptions) {
		if j != nil {
			o.journal = j
		}
	}
}

func WithMetrics(m metrics.Recorder) Option {
	return func(o *serviceOptions) {
		if m != nil {
			o.metrics = m
		}
	}
}

func WithLogger(l *logging.Logger) Option {
	return func(o *serviceOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock replaces time.Now for ledger entry timestamps
func WithClock(now func() time.Time) Option {
	return func(o *serviceOptions) { o.now = now }
}
