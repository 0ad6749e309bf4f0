package services

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/ruralpay/atm/internal/config"
	"github.com/ruralpay/atm/internal/database"
	"github.com/ruralpay/atm/internal/logging"
	"github.com/ruralpay/atm/internal/metrics"
	"go.uber.org/zap"
)

// RetryPolicy bounds every storage operation
type RetryPolicy struct {
	MaxRetries     int
	OpTimeout      time.Duration
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryPolicy matches the configuration defaults
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:     3,
		OpTimeout:      2 * time.Second,
		InitialBackoff: 20 * time.Millisecond,
		MaxBackoff:     500 * time.Millisecond,
	}
}

// RetryPolicyFromConfig converts the ledger config section
func RetryPolicyFromConfig(cfg config.LedgerConfig) RetryPolicy {
	return RetryPolicy{
		MaxRetries:     cfg.MaxRetries,
		OpTimeout:      cfg.OpTimeout,
		InitialBackoff: cfg.InitialBackoff,
		MaxBackoff:     cfg.MaxBackoff,
	}
}

// retrier runs a storage operation under a per-attempt timeout and retries
// it with exponential backoff while the failure is transient
type retrier struct {
	policy  RetryPolicy
	metrics metrics.Recorder
	logger  *logging.Logger
}

func (r *retrier) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.policy.InitialBackoff
	b.MaxInterval = r.policy.MaxBackoff
	return b
}

// run calls fn until it succeeds, fails permanently, or the retry budget is
// spent. Domain errors are returned as they are; exhausted transient
// failures become a retryable storage_unavailable ServiceError.
func (r *retrier) run(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	var (
		attempt   int
		permanent error
	)

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		if attempt > 1 {
			r.metrics.IncRetry(op)
		}

		attemptCtx, cancel := context.WithTimeout(ctx, r.policy.OpTimeout)
		defer cancel()

		err := fn(attemptCtx)
		if err == nil {
			return struct{}{}, nil
		}

		if isDomainError(err) || ctx.Err() != nil || !r.transient(attemptCtx, err) {
			permanent = err
			return struct{}{}, backoff.Permanent(err)
		}

		r.logger.Warn("transient storage failure",
			zap.String("operation", op),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		return struct{}{}, err
	},
		backoff.WithBackOff(r.newBackOff()),
		backoff.WithMaxTries(uint(r.policy.MaxRetries)+1),
	)

	switch {
	case err == nil:
		return nil
	case permanent != nil && ctx.Err() == nil:
		if isDomainError(permanent) {
			return permanent
		}
		return internalError(op, permanent)
	default:
		return storageUnavailable(op, err)
	}
}

func (r *retrier) transient(attemptCtx context.Context, err error) bool {
	if database.IsTransient(err) {
		return true
	}
	return errors.Is(attemptCtx.Err(), context.DeadlineExceeded)
}
