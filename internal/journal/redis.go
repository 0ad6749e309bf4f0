package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/ruralpay/atm/internal/logging"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// RedisConfig bounds the event list and the breaker around it
type RedisConfig struct {
	Key    string
	MaxLen int64
	// breaker opens after this many consecutive failures
	MaxFailures uint32
	// how long the breaker stays open before probing again
	OpenTimeout time.Duration
}

// RedisJournal appends events to a capped Redis list. A nil client
// disables it.
type RedisJournal struct {
	client *redis.Client
	config RedisConfig
	cb     *gobreaker.CircuitBreaker
	logger *logging.Logger
}

func NewRedisJournal(client *redis.Client, config RedisConfig, logger *logging.Logger) *RedisJournal {
	if config.MaxFailures == 0 {
		config.MaxFailures = 5
	}
	if config.OpenTimeout <= 0 {
		config.OpenTimeout = 30 * time.Second
	}
	logger = logger.Named("journal")

	settings := gobreaker.Settings{
		Name:    "redis-journal",
		Timeout: config.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.MaxFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &RedisJournal{
		client: client,
		config: config,
		cb:     gobreaker.NewCircuitBreaker(settings),
		logger: logger,
	}
}

// Enabled reports whether a client is configured
func (j *RedisJournal) Enabled() bool {
	return j.client != nil
}

func (j *RedisJournal) Publish(ctx context.Context, event Event) error {
	if !j.Enabled() {
		return nil
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode ledger event: %w", err)
	}

	_, err = j.cb.Execute(func() (interface{}, error) {
		if err := j.client.RPush(ctx, j.config.Key, string(payload)).Err(); err != nil {
			return nil, err
		}
		return nil, j.client.LTrim(ctx, j.config.Key, -j.config.MaxLen, -1).Err()
	})
	if err != nil {
		return fmt.Errorf("failed to publish ledger event %s: %w", event.ID, err)
	}

	j.logger.Debug("ledger event queued",
		zap.String("event_id", event.ID),
		zap.String("key", j.config.Key),
	)
	return nil
}

// State exposes the breaker state for diagnostics
func (j *RedisJournal) State() gobreaker.State {
	return j.cb.State()
}
