package journal

import (
	"context"

	"github.com/ruralpay/atm/internal/logging"
	"go.uber.org/zap"
)

// AuditLogger writes every event as a structured audit log line
type AuditLogger struct {
	logger *logging.Logger
}

func NewAuditLogger(logger *logging.Logger) *AuditLogger {
	return &AuditLogger{logger: logger.Named("audit")}
}

func (a *AuditLogger) Publish(_ context.Context, event Event) error {
	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.String("transaction_id", event.TransactionID),
		zap.Int64("account_id", event.AccountID),
		zap.Time("occurred_at", event.OccurredAt),
	}
	if event.CounterpartyID != 0 {
		fields = append(fields, zap.Int64("counterparty_id", event.CounterpartyID))
	}
	if event.Type != EventPinChange {
		fields = append(fields,
			zap.Int64("amount_cents", event.Amount.Cents()),
			zap.Int64("balance_after_cents", event.BalanceAfter.Cents()),
		)
	}

	a.logger.Info("AUDIT", fields...)
	return nil
}
