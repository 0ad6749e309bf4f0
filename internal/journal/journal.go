// Package journal publishes committed ledger events to audit sinks.
package journal

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/ruralpay/atm/internal/models"
)

// EventType names the ledger operation an event records
type EventType string

const (
	EventWithdraw  EventType = "WITHDRAW"
	EventDeposit   EventType = "DEPOSIT"
	EventTransfer  EventType = "TRANSFER"
	EventPinChange EventType = "PIN_CHANGE"
)

// Event describes one committed ledger operation. It never carries card
// credentials.
type Event struct {
	ID             string        `json:"id"`
	TransactionID  string        `json:"transaction_id"`
	Type           EventType     `json:"type"`
	AccountID      int64         `json:"account_id"`
	CounterpartyID int64         `json:"counterparty_id,omitempty"`
	Amount         models.Amount `json:"amount_cents"`
	BalanceAfter   models.Amount `json:"balance_after_cents"`
	OccurredAt     time.Time     `json:"occurred_at"`
}

// NewEvent stamps an event with a fresh id and the current time
func NewEvent(eventType EventType, transactionID string, accountID int64) Event {
	return Event{
		ID:            uuid.NewString(),
		TransactionID: transactionID,
		Type:          eventType,
		AccountID:     accountID,
		OccurredAt:    time.Now().UTC(),
	}
}

// Journal receives events after their transaction has committed
type Journal interface {
	Publish(ctx context.Context, event Event) error
}

// Multi fans an event out to several journals
type Multi []Journal

func (m Multi) Publish(ctx context.Context, event Event) error {
	var errs []error
	for _, j := range m {
		if err := j.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard drops every event
type Discard struct{}

func (Discard) Publish(context.Context, Event) error { return nil }
