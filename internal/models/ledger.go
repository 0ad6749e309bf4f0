package models

import (
	"time"
)

// EntryType is the direction of a ledger entry
type EntryType string

const (
	EntryTypeDebit  EntryType = "DEBIT"
	EntryTypeCredit EntryType = "CREDIT"
)

// LedgerEntry records one leg of a balance mutation. Amount is always
// positive; the direction is carried by EntryType.
type LedgerEntry struct {
	ID            int64     `json:"id" db:"entry_id"`
	TransactionID string    `json:"transaction_id" db:"transaction_id"`
	AccountID     int64     `json:"account_id" db:"account_id"`
	EntryType     EntryType `json:"entry_type" db:"entry_type"`
	Amount        Amount    `json:"amount" db:"amount"` // in cents
	BalanceAfter  Amount    `json:"balance_after" db:"balance_after"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// Signed returns the entry amount with its direction applied
func (e LedgerEntry) Signed() Amount {
	if e.EntryType == EntryTypeDebit {
		return -e.Amount
	}
	return e.Amount
}
