package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/ruralpay/atm/internal/database"
	"github.com/ruralpay/atm/internal/models"
)

// LedgerRepository stores the DEBIT/CREDIT trail of every balance mutation
type LedgerRepository interface {
	Append(ctx context.Context, entry *models.LedgerEntry) error
	ListByAccount(ctx context.Context, accountID int64, limit int) ([]models.LedgerEntry, error)
}

type ledgerRepository struct {
	q database.Querier
}

// NewLedgerRepository creates a LedgerRepository over a DB or a Tx
func NewLedgerRepository(q database.Querier) LedgerRepository {
	return &ledgerRepository{q: q}
}

// Append writes one entry and sets entry.ID. created_at is stored as unix
// milliseconds so both dialects share a column type.
func (r *ledgerRepository) Append(ctx context.Context, entry *models.LedgerEntry) error {
	query := `
		INSERT INTO ledger_entries (transaction_id, account_id, entry_type, amount, balance_after, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING entry_id`

	err := r.q.QueryRowContext(ctx, query,
		entry.TransactionID,
		entry.AccountID,
		string(entry.EntryType),
		entry.Amount.Cents(),
		entry.BalanceAfter.Cents(),
		entry.CreatedAt.UnixMilli(),
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", database.MapDBError(err))
	}

	return nil
}

// ListByAccount returns the newest entries of an account first
func (r *ledgerRepository) ListByAccount(ctx context.Context, accountID int64, limit int) ([]models.LedgerEntry, error) {
	query := `
		SELECT entry_id, transaction_id, account_id, entry_type, amount, balance_after, created_at
		FROM ledger_entries
		WHERE account_id = $1
		ORDER BY entry_id DESC
		LIMIT $2`

	rows, err := r.q.QueryContext(ctx, query, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	defer rows.Close()

	entries := []models.LedgerEntry{}
	for rows.Next() {
		var (
			e         models.LedgerEntry
			createdAt int64
		)
		if err := rows.Scan(
			&e.ID,
			&e.TransactionID,
			&e.AccountID,
			&e.EntryType,
			&e.Amount,
			&e.BalanceAfter,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		e.CreatedAt = time.UnixMilli(createdAt).UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ledger entries: %w", err)
	}

	return entries, nil
}
