// Package repository provides the data access layer for the ledger.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ruralpay/atm/internal/database"
	"github.com/ruralpay/atm/internal/models"
)

// AccountRepository defines the interface for account data access
type AccountRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Account, error)
	FindByIDForUpdate(ctx context.Context, id int64) (*models.Account, error)
	UpdateBalance(ctx context.Context, id int64, balance models.Amount) error
	ListByOwner(ctx context.Context, ownerID int64) ([]models.AccountSummary, error)
	Create(ctx context.Context, ownerID int64, accountType models.AccountType, balance models.Amount) (*models.Account, error)
	Delete(ctx context.Context, id int64) error
}

type accountRepository struct {
	q database.Querier
}

// NewAccountRepository creates an AccountRepository over a DB or a Tx
func NewAccountRepository(q database.Querier) AccountRepository {
	return &accountRepository{q: q}
}

const selectAccount = `
		SELECT account_id, user_id, account_type, balance
		FROM accounts
		WHERE account_id = $1`

// FindByID retrieves an account without locking it
func (r *accountRepository) FindByID(ctx context.Context, id int64) (*models.Account, error) {
	return r.find(ctx, selectAccount, id)
}

// FindByIDForUpdate retrieves an account and locks its row until the
// surrounding transaction ends
func (r *accountRepository) FindByIDForUpdate(ctx context.Context, id int64) (*models.Account, error) {
	return r.find(ctx, selectAccount+r.q.Dialect().ForUpdate(), id)
}

func (r *accountRepository) find(ctx context.Context, query string, id int64) (*models.Account, error) {
	var account models.Account
	err := r.q.QueryRowContext(ctx, query, id).Scan(
		&account.ID,
		&account.OwnerID,
		&account.Type,
		&account.Balance,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("account %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find account by id: %w", err)
	}

	return &account, nil
}

// UpdateBalance stores the new balance of an account
func (r *accountRepository) UpdateBalance(ctx context.Context, id int64, balance models.Amount) error {
	query := `UPDATE accounts SET balance = $1 WHERE account_id = $2`

	result, err := r.q.ExecContext(ctx, query, balance.Cents(), id)
	if err != nil {
		return fmt.Errorf("failed to update account balance: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("account %d: %w", id, models.ErrNotFound)
	}

	return nil
}

// ListByOwner returns every account of an owner ordered by account id
func (r *accountRepository) ListByOwner(ctx context.Context, ownerID int64) ([]models.AccountSummary, error) {
	query := `
		SELECT account_id, account_type
		FROM accounts
		WHERE user_id = $1
		ORDER BY account_id`

	rows, err := r.q.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	summaries := []models.AccountSummary{}
	for rows.Next() {
		var s models.AccountSummary
		if err := rows.Scan(&s.ID, &s.Type); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate accounts: %w", err)
	}

	return summaries, nil
}

// Create opens an account for an existing owner
func (r *accountRepository) Create(ctx context.Context, ownerID int64, accountType models.AccountType, balance models.Amount) (*models.Account, error) {
	query := `
		INSERT INTO accounts (user_id, account_type, balance)
		VALUES ($1, $2, $3)
		RETURNING account_id`

	account := models.Account{OwnerID: ownerID, Type: accountType, Balance: balance}
	err := r.q.QueryRowContext(ctx, query, ownerID, string(accountType), balance.Cents()).Scan(&account.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", database.MapDBError(err))
	}

	return &account, nil
}

// Delete removes an account; its cards and ledger entries cascade
func (r *accountRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM accounts WHERE account_id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("account %d: %w", id, models.ErrNotFound)
	}
	return nil
}
