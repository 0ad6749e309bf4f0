package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ruralpay/atm/internal/database"
	"github.com/ruralpay/atm/internal/models"
)

// CardRepository defines the interface for card data access
type CardRepository interface {
	FindByCredentials(ctx context.Context, number, cvc, expiration, pin string) (*models.CardMatch, error)
	FindPinForUpdate(ctx context.Context, cardID int64) (string, error)
	UpdatePin(ctx context.Context, cardID int64, pin string) error
	Create(ctx context.Context, card *models.Card) error
}

type cardRepository struct {
	q database.Querier
}

// NewCardRepository creates a CardRepository over a DB or a Tx
func NewCardRepository(q database.Querier) CardRepository {
	return &cardRepository{q: q}
}

// FindByCredentials matches all four presented values exactly against one
// card and resolves the account and owner it belongs to
func (r *cardRepository) FindByCredentials(ctx context.Context, number, cvc, expiration, pin string) (*models.CardMatch, error) {
	query := `
		SELECT c.card_id, a.account_id, a.user_id
		FROM cards c
		JOIN accounts a ON a.account_id = c.account_id
		WHERE c.card_number = $1
		  AND c.cvc = $2
		  AND c.expiration_date = $3
		  AND c.pin = $4`

	var match models.CardMatch
	err := r.q.QueryRowContext(ctx, query, number, cvc, expiration, pin).Scan(
		&match.CardID,
		&match.AccountID,
		&match.OwnerID,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("card: %w", models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to match card credentials: %w", err)
	}

	return &match, nil
}

// FindPinForUpdate reads the stored PIN of a card and locks its row
func (r *cardRepository) FindPinForUpdate(ctx context.Context, cardID int64) (string, error) {
	query := `SELECT pin FROM cards WHERE card_id = $1` + r.q.Dialect().ForUpdate()

	var pin string
	err := r.q.QueryRowContext(ctx, query, cardID).Scan(&pin)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("card %d: %w", cardID, models.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read card pin: %w", err)
	}

	return pin, nil
}

// UpdatePin replaces the stored PIN of a card
func (r *cardRepository) UpdatePin(ctx context.Context, cardID int64, pin string) error {
	result, err := r.q.ExecContext(ctx, `UPDATE cards SET pin = $1 WHERE card_id = $2`, pin, cardID)
	if err != nil {
		return fmt.Errorf("failed to update card pin: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("card %d: %w", cardID, models.ErrNotFound)
	}

	return nil
}

// Create issues a card against an account and sets card.ID
func (r *cardRepository) Create(ctx context.Context, card *models.Card) error {
	query := `
		INSERT INTO cards (account_id, card_company, cardholder_name, card_type,
		                   card_number, expiration_date, cvc, pin)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING card_id`

	err := r.q.QueryRowContext(ctx, query,
		card.AccountID,
		card.Company,
		card.HolderName,
		card.Type,
		card.Number,
		card.Expiration,
		card.CVC,
		card.PIN,
	).Scan(&card.ID)
	if err != nil {
		return fmt.Errorf("failed to create card: %w", database.MapDBError(err))
	}

	return nil
}
