package repository

import (
	"context"
	"fmt"

	"github.com/ruralpay/atm/internal/database"
	"github.com/ruralpay/atm/internal/models"
)

// OwnerRepository defines the interface for owner data access
type OwnerRepository interface {
	Create(ctx context.Context, name, email string) (*models.Owner, error)
	Delete(ctx context.Context, id int64) error
}

type ownerRepository struct {
	q database.Querier
}

// NewOwnerRepository creates an OwnerRepository over a DB or a Tx
func NewOwnerRepository(q database.Querier) OwnerRepository {
	return &ownerRepository{q: q}
}

func (r *ownerRepository) Create(ctx context.Context, name, email string) (*models.Owner, error) {
	owner := models.Owner{Name: name, Email: email}
	err := r.q.QueryRowContext(ctx,
		`INSERT INTO users (name, email) VALUES ($1, $2) RETURNING user_id`, name, email,
	).Scan(&owner.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create owner: %w", database.MapDBError(err))
	}
	return &owner, nil
}

// Delete removes an owner together with their accounts and cards
func (r *ownerRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM users WHERE user_id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete owner: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("owner %d: %w", id, models.ErrNotFound)
	}
	return nil
}
