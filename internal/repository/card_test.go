package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ruralpay/atm/internal/database"
	"github.com/ruralpay/atm/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCardRepository_FindByCredentials(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewCardRepository(db)

	mock.ExpectQuery(`FROM cards c\s+JOIN accounts a`).
		WithArgs("3705113944732746", "123", "12/28", "1234").
		WillReturnRows(sqlmock.NewRows([]string{"card_id", "account_id", "user_id"}).
			AddRow(int64(1), int64(1), int64(1)))

	match, err := repo.FindByCredentials(context.Background(), "3705113944732746", "123", "12/28", "1234")
	require.NoError(t, err)
	assert.Equal(t, &models.CardMatch{CardID: 1, AccountID: 1, OwnerID: 1}, match)

	mock.ExpectQuery(`FROM cards c\s+JOIN accounts a`).
		WithArgs("3705113944732746", "123", "12/28", "0000").
		WillReturnError(sql.ErrNoRows)

	match, err = repo.FindByCredentials(context.Background(), "3705113944732746", "123", "12/28", "0000")
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.Nil(t, match)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCardRepository_Pin(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewCardRepository(db)

	mock.ExpectQuery(`SELECT pin FROM cards WHERE card_id = \$1 FOR UPDATE`).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"pin"}).AddRow("1234"))
	pin, err := repo.FindPinForUpdate(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, "1234", pin)

	mock.ExpectExec("UPDATE cards SET pin").
		WithArgs("4321", int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdatePin(context.Background(), 4, "4321"))

	mock.ExpectExec("UPDATE cards SET pin").
		WithArgs("4321", int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.UpdatePin(context.Background(), 5, "4321"), models.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCardRepository_SQLite(t *testing.T) {
	db := setupSQLite(t)
	ctx := context.Background()

	owner, err := NewOwnerRepository(db).Create(ctx, "Alice", "alice@example.com")
	require.NoError(t, err)
	account, err := NewAccountRepository(db).Create(ctx, owner.ID, models.AccountTypeChecking, 0)
	require.NoError(t, err)

	cards := NewCardRepository(db)
	card := &models.Card{
		AccountID:  account.ID,
		Company:    "American Express",
		HolderName: "Alice",
		Type:       "Credit",
		Number:     "3705113944732746",
		Expiration: "12/28",
		CVC:        "123",
		PIN:        "1234",
	}
	require.NoError(t, cards.Create(ctx, card))
	assert.NotZero(t, card.ID)

	dup := *card
	assert.ErrorIs(t, cards.Create(ctx, &dup), database.ErrDuplicate)

	match, err := cards.FindByCredentials(ctx, "3705113944732746", "123", "12/28", "1234")
	require.NoError(t, err)
	assert.Equal(t, models.CardMatch{CardID: card.ID, AccountID: account.ID, OwnerID: owner.ID}, *match)

	// exact string equality only
	for _, pin := range []string{"1235", " 1234", "01234"} {
		_, err := cards.FindByCredentials(ctx, "3705113944732746", "123", "12/28", pin)
		assert.ErrorIs(t, err, models.ErrNotFound, pin)
	}

	require.NoError(t, cards.UpdatePin(ctx, card.ID, "4321"))
	pin, err := cards.FindPinForUpdate(ctx, card.ID)
	require.NoError(t, err)
	assert.Equal(t, "4321", pin)
}
