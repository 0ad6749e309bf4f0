package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ruralpay/atm/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerRepository_Append(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewLedgerRepository(db)

	created := time.UnixMilli(1760000000000)
	mock.ExpectQuery("INSERT INTO ledger_entries").
		WithArgs("tx-1", int64(1), "DEBIT", int64(500), int64(199500), created.UnixMilli()).
		WillReturnRows(sqlmock.NewRows([]string{"entry_id"}).AddRow(int64(11)))

	entry := &models.LedgerEntry{
		TransactionID: "tx-1",
		AccountID:     1,
		EntryType:     models.EntryTypeDebit,
		Amount:        500,
		BalanceAfter:  199500,
		CreatedAt:     created,
	}
	require.NoError(t, repo.Append(context.Background(), entry))
	assert.Equal(t, int64(11), entry.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepository_SQLite(t *testing.T) {
	db := setupSQLite(t)
	ctx := context.Background()

	owner, err := NewOwnerRepository(db).Create(ctx, "Alice", "alice@example.com")
	require.NoError(t, err)
	account, err := NewAccountRepository(db).Create(ctx, owner.ID, models.AccountTypeChecking, 1000)
	require.NoError(t, err)

	repo := NewLedgerRepository(db)
	now := time.Now().UTC().Truncate(time.Millisecond)
	for i, amount := range []models.Amount{100, 250, 75} {
		require.NoError(t, repo.Append(ctx, &models.LedgerEntry{
			TransactionID: "tx",
			AccountID:     account.ID,
			EntryType:     models.EntryTypeCredit,
			Amount:        amount,
			BalanceAfter:  1000 + amount,
			CreatedAt:     now.Add(time.Duration(i) * time.Second),
		}))
	}

	// amounts must be positive
	err = repo.Append(ctx, &models.LedgerEntry{
		TransactionID: "tx", AccountID: account.ID, EntryType: models.EntryTypeDebit, CreatedAt: now,
	})
	assert.Error(t, err)

	entries, err := repo.ListByAccount(ctx, account.ID, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, models.Amount(75), entries[0].Amount)
	assert.Equal(t, models.Amount(250), entries[1].Amount)
	assert.True(t, now.Add(2*time.Second).Equal(entries[0].CreatedAt))
	assert.Equal(t, models.EntryTypeCredit, entries[0].EntryType)
}
