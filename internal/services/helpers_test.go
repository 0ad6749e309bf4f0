package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ruralpay/atm/internal/config"
	"github.com/ruralpay/atm/internal/database"
	"github.com/ruralpay/atm/internal/logging"
	"github.com/ruralpay/atm/internal/models"
	"github.com/stretchr/testify/require"
)

// fast retries so failing tests do not wait on real backoff
var testRetryPolicy = RetryPolicy{
	MaxRetries:     2,
	OpTimeout:      time.Second,
	InitialBackoff: time.Millisecond,
	MaxBackoff:     2 * time.Millisecond,
}

// seeded demo card credentials, see seed.go
var (
	aliceChecking = CardFields{Number: "3705113944732746", CVC: "487", Expiration: "12/28", PIN: "1234"}
	aliceSavings  = CardFields{Number: "3461791776320947", CVC: "415", Expiration: "12/28", PIN: "5678"}
	bobChecking   = CardFields{Number: "3448730162325261", CVC: "455", Expiration: "12/28", PIN: "4321"}
	bobCredit     = CardFields{Number: "3473461515850660", CVC: "698", Expiration: "12/28", PIN: "9876"}
)

type fixture struct {
	db           *database.DB
	auth         *AuthService
	ledger       *LedgerService
	directory    *DirectoryService
	provisioning *ProvisioningService
	terminal     *Terminal
	seed         *SeedResult
}

func openSQLite(t *testing.T) *database.DB {
	t.Helper()
	cfg := config.DatabaseConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "atm.db")}
	db, err := database.Open(context.Background(), cfg, logging.NewNoOpLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db))
	return db
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	db := openSQLite(t)
	opts = append([]Option{WithRetryPolicy(testRetryPolicy)}, opts...)

	f := &fixture{
		db:           db,
		auth:         NewAuthService(db, opts...),
		ledger:       NewLedgerService(db, opts...),
		directory:    NewDirectoryService(db, opts...),
		provisioning: NewProvisioningService(db, opts...),
	}
	f.terminal = NewTerminal(f.auth, f.ledger, f.directory)

	seed, err := f.provisioning.SeedDemoData(context.Background())
	require.NoError(t, err)
	f.seed = seed
	return f
}

func (f *fixture) login(t *testing.T, card CardFields) *Session {
	t.Helper()
	sess, err := f.auth.Authenticate(context.Background(), card)
	require.NoError(t, err)
	return sess
}

func (f *fixture) balance(t *testing.T, accountID int64) models.Amount {
	t.Helper()
	var cents int64
	err := f.db.QueryRowContext(context.Background(),
		"SELECT balance FROM accounts WHERE account_id = $1", accountID).Scan(&cents)
	require.NoError(t, err)
	return models.Amount(cents)
}

func (f *fixture) storedPin(t *testing.T, cardID int64) string {
	t.Helper()
	var pin string
	err := f.db.QueryRowContext(context.Background(),
		"SELECT pin FROM cards WHERE card_id = $1", cardID).Scan(&pin)
	require.NoError(t, err)
	return pin
}

// ledgerSum returns credits minus debits recorded for an account
func (f *fixture) ledgerSum(t *testing.T, accountID int64) models.Amount {
	t.Helper()
	var cents int64
	err := f.db.QueryRowContext(context.Background(), `
		SELECT COALESCE(SUM(CASE WHEN entry_type = 'CREDIT' THEN amount ELSE -amount END), 0)
		FROM ledger_entries WHERE account_id = $1`, accountID).Scan(&cents)
	require.NoError(t, err)
	return models.Amount(cents)
}

func newMockDB(t *testing.T) (*database.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return database.NewTestDB(sqlDB, database.DialectPostgres), mock
}

func accountRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"account_id", "user_id", "account_type", "balance"})
}
