package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ruralpay/atm/internal/config"
	"github.com/ruralpay/atm/internal/database"
	"github.com/ruralpay/atm/internal/logging"
	"github.com/stretchr/testify/require"
)

func setupMockDB(t *testing.T) (*database.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return database.NewTestDB(sqlDB, database.DialectPostgres), mock
}

func setupSQLite(t *testing.T) *database.DB {
	t.Helper()
	cfg := config.DatabaseConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "atm.db")}
	db, err := database.Open(context.Background(), cfg, logging.NewNoOpLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db))
	return db
}
