package database

import (
	"context"
	"fmt"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		user_id BIGSERIAL PRIMARY KEY,
		name    TEXT NOT NULL,
		email   TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS accounts (
		account_id   BIGSERIAL PRIMARY KEY,
		user_id      BIGINT NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
		account_type TEXT NOT NULL CHECK (account_type IN ('Checking', 'Savings', 'Credit')),
		balance      BIGINT NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_accounts_user_id ON accounts(user_id)`,
	`CREATE TABLE IF NOT EXISTS cards (
		card_id         BIGSERIAL PRIMARY KEY,
		account_id      BIGINT NOT NULL REFERENCES accounts(account_id) ON DELETE CASCADE,
		card_company    TEXT NOT NULL,
		cardholder_name TEXT NOT NULL,
		card_type       TEXT NOT NULL,
		card_number     TEXT NOT NULL UNIQUE,
		expiration_date TEXT NOT NULL,
		cvc             TEXT NOT NULL,
		pin             TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS ledger_entries (
		entry_id       BIGSERIAL PRIMARY KEY,
		transaction_id TEXT NOT NULL,
		account_id     BIGINT NOT NULL REFERENCES accounts(account_id) ON DELETE CASCADE,
		entry_type     TEXT NOT NULL CHECK (entry_type IN ('DEBIT', 'CREDIT')),
		amount         BIGINT NOT NULL CHECK (amount > 0),
		balance_after  BIGINT NOT NULL,
		created_at     BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ledger_entries_account ON ledger_entries(account_id, entry_id)`,
	`CREATE INDEX IF NOT EXISTS idx_ledger_entries_transaction ON ledger_entries(transaction_id)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		user_id INTEGER PRIMARY KEY AUTOINCREMENT,
		name    TEXT NOT NULL,
		email   TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS accounts (
		account_id   INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id      INTEGER NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
		account_type TEXT NOT NULL CHECK (account_type IN ('Checking', 'Savings', 'Credit')),
		balance      INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_accounts_user_id ON accounts(user_id)`,
	`CREATE TABLE IF NOT EXISTS cards (
		card_id         INTEGER PRIMARY KEY AUTOINCREMENT,
		account_id      INTEGER NOT NULL REFERENCES accounts(account_id) ON DELETE CASCADE,
		card_company    TEXT NOT NULL,
		cardholder_name TEXT NOT NULL,
		card_type       TEXT NOT NULL,
		card_number     TEXT NOT NULL UNIQUE,
		expiration_date TEXT NOT NULL,
		cvc             TEXT NOT NULL,
		pin             TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS ledger_entries (
		entry_id       INTEGER PRIMARY KEY AUTOINCREMENT,
		transaction_id TEXT NOT NULL,
		account_id     INTEGER NOT NULL REFERENCES accounts(account_id) ON DELETE CASCADE,
		entry_type     TEXT NOT NULL CHECK (entry_type IN ('DEBIT', 'CREDIT')),
		amount         INTEGER NOT NULL CHECK (amount > 0),
		balance_after  INTEGER NOT NULL,
		created_at     INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ledger_entries_account ON ledger_entries(account_id, entry_id)`,
	`CREATE INDEX IF NOT EXISTS idx_ledger_entries_transaction ON ledger_entries(transaction_id)`,
}

// Schema returns the DDL statements for a dialect, in dependency order
func Schema(dialect Dialect) []string {
	if dialect == DialectSQLite {
		return sqliteSchema
	}
	return postgresSchema
}

// Migrate creates every table and index if missing. It is safe to run on an
// existing database.
func Migrate(ctx context.Context, db *DB) error {
	for i, stmt := range Schema(db.Dialect()) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration step %d failed: %w", i+1, err)
		}
	}
	return nil
}
