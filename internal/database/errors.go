package database

import (
	"context"
	"database/sql/driver"
	"errors"
	"strings"

	"github.com/lib/pq"
)

var (
	// ErrDuplicate is returned when an insert violates a unique constraint
	ErrDuplicate = errors.New("duplicate record")
	// ErrForeignKey is returned when a referenced row does not exist
	ErrForeignKey = errors.New("referenced record does not exist")
)

// postgres codes worth retrying: serialization failure, deadlock, lock not
// available, too many connections
var transientPQCodes = map[pq.ErrorCode]bool{
	"40001": true,
	"40P01": true,
	"55P03": true,
	"53300": true,
}

// MapDBError maps constraint violations from either driver onto package
// sentinels. Other errors are returned unchanged.
func MapDBError(err error) error {
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			return ErrDuplicate
		case "23503":
			return ErrForeignKey
		}
		return err
	}

	le := strings.ToLower(err.Error())
	if strings.Contains(le, "unique constraint") || strings.Contains(le, "duplicate") {
		return ErrDuplicate
	}
	if strings.Contains(le, "foreign key constraint") {
		return ErrForeignKey
	}
	return err
}

// IsTransient reports whether a failed statement can be retried safely
// after its transaction was rolled back.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return transientPQCodes[pqErr.Code]
	}

	le := strings.ToLower(err.Error())
	return strings.Contains(le, "database is locked") ||
		strings.Contains(le, "database table is locked") ||
		strings.Contains(le, "sqlite_busy") ||
		strings.Contains(le, "sqlite_locked")
}
