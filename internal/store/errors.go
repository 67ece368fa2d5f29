package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	// ErrStoreUnavailable is returned when the store cannot answer in time:
	// deadline exceeded, cancellation or a lost connection. It is retryable.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrSchemaMismatch is returned when a table or column does not exist.
	// It is not retryable.
	ErrSchemaMismatch = errors.New("schema mismatch")

	// ErrInvalidRange is returned for a range query with a negative limit.
	ErrInvalidRange = errors.New("invalid range query")
)

// SQLSTATE codes, see https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	pgUniqueViolation = "23505"
	pgUndefinedTable  = "42P01"
	pgUndefinedColumn = "42703"
	pgQueryCanceled   = "57014"
	pgAdminShutdown   = "57P01"
	pgCannotConnect   = "57P03"
)

// Classify maps err onto ErrStoreUnavailable or ErrSchemaMismatch when it
// belongs to either class and returns it unchanged otherwise. Writes issued
// outside the store use it to report failures the same way lookups do.
func Classify(err error) error {
	classified, _ := match(err)
	return classified
}

// classify is Classify for lookups; unmatched errors are wrapped.
func classify(err error) error {
	classified, ok := match(err)
	if !ok {
		return fmt.Errorf("store lookup: %w", err)
	}
	return classified
}

// IsUniqueViolation reports whether err is a write rejected by a primary key
// or unique index.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}

	// sqlite reports constraint failures as plain messages
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "PRIMARY KEY constraint failed")
}

func match(err error) (error, bool) {
	switch {
	case err == nil:
		return nil, true
	case errors.Is(err, ErrStoreUnavailable), errors.Is(err, ErrSchemaMismatch), errors.Is(err, ErrInvalidRange):
		return err, true
	case isUnavailable(err):
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err), true
	case isSchemaMismatch(err):
		return fmt.Errorf("%w: %w", ErrSchemaMismatch, err), true
	}
	return err, false
}

func isUnavailable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case strings.HasPrefix(pgErr.Code, "08"),
			pgErr.Code == pgQueryCanceled,
			pgErr.Code == pgAdminShutdown,
			pgErr.Code == pgCannotConnect:
			return true
		}
		return false
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}
	if pgconn.Timeout(err) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

func isSchemaMismatch(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUndefinedTable || pgErr.Code == pgUndefinedColumn
	}

	// sqlite reports these as plain messages
	msg := err.Error()
	return strings.Contains(msg, "no such table") || strings.Contains(msg, "no such column")
}
