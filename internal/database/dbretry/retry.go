package dbretry

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-sql-driver/mysql"
	"github.com/uptrace/bun/driver/pgdriver"
)

var (
	maxElapsedTime  = 10 * time.Second
	initialInterval = 50 * time.Millisecond
	maxInterval     = 2 * time.Second
	maxRetries      = uint64(5)
)

// IsRetryableError checks if the given error is a transient conflict that
// rerunning the whole unit of work can resolve.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var pgerr pgdriver.Error
	if errors.As(err, &pgerr) {
		switch pgerr.Field('C') {
		case "40001", // serialization_failure
			"40P01", // deadlock_detected
			"55P03": // lock_not_available
			return true
		}

		return false
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		// 1213 is ER_LOCK_DEADLOCK, 1205 is ER_LOCK_WAIT_TIMEOUT
		return mysqlErr.Number == 1213 || mysqlErr.Number == 1205
	}

	// SQLite reports lock contention as SQLITE_BUSY / SQLITE_LOCKED
	errMsg := err.Error()

	return strings.Contains(errMsg, "database is locked") ||
		strings.Contains(errMsg, "database table is locked") ||
		strings.Contains(errMsg, "SQLITE_BUSY")
}

// IsConnectionError checks if the error means the backend could not be
// reached or refused the session.
func IsConnectionError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var pgerr pgdriver.Error
	if errors.As(err, &pgerr) {
		code := pgerr.Field('C')
		// Class 08 is connection_exception, class 28 is invalid_authorization,
		// 3D000 is invalid_catalog_name, 57P0x are server shutdowns.
		return strings.HasPrefix(code, "08") || strings.HasPrefix(code, "28") ||
			code == "3D000" || strings.HasPrefix(code, "57P0")
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		case 1040, // ER_CON_COUNT_ERROR
			1044, // ER_DBACCESS_DENIED_ERROR
			1045, // ER_ACCESS_DENIED_ERROR
			1049, // ER_BAD_DB_ERROR
			1053: // ER_SERVER_SHUTDOWN
			return true
		}

		return false
	}

	errMsg := err.Error()

	return strings.Contains(errMsg, "connection reset by peer") ||
		strings.Contains(errMsg, "broken pipe") ||
		strings.Contains(errMsg, "connection refused") ||
		strings.Contains(errMsg, "no such host") ||
		strings.Contains(errMsg, "i/o timeout") ||
		strings.Contains(errMsg, "unable to open database file")
}

// Operation wraps a database operation with retry logic. Errors that are
// not retryable are returned unchanged on the first attempt.
func Operation[T any](ctx context.Context, operation func(context.Context) (T, error)) (T, error) {
	var result T
	var lastErr error

	b := backoff.WithMaxRetries(backoff.NewExponentialBackOff(
		backoff.WithMaxElapsedTime(maxElapsedTime),
		backoff.WithInitialInterval(initialInterval),
		backoff.WithMaxInterval(maxInterval),
	), maxRetries)

	err := backoff.Retry(func() error {
		var err error
		result, err = operation(ctx)
		if err != nil {
			if !IsRetryableError(err) {
				return backoff.Permanent(err)
			}
			lastErr = err
			return err
		}
		return nil
	}, backoff.WithContext(b, ctx))
	if err != nil {
		if lastErr != nil && errors.Is(err, lastErr) {
			// Return the last actual database error instead of retry error
			return result, fmt.Errorf("database operation failed after retries: %w", lastErr)
		}
		return result, err
	}

	return result, nil
}

// NoResult wraps a database operation that doesn't return a result.
func NoResult(ctx context.Context, operation func(context.Context) error) error {
	_, err := Operation(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, operation(ctx)
	})
	return err
}
