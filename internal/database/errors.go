package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"

	"github.com/lib/pq"
)

// SQLSTATE codes the ledger cares about.
const (
	CodeCheckViolation       = "23514"
	CodeForeignKeyViolation  = "23503"
	CodeUniqueViolation      = "23505"
	CodeSerializationFailure = "40001"
	CodeDeadlockDetected     = "40P01"
	CodeLockNotAvailable     = "55P03"
	CodeQueryCanceled        = "57014"
	CodeAdminShutdown        = "57P01"
	CodeCannotConnectNow     = "57P03"
	CodeTooManyConnections   = "53300"
)

// IsTransient reports whether err means the atomic unit could not be
// acquired or completed and nothing was committed, so the caller may retry.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case CodeSerializationFailure, CodeDeadlockDetected, CodeLockNotAvailable,
			CodeQueryCanceled, CodeAdminShutdown, CodeCannotConnectNow, CodeTooManyConnections:
			return true
		}
		// Class 08: connection exception.
		return pqErr.Code.Class() == "08"
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

// IsConstraintViolation reports whether err is the named constraint failing
// with the given SQLSTATE code. An empty constraint matches any.
func IsConstraintViolation(err error, code, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	if string(pqErr.Code) != code {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}
