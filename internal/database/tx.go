package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// ErrCommitUnknown means COMMIT was sent but no server reply was read, so the
// transaction may or may not have been applied. It is never transient.
var ErrCommitUnknown = errors.New("transaction commit outcome unknown")

// Querier is satisfied by both *sql.DB and *sql.Tx so store methods can run
// standalone or inside a caller's atomic unit.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TxRunner scopes one database transaction per call.
type TxRunner struct {
	db          *sql.DB
	lockTimeout time.Duration
	unitTimeout time.Duration
}

func NewTxRunner(db *sql.DB, lockTimeout, unitTimeout time.Duration) *TxRunner {
	return &TxRunner{db: db, lockTimeout: lockTimeout, unitTimeout: unitTimeout}
}

// DB returns the underlying pool for reads outside a transaction.
func (r *TxRunner) DB() *sql.DB {
	return r.db
}

// WithinTx runs fn in a READ COMMITTED transaction. Row lock waits are bounded
// by lock_timeout and the whole unit by the unit timeout. The transaction is
// committed only if fn returns nil; every other exit path, panics included,
// rolls back.
func (r *TxRunner) WithinTx(ctx context.Context, fn func(ctx context.Context, tx *sql.Tx) error) (err error) {
	if r.unitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.unitTimeout)
		defer cancel()
	}

	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		tx.Rollback()
		if p := recover(); p != nil {
			panic(p)
		}
	}()

	if r.lockTimeout > 0 {
		// SET does not accept bind parameters; the value is an integer we format.
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = %d", r.lockTimeout.Milliseconds())
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("set lock timeout: %w", err)
		}
	}

	if err := fn(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		// A server error means Postgres answered and rolled back. Anything
		// else (lost connection, timeout) leaves the outcome unknown; the
		// cause is kept as text only so it cannot classify as retryable.
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			return fmt.Errorf("commit transaction: %w", err)
		}
		return fmt.Errorf("%w: %v", ErrCommitUnknown, err)
	}
	committed = true
	return nil
}
