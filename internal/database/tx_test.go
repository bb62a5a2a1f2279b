package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTxRunner_WithinTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	runner := NewTxRunner(db, 1500*time.Millisecond, time.Second)

	t.Run("commits on success", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("SET LOCAL lock_timeout = 1500").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("UPDATE account").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := runner.WithinTx(context.Background(), func(ctx context.Context, tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, "UPDATE account SET balance = 1")
			return err
		})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on error", func(t *testing.T) {
		boom := errors.New("boom")
		mock.ExpectBegin()
		mock.ExpectExec("SET LOCAL lock_timeout").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := runner.WithinTx(context.Background(), func(ctx context.Context, tx *sql.Tx) error {
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on panic", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("SET LOCAL lock_timeout").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		assert.Panics(t, func() {
			runner.WithinTx(context.Background(), func(ctx context.Context, tx *sql.Tx) error {
				panic("unexpected")
			})
		})
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("begin failure", func(t *testing.T) {
		mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

		err := runner.WithinTx(context.Background(), func(ctx context.Context, tx *sql.Tx) error {
			t.Fatal("fn must not run")
			return nil
		})
		assert.ErrorContains(t, err, "begin transaction")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("lost connection at commit has unknown outcome", func(t *testing.T) {
		for _, cause := range []error{driver.ErrBadConn, sql.ErrConnDone, &net.OpError{Op: "read", Err: errors.New("connection reset")}} {
			// A bad connection is dropped from the pool, so each case gets its own.
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			runner := NewTxRunner(db, 1500*time.Millisecond, time.Second)

			mock.ExpectBegin()
			mock.ExpectExec("SET LOCAL lock_timeout").WillReturnResult(sqlmock.NewResult(0, 0))
			mock.ExpectCommit().WillReturnError(cause)

			err = runner.WithinTx(context.Background(), func(ctx context.Context, tx *sql.Tx) error {
				return nil
			})
			assert.ErrorIs(t, err, ErrCommitUnknown)
			assert.False(t, IsTransient(err), "%v", cause)
			assert.NoError(t, mock.ExpectationsWereMet())
			db.Close()
		}
	})

	t.Run("server rejection at commit keeps its code", func(t *testing.T) {
		serialization := &pq.Error{Code: CodeSerializationFailure}
		mock.ExpectBegin()
		mock.ExpectExec("SET LOCAL lock_timeout").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit().WillReturnError(serialization)

		err := runner.WithinTx(context.Background(), func(ctx context.Context, tx *sql.Tx) error {
			return nil
		})
		assert.ErrorIs(t, err, serialization)
		assert.NotErrorIs(t, err, ErrCommitUnknown)
		assert.True(t, IsTransient(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTxRunner_NoLockTimeout(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	runner := NewTxRunner(db, 0, 0)

	mock.ExpectBegin()
	mock.ExpectCommit()

	err = runner.WithinTx(context.Background(), func(ctx context.Context, tx *sql.Tx) error { return nil })
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Same(t, db, runner.DB())
}
