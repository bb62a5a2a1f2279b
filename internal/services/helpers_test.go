package services

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bankcore/backend/internal/database"
	"github.com/bankcore/backend/internal/models"
)

var (
	customerOne = models.MustParseID("c1000000-0000-4000-8000-000000000001")
	customerTwo = models.MustParseID("c2000000-0000-4000-8000-000000000002")
	branchOne   = models.MustParseID("b1000000-0000-4000-8000-000000000001")
	accountLow  = models.MustParseID("11111111-1111-4111-8111-111111111111")
	accountHigh = models.MustParseID("22222222-2222-4222-8222-222222222222")

	fixedNow = time.Date(2024, 3, 1, 12, 30, 0, 123456789, time.UTC)
)

var accountCols = []string{"account_id", "customer_id", "account_type", "balance", "creation_date", "branch_id"}

func newMockRunner(t *testing.T) (*database.TxRunner, *sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return database.NewTxRunner(db, 2*time.Second, 5*time.Second), db, mock
}

func accountRow(id, owner models.ID, balance string) *sqlmock.Rows {
	return sqlmock.NewRows(accountCols).
		AddRow(id.String(), owner.String(), "CHECKING", balance, fixedNow, branchOne.String())
}

func expectBegin(mock sqlmock.Sqlmock) {
	mock.ExpectBegin()
	mock.ExpectExec("SET LOCAL lock_timeout = 2000").WillReturnResult(sqlmock.NewResult(0, 0))
}

func expectLock(mock sqlmock.Sqlmock, id, owner models.ID, balance string) {
	mock.ExpectQuery("SELECT (.+) FROM account WHERE account_id = \\$1 FOR UPDATE").
		WithArgs(id.String()).
		WillReturnRows(accountRow(id, owner, balance))
}

func expectLockMissing(mock sqlmock.Sqlmock, id models.ID) {
	mock.ExpectQuery("SELECT (.+) FROM account WHERE account_id = \\$1 FOR UPDATE").
		WithArgs(id.String()).
		WillReturnRows(sqlmock.NewRows(accountCols))
}

func expectAdjust(mock sqlmock.Sqlmock, id models.ID, delta, newBalance string) {
	mock.ExpectQuery("UPDATE account SET balance = balance \\+ \\$1").
		WithArgs(delta, id.String()).
		WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(newBalance))
}

func expectAppend(mock sqlmock.Sqlmock, from models.ID, to any, kind models.TransactionKind, amount string, seq int64) {
	mock.ExpectQuery("INSERT INTO transaction").
		WithArgs(sqlmock.AnyArg(), from.String(), to, string(kind), amount, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"ledger_seq"}).AddRow(seq))
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, entry models.Transaction) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}
