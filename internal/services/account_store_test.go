package services

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bankcore/backend/internal/models"
	"github.com/bankcore/backend/internal/repository"
)

func TestAccountStore_Get(t *testing.T) {
	_, db, mock := newMockRunner(t)
	store := NewAccountStore()

	mock.ExpectQuery("SELECT (.+) FROM account WHERE account_id = \\$1$").
		WithArgs(accountLow.String()).
		WillReturnRows(accountRow(accountLow, customerOne, "12.34"))

	account, err := store.Get(context.Background(), db, accountLow)
	require.NoError(t, err)
	assert.Equal(t, customerOne, account.CustomerID)
	assert.Equal(t, models.AccountTypeChecking, account.Type)
	assert.Equal(t, "12.34", models.FormatMoney(account.Balance))

	mock.ExpectQuery("FROM account WHERE account_id").
		WithArgs(accountHigh.String()).
		WillReturnRows(sqlmock.NewRows(accountCols))

	_, err = store.Get(context.Background(), db, accountHigh)
	assert.ErrorIs(t, err, ErrAccountNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountStore_LockOrdered(t *testing.T) {
	_, db, mock := newMockRunner(t)
	store := NewAccountStore()

	mock.ExpectBegin()
	expectLock(mock, accountLow, customerOne, "1.00")
	expectLock(mock, accountHigh, customerTwo, "2.00")
	mock.ExpectRollback()

	tx, err := db.Begin()
	require.NoError(t, err)
	defer tx.Rollback()

	// Passed high first and duplicated; locked once each, low first.
	locked, err := store.LockOrdered(context.Background(), tx, accountHigh, accountLow, accountHigh)
	require.NoError(t, err)
	assert.Len(t, locked, 2)
	assert.Equal(t, customerTwo, locked[accountHigh].CustomerID)

	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountStore_AdjustBalance(t *testing.T) {
	ctx := context.Background()
	store := NewAccountStore()

	t.Run("applies the delta", func(t *testing.T) {
		_, db, mock := newMockRunner(t)
		expectAdjust(mock, accountLow, "-0.01", "0.00")

		balance, err := store.AdjustBalance(ctx, db, accountLow, amount("-0.01"))
		require.NoError(t, err)
		assert.True(t, balance.IsZero())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("would go negative", func(t *testing.T) {
		_, db, mock := newMockRunner(t)
		mock.ExpectQuery("UPDATE account").
			WithArgs("-5", accountLow.String()).
			WillReturnRows(sqlmock.NewRows([]string{"balance"}))
		mock.ExpectQuery("SELECT EXISTS \\(SELECT 1 FROM account").
			WithArgs(accountLow.String()).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		_, err := store.AdjustBalance(ctx, db, accountLow, amount("-5"))
		assert.ErrorIs(t, err, ErrInsufficientFunds)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no such account", func(t *testing.T) {
		_, db, mock := newMockRunner(t)
		mock.ExpectQuery("UPDATE account").
			WithArgs("5", accountLow.String()).
			WillReturnRows(sqlmock.NewRows([]string{"balance"}))
		mock.ExpectQuery("SELECT EXISTS").
			WithArgs(accountLow.String()).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		_, err := store.AdjustBalance(ctx, db, accountLow, amount("5"))
		assert.ErrorIs(t, err, ErrAccountNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountStore_Insert(t *testing.T) {
	_, db, mock := newMockRunner(t)
	store := NewAccountStore()

	account := &models.Account{
		ID:         accountLow,
		CustomerID: customerOne,
		Type:       models.AccountTypeSavings,
		Balance:    amount("0"),
		CreatedAt:  fixedNow,
		BranchID:   branchOne,
	}
	mock.ExpectExec("INSERT INTO account").
		WithArgs(accountLow.String(), customerOne.String(), "SAVINGS", "0", fixedNow, branchOne.String()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Insert(context.Background(), db, account))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountStore_ListByCustomer(t *testing.T) {
	_, db, mock := newMockRunner(t)
	store := NewAccountStore()

	rows := sqlmock.NewRows(accountCols).
		AddRow(accountLow.String(), customerOne.String(), "CHECKING", "1.00", fixedNow, branchOne.String()).
		AddRow(accountHigh.String(), customerOne.String(), "SAVINGS", "2.00", fixedNow, branchOne.String())
	mock.ExpectQuery("FROM account WHERE customer_id = \\$1 ORDER BY creation_date, account_id LIMIT \\$2 OFFSET \\$3").
		WithArgs(customerOne.String(), 10, 20).
		WillReturnRows(rows)

	accounts, err := store.ListByCustomer(context.Background(), db, customerOne, repository.Page{Limit: 10, Offset: 20})
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, models.AccountTypeSavings, accounts[1].Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}
