package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bankcore/backend/internal/models"
)

func TestRepository_Get(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := New(Branches)
	branchID := models.MustParseID("123e4567-e89b-12d3-a456-426614174001")

	t.Run("found", func(t *testing.T) {
		mock.ExpectQuery("SELECT branch_id, branch_name, city FROM branch WHERE branch_id = \\$1").
			WithArgs(branchID.String()).
			WillReturnRows(sqlmock.NewRows([]string{"branch_id", "branch_name", "city"}).
				AddRow(branchID.String(), "Downtown", "Istanbul"))

		branch, err := repo.Get(context.Background(), db, branchID)
		require.NoError(t, err)
		assert.Equal(t, branchID, branch.ID)
		assert.Equal(t, "Downtown", branch.Name)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("FROM branch WHERE branch_id").
			WithArgs(branchID.String()).
			WillReturnError(sql.ErrNoRows)

		_, err := repo.Get(context.Background(), db, branchID)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("storage failure keeps cause", func(t *testing.T) {
		boom := errors.New("connection reset")
		mock.ExpectQuery("FROM branch WHERE branch_id").
			WithArgs(branchID.String()).
			WillReturnError(boom)

		_, err := repo.Get(context.Background(), db, branchID)
		assert.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "get branch")
	})
}

func TestRepository_Exists(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := New(Customers)
	customerID := models.NewID()

	mock.ExpectQuery("SELECT EXISTS \\(SELECT 1 FROM customer WHERE customer_id = \\$1\\)").
		WithArgs(customerID.String()).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := repo.Exists(context.Background(), db, customerID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := New(Branches)

	t.Run("page is clamped", func(t *testing.T) {
		mock.ExpectQuery("FROM branch ORDER BY branch_name LIMIT \\$1 OFFSET \\$2").
			WithArgs(MaxPageSize, 0).
			WillReturnRows(sqlmock.NewRows([]string{"branch_id", "branch_name", "city"}).
				AddRow(models.NewID().String(), "Airport", "Ankara").
				AddRow(models.NewID().String(), "Harbour", "Izmir"))

		items, err := repo.List(context.Background(), db, Page{Limit: 500, Offset: -3})
		require.NoError(t, err)
		assert.Len(t, items, 2)
		assert.Equal(t, "Airport", items[0].Name)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty result is not nil", func(t *testing.T) {
		mock.ExpectQuery("FROM branch ORDER BY").
			WithArgs(DefaultPageSize, 10).
			WillReturnRows(sqlmock.NewRows([]string{"branch_id", "branch_name", "city"}))

		items, err := repo.List(context.Background(), db, Page{Offset: 10})
		require.NoError(t, err)
		assert.NotNil(t, items)
		assert.Empty(t, items)
	})
}

func TestPageFromQuery(t *testing.T) {
	values := map[string]string{"limit": "20", "offset": "40"}
	page := PageFromQuery(func(k string) string { return values[k] })
	assert.Equal(t, Page{Limit: 20, Offset: 40}, page)

	page = PageFromQuery(func(string) string { return "junk" })
	assert.Equal(t, Page{Limit: DefaultPageSize, Offset: 0}, page)
}
