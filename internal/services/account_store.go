package services

import (
	"context"
	"database/sql"
	"sort"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/bankcore/backend/internal/database"
	"github.com/bankcore/backend/internal/models"
	"github.com/bankcore/backend/internal/repository"
)

const accountColumns = `account_id, customer_id, account_type, balance, creation_date, branch_id`

// AccountStore owns the account rows and the non-negativity invariant.
type AccountStore struct{}

func NewAccountStore() *AccountStore {
	return &AccountStore{}
}

func scanAccount(s repository.Scanner) (*models.Account, error) {
	var a models.Account
	if err := s.Scan(&a.ID, &a.CustomerID, &a.Type, &a.Balance, &a.CreatedAt, &a.BranchID); err != nil {
		return nil, err
	}
	return &a, nil
}

// Get reads an account without locking it.
func (s *AccountStore) Get(ctx context.Context, q database.Querier, id models.ID) (*models.Account, error) {
	account, err := scanAccount(q.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM account WHERE account_id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get account %s", id)
	}
	return account, nil
}

// Lock reads an account and holds its row lock until tx ends.
func (s *AccountStore) Lock(ctx context.Context, tx *sql.Tx, id models.ID) (*models.Account, error) {
	account, err := scanAccount(tx.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM account WHERE account_id = $1 FOR UPDATE`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "lock account %s", id)
	}
	return account, nil
}

// LockOrdered locks every distinct id in ascending order so that concurrent
// units touching the same pair cannot deadlock. Missing accounts are absent
// from the result rather than an error; the caller decides which one to
// report first.
func (s *AccountStore) LockOrdered(ctx context.Context, tx *sql.Tx, ids ...models.ID) (map[models.ID]*models.Account, error) {
	ordered := make([]models.ID, 0, len(ids))
	seen := make(map[models.ID]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			ordered = append(ordered, id)
		}
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Compare(ordered[j]) < 0 })

	locked := make(map[models.ID]*models.Account, len(ordered))
	for _, id := range ordered {
		account, err := s.Lock(ctx, tx, id)
		if errors.Is(err, ErrAccountNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		locked[id] = account
	}
	return locked, nil
}

// AdjustBalance applies delta in a single guarded statement. A delta that
// would take the balance below zero is rejected with ErrInsufficientFunds and
// the stored value is left unchanged.
func (s *AccountStore) AdjustBalance(ctx context.Context, q database.Querier, id models.ID, delta decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := q.QueryRowContext(ctx, `
		UPDATE account
		SET balance = balance + $1
		WHERE account_id = $2 AND balance + $1 >= 0
		RETURNING balance`, delta, id).Scan(&balance)
	if err == nil {
		return balance, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, errors.Wrapf(err, "adjust balance %s", id)
	}

	var exists bool
	if err := q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM account WHERE account_id = $1)`, id).Scan(&exists); err != nil {
		return decimal.Zero, errors.Wrapf(err, "probe account %s", id)
	}
	if !exists {
		return decimal.Zero, ErrAccountNotFound
	}
	return decimal.Zero, ErrInsufficientFunds
}

// Insert creates the account row.
func (s *AccountStore) Insert(ctx context.Context, q database.Querier, a *models.Account) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO account (`+accountColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		a.ID, a.CustomerID, string(a.Type), a.Balance, a.CreatedAt, a.BranchID)
	if err != nil {
		return errors.Wrapf(err, "insert account %s", a.ID)
	}
	return nil
}

// ListByCustomer returns one page of the customer's accounts, oldest first.
func (s *AccountStore) ListByCustomer(ctx context.Context, q database.Querier, customerID models.ID, page repository.Page) ([]models.Account, error) {
	page = page.Normalize()
	rows, err := q.QueryContext(ctx, `
		SELECT `+accountColumns+` FROM account
		WHERE customer_id = $1
		ORDER BY creation_date, account_id
		LIMIT $2 OFFSET $3`, customerID, page.Limit, page.Offset)
	if err != nil {
		return nil, errors.Wrapf(err, "list accounts of %s", customerID)
	}
	defer rows.Close()

	accounts := []models.Account{}
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan account")
		}
		accounts = append(accounts, *account)
	}
	return accounts, errors.Wrap(rows.Err(), "list accounts")
}
