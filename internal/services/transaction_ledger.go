package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pkg/errors"

	"github.com/bankcore/backend/internal/database"
	"github.com/bankcore/backend/internal/models"
	"github.com/bankcore/backend/internal/repository"
)

const transactionColumns = `transaction_id, from_account_id, to_account_id, transaction_type, amount, transaction_timestamp, ledger_seq`

// TransactionLedger is the append-only log of money movements. Entries are
// never updated or deleted.
type TransactionLedger struct{}

func NewTransactionLedger() *TransactionLedger {
	return &TransactionLedger{}
}

func scanTransaction(s repository.Scanner) (*models.Transaction, error) {
	var (
		t  models.Transaction
		to models.NullID
	)
	if err := s.Scan(&t.ID, &t.FromAccountID, &to, &t.Kind, &t.Amount, &t.Timestamp, &t.Seq); err != nil {
		return nil, err
	}
	t.ToAccountID = to.Ptr()
	return &t, nil
}

func validateEntry(entry *models.Transaction) error {
	if err := models.ValidateAmount(entry.Amount); err != nil {
		return err
	}
	if !entry.Kind.Valid() {
		return fmt.Errorf("%w: unknown entry kind %q", ErrInvalidTransfer, entry.Kind)
	}
	switch {
	case entry.Kind == models.KindTransfer && entry.ToAccountID == nil:
		return fmt.Errorf("%w: transfer entry needs a destination", ErrInvalidTransfer)
	case entry.Kind != models.KindTransfer && entry.ToAccountID != nil:
		return fmt.Errorf("%w: %s entry cannot have a destination", ErrInvalidTransfer, entry.Kind)
	}
	return nil
}

// Append records entry and fills in its id (if unset) and ledger sequence.
func (l *TransactionLedger) Append(ctx context.Context, q database.Querier, entry *models.Transaction) (models.ID, error) {
	if err := validateEntry(entry); err != nil {
		return models.NilID, err
	}
	if entry.ID.IsZero() {
		entry.ID = models.NewID()
	}

	err := q.QueryRowContext(ctx, `
		INSERT INTO transaction (transaction_id, from_account_id, to_account_id, transaction_type, amount, transaction_timestamp)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ledger_seq`,
		entry.ID, entry.FromAccountID, models.NullIDFrom(entry.ToAccountID), string(entry.Kind), entry.Amount, entry.Timestamp,
	).Scan(&entry.Seq)
	if err != nil {
		return models.NilID, errors.Wrapf(err, "append %s entry", entry.Kind)
	}
	return entry.ID, nil
}

// ListByAccount returns one page of the entries where the account is either
// side, oldest first. Each call is an independent query.
func (l *TransactionLedger) ListByAccount(ctx context.Context, q database.Querier, accountID models.ID, page repository.Page) ([]models.Transaction, error) {
	page = page.Normalize()
	rows, err := q.QueryContext(ctx, `
		SELECT `+transactionColumns+` FROM transaction
		WHERE from_account_id = $1 OR to_account_id = $1
		ORDER BY transaction_timestamp, ledger_seq
		LIMIT $2 OFFSET $3`, accountID, page.Limit, page.Offset)
	if err != nil {
		return nil, errors.Wrapf(err, "list transactions of %s", accountID)
	}
	defer rows.Close()

	entries := []models.Transaction{}
	for rows.Next() {
		entry, err := scanTransaction(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan transaction")
		}
		entries = append(entries, *entry)
	}
	return entries, errors.Wrap(rows.Err(), "list transactions")
}

func (l *TransactionLedger) Get(ctx context.Context, q database.Querier, id models.ID) (*models.Transaction, error) {
	entry, err := scanTransaction(q.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transaction WHERE transaction_id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get transaction %s", id)
	}
	return entry, nil
}
