package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bankcore/backend/internal/audit"
	"github.com/bankcore/backend/internal/database"
	"github.com/bankcore/backend/internal/models"
	"github.com/bankcore/backend/internal/repository"
)

// CreateAccountInput is a validated account opening request.
type CreateAccountInput struct {
	CustomerID     models.ID
	BranchID       models.ID
	Type           models.AccountType
	OpeningBalance decimal.Decimal
}

// AccountService covers account opening and the read paths.
type AccountService struct {
	runner    *database.TxRunner
	accounts  *AccountStore
	ledger    *TransactionLedger
	customers *repository.Repository[models.Customer]
	branches  *repository.Repository[models.Branch]
	audit     *audit.Logger
	now       func() time.Time
}

func NewAccountService(runner *database.TxRunner, auditLog *audit.Logger) *AccountService {
	if auditLog == nil {
		auditLog = audit.NewLogger(nil)
	}
	return &AccountService{
		runner:    runner,
		accounts:  NewAccountStore(),
		ledger:    NewTransactionLedger(),
		customers: repository.New(repository.Customers),
		branches:  repository.New(repository.Branches),
		audit:     auditLog,
		now:       time.Now,
	}
}

// Create opens an account. A positive opening balance is booked as a
// DEPOSIT entry in the same transaction.
func (s *AccountService) Create(ctx context.Context, in CreateAccountInput) (*models.Account, error) {
	if !in.Type.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAccountType, in.Type)
	}
	if err := models.ValidateOpeningBalance(in.OpeningBalance); err != nil {
		return nil, err
	}

	account := &models.Account{
		ID:         models.NewID(),
		CustomerID: in.CustomerID,
		Type:       in.Type,
		Balance:    in.OpeningBalance,
		CreatedAt:  s.now().UTC().Truncate(time.Microsecond),
		BranchID:   in.BranchID,
	}

	err := s.runner.WithinTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		ok, err := s.customers.Exists(ctx, tx, in.CustomerID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrCustomerNotFound
		}
		if ok, err = s.branches.Exists(ctx, tx, in.BranchID); err != nil {
			return err
		}
		if !ok {
			return ErrBranchNotFound
		}

		if err := s.accounts.Insert(ctx, tx, account); err != nil {
			return err
		}
		if !account.Balance.IsPositive() {
			return nil
		}
		_, err = s.ledger.Append(ctx, tx, &models.Transaction{
			FromAccountID: account.ID,
			Kind:          models.KindDeposit,
			Amount:        account.Balance,
			Timestamp:     account.CreatedAt,
		})
		return err
	})
	if err != nil {
		err = classify(err)
		s.audit.LogError("open_account", account.ID, err)
		return nil, err
	}

	s.audit.LogAccountOpened(account)
	return account, nil
}

func (s *AccountService) Get(ctx context.Context, accountID models.ID) (*models.Account, error) {
	account, err := s.accounts.Get(ctx, s.runner.DB(), accountID)
	if errors.Is(err, ErrAccountNotFound) {
		return nil, accountNotFound(RoleAccount, accountID)
	}
	if err != nil {
		return nil, classify(err)
	}
	return account, nil
}

func (s *AccountService) ListByCustomer(ctx context.Context, customerID models.ID, page repository.Page) (repository.Result[models.Account], error) {
	page = page.Normalize()
	db := s.runner.DB()

	ok, err := s.customers.Exists(ctx, db, customerID)
	if err != nil {
		return repository.Result[models.Account]{}, classify(err)
	}
	if !ok {
		return repository.Result[models.Account]{}, ErrCustomerNotFound
	}

	accounts, err := s.accounts.ListByCustomer(ctx, db, customerID, page)
	if err != nil {
		return repository.Result[models.Account]{}, classify(err)
	}
	return repository.NewResult(accounts, page), nil
}

// Transactions lists the ledger entries on either side of the account.
func (s *AccountService) Transactions(ctx context.Context, accountID models.ID, page repository.Page) (repository.Result[models.Transaction], error) {
	page = page.Normalize()
	entries, err := s.ledger.ListByAccount(ctx, s.runner.DB(), accountID, page)
	if err != nil {
		return repository.Result[models.Transaction]{}, classify(err)
	}
	return repository.NewResult(entries, page), nil
}

func (s *AccountService) Transaction(ctx context.Context, transactionID models.ID) (*models.Transaction, error) {
	entry, err := s.ledger.Get(ctx, s.runner.DB(), transactionID)
	if err != nil {
		return nil, classify(err)
	}
	return entry, nil
}
