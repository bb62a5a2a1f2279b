package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/bankcore/backend/internal/audit"
	"github.com/bankcore/backend/internal/database"
	"github.com/bankcore/backend/internal/models"
)

// TransferRequest moves Amount from Sender to Receiver on behalf of Caller,
// the customer the request was authenticated as.
type TransferRequest struct {
	Caller   models.ID
	Sender   models.ID
	Receiver models.ID
	Amount   decimal.Decimal
}

type TransferResult struct {
	TransactionID models.ID       `json:"transaction_id"`
	Timestamp     time.Time       `json:"timestamp"`
	SenderBalance decimal.Decimal `json:"sender_balance"`
}

type BalanceResult struct {
	TransactionID models.ID       `json:"transaction_id"`
	NewBalance    decimal.Decimal `json:"new_balance"`
	Timestamp     time.Time       `json:"timestamp"`
}

// TransferEngine performs every balance mutation. Each operation is one
// database transaction: the balance changes and the ledger entry commit
// together or not at all.
type TransferEngine struct {
	runner   *database.TxRunner
	accounts *AccountStore
	ledger   *TransactionLedger
	audit    *audit.Logger
	events   EventPublisher
	logger   *zap.Logger
	now      func() time.Time
}

// NewTransferEngine wires the engine. events may be nil.
func NewTransferEngine(runner *database.TxRunner, auditLog *audit.Logger, events EventPublisher, logger *zap.Logger) *TransferEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if auditLog == nil {
		auditLog = audit.NewLogger(logger)
	}
	return &TransferEngine{
		runner:   runner,
		accounts: NewAccountStore(),
		ledger:   NewTransactionLedger(),
		audit:    auditLog,
		events:   events,
		logger:   logger,
		now:      time.Now,
	}
}

// timestamp matches the microsecond resolution of TIMESTAMPTZ so the value
// returned to the caller is the value stored.
func (e *TransferEngine) timestamp() time.Time {
	return e.now().UTC().Truncate(time.Microsecond)
}

func (e *TransferEngine) Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	if err := models.ValidateAmount(req.Amount); err != nil {
		e.audit.LogError("transfer", req.Sender, err)
		return nil, err
	}
	if req.Sender == req.Receiver {
		e.audit.LogError("transfer", req.Sender, ErrInvalidTransfer)
		return nil, ErrInvalidTransfer
	}

	var (
		result TransferResult
		entry  models.Transaction
	)
	err := e.runner.WithinTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		locked, err := e.accounts.LockOrdered(ctx, tx, req.Sender, req.Receiver)
		if err != nil {
			return err
		}
		sender, ok := locked[req.Sender]
		if !ok {
			return accountNotFound(RoleSender, req.Sender)
		}
		if _, ok := locked[req.Receiver]; !ok {
			return accountNotFound(RoleReceiver, req.Receiver)
		}
		if !sender.OwnedBy(req.Caller) {
			return ErrAccessDenied
		}
		if sender.Balance.LessThan(req.Amount) {
			return ErrInsufficientFunds
		}

		senderBalance, err := e.accounts.AdjustBalance(ctx, tx, req.Sender, req.Amount.Neg())
		if err != nil {
			return err
		}
		if _, err := e.accounts.AdjustBalance(ctx, tx, req.Receiver, req.Amount); err != nil {
			return err
		}

		receiver := req.Receiver
		entry = models.Transaction{
			ID:            models.NewID(),
			FromAccountID: req.Sender,
			ToAccountID:   &receiver,
			Kind:          models.KindTransfer,
			Amount:        req.Amount,
			Timestamp:     e.timestamp(),
		}
		if _, err := e.ledger.Append(ctx, tx, &entry); err != nil {
			return err
		}

		result = TransferResult{
			TransactionID: entry.ID,
			Timestamp:     entry.Timestamp,
			SenderBalance: senderBalance,
		}
		return nil
	})
	if err != nil {
		err = classify(err)
		e.audit.LogError("transfer", req.Sender, err)
		return nil, err
	}

	e.audit.LogTransfer(entry.ID, req.Sender, req.Receiver, req.Amount, entry.Timestamp)
	e.publish(ctx, entry)
	return &result, nil
}

func (e *TransferEngine) Deposit(ctx context.Context, accountID models.ID, amount decimal.Decimal) (*BalanceResult, error) {
	return e.changeBalance(ctx, models.KindDeposit, accountID, amount)
}

// Withdraw fails with ErrInsufficientFunds rather than take the balance
// below zero.
func (e *TransferEngine) Withdraw(ctx context.Context, accountID models.ID, amount decimal.Decimal) (*BalanceResult, error) {
	return e.changeBalance(ctx, models.KindWithdrawal, accountID, amount)
}

func (e *TransferEngine) changeBalance(ctx context.Context, kind models.TransactionKind, accountID models.ID, amount decimal.Decimal) (*BalanceResult, error) {
	operation := "deposit"
	delta := amount
	if kind == models.KindWithdrawal {
		operation = "withdrawal"
		delta = amount.Neg()
	}

	if err := models.ValidateAmount(amount); err != nil {
		e.audit.LogError(operation, accountID, err)
		return nil, err
	}

	var (
		result BalanceResult
		entry  models.Transaction
	)
	err := e.runner.WithinTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		balance, err := e.accounts.AdjustBalance(ctx, tx, accountID, delta)
		if errors.Is(err, ErrAccountNotFound) {
			return accountNotFound(RoleAccount, accountID)
		}
		if err != nil {
			return err
		}

		entry = models.Transaction{
			ID:            models.NewID(),
			FromAccountID: accountID,
			Kind:          kind,
			Amount:        amount,
			Timestamp:     e.timestamp(),
		}
		if _, err := e.ledger.Append(ctx, tx, &entry); err != nil {
			return err
		}

		result = BalanceResult{
			TransactionID: entry.ID,
			NewBalance:    balance,
			Timestamp:     entry.Timestamp,
		}
		return nil
	})
	if err != nil {
		err = classify(err)
		e.audit.LogError(operation, accountID, err)
		return nil, err
	}

	e.audit.LogBalanceChange(kind, entry.ID, accountID, amount, result.NewBalance, entry.Timestamp)
	e.publish(ctx, entry)
	return &result, nil
}

// publish runs after commit. The movement is durable at this point, so a
// failure is only logged.
func (e *TransferEngine) publish(ctx context.Context, entry models.Transaction) {
	if e.events == nil {
		return
	}
	if err := e.events.Publish(ctx, entry); err != nil {
		e.logger.Warn("failed to publish ledger event",
			zap.Stringer("transaction_id", entry.ID),
			zap.Error(err),
		)
	}
}
