package audit

import (
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/bankcore/backend/internal/models"
)

// Event types written to the audit trail.
const (
	EventTransfer      = "TRANSFER"
	EventDeposit       = "DEPOSIT"
	EventWithdrawal    = "WITHDRAWAL"
	EventAccountOpened = "ACCOUNT_OPENED"
	EventError         = "ERROR"
)

// Logger writes one structured record per money movement attempt.
type Logger struct {
	log *zap.Logger
}

func NewLogger(base *zap.Logger) *Logger {
	if base == nil {
		base = zap.NewNop()
	}
	return &Logger{log: base.Named("audit")}
}

func (a *Logger) LogTransfer(txID, from, to models.ID, amount decimal.Decimal, at time.Time) {
	a.log.Info("AUDIT",
		zap.String("event_type", EventTransfer),
		zap.Stringer("transaction_id", txID),
		zap.Stringer("from_account", from),
		zap.Stringer("to_account", to),
		zap.String("amount", models.FormatMoney(amount)),
		zap.Time("timestamp", at),
		zap.String("status", "SUCCESS"),
	)
}

// LogBalanceChange records a deposit or withdrawal.
func (a *Logger) LogBalanceChange(kind models.TransactionKind, txID, accountID models.ID, amount, newBalance decimal.Decimal, at time.Time) {
	a.log.Info("AUDIT",
		zap.String("event_type", string(kind)),
		zap.Stringer("transaction_id", txID),
		zap.Stringer("account_id", accountID),
		zap.String("amount", models.FormatMoney(amount)),
		zap.String("new_balance", models.FormatMoney(newBalance)),
		zap.Time("timestamp", at),
		zap.String("status", "SUCCESS"),
	)
}

func (a *Logger) LogAccountOpened(account *models.Account) {
	a.log.Info("AUDIT",
		zap.String("event_type", EventAccountOpened),
		zap.Stringer("account_id", account.ID),
		zap.Stringer("customer_id", account.CustomerID),
		zap.String("account_type", string(account.Type)),
		zap.String("opening_balance", models.FormatMoney(account.Balance)),
		zap.String("status", "SUCCESS"),
	)
}

// LogError records a rejected or failed operation. accountID is the account
// the operation was debiting, if any.
func (a *Logger) LogError(operation string, accountID models.ID, err error) {
	a.log.Warn("AUDIT",
		zap.String("event_type", EventError),
		zap.String("operation", operation),
		zap.Stringer("account_id", accountID),
		zap.String("status", "FAILED"),
		zap.Error(err),
	)
}
