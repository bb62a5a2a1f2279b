package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionKind classifies a ledger entry.
type TransactionKind string

const (
	KindDeposit    TransactionKind = "DEPOSIT"
	KindWithdrawal TransactionKind = "WITHDRAWAL"
	KindTransfer   TransactionKind = "TRANSFER"
)

// Valid reports whether k is a known kind.
func (k TransactionKind) Valid() bool {
	switch k {
	case KindDeposit, KindWithdrawal, KindTransfer:
		return true
	}
	return false
}

// Transaction is an immutable ledger entry. FromAccountID is always set;
// ToAccountID is set for transfers only.
type Transaction struct {
	ID            ID              `json:"transaction_id" db:"transaction_id"`
	FromAccountID ID              `json:"from_account_id" db:"from_account_id"`
	ToAccountID   *ID             `json:"to_account_id,omitempty" db:"to_account_id"`
	Kind          TransactionKind `json:"transaction_type" db:"transaction_type"`
	Amount        decimal.Decimal `json:"amount" db:"amount"`
	Timestamp     time.Time       `json:"transaction_timestamp" db:"transaction_timestamp"`
	Seq           int64           `json:"-" db:"ledger_seq"`
}
