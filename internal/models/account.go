package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountType is the closed set of account categories.
type AccountType string

const (
	AccountTypeChecking AccountType = "CHECKING"
	AccountTypeSavings  AccountType = "SAVINGS"
)

// Valid reports whether t is a known account type.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeChecking, AccountTypeSavings:
		return true
	}
	return false
}

// Account is a customer account row. Balance is never negative; it is
// mutated only inside a database transaction by the transfer engine.
type Account struct {
	ID         ID              `json:"account_id" db:"account_id"`
	CustomerID ID              `json:"customer_id" db:"customer_id"`
	Type       AccountType     `json:"account_type" db:"account_type"`
	Balance    decimal.Decimal `json:"balance" db:"balance"`
	CreatedAt  time.Time       `json:"creation_date" db:"creation_date"`
	BranchID   ID              `json:"branch_id" db:"branch_id"`
}

// OwnedBy reports whether the account belongs to the given customer.
func (a *Account) OwnedBy(customerID ID) bool {
	return a != nil && !customerID.IsZero() && a.CustomerID == customerID
}
