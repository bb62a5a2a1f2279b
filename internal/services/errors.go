package services

import (
	"errors"
	"fmt"

	"github.com/bankcore/backend/internal/database"
	"github.com/bankcore/backend/internal/models"
)

// Outcomes returned by the ledger core. Callers match them with errors.Is.
var (
	ErrInvalidAmount       = models.ErrInvalidAmount
	ErrInvalidTransfer     = errors.New("invalid transfer: sender and receiver must differ")
	ErrInvalidAccountType  = errors.New("invalid account type")
	ErrAccountNotFound     = errors.New("account not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrCustomerNotFound    = errors.New("customer not found")
	ErrBranchNotFound      = errors.New("branch not found")
	ErrAccessDenied        = errors.New("access denied")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrUnavailable         = errors.New("service temporarily unavailable")

	// ErrOutcomeUnknown means the commit may or may not have applied. The
	// caller must check the account history before retrying.
	ErrOutcomeUnknown = database.ErrCommitUnknown
)

// Role names which side of a transfer an account was resolved for.
type Role string

const (
	RoleSender   Role = "sender"
	RoleReceiver Role = "receiver"
	RoleAccount  Role = "account"
)

// AccountNotFoundError reports which account of a request did not resolve.
type AccountNotFoundError struct {
	Role      Role
	AccountID models.ID
}

func (e *AccountNotFoundError) Error() string {
	return fmt.Sprintf("%s %s: %s", ErrAccountNotFound, e.Role, e.AccountID)
}

func (e *AccountNotFoundError) Unwrap() error {
	return ErrAccountNotFound
}

func accountNotFound(role Role, id models.ID) error {
	return &AccountNotFoundError{Role: role, AccountID: id}
}

// classify maps storage failures onto the tagged outcomes. Errors that are
// already tagged pass through unchanged.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case isTagged(err):
		return err
	case database.IsConstraintViolation(err, database.CodeCheckViolation, "check_balance_positive"):
		return ErrInsufficientFunds
	case database.IsTransient(err):
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	default:
		return err
	}
}

func isTagged(err error) bool {
	for _, target := range []error{
		ErrInvalidAmount, ErrInvalidTransfer, ErrInvalidAccountType, ErrAccountNotFound,
		ErrTransactionNotFound, ErrCustomerNotFound, ErrBranchNotFound, ErrAccessDenied,
		ErrInsufficientFunds, ErrUnavailable, ErrOutcomeUnknown,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
