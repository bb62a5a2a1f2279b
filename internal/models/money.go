package models

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Balances and amounts are stored as DECIMAL(15, 2).
const (
	CurrencyPlaces = 2
	maxDigits      = 15
)

// Scale and coefficient limits checked before any arithmetic. Anything
// outside them is never a valid amount, and rescaling it can be arbitrarily
// slow.
const (
	maxScale           = 32
	maxCoefficientBits = 128
)

// ErrInvalidAmount is returned for amounts that are not positive, carry more
// than two fractional digits, or do not fit the column precision.
var ErrInvalidAmount = errors.New("invalid amount")

var maxAmount = decimal.New(1, maxDigits-CurrencyPlaces) // 10^13, exclusive

// InRange reports whether d has a bounded exponent and coefficient. It only
// reads the exponent and the coefficient bit length, so it is safe to call
// on untrusted input before String, Round or Cmp.
func InRange(d decimal.Decimal) bool {
	exp := d.Exponent()
	if exp > maxDigits || exp < -maxScale {
		return false
	}
	return d.Coefficient().BitLen() <= maxCoefficientBits
}

// ValidateAmount checks a movement amount: strictly positive, at most
// CurrencyPlaces fractional digits, below 10^13.
func ValidateAmount(amount decimal.Decimal) error {
	if !InRange(amount) || !amount.IsPositive() {
		return ErrInvalidAmount
	}
	return checkPrecision(amount)
}

// ValidateOpeningBalance is ValidateAmount but also accepts zero.
func ValidateOpeningBalance(amount decimal.Decimal) error {
	if !InRange(amount) || amount.IsNegative() {
		return ErrInvalidAmount
	}
	return checkPrecision(amount)
}

func checkPrecision(amount decimal.Decimal) error {
	if !amount.Round(CurrencyPlaces).Equal(amount) {
		return ErrInvalidAmount
	}
	if amount.GreaterThanOrEqual(maxAmount) {
		return ErrInvalidAmount
	}
	return nil
}

// FormatMoney renders an amount with exactly two fractional digits.
func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(CurrencyPlaces)
}

// Money is an amount as it arrives in a request body, either a JSON number
// or a string. Input that does not parse, or is out of range, fails decoding
// with ErrInvalidAmount.
type Money decimal.Decimal

func (m *Money) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	if !InRange(d) {
		return ErrInvalidAmount
	}
	*m = Money(d)
	return nil
}

// Decimal returns the parsed amount.
func (m Money) Decimal() decimal.Decimal {
	return decimal.Decimal(m)
}
