package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/bankcore/backend/internal/models"
)

// Error codes carried in every error body.
const (
	CodeValidationFailed    = "VALIDATION_FAILED"
	CodeInvalidAmount       = "INVALID_AMOUNT"
	CodeInvalidTransfer     = "INVALID_TRANSFER"
	CodeInvalidAccountType  = "INVALID_ACCOUNT_TYPE"
	CodeAccountNotFound     = "ACCOUNT_NOT_FOUND"
	CodeNotFound            = "NOT_FOUND"
	CodeAccessDenied        = "ACCESS_DENIED"
	CodeInsufficientFunds   = "INSUFFICIENT_FUNDS"
	CodeUnavailable         = "UNAVAILABLE"
	CodeIdempotencyConflict = "IDEMPOTENCY_CONFLICT"
	CodeOutcomeUnknown      = "OUTCOME_UNKNOWN"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeInternal            = "INTERNAL_ERROR"
)

// ErrorResponse represents error response structure
type ErrorResponse struct {
	Error   string            `json:"error"`             // Error message
	Code    string            `json:"code"`              // Machine readable tag
	Details map[string]string `json:"details,omitempty"` // Validation details
}

// ValidationHelper provides shared validation functionality
type ValidationHelper struct {
	validator *validator.Validate
}

// NewValidationHelper creates a validator that understands identifiers and
// money amounts. Field names in errors are the JSON names.
func NewValidationHelper() *ValidationHelper {
	v := validator.New()

	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})

	// Identifiers validate as their text form, empty when unset, so that
	// "required" works on them.
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		id, ok := field.Interface().(models.ID)
		if !ok || id.IsZero() {
			return ""
		}
		return id.String()
	}, models.ID{})

	// Amounts validate as their text form. Out-of-range values become "" so
	// they fail without being rescaled.
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		var d decimal.Decimal
		switch value := field.Interface().(type) {
		case decimal.Decimal:
			d = value
		case models.Money:
			d = value.Decimal()
		default:
			return ""
		}
		if !models.InRange(d) {
			return ""
		}
		return d.String()
	}, decimal.Decimal{}, models.Money{})

	v.RegisterValidation("money", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		return err == nil && models.ValidateAmount(d) == nil
	})
	v.RegisterValidation("money_nonneg", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		return err == nil && models.ValidateOpeningBalance(d) == nil
	})

	return &ValidationHelper{validator: v}
}

// ValidateStruct validates a struct and returns validation errors
func (vh *ValidationHelper) ValidateStruct(s any) error {
	return vh.validator.Struct(s)
}

// SendErrorResponse sends a JSON error response. validationErr, when it is a
// validator.ValidationErrors, is expanded into per-field details.
func SendErrorResponse(w http.ResponseWriter, message, code string, statusCode int, validationErr error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	errorResp := ErrorResponse{Error: message, Code: code}
	var fieldErrs validator.ValidationErrors
	if errors.As(validationErr, &fieldErrs) {
		errorResp.Details = make(map[string]string, len(fieldErrs))
		for _, err := range fieldErrs {
			errorResp.Details[err.Field()] = fmt.Sprintf("Field Validation Failed on '%s' tag", err.Tag())
		}
	}

	json.NewEncoder(w).Encode(errorResp)
}
