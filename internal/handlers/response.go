package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/bankcore/backend/internal/middleware"
	"github.com/bankcore/backend/internal/models"
	"github.com/bankcore/backend/internal/services"
)

const maxBodyBytes = 1_048_576

// decodeJSON reads exactly one JSON object into dst and validates it. It
// writes the error response itself and reports whether the handler should
// continue.
func decodeJSON(w http.ResponseWriter, r *http.Request, v *services.ValidationHelper, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, models.ErrInvalidAmount) {
			services.SendErrorResponse(w, "Invalid amount", services.CodeInvalidAmount, http.StatusBadRequest, nil)
			return false
		}
		services.SendErrorResponse(w, "Invalid request body", services.CodeValidationFailed, http.StatusBadRequest, nil)
		return false
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, "Request body must only contain a single JSON object", services.CodeValidationFailed, http.StatusBadRequest, nil)
		return false
	}

	if err := v.ValidateStruct(dst); err != nil {
		code := services.CodeValidationFailed
		if isAmountError(err) {
			code = services.CodeInvalidAmount
		}
		services.SendErrorResponse(w, "Validation failed", code, http.StatusBadRequest, err)
		return false
	}
	return true
}

// isAmountError reports whether every failed rule is a money rule.
func isAmountError(err error) bool {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return false
	}
	for _, fe := range fieldErrs {
		if fe.Tag() != "money" && fe.Tag() != "money_nonneg" {
			return false
		}
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// pathID parses a chi URL parameter as an identifier.
func pathID(w http.ResponseWriter, r *http.Request, name string) (models.ID, bool) {
	id, err := models.ParseID(chi.URLParam(r, name))
	if err != nil {
		services.SendErrorResponse(w, "Invalid "+name, services.CodeValidationFailed, http.StatusBadRequest, nil)
		return models.NilID, false
	}
	return id, true
}

func requireIdentity(w http.ResponseWriter, r *http.Request) (middleware.Identity, bool) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", services.CodeUnauthorized, http.StatusUnauthorized, nil)
	}
	return identity, ok
}

func denyAccess(w http.ResponseWriter) {
	services.SendErrorResponse(w, services.ErrAccessDenied.Error(), services.CodeAccessDenied, http.StatusForbidden, nil)
}

// errorStatus maps service errors onto HTTP status codes and error tags.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrInvalidAmount):
		return http.StatusBadRequest, services.CodeInvalidAmount
	case errors.Is(err, services.ErrInvalidTransfer):
		return http.StatusBadRequest, services.CodeInvalidTransfer
	case errors.Is(err, services.ErrInvalidAccountType):
		return http.StatusBadRequest, services.CodeInvalidAccountType
	case errors.Is(err, services.ErrAccountNotFound):
		return http.StatusNotFound, services.CodeAccountNotFound
	case errors.Is(err, services.ErrTransactionNotFound),
		errors.Is(err, services.ErrCustomerNotFound),
		errors.Is(err, services.ErrBranchNotFound):
		return http.StatusNotFound, services.CodeNotFound
	case errors.Is(err, services.ErrAccessDenied):
		return http.StatusForbidden, services.CodeAccessDenied
	case errors.Is(err, services.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity, services.CodeInsufficientFunds
	case errors.Is(err, services.ErrIdempotencyConflict):
		return http.StatusConflict, services.CodeIdempotencyConflict
	case errors.Is(err, services.ErrOutcomeUnknown):
		return http.StatusInternalServerError, services.CodeOutcomeUnknown
	case errors.Is(err, services.ErrUnavailable):
		return http.StatusServiceUnavailable, services.CodeUnavailable
	default:
		return http.StatusInternalServerError, services.CodeInternal
	}
}

// sendServiceError writes the error body for err. Internal failures are
// logged and their text is not returned to the client.
func sendServiceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	status, code := errorStatus(err)
	message := err.Error()
	switch status {
	case http.StatusServiceUnavailable:
		w.Header().Set("Retry-After", "1")
		message = services.ErrUnavailable.Error()
		logger.Warn("request could not complete", zap.Error(err))
	case http.StatusInternalServerError:
		message = "Internal server error"
		if code == services.CodeOutcomeUnknown {
			message = outcomeUnknownMessage
		}
		logger.Error("request failed", zap.Error(err))
	}
	services.SendErrorResponse(w, message, code, status, nil)
}

const outcomeUnknownMessage = "Transfer outcome unknown; check the account history before retrying"

// outcomeUnknownResponse is the reply stored for an idempotency key whose
// commit result was lost.
func outcomeUnknownResponse() (int, services.ErrorResponse) {
	return http.StatusInternalServerError, services.ErrorResponse{
		Error: outcomeUnknownMessage,
		Code:  services.CodeOutcomeUnknown,
	}
}

// accountView and transactionView render money with exactly two decimals.
type accountView struct {
	ID         models.ID          `json:"account_id"`
	CustomerID models.ID          `json:"customer_id"`
	Type       models.AccountType `json:"account_type"`
	Balance    string             `json:"balance"`
	CreatedAt  time.Time          `json:"creation_date"`
	BranchID   models.ID          `json:"branch_id"`
}

func newAccountView(a *models.Account) accountView {
	return accountView{
		ID:         a.ID,
		CustomerID: a.CustomerID,
		Type:       a.Type,
		Balance:    models.FormatMoney(a.Balance),
		CreatedAt:  a.CreatedAt,
		BranchID:   a.BranchID,
	}
}

type transactionView struct {
	ID            models.ID              `json:"transaction_id"`
	FromAccountID models.ID              `json:"from_account_id"`
	ToAccountID   *models.ID             `json:"to_account_id,omitempty"`
	Kind          models.TransactionKind `json:"transaction_type"`
	Amount        string                 `json:"amount"`
	Timestamp     time.Time              `json:"transaction_timestamp"`
}

func newTransactionView(t *models.Transaction) transactionView {
	return transactionView{
		ID:            t.ID,
		FromAccountID: t.FromAccountID,
		ToAccountID:   t.ToAccountID,
		Kind:          t.Kind,
		Amount:        models.FormatMoney(t.Amount),
		Timestamp:     t.Timestamp,
	}
}

type pageView[T any] struct {
	Items  []T `json:"items"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}
