package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/bankcore/backend/internal/models"
	"github.com/bankcore/backend/internal/services"
)

// TransferService is the money-moving side of the transfer engine.
type TransferService interface {
	Transfer(ctx context.Context, req services.TransferRequest) (*services.TransferResult, error)
	Deposit(ctx context.Context, accountID models.ID, amount decimal.Decimal) (*services.BalanceResult, error)
	Withdraw(ctx context.Context, accountID models.ID, amount decimal.Decimal) (*services.BalanceResult, error)
}

// IdempotencyStore deduplicates client retries.
type IdempotencyStore interface {
	Reserve(ctx context.Context, customerID models.ID, key, fingerprint string) (*services.StoredResponse, error)
	Complete(ctx context.Context, customerID models.ID, key string, resp services.StoredResponse) error
	Release(ctx context.Context, customerID models.ID, key string) error
}

const idempotencyHeader = "Idempotency-Key"

type TransferHandler struct {
	engine      TransferService
	idempotency IdempotencyStore
	validator   *services.ValidationHelper
	logger      *zap.Logger
}

// NewTransferHandler wires the handler. idempotency may be nil.
func NewTransferHandler(engine TransferService, idempotency IdempotencyStore, logger *zap.Logger) *TransferHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TransferHandler{
		engine:      engine,
		idempotency: idempotency,
		validator:   services.NewValidationHelper(),
		logger:      logger,
	}
}

type transferRequest struct {
	SenderAccountID   models.ID    `json:"sender_account_id" validate:"required"`
	ReceiverAccountID models.ID    `json:"receiver_account_id" validate:"required"`
	Amount            models.Money `json:"amount" validate:"money"`
}

type transferResponse struct {
	TransactionID models.ID `json:"transaction_id"`
	Timestamp     time.Time `json:"timestamp"`
	SenderBalance string    `json:"sender_balance"`
}

type amountRequest struct {
	Amount models.Money `json:"amount" validate:"money"`
}

type balanceResponse struct {
	TransactionID models.ID `json:"transaction_id"`
	NewBalance    string    `json:"new_balance"`
	Timestamp     time.Time `json:"timestamp"`
}

// CreateTransfer moves funds between two accounts
// @Summary Transfer funds
// @Description Debit the caller's account and credit the receiver atomically
// @Tags Transfers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param Idempotency-Key header string false "Client retry key"
// @Param request body transferRequest true "Transfer request"
// @Success 201 {object} transferResponse
// @Failure 400 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Failure 422 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Failure 503 {object} services.ErrorResponse
// @Router /transfers [post]
func (h *TransferHandler) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req transferRequest
	if !decodeJSON(w, r, h.validator, &req) {
		return
	}

	amount := req.Amount.Decimal()
	key := r.Header.Get(idempotencyHeader)
	fingerprint := services.TransferFingerprint(req.SenderAccountID, req.ReceiverAccountID, amount)
	if key != "" && h.idempotency != nil {
		stored, err := h.idempotency.Reserve(r.Context(), identity.CustomerID, key, fingerprint)
		if err != nil {
			if !errors.Is(err, services.ErrIdempotencyConflict) {
				err = errors.Join(services.ErrUnavailable, err)
			}
			sendServiceError(w, h.logger, err)
			return
		}
		if stored != nil {
			w.Header().Set("Idempotent-Replayed", "true")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(stored.Status)
			w.Write(stored.Body)
			return
		}
	}

	result, err := h.engine.Transfer(r.Context(), services.TransferRequest{
		Caller:   identity.CustomerID,
		Sender:   req.SenderAccountID,
		Receiver: req.ReceiverAccountID,
		Amount:   amount,
	})
	if errors.Is(err, services.ErrOutcomeUnknown) {
		// The money may have moved. Keep the key so a retry replays this
		// answer instead of transferring again.
		status, body := outcomeUnknownResponse()
		h.complete(r.Context(), identity.CustomerID, key, fingerprint, status, body)
		sendServiceError(w, h.logger, err)
		return
	}
	if err != nil {
		h.release(r.Context(), identity.CustomerID, key)
		sendServiceError(w, h.logger, err)
		return
	}

	resp := transferResponse{
		TransactionID: result.TransactionID,
		Timestamp:     result.Timestamp,
		SenderBalance: models.FormatMoney(result.SenderBalance),
	}
	h.complete(r.Context(), identity.CustomerID, key, fingerprint, http.StatusCreated, resp)
	writeJSON(w, http.StatusCreated, resp)
}

func (h *TransferHandler) complete(ctx context.Context, customerID models.ID, key, fingerprint string, status int, resp any) {
	if key == "" || h.idempotency == nil {
		return
	}
	body, err := json.Marshal(resp)
	if err == nil {
		err = h.idempotency.Complete(ctx, customerID, key, services.StoredResponse{
			Fingerprint: fingerprint,
			Status:      status,
			Body:        body,
		})
	}
	if err != nil {
		// A retry will see a conflict until the pending marker expires.
		h.logger.Warn("failed to store idempotent response", zap.String("key", key), zap.Error(err))
	}
}

func (h *TransferHandler) release(ctx context.Context, customerID models.ID, key string) {
	if key == "" || h.idempotency == nil {
		return
	}
	if err := h.idempotency.Release(ctx, customerID, key); err != nil {
		h.logger.Warn("failed to release idempotency key", zap.String("key", key), zap.Error(err))
	}
}

// Deposit credits an account
// @Summary Deposit funds
// @Tags Accounts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Account ID"
// @Param request body amountRequest true "Deposit amount"
// @Success 201 {object} balanceResponse
// @Failure 400 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /accounts/{id}/deposits [post]
func (h *TransferHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	h.changeBalance(w, r, h.engine.Deposit)
}

// Withdraw debits an account
// @Summary Withdraw funds
// @Tags Accounts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Account ID"
// @Param request body amountRequest true "Withdrawal amount"
// @Success 201 {object} balanceResponse
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 422 {object} services.ErrorResponse
// @Router /accounts/{id}/withdrawals [post]
func (h *TransferHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.changeBalance(w, r, h.engine.Withdraw)
}

func (h *TransferHandler) changeBalance(w http.ResponseWriter, r *http.Request,
	apply func(context.Context, models.ID, decimal.Decimal) (*services.BalanceResult, error)) {
	accountID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req amountRequest
	if !decodeJSON(w, r, h.validator, &req) {
		return
	}

	result, err := apply(r.Context(), accountID, req.Amount.Decimal())
	if err != nil {
		sendServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, balanceResponse{
		TransactionID: result.TransactionID,
		NewBalance:    models.FormatMoney(result.NewBalance),
		Timestamp:     result.Timestamp,
	})
}
