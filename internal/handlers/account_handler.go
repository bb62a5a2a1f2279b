package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/bankcore/backend/internal/models"
	"github.com/bankcore/backend/internal/repository"
	"github.com/bankcore/backend/internal/services"
)

// AccountService is the account lifecycle and read side.
type AccountService interface {
	Create(ctx context.Context, in services.CreateAccountInput) (*models.Account, error)
	Get(ctx context.Context, accountID models.ID) (*models.Account, error)
	ListByCustomer(ctx context.Context, customerID models.ID, page repository.Page) (repository.Result[models.Account], error)
	Transactions(ctx context.Context, accountID models.ID, page repository.Page) (repository.Result[models.Transaction], error)
	Transaction(ctx context.Context, transactionID models.ID) (*models.Transaction, error)
}

type AccountHandler struct {
	service   AccountService
	validator *services.ValidationHelper
	logger    *zap.Logger
}

func NewAccountHandler(service AccountService, logger *zap.Logger) *AccountHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountHandler{
		service:   service,
		validator: services.NewValidationHelper(),
		logger:    logger,
	}
}

type createAccountRequest struct {
	CustomerID     models.ID    `json:"customer_id" validate:"required"`
	BranchID       models.ID    `json:"branch_id" validate:"required"`
	AccountType    string       `json:"account_type" validate:"required,oneof=CHECKING SAVINGS"`
	OpeningBalance models.Money `json:"opening_balance" validate:"money_nonneg"`
}

// CreateAccount opens an account for a customer
// @Summary Open account
// @Description Admin only. A positive opening balance is booked as a deposit.
// @Tags Accounts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body createAccountRequest true "Account details"
// @Success 201 {object} accountView
// @Failure 400 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /accounts [post]
func (h *AccountHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if !decodeJSON(w, r, h.validator, &req) {
		return
	}

	account, err := h.service.Create(r.Context(), services.CreateAccountInput{
		CustomerID:     req.CustomerID,
		BranchID:       req.BranchID,
		Type:           models.AccountType(req.AccountType),
		OpeningBalance: req.OpeningBalance.Decimal(),
	})
	if err != nil {
		sendServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, newAccountView(account))
}

// GetAccount returns one account
// @Summary Get account
// @Tags Accounts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Account ID"
// @Success 200 {object} accountView
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /accounts/{id} [get]
func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	account, ok := h.ownedAccount(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newAccountView(account))
}

// ListTransactions returns the account's ledger entries, oldest first
// @Summary Account history
// @Tags Accounts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Account ID"
// @Param limit query int false "Page size (max 100)"
// @Param offset query int false "Offset"
// @Success 200 {object} pageView[transactionView]
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /accounts/{id}/transactions [get]
func (h *AccountHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	account, ok := h.ownedAccount(w, r)
	if !ok {
		return
	}

	result, err := h.service.Transactions(r.Context(), account.ID, repository.PageFromQuery(r.URL.Query().Get))
	if err != nil {
		sendServiceError(w, h.logger, err)
		return
	}

	view := pageView[transactionView]{Items: make([]transactionView, 0, len(result.Items)), Limit: result.Limit, Offset: result.Offset}
	for i := range result.Items {
		view.Items = append(view.Items, newTransactionView(&result.Items[i]))
	}
	writeJSON(w, http.StatusOK, view)
}

// ListCustomerAccounts returns a customer's accounts
// @Summary Customer accounts
// @Tags Customers
// @Produce json
// @Security BearerAuth
// @Param id path string true "Customer ID"
// @Param limit query int false "Page size (max 100)"
// @Param offset query int false "Offset"
// @Success 200 {object} pageView[accountView]
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /customers/{id}/accounts [get]
func (h *AccountHandler) ListCustomerAccounts(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	customerID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if !identity.CanAccess(customerID) {
		denyAccess(w)
		return
	}

	result, err := h.service.ListByCustomer(r.Context(), customerID, repository.PageFromQuery(r.URL.Query().Get))
	if err != nil {
		sendServiceError(w, h.logger, err)
		return
	}

	view := pageView[accountView]{Items: make([]accountView, 0, len(result.Items)), Limit: result.Limit, Offset: result.Offset}
	for i := range result.Items {
		view.Items = append(view.Items, newAccountView(&result.Items[i]))
	}
	writeJSON(w, http.StatusOK, view)
}

// GetTransaction returns one ledger entry
// @Summary Get transaction
// @Description Admin only.
// @Tags Transactions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Transaction ID"
// @Success 200 {object} transactionView
// @Failure 404 {object} services.ErrorResponse
// @Router /transactions/{id} [get]
func (h *AccountHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	transactionID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	entry, err := h.service.Transaction(r.Context(), transactionID)
	if err != nil {
		sendServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newTransactionView(entry))
}

// ownedAccount loads the {id} account and checks the caller may see it.
func (h *AccountHandler) ownedAccount(w http.ResponseWriter, r *http.Request) (*models.Account, bool) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return nil, false
	}
	accountID, ok := pathID(w, r, "id")
	if !ok {
		return nil, false
	}

	account, err := h.service.Get(r.Context(), accountID)
	if err != nil {
		sendServiceError(w, h.logger, err)
		return nil, false
	}
	if !identity.CanAccess(account.CustomerID) {
		denyAccess(w)
		return nil, false
	}
	return account, true
}
