package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/bankcore/backend/internal/models"
	"github.com/bankcore/backend/internal/repository"
)

// ReferenceService serves branch and customer reference data.
type ReferenceService interface {
	Branches(ctx context.Context, city string, page repository.Page) (repository.Result[models.Branch], error)
	Branch(ctx context.Context, id models.ID) (*models.Branch, error)
	Customer(ctx context.Context, id models.ID) (*models.Customer, error)
}

type ReferenceHandler struct {
	service ReferenceService
	logger  *zap.Logger
}

func NewReferenceHandler(service ReferenceService, logger *zap.Logger) *ReferenceHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReferenceHandler{service: service, logger: logger}
}

// ListBranches
// @Summary List branches
// @Tags Branches
// @Produce json
// @Security BearerAuth
// @Param city query string false "Only branches in this city"
// @Param limit query int false "Page size (max 100)"
// @Param offset query int false "Offset"
// @Success 200 {object} repository.Result[models.Branch]
// @Router /branches [get]
func (h *ReferenceHandler) ListBranches(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	result, err := h.service.Branches(r.Context(), query.Get("city"), repository.PageFromQuery(query.Get))
	if err != nil {
		sendServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GetBranch
// @Summary Get branch
// @Tags Branches
// @Produce json
// @Security BearerAuth
// @Param id path string true "Branch ID"
// @Success 200 {object} models.Branch
// @Failure 404 {object} services.ErrorResponse
// @Router /branches/{id} [get]
func (h *ReferenceHandler) GetBranch(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	branch, err := h.service.Branch(r.Context(), id)
	if err != nil {
		sendServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, branch)
}

// GetCustomer
// @Summary Get customer
// @Tags Customers
// @Produce json
// @Security BearerAuth
// @Param id path string true "Customer ID"
// @Success 200 {object} models.Customer
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /customers/{id} [get]
func (h *ReferenceHandler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if !identity.CanAccess(id) {
		denyAccess(w)
		return
	}

	customer, err := h.service.Customer(r.Context(), id)
	if err != nil {
		sendServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, customer)
}
