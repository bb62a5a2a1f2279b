package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/bankcore/backend/internal/models"
	"github.com/bankcore/backend/internal/repository"
	"github.com/bankcore/backend/internal/services"
)

func TestReferenceHandler(t *testing.T) {
	t.Run("branches by city", func(t *testing.T) {
		router, deps := newTestRouter(userOne)
		page := repository.Page{Limit: repository.DefaultPageSize}
		branches := []models.Branch{{ID: branchOne, Name: "Downtown", City: "Ankara"}}
		deps.reference.On("Branches", mock.Anything, "Ankara", page).Return(repository.NewResult(branches, page), nil)

		w := do(router, http.MethodGet, "/branches?city=Ankara", "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"branch_name":"Downtown"`)
	})

	t.Run("unknown branch", func(t *testing.T) {
		router, deps := newTestRouter(userOne)
		deps.reference.On("Branch", mock.Anything, branchOne).Return(nil, services.ErrBranchNotFound)

		w := do(router, http.MethodGet, "/branches/"+branchOne.String(), "")

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("own customer record", func(t *testing.T) {
		router, deps := newTestRouter(userOne)
		deps.reference.On("Customer", mock.Anything, customerOne).
			Return(&models.Customer{ID: customerOne, FirstName: "Ada", LastName: "Yilmaz", Email: "ada@example.com"}, nil)

		w := do(router, http.MethodGet, "/customers/"+customerOne.String(), "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "ada@example.com")
	})

	t.Run("other customer record", func(t *testing.T) {
		router, _ := newTestRouter(userOne)

		w := do(router, http.MethodGet, "/customers/"+customerTwo.String(), "")

		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}
