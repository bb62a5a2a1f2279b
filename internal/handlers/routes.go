package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bankcore/backend/internal/middleware"
)

// API groups the handlers mounted under /api/v1.
type API struct {
	Transfers *TransferHandler
	Accounts  *AccountHandler
	Reference *ReferenceHandler
}

// Register mounts every authenticated route on r. authenticate must place a
// middleware.Identity on the request context.
func (a API) Register(r chi.Router, authenticate func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(authenticate)

		r.Post("/transfers", a.Transfers.CreateTransfer)

		r.Get("/accounts/{id}", a.Accounts.GetAccount)
		r.Get("/accounts/{id}/transactions", a.Accounts.ListTransactions)
		r.Get("/customers/{id}/accounts", a.Accounts.ListCustomerAccounts)
		r.Get("/customers/{id}", a.Reference.GetCustomer)

		r.Get("/branches", a.Reference.ListBranches)
		r.Get("/branches/{id}", a.Reference.GetBranch)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin)

			r.Post("/accounts", a.Accounts.CreateAccount)
			r.Post("/accounts/{id}/deposits", a.Transfers.Deposit)
			r.Post("/accounts/{id}/withdrawals", a.Transfers.Withdraw)
			r.Get("/transactions/{id}", a.Accounts.GetTransaction)
		})
	})
}
