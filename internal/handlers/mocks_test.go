package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/bankcore/backend/internal/middleware"
	"github.com/bankcore/backend/internal/models"
	"github.com/bankcore/backend/internal/repository"
	"github.com/bankcore/backend/internal/services"
)

type mockTransferService struct {
	mock.Mock
}

func (m *mockTransferService) Transfer(ctx context.Context, req services.TransferRequest) (*services.TransferResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.TransferResult), args.Error(1)
}

func (m *mockTransferService) Deposit(ctx context.Context, accountID models.ID, amount decimal.Decimal) (*services.BalanceResult, error) {
	args := m.Called(ctx, accountID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.BalanceResult), args.Error(1)
}

func (m *mockTransferService) Withdraw(ctx context.Context, accountID models.ID, amount decimal.Decimal) (*services.BalanceResult, error) {
	args := m.Called(ctx, accountID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.BalanceResult), args.Error(1)
}

type mockIdempotency struct {
	mock.Mock
}

func (m *mockIdempotency) Reserve(ctx context.Context, customerID models.ID, key, fingerprint string) (*services.StoredResponse, error) {
	args := m.Called(ctx, customerID, key, fingerprint)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.StoredResponse), args.Error(1)
}

func (m *mockIdempotency) Complete(ctx context.Context, customerID models.ID, key string, resp services.StoredResponse) error {
	return m.Called(ctx, customerID, key, resp).Error(0)
}

func (m *mockIdempotency) Release(ctx context.Context, customerID models.ID, key string) error {
	return m.Called(ctx, customerID, key).Error(0)
}

type mockAccountService struct {
	mock.Mock
}

func (m *mockAccountService) Create(ctx context.Context, in services.CreateAccountInput) (*models.Account, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *mockAccountService) Get(ctx context.Context, accountID models.ID) (*models.Account, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *mockAccountService) ListByCustomer(ctx context.Context, customerID models.ID, page repository.Page) (repository.Result[models.Account], error) {
	args := m.Called(ctx, customerID, page)
	return args.Get(0).(repository.Result[models.Account]), args.Error(1)
}

func (m *mockAccountService) Transactions(ctx context.Context, accountID models.ID, page repository.Page) (repository.Result[models.Transaction], error) {
	args := m.Called(ctx, accountID, page)
	return args.Get(0).(repository.Result[models.Transaction]), args.Error(1)
}

func (m *mockAccountService) Transaction(ctx context.Context, transactionID models.ID) (*models.Transaction, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

type mockReferenceService struct {
	mock.Mock
}

func (m *mockReferenceService) Branches(ctx context.Context, city string, page repository.Page) (repository.Result[models.Branch], error) {
	args := m.Called(ctx, city, page)
	return args.Get(0).(repository.Result[models.Branch]), args.Error(1)
}

func (m *mockReferenceService) Branch(ctx context.Context, id models.ID) (*models.Branch, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Branch), args.Error(1)
}

func (m *mockReferenceService) Customer(ctx context.Context, id models.ID) (*models.Customer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Customer), args.Error(1)
}

type testDeps struct {
	transfers   *mockTransferService
	idempotency *mockIdempotency
	accounts    *mockAccountService
	reference   *mockReferenceService
}

// newTestRouter mounts the API with every request authenticated as identity.
func newTestRouter(identity middleware.Identity) (http.Handler, *testDeps) {
	deps := &testDeps{
		transfers:   new(mockTransferService),
		idempotency: new(mockIdempotency),
		accounts:    new(mockAccountService),
		reference:   new(mockReferenceService),
	}
	api := API{
		Transfers: NewTransferHandler(deps.transfers, deps.idempotency, nil),
		Accounts:  NewAccountHandler(deps.accounts, nil),
		Reference: NewReferenceHandler(deps.reference, nil),
	}

	r := chi.NewRouter()
	api.Register(r, func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(middleware.WithIdentity(r.Context(), identity)))
		})
	})
	return r, deps
}
