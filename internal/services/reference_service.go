package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/bankcore/backend/internal/models"
	"github.com/bankcore/backend/internal/repository"
)

// ReferenceService serves the read-only branch and customer directories.
type ReferenceService struct {
	db        *sql.DB
	branches  *repository.Repository[models.Branch]
	customers *repository.Repository[models.Customer]
}

func NewReferenceService(db *sql.DB) *ReferenceService {
	return &ReferenceService{
		db:        db,
		branches:  repository.New(repository.Branches),
		customers: repository.New(repository.Customers),
	}
}

// Branches lists branches, optionally only those in city.
func (s *ReferenceService) Branches(ctx context.Context, city string, page repository.Page) (repository.Result[models.Branch], error) {
	page = page.Normalize()
	var (
		branches []models.Branch
		err      error
	)
	if city != "" {
		branches, err = s.branches.ListWhere(ctx, s.db, "city", city, page)
	} else {
		branches, err = s.branches.List(ctx, s.db, page)
	}
	if err != nil {
		return repository.Result[models.Branch]{}, classify(err)
	}
	return repository.NewResult(branches, page), nil
}

func (s *ReferenceService) Branch(ctx context.Context, id models.ID) (*models.Branch, error) {
	branch, err := s.branches.Get(ctx, s.db, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrBranchNotFound
	}
	if err != nil {
		return nil, classify(err)
	}
	return branch, nil
}

func (s *ReferenceService) Customer(ctx context.Context, id models.ID) (*models.Customer, error) {
	customer, err := s.customers.Get(ctx, s.db, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrCustomerNotFound
	}
	if err != nil {
		return nil, classify(err)
	}
	return customer, nil
}
