package repository

import "github.com/bankcore/backend/internal/models"

// Customers is the customer reference table.
var Customers = Table[models.Customer]{
	Name:    "customer",
	Key:     "customer_id",
	Columns: []string{"customer_id", "first_name", "last_name", "email"},
	OrderBy: "last_name, first_name, customer_id",
	Scan: func(s Scanner) (*models.Customer, error) {
		var c models.Customer
		if err := s.Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email); err != nil {
			return nil, err
		}
		return &c, nil
	},
}

// Branches is the branch reference table.
var Branches = Table[models.Branch]{
	Name:    "branch",
	Key:     "branch_id",
	Columns: []string{"branch_id", "branch_name", "city"},
	OrderBy: "branch_name",
	Scan: func(s Scanner) (*models.Branch, error) {
		var b models.Branch
		if err := s.Scan(&b.ID, &b.Name, &b.City); err != nil {
			return nil, err
		}
		return &b, nil
	},
}
