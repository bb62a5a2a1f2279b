package models

// Customer is read-only reference data owned by the customer service.
type Customer struct {
	ID        ID     `json:"customer_id" db:"customer_id"`
	FirstName string `json:"first_name" db:"first_name"`
	LastName  string `json:"last_name" db:"last_name"`
	Email     string `json:"email" db:"email"`
}

// Branch is read-only reference data owned by the branch service.
type Branch struct {
	ID   ID     `json:"branch_id" db:"branch_id"`
	Name string `json:"branch_name" db:"branch_name"`
	City string `json:"city" db:"city"`
}
