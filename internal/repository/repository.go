package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/bankcore/backend/internal/database"
	"github.com/bankcore/backend/internal/models"
)

// ErrNotFound is returned by Get when no row matches.
var ErrNotFound = errors.New("record not found")

// Scanner is the subset of *sql.Row / *sql.Rows used by a Table's scan func.
type Scanner interface {
	Scan(dest ...any) error
}

// Table describes how one entity type maps onto a table.
type Table[T any] struct {
	Name    string
	Key     string
	Columns []string
	OrderBy string
	Scan    func(s Scanner) (*T, error)
}

// Repository is the read side shared by the reference entities. Entities
// with invariants (accounts, ledger entries) have dedicated stores.
type Repository[T any] struct {
	table Table[T]
}

func New[T any](table Table[T]) *Repository[T] {
	if table.OrderBy == "" {
		table.OrderBy = table.Key
	}
	return &Repository[T]{table: table}
}

func (r *Repository[T]) selectClause() string {
	return fmt.Sprintf("SELECT %s FROM %s", strings.Join(r.table.Columns, ", "), r.table.Name)
}

// Get returns the row with the given key or ErrNotFound.
func (r *Repository[T]) Get(ctx context.Context, q database.Querier, id models.ID) (*T, error) {
	query := fmt.Sprintf("%s WHERE %s = $1", r.selectClause(), r.table.Key)
	entity, err := r.table.Scan(q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get %s %s", r.table.Name, id)
	}
	return entity, nil
}

// Exists reports whether a row with the given key is present.
func (r *Repository[T]) Exists(ctx context.Context, q database.Querier, id models.ID) (bool, error) {
	query := fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE %s = $1)", r.table.Name, r.table.Key)
	var exists bool
	if err := q.QueryRowContext(ctx, query, id).Scan(&exists); err != nil {
		return false, errors.Wrapf(err, "probe %s %s", r.table.Name, id)
	}
	return exists, nil
}

// List returns one page of rows in table order.
func (r *Repository[T]) List(ctx context.Context, q database.Querier, page Page) ([]T, error) {
	page = page.Normalize()
	query := fmt.Sprintf("%s ORDER BY %s LIMIT $1 OFFSET $2", r.selectClause(), r.table.OrderBy)
	return r.collect(ctx, q, query, page.Limit, page.Offset)
}

// ListWhere returns one page of rows whose column equals value.
func (r *Repository[T]) ListWhere(ctx context.Context, q database.Querier, column string, value any, page Page) ([]T, error) {
	page = page.Normalize()
	query := fmt.Sprintf("%s WHERE %s = $1 ORDER BY %s LIMIT $2 OFFSET $3",
		r.selectClause(), column, r.table.OrderBy)
	return r.collect(ctx, q, query, value, page.Limit, page.Offset)
}

func (r *Repository[T]) collect(ctx context.Context, q database.Querier, query string, args ...any) ([]T, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "list %s", r.table.Name)
	}
	defer rows.Close()

	items := []T{}
	for rows.Next() {
		entity, err := r.table.Scan(rows)
		if err != nil {
			return nil, errors.Wrapf(err, "scan %s", r.table.Name)
		}
		items = append(items, *entity)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "list %s", r.table.Name)
	}
	return items, nil
}
