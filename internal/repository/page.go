package repository

import "strconv"

const (
	DefaultPageSize = 50
	MaxPageSize     = 100
)

// Page is a limit/offset window.
type Page struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// Normalize clamps the window to sane bounds.
func (p Page) Normalize() Page {
	if p.Limit < 1 {
		p.Limit = DefaultPageSize
	} else if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// PageFromQuery reads ?limit= and ?offset=; malformed values fall back to
// the defaults.
func PageFromQuery(get func(string) string) Page {
	limit, _ := strconv.Atoi(get("limit"))
	offset, _ := strconv.Atoi(get("offset"))
	return Page{Limit: limit, Offset: offset}.Normalize()
}

// Result is a page of items as returned to API clients.
type Result[T any] struct {
	Items  []T `json:"items"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

func NewResult[T any](items []T, page Page) Result[T] {
	if items == nil {
		items = []T{}
	}
	return Result[T]{Items: items, Limit: page.Limit, Offset: page.Offset}
}
