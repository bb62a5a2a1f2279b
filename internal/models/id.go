package models

import (
	"bytes"
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrInvalidID is returned when an identifier cannot be parsed.
var ErrInvalidID = errors.New("invalid identifier")

// ID is the opaque 128-bit identifier shared by every entity (accounts,
// customers, branches, ledger entries). All string, JSON and SQL conversion
// for identifiers lives in this file.
type ID uuid.UUID

// NilID is the zero identifier.
var NilID ID

// NewID returns a random identifier.
func NewID() ID {
	return ID(uuid.New())
}

// ParseID parses the canonical textual form. Both the hyphenated and the
// 32 hex character forms are accepted.
func ParseID(s string) (ID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return NilID, fmt.Errorf("%w: %q", ErrInvalidID, s)
	}
	return ID(u), nil
}

// MustParseID is ParseID for constants and tests.
func MustParseID(s string) ID {
	id, err := ParseID(s)
	if err != nil {
		panic(err)
	}
	return id
}

func (id ID) String() string {
	return uuid.UUID(id).String()
}

// IsZero reports whether id is the nil identifier.
func (id ID) IsZero() bool {
	return id == NilID
}

// Compare orders identifiers by their byte representation, which matches the
// lexicographic order of the canonical string form. Row locks are taken in
// this order.
func (id ID) Compare(other ID) int {
	return bytes.Compare(id[:], other[:])
}

func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *ID) UnmarshalText(data []byte) error {
	parsed, err := ParseID(string(data))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// Value implements driver.Valuer.
func (id ID) Value() (driver.Value, error) {
	return id.String(), nil
}

// Scan implements sql.Scanner. Text columns and 16 byte binary columns are
// both supported.
func (id *ID) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return id.UnmarshalText([]byte(v))
	case []byte:
		if len(v) == 16 {
			copy(id[:], v)
			return nil
		}
		return id.UnmarshalText(v)
	case nil:
		return fmt.Errorf("%w: NULL", ErrInvalidID)
	default:
		return fmt.Errorf("%w: unsupported type %T", ErrInvalidID, src)
	}
}

// NullID is an ID that may be NULL in the database.
type NullID struct {
	ID    ID
	Valid bool
}

// NullIDFrom converts an optional identifier.
func NullIDFrom(id *ID) NullID {
	if id == nil {
		return NullID{}
	}
	return NullID{ID: *id, Valid: true}
}

// Ptr returns nil for a NULL value.
func (n NullID) Ptr() *ID {
	if !n.Valid {
		return nil
	}
	id := n.ID
	return &id
}

func (n NullID) Value() (driver.Value, error) {
	if !n.Valid {
		return nil, nil
	}
	return n.ID.Value()
}

func (n *NullID) Scan(src any) error {
	if src == nil {
		n.ID, n.Valid = NilID, false
		return nil
	}
	if err := n.ID.Scan(src); err != nil {
		return err
	}
	n.Valid = true
	return nil
}
