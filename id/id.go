// Package id defines the TypeID-based identifiers used by every Depot record.
//
// An ID carries a short prefix naming the record kind ("bkg" for a booking,
// "cyl" for a cylinder unit, ...) followed by a UUIDv7 suffix, so IDs sort by
// creation time and a misplaced ID is caught at parse time.
package id

import (
	"database/sql/driver"
	"fmt"

	"go.jetify.com/typeid/v2"
)

// Prefix identifies the record kind encoded in a TypeID.
type Prefix string

const (
	PrefixCustomer      Prefix = "cus" // Registered customer
	PrefixBooking       Prefix = "bkg" // Delivery booking
	PrefixCylinder      Prefix = "cyl" // Cylinder unit
	PrefixStove         Prefix = "stv" // Stove unit
	PrefixLendingRecord Prefix = "lnd" // Returned stove lending
)

// ID identifies a Depot record. The zero value is Nil.
//
//nolint:recvcheck // Value receivers for read-only methods, pointer receivers for UnmarshalText/Scan.
type ID struct {
	inner typeid.TypeID
	valid bool
}

// Nil is the zero-value ID.
var Nil ID

// New generates an ID with the given prefix. It panics on an invalid prefix.
func New(prefix Prefix) ID {
	tid, err := typeid.Generate(string(prefix))
	if err != nil {
		panic(fmt.Sprintf("id: invalid prefix %q: %v", prefix, err))
	}

	return ID{inner: tid, valid: true}
}

// Parse parses a TypeID string such as "bkg_01h2xcejqtf2nbrexx3vqjhp41".
func Parse(s string) (ID, error) {
	if s == "" {
		return Nil, fmt.Errorf("id: parse %q: empty string", s)
	}

	tid, err := typeid.Parse(s)
	if err != nil {
		return Nil, fmt.Errorf("id: parse %q: %w", s, err)
	}

	return ID{inner: tid, valid: true}, nil
}

// ParseWithPrefix parses s and checks that its prefix is expected.
func ParseWithPrefix(s string, expected Prefix) (ID, error) {
	parsed, err := Parse(s)
	if err != nil {
		return Nil, err
	}

	if parsed.Prefix() != expected {
		return Nil, fmt.Errorf("id: expected prefix %q, got %q", expected, parsed.Prefix())
	}

	return parsed, nil
}

// MustParse is like Parse but panics on error.
func MustParse(s string) ID {
	parsed, err := Parse(s)
	if err != nil {
		panic(fmt.Sprintf("id: must parse %q: %v", s, err))
	}

	return parsed
}

// ──────────────────────────────────────────────────
// Record kinds
// ──────────────────────────────────────────────────

// CustomerID identifies a customer (prefix "cus").
type CustomerID = ID

// BookingID identifies a booking (prefix "bkg").
type BookingID = ID

// CylinderID identifies a cylinder unit (prefix "cyl").
type CylinderID = ID

// StoveID identifies a stove unit (prefix "stv").
type StoveID = ID

// LendingRecordID identifies a lending record (prefix "lnd").
type LendingRecordID = ID

func NewCustomerID() ID      { return New(PrefixCustomer) }
func NewBookingID() ID       { return New(PrefixBooking) }
func NewCylinderID() ID      { return New(PrefixCylinder) }
func NewStoveID() ID         { return New(PrefixStove) }
func NewLendingRecordID() ID { return New(PrefixLendingRecord) }

func ParseCustomerID(s string) (ID, error)      { return ParseWithPrefix(s, PrefixCustomer) }
func ParseBookingID(s string) (ID, error)       { return ParseWithPrefix(s, PrefixBooking) }
func ParseCylinderID(s string) (ID, error)      { return ParseWithPrefix(s, PrefixCylinder) }
func ParseStoveID(s string) (ID, error)         { return ParseWithPrefix(s, PrefixStove) }
func ParseLendingRecordID(s string) (ID, error) { return ParseWithPrefix(s, PrefixLendingRecord) }

// ──────────────────────────────────────────────────
// ID methods
// ──────────────────────────────────────────────────

// String returns the full TypeID string representation (prefix_suffix).
// Returns an empty string for the Nil ID.
func (i ID) String() string {
	if !i.valid {
		return ""
	}

	return i.inner.String()
}

// Prefix returns the prefix component of this ID.
func (i ID) Prefix() Prefix {
	if !i.valid {
		return ""
	}

	return Prefix(i.inner.Prefix())
}

// IsNil reports whether this ID is the zero value.
func (i ID) IsNil() bool {
	return !i.valid
}

// MarshalText implements encoding.TextMarshaler.
func (i ID) MarshalText() ([]byte, error) {
	if !i.valid {
		return []byte{}, nil
	}

	return []byte(i.inner.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (i *ID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*i = Nil

		return nil
	}

	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}

	*i = parsed

	return nil
}

// Value implements driver.Valuer for database storage.
// Returns nil for the Nil ID so that optional foreign key columns store NULL.
func (i ID) Value() (driver.Value, error) {
	if !i.valid {
		return nil, nil //nolint:nilnil // nil is the canonical NULL for driver.Valuer
	}

	return i.inner.String(), nil
}

// Scan implements sql.Scanner for database retrieval.
func (i *ID) Scan(src any) error {
	if src == nil {
		*i = Nil

		return nil
	}

	switch v := src.(type) {
	case string:
		if v == "" {
			*i = Nil

			return nil
		}

		return i.UnmarshalText([]byte(v))
	case []byte:
		if len(v) == 0 {
			*i = Nil

			return nil
		}

		return i.UnmarshalText(v)
	default:
		return fmt.Errorf("id: cannot scan %T into ID", src)
	}
}
