package customer

import (
	"regexp"
	"strings"
	"time"

	"github.com/xraph/depot/booking"
	"github.com/xraph/depot/history"
	"github.com/xraph/depot/id"
	"github.com/xraph/depot/types"
)

type Category string

const (
	CategoryDomestic   Category = "Domestic"
	CategoryCommercial Category = "Commercial"
)

func (c Category) Valid() bool {
	return c == CategoryDomestic || c == CategoryCommercial
}

type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
	GenderOther  Gender = "Other"
)

// DefaultCylinderType is assumed when a registration names none.
const DefaultCylinderType = "14.2kg"

// PaymentSnapshot is the customer's most recent payment outcome.
type PaymentSnapshot struct {
	Status          booking.PaymentStatus `json:"status"`
	Amount          types.Money           `json:"amount"`
	LastPaymentDate *time.Time            `json:"last_payment_date,omitempty"`
}

// Customer is a registered gas connection holder.
type Customer struct {
	types.Entity
	ID       id.CustomerID `json:"id"`
	OwnerKey string        `json:"owner_key"`
	Name     string        `json:"name"`
	Phone    string        `json:"phone"`
	// BookID is the 16-character gas book number. Required for Domestic
	// customers and read-only once registered.
	BookID         string                `json:"book_id,omitempty"`
	Gender         Gender                `json:"gender"`
	Category       Category              `json:"category"`
	Subsidy        bool                  `json:"subsidy"`
	Address        string                `json:"address"`
	Cylinders      int                   `json:"cylinders"`
	CylinderType   string                `json:"cylinder_type"`
	Payment        PaymentSnapshot       `json:"payment"`
	PaymentHistory []history.Transaction `json:"payment_history"`
}

var bookIDPattern = regexp.MustCompile(`^[A-Z0-9]{16}$`)

// NormalizeBookID trims and upper-cases a book number.
func NormalizeBookID(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// ValidBookID reports whether s, once normalized, is 16 letters or digits.
func ValidBookID(s string) bool {
	return bookIDPattern.MatchString(NormalizeBookID(s))
}

// NormalizePhone strips spaces and dashes.
func NormalizePhone(s string) string {
	return strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(s))
}

// Clone returns a deep copy.
func (c *Customer) Clone() *Customer {
	out := *c
	out.PaymentHistory = append([]history.Transaction(nil), c.PaymentHistory...)
	if c.Payment.LastPaymentDate != nil {
		t := *c.Payment.LastPaymentDate
		out.Payment.LastPaymentDate = &t
	}
	return &out
}

// ListOpts filters a customer listing.
type ListOpts struct {
	OwnerKey string
	Category Category
	Subsidy  *bool
	// Search matches name, phone or book number, case-insensitively.
	Search string
	Limit  int
	Offset int
}

// Matches reports whether c passes every filter in o.
func (o ListOpts) Matches(c *Customer) bool {
	if o.OwnerKey != "" && c.OwnerKey != o.OwnerKey {
		return false
	}
	if o.Category != "" && c.Category != o.Category {
		return false
	}
	if o.Subsidy != nil && c.Subsidy != *o.Subsidy {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(o.Search)); q != "" {
		if !strings.Contains(strings.ToLower(c.Name), q) &&
			!strings.Contains(c.Phone, q) &&
			!strings.Contains(strings.ToLower(c.BookID), q) {
			return false
		}
	}
	return true
}
