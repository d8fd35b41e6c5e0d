// Package pricing holds the price book bookings are charged from: a unit price
// per cylinder type and a flat fee per pickup/drop service.
package pricing

import (
	"fmt"
	"strings"

	"github.com/xraph/depot/booking"
	"github.com/xraph/depot/types"
)

// Cylinder types the distributor stocks out of the box.
const (
	Type14kg = "14.2kg"
	Type5kg  = "5kg"
	Type19kg = "19kg"
)

// DefaultCylinderPrice is charged per cylinder, in rupees, for every type that
// has no explicit price.
const DefaultCylinderPrice int64 = 1150

// Book is a price book. The zero value is not usable; start from Default.
type Book struct {
	Currency string `json:"currency"`
	// Fallback applies to cylinder types missing from Cylinders.
	Fallback    types.Money                         `json:"fallback"`
	Cylinders   map[string]types.Money              `json:"cylinders"`
	ServiceFees map[booking.ServiceType]types.Money `json:"service_fees"`
}

// Default returns the standard book: 1150 per cylinder regardless of type,
// 50 for Pickup or Drop alone and 70 for both.
func Default() Book {
	return Book{
		Currency: types.DefaultCurrency,
		Fallback: types.Rupees(DefaultCylinderPrice),
		Cylinders: map[string]types.Money{
			Type14kg: types.Rupees(DefaultCylinderPrice),
			Type5kg:  types.Rupees(DefaultCylinderPrice),
			Type19kg: types.Rupees(DefaultCylinderPrice),
		},
		ServiceFees: map[booking.ServiceType]types.Money{
			booking.ServiceNone:       types.Rupees(0),
			booking.ServicePickup:     types.Rupees(50),
			booking.ServiceDrop:       types.Rupees(50),
			booking.ServicePickupDrop: types.Rupees(70),
		},
	}
}

// Price returns the unit price of one cylinder of the given type.
func (b Book) Price(cylinderType string) types.Money {
	if p, ok := b.Cylinders[cylinderType]; ok {
		return p
	}
	return b.Fallback
}

// ServiceFee returns the flat fee for a service. Unknown services cost nothing.
func (b Book) ServiceFee(s booking.ServiceType) types.Money {
	if f, ok := b.ServiceFees[s]; ok {
		return f
	}
	return types.Zero(b.Currency)
}

// Quote is the full amount owed for a booking:
// cylinders*Price(cylinderType) + ServiceFee(service).
func (b Book) Quote(cylinders int, cylinderType string, s booking.ServiceType) types.Money {
	return b.Price(cylinderType).Multiply(int64(cylinders)).Add(b.ServiceFee(s))
}

// KnownType reports whether the book carries an explicit price for the type.
func (b Book) KnownType(cylinderType string) bool {
	_, ok := b.Cylinders[cylinderType]
	return ok
}

// Validate checks every amount shares the book's currency and is not negative.
func (b Book) Validate() error {
	cur := strings.ToLower(b.Currency)
	check := func(what string, m types.Money) error {
		if m.Currency != cur {
			return fmt.Errorf("pricing: %s is in %q, book is in %q", what, m.Currency, cur)
		}
		if m.IsNegative() {
			return fmt.Errorf("pricing: %s is negative", what)
		}
		return nil
	}
	if err := check("fallback price", b.Fallback); err != nil {
		return err
	}
	for t, p := range b.Cylinders {
		if err := check("price of "+t, p); err != nil {
			return err
		}
	}
	for s, f := range b.ServiceFees {
		if err := check("fee for "+string(s), f); err != nil {
			return err
		}
	}
	return nil
}
