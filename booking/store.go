package booking

import (
	"time"

	"github.com/xraph/depot/id"
)

// ListOpts filters a booking listing. OwnerKey is required at the Depot
// boundary; the retention sweeper leaves it empty to scan every owner.
type ListOpts struct {
	OwnerKey       string
	CustomerID     id.CustomerID
	DeliveryStatus DeliveryStatus
	PaymentStatus  PaymentStatus
	// From and To bound DeliveryDate, inclusive. Zero means unbounded.
	From time.Time
	To   time.Time
	// UpdatedBefore keeps bookings last updated at or before this instant.
	UpdatedBefore time.Time
	Limit         int
	Offset        int
}

// Matches reports whether b passes every filter in o. Backends without a
// native query language use it directly.
func (o ListOpts) Matches(b *Booking) bool {
	if o.OwnerKey != "" && b.OwnerKey != o.OwnerKey {
		return false
	}
	if !o.CustomerID.IsNil() && b.CustomerID.String() != o.CustomerID.String() {
		return false
	}
	if o.DeliveryStatus != "" && b.Status != o.DeliveryStatus {
		return false
	}
	if o.PaymentStatus != "" && b.Payment.Status != o.PaymentStatus {
		return false
	}
	if !o.From.IsZero() && b.DeliveryDate.Before(o.From) {
		return false
	}
	if !o.To.IsZero() && b.DeliveryDate.After(o.To) {
		return false
	}
	if !o.UpdatedBefore.IsZero() && b.UpdatedAt.After(o.UpdatedBefore) {
		return false
	}
	return true
}
