// Package retention decides when finished records may be removed for good.
package retention

import (
	"time"

	"github.com/xraph/depot/booking"
	"github.com/xraph/depot/inventory"
)

const (
	DefaultBookingTTL = 20 * time.Hour
	DefaultLendingTTL = 28 * 24 * time.Hour

	DefaultBookingSweepInterval = 5 * time.Minute
	DefaultLendingSweepInterval = 24 * time.Hour
)

// Policy holds the retention windows.
type Policy struct {
	// BookingTTL is how long a Paid and Delivered booking is kept after its
	// last update.
	BookingTTL time.Duration `json:"booking_ttl"`
	// LendingTTL is how long a lending record is kept after the stove came back.
	LendingTTL time.Duration `json:"lending_ttl"`
}

// DefaultPolicy keeps finished bookings 20 hours and lending records 28 days.
func DefaultPolicy() Policy {
	return Policy{BookingTTL: DefaultBookingTTL, LendingTTL: DefaultLendingTTL}
}

// BookingExpired reports whether b is finished and at least BookingTTL old.
func (p Policy) BookingExpired(b *booking.Booking, now time.Time) bool {
	return b.Locked() && b.SinceUpdate(now) >= p.BookingTTL
}

// LendingExpired reports whether r was returned at least LendingTTL ago.
func (p Policy) LendingExpired(r *inventory.LendingRecord, now time.Time) bool {
	return r.Status == inventory.LendingReturned && now.Sub(r.ReturnedAt) >= p.LendingTTL
}

// BookingCutoff is the latest UpdatedAt an expired booking can have.
func (p Policy) BookingCutoff(now time.Time) time.Time { return now.Add(-p.BookingTTL) }

// LendingCutoff is the latest ReturnedAt an expired record can have.
func (p Policy) LendingCutoff(now time.Time) time.Time { return now.Add(-p.LendingTTL) }

// Result counts what one sweep removed.
type Result struct {
	BookingsDeleted       int `json:"bookings_deleted"`
	LendingRecordsDeleted int `json:"lending_records_deleted"`
}

// Add merges another result into r.
func (r *Result) Add(o Result) {
	r.BookingsDeleted += o.BookingsDeleted
	r.LendingRecordsDeleted += o.LendingRecordsDeleted
}

// Empty reports whether nothing was removed.
func (r Result) Empty() bool {
	return r.BookingsDeleted == 0 && r.LendingRecordsDeleted == 0
}
