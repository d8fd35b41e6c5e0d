package retention

import (
	"testing"
	"time"

	"github.com/xraph/depot/booking"
	"github.com/xraph/depot/inventory"
	"github.com/xraph/depot/types"
)

func TestBookingExpired(t *testing.T) {
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	p := DefaultPolicy()

	finished := func(age time.Duration) *booking.Booking {
		return &booking.Booking{
			Entity:  types.Entity{UpdatedAt: now.Add(-age)},
			Status:  booking.StatusDelivered,
			Payment: booking.Payment{Status: booking.PaymentPaid},
		}
	}

	tests := []struct {
		name string
		b    *booking.Booking
		want bool
	}{
		{"19h59m retained", finished(19*time.Hour + 59*time.Minute), false},
		{"20h00m deleted", finished(20 * time.Hour), true},
		{"3 days deleted", finished(72 * time.Hour), true},
		{"delivered but partial", &booking.Booking{
			Entity:  types.Entity{UpdatedAt: now.Add(-48 * time.Hour)},
			Status:  booking.StatusDelivered,
			Payment: booking.Payment{Status: booking.PaymentPartial},
		}, false},
		{"paid but in transit", &booking.Booking{
			Entity:  types.Entity{UpdatedAt: now.Add(-48 * time.Hour)},
			Status:  booking.StatusInTransit,
			Payment: booking.Payment{Status: booking.PaymentPaid},
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.BookingExpired(tt.b, now); got != tt.want {
				t.Errorf("BookingExpired: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLendingExpired(t *testing.T) {
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	p := DefaultPolicy()

	tests := []struct {
		name string
		age  time.Duration
		want bool
	}{
		{"27 days", 27 * 24 * time.Hour, false},
		{"just under 28 days", 28*24*time.Hour - time.Minute, false},
		{"28 days", 28 * 24 * time.Hour, true},
		{"40 days", 40 * 24 * time.Hour, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &inventory.LendingRecord{Status: inventory.LendingReturned, ReturnedAt: now.Add(-tt.age)}
			if got := p.LendingExpired(r, now); got != tt.want {
				t.Errorf("LendingExpired: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResultAdd(t *testing.T) {
	var r Result
	if !r.Empty() {
		t.Error("zero result should be empty")
	}
	r.Add(Result{BookingsDeleted: 2})
	r.Add(Result{BookingsDeleted: 1, LendingRecordsDeleted: 3})
	if r.BookingsDeleted != 3 || r.LendingRecordsDeleted != 3 {
		t.Errorf("Add: got %+v", r)
	}
}
