package depot_test

import (
	"context"
	"log"
	"log/slog"
	"testing"
	"time"

	"github.com/xraph/depot"
	"github.com/xraph/depot/booking"
	"github.com/xraph/depot/changefeed"
	"github.com/xraph/depot/customer"
	"github.com/xraph/depot/inventory"
	"github.com/xraph/depot/store/memory"
	"github.com/xraph/depot/types"
)

// TestDocumentationExamples verifies that the examples in the package
// documentation compile and run.
func TestDocumentationExamples(t *testing.T) {
	t.Run("QuickStartExample", func(t *testing.T) {
		// Memory store for the demo; use PostgreSQL in production.
		store := memory.New()

		d := depot.New(store, depot.WithLogger(slog.Default()))

		ctx := context.Background()
		if err := d.Start(ctx); err != nil {
			t.Fatal(err)
		}
		defer d.Stop()

		ctx = depot.WithOwner(ctx, "agency-42")

		ch, cancel := d.Feed().Subscribe(changefeed.Bookings)
		defer cancel()

		c := &customer.Customer{
			Name:   "Lakshmi",
			Phone:  "9876500000",
			BookID: "LKSM0000AAAA1111",
		}
		if err := d.RegisterCustomer(ctx, c); err != nil {
			t.Fatal(err)
		}

		if err := d.AddInventoryUnits(ctx, c.CylinderType, inventory.CylinderFull, 10); err != nil {
			t.Fatal(err)
		}

		b, err := d.CreateBooking(ctx, depot.CreateBookingInput{
			CustomerID:   c.ID,
			Cylinders:    1,
			DSCCode:      "1234",
			ServiceType:  booking.ServiceDrop,
			DeliveryDate: time.Now(),
		})
		if err != nil {
			t.Fatal(err)
		}

		paid, delivered := booking.PaymentPaid, booking.StatusDelivered
		b, err = d.UpdateBooking(ctx, b.ID, depot.UpdateBookingInput{
			PaymentStatus:  &paid,
			DeliveryStatus: &delivered,
		})
		if err != nil {
			t.Fatal(err)
		}
		log.Printf("Booking %s charged %s\n", b.ID, b.Payment.Amount)

		select {
		case change := <-ch:
			log.Printf("Change: %s %s\n", change.Op, change.RecordID)
		default:
			t.Fatal("expected a booking change")
		}
	})

	t.Run("MoneyExamples", func(t *testing.T) {
		_ = types.Rupees(1150) // ₹1150.00
		_ = types.INR(5000)    // ₹50.00
		_ = types.Zero("inr")  // ₹0.00

		m1 := types.Rupees(1150)
		m2 := types.Rupees(50)
		_ = m1.Multiply(2).Add(m2) // ₹2350.00

		if m2.LessThan(m1) {
			// m2 is less than m1
		}

		_ = m1.String()      // "₹1150.00"
		_ = m1.FormatPlain() // "1150"
	})
}
