package depot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/depot/booking"
	"github.com/xraph/depot/customer"
	"github.com/xraph/depot/history"
	"github.com/xraph/depot/id"
	"github.com/xraph/depot/inventory"
	"github.com/xraph/depot/pricing"
	"github.com/xraph/depot/types"
)

var planNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func planCustomer() *customer.Customer {
	return &customer.Customer{
		ID:           id.NewCustomerID(),
		OwnerKey:     "agency-1",
		Name:         "Ravi",
		Cylinders:    2,
		CylinderType: pricing.Type14kg,
		Category:     customer.CategoryDomestic,
	}
}

func planBooking(pay booking.PaymentStatus, amount types.Money, status booking.DeliveryStatus) *booking.Booking {
	return &booking.Booking{
		Entity:       types.NewEntityAt(planNow),
		ID:           id.NewBookingID(),
		OwnerKey:     "agency-1",
		CustomerID:   id.NewCustomerID(),
		Cylinders:    2,
		CylinderType: pricing.Type14kg,
		DSCCode:      "1234",
		ServiceType:  booking.ServiceDrop,
		DeliveryDate: planNow,
		Payment:      booking.Payment{Status: pay, Amount: amount},
		Status:       status,
	}
}

func TestPlanCreate(t *testing.T) {
	prices := pricing.Default()
	c := planCustomer()

	t.Run("pending carries zero and no history", func(t *testing.T) {
		p, err := planCreate(CreateBookingInput{
			CustomerID:   c.ID,
			Cylinders:    2,
			DSCCode:      "0001",
			ServiceType:  "Pickup+Drop",
			DeliveryDate: planNow,
		}, c, prices, planNow, time.UTC)
		require.NoError(t, err)
		assert.Equal(t, booking.ServicePickupDrop, p.next.ServiceType)
		assert.Equal(t, booking.PaymentPending, p.next.Payment.Status)
		assert.True(t, p.next.Payment.Amount.IsZero())
		assert.Nil(t, p.history)
		assert.Empty(t, p.stock)
		assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), p.next.DeliveryDate)
	})

	t.Run("paid drop with empties", func(t *testing.T) {
		p, err := planCreate(CreateBookingInput{
			CustomerID:            c.ID,
			Cylinders:             2,
			DSCCode:               "0001",
			ServiceType:           booking.ServiceDrop,
			DeliveryDate:          planNow,
			PaymentStatus:         booking.PaymentPaid,
			EmptyCylinderReceived: true,
		}, c, prices, planNow, time.UTC)
		require.NoError(t, err)
		assert.Equal(t, "2350", p.next.Payment.Amount.FormatPlain())
		require.NotNil(t, p.next.Payment.LastPaymentDate)
		require.NotNil(t, p.history)
		assert.Equal(t, historyRecord, p.history.action)
		assert.Equal(t, history.StatusPaidPendingDelivery, p.history.tx.Status)
		require.Len(t, p.stock, 1)
		assert.Equal(t, "add 2 EMPTY 14.2kg", p.stock[0].String())
	})

	t.Run("dates follow the configured zone", func(t *testing.T) {
		ist := time.FixedZone("IST", 5*3600+1800)
		// 20:00 UTC on the 28th is already the 1st in IST.
		late := time.Date(2026, 2, 28, 20, 0, 0, 0, time.UTC)
		_, err := planCreate(CreateBookingInput{
			CustomerID:   c.ID,
			Cylinders:    1,
			DSCCode:      "0001",
			DeliveryDate: late,
		}, c, prices, planNow, ist)
		require.NoError(t, err)

		_, err = planCreate(CreateBookingInput{
			CustomerID:   c.ID,
			Cylinders:    1,
			DSCCode:      "0001",
			DeliveryDate: late,
		}, c, prices, planNow, time.UTC)
		assert.ErrorIs(t, err, ErrInvalidDate)
	})
}

func TestPlanUpdateHistory(t *testing.T) {
	prices := pricing.Default()
	quote := prices.Quote(2, pricing.Type14kg, booking.ServiceDrop)
	paid, partial, pending := booking.PaymentPaid, booking.PaymentPartial, booking.PaymentPending
	transit, delivered, cancelled := booking.StatusInTransit, booking.StatusDelivered, booking.StatusCancelled

	tests := []struct {
		name     string
		cur      *booking.Booking
		in       UpdateBookingInput
		action   historyAction
		status   history.Status
		delivers bool
	}{
		{
			name:   "pending to paid records",
			cur:    planBooking(booking.PaymentPending, types.Zero("inr"), booking.StatusBooked),
			in:     UpdateBookingInput{PaymentStatus: &paid},
			action: historyRecord,
			status: history.StatusPaidPendingDelivery,
		},
		{
			name:   "new partial amount records",
			cur:    planBooking(booking.PaymentPartial, types.Rupees(500), booking.StatusBooked),
			in:     UpdateBookingInput{PaymentStatus: &partial, PaymentAmount: ptrMoney(types.Rupees(800))},
			action: historyRecord,
			status: history.StatusPartialPayment,
		},
		{
			name: "same partial amount is silent",
			cur:  planBooking(booking.PaymentPartial, types.Rupees(500), booking.StatusBooked),
			in:   UpdateBookingInput{PaymentStatus: &partial},
		},
		{
			name: "pending delivery move is silent",
			cur:  planBooking(booking.PaymentPending, types.Zero("inr"), booking.StatusBooked),
			in:   UpdateBookingInput{DeliveryStatus: &transit},
		},
		{
			name:   "paid delivery move revises",
			cur:    planBooking(booking.PaymentPaid, quote, booking.StatusBooked),
			in:     UpdateBookingInput{DeliveryStatus: &transit},
			action: historyRevise,
			status: history.StatusPaidPendingDelivery,
		},
		{
			name:     "paid delivered revises and takes stock",
			cur:      planBooking(booking.PaymentPaid, quote, booking.StatusInTransit),
			in:       UpdateBookingInput{DeliveryStatus: &delivered},
			action:   historyRevise,
			status:   history.StatusCompleted,
			delivers: true,
		},
		{
			name:     "paid and delivered at once records completed",
			cur:      planBooking(booking.PaymentPartial, types.Rupees(500), booking.StatusBooked),
			in:       UpdateBookingInput{PaymentStatus: &paid, DeliveryStatus: &delivered},
			action:   historyRecord,
			status:   history.StatusCompleted,
			delivers: true,
		},
		{
			name:   "paid cancellation revises",
			cur:    planBooking(booking.PaymentPaid, quote, booking.StatusBooked),
			in:     UpdateBookingInput{DeliveryStatus: &cancelled},
			action: historyRevise,
			status: history.StatusPaidPendingDelivery,
		},
		{
			name: "staying pending is silent",
			cur:  planBooking(booking.PaymentPending, types.Zero("inr"), booking.StatusBooked),
			in:   UpdateBookingInput{PaymentStatus: &pending},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := planUpdate(tt.cur, tt.in, prices, planNow.Add(time.Hour))
			require.NoError(t, err)

			if tt.action == 0 {
				assert.Nil(t, p.history)
			} else {
				require.NotNil(t, p.history)
				assert.Equal(t, tt.action, p.history.action)
				assert.Equal(t, tt.status, p.history.tx.Status)
				assert.True(t, quote.Equal(p.history.facts.Amount))
			}

			assert.Equal(t, tt.delivers, p.delivered)
			if tt.delivers {
				require.Len(t, p.stock, 1)
				assert.Equal(t, "remove 2 FULL 14.2kg", p.stock[0].String())
				assert.Equal(t, inventory.CylinderFull, p.stock[0].key.Status)
			} else {
				assert.Empty(t, p.stock)
			}
		})
	}
}

func TestPlanUpdateLeavesSnapshotAlone(t *testing.T) {
	cur := planBooking(booking.PaymentPartial, types.Rupees(500), booking.StatusBooked)
	paid := booking.PaymentPaid

	p, err := planUpdate(cur, UpdateBookingInput{PaymentStatus: &paid}, pricing.Default(), planNow.Add(time.Minute))
	require.NoError(t, err)

	assert.Equal(t, booking.PaymentPartial, cur.Payment.Status)
	assert.Equal(t, "500", cur.Payment.Amount.FormatPlain())
	assert.Nil(t, cur.Payment.LastPaymentDate)
	assert.Equal(t, "2350", p.next.Payment.Amount.FormatPlain())
	assert.True(t, p.next.UpdatedAt.After(cur.UpdatedAt))
}

func TestPlanUpdateRejects(t *testing.T) {
	prices := pricing.Default()
	partial := booking.PaymentPartial
	booked := booking.StatusBooked

	locked := planBooking(booking.PaymentPaid, types.Rupees(2350), booking.StatusDelivered)
	_, err := planUpdate(locked, UpdateBookingInput{}, prices, planNow)
	var le *LockedError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, locked.ID.String(), le.BookingID)

	transit := planBooking(booking.PaymentPending, types.Zero("inr"), booking.StatusInTransit)
	_, err = planUpdate(transit, UpdateBookingInput{DeliveryStatus: &booked}, prices, planNow)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	pending := planBooking(booking.PaymentPending, types.Zero("inr"), booking.StatusBooked)
	_, err = planUpdate(pending, UpdateBookingInput{PaymentStatus: &partial}, prices, planNow)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = planUpdate(pending, UpdateBookingInput{PaymentStatus: &partial, PaymentAmount: ptrMoney(types.Major(10, "usd"))}, prices, planNow)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func ptrMoney(m types.Money) *types.Money { return &m }
