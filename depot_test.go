package depot_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/depot"
	"github.com/xraph/depot/booking"
	"github.com/xraph/depot/changefeed"
	"github.com/xraph/depot/customer"
	"github.com/xraph/depot/history"
	"github.com/xraph/depot/id"
	"github.com/xraph/depot/inventory"
	"github.com/xraph/depot/pricing"
	"github.com/xraph/depot/retention"
	"github.com/xraph/depot/store/memory"
	"github.com/xraph/depot/types"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recorder struct {
	mu         sync.Mutex
	shortfalls []int
	completed  []string
	sweeps     []retention.Result
	recorded   []history.Transaction
}

func (r *recorder) Name() string { return "recorder" }

func (r *recorder) OnStockShortfall(_ context.Context, _ *booking.Booking, available int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shortfalls = append(r.shortfalls, available)
	return nil
}

func (r *recorder) OnBookingCompleted(_ context.Context, b *booking.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed = append(r.completed, b.ID.String())
	return nil
}

func (r *recorder) OnRetentionSweep(_ context.Context, res retention.Result, _ time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweeps = append(r.sweeps, res)
	return nil
}

func (r *recorder) OnTransactionRecorded(_ context.Context, _ id.CustomerID, tx history.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recorded = append(r.recorded, tx)
	return nil
}

type fixture struct {
	d     *depot.Depot
	clock *testClock
	rec   *recorder
	ctx   context.Context
}

func newFixture(t *testing.T, opts ...depot.Option) *fixture {
	t.Helper()
	clock := &testClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	rec := &recorder{}
	base := []depot.Option{
		depot.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		depot.WithClock(clock.Now),
		depot.WithLocation(time.UTC),
		depot.WithPlugin(rec),
		depot.WithSweepIntervals(0, 0),
	}
	d := depot.New(memory.New(), append(base, opts...)...)
	require.NoError(t, d.Start(context.Background()))
	t.Cleanup(func() { _ = d.Stop() })

	return &fixture{
		d:     d,
		clock: clock,
		rec:   rec,
		ctx:   depot.WithOwner(context.Background(), "agency-1"),
	}
}

func (f *fixture) register(t *testing.T, cylinders int) *customer.Customer {
	t.Helper()
	c := &customer.Customer{
		Name:         "Ravi Kumar",
		Phone:        "98765 43210",
		BookID:       "abcd1234efgh5678",
		Category:     customer.CategoryDomestic,
		Cylinders:    cylinders,
		CylinderType: pricing.Type14kg,
		Address:      "4 Temple Street",
	}
	require.NoError(t, f.d.RegisterCustomer(f.ctx, c))
	return c
}

func (f *fixture) book(t *testing.T, c *customer.Customer, service booking.ServiceType) *booking.Booking {
	t.Helper()
	b, err := f.d.CreateBooking(f.ctx, depot.CreateBookingInput{
		CustomerID:   c.ID,
		Cylinders:    c.Cylinders,
		CylinderType: c.CylinderType,
		DSCCode:      "1234",
		ServiceType:  service,
		DeliveryDate: f.clock.Now(),
	})
	require.NoError(t, err)
	return b
}

func ptr[T any](v T) *T { return &v }

func paidAndDelivered() depot.UpdateBookingInput {
	return depot.UpdateBookingInput{
		PaymentStatus:  ptr(booking.PaymentPaid),
		DeliveryStatus: ptr(booking.StatusDelivered),
	}
}

func TestDeliveryScenario(t *testing.T) {
	tests := []struct {
		name   string
		prices pricing.Book
		want   string
	}{
		{"default prices", pricing.Default(), "2350"},
		{"1200 per cylinder", func() pricing.Book {
			b := pricing.Default()
			b.Cylinders[pricing.Type14kg] = types.Rupees(1200)
			return b
		}(), "2450"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, depot.WithPriceBook(tt.prices))
			c := f.register(t, 2)
			require.NoError(t, f.d.AddInventoryUnits(f.ctx, pricing.Type14kg, inventory.CylinderFull, 5))

			_, err := f.d.CreateBooking(f.ctx, depot.CreateBookingInput{
				CustomerID:   c.ID,
				Cylinders:    3,
				CylinderType: pricing.Type14kg,
				DSCCode:      "1234",
				ServiceType:  booking.ServiceDrop,
				DeliveryDate: f.clock.Now(),
			})
			require.ErrorIs(t, err, depot.ErrCapacityExceeded)
			assert.True(t, depot.IsValidation(err))

			b := f.book(t, c, booking.ServiceDrop)
			assert.Equal(t, booking.StatusBooked, b.Status)
			assert.Equal(t, booking.PaymentPending, b.Payment.Status)
			assert.True(t, b.Payment.Amount.IsZero())

			updated, err := f.d.UpdateBooking(f.ctx, b.ID, paidAndDelivered())
			require.NoError(t, err)
			assert.Equal(t, tt.want, updated.Payment.Amount.FormatPlain())
			assert.True(t, updated.Locked())
			require.NotNil(t, updated.Payment.LastPaymentDate)

			full, err := f.d.CountInventoryUnits(f.ctx, pricing.Type14kg, inventory.CylinderFull)
			require.NoError(t, err)
			assert.Equal(t, 3, full)

			got, err := f.d.GetCustomer(f.ctx, c.ID)
			require.NoError(t, err)
			require.Len(t, got.PaymentHistory, 1)
			tx := got.PaymentHistory[0]
			assert.Equal(t, history.StatusCompleted, tx.Status)
			assert.Equal(t, tt.want, tx.Amount.FormatPlain())
			assert.Equal(t, b.ID.String(), tx.BookingID.String())
			assert.Equal(t, booking.PaymentPaid, got.Payment.Status)
			assert.Equal(t, []string{b.ID.String()}, f.rec.completed)
		})
	}
}

func TestPaidAmountMatchesQuote(t *testing.T) {
	f := newFixture(t)
	prices := pricing.Default()
	c := f.register(t, 3)
	require.NoError(t, f.d.AddInventoryUnits(f.ctx, pricing.Type14kg, inventory.CylinderFull, 20))

	for _, service := range []booking.ServiceType{booking.ServiceNone, booking.ServicePickup, booking.ServiceDrop, booking.ServicePickupDrop} {
		for n := 1; n <= 3; n++ {
			b, err := f.d.CreateBooking(f.ctx, depot.CreateBookingInput{
				CustomerID:    c.ID,
				Cylinders:     n,
				DSCCode:       "0042",
				ServiceType:   service,
				DeliveryDate:  f.clock.Now(),
				PaymentStatus: booking.PaymentPaid,
			})
			require.NoError(t, err)
			want := prices.Price(pricing.Type14kg).Multiply(int64(n)).Add(prices.ServiceFee(service))
			assert.True(t, want.Equal(b.Payment.Amount), "%s x%d: got %s want %s", service, n, b.Payment.Amount, want)
		}
	}
}

func TestLockedBookingRejectsEveryUpdate(t *testing.T) {
	f := newFixture(t)
	c := f.register(t, 1)
	require.NoError(t, f.d.AddInventoryUnits(f.ctx, pricing.Type14kg, inventory.CylinderFull, 1))
	b := f.book(t, c, booking.ServiceNone)

	locked, err := f.d.UpdateBooking(f.ctx, b.ID, paidAndDelivered())
	require.NoError(t, err)

	attempts := []depot.UpdateBookingInput{
		paidAndDelivered(),
		{DeliveryStatus: ptr(booking.StatusCancelled)},
		{PaymentStatus: ptr(booking.PaymentPartial), PaymentAmount: ptr(types.Rupees(10))},
		{},
	}
	for i, in := range attempts {
		_, err := f.d.UpdateBooking(f.ctx, b.ID, in)
		var le *depot.LockedError
		require.ErrorAs(t, err, &le, "attempt %d", i)
		assert.ErrorIs(t, err, depot.ErrBookingLocked)
	}

	got, err := f.d.GetBooking(f.ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, locked.UpdatedAt.Equal(got.UpdatedAt))
	assert.Equal(t, locked.Payment.Amount, got.Payment.Amount)
}

func TestRemoveInventoryUnitsIsAllOrNothing(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.d.AddInventoryUnits(f.ctx, pricing.Type19kg, inventory.CylinderFull, 3))

	err := f.d.RemoveInventoryUnits(f.ctx, pricing.Type19kg, inventory.CylinderFull, 5)
	var ise *depot.InsufficientStockError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, 3, ise.Available)
	assert.ErrorIs(t, err, depot.ErrInsufficientStock)

	n, err := f.d.CountInventoryUnits(f.ctx, pricing.Type19kg, inventory.CylinderFull)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.NoError(t, f.d.RemoveInventoryUnits(f.ctx, pricing.Type19kg, inventory.CylinderFull, 3))
	n, err = f.d.CountInventoryUnits(f.ctx, pricing.Type19kg, inventory.CylinderFull)
	require.NoError(t, err)
	assert.Zero(t, n)

	assert.ErrorIs(t, f.d.RemoveInventoryUnits(f.ctx, pricing.Type19kg, inventory.CylinderFull, 0), depot.ErrInvalidQuantity)
	assert.ErrorIs(t, f.d.AddInventoryUnits(f.ctx, pricing.Type19kg, "HALF", 1), depot.ErrInvalidInput)
}

func TestConcurrentRemovalsNeverOversell(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.d.AddInventoryUnits(f.ctx, pricing.Type5kg, inventory.CylinderFull, 30))

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := f.d.RemoveInventoryUnits(f.ctx, pricing.Type5kg, inventory.CylinderFull, 1); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 30, succeeded)
	n, err := f.d.CountInventoryUnits(f.ctx, pricing.Type5kg, inventory.CylinderFull)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestTransitionInventoryUnits(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.d.AddInventoryUnits(f.ctx, pricing.Type14kg, inventory.CylinderEmpty, 4))

	require.NoError(t, f.d.TransitionInventoryUnits(f.ctx, pricing.Type14kg, inventory.CylinderEmpty, inventory.CylinderFull, 3))
	err := f.d.TransitionInventoryUnits(f.ctx, pricing.Type14kg, inventory.CylinderEmpty, inventory.CylinderFull, 2)
	assert.ErrorIs(t, err, depot.ErrInsufficientStock)
	assert.ErrorIs(t, f.d.TransitionInventoryUnits(f.ctx, pricing.Type14kg, inventory.CylinderFull, inventory.CylinderFull, 1), depot.ErrInvalidTransition)

	counts, err := f.d.InventoryCounts(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, inventory.TypeCount{Full: 3, Empty: 1}, counts.Cylinders[pricing.Type14kg])
	assert.Equal(t, 3, counts.TotalFull)
	assert.Equal(t, 1, counts.TotalEmpty)
}

func TestDeliveryShortage(t *testing.T) {
	t.Run("abort changes nothing", func(t *testing.T) {
		f := newFixture(t)
		c := f.register(t, 2)
		require.NoError(t, f.d.AddInventoryUnits(f.ctx, pricing.Type14kg, inventory.CylinderFull, 1))
		b := f.book(t, c, booking.ServiceNone)

		_, err := f.d.UpdateBooking(f.ctx, b.ID, paidAndDelivered())
		var ise *depot.InsufficientStockError
		require.ErrorAs(t, err, &ise)
		assert.Equal(t, 1, ise.Available)
		assert.Equal(t, 2, ise.Requested)

		got, err := f.d.GetBooking(f.ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, booking.StatusBooked, got.Status)
		assert.Equal(t, booking.PaymentPending, got.Payment.Status)

		n, err := f.d.CountInventoryUnits(f.ctx, pricing.Type14kg, inventory.CylinderFull)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		cust, err := f.d.GetCustomer(f.ctx, c.ID)
		require.NoError(t, err)
		assert.Empty(t, cust.PaymentHistory)
	})

	t.Run("proceed marks shortfall", func(t *testing.T) {
		f := newFixture(t)
		c := f.register(t, 2)
		require.NoError(t, f.d.AddInventoryUnits(f.ctx, pricing.Type14kg, inventory.CylinderFull, 1))
		b := f.book(t, c, booking.ServiceNone)

		in := paidAndDelivered()
		in.OnShortage = depot.ShortageProceed
		got, err := f.d.UpdateBooking(f.ctx, b.ID, in)
		require.NoError(t, err)
		assert.Equal(t, booking.StatusDelivered, got.Status)
		assert.Equal(t, 2, got.StockShortfall)

		n, err := f.d.CountInventoryUnits(f.ctx, pricing.Type14kg, inventory.CylinderFull)
		require.NoError(t, err)
		assert.Equal(t, 1, n, "units never go negative")
		assert.Equal(t, []int{1}, f.rec.shortfalls)
	})
}

func TestCreateBookingValidation(t *testing.T) {
	f := newFixture(t)
	c := f.register(t, 2)
	today := f.clock.Now()

	valid := depot.CreateBookingInput{
		CustomerID:   c.ID,
		Cylinders:    1,
		DSCCode:      "1234",
		ServiceType:  booking.ServiceNone,
		DeliveryDate: today,
	}

	tests := []struct {
		name   string
		mutate func(*depot.CreateBookingInput)
		want   error
	}{
		{"three digit dsc", func(in *depot.CreateBookingInput) { in.DSCCode = "123" }, depot.ErrInvalidDSC},
		{"letters in dsc", func(in *depot.CreateBookingInput) { in.DSCCode = "12a4" }, depot.ErrInvalidDSC},
		{"five digit dsc", func(in *depot.CreateBookingInput) { in.DSCCode = "12345" }, depot.ErrInvalidDSC},
		{"type mismatch", func(in *depot.CreateBookingInput) { in.CylinderType = pricing.Type19kg }, depot.ErrTypeMismatch},
		{"zero cylinders", func(in *depot.CreateBookingInput) { in.Cylinders = 0 }, depot.ErrInvalidQuantity},
		{"yesterday", func(in *depot.CreateBookingInput) { in.DeliveryDate = today.AddDate(0, 0, -1) }, depot.ErrInvalidDate},
		{"no date", func(in *depot.CreateBookingInput) { in.DeliveryDate = time.Time{} }, depot.ErrInvalidDate},
		{"partial without amount", func(in *depot.CreateBookingInput) { in.PaymentStatus = booking.PaymentPartial }, depot.ErrInvalidInput},
		{"unknown service", func(in *depot.CreateBookingInput) { in.ServiceType = "Courier" }, depot.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)
			_, err := f.d.CreateBooking(f.ctx, in)
			require.ErrorIs(t, err, tt.want)
			var ve *depot.ValidationError
			assert.ErrorAs(t, err, &ve)
		})
	}

	list, err := f.d.ListBookings(f.ctx, booking.ListOpts{})
	require.NoError(t, err)
	assert.Empty(t, list, "failed validation stores nothing")

	// Later today and tomorrow are both fine.
	for _, when := range []time.Time{today.Add(-8 * time.Hour), today.AddDate(0, 0, 1)} {
		in := valid
		in.DeliveryDate = when
		_, err := f.d.CreateBooking(f.ctx, in)
		require.NoError(t, err)
	}
}

func TestPrepaidBookingRecordsHistory(t *testing.T) {
	f := newFixture(t)
	c := f.register(t, 2)

	b, err := f.d.CreateBooking(f.ctx, depot.CreateBookingInput{
		CustomerID:    c.ID,
		Cylinders:     2,
		DSCCode:       "9876",
		ServiceType:   booking.ServicePickupDrop,
		DeliveryDate:  f.clock.Now(),
		PaymentStatus: booking.PaymentPartial,
		PaymentAmount: ptr(types.Rupees(500)),
	})
	require.NoError(t, err)
	assert.Equal(t, "500", b.Payment.Amount.FormatPlain())
	require.NotNil(t, b.Payment.LastPaymentDate)

	got, err := f.d.GetCustomer(f.ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, got.PaymentHistory, 1)
	assert.Equal(t, history.StatusPartialPayment, got.PaymentHistory[0].Status)
	assert.Equal(t, booking.PaymentPartial, got.Payment.Status)
}

func TestDropWithEmptyReceivedAddsEmpties(t *testing.T) {
	f := newFixture(t)
	c := f.register(t, 2)

	_, err := f.d.CreateBooking(f.ctx, depot.CreateBookingInput{
		CustomerID:            c.ID,
		Cylinders:             2,
		DSCCode:               "1234",
		ServiceType:           booking.ServiceDrop,
		DeliveryDate:          f.clock.Now(),
		EmptyCylinderReceived: true,
	})
	require.NoError(t, err)

	_, err = f.d.CreateBooking(f.ctx, depot.CreateBookingInput{
		CustomerID:            c.ID,
		Cylinders:             1,
		DSCCode:               "1234",
		ServiceType:           booking.ServicePickup,
		DeliveryDate:          f.clock.Now(),
		EmptyCylinderReceived: true,
	})
	require.NoError(t, err)

	n, err := f.d.CountInventoryUnits(f.ctx, pricing.Type14kg, inventory.CylinderEmpty)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "pickup-only service does not take empties")
}

func TestHistoryFollowsBooking(t *testing.T) {
	f := newFixture(t)
	c := f.register(t, 2)
	require.NoError(t, f.d.AddInventoryUnits(f.ctx, pricing.Type14kg, inventory.CylinderFull, 2))
	b := f.book(t, c, booking.ServiceNone)

	f.clock.Advance(time.Minute)
	_, err := f.d.UpdateBooking(f.ctx, b.ID, depot.UpdateBookingInput{
		PaymentStatus: ptr(booking.PaymentPartial),
		PaymentAmount: ptr(types.Rupees(1000)),
	})
	require.NoError(t, err)

	f.clock.Advance(time.Minute)
	_, err = f.d.UpdateBooking(f.ctx, b.ID, depot.UpdateBookingInput{
		PaymentStatus: ptr(booking.PaymentPaid),
	})
	require.NoError(t, err)

	f.clock.Advance(time.Minute)
	_, err = f.d.UpdateBooking(f.ctx, b.ID, depot.UpdateBookingInput{
		DeliveryStatus: ptr(booking.StatusInTransit),
	})
	require.NoError(t, err)

	got, err := f.d.GetCustomer(f.ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, got.PaymentHistory, 2, "a delivery move on a paid booking revises, not appends")
	assert.Equal(t, history.StatusPaidPendingDelivery, got.PaymentHistory[0].Status)
	assert.Equal(t, booking.StatusInTransit, got.PaymentHistory[0].DeliveryStatus)
	assert.Equal(t, history.StatusPartialPayment, got.PaymentHistory[1].Status)

	f.clock.Advance(time.Minute)
	_, err = f.d.UpdateBooking(f.ctx, b.ID, depot.UpdateBookingInput{
		DeliveryStatus: ptr(booking.StatusDelivered),
	})
	require.NoError(t, err)

	got, err = f.d.GetCustomer(f.ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, got.PaymentHistory, 2)
	assert.Equal(t, history.StatusCompleted, got.PaymentHistory[0].Status)
	assert.Equal(t, "2300", got.PaymentHistory[0].Amount.FormatPlain())
}

func TestBackwardMovesAreRejected(t *testing.T) {
	f := newFixture(t)
	c := f.register(t, 1)
	b := f.book(t, c, booking.ServiceNone)

	_, err := f.d.UpdateBooking(f.ctx, b.ID, depot.UpdateBookingInput{
		DeliveryStatus: ptr(booking.StatusInTransit),
		PaymentStatus:  ptr(booking.PaymentPaid),
	})
	require.NoError(t, err)

	_, err = f.d.UpdateBooking(f.ctx, b.ID, depot.UpdateBookingInput{DeliveryStatus: ptr(booking.StatusBooked)})
	assert.ErrorIs(t, err, depot.ErrInvalidTransition)

	_, err = f.d.UpdateBooking(f.ctx, b.ID, depot.UpdateBookingInput{PaymentStatus: ptr(booking.PaymentPending)})
	assert.ErrorIs(t, err, depot.ErrInvalidTransition)

	cancelled, err := f.d.UpdateBooking(f.ctx, b.ID, depot.UpdateBookingInput{DeliveryStatus: ptr(booking.StatusCancelled)})
	require.NoError(t, err)
	assert.Equal(t, booking.StatusCancelled, cancelled.Status)

	_, err = f.d.UpdateBooking(f.ctx, b.ID, depot.UpdateBookingInput{DeliveryStatus: ptr(booking.StatusDelivered)})
	assert.ErrorIs(t, err, depot.ErrInvalidTransition)
}

func TestRetentionBoundary(t *testing.T) {
	f := newFixture(t)
	c := f.register(t, 1)
	require.NoError(t, f.d.AddInventoryUnits(f.ctx, pricing.Type14kg, inventory.CylinderFull, 1))
	b := f.book(t, c, booking.ServiceNone)
	open := f.book(t, c, booking.ServiceNone)
	_, err := f.d.UpdateBooking(f.ctx, b.ID, paidAndDelivered())
	require.NoError(t, err)

	deletes, cancel := f.d.Feed().Subscribe(changefeed.Bookings)
	defer cancel()

	f.clock.Advance(19*time.Hour + 59*time.Minute)
	list, err := f.d.ListBookings(f.ctx, booking.ListOpts{})
	require.NoError(t, err)
	assert.Len(t, list, 2, "19h59m is retained")

	f.clock.Advance(time.Minute)
	list, err = f.d.ListBookings(f.ctx, booking.ListOpts{})
	require.NoError(t, err)
	require.Len(t, list, 1, "20h00m is deleted")
	assert.Equal(t, open.ID.String(), list[0].ID.String())

	select {
	case ch := <-deletes:
		assert.Equal(t, changefeed.OpDeleted, ch.Op)
		assert.Equal(t, b.ID.String(), ch.RecordID)
	default:
		t.Fatal("sweep did not publish a delete")
	}

	res, err := f.d.RunRetentionSweep(f.ctx)
	require.NoError(t, err)
	assert.True(t, res.Empty(), "repeat sweeps are no-ops")
	assert.Equal(t, []retention.Result{{BookingsDeleted: 1}}, f.rec.sweeps)

	// The customer and their history survive.
	got, err := f.d.GetCustomer(f.ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, got.PaymentHistory, 1)
}

func TestStoveLending(t *testing.T) {
	f := newFixture(t)
	c := f.register(t, 1)

	_, err := f.d.LendStove(f.ctx, inventory.ModelSingleBurner, c.ID, inventory.LendingPaid)
	var nse *depot.NoStockError
	require.ErrorAs(t, err, &nse)
	assert.Equal(t, "No Single Burner available for lending", err.Error())

	_, err = f.d.AddStoves(f.ctx, inventory.ModelSingleBurner, 1)
	require.NoError(t, err)

	s, err := f.d.LendStove(f.ctx, inventory.ModelSingleBurner, c.ID, inventory.LendingPaid)
	require.NoError(t, err)
	assert.Equal(t, inventory.StoveLent, s.Status)
	require.NotNil(t, s.Borrower)
	assert.Equal(t, c.Name, s.Borrower.Name)

	_, err = f.d.LendStove(f.ctx, inventory.ModelSingleBurner, c.ID, inventory.LendingPaid)
	assert.ErrorIs(t, err, depot.ErrNoStock)
	assert.ErrorIs(t, f.d.RemoveStove(f.ctx, s.ID), depot.ErrStoveLent)

	counts, err := f.d.InventoryCounts(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, counts.StovesAvailable)
	assert.Equal(t, 1, counts.StovesLent)

	f.clock.Advance(48 * time.Hour)
	recID, err := f.d.ReturnStove(f.ctx, s.ID)
	require.NoError(t, err)
	assert.False(t, recID.IsNil())

	_, err = f.d.ReturnStove(f.ctx, s.ID)
	assert.ErrorIs(t, err, depot.ErrStoveNotLent)

	records, err := f.d.ListLendingRecords(f.ctx, inventory.LendingListOpts{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	rec := records[0]
	assert.Equal(t, recID.String(), rec.ID.String())
	assert.Equal(t, inventory.LendingReturned, rec.Status)
	assert.Equal(t, 48*time.Hour, rec.ReturnedAt.Sub(rec.LentAt))

	stoves, err := f.d.ListStoves(f.ctx, inventory.StoveListOpts{Status: inventory.StoveAvailable})
	require.NoError(t, err)
	require.Len(t, stoves, 1)
	assert.Nil(t, stoves[0].Borrower)

	f.clock.Advance(28*24*time.Hour - time.Minute)
	records, err = f.d.ListLendingRecords(f.ctx, inventory.LendingListOpts{})
	require.NoError(t, err)
	assert.Len(t, records, 1)

	f.clock.Advance(time.Minute)
	records, err = f.d.ListLendingRecords(f.ctx, inventory.LendingListOpts{})
	require.NoError(t, err)
	assert.Empty(t, records)

	require.NoError(t, f.d.RemoveStove(f.ctx, s.ID))
}

func TestOwnerScope(t *testing.T) {
	f := newFixture(t)
	c := f.register(t, 1)
	b := f.book(t, c, booking.ServiceNone)

	_, err := f.d.GetBooking(context.Background(), b.ID)
	assert.ErrorIs(t, err, depot.ErrMissingOwner)
	_, err = f.d.RunRetentionSweep(context.Background())
	assert.ErrorIs(t, err, depot.ErrMissingOwner)

	other := depot.WithOwner(context.Background(), "agency-2")
	_, err = f.d.GetBooking(other, b.ID)
	assert.ErrorIs(t, err, depot.ErrForbidden)
	_, err = f.d.UpdateBooking(other, b.ID, paidAndDelivered())
	assert.ErrorIs(t, err, depot.ErrForbidden)
	_, err = f.d.CreateBooking(other, depot.CreateBookingInput{CustomerID: c.ID, Cylinders: 1, DSCCode: "1234", DeliveryDate: f.clock.Now()})
	assert.ErrorIs(t, err, depot.ErrForbidden)
	assert.ErrorIs(t, f.d.DeleteCustomer(other, c.ID), depot.ErrForbidden)

	list, err := f.d.ListBookings(other, booking.ListOpts{})
	require.NoError(t, err)
	assert.Empty(t, list)

	customers, err := f.d.ListCustomers(other, customer.ListOpts{})
	require.NoError(t, err)
	assert.Empty(t, customers)
}

func TestCustomerRegistrationRules(t *testing.T) {
	f := newFixture(t)
	c := f.register(t, 2)
	assert.Equal(t, "ABCD1234EFGH5678", c.BookID)
	assert.Equal(t, "9876543210", c.Phone)
	assert.Equal(t, customer.GenderMale, c.Gender)

	err := f.d.RegisterCustomer(f.ctx, &customer.Customer{Name: "Dup", Phone: "9876543210", BookID: "ZZZZ1234EFGH5678"})
	assert.ErrorIs(t, err, depot.ErrDuplicatePhone)

	err = f.d.RegisterCustomer(f.ctx, &customer.Customer{Name: "Dup", Phone: "9000000000", BookID: "ABCD1234EFGH5678"})
	assert.ErrorIs(t, err, depot.ErrDuplicateBookID)

	err = f.d.RegisterCustomer(f.ctx, &customer.Customer{Name: "Shop", Phone: "9000000000", Category: customer.CategoryCommercial})
	require.NoError(t, err, "commercial customers need no book number")

	err = f.d.RegisterCustomer(f.ctx, &customer.Customer{Name: "Home", Phone: "9000000001"})
	assert.ErrorIs(t, err, depot.ErrInvalidBookID)

	err = f.d.RegisterCustomer(f.ctx, &customer.Customer{Name: "Home", Phone: "9000000001", BookID: "SHORT"})
	assert.ErrorIs(t, err, depot.ErrInvalidBookID)

	other := depot.WithOwner(context.Background(), "agency-2")
	err = f.d.RegisterCustomer(other, &customer.Customer{Name: "Elsewhere", Phone: "9876543210", BookID: "ABCD1234EFGH5678"})
	require.NoError(t, err, "uniqueness is per owner")

	edit, err := f.d.GetCustomer(f.ctx, c.ID)
	require.NoError(t, err)
	edit.BookID = "QQQQ1234EFGH5678"
	assert.ErrorIs(t, f.d.UpdateCustomer(f.ctx, edit), depot.ErrInvalidBookID)

	edit.BookID = ""
	edit.Phone = "9000000000"
	assert.ErrorIs(t, f.d.UpdateCustomer(f.ctx, edit), depot.ErrDuplicatePhone)

	edit.Phone = "9111111111"
	edit.Cylinders = 3
	require.NoError(t, f.d.UpdateCustomer(f.ctx, edit))

	got, err := f.d.GetCustomer(f.ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "ABCD1234EFGH5678", got.BookID)
	assert.Equal(t, 3, got.Cylinders)
}

func TestRepairLegacyAmounts(t *testing.T) {
	f := newFixture(t)
	c := f.register(t, 2)
	b := f.book(t, c, booking.ServicePickup)
	gone := id.NewBookingID()

	stored, err := f.d.Store().GetCustomer(f.ctx, c.ID)
	require.NoError(t, err)
	ts := f.clock.Now().UnixMilli()
	stored.PaymentHistory = []history.Transaction{
		{BookingID: b.ID, LegacyAmount: true, PaymentStatus: booking.PaymentPaid, DeliveryStatus: booking.StatusBooked, Status: history.StatusPaidPendingDelivery, Timestamp: ts},
		{BookingID: gone, LegacyAmount: true, PaymentStatus: booking.PaymentPaid, DeliveryStatus: booking.StatusDelivered, Status: history.StatusCompleted, Timestamp: ts - 1000},
	}
	require.NoError(t, f.d.Store().UpdateCustomer(f.ctx, stored))

	n, err := f.d.RepairLegacyAmounts(f.ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := f.d.GetCustomer(f.ctx, c.ID)
	require.NoError(t, err)
	assert.False(t, got.PaymentHistory[0].LegacyAmount)
	assert.Equal(t, "2350", got.PaymentHistory[0].Amount.FormatPlain())
	assert.True(t, got.PaymentHistory[1].LegacyAmount, "a deleted booking cannot be priced")

	n, err = f.d.RepairLegacyAmounts(f.ctx, c.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestBookingViewsAndDelete(t *testing.T) {
	f := newFixture(t)
	c := f.register(t, 1)
	b := f.book(t, c, booking.ServiceNone)

	views, err := f.d.ListBookingViews(f.ctx, booking.ListOpts{})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "Ravi Kumar", views[0].CustomerName)
	assert.Equal(t, "ABCD1234EFGH5678", views[0].BookID)

	require.NoError(t, f.d.DeleteBooking(f.ctx, b.ID))
	_, err = f.d.GetBooking(f.ctx, b.ID)
	assert.True(t, depot.IsNotFound(err))
	assert.True(t, errors.Is(f.d.DeleteBooking(f.ctx, b.ID), depot.ErrBookingNotFound))
}

func TestBackgroundSweeper(t *testing.T) {
	clock := &testClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	d := depot.New(memory.New(),
		depot.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		depot.WithClock(clock.Now),
		depot.WithLocation(time.UTC),
		depot.WithSweepIntervals(5*time.Millisecond, 0),
		depot.WithSweepOnRead(false),
	)
	require.NoError(t, d.Start(context.Background()))
	defer d.Stop()

	ctx := depot.WithOwner(context.Background(), "agency-1")
	c := &customer.Customer{Name: "Meena", Phone: "9222222222", Category: customer.CategoryCommercial}
	require.NoError(t, d.RegisterCustomer(ctx, c))
	b, err := d.CreateBooking(ctx, depot.CreateBookingInput{
		CustomerID:    c.ID,
		Cylinders:     1,
		DSCCode:       "1111",
		DeliveryDate:  clock.Now(),
		PaymentStatus: booking.PaymentPaid,
	})
	require.NoError(t, err)
	in := depot.UpdateBookingInput{DeliveryStatus: ptr(booking.StatusDelivered), OnShortage: depot.ShortageProceed}
	_, err = d.UpdateBooking(ctx, b.ID, in)
	require.NoError(t, err)

	clock.Advance(retention.DefaultBookingTTL)

	assert.Eventually(t, func() bool {
		_, err := d.GetBooking(ctx, b.ID)
		return depot.IsNotFound(err)
	}, 2*time.Second, 10*time.Millisecond)
}
