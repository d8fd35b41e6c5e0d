// Package storetest is a conformance suite every store.Store backend runs
// from its own tests.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/depot"
	"github.com/xraph/depot/booking"
	"github.com/xraph/depot/customer"
	"github.com/xraph/depot/history"
	"github.com/xraph/depot/id"
	"github.com/xraph/depot/inventory"
	"github.com/xraph/depot/store"
	"github.com/xraph/depot/types"
)

// Factory returns an empty, migrated store.
type Factory func(t *testing.T) store.Store

var base = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// Run exercises every Store method against stores made by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("Customers", func(t *testing.T) { testCustomers(t, newStore(t)) })
	t.Run("Bookings", func(t *testing.T) { testBookings(t, newStore(t)) })
	t.Run("Cylinders", func(t *testing.T) { testCylinders(t, newStore(t)) })
	t.Run("Stoves", func(t *testing.T) { testStoves(t, newStore(t)) })
	t.Run("LendingRecords", func(t *testing.T) { testLendingRecords(t, newStore(t)) })
}

func newCustomer(owner, name, phone, bookID string) *customer.Customer {
	return &customer.Customer{
		Entity:       types.NewEntityAt(base),
		ID:           id.NewCustomerID(),
		OwnerKey:     owner,
		Name:         name,
		Phone:        phone,
		BookID:       bookID,
		Gender:       customer.GenderFemale,
		Category:     customer.CategoryDomestic,
		Subsidy:      true,
		Address:      "12 MG Road",
		Cylinders:    2,
		CylinderType: "14.2kg",
		Payment: customer.PaymentSnapshot{
			Status: booking.PaymentPending,
			Amount: types.Zero("inr"),
		},
	}
}

func testCustomers(t *testing.T, s store.Store) {
	ctx := context.Background()

	c := newCustomer("owner-1", "Asha", "9000000001", "ABCD1234EFGH5678")
	require.NoError(t, s.CreateCustomer(ctx, c))
	require.NoError(t, s.CreateCustomer(ctx, newCustomer("owner-1", "Bala", "9000000002", "ZZZZ1234EFGH5678")))
	require.NoError(t, s.CreateCustomer(ctx, newCustomer("owner-2", "Chitra", "9000000001", "ABCD1234EFGH5678")))

	got, err := s.GetCustomer(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Asha", got.Name)
	assert.Equal(t, customer.CategoryDomestic, got.Category)
	assert.True(t, got.Subsidy)
	assert.Equal(t, 2, got.Cylinders)

	byPhone, err := s.FindCustomerByPhone(ctx, "owner-1", "9000000001")
	require.NoError(t, err)
	assert.Equal(t, c.ID.String(), byPhone.ID.String())

	byBook, err := s.FindCustomerByBookID(ctx, "owner-2", "ABCD1234EFGH5678")
	require.NoError(t, err)
	assert.Equal(t, "Chitra", byBook.Name)

	_, err = s.FindCustomerByPhone(ctx, "owner-3", "9000000001")
	assert.True(t, depot.IsNotFound(err))

	paid := base.Add(time.Hour)
	got.PaymentHistory = []history.Transaction{
		{
			Date:           "2026-03-01",
			Status:         history.StatusCompleted,
			Amount:         types.Rupees(2350),
			BookingID:      id.NewBookingID(),
			PaymentStatus:  booking.PaymentPaid,
			DeliveryStatus: booking.StatusDelivered,
			Timestamp:      paid.UnixMilli(),
		},
		{
			Date:           "2026-02-01",
			Status:         history.StatusPaidPendingDelivery,
			BookingID:      id.NewBookingID(),
			LegacyAmount:   true,
			PaymentStatus:  booking.PaymentPaid,
			DeliveryStatus: booking.StatusBooked,
			Timestamp:      paid.Add(-24 * time.Hour).UnixMilli(),
		},
	}
	got.Payment = customer.PaymentSnapshot{Status: booking.PaymentPaid, Amount: types.Rupees(2350), LastPaymentDate: &paid}
	require.NoError(t, s.UpdateCustomer(ctx, got))

	again, err := s.GetCustomer(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, again.PaymentHistory, 2)
	assert.Equal(t, int64(235000), again.PaymentHistory[0].Amount.Amount)
	assert.True(t, again.PaymentHistory[1].LegacyAmount)
	assert.Equal(t, got.PaymentHistory[1].BookingID.String(), again.PaymentHistory[1].BookingID.String())
	require.NotNil(t, again.Payment.LastPaymentDate)
	assert.True(t, paid.Equal(*again.Payment.LastPaymentDate))

	list, err := s.ListCustomers(ctx, customer.ListOpts{OwnerKey: "owner-1"})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	list, err = s.ListCustomers(ctx, customer.ListOpts{OwnerKey: "owner-1", Search: "bal"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Bala", list[0].Name)

	require.NoError(t, s.DeleteCustomer(ctx, c.ID))
	_, err = s.GetCustomer(ctx, c.ID)
	assert.True(t, errors.Is(err, depot.ErrCustomerNotFound))
	assert.True(t, depot.IsNotFound(s.DeleteCustomer(ctx, c.ID)))
}

func newBooking(owner string, customerID id.CustomerID, at time.Time) *booking.Booking {
	return &booking.Booking{
		Entity:       types.NewEntityAt(at),
		ID:           id.NewBookingID(),
		OwnerKey:     owner,
		CustomerID:   customerID,
		Cylinders:    2,
		CylinderType: "14.2kg",
		DSCCode:      "1234",
		ServiceType:  booking.ServiceDrop,
		DeliveryDate: time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, time.UTC),
		Payment: booking.Payment{
			Status: booking.PaymentPending,
			Amount: types.Zero("inr"),
		},
		Status: booking.StatusBooked,
	}
}

func testBookings(t *testing.T, s store.Store) {
	ctx := context.Background()
	customerID := id.NewCustomerID()

	b1 := newBooking("owner-1", customerID, base)
	b2 := newBooking("owner-1", customerID, base.Add(time.Hour))
	b3 := newBooking("owner-2", id.NewCustomerID(), base)
	for _, b := range []*booking.Booking{b1, b2, b3} {
		require.NoError(t, s.CreateBooking(ctx, b))
	}

	got, err := s.GetBooking(ctx, b1.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.ServiceDrop, got.ServiceType)
	assert.Equal(t, "1234", got.DSCCode)
	assert.Nil(t, got.Payment.LastPaymentDate)

	paid := base.Add(30 * time.Minute)
	got.Payment = booking.Payment{Status: booking.PaymentPaid, Amount: types.Rupees(2350), LastPaymentDate: &paid}
	got.Status = booking.StatusDelivered
	got.StockShortfall = 2
	got.Touch(paid)
	require.NoError(t, s.UpdateBooking(ctx, got))

	again, err := s.GetBooking(ctx, b1.ID)
	require.NoError(t, err)
	assert.True(t, again.Locked())
	assert.Equal(t, 2, again.StockShortfall)
	assert.Equal(t, int64(235000), again.Payment.Amount.Amount)
	assert.True(t, paid.Equal(again.UpdatedAt))

	list, err := s.ListBookings(ctx, booking.ListOpts{OwnerKey: "owner-1"})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, b2.ID.String(), list[0].ID.String(), "newest first")

	list, err = s.ListBookings(ctx, booking.ListOpts{OwnerKey: "owner-1", PaymentStatus: booking.PaymentPaid, DeliveryStatus: booking.StatusDelivered})
	require.NoError(t, err)
	require.Len(t, list, 1)

	list, err = s.ListBookings(ctx, booking.ListOpts{UpdatedBefore: base.Add(time.Minute)})
	require.NoError(t, err)
	assert.Len(t, list, 1, "only b3 was last updated before the cutoff")

	list, err = s.ListBookings(ctx, booking.ListOpts{OwnerKey: "owner-1", CustomerID: customerID, Limit: 1})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, s.DeleteBooking(ctx, b1.ID))
	assert.True(t, errors.Is(s.DeleteBooking(ctx, b1.ID), depot.ErrBookingNotFound))
	_, err = s.GetBooking(ctx, b1.ID)
	assert.True(t, depot.IsNotFound(err))
}

func testCylinders(t *testing.T, s store.Store) {
	ctx := context.Background()
	full19 := inventory.CylinderKey{Type: "19kg", Status: inventory.CylinderFull}

	ids, err := s.AddCylinders(ctx, "owner-1", full19, 3, base)
	require.NoError(t, err)
	assert.Len(t, ids, 3)
	_, err = s.AddCylinders(ctx, "owner-2", full19, 4, base)
	require.NoError(t, err)

	_, err = s.RemoveCylinders(ctx, "owner-1", full19, 5)
	var ise *depot.InsufficientStockError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, 3, ise.Available)
	assert.Equal(t, 5, ise.Requested)

	n, err := s.CountCylinders(ctx, "owner-1", full19)
	require.NoError(t, err)
	assert.Equal(t, 3, n, "failed removal deletes nothing")

	removed, err := s.RemoveCylinders(ctx, "owner-1", full19, 2)
	require.NoError(t, err)
	assert.Len(t, removed, 2)

	n, err = s.CountCylinders(ctx, "owner-1", full19)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = s.TransitionCylinders(ctx, "owner-2", "19kg", inventory.CylinderFull, inventory.CylinderEmpty, 9, base)
	assert.ErrorIs(t, err, depot.ErrInsufficientStock)

	flipped, err := s.TransitionCylinders(ctx, "owner-2", "19kg", inventory.CylinderFull, inventory.CylinderEmpty, 3, base)
	require.NoError(t, err)
	assert.Len(t, flipped, 3)

	counts, err := s.CountAllCylinders(ctx, "owner-2")
	require.NoError(t, err)
	assert.Equal(t, 1, counts[full19])
	assert.Equal(t, 3, counts[inventory.CylinderKey{Type: "19kg", Status: inventory.CylinderEmpty}])
}

func testStoves(t *testing.T, s store.Store) {
	ctx := context.Background()

	first := &inventory.Stove{
		Entity:   types.NewEntityAt(base),
		ID:       id.NewStoveID(),
		OwnerKey: "owner-1",
		Model:    inventory.ModelSingleBurner,
		Status:   inventory.StoveAvailable,
	}
	second := &inventory.Stove{
		Entity:   types.NewEntityAt(base),
		ID:       id.NewStoveID(),
		OwnerKey: "owner-1",
		Model:    inventory.ModelSingleBurner,
		Status:   inventory.StoveAvailable,
	}
	require.NoError(t, s.CreateStove(ctx, first))
	require.NoError(t, s.CreateStove(ctx, second))

	lentAt := base.Add(time.Hour)
	first.Status = inventory.StoveLent
	first.Borrower = &inventory.Borrower{CustomerID: id.NewCustomerID(), Name: "Asha", Phone: "9000000001", Address: "12 MG Road"}
	first.PaymentStatus = inventory.LendingPaid
	first.LentAt = &lentAt
	require.NoError(t, s.UpdateStove(ctx, first))

	got, err := s.GetStove(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, inventory.StoveLent, got.Status)
	require.NotNil(t, got.Borrower)
	assert.Equal(t, "Asha", got.Borrower.Name)
	assert.Equal(t, first.Borrower.CustomerID.String(), got.Borrower.CustomerID.String())
	require.NotNil(t, got.LentAt)
	assert.True(t, lentAt.Equal(*got.LentAt))

	free, err := s.ListStoves(ctx, inventory.StoveListOpts{OwnerKey: "owner-1", Status: inventory.StoveAvailable})
	require.NoError(t, err)
	require.Len(t, free, 1)
	assert.Equal(t, second.ID.String(), free[0].ID.String())

	require.NoError(t, s.DeleteStove(ctx, second.ID))
	assert.True(t, errors.Is(s.DeleteStove(ctx, second.ID), depot.ErrStoveNotFound))
}

func testLendingRecords(t *testing.T, s store.Store) {
	ctx := context.Background()
	borrower := inventory.Borrower{CustomerID: id.NewCustomerID(), Name: "Asha", Phone: "9000000001"}

	old := &inventory.LendingRecord{
		ID:            id.NewLendingRecordID(),
		OwnerKey:      "owner-1",
		StoveID:       id.NewStoveID(),
		StoveModel:    inventory.ModelStandardBurner,
		Borrower:      borrower,
		PaymentStatus: inventory.LendingPending,
		LentAt:        base.Add(-40 * 24 * time.Hour),
		ReturnedAt:    base.Add(-30 * 24 * time.Hour),
		Status:        inventory.LendingReturned,
	}
	recent := &inventory.LendingRecord{
		ID:            id.NewLendingRecordID(),
		OwnerKey:      "owner-1",
		StoveID:       id.NewStoveID(),
		StoveModel:    inventory.ModelSingleBurner,
		Borrower:      borrower,
		PaymentStatus: inventory.LendingPaid,
		LentAt:        base.Add(-3 * 24 * time.Hour),
		ReturnedAt:    base.Add(-24 * time.Hour),
		Status:        inventory.LendingReturned,
	}
	require.NoError(t, s.CreateLendingRecord(ctx, old))
	require.NoError(t, s.CreateLendingRecord(ctx, recent))

	all, err := s.ListLendingRecords(ctx, inventory.LendingListOpts{OwnerKey: "owner-1"})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, recent.ID.String(), all[0].ID.String(), "most recently returned first")
	assert.Equal(t, "Asha", all[0].Borrower.Name)

	expired, err := s.ListLendingRecords(ctx, inventory.LendingListOpts{ReturnedBefore: base.Add(-28 * 24 * time.Hour)})
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, old.ID.String(), expired[0].ID.String())

	byCustomer, err := s.ListLendingRecords(ctx, inventory.LendingListOpts{OwnerKey: "owner-1", CustomerID: borrower.CustomerID})
	require.NoError(t, err)
	assert.Len(t, byCustomer, 2)

	require.NoError(t, s.DeleteLendingRecord(ctx, old.ID))
	assert.True(t, depot.IsNotFound(s.DeleteLendingRecord(ctx, old.ID)))
}
