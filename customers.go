package depot

import (
	"context"
	"strings"

	"github.com/xraph/depot/booking"
	"github.com/xraph/depot/changefeed"
	"github.com/xraph/depot/customer"
	"github.com/xraph/depot/history"
	"github.com/xraph/depot/id"
	"github.com/xraph/depot/types"
)

// ──────────────────────────────────────────────────
// Customer Management
// ──────────────────────────────────────────────────

// RegisterCustomer validates and stores a new customer for the context's
// owner. ID, OwnerKey, timestamps and the payment fields are assigned here.
func (d *Depot) RegisterCustomer(ctx context.Context, c *customer.Customer) error {
	owner, err := requireOwner(ctx)
	if err != nil {
		return err
	}

	if err := d.normalizeCustomer(c); err != nil {
		return err
	}

	release := d.locks.Lock(ownerCustomersKey(owner))
	defer release()

	if err := d.checkUnique(ctx, owner, c, id.Nil); err != nil {
		return err
	}

	c.ID = id.NewCustomerID()
	c.OwnerKey = owner
	c.Entity = types.NewEntityAt(d.now())
	c.Payment = customer.PaymentSnapshot{
		Status: booking.PaymentPending,
		Amount: types.Zero(d.prices.Currency),
	}
	c.PaymentHistory = nil

	if err := d.store.CreateCustomer(ctx, c); err != nil {
		return err
	}

	d.publish(changefeed.Customers, changefeed.OpCreated, c.ID.String(), owner)
	d.plugins.EmitCustomerRegistered(ctx, c)
	return nil
}

// GetCustomer retrieves a customer of the context's owner.
func (d *Depot) GetCustomer(ctx context.Context, customerID id.CustomerID) (*customer.Customer, error) {
	owner, err := requireOwner(ctx)
	if err != nil {
		return nil, err
	}
	c, err := d.store.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if err := checkOwner(owner, c.OwnerKey); err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateCustomer saves edits to a customer's registration. The book number,
// payment snapshot and payment history cannot be changed this way.
func (d *Depot) UpdateCustomer(ctx context.Context, c *customer.Customer) error {
	owner, err := requireOwner(ctx)
	if err != nil {
		return err
	}

	releaseOwner := d.locks.Lock(ownerCustomersKey(owner))
	defer releaseOwner()
	release := d.locks.Lock(customerKey(c.ID.String()))
	defer release()

	cur, err := d.store.GetCustomer(ctx, c.ID)
	if err != nil {
		return err
	}
	if err := checkOwner(owner, cur.OwnerKey); err != nil {
		return err
	}

	if bid := customer.NormalizeBookID(c.BookID); bid != "" && bid != cur.BookID {
		return invalid("book_id", ErrInvalidBookID, "book number cannot be changed after registration")
	}
	c.BookID = cur.BookID

	if err := d.normalizeCustomer(c); err != nil {
		return err
	}
	probe := &customer.Customer{Category: c.Category}
	if c.Phone != cur.Phone {
		probe.Phone = c.Phone
	}
	if c.Category == customer.CategoryDomestic && cur.Category != customer.CategoryDomestic {
		probe.BookID = c.BookID
	}
	if err := d.checkUnique(ctx, owner, probe, cur.ID); err != nil {
		return err
	}

	c.OwnerKey = cur.OwnerKey
	c.Entity = cur.Entity
	c.Touch(d.now())
	c.Payment = cur.Payment
	c.PaymentHistory = cur.PaymentHistory

	if err := d.store.UpdateCustomer(ctx, c); err != nil {
		return err
	}

	d.publish(changefeed.Customers, changefeed.OpUpdated, c.ID.String(), owner)
	return nil
}

// DeleteCustomer removes a customer. Their bookings are left in place.
func (d *Depot) DeleteCustomer(ctx context.Context, customerID id.CustomerID) error {
	c, err := d.GetCustomer(ctx, customerID)
	if err != nil {
		return err
	}
	if err := d.store.DeleteCustomer(ctx, customerID); err != nil {
		return err
	}
	d.publish(changefeed.Customers, changefeed.OpDeleted, customerID.String(), c.OwnerKey)
	return nil
}

// ListCustomers lists the context owner's customers.
func (d *Depot) ListCustomers(ctx context.Context, opts customer.ListOpts) ([]*customer.Customer, error) {
	owner, err := requireOwner(ctx)
	if err != nil {
		return nil, err
	}
	opts.OwnerKey = owner
	return d.store.ListCustomers(ctx, opts)
}

// RepairLegacyAmounts heals payment history entries that still carry the
// legacy "FULL" placeholder, using the current figures of each booking that
// still exists. It returns how many entries changed.
func (d *Depot) RepairLegacyAmounts(ctx context.Context, customerID id.CustomerID) (int, error) {
	owner, err := requireOwner(ctx)
	if err != nil {
		return 0, err
	}

	release := d.locks.Lock(customerKey(customerID.String()))
	defer release()

	c, err := d.store.GetCustomer(ctx, customerID)
	if err != nil {
		return 0, err
	}
	if err := checkOwner(owner, c.OwnerKey); err != nil {
		return 0, err
	}

	list := c.PaymentHistory
	repaired := 0
	for _, bookingID := range history.LegacyBookings(list) {
		b, err := d.store.GetBooking(ctx, bookingID)
		if IsNotFound(err) {
			continue
		}
		if err != nil {
			return 0, err
		}
		if b.OwnerKey != owner {
			continue
		}
		var n int
		list, n = history.Repair(list, history.Facts{
			BookingID: b.ID,
			Amount:    d.prices.Quote(b.Cylinders, b.CylinderType, b.ServiceType),
		})
		repaired += n
	}

	if repaired == 0 {
		return 0, nil
	}

	c.PaymentHistory = list
	c.Touch(d.now())
	if err := d.store.UpdateCustomer(ctx, c); err != nil {
		return 0, err
	}

	d.logger.Info("repaired legacy payment amounts",
		"customer_id", customerID.String(),
		"repaired", repaired,
	)
	d.publish(changefeed.Customers, changefeed.OpUpdated, customerID.String(), owner)
	return repaired, nil
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func (d *Depot) normalizeCustomer(c *customer.Customer) error {
	c.Name = strings.TrimSpace(c.Name)
	c.Phone = customer.NormalizePhone(c.Phone)
	c.BookID = customer.NormalizeBookID(c.BookID)
	c.Address = strings.TrimSpace(c.Address)

	if c.Name == "" {
		return invalid("name", ErrInvalidInput, "name is required")
	}
	if c.Phone == "" {
		return invalid("phone", ErrInvalidInput, "phone is required")
	}

	if c.Category == "" {
		c.Category = customer.CategoryDomestic
	}
	if !c.Category.Valid() {
		return invalid("category", ErrInvalidInput, "unknown category %q", c.Category)
	}
	if c.Category == customer.CategoryDomestic && c.BookID == "" {
		return invalid("book_id", ErrInvalidBookID, "book number is required for domestic customers")
	}
	if c.BookID != "" && !customer.ValidBookID(c.BookID) {
		return invalid("book_id", ErrInvalidBookID, "book number must be 16 letters or digits, got %q", c.BookID)
	}

	if c.Gender == "" {
		c.Gender = customer.GenderMale
	}
	if c.CylinderType == "" {
		c.CylinderType = customer.DefaultCylinderType
	}
	if c.Cylinders == 0 {
		c.Cylinders = 1
	}
	if c.Cylinders < 0 {
		return invalid("cylinders", ErrInvalidQuantity, "cylinders must be at least 1")
	}
	return nil
}

// checkUnique enforces per-owner phone uniqueness and, for domestic
// customers, book number uniqueness. Empty fields are not checked. self is
// skipped so a record never conflicts with itself.
func (d *Depot) checkUnique(ctx context.Context, owner string, c *customer.Customer, self id.CustomerID) error {
	if c.Phone != "" {
		existing, err := d.store.FindCustomerByPhone(ctx, owner, c.Phone)
		switch {
		case err == nil && existing.ID.String() != self.String():
			return ErrDuplicatePhone
		case err != nil && !IsNotFound(err):
			return err
		}
	}

	if c.Category != customer.CategoryDomestic || c.BookID == "" {
		return nil
	}
	existing, err := d.store.FindCustomerByBookID(ctx, owner, c.BookID)
	switch {
	case err == nil && existing.ID.String() != self.String():
		return ErrDuplicateBookID
	case err != nil && !IsNotFound(err):
		return err
	}
	return nil
}
