package depot

import (
	"context"
	"errors"
	"time"

	"github.com/xraph/depot/booking"
	"github.com/xraph/depot/changefeed"
	"github.com/xraph/depot/customer"
	"github.com/xraph/depot/history"
	"github.com/xraph/depot/id"
	"github.com/xraph/depot/inventory"
)

// ──────────────────────────────────────────────────
// Booking Lifecycle
// ──────────────────────────────────────────────────

// CreateBooking opens a booking for one of the context owner's customers.
// Validation failures are returned as *ValidationError and store nothing.
func (d *Depot) CreateBooking(ctx context.Context, in CreateBookingInput) (*booking.Booking, error) {
	owner, err := requireOwner(ctx)
	if err != nil {
		return nil, err
	}

	c, err := d.store.GetCustomer(ctx, in.CustomerID)
	if err != nil {
		return nil, err
	}
	if err := checkOwner(owner, c.OwnerKey); err != nil {
		return nil, err
	}

	p, err := planCreate(in, c, d.prices, d.now(), d.loc)
	if err != nil {
		return nil, err
	}
	b := p.next

	if err := d.plugins.ValidateBooking(ctx, b, c); err != nil {
		return nil, &ValidationError{Field: "booking", Message: err.Error(), Err: ErrInvalidInput}
	}

	if err := d.store.CreateBooking(ctx, b); err != nil {
		return nil, err
	}

	d.publish(changefeed.Bookings, changefeed.OpCreated, b.ID.String(), owner)
	d.plugins.EmitBookingCreated(ctx, b)

	for _, cmd := range p.stock {
		if err := d.addUnits(ctx, owner, cmd.key, cmd.qty); err != nil {
			d.logger.Error("booking stored but stock not adjusted",
				"booking_id", b.ID.String(),
				"command", cmd.String(),
				"error", err,
			)
		}
	}
	d.applyHistory(ctx, p.history)

	return b, nil
}

// GetBooking retrieves a booking of the context's owner.
func (d *Depot) GetBooking(ctx context.Context, bookingID id.BookingID) (*booking.Booking, error) {
	owner, err := requireOwner(ctx)
	if err != nil {
		return nil, err
	}
	b, err := d.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := checkOwner(owner, b.OwnerKey); err != nil {
		return nil, err
	}
	return b, nil
}

// UpdateBooking moves a booking along its delivery and payment axes.
//
// A Paid and Delivered booking is locked and every update returns
// *LockedError. When the update newly delivers the booking, its cylinders
// are taken from FULL stock; if stock is short, in.OnShortage decides
// between returning *InsufficientStockError with nothing changed and
// completing the delivery with Booking.StockShortfall set.
func (d *Depot) UpdateBooking(ctx context.Context, bookingID id.BookingID, in UpdateBookingInput) (*booking.Booking, error) {
	owner, err := requireOwner(ctx)
	if err != nil {
		return nil, err
	}

	release := d.locks.Lock(bookingKey(bookingID.String()))
	defer release()

	cur, err := d.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := checkOwner(owner, cur.OwnerKey); err != nil {
		return nil, err
	}

	p, err := planUpdate(cur, in, d.prices, d.now())
	if err != nil {
		if errors.Is(err, ErrBookingLocked) {
			d.logger.Info("update refused on locked booking", "booking_id", bookingID.String())
		}
		return nil, err
	}
	next := p.next

	var (
		removed   []id.CylinderID
		shortfall *InsufficientStockError
	)
	for _, cmd := range p.stock {
		if !cmd.remove {
			continue
		}
		ids, err := d.removeUnits(ctx, owner, cmd.key, cmd.qty)
		var ise *InsufficientStockError
		switch {
		case errors.As(err, &ise) && in.OnShortage == ShortageProceed:
			shortfall = ise
			next.StockShortfall = cmd.qty
			d.logger.Warn("delivery completed without enough stock",
				"booking_id", bookingID.String(),
				"cylinder_type", cmd.key.Type,
				"requested", ise.Requested,
				"available", ise.Available,
			)
		case err != nil:
			return nil, err
		default:
			removed = append(removed, ids...)
		}
	}

	if err := d.store.UpdateBooking(ctx, next); err != nil {
		d.restoreUnits(ctx, owner, next, len(removed))
		return nil, err
	}

	d.publish(changefeed.Bookings, changefeed.OpUpdated, next.ID.String(), owner)
	for _, cid := range removed {
		d.publish(changefeed.Cylinders, changefeed.OpDeleted, cid.String(), owner)
	}
	if len(removed) > 0 {
		d.plugins.EmitStockRemoved(ctx, owner, inventory.CylinderKey{Type: next.CylinderType, Status: inventory.CylinderFull}, len(removed))
	}
	if shortfall != nil {
		d.plugins.EmitStockShortfall(ctx, next, shortfall.Available)
	}

	d.plugins.EmitBookingUpdated(ctx, cur, next)
	if p.completed {
		d.plugins.EmitBookingCompleted(ctx, next)
	}
	d.applyHistory(ctx, p.history)

	return next, nil
}

// ListBookings lists the context owner's bookings. Expired bookings are swept
// first unless sweep-on-read is disabled.
func (d *Depot) ListBookings(ctx context.Context, opts booking.ListOpts) ([]*booking.Booking, error) {
	owner, err := requireOwner(ctx)
	if err != nil {
		return nil, err
	}
	if d.sweepOnRead {
		_, _ = d.runSweep(ctx, owner, true, false) //nolint:errcheck // best-effort read-triggered sweep
	}
	opts.OwnerKey = owner
	return d.store.ListBookings(ctx, opts)
}

// ListBookingViews is ListBookings joined with each booking's customer name,
// phone and book number. Bookings of deleted customers keep empty fields.
func (d *Depot) ListBookingViews(ctx context.Context, opts booking.ListOpts) ([]*booking.View, error) {
	list, err := d.ListBookings(ctx, opts)
	if err != nil {
		return nil, err
	}

	customers := make(map[string]*customer.Customer)
	views := make([]*booking.View, 0, len(list))
	for _, b := range list {
		key := b.CustomerID.String()
		c, ok := customers[key]
		if !ok {
			c, err = d.store.GetCustomer(ctx, b.CustomerID)
			if err != nil && !IsNotFound(err) {
				return nil, err
			}
			customers[key] = c
		}
		v := &booking.View{Booking: b}
		if c != nil {
			v.CustomerName = c.Name
			v.CustomerPhone = c.Phone
			v.BookID = c.BookID
		}
		views = append(views, v)
	}
	return views, nil
}

// DeleteBooking removes a booking whatever its state. Stock and payment
// history are left as they are.
func (d *Depot) DeleteBooking(ctx context.Context, bookingID id.BookingID) error {
	b, err := d.GetBooking(ctx, bookingID)
	if err != nil {
		return err
	}
	if err := d.store.DeleteBooking(ctx, bookingID); err != nil {
		return err
	}
	d.publish(changefeed.Bookings, changefeed.OpDeleted, bookingID.String(), b.OwnerKey)
	d.plugins.EmitBookingDeleted(ctx, b)
	return nil
}

// ──────────────────────────────────────────────────
// Payment History
// ──────────────────────────────────────────────────

// applyHistory runs a history command against the customer record and
// refreshes the customer's payment snapshot. Failures are logged only: the
// booking write it follows has already been committed.
func (d *Depot) applyHistory(ctx context.Context, cmd *historyCommand) {
	if cmd == nil {
		return
	}
	if err := d.writeHistory(ctx, cmd); err != nil {
		d.logger.Error("payment history not updated",
			"customer_id", cmd.customerID.String(),
			"booking_id", cmd.tx.BookingID.String(),
			"error", err,
		)
	}
}

func (d *Depot) writeHistory(ctx context.Context, cmd *historyCommand) error {
	release := d.locks.Lock(customerKey(cmd.customerID.String()))
	defer release()

	c, err := d.store.GetCustomer(ctx, cmd.customerID)
	if err != nil {
		return err
	}

	tx := cmd.tx
	switch cmd.action {
	case historyRevise:
		list, found := history.Revise(c.PaymentHistory, cmd.facts.BookingID, cmd.delivery, cmd.facts)
		if found {
			c.PaymentHistory = list
			for _, entry := range list {
				if entry.BookingID.String() == cmd.facts.BookingID.String() {
					tx = entry
					break
				}
			}
		} else {
			c.PaymentHistory = history.Record(c.PaymentHistory, tx, cmd.facts)
		}
	default:
		c.PaymentHistory = history.Record(c.PaymentHistory, tx, cmd.facts)
	}

	paid := time.UnixMilli(cmd.tx.Timestamp).UTC()
	c.Payment.Status = tx.PaymentStatus
	c.Payment.Amount = tx.Amount
	c.Payment.LastPaymentDate = &paid
	c.Touch(d.now())

	if err := d.store.UpdateCustomer(ctx, c); err != nil {
		return err
	}

	d.publish(changefeed.Customers, changefeed.OpUpdated, c.ID.String(), c.OwnerKey)
	d.plugins.EmitTransactionRecorded(ctx, c.ID, tx)
	return nil
}
