// Package depot is the engine behind a gas-cylinder distribution business:
// customer registrations, delivery bookings, cylinder and stove stock, a
// payment history per customer, and retention of finished records.
//
// Depot is a library, not a service. Import it into your Go application and
// hand it a store:
//
//	import (
//	    "github.com/xraph/depot"
//	    "github.com/xraph/depot/store/postgres"
//	)
//
//	s, err := postgres.New(ctx, databaseURL)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	d := depot.New(s)
//	if err := d.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer d.Stop()
//
// # Owner scope
//
// Every record belongs to an owner, an opaque key naming one distributor.
// Operations read the owner from the context and refuse records of any
// other owner:
//
//	ctx = depot.WithOwner(ctx, "agency-42")
//
// # Bookings
//
// A booking moves along two axes. Delivery goes Booked, InTransit, Delivered,
// or to Cancelled from any non-terminal status. Payment goes Pending, Partial,
// Paid. A Paid and Delivered booking is locked:
//
//	b, err := d.CreateBooking(ctx, depot.CreateBookingInput{
//	    CustomerID:   customerID,
//	    Cylinders:    2,
//	    DSCCode:      "1234",
//	    ServiceType:  booking.ServiceDrop,
//	    DeliveryDate: time.Now(),
//	})
//
//	paid, delivered := booking.PaymentPaid, booking.StatusDelivered
//	b, err = d.UpdateBooking(ctx, b.ID, depot.UpdateBookingInput{
//	    PaymentStatus:  &paid,
//	    DeliveryStatus: &delivered,
//	})
//
// Delivering a booking takes its cylinders from FULL stock. When stock is
// short the update fails with *InsufficientStockError unless the caller set
// OnShortage to ShortageProceed.
//
// # Retention
//
// Locked bookings are deleted 20 hours after their last update and lending
// records 28 days after the stove came back. Sweeps run on timers started by
// Start, before every booking or lending listing, and on RunRetentionSweep.
//
// # Change feed
//
// Every write, including retention deletes, is published to a
// changefeed.Feed, one channel per collection:
//
//	ch, cancel := d.Feed().Subscribe(changefeed.Bookings)
//	defer cancel()
//
// # TypeID
//
// All entities use TypeID identifiers:
//
//	cus_01h2xcejqtf2nbrexx3vqjhp41  // Customer ID
//	bkg_01h2xcejqtf2nbrexx3vqjhp41  // Booking ID
//	stv_01h455vb4pex5vsknk084sn02q  // Stove ID
//
// All monetary calculations use integer arithmetic. The Money type holds
// amounts in paise.
package depot
