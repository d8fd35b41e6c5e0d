// Package plugin provides an extensible plugin system for Depot.
// Plugins can hook into lifecycle events to extend functionality.
package plugin

import (
	"context"
	"time"

	"github.com/xraph/depot/booking"
	"github.com/xraph/depot/customer"
	"github.com/xraph/depot/history"
	"github.com/xraph/depot/id"
	"github.com/xraph/depot/inventory"
	"github.com/xraph/depot/retention"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the engine starts. d is the *depot.Depot.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, d any) error
}

// OnShutdown is called when the plugin is shutting down.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Customer hooks
// ──────────────────────────────────────────────────

// OnCustomerRegistered is called after a customer is registered.
type OnCustomerRegistered interface {
	Plugin
	OnCustomerRegistered(ctx context.Context, c *customer.Customer) error
}

// ──────────────────────────────────────────────────
// Booking lifecycle hooks
// ──────────────────────────────────────────────────

// OnBookingCreated is called after a booking is stored.
type OnBookingCreated interface {
	Plugin
	OnBookingCreated(ctx context.Context, b *booking.Booking) error
}

// OnBookingUpdated is called after a booking update is stored.
type OnBookingUpdated interface {
	Plugin
	OnBookingUpdated(ctx context.Context, prev, next *booking.Booking) error
}

// OnBookingCompleted is called when a booking becomes Paid and Delivered.
type OnBookingCompleted interface {
	Plugin
	OnBookingCompleted(ctx context.Context, b *booking.Booking) error
}

// OnBookingDeleted is called after an operator removes a booking.
type OnBookingDeleted interface {
	Plugin
	OnBookingDeleted(ctx context.Context, b *booking.Booking) error
}

// ──────────────────────────────────────────────────
// Inventory hooks
// ──────────────────────────────────────────────────

// OnStockAdded is called after cylinder units are added.
type OnStockAdded interface {
	Plugin
	OnStockAdded(ctx context.Context, ownerKey string, key inventory.CylinderKey, qty int) error
}

// OnStockRemoved is called after cylinder units are removed.
type OnStockRemoved interface {
	Plugin
	OnStockRemoved(ctx context.Context, ownerKey string, key inventory.CylinderKey, qty int) error
}

// OnStockShortfall is called when a delivery went ahead without enough FULL
// units on hand.
type OnStockShortfall interface {
	Plugin
	OnStockShortfall(ctx context.Context, b *booking.Booking, available int) error
}

// OnStoveLent is called after a stove is lent out.
type OnStoveLent interface {
	Plugin
	OnStoveLent(ctx context.Context, s *inventory.Stove) error
}

// OnStoveReturned is called after a lent stove comes back.
type OnStoveReturned interface {
	Plugin
	OnStoveReturned(ctx context.Context, r *inventory.LendingRecord) error
}

// ──────────────────────────────────────────────────
// Payment history hooks
// ──────────────────────────────────────────────────

// OnTransactionRecorded is called after a payment history entry is recorded
// or revised.
type OnTransactionRecorded interface {
	Plugin
	OnTransactionRecorded(ctx context.Context, customerID id.CustomerID, tx history.Transaction) error
}

// ──────────────────────────────────────────────────
// Retention hooks
// ──────────────────────────────────────────────────

// OnRetentionSweep is called after a sweep removed at least one record.
type OnRetentionSweep interface {
	Plugin
	OnRetentionSweep(ctx context.Context, result retention.Result, elapsed time.Duration) error
}

// ──────────────────────────────────────────────────
// Booking validators
// ──────────────────────────────────────────────────

// BookingValidator adds business rules to booking creation. A non-nil error
// rejects the booking before anything is stored.
type BookingValidator interface {
	Plugin
	ValidateBooking(ctx context.Context, b *booking.Booking, c *customer.Customer) error
}
