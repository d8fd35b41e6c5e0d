// Package store defines the storage contract every Depot backend implements.
package store

import (
	"context"
	"time"

	"github.com/xraph/depot/booking"
	"github.com/xraph/depot/customer"
	"github.com/xraph/depot/id"
	"github.com/xraph/depot/inventory"
)

// Store is the unified storage interface for all Depot entities.
// Instead of embedding per-entity sub-interfaces, every method is declared
// here to avoid naming conflicts.
//
// Get/Update/Delete of a missing record return the entity's not-found error
// from the depot package. Owner scoping is the caller's job: the store never
// filters by owner unless the ListOpts says so.
type Store interface {
	// Customer methods
	CreateCustomer(ctx context.Context, c *customer.Customer) error
	GetCustomer(ctx context.Context, customerID id.CustomerID) (*customer.Customer, error)
	UpdateCustomer(ctx context.Context, c *customer.Customer) error
	DeleteCustomer(ctx context.Context, customerID id.CustomerID) error
	ListCustomers(ctx context.Context, opts customer.ListOpts) ([]*customer.Customer, error)
	FindCustomerByPhone(ctx context.Context, ownerKey, phone string) (*customer.Customer, error)
	// FindCustomerByBookID only considers Domestic customers.
	FindCustomerByBookID(ctx context.Context, ownerKey, bookID string) (*customer.Customer, error)

	// Booking methods
	CreateBooking(ctx context.Context, b *booking.Booking) error
	GetBooking(ctx context.Context, bookingID id.BookingID) (*booking.Booking, error)
	UpdateBooking(ctx context.Context, b *booking.Booking) error
	DeleteBooking(ctx context.Context, bookingID id.BookingID) error
	ListBookings(ctx context.Context, opts booking.ListOpts) ([]*booking.Booking, error)

	// Cylinder methods. Removal and transition are all-or-nothing: when fewer
	// than qty units match they return *depot.InsufficientStockError and change
	// nothing.
	AddCylinders(ctx context.Context, ownerKey string, key inventory.CylinderKey, qty int, at time.Time) ([]id.CylinderID, error)
	CountCylinders(ctx context.Context, ownerKey string, key inventory.CylinderKey) (int, error)
	RemoveCylinders(ctx context.Context, ownerKey string, key inventory.CylinderKey, qty int) ([]id.CylinderID, error)
	TransitionCylinders(ctx context.Context, ownerKey, cylinderType string, from, to inventory.CylinderStatus, qty int, at time.Time) ([]id.CylinderID, error)
	CountAllCylinders(ctx context.Context, ownerKey string) (map[inventory.CylinderKey]int, error)

	// Stove methods
	CreateStove(ctx context.Context, s *inventory.Stove) error
	GetStove(ctx context.Context, stoveID id.StoveID) (*inventory.Stove, error)
	UpdateStove(ctx context.Context, s *inventory.Stove) error
	DeleteStove(ctx context.Context, stoveID id.StoveID) error
	ListStoves(ctx context.Context, opts inventory.StoveListOpts) ([]*inventory.Stove, error)

	// Lending record methods
	CreateLendingRecord(ctx context.Context, r *inventory.LendingRecord) error
	ListLendingRecords(ctx context.Context, opts inventory.LendingListOpts) ([]*inventory.LendingRecord, error)
	DeleteLendingRecord(ctx context.Context, recordID id.LendingRecordID) error

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
