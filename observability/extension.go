// Package observability provides a metrics extension for Depot that records
// lifecycle event counts via a MetricFactory.
package observability

import (
	"context"
	"time"

	"github.com/xraph/depot/booking"
	"github.com/xraph/depot/customer"
	"github.com/xraph/depot/history"
	"github.com/xraph/depot/id"
	"github.com/xraph/depot/inventory"
	"github.com/xraph/depot/plugin"
	"github.com/xraph/depot/retention"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                = (*MetricsExtension)(nil)
	_ plugin.OnInit                = (*MetricsExtension)(nil)
	_ plugin.OnCustomerRegistered  = (*MetricsExtension)(nil)
	_ plugin.OnBookingCreated      = (*MetricsExtension)(nil)
	_ plugin.OnBookingUpdated      = (*MetricsExtension)(nil)
	_ plugin.OnBookingCompleted    = (*MetricsExtension)(nil)
	_ plugin.OnBookingDeleted      = (*MetricsExtension)(nil)
	_ plugin.OnStockAdded          = (*MetricsExtension)(nil)
	_ plugin.OnStockRemoved        = (*MetricsExtension)(nil)
	_ plugin.OnStockShortfall      = (*MetricsExtension)(nil)
	_ plugin.OnStoveLent           = (*MetricsExtension)(nil)
	_ plugin.OnStoveReturned       = (*MetricsExtension)(nil)
	_ plugin.OnTransactionRecorded = (*MetricsExtension)(nil)
	_ plugin.OnRetentionSweep      = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as a Depot plugin to track distribution metrics.
type MetricsExtension struct {
	factory MetricFactory

	// Customer metrics
	CustomerRegistered Counter

	// Booking metrics
	BookingCreated    Counter
	BookingUpdated    Counter
	BookingCompleted  Counter
	BookingDeleted    Counter
	BookingCylinders  Histogram
	BookingPaidAmount Histogram

	// Inventory metrics
	CylindersAdded   Counter
	CylindersRemoved Counter
	StockShortfall   Counter
	StovesLent       Counter
	StovesReturned   Counter

	// Payment history metrics
	TransactionsRecorded Counter

	// Retention metrics
	BookingsSwept       Counter
	LendingRecordsSwept Counter
	SweepLatency        Histogram
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		CustomerRegistered: factory.Counter("depot.customer.registered"),

		BookingCreated:    factory.Counter("depot.booking.created"),
		BookingUpdated:    factory.Counter("depot.booking.updated"),
		BookingCompleted:  factory.Counter("depot.booking.completed"),
		BookingDeleted:    factory.Counter("depot.booking.deleted"),
		BookingCylinders:  factory.Histogram("depot.booking.cylinders"),
		BookingPaidAmount: factory.Histogram("depot.booking.paid_amount"),

		CylindersAdded:   factory.Counter("depot.inventory.cylinders.added"),
		CylindersRemoved: factory.Counter("depot.inventory.cylinders.removed"),
		StockShortfall:   factory.Counter("depot.inventory.shortfall"),
		StovesLent:       factory.Counter("depot.inventory.stoves.lent"),
		StovesReturned:   factory.Counter("depot.inventory.stoves.returned"),

		TransactionsRecorded: factory.Counter("depot.history.transactions"),

		BookingsSwept:       factory.Counter("depot.retention.bookings.deleted"),
		LendingRecordsSwept: factory.Counter("depot.retention.lending_records.deleted"),
		SweepLatency:        factory.Histogram("depot.retention.sweep.latency_ms"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ any) error {
	return nil
}

// ──────────────────────────────────────────────────
// Customer and booking hooks
// ──────────────────────────────────────────────────

// OnCustomerRegistered implements plugin.OnCustomerRegistered.
func (m *MetricsExtension) OnCustomerRegistered(_ context.Context, _ *customer.Customer) error {
	m.CustomerRegistered.Inc()
	return nil
}

// OnBookingCreated implements plugin.OnBookingCreated.
func (m *MetricsExtension) OnBookingCreated(_ context.Context, b *booking.Booking) error {
	m.BookingCreated.Inc()
	m.BookingCylinders.Observe(float64(b.Cylinders))
	return nil
}

// OnBookingUpdated implements plugin.OnBookingUpdated.
func (m *MetricsExtension) OnBookingUpdated(_ context.Context, _, _ *booking.Booking) error {
	m.BookingUpdated.Inc()
	return nil
}

// OnBookingCompleted implements plugin.OnBookingCompleted.
func (m *MetricsExtension) OnBookingCompleted(_ context.Context, b *booking.Booking) error {
	m.BookingCompleted.Inc()
	m.BookingPaidAmount.Observe(float64(b.Payment.Amount.Amount) / 100)
	return nil
}

// OnBookingDeleted implements plugin.OnBookingDeleted.
func (m *MetricsExtension) OnBookingDeleted(_ context.Context, _ *booking.Booking) error {
	m.BookingDeleted.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Inventory hooks
// ──────────────────────────────────────────────────

// OnStockAdded implements plugin.OnStockAdded.
func (m *MetricsExtension) OnStockAdded(_ context.Context, _ string, _ inventory.CylinderKey, qty int) error {
	m.CylindersAdded.Add(float64(qty))
	return nil
}

// OnStockRemoved implements plugin.OnStockRemoved.
func (m *MetricsExtension) OnStockRemoved(_ context.Context, _ string, _ inventory.CylinderKey, qty int) error {
	m.CylindersRemoved.Add(float64(qty))
	return nil
}

// OnStockShortfall implements plugin.OnStockShortfall.
func (m *MetricsExtension) OnStockShortfall(_ context.Context, _ *booking.Booking, _ int) error {
	m.StockShortfall.Inc()
	return nil
}

// OnStoveLent implements plugin.OnStoveLent.
func (m *MetricsExtension) OnStoveLent(_ context.Context, _ *inventory.Stove) error {
	m.StovesLent.Inc()
	return nil
}

// OnStoveReturned implements plugin.OnStoveReturned.
func (m *MetricsExtension) OnStoveReturned(_ context.Context, _ *inventory.LendingRecord) error {
	m.StovesReturned.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// History and retention hooks
// ──────────────────────────────────────────────────

// OnTransactionRecorded implements plugin.OnTransactionRecorded.
func (m *MetricsExtension) OnTransactionRecorded(_ context.Context, _ id.CustomerID, _ history.Transaction) error {
	m.TransactionsRecorded.Inc()
	return nil
}

// OnRetentionSweep implements plugin.OnRetentionSweep.
func (m *MetricsExtension) OnRetentionSweep(_ context.Context, result retention.Result, elapsed time.Duration) error {
	m.BookingsSwept.Add(float64(result.BookingsDeleted))
	m.LendingRecordsSwept.Add(float64(result.LendingRecordsDeleted))
	m.SweepLatency.Observe(float64(elapsed.Milliseconds()))
	return nil
}
