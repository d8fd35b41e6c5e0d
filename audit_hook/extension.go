// Package audithook bridges Depot lifecycle events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not depend on any
// particular audit store. Callers inject a Recorder at wiring time; the
// SlogRecorder writes events to a structured logger.
package audithook

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/depot/booking"
	"github.com/xraph/depot/customer"
	"github.com/xraph/depot/history"
	"github.com/xraph/depot/id"
	"github.com/xraph/depot/inventory"
	"github.com/xraph/depot/plugin"
	"github.com/xraph/depot/retention"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                = (*Extension)(nil)
	_ plugin.OnCustomerRegistered  = (*Extension)(nil)
	_ plugin.OnBookingCreated      = (*Extension)(nil)
	_ plugin.OnBookingUpdated      = (*Extension)(nil)
	_ plugin.OnBookingCompleted    = (*Extension)(nil)
	_ plugin.OnBookingDeleted      = (*Extension)(nil)
	_ plugin.OnStockAdded          = (*Extension)(nil)
	_ plugin.OnStockRemoved        = (*Extension)(nil)
	_ plugin.OnStockShortfall      = (*Extension)(nil)
	_ plugin.OnStoveLent           = (*Extension)(nil)
	_ plugin.OnStoveReturned       = (*Extension)(nil)
	_ plugin.OnTransactionRecorded = (*Extension)(nil)
	_ plugin.OnRetentionSweep      = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a single entry in the audit trail.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	OwnerKey   string         `json:"owner_key,omitempty"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// SlogRecorder writes audit events to a logger at info level, or warn for
// anything above info severity.
type SlogRecorder struct {
	Logger *slog.Logger
}

// Record implements Recorder.
func (r SlogRecorder) Record(ctx context.Context, event *AuditEvent) error {
	level := slog.LevelInfo
	if event.Severity != SeverityInfo {
		level = slog.LevelWarn
	}
	r.Logger.Log(ctx, level, "audit",
		"action", event.Action,
		"resource", event.Resource,
		"resource_id", event.ResourceID,
		"owner_key", event.OwnerKey,
		"category", event.Category,
		"outcome", event.Outcome,
		"metadata", event.Metadata,
	)
	return nil
}

// Extension bridges Depot lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Customer and booking hooks
// ──────────────────────────────────────────────────

// OnCustomerRegistered implements plugin.OnCustomerRegistered.
func (e *Extension) OnCustomerRegistered(ctx context.Context, c *customer.Customer) error {
	return e.record(ctx, ActionCustomerRegistered, SeverityInfo, OutcomeSuccess,
		ResourceCustomer, c.OwnerKey, c.ID.String(), CategoryCustomer, nil,
		"category", string(c.Category),
		"cylinder_type", c.CylinderType,
	)
}

// OnBookingCreated implements plugin.OnBookingCreated.
func (e *Extension) OnBookingCreated(ctx context.Context, b *booking.Booking) error {
	return e.record(ctx, ActionBookingCreated, SeverityInfo, OutcomeSuccess,
		ResourceBooking, b.OwnerKey, b.ID.String(), CategoryDelivery, nil,
		"customer_id", b.CustomerID.String(),
		"cylinders", b.Cylinders,
		"service_type", string(b.ServiceType),
	)
}

// OnBookingUpdated implements plugin.OnBookingUpdated.
func (e *Extension) OnBookingUpdated(ctx context.Context, prev, next *booking.Booking) error {
	return e.record(ctx, ActionBookingUpdated, SeverityInfo, OutcomeSuccess,
		ResourceBooking, next.OwnerKey, next.ID.String(), CategoryDelivery, nil,
		"from_status", string(prev.Status),
		"to_status", string(next.Status),
		"from_payment", string(prev.Payment.Status),
		"to_payment", string(next.Payment.Status),
	)
}

// OnBookingCompleted implements plugin.OnBookingCompleted.
func (e *Extension) OnBookingCompleted(ctx context.Context, b *booking.Booking) error {
	return e.record(ctx, ActionBookingCompleted, SeverityInfo, OutcomeSuccess,
		ResourceBooking, b.OwnerKey, b.ID.String(), CategoryPayment, nil,
		"amount", b.Payment.Amount.FormatPlain(),
		"currency", b.Payment.Amount.Currency,
	)
}

// OnBookingDeleted implements plugin.OnBookingDeleted.
func (e *Extension) OnBookingDeleted(ctx context.Context, b *booking.Booking) error {
	return e.record(ctx, ActionBookingDeleted, SeverityWarning, OutcomeSuccess,
		ResourceBooking, b.OwnerKey, b.ID.String(), CategoryDelivery, nil,
		"status", string(b.Status),
	)
}

// ──────────────────────────────────────────────────
// Inventory hooks
// ──────────────────────────────────────────────────

// OnStockAdded implements plugin.OnStockAdded.
func (e *Extension) OnStockAdded(ctx context.Context, ownerKey string, key inventory.CylinderKey, qty int) error {
	return e.record(ctx, ActionStockAdded, SeverityInfo, OutcomeSuccess,
		ResourceCylinder, ownerKey, "", CategoryInventory, nil,
		"type", key.Type,
		"status", string(key.Status),
		"qty", qty,
	)
}

// OnStockRemoved implements plugin.OnStockRemoved.
func (e *Extension) OnStockRemoved(ctx context.Context, ownerKey string, key inventory.CylinderKey, qty int) error {
	return e.record(ctx, ActionStockRemoved, SeverityInfo, OutcomeSuccess,
		ResourceCylinder, ownerKey, "", CategoryInventory, nil,
		"type", key.Type,
		"status", string(key.Status),
		"qty", qty,
	)
}

// OnStockShortfall implements plugin.OnStockShortfall.
func (e *Extension) OnStockShortfall(ctx context.Context, b *booking.Booking, available int) error {
	return e.record(ctx, ActionStockShortfall, SeverityWarning, OutcomePartial,
		ResourceBooking, b.OwnerKey, b.ID.String(), CategoryInventory, nil,
		"type", b.CylinderType,
		"requested", b.Cylinders,
		"available", available,
		"shortfall", b.StockShortfall,
	)
}

// OnStoveLent implements plugin.OnStoveLent.
func (e *Extension) OnStoveLent(ctx context.Context, s *inventory.Stove) error {
	var customerID string
	if s.Borrower != nil {
		customerID = s.Borrower.CustomerID.String()
	}
	return e.record(ctx, ActionStoveLent, SeverityInfo, OutcomeSuccess,
		ResourceStove, s.OwnerKey, s.ID.String(), CategoryInventory, nil,
		"model", s.Model,
		"customer_id", customerID,
		"payment_status", string(s.PaymentStatus),
	)
}

// OnStoveReturned implements plugin.OnStoveReturned.
func (e *Extension) OnStoveReturned(ctx context.Context, r *inventory.LendingRecord) error {
	return e.record(ctx, ActionStoveReturned, SeverityInfo, OutcomeSuccess,
		ResourceStove, r.OwnerKey, r.StoveID.String(), CategoryInventory, nil,
		"record_id", r.ID.String(),
		"customer_id", r.Borrower.CustomerID.String(),
	)
}

// ──────────────────────────────────────────────────
// History and retention hooks
// ──────────────────────────────────────────────────

// OnTransactionRecorded implements plugin.OnTransactionRecorded.
func (e *Extension) OnTransactionRecorded(ctx context.Context, customerID id.CustomerID, tx history.Transaction) error {
	return e.record(ctx, ActionTransactionRecorded, SeverityInfo, OutcomeSuccess,
		ResourceTransaction, "", customerID.String(), CategoryPayment, nil,
		"booking_id", tx.BookingID.String(),
		"status", string(tx.Status),
		"amount", tx.Amount.FormatPlain(),
	)
}

// OnRetentionSweep implements plugin.OnRetentionSweep.
func (e *Extension) OnRetentionSweep(ctx context.Context, result retention.Result, elapsed time.Duration) error {
	return e.record(ctx, ActionRetentionSweep, SeverityInfo, OutcomeSuccess,
		ResourceRetention, "", "", CategoryRetention, nil,
		"bookings_deleted", result.BookingsDeleted,
		"lending_records_deleted", result.LendingRecordsDeleted,
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, ownerKey, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		OwnerKey:   ownerKey,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
