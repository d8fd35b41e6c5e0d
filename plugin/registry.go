package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/xraph/depot/booking"
	"github.com/xraph/depot/customer"
	"github.com/xraph/depot/history"
	"github.com/xraph/depot/id"
	"github.com/xraph/depot/inventory"
	"github.com/xraph/depot/retention"
)

// DefaultHookTimeout bounds a single plugin call.
const DefaultHookTimeout = 5 * time.Second

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	// Type-cached plugin lists for efficient dispatch
	onInit                []OnInit
	onShutdown            []OnShutdown
	onCustomerRegistered  []OnCustomerRegistered
	onBookingCreated      []OnBookingCreated
	onBookingUpdated      []OnBookingUpdated
	onBookingCompleted    []OnBookingCompleted
	onBookingDeleted      []OnBookingDeleted
	onStockAdded          []OnStockAdded
	onStockRemoved        []OnStockRemoved
	onStockShortfall      []OnStockShortfall
	onStoveLent           []OnStoveLent
	onStoveReturned       []OnStoveReturned
	onTransactionRecorded []OnTransactionRecorded
	onRetentionSweep      []OnRetentionSweep
	bookingValidators     []BookingValidator
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultHookTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets how long a single plugin call may run.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	if d > 0 {
		r.timeout = d
	}
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnCustomerRegistered); ok {
		r.onCustomerRegistered = append(r.onCustomerRegistered, v)
	}
	if v, ok := p.(OnBookingCreated); ok {
		r.onBookingCreated = append(r.onBookingCreated, v)
	}
	if v, ok := p.(OnBookingUpdated); ok {
		r.onBookingUpdated = append(r.onBookingUpdated, v)
	}
	if v, ok := p.(OnBookingCompleted); ok {
		r.onBookingCompleted = append(r.onBookingCompleted, v)
	}
	if v, ok := p.(OnBookingDeleted); ok {
		r.onBookingDeleted = append(r.onBookingDeleted, v)
	}
	if v, ok := p.(OnStockAdded); ok {
		r.onStockAdded = append(r.onStockAdded, v)
	}
	if v, ok := p.(OnStockRemoved); ok {
		r.onStockRemoved = append(r.onStockRemoved, v)
	}
	if v, ok := p.(OnStockShortfall); ok {
		r.onStockShortfall = append(r.onStockShortfall, v)
	}
	if v, ok := p.(OnStoveLent); ok {
		r.onStoveLent = append(r.onStoveLent, v)
	}
	if v, ok := p.(OnStoveReturned); ok {
		r.onStoveReturned = append(r.onStoveReturned, v)
	}
	if v, ok := p.(OnTransactionRecorded); ok {
		r.onTransactionRecorded = append(r.onTransactionRecorded, v)
	}
	if v, ok := p.(OnRetentionSweep); ok {
		r.onRetentionSweep = append(r.onRetentionSweep, v)
	}
	if v, ok := p.(BookingValidator); ok {
		r.bookingValidators = append(r.bookingValidators, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", implementedInterfaces(p),
	)

	return nil
}

var hookTypes = []struct {
	name string
	typ  reflect.Type
}{
	{"OnInit", reflect.TypeOf((*OnInit)(nil)).Elem()},
	{"OnShutdown", reflect.TypeOf((*OnShutdown)(nil)).Elem()},
	{"OnCustomerRegistered", reflect.TypeOf((*OnCustomerRegistered)(nil)).Elem()},
	{"OnBookingCreated", reflect.TypeOf((*OnBookingCreated)(nil)).Elem()},
	{"OnBookingUpdated", reflect.TypeOf((*OnBookingUpdated)(nil)).Elem()},
	{"OnBookingCompleted", reflect.TypeOf((*OnBookingCompleted)(nil)).Elem()},
	{"OnBookingDeleted", reflect.TypeOf((*OnBookingDeleted)(nil)).Elem()},
	{"OnStockAdded", reflect.TypeOf((*OnStockAdded)(nil)).Elem()},
	{"OnStockRemoved", reflect.TypeOf((*OnStockRemoved)(nil)).Elem()},
	{"OnStockShortfall", reflect.TypeOf((*OnStockShortfall)(nil)).Elem()},
	{"OnStoveLent", reflect.TypeOf((*OnStoveLent)(nil)).Elem()},
	{"OnStoveReturned", reflect.TypeOf((*OnStoveReturned)(nil)).Elem()},
	{"OnTransactionRecorded", reflect.TypeOf((*OnTransactionRecorded)(nil)).Elem()},
	{"OnRetentionSweep", reflect.TypeOf((*OnRetentionSweep)(nil)).Elem()},
	{"BookingValidator", reflect.TypeOf((*BookingValidator)(nil)).Elem()},
}

// implementedInterfaces returns the hooks a plugin implements.
func implementedInterfaces(p Plugin) []string {
	var names []string
	v := reflect.TypeOf(p)
	for _, h := range hookTypes {
		if v.Implements(h.typ) {
			names = append(names, h.name)
		}
	}
	return names
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, d any) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInit(ctx, d)
		}); err != nil {
			r.logger.Warn("plugin OnInit failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnShutdown(ctx)
		}); err != nil {
			r.logger.Warn("plugin OnShutdown failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitCustomerRegistered emits a customer registered event.
func (r *Registry) EmitCustomerRegistered(ctx context.Context, c *customer.Customer) {
	r.mu.RLock()
	plugins := r.onCustomerRegistered
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnCustomerRegistered(ctx, c)
		}); err != nil {
			r.logger.Warn("plugin OnCustomerRegistered failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitBookingCreated emits a booking created event.
func (r *Registry) EmitBookingCreated(ctx context.Context, b *booking.Booking) {
	r.mu.RLock()
	plugins := r.onBookingCreated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnBookingCreated(ctx, b)
		}); err != nil {
			r.logger.Warn("plugin OnBookingCreated failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitBookingUpdated emits a booking updated event.
func (r *Registry) EmitBookingUpdated(ctx context.Context, prev, next *booking.Booking) {
	r.mu.RLock()
	plugins := r.onBookingUpdated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnBookingUpdated(ctx, prev, next)
		}); err != nil {
			r.logger.Warn("plugin OnBookingUpdated failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitBookingCompleted emits a booking completed event.
func (r *Registry) EmitBookingCompleted(ctx context.Context, b *booking.Booking) {
	r.mu.RLock()
	plugins := r.onBookingCompleted
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnBookingCompleted(ctx, b)
		}); err != nil {
			r.logger.Warn("plugin OnBookingCompleted failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitBookingDeleted emits a booking deleted event.
func (r *Registry) EmitBookingDeleted(ctx context.Context, b *booking.Booking) {
	r.mu.RLock()
	plugins := r.onBookingDeleted
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnBookingDeleted(ctx, b)
		}); err != nil {
			r.logger.Warn("plugin OnBookingDeleted failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitStockAdded emits a stock added event.
func (r *Registry) EmitStockAdded(ctx context.Context, ownerKey string, key inventory.CylinderKey, qty int) {
	r.mu.RLock()
	plugins := r.onStockAdded
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnStockAdded(ctx, ownerKey, key, qty)
		}); err != nil {
			r.logger.Warn("plugin OnStockAdded failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitStockRemoved emits a stock removed event.
func (r *Registry) EmitStockRemoved(ctx context.Context, ownerKey string, key inventory.CylinderKey, qty int) {
	r.mu.RLock()
	plugins := r.onStockRemoved
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnStockRemoved(ctx, ownerKey, key, qty)
		}); err != nil {
			r.logger.Warn("plugin OnStockRemoved failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitStockShortfall emits a stock shortfall event.
func (r *Registry) EmitStockShortfall(ctx context.Context, b *booking.Booking, available int) {
	r.mu.RLock()
	plugins := r.onStockShortfall
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnStockShortfall(ctx, b, available)
		}); err != nil {
			r.logger.Warn("plugin OnStockShortfall failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitStoveLent emits a stove lent event.
func (r *Registry) EmitStoveLent(ctx context.Context, s *inventory.Stove) {
	r.mu.RLock()
	plugins := r.onStoveLent
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnStoveLent(ctx, s)
		}); err != nil {
			r.logger.Warn("plugin OnStoveLent failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitStoveReturned emits a stove returned event.
func (r *Registry) EmitStoveReturned(ctx context.Context, rec *inventory.LendingRecord) {
	r.mu.RLock()
	plugins := r.onStoveReturned
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnStoveReturned(ctx, rec)
		}); err != nil {
			r.logger.Warn("plugin OnStoveReturned failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitTransactionRecorded emits a transaction recorded event.
func (r *Registry) EmitTransactionRecorded(ctx context.Context, customerID id.CustomerID, tx history.Transaction) {
	r.mu.RLock()
	plugins := r.onTransactionRecorded
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnTransactionRecorded(ctx, customerID, tx)
		}); err != nil {
			r.logger.Warn("plugin OnTransactionRecorded failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitRetentionSweep emits a retention sweep event.
func (r *Registry) EmitRetentionSweep(ctx context.Context, result retention.Result, elapsed time.Duration) {
	r.mu.RLock()
	plugins := r.onRetentionSweep
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnRetentionSweep(ctx, result, elapsed)
		}); err != nil {
			r.logger.Warn("plugin OnRetentionSweep failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// ValidateBooking runs every BookingValidator in registration order and
// returns the first rejection. Unlike event hooks, validator errors are
// returned to the caller.
func (r *Registry) ValidateBooking(ctx context.Context, b *booking.Booking, c *customer.Customer) error {
	r.mu.RLock()
	validators := r.bookingValidators
	r.mu.RUnlock()

	for _, v := range validators {
		if err := r.callWithTimeout(ctx, v.Name(), func() error {
			return v.ValidateBooking(ctx, b, c)
		}); err != nil {
			return fmt.Errorf("plugin %s: %w", v.Name(), err)
		}
	}
	return nil
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the booking pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
