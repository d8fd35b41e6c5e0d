package plugin

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/xraph/depot/booking"
	"github.com/xraph/depot/customer"
	"github.com/xraph/depot/retention"
)

type countingPlugin struct {
	created atomic.Int32
	swept   atomic.Int32
}

func (p *countingPlugin) Name() string { return "counting" }

func (p *countingPlugin) OnBookingCreated(context.Context, *booking.Booking) error {
	p.created.Add(1)
	return nil
}

func (p *countingPlugin) OnRetentionSweep(context.Context, retention.Result, time.Duration) error {
	p.swept.Add(1)
	return errors.New("ignored")
}

type rejectingValidator struct{}

func (rejectingValidator) Name() string { return "reject" }

func (rejectingValidator) ValidateBooking(context.Context, *booking.Booking, *customer.Customer) error {
	return errors.New("no bookings on holidays")
}

type slowPlugin struct{}

func (slowPlugin) Name() string { return "slow" }

func (slowPlugin) OnShutdown(context.Context) error {
	time.Sleep(time.Second)
	return nil
}

func quietRegistry() *Registry {
	return NewRegistry().WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRegisterCachesHooks(t *testing.T) {
	r := quietRegistry()
	p := &countingPlugin{}
	if err := r.Register(p); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(&countingPlugin{}); err == nil {
		t.Fatal("duplicate name should be rejected")
	}

	ctx := context.Background()
	r.EmitBookingCreated(ctx, &booking.Booking{})
	r.EmitBookingCreated(ctx, &booking.Booking{})
	r.EmitRetentionSweep(ctx, retention.Result{BookingsDeleted: 1}, time.Millisecond)
	r.EmitStockShortfall(ctx, &booking.Booking{}, 0)

	if got := p.created.Load(); got != 2 {
		t.Errorf("created: got %d, want 2", got)
	}
	if got := p.swept.Load(); got != 1 {
		t.Errorf("swept: got %d, want 1", got)
	}
	if r.Count() != 1 || r.Get("counting") == nil {
		t.Error("plugin not listed")
	}
}

func TestValidateBookingReturnsRejection(t *testing.T) {
	r := quietRegistry()
	if err := r.ValidateBooking(context.Background(), &booking.Booking{}, &customer.Customer{}); err != nil {
		t.Fatalf("no validators: %v", err)
	}
	_ = r.Register(rejectingValidator{})
	if err := r.ValidateBooking(context.Background(), &booking.Booking{}, &customer.Customer{}); err == nil {
		t.Fatal("expected rejection")
	}
}

func TestSlowPluginTimesOut(t *testing.T) {
	r := quietRegistry().WithTimeout(20 * time.Millisecond)
	_ = r.Register(slowPlugin{})

	start := time.Now()
	r.EmitShutdown(context.Background())
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("EmitShutdown blocked for %v", elapsed)
	}
}

func TestImplementedInterfaces(t *testing.T) {
	got := implementedInterfaces(&countingPlugin{})
	want := map[string]bool{"OnBookingCreated": true, "OnRetentionSweep": true}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for _, name := range got {
		if !want[name] {
			t.Errorf("unexpected interface %s", name)
		}
	}
}
