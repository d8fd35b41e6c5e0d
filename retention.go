package depot

import (
	"context"
	"time"

	"github.com/xraph/depot/booking"
	"github.com/xraph/depot/changefeed"
	"github.com/xraph/depot/inventory"
	"github.com/xraph/depot/retention"
)

// ──────────────────────────────────────────────────
// Retention Sweeper
// ──────────────────────────────────────────────────

// RunRetentionSweep deletes the context owner's expired bookings and lending
// records now. Records already gone are skipped, so overlapping sweeps are
// harmless.
func (d *Depot) RunRetentionSweep(ctx context.Context) (retention.Result, error) {
	owner, err := requireOwner(ctx)
	if err != nil {
		return retention.Result{}, err
	}
	return d.runSweep(ctx, owner, true, true)
}

// RunRetentionSweepAll sweeps every owner at once, as the background
// sweepers do. It ignores the context's owner.
func (d *Depot) RunRetentionSweepAll(ctx context.Context) (retention.Result, error) {
	return d.runSweep(ctx, "", true, true)
}

// runSweep sweeps one owner, or every owner when owner is empty.
func (d *Depot) runSweep(ctx context.Context, owner string, bookings, lending bool) (retention.Result, error) {
	start := time.Now()
	var (
		result retention.Result
		errs   MultiError
	)

	if bookings {
		n, err := d.sweepBookings(ctx, owner)
		result.BookingsDeleted = n
		errs.Add(err)
	}
	if lending {
		n, err := d.sweepLendingRecords(ctx, owner)
		result.LendingRecordsDeleted = n
		errs.Add(err)
	}

	if errs.HasErrors() {
		d.logger.Warn("retention sweep incomplete",
			"owner_key", owner,
			"error", errs.Error(),
		)
	}
	if !result.Empty() {
		elapsed := time.Since(start)
		d.logger.Info("retention sweep",
			"owner_key", owner,
			"bookings_deleted", result.BookingsDeleted,
			"lending_records_deleted", result.LendingRecordsDeleted,
			"elapsed_ms", elapsed.Milliseconds(),
		)
		d.plugins.EmitRetentionSweep(ctx, result, elapsed)
	}

	return result, errs.ErrOrNil()
}

func (d *Depot) sweepBookings(ctx context.Context, owner string) (int, error) {
	now := d.now()
	candidates, err := d.store.ListBookings(ctx, booking.ListOpts{
		OwnerKey:       owner,
		DeliveryStatus: booking.StatusDelivered,
		PaymentStatus:  booking.PaymentPaid,
		UpdatedBefore:  d.policy.BookingCutoff(now),
	})
	if err != nil {
		return 0, err
	}

	deleted := 0
	var errs MultiError
	for _, b := range candidates {
		if !d.policy.BookingExpired(b, now) {
			continue
		}
		if err := d.store.DeleteBooking(ctx, b.ID); err != nil {
			if !IsNotFound(err) {
				errs.Add(err)
			}
			continue
		}
		deleted++
		d.publish(changefeed.Bookings, changefeed.OpDeleted, b.ID.String(), b.OwnerKey)
	}
	return deleted, errs.ErrOrNil()
}

func (d *Depot) sweepLendingRecords(ctx context.Context, owner string) (int, error) {
	now := d.now()
	candidates, err := d.store.ListLendingRecords(ctx, inventory.LendingListOpts{
		OwnerKey:       owner,
		ReturnedBefore: d.policy.LendingCutoff(now),
	})
	if err != nil {
		return 0, err
	}

	deleted := 0
	var errs MultiError
	for _, r := range candidates {
		if !d.policy.LendingExpired(r, now) {
			continue
		}
		if err := d.store.DeleteLendingRecord(ctx, r.ID); err != nil {
			if !IsNotFound(err) {
				errs.Add(err)
			}
			continue
		}
		deleted++
		d.publish(changefeed.LendingRecords, changefeed.OpDeleted, r.ID.String(), r.OwnerKey)
	}
	return deleted, errs.ErrOrNil()
}

// startSweeper runs sweep for every owner each interval until Stop.
func (d *Depot) startSweeper(ctx context.Context, name string, interval time.Duration, bookings, lending bool) {
	if interval <= 0 {
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-d.stopChan:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				_, _ = d.runSweep(ctx, "", bookings, lending) //nolint:errcheck // logged inside runSweep
				d.logger.Debug("retention sweeper tick", "sweeper", name)
			}
		}
	}()
}
