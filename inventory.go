package depot

import (
	"context"
	"strings"

	"github.com/xraph/depot/booking"
	"github.com/xraph/depot/changefeed"
	"github.com/xraph/depot/id"
	"github.com/xraph/depot/inventory"
	"github.com/xraph/depot/types"
)

// ──────────────────────────────────────────────────
// Cylinder Inventory
// ──────────────────────────────────────────────────

// AddInventoryUnits adds qty cylinder units of a type and status.
func (d *Depot) AddInventoryUnits(ctx context.Context, cylinderType string, status inventory.CylinderStatus, qty int) error {
	owner, err := requireOwner(ctx)
	if err != nil {
		return err
	}
	key, err := cylinderKey(cylinderType, status)
	if err != nil {
		return err
	}
	return d.addUnits(ctx, owner, key, qty)
}

// RemoveInventoryUnits removes exactly qty units, or none: when fewer are on
// hand it returns *InsufficientStockError and the count is unchanged.
func (d *Depot) RemoveInventoryUnits(ctx context.Context, cylinderType string, status inventory.CylinderStatus, qty int) error {
	owner, err := requireOwner(ctx)
	if err != nil {
		return err
	}
	key, err := cylinderKey(cylinderType, status)
	if err != nil {
		return err
	}

	ids, err := d.removeUnits(ctx, owner, key, qty)
	if err != nil {
		return err
	}
	for _, cid := range ids {
		d.publish(changefeed.Cylinders, changefeed.OpDeleted, cid.String(), owner)
	}
	d.plugins.EmitStockRemoved(ctx, owner, key, len(ids))
	return nil
}

// TransitionInventoryUnits flips qty units of a type from one status to the
// other, all or nothing.
func (d *Depot) TransitionInventoryUnits(ctx context.Context, cylinderType string, from, to inventory.CylinderStatus, qty int) error {
	owner, err := requireOwner(ctx)
	if err != nil {
		return err
	}
	key, err := cylinderKey(cylinderType, from)
	if err != nil {
		return err
	}
	if !to.Valid() {
		return invalid("to", ErrInvalidInput, "unknown cylinder status %q", to)
	}
	if from == to {
		return invalid("to", ErrInvalidTransition, "units are already %s", to)
	}
	if qty < 1 {
		return invalid("qty", ErrInvalidQuantity, "quantity must be at least 1, got %d", qty)
	}

	release := d.locks.Lock(stockKey(owner, key.Type, string(key.Status)))
	defer release()

	ids, err := d.store.TransitionCylinders(ctx, owner, key.Type, from, to, qty, d.now())
	if err != nil {
		return err
	}
	for _, cid := range ids {
		d.publish(changefeed.Cylinders, changefeed.OpUpdated, cid.String(), owner)
	}
	d.plugins.EmitStockRemoved(ctx, owner, key, len(ids))
	d.plugins.EmitStockAdded(ctx, owner, inventory.CylinderKey{Type: key.Type, Status: to}, len(ids))
	return nil
}

// CountInventoryUnits returns how many units of a type and status are on hand.
func (d *Depot) CountInventoryUnits(ctx context.Context, cylinderType string, status inventory.CylinderStatus) (int, error) {
	owner, err := requireOwner(ctx)
	if err != nil {
		return 0, err
	}
	key, err := cylinderKey(cylinderType, status)
	if err != nil {
		return 0, err
	}
	return d.store.CountCylinders(ctx, owner, key)
}

// InventoryCounts summarizes cylinder and stove stock for the context owner.
func (d *Depot) InventoryCounts(ctx context.Context) (*inventory.Counts, error) {
	owner, err := requireOwner(ctx)
	if err != nil {
		return nil, err
	}

	byKey, err := d.store.CountAllCylinders(ctx, owner)
	if err != nil {
		return nil, err
	}
	counts := &inventory.Counts{Cylinders: make(map[string]inventory.TypeCount)}
	for key, n := range byKey {
		tc := counts.Cylinders[key.Type]
		switch key.Status {
		case inventory.CylinderFull:
			tc.Full += n
			counts.TotalFull += n
		case inventory.CylinderEmpty:
			tc.Empty += n
			counts.TotalEmpty += n
		}
		counts.Cylinders[key.Type] = tc
	}

	stoves, err := d.store.ListStoves(ctx, inventory.StoveListOpts{OwnerKey: owner})
	if err != nil {
		return nil, err
	}
	for _, s := range stoves {
		switch s.Status {
		case inventory.StoveAvailable:
			counts.StovesAvailable++
		case inventory.StoveLent:
			counts.StovesLent++
		}
	}
	return counts, nil
}

func cylinderKey(cylinderType string, status inventory.CylinderStatus) (inventory.CylinderKey, error) {
	cylinderType = strings.TrimSpace(cylinderType)
	if cylinderType == "" {
		return inventory.CylinderKey{}, invalid("type", ErrInvalidInput, "cylinder type is required")
	}
	if !status.Valid() {
		return inventory.CylinderKey{}, invalid("status", ErrInvalidInput, "unknown cylinder status %q", status)
	}
	return inventory.CylinderKey{Type: cylinderType, Status: status}, nil
}

func (d *Depot) addUnits(ctx context.Context, owner string, key inventory.CylinderKey, qty int) error {
	if qty < 1 {
		return invalid("qty", ErrInvalidQuantity, "quantity must be at least 1, got %d", qty)
	}
	ids, err := d.store.AddCylinders(ctx, owner, key, qty, d.now())
	if err != nil {
		return err
	}
	for _, cid := range ids {
		d.publish(changefeed.Cylinders, changefeed.OpCreated, cid.String(), owner)
	}
	d.plugins.EmitStockAdded(ctx, owner, key, qty)
	return nil
}

// removeUnits takes qty units under the (owner, type, status) lock.
func (d *Depot) removeUnits(ctx context.Context, owner string, key inventory.CylinderKey, qty int) ([]id.CylinderID, error) {
	if qty < 1 {
		return nil, invalid("qty", ErrInvalidQuantity, "quantity must be at least 1, got %d", qty)
	}
	release := d.locks.Lock(stockKey(owner, key.Type, string(key.Status)))
	defer release()

	return d.store.RemoveCylinders(ctx, owner, key, qty)
}

// restoreUnits puts back FULL units taken for a delivery whose booking write
// then failed.
func (d *Depot) restoreUnits(ctx context.Context, owner string, b *booking.Booking, qty int) {
	if qty == 0 {
		return
	}
	key := inventory.CylinderKey{Type: b.CylinderType, Status: inventory.CylinderFull}
	if _, err := d.store.AddCylinders(ctx, owner, key, qty, d.now()); err != nil {
		d.logger.Error("stock not restored after failed booking update",
			"booking_id", b.ID.String(),
			"qty", qty,
			"error", err,
		)
	}
}

// ──────────────────────────────────────────────────
// Stoves
// ──────────────────────────────────────────────────

// AddStoves adds qty AVAILABLE stoves of a model.
func (d *Depot) AddStoves(ctx context.Context, model string, qty int) ([]*inventory.Stove, error) {
	owner, err := requireOwner(ctx)
	if err != nil {
		return nil, err
	}
	model = strings.TrimSpace(model)
	if model == "" {
		return nil, invalid("model", ErrInvalidInput, "stove model is required")
	}
	if qty < 1 {
		return nil, invalid("qty", ErrInvalidQuantity, "quantity must be at least 1, got %d", qty)
	}

	now := d.now()
	out := make([]*inventory.Stove, 0, qty)
	for range qty {
		s := &inventory.Stove{
			Entity:   types.NewEntityAt(now),
			ID:       id.NewStoveID(),
			OwnerKey: owner,
			Model:    model,
			Status:   inventory.StoveAvailable,
		}
		if err := d.store.CreateStove(ctx, s); err != nil {
			return out, err
		}
		d.publish(changefeed.Stoves, changefeed.OpCreated, s.ID.String(), owner)
		out = append(out, s)
	}
	return out, nil
}

// LendStove lends the first AVAILABLE stove of a model to a customer.
// *NoStockError is returned when none is free.
func (d *Depot) LendStove(ctx context.Context, model string, customerID id.CustomerID, payment inventory.LendingPayment) (*inventory.Stove, error) {
	owner, err := requireOwner(ctx)
	if err != nil {
		return nil, err
	}
	if payment == "" {
		payment = inventory.LendingPending
	}
	if !payment.Valid() {
		return nil, invalid("payment_status", ErrInvalidInput, "unknown lending payment status %q", payment)
	}

	c, err := d.store.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if err := checkOwner(owner, c.OwnerKey); err != nil {
		return nil, err
	}

	release := d.locks.Lock(stoveModelKey(owner, model))
	defer release()

	free, err := d.store.ListStoves(ctx, inventory.StoveListOpts{
		OwnerKey: owner,
		Model:    model,
		Status:   inventory.StoveAvailable,
	})
	if err != nil {
		return nil, err
	}
	if len(free) == 0 {
		return nil, &NoStockError{Model: model}
	}

	now := d.now().UTC()
	s := free[0].Clone()
	s.Status = inventory.StoveLent
	s.Borrower = &inventory.Borrower{
		CustomerID: c.ID,
		Name:       c.Name,
		Phone:      c.Phone,
		Address:    c.Address,
	}
	s.PaymentStatus = payment
	s.LentAt = &now
	s.Touch(now)

	if err := d.store.UpdateStove(ctx, s); err != nil {
		return nil, err
	}

	d.publish(changefeed.Stoves, changefeed.OpUpdated, s.ID.String(), owner)
	d.plugins.EmitStoveLent(ctx, s)
	return s, nil
}

// ReturnStove records the end of a lending and makes the stove AVAILABLE
// again. The lending record is written before the stove is reset.
func (d *Depot) ReturnStove(ctx context.Context, stoveID id.StoveID) (id.LendingRecordID, error) {
	owner, err := requireOwner(ctx)
	if err != nil {
		return id.Nil, err
	}

	s, err := d.store.GetStove(ctx, stoveID)
	if err != nil {
		return id.Nil, err
	}
	if err := checkOwner(owner, s.OwnerKey); err != nil {
		return id.Nil, err
	}

	release := d.locks.Lock(stoveModelKey(owner, s.Model))
	defer release()

	// Re-read under the lock; a concurrent return may have won.
	s, err = d.store.GetStove(ctx, stoveID)
	if err != nil {
		return id.Nil, err
	}
	if s.Status != inventory.StoveLent || s.Borrower == nil {
		return id.Nil, ErrStoveNotLent
	}

	now := d.now().UTC()
	rec := &inventory.LendingRecord{
		ID:            id.NewLendingRecordID(),
		OwnerKey:      owner,
		StoveID:       s.ID,
		StoveModel:    s.Model,
		Borrower:      *s.Borrower,
		PaymentStatus: s.PaymentStatus,
		ReturnedAt:    now,
		Status:        inventory.LendingReturned,
	}
	if s.LentAt != nil {
		rec.LentAt = *s.LentAt
	}
	if err := d.store.CreateLendingRecord(ctx, rec); err != nil {
		return id.Nil, err
	}
	d.publish(changefeed.LendingRecords, changefeed.OpCreated, rec.ID.String(), owner)

	s.Status = inventory.StoveAvailable
	s.Borrower = nil
	s.PaymentStatus = ""
	s.LentAt = nil
	s.Touch(now)
	if err := d.store.UpdateStove(ctx, s); err != nil {
		d.logger.Error("lending recorded but stove not reset",
			"stove_id", stoveID.String(),
			"lending_record_id", rec.ID.String(),
			"error", err,
		)
		return rec.ID, err
	}

	d.publish(changefeed.Stoves, changefeed.OpUpdated, s.ID.String(), owner)
	d.plugins.EmitStoveReturned(ctx, rec)
	return rec.ID, nil
}

// RemoveStove deletes an AVAILABLE stove. A lent stove must be returned first.
func (d *Depot) RemoveStove(ctx context.Context, stoveID id.StoveID) error {
	owner, err := requireOwner(ctx)
	if err != nil {
		return err
	}
	s, err := d.store.GetStove(ctx, stoveID)
	if err != nil {
		return err
	}
	if err := checkOwner(owner, s.OwnerKey); err != nil {
		return err
	}

	release := d.locks.Lock(stoveModelKey(owner, s.Model))
	defer release()

	s, err = d.store.GetStove(ctx, stoveID)
	if err != nil {
		return err
	}
	if s.Status != inventory.StoveAvailable {
		return ErrStoveLent
	}
	if err := d.store.DeleteStove(ctx, stoveID); err != nil {
		return err
	}
	d.publish(changefeed.Stoves, changefeed.OpDeleted, stoveID.String(), owner)
	return nil
}

// ListStoves lists the context owner's stoves.
func (d *Depot) ListStoves(ctx context.Context, opts inventory.StoveListOpts) ([]*inventory.Stove, error) {
	owner, err := requireOwner(ctx)
	if err != nil {
		return nil, err
	}
	opts.OwnerKey = owner
	return d.store.ListStoves(ctx, opts)
}

// ListLendingRecords lists the context owner's lending history. Expired
// records are swept first unless sweep-on-read is disabled.
func (d *Depot) ListLendingRecords(ctx context.Context, opts inventory.LendingListOpts) ([]*inventory.LendingRecord, error) {
	owner, err := requireOwner(ctx)
	if err != nil {
		return nil, err
	}
	if d.sweepOnRead {
		_, _ = d.runSweep(ctx, owner, false, true) //nolint:errcheck // best-effort read-triggered sweep
	}
	opts.OwnerKey = owner
	return d.store.ListLendingRecords(ctx, opts)
}
