package audithook

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/depot/booking"
	"github.com/xraph/depot/id"
	"github.com/xraph/depot/inventory"
)

type captured struct{ events []*AuditEvent }

func (c *captured) Record(_ context.Context, e *AuditEvent) error {
	c.events = append(c.events, e)
	return nil
}

func TestExtensionRecordsShortfall(t *testing.T) {
	rec := &captured{}
	ext := New(rec)

	b := &booking.Booking{
		ID:             id.NewBookingID(),
		OwnerKey:       "agency-1",
		CylinderType:   "14.2kg",
		Cylinders:      3,
		StockShortfall: 2,
	}
	require.NoError(t, ext.OnStockShortfall(context.Background(), b, 1))

	require.Len(t, rec.events, 1)
	evt := rec.events[0]
	assert.Equal(t, ActionStockShortfall, evt.Action)
	assert.Equal(t, SeverityWarning, evt.Severity)
	assert.Equal(t, OutcomePartial, evt.Outcome)
	assert.Equal(t, "agency-1", evt.OwnerKey)
	assert.Equal(t, b.ID.String(), evt.ResourceID)
	assert.Equal(t, 1, evt.Metadata["available"])
	assert.Equal(t, 2, evt.Metadata["shortfall"])
}

func TestEnabledAndDisabledActions(t *testing.T) {
	key := inventory.CylinderKey{Type: "19kg", Status: inventory.CylinderFull}

	rec := &captured{}
	ext := New(rec, WithEnabledActions(ActionStockRemoved))
	require.NoError(t, ext.OnStockAdded(context.Background(), "o", key, 5))
	require.NoError(t, ext.OnStockRemoved(context.Background(), "o", key, 2))
	require.Len(t, rec.events, 1)
	assert.Equal(t, ActionStockRemoved, rec.events[0].Action)

	rec = &captured{}
	ext = New(rec, WithDisabledActions(ActionStockAdded))
	require.NoError(t, ext.OnStockAdded(context.Background(), "o", key, 5))
	require.NoError(t, ext.OnStockRemoved(context.Background(), "o", key, 2))
	require.Len(t, rec.events, 1)
	assert.Equal(t, ActionStockRemoved, rec.events[0].Action)
}

func TestRecorderFailureIsSwallowed(t *testing.T) {
	var logs bytes.Buffer
	failing := RecorderFunc(func(context.Context, *AuditEvent) error { return errors.New("down") })
	ext := New(failing, WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))

	err := ext.OnBookingDeleted(context.Background(), &booking.Booking{ID: id.NewBookingID()})
	require.NoError(t, err)
	assert.Contains(t, logs.String(), "failed to record audit event")
}

func TestSlogRecorder(t *testing.T) {
	var logs bytes.Buffer
	ext := New(SlogRecorder{Logger: slog.New(slog.NewJSONHandler(&logs, nil))})

	b := &booking.Booking{ID: id.NewBookingID(), OwnerKey: "agency-1"}
	require.NoError(t, ext.OnBookingCompleted(context.Background(), b))
	assert.Contains(t, logs.String(), `"action":"booking.completed"`)
	assert.Contains(t, logs.String(), `"owner_key":"agency-1"`)
}
