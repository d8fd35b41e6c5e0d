package observability

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/depot/booking"
	"github.com/xraph/depot/inventory"
	"github.com/xraph/depot/retention"
	"github.com/xraph/depot/types"
)

func TestMetricsExtensionCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsExtension(NewPrometheusFactory(reg))
	ctx := context.Background()

	b := &booking.Booking{Cylinders: 2, Payment: booking.Payment{Amount: types.Rupees(2350)}}
	require.NoError(t, m.OnBookingCreated(ctx, b))
	require.NoError(t, m.OnBookingCompleted(ctx, b))
	require.NoError(t, m.OnStockAdded(ctx, "o", inventory.CylinderKey{Type: "14.2kg", Status: inventory.CylinderFull}, 10))
	require.NoError(t, m.OnStockRemoved(ctx, "o", inventory.CylinderKey{Type: "14.2kg", Status: inventory.CylinderFull}, 2))
	require.NoError(t, m.OnRetentionSweep(ctx, retention.Result{BookingsDeleted: 3, LendingRecordsDeleted: 1}, 5*time.Millisecond))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.BookingCreated.(prometheus.Counter)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BookingCompleted.(prometheus.Counter)))
	assert.Equal(t, 10.0, testutil.ToFloat64(m.CylindersAdded.(prometheus.Counter)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CylindersRemoved.(prometheus.Counter)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.BookingsSwept.(prometheus.Counter)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LendingRecordsSwept.(prometheus.Counter)))
}

func TestPrometheusFactoryReusesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	f := NewPrometheusFactory(reg)

	a := f.Counter("depot.booking.created")
	b := f.Counter("depot.booking.created")
	assert.Same(t, a, b)

	// A second factory on the same registry must not panic and shares the counter.
	other := NewPrometheusFactory(reg).Counter("depot.booking.created")
	a.Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(other.(prometheus.Counter)))

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)
	assert.Equal(t, "depot_booking_created_total", families[0].GetName())
}
