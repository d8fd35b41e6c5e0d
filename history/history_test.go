package history

import (
	"math/rand"
	"testing"
	"time"

	"github.com/xraph/depot/booking"
	"github.com/xraph/depot/id"
	"github.com/xraph/depot/types"
)

func TestCombinedStatus(t *testing.T) {
	tests := []struct {
		payment  booking.PaymentStatus
		delivery booking.DeliveryStatus
		want     Status
	}{
		{booking.PaymentPaid, booking.StatusDelivered, StatusCompleted},
		{booking.PaymentPaid, booking.StatusBooked, StatusPaidPendingDelivery},
		{booking.PaymentPaid, booking.StatusInTransit, StatusPaidPendingDelivery},
		{booking.PaymentPaid, booking.StatusCancelled, StatusPaidPendingDelivery},
		{booking.PaymentPartial, booking.StatusDelivered, StatusPartialPayment},
		{booking.PaymentPartial, booking.StatusBooked, StatusPartialPayment},
		{booking.PaymentPending, booking.StatusDelivered, StatusPending},
		{booking.PaymentPending, booking.StatusBooked, StatusPending},
	}

	for _, tt := range tests {
		t.Run(string(tt.payment)+"/"+string(tt.delivery), func(t *testing.T) {
			if got := CombinedStatus(tt.payment, tt.delivery); got != tt.want {
				t.Errorf("CombinedStatus: got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRecordKeepsBoundAndOrder(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	var list []Transaction
	for i := 0; i < 200; i++ {
		at := base.Add(time.Duration(rng.Intn(100000)) * time.Minute)
		tx := Transaction{
			BookingID:     id.NewBookingID(),
			PaymentStatus: booking.PaymentPaid,
			Amount:        types.Rupees(1150),
			Timestamp:     at.UnixMilli(),
		}
		list = Record(list, tx, Facts{})

		if len(list) > MaxEntries {
			t.Fatalf("step %d: length %d exceeds %d", i, len(list), MaxEntries)
		}
		for j := 1; j < len(list); j++ {
			if list[j-1].Timestamp < list[j].Timestamp {
				t.Fatalf("step %d: entries %d and %d out of order", i, j-1, j)
			}
		}
	}
	if len(list) != MaxEntries {
		t.Errorf("length: got %d, want %d", len(list), MaxEntries)
	}
}

func TestRecordPrependsNewest(t *testing.T) {
	old := Transaction{BookingID: id.NewBookingID(), Timestamp: 1000}
	newer := Transaction{BookingID: id.NewBookingID(), Timestamp: 2000}

	list := Record([]Transaction{old}, newer, Facts{})
	if len(list) != 2 {
		t.Fatalf("length: got %d, want 2", len(list))
	}
	if list[0].BookingID != newer.BookingID {
		t.Errorf("first entry: got %s, want %s", list[0].BookingID, newer.BookingID)
	}
}

func TestRecordRepairsOnlyCurrentBooking(t *testing.T) {
	current := id.NewBookingID()
	other := id.NewBookingID()

	list := []Transaction{
		{BookingID: current, PaymentStatus: booking.PaymentPaid, LegacyAmount: true, Timestamp: 300},
		{BookingID: other, PaymentStatus: booking.PaymentPaid, LegacyAmount: true, Timestamp: 200},
		{BookingID: current, PaymentStatus: booking.PaymentPartial, LegacyAmount: true, Timestamp: 100},
	}

	tx := Transaction{BookingID: current, PaymentStatus: booking.PaymentPaid, Amount: types.Rupees(2450), Timestamp: 400}
	out := Record(list, tx, Facts{BookingID: current, Amount: types.Rupees(2450)})

	byTS := make(map[int64]Transaction)
	for _, e := range out {
		byTS[e.Timestamp] = e
	}
	if e := byTS[300]; e.LegacyAmount || !e.Amount.Equal(types.Rupees(2450)) {
		t.Errorf("current booking entry not repaired: %+v", e)
	}
	if e := byTS[200]; !e.LegacyAmount {
		t.Errorf("other booking entry should stay legacy: %+v", e)
	}
	if e := byTS[100]; !e.LegacyAmount {
		t.Errorf("partial entry should stay legacy: %+v", e)
	}
	if !list[0].LegacyAmount {
		t.Error("Record must not mutate its input")
	}
}

func TestReviseInPlace(t *testing.T) {
	a, b := id.NewBookingID(), id.NewBookingID()
	list := []Transaction{
		{BookingID: a, PaymentStatus: booking.PaymentPaid, DeliveryStatus: booking.StatusBooked,
			Status: StatusPaidPendingDelivery, Amount: types.Rupees(2450), Timestamp: 200},
		{BookingID: b, PaymentStatus: booking.PaymentPaid, DeliveryStatus: booking.StatusBooked,
			Status: StatusPaidPendingDelivery, LegacyAmount: true, Timestamp: 100},
	}

	out, found := Revise(list, b, booking.StatusDelivered, Facts{BookingID: b, Amount: types.Rupees(1200)})
	if !found {
		t.Fatal("expected entry to be found")
	}
	if out[0].BookingID != a || out[1].BookingID != b {
		t.Fatal("Revise reordered entries")
	}
	if out[1].Status != StatusCompleted || out[1].DeliveryStatus != booking.StatusDelivered {
		t.Errorf("revised entry: got %+v", out[1])
	}
	if out[1].LegacyAmount || !out[1].Amount.Equal(types.Rupees(1200)) {
		t.Errorf("revised amount: got %v legacy=%v", out[1].Amount, out[1].LegacyAmount)
	}
	if out[0].Status != StatusPaidPendingDelivery {
		t.Errorf("untouched entry changed: %+v", out[0])
	}

	if _, found := Revise(list, id.NewBookingID(), booking.StatusDelivered, Facts{}); found {
		t.Error("expected no entry for unknown booking")
	}
}

func TestLegacyBookings(t *testing.T) {
	a, b := id.NewBookingID(), id.NewBookingID()
	list := []Transaction{
		{BookingID: a, PaymentStatus: booking.PaymentPaid, LegacyAmount: true},
		{BookingID: a, PaymentStatus: booking.PaymentPaid, LegacyAmount: true},
		{BookingID: b, PaymentStatus: booking.PaymentPaid},
	}
	ids := LegacyBookings(list)
	if len(ids) != 1 || ids[0] != a {
		t.Errorf("LegacyBookings: got %v, want [%s]", ids, a)
	}

	out, n := Repair(list, Facts{BookingID: a, Amount: types.Rupees(1150)})
	if n != 2 {
		t.Errorf("Repair count: got %d, want 2", n)
	}
	if len(LegacyBookings(out)) != 0 {
		t.Error("expected no legacy entries after repair")
	}
}

func TestEncodeDecode(t *testing.T) {
	bid := id.NewBookingID()
	list := []Transaction{
		{Date: "2026-03-01", Status: StatusCompleted, Amount: types.Rupees(2450), BookingID: bid,
			PaymentStatus: booking.PaymentPaid, DeliveryStatus: booking.StatusDelivered, Timestamp: 20},
		{Date: "2026-02-01", Status: StatusPaidPendingDelivery, Amount: types.Zero("inr"), LegacyAmount: true, BookingID: bid,
			PaymentStatus: booking.PaymentPaid, DeliveryStatus: booking.StatusBooked, Timestamp: 10},
		{Date: "2026-01-01", Status: StatusPartialPayment, Amount: types.INR(50050),
			PaymentStatus: booking.PaymentPartial, DeliveryStatus: booking.StatusBooked, Timestamp: 5},
	}

	stored := Encode(list)
	if stored[0].Amount != "2450" {
		t.Errorf("amount: got %q", stored[0].Amount)
	}
	if stored[1].Amount != LegacyPlaceholder {
		t.Errorf("legacy amount: got %q", stored[1].Amount)
	}
	if stored[2].Amount != "500.50" {
		t.Errorf("fractional amount: got %q", stored[2].Amount)
	}

	back, err := Decode(stored)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !back[0].Amount.Equal(types.Rupees(2450)) || back[0].BookingID.String() != bid.String() {
		t.Errorf("entry 0: got %+v", back[0])
	}
	if !back[1].LegacyAmount || !back[1].Amount.IsZero() {
		t.Errorf("entry 1 should come back legacy: %+v", back[1])
	}
	if back[2].Amount.Amount != 50050 || !back[2].BookingID.IsNil() {
		t.Errorf("entry 2: got %+v", back[2])
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := Decode([]Stored{{Amount: "lots"}}); err == nil {
		t.Error("expected an amount error")
	}
	if _, err := Decode([]Stored{{Amount: "10", BookingID: "nope"}}); err == nil {
		t.Error("expected a booking id error")
	}
}
