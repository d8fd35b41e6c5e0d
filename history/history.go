// Package history maintains a customer's payment history: a newest-first list
// of at most MaxEntries transactions, one per booking payment event.
//
// Every function here is pure. It takes the current list and returns a new
// one; persisting the result is the caller's job.
package history

import (
	"sort"
	"time"

	"github.com/xraph/depot/booking"
	"github.com/xraph/depot/id"
	"github.com/xraph/depot/types"
)

// MaxEntries bounds the length of a payment history.
const MaxEntries = 30

// LegacyPlaceholder is the amount older clients wrote instead of a number for
// bookings paid in full.
const LegacyPlaceholder = "FULL"

// DateLayout is the layout of Transaction.Date.
const DateLayout = "2006-01-02"

// Status is the combined label derived from payment and delivery status.
type Status string

const (
	StatusCompleted           Status = "Completed"
	StatusPaidPendingDelivery Status = "Paid-PendingDelivery"
	StatusPartialPayment      Status = "PartialPayment"
	StatusPending             Status = "Pending"
)

// CombinedStatus merges the two booking axes into one label.
func CombinedStatus(p booking.PaymentStatus, d booking.DeliveryStatus) Status {
	switch {
	case p == booking.PaymentPaid && d == booking.StatusDelivered:
		return StatusCompleted
	case p == booking.PaymentPaid:
		return StatusPaidPendingDelivery
	case p == booking.PaymentPartial:
		return StatusPartialPayment
	default:
		return StatusPending
	}
}

// Transaction is one entry in a customer's payment history.
type Transaction struct {
	Date      string       `json:"date"`
	Status    Status       `json:"status"`
	Amount    types.Money  `json:"amount"`
	BookingID id.BookingID `json:"booking_id"`
	// LegacyAmount marks an entry whose amount was stored as LegacyPlaceholder.
	// Amount is meaningless until the entry is repaired.
	LegacyAmount   bool                   `json:"legacy_amount,omitempty"`
	PaymentStatus  booking.PaymentStatus  `json:"payment_status"`
	DeliveryStatus booking.DeliveryStatus `json:"delivery_status"`
	// Timestamp is unix milliseconds and the sort key.
	Timestamp int64 `json:"timestamp"`
}

// Facts are the concrete figures of the booking being processed.
type Facts struct {
	BookingID id.BookingID
	// Amount is what the booking costs in full.
	Amount types.Money
}

// NewTransaction builds an entry for a booking payment event at t.
func NewTransaction(b *booking.Booking, t time.Time) Transaction {
	return Transaction{
		Date:           t.Format(DateLayout),
		Status:         CombinedStatus(b.Payment.Status, b.Status),
		Amount:         b.Payment.Amount,
		BookingID:      b.ID,
		PaymentStatus:  b.Payment.Status,
		DeliveryStatus: b.Status,
		Timestamp:      t.UnixMilli(),
	}
}

// Record prepends tx, repairs legacy amounts belonging to facts.BookingID,
// re-sorts newest first and truncates to MaxEntries.
func Record(list []Transaction, tx Transaction, facts Facts) []Transaction {
	out := make([]Transaction, 0, len(list)+1)
	out = append(out, tx)
	out = append(out, list...)
	repair(out, facts)
	return normalize(out)
}

// Revise rewrites, in place and without reordering, the entry for bookingID to
// reflect a new delivery status. A legacy or zero amount is replaced with
// facts.Amount. The second result reports whether an entry was found.
func Revise(list []Transaction, bookingID id.BookingID, delivery booking.DeliveryStatus, facts Facts) ([]Transaction, bool) {
	out := append([]Transaction(nil), list...)
	for i := range out {
		tx := &out[i]
		if tx.BookingID.String() != bookingID.String() {
			continue
		}
		tx.DeliveryStatus = delivery
		tx.Status = CombinedStatus(tx.PaymentStatus, delivery)
		if tx.LegacyAmount || tx.Amount.IsZero() {
			tx.Amount = facts.Amount
			tx.LegacyAmount = false
		}
		return out, true
	}
	return out, false
}

// Repair heals legacy Paid entries of facts.BookingID and reports how many it
// changed.
func Repair(list []Transaction, facts Facts) ([]Transaction, int) {
	out := append([]Transaction(nil), list...)
	return out, repair(out, facts)
}

// LegacyBookings returns the IDs of bookings that still have unrepaired Paid
// entries.
func LegacyBookings(list []Transaction) []id.BookingID {
	seen := make(map[string]bool)
	var ids []id.BookingID
	for _, tx := range list {
		if !needsRepair(tx) || seen[tx.BookingID.String()] {
			continue
		}
		seen[tx.BookingID.String()] = true
		ids = append(ids, tx.BookingID)
	}
	return ids
}

func needsRepair(tx Transaction) bool {
	return tx.LegacyAmount && tx.PaymentStatus == booking.PaymentPaid && !tx.BookingID.IsNil()
}

func repair(list []Transaction, facts Facts) int {
	if facts.BookingID.IsNil() {
		return 0
	}
	n := 0
	for i := range list {
		if needsRepair(list[i]) && list[i].BookingID.String() == facts.BookingID.String() {
			list[i].Amount = facts.Amount
			list[i].LegacyAmount = false
			n++
		}
	}
	return n
}

func normalize(list []Transaction) []Transaction {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Timestamp > list[j].Timestamp
	})
	if len(list) > MaxEntries {
		list = list[:MaxEntries]
	}
	return list
}
