package depot

import (
	"fmt"
	"regexp"
	"time"

	"github.com/xraph/depot/booking"
	"github.com/xraph/depot/customer"
	"github.com/xraph/depot/history"
	"github.com/xraph/depot/id"
	"github.com/xraph/depot/inventory"
	"github.com/xraph/depot/pricing"
	"github.com/xraph/depot/types"
)

// ShortagePolicy is the operator's answer when a delivery needs more FULL
// cylinders than are on hand.
type ShortagePolicy int

const (
	// ShortageAbort rejects the whole update with *InsufficientStockError.
	ShortageAbort ShortagePolicy = iota
	// ShortageProceed completes the delivery without touching stock and marks
	// the booking with a StockShortfall.
	ShortageProceed
)

// CreateBookingInput is what a caller supplies to open a booking.
type CreateBookingInput struct {
	CustomerID id.CustomerID `json:"customer_id"`
	Cylinders  int           `json:"cylinders"`
	// CylinderType defaults to the customer's registered type.
	CylinderType string              `json:"cylinder_type,omitempty"`
	DSCCode      string              `json:"dsc_code"`
	ServiceType  booking.ServiceType `json:"service_type"`
	DeliveryDate time.Time           `json:"delivery_date"`
	// PaymentStatus defaults to Pending.
	PaymentStatus booking.PaymentStatus `json:"payment_status,omitempty"`
	// PaymentAmount is read only for Partial.
	PaymentAmount         *types.Money `json:"payment_amount,omitempty"`
	EmptyCylinderReceived bool         `json:"empty_cylinder_received"`
}

// UpdateBookingInput is a partial update. Nil fields keep their value.
type UpdateBookingInput struct {
	PaymentStatus  *booking.PaymentStatus  `json:"payment_status,omitempty"`
	PaymentAmount  *types.Money            `json:"payment_amount,omitempty"`
	DeliveryStatus *booking.DeliveryStatus `json:"delivery_status,omitempty"`
	OnShortage     ShortagePolicy          `json:"on_shortage,omitempty"`
}

// stockCommand adds or removes cylinder units.
type stockCommand struct {
	key    inventory.CylinderKey
	qty    int
	remove bool
}

type historyAction int

const (
	historyRecord historyAction = iota + 1
	historyRevise
)

// historyCommand appends to or rewrites a customer's payment history.
type historyCommand struct {
	action     historyAction
	customerID id.CustomerID
	tx         history.Transaction
	facts      history.Facts
	delivery   booking.DeliveryStatus
}

// bookingPlan is the outcome of planning a booking change: the booking to
// store and the side effects to run after it is stored.
type bookingPlan struct {
	next    *booking.Booking
	stock   []stockCommand
	history *historyCommand
	// delivered is set when the delivery axis newly reaches Delivered.
	delivered bool
	completed bool
}

var dscPattern = regexp.MustCompile(`^[0-9]{4}$`)

// dateOnly truncates t to midnight in loc.
func dateOnly(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// chargeFor returns the amount a booking carries for a payment status.
func chargeFor(status booking.PaymentStatus, supplied *types.Money, quote types.Money) (types.Money, error) {
	switch status {
	case booking.PaymentPaid:
		return quote, nil
	case booking.PaymentPartial:
		if supplied == nil || !supplied.IsPositive() {
			return types.Money{}, invalid("payment_amount", ErrInvalidInput, "a partial payment needs a positive amount")
		}
		if supplied.Currency != quote.Currency {
			return types.Money{}, invalid("payment_amount", ErrInvalidInput,
				"amount is in %q, bookings are priced in %q", supplied.Currency, quote.Currency)
		}
		return *supplied, nil
	default:
		return types.Zero(quote.Currency), nil
	}
}

// planCreate validates a new booking against its customer and plans its
// side effects. It performs no I/O.
func planCreate(in CreateBookingInput, c *customer.Customer, prices pricing.Book, now time.Time, loc *time.Location) (*bookingPlan, error) {
	if !dscPattern.MatchString(in.DSCCode) {
		return nil, invalid("dsc_code", ErrInvalidDSC, "DSC code must be exactly 4 digits, got %q", in.DSCCode)
	}
	if in.Cylinders < 1 {
		return nil, invalid("cylinders", ErrInvalidQuantity, "at least one cylinder is required")
	}
	if in.Cylinders > c.Cylinders {
		return nil, invalid("cylinders", ErrCapacityExceeded,
			"customer is registered for %d cylinder(s); update the customer registration before booking %d",
			c.Cylinders, in.Cylinders)
	}

	cylinderType := in.CylinderType
	if cylinderType == "" {
		cylinderType = c.CylinderType
	}
	if cylinderType != c.CylinderType {
		return nil, invalid("cylinder_type", ErrTypeMismatch,
			"customer is registered for %s cylinders; update the customer registration before booking %s",
			c.CylinderType, cylinderType)
	}

	service, ok := booking.ParseServiceType(string(in.ServiceType))
	if !ok {
		return nil, invalid("service_type", ErrInvalidInput, "unknown service type %q", in.ServiceType)
	}

	if in.DeliveryDate.IsZero() {
		return nil, invalid("delivery_date", ErrInvalidDate, "delivery date is required")
	}
	delivery := dateOnly(in.DeliveryDate, loc)
	if delivery.Before(dateOnly(now, loc)) {
		return nil, invalid("delivery_date", ErrInvalidDate,
			"delivery date %s is before today", delivery.Format(history.DateLayout))
	}

	status := in.PaymentStatus
	if status == "" {
		status = booking.PaymentPending
	}
	if !status.Valid() {
		return nil, invalid("payment_status", ErrInvalidInput, "unknown payment status %q", status)
	}

	quote := prices.Quote(in.Cylinders, cylinderType, service)
	amount, err := chargeFor(status, in.PaymentAmount, quote)
	if err != nil {
		return nil, err
	}

	b := &booking.Booking{
		Entity:       types.NewEntityAt(now),
		ID:           id.NewBookingID(),
		OwnerKey:     c.OwnerKey,
		CustomerID:   c.ID,
		Cylinders:    in.Cylinders,
		CylinderType: cylinderType,
		DSCCode:      in.DSCCode,
		ServiceType:  service,
		DeliveryDate: delivery,
		Payment: booking.Payment{
			Status: status,
			Amount: amount,
		},
		Status:                booking.StatusBooked,
		EmptyCylinderReceived: in.EmptyCylinderReceived && service.IncludesDrop(),
	}

	p := &bookingPlan{next: b}

	if status.Collected() {
		paid := now.UTC()
		b.Payment.LastPaymentDate = &paid
		p.history = &historyCommand{
			action:     historyRecord,
			customerID: c.ID,
			tx:         history.NewTransaction(b, now),
			facts:      history.Facts{BookingID: b.ID, Amount: quote},
		}
	}

	if b.EmptyCylinderReceived {
		p.stock = append(p.stock, stockCommand{
			key: inventory.CylinderKey{Type: cylinderType, Status: inventory.CylinderEmpty},
			qty: in.Cylinders,
		})
	}

	return p, nil
}

// planUpdate applies a partial update to a snapshot of a booking. The
// returned booking is a copy; cur is not modified.
func planUpdate(cur *booking.Booking, in UpdateBookingInput, prices pricing.Book, now time.Time) (*bookingPlan, error) {
	if cur.Locked() {
		return nil, &LockedError{BookingID: cur.ID.String()}
	}

	next := cur.Clone()

	if in.DeliveryStatus != nil {
		to := *in.DeliveryStatus
		if !to.Valid() {
			return nil, invalid("delivery_status", ErrInvalidInput, "unknown delivery status %q", to)
		}
		if !booking.CanMoveDelivery(cur.Status, to) {
			return nil, invalid("delivery_status", ErrInvalidTransition,
				"cannot move delivery from %s to %s", cur.Status, to)
		}
		next.Status = to
	}

	if in.PaymentStatus != nil {
		to := *in.PaymentStatus
		if !to.Valid() {
			return nil, invalid("payment_status", ErrInvalidInput, "unknown payment status %q", to)
		}
		if !booking.CanMovePayment(cur.Payment.Status, to) {
			return nil, invalid("payment_status", ErrInvalidTransition,
				"cannot move payment from %s to %s", cur.Payment.Status, to)
		}
		next.Payment.Status = to
	}

	quote := prices.Quote(next.Cylinders, next.CylinderType, next.ServiceType)

	supplied := in.PaymentAmount
	if supplied == nil && next.Payment.Status == booking.PaymentPartial && cur.Payment.Status == booking.PaymentPartial {
		supplied = &cur.Payment.Amount
	}
	amount, err := chargeFor(next.Payment.Status, supplied, quote)
	if err != nil {
		return nil, err
	}
	next.Payment.Amount = amount

	if next.Payment.Status.Collected() {
		paid := now.UTC()
		next.Payment.LastPaymentDate = &paid
	}
	next.Touch(now)

	p := &bookingPlan{next: next}

	if next.Status == booking.StatusDelivered && cur.Status != booking.StatusDelivered {
		p.delivered = true
		p.stock = append(p.stock, stockCommand{
			key:    inventory.CylinderKey{Type: next.CylinderType, Status: inventory.CylinderFull},
			qty:    next.Cylinders,
			remove: true,
		})
	}
	p.completed = next.Locked()

	facts := history.Facts{BookingID: next.ID, Amount: quote}
	paymentChanged := next.Payment.Status != cur.Payment.Status
	partialChanged := next.Payment.Status == booking.PaymentPartial && !next.Payment.Amount.Equal(cur.Payment.Amount)

	switch {
	case next.Payment.Status.Collected() && (paymentChanged || partialChanged):
		p.history = &historyCommand{
			action:     historyRecord,
			customerID: next.CustomerID,
			tx:         history.NewTransaction(next, now),
			facts:      facts,
		}
	case cur.Payment.Status == booking.PaymentPaid && next.Status != cur.Status:
		p.history = &historyCommand{
			action:     historyRevise,
			customerID: next.CustomerID,
			tx:         history.NewTransaction(next, now),
			facts:      facts,
			delivery:   next.Status,
		}
	}

	return p, nil
}

func (c stockCommand) String() string {
	verb := "add"
	if c.remove {
		verb = "remove"
	}
	return fmt.Sprintf("%s %d %s %s", verb, c.qty, c.key.Status, c.key.Type)
}
