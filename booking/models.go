package booking

import (
	"strings"
	"time"

	"github.com/xraph/depot/id"
	"github.com/xraph/depot/types"
)

// DeliveryStatus is the delivery axis of a booking.
type DeliveryStatus string

const (
	StatusBooked    DeliveryStatus = "Booked"
	StatusInTransit DeliveryStatus = "InTransit"
	StatusDelivered DeliveryStatus = "Delivered"
	StatusCancelled DeliveryStatus = "Cancelled"
)

// Terminal reports whether no further delivery move is possible.
func (s DeliveryStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// Valid reports whether s is a known delivery status.
func (s DeliveryStatus) Valid() bool {
	switch s {
	case StatusBooked, StatusInTransit, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// PaymentStatus is the payment axis of a booking.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "Pending"
	PaymentPartial PaymentStatus = "Partial"
	PaymentPaid    PaymentStatus = "Paid"
)

// Valid reports whether p is a known payment status.
func (p PaymentStatus) Valid() bool {
	switch p {
	case PaymentPending, PaymentPartial, PaymentPaid:
		return true
	}
	return false
}

// Collected reports whether money changed hands (Partial or Paid).
func (p PaymentStatus) Collected() bool {
	return p == PaymentPartial || p == PaymentPaid
}

// ServiceType is the pickup/drop service attached to a booking.
type ServiceType string

const (
	ServiceNone       ServiceType = "No"
	ServicePickup     ServiceType = "Pickup"
	ServiceDrop       ServiceType = "Drop"
	ServicePickupDrop ServiceType = "Pickup + Drop"
)

// ParseServiceType accepts the canonical names plus the spellings older
// clients stored ("Pickup+Drop", "Both", "").
func ParseServiceType(s string) (ServiceType, bool) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", "")) {
	case "", "no", "none":
		return ServiceNone, true
	case "pickup":
		return ServicePickup, true
	case "drop":
		return ServiceDrop, true
	case "pickup+drop", "both":
		return ServicePickupDrop, true
	}
	return "", false
}

// IncludesDrop reports whether the service drops an empty cylinder off.
func (s ServiceType) IncludesDrop() bool {
	return s == ServiceDrop || s == ServicePickupDrop
}

// Payment is the payment state of a booking.
type Payment struct {
	Status          PaymentStatus `json:"status"`
	Amount          types.Money   `json:"amount"`
	LastPaymentDate *time.Time    `json:"last_payment_date,omitempty"`
}

// Booking is a delivery order placed for a registered customer.
type Booking struct {
	types.Entity
	ID                    id.BookingID   `json:"id"`
	OwnerKey              string         `json:"owner_key"`
	CustomerID            id.CustomerID  `json:"customer_id"`
	Cylinders             int            `json:"cylinders"`
	CylinderType          string         `json:"cylinder_type"`
	DSCCode               string         `json:"dsc_code"`
	ServiceType           ServiceType    `json:"service_type"`
	DeliveryDate          time.Time      `json:"delivery_date"`
	Payment               Payment        `json:"payment"`
	Status                DeliveryStatus `json:"status"`
	EmptyCylinderReceived bool           `json:"empty_cylinder_received"`
	// StockShortfall counts FULL units that were not decremented because the
	// operator chose to proceed without enough stock.
	StockShortfall int `json:"stock_shortfall,omitempty"`
}

// Locked reports whether the booking is Paid and Delivered. A locked booking
// accepts no further updates.
func (b *Booking) Locked() bool {
	return b.Payment.Status == PaymentPaid && b.Status == StatusDelivered
}

// Clone returns a deep copy.
func (b *Booking) Clone() *Booking {
	c := *b
	if b.Payment.LastPaymentDate != nil {
		t := *b.Payment.LastPaymentDate
		c.Payment.LastPaymentDate = &t
	}
	return &c
}

// View joins a booking with the customer fields list screens show.
type View struct {
	*Booking
	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone"`
	BookID        string `json:"book_id,omitempty"`
}
