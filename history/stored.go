package history

import (
	"fmt"

	"github.com/xraph/depot/booking"
	"github.com/xraph/depot/id"
	"github.com/xraph/depot/types"
)

// Stored is how a Transaction is persisted. Amount is a plain decimal string
// such as "2450", or LegacyPlaceholder for entries written by older clients.
type Stored struct {
	Date           string `json:"date" bson:"date"`
	Status         string `json:"status" bson:"status"`
	Amount         string `json:"amount" bson:"amount"`
	Currency       string `json:"currency,omitempty" bson:"currency,omitempty"`
	BookingID      string `json:"bookingId" bson:"bookingId"`
	PaymentStatus  string `json:"paymentStatus" bson:"paymentStatus"`
	DeliveryStatus string `json:"deliveryStatus" bson:"deliveryStatus"`
	Timestamp      int64  `json:"timestamp" bson:"timestamp"`
}

// Encode converts a history list to its stored form.
func Encode(list []Transaction) []Stored {
	out := make([]Stored, len(list))
	for i, tx := range list {
		amount := tx.Amount.FormatPlain()
		if tx.LegacyAmount {
			amount = LegacyPlaceholder
		}
		out[i] = Stored{
			Date:           tx.Date,
			Status:         string(tx.Status),
			Amount:         amount,
			Currency:       tx.Amount.Currency,
			BookingID:      tx.BookingID.String(),
			PaymentStatus:  string(tx.PaymentStatus),
			DeliveryStatus: string(tx.DeliveryStatus),
			Timestamp:      tx.Timestamp,
		}
	}
	return out
}

// Decode converts stored entries back. An entry whose amount reads
// LegacyPlaceholder comes back with LegacyAmount set and a zero Amount.
func Decode(list []Stored) ([]Transaction, error) {
	out := make([]Transaction, len(list))
	for i, s := range list {
		currency := s.Currency
		if currency == "" {
			currency = types.DefaultCurrency
		}

		tx := Transaction{
			Date:           s.Date,
			Status:         Status(s.Status),
			PaymentStatus:  booking.PaymentStatus(s.PaymentStatus),
			DeliveryStatus: booking.DeliveryStatus(s.DeliveryStatus),
			Timestamp:      s.Timestamp,
		}

		if s.BookingID != "" {
			bid, err := id.ParseBookingID(s.BookingID)
			if err != nil {
				return nil, fmt.Errorf("history: entry %d: %w", i, err)
			}
			tx.BookingID = bid
		}

		switch s.Amount {
		case LegacyPlaceholder:
			tx.LegacyAmount = true
			tx.Amount = types.Zero(currency)
		case "":
			tx.Amount = types.Zero(currency)
		default:
			m, err := types.ParseMajor(s.Amount, currency)
			if err != nil {
				return nil, fmt.Errorf("history: entry %d amount: %w", i, err)
			}
			tx.Amount = m
		}

		out[i] = tx
	}
	return out, nil
}
