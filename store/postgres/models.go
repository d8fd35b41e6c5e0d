package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/xraph/depot/booking"
	"github.com/xraph/depot/customer"
	"github.com/xraph/depot/history"
	"github.com/xraph/depot/id"
	"github.com/xraph/depot/inventory"
	"github.com/xraph/depot/types"
)

type scanner interface {
	Scan(dest ...any) error
}

// ==================== Customer models ====================

const customerColumns = `id, owner_key, name, phone, book_id, gender, category, subsidy, address,
	cylinders, cylinder_type, payment_status, payment_amount, currency, last_payment_date,
	payment_history, created_at, updated_at`

func customerArgs(c *customer.Customer) ([]any, error) {
	hist, err := json.Marshal(history.Encode(c.PaymentHistory))
	if err != nil {
		return nil, err
	}
	return []any{
		c.ID.String(), c.OwnerKey, c.Name, c.Phone, c.BookID, string(c.Gender), string(c.Category),
		c.Subsidy, c.Address, c.Cylinders, c.CylinderType, string(c.Payment.Status),
		c.Payment.Amount.Amount, c.Payment.Amount.Currency, c.Payment.LastPaymentDate,
		hist, c.CreatedAt.UTC(), c.UpdatedAt.UTC(),
	}, nil
}

func scanCustomer(row scanner) (*customer.Customer, error) {
	var (
		c                   customer.Customer
		rawID               string
		gender, category    string
		payStatus, currency string
		amount              int64
		hist                []byte
	)
	if err := row.Scan(&rawID, &c.OwnerKey, &c.Name, &c.Phone, &c.BookID, &gender, &category,
		&c.Subsidy, &c.Address, &c.Cylinders, &c.CylinderType, &payStatus, &amount, &currency,
		&c.Payment.LastPaymentDate, &hist, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}

	var err error
	if c.ID, err = id.ParseCustomerID(rawID); err != nil {
		return nil, err
	}
	c.Gender = customer.Gender(gender)
	c.Category = customer.Category(category)
	c.Payment.Status = booking.PaymentStatus(payStatus)
	c.Payment.Amount = types.Money{Amount: amount, Currency: currency}

	var stored []history.Stored
	if len(hist) > 0 {
		if err := json.Unmarshal(hist, &stored); err != nil {
			return nil, fmt.Errorf("payment history of %s: %w", rawID, err)
		}
	}
	if c.PaymentHistory, err = history.Decode(stored); err != nil {
		return nil, err
	}
	return &c, nil
}

// ==================== Booking models ====================

const bookingColumns = `id, owner_key, customer_id, cylinders, cylinder_type, dsc_code, service_type,
	delivery_date, payment_status, payment_amount, currency, last_payment_date, status,
	empty_cylinder_received, stock_shortfall, created_at, updated_at`

func bookingArgs(b *booking.Booking) []any {
	return []any{
		b.ID.String(), b.OwnerKey, b.CustomerID.String(), b.Cylinders, b.CylinderType, b.DSCCode,
		string(b.ServiceType), b.DeliveryDate.UTC(), string(b.Payment.Status),
		b.Payment.Amount.Amount, b.Payment.Amount.Currency, b.Payment.LastPaymentDate,
		string(b.Status), b.EmptyCylinderReceived, b.StockShortfall,
		b.CreatedAt.UTC(), b.UpdatedAt.UTC(),
	}
}

func scanBooking(row scanner) (*booking.Booking, error) {
	var (
		b                   booking.Booking
		rawID, rawCustomer  string
		service, status     string
		payStatus, currency string
		amount              int64
		delivery            time.Time
	)
	if err := row.Scan(&rawID, &b.OwnerKey, &rawCustomer, &b.Cylinders, &b.CylinderType, &b.DSCCode,
		&service, &delivery, &payStatus, &amount, &currency, &b.Payment.LastPaymentDate, &status,
		&b.EmptyCylinderReceived, &b.StockShortfall, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}

	var err error
	if b.ID, err = id.ParseBookingID(rawID); err != nil {
		return nil, err
	}
	if b.CustomerID, err = id.ParseCustomerID(rawCustomer); err != nil {
		return nil, err
	}
	b.ServiceType = booking.ServiceType(service)
	b.DeliveryDate = delivery.UTC()
	b.Payment.Status = booking.PaymentStatus(payStatus)
	b.Payment.Amount = types.Money{Amount: amount, Currency: currency}
	b.Status = booking.DeliveryStatus(status)
	return &b, nil
}

// ==================== Stove models ====================

const stoveColumns = `id, owner_key, model, status, borrower, payment_status, lent_at, created_at, updated_at`

func stoveArgs(st *inventory.Stove) ([]any, error) {
	var borrower []byte
	if st.Borrower != nil {
		raw, err := json.Marshal(st.Borrower)
		if err != nil {
			return nil, err
		}
		borrower = raw
	}
	return []any{
		st.ID.String(), st.OwnerKey, st.Model, string(st.Status), borrower,
		string(st.PaymentStatus), st.LentAt, st.CreatedAt.UTC(), st.UpdatedAt.UTC(),
	}, nil
}

func scanStove(row scanner) (*inventory.Stove, error) {
	var (
		st                 inventory.Stove
		rawID, status, pay string
		borrower           []byte
	)
	if err := row.Scan(&rawID, &st.OwnerKey, &st.Model, &status, &borrower, &pay, &st.LentAt,
		&st.CreatedAt, &st.UpdatedAt); err != nil {
		return nil, err
	}

	var err error
	if st.ID, err = id.ParseStoveID(rawID); err != nil {
		return nil, err
	}
	st.Status = inventory.StoveStatus(status)
	st.PaymentStatus = inventory.LendingPayment(pay)
	if len(borrower) > 0 && string(borrower) != "null" {
		st.Borrower = new(inventory.Borrower)
		if err := json.Unmarshal(borrower, st.Borrower); err != nil {
			return nil, err
		}
	}
	return &st, nil
}

// ==================== Lending record models ====================

const lendingColumns = `id, owner_key, stove_id, stove_model, customer_id, borrower, payment_status,
	lent_at, returned_at, status`

func lendingArgs(r *inventory.LendingRecord) ([]any, error) {
	borrower, err := json.Marshal(r.Borrower)
	if err != nil {
		return nil, err
	}
	return []any{
		r.ID.String(), r.OwnerKey, r.StoveID.String(), r.StoveModel, r.Borrower.CustomerID.String(),
		borrower, string(r.PaymentStatus), r.LentAt.UTC(), r.ReturnedAt.UTC(), string(r.Status),
	}, nil
}

func scanLending(row scanner) (*inventory.LendingRecord, error) {
	var (
		r                            inventory.LendingRecord
		rawID, rawStove, rawCustomer string
		borrower                     []byte
		pay, status                  string
	)
	if err := row.Scan(&rawID, &r.OwnerKey, &rawStove, &r.StoveModel, &rawCustomer, &borrower, &pay,
		&r.LentAt, &r.ReturnedAt, &status); err != nil {
		return nil, err
	}

	var err error
	if r.ID, err = id.ParseLendingRecordID(rawID); err != nil {
		return nil, err
	}
	if r.StoveID, err = id.ParseStoveID(rawStove); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(borrower, &r.Borrower); err != nil {
		return nil, err
	}
	r.PaymentStatus = inventory.LendingPayment(pay)
	r.Status = inventory.LendingStatus(status)
	return &r, nil
}
