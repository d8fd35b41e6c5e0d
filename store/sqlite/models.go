package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/xraph/depot/booking"
	"github.com/xraph/depot/customer"
	"github.com/xraph/depot/history"
	"github.com/xraph/depot/id"
	"github.com/xraph/depot/inventory"
	"github.com/xraph/depot/types"
)

// timeLayout is fixed width so TEXT columns sort and compare chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) (time.Time, error) { return time.Parse(timeLayout, s) }

func formatNullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

type scanner interface {
	Scan(dest ...any) error
}

// ==================== Customer rows ====================

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
		boolInt(c.Subsidy), c.Address, c.Cylinders, c.CylinderType, string(c.Payment.Status),
		c.Payment.Amount.Amount, c.Payment.Amount.Currency, formatNullTime(c.Payment.LastPaymentDate),
		string(hist), formatTime(c.CreatedAt), formatTime(c.UpdatedAt),
	}, nil
}

func scanCustomer(row scanner) (*customer.Customer, error) {
	var (
		c                    customer.Customer
		rawID                string
		gender, category     string
		subsidy              int
		payStatus, currency  string
		amount               int64
		lastPaid             sql.NullString
		hist                 string
		createdAt, updatedAt string
	)
	if err := row.Scan(&rawID, &c.OwnerKey, &c.Name, &c.Phone, &c.BookID, &gender, &category,
		&subsidy, &c.Address, &c.Cylinders, &c.CylinderType, &payStatus, &amount, &currency,
		&lastPaid, &hist, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var err error
	if c.ID, err = id.ParseCustomerID(rawID); err != nil {
		return nil, err
	}
	c.Gender = customer.Gender(gender)
	c.Category = customer.Category(category)
	c.Subsidy = subsidy != 0
	c.Payment.Status = booking.PaymentStatus(payStatus)
	c.Payment.Amount = types.Money{Amount: amount, Currency: currency}
	if c.Payment.LastPaymentDate, err = parseNullTime(lastPaid); err != nil {
		return nil, err
	}

	var stored []history.Stored
	if err := json.Unmarshal([]byte(hist), &stored); err != nil {
		return nil, fmt.Errorf("payment history of %s: %w", rawID, err)
	}
	if c.PaymentHistory, err = history.Decode(stored); err != nil {
		return nil, err
	}

	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// ==================== Booking rows ====================

const bookingColumns = `id, owner_key, customer_id, cylinders, cylinder_type, dsc_code, service_type,
	delivery_date, payment_status, payment_amount, currency, last_payment_date, status,
	empty_cylinder_received, stock_shortfall, created_at, updated_at`

func bookingArgs(b *booking.Booking) []any {
	return []any{
		b.ID.String(), b.OwnerKey, b.CustomerID.String(), b.Cylinders, b.CylinderType, b.DSCCode,
		string(b.ServiceType), formatTime(b.DeliveryDate), string(b.Payment.Status),
		b.Payment.Amount.Amount, b.Payment.Amount.Currency, formatNullTime(b.Payment.LastPaymentDate),
		string(b.Status), boolInt(b.EmptyCylinderReceived), b.StockShortfall,
		formatTime(b.CreatedAt), formatTime(b.UpdatedAt),
	}
}

func scanBooking(row scanner) (*booking.Booking, error) {
	var (
		b                         booking.Booking
		rawID, rawCustomer        string
		service, delivery, status string
		payStatus, currency       string
		amount                    int64
		lastPaid                  sql.NullString
		empty                     int
		createdAt, updatedAt      string
	)
	if err := row.Scan(&rawID, &b.OwnerKey, &rawCustomer, &b.Cylinders, &b.CylinderType, &b.DSCCode,
		&service, &delivery, &payStatus, &amount, &currency, &lastPaid, &status, &empty,
		&b.StockShortfall, &createdAt, &updatedAt); err != nil {
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
	if b.DeliveryDate, err = parseTime(delivery); err != nil {
		return nil, err
	}
	b.Payment.Status = booking.PaymentStatus(payStatus)
	b.Payment.Amount = types.Money{Amount: amount, Currency: currency}
	if b.Payment.LastPaymentDate, err = parseNullTime(lastPaid); err != nil {
		return nil, err
	}
	b.Status = booking.DeliveryStatus(status)
	b.EmptyCylinderReceived = empty != 0
	if b.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if b.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

// ==================== Stove rows ====================

const stoveColumns = `id, owner_key, model, status, borrower, payment_status, lent_at, created_at, updated_at`

func stoveArgs(st *inventory.Stove) ([]any, error) {
	var borrower sql.NullString
	if st.Borrower != nil {
		raw, err := json.Marshal(st.Borrower)
		if err != nil {
			return nil, err
		}
		borrower = sql.NullString{String: string(raw), Valid: true}
	}
	return []any{
		st.ID.String(), st.OwnerKey, st.Model, string(st.Status), borrower,
		string(st.PaymentStatus), formatNullTime(st.LentAt), formatTime(st.CreatedAt), formatTime(st.UpdatedAt),
	}, nil
}

func scanStove(row scanner) (*inventory.Stove, error) {
	var (
		st                   inventory.Stove
		rawID, status, pay   string
		borrower, lentAt     sql.NullString
		createdAt, updatedAt string
	)
	if err := row.Scan(&rawID, &st.OwnerKey, &st.Model, &status, &borrower, &pay, &lentAt,
		&createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var err error
	if st.ID, err = id.ParseStoveID(rawID); err != nil {
		return nil, err
	}
	st.Status = inventory.StoveStatus(status)
	st.PaymentStatus = inventory.LendingPayment(pay)
	if borrower.Valid && strings.TrimSpace(borrower.String) != "" {
		st.Borrower = new(inventory.Borrower)
		if err := json.Unmarshal([]byte(borrower.String), st.Borrower); err != nil {
			return nil, err
		}
	}
	if st.LentAt, err = parseNullTime(lentAt); err != nil {
		return nil, err
	}
	if st.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if st.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &st, nil
}

// ==================== Lending record rows ====================

const lendingColumns = `id, owner_key, stove_id, stove_model, customer_id, borrower, payment_status,
	lent_at, returned_at, status`

func lendingArgs(r *inventory.LendingRecord) ([]any, error) {
	borrower, err := json.Marshal(r.Borrower)
	if err != nil {
		return nil, err
	}
	return []any{
		r.ID.String(), r.OwnerKey, r.StoveID.String(), r.StoveModel, r.Borrower.CustomerID.String(),
		string(borrower), string(r.PaymentStatus), formatTime(r.LentAt), formatTime(r.ReturnedAt),
		string(r.Status),
	}, nil
}

func scanLending(row scanner) (*inventory.LendingRecord, error) {
	var (
		r                                 inventory.LendingRecord
		rawID, rawStove, rawCustomer      string
		borrower, pay, lentAt, returnedAt string
		status                            string
	)
	if err := row.Scan(&rawID, &r.OwnerKey, &rawStove, &r.StoveModel, &rawCustomer, &borrower, &pay,
		&lentAt, &returnedAt, &status); err != nil {
		return nil, err
	}

	var err error
	if r.ID, err = id.ParseLendingRecordID(rawID); err != nil {
		return nil, err
	}
	if r.StoveID, err = id.ParseStoveID(rawStove); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(borrower), &r.Borrower); err != nil {
		return nil, err
	}
	r.PaymentStatus = inventory.LendingPayment(pay)
	if r.LentAt, err = parseTime(lentAt); err != nil {
		return nil, err
	}
	if r.ReturnedAt, err = parseTime(returnedAt); err != nil {
		return nil, err
	}
	r.Status = inventory.LendingStatus(status)
	return &r, nil
}
