package mongo

import (
	"time"

	"github.com/xraph/depot/booking"
	"github.com/xraph/depot/customer"
	"github.com/xraph/depot/history"
	"github.com/xraph/depot/id"
	"github.com/xraph/depot/inventory"
	"github.com/xraph/depot/types"
)

// ==================== Customer models ====================

type customerModel struct {
	ID              string           `bson:"_id"`
	OwnerKey        string           `bson:"owner_key"`
	Name            string           `bson:"name"`
	Phone           string           `bson:"phone"`
	BookID          string           `bson:"book_id,omitempty"`
	Gender          string           `bson:"gender"`
	Category        string           `bson:"category"`
	Subsidy         bool             `bson:"subsidy"`
	Address         string           `bson:"address"`
	Cylinders       int              `bson:"cylinders"`
	CylinderType    string           `bson:"cylinder_type"`
	PaymentStatus   string           `bson:"payment_status"`
	PaymentAmount   int64            `bson:"payment_amount"`
	Currency        string           `bson:"currency"`
	LastPaymentDate *time.Time       `bson:"last_payment_date,omitempty"`
	PaymentHistory  []history.Stored `bson:"payment_history"`
	CreatedAt       time.Time        `bson:"created_at"`
	UpdatedAt       time.Time        `bson:"updated_at"`
}

func toCustomerModel(c *customer.Customer) *customerModel {
	return &customerModel{
		ID:              c.ID.String(),
		OwnerKey:        c.OwnerKey,
		Name:            c.Name,
		Phone:           c.Phone,
		BookID:          c.BookID,
		Gender:          string(c.Gender),
		Category:        string(c.Category),
		Subsidy:         c.Subsidy,
		Address:         c.Address,
		Cylinders:       c.Cylinders,
		CylinderType:    c.CylinderType,
		PaymentStatus:   string(c.Payment.Status),
		PaymentAmount:   c.Payment.Amount.Amount,
		Currency:        c.Payment.Amount.Currency,
		LastPaymentDate: c.Payment.LastPaymentDate,
		PaymentHistory:  history.Encode(c.PaymentHistory),
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

func fromCustomerModel(m *customerModel) (*customer.Customer, error) {
	customerID, err := id.ParseCustomerID(m.ID)
	if err != nil {
		return nil, err
	}
	hist, err := history.Decode(m.PaymentHistory)
	if err != nil {
		return nil, err
	}
	return &customer.Customer{
		Entity:       types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:           customerID,
		OwnerKey:     m.OwnerKey,
		Name:         m.Name,
		Phone:        m.Phone,
		BookID:       m.BookID,
		Gender:       customer.Gender(m.Gender),
		Category:     customer.Category(m.Category),
		Subsidy:      m.Subsidy,
		Address:      m.Address,
		Cylinders:    m.Cylinders,
		CylinderType: m.CylinderType,
		Payment: customer.PaymentSnapshot{
			Status:          booking.PaymentStatus(m.PaymentStatus),
			Amount:          types.Money{Amount: m.PaymentAmount, Currency: m.Currency},
			LastPaymentDate: m.LastPaymentDate,
		},
		PaymentHistory: hist,
	}, nil
}

// ==================== Booking models ====================

type bookingModel struct {
	ID                    string     `bson:"_id"`
	OwnerKey              string     `bson:"owner_key"`
	CustomerID            string     `bson:"customer_id"`
	Cylinders             int        `bson:"cylinders"`
	CylinderType          string     `bson:"cylinder_type"`
	DSCCode               string     `bson:"dsc_code"`
	ServiceType           string     `bson:"service_type"`
	DeliveryDate          time.Time  `bson:"delivery_date"`
	PaymentStatus         string     `bson:"payment_status"`
	PaymentAmount         int64      `bson:"payment_amount"`
	Currency              string     `bson:"currency"`
	LastPaymentDate       *time.Time `bson:"last_payment_date,omitempty"`
	Status                string     `bson:"status"`
	EmptyCylinderReceived bool       `bson:"empty_cylinder_received"`
	StockShortfall        int        `bson:"stock_shortfall,omitempty"`
	CreatedAt             time.Time  `bson:"created_at"`
	UpdatedAt             time.Time  `bson:"updated_at"`
}

func toBookingModel(b *booking.Booking) *bookingModel {
	return &bookingModel{
		ID:                    b.ID.String(),
		OwnerKey:              b.OwnerKey,
		CustomerID:            b.CustomerID.String(),
		Cylinders:             b.Cylinders,
		CylinderType:          b.CylinderType,
		DSCCode:               b.DSCCode,
		ServiceType:           string(b.ServiceType),
		DeliveryDate:          b.DeliveryDate,
		PaymentStatus:         string(b.Payment.Status),
		PaymentAmount:         b.Payment.Amount.Amount,
		Currency:              b.Payment.Amount.Currency,
		LastPaymentDate:       b.Payment.LastPaymentDate,
		Status:                string(b.Status),
		EmptyCylinderReceived: b.EmptyCylinderReceived,
		StockShortfall:        b.StockShortfall,
		CreatedAt:             b.CreatedAt,
		UpdatedAt:             b.UpdatedAt,
	}
}

func fromBookingModel(m *bookingModel) (*booking.Booking, error) {
	bookingID, err := id.ParseBookingID(m.ID)
	if err != nil {
		return nil, err
	}
	customerID, err := id.ParseCustomerID(m.CustomerID)
	if err != nil {
		return nil, err
	}
	return &booking.Booking{
		Entity:       types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:           bookingID,
		OwnerKey:     m.OwnerKey,
		CustomerID:   customerID,
		Cylinders:    m.Cylinders,
		CylinderType: m.CylinderType,
		DSCCode:      m.DSCCode,
		ServiceType:  booking.ServiceType(m.ServiceType),
		DeliveryDate: m.DeliveryDate,
		Payment: booking.Payment{
			Status:          booking.PaymentStatus(m.PaymentStatus),
			Amount:          types.Money{Amount: m.PaymentAmount, Currency: m.Currency},
			LastPaymentDate: m.LastPaymentDate,
		},
		Status:                booking.DeliveryStatus(m.Status),
		EmptyCylinderReceived: m.EmptyCylinderReceived,
		StockShortfall:        m.StockShortfall,
	}, nil
}

// ==================== Cylinder models ====================

type cylinderModel struct {
	ID        string    `bson:"_id"`
	OwnerKey  string    `bson:"owner_key"`
	Type      string    `bson:"type"`
	Status    string    `bson:"status"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// ==================== Stove models ====================

type borrowerModel struct {
	CustomerID string `bson:"customer_id"`
	Name       string `bson:"name"`
	Phone      string `bson:"phone"`
	Address    string `bson:"address"`
}

func toBorrowerModel(b inventory.Borrower) borrowerModel {
	return borrowerModel{
		CustomerID: b.CustomerID.String(),
		Name:       b.Name,
		Phone:      b.Phone,
		Address:    b.Address,
	}
}

func fromBorrowerModel(m borrowerModel) (inventory.Borrower, error) {
	b := inventory.Borrower{Name: m.Name, Phone: m.Phone, Address: m.Address}
	if m.CustomerID != "" {
		customerID, err := id.ParseCustomerID(m.CustomerID)
		if err != nil {
			return b, err
		}
		b.CustomerID = customerID
	}
	return b, nil
}

type stoveModel struct {
	ID            string         `bson:"_id"`
	OwnerKey      string         `bson:"owner_key"`
	Model         string         `bson:"model"`
	Status        string         `bson:"status"`
	Borrower      *borrowerModel `bson:"borrower,omitempty"`
	PaymentStatus string         `bson:"payment_status,omitempty"`
	LentAt        *time.Time     `bson:"lent_at,omitempty"`
	CreatedAt     time.Time      `bson:"created_at"`
	UpdatedAt     time.Time      `bson:"updated_at"`
}

func toStoveModel(s *inventory.Stove) *stoveModel {
	m := &stoveModel{
		ID:            s.ID.String(),
		OwnerKey:      s.OwnerKey,
		Model:         s.Model,
		Status:        string(s.Status),
		PaymentStatus: string(s.PaymentStatus),
		LentAt:        s.LentAt,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
	if s.Borrower != nil {
		b := toBorrowerModel(*s.Borrower)
		m.Borrower = &b
	}
	return m
}

func fromStoveModel(m *stoveModel) (*inventory.Stove, error) {
	stoveID, err := id.ParseStoveID(m.ID)
	if err != nil {
		return nil, err
	}
	s := &inventory.Stove{
		Entity:        types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:            stoveID,
		OwnerKey:      m.OwnerKey,
		Model:         m.Model,
		Status:        inventory.StoveStatus(m.Status),
		PaymentStatus: inventory.LendingPayment(m.PaymentStatus),
		LentAt:        m.LentAt,
	}
	if m.Borrower != nil {
		b, err := fromBorrowerModel(*m.Borrower)
		if err != nil {
			return nil, err
		}
		s.Borrower = &b
	}
	return s, nil
}

// ==================== Lending record models ====================

type lendingModel struct {
	ID            string        `bson:"_id"`
	OwnerKey      string        `bson:"owner_key"`
	StoveID       string        `bson:"stove_id"`
	StoveModel    string        `bson:"stove_model"`
	Borrower      borrowerModel `bson:"borrower"`
	PaymentStatus string        `bson:"payment_status"`
	LentAt        time.Time     `bson:"lent_at"`
	ReturnedAt    time.Time     `bson:"returned_at"`
	Status        string        `bson:"status"`
}

func toLendingModel(r *inventory.LendingRecord) *lendingModel {
	return &lendingModel{
		ID:            r.ID.String(),
		OwnerKey:      r.OwnerKey,
		StoveID:       r.StoveID.String(),
		StoveModel:    r.StoveModel,
		Borrower:      toBorrowerModel(r.Borrower),
		PaymentStatus: string(r.PaymentStatus),
		LentAt:        r.LentAt,
		ReturnedAt:    r.ReturnedAt,
		Status:        string(r.Status),
	}
}

func fromLendingModel(m *lendingModel) (*inventory.LendingRecord, error) {
	recordID, err := id.ParseLendingRecordID(m.ID)
	if err != nil {
		return nil, err
	}
	stoveID, err := id.ParseStoveID(m.StoveID)
	if err != nil {
		return nil, err
	}
	borrower, err := fromBorrowerModel(m.Borrower)
	if err != nil {
		return nil, err
	}
	return &inventory.LendingRecord{
		ID:            recordID,
		OwnerKey:      m.OwnerKey,
		StoveID:       stoveID,
		StoveModel:    m.StoveModel,
		Borrower:      borrower,
		PaymentStatus: inventory.LendingPayment(m.PaymentStatus),
		LentAt:        m.LentAt,
		ReturnedAt:    m.ReturnedAt,
		Status:        inventory.LendingStatus(m.Status),
	}, nil
}
