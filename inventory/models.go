// Package inventory models the physical stock a distributor holds: cylinder
// units, stove units and the records of stoves lent out and returned.
//
// Each unit is its own record. Counts are always derived from the units.
package inventory

import (
	"time"

	"github.com/xraph/depot/id"
	"github.com/xraph/depot/types"
)

// CylinderStatus is whether a cylinder unit is filled.
type CylinderStatus string

const (
	CylinderFull  CylinderStatus = "FULL"
	CylinderEmpty CylinderStatus = "EMPTY"
)

func (s CylinderStatus) Valid() bool {
	return s == CylinderFull || s == CylinderEmpty
}

// Cylinder is one physical cylinder.
type Cylinder struct {
	types.Entity
	ID       id.CylinderID  `json:"id"`
	OwnerKey string         `json:"owner_key"`
	Type     string         `json:"type"`
	Status   CylinderStatus `json:"status"`
}

// StoveStatus is whether a stove is in the shop or with a customer.
type StoveStatus string

const (
	StoveAvailable StoveStatus = "AVAILABLE"
	StoveLent      StoveStatus = "LENT"
)

// Stove models the distributor lends out.
const (
	ModelSingleBurner   = "Single Burner"
	ModelStandardBurner = "Standard 2-Burner"
)

// LendingPayment is whether the borrower paid for a stove lending.
type LendingPayment string

const (
	LendingPaid    LendingPayment = "PAID"
	LendingPending LendingPayment = "PENDING"
)

func (p LendingPayment) Valid() bool {
	return p == LendingPaid || p == LendingPending
}

// Borrower is a snapshot of the customer holding a stove, taken at lending
// time so it survives later edits to the customer.
type Borrower struct {
	CustomerID id.CustomerID `json:"customer_id"`
	Name       string        `json:"name"`
	Phone      string        `json:"phone"`
	Address    string        `json:"address"`
}

// Stove is one physical stove.
type Stove struct {
	types.Entity
	ID       id.StoveID  `json:"id"`
	OwnerKey string      `json:"owner_key"`
	Model    string      `json:"model"`
	Status   StoveStatus `json:"status"`
	// Set only while LENT.
	Borrower      *Borrower      `json:"borrower,omitempty"`
	PaymentStatus LendingPayment `json:"payment_status,omitempty"`
	LentAt        *time.Time     `json:"lent_at,omitempty"`
}

// Clone returns a deep copy.
func (s *Stove) Clone() *Stove {
	out := *s
	if s.Borrower != nil {
		b := *s.Borrower
		out.Borrower = &b
	}
	if s.LentAt != nil {
		t := *s.LentAt
		out.LentAt = &t
	}
	return &out
}

// LendingStatus of a LendingRecord. Records only exist once returned.
type LendingStatus string

const LendingReturned LendingStatus = "RETURNED"

// LendingRecord is the history entry written when a lent stove comes back.
type LendingRecord struct {
	ID            id.LendingRecordID `json:"id"`
	OwnerKey      string             `json:"owner_key"`
	StoveID       id.StoveID         `json:"stove_id"`
	StoveModel    string             `json:"stove_model"`
	Borrower      Borrower           `json:"borrower"`
	PaymentStatus LendingPayment     `json:"payment_status"`
	LentAt        time.Time          `json:"lent_at"`
	ReturnedAt    time.Time          `json:"returned_at"`
	Status        LendingStatus      `json:"status"`
}

// CylinderKey addresses one (type, status) bucket of cylinder units.
type CylinderKey struct {
	Type   string
	Status CylinderStatus
}

// Counts summarizes stock for an owner.
type Counts struct {
	Cylinders       map[string]TypeCount `json:"cylinders"`
	TotalFull       int                  `json:"total_full"`
	TotalEmpty      int                  `json:"total_empty"`
	StovesAvailable int                  `json:"stoves_available"`
	StovesLent      int                  `json:"stoves_lent"`
}

// TypeCount is the FULL/EMPTY split for one cylinder type.
type TypeCount struct {
	Full  int `json:"full"`
	Empty int `json:"empty"`
}

// StoveListOpts filters a stove listing.
type StoveListOpts struct {
	OwnerKey string
	Model    string
	Status   StoveStatus
}

// Matches reports whether s passes every filter in o.
func (o StoveListOpts) Matches(s *Stove) bool {
	if o.OwnerKey != "" && s.OwnerKey != o.OwnerKey {
		return false
	}
	if o.Model != "" && s.Model != o.Model {
		return false
	}
	if o.Status != "" && s.Status != o.Status {
		return false
	}
	return true
}

// LendingListOpts filters a lending record listing. An empty OwnerKey scans
// every owner and is reserved for the retention sweeper.
type LendingListOpts struct {
	OwnerKey       string
	CustomerID     id.CustomerID
	ReturnedBefore time.Time
}

// Matches reports whether r passes every filter in o.
func (o LendingListOpts) Matches(r *LendingRecord) bool {
	if o.OwnerKey != "" && r.OwnerKey != o.OwnerKey {
		return false
	}
	if !o.CustomerID.IsNil() && r.Borrower.CustomerID.String() != o.CustomerID.String() {
		return false
	}
	if !o.ReturnedBefore.IsZero() && r.ReturnedAt.After(o.ReturnedBefore) {
		return false
	}
	return true
}
