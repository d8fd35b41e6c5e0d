package depot

import (
	"errors"
	"fmt"

	"github.com/xraph/depot/inventory"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound      = errors.New("depot: not found")
	ErrAlreadyExists = errors.New("depot: already exists")
	ErrInvalidInput  = errors.New("depot: invalid input")
	ErrForbidden     = errors.New("depot: forbidden")
	ErrMissingOwner  = errors.New("depot: missing owner key")

	// Customer errors
	ErrCustomerNotFound = errors.New("depot: customer not found")
	ErrDuplicatePhone   = errors.New("depot: phone number already registered")
	ErrDuplicateBookID  = errors.New("depot: book number already registered")
	ErrInvalidBookID    = errors.New("depot: book number must be 16 letters or digits")

	// Booking errors
	ErrBookingNotFound   = errors.New("depot: booking not found")
	ErrBookingLocked     = errors.New("depot: booking is paid and delivered")
	ErrInvalidDSC        = errors.New("depot: DSC code must be exactly 4 digits")
	ErrCapacityExceeded  = errors.New("depot: cylinders exceed customer registration")
	ErrTypeMismatch      = errors.New("depot: cylinder type differs from customer registration")
	ErrInvalidDate       = errors.New("depot: delivery date is in the past")
	ErrInvalidTransition = errors.New("depot: invalid status transition")

	// Inventory errors
	ErrInsufficientStock     = errors.New("depot: insufficient stock")
	ErrNoStock               = errors.New("depot: no stock available")
	ErrInvalidQuantity       = errors.New("depot: invalid quantity")
	ErrCylinderNotFound      = errors.New("depot: cylinder not found")
	ErrStoveNotFound         = errors.New("depot: stove not found")
	ErrStoveNotLent          = errors.New("depot: stove is not lent")
	ErrStoveLent             = errors.New("depot: stove is lent out")
	ErrLendingRecordNotFound = errors.New("depot: lending record not found")

	// Store errors
	ErrStoreClosed     = errors.New("depot: store is closed")
	ErrMigrationFailed = errors.New("depot: migration failed")
)

// ValidationError represents a validation failure with details. Err, when set,
// is the sentinel the failure matches under errors.Is.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("depot: validation failed for %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	if e.Err == nil {
		return ErrInvalidInput
	}
	return e.Err
}

func invalid(field string, sentinel error, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...), Err: sentinel}
}

// LockedError is returned for any update to a Paid and Delivered booking.
type LockedError struct {
	BookingID string
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("depot: booking %s is paid and delivered and can no longer be edited", e.BookingID)
}

func (e *LockedError) Is(target error) bool { return target == ErrBookingLocked }

// InsufficientStockError reports a removal larger than the units on hand.
// Nothing was removed.
type InsufficientStockError struct {
	Type      string
	Status    inventory.CylinderStatus
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("depot: insufficient %s %s stock: requested %d, available %d",
		e.Status, e.Type, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

// NoStockError reports that no stove of a model is free to lend.
type NoStockError struct {
	Model string
}

func (e *NoStockError) Error() string {
	return fmt.Sprintf("No %s available for lending", e.Model)
}

func (e *NoStockError) Is(target error) bool { return target == ErrNoStock }

// MultiError represents multiple errors that occurred.
type MultiError struct {
	Errors []error
}

func (e MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "depot: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("depot: %d errors occurred", len(e.Errors))
}

// Unwrap exposes every collected error to errors.Is and errors.As.
func (e MultiError) Unwrap() []error { return e.Errors }

// Add adds an error to the multi-error.
func (e *MultiError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if there are any errors.
func (e MultiError) HasErrors() bool {
	return len(e.Errors) > 0
}

// ErrOrNil returns e when it holds errors, nil otherwise.
func (e MultiError) ErrOrNil() error {
	if e.HasErrors() {
		return e
	}
	return nil
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrCustomerNotFound) ||
		errors.Is(err, ErrBookingNotFound) ||
		errors.Is(err, ErrCylinderNotFound) ||
		errors.Is(err, ErrStoveNotFound) ||
		errors.Is(err, ErrLendingRecordNotFound)
}

// IsValidation returns true if the error is a validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsConflict returns true if the error is a uniqueness or state conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrAlreadyExists) ||
		errors.Is(err, ErrDuplicatePhone) ||
		errors.Is(err, ErrDuplicateBookID) ||
		errors.Is(err, ErrStoveLent) ||
		errors.Is(err, ErrStoveNotLent)
}
