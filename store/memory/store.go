// Package memory is an in-process Store. It is used in tests and for
// single-process deployments that can afford to lose state on restart.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xraph/depot"
	"github.com/xraph/depot/booking"
	"github.com/xraph/depot/customer"
	"github.com/xraph/depot/id"
	"github.com/xraph/depot/inventory"
	"github.com/xraph/depot/store"
	"github.com/xraph/depot/types"
)

var _ store.Store = (*Store)(nil)

type Store struct {
	mu sync.RWMutex

	customers map[string]*customer.Customer
	bookings  map[string]*booking.Booking
	cylinders map[string]*inventory.Cylinder
	stoves    map[string]*inventory.Stove
	lending   map[string]*inventory.LendingRecord
}

func New() *Store {
	return &Store{
		customers: make(map[string]*customer.Customer),
		bookings:  make(map[string]*booking.Booking),
		cylinders: make(map[string]*inventory.Cylinder),
		stoves:    make(map[string]*inventory.Stove),
		lending:   make(map[string]*inventory.LendingRecord),
	}
}

// Customer Store implementation
func (s *Store) CreateCustomer(_ context.Context, c *customer.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.customers[c.ID.String()]; exists {
		return depot.ErrAlreadyExists
	}
	s.customers[c.ID.String()] = c.Clone()
	return nil
}

func (s *Store) GetCustomer(_ context.Context, customerID id.CustomerID) (*customer.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if c, ok := s.customers[customerID.String()]; ok {
		return c.Clone(), nil
	}
	return nil, depot.ErrCustomerNotFound
}

func (s *Store) UpdateCustomer(_ context.Context, c *customer.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.customers[c.ID.String()]; !exists {
		return depot.ErrCustomerNotFound
	}
	s.customers[c.ID.String()] = c.Clone()
	return nil
}

func (s *Store) DeleteCustomer(_ context.Context, customerID id.CustomerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.customers[customerID.String()]; !exists {
		return depot.ErrCustomerNotFound
	}
	delete(s.customers, customerID.String())
	return nil
}

func (s *Store) ListCustomers(_ context.Context, opts customer.ListOpts) ([]*customer.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*customer.Customer, 0)
	for _, c := range s.customers {
		if opts.Matches(c) {
			result = append(result, c.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })

	return paginate(result, opts.Offset, opts.Limit), nil
}

func (s *Store) FindCustomerByPhone(_ context.Context, ownerKey, phone string) (*customer.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.customers {
		if c.OwnerKey == ownerKey && c.Phone == phone {
			return c.Clone(), nil
		}
	}
	return nil, depot.ErrCustomerNotFound
}

func (s *Store) FindCustomerByBookID(_ context.Context, ownerKey, bookID string) (*customer.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.customers {
		if c.OwnerKey == ownerKey && c.Category == customer.CategoryDomestic && c.BookID == bookID {
			return c.Clone(), nil
		}
	}
	return nil, depot.ErrCustomerNotFound
}

// Booking Store implementation
func (s *Store) CreateBooking(_ context.Context, b *booking.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.bookings[b.ID.String()]; exists {
		return depot.ErrAlreadyExists
	}
	s.bookings[b.ID.String()] = b.Clone()
	return nil
}

func (s *Store) GetBooking(_ context.Context, bookingID id.BookingID) (*booking.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if b, ok := s.bookings[bookingID.String()]; ok {
		return b.Clone(), nil
	}
	return nil, depot.ErrBookingNotFound
}

func (s *Store) UpdateBooking(_ context.Context, b *booking.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.bookings[b.ID.String()]; !exists {
		return depot.ErrBookingNotFound
	}
	s.bookings[b.ID.String()] = b.Clone()
	return nil
}

func (s *Store) DeleteBooking(_ context.Context, bookingID id.BookingID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.bookings[bookingID.String()]; !exists {
		return depot.ErrBookingNotFound
	}
	delete(s.bookings, bookingID.String())
	return nil
}

func (s *Store) ListBookings(_ context.Context, opts booking.ListOpts) ([]*booking.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*booking.Booking, 0)
	for _, b := range s.bookings {
		if opts.Matches(b) {
			result = append(result, b.Clone())
		}
	}
	// Newest first
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return paginate(result, opts.Offset, opts.Limit), nil
}

// Cylinder Store implementation
func (s *Store) AddCylinders(_ context.Context, ownerKey string, key inventory.CylinderKey, qty int, at time.Time) ([]id.CylinderID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]id.CylinderID, 0, qty)
	for range qty {
		c := &inventory.Cylinder{
			Entity:   types.NewEntityAt(at),
			ID:       id.NewCylinderID(),
			OwnerKey: ownerKey,
			Type:     key.Type,
			Status:   key.Status,
		}
		s.cylinders[c.ID.String()] = c
		ids = append(ids, c.ID)
	}
	return ids, nil
}

func (s *Store) CountCylinders(_ context.Context, ownerKey string, key inventory.CylinderKey) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.matchingCylinders(ownerKey, key)), nil
}

func (s *Store) RemoveCylinders(_ context.Context, ownerKey string, key inventory.CylinderKey, qty int) ([]id.CylinderID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matches := s.matchingCylinders(ownerKey, key)
	if len(matches) < qty {
		return nil, &depot.InsufficientStockError{
			Type:      key.Type,
			Status:    key.Status,
			Requested: qty,
			Available: len(matches),
		}
	}

	ids := make([]id.CylinderID, 0, qty)
	for _, c := range matches[:qty] {
		delete(s.cylinders, c.ID.String())
		ids = append(ids, c.ID)
	}
	return ids, nil
}

func (s *Store) TransitionCylinders(_ context.Context, ownerKey, cylinderType string, from, to inventory.CylinderStatus, qty int, at time.Time) ([]id.CylinderID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matches := s.matchingCylinders(ownerKey, inventory.CylinderKey{Type: cylinderType, Status: from})
	if len(matches) < qty {
		return nil, &depot.InsufficientStockError{
			Type:      cylinderType,
			Status:    from,
			Requested: qty,
			Available: len(matches),
		}
	}

	ids := make([]id.CylinderID, 0, qty)
	for _, c := range matches[:qty] {
		c.Status = to
		c.Touch(at)
		ids = append(ids, c.ID)
	}
	return ids, nil
}

func (s *Store) CountAllCylinders(_ context.Context, ownerKey string) (map[inventory.CylinderKey]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[inventory.CylinderKey]int)
	for _, c := range s.cylinders {
		if c.OwnerKey == ownerKey {
			counts[inventory.CylinderKey{Type: c.Type, Status: c.Status}]++
		}
	}
	return counts, nil
}

// matchingCylinders returns units in creation order. Callers hold s.mu.
func (s *Store) matchingCylinders(ownerKey string, key inventory.CylinderKey) []*inventory.Cylinder {
	var out []*inventory.Cylinder
	for _, c := range s.cylinders {
		if c.OwnerKey == ownerKey && c.Type == key.Type && c.Status == key.Status {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out
}

// Stove Store implementation
func (s *Store) CreateStove(_ context.Context, st *inventory.Stove) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.stoves[st.ID.String()]; exists {
		return depot.ErrAlreadyExists
	}
	s.stoves[st.ID.String()] = st.Clone()
	return nil
}

func (s *Store) GetStove(_ context.Context, stoveID id.StoveID) (*inventory.Stove, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if st, ok := s.stoves[stoveID.String()]; ok {
		return st.Clone(), nil
	}
	return nil, depot.ErrStoveNotFound
}

func (s *Store) UpdateStove(_ context.Context, st *inventory.Stove) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.stoves[st.ID.String()]; !exists {
		return depot.ErrStoveNotFound
	}
	s.stoves[st.ID.String()] = st.Clone()
	return nil
}

func (s *Store) DeleteStove(_ context.Context, stoveID id.StoveID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.stoves[stoveID.String()]; !exists {
		return depot.ErrStoveNotFound
	}
	delete(s.stoves, stoveID.String())
	return nil
}

func (s *Store) ListStoves(_ context.Context, opts inventory.StoveListOpts) ([]*inventory.Stove, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*inventory.Stove, 0)
	for _, st := range s.stoves {
		if opts.Matches(st) {
			result = append(result, st.Clone())
		}
	}
	// Oldest first, so lending hands out stoves in the order they arrived.
	sort.Slice(result, func(i, j int) bool { return result[i].ID.String() < result[j].ID.String() })
	return result, nil
}

// Lending record Store implementation
func (s *Store) CreateLendingRecord(_ context.Context, r *inventory.LendingRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.lending[r.ID.String()]; exists {
		return depot.ErrAlreadyExists
	}
	cp := *r
	s.lending[r.ID.String()] = &cp
	return nil
}

func (s *Store) ListLendingRecords(_ context.Context, opts inventory.LendingListOpts) ([]*inventory.LendingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*inventory.LendingRecord, 0)
	for _, r := range s.lending {
		if opts.Matches(r) {
			cp := *r
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ReturnedAt.After(result[j].ReturnedAt) })
	return result, nil
}

func (s *Store) DeleteLendingRecord(_ context.Context, recordID id.LendingRecordID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.lending[recordID.String()]; !exists {
		return depot.ErrLendingRecordNotFound
	}
	delete(s.lending, recordID.String())
	return nil
}

// Core methods
func (s *Store) Migrate(_ context.Context) error { return nil }
func (s *Store) Ping(_ context.Context) error    { return nil }
func (s *Store) Close() error                    { return nil }

func paginate[T any](items []T, offset, limit int) []T {
	start := offset
	if start > len(items) {
		start = len(items)
	}
	end := start + limit
	if limit == 0 || end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
