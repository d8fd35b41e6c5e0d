// Package changefeed fans record changes out to in-process subscribers, one
// channel per subscription, keyed by collection.
package changefeed

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Collection names a kind of stored record.
type Collection string

const (
	Customers      Collection = "customers"
	Bookings       Collection = "bookings"
	Cylinders      Collection = "cylinders"
	Stoves         Collection = "stoves"
	LendingRecords Collection = "lending_records"
)

// Collections lists every collection the engine publishes to.
var Collections = []Collection{Customers, Bookings, Cylinders, Stoves, LendingRecords}

// Op is the kind of change.
type Op string

const (
	OpCreated Op = "created"
	OpUpdated Op = "updated"
	OpDeleted Op = "deleted"
)

// Change is one record change.
type Change struct {
	ID         uuid.UUID  `json:"id"`
	Collection Collection `json:"collection"`
	Op         Op         `json:"op"`
	RecordID   string     `json:"record_id"`
	OwnerKey   string     `json:"owner_key"`
	At         time.Time  `json:"at"`
}

// NewChange stamps a change with a fresh ID and the given time.
func NewChange(c Collection, op Op, recordID, ownerKey string, at time.Time) Change {
	return Change{
		ID:         uuid.New(),
		Collection: c,
		Op:         op,
		RecordID:   recordID,
		OwnerKey:   ownerKey,
		At:         at.UTC(),
	}
}

// DefaultBuffer is the per-subscription channel capacity.
const DefaultBuffer = 64

type subscriber struct {
	ch chan Change
}

// Feed is an in-process change feed. Publish never blocks: a subscriber whose
// buffer is full misses the change and the miss is counted in Dropped.
type Feed struct {
	mu      sync.RWMutex
	subs    map[Collection]map[*subscriber]struct{}
	buffer  int
	dropped atomic.Int64
	closed  bool
}

// New creates a feed whose subscriptions buffer up to buffer changes.
func New(buffer int) *Feed {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Feed{
		subs:   make(map[Collection]map[*subscriber]struct{}),
		buffer: buffer,
	}
}

// Subscribe returns a channel receiving every change to collection and a
// cancel func that closes it. Cancel is safe to call more than once.
func (f *Feed) Subscribe(collection Collection) (<-chan Change, func()) {
	s := &subscriber{ch: make(chan Change, f.buffer)}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		close(s.ch)
		return s.ch, func() {}
	}
	if f.subs[collection] == nil {
		f.subs[collection] = make(map[*subscriber]struct{})
	}
	f.subs[collection][s] = struct{}{}
	f.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			if _, ok := f.subs[collection][s]; ok {
				delete(f.subs[collection], s)
				close(s.ch)
			}
		})
	}
	return s.ch, cancel
}

// Publish delivers c to every current subscriber of c.Collection.
func (f *Feed) Publish(c Change) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for s := range f.subs[c.Collection] {
		select {
		case s.ch <- c:
		default:
			f.dropped.Add(1)
		}
	}
}

// Dropped reports how many deliveries were skipped because a subscriber was
// not keeping up.
func (f *Feed) Dropped() int64 { return f.dropped.Load() }

// Close closes every subscription. Later Subscribe calls get a closed channel.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	f.closed = true
	for col, subs := range f.subs {
		for s := range subs {
			close(s.ch)
		}
		delete(f.subs, col)
	}
}
