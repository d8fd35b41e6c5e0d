package depot

import "sync"

// keyedMutex serializes work per key. Entries are reference counted and
// dropped once nobody holds or waits on them.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyedEntry)}
}

// Lock acquires the lock for key and returns its release func.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &keyedEntry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()

		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

func (k *keyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}

func stockKey(owner, cylinderType string, status string) string {
	return "stock|" + owner + "|" + cylinderType + "|" + status
}

func bookingKey(bookingID string) string { return "booking|" + bookingID }

func stoveModelKey(owner, model string) string { return "stove|" + owner + "|" + model }

// ownerCustomersKey guards phone and book number uniqueness for one owner.
func ownerCustomersKey(owner string) string { return "customers|" + owner }

// customerKey guards read-modify-write of one customer record.
func customerKey(customerID string) string { return "customer|" + customerID }
