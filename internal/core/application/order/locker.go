package order

import "sync"

// orderLocker linearizes the load-mutate-store cycles of every single order.
// Entries are dropped once no goroutine holds or waits for them.
type orderLocker struct {
	lock  *sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newOrderLocker() *orderLocker {
	return &orderLocker{
		lock:  &sync.Mutex{},
		locks: make(map[string]*lockEntry),
	}
}

// lockOrder blocks until the lock for the given order is acquired and
// returns the func to release it.
func (l *orderLocker) lockOrder(orderId string) func() {
	l.lock.Lock()
	entry, ok := l.locks[orderId]
	if !ok {
		entry = &lockEntry{}
		l.locks[orderId] = entry
	}
	entry.refs++
	l.lock.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		l.lock.Lock()
		defer l.lock.Unlock()
		entry.refs--
		if entry.refs <= 0 {
			delete(l.locks, orderId)
		}
	}
}

func (l *orderLocker) size() int {
	l.lock.Lock()
	defer l.lock.Unlock()
	return len(l.locks)
}
