package service

import "sync"

// bookingLocks 同一個 booking id 的 settle/cancel 依序執行，沒人使用時移除 entry
type bookingLocks struct {
	mu    sync.Mutex
	locks map[string]*bookingLock
}

type bookingLock struct {
	mu   sync.Mutex
	refs int
}

func newBookingLocks() *bookingLocks {
	return &bookingLocks{locks: make(map[string]*bookingLock)}
}

func (l *bookingLocks) lock(id string) (unlock func()) {
	l.mu.Lock()
	entry, ok := l.locks[id]
	if !ok {
		entry = &bookingLock{}
		l.locks[id] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}

func (l *bookingLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
