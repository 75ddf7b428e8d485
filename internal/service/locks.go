package service

import (
	"sort"
	"sync"
)

// KeyedMutex serializes work per string key.  The scheduler keys on room
// numbers, the ledger on showtime IDs and user+film pairs, so the
// read-aggregate-then-write sequences cannot interleave for the same
// resource.  Lock acquires all keys in sorted order, which rules out
// deadlock between callers grabbing the same keys in different orders.
//
// Per-key mutexes are retained for the process lifetime; the key space
// (rooms, showtimes, user+film pairs) is small enough that this is not a
// leak worth chasing.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewKeyedMutex returns an empty KeyedMutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*sync.Mutex)}
}

func (m *KeyedMutex) get(key string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[key]
	if !ok {
		l = &sync.Mutex{}
		m.locks[key] = l
	}
	return l
}

// Lock acquires every given key and returns the function releasing them.
// Duplicate keys are collapsed so a caller cannot self-deadlock.
func (m *KeyedMutex) Lock(keys ...string) (unlock func()) {
	uniq := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			uniq = append(uniq, k)
		}
	}
	sort.Strings(uniq)
	held := make([]*sync.Mutex, 0, len(uniq))
	for _, k := range uniq {
		l := m.get(k)
		l.Lock()
		held = append(held, l)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}
