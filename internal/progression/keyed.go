package progression

import "sync"

// KeyedMutex serializes work per key. Entries are reference counted and
// dropped once no goroutine holds or waits on them, so the map stays the
// size of the set of active keys.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[Key]*keyedEntry
}

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

// Lock blocks until k is free and returns the matching unlock func.
func (km *KeyedMutex) Lock(k Key) (unlock func()) {
	km.mu.Lock()
	if km.locks == nil {
		km.locks = make(map[Key]*keyedEntry)
	}
	e, ok := km.locks[k]
	if !ok {
		e = &keyedEntry{}
		km.locks[k] = e
	}
	e.refs++
	km.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		km.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(km.locks, k)
		}
		km.mu.Unlock()
	}
}

// Len returns the number of keys currently held or awaited.
func (km *KeyedMutex) Len() int {
	km.mu.Lock()
	defer km.mu.Unlock()
	return len(km.locks)
}
