// ABOUTME: Per-identifier lock table for the file store
// ABOUTME: Turns check-then-write sequences on one identifier into critical sections

package store

import (
	"sort"
	"sync"
)

// keyLock is a mutex shared by every operation touching the same identifier.
type keyLock struct {
	mu   sync.Mutex
	refs int
}

// keyLocks hands out one mutex per identifier. Entries are dropped once no goroutine holds or
// waits on them, so the table only grows with concurrent activity.
type keyLocks struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

func newKeyLocks() *keyLocks {
	return &keyLocks{locks: make(map[string]*keyLock)}
}

// Lock acquires the locks for all given identifiers in sorted order and returns the function
// releasing them. Duplicate identifiers are locked once.
func (k *keyLocks) Lock(ids ...string) (unlock func()) {
	keys := uniqueSorted(ids)
	held := make([]*keyLock, 0, len(keys))
	for _, id := range keys {
		l := k.acquire(id)
		l.mu.Lock()
		held = append(held, l)
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].mu.Unlock()
			k.release(keys[i])
		}
	}
}

func (k *keyLocks) acquire(id string) *keyLock {
	k.mu.Lock()
	defer k.mu.Unlock()

	l, ok := k.locks[id]
	if !ok {
		l = &keyLock{}
		k.locks[id] = l
	}
	l.refs++
	return l
}

func (k *keyLocks) release(id string) {
	k.mu.Lock()
	defer k.mu.Unlock()

	l, ok := k.locks[id]
	if !ok {
		return
	}
	l.refs--
	if l.refs == 0 {
		delete(k.locks, id)
	}
}

// size returns the number of live entries
func (k *keyLocks) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}

func uniqueSorted(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
