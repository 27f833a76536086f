package containers

import (
	"sync"

	"github.com/dolthub/swiss"
)

// InvalidHandle is never issued by a HandleTable.
const InvalidHandle = 0

// HandleTable maps opaque tokens to values. Tokens are issued from a
// monotonically increasing counter and are never reused, so a stale token
// always misses after its entry is removed.
type HandleTable[H ~uint64, V any] struct {
	mu      sync.RWMutex
	next    uint64
	entries *swiss.Map[H, V]
}

func NewHandleTable[H ~uint64, V any](capacity uint32) *HandleTable[H, V] {
	return &HandleTable[H, V]{
		entries: swiss.NewMap[H, V](capacity),
	}
}

// Insert stores v and returns its fresh token.
func (t *HandleTable[H, V]) Insert(v V) H {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.next++
	h := H(t.next)
	t.entries.Put(h, v)
	return h
}

// Get returns the value behind h.
func (t *HandleTable[H, V]) Get(h H) (V, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.entries.Get(h)
}

// Set replaces the value behind an existing token. Returns false for unknown tokens.
func (t *HandleTable[H, V]) Set(h H, v V) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.entries.Has(h) {
		return false
	}
	t.entries.Put(h, v)
	return true
}

// Remove deletes h and returns the value it held.
func (t *HandleTable[H, V]) Remove(h H) (V, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.entries.Get(h)
	if ok {
		t.entries.Delete(h)
	}
	return v, ok
}

func (t *HandleTable[H, V]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.entries.Count()
}

// Each visits every live entry. Iteration order is unspecified and fn must
// not mutate the table.
func (t *HandleTable[H, V]) Each(fn func(h H, v V)) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	t.entries.Iter(func(h H, v V) bool {
		fn(h, v)
		return false
	})
}
