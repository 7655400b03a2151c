// Package hashmap provides a generic separate-chaining hash map with a fixed
// bucket count and a pluggable hash functor.
//
// The bucket count is chosen at construction and never changes: a crowded map
// degrades into longer chains instead of rehashing. Iteration order follows
// the buckets and is unspecified; callers needing a stable order keep a side
// index (attr.Scope does).
package hashmap

import (
	"fmt"

	"github.com/l1jgo/worldtree/internal/core/errs"
)

// DefaultBuckets is the bucket count used when none is given.
const DefaultBuckets = 13

// Entry is one key/value pair. An *Entry stays valid until its key is removed.
type Entry[K comparable, V any] struct {
	Key   K
	Value V
	next  *Entry[K, V]
}

// Map is a key/value store with separate chaining.
// Not safe for concurrent use.
type Map[K comparable, V any] struct {
	buckets []*Entry[K, V]
	size    int
	hash    Hasher[K]
}

// New creates a map. buckets <= 0 selects DefaultBuckets, a nil hasher selects
// DefaultHasher.
func New[K comparable, V any](buckets int, hash Hasher[K]) *Map[K, V] {
	if buckets <= 0 {
		buckets = DefaultBuckets
	}
	if hash == nil {
		hash = DefaultHasher[K]()
	}
	return &Map[K, V]{
		buckets: make([]*Entry[K, V], buckets),
		hash:    hash,
	}
}

func (m *Map[K, V]) index(key K) int {
	return int(m.hash(key) % uint32(len(m.buckets)))
}

// Insert adds key with value unless the key exists. It returns the entry for
// key and whether it was inserted; an existing value is never overwritten.
func (m *Map[K, V]) Insert(key K, value V) (*Entry[K, V], bool) {
	idx := m.index(key)
	var tail *Entry[K, V]
	for e := m.buckets[idx]; e != nil; e = e.next {
		if e.Key == key {
			return e, false
		}
		tail = e
	}
	e := &Entry[K, V]{Key: key, Value: value}
	if tail == nil {
		m.buckets[idx] = e
	} else {
		tail.next = e
	}
	m.size++
	return e, true
}

// Find returns the entry for key.
func (m *Map[K, V]) Find(key K) (*Entry[K, V], bool) {
	for e := m.buckets[m.index(key)]; e != nil; e = e.next {
		if e.Key == key {
			return e, true
		}
	}
	return nil, false
}

// ContainsKey reports whether key is present.
func (m *Map[K, V]) ContainsKey(key K) bool {
	_, ok := m.Find(key)
	return ok
}

// At returns a pointer to the value for key, inserting a zero value on miss.
func (m *Map[K, V]) At(key K) *V {
	var zero V
	e, _ := m.Insert(key, zero)
	return &e.Value
}

// Get returns the value for key without inserting.
func (m *Map[K, V]) Get(key K) (V, error) {
	if e, ok := m.Find(key); ok {
		return e.Value, nil
	}
	var zero V
	return zero, fmt.Errorf("%w: key %v", errs.ErrNotFound, key)
}

// Remove deletes key. It reports whether the key was present.
func (m *Map[K, V]) Remove(key K) bool {
	idx := m.index(key)
	var prev *Entry[K, V]
	for e := m.buckets[idx]; e != nil; e = e.next {
		if e.Key == key {
			if prev == nil {
				m.buckets[idx] = e.next
			} else {
				prev.next = e.next
			}
			e.next = nil
			m.size--
			return true
		}
		prev = e
	}
	return false
}

// Len returns the number of entries.
func (m *Map[K, V]) Len() int { return m.size }

// Buckets returns the fixed bucket count.
func (m *Map[K, V]) Buckets() int { return len(m.buckets) }

// Clear removes every entry, keeping the bucket count.
func (m *Map[K, V]) Clear() {
	for i := range m.buckets {
		m.buckets[i] = nil
	}
	m.size = 0
}

// Each visits entries in bucket order until fn returns false.
func (m *Map[K, V]) Each(fn func(*Entry[K, V]) bool) {
	for _, head := range m.buckets {
		for e := head; e != nil; e = e.next {
			if !fn(e) {
				return
			}
		}
	}
}

// Keys returns the keys in bucket order.
func (m *Map[K, V]) Keys() []K {
	keys := make([]K, 0, m.size)
	m.Each(func(e *Entry[K, V]) bool {
		keys = append(keys, e.Key)
		return true
	})
	return keys
}

// Equal reports whether a and b hold the same keys with eq-equal values.
func Equal[K comparable, V any](a, b *Map[K, V], eq func(x, y V) bool) bool {
	if a.Len() != b.Len() {
		return false
	}
	equal := true
	a.Each(func(e *Entry[K, V]) bool {
		other, ok := b.Find(e.Key)
		if !ok || !eq(e.Value, other.Value) {
			equal = false
		}
		return equal
	})
	return equal
}
