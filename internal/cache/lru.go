// Package cache provides a fixed-capacity in-memory LRU cache.
//
// All operations run in O(1): a map indexes entries, and a doubly linked
// list with sentinel head and tail nodes keeps them in recency order, most
// recently used first. The cache is safe for concurrent use.
package cache

import (
	"errors"
	"fmt"
	"sync"
)

// ErrInvalidCapacity is returned by New when capacity is less than one.
var ErrInvalidCapacity = errors.New("invalid cache capacity")

type node[K comparable, V any] struct {
	key   K
	value V
	prev  *node[K, V]
	next  *node[K, V]
}

// Option configures an LRU.
type Option[K comparable, V any] func(*LRU[K, V])

// WithOnEvict registers a hook invoked with every entry the cache evicts.
// The hook runs outside the cache lock, so it may call back into the cache.
func WithOnEvict[K comparable, V any](hook func(key K, value V)) Option[K, V] {
	return func(c *LRU[K, V]) {
		c.onEvict = hook
	}
}

// LRU is a least-recently-used cache with a fixed capacity.
type LRU[K comparable, V any] struct {
	mu       sync.Mutex
	capacity int
	items    map[K]*node[K, V]
	head     *node[K, V]
	tail     *node[K, V]
	onEvict  func(key K, value V)
}

// New returns an LRU holding at most capacity entries.
func New[K comparable, V any](capacity int, opts ...Option[K, V]) (*LRU[K, V], error) {
	if capacity < 1 {
		return nil, fmt.Errorf("cache: %w: got %d", ErrInvalidCapacity, capacity)
	}

	c := &LRU[K, V]{
		capacity: capacity,
		items:    make(map[K]*node[K, V], capacity),
		head:     &node[K, V]{},
		tail:     &node[K, V]{},
	}
	c.head.next = c.tail
	c.tail.prev = c.head

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Get returns the value cached under key and marks it most recently used.
// A miss has no side effects.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.moveToFront(n)

	return n.value, true
}

// Put caches value under key. An existing key is updated in place and marked
// most recently used. Inserting into a full cache first evicts the least
// recently used entry.
func (c *LRU[K, V]) Put(key K, value V) {
	c.mu.Lock()

	if n, ok := c.items[key]; ok {
		n.value = value
		c.moveToFront(n)
		c.mu.Unlock()
		return
	}

	var (
		evictedKey   K
		evictedValue V
		evicted      bool
	)
	if len(c.items) >= c.capacity {
		evictedKey, evictedValue, evicted = c.evict()
	}

	n := &node[K, V]{key: key, value: value}
	c.items[key] = n
	c.pushFront(n)
	c.mu.Unlock()

	if evicted && c.onEvict != nil {
		c.onEvict(evictedKey, evictedValue)
	}
}

// Evict removes and returns the least recently used entry. It reports false
// when the cache is empty.
func (c *LRU[K, V]) Evict() (K, V, bool) {
	c.mu.Lock()
	key, value, ok := c.evict()
	c.mu.Unlock()

	if ok && c.onEvict != nil {
		c.onEvict(key, value)
	}

	return key, value, ok
}

// Remove drops the entry cached under key, reporting whether it was present.
func (c *LRU[K, V]) Remove(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.items[key]
	if !ok {
		return false
	}
	c.unlink(n)
	delete(c.items, key)

	return true
}

// Len returns the number of cached entries.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.items)
}

// Cap returns the cache capacity.
func (c *LRU[K, V]) Cap() int {
	return c.capacity
}

// evict unlinks the entry in front of the tail sentinel. Callers must hold mu.
func (c *LRU[K, V]) evict() (K, V, bool) {
	lru := c.tail.prev
	if lru == c.head {
		var (
			zeroK K
			zeroV V
		)
		return zeroK, zeroV, false
	}

	c.unlink(lru)
	delete(c.items, lru.key)

	return lru.key, lru.value, true
}

func (c *LRU[K, V]) pushFront(n *node[K, V]) {
	n.prev = c.head
	n.next = c.head.next
	c.head.next.prev = n
	c.head.next = n
}

func (c *LRU[K, V]) unlink(n *node[K, V]) {
	n.prev.next = n.next
	n.next.prev = n.prev
	n.prev = nil
	n.next = nil
}

func (c *LRU[K, V]) moveToFront(n *node[K, V]) {
	if c.head.next == n {
		return
	}
	c.unlink(n)
	c.pushFront(n)
}
