// Package memory provides an in-memory record store. It is the authoritative
// backing store for the shortener core: unbounded, O(1) per operation, and
// safe for concurrent use.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/Rohit-Yadav-47/url-shorter/internal/entity"
)

// Store keeps URL records in a map guarded by a read-write mutex. Records
// are cloned on the way in and out, so callers never alias store state.
type Store struct {
	mu      sync.RWMutex
	records map[string]*entity.URL
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		records: make(map[string]*entity.URL),
	}
}

// Put inserts the record if its short code is absent and fails with
// entity.ErrDuplicateKey otherwise. The existence check and the insert are a
// single atomic step, which makes Put the collision oracle for the service.
func (s *Store) Put(_ context.Context, url *entity.URL) error {
	const op = "storage.memory.Store.Put"

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[url.ShortCode]; ok {
		return fmt.Errorf("%s: %w", op, entity.ErrDuplicateKey)
	}
	s.records[url.ShortCode] = url.Clone()

	return nil
}

// Get returns the record stored under shortCode or entity.ErrURLNotFound.
func (s *Store) Get(_ context.Context, shortCode string) (*entity.URL, error) {
	const op = "storage.memory.Store.Get"

	s.mu.RLock()
	defer s.mu.RUnlock()

	url, ok := s.records[shortCode]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
	}

	return url.Clone(), nil
}

// Touch atomically increments the visit count of the record stored under
// shortCode and returns the updated record.
func (s *Store) Touch(_ context.Context, shortCode string) (*entity.URL, error) {
	const op = "storage.memory.Store.Touch"

	s.mu.Lock()
	defer s.mu.Unlock()

	url, ok := s.records[shortCode]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
	}
	url.VisitCount++

	return url.Clone(), nil
}

// Delete removes the record stored under shortCode.
func (s *Store) Delete(_ context.Context, shortCode string) error {
	const op = "storage.memory.Store.Delete"

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[shortCode]; !ok {
		return fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
	}
	delete(s.records, shortCode)

	return nil
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.records)
}
