package memory

import (
	"context"
	"sync"

	"listingwatch/internal/domain"
	"listingwatch/internal/storage"
)

// NotifiedStore is an in-memory implementation of storage.NotifiedStore.
type NotifiedStore struct {
	mu      sync.RWMutex
	records []*domain.NotifiedRecord
}

// NewNotifiedStore creates a new in-memory notified store.
func NewNotifiedStore() *NotifiedStore {
	return &NotifiedStore{}
}

// Load retrieves all persisted records.
func (s *NotifiedStore) Load(_ context.Context) ([]*domain.NotifiedRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Return copies
	result := make([]*domain.NotifiedRecord, 0, len(s.records))
	for _, r := range s.records {
		recordCopy := *r
		result = append(result, &recordCopy)
	}
	return result, nil
}

// Save replaces the persisted set with the given records.
func (s *NotifiedStore) Save(_ context.Context, records []*domain.NotifiedRecord) error {
	for _, r := range records {
		if r == nil || r.Slug == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Store copies to prevent external mutation
	stored := make([]*domain.NotifiedRecord, 0, len(records))
	for _, r := range records {
		recordCopy := *r
		stored = append(stored, &recordCopy)
	}
	s.records = stored
	return nil
}

// Verify interface compliance at compile time.
var _ storage.NotifiedStore = (*NotifiedStore)(nil)
