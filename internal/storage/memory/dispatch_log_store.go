package memory

import (
	"context"
	"sort"
	"sync"

	"listingwatch/internal/domain"
	"listingwatch/internal/storage"
)

// DispatchLogStore is an in-memory implementation of storage.DispatchLogStore.
type DispatchLogStore struct {
	mu   sync.RWMutex
	data map[string]*domain.DispatchRecord // keyed by dispatch_id
}

// NewDispatchLogStore creates a new in-memory dispatch log store.
func NewDispatchLogStore() *DispatchLogStore {
	return &DispatchLogStore{
		data: make(map[string]*domain.DispatchRecord),
	}
}

// InsertBulk adds multiple dispatch records. Fails entire batch on any duplicate.
func (s *DispatchLogStore) InsertBulk(_ context.Context, records []*domain.DispatchRecord) error {
	if len(records) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	seen := make(map[string]struct{})
	for _, r := range records {
		if r == nil || r.DispatchID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := seen[r.DispatchID]; exists {
			return storage.ErrDuplicateKey
		}
		seen[r.DispatchID] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range records {
		if _, exists := s.data[r.DispatchID]; exists {
			return storage.ErrDuplicateKey
		}
	}

	// Store copies to prevent external mutation
	for _, r := range records {
		recordCopy := *r
		s.data[r.DispatchID] = &recordCopy
	}
	return nil
}

// GetByRunID retrieves all records for a run, ordered by sent_at ASC.
func (s *DispatchLogStore) GetByRunID(_ context.Context, runID string) ([]*domain.DispatchRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.DispatchRecord
	for _, r := range s.data {
		if r.RunID == runID {
			recordCopy := *r
			result = append(result, &recordCopy)
		}
	}

	sortDispatchRecords(result)
	return result, nil
}

// GetBySlug retrieves all records for a listing slug, ordered by sent_at ASC.
func (s *DispatchLogStore) GetBySlug(_ context.Context, slug string) ([]*domain.DispatchRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.DispatchRecord
	for _, r := range s.data {
		if r.Slug == slug {
			recordCopy := *r
			result = append(result, &recordCopy)
		}
	}

	sortDispatchRecords(result)
	return result, nil
}

// GetByTimeRange retrieves records sent within [start, end] (inclusive).
func (s *DispatchLogStore) GetByTimeRange(_ context.Context, start, end int64) ([]*domain.DispatchRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.DispatchRecord
	for _, r := range s.data {
		if r.SentAt >= start && r.SentAt <= end {
			recordCopy := *r
			result = append(result, &recordCopy)
		}
	}

	sortDispatchRecords(result)
	return result, nil
}

// sortDispatchRecords sorts by sent_at ASC with dispatch_id as tie break.
func sortDispatchRecords(records []*domain.DispatchRecord) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].SentAt != records[j].SentAt {
			return records[i].SentAt < records[j].SentAt
		}
		return records[i].DispatchID < records[j].DispatchID
	})
}

// Verify interface compliance at compile time.
var _ storage.DispatchLogStore = (*DispatchLogStore)(nil)
