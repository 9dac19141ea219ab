package storage

import (
	"context"

	"listingwatch/internal/domain"
)

// NotifiedStore provides access to the persisted set of notified listings.
// The set is overwritten wholesale on each save (last writer wins).
type NotifiedStore interface {
	// Load retrieves all persisted records. A missing backing blob is
	// first-run state and yields an empty set, not an error.
	Load(ctx context.Context) ([]*domain.NotifiedRecord, error)

	// Save replaces the persisted set with the given records.
	Save(ctx context.Context, records []*domain.NotifiedRecord) error
}

// DispatchLogStore provides access to dispatch_log storage.
type DispatchLogStore interface {
	// InsertBulk adds multiple dispatch records. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, records []*domain.DispatchRecord) error

	// GetByRunID retrieves all records for a run, ordered by sent_at ASC.
	GetByRunID(ctx context.Context, runID string) ([]*domain.DispatchRecord, error)

	// GetBySlug retrieves all records for a listing slug, ordered by sent_at ASC.
	GetBySlug(ctx context.Context, slug string) ([]*domain.DispatchRecord, error)

	// GetByTimeRange retrieves records sent within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.DispatchRecord, error)
}
