package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"listingwatch/internal/domain"
	"listingwatch/internal/storage"
)

// NotifiedStore implements storage.NotifiedStore using PostgreSQL.
type NotifiedStore struct {
	pool *Pool
}

// NewNotifiedStore creates a new NotifiedStore.
func NewNotifiedStore(pool *Pool) *NotifiedStore {
	return &NotifiedStore{pool: pool}
}

// Compile-time interface check.
var _ storage.NotifiedStore = (*NotifiedStore)(nil)

// Load retrieves all persisted records. An empty table is first-run state.
func (s *NotifiedStore) Load(ctx context.Context) ([]*domain.NotifiedRecord, error) {
	query := `
		SELECT slug, date_added, notified_at
		FROM notified_records
		ORDER BY notified_at ASC, slug ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("load notified records: %w", err)
	}
	defer rows.Close()

	return scanNotifiedRecords(rows)
}

// Save replaces the persisted set with the given records in one transaction.
func (s *NotifiedStore) Save(ctx context.Context, records []*domain.NotifiedRecord) error {
	for _, r := range records {
		if r == nil || r.Slug == "" {
			return storage.ErrInvalidInput
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM notified_records`); err != nil {
		return fmt.Errorf("clear notified records: %w", err)
	}

	query := `
		INSERT INTO notified_records (slug, date_added, notified_at)
		VALUES ($1, $2, $3)
	`

	for _, r := range records {
		if _, err := tx.Exec(ctx, query, r.Slug, r.DateAdded, r.NotifiedAt); err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert notified record: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// scanNotifiedRecords scans multiple rows into a slice of NotifiedRecord.
func scanNotifiedRecords(rows pgx.Rows) ([]*domain.NotifiedRecord, error) {
	var records []*domain.NotifiedRecord

	for rows.Next() {
		var r domain.NotifiedRecord

		err := rows.Scan(
			&r.Slug,
			&r.DateAdded,
			&r.NotifiedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan notified record row: %w", err)
		}

		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notified record rows: %w", err)
	}

	return records, nil
}
