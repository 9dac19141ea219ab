package clickhouse

import (
	"context"
	"fmt"

	"listingwatch/internal/domain"
	"listingwatch/internal/storage"
)

// DispatchLogStore implements storage.DispatchLogStore using ClickHouse.
type DispatchLogStore struct {
	conn *Conn
}

// NewDispatchLogStore creates a new DispatchLogStore.
func NewDispatchLogStore(conn *Conn) *DispatchLogStore {
	return &DispatchLogStore{conn: conn}
}

// Compile-time interface check.
var _ storage.DispatchLogStore = (*DispatchLogStore)(nil)

const dispatchLogColumns = `
	dispatch_id, run_id, slug, symbol, channel, recipient, status, error, price_usd, sent_at
`

// InsertBulk adds multiple dispatch records. Fails entire batch on any duplicate.
func (s *DispatchLogStore) InsertBulk(ctx context.Context, records []*domain.DispatchRecord) error {
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

	// Check for duplicates against existing rows. MergeTree does not enforce
	// uniqueness at insert time.
	for _, r := range records {
		exists, err := s.exists(ctx, r.DispatchID)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO dispatch_log (`+dispatchLogColumns+`)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range records {
		err = batch.Append(
			r.DispatchID,
			r.RunID,
			r.Slug,
			r.Symbol,
			string(r.Channel),
			r.Recipient,
			string(r.Status),
			r.Error,
			r.PriceUSD,
			r.SentAt,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByRunID retrieves all records for a run, ordered by sent_at ASC.
func (s *DispatchLogStore) GetByRunID(ctx context.Context, runID string) ([]*domain.DispatchRecord, error) {
	query := `
		SELECT ` + dispatchLogColumns + `
		FROM dispatch_log
		WHERE run_id = ?
		ORDER BY sent_at ASC, dispatch_id ASC
	`

	rows, err := s.conn.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("get dispatches by run id: %w", err)
	}
	defer rows.Close()

	return scanDispatchRecords(rows)
}

// GetBySlug retrieves all records for a listing slug, ordered by sent_at ASC.
func (s *DispatchLogStore) GetBySlug(ctx context.Context, slug string) ([]*domain.DispatchRecord, error) {
	query := `
		SELECT ` + dispatchLogColumns + `
		FROM dispatch_log
		WHERE slug = ?
		ORDER BY sent_at ASC, dispatch_id ASC
	`

	rows, err := s.conn.Query(ctx, query, slug)
	if err != nil {
		return nil, fmt.Errorf("get dispatches by slug: %w", err)
	}
	defer rows.Close()

	return scanDispatchRecords(rows)
}

// GetByTimeRange retrieves records sent within [start, end] (inclusive).
func (s *DispatchLogStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.DispatchRecord, error) {
	query := `
		SELECT ` + dispatchLogColumns + `
		FROM dispatch_log
		WHERE sent_at >= ? AND sent_at <= ?
		ORDER BY sent_at ASC, dispatch_id ASC
	`

	rows, err := s.conn.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("get dispatches by time range: %w", err)
	}
	defer rows.Close()

	return scanDispatchRecords(rows)
}

// exists checks if a record with the given dispatch_id exists.
func (s *DispatchLogStore) exists(ctx context.Context, dispatchID string) (bool, error) {
	query := `SELECT count(*) FROM dispatch_log WHERE dispatch_id = ?`

	var count uint64
	err := s.conn.QueryRow(ctx, query, dispatchID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Rows interface for scanning
type chRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

// scanDispatchRecords scans multiple rows into a slice.
func scanDispatchRecords(rows chRows) ([]*domain.DispatchRecord, error) {
	var records []*domain.DispatchRecord

	for rows.Next() {
		var r domain.DispatchRecord
		var channelStr, statusStr string

		err := rows.Scan(
			&r.DispatchID,
			&r.RunID,
			&r.Slug,
			&r.Symbol,
			&channelStr,
			&r.Recipient,
			&statusStr,
			&r.Error,
			&r.PriceUSD,
			&r.SentAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan dispatch row: %w", err)
		}

		r.Channel = domain.Channel(channelStr)
		r.Status = domain.DispatchStatus(statusStr)
		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dispatch rows: %w", err)
	}

	return records, nil
}
