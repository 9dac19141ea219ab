// Package blob implements storage over a single JSON blob in a local
// container directory.
package blob

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"listingwatch/internal/domain"
	"listingwatch/internal/storage"
)

// NotifiedStore implements storage.NotifiedStore using one JSON file.
// The file holds the full record set and is replaced atomically on save.
type NotifiedStore struct {
	dir  string // container directory
	name string // blob file name inside the container
}

// NewNotifiedStore creates a new blob-backed notified store.
func NewNotifiedStore(dir, name string) *NotifiedStore {
	return &NotifiedStore{dir: dir, name: name}
}

// Compile-time interface check.
var _ storage.NotifiedStore = (*NotifiedStore)(nil)

// blobRecord is the on-disk shape of a notified record.
type blobRecord struct {
	Slug       string `json:"slug"`
	DateAdded  int64  `json:"date_added"`
	NotifiedAt int64  `json:"notified_at"`
}

// Load retrieves all persisted records. A missing or empty blob yields an
// empty set.
func (s *NotifiedStore) Load(_ context.Context) ([]*domain.NotifiedRecord, error) {
	data, err := os.ReadFile(s.path())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: no blob yet
			return nil, nil
		}
		return nil, fmt.Errorf("read notified blob: %w", err)
	}

	if len(data) == 0 {
		return nil, nil
	}

	var raw []blobRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode notified blob: %w", err)
	}

	records := make([]*domain.NotifiedRecord, 0, len(raw))
	for _, r := range raw {
		records = append(records, &domain.NotifiedRecord{
			Slug:       r.Slug,
			DateAdded:  r.DateAdded,
			NotifiedAt: r.NotifiedAt,
		})
	}
	return records, nil
}

// Save replaces the blob with the given records. The write goes to a temp
// file first and is moved into place with a rename.
func (s *NotifiedStore) Save(_ context.Context, records []*domain.NotifiedRecord) error {
	raw := make([]blobRecord, 0, len(records))
	for _, r := range records {
		if r == nil || r.Slug == "" {
			return storage.ErrInvalidInput
		}
		raw = append(raw, blobRecord{
			Slug:       r.Slug,
			DateAdded:  r.DateAdded,
			NotifiedAt: r.NotifiedAt,
		})
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("encode notified blob: %w", err)
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create container dir: %w", err)
	}

	tmp := s.path() + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write notified blob: %w", err)
	}
	if err := os.Rename(tmp, s.path()); err != nil {
		return fmt.Errorf("replace notified blob: %w", err)
	}

	return nil
}

func (s *NotifiedStore) path() string {
	return filepath.Join(s.dir, s.name)
}
