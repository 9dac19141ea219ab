// Package screening applies the freshness window and the notified-set
// deduplication policy to fetched listings.
package screening

import (
	"sort"

	"listingwatch/internal/domain"
)

// Window constants in milliseconds.
const (
	FreshnessWindowMs int64 = 7200000  // 120 minutes
	RetentionWindowMs int64 = 12000000 // 200 minutes
)

// Config holds screening window parameters.
type Config struct {
	FreshnessWindow int64 // ms; listings added before now-window are ignored
	RetentionWindow int64 // ms; notified records older than this are pruned on merge
}

// DefaultConfig returns the default window configuration.
func DefaultConfig() Config {
	return Config{
		FreshnessWindow: FreshnessWindowMs,
		RetentionWindow: RetentionWindowMs,
	}
}

// Screener decides which fetched listings get dispatched and which
// notified records survive the next save.
type Screener struct {
	config Config
}

// NewScreener creates a Screener. Non-positive windows fall back to defaults.
func NewScreener(config Config) *Screener {
	if config.FreshnessWindow <= 0 {
		config.FreshnessWindow = FreshnessWindowMs
	}
	if config.RetentionWindow <= 0 {
		config.RetentionWindow = RetentionWindowMs
	}
	return &Screener{config: config}
}

// Screen returns listings added within the freshness window whose slug is
// not in the notified set. Output is ordered DateAdded descending, slug
// ascending on ties, so dispatch order is deterministic.
func (s *Screener) Screen(listings []*domain.Listing, records []*domain.NotifiedRecord, now int64) []*domain.Listing {
	notified := make(map[string]bool, len(records))
	for _, r := range records {
		if r == nil {
			continue
		}
		notified[r.Slug] = true
	}

	cutoff := now - s.config.FreshnessWindow

	var fresh []*domain.Listing
	seen := make(map[string]bool)
	for _, listing := range listings {
		if listing == nil || listing.Slug == "" {
			continue
		}
		if listing.DateAdded < cutoff {
			continue
		}
		if notified[listing.Slug] || seen[listing.Slug] {
			continue
		}
		seen[listing.Slug] = true
		fresh = append(fresh, listing)
	}

	sort.Slice(fresh, func(i, j int) bool {
		if fresh[i].DateAdded != fresh[j].DateAdded {
			return fresh[i].DateAdded > fresh[j].DateAdded
		}
		return fresh[i].Slug < fresh[j].Slug
	})

	return fresh
}

// MergeRecords builds the set to persist after a dispatching run: previous
// records still inside the retention window plus one record per sent
// listing. A record's age is measured on DateAdded. Output is sorted by
// slug; existing records win over new ones for the same slug.
func (s *Screener) MergeRecords(prev []*domain.NotifiedRecord, sent []*domain.Listing, now int64) []*domain.NotifiedRecord {
	cutoff := now - s.config.RetentionWindow

	merged := make([]*domain.NotifiedRecord, 0, len(prev)+len(sent))
	kept := make(map[string]bool, len(prev)+len(sent))

	for _, r := range prev {
		if r == nil || r.Slug == "" {
			continue
		}
		if r.DateAdded < cutoff {
			// Expired
			continue
		}
		if kept[r.Slug] {
			continue
		}
		kept[r.Slug] = true
		merged = append(merged, &domain.NotifiedRecord{
			Slug:       r.Slug,
			DateAdded:  r.DateAdded,
			NotifiedAt: r.NotifiedAt,
		})
	}

	for _, listing := range sent {
		if listing == nil || listing.Slug == "" {
			continue
		}
		if kept[listing.Slug] {
			continue
		}
		kept[listing.Slug] = true
		merged = append(merged, &domain.NotifiedRecord{
			Slug:       listing.Slug,
			DateAdded:  listing.DateAdded,
			NotifiedAt: now,
		})
	}

	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Slug < merged[j].Slug
	})

	return merged
}
