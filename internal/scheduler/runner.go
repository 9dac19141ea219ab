// Package scheduler drives the fetch → screen → dispatch → persist pipeline
// on a fixed interval.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"listingwatch/internal/dispatch"
	"listingwatch/internal/domain"
	"listingwatch/internal/idhash"
	"listingwatch/internal/listings"
	"listingwatch/internal/observability"
	"listingwatch/internal/screening"
	"listingwatch/internal/storage"
)

// Default configuration values.
const (
	DefaultInterval   = 5 * time.Minute
	DefaultFetchLimit = 50
	DefaultInstance   = "listingwatch"
)

// Runner orchestrates one pipeline run per tick. Ticks are serialized:
// a single loop calls RunOnce synchronously, so runs never overlap.
type Runner struct {
	source         listings.Source
	notifiedStore  storage.NotifiedStore
	dispatchLog    storage.DispatchLogStore // nil disables audit logging
	screener       *screening.Screener
	dispatcher     *dispatch.Dispatcher
	interval       time.Duration
	fetchLimit     int
	instance       string
	storageBackend string // metric label only
	logger         *log.Logger
	now            func() time.Time

	mu    sync.Mutex
	stats Stats
}

// Options contains configuration for creating a Runner.
type Options struct {
	Source         listings.Source
	NotifiedStore  storage.NotifiedStore
	DispatchLog    storage.DispatchLogStore // optional
	Screener       *screening.Screener
	Dispatcher     *dispatch.Dispatcher
	Interval       time.Duration // default 5m
	FetchLimit     int           // default 50
	Instance       string        // run-id namespace, default "listingwatch"
	StorageBackend string
	Logger         *log.Logger
	Now            func() time.Time // test hook
}

// NewRunner creates a new scheduler runner.
func NewRunner(opts Options) *Runner {
	interval := opts.Interval
	if interval == 0 {
		interval = DefaultInterval
	}

	fetchLimit := opts.FetchLimit
	if fetchLimit == 0 {
		fetchLimit = DefaultFetchLimit
	}

	instance := opts.Instance
	if instance == "" {
		instance = DefaultInstance
	}

	screener := opts.Screener
	if screener == nil {
		screener = screening.NewScreener(screening.DefaultConfig())
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Runner{
		source:         opts.Source,
		notifiedStore:  opts.NotifiedStore,
		dispatchLog:    opts.DispatchLog,
		screener:       screener,
		dispatcher:     opts.Dispatcher,
		interval:       interval,
		fetchLimit:     fetchLimit,
		instance:       instance,
		storageBackend: opts.StorageBackend,
		logger:         logger,
		now:            now,
	}
}

// Stats describes runner progress for the /status endpoint.
type Stats struct {
	Runs          int       `json:"runs"`
	FailedRuns    int       `json:"failed_runs"`
	ListingsSent  int       `json:"listings_sent"`
	SendFailures  int       `json:"send_failures"`
	LastRun       time.Time `json:"last_run,omitempty"`
	LastSuccess   time.Time `json:"last_success,omitempty"`
	LastRunError  string    `json:"last_run_error,omitempty"`
	LastDispatch  int       `json:"last_dispatch_count"`
	NextRunNotice string    `json:"interval"`
}

// Run executes one pipeline run immediately, then once per interval.
// It blocks until context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Printf("Starting scheduler (interval: %v)...", r.interval)

	r.tick(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

// tick wraps RunOnce with stats and metrics bookkeeping.
func (r *Runner) tick(ctx context.Context) {
	start := r.now()

	err := r.RunOnce(ctx)
	elapsed := time.Since(start)

	r.mu.Lock()
	r.stats.Runs++
	r.stats.LastRun = start
	if err != nil {
		r.stats.FailedRuns++
		r.stats.LastRunError = err.Error()
	} else {
		r.stats.LastSuccess = start
		r.stats.LastRunError = ""
	}
	r.mu.Unlock()

	if err != nil {
		observability.RecordRun("failed", elapsed.Seconds())
		r.logger.Printf("Run failed after %v: %v", elapsed, err)
		return
	}

	observability.RecordRun("success", elapsed.Seconds())
	observability.UpdateLastSuccessfulRun(start.Unix())
}

// RunOnce executes one full pipeline pass: fetch, load, screen, dispatch,
// persist. A fetch failure is fatal for the run and aborts before any
// other step. An empty screened set is a no-op: no dispatch, no save.
func (r *Runner) RunOnce(ctx context.Context) error {
	nowMs := r.now().UnixMilli()

	fetchStart := time.Now()
	fetched, err := r.source.FetchLatest(ctx, r.fetchLimit)
	observability.RecordFetchLatency(time.Since(fetchStart).Seconds())
	if err != nil {
		return fmt.Errorf("fetch listings: %w", err)
	}
	observability.RecordListingsFetched(len(fetched))

	prev, err := r.loadNotified(ctx)
	if err != nil {
		// Unreadable store is first-run semantics, not a fatal error.
		r.logger.Printf("Notified store unreadable, treating as empty: %v", err)
		prev = nil
	}

	screened := r.screener.Screen(fetched, prev, nowMs)
	observability.RecordListingsScreened(len(screened))

	if len(screened) == 0 {
		r.logger.Printf("No new listings (%d fetched, %d already notified)", len(fetched), len(prev))
		return nil
	}

	r.logger.Printf("Dispatching %d new listing(s)", len(screened))

	runID := idhash.ComputeRunID(r.instance, nowMs)
	result := r.dispatcher.Dispatch(ctx, runID, screened)

	r.mu.Lock()
	r.stats.ListingsSent += len(screened)
	r.stats.SendFailures += result.Failed
	r.stats.LastDispatch = len(screened)
	r.mu.Unlock()

	merged := r.screener.MergeRecords(prev, screened, nowMs)
	if err := r.saveNotified(ctx, merged); err != nil {
		return fmt.Errorf("save notified records: %w", err)
	}
	observability.UpdateRecordsRetained(len(merged))

	r.appendAuditLog(ctx, result.Records)

	r.logger.Printf("Run complete: %d sent, %d failed, %d records retained",
		result.Sent, result.Failed, len(merged))
	return nil
}

// Stats returns a snapshot of runner progress.
func (r *Runner) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := r.stats
	stats.NextRunNotice = r.interval.String()
	return stats
}

func (r *Runner) loadNotified(ctx context.Context) ([]*domain.NotifiedRecord, error) {
	start := time.Now()
	records, err := r.notifiedStore.Load(ctx)
	observability.RecordStoreOp(r.storageBackend, "load", time.Since(start).Seconds(), err)
	return records, err
}

func (r *Runner) saveNotified(ctx context.Context, records []*domain.NotifiedRecord) error {
	start := time.Now()
	err := r.notifiedStore.Save(ctx, records)
	observability.RecordStoreOp(r.storageBackend, "save", time.Since(start).Seconds(), err)
	return err
}

// appendAuditLog writes dispatch records best-effort: the audit log is
// optional and a write failure never fails the run.
func (r *Runner) appendAuditLog(ctx context.Context, records []*domain.DispatchRecord) {
	if r.dispatchLog == nil || len(records) == 0 {
		return
	}

	if err := r.dispatchLog.InsertBulk(ctx, records); err != nil {
		r.logger.Printf("Audit log write failed (%d records): %v", len(records), err)
	}
}
