package scheduler

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listingwatch/internal/dispatch"
	"listingwatch/internal/domain"
	"listingwatch/internal/notify"
	"listingwatch/internal/screening"
	"listingwatch/internal/storage/memory"
)

const minuteMs = int64(60000)

// fixedNow is the frozen clock for every test run.
var fixedNow = time.UnixMilli(1700000000000)

// fakeSource returns a canned listing set or an error.
type fakeSource struct {
	listings []*domain.Listing
	err      error
	calls    int
}

func (s *fakeSource) FetchLatest(_ context.Context, _ int) ([]*domain.Listing, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.listings, nil
}

// fakeSender records sent slugs; recipients in failFor always fail.
type fakeSender struct {
	failFor map[string]bool
	sent    []string // message subjects in send order
}

func (s *fakeSender) Channel() domain.Channel {
	return domain.ChannelSMS
}

func (s *fakeSender) Send(_ context.Context, recipient string, msg notify.Message) error {
	s.sent = append(s.sent, msg.Subject)
	if s.failFor[recipient] {
		return errors.New("carrier unavailable")
	}
	return nil
}

// failingNotifiedStore always errors on Load.
type failingNotifiedStore struct {
	*memory.NotifiedStore
}

func (s *failingNotifiedStore) Load(_ context.Context) ([]*domain.NotifiedRecord, error) {
	return nil, errors.New("container unreachable")
}

func listingAddedAgo(slug string, age int64) *domain.Listing {
	return &domain.Listing{
		Name:      "Coin " + slug,
		Symbol:    "C",
		Slug:      slug,
		DateAdded: fixedNow.UnixMilli() - age,
		PriceUSD:  2.5,
	}
}

func recordAddedAgo(slug string, age int64) *domain.NotifiedRecord {
	added := fixedNow.UnixMilli() - age
	return &domain.NotifiedRecord{Slug: slug, DateAdded: added, NotifiedAt: added}
}

type testEnv struct {
	runner      *Runner
	source      *fakeSource
	sender      *fakeSender
	store       *memory.NotifiedStore
	dispatchLog *memory.DispatchLogStore
}

func newTestEnv(t *testing.T, source *fakeSource) *testEnv {
	t.Helper()

	sender := &fakeSender{}
	store := memory.NewNotifiedStore()
	dispatchLog := memory.NewDispatchLogStore()
	quiet := log.New(io.Discard, "", 0)

	dispatcher := dispatch.NewDispatcher(dispatch.Options{
		Sender:     sender,
		Recipients: []string{"+15550001"},
		Logger:     quiet,
	})

	runner := NewRunner(Options{
		Source:         source,
		NotifiedStore:  store,
		DispatchLog:    dispatchLog,
		Screener:       screening.NewScreener(screening.DefaultConfig()),
		Dispatcher:     dispatcher,
		StorageBackend: "memory",
		Logger:         quiet,
		Now:            func() time.Time { return fixedNow },
	})

	return &testEnv{
		runner:      runner,
		source:      source,
		sender:      sender,
		store:       store,
		dispatchLog: dispatchLog,
	}
}

func storedSlugs(t *testing.T, store *memory.NotifiedStore) []string {
	t.Helper()
	records, err := store.Load(context.Background())
	require.NoError(t, err)
	slugs := make([]string, 0, len(records))
	for _, r := range records {
		slugs = append(slugs, r.Slug)
	}
	return slugs
}

func TestRunOnceDispatchesOnlyUnnotified(t *testing.T) {
	source := &fakeSource{listings: []*domain.Listing{
		listingAddedAgo("coin-x", 30*minuteMs),
		listingAddedAgo("coin-y", 10*minuteMs),
	}}
	env := newTestEnv(t, source)

	// coin-x was already notified on an earlier run.
	require.NoError(t, env.store.Save(context.Background(),
		[]*domain.NotifiedRecord{recordAddedAgo("coin-x", 30*minuteMs)}))

	require.NoError(t, env.runner.RunOnce(context.Background()))

	require.Len(t, env.sender.sent, 1)
	assert.Contains(t, env.sender.sent[0], "coin-y")
	assert.ElementsMatch(t, []string{"coin-x", "coin-y"}, storedSlugs(t, env.store))
}

func TestRunOnceSkipsStaleListings(t *testing.T) {
	source := &fakeSource{listings: []*domain.Listing{
		listingAddedAgo("old-coin", 121*minuteMs),
		listingAddedAgo("ancient-coin", 500*minuteMs),
	}}
	env := newTestEnv(t, source)

	require.NoError(t, env.runner.RunOnce(context.Background()))

	assert.Empty(t, env.sender.sent)
	assert.Empty(t, storedSlugs(t, env.store))
}

func TestRunOnceEmptyScreenIsNoOp(t *testing.T) {
	source := &fakeSource{} // nothing fetched
	env := newTestEnv(t, source)

	prior := []*domain.NotifiedRecord{recordAddedAgo("prior-coin", 300*minuteMs)}
	require.NoError(t, env.store.Save(context.Background(), prior))

	require.NoError(t, env.runner.RunOnce(context.Background()))

	assert.Empty(t, env.sender.sent)
	// No save happened: the stale prior record was not pruned.
	assert.Equal(t, []string{"prior-coin"}, storedSlugs(t, env.store))

	records, err := env.dispatchLog.GetByTimeRange(context.Background(), 0, fixedNow.UnixMilli()+minuteMs)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestRunOnceFetchFailureAbortsRun(t *testing.T) {
	source := &fakeSource{err: errors.New("api quota exceeded")}
	env := newTestEnv(t, source)

	prior := []*domain.NotifiedRecord{recordAddedAgo("prior-coin", 10*minuteMs)}
	require.NoError(t, env.store.Save(context.Background(), prior))

	err := env.runner.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch listings")

	// No partial processing: nothing sent, store untouched.
	assert.Empty(t, env.sender.sent)
	assert.Equal(t, []string{"prior-coin"}, storedSlugs(t, env.store))
}

func TestRunOncePrunesExpiredRecordsOnSave(t *testing.T) {
	source := &fakeSource{listings: []*domain.Listing{
		listingAddedAgo("new-coin", 5*minuteMs),
	}}
	env := newTestEnv(t, source)

	require.NoError(t, env.store.Save(context.Background(), []*domain.NotifiedRecord{
		recordAddedAgo("fresh-record", 100*minuteMs),
		recordAddedAgo("stale-record", 201*minuteMs),
	}))

	require.NoError(t, env.runner.RunOnce(context.Background()))

	require.Len(t, env.sender.sent, 1)
	assert.ElementsMatch(t, []string{"fresh-record", "new-coin"}, storedSlugs(t, env.store))
}

func TestRunOnceKeepsFreshRecordNotRefetched(t *testing.T) {
	// fresh-record's listing fell out of the API response but its record
	// is still inside the retention window, so it must survive the save.
	source := &fakeSource{listings: []*domain.Listing{
		listingAddedAgo("new-coin", 5*minuteMs),
	}}
	env := newTestEnv(t, source)

	require.NoError(t, env.store.Save(context.Background(),
		[]*domain.NotifiedRecord{recordAddedAgo("fresh-record", 150*minuteMs)}))

	require.NoError(t, env.runner.RunOnce(context.Background()))

	assert.ElementsMatch(t, []string{"fresh-record", "new-coin"}, storedSlugs(t, env.store))
}

func TestRunOnceSendFailureStillPersists(t *testing.T) {
	source := &fakeSource{listings: []*domain.Listing{
		listingAddedAgo("doomed-coin", 5*minuteMs),
	}}
	env := newTestEnv(t, source)
	env.sender.failFor = map[string]bool{"+15550001": true}

	require.NoError(t, env.runner.RunOnce(context.Background()))

	// Dispatch was attempted, so the listing counts as notified: no
	// re-send spam on the next tick.
	assert.Equal(t, []string{"doomed-coin"}, storedSlugs(t, env.store))

	records, err := env.dispatchLog.GetBySlug(context.Background(), "doomed-coin")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, domain.DispatchStatusFailed, records[0].Status)
	require.NotNil(t, records[0].Error)
}

func TestRunOnceWritesAuditLog(t *testing.T) {
	source := &fakeSource{listings: []*domain.Listing{
		listingAddedAgo("coin-a", 5*minuteMs),
		listingAddedAgo("coin-b", 15*minuteMs),
	}}
	env := newTestEnv(t, source)

	require.NoError(t, env.runner.RunOnce(context.Background()))

	records, err := env.dispatchLog.GetByTimeRange(context.Background(), 0, fixedNow.UnixMilli()+minuteMs)
	require.NoError(t, err)
	require.Len(t, records, 2)

	// One run, one run ID.
	byRun, err := env.dispatchLog.GetByRunID(context.Background(), records[0].RunID)
	require.NoError(t, err)
	assert.Len(t, byRun, 2)
}

func TestRunOnceUnreadableStoreTreatedAsEmpty(t *testing.T) {
	source := &fakeSource{listings: []*domain.Listing{
		listingAddedAgo("coin-a", 5*minuteMs),
	}}

	sender := &fakeSender{}
	quiet := log.New(io.Discard, "", 0)
	failing := &failingNotifiedStore{NotifiedStore: memory.NewNotifiedStore()}
	runner := NewRunner(Options{
		Source:        source,
		NotifiedStore: failing,
		Dispatcher: dispatch.NewDispatcher(dispatch.Options{
			Sender:     sender,
			Recipients: []string{"+15550001"},
			Logger:     quiet,
		}),
		Logger: quiet,
		Now:    func() time.Time { return fixedNow },
	})

	// First-run semantics: the run proceeds with an empty set.
	require.NoError(t, runner.RunOnce(context.Background()))
	assert.Len(t, sender.sent, 1)
}

func TestRunOnceSecondTickDeduplicates(t *testing.T) {
	source := &fakeSource{listings: []*domain.Listing{
		listingAddedAgo("coin-a", 5*minuteMs),
	}}
	env := newTestEnv(t, source)

	require.NoError(t, env.runner.RunOnce(context.Background()))
	require.NoError(t, env.runner.RunOnce(context.Background()))

	// Second tick fetched the same listing but the persisted set blocked it.
	assert.Len(t, env.sender.sent, 1)
	assert.Equal(t, 2, env.source.calls)
}

func TestStatsTracksRuns(t *testing.T) {
	source := &fakeSource{listings: []*domain.Listing{
		listingAddedAgo("coin-a", 5*minuteMs),
	}}
	env := newTestEnv(t, source)

	env.runner.tick(context.Background())

	env.source.err = errors.New("api down")
	env.runner.tick(context.Background())

	stats := env.runner.Stats()
	assert.Equal(t, 2, stats.Runs)
	assert.Equal(t, 1, stats.FailedRuns)
	assert.Equal(t, 1, stats.ListingsSent)
	assert.Equal(t, fixedNow, stats.LastRun)
	assert.Equal(t, fixedNow, stats.LastSuccess)
	assert.Contains(t, stats.LastRunError, "api down")
}

func TestRunRespectsContextCancellation(t *testing.T) {
	source := &fakeSource{}
	env := newTestEnv(t, source)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- env.runner.Run(ctx)
	}()

	// Let the immediate first run happen, then cancel.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop after cancellation")
	}

	assert.GreaterOrEqual(t, env.source.calls, 1)
}
