package domain

// NotifiedRecord marks a listing as already notified. The persisted set of
// records is the only deduplication state that survives between runs.
type NotifiedRecord struct {
	Slug       string // listing slug, deduplication key
	DateAdded  int64  // listing date_added at notification time (ms)
	NotifiedAt int64  // when the notification was dispatched (ms)
}
