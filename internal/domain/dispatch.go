package domain

// DispatchStatus represents the outcome of a single send attempt.
type DispatchStatus string

const (
	DispatchStatusSent   DispatchStatus = "SENT"
	DispatchStatusFailed DispatchStatus = "FAILED"
)

// String returns the string representation of DispatchStatus.
func (s DispatchStatus) String() string {
	return string(s)
}

// DispatchRecord represents one per-recipient send attempt in the audit log.
// Corresponds to dispatch_log table in ClickHouse.
type DispatchRecord struct {
	DispatchID string         // PRIMARY KEY, deterministic hash
	RunID      string         // run the attempt belongs to
	Slug       string         // listing slug
	Symbol     string         // listing symbol at dispatch time
	Channel    Channel        // delivery channel
	Recipient  string         // phone number, email address, device token or chat id
	Status     DispatchStatus // SENT | FAILED
	Error      *string        // send error text (nullable)
	PriceUSD   float64        // listing price at dispatch time
	SentAt     int64          // attempt timestamp in milliseconds
}
