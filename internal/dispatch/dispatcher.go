// Package dispatch fans one notification per screened listing out to every
// configured recipient.
package dispatch

import (
	"context"
	"log"
	"time"

	"listingwatch/internal/domain"
	"listingwatch/internal/idhash"
	"listingwatch/internal/notify"
	"listingwatch/internal/observability"
)

// Dispatcher sends a formatted message per listing to each recipient over
// one channel. Sends are sequential and best-effort: a failed send is
// recorded and the fan-out continues.
type Dispatcher struct {
	sender      notify.Sender
	recipients  []string
	linkBaseURL string
	logger      *log.Logger
}

// Options contains configuration for creating a Dispatcher.
type Options struct {
	Sender      notify.Sender
	Recipients  []string
	LinkBaseURL string // base URL for per-listing detail links
	Logger      *log.Logger
}

// NewDispatcher creates a new dispatcher.
func NewDispatcher(opts Options) *Dispatcher {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Dispatcher{
		sender:      opts.Sender,
		recipients:  opts.Recipients,
		linkBaseURL: opts.LinkBaseURL,
		logger:      logger,
	}
}

// Result summarizes one dispatch fan-out.
type Result struct {
	Sent    int // successful per-recipient sends
	Failed  int // failed per-recipient sends
	Records []*domain.DispatchRecord
}

// Dispatch sends every listing to every recipient and returns one audit
// record per attempt. It never returns early: per-recipient failures are
// logged and counted, remaining sends still happen.
func (d *Dispatcher) Dispatch(ctx context.Context, runID string, listings []*domain.Listing) *Result {
	result := &Result{}
	channel := d.sender.Channel()

	for _, listing := range listings {
		msg := notify.FormatMessage(listing, d.linkBaseURL)

		for _, recipient := range d.recipients {
			start := time.Now()
			err := d.sender.Send(ctx, recipient, msg)
			observability.RecordSendLatency(time.Since(start).Seconds())

			record := &domain.DispatchRecord{
				DispatchID: idhash.ComputeDispatchID(runID, listing.Slug, channel, recipient),
				RunID:      runID,
				Slug:       listing.Slug,
				Symbol:     listing.Symbol,
				Channel:    channel,
				Recipient:  recipient,
				Status:     domain.DispatchStatusSent,
				PriceUSD:   listing.PriceUSD,
				SentAt:     time.Now().UnixMilli(),
			}

			if err != nil {
				errText := err.Error()
				record.Status = domain.DispatchStatusFailed
				record.Error = &errText
				result.Failed++
				observability.RecordNotificationFailed(channel.String())
				d.logger.Printf("Send failed: listing=%s channel=%s recipient=%s: %v",
					listing.Slug, channel, recipient, err)
			} else {
				result.Sent++
				observability.RecordNotificationSent(channel.String())
				d.logger.Printf("Sent: listing=%s channel=%s recipient=%s",
					listing.Slug, channel, recipient)
			}

			result.Records = append(result.Records, record)
		}
	}

	return result
}
