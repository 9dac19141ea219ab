// Package notify delivers formatted listing notifications over a
// configured channel.
package notify

import (
	"context"
	"time"

	"listingwatch/internal/domain"
)

const defaultHTTPTimeout = 30 * time.Second

// Message is one formatted notification.
type Message struct {
	Subject string
	Body    string
}

// Sender delivers a message to a single recipient. One implementation per
// channel; the dispatcher treats them uniformly.
type Sender interface {
	Channel() domain.Channel
	Send(ctx context.Context, recipient string, msg Message) error
}
