package notify

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"listingwatch/internal/domain"
)

// FCMSender delivers push notifications through Firebase Cloud Messaging.
// Recipients are device registration tokens.
type FCMSender struct {
	client *messaging.Client
}

// NewFCMSender initializes the Firebase app from a service account file.
func NewFCMSender(ctx context.Context, credentialsPath string) (*FCMSender, error) {
	opt := option.WithCredentialsFile(credentialsPath)
	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("messaging client: %w", err)
	}

	return &FCMSender{client: client}, nil
}

// Channel reports the delivery channel.
func (s *FCMSender) Channel() domain.Channel {
	return domain.ChannelPush
}

// Send pushes one notification to a device token.
func (s *FCMSender) Send(ctx context.Context, recipient string, msg Message) error {
	m := &messaging.Message{
		Token: recipient,
		Notification: &messaging.Notification{
			Title: msg.Subject,
			Body:  msg.Body,
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				ChannelID: "listing_alerts",
				Priority:  messaging.PriorityHigh,
			},
		},
	}

	if _, err := s.client.Send(ctx, m); err != nil {
		return fmt.Errorf("send push: %w", err)
	}

	return nil
}

// Compile-time interface check.
var _ Sender = (*FCMSender)(nil)
