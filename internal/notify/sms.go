package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"listingwatch/internal/domain"
)

const twilioDefaultBaseURL = "https://api.twilio.com"

// TwilioSender delivers SMS through the Twilio REST API. Recipients are
// phone numbers in E.164 form.
type TwilioSender struct {
	accountSID string
	authToken  string
	from       string
	baseURL    string
	client     *http.Client
}

// TwilioOption configures TwilioSender.
type TwilioOption func(*TwilioSender)

// WithTwilioBaseURL overrides the API base URL.
func WithTwilioBaseURL(baseURL string) TwilioOption {
	return func(s *TwilioSender) {
		s.baseURL = baseURL
	}
}

// WithTwilioHTTPClient sets custom http.Client.
func WithTwilioHTTPClient(client *http.Client) TwilioOption {
	return func(s *TwilioSender) {
		s.client = client
	}
}

// NewTwilioSender creates an SMS sender for the given account and sender
// number.
func NewTwilioSender(accountSID, authToken, from string, opts ...TwilioOption) *TwilioSender {
	s := &TwilioSender{
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
		baseURL:    twilioDefaultBaseURL,
		client:     &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Channel reports the delivery channel.
func (s *TwilioSender) Channel() domain.Channel {
	return domain.ChannelSMS
}

// Send posts one SMS. SMS carries no subject line, so only the body is sent.
func (s *TwilioSender) Send(ctx context.Context, recipient string, msg Message) error {
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", s.baseURL, s.accountSID)

	form := url.Values{}
	form.Set("To", recipient)
	form.Set("From", s.from)
	form.Set("Body", msg.Body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create sms request: %w", err)
	}
	req.SetBasicAuth(s.accountSID, s.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send sms: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("sms send failed with status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}

// Compile-time interface check.
var _ Sender = (*TwilioSender)(nil)
