package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"listingwatch/internal/domain"
)

const telegramDefaultBaseURL = "https://api.telegram.org"

// TelegramSender delivers notifications through the Telegram Bot API.
// Recipients are chat IDs.
type TelegramSender struct {
	botToken string
	baseURL  string
	client   *http.Client
}

// TelegramOption configures TelegramSender.
type TelegramOption func(*TelegramSender)

// WithTelegramBaseURL overrides the API base URL.
func WithTelegramBaseURL(baseURL string) TelegramOption {
	return func(s *TelegramSender) {
		s.baseURL = baseURL
	}
}

// WithTelegramHTTPClient sets custom http.Client.
func WithTelegramHTTPClient(client *http.Client) TelegramOption {
	return func(s *TelegramSender) {
		s.client = client
	}
}

// NewTelegramSender creates a bot-API sender.
func NewTelegramSender(botToken string, opts ...TelegramOption) *TelegramSender {
	s := &TelegramSender{
		botToken: botToken,
		baseURL:  telegramDefaultBaseURL,
		client:   &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Channel reports the delivery channel.
func (s *TelegramSender) Channel() domain.Channel {
	return domain.ChannelTelegram
}

// Send posts one sendMessage call to the recipient chat.
func (s *TelegramSender) Send(ctx context.Context, recipient string, msg Message) error {
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", s.baseURL, s.botToken)

	payload := map[string]interface{}{
		"chat_id": recipient,
		"text":    msg.Subject + "\n\n" + msg.Body,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("telegram send failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}

// Compile-time interface check.
var _ Sender = (*TelegramSender)(nil)
