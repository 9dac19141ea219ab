package notify

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"listingwatch/internal/domain"
)

// mailDialer abstracts gomail's dialer so tests can substitute it.
type mailDialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPSender delivers notifications as plain-text email.
type SMTPSender struct {
	from   string
	dialer mailDialer
}

// NewSMTPSender creates an email sender over the given SMTP server.
func NewSMTPSender(host string, port int, username, password, from string) *SMTPSender {
	return &SMTPSender{
		from:   from,
		dialer: gomail.NewDialer(host, port, username, password),
	}
}

// Channel reports the delivery channel.
func (s *SMTPSender) Channel() domain.Channel {
	return domain.ChannelEmail
}

// Send dials and delivers one message. gomail does not take a context; the
// dial has its own connection timeout.
func (s *SMTPSender) Send(_ context.Context, recipient string, msg Message) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", recipient)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	return nil
}

// Compile-time interface check.
var _ Sender = (*SMTPSender)(nil)
