package notify

import (
	"context"
	"errors"
	"testing"

	"gopkg.in/gomail.v2"

	"listingwatch/internal/domain"
)

// fakeDialer records sent messages instead of dialing.
type fakeDialer struct {
	sent []*gomail.Message
	err  error
}

func (d *fakeDialer) DialAndSend(m ...*gomail.Message) error {
	if d.err != nil {
		return d.err
	}
	d.sent = append(d.sent, m...)
	return nil
}

func TestSMTPSender_Send(t *testing.T) {
	dialer := &fakeDialer{}
	sender := &SMTPSender{from: "alerts@example.com", dialer: dialer}

	if sender.Channel() != domain.ChannelEmail {
		t.Errorf("expected email channel, got %s", sender.Channel())
	}

	err := sender.Send(context.Background(), "user@example.com", Message{
		Subject: "New listing: Fresh Coin (FRSH)",
		Body:    "Fresh Coin (FRSH) was just listed.",
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	if len(dialer.sent) != 1 {
		t.Fatalf("expected 1 message, got %d", len(dialer.sent))
	}

	m := dialer.sent[0]
	if got := m.GetHeader("From"); len(got) != 1 || got[0] != "alerts@example.com" {
		t.Errorf("unexpected From header: %v", got)
	}
	if got := m.GetHeader("To"); len(got) != 1 || got[0] != "user@example.com" {
		t.Errorf("unexpected To header: %v", got)
	}
	if got := m.GetHeader("Subject"); len(got) != 1 || got[0] != "New listing: Fresh Coin (FRSH)" {
		t.Errorf("unexpected Subject header: %v", got)
	}
}

func TestSMTPSender_Send_DialFailure(t *testing.T) {
	dialer := &fakeDialer{err: errors.New("connection refused")}
	sender := &SMTPSender{from: "alerts@example.com", dialer: dialer}

	err := sender.Send(context.Background(), "user@example.com", Message{Subject: "s", Body: "b"})
	if err == nil {
		t.Fatal("expected error when dial fails, got nil")
	}
}

func TestNewSMTPSender(t *testing.T) {
	sender := NewSMTPSender("smtp.example.com", 587, "user", "pass", "alerts@example.com")

	if sender.from != "alerts@example.com" {
		t.Errorf("unexpected from: %s", sender.from)
	}
	if sender.dialer == nil {
		t.Error("dialer should be initialized")
	}
}
