// Package mail is the narrow interface the clinic core uses to send
// email. Delivery is best-effort: callers that must not fail on mail
// problems log and continue.
package mail

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Mailer sends a single message.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPMailer delivers through a plain SMTP endpoint.
type SMTPMailer struct {
	Addr string // host:port
	From string
	Auth smtp.Auth
}

func (m *SMTPMailer) Send(_ context.Context, to, subject, body string) error {
	msg := strings.Join([]string{
		"From: " + m.From,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}, "\r\n")

	if err := smtp.SendMail(m.Addr, m.Auth, m.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}

// LogMailer writes messages to the log instead of delivering them.
// Used in development, mirroring a console email backend.
type LogMailer struct {
	Logger zerolog.Logger
}

func (m *LogMailer) Send(_ context.Context, to, subject, body string) error {
	m.Logger.Info().
		Str("to", to).
		Str("subject", subject).
		Str("body", body).
		Msg("mail (not delivered: log backend)")
	return nil
}

// SentMail records a single call to Send.
type SentMail struct {
	To      string
	Subject string
	Body    string
}

// Mock is a test double for Mailer.
type Mock struct {
	mu         sync.Mutex
	sent       []SentMail
	ShouldFail bool
}

func (m *Mock) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, SentMail{To: to, Subject: subject, Body: body})
	if m.ShouldFail {
		return errors.New("mock mailer failure")
	}
	return nil
}

// Sent returns a copy of recorded messages.
func (m *Mock) Sent() []SentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentMail, len(m.sent))
	copy(out, m.sent)
	return out
}
