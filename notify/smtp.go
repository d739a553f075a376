/*
Package notify provides Notification Gateway implementations.

The engine only requires booking.Notifier: Send(ctx, to, subject, body).
SMTP is the production gateway; Log is the dev/test fake that records
instead of sending.
*/
package notify

import (
	"context"
	"fmt"
	"net/smtp"
)

// SMTP sends plain-text confirmations through a mail relay.
type SMTP struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// Send delivers the message, honoring ctx cancellation. net/smtp has no
// context support of its own, so the dial-and-send runs in a goroutine
// and the context races it.
func (s *SMTP) Send(ctx context.Context, to, subject, body string) error {
	msg := []byte(fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s",
		s.From, to, subject, body,
	))

	addr := s.Host + ":" + s.Port
	var auth smtp.Auth
	if s.Username != "" {
		auth = smtp.PlainAuth("", s.Username, s.Password, s.Host)
	}

	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(addr, auth, s.From, []string{to}, msg)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}
