package notify

import (
	"context"
	"sync"

	"github.com/aegisops/booking-engine/booking"
)

// Log records sends instead of delivering them. Safe for concurrent use.
type Log struct {
	Logger booking.Logger

	mu   sync.Mutex
	sent []Sent
}

// Sent is one recorded message.
type Sent struct {
	To      string
	Subject string
	Body    string
}

func NewLog() *Log {
	return &Log{Logger: booking.DefaultLogger()}
}

func (l *Log) Send(_ context.Context, to, subject, body string) error {
	l.mu.Lock()
	l.sent = append(l.sent, Sent{To: to, Subject: subject, Body: body})
	l.mu.Unlock()
	if l.Logger != nil {
		l.Logger.Printf("notify: confirmation to %s: %s", to, subject)
	}
	return nil
}

// Messages returns a copy of everything recorded so far.
func (l *Log) Messages() []Sent {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Sent, len(l.sent))
	copy(out, l.sent)
	return out
}
