/*
Package outbox decouples confirmation delivery from the booking save.

The state machine's inline send blocks the save and gives up after one
failure. When eventual delivery matters more than immediacy, the machine
is wired with a Queue instead of a live gateway: a confirming save only
records the message, and a background Worker delivers pending messages
at-least-once, retrying failures until an attempt cap.

  queue   := outbox.Queue{Store: store}       // satisfies booking.Notifier
  worker  := outbox.NewWorker(store, smtp)
  go worker.Run(ctx)
*/
package outbox

import (
	"context"
	"time"

	"github.com/aegisops/booking-engine/booking"
)

// Status of an outbox message.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusSent    Status = "SENT"
	StatusFailed  Status = "FAILED" // attempt cap reached
)

// Message is one queued confirmation.
type Message struct {
	ID        string
	Recipient string
	Subject   string
	Body      string
	Status    Status
	Attempts  int
	LastError string
	CreatedAt time.Time
	SentAt    time.Time
}

// Store persists outbox messages.
type Store interface {
	Enqueue(ctx context.Context, m Message) (Message, error)
	// Pending returns up to limit messages still awaiting delivery,
	// oldest first.
	Pending(ctx context.Context, limit int) ([]Message, error)
	MarkSent(ctx context.Context, id string, at time.Time) error
	// MarkFailed records a failed attempt; final moves the message to
	// StatusFailed so the worker stops retrying it.
	MarkFailed(ctx context.Context, id string, attempts int, lastError string, final bool) error
}

// =============================================================================
// QUEUE - booking.Notifier that records instead of sending
// =============================================================================

// Queue satisfies booking.Notifier by enqueueing. From the machine's
// point of view the "send" succeeds as soon as the message is recorded;
// delivery responsibility moves to the worker.
type Queue struct {
	Store Store
}

func (q *Queue) Send(ctx context.Context, to, subject, body string) error {
	_, err := q.Store.Enqueue(ctx, Message{
		Recipient: to,
		Subject:   subject,
		Body:      body,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	})
	return err
}

// =============================================================================
// WORKER - at-least-once delivery loop
// =============================================================================

const (
	defaultInterval    = 15 * time.Second
	defaultBatchSize   = 50
	defaultMaxAttempts = 5
)

// Worker drains pending messages through a live Notifier.
type Worker struct {
	Store       Store
	Notifier    booking.Notifier
	Logger      booking.Logger
	Interval    time.Duration
	BatchSize   int
	MaxAttempts int
}

func NewWorker(store Store, notifier booking.Notifier) *Worker {
	return &Worker{
		Store:       store,
		Notifier:    notifier,
		Logger:      booking.DefaultLogger(),
		Interval:    defaultInterval,
		BatchSize:   defaultBatchSize,
		MaxAttempts: defaultMaxAttempts,
	}
}

// Run delivers pending messages every Interval until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	interval := w.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.DeliverPending(ctx); err != nil {
				w.logf("outbox: delivery pass failed: %v", err)
			}
		}
	}
}

// DeliverPending makes one delivery pass and returns how many messages
// were sent. Exported so tests and admin endpoints can trigger a pass.
func (w *Worker) DeliverPending(ctx context.Context) (int, error) {
	batch := w.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	pending, err := w.Store.Pending(ctx, batch)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, msg := range pending {
		if err := w.Notifier.Send(ctx, msg.Recipient, msg.Subject, msg.Body); err != nil {
			attempts := msg.Attempts + 1
			final := attempts >= w.maxAttempts()
			if markErr := w.Store.MarkFailed(ctx, msg.ID, attempts, err.Error(), final); markErr != nil {
				w.logf("outbox: marking message %s failed: %v", msg.ID, markErr)
			}
			if final {
				w.logf("outbox: message %s to %s gave up after %d attempts: %v", msg.ID, msg.Recipient, attempts, err)
			}
			continue
		}
		if err := w.Store.MarkSent(ctx, msg.ID, time.Now().UTC()); err != nil {
			w.logf("outbox: marking message %s sent: %v", msg.ID, err)
			continue
		}
		sent++
	}
	return sent, nil
}

func (w *Worker) maxAttempts() int {
	if w.MaxAttempts <= 0 {
		return defaultMaxAttempts
	}
	return w.MaxAttempts
}

func (w *Worker) logf(format string, v ...any) {
	if w.Logger != nil {
		w.Logger.Printf(format, v...)
	}
}
