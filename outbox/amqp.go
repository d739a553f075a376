/*
amqp.go - AMQP confirmation publisher

Publishes confirmation events to a durable topic exchange instead of (or
in addition to) delivering mail directly, so downstream consumers - a
mail relay, an audit trail - receive every confirmation. Satisfies
booking.Notifier.
*/
package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

const (
	// ExchangeName is the topic exchange confirmations are published to.
	ExchangeName = "booking.events"
	// RoutingKeyConfirmation routes confirmation messages.
	RoutingKeyConfirmation = "booking.confirmation"
)

// ConfirmationEvent is the wire payload of a published confirmation.
type ConfirmationEvent struct {
	Recipient string    `json:"recipient"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	EmittedAt time.Time `json:"emitted_at"`
}

// Publisher publishes confirmation events to RabbitMQ.
type Publisher struct {
	conn    *amqp091.Connection
	channel *amqp091.Channel
}

func sanitizeAMQPURL(raw string) (string, error) {
	clean := strings.TrimSpace(raw)
	clean = strings.Trim(clean, "\"'")
	u, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("AMQP scheme must be either 'amqp://' or 'amqps://'")
	}
	return clean, nil
}

// NewPublisher dials the broker and declares the topic exchange.
func NewPublisher(amqpURL string) (*Publisher, error) {
	cleanURL, err := sanitizeAMQPURL(amqpURL)
	if err != nil {
		return nil, err
	}

	conn, err := amqp091.Dial(cleanURL)
	if err != nil {
		return nil, err
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	if err := channel.ExchangeDeclare(
		ExchangeName,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		channel.Close()
		conn.Close()
		return nil, err
	}

	return &Publisher{conn: conn, channel: channel}, nil
}

// Send publishes the confirmation as a JSON event.
func (p *Publisher) Send(ctx context.Context, to, subject, body string) error {
	payload, err := json.Marshal(ConfirmationEvent{
		Recipient: to,
		Subject:   subject,
		Body:      body,
		EmittedAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	return p.channel.PublishWithContext(ctx,
		ExchangeName,
		RoutingKeyConfirmation,
		false, // mandatory
		false, // immediate
		amqp091.Publishing{
			ContentType: "application/json",
			Body:        payload,
		})
}

// Close releases the channel and connection.
func (p *Publisher) Close() {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}
