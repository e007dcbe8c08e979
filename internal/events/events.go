// Package events publishes visit notifications for resolved short codes.
// Consumers such as analytics workers read them off a message queue, so
// delivery is best effort and never blocks a redirect.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// Visit describes a single successful resolution of a short code.
type Visit struct {
	ShortCode string    `json:"short_code"`
	Timestamp time.Time `json:"timestamp"`
	UserAgent string    `json:"user_agent"`
}

// AMQPPublisher sends visits to a durable RabbitMQ queue.
type AMQPPublisher struct {
	conn  *amqp091.Connection
	ch    *amqp091.Channel
	queue string
}

// NewAMQPPublisher connects to the broker and declares the visit queue.
func NewAMQPPublisher(url, queue string) (*AMQPPublisher, error) {
	const op = "events.NewAMQPPublisher"

	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to connect to broker: %w", op, err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("%s: failed to open channel: %w", op, err)
	}

	_, err = ch.QueueDeclare(
		queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,   // args
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("%s: failed to declare queue %q: %w", op, queue, err)
	}

	return &AMQPPublisher{
		conn:  conn,
		ch:    ch,
		queue: queue,
	}, nil
}

// PublishVisit sends the visit to the queue as a JSON message.
func (p *AMQPPublisher) PublishVisit(ctx context.Context, visit Visit) error {
	const op = "events.AMQPPublisher.PublishVisit"

	body, err := json.Marshal(visit)
	if err != nil {
		return fmt.Errorf("%s: failed to marshal visit: %w", op, err)
	}

	err = p.ch.PublishWithContext(ctx, "", p.queue, false, false, amqp091.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
	if err != nil {
		return fmt.Errorf("%s: failed to publish visit: %w", op, err)
	}

	return nil
}

// Close releases the channel and the connection.
func (p *AMQPPublisher) Close() error {
	const op = "events.AMQPPublisher.Close"

	if err := p.ch.Close(); err != nil {
		p.conn.Close()
		return fmt.Errorf("%s: failed to close channel: %w", op, err)
	}
	if err := p.conn.Close(); err != nil {
		return fmt.Errorf("%s: failed to close connection: %w", op, err)
	}

	return nil
}

// NopPublisher discards visits. It stands in when no broker is configured.
type NopPublisher struct{}

// PublishVisit implements the publisher contract and does nothing.
func (NopPublisher) PublishVisit(context.Context, Visit) error {
	return nil
}
