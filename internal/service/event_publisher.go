// Package event_publisher publishes domain events to RabbitMQ. Errors are
// logged and swallowed so a broker outage never interrupts the request flow
// that produced the event.
package event_publisher

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	q "github.com/kavelio/studio-booking/internal/queue"
)

// Publisher emits domain events onto the booking.events queue. It dials
// per publish, which keeps it free of connection state to manage; event
// volume here is a handful per booking, not a firehose.
type Publisher struct {
	url string
}

// New returns a Publisher for the given broker URL; an empty URL falls
// back to the environment.
func New(url string) *Publisher {
	if url == "" {
		url = q.BrokerURL()
	}
	return &Publisher{url: url}
}

// Emit publishes one event. Failures are logged, never surfaced: emission
// is fire-and-forget by contract with the callers.
func (p *Publisher) Emit(ctx context.Context, event string, payload any) {
	if err := p.publish(ctx, event, payload); err != nil {
		log.Printf("event-publisher: %s publish failed: %v", event, err)
	}
}

func (p *Publisher) publish(ctx context.Context, event string, payload any) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer func() { _ = ch.Close() }()

	// Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(q.EventQueueName, true, false, false, false, nil); err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	envelope, err := json.Marshal(q.DomainEvent{
		Action:     event,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
		Payload:    body,
	})
	if err != nil {
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		Timestamp:    time.Now().UTC(),
		Body:         envelope,
	}
	return ch.PublishWithContext(ctx, "", q.EventQueueName, false, false, pub)
}
