package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher sends events to RabbitMQ. Each event goes to a durable
// queue named after its type through the default exchange.
type Publisher struct {
	url    string
	logger *slog.Logger
	now    func() time.Time
}

// NewPublisher returns a Publisher for the broker at url.
func NewPublisher(url string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{url: url, logger: logger, now: time.Now}
}

// Publish dials the broker, declares the target queue and publishes ev
// as a persistent message. Failures are logged and returned; callers
// publish after their transaction committed and may ignore them.
func (p *Publisher) Publish(ctx context.Context, ev Event) error {
	env, err := NewEnvelope(ev, p.now())
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	conn, err := amqp.Dial(p.url)
	if err != nil {
		p.logger.Warn("rabbitmq dial failed", "error", err, "event", env.Type)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.logger.Warn("rabbitmq channel open failed", "error", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(env.Type, true, false, false, false, nil); err != nil {
		p.logger.Warn("rabbitmq queue declare failed", "error", err, "queue", env.Type)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    env.ID,
		Type:         env.Type,
		Timestamp:    env.OccurredAt,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", env.Type, false, false, pub); err != nil {
		p.logger.Warn("rabbitmq publish failed", "error", err, "event", env.Type)
		return err
	}
	p.logger.Debug("event published", "event", env.Type, "id", env.ID)
	return nil
}
