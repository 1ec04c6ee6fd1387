package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

// RabbitMQPublisher publishes order events to a durable topic exchange, routed by event type.
type RabbitMQPublisher struct {
	conn     *amqp.Connection
	mu       sync.Mutex
	channel  *amqp.Channel
	exchange string
}

func NewRabbitMQPublisher(url, exchange string) (*RabbitMQPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open rabbitmq channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		exchange,
		amqp.ExchangeTopic,
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	log.Info().Str("exchange", exchange).Msg("Connected to RabbitMQ")
	return &RabbitMQPublisher{conn: conn, channel: ch, exchange: exchange}, nil
}

func newMessage(event OrderEvent) (amqp.Publishing, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to encode event: %w", err)
	}

	messageID, err := uuid.NewV4()
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to generate message id: %w", err)
	}

	ts := event.OccurredAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	return amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		MessageId:    messageID.String(),
		Type:         event.Type,
		Timestamp:    ts,
		Body:         body,
	}, nil
}

func (p *RabbitMQPublisher) Publish(ctx context.Context, event OrderEvent) error {
	msg, err := newMessage(event)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.PublishWithContext(ctx,
		p.exchange,
		event.Type, // routing key
		false,      // mandatory
		false,      // immediate
		msg,
	)
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Type, err)
	}

	return nil
}

func (p *RabbitMQPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			firstErr = err
		}
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
