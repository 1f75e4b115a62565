// Package rabbitmq publishes sync events to a RabbitMQ exchange.
package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"provider-sync-service/internal/domain"
)

// Config holds publisher settings.
type Config struct {
	URL        string
	Exchange   string
	RoutingKey string
	// Queue is declared and bound to RoutingKey when set.
	Queue string
}

// Publisher implements domain.EventLogger on a durable direct exchange.
type Publisher struct {
	conn       *amqp.Connection
	channel    *amqp.Channel
	exchange   string
	routingKey string
	logger     *zap.Logger

	mu sync.Mutex
}

// EventMessage is the JSON body of a published event.
type EventMessage struct {
	Event       domain.SyncEvent `json:"event"`
	PublishedAt time.Time        `json:"published_at"`
}

// NewPublisher connects and declares the exchange (and queue, if configured).
func NewPublisher(cfg Config, logger *zap.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := declare(ch, cfg); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	logger.Info("connected to rabbitmq",
		zap.String("exchange", cfg.Exchange),
		zap.String("queue", cfg.Queue),
		zap.String("routing_key", cfg.RoutingKey),
	)

	return &Publisher{
		conn:       conn,
		channel:    ch,
		exchange:   cfg.Exchange,
		routingKey: cfg.RoutingKey,
		logger:     logger,
	}, nil
}

func declare(ch *amqp.Channel, cfg Config) error {
	if err := ch.ExchangeDeclare(cfg.Exchange, amqp.ExchangeDirect, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	if cfg.Queue == "" {
		return nil
	}

	q, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, cfg.RoutingKey, cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

// Log implements domain.EventLogger. The event type is also sent as the
// event_type header so consumers can filter without decoding the body.
func (p *Publisher) Log(ctx context.Context, event domain.SyncEvent) error {
	now := time.Now().UTC()
	body, err := json.Marshal(EventMessage{Event: event, PublishedAt: now})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.PublishWithContext(ctx, p.exchange, p.routingKey, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Headers: amqp.Table{
			"event_type": string(event.Type),
			"provider":   string(event.Provider),
		},
		Body:      body,
		Timestamp: now,
	})
	if err != nil {
		return fmt.Errorf("publish event: %w", err)
	}

	p.logger.Debug("published sync event",
		zap.String("provider", string(event.Provider)),
		zap.String("type", string(event.Type)),
	)

	return nil
}

// Close closes the channel and the connection.
func (p *Publisher) Close() error {
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}

	return nil
}
