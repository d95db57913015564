// Package broker publishes domain events (site.saved, order.completed, ...)
// to a RabbitMQ topic exchange so other services can react to them. With no
// AMQP_URL configured, events are only logged.
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/developlogy/sitebuilder/config"
	"github.com/developlogy/sitebuilder/pkg/logger"
)

// Publisher sends one event under a routing key.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
	Close() error
}

// Encode builds the persistent JSON message for payload.
func Encode(payload any, now time.Time) (amqp.Publishing, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("broker: marshal: %w", err)
	}
	return amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		MessageId:    uuid.NewString(),
		Timestamp:    now.UTC(),
		AppId:        "sitebuilder",
		Body:         body,
	}, nil
}

// AMQPPublisher publishes to a durable topic exchange over one channel.
type AMQPPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

// Dial connects and declares the exchange.
func Dial(url, exchange string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("broker: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("broker: channel: %w", err)
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
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("broker: declare exchange %s: %w", exchange, err)
	}
	return &AMQPPublisher{conn: conn, ch: ch, exchange: exchange}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, routingKey string, payload any) error {
	msg, err := Encode(payload, time.Now())
	if err != nil {
		return err
	}
	// amqp channels are not safe for concurrent publishing.
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ch.PublishWithContext(ctx, p.exchange, routingKey, false, false, msg); err != nil {
		return fmt.Errorf("broker: publish %s: %w", routingKey, err)
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// Message is one event seen by a LogPublisher.
type Message struct {
	RoutingKey string
	Body       []byte
}

// LogPublisher logs events and keeps them in memory.
type LogPublisher struct {
	mu   sync.Mutex
	sent []Message
}

func (p *LogPublisher) Publish(ctx context.Context, routingKey string, payload any) error {
	msg, err := Encode(payload, time.Now())
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.sent = append(p.sent, Message{RoutingKey: routingKey, Body: msg.Body})
	p.mu.Unlock()
	logger.WithCtx(ctx).Debug("broker: event", "routing_key", routingKey, "bytes", len(msg.Body))
	return nil
}

func (p *LogPublisher) Close() error { return nil }

// Sent returns a copy of the published messages.
func (p *LogPublisher) Sent() []Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Message(nil), p.sent...)
}

var (
	defaultMu  sync.RWMutex
	defaultPub Publisher = &LogPublisher{}
)

// Connect dials AMQP_URL when set; otherwise the LogPublisher stays default.
func Connect() error {
	url := config.AMQPURL()
	if url == "" {
		logger.Info("broker: AMQP_URL not set, domain events are logged only")
		return nil
	}
	p, err := Dial(url, config.AMQPExchange())
	if err != nil {
		return err
	}
	SetDefault(p)
	logger.Info("broker: connected", "exchange", config.AMQPExchange())
	return nil
}

func Default() Publisher {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultPub
}

func SetDefault(p Publisher) {
	defaultMu.Lock()
	defaultPub = p
	defaultMu.Unlock()
}
