package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// TurnEvent is published once per processed turn.
type TurnEvent struct {
	ID               string    `json:"id"`
	SessionID        string    `json:"session_id"`
	UserID           string    `json:"user_id,omitempty"`
	ResponderID      string    `json:"responder_id"`
	Stage            string    `json:"stage"`
	Deep             bool      `json:"deep"`
	Complexity       float64   `json:"complexity"`
	TasksCompleted   int       `json:"tasks_completed,omitempty"`
	TotalTasks       int       `json:"total_tasks,omitempty"`
	ProcessingTimeMs int64     `json:"processing_time_ms"`
	Degraded         bool      `json:"degraded"`
	Error            string    `json:"error,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}

// Publisher sends turn events to an external sink.
type Publisher interface {
	Publish(ctx context.Context, ev TurnEvent) error
	Close() error
}

// NopPublisher discards events.
type NopPublisher struct{}

// Publish does nothing.
func (NopPublisher) Publish(context.Context, TurnEvent) error { return nil }

// Close does nothing.
func (NopPublisher) Close() error { return nil }

// DefaultExchange is used when AMQPConfig.Exchange is empty.
const DefaultExchange = "concierge.turns"

// AMQPConfig describes the broker connection.
type AMQPConfig struct {
	URL      string
	Exchange string
}

// AMQPPublisher publishes turn events to a topic exchange.
// Routing keys are "turn.<responder id>".
type AMQPPublisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

// NewAMQPPublisher connects to the broker and declares the exchange.
func NewAMQPPublisher(cfg AMQPConfig) (*AMQPPublisher, error) {
	if cfg.URL == "" {
		return nil, errors.New("amqp url is required")
	}
	exchange := cfg.Exchange
	if exchange == "" {
		exchange = DefaultExchange
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to amqp broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return &AMQPPublisher{conn: conn, ch: ch, exchange: exchange}, nil
}

// Publish sends ev as JSON.
func (p *AMQPPublisher) Publish(ctx context.Context, ev TurnEvent) error {
	if p == nil || p.ch == nil {
		return errors.New("amqp publisher not initialized")
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal turn event: %w", err)
	}
	return p.ch.PublishWithContext(ctx, p.exchange, RoutingKey(ev), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.ID,
		Timestamp:    ev.Timestamp,
		Body:         body,
	})
}

// Close closes the channel and connection.
func (p *AMQPPublisher) Close() error {
	if p == nil {
		return nil
	}
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// RoutingKey returns the routing key for ev.
func RoutingKey(ev TurnEvent) string {
	if ev.ResponderID == "" {
		return "turn.unknown"
	}
	return "turn." + ev.ResponderID
}
