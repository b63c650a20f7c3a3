package datalayer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/andreasstove999/ecommerce-system/analytics-service-go/internal/ecommerce"
)

const (
	EventsExchange       = "ecommerce.events"
	DataLayerRoutingKey  = "analytics.datalayer.v1"
	headerSessionID      = "session_id"
	rabbitPublishTimeout = 3 * time.Second
)

type amqpPublisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// SharedChannel serializes publishes from many sessions onto one channel.
type SharedChannel struct {
	mu sync.Mutex
	ch *amqp.Channel
}

// OpenSharedChannel opens a channel and declares the events exchange.
func OpenSharedChannel(conn *amqp.Connection, exchange string) (*SharedChannel, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := declareEventsExchange(ch, exchange); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare events exchange: %w", err)
	}
	return &SharedChannel{ch: ch}, nil
}

func (c *SharedChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ch.PublishWithContext(ctx, exchange, key, mandatory, immediate, msg)
}

func (c *SharedChannel) Close() error {
	return c.ch.Close()
}

func declareEventsExchange(ch *amqp.Channel, exchange string) error {
	return ch.ExchangeDeclare(
		exchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
}

type RabbitOptions struct {
	Exchange   string
	RoutingKey string
	// Enveloped wraps each entry in an Envelope instead of publishing the
	// bare data layer entry.
	Enveloped bool
}

// RabbitSink forwards a session's data layer entries to a topic exchange.
type RabbitSink struct {
	ch         amqpPublisher
	sessionID  string
	exchange   string
	routingKey string
	enveloped  bool
	seq        atomic.Int64
}

func NewRabbitSink(ch amqpPublisher, sessionID string, opts RabbitOptions) *RabbitSink {
	exchange := opts.Exchange
	if exchange == "" {
		exchange = EventsExchange
	}
	routingKey := opts.RoutingKey
	if routingKey == "" {
		routingKey = DataLayerRoutingKey
	}
	return &RabbitSink{
		ch:         ch,
		sessionID:  sessionID,
		exchange:   exchange,
		routingKey: routingKey,
		enveloped:  opts.Enveloped,
	}
}

func (s *RabbitSink) Name() string {
	return "rabbitmq"
}

func (s *RabbitSink) Reset(ctx context.Context) error {
	return s.publish(ctx, ecommerce.ResetMarker())
}

func (s *RabbitSink) Append(ctx context.Context, ev ecommerce.Event) error {
	return s.publish(ctx, ev)
}

func (s *RabbitSink) publish(ctx context.Context, ev ecommerce.Event) error {
	body, messageID, err := s.encode(ev)
	if err != nil {
		return err
	}

	pubCtx, cancel := context.WithTimeout(ctx, rabbitPublishTimeout)
	defer cancel()

	return s.ch.PublishWithContext(
		pubCtx,
		s.exchange,
		s.routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    messageID,
			Timestamp:    time.Now().UTC(),
			Headers:      amqp.Table{headerSessionID: s.sessionID},
			Body:         body,
		},
	)
}

func (s *RabbitSink) encode(ev ecommerce.Event) ([]byte, string, error) {
	if !s.enveloped {
		body, err := json.Marshal(ev)
		if err != nil {
			return nil, "", fmt.Errorf("marshal entry: %w", err)
		}
		return body, uuid.NewString(), nil
	}

	env, err := newEnvelope(s.sessionID, s.seq.Add(1), ev)
	if err != nil {
		return nil, "", err
	}
	if err := env.Validate(); err != nil {
		return nil, "", fmt.Errorf("invalid envelope: %w", err)
	}
	body, err := json.Marshal(env)
	if err != nil {
		return nil, "", fmt.Errorf("marshal envelope: %w", err)
	}
	return body, env.EventID, nil
}
