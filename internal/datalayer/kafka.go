package datalayer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/andreasstove999/ecommerce-system/analytics-service-go/internal/ecommerce"
)

// Each push is written synchronously, so the writer must not sit on a
// partial batch for kafka-go's default second.
const kafkaBatchTimeout = 10 * time.Millisecond

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// NewKafkaWriter returns a writer that hashes message keys, so all entries of
// one session land on the same partition in push order.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           kafkaBatchTimeout,
		AllowAutoTopicCreation: true,
	}
}

type KafkaSink struct {
	w   messageWriter
	key []byte
}

func NewKafkaSink(w messageWriter, sessionID string) *KafkaSink {
	return &KafkaSink{w: w, key: []byte(sessionID)}
}

func (s *KafkaSink) Name() string {
	return "kafka"
}

func (s *KafkaSink) Reset(ctx context.Context) error {
	return s.write(ctx, ecommerce.ResetMarker())
}

func (s *KafkaSink) Append(ctx context.Context, ev ecommerce.Event) error {
	return s.write(ctx, ev)
}

func (s *KafkaSink) write(ctx context.Context, ev ecommerce.Event) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}
	msg := kafka.Message{
		Key:   s.key,
		Value: value,
	}
	if ev.Name != "" {
		msg.Headers = []kafka.Header{{Key: "event", Value: []byte(ev.Name)}}
	}
	if err := s.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write failed: %w", err)
	}
	return nil
}
