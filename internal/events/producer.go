// Package events publishes match lifecycle events to Kafka for downstream
// consumers (analytics, ETA reconciliation). Publishing is best effort and
// never gates a state transition.
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// Producer writes keyed messages to a single topic.
type Producer struct {
	writer *kafka.Writer
}

// NewProducer builds a producer for the given brokers and topic.
func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 50 * time.Millisecond,
			RequiredAcks: kafka.RequireOne,
		},
	}
}

// Publish writes one message keyed for per-group ordering.
func (p *Producer) Publish(ctx context.Context, key string, value []byte) error {
	err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Close flushes and shuts down the underlying writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
