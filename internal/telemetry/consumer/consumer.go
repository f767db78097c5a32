// Package consumer reads telemetry events from Kafka and hands them to sinks (Loki, Postgres).
package consumer

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/segmentio/kafka-go"

	"storefront/backend/internal/telemetry/domain"
)

// Sink receives decoded events. Sinks are best-effort; failures are logged.
type Sink interface {
	Write(ctx context.Context, e *domain.Event) error
}

// messageReader is the subset of *kafka.Reader used by Consumer.
type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Consumer drains one topic into its sinks.
type Consumer struct {
	reader      messageReader
	sinks       []Sink
	sinkTimeout time.Duration
}

// NewKafkaConsumer returns a Consumer reading topic as part of groupID.
func NewKafkaConsumer(brokers []string, topic, groupID string, sinks ...Sink) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		MaxWait:        time.Second,
		CommitInterval: time.Second,
	})
	return newConsumer(reader, sinks...)
}

func newConsumer(reader messageReader, sinks ...Sink) *Consumer {
	return &Consumer{reader: reader, sinks: sinks, sinkTimeout: 10 * time.Second}
}

// Run consumes until ctx is cancelled. Undecodable messages are skipped.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Printf("consumer: kafka read error: %v", err)
			continue
		}
		var event domain.Event
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			log.Printf("consumer: skipping undecodable message at offset %d: %v", msg.Offset, err)
			continue
		}
		c.dispatch(ctx, &event)
	}
}

func (c *Consumer) dispatch(ctx context.Context, event *domain.Event) {
	for _, sink := range c.sinks {
		sinkCtx, cancel := context.WithTimeout(ctx, c.sinkTimeout)
		if err := sink.Write(sinkCtx, event); err != nil {
			log.Printf("consumer: sink %T failed for %s: %v", sink, event.EventType, err)
		}
		cancel()
	}
}

// Close closes the Kafka reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
