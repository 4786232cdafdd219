package outbox

import (
	"context"
	"fmt"
	"time"

	"investorportal/internal/models"

	"github.com/segmentio/kafka-go"
)

// Producer publishes outbox events to a Kafka topic keyed by position id,
// so all events for one position land on the same partition in order.
type Producer struct {
	writer *kafka.Writer
	topic  string
}

// NewProducer creates a Kafka producer for the given brokers and topic.
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireAll,
	}

	return &Producer{
		writer: writer,
		topic:  topic,
	}
}

// Publish writes a batch of events and blocks until Kafka acknowledges them.
func (p *Producer) Publish(ctx context.Context, events []models.OutboxEvent) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, len(events))
	for i := range events {
		msgs[i] = Message(&events[i])
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("failed to write %d messages to %s: %w", len(msgs), p.topic, err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}

// Message converts an outbox row into the Kafka message that carries it.
func Message(evt *models.OutboxEvent) kafka.Message {
	return kafka.Message{
		Key:   []byte(evt.AggregateID),
		Value: []byte(evt.Payload),
		Time:  evt.CreatedAt,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(evt.ID)},
			{Key: "event_type", Value: []byte(evt.EventType)},
		},
	}
}
