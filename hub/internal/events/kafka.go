package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// kafkaBatchTimeout bounds how long a write waits for a batch to fill.
// Each exec publishes a single message synchronously, so the writer's 1s
// default would be added to every exec.
const kafkaBatchTimeout = 10 * time.Millisecond

// KafkaPublisher writes events to a Kafka topic, keyed by sender so one
// caller's events stay ordered within a partition.
type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher creates a publisher for topic on brokers.
func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka publisher requires at least one broker")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka publisher requires a topic")
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			RequiredAcks:           kafka.RequireAll,
			Balancer:               &kafka.Hash{},
			BatchTimeout:           kafkaBatchTimeout,
			AllowAutoTopicCreation: true,
		},
	}, nil
}

// Publish writes e as a JSON message.
func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	msg, err := kafkaMessage(e)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write %s: %w", e.ID, err)
	}
	return nil
}

func kafkaMessage(e Event) (kafka.Message, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(e.Sender),
		Value: payload,
		Time:  e.Time.UTC(),
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(e.Type)},
			{Key: "id", Value: []byte(e.ID)},
		},
	}, nil
}

// Close flushes pending writes and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
