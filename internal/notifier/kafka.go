package notifier

import (
	"art-catalog-service/internal/config"
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes each message to a Kafka topic.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
}

// NewKafkaPublisher creates a publisher writing to topic on brokers.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{writer: config.NewKafkaWriter(brokers, topic), topic: topic}
}

func (p *KafkaPublisher) Publish(ctx context.Context, key string, body []byte) error {
	msg := kafka.Message{
		Key:   []byte(key),
		Value: body,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("notifier.Kafka: write to %s: %w", p.topic, err)
	}

	logger.Debug().Msgf("Published %s to kafka topic %s", key, p.topic)
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
