package config

import (
	"strings"

	"github.com/segmentio/kafka-go"
)

var defaultKafkaBrokers = []string{"localhost:9092", "localhost:9093", "localhost:9094"}

// KafkaBrokerURLs splits a comma separated broker list, falling back to
// the local cluster when it is empty.
func KafkaBrokerURLs(brokers string) []string {
	var urls []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			urls = append(urls, b)
		}
	}
	if len(urls) == 0 {
		return defaultKafkaBrokers
	}
	return urls
}

func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{}, // Balancer for selecting partition
		AllowAutoTopicCreation: true,
	}
}
