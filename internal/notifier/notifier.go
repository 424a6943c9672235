// Package notifier publishes catalog events to a message topic.
package notifier

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "notifier").Logger()

// Publisher delivers a message body to a single, preconfigured topic.
// The key identifies the kind of event.
type Publisher interface {
	Publish(ctx context.Context, key string, body []byte) error
	Close() error
}

// Backend names accepted by New.
const (
	BackendNone  = "none"
	BackendSNS   = "sns"
	BackendKafka = "kafka"
)

// Options selects and configures a Publisher.
type Options struct {
	Backend string
	Topic   string
	Brokers []string
	Region  string
}

// New builds the publisher for opts.Backend. Without a topic there is
// nowhere to publish, so the no-op publisher is returned.
func New(ctx context.Context, opts Options) (Publisher, error) {
	if opts.Topic == "" || opts.Backend == BackendNone || opts.Backend == "" {
		logger.Info().Msg("Notifications disabled")
		return Nop{}, nil
	}

	switch opts.Backend {
	case BackendSNS:
		return NewSNSPublisherFromEnv(ctx, opts.Topic, opts.Region)
	case BackendKafka:
		return NewKafkaPublisher(opts.Brokers, opts.Topic), nil
	default:
		return nil, fmt.Errorf("unknown notify backend: %q (supported: sns, kafka, none)", opts.Backend)
	}
}

// Nop discards every message.
type Nop struct{}

func (Nop) Publish(context.Context, string, []byte) error { return nil }

func (Nop) Close() error { return nil }
