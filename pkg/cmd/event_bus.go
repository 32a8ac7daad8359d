package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/dukex/caseflow/pkg/channels/gochannel"
	"github.com/dukex/caseflow/pkg/channels/kafka"
)

const serviceName = "caseflow"

// NewChannel opens the watermill transport shared by the event bus and the
// action outbox. An empty provider selects the in-memory channel.
func NewChannel(provider string, logger *slog.Logger, brokers string) (message.Publisher, message.Subscriber, error) {
	wmLogger := watermill.NewSlogLogger(logger)

	switch provider {
	case "", "gochannel":
		pub, sub, err := gochannel.CreateChannel(wmLogger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create in-memory pub/sub: %w", err)
		}

		return pub, sub, nil
	case "kafka":
		pub, sub, err := kafka.CreateChannel(wmLogger, kafka.ParseBrokers(brokers), serviceName)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create Kafka pub/sub: %w", err)
		}

		return pub, sub, nil
	default:
		return nil, nil, fmt.Errorf("unsupported event bus provider: %s", provider)
	}
}
