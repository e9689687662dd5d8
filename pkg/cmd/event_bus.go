package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/BabaVossRS3/FlowForge/pkg/channels/gochannel"
	"github.com/BabaVossRS3/FlowForge/pkg/channels/kafka"
	"github.com/BabaVossRS3/FlowForge/pkg/eventbus"
	"github.com/ThreeDotsLabs/watermill"
)

var ErrInvalidConfiguration = errors.New("invalid configuration")

// NewEventBus creates the execution event bus. "gochannel" (the default) keeps events in process.
func NewEventBus(provider, kafkaBrokers string, tracing bool, logger *slog.Logger) (eventbus.EventBus, error) {
	watermillLogger := watermill.NewSlogLogger(logger)

	switch provider {
	case "kafka":
		pub, sub, err := kafka.CreateChannel(watermillLogger, kafka.ParseBrokers(kafkaBrokers), "flowforge", tracing)
		if err != nil {
			return nil, fmt.Errorf("failed to create Kafka pub/sub: %w", err)
		}

		return eventbus.NewWatermillEventBus(pub, sub, eventbus.WithLogger(logger)), nil
	case "", "gochannel":
		pub, sub, err := gochannel.CreateChannel(watermillLogger)
		if err != nil {
			return nil, fmt.Errorf("failed to create in-process pub/sub: %w", err)
		}

		return eventbus.NewWatermillEventBus(pub, sub, eventbus.WithLogger(logger)), nil
	default:
		return nil, fmt.Errorf("%w: unsupported event bus provider %q", ErrInvalidConfiguration, provider)
	}
}
