// Package kafka provides the watermill kafka transport for execution events.
package kafka

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BabaVossRS3/FlowForge/pkg/events"
	"github.com/IBM/sarama"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
)

var ErrNoBrokers = errors.New("no kafka brokers configured, set KAFKA_BROKERS")

// ParseBrokers splits a comma separated broker list, dropping blanks.
func ParseBrokers(raw string) []string {
	var brokers []string

	for _, broker := range strings.Split(raw, ",") {
		if broker = strings.TrimSpace(broker); broker != "" {
			brokers = append(brokers, broker)
		}
	}

	return brokers
}

// PartitionKey keys kafka records by workflow id so one workflow's events stay ordered. Messages
// without a workflow id fall back to their message id.
func PartitionKey(_ string, msg *message.Message) (string, error) {
	if key := msg.Metadata.Get(events.EventMetadataKey); key != "" {
		return key, nil
	}

	return msg.UUID, nil
}

// CreateChannel connects a publisher and a subscriber in consumer group "cg-<consumerGroup>".
// New consumer groups start from the oldest retained event.
func CreateChannel(logger watermill.LoggerAdapter, brokers []string, consumerGroup string, tracing bool) (*kafka.Publisher, *kafka.Subscriber, error) {
	if len(brokers) == 0 {
		return nil, nil, ErrNoBrokers
	}

	marshaler := kafka.NewWithPartitioningMarshaler(PartitionKey)

	subscriberConfig := kafka.DefaultSaramaSubscriberConfig()
	subscriberConfig.Consumer.Offsets.Initial = sarama.OffsetOldest

	subscriber, err := kafka.NewSubscriber(
		kafka.SubscriberConfig{
			Brokers:               brokers,
			Unmarshaler:           marshaler,
			OverwriteSaramaConfig: subscriberConfig,
			ConsumerGroup:         "cg-" + consumerGroup,
			OTELEnabled:           tracing,
		},
		logger,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create kafka subscriber: %w", err)
	}

	publisherConfig := kafka.DefaultSaramaSyncPublisherConfig()
	publisherConfig.Producer.RequiredAcks = sarama.WaitForAll
	publisherConfig.Producer.Partitioner = sarama.NewHashPartitioner

	publisher, err := kafka.NewPublisher(
		kafka.PublisherConfig{
			Brokers:               brokers,
			Marshaler:             marshaler,
			OverwriteSaramaConfig: publisherConfig,
			OTELEnabled:           tracing,
		},
		logger,
	)
	if err != nil {
		_ = subscriber.Close()

		return nil, nil, fmt.Errorf("failed to create kafka publisher: %w", err)
	}

	return publisher, subscriber, nil
}
