//go:build integration

package kafka_test

import (
	"context"
	"testing"
	"time"

	"github.com/BabaVossRS3/FlowForge/pkg/channels/kafka"
	"github.com/BabaVossRS3/FlowForge/pkg/eventbus"
	"github.com/BabaVossRS3/FlowForge/pkg/events"
	"github.com/IBM/sarama"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkacontainer "github.com/testcontainers/testcontainers-go/modules/kafka"
)

func startKafka(t *testing.T) []string {
	t.Helper()

	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()

	container, err := kafkacontainer.Run(ctx, "confluentinc/confluent-local:7.5.0", kafkacontainer.WithClusterID("flowforge-test"))
	require.NoError(t, err)

	t.Cleanup(func() {
		assert.NoError(t, container.Terminate(context.Background()))
	})

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)

	config := sarama.NewConfig()
	config.Version = sarama.V2_6_0_0

	admin, err := sarama.NewClusterAdmin(brokers, config)
	require.NoError(t, err)

	defer admin.Close()

	require.NoError(t, admin.CreateTopic(events.Topic, &sarama.TopicDetail{NumPartitions: 1, ReplicationFactor: 1}, false))

	return brokers
}

func TestKafkaChannel_DeliversExecutionEvents(t *testing.T) {
	brokers := startKafka(t)

	pub, sub, err := kafka.CreateChannel(watermill.NopLogger{}, brokers, "integration", false)
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)
	t.Cleanup(func() { _ = bus.Close() })

	received := make(chan *events.WorkflowExecutionFailed, 1)

	require.NoError(t, bus.Handle(events.WorkflowExecutionFailedEvent, func(_ context.Context, event any) error {
		received <- event.(*events.WorkflowExecutionFailed)

		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	require.NoError(t, bus.Subscribe(ctx))

	sent := events.WorkflowExecutionFailed{
		BaseEvent:   events.NewBaseEvent(events.WorkflowExecutionFailedEvent, "wf-1", "user-1"),
		ExecutionID: "exec-1",
		Source:      "schedule",
		Error:       "cycle detected",
	}
	require.NoError(t, bus.Publish(ctx, "wf-1", sent))

	select {
	case got := <-received:
		assert.Equal(t, "wf-1", got.WorkflowID)
		assert.Equal(t, "exec-1", got.ExecutionID)
		assert.Equal(t, "cycle detected", got.Error)
	case <-time.After(60 * time.Second):
		t.Fatal("execution event was not delivered")
	}
}
