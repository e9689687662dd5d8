package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/BabaVossRS3/FlowForge/pkg/events"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

var ErrUnknownEventType = errors.New("unknown event type")

// WatermillEventBus carries execution events on events.Topic over any watermill transport.
type WatermillEventBus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	logger     *slog.Logger

	mu       sync.RWMutex
	handlers map[events.EventType]EventHandler
}

type Option func(*WatermillEventBus)

func WithLogger(logger *slog.Logger) Option {
	return func(eb *WatermillEventBus) {
		eb.logger = logger
	}
}

func NewWatermillEventBus(pub message.Publisher, sub message.Subscriber, opts ...Option) *WatermillEventBus {
	eb := &WatermillEventBus{
		publisher:  pub,
		subscriber: sub,
		logger:     slog.Default(),
		handlers:   make(map[events.EventType]EventHandler),
	}

	for _, opt := range opts {
		opt(eb)
	}

	eb.logger = eb.logger.With("module", "eventbus")

	return eb
}

// GenerateID returns a sortable message id.
func (eb *WatermillEventBus) GenerateID() string {
	return watermill.NewULID()
}

func (eb *WatermillEventBus) Publish(ctx context.Context, workflowID string, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", event.GetType(), err)
	}

	msg := message.NewMessage(eb.GenerateID(), payload)
	msg.SetContext(ctx)
	msg.Metadata.Set(events.EventMetadataKey, workflowID)
	msg.Metadata.Set(events.EventTypeMetadataKey, string(event.GetType()))

	if err := eb.publisher.Publish(events.Topic, msg); err != nil {
		return fmt.Errorf("failed to publish %s event for workflow %s: %w", event.GetType(), workflowID, err)
	}

	return nil
}

// decodeEvent allocates the concrete event for a type name.
func decodeEvent(eventType events.EventType, payload []byte) (any, error) {
	var event any

	switch eventType {
	case events.WorkflowExecutionStartedEvent:
		event = &events.WorkflowExecutionStarted{}
	case events.WorkflowExecutionCompletedEvent:
		event = &events.WorkflowExecutionCompleted{}
	case events.WorkflowExecutionFailedEvent:
		event = &events.WorkflowExecutionFailed{}
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownEventType, eventType)
	}

	if err := json.Unmarshal(payload, event); err != nil {
		return nil, err
	}

	return event, nil
}

// Handle registers the handler for one event type, replacing any earlier one.
func (eb *WatermillEventBus) Handle(eventType events.EventType, handler EventHandler) error {
	if handler == nil {
		return fmt.Errorf("nil handler for %s", eventType)
	}

	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.handlers[eventType] = handler

	return nil
}

// Subscribe consumes events.Topic until ctx is done. Messages nobody handles and messages that
// cannot be decoded are acked and dropped; a handler error nacks the message for redelivery.
func (eb *WatermillEventBus) Subscribe(ctx context.Context) error {
	messages, err := eb.subscriber.Subscribe(ctx, events.Topic)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", events.Topic, err)
	}

	go func() {
		for msg := range messages {
			eb.dispatch(ctx, msg)
		}
	}()

	return nil
}

func (eb *WatermillEventBus) dispatch(ctx context.Context, msg *message.Message) {
	eventType := events.EventType(msg.Metadata.Get(events.EventTypeMetadataKey))

	eb.mu.RLock()
	handler, ok := eb.handlers[eventType]
	eb.mu.RUnlock()

	if !ok {
		msg.Ack()

		return
	}

	event, err := decodeEvent(eventType, msg.Payload)
	if err != nil {
		eb.logger.WarnContext(ctx, "dropping undecodable event", "message_id", msg.UUID, "event_type", eventType, "error", err)
		msg.Ack()

		return
	}

	if err := handler(ctx, event); err != nil {
		eb.logger.ErrorContext(ctx, "event handler failed", "message_id", msg.UUID, "event_type", eventType, "error", err)
		msg.Nack()

		return
	}

	msg.Ack()
}

// Close closes the publisher, and the subscriber when it is a separate object.
func (eb *WatermillEventBus) Close() error {
	err := eb.publisher.Close()

	if eb.subscriber != nil && any(eb.subscriber) != any(eb.publisher) {
		err = errors.Join(err, eb.subscriber.Close())
	}

	return err
}
