// Package eventbus publishes workflow execution events and dispatches them to handlers by type.
package eventbus

import (
	"context"
	"errors"
	"fmt"

	"github.com/BabaVossRS3/FlowForge/pkg/events"
)

var ErrUnexpectedEvent = errors.New("unexpected event type")

// Event is a workflow execution event. Its type selects the decoder on the consuming side.
type Event interface {
	GetType() events.EventType
}

// EventPublisher publishes events keyed by workflow id, so partitioned transports keep the events
// of one workflow in order.
type EventPublisher interface {
	Publish(ctx context.Context, workflowID string, event Event) error
}

// EventHandler receives a decoded pointer event such as *events.WorkflowExecutionFailed.
type EventHandler func(ctx context.Context, event any) error

// EventSubscriber registers handlers, then starts consuming with Subscribe.
type EventSubscriber interface {
	Handle(eventType events.EventType, handler EventHandler) error
	Subscribe(ctx context.Context) error
}

type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
}

// Typed adapts a handler written for one concrete event type.
func Typed[T any](handler func(ctx context.Context, event *T) error) EventHandler {
	return func(ctx context.Context, event any) error {
		typed, ok := event.(*T)
		if !ok {
			return fmt.Errorf("%w: %T", ErrUnexpectedEvent, event)
		}

		return handler(ctx, typed)
	}
}
