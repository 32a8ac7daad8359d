// Package eventbus carries caseflow events over watermill publishers and subscribers.
package eventbus

import (
	"context"

	"github.com/dukex/caseflow/pkg/events"
)

// Event is anything the bus can route by type.
type Event interface {
	GetType() events.EventType
}

// EventPublisher sends events. Events sharing a key are delivered in order
// when the transport partitions.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event Event) error
}

// EventSubscriber routes incoming events to one handler per event type.
type EventSubscriber interface {
	Handle(eventType events.EventType, handler EventHandler) error
	Subscribe(ctx context.Context) error
}

// EventHandler receives a pointer to the decoded event struct.
type EventHandler func(ctx context.Context, event any) error

type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
	GenerateID() string
}
