// Package eventbus carries contact events into the engine and execution lifecycle events out of it.
package eventbus

import (
	"context"

	"github.com/campaignhq/automation/pkg/events"
)

// Event is any message published on the bus. Its type selects the handler on the consuming side.
type Event interface {
	GetType() events.EventType
}

// EventPublisher publishes events. key is the partition key: the contact id for contact
// events and the workflow id for lifecycle events, so events of one key stay ordered.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event Event) error
}

// EventSubscriber dispatches consumed events to one handler per event type.
// Handlers must be registered before Subscribe.
type EventSubscriber interface {
	Handle(eventType events.EventType, handler EventHandler) error
	Subscribe(ctx context.Context) error
}

// EventHandler receives a decoded event pointer, such as *events.ContactEvent.
// A returned error nacks the message.
type EventHandler func(ctx context.Context, event any) error

type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
	GenerateID() string
}

var _ EventBus = (*WatermillEventBus)(nil)
