// Package eventbus provides event-driven communication infrastructure for workflow runs.
package eventbus

import (
	"context"

	"github.com/ryxhub/flowengine/pkg/events"
)

type Event = events.Event

type EventPublisher interface {
	Publish(ctx context.Context, key string, event Event) error
}

type EventSubscriber interface {
	Handle(eventType events.EventType, handler EventHandler) error
	Subscribe(ctx context.Context) error
}

// EventHandler receives a decoded event; its concrete type is a pointer to the struct
// events.New returns for the event type.
type EventHandler func(ctx context.Context, event Event) error

type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
	GenerateID() string
}
