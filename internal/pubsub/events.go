// Package pubsub is a small generic publish/subscribe broker. markstyle uses
// it to carry highlight results from resolver workers, file change
// notifications and log lines into the viewer's update loop.
package pubsub

import (
	"context"
	"time"
)

// EventType tags what happened to the payload.
type EventType string

const (
	CreatedEvent  EventType = "created"
	ResolvedEvent EventType = "resolved"
	FailedEvent   EventType = "failed"
	ChangedEvent  EventType = "changed"
)

// Event wraps a payload with its type and publish time.
type Event[T any] struct {
	Type      EventType
	Payload   T
	Timestamp time.Time
}

// Subscriber provides a subscription channel for events.
type Subscriber[T any] interface {
	Subscribe(ctx context.Context) <-chan Event[T]
}

// Publisher publishes events with a typed payload.
type Publisher[T any] interface {
	Publish(eventType EventType, payload T)
}
