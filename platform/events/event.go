// Package events is the in-process publish/subscribe layer modules use to
// react to each other's committed changes. Event payloads live with the
// modules that publish them.
package events

import (
	"context"
	"time"
)

// Event is a committed change other modules may react to. EventName is the
// subscription key.
type Event interface {
	EventName() string
	OccurredAt() time.Time
}

// BaseEvent carries the commit time. Embed it to satisfy OccurredAt.
type BaseEvent struct {
	At time.Time `json:"occurredAt"`
}

func (e BaseEvent) OccurredAt() time.Time { return e.At }

// NewBaseEventAt stamps an event with the publisher's clock, normalized to UTC.
func NewBaseEventAt(at time.Time) BaseEvent {
	return BaseEvent{At: at.UTC()}
}

// NewBaseEvent stamps an event with the wall clock.
func NewBaseEvent() BaseEvent {
	return NewBaseEventAt(time.Now())
}

// Handler reacts to one published event. A returned error is logged by the
// bus and never reaches the publisher.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Bus routes events to the handlers subscribed under their name. Publish
// returns before handlers run; PublishSync waits and joins their errors.
type Bus interface {
	Publish(ctx context.Context, event Event)
	PublishSync(ctx context.Context, event Event) error
	Subscribe(eventName string, handler Handler)
}
