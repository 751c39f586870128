package operations

import (
	"context"

	"agrirank/pkg/contracts/events"
)

// EventSink receives the stage transitions of a run.
type EventSink interface {
	Publish(ctx context.Context, event events.RunEvent)
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(ctx context.Context, event events.RunEvent)

// Publish calls f.
func (f EventSinkFunc) Publish(ctx context.Context, event events.RunEvent) {
	f(ctx, event)
}

type discardSink struct{}

func (discardSink) Publish(context.Context, events.RunEvent) {}

// Hub fans messages out to connected clients.
type Hub interface {
	Broadcast(messageType string, payload interface{})
}
