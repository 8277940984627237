package pubsub

import (
	"context"
	"errors"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
)

// Emitter publishes enveloped domain events to one topic and waits for the
// server ack.
type Emitter struct {
	publisher *pubsub.Publisher
	now       func() time.Time
}

func NewEmitter(publisher *pubsub.Publisher) *Emitter {
	return &Emitter{publisher: publisher, now: time.Now}
}

// Emit encodes data under eventType and publishes it.
func (e *Emitter) Emit(ctx context.Context, eventType string, data any) error {
	return e.EmitAt(ctx, "", eventType, e.clock(), data)
}

// EmitAt publishes a previously recorded event. A non-empty eventID is
// carried in the event_id attribute so subscribers can drop redeliveries.
func (e *Emitter) EmitAt(ctx context.Context, eventID, eventType string, occurredAt time.Time, data any) error {
	if e == nil || e.publisher == nil {
		return errors.New("pubsub publisher not configured")
	}
	msg, err := EncodeEvent(eventType, occurredAt, data)
	if err != nil {
		return err
	}
	if eventID != "" {
		msg.Attributes["event_id"] = eventID
	}
	_, err = e.publisher.Publish(ctx, msg).Get(ctx)
	return err
}

func (e *Emitter) clock() time.Time {
	if e == nil || e.now == nil {
		return time.Now()
	}
	return e.now()
}

// Stop flushes pending messages.
func (e *Emitter) Stop() {
	if e != nil && e.publisher != nil {
		e.publisher.Stop()
	}
}
