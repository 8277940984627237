// Package realtime is the change-notification feed: row changes on watched
// tables and auth-state changes are fanned out to in-process subscribers.
package realtime

import (
	"context"
	"encoding/json"
	"time"
)

type ChangeType string

const (
	Insert         ChangeType = "INSERT"
	Update         ChangeType = "UPDATE"
	Delete         ChangeType = "DELETE"
	SignedIn       ChangeType = "SIGNED_IN"
	SignedOut      ChangeType = "SIGNED_OUT"
	TokenRefreshed ChangeType = "TOKEN_REFRESHED"
)

const (
	TopicMarketRates = "market_rates"
	topicAuthPrefix  = "auth:"
)

// AuthTopic scopes auth-state events to a single user.
func AuthTopic(userID string) string {
	return topicAuthPrefix + userID
}

// Event is one change notification. New/Old carry the row images for table
// changes; Subject names the affected user for auth events.
type Event struct {
	Topic   string          `json:"topic"`
	Type    ChangeType      `json:"type"`
	New     json.RawMessage `json:"new,omitempty"`
	Old     json.RawMessage `json:"old,omitempty"`
	Subject string          `json:"subject,omitempty"`
	At      time.Time       `json:"at"`
}

// NewRowEvent builds a table change event, encoding the row images.
func NewRowEvent(topic string, kind ChangeType, newRow, oldRow any) (Event, error) {
	evt := Event{Topic: topic, Type: kind, At: time.Now().UTC()}
	var err error
	if newRow != nil {
		if evt.New, err = json.Marshal(newRow); err != nil {
			return Event{}, err
		}
	}
	if oldRow != nil {
		if evt.Old, err = json.Marshal(oldRow); err != nil {
			return Event{}, err
		}
	}
	return evt, nil
}

// Handler receives events. Handlers must not block for long.
type Handler func(ctx context.Context, evt Event)

// Subscription is the handle returned by Subscribe.
type Subscription interface {
	Unsubscribe()
}

// Feed publishes and delivers events by topic.
type Feed interface {
	Publish(ctx context.Context, evt Event) error
	Subscribe(ctx context.Context, topic string, fn Handler) (Subscription, error)
}

type subscriptionFunc func()

func (f subscriptionFunc) Unsubscribe() { f() }
