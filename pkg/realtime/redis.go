package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/angelmondragon/elitejewels-backend/pkg/logger"
	goredis "github.com/redis/go-redis/v9"
)

type redisBackend interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	Subscribe(ctx context.Context, topic string) (*goredis.PubSub, error)
}

// RedisFeed fans events out across API instances over Redis pub/sub.
type RedisFeed struct {
	backend redisBackend
	logg    *logger.Logger
}

func NewRedisFeed(backend redisBackend, logg *logger.Logger) *RedisFeed {
	if logg == nil {
		logg = logger.Nop()
	}
	return &RedisFeed{backend: backend, logg: logg}
}

func (f *RedisFeed) Publish(ctx context.Context, evt Event) error {
	if evt.Topic == "" {
		return errors.New("event topic is required")
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return f.backend.Publish(ctx, evt.Topic, payload)
}

// Subscribe delivers decoded events to fn on a dedicated goroutine until
// Unsubscribe is called or ctx ends. Undecodable payloads are logged and skipped.
func (f *RedisFeed) Subscribe(ctx context.Context, topic string, fn Handler) (Subscription, error) {
	if topic == "" || fn == nil {
		return nil, errors.New("topic and handler are required")
	}
	sub, err := f.backend.Subscribe(ctx, topic)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	var once sync.Once
	stop := func() {
		once.Do(func() {
			cancel()
			_ = sub.Close()
		})
	}

	go func() {
		defer stop()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case <-runCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				evt, err := decodeEvent(msg.Payload)
				if err != nil {
					f.logg.Warn(f.logg.WithField(runCtx, "topic", topic), "realtime.decode_failed")
					continue
				}
				fn(runCtx, evt)
			}
		}
	}()

	return subscriptionFunc(stop), nil
}

func decodeEvent(payload string) (Event, error) {
	var evt Event
	if err := json.Unmarshal([]byte(payload), &evt); err != nil {
		return Event{}, err
	}
	if evt.Topic == "" || evt.Type == "" {
		return Event{}, errors.New("event missing topic or type")
	}
	return evt, nil
}
