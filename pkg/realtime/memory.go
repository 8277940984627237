package realtime

import (
	"context"
	"errors"
	"sync"
)

// MemoryFeed delivers events synchronously to subscribers of the same process.
type MemoryFeed struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]Handler
}

func NewMemoryFeed() *MemoryFeed {
	return &MemoryFeed{subs: make(map[string]map[int]Handler)}
}

func (f *MemoryFeed) Publish(ctx context.Context, evt Event) error {
	if evt.Topic == "" {
		return errors.New("event topic is required")
	}
	f.mu.RLock()
	handlers := make([]Handler, 0, len(f.subs[evt.Topic]))
	for _, h := range f.subs[evt.Topic] {
		handlers = append(handlers, h)
	}
	f.mu.RUnlock()

	for _, h := range handlers {
		h(ctx, evt)
	}
	return nil
}

// Subscribe registers fn for topic. The registration is dropped on
// Unsubscribe or when ctx is cancelled, whichever comes first.
func (f *MemoryFeed) Subscribe(ctx context.Context, topic string, fn Handler) (Subscription, error) {
	if topic == "" || fn == nil {
		return nil, errors.New("topic and handler are required")
	}
	f.mu.Lock()
	f.nextID++
	id := f.nextID
	if f.subs[topic] == nil {
		f.subs[topic] = make(map[int]Handler)
	}
	f.subs[topic][id] = fn
	f.mu.Unlock()

	var once sync.Once
	stop := make(chan struct{})
	remove := func() {
		once.Do(func() {
			close(stop)
			f.mu.Lock()
			delete(f.subs[topic], id)
			if len(f.subs[topic]) == 0 {
				delete(f.subs, topic)
			}
			f.mu.Unlock()
		})
	}
	if ctx != nil && ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				remove()
			case <-stop:
			}
		}()
	}
	return subscriptionFunc(remove), nil
}

// Subscribers reports how many handlers are registered on topic.
func (f *MemoryFeed) Subscribers(topic string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs[topic])
}
