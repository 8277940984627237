package favorites

import (
	"context"
	"sync"
	"time"

	"github.com/angelmondragon/elitejewels-backend/pkg/redis"
)

type redisBlobs interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	FavoritesKey(deviceID string) string
}

// RedisBlobStore keeps favorites blobs in redis without expiry.
type RedisBlobStore struct {
	client redisBlobs
}

func NewRedisBlobStore(client redisBlobs) *RedisBlobStore {
	return &RedisBlobStore{client: client}
}

func (r *RedisBlobStore) Load(ctx context.Context, key string) (string, bool, error) {
	raw, err := r.client.Get(ctx, r.client.FavoritesKey(key))
	if err != nil {
		if redis.IsMiss(err) {
			return "", false, nil
		}
		return "", false, err
	}
	return raw, true, nil
}

func (r *RedisBlobStore) Save(ctx context.Context, key, data string) error {
	return r.client.Set(ctx, r.client.FavoritesKey(key), data, 0)
}

// MemoryBlobStore is the process-local fallback used when redis is not wired.
type MemoryBlobStore struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemoryBlobStore() *MemoryBlobStore {
	return &MemoryBlobStore{data: map[string]string{}}
}

func (m *MemoryBlobStore) Load(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemoryBlobStore) Save(_ context.Context, key, data string) error {
	m.mu.Lock()
	m.data[key] = data
	m.mu.Unlock()
	return nil
}
