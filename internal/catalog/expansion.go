package catalog

import (
	"context"
	"sync"
	"time"

	"github.com/angelmondragon/elitejewels-backend/pkg/redis"
)

// Expansions remembers which filter combinations a viewer asked to see in full.
type Expansions interface {
	IsExpanded(ctx context.Context, viewer, key string) (bool, error)
	Expand(ctx context.Context, viewer, key string) error
}

type expansionKV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	ExpansionKey(viewer, combo string) string
}

// RedisExpansions keeps one flag key per viewer and combination.
type RedisExpansions struct {
	kv  expansionKV
	ttl time.Duration
}

func NewRedisExpansions(kv expansionKV, ttl time.Duration) *RedisExpansions {
	return &RedisExpansions{kv: kv, ttl: ttl}
}

func (r *RedisExpansions) IsExpanded(ctx context.Context, viewer, key string) (bool, error) {
	if _, err := r.kv.Get(ctx, r.kv.ExpansionKey(viewer, key)); err != nil {
		if redis.IsMiss(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *RedisExpansions) Expand(ctx context.Context, viewer, key string) error {
	return r.kv.Set(ctx, r.kv.ExpansionKey(viewer, key), "1", r.ttl)
}

// MemoryExpansions is the in-process tracker used in tests and single-node dev runs.
type MemoryExpansions struct {
	mu   sync.RWMutex
	seen map[string]map[string]struct{}
}

func NewMemoryExpansions() *MemoryExpansions {
	return &MemoryExpansions{seen: map[string]map[string]struct{}{}}
}

func (m *MemoryExpansions) IsExpanded(_ context.Context, viewer, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.seen[viewer][key]
	return ok, nil
}

func (m *MemoryExpansions) Expand(_ context.Context, viewer, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen[viewer] == nil {
		m.seen[viewer] = map[string]struct{}{}
	}
	m.seen[viewer][key] = struct{}{}
	return nil
}
