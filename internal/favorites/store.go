// Package favorites keeps a device's liked products. The whole list is
// written back to a keyed blob on every change.
package favorites

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/angelmondragon/elitejewels-backend/pkg/logger"
)

// Item is a liked product reference.
type Item struct {
	ID        string `json:"id" validate:"required"`
	Name      string `json:"name" validate:"required"`
	Image     string `json:"image"`
	MinWeight string `json:"minWeight"`
	Code      string `json:"code"`
	Category  string `json:"category"`
}

// BlobStore persists one encoded blob per key. Load reports found=false for
// a missing key.
type BlobStore interface {
	Load(ctx context.Context, key string) (data string, found bool, err error)
	Save(ctx context.Context, key, data string) error
}

// Store is an ordered set of favorites keyed by product id.
type Store struct {
	blobs BlobStore
	key   string
	logg  *logger.Logger

	mu    sync.Mutex
	items []Item
	index map[string]struct{}
}

// Open loads the favorites stored under key. Read failures and corrupt blobs
// are logged and start an empty set.
func Open(ctx context.Context, blobs BlobStore, key string, logg *logger.Logger) *Store {
	if logg == nil {
		logg = logger.Nop()
	}
	s := &Store{blobs: blobs, key: key, logg: logg, index: map[string]struct{}{}}
	ctx = logg.WithDeviceID(ctx, key)

	raw, found, err := blobs.Load(ctx, key)
	if err != nil {
		logg.Error(ctx, "favorites.load_failed", err)
		return s
	}
	if !found || raw == "" {
		return s
	}
	var items []Item
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		logg.Warn(ctx, "favorites.corrupt_blob_discarded")
		return s
	}
	for _, it := range items {
		if it.ID == "" {
			continue
		}
		if _, dup := s.index[it.ID]; dup {
			continue
		}
		s.index[it.ID] = struct{}{}
		s.items = append(s.items, it)
	}
	return s
}

// Add is a no-op when the id is already present.
func (s *Store) Add(ctx context.Context, it Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.index[it.ID]; ok {
		return nil
	}
	s.index[it.ID] = struct{}{}
	s.items = append(s.items, it)
	return s.persistLocked(ctx)
}

func (s *Store) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.index[id]; !ok {
		return nil
	}
	delete(s.index, id)
	for i := range s.items {
		if s.items[i].ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			break
		}
	}
	return s.persistLocked(ctx)
}

// Toggle flips membership and reports whether id is now a favorite.
func (s *Store) Toggle(ctx context.Context, it Item) (bool, error) {
	if s.IsFavorite(it.ID) {
		return false, s.Remove(ctx, it.ID)
	}
	return true, s.Add(ctx, it)
}

func (s *Store) IsFavorite(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.index[id]
	return ok
}

func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Items returns the favorites in the order they were added.
func (s *Store) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store) persistLocked(ctx context.Context) error {
	items := s.items
	if items == nil {
		items = []Item{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return s.blobs.Save(ctx, s.key, string(raw))
}
