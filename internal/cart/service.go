package cart

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/elitejewels-backend/pkg/errors"
	"github.com/angelmondragon/elitejewels-backend/pkg/logger"
	"github.com/angelmondragon/elitejewels-backend/pkg/redis"
)

type blobStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CartKey(userID string) string
}

// View is the cart as returned to callers.
type View struct {
	Items         []Item `json:"items"`
	Count         int    `json:"count"`
	TotalQuantity int    `json:"total_quantity"`
}

func viewOf(s *Store) View {
	return View{Items: s.Items(), Count: s.Count(), TotalQuantity: s.TotalQuantity()}
}

// Service persists one cart per user. Every mutation is load, apply, save;
// concurrent writers to the same cart resolve as last write wins.
type Service struct {
	store blobStore
	ttl   time.Duration
	logg  *logger.Logger
}

func NewService(store blobStore, ttl time.Duration, logg *logger.Logger) (*Service, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart store is required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{store: store, ttl: ttl, logg: logg}, nil
}

func (s *Service) Get(ctx context.Context, userID string) (View, error) {
	cart, err := s.load(ctx, userID)
	if err != nil {
		return View{}, err
	}
	return viewOf(cart), nil
}

func (s *Service) Add(ctx context.Context, userID string, p Product) (View, error) {
	if strings.TrimSpace(p.ID) == "" || strings.TrimSpace(p.Name) == "" {
		return View{}, pkgerrors.New(pkgerrors.CodeValidation, "product id and name are required")
	}
	return s.mutate(ctx, userID, func(c *Store) { c.AddToCart(p) })
}

func (s *Service) UpdateQuantity(ctx context.Context, userID, productID string, quantity int) (View, error) {
	return s.mutate(ctx, userID, func(c *Store) { c.UpdateQuantity(productID, quantity) })
}

func (s *Service) Remove(ctx context.Context, userID, productID string) (View, error) {
	return s.mutate(ctx, userID, func(c *Store) { c.RemoveFromCart(productID) })
}

func (s *Service) Clear(ctx context.Context, userID string) error {
	if userID == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "login required")
	}
	if err := s.store.Del(ctx, s.store.CartKey(userID)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

func (s *Service) mutate(ctx context.Context, userID string, fn func(*Store)) (View, error) {
	cart, err := s.load(ctx, userID)
	if err != nil {
		return View{}, err
	}
	fn(cart)
	if err := s.save(ctx, userID, cart); err != nil {
		return View{}, err
	}
	return viewOf(cart), nil
}

// load returns the stored cart. Missing or unreadable blobs start empty.
func (s *Service) load(ctx context.Context, userID string) (*Store, error) {
	if userID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "login required")
	}
	raw, err := s.store.Get(ctx, s.store.CartKey(userID))
	if err != nil {
		if redis.IsMiss(err) {
			return NewStore(nil), nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	var items []Item
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		s.logg.Warn(s.logg.WithUserID(ctx, userID), "cart.decode_failed")
		return NewStore(nil), nil
	}
	return NewStore(items), nil
}

func (s *Service) save(ctx context.Context, userID string, cart *Store) error {
	raw, err := json.Marshal(cart.Items())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode cart")
	}
	if err := s.store.Set(ctx, s.store.CartKey(userID), string(raw), s.ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart")
	}
	return nil
}
