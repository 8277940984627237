package favorites

import (
	"context"
	"strings"

	pkgerrors "github.com/angelmondragon/elitejewels-backend/pkg/errors"
	"github.com/angelmondragon/elitejewels-backend/pkg/logger"
)

// View is the favorites list as returned to callers.
type View struct {
	Items []Item `json:"items"`
	Count int    `json:"count"`
}

// Service opens a device's Store per call. Favorites are keyed by device, not
// by login.
type Service struct {
	blobs BlobStore
	logg  *logger.Logger
}

func NewService(blobs BlobStore, logg *logger.Logger) *Service {
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{blobs: blobs, logg: logg}
}

func (s *Service) List(ctx context.Context, deviceID string) (View, error) {
	store, err := s.open(ctx, deviceID)
	if err != nil {
		return View{}, err
	}
	return viewOf(store), nil
}

func (s *Service) Add(ctx context.Context, deviceID string, it Item) (View, error) {
	if strings.TrimSpace(it.ID) == "" || strings.TrimSpace(it.Name) == "" {
		return View{}, pkgerrors.New(pkgerrors.CodeValidation, "product id and name are required")
	}
	store, err := s.open(ctx, deviceID)
	if err != nil {
		return View{}, err
	}
	if err := store.Add(ctx, it); err != nil {
		return View{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save favorites")
	}
	return viewOf(store), nil
}

func (s *Service) Remove(ctx context.Context, deviceID, productID string) (View, error) {
	store, err := s.open(ctx, deviceID)
	if err != nil {
		return View{}, err
	}
	if err := store.Remove(ctx, productID); err != nil {
		return View{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save favorites")
	}
	return viewOf(store), nil
}

// Toggle likes the product when it is missing and unlikes it otherwise.
func (s *Service) Toggle(ctx context.Context, deviceID string, it Item) (bool, View, error) {
	if strings.TrimSpace(it.ID) == "" {
		return false, View{}, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	store, err := s.open(ctx, deviceID)
	if err != nil {
		return false, View{}, err
	}
	if !store.IsFavorite(it.ID) && strings.TrimSpace(it.Name) == "" {
		return false, View{}, pkgerrors.New(pkgerrors.CodeValidation, "product name is required")
	}
	liked, err := store.Toggle(ctx, it)
	if err != nil {
		return false, View{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save favorites")
	}
	return liked, viewOf(store), nil
}

// Contains reports whether productID is a favorite for the device.
func (s *Service) Contains(ctx context.Context, deviceID, productID string) (bool, error) {
	store, err := s.open(ctx, deviceID)
	if err != nil {
		return false, err
	}
	return store.IsFavorite(productID), nil
}

func (s *Service) open(ctx context.Context, deviceID string) (*Store, error) {
	if strings.TrimSpace(deviceID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "device id is required")
	}
	return Open(ctx, s.blobs, deviceID, s.logg), nil
}

func viewOf(s *Store) View {
	items := s.Items()
	return View{Items: items, Count: len(items)}
}
