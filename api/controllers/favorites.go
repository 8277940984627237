package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/elitejewels-backend/api/middleware"
	"github.com/angelmondragon/elitejewels-backend/api/responses"
	"github.com/angelmondragon/elitejewels-backend/api/validators"
	"github.com/angelmondragon/elitejewels-backend/internal/favorites"
	"github.com/angelmondragon/elitejewels-backend/pkg/logger"
)

// FavoritesService keeps liked products per device.
type FavoritesService interface {
	List(ctx context.Context, deviceID string) (favorites.View, error)
	Add(ctx context.Context, deviceID string, it favorites.Item) (favorites.View, error)
	Remove(ctx context.Context, deviceID, productID string) (favorites.View, error)
	Contains(ctx context.Context, deviceID, productID string) (bool, error)
	Toggle(ctx context.Context, deviceID string, it favorites.Item) (bool, favorites.View, error)
}

type containsResponse struct {
	ProductID  string `json:"product_id"`
	IsFavorite bool   `json:"is_favorite"`
}

type toggleResponse struct {
	IsFavorite bool           `json:"is_favorite"`
	Favorites  favorites.View `json:"favorites"`
}

// FavoritesList returns the device's favorites in insertion order.
func FavoritesList(svc FavoritesService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("favorites service"))
			return
		}
		view, err := svc.List(r.Context(), middleware.DeviceIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// FavoritesAdd likes a product. Adding an existing id is a no-op.
func FavoritesAdd(svc FavoritesService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("favorites service"))
			return
		}
		var item favorites.Item
		if err := validators.DecodeJSONBody(r, &item); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.Add(r.Context(), middleware.DeviceIDFromContext(r.Context()), item)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// FavoritesToggle flips the heart on a product card.
func FavoritesToggle(svc FavoritesService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("favorites service"))
			return
		}
		var item favorites.Item
		if err := validators.DecodeJSONBody(r, &item); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		liked, view, err := svc.Toggle(r.Context(), middleware.DeviceIDFromContext(r.Context()), item)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toggleResponse{IsFavorite: liked, Favorites: view})
	}
}

// FavoritesRemove unlikes a product.
func FavoritesRemove(svc FavoritesService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("favorites service"))
			return
		}
		productID, err := pathParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.Remove(r.Context(), middleware.DeviceIDFromContext(r.Context()), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// FavoritesContains reports whether a product is liked on this device.
func FavoritesContains(svc FavoritesService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("favorites service"))
			return
		}
		productID, err := pathParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		liked, err := svc.Contains(r.Context(), middleware.DeviceIDFromContext(r.Context()), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, containsResponse{ProductID: productID, IsFavorite: liked})
	}
}
