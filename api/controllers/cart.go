package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/elitejewels-backend/api/responses"
	"github.com/angelmondragon/elitejewels-backend/api/validators"
	"github.com/angelmondragon/elitejewels-backend/internal/cart"
	"github.com/angelmondragon/elitejewels-backend/pkg/logger"
)

// CartService keeps one cart per signed in shopper.
type CartService interface {
	Get(ctx context.Context, userID string) (cart.View, error)
	Add(ctx context.Context, userID string, p cart.Product) (cart.View, error)
	UpdateQuantity(ctx context.Context, userID, productID string, quantity int) (cart.View, error)
	Remove(ctx context.Context, userID, productID string) (cart.View, error)
	Clear(ctx context.Context, userID string) error
}

type quantityRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

// CartGet returns the caller's cart.
func CartGet(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(svc, logg, func(r *http.Request, userID string) (cart.View, error) {
		return svc.Get(r.Context(), userID)
	})
}

// CartAdd adds one unit of a product, creating the line when missing.
func CartAdd(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(svc, logg, func(r *http.Request, userID string) (cart.View, error) {
		var p cart.Product
		if err := validators.DecodeJSONBody(r, &p); err != nil {
			return cart.View{}, err
		}
		return svc.Add(r.Context(), userID, p)
	})
}

// CartUpdateQuantity sets a line's quantity. Zero or less removes the line.
func CartUpdateQuantity(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(svc, logg, func(r *http.Request, userID string) (cart.View, error) {
		productID, err := pathParam(r, "productId")
		if err != nil {
			return cart.View{}, err
		}
		var req quantityRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			return cart.View{}, err
		}
		return svc.UpdateQuantity(r.Context(), userID, productID, *req.Quantity)
	})
}

// CartRemove drops a line.
func CartRemove(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(svc, logg, func(r *http.Request, userID string) (cart.View, error) {
		productID, err := pathParam(r, "productId")
		if err != nil {
			return cart.View{}, err
		}
		return svc.Remove(r.Context(), userID, productID)
	})
}

// CartClear empties the cart.
func CartClear(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(svc, logg, func(r *http.Request, userID string) (cart.View, error) {
		if err := svc.Clear(r.Context(), userID); err != nil {
			return cart.View{}, err
		}
		return cart.View{Items: []cart.Item{}}, nil
	})
}

func cartHandler(svc CartService, logg *logger.Logger, fn func(*http.Request, string) (cart.View, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("cart service"))
			return
		}
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := fn(r, userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}
