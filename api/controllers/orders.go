package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/elitejewels-backend/api/middleware"
	"github.com/angelmondragon/elitejewels-backend/api/responses"
	"github.com/angelmondragon/elitejewels-backend/api/validators"
	"github.com/angelmondragon/elitejewels-backend/internal/cart"
	"github.com/angelmondragon/elitejewels-backend/internal/orders"
	pkgerrors "github.com/angelmondragon/elitejewels-backend/pkg/errors"
	"github.com/angelmondragon/elitejewels-backend/pkg/logger"
)

// OrdersService is the shopper side of order handling.
type OrdersService interface {
	CreateOrder(ctx context.Context, items []orders.LineItem, who orders.Identity) (*orders.OrderDTO, error)
	NotifyExternalChannel(ctx context.Context, order orders.OrderDTO) orders.Handoff
	InquiryFor(ctx context.Context, id string, who orders.Identity) (orders.Handoff, error)
	GetUserOrders(ctx context.Context, phone, email string) ([]orders.OrderDTO, error)
	ContactHandoff() orders.Handoff
}

// CartReader is the read side of the shopper's persisted cart.
type CartReader interface {
	Get(ctx context.Context, userID string) (cart.View, error)
}

type placeOrderRequest struct {
	Items []orders.LineItem `json:"items" validate:"omitempty,dive"`
}

type placedOrderResponse struct {
	Order   *orders.OrderDTO `json:"order"`
	Handoff orders.Handoff   `json:"handoff"`
}

// OrdersCreate places a pending order and returns the messaging hand-off.
// Lines come from the request body when present, otherwise from the caller's
// persisted cart. The cart is left untouched.
func OrdersCreate(svc OrdersService, carts CartReader, stores SessionStoreFactory, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("orders service"))
			return
		}
		who, err := shopperIdentity(r, stores)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req placeOrderRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &req); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}
		items := req.Items
		if len(items) == 0 && carts != nil {
			view, err := carts.Get(r.Context(), who.UserID.String())
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			items = lineItemsOf(view)
		}
		if len(items) == 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty"))
			return
		}
		order, err := svc.CreateOrder(r.Context(), items, who)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		handoff := svc.NotifyExternalChannel(r.Context(), *order)
		responses.WriteSuccessStatus(w, http.StatusCreated, placedOrderResponse{Order: order, Handoff: handoff})
	}
}

func lineItemsOf(view cart.View) []orders.LineItem {
	items := make([]orders.LineItem, 0, len(view.Items))
	for _, it := range view.Items {
		items = append(items, orders.LineItem{
			ID:        it.ID,
			Name:      it.Name,
			Image:     it.Image,
			MinWeight: it.MinWeight,
			Code:      it.Code,
			Category:  it.Category,
			Quantity:  it.Quantity,
		})
	}
	return items
}

// OrdersList returns the caller's orders, newest first.
func OrdersList(svc OrdersService, stores SessionStoreFactory, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("orders service"))
			return
		}
		who, err := shopperIdentity(r, stores)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.GetUserOrders(r.Context(), who.Phone, who.Email)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// OrdersInquiry returns the status hand-off for one of the caller's orders.
func OrdersInquiry(svc OrdersService, stores SessionStoreFactory, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("orders service"))
			return
		}
		id, err := pathParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		who, err := shopperIdentity(r, stores)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		handoff, err := svc.InquiryFor(r.Context(), id, who)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, handoff)
	}
}

// ContactHandoff returns the generic enquiry link.
func ContactHandoff(svc OrdersService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("orders service"))
			return
		}
		responses.WriteSuccess(w, svc.ContactHandoff())
	}
}

// shopperIdentity resolves the signed in shopper. The phone comes from the
// token and the email from the profile, when one resolves.
func shopperIdentity(r *http.Request, stores SessionStoreFactory) (orders.Identity, error) {
	raw, err := requireUser(r)
	if err != nil {
		return orders.Identity{}, err
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return orders.Identity{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid session")
	}
	who := orders.Identity{UserID: &userID, Phone: middleware.PhoneFromContext(r.Context())}
	if stores == nil {
		return who, nil
	}
	session := stores(middleware.ClaimsFromContext(r.Context())).Restore(r.Context())
	if session.User != nil {
		if who.Phone == "" && session.User.Phone != nil {
			who.Phone = *session.User.Phone
		}
		if session.User.Email != nil {
			who.Email = *session.User.Email
		}
	}
	return who, nil
}
