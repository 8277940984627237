package orders

import (
	"time"

	"github.com/angelmondragon/elitejewels-backend/pkg/db/models"
	"github.com/angelmondragon/elitejewels-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineItem is a cart line as submitted at checkout.
type LineItem struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Image     string `json:"image"`
	MinWeight string `json:"minWeight"`
	Code      string `json:"code"`
	Category  string `json:"category"`
	Quantity  int    `json:"quantity"`
}

// Identity names the shopper placing an order.
type Identity struct {
	UserID *uuid.UUID
	Phone  string
	Email  string
}

type OrderDTO struct {
	ID                string              `json:"id"`
	DisplayID         string              `json:"display_id"`
	UserID            *string             `json:"user_id,omitempty"`
	UserPhone         *string             `json:"user_phone,omitempty"`
	UserEmail         *string             `json:"user_email,omitempty"`
	Items             []models.OrderItem  `json:"items"`
	Status            enums.OrderStatus   `json:"status"`
	NextStatuses      []enums.OrderStatus `json:"next_statuses"`
	OrderDate         time.Time           `json:"order_date"`
	EstimatedDelivery *time.Time          `json:"estimated_delivery,omitempty"`
	DeliveredAt       *time.Time          `json:"delivered_at,omitempty"`
	AdvancePaid       decimal.Decimal     `json:"advance_paid"`
	BalanceAmount     decimal.Decimal     `json:"balance_amount"`
	TotalPrice        *decimal.Decimal    `json:"total_price,omitempty"`
	TotalWeight       string              `json:"total_weight"`
	Notes             *string             `json:"notes,omitempty"`
	Ref               *string             `json:"ref,omitempty"`
}

func FromModel(o models.Order) OrderDTO {
	out := OrderDTO{
		ID:                o.ID,
		DisplayID:         DisplayID(o),
		UserPhone:         o.UserPhone,
		UserEmail:         o.UserEmail,
		Items:             []models.OrderItem(o.Items),
		Status:            o.Status,
		NextStatuses:      enums.NextOrderStatuses(o.Status),
		OrderDate:         o.OrderDate,
		EstimatedDelivery: o.EstimatedDelivery,
		DeliveredAt:       o.DeliveredAt,
		AdvancePaid:       o.AdvancePaid,
		BalanceAmount:     o.BalanceAmount,
		TotalWeight:       o.TotalWeight,
		Notes:             o.Notes,
		Ref:               o.Ref,
	}
	if out.Items == nil {
		out.Items = []models.OrderItem{}
	}
	if o.UserID != nil {
		id := o.UserID.String()
		out.UserID = &id
	}
	if o.TotalPrice.Valid {
		total := o.TotalPrice.Decimal
		out.TotalPrice = &total
	}
	return out
}

// DisplayID is the short label shown to shoppers: the ref when present,
// otherwise the id, trimmed to its last 8 characters when longer than 10.
func DisplayID(o models.Order) string {
	if o.Ref != nil && *o.Ref != "" {
		return *o.Ref
	}
	if len(o.ID) <= 10 {
		return o.ID
	}
	return "#" + o.ID[len(o.ID)-8:]
}

// Patch is a partial admin update. Nil fields are left untouched.
type Patch struct {
	Status            *string `json:"status"`
	EstimatedDelivery *string `json:"estimated_delivery"`
	DeliveredAt       *string `json:"delivered_at"`
	AdvancePaid       *string `json:"advance_paid"`
	BalanceAmount     *string `json:"balance_amount"`
	TotalPrice        *string `json:"total_price"`
	TotalWeight       *string `json:"total_weight"`
	Notes             *string `json:"notes"`
	Ref               *string `json:"ref"`
}

// AdminItem is one line in the admin order form. Rate is kept as text so
// non-numeric input can be reported instead of silently dropped.
type AdminItem struct {
	Name     string  `json:"name"`
	Code     string  `json:"code"`
	Image    string  `json:"image"`
	Quantity int     `json:"quantity"`
	Rate     *string `json:"rate"`
}

// AdminOrderInput is the admin order entry form.
type AdminOrderInput struct {
	Phone             string      `json:"phone"`
	Items             []AdminItem `json:"items"`
	TotalWeight       string      `json:"total_weight"`
	AdvancePaid       string      `json:"advance_paid"`
	BalanceAmount     string      `json:"balance_amount"`
	EstimatedDelivery string      `json:"estimated_delivery"`
	DeliveredAt       string      `json:"delivered_at"`
	Notes             string      `json:"notes"`
	Status            string      `json:"status"`
	Ref               string      `json:"ref"`
	OverrideTotal     *string     `json:"override_total"`
}

// Handoff is a prefilled messaging deep link.
type Handoff struct {
	Message string `json:"message"`
	URL     string `json:"url"`
}

// PlacedEvent is published when a shopper submits an order.
type PlacedEvent struct {
	OrderID   string             `json:"order_id"`
	UserID    *string            `json:"user_id,omitempty"`
	UserPhone *string            `json:"user_phone,omitempty"`
	UserEmail *string            `json:"user_email,omitempty"`
	Items     []models.OrderItem `json:"items"`
	OrderDate time.Time          `json:"order_date"`
}

// AggregateKey ties the queued event to its order.
func (e PlacedEvent) AggregateKey() string { return e.OrderID }
