package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/angelmondragon/elitejewels-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order is a placed order. Shopper orders get ORD<millis> ids; admin entries get uuids.
type Order struct {
	ID                string              `gorm:"column:id;type:text;primaryKey"`
	UserID            *uuid.UUID          `gorm:"column:user_id;type:uuid;index:orders_user_id_idx"`
	UserPhone         *string             `gorm:"column:user_phone;type:text;index:orders_user_phone_idx"`
	UserEmail         *string             `gorm:"column:user_email;type:text;index:orders_user_email_idx"`
	Items             OrderItems          `gorm:"column:items;type:jsonb;not null"`
	Status            enums.OrderStatus   `gorm:"column:status;type:text;not null;default:'pending'"`
	OrderDate         time.Time           `gorm:"column:order_date;not null;index:orders_order_date_idx"`
	EstimatedDelivery *time.Time          `gorm:"column:estimated_delivery"`
	DeliveredAt       *time.Time          `gorm:"column:delivered_at"`
	AdvancePaid       decimal.Decimal     `gorm:"column:advance_paid;type:numeric(12,2);not null;default:0"`
	BalanceAmount     decimal.Decimal     `gorm:"column:balance_amount;type:numeric(12,2);not null;default:0"`
	TotalPrice        decimal.NullDecimal `gorm:"column:total_price;type:numeric(12,2)"`
	TotalWeight       string              `gorm:"column:total_weight;type:text;not null;default:'0g'"`
	Notes             *string             `gorm:"column:notes;type:text"`
	Ref               *string             `gorm:"column:ref;type:text"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (Order) TableName() string { return "orders" }

// OrderItem is the line snapshot stored inside an order.
type OrderItem struct {
	ID        string              `json:"id,omitempty"`
	Name      string              `json:"name"`
	Code      string              `json:"code,omitempty"`
	Image     string              `json:"image,omitempty"`
	MinWeight string              `json:"minWeight,omitempty"`
	Category  string              `json:"category,omitempty"`
	Quantity  int                 `json:"quantity"`
	Rate      decimal.NullDecimal `json:"rate"`
}

// OrderItems persists as a JSON array.
type OrderItems []OrderItem

func (o OrderItems) Value() (driver.Value, error) {
	if o == nil {
		return "[]", nil
	}
	raw, err := json.Marshal(o)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func (o *OrderItems) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*o = OrderItems{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("OrderItems: unsupported Scan type %T", src)
	}
	items := OrderItems{}
	if err := json.Unmarshal(raw, &items); err != nil {
		return fmt.Errorf("OrderItems: %w", err)
	}
	*o = items
	return nil
}
