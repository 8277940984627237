package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MarketRate is one published gold/silver rate snapshot; the latest row wins.
type MarketRate struct {
	ID         uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	GoldRate   decimal.NullDecimal `gorm:"column:gold_rate;type:numeric(12,2)"`
	SilverRate decimal.NullDecimal `gorm:"column:silver_rate;type:numeric(12,2)"`
	Note       *string             `gorm:"column:note;type:text"`
	UpdatedAt  time.Time           `gorm:"column:updated_at;not null;index:market_rates_updated_idx"`
}

func (MarketRate) TableName() string { return "market_rates" }
