package models

import (
	"time"

	"github.com/angelmondragon/elitejewels-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a catalog entry shown on the material pages.
type Product struct {
	ID           uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	Name         string              `gorm:"column:name;type:text;not null"`
	ImageURL     string              `gorm:"column:image_url;type:text;not null"`
	MinWeight    decimal.Decimal     `gorm:"column:min_weight;type:numeric(10,3);not null"`
	ActualWeight decimal.NullDecimal `gorm:"column:actual_weight;type:numeric(10,3)"`
	ProductCode  string              `gorm:"column:product_code;type:text;not null"`
	Material     enums.Material      `gorm:"column:material;type:text;not null;index:products_material_created_idx,priority:1"`
	MainCategory string              `gorm:"column:main_category;type:text;not null"`
	SubCategory  *string             `gorm:"column:sub_category;type:text"`
	Style        string              `gorm:"column:style;type:text;not null;default:'all'"`
	CreatedAt    time.Time           `gorm:"column:created_at;autoCreateTime;index:products_material_created_idx,priority:2"`
}

func (Product) TableName() string { return "products" }

// NewArrival is a homepage highlight, managed separately from the catalog.
type NewArrival struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name      string    `gorm:"column:name;type:text;not null"`
	MinWeight string    `gorm:"column:min_weight;type:text;not null;default:''"`
	Code      string    `gorm:"column:code;type:text;not null;default:''"`
	Category  string    `gorm:"column:category;type:text;not null;default:'pendant'"`
	ImageURL  string    `gorm:"column:image_url;type:text;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime;index:new_arrivals_created_idx"`
}

func (NewArrival) TableName() string { return "new_arrivals" }
