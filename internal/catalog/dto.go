package catalog

import (
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/elitejewels-backend/pkg/db/models"
	"github.com/angelmondragon/elitejewels-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// Filter selects one product listing. Empty SubCategory and StyleAll do not filter.
type Filter struct {
	Material     enums.Material
	MainCategory string
	SubCategory  string
	Style        string
}

// NewFilter normalizes raw query values.
func NewFilter(material, main, sub, style string) (Filter, error) {
	m, err := enums.ParseMaterial(material)
	if err != nil {
		return Filter{}, err
	}
	f := Filter{
		Material:     m,
		MainCategory: strings.ToLower(strings.TrimSpace(main)),
		SubCategory:  strings.ToLower(strings.TrimSpace(sub)),
		Style:        strings.ToLower(strings.TrimSpace(style)),
	}
	if f.SubCategory == StyleAll {
		f.SubCategory = ""
	}
	if f.Style == "" {
		f.Style = StyleAll
	}
	return f, nil
}

// Key identifies the combination for expansion tracking: <material>:<main>-<sub|all>-<style>.
func (f Filter) Key() string {
	sub := f.SubCategory
	if sub == "" {
		sub = "all"
	}
	style := f.Style
	if style == "" {
		style = StyleAll
	}
	return fmt.Sprintf("%s:%s-%s-%s", f.Material, f.MainCategory, sub, style)
}

type ProductDTO struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	ImageURL     string           `json:"image_url"`
	MinWeight    decimal.Decimal  `json:"min_weight"`
	ActualWeight *decimal.Decimal `json:"actual_weight,omitempty"`
	ProductCode  string           `json:"product_code"`
	Material     enums.Material   `json:"material"`
	MainCategory string           `json:"main_category"`
	SubCategory  *string          `json:"sub_category,omitempty"`
	Style        string           `json:"style"`
	CreatedAt    time.Time        `json:"created_at"`
}

func FromProduct(p models.Product) ProductDTO {
	out := ProductDTO{
		ID:           p.ID.String(),
		Name:         p.Name,
		ImageURL:     p.ImageURL,
		MinWeight:    p.MinWeight,
		ProductCode:  p.ProductCode,
		Material:     p.Material,
		MainCategory: p.MainCategory,
		SubCategory:  p.SubCategory,
		Style:        p.Style,
		CreatedAt:    p.CreatedAt,
	}
	if p.ActualWeight.Valid {
		w := p.ActualWeight.Decimal
		out.ActualWeight = &w
	}
	return out
}

type NewArrivalDTO struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	MinWeight string    `json:"min_weight"`
	Code      string    `json:"code"`
	Category  string    `json:"category"`
	ImageURL  string    `json:"image_url"`
	CreatedAt time.Time `json:"created_at"`
}

func FromNewArrival(n models.NewArrival) NewArrivalDTO {
	return NewArrivalDTO{
		ID:        n.ID.String(),
		Name:      n.Name,
		MinWeight: n.MinWeight,
		Code:      n.Code,
		Category:  n.Category,
		ImageURL:  n.ImageURL,
		CreatedAt: n.CreatedAt,
	}
}

// Listing is one browse result.
type Listing struct {
	Key      string       `json:"key"`
	Items    []ProductDTO `json:"items"`
	Total    int          `json:"total"`
	HasMore  bool         `json:"has_more"`
	Expanded bool         `json:"expanded"`
}

// ProductInput carries the admin product form fields.
type ProductInput struct {
	Name         string
	Material     string
	MainCategory string
	SubCategory  string
	Style        string
	MinWeight    string
	ActualWeight string
	ProductCode  string
}

// NewArrivalInput carries the admin new arrival form fields.
type NewArrivalInput struct {
	Name      string
	MinWeight string
	Code      string
	Category  string
}
