package catalog

import (
	"context"

	"github.com/angelmondragon/elitejewels-backend/internal/repo"
	"github.com/angelmondragon/elitejewels-backend/pkg/db/models"
	"github.com/angelmondragon/elitejewels-backend/pkg/enums"
	"github.com/angelmondragon/elitejewels-backend/pkg/pagination"
	"gorm.io/gorm"
)

// Repository reads and writes catalog rows.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// ListProducts returns every product matching f, newest first.
func (r *Repository) ListProducts(ctx context.Context, f Filter) ([]models.Product, error) {
	q := r.DB(ctx).Model(&models.Product{}).Where("material = ?", f.Material)
	if f.MainCategory != "" {
		q = q.Where("main_category = ?", f.MainCategory)
	}
	if f.SubCategory != "" {
		q = q.Where("sub_category = ?", f.SubCategory)
	}
	if f.Style != "" && f.Style != StyleAll {
		q = q.Where("style = ?", f.Style)
	}
	var rows []models.Product
	if err := q.Order("created_at DESC").Order("id DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// PageProducts lists products for the admin screen with cursor pagination.
// A nil material lists both materials.
func (r *Repository) PageProducts(ctx context.Context, material *enums.Material, params pagination.Params) ([]models.Product, string, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", err
	}
	limit := pagination.NormalizeLimit(params.Limit)

	q := r.DB(ctx).Model(&models.Product{})
	if material != nil {
		q = q.Where("material = ?", *material)
	}
	if cursor != nil {
		q = q.Where("(created_at < ?) OR (created_at = ? AND CAST(id AS TEXT) < ?)", cursor.At, cursor.At, cursor.ID)
	}
	var rows []models.Product
	if err := q.Order("created_at DESC").Order("id DESC").Limit(pagination.LimitWithBuffer(limit)).Find(&rows).Error; err != nil {
		return nil, "", err
	}

	next := ""
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		next = pagination.EncodeCursor(pagination.Cursor{At: last.CreatedAt, ID: last.ID.String()})
	}
	return rows, next, nil
}

func (r *Repository) CreateProduct(ctx context.Context, p *models.Product) error {
	return r.DB(ctx).Create(p).Error
}

// ListNewArrivals returns the newest highlights; limit <= 0 returns all.
func (r *Repository) ListNewArrivals(ctx context.Context, limit int) ([]models.NewArrival, error) {
	q := r.DB(ctx).Order("created_at DESC").Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []models.NewArrival
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) CreateNewArrival(ctx context.Context, n *models.NewArrival) error {
	return r.DB(ctx).Create(n).Error
}
