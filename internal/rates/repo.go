// Package rates tracks the published gold and silver rates.
package rates

import (
	"context"
	"errors"

	"github.com/angelmondragon/elitejewels-backend/internal/repo"
	"github.com/angelmondragon/elitejewels-backend/pkg/db/models"
	"gorm.io/gorm"
)

type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// Latest returns the most recently updated row, or nil when the table is empty.
func (r *Repository) Latest(ctx context.Context) (*models.MarketRate, error) {
	var row models.MarketRate
	err := r.DB(ctx).Order("updated_at DESC").Limit(1).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *Repository) Create(ctx context.Context, row *models.MarketRate) error {
	return r.DB(ctx).Create(row).Error
}

// Prune deletes every row except the newest keep rows.
func (r *Repository) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 1 {
		keep = 1
	}
	var ids []string
	if err := r.DB(ctx).Model(&models.MarketRate{}).
		Order("updated_at DESC").
		Limit(keep).
		Pluck("id", &ids).Error; err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.DB(ctx).Where("id NOT IN ?", ids).Delete(&models.MarketRate{})
	return res.RowsAffected, res.Error
}
