package orders

import (
	"context"

	"github.com/angelmondragon/elitejewels-backend/internal/repo"
	"github.com/angelmondragon/elitejewels-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository persists orders.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) Create(ctx context.Context, o *models.Order) error {
	return r.DB(ctx).Create(o).Error
}

// FindByID returns gorm.ErrRecordNotFound when absent.
func (r *Repository) FindByID(ctx context.Context, id string) (*models.Order, error) {
	var o models.Order
	if err := r.DB(ctx).First(&o, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *Repository) ListByPhone(ctx context.Context, phone string) ([]models.Order, error) {
	return r.listWhere(ctx, "user_phone = ?", phone)
}

func (r *Repository) ListByEmail(ctx context.Context, email string) ([]models.Order, error) {
	return r.listWhere(ctx, "user_email = ?", email)
}

// ListRecent returns the newest orders across all customers.
func (r *Repository) ListRecent(ctx context.Context, limit int) ([]models.Order, error) {
	var rows []models.Order
	if err := r.DB(ctx).Order("order_date DESC").Order("id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Update applies column updates to one order and reports whether it existed.
func (r *Repository) Update(ctx context.Context, id string, updates map[string]any) (bool, error) {
	res := r.DB(ctx).Model(&models.Order{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Delete removes one order and reports whether it existed.
func (r *Repository) Delete(ctx context.Context, id string) (bool, error) {
	res := r.DB(ctx).Where("id = ?", id).Delete(&models.Order{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *Repository) listWhere(ctx context.Context, cond string, arg any) ([]models.Order, error) {
	var rows []models.Order
	if err := r.DB(ctx).Where(cond, arg).Order("order_date DESC").Order("id DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
