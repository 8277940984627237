// Package profiles stores the customer-facing contact rows that sit beside
// auth identities.
package profiles

import (
	"context"
	"strings"

	"github.com/angelmondragon/elitejewels-backend/internal/repo"
	"github.com/angelmondragon/elitejewels-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository exposes profile persistence.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// FindByID returns gorm.ErrRecordNotFound when no row exists.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	var p models.Profile
	if err := r.DB(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// Upsert inserts the profile or overwrites its contact fields when the id
// already exists.
func (r *Repository) Upsert(ctx context.Context, p *models.Profile) error {
	return r.DB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "email", "phone", "updated_at"}),
	}).Create(p).Error
}

// ExistsByPhone reports whether any profile carries phone.
func (r *Repository) ExistsByPhone(ctx context.Context, phone string) (bool, error) {
	var count int64
	if err := r.DB(ctx).Model(&models.Profile{}).Where("phone = ?", phone).Limit(1).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// CreatePhoneOnly inserts a profile holding only a phone number.
func (r *Repository) CreatePhoneOnly(ctx context.Context, phone string) (*models.Profile, error) {
	p := &models.Profile{Phone: &phone}
	if err := r.DB(ctx).Create(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}

// ListPhones returns up to limit non-empty phone values, most recent first.
func (r *Repository) ListPhones(ctx context.Context, limit int) ([]string, error) {
	var rows []models.Profile
	if err := r.DB(ctx).
		Select("phone").
		Where("phone IS NOT NULL AND phone <> ''").
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		if row.Phone != nil && strings.TrimSpace(*row.Phone) != "" {
			out = append(out, *row.Phone)
		}
	}
	return out, nil
}
