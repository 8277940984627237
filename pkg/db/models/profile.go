package models

import (
	"time"

	"github.com/google/uuid"
)

// Profile holds the customer-facing contact fields. Profiles created through
// signup share the user id; admin order entry may create phone-only profiles.
type Profile struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name      *string   `gorm:"column:name;type:text"`
	Email     *string   `gorm:"column:email;type:text"`
	Phone     *string   `gorm:"column:phone;type:text;index:profiles_phone_idx"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Profile) TableName() string { return "profiles" }
