package models

import (
	"time"

	"github.com/angelmondragon/elitejewels-backend/pkg/enums"
	"github.com/google/uuid"
)

// User is the authentication identity keyed by phone number.
type User struct {
	ID               uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Phone            string     `gorm:"column:phone;type:text;not null;uniqueIndex:users_phone_key"`
	Email            *string    `gorm:"column:email;type:text"`
	Name             string     `gorm:"column:name;type:text;not null;default:''"`
	PasswordHash     *string    `gorm:"column:password_hash;type:text"`
	Role             enums.Role `gorm:"column:role;type:text;not null;default:'customer'"`
	PhoneConfirmedAt *time.Time `gorm:"column:phone_confirmed_at"`
	LastLoginAt      *time.Time `gorm:"column:last_login_at"`
	CreatedAt        time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (User) TableName() string { return "users" }
