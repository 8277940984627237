package users

import (
	"time"

	"github.com/angelmondragon/elitejewels-backend/pkg/db/models"
	"github.com/angelmondragon/elitejewels-backend/pkg/enums"
	"github.com/google/uuid"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID               uuid.UUID  `json:"id"`
	Phone            string     `json:"phone"`
	Email            *string    `json:"email,omitempty"`
	Name             string     `json:"name"`
	Role             enums.Role `json:"role"`
	PhoneConfirmedAt *time.Time `json:"phone_confirmed_at,omitempty"`
	LastLoginAt      *time.Time `json:"last_login_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Phone            string
	Email            *string
	Name             string
	PasswordHash     *string
	Role             enums.Role
	PhoneConfirmedAt *time.Time
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	return &UserDTO{
		ID:               u.ID,
		Phone:            u.Phone,
		Email:            u.Email,
		Name:             u.Name,
		Role:             u.Role,
		PhoneConfirmedAt: u.PhoneConfirmedAt,
		LastLoginAt:      u.LastLoginAt,
		CreatedAt:        u.CreatedAt,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	role := c.Role
	if !role.IsValid() {
		role = enums.RoleCustomer
	}
	return &models.User{
		Phone:            c.Phone,
		Email:            c.Email,
		Name:             c.Name,
		PasswordHash:     c.PasswordHash,
		Role:             role,
		PhoneConfirmedAt: c.PhoneConfirmedAt,
	}
}
