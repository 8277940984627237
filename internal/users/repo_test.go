package users

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/elitejewels-backend/internal/repo/repotest"
	"github.com/angelmondragon/elitejewels-backend/pkg/db"
	"github.com/angelmondragon/elitejewels-backend/pkg/enums"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestRepositoryCreateAndFind(t *testing.T) {
	ctx := context.Background()
	r := NewRepository(repotest.Open(t))

	hash := "argon-hash"
	created, err := r.Create(ctx, CreateUserDTO{Phone: "+917899013601", Name: "Asha", PasswordHash: &hash})
	require.NoError(t, err)
	assert.Equal(t, enums.RoleCustomer, created.Role)

	byPhone, err := r.FindByPhone(ctx, "+917899013601")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byPhone.ID)

	byID, err := r.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Asha", byID.Name)

	_, err = r.FindByPhone(ctx, "+910000000000")
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestRepositoryRejectsDuplicatePhone(t *testing.T) {
	ctx := context.Background()
	r := NewRepository(repotest.Open(t))

	_, err := r.Create(ctx, CreateUserDTO{Phone: "+917899013601"})
	require.NoError(t, err)
	_, err = r.Create(ctx, CreateUserDTO{Phone: "+917899013601"})
	require.Error(t, err)
	assert.True(t, db.IsUniqueViolation(err, ""))
}

func TestRepositoryTimestamps(t *testing.T) {
	ctx := context.Background()
	r := NewRepository(repotest.Open(t))
	user, err := r.Create(ctx, CreateUserDTO{Phone: "+917899013601"})
	require.NoError(t, err)

	first := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, r.ConfirmPhone(ctx, user.ID, first))
	require.NoError(t, r.ConfirmPhone(ctx, user.ID, first.Add(time.Hour)))
	require.NoError(t, r.UpdateLastLogin(ctx, user.ID, first))

	got, err := r.FindByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, got.PhoneConfirmedAt)
	assert.True(t, got.PhoneConfirmedAt.Equal(first))
	require.NotNil(t, got.LastLoginAt)

	dto := FromModel(got)
	assert.Equal(t, "+917899013601", dto.Phone)
	assert.Nil(t, FromModel(nil))
}
