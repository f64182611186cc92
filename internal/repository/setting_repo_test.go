package repository

import (
	"context"
	"testing"

	"github.com/wowjjang83/ai-style-synthesis/internal/models"
	"github.com/wowjjang83/ai-style-synthesis/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestSettingRepository_GetMissing(t *testing.T) {
	repo := NewSettingRepository(testutil.SetupDB(t))
	_, err := repo.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrSettingNotFound)
}

func TestSettingRepository_SetIsLatestWriteWins(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupDB(t)
	repo := NewSettingRepository(db)

	require.NoError(t, repo.Set(ctx, "max_user_syntheses", "3"))
	require.NoError(t, repo.Set(ctx, "max_user_syntheses", "10"))

	v, err := repo.Get(ctx, "max_user_syntheses")
	require.NoError(t, err)
	assert.Equal(t, "10", v)

	var n int64
	require.NoError(t, db.Model(&models.SystemSetting{}).Count(&n).Error)
	assert.EqualValues(t, 1, n)
}

func TestSettingRepository_SeedDefaultsDoesNotOverwrite(t *testing.T) {
	ctx := context.Background()
	repo := NewSettingRepository(testutil.SetupDB(t))
	require.NoError(t, repo.Set(ctx, "apply_watermark", "true"))

	require.NoError(t, repo.SeedDefaults(ctx, map[string]string{
		"apply_watermark":    "false",
		"max_user_syntheses": "3",
	}))

	v, err := repo.Get(ctx, "apply_watermark")
	require.NoError(t, err)
	assert.Equal(t, "true", v)
	v, err = repo.Get(ctx, "max_user_syntheses")
	require.NoError(t, err)
	assert.Equal(t, "3", v)
}

func TestSettingRepository_SetMany(t *testing.T) {
	ctx := context.Background()
	repo := NewSettingRepository(testutil.SetupDB(t))
	require.NoError(t, repo.SetMany(ctx, map[string]string{"a": "1", "b": "2"}))
	v, err := repo.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, "2", v)
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(testutil.SetupDB(t))
	require.NoError(t, repo.Create(ctx, &models.User{Email: "a@example.com", Role: "USER"}))
	err := repo.Create(ctx, &models.User{Email: "a@example.com", Role: "USER"})
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	u, err := repo.GetByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	got, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Email, got.Email)
}
