package database

import (
	"path/filepath"
	"testing"

	"github.com/wowjjang83/ai-style-synthesis/config"
	"github.com/wowjjang83/ai-style-synthesis/internal/domain"
	"github.com/wowjjang83/ai-style-synthesis/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func openTemp(t *testing.T) *config.DatabaseConfig {
	t.Helper()
	return &config.DatabaseConfig{Type: "sqlite", Path: filepath.Join(t.TempDir(), "db", "app.db")}
}

func TestNewDBSqliteAndMigrate(t *testing.T) {
	db, err := NewDB(openTemp(t))
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))
	assert.True(t, db.Migrator().HasTable(&models.UsageRecord{}))
	assert.True(t, db.Migrator().HasIndex(&models.UsageRecord{}, "idx_usage_user_date"))
}

func TestNewDBUnsupported(t *testing.T) {
	_, err := NewDB(&config.DatabaseConfig{Type: "oracle"})
	assert.Error(t, err)
}

func TestSeedAdmin(t *testing.T) {
	db, err := NewDB(openTemp(t))
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))

	cfg := &config.AdminConfig{Email: "admin@example.com", Password: "s3cretpass"}
	created, err := SeedAdmin(db, cfg)
	require.NoError(t, err)
	assert.True(t, created)

	var u models.User
	require.NoError(t, db.Where("email = ?", cfg.Email).First(&u).Error)
	assert.Equal(t, domain.RoleAdmin, u.Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(cfg.Password)))

	created, err = SeedAdmin(db, cfg)
	require.NoError(t, err)
	assert.False(t, created)

	_, err = SeedAdmin(db, &config.AdminConfig{Email: "x@example.com", Password: "short"})
	assert.Error(t, err)

	created, err = SeedAdmin(db, &config.AdminConfig{})
	require.NoError(t, err)
	assert.False(t, created)
}
