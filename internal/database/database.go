package database

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/wowjjang83/ai-style-synthesis/config"
	"github.com/wowjjang83/ai-style-synthesis/internal/domain"
	"github.com/wowjjang83/ai-style-synthesis/internal/models"

	"github.com/glebarez/sqlite"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Type {
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite", "":
		dsn := cfg.DSN
		if dsn == "" {
			if dir := filepath.Dir(cfg.Path); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return nil, err
				}
			}
			dsn = cfg.Path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
		}
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database type %q", cfg.Type)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Error),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.Type == "sqlite" || cfg.Type == "" {
		// single writer
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	return db, nil
}

// AutoMigrate runs Gorm auto-migration for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.BaseModel{},
		&models.SystemSetting{},
		&models.UsageRecord{},
	)
}

// SeedAdmin creates the configured admin account if no user with that email exists.
// An existing account is promoted to ADMIN but its password is left alone.
func SeedAdmin(db *gorm.DB, cfg *config.AdminConfig) (bool, error) {
	if cfg.Email == "" {
		return false, nil
	}
	if len(cfg.Password) < 8 {
		return false, errors.New("admin password must be at least 8 characters")
	}
	var existing models.User
	err := db.Where(&models.User{Email: cfg.Email}).First(&existing).Error
	switch {
	case err == nil:
		if existing.Role == domain.RoleAdmin {
			return false, nil
		}
		return false, db.Model(&existing).Update("role", domain.RoleAdmin).Error
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return false, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Password), bcrypt.DefaultCost)
	if err != nil {
		return false, err
	}
	u := &models.User{Email: cfg.Email, PasswordHash: string(hash), Role: domain.RoleAdmin}
	if err := db.Create(u).Error; err != nil {
		return false, err
	}
	return true, nil
}
