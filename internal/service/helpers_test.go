package service

import (
	"testing"
	"time"

	"github.com/wowjjang83/ai-style-synthesis/config"
	"github.com/wowjjang83/ai-style-synthesis/internal/logger"
	"github.com/wowjjang83/ai-style-synthesis/internal/repository"
	"github.com/wowjjang83/ai-style-synthesis/internal/testutil"

	"gorm.io/gorm"
)

func testConfig() *config.Config {
	return &config.Config{
		JWT:       config.JWTConfig{AccessSecret: "test", AccessExpiry: time.Hour, Issuer: "test"},
		Synthesis: config.SynthesisConfig{DefaultDailyLimit: 3},
		Watermark: config.WatermarkConfig{Placement: "center", Opacity: 0.5},
	}
}

type fixture struct {
	db       *gorm.DB
	settings *SettingsService
	ledger   *UsageLedger
	registry *RegistryService
	auth     *AuthService
	setRepo  *repository.SettingRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.SetupDB(t)
	cfg := testConfig()
	log := logger.Nop()
	setRepo := repository.NewSettingRepository(db)
	settings := NewSettingsService(setRepo, cfg, log)
	return &fixture{
		db:       db,
		settings: settings,
		ledger:   NewUsageLedger(repository.NewUsageRepository(db), settings),
		registry: NewRegistryService(repository.NewBaseModelRepository(db), log),
		auth:     NewAuthService(cfg, repository.NewUserRepository(db), log),
		setRepo:  setRepo,
	}
}
