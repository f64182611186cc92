package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"syscall"
	"time"

	"github.com/wowjjang83/ai-style-synthesis/config"
	"github.com/wowjjang83/ai-style-synthesis/internal/database"
	"github.com/wowjjang83/ai-style-synthesis/internal/generator"
	"github.com/wowjjang83/ai-style-synthesis/internal/imaging"
	"github.com/wowjjang83/ai-style-synthesis/internal/lock"
	"github.com/wowjjang83/ai-style-synthesis/internal/logger"
	"github.com/wowjjang83/ai-style-synthesis/internal/repository"
	"github.com/wowjjang83/ai-style-synthesis/internal/router"
	"github.com/wowjjang83/ai-style-synthesis/internal/service"
	"github.com/wowjjang83/ai-style-synthesis/internal/storage"
	"github.com/wowjjang83/ai-style-synthesis/internal/ws"
	"github.com/wowjjang83/ai-style-synthesis/pkg/cloudinary"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	lg, err := logger.New(cfg.Log.Mode)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer lg.Sync()

	db, err := database.NewDB(&cfg.Database)
	if err != nil {
		lg.Fatal("database", "error", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		lg.Fatal("migrate", "error", err)
	}
	if seeded, err := database.SeedAdmin(db, &cfg.Admin); err != nil {
		lg.Fatal("seed admin", "error", err)
	} else if seeded {
		lg.Info("admin account ready", "email", cfg.Admin.Email)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	infra, closeInfra, err := buildInfra(ctx, cfg, db, lg)
	cancel()
	if err != nil {
		lg.Fatal("startup", "error", err)
	}
	defer closeInfra()

	engine := router.Setup(cfg, db, infra)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		lg.Info("server listening", "port", cfg.Server.Port, "env", cfg.Server.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatal("listen", "error", err)
		}
	}()
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	lg.Info("shutting down")
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Error("server shutdown", "error", err)
	}
	fmt.Println("server stopped")
}

// buildInfra seeds settings and picks the storage, generation and locking
// backends named by cfg.
func buildInfra(ctx context.Context, cfg *config.Config, db *gorm.DB, lg *logger.Logger) (router.Infra, func(), error) {
	closers := []func(){}
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	infra := router.Infra{
		Log:         lg,
		Hub:         ws.NewHub(),
		Watermarker: imaging.NewWatermarker(cfg.Watermark.MarkPath),
	}

	settings := service.NewSettingsService(repository.NewSettingRepository(db), cfg, lg)
	if err := settings.SeedDefaults(ctx); err != nil {
		return infra, closeAll, fmt.Errorf("seed settings: %w", err)
	}

	switch cfg.Storage.Driver {
	case "cloudinary":
		cloud, err := cloudinary.NewClientFromParams(cfg.Cloudinary.CloudName, cfg.Cloudinary.APIKey, cfg.Cloudinary.APISecret)
		if err != nil {
			return infra, closeAll, fmt.Errorf("cloudinary: %w", err)
		}
		infra.Outputs = storage.NewCloudStore(cloud, path.Join(cfg.Cloudinary.Folder, "outputs"))
		infra.Uploads = storage.NewCloudStore(cloud, path.Join(cfg.Cloudinary.Folder, "base_models"))
		lg.Info("storage: cloudinary", "folder", cfg.Cloudinary.Folder)
	default:
		outputs, err := storage.NewLocalStore(cfg.Storage.OutputDir, "/api/v1/outputs")
		if err != nil {
			return infra, closeAll, fmt.Errorf("output dir: %w", err)
		}
		uploads, err := storage.NewLocalStore(filepath.Join(cfg.Storage.StaticDir, "base_models"), "/static/base_models")
		if err != nil {
			return infra, closeAll, fmt.Errorf("upload dir: %w", err)
		}
		infra.Outputs, infra.LocalOutputs, infra.Uploads = outputs, outputs, uploads
		lg.Info("storage: local", "outputs", cfg.Storage.OutputDir)
	}

	if cfg.Gemini.Enabled() {
		g, err := generator.NewGemini(ctx, &cfg.Gemini)
		if err != nil {
			return infra, closeAll, fmt.Errorf("gemini: %w", err)
		}
		infra.Generator, infra.Classifier = g, g
		lg.Info("generator: gemini", "model", cfg.Gemini.Model)
	} else {
		lg.Warn("GEMINI_API_KEY not set; synthesis requests will return 503")
	}

	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		closers = append(closers, func() { _ = rdb.Close() })
		if err := rdb.Ping(ctx).Err(); err != nil {
			return infra, closeAll, fmt.Errorf("redis: %w", err)
		}
		infra.Locker = lock.NewRedis(rdb, "style:lock:", cfg.Synthesis.LockTTL)
		lg.Info("synthesis lock: redis", "addr", cfg.Redis.Addr)
	} else {
		infra.Locker = lock.NewLocal()
	}
	return infra, closeAll, nil
}
