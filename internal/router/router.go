package router

import (
	"net/http"
	"slices"
	"time"

	"github.com/wowjjang83/ai-style-synthesis/config"
	"github.com/wowjjang83/ai-style-synthesis/internal/generator"
	"github.com/wowjjang83/ai-style-synthesis/internal/handler"
	"github.com/wowjjang83/ai-style-synthesis/internal/lock"
	"github.com/wowjjang83/ai-style-synthesis/internal/logger"
	"github.com/wowjjang83/ai-style-synthesis/internal/middleware"
	"github.com/wowjjang83/ai-style-synthesis/internal/repository"
	"github.com/wowjjang83/ai-style-synthesis/internal/service"
	"github.com/wowjjang83/ai-style-synthesis/internal/storage"
	"github.com/wowjjang83/ai-style-synthesis/internal/synthesis"
	"github.com/wowjjang83/ai-style-synthesis/internal/ws"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Infra holds the collaborators chosen at startup from configuration.
type Infra struct {
	Log *logger.Logger
	// Outputs receives generated images; LocalOutputs is the same store when it
	// is on local disk and nil otherwise.
	Outputs      storage.Store
	LocalOutputs *storage.LocalStore
	// Uploads receives admin base-model images.
	Uploads     storage.Store
	// Generator and Classifier default to generator.Disabled when nil.
	Generator   generator.Generator
	Classifier  generator.Classifier
	Watermarker synthesis.Watermarker
	Locker      lock.Locker
	Hub         *ws.Hub
	// Now overrides the ledger clock; nil uses time.Now.
	Now func() time.Time
}

func Setup(cfg *config.Config, db *gorm.DB, infra Infra) *gin.Engine {
	if cfg.Server.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	log := infra.Log
	if log == nil {
		log = logger.Nop()
	}
	hub := infra.Hub
	if hub == nil {
		hub = ws.NewHub()
	}
	if infra.Generator == nil {
		infra.Generator = generator.Disabled{}
	}
	if infra.Classifier == nil {
		infra.Classifier = generator.Disabled{}
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.GinMiddleware(log))
	r.Use(cors.New(corsConfig(cfg.Server.AllowedOrigins)))
	store := cookie.NewStore([]byte(cfg.Session.Secret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   cfg.Session.MaxAge,
		Secure:   cfg.Session.Secure,
		HttpOnly: cfg.Session.HTTPOnly,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(cfg.Session.Name, store))
	r.MaxMultipartMemory = 8 << 20

	// Repositories
	userRepo := repository.NewUserRepository(db)
	settingRepo := repository.NewSettingRepository(db)
	usageRepo := repository.NewUsageRepository(db)
	modelRepo := repository.NewBaseModelRepository(db)

	// Services
	settingsSvc := service.NewSettingsService(settingRepo, cfg, log)
	ledger := service.NewUsageLedger(usageRepo, settingsSvc)
	if infra.Now != nil {
		ledger.SetClock(infra.Now)
	}
	registry := service.NewRegistryService(modelRepo, log)
	authSvc := service.NewAuthService(cfg, userRepo, log)

	orch := synthesis.New(synthesis.Deps{
		Quota:       ledger,
		Settings:    settingsSvc,
		Registry:    registry,
		Resolver:    synthesis.NewResolver(cfg.Storage.StaticDir, cfg.Synthesis.FetchTimeout, cfg.Synthesis.MaxUploadBytes),
		Generator:   infra.Generator,
		Watermarker: infra.Watermarker,
		Store:       infra.Outputs,
		Locker:      infra.Locker,
		Observer:    ws.NewNotifier(hub),
		Log:         log,
	}, synthesis.Options{
		AllowedExtensions: cfg.Synthesis.AllowedExtensions,
		MaxItems:          10,
		MaxItemBytes:      cfg.Synthesis.MaxUploadBytes,
	})

	// Handlers
	authHandler := handler.NewAuthHandler(authSvc, log)
	googleOAuthHandler := handler.NewGoogleOAuthHandler(&cfg.OAuth, authSvc, log)
	synthesisHandler := handler.NewSynthesisHandler(orch, ledger, settingsSvc, registry, infra.Classifier, cfg.Synthesis.MaxUploadBytes, log)
	outputHandler := handler.NewOutputHandler(infra.LocalOutputs, log)
	adminHandler := handler.NewAdminHandler(registry, settingsSvc, ledger, infra.Uploads,
		cfg.Synthesis.AllowedExtensions, cfg.Synthesis.MaxUploadBytes, log)

	authMw := middleware.AuthRequired(&cfg.JWT)
	authLimit := middleware.RateLimit(middleware.NewIPRateLimiter(cfg.RateLimit.AuthPerMinute))
	synthLimit := middleware.RateLimit(middleware.NewIPRateLimiter(cfg.RateLimit.SynthesisPerMinute))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":     "ok",
			"generator":  orch.Available(),
			"ws_clients": hub.ClientCount(),
		})
	})
	r.Static("/static", cfg.Storage.StaticDir)

	api := r.Group("/api/v1")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", authLimit, authHandler.Register)
			authGroup.POST("/login", authLimit, authHandler.Login)
			authGroup.POST("/logout", authHandler.Logout)
			authGroup.GET("/me", authMw, authHandler.Me)
			authGroup.GET("/google", googleOAuthHandler.Redirect)
			authGroup.GET("/google/callback", googleOAuthHandler.Callback)
		}

		synth := api.Group("/synthesis")
		synth.Use(authMw)
		{
			synth.GET("/status", synthesisHandler.Status)
			synth.POST("", synthLimit, synthesisHandler.Synthesize)
			synth.POST("/classify", synthLimit, synthesisHandler.Classify)
		}
		api.GET("/outputs/:name", authMw, outputHandler.Get)

		admin := api.Group("/admin")
		admin.Use(authMw, middleware.AdminRequired())
		{
			admin.GET("/models", adminHandler.ListModels)
			admin.POST("/models", adminHandler.CreateModel)
			admin.POST("/models/upload", adminHandler.UploadModel)
			admin.PATCH("/models/:id", adminHandler.UpdateModel)
			admin.POST("/models/:id/activate", adminHandler.ActivateModel)
			admin.DELETE("/models/:id", adminHandler.DeleteModel)
			admin.GET("/settings", adminHandler.GetSettings)
			admin.PUT("/settings", adminHandler.UpdateSettings)
			admin.GET("/usage", adminHandler.Usage)
		}
	}

	r.GET("/ws/synthesis", authMw, ws.UpgradeSynthesisWS(hub, ws.NewUpgrader(cfg.Server.AllowedOrigins), log))

	return r
}

// corsConfig reflects any origin when the list is empty or contains "*".
func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		c.AllowOriginFunc = func(string) bool { return true }
	} else {
		c.AllowOrigins = origins
	}
	return c
}
