package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Log        LogConfig
	Database   DatabaseConfig
	Session    SessionConfig
	JWT        JWTConfig
	OAuth      OAuthConfig
	Admin      AdminConfig
	Gemini     GeminiConfig
	Storage    StorageConfig
	Cloudinary CloudinaryConfig
	Redis      RedisConfig
	Synthesis  SynthesisConfig
	Watermark  WatermarkConfig
	RateLimit  RateLimitConfig
}

type ServerConfig struct {
	Port           string
	Env            string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	AllowedOrigins []string
}

type LogConfig struct {
	Mode string
}

type DatabaseConfig struct {
	Type            string // mysql | postgres | sqlite
	DSN             string
	Path            string // sqlite file, used when DSN is empty
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

type SessionConfig struct {
	Secret   string
	Name     string
	MaxAge   int
	Secure   bool
	HTTPOnly bool
}

type JWTConfig struct {
	AccessSecret string
	AccessExpiry time.Duration
	Issuer       string
}

type OAuthConfig struct {
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
}

// AdminConfig is the account seeded on first start. Empty email disables seeding.
type AdminConfig struct {
	Email    string
	Password string
}

type GeminiConfig struct {
	APIKey        string
	Model         string
	ClassifyModel string
	Timeout       time.Duration
}

type StorageConfig struct {
	Driver    string // local | cloudinary
	StaticDir string
	OutputDir string
}

type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type SynthesisConfig struct {
	DefaultDailyLimit int
	FetchTimeout      time.Duration
	LockTTL           time.Duration
	MaxUploadBytes    int64
	AllowedExtensions []string
}

type WatermarkConfig struct {
	MarkPath  string
	Placement string
	Opacity   float64
}

type RateLimitConfig struct {
	AuthPerMinute      int
	SynthesisPerMinute int
}

// Enabled reports whether a Gemini API key was supplied.
func (g GeminiConfig) Enabled() bool { return strings.TrimSpace(g.APIKey) != "" }

func (c CloudinaryConfig) Enabled() bool {
	return c.CloudName != "" && c.APIKey != "" && c.APISecret != ""
}

func (s ServerConfig) IsProduction() bool { return strings.EqualFold(s.Env, "production") }

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.env", "development")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "120s")
	v.SetDefault("server.allowed_origins", "http://localhost:3000")

	v.SetDefault("log.mode", "")

	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.path", "data/app.db")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 50)
	v.SetDefault("database.conn_max_lifetime", "1h")

	v.SetDefault("session.secret", "change-me-session-secret")
	v.SetDefault("session.name", "style_session")
	v.SetDefault("session.max_age", 7*24*3600)
	v.SetDefault("session.secure", false)
	v.SetDefault("session.http_only", true)

	v.SetDefault("jwt.access_secret", "change-me-in-production")
	v.SetDefault("jwt.access_expiry", "24h")
	v.SetDefault("jwt.issuer", "ai-style-synthesis")

	v.SetDefault("oauth.google_client_id", "")
	v.SetDefault("oauth.google_client_secret", "")
	v.SetDefault("oauth.google_redirect_url", "http://localhost:8080/api/v1/auth/google/callback")

	v.SetDefault("admin.email", "")
	v.SetDefault("admin.password", "")

	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model", "gemini-2.0-flash-exp-image-generation")
	v.SetDefault("gemini.classify_model", "gemini-2.0-flash")
	v.SetDefault("gemini.timeout", "90s")

	v.SetDefault("storage.driver", "local")
	v.SetDefault("storage.static_dir", "static")
	v.SetDefault("storage.output_dir", "data/outputs")

	v.SetDefault("cloudinary.cloud_name", "")
	v.SetDefault("cloudinary.api_key", "")
	v.SetDefault("cloudinary.api_secret", "")
	v.SetDefault("cloudinary.folder", "style-synthesis")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("synthesis.default_daily_limit", 3)
	v.SetDefault("synthesis.fetch_timeout", "15s")
	v.SetDefault("synthesis.lock_ttl", "3m")
	v.SetDefault("synthesis.max_upload_bytes", 16<<20)
	v.SetDefault("synthesis.allowed_extensions", "png,jpg,jpeg")

	v.SetDefault("watermark.mark_path", "static/images/watermark.png")
	v.SetDefault("watermark.placement", "center")
	v.SetDefault("watermark.opacity", 0.5)

	v.SetDefault("ratelimit.auth_per_minute", 20)
	v.SetDefault("ratelimit.synthesis_per_minute", 6)
}

// Load reads defaults, an optional CONFIG_FILE and the environment.
// Environment keys are the upper-cased dotted keys with "_" separators,
// e.g. GEMINI_API_KEY, DATABASE_TYPE, SESSION_SECRET.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := v.GetString("config_file"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:           v.GetString("server.port"),
			Env:            v.GetString("server.env"),
			ReadTimeout:    v.GetDuration("server.read_timeout"),
			WriteTimeout:   v.GetDuration("server.write_timeout"),
			AllowedOrigins: splitList(v.GetString("server.allowed_origins")),
		},
		Log: LogConfig{Mode: v.GetString("log.mode")},
		Database: DatabaseConfig{
			Type:            strings.ToLower(v.GetString("database.type")),
			DSN:             v.GetString("database.dsn"),
			Path:            v.GetString("database.path"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
		},
		Session: SessionConfig{
			Secret:   v.GetString("session.secret"),
			Name:     v.GetString("session.name"),
			MaxAge:   v.GetInt("session.max_age"),
			Secure:   v.GetBool("session.secure"),
			HTTPOnly: v.GetBool("session.http_only"),
		},
		JWT: JWTConfig{
			AccessSecret: v.GetString("jwt.access_secret"),
			AccessExpiry: v.GetDuration("jwt.access_expiry"),
			Issuer:       v.GetString("jwt.issuer"),
		},
		OAuth: OAuthConfig{
			GoogleClientID:     v.GetString("oauth.google_client_id"),
			GoogleClientSecret: v.GetString("oauth.google_client_secret"),
			GoogleRedirectURL:  v.GetString("oauth.google_redirect_url"),
		},
		Admin: AdminConfig{
			Email:    v.GetString("admin.email"),
			Password: v.GetString("admin.password"),
		},
		Gemini: GeminiConfig{
			APIKey:        v.GetString("gemini.api_key"),
			Model:         v.GetString("gemini.model"),
			ClassifyModel: v.GetString("gemini.classify_model"),
			Timeout:       v.GetDuration("gemini.timeout"),
		},
		Storage: StorageConfig{
			Driver:    strings.ToLower(v.GetString("storage.driver")),
			StaticDir: v.GetString("storage.static_dir"),
			OutputDir: v.GetString("storage.output_dir"),
		},
		Cloudinary: CloudinaryConfig{
			CloudName: v.GetString("cloudinary.cloud_name"),
			APIKey:    v.GetString("cloudinary.api_key"),
			APISecret: v.GetString("cloudinary.api_secret"),
			Folder:    v.GetString("cloudinary.folder"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Synthesis: SynthesisConfig{
			DefaultDailyLimit: v.GetInt("synthesis.default_daily_limit"),
			FetchTimeout:      v.GetDuration("synthesis.fetch_timeout"),
			LockTTL:           v.GetDuration("synthesis.lock_ttl"),
			MaxUploadBytes:    v.GetInt64("synthesis.max_upload_bytes"),
			AllowedExtensions: splitList(strings.ToLower(v.GetString("synthesis.allowed_extensions"))),
		},
		Watermark: WatermarkConfig{
			MarkPath:  v.GetString("watermark.mark_path"),
			Placement: strings.ToLower(v.GetString("watermark.placement")),
			Opacity:   v.GetFloat64("watermark.opacity"),
		},
		RateLimit: RateLimitConfig{
			AuthPerMinute:      v.GetInt("ratelimit.auth_per_minute"),
			SynthesisPerMinute: v.GetInt("ratelimit.synthesis_per_minute"),
		},
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Database.Type {
	case "mysql", "postgres", "sqlite":
	default:
		return errors.New("config: DATABASE_TYPE must be mysql, postgres or sqlite")
	}
	if c.Database.Type != "sqlite" && c.Database.DSN == "" {
		return errors.New("config: DATABASE_DSN is required for " + c.Database.Type)
	}
	if c.Server.IsProduction() && len(c.Session.Secret) < 32 {
		return errors.New("config: SESSION_SECRET must be at least 32 bytes in production")
	}
	if c.Synthesis.DefaultDailyLimit < 0 {
		return errors.New("config: SYNTHESIS_DEFAULT_DAILY_LIMIT must be non-negative")
	}
	switch c.Storage.Driver {
	case "local":
	case "cloudinary":
		if !c.Cloudinary.Enabled() {
			return errors.New("config: cloudinary storage requires CLOUDINARY_CLOUD_NAME, CLOUDINARY_API_KEY and CLOUDINARY_API_SECRET")
		}
	default:
		return errors.New("config: STORAGE_DRIVER must be local or cloudinary")
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
