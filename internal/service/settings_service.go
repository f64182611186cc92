package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/wowjjang83/ai-style-synthesis/config"
	"github.com/wowjjang83/ai-style-synthesis/internal/apperr"
	"github.com/wowjjang83/ai-style-synthesis/internal/domain"
	"github.com/wowjjang83/ai-style-synthesis/internal/logger"
	"github.com/wowjjang83/ai-style-synthesis/internal/repository"
)

// WatermarkOptions is the effective watermark policy.
type WatermarkOptions struct {
	Enabled   bool
	Placement string
	Opacity   float64
}

// SettingsUpdate is the outcome of an admin settings change.
type SettingsUpdate struct {
	Updated map[string]interface{} `json:"updated"`
	Errors  map[string]string      `json:"errors,omitempty"`
}

type SettingsService struct {
	repo         *repository.SettingRepository
	defaultLimit int
	watermark    config.WatermarkConfig
	log          *logger.Logger
}

func NewSettingsService(repo *repository.SettingRepository, cfg *config.Config, log *logger.Logger) *SettingsService {
	return &SettingsService{
		repo:         repo,
		defaultLimit: cfg.Synthesis.DefaultDailyLimit,
		watermark:    cfg.Watermark,
		log:          log.With("service", "settings"),
	}
}

// Defaults are the values seeded on startup for keys that do not exist yet.
func (s *SettingsService) Defaults() map[string]string {
	return map[string]string{
		domain.SettingMaxUserSyntheses:   strconv.Itoa(s.defaultLimit),
		domain.SettingApplyWatermark:     "false",
		domain.SettingWatermarkPlacement: s.watermark.Placement,
		domain.SettingWatermarkOpacity:   strconv.FormatFloat(s.watermark.Opacity, 'f', -1, 64),
	}
}

func (s *SettingsService) SeedDefaults(ctx context.Context) error {
	return s.repo.SeedDefaults(ctx, s.Defaults())
}

// raw returns the stored value, "" with ok=false when missing or unreadable.
func (s *SettingsService) raw(ctx context.Context, key string) (string, bool) {
	v, err := s.repo.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, repository.ErrSettingNotFound) {
			s.log.Warn("setting read failed, using default", "key", key, "error", err)
		}
		return "", false
	}
	return v, true
}

// DailyLimit never fails: a missing, malformed or negative value yields the
// configured default.
func (s *SettingsService) DailyLimit(ctx context.Context) int {
	v, ok := s.raw(ctx, domain.SettingMaxUserSyntheses)
	if !ok {
		return s.defaultLimit
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 {
		s.log.Warn("malformed daily limit, using default", "value", v)
		return s.defaultLimit
	}
	return n
}

// WatermarkEnabled is true only for a case-insensitive "true".
func (s *SettingsService) WatermarkEnabled(ctx context.Context) bool {
	v, ok := s.raw(ctx, domain.SettingApplyWatermark)
	return ok && strings.EqualFold(strings.TrimSpace(v), "true")
}

func (s *SettingsService) WatermarkOptions(ctx context.Context) WatermarkOptions {
	opts := WatermarkOptions{
		Enabled:   s.WatermarkEnabled(ctx),
		Placement: s.watermark.Placement,
		Opacity:   s.watermark.Opacity,
	}
	if v, ok := s.raw(ctx, domain.SettingWatermarkPlacement); ok {
		if p, err := parsePlacement(v); err == nil {
			opts.Placement = p
		}
	}
	if v, ok := s.raw(ctx, domain.SettingWatermarkOpacity); ok {
		if f, err := parseOpacity(v); err == nil {
			opts.Opacity = f
		}
	}
	return opts
}

// List returns the typed effective value of every manageable key.
func (s *SettingsService) List(ctx context.Context) map[string]interface{} {
	wm := s.WatermarkOptions(ctx)
	return map[string]interface{}{
		domain.SettingMaxUserSyntheses:   s.DailyLimit(ctx),
		domain.SettingApplyWatermark:     wm.Enabled,
		domain.SettingWatermarkPlacement: wm.Placement,
		domain.SettingWatermarkOpacity:   wm.Opacity,
	}
}

// Update validates every entry first and writes only when all are valid, in
// one transaction. Validation problems are returned per key with a
// Validation error.
func (s *SettingsService) Update(ctx context.Context, in map[string]interface{}) (*SettingsUpdate, error) {
	if len(in) == 0 {
		return nil, apperr.Validation("empty_settings", "no settings supplied")
	}
	res := &SettingsUpdate{Updated: map[string]interface{}{}, Errors: map[string]string{}}
	toWrite := make(map[string]string, len(in))
	for key, value := range in {
		stored, typed, err := normalizeSetting(key, value)
		if err != nil {
			res.Errors[key] = err.Error()
			continue
		}
		toWrite[key] = stored
		res.Updated[key] = typed
	}
	if len(res.Errors) > 0 {
		res.Updated = map[string]interface{}{}
		return res, apperr.Validation("invalid_settings", "one or more settings are invalid")
	}
	if err := s.repo.SetMany(ctx, toWrite); err != nil {
		return nil, apperr.Storage(err, "could not save settings")
	}
	s.log.Info("settings updated", "keys", len(toWrite))
	res.Errors = nil
	return res, nil
}

func normalizeSetting(key string, value interface{}) (string, interface{}, error) {
	switch key {
	case domain.SettingMaxUserSyntheses:
		n, err := toNonNegativeInt(value)
		if err != nil {
			return "", nil, err
		}
		return strconv.Itoa(n), n, nil
	case domain.SettingApplyWatermark:
		b, ok := value.(bool)
		if !ok {
			return "", nil, errors.New("must be true or false")
		}
		return strconv.FormatBool(b), b, nil
	case domain.SettingWatermarkPlacement:
		str, _ := value.(string)
		p, err := parsePlacement(str)
		if err != nil {
			return "", nil, err
		}
		return p, p, nil
	case domain.SettingWatermarkOpacity:
		var f float64
		switch v := value.(type) {
		case float64:
			f = v
		case string:
			var err error
			if f, err = strconv.ParseFloat(strings.TrimSpace(v), 64); err != nil {
				return "", nil, errors.New("must be a number")
			}
		default:
			return "", nil, errors.New("must be a number")
		}
		if _, err := parseOpacity(strconv.FormatFloat(f, 'f', -1, 64)); err != nil {
			return "", nil, err
		}
		return strconv.FormatFloat(f, 'f', -1, 64), f, nil
	default:
		return "", nil, errors.New("not a manageable setting")
	}
}

func toNonNegativeInt(value interface{}) (int, error) {
	var n int
	switch v := value.(type) {
	case float64:
		switch {
		case math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v):
			return 0, errors.New("must be an integer")
		case v < 0:
			return 0, errors.New("must be 0 or greater")
		case v >= float64(math.MaxInt):
			return 0, errors.New("out of range")
		}
		n = int(v)
	case int:
		n = v
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(v))
		if errors.Is(err, strconv.ErrRange) {
			return 0, errors.New("out of range")
		}
		if err != nil {
			return 0, errors.New("must be an integer")
		}
		n = parsed
	default:
		return 0, errors.New("must be an integer")
	}
	if n < 0 {
		return 0, errors.New("must be 0 or greater")
	}
	return n, nil
}

func parsePlacement(v string) (string, error) {
	switch p := strings.ToLower(strings.TrimSpace(v)); p {
	case domain.WatermarkTile, domain.WatermarkCenter:
		return p, nil
	default:
		return "", fmt.Errorf("must be %q or %q", domain.WatermarkTile, domain.WatermarkCenter)
	}
}

func parseOpacity(v string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, errors.New("must be a number")
	}
	if f < 0 || f >= 1 {
		return 0, errors.New("must be in [0, 1)")
	}
	return f, nil
}
