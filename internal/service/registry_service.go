package service

import (
	"context"
	"errors"
	"strings"

	"github.com/wowjjang83/ai-style-synthesis/internal/apperr"
	"github.com/wowjjang83/ai-style-synthesis/internal/logger"
	"github.com/wowjjang83/ai-style-synthesis/internal/models"
	"github.com/wowjjang83/ai-style-synthesis/internal/repository"
)

// NewBaseModel is the input for Add.
type NewBaseModel struct {
	Name     string
	ImageURL string
	Prompt   *string
	IsActive bool
}

// RegistryService manages base models and the single-active invariant.
type RegistryService struct {
	repo *repository.BaseModelRepository
	log  *logger.Logger
}

func NewRegistryService(repo *repository.BaseModelRepository, log *logger.Logger) *RegistryService {
	return &RegistryService{repo: repo, log: log.With("service", "registry")}
}

func errNoBaseModel() *apperr.Error {
	return apperr.NotFound("base_model_not_found", "base model not found")
}

func (s *RegistryService) mapErr(err error, msg string) error {
	if errors.Is(err, repository.ErrBaseModelNotFound) {
		return errNoBaseModel()
	}
	return apperr.Storage(err, msg)
}

// Active returns the active base model; the highest id wins a tie.
func (s *RegistryService) Active(ctx context.Context) (*models.BaseModel, error) {
	m, err := s.repo.GetActive(ctx)
	if err != nil {
		return nil, s.mapErr(err, "could not read base model")
	}
	return m, nil
}

func (s *RegistryService) List(ctx context.Context) ([]models.BaseModel, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperr.Storage(err, "could not list base models")
	}
	return list, nil
}

func (s *RegistryService) Get(ctx context.Context, id uint) (*models.BaseModel, error) {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapErr(err, "could not read base model")
	}
	return m, nil
}

func (s *RegistryService) Add(ctx context.Context, in NewBaseModel) (*models.BaseModel, error) {
	name := strings.TrimSpace(in.Name)
	url := strings.TrimSpace(in.ImageURL)
	if name == "" || url == "" {
		return nil, apperr.Validation("missing_fields", "name and image_url are required")
	}
	m := &models.BaseModel{Name: name, ImageURL: url, Prompt: normalizePrompt(in.Prompt), IsActive: in.IsActive}
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, apperr.Storage(err, "could not create base model")
	}
	s.log.Info("base model created", "id", m.ID, "active", m.IsActive)
	return m, nil
}

// Update changes only the fields set in p.
func (s *RegistryService) Update(ctx context.Context, id uint, p repository.BaseModelPatch) (*models.BaseModel, error) {
	if p.Name != nil {
		n := strings.TrimSpace(*p.Name)
		if n == "" {
			return nil, apperr.Validation("invalid_name", "name must not be empty")
		}
		p.Name = &n
	}
	if p.ImageURL != nil {
		u := strings.TrimSpace(*p.ImageURL)
		if u == "" {
			return nil, apperr.Validation("invalid_image_url", "image_url must not be empty")
		}
		p.ImageURL = &u
	}
	m, err := s.repo.Update(ctx, id, p)
	if err != nil {
		return nil, s.mapErr(err, "could not update base model")
	}
	return m, nil
}

func (s *RegistryService) Activate(ctx context.Context, id uint) (*models.BaseModel, error) {
	m, err := s.repo.Activate(ctx, id)
	if err != nil {
		return nil, s.mapErr(err, "could not activate base model")
	}
	s.log.Info("base model activated", "id", id)
	return m, nil
}

// Delete reports whether a row existed and was removed.
func (s *RegistryService) Delete(ctx context.Context, id uint) (bool, error) {
	ok, err := s.repo.Delete(ctx, id)
	if err != nil {
		return false, apperr.Storage(err, "could not delete base model")
	}
	if ok {
		s.log.Info("base model deleted", "id", id)
	}
	return ok, nil
}

func normalizePrompt(p *string) *string {
	if p == nil {
		return nil
	}
	t := strings.TrimSpace(*p)
	if t == "" {
		return nil
	}
	return &t
}
