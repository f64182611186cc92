package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/wowjjang83/ai-style-synthesis/config"
	"github.com/wowjjang83/ai-style-synthesis/internal/apperr"
	"github.com/wowjjang83/ai-style-synthesis/internal/auth"
	"github.com/wowjjang83/ai-style-synthesis/internal/domain"
	"github.com/wowjjang83/ai-style-synthesis/internal/logger"
	"github.com/wowjjang83/ai-style-synthesis/internal/models"
	"github.com/wowjjang83/ai-style-synthesis/internal/repository"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const MinPasswordLength = 8

var (
	ErrEmailExists  = apperr.Conflict("email_exists", "email already registered")
	ErrInvalidCreds = apperr.Unauthenticated("invalid email or password")
)

type AuthService struct {
	cfg      *config.Config
	userRepo *repository.UserRepository
	log      *logger.Logger
}

func NewAuthService(cfg *config.Config, userRepo *repository.UserRepository, log *logger.Logger) *AuthService {
	return &AuthService{cfg: cfg, userRepo: userRepo, log: log.With("service", "auth")}
}

// Register creates a USER account and returns it with an access token.
func (s *AuthService) Register(ctx context.Context, email, password string) (*models.User, string, error) {
	email = strings.TrimSpace(email)
	if _, err := mail.ParseAddress(email); err != nil || !strings.Contains(email, "@") {
		return nil, "", apperr.Validation("invalid_email", "a valid email is required")
	}
	if len(password) < MinPasswordLength {
		return nil, "", apperr.Validation("weak_password", "password must be at least 8 characters")
	}
	_, err := s.userRepo.GetByEmail(ctx, email)
	if err == nil {
		return nil, "", ErrEmailExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", apperr.Storage(err, "could not register")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", apperr.Internal(err, "could not register")
	}
	u := &models.User{Email: email, PasswordHash: string(hash), Role: domain.RoleUser}
	if err := s.userRepo.Create(ctx, u); err != nil {
		// lost a race with a concurrent registration
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, "", ErrEmailExists
		}
		return nil, "", apperr.Storage(err, "could not register")
	}
	access, err := auth.GenerateAccessToken(&s.cfg.JWT, u.ID, u.Email, u.Role)
	if err != nil {
		return u, "", apperr.Internal(err, "could not issue token")
	}
	s.log.Info("user registered", "user_id", u.ID)
	return u, access, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	u, err := s.userRepo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrInvalidCreds
		}
		return nil, "", apperr.Storage(err, "could not log in")
	}
	if u.PasswordHash == "" {
		return nil, "", ErrInvalidCreds
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrInvalidCreds
	}
	access, err := auth.GenerateAccessToken(&s.cfg.JWT, u.ID, u.Email, u.Role)
	if err != nil {
		return nil, "", apperr.Internal(err, "could not issue token")
	}
	return u, access, nil
}

func (s *AuthService) GetByID(ctx context.Context, id uint) (*models.User, error) {
	u, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("user_not_found", "user not found")
		}
		return nil, apperr.Storage(err, "could not read user")
	}
	return u, nil
}

// LoginWithGoogle finds the user by Google ID, links Google to an existing
// account with the same email, or creates a new USER account.
func (s *AuthService) LoginWithGoogle(ctx context.Context, googleID, email string) (*models.User, string, bool, error) {
	if googleID == "" || email == "" {
		return nil, "", false, apperr.Validation("invalid_google_profile", "google profile is missing id or email")
	}
	isNew := false
	u, err := s.userRepo.GetByGoogleID(ctx, googleID)
	switch {
	case err == nil:
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, "", false, apperr.Storage(err, "could not log in")
	default:
		gid := googleID
		existing, lookupErr := s.userRepo.GetByEmail(ctx, email)
		switch {
		case lookupErr == nil:
			existing.GoogleID = &gid
			if err := s.userRepo.Update(ctx, existing); err != nil {
				return nil, "", false, apperr.Storage(err, "could not link account")
			}
			u = existing
		case errors.Is(lookupErr, gorm.ErrRecordNotFound):
			u = &models.User{Email: email, GoogleID: &gid, Role: domain.RoleUser}
			if err := s.userRepo.Create(ctx, u); err != nil {
				return nil, "", false, apperr.Storage(err, "could not create account")
			}
			isNew = true
		default:
			return nil, "", false, apperr.Storage(lookupErr, "could not log in")
		}
	}
	access, err := auth.GenerateAccessToken(&s.cfg.JWT, u.ID, u.Email, u.Role)
	if err != nil {
		return nil, "", false, apperr.Internal(err, "could not issue token")
	}
	return u, access, isNew, nil
}
