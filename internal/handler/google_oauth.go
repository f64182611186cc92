package handler

import (
	"encoding/json"
	"net/http"

	"github.com/wowjjang83/ai-style-synthesis/config"
	"github.com/wowjjang83/ai-style-synthesis/internal/apperr"
	"github.com/wowjjang83/ai-style-synthesis/internal/logger"
	"github.com/wowjjang83/ai-style-synthesis/internal/service"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

type GoogleOAuthHandler struct {
	cfg         *config.OAuthConfig
	authSvc     *service.AuthService
	log         *logger.Logger
	endpoint    oauth2.Endpoint
	userInfoURL string
}

func NewGoogleOAuthHandler(cfg *config.OAuthConfig, authSvc *service.AuthService, log *logger.Logger) *GoogleOAuthHandler {
	return &GoogleOAuthHandler{
		cfg:         cfg,
		authSvc:     authSvc,
		log:         log.With("handler", "google_oauth"),
		endpoint:    google.Endpoint,
		userInfoURL: googleUserInfoURL,
	}
}

func (h *GoogleOAuthHandler) OAuth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     h.cfg.GoogleClientID,
		ClientSecret: h.cfg.GoogleClientSecret,
		RedirectURL:  h.cfg.GoogleRedirectURL,
		Scopes:       []string{"https://www.googleapis.com/auth/userinfo.email", "https://www.googleapis.com/auth/userinfo.profile"},
		Endpoint:     h.endpoint,
	}
}

func (h *GoogleOAuthHandler) configured(c *gin.Context) bool {
	if h.cfg.GoogleClientID == "" {
		respondError(c, h.log, apperr.Upstream("oauth_not_configured", "Google login is not configured", nil))
		return false
	}
	return true
}

// Redirect sends the user to the Google consent screen with a per-session state.
func (h *GoogleOAuthHandler) Redirect(c *gin.Context) {
	if !h.configured(c) {
		return
	}
	state := uuid.NewString()
	s := sessions.Default(c)
	s.Set(sessionOAuthState, state)
	if err := s.Save(); err != nil {
		respondError(c, h.log, apperr.Internal(err, "could not start login"))
		return
	}
	c.Redirect(http.StatusFound, h.OAuth2Config().AuthCodeURL(state))
}

type googleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
}

// Callback exchanges the code, fetches the profile, links or creates the user
// and starts a session.
func (h *GoogleOAuthHandler) Callback(c *gin.Context) {
	if !h.configured(c) {
		return
	}
	s := sessions.Default(c)
	want, _ := s.Get(sessionOAuthState).(string)
	s.Delete(sessionOAuthState)
	if want == "" || c.Query("state") != want {
		respondError(c, h.log, apperr.Validation("invalid_oauth_state", "login state mismatch"))
		return
	}
	code := c.Query("code")
	if code == "" {
		respondError(c, h.log, invalidRequest("missing code"))
		return
	}
	ctx := c.Request.Context()
	conf := h.OAuth2Config()
	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		respondError(c, h.log, apperr.Upstream("oauth_exchange_failed", "could not complete Google login", err))
		return
	}
	resp, err := conf.Client(ctx, tok).Get(h.userInfoURL)
	if err != nil {
		respondError(c, h.log, apperr.Upstream("oauth_profile_failed", "could not read Google profile", err))
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respondError(c, h.log, apperr.Upstream("oauth_profile_failed", "could not read Google profile", nil))
		return
	}
	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		respondError(c, h.log, apperr.Upstream("oauth_profile_failed", "invalid Google profile", err))
		return
	}
	if !info.VerifiedEmail {
		respondError(c, h.log, apperr.Forbidden("Google e-mail is not verified"))
		return
	}
	u, access, isNew, err := h.authSvc.LoginWithGoogle(ctx, info.ID, info.Email)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if err := startSession(c, u); err != nil {
		respondError(c, h.log, apperr.Internal(err, "could not start session"))
		return
	}
	h.log.Info("google login", "user_id", u.ID, "new", isNew)
	c.JSON(http.StatusOK, gin.H{"user": u, "access_token": access, "is_new": isNew, "redirect": landingPath(u)})
}
