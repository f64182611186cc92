package middleware

import (
	"strings"

	"github.com/wowjjang83/ai-style-synthesis/config"
	"github.com/wowjjang83/ai-style-synthesis/internal/apperr"
	"github.com/wowjjang83/ai-style-synthesis/internal/auth"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// Keys shared by the gin context and the session cookie.
const (
	KeyUserID = "user_id"
	KeyEmail  = "email"
	KeyRole   = "role"
)

// AbortError writes the error envelope and stops the chain.
func AbortError(c *gin.Context, err error) {
	status, code, msg := apperr.Public(err)
	c.AbortWithStatusJSON(status, gin.H{"error": gin.H{"code": code, "message": msg}})
}

// Authenticate resolves the caller from the session cookie, then from a Bearer
// token, and for websocket upgrades from the token query parameter. It reports
// whether an identity was found and stored in the context.
func Authenticate(c *gin.Context, cfg *config.JWTConfig) bool {
	if sess := sessionOf(c); sess != nil {
		if id, ok := sess.Get(KeyUserID).(uint); ok && id != 0 {
			role, _ := sess.Get(KeyRole).(string)
			email, _ := sess.Get(KeyEmail).(string)
			setIdentity(c, id, email, role)
			return true
		}
	}
	token := ""
	if h := c.GetHeader("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			token = strings.TrimSpace(parts[1])
		}
	} else if c.IsWebsocket() {
		token = c.Query("token")
	}
	if token == "" {
		return false
	}
	claims, err := auth.ParseAccessToken(cfg, token)
	if err != nil {
		return false
	}
	setIdentity(c, claims.UserID, claims.Email, claims.Role)
	return true
}

// AuthRequired rejects requests without a session or valid token with 401.
func AuthRequired(cfg *config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !Authenticate(c, cfg) {
			AbortError(c, apperr.Unauthenticated("login required"))
			return
		}
		c.Next()
	}
}

// RequireRole checks that the authenticated user has one of the allowed roles.
func RequireRole(allowed ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get(KeyRole)
		if !exists {
			AbortError(c, apperr.Unauthenticated("login required"))
			return
		}
		r, _ := role.(string)
		for _, a := range allowed {
			if r == a {
				c.Next()
				return
			}
		}
		AbortError(c, apperr.Forbidden("insufficient role"))
	}
}

// GetUserID returns the authenticated user ID from context (must be used after AuthRequired).
func GetUserID(c *gin.Context) uint {
	v, _ := c.Get(KeyUserID)
	id, _ := v.(uint)
	return id
}

func GetRole(c *gin.Context) string {
	return c.GetString(KeyRole)
}

func setIdentity(c *gin.Context, id uint, email, role string) {
	c.Set(KeyUserID, id)
	c.Set(KeyEmail, email)
	c.Set(KeyRole, role)
}

// sessionOf is nil when no session middleware is installed.
func sessionOf(c *gin.Context) sessions.Session {
	if _, ok := c.Get(sessions.DefaultKey); !ok {
		return nil
	}
	return sessions.Default(c)
}
