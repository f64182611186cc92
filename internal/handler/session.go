package handler

import (
	"github.com/wowjjang83/ai-style-synthesis/internal/middleware"
	"github.com/wowjjang83/ai-style-synthesis/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const sessionOAuthState = "oauth_state"

func startSession(c *gin.Context, u *models.User) error {
	s := sessions.Default(c)
	s.Clear()
	s.Set(middleware.KeyUserID, u.ID)
	s.Set(middleware.KeyEmail, u.Email)
	s.Set(middleware.KeyRole, u.Role)
	return s.Save()
}

func endSession(c *gin.Context) error {
	s := sessions.Default(c)
	s.Clear()
	s.Options(sessions.Options{Path: "/", MaxAge: -1})
	return s.Save()
}

// landingPath is where a freshly logged-in client should go next.
func landingPath(u *models.User) string {
	if u.IsAdmin() {
		return "/admin"
	}
	return "/"
}
