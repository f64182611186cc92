package handler

import (
	"net/http"

	"github.com/wowjjang83/ai-style-synthesis/internal/apperr"
	"github.com/wowjjang83/ai-style-synthesis/internal/logger"
	"github.com/wowjjang83/ai-style-synthesis/internal/middleware"
	"github.com/wowjjang83/ai-style-synthesis/internal/service"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	svc *service.AuthService
	log *logger.Logger
}

func NewAuthHandler(svc *service.AuthService, log *logger.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, log: log.With("handler", "auth")}
}

type CredentialsRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, invalidRequest("email and password are required"))
		return
	}
	u, access, err := h.svc.Register(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if err := startSession(c, u); err != nil {
		respondError(c, h.log, apperr.Internal(err, "could not start session"))
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": u, "access_token": access, "redirect": landingPath(u)})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, invalidRequest("email and password are required"))
		return
	}
	u, access, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if err := startSession(c, u); err != nil {
		respondError(c, h.log, apperr.Internal(err, "could not start session"))
		return
	}
	h.log.Info("user logged in", "user_id", u.ID)
	c.JSON(http.StatusOK, gin.H{"user": u, "access_token": access, "redirect": landingPath(u)})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	if err := endSession(c); err != nil {
		respondError(c, h.log, apperr.Internal(err, "could not end session"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func (h *AuthHandler) Me(c *gin.Context) {
	u, err := h.svc.GetByID(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u})
}
