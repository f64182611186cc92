// Package handler holds the gin handlers of the JSON API.
package handler

import (
	"github.com/wowjjang83/ai-style-synthesis/internal/apperr"
	"github.com/wowjjang83/ai-style-synthesis/internal/logger"
	"github.com/wowjjang83/ai-style-synthesis/internal/middleware"

	"github.com/gin-gonic/gin"
)

// respondError logs server-side failures and writes the error envelope
// {"error": {"code", "message"}}.
func respondError(c *gin.Context, log *logger.Logger, err error) {
	status, code, _ := apperr.Public(err)
	if status >= 500 {
		log.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "code", code, "error", err)
	}
	middleware.AbortError(c, err)
}

func invalidRequest(msg string) error {
	return apperr.Validation("invalid_request", msg)
}
