package handler

import (
	"errors"
	"net/http"

	"github.com/wowjjang83/ai-style-synthesis/internal/apperr"
	"github.com/wowjjang83/ai-style-synthesis/internal/logger"
	"github.com/wowjjang83/ai-style-synthesis/internal/storage"

	"github.com/gin-gonic/gin"
)

type OutputHandler struct {
	store *storage.LocalStore // nil when outputs live in a remote store
	log   *logger.Logger
}

func NewOutputHandler(store *storage.LocalStore, log *logger.Logger) *OutputHandler {
	return &OutputHandler{store: store, log: log.With("handler", "outputs")}
}

// Get serves a generated image by bare file name.
func (h *OutputHandler) Get(c *gin.Context) {
	name := c.Param("name")
	if err := storage.ValidateName(name); err != nil {
		respondError(c, h.log, apperr.Validation("invalid_name", "invalid file name"))
		return
	}
	if h.store == nil {
		respondError(c, h.log, apperr.NotFound("output_not_found", "output not found"))
		return
	}
	f, err := h.store.Open(name)
	switch {
	case errors.Is(err, storage.ErrInvalidName):
		respondError(c, h.log, apperr.Validation("invalid_name", "invalid file name"))
		return
	case errors.Is(err, storage.ErrNotFound):
		respondError(c, h.log, apperr.NotFound("output_not_found", "output not found"))
		return
	case err != nil:
		respondError(c, h.log, apperr.Storage(err, "could not read output"))
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		respondError(c, h.log, apperr.Storage(err, "could not read output"))
		return
	}
	c.Header("Cache-Control", "private, max-age=86400")
	http.ServeContent(c.Writer, c.Request, name, info.ModTime(), f)
}
