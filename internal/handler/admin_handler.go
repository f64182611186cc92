package handler

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/wowjjang83/ai-style-synthesis/internal/apperr"
	"github.com/wowjjang83/ai-style-synthesis/internal/domain"
	"github.com/wowjjang83/ai-style-synthesis/internal/logger"
	"github.com/wowjjang83/ai-style-synthesis/internal/repository"
	"github.com/wowjjang83/ai-style-synthesis/internal/service"
	"github.com/wowjjang83/ai-style-synthesis/internal/storage"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AdminHandler struct {
	registry   *service.RegistryService
	settings   *service.SettingsService
	ledger     *service.UsageLedger
	uploads    storage.Store
	allowedExt []string
	maxUpload  int64
	log        *logger.Logger
}

func NewAdminHandler(
	registry *service.RegistryService,
	settings *service.SettingsService,
	ledger *service.UsageLedger,
	uploads storage.Store,
	allowedExt []string,
	maxUpload int64,
	log *logger.Logger,
) *AdminHandler {
	return &AdminHandler{
		registry:   registry,
		settings:   settings,
		ledger:     ledger,
		uploads:    uploads,
		allowedExt: allowedExt,
		maxUpload:  maxUpload,
		log:        log.With("handler", "admin"),
	}
}

func parseID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Validation("invalid_id", "id must be a positive integer")
	}
	return uint(id), nil
}

func (h *AdminHandler) ListModels(c *gin.Context) {
	list, err := h.registry.List(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"models": list})
}

type createModelRequest struct {
	Name     string  `json:"name"`
	ImageURL string  `json:"image_url"`
	Prompt   *string `json:"prompt"`
	IsActive bool    `json:"is_active"`
}

func (h *AdminHandler) CreateModel(c *gin.Context) {
	var req createModelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, invalidRequest("invalid JSON body"))
		return
	}
	m, err := h.registry.Add(c.Request.Context(), service.NewBaseModel{
		Name:     req.Name,
		ImageURL: req.ImageURL,
		Prompt:   req.Prompt,
		IsActive: req.IsActive,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"model": m})
}

type updateModelRequest struct {
	Name     *string `json:"name"`
	ImageURL *string `json:"image_url"`
	Prompt   *string `json:"prompt"`
	IsActive *bool   `json:"is_active"`
}

// UpdateModel changes only the fields present in the body.
func (h *AdminHandler) UpdateModel(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	var req updateModelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, invalidRequest("invalid JSON body"))
		return
	}
	patch := repository.BaseModelPatch{Name: req.Name, ImageURL: req.ImageURL, Prompt: req.Prompt, IsActive: req.IsActive}
	if patch.Empty() {
		respondError(c, h.log, apperr.Validation("empty_patch", "no fields to update"))
		return
	}
	m, err := h.registry.Update(c.Request.Context(), id, patch)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"model": m})
}

func (h *AdminHandler) ActivateModel(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	m, err := h.registry.Activate(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"model": m})
}

// DeleteModel also removes the image when it was uploaded through this API.
func (h *AdminHandler) DeleteModel(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	ctx := c.Request.Context()
	m, err := h.registry.Get(ctx, id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	ok, err := h.registry.Delete(ctx, id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if !ok {
		respondError(c, h.log, apperr.NotFound("base_model_not_found", "base model not found"))
		return
	}
	h.removeUpload(ctx, m.ImageURL)
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// removeUpload deletes an image this handler stored; other URLs are ignored.
func (h *AdminHandler) removeUpload(ctx context.Context, url string) {
	rm, ok := h.uploads.(storage.Remover)
	if !ok {
		return
	}
	if err := rm.Remove(ctx, url); err != nil && !errors.Is(err, storage.ErrNotFound) {
		h.log.Warn("base model image cleanup failed", "url", url, "error", err)
	}
}

// UploadModel stores an image and registers it as a base model.
// Form fields: image (file), name, prompt, is_active.
func (h *AdminHandler) UploadModel(c *gin.Context) {
	fh, err := c.FormFile("image")
	if err != nil {
		respondError(c, h.log, invalidRequest("image file is required"))
		return
	}
	name := strings.TrimSpace(c.PostForm("name"))
	if name == "" {
		respondError(c, h.log, apperr.Validation("missing_fields", "name is required"))
		return
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(fh.Filename), "."))
	if !h.extAllowed(ext) {
		respondError(c, h.log, apperr.Validation("invalid_extension", "allowed extensions: "+strings.Join(h.allowedExt, ", ")))
		return
	}
	f, err := fh.Open()
	if err != nil {
		respondError(c, h.log, invalidRequest("could not read image"))
		return
	}
	defer f.Close()
	data, err := readUpload(f, h.maxUpload)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if !strings.HasPrefix(mimetype.Detect(data).String(), "image/") {
		respondError(c, h.log, apperr.Validation("invalid_image", "file is not an image"))
		return
	}
	active, _ := strconv.ParseBool(c.DefaultPostForm("is_active", "false"))
	var prompt *string
	if p := c.PostForm("prompt"); p != "" {
		prompt = &p
	}

	ctx := c.Request.Context()
	fileName := "model_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16] + "." + ext
	url, err := h.uploads.Save(ctx, fileName, bytes.NewReader(data))
	if err != nil {
		respondError(c, h.log, apperr.Storage(err, "could not store image"))
		return
	}
	m, err := h.registry.Add(ctx, service.NewBaseModel{Name: name, ImageURL: url, Prompt: prompt, IsActive: active})
	if err != nil {
		h.removeUpload(ctx, url)
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"model": m})
}

func (h *AdminHandler) extAllowed(ext string) bool {
	for _, a := range h.allowedExt {
		if strings.EqualFold(strings.TrimPrefix(a, "."), ext) {
			return true
		}
	}
	return false
}

func (h *AdminHandler) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"settings": h.settings.List(c.Request.Context())})
}

// UpdateSettings writes nothing unless every supplied key is valid.
func (h *AdminHandler) UpdateSettings(c *gin.Context) {
	var body map[string]interface{}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, h.log, invalidRequest("invalid JSON body"))
		return
	}
	ctx := c.Request.Context()
	res, err := h.settings.Update(ctx, body)
	if err != nil {
		if res != nil && len(res.Errors) > 0 {
			status, code, msg := apperr.Public(err)
			c.AbortWithStatusJSON(status, gin.H{
				"error":  gin.H{"code": code, "message": msg},
				"errors": res.Errors,
			})
			return
		}
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": res.Updated, "settings": h.settings.List(ctx)})
}

// Usage reports one day's usage; date defaults to today (YYYY-MM-DD).
func (h *AdminHandler) Usage(c *gin.Context) {
	day := c.DefaultQuery("date", h.ledger.Today())
	if _, err := time.Parse(domain.UsageDateLayout, day); err != nil {
		respondError(c, h.log, apperr.Validation("invalid_date", "date must be YYYY-MM-DD"))
		return
	}
	report, err := h.ledger.Report(c.Request.Context(), day)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
