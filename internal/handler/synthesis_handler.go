package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/wowjjang83/ai-style-synthesis/internal/apperr"
	"github.com/wowjjang83/ai-style-synthesis/internal/domain"
	"github.com/wowjjang83/ai-style-synthesis/internal/generator"
	"github.com/wowjjang83/ai-style-synthesis/internal/logger"
	"github.com/wowjjang83/ai-style-synthesis/internal/middleware"
	"github.com/wowjjang83/ai-style-synthesis/internal/service"
	"github.com/wowjjang83/ai-style-synthesis/internal/synthesis"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
)

// maxFormItems bounds how many item_type_i/item_image_i pairs are read.
const maxFormItems = 32

type SynthesisHandler struct {
	orch       *synthesis.Orchestrator
	ledger     *service.UsageLedger
	settings   *service.SettingsService
	registry   *service.RegistryService
	classifier generator.Classifier
	maxUpload  int64
	log        *logger.Logger
}

// NewSynthesisHandler falls back to generator.Disabled for a nil classifier.
func NewSynthesisHandler(
	orch *synthesis.Orchestrator,
	ledger *service.UsageLedger,
	settings *service.SettingsService,
	registry *service.RegistryService,
	classifier generator.Classifier,
	maxUpload int64,
	log *logger.Logger,
) *SynthesisHandler {
	if classifier == nil {
		classifier = generator.Disabled{}
	}
	return &SynthesisHandler{
		orch:       orch,
		ledger:     ledger,
		settings:   settings,
		registry:   registry,
		classifier: classifier,
		maxUpload:  maxUpload,
		log:        log.With("handler", "synthesis"),
	}
}

type baseModelSummary struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	ImageURL string `json:"image_url"`
}

// Status reports the caller's quota, the watermark flag and the active model.
func (h *SynthesisHandler) Status(c *gin.Context) {
	ctx := c.Request.Context()
	st, err := h.ledger.Status(ctx, middleware.GetUserID(c), h.ledger.Today())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	var active *baseModelSummary
	m, err := h.registry.Active(ctx)
	switch {
	case err == nil:
		active = &baseModelSummary{ID: m.ID, Name: m.Name, ImageURL: m.ImageURL}
	case apperr.KindOf(err) != apperr.KindNotFound:
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"quota":               st,
		"watermark":           h.settings.WatermarkEnabled(ctx),
		"base_model":          active,
		"generator_available": h.orch.Available(),
		"categories":          domain.ItemCategories,
	})
}

// Synthesize reads item_count and the item_type_i / item_image_i pairs
// (0-based) from a multipart form.
func (h *SynthesisHandler) Synthesize(c *gin.Context) {
	if h.maxUpload > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload*maxFormItems)
	}
	if _, err := c.MultipartForm(); err != nil {
		respondError(c, h.log, invalidRequest("a multipart form is required"))
		return
	}
	count, err := strconv.Atoi(strings.TrimSpace(c.PostForm("item_count")))
	if err != nil {
		respondError(c, h.log, apperr.Validation(domain.AbortInvalidItems, "item_count must be an integer"))
		return
	}
	items := make([]synthesis.Item, 0, min(max(count, 0), maxFormItems))
	for i := 0; i < count && i < maxFormItems; i++ {
		it := synthesis.Item{Type: c.PostForm(fmt.Sprintf("item_type_%d", i))}
		if fh, err := c.FormFile(fmt.Sprintf("item_image_%d", i)); err == nil {
			it.Filename = fh.Filename
			it.Open = func() (io.ReadCloser, error) { return fh.Open() }
		}
		items = append(items, it)
	}

	res, err := h.orch.Synthesize(c.Request.Context(), synthesis.Request{
		UserID:        middleware.GetUserID(c),
		DeclaredCount: count,
		Items:         items,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Classify guesses the category of one uploaded item image.
func (h *SynthesisHandler) Classify(c *gin.Context) {
	fh, err := c.FormFile("image")
	if err != nil {
		respondError(c, h.log, invalidRequest("image file is required"))
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
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		respondError(c, h.log, apperr.Validation("invalid_image", "file is not an image"))
		return
	}
	category, err := h.classifier.Classify(c.Request.Context(), generator.Image{Data: data, MIMEType: mt.String()})
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"category": category})
	case errors.Is(err, generator.ErrUnavailable):
		respondError(c, h.log, apperr.Upstream(domain.AbortGeneratorDisabled, "image analysis is not configured", err))
	case errors.Is(err, generator.ErrUnknownCategory):
		c.JSON(http.StatusOK, gin.H{"category": nil})
	default:
		respondError(c, h.log, apperr.Upstream("classification_failed", "image analysis failed", err))
	}
}

func readUpload(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		limit = 16 << 20
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, invalidRequest("could not read upload")
	}
	if int64(len(data)) > limit {
		return nil, apperr.Validation("file_too_large", fmt.Sprintf("file exceeds %d bytes", limit))
	}
	return data, nil
}
