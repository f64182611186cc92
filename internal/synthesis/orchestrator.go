// Package synthesis runs one composite-image request end to end: quota,
// base model, items, generation, watermark, usage and storage.
package synthesis

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/wowjjang83/ai-style-synthesis/internal/apperr"
	"github.com/wowjjang83/ai-style-synthesis/internal/domain"
	"github.com/wowjjang83/ai-style-synthesis/internal/generator"
	"github.com/wowjjang83/ai-style-synthesis/internal/imaging"
	"github.com/wowjjang83/ai-style-synthesis/internal/lock"
	"github.com/wowjjang83/ai-style-synthesis/internal/logger"
	"github.com/wowjjang83/ai-style-synthesis/internal/models"
	"github.com/wowjjang83/ai-style-synthesis/internal/service"
	"github.com/wowjjang83/ai-style-synthesis/internal/storage"

	"github.com/gabriel-vasile/mimetype"
)

// Quota is the usage ledger as seen by the orchestrator. Check fails with a
// QuotaExceeded error once used >= limit.
type Quota interface {
	Today() string
	Check(ctx context.Context, userID uint, day string) (service.QuotaStatus, error)
	Usage(ctx context.Context, userID uint, day string) (int, error)
	Increment(ctx context.Context, userID uint, day string) error
}

type Settings interface {
	WatermarkOptions(ctx context.Context) service.WatermarkOptions
}

type Registry interface {
	Active(ctx context.Context) (*models.BaseModel, error)
}

type BaseResolver interface {
	Resolve(ctx context.Context, src, stageDir string) (generator.Image, error)
}

type Watermarker interface {
	Apply(src []byte, opts imaging.Options) ([]byte, error)
}

// Options tune request handling. Zero values mean no limit.
type Options struct {
	AllowedExtensions []string
	MaxItems          int
	MaxItemBytes      int64
	// TempRoot is the parent of per-request staging dirs; "" uses os.TempDir.
	TempRoot string
}

// Deps are the collaborators of an Orchestrator. A nil Generator is replaced
// by generator.Disabled; Observer and Locker are optional.
type Deps struct {
	Quota       Quota
	Settings    Settings
	Registry    Registry
	Resolver    BaseResolver
	Generator   generator.Generator
	Watermarker Watermarker
	Store       storage.Store
	Locker      lock.Locker
	Observer    Observer
	Log         *logger.Logger
	Now         func() time.Time
}

type Request struct {
	UserID        uint
	DeclaredCount int
	Items         []Item
}

type Result struct {
	URL         string   `json:"url"`
	Name        string   `json:"name"`
	Watermarked bool     `json:"watermarked"`
	Remaining   int      `json:"remaining"`
	Text        string   `json:"text,omitempty"`
	ItemTypes   []string `json:"item_types"`
}

type Orchestrator struct {
	Deps
	opts Options
	log  *logger.Logger
}

func New(d Deps, opts Options) *Orchestrator {
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Generator == nil {
		d.Generator = generator.Disabled{}
	}
	return &Orchestrator{Deps: d, opts: opts, log: d.Log.With("component", "synthesis")}
}

// Available reports whether a generation backend is wired.
func (o *Orchestrator) Available() bool {
	_, off := o.Generator.(generator.Disabled)
	return !off
}

func (o *Orchestrator) emit(userID uint, s State, reason string) {
	if o.Observer == nil {
		return
	}
	o.Observer.Observe(userID, Event{State: s, Reason: reason, At: o.Now()})
}

// Synthesize runs the request. Every returned error is an *apperr.Error whose
// Code is the abort reason.
//
// A request rejected because the user already has a run in flight emits no
// events.
func (o *Orchestrator) Synthesize(ctx context.Context, req Request) (*Result, error) {
	log := o.log.With("user_id", req.UserID)
	if o.Locker != nil {
		release, err := o.Locker.TryAcquire(ctx, fmt.Sprintf("synthesis:%d", req.UserID))
		switch {
		case errors.Is(err, lock.ErrHeld):
			log.Info("synthesis rejected, another run is in flight")
			return nil, apperr.Conflict(domain.AbortInProgress, "another synthesis is already running")
		case err != nil:
			log.Error("synthesis lock unavailable", "error", err)
			return nil, apperr.Upstream(domain.AbortLockUnavailable, "could not reserve a synthesis slot", err)
		}
		defer func() {
			if err := release(); err != nil {
				log.Error("synthesis lock release failed", "error", err)
			}
		}()
	}
	return o.run(ctx, req, log)
}

func (o *Orchestrator) run(ctx context.Context, req Request, log *logger.Logger) (res *Result, err error) {
	start := o.Now()
	defer func() {
		if err != nil {
			if _, ok := apperr.As(err); !ok {
				err = apperr.Internal(err, "synthesis failed")
			}
			log.Warn("synthesis aborted", "reason", apperr.CodeOf(err), "error", err)
			o.emit(req.UserID, StateAborted, apperr.CodeOf(err))
			return
		}
		log.Info("synthesis done", "name", res.Name, "watermarked", res.Watermarked,
			"remaining", res.Remaining, "elapsed", o.Now().Sub(start))
		o.emit(req.UserID, StateDone, "")
	}()

	// CHECKING_QUOTA
	o.emit(req.UserID, StateCheckingQuota, "")
	if !o.Available() {
		return nil, apperr.Upstream(domain.AbortGeneratorDisabled, "image generation is not configured", generator.ErrUnavailable)
	}
	day := o.Quota.Today()
	quota, err := o.Quota.Check(ctx, req.UserID, day)
	if err != nil {
		return nil, err
	}
	limit, used := quota.Limit, quota.Used

	dir, err := os.MkdirTemp(o.opts.TempRoot, "synthesis-*")
	if err != nil {
		return nil, apperr.Storage(err, "could not create staging area")
	}
	defer func() {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			log.Error("staging cleanup failed", "dir", dir, "error", rmErr)
		}
	}()

	// RESOLVING_BASE_MODEL
	o.emit(req.UserID, StateResolvingBaseModel, "")
	bm, err := o.Registry.Active(ctx)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return nil, apperr.Upstream(domain.AbortNoBaseModel, "no active base model", nil)
		}
		return nil, err
	}
	base, err := o.Resolver.Resolve(ctx, bm.ImageURL, dir)
	if err != nil {
		return nil, err
	}

	// COLLECTING_ITEMS
	o.emit(req.UserID, StateCollectingItems, "")
	items, err := o.collectItems(req.UserID, req.DeclaredCount, req.Items, dir)
	if err != nil {
		return nil, err
	}
	types := make([]string, len(items))
	images := make([]generator.Image, len(items))
	for i, it := range items {
		types[i] = it.Type
		images[i] = it.Image
	}

	// CALLING_GENERATOR
	o.emit(req.UserID, StateCallingGenerator, "")
	out, err := o.Generator.Generate(ctx, generator.Request{
		Base:        base,
		Items:       images,
		Instruction: generator.BuildInstruction(types),
	})
	if err != nil {
		return nil, generationError(err)
	}

	// POST_PROCESSING
	o.emit(req.UserID, StatePostProcessing, "")
	img := out.Image
	watermarked := false
	if wm := o.Settings.WatermarkOptions(ctx); wm.Enabled && o.Watermarker != nil {
		marked, werr := o.Watermarker.Apply(img, imaging.Options{
			Placement: imaging.Placement(wm.Placement),
			Opacity:   wm.Opacity,
		})
		switch {
		case werr != nil:
			log.Warn("watermark failed, keeping original", "error", werr)
		case !bytes.Equal(marked, img):
			img, watermarked = marked, true
		}
	}
	ext := ".png"
	if png, perr := imaging.ToPNG(img); perr == nil {
		img = png
	} else {
		ext = mimetype.Detect(img).Extension()
		log.Warn("output kept in generator format", "ext", ext, "error", perr)
	}

	// PERSISTING. The caller may have gone away; bookkeeping still completes.
	o.emit(req.UserID, StatePersisting, "")
	pctx := context.WithoutCancel(ctx)
	counted := true
	if ierr := o.Quota.Increment(pctx, req.UserID, day); ierr != nil {
		counted = false
		log.Error("usage increment failed, returning image anyway", "day", day, "error", ierr)
	}
	name := OutputName(req.UserID, items[0].Type, items[0].Filename, ext)
	url, err := o.Store.Save(pctx, name, bytes.NewReader(img))
	if err != nil {
		return nil, apperr.Storage(err, "could not save output image")
	}

	after := used
	if counted {
		after++
	}
	if n, uerr := o.Quota.Usage(pctx, req.UserID, day); uerr == nil {
		after = n
	}
	remaining := limit - after
	if remaining < 0 {
		remaining = 0
	}
	return &Result{
		URL:         url,
		Name:        name,
		Watermarked: watermarked,
		Remaining:   remaining,
		Text:        out.Text,
		ItemTypes:   types,
	}, nil
}

func generationError(err error) error {
	switch {
	case errors.Is(err, generator.ErrUnavailable):
		return apperr.Upstream(domain.AbortGeneratorDisabled, "image generation is not configured", err)
	case errors.Is(err, generator.ErrNoImage), errors.Is(err, generator.ErrEmptyResponse):
		return apperr.New(apperr.KindInternal, domain.AbortGenerationFailed, "the model did not return an image", err)
	default:
		return apperr.Upstream(domain.AbortGenerationFailed, "image generation failed", err)
	}
}
