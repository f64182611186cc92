package synthesis

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/wowjjang83/ai-style-synthesis/internal/apperr"
	"github.com/wowjjang83/ai-style-synthesis/internal/domain"
	"github.com/wowjjang83/ai-style-synthesis/internal/generator"

	"github.com/gabriel-vasile/mimetype"
)

// Item is one declared item of a request. Open is nil when no payload was sent.
type Item struct {
	Type     string
	Filename string
	Open     func() (io.ReadCloser, error)
}

type stagedItem struct {
	Type     string
	Filename string
	Path     string
	Image    generator.Image
}

// collectItems filters the first declared items and stages the valid ones in dir.
func (o *Orchestrator) collectItems(userID uint, declared int, items []Item, dir string) ([]stagedItem, error) {
	if declared <= 0 {
		return nil, apperr.Validation(domain.AbortInvalidItems, "item_count must be at least 1")
	}
	if o.opts.MaxItems > 0 && declared > o.opts.MaxItems {
		return nil, apperr.Validation(domain.AbortInvalidItems,
			fmt.Sprintf("at most %d items are allowed", o.opts.MaxItems))
	}
	if len(items) > declared {
		items = items[:declared]
	}

	var out []stagedItem
	for i, it := range items {
		log := o.log.With("user_id", userID, "item", i)
		typ := strings.TrimSpace(it.Type)
		if typ == "" || it.Open == nil || it.Filename == "" {
			log.Warn("item skipped: missing type or image")
			continue
		}
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(it.Filename), "."))
		if !o.allowedExt(ext) {
			log.Warn("item skipped: extension not allowed", "ext", ext)
			continue
		}
		data, err := readItem(it, o.opts.MaxItemBytes)
		if err != nil {
			log.Warn("item skipped: unreadable", "error", err)
			continue
		}
		mt := mimetype.Detect(data)
		if !strings.HasPrefix(mt.String(), "image/") {
			log.Warn("item skipped: not an image", "detected", mt.String())
			continue
		}
		path := filepath.Join(dir, fmt.Sprintf("item_%d.%s", i, ext))
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return nil, apperr.Storage(err, "could not stage item image")
		}
		out = append(out, stagedItem{
			Type:     typ,
			Filename: filepath.Base(it.Filename),
			Path:     path,
			Image:    generator.Image{Data: data, MIMEType: mt.String()},
		})
	}
	if len(out) == 0 {
		return nil, apperr.Validation(domain.AbortInvalidItems, "no valid item images were supplied")
	}
	return out, nil
}

func (o *Orchestrator) allowedExt(ext string) bool {
	for _, a := range o.opts.AllowedExtensions {
		if strings.EqualFold(strings.TrimPrefix(a, "."), ext) {
			return true
		}
	}
	return false
}

func readItem(it Item, limit int64) ([]byte, error) {
	rc, err := it.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return readLimited(rc, limit)
}
