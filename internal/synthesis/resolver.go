package synthesis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/wowjjang83/ai-style-synthesis/internal/apperr"
	"github.com/wowjjang83/ai-style-synthesis/internal/domain"
	"github.com/wowjjang83/ai-style-synthesis/internal/generator"
	"github.com/wowjjang83/ai-style-synthesis/internal/storage"

	"github.com/gabriel-vasile/mimetype"
)

// Resolver loads the image a base model points at.
//
//	/static/<rel>       file under StaticDir
//	http(s)://...       GET with Timeout
//	<path>              file under StaticDir
//	any other scheme    unsupported
type Resolver struct {
	StaticDir string
	Client    *http.Client
	Timeout   time.Duration
	MaxBytes  int64
}

func NewResolver(staticDir string, timeout time.Duration, maxBytes int64) *Resolver {
	return &Resolver{
		StaticDir: staticDir,
		Client:    &http.Client{Timeout: timeout},
		Timeout:   timeout,
		MaxBytes:  maxBytes,
	}
}

func errNoBase(msg string, err error) error {
	return apperr.Upstream(domain.AbortNoBaseModel, msg, err)
}

func errFetch(msg string, err error) error {
	return apperr.Upstream(domain.AbortBaseModelFetchFailed, msg, err)
}

// Resolve returns the base image and stages a copy inside stageDir.
func (r *Resolver) Resolve(ctx context.Context, src, stageDir string) (generator.Image, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return generator.Image{}, errNoBase("base model has no image", nil)
	}
	if rel, ok := strings.CutPrefix(src, "/static/"); ok {
		return r.local(rel)
	}
	if u, err := url.Parse(src); err == nil && len(u.Scheme) > 1 {
		switch strings.ToLower(u.Scheme) {
		case "http", "https":
			return r.fetch(ctx, u.String(), stageDir)
		default:
			return generator.Image{}, apperr.Unsupported(domain.AbortUnsupportedBase,
				fmt.Sprintf("unsupported base image source %q", u.Scheme))
		}
	}
	rel := src
	if filepath.IsAbs(src) {
		root, err := filepath.Abs(r.StaticDir)
		if err != nil {
			return generator.Image{}, errNoBase("base model image not found", err)
		}
		rel, err = filepath.Rel(root, filepath.Clean(src))
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return generator.Image{}, errNoBase("base model image is outside the static directory", err)
		}
	}
	return r.local(rel)
}

func (r *Resolver) local(rel string) (generator.Image, error) {
	path, err := storage.SecureJoin(r.StaticDir, rel)
	if err != nil {
		return generator.Image{}, errNoBase("base model image not found", err)
	}
	f, err := os.Open(path)
	if err != nil {
		return generator.Image{}, errNoBase("base model image not found", err)
	}
	defer f.Close()
	data, err := readLimited(f, r.MaxBytes)
	if err != nil {
		return generator.Image{}, errNoBase("base model image could not be read", err)
	}
	return sniffImage(data)
}

func (r *Resolver) fetch(ctx context.Context, rawURL, stageDir string) (generator.Image, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return generator.Image{}, errNoBase("invalid base image url", err)
	}
	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return generator.Image{}, errFetch("base model image could not be fetched", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return generator.Image{}, errFetch(fmt.Sprintf("base model image fetch returned %d", resp.StatusCode), nil)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		if mt, _, err := mime.ParseMediaType(ct); err != nil || !strings.HasPrefix(mt, "image/") {
			return generator.Image{}, errNoBase("base model url is not an image", nil)
		}
	}
	data, err := readLimited(resp.Body, r.MaxBytes)
	if err != nil {
		if errors.Is(err, errTooLarge) {
			return generator.Image{}, errNoBase("base model image is too large", err)
		}
		return generator.Image{}, errFetch("base model image could not be fetched", err)
	}
	img, err := sniffImage(data)
	if err != nil {
		return img, err
	}
	staged := filepath.Join(stageDir, "base"+mimetype.Detect(data).Extension())
	if err := os.WriteFile(staged, data, 0o600); err != nil {
		return generator.Image{}, apperr.Storage(err, "could not stage base image")
	}
	return img, nil
}

var errTooLarge = errors.New("payload too large")

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, errTooLarge
	}
	return data, nil
}

func sniffImage(data []byte) (generator.Image, error) {
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return generator.Image{}, errNoBase("base model file is not an image", nil)
	}
	return generator.Image{Data: data, MIMEType: mt.String()}, nil
}
