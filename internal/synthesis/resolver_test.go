package synthesis

import (
	"context"
	"image/color"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/wowjjang83/ai-style-synthesis/internal/apperr"
	"github.com/wowjjang83/ai-style-synthesis/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolver_Local(t *testing.T) {
	static := t.TempDir()
	img := pngBytes(t, 3, 3, color.White)
	require.NoError(t, os.MkdirAll(filepath.Join(static, "base_models"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(static, "base_models", "m.png"), img, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(static, "notes.txt"), []byte("hello"), 0o644))
	r := NewResolver(static, time.Second, 1<<20)
	stage := t.TempDir()

	for _, src := range []string{
		"/static/base_models/m.png",
		"base_models/m.png",
		filepath.Join(static, "base_models", "m.png"),
	} {
		got, err := r.Resolve(context.Background(), src, stage)
		require.NoError(t, err, src)
		assert.Equal(t, "image/png", got.MIMEType)
		assert.Equal(t, img, got.Data)
	}

	for _, src := range []string{
		"",
		"/static/../../etc/passwd",
		"../outside.png",
		"/etc/passwd",
		"/static/missing.png",
		"notes.txt",
	} {
		_, err := r.Resolve(context.Background(), src, stage)
		assert.Equal(t, domain.AbortNoBaseModel, apperr.CodeOf(err), "src %q", src)
	}
}

func TestResolver_UnsupportedScheme(t *testing.T) {
	r := NewResolver(t.TempDir(), time.Second, 1<<20)
	_, err := r.Resolve(context.Background(), "ftp://example.com/a.png", t.TempDir())
	assert.Equal(t, apperr.KindUnsupported, apperr.KindOf(err))
	assert.Equal(t, domain.AbortUnsupportedBase, apperr.CodeOf(err))
	assert.Equal(t, http.StatusNotImplemented, apperr.KindOf(err).Status())
}

func TestResolver_Remote(t *testing.T) {
	img := pngBytes(t, 5, 5, color.Black)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.png":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(img)
		case "/page":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte("<html></html>"))
		case "/lying.png":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write([]byte("plain text body"))
		case "/slow.png":
			time.Sleep(300 * time.Millisecond)
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(img)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	r := NewResolver(t.TempDir(), 100*time.Millisecond, 1<<20)
	stage := t.TempDir()

	got, err := r.Resolve(context.Background(), srv.URL+"/ok.png", stage)
	require.NoError(t, err)
	assert.Equal(t, img, got.Data)
	staged, err := os.ReadFile(filepath.Join(stage, "base.png"))
	require.NoError(t, err)
	assert.Equal(t, img, staged)

	for path, code := range map[string]string{
		"/missing.png": domain.AbortBaseModelFetchFailed,
		"/slow.png":    domain.AbortBaseModelFetchFailed,
		"/page":        domain.AbortNoBaseModel,
		"/lying.png":   domain.AbortNoBaseModel,
	} {
		_, err := r.Resolve(context.Background(), srv.URL+path, stage)
		assert.Equal(t, code, apperr.CodeOf(err), path)
		assert.Equal(t, http.StatusServiceUnavailable, apperr.KindOf(err).Status(), path)
	}
}
