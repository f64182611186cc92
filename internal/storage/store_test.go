package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateName(t *testing.T) {
	for _, ok := range []string{"output_1_top_a_1234.png", "a.b.png", "x"} {
		assert.NoError(t, ValidateName(ok), ok)
	}
	for _, bad := range []string{"", ".", "..", "../etc/passwd", "a/b.png", `a\b.png`, "/etc/passwd", "..png.."} {
		assert.ErrorIs(t, ValidateName(bad), ErrInvalidName, bad)
	}
}

func TestSecureJoin(t *testing.T) {
	base := t.TempDir()
	got, err := SecureJoin(base, "images/base.png")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "images", "base.png"), got)

	for _, bad := range []string{"../x", "images/../../x", "/etc/passwd"} {
		_, err := SecureJoin(base, bad)
		assert.ErrorIs(t, err, ErrInvalidName, bad)
	}

	outside := t.TempDir()
	require.NoError(t, os.Symlink(outside, filepath.Join(base, "link")))
	_, err = SecureJoin(base, "link/secret.png")
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestSanitizeComponent(t *testing.T) {
	assert.Equal(t, "t-shirt_front", SanitizeComponent("T-Shirt (front)", "item"))
	assert.Equal(t, "item", SanitizeComponent("../../", "item"))
	assert.Equal(t, "item", SanitizeComponent("한글", "item"))
	assert.LessOrEqual(t, len(SanitizeComponent(strings.Repeat("ab", 100), "x")), 41)
}

func TestLocalStoreSaveOpen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "outputs")
	s, err := NewLocalStore(dir, "/outputs/")
	require.NoError(t, err)

	url, err := s.Save(context.Background(), "out.png", bytes.NewReader([]byte("png")))
	require.NoError(t, err)
	assert.Equal(t, "/outputs/out.png", url)

	f, err := s.Open("out.png")
	require.NoError(t, err)
	data, err := io.ReadAll(f)
	f.Close()
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), data)

	_, err = s.Open("missing.png")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Open("../outputs/out.png")
	assert.ErrorIs(t, err, ErrInvalidName)
	_, err = s.Save(context.Background(), "../escape.png", bytes.NewReader(nil))
	assert.ErrorIs(t, err, ErrInvalidName)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files are renamed away")
}

func TestLocalStoreSaveCancelled(t *testing.T) {
	s, err := NewLocalStore(t.TempDir(), "/outputs")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Save(ctx, "out.png", bytes.NewReader([]byte("png")))
	assert.ErrorIs(t, err, context.Canceled)
}

type fakeCloud struct {
	folder, publicID string
	destroyed        []string
	err              error
}

func (f *fakeCloud) UploadImage(_ context.Context, _ io.Reader, folder, publicID string) (string, error) {
	f.folder, f.publicID = folder, publicID
	return "https://res.cloudinary.com/demo/image/upload/" + folder + "/" + publicID + ".png", f.err
}

func (f *fakeCloud) Destroy(_ context.Context, folder, publicID string) error {
	f.destroyed = append(f.destroyed, folder+"/"+publicID)
	return nil
}

func TestCloudStoreSave(t *testing.T) {
	fc := &fakeCloud{}
	s := NewCloudStore(fc, "outputs")
	url, err := s.Save(context.Background(), "output_1_top_a.png", bytes.NewReader(nil))
	require.NoError(t, err)
	assert.Equal(t, "output_1_top_a", fc.publicID)
	assert.Contains(t, url, "outputs/output_1_top_a.png")

	fc.err = errors.New("quota")
	_, err = s.Save(context.Background(), "x.png", bytes.NewReader(nil))
	assert.Error(t, err)
}

func TestCloudStoreRemove(t *testing.T) {
	fc := &fakeCloud{}
	s := NewCloudStore(fc, "style/base_models")
	require.NoError(t, s.Remove(context.Background(), "https://res.cloudinary.com/demo/image/upload/v1/style/base_models/model_ab12.png"))
	assert.Equal(t, []string{"style/base_models/model_ab12"}, fc.destroyed)

	assert.ErrorIs(t, s.Remove(context.Background(), "https://example.com/elsewhere/x.png"), ErrNotFound)
}

func TestLocalStoreRemove(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStore(dir, "/static/base_models")
	require.NoError(t, err)
	url, err := s.Save(context.Background(), "m.png", strings.NewReader("x"))
	require.NoError(t, err)

	require.NoError(t, s.Remove(context.Background(), url))
	_, err = os.Stat(filepath.Join(dir, "m.png"))
	assert.True(t, os.IsNotExist(err))
	require.NoError(t, s.Remove(context.Background(), url), "second remove is a no-op")

	assert.ErrorIs(t, s.Remove(context.Background(), "/static/other/m.png"), ErrNotFound)
	assert.ErrorIs(t, s.Remove(context.Background(), "/static/base_models/../x.png"), ErrNotFound)
}
