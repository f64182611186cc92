// Package storage persists result and upload images.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/wowjjang83/ai-style-synthesis/pkg/cloudinary"
)

// Store saves an image under a bare file name and returns its public URL.
type Store interface {
	Save(ctx context.Context, name string, r io.Reader) (string, error)
}

// Remover deletes an object by the URL Save returned. URLs the store did not
// issue yield ErrNotFound; an already missing object is not an error.
type Remover interface {
	Remove(ctx context.Context, url string) error
}

// LocalStore keeps files in Dir and serves them under URLPrefix.
type LocalStore struct {
	Dir       string
	URLPrefix string
}

func NewLocalStore(dir, urlPrefix string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &LocalStore{Dir: dir, URLPrefix: strings.TrimRight(urlPrefix, "/")}, nil
}

// Save writes to a temp file in Dir and renames it into place.
func (s *LocalStore) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	target, err := SecureJoin(s.Dir, name)
	if err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return "", err
	}
	tmpName := tmp.Name()
	if _, err := io.Copy(tmp, ctxReader{ctx: ctx, r: r}); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", err
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return "", err
	}
	return s.URLPrefix + "/" + path.Base(filepath.ToSlash(target)), nil
}

// Open returns the stored file for name, ErrInvalidName for traversal
// attempts and ErrNotFound when absent.
func (s *LocalStore) Open(name string) (*os.File, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	target, err := SecureJoin(s.Dir, name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(target)
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if info, err := f.Stat(); err != nil || info.IsDir() {
		f.Close()
		return nil, ErrNotFound
	}
	return f, nil
}

func (s *LocalStore) Remove(_ context.Context, url string) error {
	name, ok := strings.CutPrefix(url, s.URLPrefix+"/")
	if !ok {
		return ErrNotFound
	}
	if err := ValidateName(name); err != nil {
		return ErrNotFound
	}
	target, err := SecureJoin(s.Dir, name)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// CloudStore uploads to Cloudinary under Folder.
type CloudStore struct {
	client cloudinary.Client
	folder string
}

func NewCloudStore(client cloudinary.Client, folder string) *CloudStore {
	return &CloudStore{client: client, folder: folder}
}

func (s *CloudStore) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	publicID := strings.TrimSuffix(name, filepath.Ext(name))
	url, err := s.client.UploadImage(ctx, r, s.folder, publicID)
	if err != nil {
		return "", fmt.Errorf("cloudinary upload: %w", err)
	}
	return url, nil
}

func (s *CloudStore) Remove(ctx context.Context, url string) error {
	marker := "/" + s.folder + "/"
	i := strings.LastIndex(url, marker)
	if s.folder == "" || i < 0 {
		return ErrNotFound
	}
	name := url[i+len(marker):]
	if err := ValidateName(name); err != nil {
		return ErrNotFound
	}
	return s.client.Destroy(ctx, s.folder, strings.TrimSuffix(name, path.Ext(name)))
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
