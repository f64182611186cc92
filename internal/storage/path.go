package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrInvalidName = errors.New("invalid file name")
	ErrNotFound    = errors.New("file not found")
)

// ValidateName accepts only a bare file name: no separators, no "..", not absolute.
func ValidateName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return ErrInvalidName
	case strings.ContainsAny(name, `/\`), strings.Contains(name, ".."):
		return ErrInvalidName
	case filepath.IsAbs(name), filepath.VolumeName(name) != "":
		return ErrInvalidName
	case strings.ContainsRune(name, 0):
		return ErrInvalidName
	}
	return nil
}

// SecureJoin joins rel under base and rejects absolute inputs, ".." escapes and
// existing symlinks between base and the target. The result is absolute.
func SecureJoin(base, rel string) (string, error) {
	baseAbs, err := filepath.Abs(base)
	if err != nil {
		return "", fmt.Errorf("resolve base: %w", err)
	}
	clean := filepath.Clean(filepath.FromSlash(rel))
	if clean == "." {
		clean = ""
	}
	if filepath.IsAbs(clean) || filepath.VolumeName(clean) != "" {
		return "", ErrInvalidName
	}
	target := filepath.Join(baseAbs, clean)
	r, err := filepath.Rel(baseAbs, target)
	if err != nil || r == ".." || strings.HasPrefix(r, ".."+string(os.PathSeparator)) {
		return "", ErrInvalidName
	}
	for cur := target; cur != baseAbs; {
		info, err := os.Lstat(cur)
		if err == nil && info.Mode()&os.ModeSymlink != 0 {
			return "", ErrInvalidName
		}
		if err != nil && !os.IsNotExist(err) {
			return "", err
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return "", ErrInvalidName
		}
		cur = parent
	}
	return target, nil
}

// SanitizeComponent reduces s to lowercase [a-z0-9_-], collapsing runs of
// anything else into one underscore and capping the length. Empty input
// yields fallback.
func SanitizeComponent(s, fallback string) string {
	const maxLen = 40
	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore && b.Len() > 0 {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
		if b.Len() >= maxLen {
			break
		}
	}
	out := strings.Trim(b.String(), "_-")
	if out == "" {
		return fallback
	}
	return out
}
