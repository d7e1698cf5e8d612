// Package uploads stores book cover images either on the local filesystem or
// in an S3-compatible bucket.
package uploads

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// MaxCoverSize is the largest accepted cover image.
const MaxCoverSize = 5 << 20

// ErrInvalidKey is returned for object keys that would escape the store.
var ErrInvalidKey = errors.New("invalid object key")

var coverTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Store persists uploaded objects and resolves them to a URL clients can
// fetch.
type Store interface {
	// Ensure prepares the backing directory or bucket. It runs once at boot.
	Ensure(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	URL(ctx context.Context, key string) (string, error)
}

// CoverExtension returns the file extension for an accepted cover content
// type, or false when the type is not an allowed image.
func CoverExtension(contentType string) (string, bool) {
	ext, ok := coverTypes[contentType]
	return ext, ok
}

// SniffContentType detects the content type from the first bytes of a file.
func SniffContentType(head []byte) string {
	ct := http.DetectContentType(head)
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return ct
}

func cleanKey(key string) (string, error) {
	cleaned := path.Clean("/" + key)[1:]
	if cleaned == "" || cleaned != key {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return cleaned, nil
}

// LocalStore writes objects below a directory that the HTTP server exposes
// under URLPrefix.
type LocalStore struct {
	dir    string
	prefix string
}

// URLPrefix is the path the uploads directory is served under.
const URLPrefix = "/uploads/"

func NewLocalStore(dir string) *LocalStore {
	return &LocalStore{dir: dir, prefix: URLPrefix}
}

// Dir is the root directory of the store.
func (s *LocalStore) Dir() string { return s.dir }

func (s *LocalStore) Ensure(ctx context.Context) error {
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return fmt.Errorf("create uploads dir %s: %w", s.dir, err)
	}
	return nil
}

func (s *LocalStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}
	dst := filepath.Join(s.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return fmt.Errorf("create object dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("write object: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close object: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("move object: %w", err)
	}
	return nil
}

func (s *LocalStore) URL(ctx context.Context, key string) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	return s.prefix + key, nil
}
