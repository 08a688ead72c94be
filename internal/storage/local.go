package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrInvalidKey is returned for keys that were not issued by LocalStore.
var ErrInvalidKey = errors.New("invalid storage key")

// LocalStore writes uploads below a directory under random keys.
type LocalStore struct {
	dir       string
	urlPrefix string
}

// NewLocalStore creates the directory when missing.
func NewLocalStore(dir, urlPrefix string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir %s: %w", dir, err)
	}
	return &LocalStore{dir: dir, urlPrefix: urlPrefix}, nil
}

// Save copies the upload to disk and returns urlPrefix + key.
func (s *LocalStore) Save(ctx context.Context, upload Upload) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	key := uuid.NewString() + extension(upload.Filename)
	target := filepath.Join(s.dir, key)

	file, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", key, err)
	}
	size, err := io.Copy(file, upload.Body)
	closeErr := file.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(target)
		return "", fmt.Errorf("failed to write %s: %w", key, err)
	}
	if size == 0 {
		_ = os.Remove(target)
		return "", ErrEmptyFile
	}

	return s.urlPrefix + key, nil
}

// Path resolves a key returned by Save to a file path.
func (s *LocalStore) Path(key string) (string, error) {
	key = strings.TrimPrefix(key, "/")
	ext := filepath.Ext(key)
	if _, err := uuid.Parse(strings.TrimSuffix(key, ext)); err != nil {
		return "", ErrInvalidKey
	}
	if ext != extension("x"+ext) {
		return "", ErrInvalidKey
	}
	return filepath.Join(s.dir, key), nil
}

// extension keeps a short alphanumeric extension so served files get a
// sensible content type.
func extension(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if len(ext) < 2 || len(ext) > 10 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
