// Package storage persists uploaded response files and returns a URL
// that is stored on the response row.
package storage

import (
	"context"
	"errors"
	"io"

	"github.com/yukikurage/stage-intake/internal/config"
)

// ErrEmptyFile is returned when an upload has no content.
var ErrEmptyFile = errors.New("uploaded file is empty")

// Upload is one file taken from a submission.
type Upload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// FileStore saves an upload and returns its public reference.
type FileStore interface {
	Save(ctx context.Context, upload Upload) (string, error)
}

// New picks Cloudinary when credentials are configured and the local
// upload directory otherwise.
func New(cfg *config.Config) (FileStore, error) {
	if cfg.Cloudinary.Enabled() {
		return NewCloudinaryStore(cfg.Cloudinary)
	}
	return NewLocalStore(cfg.UploadDir, "/uploads/")
}
