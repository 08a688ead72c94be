package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
	"github.com/yukikurage/stage-intake/internal/config"
)

// CloudinaryStore uploads files to Cloudinary and keeps the secure URL.
type CloudinaryStore struct {
	cld    *cloudinary.Cloudinary
	folder string
}

// NewCloudinaryStore creates a store from API credentials.
func NewCloudinaryStore(cfg config.CloudinaryConfig) (*CloudinaryStore, error) {
	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to configure cloudinary: %w", err)
	}
	return &CloudinaryStore{cld: cld, folder: cfg.Folder}, nil
}

// Save uploads the file under a random public id.
func (s *CloudinaryStore) Save(ctx context.Context, upload Upload) (string, error) {
	resp, err := s.cld.Upload.Upload(ctx, upload.Body, uploader.UploadParams{
		PublicID:     uuid.NewString(),
		Folder:       s.folder,
		ResourceType: "auto",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", upload.Filename, err)
	}
	if resp.Error.Message != "" {
		return "", fmt.Errorf("failed to upload %s: %w", upload.Filename, errors.New(resp.Error.Message))
	}
	if resp.SecureURL == "" {
		return "", fmt.Errorf("upload of %s returned no url", upload.Filename)
	}
	return resp.SecureURL, nil
}
