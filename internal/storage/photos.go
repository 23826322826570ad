// Package storage turns uploaded photo bytes into stable references. The core
// only ever sees the returned URL; blob mechanics stay behind PhotoStore.
package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"

	"github.com/surpluslink/go-surpluslink/internal/models"
)

// PhotoStore uploads evidence photos and returns a stable reference.
type PhotoStore interface {
	Upload(ctx context.Context, r io.Reader, folder string) (string, error)
}

const uploadTimeout = 60 * time.Second

type CloudinaryStore struct {
	cld *cloudinary.Cloudinary
}

type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
}

func NewCloudinaryStore(cfg CloudinaryConfig) (*CloudinaryStore, error) {
	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("cloudinary config error: %w", err)
	}
	return &CloudinaryStore{cld: cld}, nil
}

// Upload pushes the photo to Cloudinary and returns the secure URL used as
// the custody evidence reference. A deadline bounds the call so a dead blob
// store surfaces as TimeoutError instead of a hang.
func (s *CloudinaryStore) Upload(ctx context.Context, r io.Reader, folder string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	resp, err := s.cld.Upload.Upload(ctx, r, uploader.UploadParams{
		Folder: folder,
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", &models.TimeoutError{Op: "photo upload", Err: ctx.Err()}
		}
		return "", fmt.Errorf("upload error: %w", err)
	}
	return resp.SecureURL, nil
}
