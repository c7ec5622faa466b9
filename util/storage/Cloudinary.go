package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/parklistmc/parklist/config"
)

const bannerFolder = "parklist/banners"

var ErrStorageDisabled = errors.New("image storage is not configured")

type Cloudinary struct {
	CLD *cloudinary.Cloudinary
}

// NewCloudinary returns nil, nil when no Cloudinary credentials are set;
// banner uploads are then refused with ErrStorageDisabled.
func NewCloudinary(cfg *config.Config) (*Cloudinary, error) {
	if cfg.CloudinaryCloudName == "" || cfg.CloudinaryAPIKey == "" || cfg.CloudinaryAPISecret == "" {
		return nil, nil
	}
	cld, err := cloudinary.NewFromParams(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Cloudinary: %w", err)
	}
	return &Cloudinary{CLD: cld}, nil
}

// UploadImage uploads source (a remote URL or local path) into folder.
func (c *Cloudinary) UploadImage(ctx context.Context, source, folder, publicID string) (string, error) {
	if c == nil || c.CLD == nil {
		return "", ErrStorageDisabled
	}
	resp, err := c.CLD.Upload.Upload(ctx, source, uploader.UploadParams{Folder: folder, PublicID: publicID})
	if err != nil {
		return "", err
	}
	if resp.Error.Message != "" {
		return "", errors.New(resp.Error.Message)
	}
	return resp.SecureURL, nil
}

// UploadBanner stores a listing banner under the listing slug so a new
// upload replaces the previous image.
func (c *Cloudinary) UploadBanner(ctx context.Context, source, slug string) (string, error) {
	return c.UploadImage(ctx, source, bannerFolder, slug)
}
