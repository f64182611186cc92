package cloudinary

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/cloudinary/cloudinary-go/v2/config"
)

// Client wraps the Cloudinary upload API.
type Client interface {
	UploadImage(ctx context.Context, file io.Reader, folder, publicID string) (url string, err error)
	Destroy(ctx context.Context, folder, publicID string) error
}

// BuildImageURL returns the delivery URL of an uploaded image without
// transformations, so PNG transparency is preserved.
func BuildImageURL(cloudName, folder, publicID string) string {
	if folder != "" {
		publicID = folder + "/" + publicID
	}
	return fmt.Sprintf("https://res.cloudinary.com/%s/image/upload/%s.png", cloudName, publicID)
}

var overwriteFalse = false

type clientImpl struct {
	cloudName string
	uploader  *uploader.API
}

// UploadImage uploads an image under folder/publicID and returns its secure URL.
// Existing assets are never overwritten.
func (c *clientImpl) UploadImage(ctx context.Context, file io.Reader, folder, publicID string) (string, error) {
	result, err := c.uploader.Upload(ctx, file, uploader.UploadParams{
		Folder:    folder,
		PublicID:  publicID,
		Overwrite: &overwriteFalse,
	})
	if err != nil {
		return "", err
	}
	if result.Error.Message != "" {
		return "", errors.New(result.Error.Message)
	}
	if result.SecureURL == "" {
		return BuildImageURL(c.cloudName, folder, publicID), nil
	}
	return result.SecureURL, nil
}

// Destroy removes folder/publicID. A missing asset is not an error.
func (c *clientImpl) Destroy(ctx context.Context, folder, publicID string) error {
	if folder != "" {
		publicID = folder + "/" + publicID
	}
	result, err := c.uploader.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
	if err != nil {
		return err
	}
	if result.Error.Message != "" {
		return errors.New(result.Error.Message)
	}
	return nil
}

// NewClientFromParams builds a Client from Cloudinary cloud name, API key, and secret.
func NewClientFromParams(cloudName, apiKey, apiSecret string) (Client, error) {
	cfg, err := config.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, err
	}
	up, err := uploader.NewWithConfiguration(cfg)
	if err != nil {
		return nil, err
	}
	return &clientImpl{
		cloudName: cloudName,
		uploader:  up,
	}, nil
}
