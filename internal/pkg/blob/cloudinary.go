package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// CloudinaryStore implements Store on top of the Cloudinary upload API.
type CloudinaryStore struct {
	cld    *cloudinary.Cloudinary
	folder string
}

// NewCloudinaryStore creates a Cloudinary client for the given account.
func NewCloudinaryStore(cloudName, apiKey, apiSecret, folder string) (*CloudinaryStore, error) {
	if cloudName == "" || apiKey == "" || apiSecret == "" {
		return nil, errors.New("cloudinary credentials are required")
	}
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("init cloudinary client: %w", err)
	}
	return &CloudinaryStore{cld: cld, folder: strings.Trim(folder, "/")}, nil
}

// Put uploads an object and returns its secure delivery URL.
func (c *CloudinaryStore) Put(ctx context.Context, key string, r io.Reader, _ int64, _ string) (string, error) {
	resp, err := c.cld.Upload.Upload(ctx, r, uploader.UploadParams{PublicID: c.publicID(key)})
	if err != nil {
		return "", fmt.Errorf("upload object: %w", err)
	}
	if resp.Error.Message != "" {
		return "", fmt.Errorf("upload object: %s", resp.Error.Message)
	}
	return resp.SecureURL, nil
}

// Delete removes an object.
func (c *CloudinaryStore) Delete(ctx context.Context, key string) error {
	resp, err := c.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: c.publicID(key)})
	if err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	if resp.Error.Message != "" {
		return fmt.Errorf("delete object: %s", resp.Error.Message)
	}
	return nil
}

// publicID maps a store key to a Cloudinary public id, which carries no extension.
func (c *CloudinaryStore) publicID(key string) string {
	id := strings.TrimSuffix(key, path.Ext(key))
	if c.folder == "" {
		return id
	}
	return c.folder + "/" + id
}
