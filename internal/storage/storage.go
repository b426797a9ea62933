// Package storage persists uploaded product images.
package storage

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var ErrUnsupportedImage = errors.New("unsupported image type")

type ImageStore interface {
	// Put stores the object and returns the URL it is served from.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

var imageTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// NewObjectKey returns a fresh key for an upload, keeping only the
// lowercased extension of the client file name.
func NewObjectKey(filename string) (key, contentType string, err error) {
	ext := strings.ToLower(filepath.Ext(filename))
	contentType, ok := imageTypes[ext]
	if !ok {
		return "", "", ErrUnsupportedImage
	}
	return "products/" + uuid.NewString() + ext, contentType, nil
}
