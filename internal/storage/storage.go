// Package storage keeps product images, keyed by article number, either on
// local disk or in a remote blob store.
package storage

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"

	"listingdesk/internal/config"
)

var ErrNotFound = errors.New("image not found")

// ImageExts are the accepted image extensions, lower case with dot.
var ImageExts = []string{".jpg", ".jpeg", ".png", ".heic"}

// MaxUploadSize is the per-file upload cap.
const MaxUploadSize = 10 << 20

type Store interface {
	// Upload writes one file and returns its path (local) or URL (remote).
	Upload(ctx context.Context, r io.Reader, articleNumber, filename string) (string, error)
	// List returns the image paths for an article number in stable order.
	List(ctx context.Context, articleNumber string) ([]string, error)
	// Delete removes one image by the path or URL List returned.
	Delete(ctx context.Context, path, articleNumber string) error
}

// Filer is implemented by stores that can hand out a local file for a path.
type Filer interface {
	FilePath(path string) (string, error)
}

// New picks the blob store when a Cloudinary URL is configured, local disk otherwise.
func New(cfg config.Config) (Store, error) {
	if cfg.UseBlobStore() {
		return NewCloudinaryStore(cfg.CloudinaryURL, cfg.CloudinaryFolder)
	}
	return NewLocalStore(cfg.MediaDir), nil
}

func IsImage(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range ImageExts {
		if e == ext {
			return true
		}
	}
	return false
}

func ContentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png":
		return "image/png"
	case ".heic":
		return "image/heic"
	}
	return "image/jpeg"
}
