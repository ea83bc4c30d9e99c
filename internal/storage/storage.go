package storage

import (
	"context"
	"io"
	"path/filepath"
	"strings"
)

// Store is the blob store the image pipeline writes originals and
// thumbnails to. Remove is idempotent: removing a missing object is not an
// error.
type Store interface {
	Write(ctx context.Context, name string, reader io.Reader, size int64) error
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	Remove(ctx context.Context, name string) error
	Exists(ctx context.Context, name string) (bool, error)
	URL(ctx context.Context, name string) (string, error)
}

func contentTypeFor(name string) string {
	if strings.ToLower(filepath.Ext(name)) == ".png" {
		return "image/png"
	}
	return "image/jpeg"
}
