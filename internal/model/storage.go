package model

import (
	"context"
	"io"
)

// FileStorage abstracts the remote object store holding avatar and cover
// images. Upload returns the public URL of the stored object.
type FileStorage interface {
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}
