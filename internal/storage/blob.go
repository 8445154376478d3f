package storage

import (
	"context"
	"errors"
	"io"
)

var ErrInvalidKey = errors.New("invalid blob key")

type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader) (string, error) // returns canonical key
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	URL(key string) (string, error) // fs returns "file://..." for dev
}
