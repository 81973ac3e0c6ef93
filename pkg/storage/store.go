// Package storage defines where rendered plot images live.
//
// A BlobStore only knows keys and bytes. Identifier assignment and metadata
// belong to the plotstore package, so the backing medium can change without
// touching the HTTP surface.
package storage

import (
	"context"
	"errors"
)

// ErrBlobNotFound is returned by Load when no blob exists under the key.
var ErrBlobNotFound = errors.New("blob not found")

type BlobStore interface {
	// Save writes data under key and returns the backend location of the
	// blob (a file path, a redis key, ...).
	Save(ctx context.Context, key string, data []byte) (string, error)
	Load(ctx context.Context, key string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
	// Ping reports whether the backend can currently accept writes.
	Ping(ctx context.Context) error
}
