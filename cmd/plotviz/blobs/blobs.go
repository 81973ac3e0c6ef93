// Package blobs selects and initializes the blob backend for plotviz.
//
// Two backends are supported:
//
//   - disk: PNG files in a flat directory (default). The directory is created
//     at startup if missing.
//
//   - redis: PNG bytes as Redis string values. Useful when the service runs
//     on ephemeral filesystems. The index itself stays in process memory.
//
// Initialization is fail-fast: the backend is pinged before the HTTP server
// starts so the service never comes up with a broken store.
package blobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/HatiCode/plotviz/cmd/plotviz/config"
	"github.com/HatiCode/plotviz/pkg/storage"
)

const pingTimeout = 5 * time.Second

// New returns the backend named by cfg.BlobBackend, verified with a ping.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.BlobStore, error) {
	var store storage.BlobStore

	switch cfg.BlobBackend {
	case "disk":
		logger.Info("initializing disk blob storage", "dir", cfg.Dir)
		d, err := storage.NewDiskStore(cfg.Dir)
		if err != nil {
			return nil, err
		}
		store = d

	case "redis":
		logger.Info("initializing redis blob storage",
			"addr", cfg.RedisAddr,
			"db", cfg.RedisDB,
		)
		r, err := storage.NewRedisStore(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		if err != nil {
			return nil, err
		}
		store = r

	default:
		return nil, fmt.Errorf("unknown blob backend %q", cfg.BlobBackend)
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := store.Ping(ctx); err != nil {
		return nil, fmt.Errorf("%s blob storage health check failed: %w", cfg.BlobBackend, err)
	}
	logger.Info("blob storage initialized", "backend", cfg.BlobBackend)

	return store, nil
}
