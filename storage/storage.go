// Package storage keeps uploaded item images on a local directory or an
// S3-compatible bucket. Keys are slash separated, e.g. "items/7/<uuid>.png".
package storage

import (
	"context"
	"fmt"
	"io"

	"restaurant-ordering-api/config"
)

// Disk is a flat key/value file store with public URLs.
type Disk interface {
	// Put writes r under key, replacing any previous content.
	Put(ctx context.Context, key string, r io.Reader, contentType string) error

	// Delete removes key. A missing key is not an error.
	Delete(ctx context.Context, key string) error

	// URL returns the public address of key.
	URL(key string) string
}

// New builds the disk named by cfg.Disk.
func New(ctx context.Context, cfg config.StorageConfig) (Disk, error) {
	switch cfg.Disk {
	case "", "local":
		return NewLocalDisk(cfg.LocalRoot, cfg.URL)
	case "s3":
		return NewS3Disk(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("storage: unknown disk %q", cfg.Disk)
	}
}
