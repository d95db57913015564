// Package storage is the file store for exported site bundles, Open Graph
// images and sitemap snapshots.
//
// Two drivers ship with the service:
//   - "local": a directory on the local filesystem (default)
//   - "s3":    S3-compatible object storage (AWS S3, MinIO, R2, Spaces)
//
// plus an in-memory disk for tests.
//
//	storage.Connect()
//	disk := storage.Default()
//	_ = disk.Put(ctx, "exports/site-1/v3.zip", data, "application/zip")
//	url := disk.URL("exports/site-1/v3.zip")
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotExist is returned by Get for a missing path.
var ErrNotExist = errors.New("storage: file does not exist")

// Object describes one stored file.
type Object struct {
	Path         string
	Size         int64
	LastModified time.Time
}

// Disk is implemented by every driver. Paths use forward slashes.
type Disk interface {
	Put(ctx context.Context, path string, content []byte, contentType string) error
	Get(ctx context.Context, path string) ([]byte, error)
	Exists(ctx context.Context, path string) (bool, error)
	// Delete removes path; deleting a missing file is not an error.
	Delete(ctx context.Context, path string) error
	// List returns every object under prefix, recursively, sorted by path.
	List(ctx context.Context, prefix string) ([]Object, error)
	// URL returns the public URL for path.
	URL(path string) string
}
