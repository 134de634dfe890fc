// Package storage abstracts where publication documents live. Two
// backends implement the Storage interface: local disk for development
// and single-box installs, and S3-compatible object storage for
// everything else.
//
// Backends register themselves with the factory from an init function
// in their own package, so enabling one takes only a blank import in
// cmd/server/main.go:
//
//	func init() {
//	    storage.Register("mybackend", func(cfg *config.Config) (storage.Storage, error) {
//	        return New(cfg)
//	    })
//	}
package storage

import (
	"context"
	"io"
	"time"
)

// Storage is the operation set every document backend provides.
type Storage interface {
	// Upload stores a document under the given logical path and
	// reports its size and SHA-256 once fully written.
	Upload(ctx context.Context, path string, reader io.Reader, size int64) (*UploadResult, error)

	// Download opens the document for streaming. The caller closes
	// the reader.
	Download(ctx context.Context, path string) (io.ReadCloser, error)

	// Delete removes the document. Deleting an absent path is not an
	// error.
	Delete(ctx context.Context, path string) error

	// GetURL returns a download URL: a presigned URL valid for ttl on
	// object storage, or an API-served path on the local backend.
	GetURL(ctx context.Context, path string, ttl time.Duration) (string, error)

	// Exists reports whether a document is stored at path.
	Exists(ctx context.Context, path string) (bool, error)

	// GetMetadata returns size, checksum, and modification time
	// without transferring the document body.
	GetMetadata(ctx context.Context, path string) (*FileMetadata, error)
}

// UploadResult describes a document that was just stored.
type UploadResult struct {
	Path     string
	Size     int64
	Checksum string // SHA-256 hex of the stored bytes
}

// FileMetadata describes a stored document.
type FileMetadata struct {
	Path         string
	Size         int64
	Checksum     string // SHA-256 hex of the stored bytes
	LastModified time.Time
}
