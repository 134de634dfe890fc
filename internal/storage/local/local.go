// Package local stores publication documents on the server's filesystem.
// Meant for development and single-instance deployments; replicas would
// each see their own disk, so anything scaled out should use the s3
// backend. With serve_directly enabled, GetURL hands out paths under
// /api/v1/files so downloads stay behind the API's authentication.
package local

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lexxi/lexxi/internal/config"
	"github.com/lexxi/lexxi/internal/storage"
	"github.com/lexxi/lexxi/pkg/checksum"
)

func init() {
	storage.Register("local", func(cfg *config.Config) (storage.Storage, error) {
		return New(&cfg.Storage.Local, cfg.Server.BaseURL)
	})
}

// Storage keeps documents under a single base directory, mirroring the
// logical storage path (publications/<id>/<filename>) as subdirectories.
type Storage struct {
	basePath      string
	serveDirectly bool
	baseURL       string
}

// New creates the base directory if needed and returns the backend.
func New(cfg *config.LocalStorageConfig, serverBaseURL string) (*Storage, error) {
	if err := os.MkdirAll(cfg.BasePath, 0750); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &Storage{
		basePath:      cfg.BasePath,
		serveDirectly: cfg.ServeDirectly,
		baseURL:       serverBaseURL,
	}, nil
}

// resolve maps a logical storage path onto the filesystem and rejects
// anything that would escape the base directory. The file-serving route
// passes user-controlled paths straight in, so the check lives here
// rather than in every caller.
func (s *Storage) resolve(path string) (string, error) {
	full := filepath.Join(s.basePath, filepath.FromSlash(path))
	base := filepath.Clean(s.basePath)
	if full != base && !strings.HasPrefix(full, base+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid storage path: %s", path)
	}
	return full, nil
}

// Upload writes the document to disk, hashing it in the same pass. A
// partial file from a failed write is removed so a retry starts clean.
func (s *Storage) Upload(ctx context.Context, path string, reader io.Reader, size int64) (*storage.UploadResult, error) {
	fullPath, err := s.resolve(path)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0750); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	tee := io.TeeReader(reader, file)
	sum, err := checksum.CalculateSHA256(tee)
	if err != nil {
		_ = os.Remove(fullPath)
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat written file: %w", err)
	}

	return &storage.UploadResult{
		Path:     path,
		Size:     stat.Size(),
		Checksum: sum,
	}, nil
}

// Download opens the stored document for reading.
func (s *Storage) Download(ctx context.Context, path string) (io.ReadCloser, error) {
	fullPath, err := s.resolve(path)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found: %s", path)
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

// Delete removes the document and prunes empty parent directories so a
// re-uploaded publication does not leave stale folders behind. Deleting
// an absent file succeeds.
func (s *Storage) Delete(ctx context.Context, path string) error {
	fullPath, err := s.resolve(path)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}

	for dir := filepath.Dir(fullPath); dir != s.basePath; dir = filepath.Dir(dir) {
		if err := os.Remove(dir); err != nil {
			break
		}
	}
	return nil
}

// GetURL returns a URL for the document. With serve_directly, the URL
// points at the API's authenticated file route; ttl is ignored since the
// route enforces auth per request. Otherwise a file:// URL is returned
// for same-host consumers.
func (s *Storage) GetURL(ctx context.Context, path string, ttl time.Duration) (string, error) {
	exists, err := s.Exists(ctx, path)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", fmt.Errorf("file not found: %s", path)
	}

	if s.serveDirectly {
		return fmt.Sprintf("%s/api/v1/files/%s", s.baseURL, path), nil
	}

	fullPath, err := s.resolve(path)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("file://%s", fullPath), nil
}

// Exists reports whether the document is on disk.
func (s *Storage) Exists(ctx context.Context, path string) (bool, error) {
	fullPath, err := s.resolve(path)
	if err != nil {
		return false, err
	}

	if _, err := os.Stat(fullPath); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check file existence: %w", err)
	}
	return true, nil
}

// GetMetadata returns size, modification time, and the document's
// SHA-256. The hash is computed on demand; local deployments are small
// enough that caching it is not worth a sidecar file.
func (s *Storage) GetMetadata(ctx context.Context, path string) (*storage.FileMetadata, error) {
	fullPath, err := s.resolve(path)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found: %s", path)
		}
		return nil, fmt.Errorf("failed to get file metadata: %w", err)
	}

	file, err := os.Open(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file for checksum: %w", err)
	}
	defer file.Close()

	sum, err := checksum.CalculateSHA256(file)
	if err != nil {
		return nil, err
	}

	return &storage.FileMetadata{
		Path:         path,
		Size:         stat.Size(),
		Checksum:     sum,
		LastModified: stat.ModTime(),
	}, nil
}
