package local

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lexxi/lexxi/internal/config"
)

func newTestStorage(t *testing.T, serveDirectly bool, baseURL string) *Storage {
	t.Helper()
	cfg := &config.LocalStorageConfig{
		BasePath:      t.TempDir(),
		ServeDirectly: serveDirectly,
	}
	s, err := New(cfg, baseURL)
	if err != nil {
		t.Fatal("New:", err)
	}
	return s
}

// ---------------------------------------------------------------------------
// New
// ---------------------------------------------------------------------------

func TestNew_CreatesDirectory(t *testing.T) {
	base := filepath.Join(t.TempDir(), "documents", "lexxi")
	if _, err := New(&config.LocalStorageConfig{BasePath: base}, "http://localhost"); err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if _, err := os.Stat(base); os.IsNotExist(err) {
		t.Error("New() did not create base directory")
	}
}

// ---------------------------------------------------------------------------
// Upload
// ---------------------------------------------------------------------------

func TestUpload(t *testing.T) {
	s := newTestStorage(t, false, "http://localhost")
	ctx := context.Background()

	doc := "%PDF-1.4 acuerdo de pruebas"
	result, err := s.Upload(ctx, "publications/7/acuerdo.pdf", strings.NewReader(doc), int64(len(doc)))
	if err != nil {
		t.Fatalf("Upload() error: %v", err)
	}

	if result.Path != "publications/7/acuerdo.pdf" {
		t.Errorf("Path = %q, want publications/7/acuerdo.pdf", result.Path)
	}
	if result.Size != int64(len(doc)) {
		t.Errorf("Size = %d, want %d", result.Size, len(doc))
	}
	if len(result.Checksum) != 64 {
		t.Errorf("Checksum len = %d, want 64 (SHA-256 hex)", len(result.Checksum))
	}

	// The bytes on disk must match what was sent.
	onDisk, err := os.ReadFile(filepath.Join(s.basePath, "publications", "7", "acuerdo.pdf"))
	if err != nil {
		t.Fatal("ReadFile:", err)
	}
	if string(onDisk) != doc {
		t.Errorf("stored content = %q, want %q", onDisk, doc)
	}
}

func TestUpload_ChecksumDeterministic(t *testing.T) {
	s := newTestStorage(t, false, "")
	ctx := context.Background()

	doc := "%PDF-1.4 sentencia"
	r1, err := s.Upload(ctx, "publications/1/sentencia.pdf", strings.NewReader(doc), int64(len(doc)))
	if err != nil {
		t.Fatal("Upload:", err)
	}
	r2, err := s.Upload(ctx, "publications/2/sentencia.pdf", strings.NewReader(doc), int64(len(doc)))
	if err != nil {
		t.Fatal("Upload:", err)
	}

	if r1.Checksum != r2.Checksum {
		t.Errorf("same content produced different checksums: %q vs %q", r1.Checksum, r2.Checksum)
	}
}

func TestUpload_RejectsTraversal(t *testing.T) {
	s := newTestStorage(t, false, "")
	ctx := context.Background()

	if _, err := s.Upload(ctx, "../outside.pdf", strings.NewReader("x"), 1); err == nil {
		t.Error("Upload() accepted a path escaping the base directory")
	}
}

// ---------------------------------------------------------------------------
// Download
// ---------------------------------------------------------------------------

func TestDownload(t *testing.T) {
	s := newTestStorage(t, false, "")
	ctx := context.Background()

	want := "%PDF-1.4 oficio"
	if _, err := s.Upload(ctx, "publications/3/oficio.pdf", strings.NewReader(want), int64(len(want))); err != nil {
		t.Fatal("Upload:", err)
	}

	rc, err := s.Download(ctx, "publications/3/oficio.pdf")
	if err != nil {
		t.Fatalf("Download() error: %v", err)
	}
	defer rc.Close()

	data, _ := io.ReadAll(rc)
	if string(data) != want {
		t.Errorf("Download() content = %q, want %q", string(data), want)
	}
}

func TestDownload_NotFound(t *testing.T) {
	s := newTestStorage(t, false, "")

	if _, err := s.Download(context.Background(), "publications/9/missing.pdf"); err == nil {
		t.Error("Download() expected error for missing file, got nil")
	}
}

// ---------------------------------------------------------------------------
// Delete
// ---------------------------------------------------------------------------

func TestDelete(t *testing.T) {
	s := newTestStorage(t, false, "")
	ctx := context.Background()

	if _, err := s.Upload(ctx, "publications/4/borrador.pdf", strings.NewReader("x"), 1); err != nil {
		t.Fatal("Upload:", err)
	}
	if err := s.Delete(ctx, "publications/4/borrador.pdf"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}

	if exists, _ := s.Exists(ctx, "publications/4/borrador.pdf"); exists {
		t.Error("file still exists after Delete()")
	}

	// The now-empty publications/4 directory should be pruned too.
	if _, err := os.Stat(filepath.Join(s.basePath, "publications", "4")); !os.IsNotExist(err) {
		t.Error("Delete() left empty parent directory behind")
	}
}

func TestDelete_MissingFileIsNoop(t *testing.T) {
	s := newTestStorage(t, false, "")

	if err := s.Delete(context.Background(), "publications/5/gone.pdf"); err != nil {
		t.Errorf("Delete() error for missing file: %v (want nil)", err)
	}
}

func TestDelete_KeepsSiblings(t *testing.T) {
	s := newTestStorage(t, false, "")
	ctx := context.Background()

	if _, err := s.Upload(ctx, "publications/6/acta.pdf", strings.NewReader("a"), 1); err != nil {
		t.Fatal("Upload:", err)
	}
	if _, err := s.Upload(ctx, "publications/6/anexo.pdf", strings.NewReader("b"), 1); err != nil {
		t.Fatal("Upload:", err)
	}

	if err := s.Delete(ctx, "publications/6/acta.pdf"); err != nil {
		t.Fatal("Delete:", err)
	}

	if exists, _ := s.Exists(ctx, "publications/6/anexo.pdf"); !exists {
		t.Error("Delete() removed a sibling document")
	}
}

// ---------------------------------------------------------------------------
// Exists
// ---------------------------------------------------------------------------

func TestExists(t *testing.T) {
	s := newTestStorage(t, false, "")
	ctx := context.Background()

	if ok, err := s.Exists(ctx, "publications/8/nada.pdf"); err != nil || ok {
		t.Errorf("Exists() = (%v, %v) for missing file, want (false, nil)", ok, err)
	}

	if _, err := s.Upload(ctx, "publications/8/algo.pdf", strings.NewReader("x"), 1); err != nil {
		t.Fatal("Upload:", err)
	}
	if ok, err := s.Exists(ctx, "publications/8/algo.pdf"); err != nil || !ok {
		t.Errorf("Exists() = (%v, %v) for stored file, want (true, nil)", ok, err)
	}
}

// ---------------------------------------------------------------------------
// GetURL
// ---------------------------------------------------------------------------

func TestGetURL_ServeDirectly(t *testing.T) {
	s := newTestStorage(t, true, "http://lexxi.example.com")
	ctx := context.Background()

	if _, err := s.Upload(ctx, "publications/42/expediente.pdf", strings.NewReader("x"), 1); err != nil {
		t.Fatal("Upload:", err)
	}

	url, err := s.GetURL(ctx, "publications/42/expediente.pdf", time.Hour)
	if err != nil {
		t.Fatalf("GetURL() error: %v", err)
	}
	want := "http://lexxi.example.com/api/v1/files/publications/42/expediente.pdf"
	if url != want {
		t.Errorf("GetURL() = %q, want %q", url, want)
	}
}

func TestGetURL_FileScheme(t *testing.T) {
	s := newTestStorage(t, false, "")
	ctx := context.Background()

	if _, err := s.Upload(ctx, "publications/43/auto.pdf", strings.NewReader("x"), 1); err != nil {
		t.Fatal("Upload:", err)
	}

	url, err := s.GetURL(ctx, "publications/43/auto.pdf", time.Hour)
	if err != nil {
		t.Fatalf("GetURL() error: %v", err)
	}
	if !strings.HasPrefix(url, "file://") {
		t.Errorf("GetURL() = %q, want file:// scheme", url)
	}
	if !strings.Contains(url, "auto.pdf") {
		t.Errorf("GetURL() = %q, want to contain auto.pdf", url)
	}
}

func TestGetURL_NotFound(t *testing.T) {
	s := newTestStorage(t, true, "http://example.com")

	if _, err := s.GetURL(context.Background(), "publications/44/missing.pdf", time.Hour); err == nil {
		t.Error("GetURL() expected error for missing file, got nil")
	}
}

// ---------------------------------------------------------------------------
// GetMetadata
// ---------------------------------------------------------------------------

func TestGetMetadata(t *testing.T) {
	s := newTestStorage(t, false, "")
	ctx := context.Background()

	doc := []byte("%PDF-1.4 resolucion incidental")
	up, err := s.Upload(ctx, "publications/50/resolucion.pdf", bytes.NewReader(doc), int64(len(doc)))
	if err != nil {
		t.Fatal("Upload:", err)
	}

	meta, err := s.GetMetadata(ctx, "publications/50/resolucion.pdf")
	if err != nil {
		t.Fatalf("GetMetadata() error: %v", err)
	}

	if meta.Path != "publications/50/resolucion.pdf" {
		t.Errorf("Path = %q, want publications/50/resolucion.pdf", meta.Path)
	}
	if meta.Size != int64(len(doc)) {
		t.Errorf("Size = %d, want %d", meta.Size, len(doc))
	}
	if meta.Checksum != up.Checksum {
		t.Errorf("GetMetadata checksum %q != Upload checksum %q", meta.Checksum, up.Checksum)
	}
	if meta.LastModified.IsZero() {
		t.Error("LastModified should not be zero")
	}
}

func TestGetMetadata_NotFound(t *testing.T) {
	s := newTestStorage(t, false, "")

	if _, err := s.GetMetadata(context.Background(), "publications/51/nada.pdf"); err == nil {
		t.Error("GetMetadata() expected error for missing file, got nil")
	}
}
