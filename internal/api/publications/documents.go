// Package publications implements the publication document endpoints:
// multipart upload into the configured storage backend, download via
// storage URL, and the file-serving route the local backend's direct-serve
// URLs point at.
package publications

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lexxi/lexxi/internal/db/repositories"
	"github.com/lexxi/lexxi/internal/storage"
	"github.com/lexxi/lexxi/internal/telemetry"
	"github.com/lexxi/lexxi/pkg/checksum"
)

// documentURLTTL bounds how long an issued storage URL stays valid. Only the
// s3 backend enforces it (pre-signed URLs); local direct-serve URLs are
// stable paths behind this process's own auth.
const documentURLTTL = 15 * time.Minute

// Handlers serves the /api/v1/publications document endpoints
type Handlers struct {
	pubRepo *repositories.PublicationRepository
	store   storage.Storage
}

// NewHandlers creates a new publications Handlers instance
func NewHandlers(pubRepo *repositories.PublicationRepository, store storage.Storage) *Handlers {
	return &Handlers{pubRepo: pubRepo, store: store}
}

// @Summary      Upload a publication document
// @Description  Store the source document of a publication (multipart field "document") in the configured storage backend and record its path and checksum.
// @Tags         Publications
// @Accept       multipart/form-data
// @Produce      json
// @Param        id        path      string  true   "Publication ID"
// @Param        document  formData  file    true   "Document file"
// @Param        checksum  formData  string  false  "Expected SHA-256 of the file, hex encoded"
// @Success      201  {object}  map[string]interface{}  "path, size, checksum"
// @Failure      400  {object}  map[string]interface{}  "Missing document field or checksum mismatch"
// @Failure      404  {object}  map[string]interface{}  "Publication not found"
// @Router       /api/v1/publications/{id}/document [post]
// UploadDocumentHandler stores a publication's source document.
// POST /api/v1/publications/:id/document
func (h *Handlers) UploadDocumentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		pubID := c.Param("id")

		pub, err := h.pubRepo.GetPublicationByID(c.Request.Context(), pubID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to load publication",
			})
			return
		}
		if pub == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Publication not found",
			})
			return
		}

		file, header, err := c.Request.FormFile("document")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Multipart field 'document' is required",
			})
			return
		}
		defer file.Close()

		// When the client sends the file's SHA-256 alongside it, verify the
		// received bytes before committing anything to storage.
		if expected := c.PostForm("checksum"); expected != "" {
			ok, err := checksum.VerifySHA256(file, expected)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "Failed to verify document checksum",
				})
				return
			}
			if !ok {
				c.JSON(http.StatusBadRequest, gin.H{
					"error": "Document checksum mismatch",
				})
				return
			}
			if _, err := file.Seek(0, io.SeekStart); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "Failed to read document",
				})
				return
			}
		}

		// Keyed by publication id so a re-upload replaces the previous
		// document instead of orphaning it.
		storagePath := fmt.Sprintf("publications/%s/%s", pubID, path.Base(header.Filename))
		result, err := h.store.Upload(c.Request.Context(), storagePath, file, header.Size)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to store document",
			})
			return
		}

		if err := h.pubRepo.SetDocumentPath(c.Request.Context(), pubID, result.Path); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				c.JSON(http.StatusNotFound, gin.H{
					"error": "Publication not found",
				})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to record document",
			})
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"path":     result.Path,
			"size":     result.Size,
			"checksum": result.Checksum,
		})
	}
}

// @Summary      Download a publication document
// @Description  Redirect to the storage URL of the publication's document: a pre-signed S3 URL or a direct-serve path for local storage.
// @Tags         Publications
// @Produce      json
// @Param        id  path  string  true  "Publication ID"
// @Success      302  {string}  string  "Redirect to the document URL"
// @Failure      404  {object}  map[string]interface{}  "Publication or document not found"
// @Router       /api/v1/publications/{id}/document [get]
// DownloadDocumentHandler redirects to the document's storage URL.
// GET /api/v1/publications/:id/document
func (h *Handlers) DownloadDocumentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		pub, err := h.pubRepo.GetPublicationByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to load publication",
			})
			return
		}
		if pub == nil || pub.DocumentPath == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Document not found",
			})
			return
		}

		url, err := h.store.GetURL(c.Request.Context(), *pub.DocumentPath, documentURLTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to generate document URL",
			})
			return
		}

		telemetry.PublicationDocumentDownloadsTotal.Inc()
		c.Redirect(http.StatusFound, url)
	}
}

// ServeFileHandler streams a stored file. The local backend's direct-serve
// URLs point here; other backends never issue URLs for this route.
// GET /api/v1/files/*filepath
func ServeFileHandler(store storage.Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		filePath := c.Param("filepath")
		if len(filePath) > 0 && filePath[0] == '/' {
			filePath = filePath[1:]
		}
		if filePath == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "File path is required",
			})
			return
		}

		exists, err := store.Exists(c.Request.Context(), filePath)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to check file existence",
			})
			return
		}
		if !exists {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "File not found",
			})
			return
		}

		metadata, err := store.GetMetadata(c.Request.Context(), filePath)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to get file metadata",
			})
			return
		}

		reader, err := store.Download(c.Request.Context(), filePath)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to read file",
			})
			return
		}
		defer reader.Close()

		c.Header("Content-Type", "application/octet-stream")
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", path.Base(filePath)))
		c.Header("X-Checksum-SHA256", metadata.Checksum)
		c.Status(http.StatusOK)
		io.Copy(c.Writer, reader)
	}
}
