package files

import (
	"context"
	"io"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/da314jones/CapStone-Backend/pkg/response"
	"github.com/da314jones/CapStone-Backend/pkg/storage"
)

// Store is the object-storage surface the handler needs.
type Store interface {
	List(ctx context.Context, prefix string) ([]storage.ObjectInfo, error)
	Download(ctx context.Context, key string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, key string) error
}

// Handler exposes raw bucket operations: list, download proxy, delete.
type Handler struct {
	store  Store
	logger *zap.Logger
}

// NewHandler creates a files handler.
func NewHandler(store Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, logger: logger}
}

// List handles GET /files. An optional prefix query narrows the listing.
func (h *Handler) List(c *gin.Context) {
	prefix := c.Query("prefix")
	objects, err := h.store.List(c.Request.Context(), prefix)
	if err != nil {
		h.logger.Error("list objects failed", zap.Error(err), zap.String("prefix", prefix))
		response.Internal(c, "failed to list files")
		return
	}
	response.OK(c, objects)
}

// Download handles GET /files/download/*key. The object is streamed through
// the server rather than redirected, so private buckets need no public ACL.
func (h *Handler) Download(c *gin.Context) {
	key := objectKey(c)
	if key == "" {
		response.BadRequest(c, "file key is required")
		return
	}
	body, contentType, err := h.store.Download(c.Request.Context(), key)
	if err != nil {
		h.logger.Warn("download object failed", zap.Error(err), zap.String("key", key))
		response.NotFound(c, "file not found")
		return
	}
	defer body.Close()

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Disposition", `attachment; filename="`+path.Base(key)+`"`)
	c.Header("Content-Type", contentType)
	c.Status(200)
	if _, err := io.Copy(c.Writer, body); err != nil {
		h.logger.Warn("stream object failed", zap.Error(err), zap.String("key", key))
	}
}

// Delete handles DELETE /files/*key.
func (h *Handler) Delete(c *gin.Context) {
	key := objectKey(c)
	if key == "" {
		response.BadRequest(c, "file key is required")
		return
	}
	if err := h.store.Delete(c.Request.Context(), key); err != nil {
		h.logger.Error("delete object failed", zap.Error(err), zap.String("key", key))
		response.Internal(c, "failed to delete file")
		return
	}
	response.OK(c, gin.H{"message": "file deleted", "key": key})
}

// objectKey extracts the object key from a wildcard route param, which gin
// delivers with a leading slash.
func objectKey(c *gin.Context) string {
	return strings.TrimPrefix(c.Param("key"), "/")
}
