package videos

import (
	"context"
	"io"
	"mime/multipart"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/da314jones/CapStone-Backend/internal/models"
	"github.com/da314jones/CapStone-Backend/pkg/response"
	"github.com/da314jones/CapStone-Backend/pkg/storage"
)

// Repo is the metadata surface the handler needs.
type Repo interface {
	GetByArchiveID(ctx context.Context, archiveID string) (*models.Video, error)
	GetByID(ctx context.Context, id int64) (*models.Video, error)
	List(ctx context.Context) ([]models.Video, error)
	UpdateUpload(ctx context.Context, archiveID, videoKey string, thumbnailKey *string, title, summary, category string, isPrivate bool, duration int) (*models.Video, error)
	UpdateDetails(ctx context.Context, id int64, title, summary, category string, isPrivate bool) (*models.Video, error)
	Delete(ctx context.Context, id int64) (*models.Video, error)
}

// Store is the object-storage surface the handler needs.
type Store interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader, meta storage.ObjectMeta) (string, error)
	Delete(ctx context.Context, key string) error
	PresignDownload(ctx context.Context, key string, expires time.Duration) (string, error)
	PresignExpire() time.Duration
}

// View is a video record decorated with freshly presigned URLs. Records
// without a video key are pending and carry no URL.
type View struct {
	models.Video
	Status       string `json:"status"`
	VideoURL     string `json:"video_url,omitempty"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
}

// UpdateRequest is the body for PATCH /videos/:id.
type UpdateRequest struct {
	Title     *string `json:"title"`
	Summary   *string `json:"summary"`
	Category  *string `json:"category"`
	IsPrivate *bool   `json:"is_private"`
}

// Handler handles video metadata HTTP endpoints.
type Handler struct {
	repo   Repo
	store  Store
	logger *zap.Logger
}

// NewHandler creates a videos handler.
func NewHandler(repo Repo, store Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, store: store, logger: logger}
}

func (h *Handler) view(ctx context.Context, v models.Video) View {
	out := View{Video: v, Status: v.Status()}
	if v.VideoKey != nil && *v.VideoKey != "" {
		if url, err := h.store.PresignDownload(ctx, *v.VideoKey, h.store.PresignExpire()); err == nil {
			out.VideoURL = url
		}
	}
	if v.ThumbnailKey != nil && *v.ThumbnailKey != "" {
		if url, err := h.store.PresignDownload(ctx, *v.ThumbnailKey, h.store.PresignExpire()); err == nil {
			out.ThumbnailURL = url
		}
	}
	return out
}

// List handles GET /videos (and GET /index). Every playable record gets
// freshly presigned URLs.
func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.List(c.Request.Context())
	if err != nil {
		h.logger.Error("list videos failed", zap.Error(err))
		response.Internal(c, "failed to list videos")
		return
	}
	views := make([]View, 0, len(list))
	for _, v := range list {
		views = append(views, h.view(c.Request.Context(), v))
	}
	response.OK(c, views)
}

// GetByID handles GET /videos/:id.
func (h *Handler) GetByID(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid video id")
		return
	}
	v, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("get video failed", zap.Error(err), zap.Int64("id", id))
		response.Internal(c, "failed to fetch video")
		return
	}
	if v == nil {
		response.NotFound(c, "video not found")
		return
	}
	response.OK(c, h.view(c.Request.Context(), *v))
}

// Update handles PATCH /videos/:id (user edit of descriptive fields).
func (h *Handler) Update(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid video id")
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	current, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Internal(c, "failed to fetch video")
		return
	}
	if current == nil {
		response.NotFound(c, "video not found")
		return
	}

	title, summary, category, isPrivate := current.Title, current.Summary, current.Category, current.IsPrivate
	if req.Title != nil {
		title = *req.Title
	}
	if req.Summary != nil {
		summary = *req.Summary
	}
	if req.Category != nil {
		category = *req.Category
	}
	if req.IsPrivate != nil {
		isPrivate = *req.IsPrivate
	}

	v, err := h.repo.UpdateDetails(c.Request.Context(), id, title, summary, category, isPrivate)
	if err != nil {
		h.logger.Error("update video failed", zap.Error(err), zap.Int64("id", id))
		response.Internal(c, "failed to update video")
		return
	}
	if v == nil {
		response.NotFound(c, "video not found")
		return
	}
	response.OK(c, h.view(c.Request.Context(), *v))
}

// Delete handles DELETE /videos/:id. The row is removed first; object
// deletion is best-effort so a storage hiccup never strands the metadata.
func (h *Handler) Delete(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid video id")
		return
	}
	v, err := h.repo.Delete(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("delete video failed", zap.Error(err), zap.Int64("id", id))
		response.Internal(c, "failed to delete video")
		return
	}
	if v == nil {
		response.NotFound(c, "video not found")
		return
	}
	for _, key := range []*string{v.VideoKey, v.ThumbnailKey} {
		if key == nil || *key == "" {
			continue
		}
		if err := h.store.Delete(c.Request.Context(), *key); err != nil {
			h.logger.Warn("delete stored object failed", zap.Error(err), zap.String("key", *key))
		}
	}
	response.OK(c, gin.H{"message": "video deleted", "video": v})
}

// Upload handles POST /uploadVideo/:archiveId — the manual multipart path
// that bypasses the recording provider. The record must already exist.
func (h *Handler) Upload(c *gin.Context) {
	archiveID := c.Param("archiveId")
	if archiveID == "" {
		response.BadRequest(c, "archive id is required")
		return
	}

	rec, err := h.repo.GetByArchiveID(c.Request.Context(), archiveID)
	if err != nil {
		response.Internal(c, "failed to fetch video")
		return
	}
	if rec == nil {
		response.NotFound(c, "no video record for archive")
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		response.BadRequest(c, "file is required")
		return
	}
	defer file.Close()

	title := c.PostForm("title")
	if title == "" {
		title = rec.Title
	}
	summary := c.PostForm("summary")
	category := c.PostForm("category")
	isPrivate := rec.IsPrivate
	if v := c.PostForm("is_private"); v != "" {
		isPrivate, _ = strconv.ParseBool(v)
	}
	duration := rec.Duration
	if v := c.PostForm("duration"); v != "" {
		duration, _ = strconv.Atoi(v)
	}

	key := storage.UserUploadKey(rec.UserID, title, uuid.New().String()[:8], uploadExt(header))
	meta := storage.ObjectMeta{Title: title, Summary: summary, Category: category, IsPrivate: isPrivate, Source: "upload"}
	if _, err := h.store.Upload(c.Request.Context(), key, uploadContentType(header), file, meta); err != nil {
		h.logger.Error("manual upload failed", zap.Error(err), zap.String("archive_id", archiveID))
		response.InternalWithCause(c, "failed to upload video", err)
		return
	}

	v, err := h.repo.UpdateUpload(c.Request.Context(), archiveID, key, rec.ThumbnailKey, title, summary, category, isPrivate, duration)
	if err != nil || v == nil {
		h.logger.Error("record manual upload failed", zap.Error(err), zap.String("archive_id", archiveID))
		response.Internal(c, "failed to update video record")
		return
	}

	url, _ := h.store.PresignDownload(c.Request.Context(), key, h.store.PresignExpire())
	response.OK(c, gin.H{"message": "video uploaded", "video": h.view(c.Request.Context(), *v), "video_url": url})
}

func uploadExt(header *multipart.FileHeader) string {
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext == "" {
		ext = ".mp4"
	}
	return ext
}

func uploadContentType(header *multipart.FileHeader) string {
	if ct := header.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	return "video/mp4"
}
