package recordings

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/da314jones/CapStone-Backend/internal/models"
	"github.com/da314jones/CapStone-Backend/internal/pipeline"
	"github.com/da314jones/CapStone-Backend/internal/vonage"
	"github.com/da314jones/CapStone-Backend/pkg/response"
)

// Provider is the conferencing/recording API surface the handler needs.
type Provider interface {
	CreateSession(ctx context.Context) (string, error)
	GenerateToken(sessionID, role string) (string, error)
	StartArchive(ctx context.Context, sessionID string) (*models.Archive, error)
}

// Runner drives the post-recording archive pipeline.
type Runner interface {
	Run(ctx context.Context, archiveID string) (*pipeline.Result, error)
}

// UserStore guarantees a user row exists before a recording references it.
type UserStore interface {
	Ensure(ctx context.Context, userID string) error
}

// VideoStore creates the initial metadata row when a recording starts.
type VideoStore interface {
	CreateInitial(ctx context.Context, userID, archiveID string) (*models.Video, error)
}

// StartRequest is the body for POST /start-recording.
type StartRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	UserID    string `json:"user_id" binding:"required"`
}

// StopRequest is the body for POST /stop-recording.
type StopRequest struct {
	ArchiveID string `json:"archive_id" binding:"required"`
}

// Handler handles session and recording HTTP endpoints.
type Handler struct {
	provider Provider
	runner   Runner
	users    UserStore
	videos   VideoStore
	apiKey   string
	logger   *zap.Logger
}

// NewHandler creates a recordings handler.
func NewHandler(provider Provider, runner Runner, users UserStore, videos VideoStore, apiKey string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{provider: provider, runner: runner, users: users, videos: videos, apiKey: apiKey, logger: logger}
}

// CreateSession handles POST /session. Every call creates a fresh routed
// session; clients that want to share one must keep the id themselves.
func (h *Handler) CreateSession(c *gin.Context) {
	sessionID, err := h.provider.CreateSession(c.Request.Context())
	if err != nil {
		h.logger.Error("create session failed", zap.Error(err))
		response.InternalWithCause(c, "failed to create session", err)
		return
	}
	response.OK(c, gin.H{"session_id": sessionID, "api_key": h.apiKey})
}

// GenerateToken handles GET /token/:sessionId.
func (h *Handler) GenerateToken(c *gin.Context) {
	sessionID := c.Param("sessionId")
	if sessionID == "" {
		response.BadRequest(c, "session id is required")
		return
	}
	token, err := h.provider.GenerateToken(sessionID, vonage.RolePublisher)
	if err != nil {
		h.logger.Error("generate token failed", zap.Error(err), zap.String("session_id", sessionID))
		response.InternalWithCause(c, "failed to generate token", err)
		return
	}
	response.OK(c, gin.H{"token": token, "api_key": h.apiKey, "session_id": sessionID})
}

// StartRecording handles POST /start-recording. Starts a server-side archive
// and creates the pending metadata row keyed by the new archive id.
func (h *Handler) StartRecording(c *gin.Context) {
	var req StartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	if err := h.users.Ensure(c.Request.Context(), req.UserID); err != nil {
		h.logger.Error("ensure user failed", zap.Error(err), zap.String("user_id", req.UserID))
		response.Internal(c, "failed to start recording")
		return
	}

	archive, err := h.provider.StartArchive(c.Request.Context(), req.SessionID)
	if err != nil {
		h.logger.Error("start archive failed", zap.Error(err), zap.String("session_id", req.SessionID))
		response.InternalWithCause(c, "failed to start recording", err)
		return
	}

	if _, err := h.videos.CreateInitial(c.Request.Context(), req.UserID, archive.ID); err != nil {
		h.logger.Error("create video record failed", zap.Error(err), zap.String("archive_id", archive.ID))
		response.Internal(c, "failed to record archive metadata")
		return
	}

	h.logger.Info("recording started", zap.String("archive_id", archive.ID), zap.String("session_id", req.SessionID))
	response.OK(c, gin.H{"archive_id": archive.ID, "status": archive.Status})
}

// StopRecording handles POST /stop-recording. Stops the archive and runs the
// full pipeline synchronously: poll until available, download, thumbnail,
// upload, record the stored keys.
func (h *Handler) StopRecording(c *gin.Context) {
	var req StopRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	result, err := h.runner.Run(c.Request.Context(), req.ArchiveID)
	if err != nil {
		h.logger.Error("archive pipeline failed", zap.Error(err), zap.String("archive_id", req.ArchiveID))
		switch {
		case errors.Is(err, pipeline.ErrVideoNotFound):
			response.NotFound(c, "no video record for archive")
		case errors.Is(err, vonage.ErrArchiveNotFound):
			response.NotFound(c, "archive not found")
		case errors.Is(err, pipeline.ErrAlreadyProcessed):
			response.Conflict(c, "archive already processed")
		case errors.Is(err, pipeline.ErrArchiveNotAvailable):
			response.InternalWithCause(c, "archive not available after maximum retries", err)
		default:
			var step *pipeline.StepError
			if errors.As(err, &step) {
				response.InternalWithCause(c, "recording pipeline failed at "+step.Step, err)
				return
			}
			response.InternalWithCause(c, "recording pipeline failed", err)
		}
		return
	}

	response.OK(c, gin.H{
		"message":       "recording stored",
		"archive_id":    req.ArchiveID,
		"video_url":     result.VideoURL,
		"thumbnail_url": result.ThumbnailURL,
	})
}
