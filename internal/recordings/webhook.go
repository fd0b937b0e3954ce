package recordings

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/da314jones/CapStone-Backend/internal/models"
	"github.com/da314jones/CapStone-Backend/pkg/queue"
	"github.com/da314jones/CapStone-Backend/pkg/response"
)

// Enqueuer pushes archive pipeline jobs for asynchronous processing.
type Enqueuer interface {
	EnqueueArchivePipeline(ctx context.Context, payload queue.ArchivePipelinePayload) error
}

// ArchiveEvent is the provider's archive status callback body.
type ArchiveEvent struct {
	ID        string `json:"id"`
	SessionID string `json:"sessionId"`
	Status    string `json:"status"`
	URL       string `json:"url"`
	Duration  int    `json:"duration"`
	Size      int64  `json:"size"`
}

// WebhookHandler receives archive status callbacks from the provider.
type WebhookHandler struct {
	enqueuer Enqueuer
	logger   *zap.Logger
}

// NewWebhookHandler creates a webhook handler.
func NewWebhookHandler(enqueuer Enqueuer, logger *zap.Logger) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{enqueuer: enqueuer, logger: logger}
}

// ArchiveStatus handles POST /webhooks/archive-status. When an archive
// becomes available the pipeline job is enqueued for the worker; every
// other status is acknowledged so the provider stops retrying.
func (h *WebhookHandler) ArchiveStatus(c *gin.Context) {
	var event ArchiveEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		response.BadRequest(c, "invalid webhook payload: "+err.Error())
		return
	}
	if event.ID == "" {
		response.BadRequest(c, "archive id is required")
		return
	}

	h.logger.Info("archive status callback",
		zap.String("archive_id", event.ID),
		zap.String("status", event.Status),
		zap.Int("duration", event.Duration))

	if event.Status != models.ArchiveStatusAvailable {
		response.OK(c, gin.H{"message": "acknowledged", "status": event.Status})
		return
	}

	if err := h.enqueuer.EnqueueArchivePipeline(c.Request.Context(), queue.ArchivePipelinePayload{ArchiveID: event.ID}); err != nil {
		h.logger.Error("enqueue archive job failed", zap.Error(err), zap.String("archive_id", event.ID))
		response.Internal(c, "failed to enqueue archive job")
		return
	}
	response.OK(c, gin.H{"message": "archive queued for processing", "archive_id": event.ID})
}
