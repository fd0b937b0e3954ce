package pipeline

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/da314jones/CapStone-Backend/internal/models"
)

// ErrArchiveNotAvailable is returned when the retry budget is exhausted
// before the archive reaches its downloadable state. Provider transport
// errors propagate immediately and are never wrapped in this.
var ErrArchiveNotAvailable = errors.New("archive not available after maximum retries")

// ArchiveGetter fetches the current archive descriptor from the provider.
type ArchiveGetter interface {
	GetArchive(ctx context.Context, archiveID string) (*models.Archive, error)
}

// Poller polls archive status with a fixed delay until the archive is
// available (status "available" and remote URL present) or the retry
// budget is exhausted.
type Poller struct {
	client  ArchiveGetter
	retries int
	delay   time.Duration
	sleep   func(ctx context.Context, d time.Duration) error
	logger  *zap.Logger
}

// NewPoller creates a poller. retries must be positive; delay is the fixed
// inter-attempt wait.
func NewPoller(client ArchiveGetter, retries int, delay time.Duration, logger *zap.Logger) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{
		client:  client,
		retries: retries,
		delay:   delay,
		sleep:   sleepCtx,
		logger:  logger,
	}
}

// Poll performs exactly p.retries status queries, sleeping between
// attempts. Cancellation of ctx aborts the wait and returns ctx's error.
func (p *Poller) Poll(ctx context.Context, archiveID string) (*models.Archive, error) {
	for attempt := 1; attempt <= p.retries; attempt++ {
		arch, err := p.client.GetArchive(ctx, archiveID)
		if err != nil {
			return nil, err
		}
		if arch.Available() {
			return arch, nil
		}
		p.logger.Debug("archive not yet available",
			zap.String("archive_id", archiveID),
			zap.String("status", arch.Status),
			zap.Int("attempt", attempt),
			zap.Int("retries", p.retries),
		)
		if attempt < p.retries {
			if err := p.sleep(ctx, p.delay); err != nil {
				return nil, err
			}
		}
	}
	return nil, ErrArchiveNotAvailable
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
