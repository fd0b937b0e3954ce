package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/da314jones/CapStone-Backend/internal/pipeline"
	"github.com/da314jones/CapStone-Backend/pkg/queue"
)

// Runner drives the archive pipeline for a single archive id.
type Runner interface {
	Run(ctx context.Context, archiveID string) (*pipeline.Result, error)
}

// JobQueue is the slice of the queue the worker consumes.
type JobQueue interface {
	Dequeue(ctx context.Context) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job) error
}

// ArchiveProcessor consumes archive jobs from the queue and runs the
// pipeline for each. Failed jobs are retried with backoff until the queue
// moves them to the dead-letter list.
type ArchiveProcessor struct {
	queue   JobQueue
	runner  Runner
	logger  *zap.Logger
	backoff time.Duration
}

// NewArchiveProcessor creates a queue consumer.
func NewArchiveProcessor(q JobQueue, runner Runner, logger *zap.Logger) *ArchiveProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ArchiveProcessor{queue: q, runner: runner, logger: logger, backoff: queue.RetryBackoff}
}

// wait pauses for the retry backoff, returning early on cancellation.
func (p *ArchiveProcessor) wait(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Run blocks consuming jobs until ctx is cancelled.
func (p *ArchiveProcessor) Run(ctx context.Context) error {
	p.logger.Info("archive worker started")
	for {
		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				p.logger.Info("archive worker stopping")
				return ctx.Err()
			}
			p.logger.Error("dequeue failed", zap.Error(err))
			p.wait(ctx)
			continue
		}
		if job == nil {
			continue
		}
		p.process(ctx, job)
	}
}

func (p *ArchiveProcessor) process(ctx context.Context, job *queue.Job) {
	if job.Type != queue.JobTypeArchivePipeline {
		p.logger.Warn("unknown job type, dropping", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		return
	}
	var payload queue.ArchivePipelinePayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		p.logger.Warn("invalid job payload, dropping", zap.String("job_id", job.ID), zap.Error(err))
		return
	}

	result, err := p.runner.Run(ctx, payload.ArchiveID)
	if err != nil {
		// These outcomes will never change on retry.
		if errors.Is(err, pipeline.ErrVideoNotFound) || errors.Is(err, pipeline.ErrAlreadyProcessed) {
			p.logger.Warn("job dropped",
				zap.String("job_id", job.ID),
				zap.String("archive_id", payload.ArchiveID),
				zap.Error(err))
			return
		}
		p.logger.Error("archive pipeline failed",
			zap.String("job_id", job.ID),
			zap.String("archive_id", payload.ArchiveID),
			zap.Int("attempt", job.Attempt),
			zap.Error(err))
		if err := p.queue.Retry(ctx, job); err != nil {
			p.logger.Error("retry enqueue failed", zap.Error(err), zap.String("job_id", job.ID))
		}
		// Hold off before the next dequeue so a persistently failing
		// archive does not spin through its attempts in milliseconds.
		p.wait(ctx)
		return
	}

	p.logger.Info("archive processed",
		zap.String("job_id", job.ID),
		zap.String("archive_id", payload.ArchiveID),
		zap.String("video_url", result.VideoURL))
}
