// Package main runs the archive pipeline worker: it consumes archive jobs
// queued by the status webhook and stores the finished recordings.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/da314jones/CapStone-Backend/config"
	"github.com/da314jones/CapStone-Backend/internal/pipeline"
	"github.com/da314jones/CapStone-Backend/internal/videos"
	"github.com/da314jones/CapStone-Backend/internal/vonage"
	"github.com/da314jones/CapStone-Backend/internal/worker"
	"github.com/da314jones/CapStone-Backend/pkg/database"
	"github.com/da314jones/CapStone-Backend/pkg/queue"
	"github.com/da314jones/CapStone-Backend/pkg/redis"
	"github.com/da314jones/CapStone-Backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	s3Client, err := storage.NewS3(ctx, storage.S3Config{
		Region:               cfg.AWS.Region,
		AccessKeyID:          cfg.AWS.AccessKeyID,
		SecretAccessKey:      cfg.AWS.SecretAccessKey,
		Bucket:               cfg.AWS.Bucket,
		PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
	}, logger)
	if err != nil {
		logger.Fatal("s3", zap.Error(err))
	}

	vonageClient := vonage.NewClient(cfg.Vonage.APIKey, cfg.Vonage.Secret, cfg.Vonage.BaseURL, logger)

	work := pipeline.NewWorkDir(cfg.Pipeline.WorkDir)
	poller := pipeline.NewPoller(vonageClient, cfg.Pipeline.PollRetries,
		time.Duration(cfg.Pipeline.PollDelayMS)*time.Millisecond, logger)
	videoRepo := videos.NewRepository(pool)
	pipe := pipeline.New(vonageClient, poller, pipeline.NewFetcher(nil),
		pipeline.NewThumbnailer(""), s3Client, videoRepo, work, logger)
	pipe.ThumbnailRequired = cfg.Pipeline.ThumbnailRequired

	jobQueue := queue.NewQueue(rdb.Client, logger)
	processor := worker.NewArchiveProcessor(jobQueue, pipe, logger)

	runCtx, cancel := context.WithCancel(ctx)
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		cancel()
	}()

	reaper := pipeline.NewReaper(work,
		time.Duration(cfg.Pipeline.TempFileTTLMin)*time.Minute,
		time.Duration(cfg.Pipeline.TempFileTTLMin)*time.Minute/2, logger)
	go reaper.Run(runCtx)

	if err := processor.Run(runCtx); err != nil && err != context.Canceled {
		logger.Error("worker stopped", zap.Error(err))
	}
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
