// Package main runs the video recording backend HTTP server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/da314jones/CapStone-Backend/config"
	"github.com/da314jones/CapStone-Backend/internal/files"
	"github.com/da314jones/CapStone-Backend/internal/middleware"
	"github.com/da314jones/CapStone-Backend/internal/pipeline"
	"github.com/da314jones/CapStone-Backend/internal/recordings"
	"github.com/da314jones/CapStone-Backend/internal/users"
	"github.com/da314jones/CapStone-Backend/internal/videos"
	"github.com/da314jones/CapStone-Backend/internal/vonage"
	"github.com/da314jones/CapStone-Backend/internal/worker"
	"github.com/da314jones/CapStone-Backend/pkg/database"
	"github.com/da314jones/CapStone-Backend/pkg/queue"
	"github.com/da314jones/CapStone-Backend/pkg/redis"
	"github.com/da314jones/CapStone-Backend/pkg/response"
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

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

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

	// Archive pipeline
	work := pipeline.NewWorkDir(cfg.Pipeline.WorkDir)
	poller := pipeline.NewPoller(vonageClient, cfg.Pipeline.PollRetries,
		time.Duration(cfg.Pipeline.PollDelayMS)*time.Millisecond, logger)
	fetcher := pipeline.NewFetcher(nil)
	thumbs := pipeline.NewThumbnailer("")

	userRepo := users.NewRepository(pool)
	videoRepo := videos.NewRepository(pool)

	pipe := pipeline.New(vonageClient, poller, fetcher, thumbs, s3Client, videoRepo, work, logger)
	pipe.ThumbnailRequired = cfg.Pipeline.ThumbnailRequired

	// Handlers
	jwtService := users.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	userHandler := users.NewHandler(userRepo, jwtService, logger)
	videoHandler := videos.NewHandler(videoRepo, s3Client, logger)
	recordingHandler := recordings.NewHandler(vonageClient, pipe, userRepo, videoRepo, cfg.Vonage.APIKey, logger)
	fileHandler := files.NewHandler(s3Client, logger)

	jobQueue := queue.NewQueue(rdb.Client, logger)
	webhookHandler := recordings.NewWebhookHandler(jobQueue, logger)
	archiveProcessor := worker.NewArchiveProcessor(jobQueue, pipe, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Auth (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", userHandler.Register)
		authGroup.POST("/login", userHandler.Login)
	}

	// User admin (JWT required)
	userGroup := router.Group("/users")
	userGroup.Use(middleware.JWT(jwtService))
	{
		userGroup.GET("", userHandler.List)
		userGroup.GET("/:id", userHandler.Get)
		userGroup.DELETE("/:id", userHandler.Delete)
	}

	// Sessions and recording
	router.POST("/session", recordingHandler.CreateSession)
	router.GET("/token/:sessionId", recordingHandler.GenerateToken)
	router.POST("/start-recording", recordingHandler.StartRecording)
	router.POST("/stop-recording", recordingHandler.StopRecording)

	// Video metadata
	router.GET("/videos", videoHandler.List)
	router.GET("/index", videoHandler.List)
	router.GET("/videos/:id", videoHandler.GetByID)
	router.PATCH("/videos/:id", videoHandler.Update)
	router.DELETE("/videos/:id", videoHandler.Delete)
	router.POST("/uploadVideo/:archiveId", videoHandler.Upload)

	// Raw bucket access (JWT required)
	fileGroup := router.Group("/files")
	fileGroup.Use(middleware.JWT(jwtService))
	{
		fileGroup.GET("", fileHandler.List)
		fileGroup.GET("/download/*key", fileHandler.Download)
		fileGroup.DELETE("/*key", fileHandler.Delete)
	}

	// Webhooks (no JWT; the provider cannot send one)
	router.POST("/webhooks/archive-status", webhookHandler.ArchiveStatus)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Background: queue consumer for webhook-triggered archives, plus the
	// temp-file reaper.
	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()
	go archiveProcessor.Run(bgCtx)
	reaper := pipeline.NewReaper(work,
		time.Duration(cfg.Pipeline.TempFileTTLMin)*time.Minute,
		time.Duration(cfg.Pipeline.TempFileTTLMin)*time.Minute/2, logger)
	go reaper.Run(bgCtx)

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	bgCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
