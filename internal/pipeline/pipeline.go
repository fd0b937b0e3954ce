package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/da314jones/CapStone-Backend/internal/models"
	"github.com/da314jones/CapStone-Backend/internal/vonage"
	"github.com/da314jones/CapStone-Backend/pkg/storage"
)

// Pipeline step names, reported on failure.
const (
	StepStop      = "stop-archive"
	StepPoll      = "poll-availability"
	StepDownload  = "download"
	StepThumbnail = "thumbnail"
	StepUpload    = "upload"
	StepMetadata  = "update-metadata"
)

var (
	// ErrVideoNotFound is returned when no record exists for the archive id.
	ErrVideoNotFound = errors.New("no video record for archive")
	// ErrAlreadyProcessed is returned when the record already has storage
	// keys. A repeated stop must fail loudly rather than overwrite them.
	ErrAlreadyProcessed = errors.New("archive already processed")
)

// StepError tags a pipeline failure with the step that caused it.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string { return fmt.Sprintf("pipeline step %s: %v", e.Step, e.Err) }
func (e *StepError) Unwrap() error { return e.Err }

// ArchiveClient is the provider surface the pipeline drives.
type ArchiveClient interface {
	ArchiveGetter
	StopArchive(ctx context.Context, archiveID string) (*models.Archive, error)
}

// Uploader stores a local artifact under a key with descriptive metadata
// and returns the object URL.
type Uploader interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader, meta storage.ObjectMeta) (string, error)
}

// VideoStore is the metadata surface the pipeline reads and updates.
type VideoStore interface {
	GetByArchiveID(ctx context.Context, archiveID string) (*models.Video, error)
	UpdateArtifacts(ctx context.Context, archiveID, videoKey string, thumbnailKey *string) (*models.Video, error)
}

// Result carries the artifact URLs produced by a pipeline run.
type Result struct {
	VideoURL     string `json:"video_url"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
}

// Pipeline runs the archive retrieval workflow: stop the archive, poll
// until available, download, derive a thumbnail, upload both artifacts,
// update the video record, and clean up temp files on every exit path.
type Pipeline struct {
	provider ArchiveClient
	poller   *Poller
	fetcher  *Fetcher
	thumbs   *Thumbnailer
	uploader Uploader
	videos   VideoStore
	work     WorkDir

	// ThumbnailRequired makes thumbnail failure fatal; when false, the
	// failure is logged and the record keeps a null thumbnail key.
	ThumbnailRequired bool

	logger *zap.Logger
}

// New creates a pipeline. All collaborators are injected so tests can use
// doubles.
func New(provider ArchiveClient, poller *Poller, fetcher *Fetcher, thumbs *Thumbnailer, uploader Uploader, videos VideoStore, work WorkDir, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		provider:          provider,
		poller:            poller,
		fetcher:           fetcher,
		thumbs:            thumbs,
		uploader:          uploader,
		videos:            videos,
		work:              work,
		ThumbnailRequired: true,
		logger:            logger,
	}
}

// Run executes the full workflow for one archive. Only the availability
// poll retries; every other step is attempted exactly once. Temp files are
// removed on success and failure alike.
func (p *Pipeline) Run(ctx context.Context, archiveID string) (*Result, error) {
	rec, err := p.videos.GetByArchiveID(ctx, archiveID)
	if err != nil {
		return nil, &StepError{Step: StepMetadata, Err: err}
	}
	if rec == nil {
		return nil, ErrVideoNotFound
	}
	if rec.VideoKey != nil && *rec.VideoKey != "" {
		return nil, ErrAlreadyProcessed
	}

	// No local files exist yet, so a stop/poll failure leaves nothing to
	// reap; the deferred cleanup covers everything after download starts.
	defer p.work.Cleanup(archiveID)

	// Webhook-enqueued archives arrive already stopped, often already
	// available; stopping those again draws a conflict from the provider.
	// Only a still-recording archive gets the stop call.
	arch, err := p.provider.GetArchive(ctx, archiveID)
	if err != nil {
		if isNotFound(err) {
			return nil, err
		}
		return nil, &StepError{Step: StepPoll, Err: err}
	}
	if arch.Status == models.ArchiveStatusStarted {
		if _, err := p.provider.StopArchive(ctx, archiveID); err != nil {
			if isNotFound(err) {
				return nil, err
			}
			return nil, &StepError{Step: StepStop, Err: err}
		}
	}
	if !arch.Available() {
		arch, err = p.poller.Poll(ctx, archiveID)
		if err != nil {
			if isNotFound(err) {
				return nil, err
			}
			return nil, &StepError{Step: StepPoll, Err: err}
		}
	}

	videoPath := p.work.VideoPath(archiveID)
	if err := p.fetcher.Download(ctx, arch.URL, videoPath); err != nil {
		return nil, &StepError{Step: StepDownload, Err: err}
	}

	thumbPath := p.work.ThumbnailPath(archiveID)
	haveThumbnail := true
	if err := p.thumbs.Generate(ctx, videoPath, thumbPath); err != nil {
		if p.ThumbnailRequired {
			return nil, &StepError{Step: StepThumbnail, Err: err}
		}
		p.logger.Warn("thumbnail generation failed, continuing without one",
			zap.String("archive_id", archiveID), zap.Error(err))
		haveThumbnail = false
	}

	meta := storage.ObjectMeta{
		Title:     rec.Title,
		Summary:   rec.Summary,
		Category:  rec.Category,
		IsPrivate: rec.IsPrivate,
		Source:    rec.Source,
	}
	videoKey := storage.VideoKey(archiveID)
	thumbKey := storage.ThumbnailKey(archiveID)

	var videoURL, thumbURL string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		url, err := p.uploadFile(gctx, videoPath, videoKey, "video/mp4", meta)
		if err != nil {
			return err
		}
		videoURL = url
		return nil
	})
	if haveThumbnail {
		g.Go(func() error {
			url, err := p.uploadFile(gctx, thumbPath, thumbKey, "image/png", meta)
			if err != nil {
				return err
			}
			thumbURL = url
			return nil
		})
	}
	// Join semantics: the metadata update must not run with a partial
	// artifact set.
	if err := g.Wait(); err != nil {
		return nil, &StepError{Step: StepUpload, Err: err}
	}

	var thumbKeyPtr *string
	if haveThumbnail {
		thumbKeyPtr = &thumbKey
	}
	updated, err := p.videos.UpdateArtifacts(ctx, archiveID, videoKey, thumbKeyPtr)
	if err != nil {
		return nil, &StepError{Step: StepMetadata, Err: err}
	}
	if updated == nil {
		// Row deleted between the initial read and the update; the uploads
		// happened, but nothing references them and success would be a lie.
		return nil, &StepError{Step: StepMetadata, Err: ErrVideoNotFound}
	}

	p.logger.Info("archive pipeline completed",
		zap.String("archive_id", archiveID),
		zap.String("video_key", videoKey),
		zap.Bool("thumbnail", haveThumbnail),
	)
	return &Result{VideoURL: videoURL, ThumbnailURL: thumbURL}, nil
}

func (p *Pipeline) uploadFile(ctx context.Context, path, key, contentType string, meta storage.ObjectMeta) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return p.uploader.Upload(ctx, key, contentType, f, meta)
}

// isNotFound reports whether err is the provider's unknown-archive error.
func isNotFound(err error) bool {
	return errors.Is(err, vonage.ErrArchiveNotFound)
}
