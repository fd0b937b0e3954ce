package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// WorkDir derives per-invocation temporary paths from the archive id, which
// is unique per pipeline run, so no two invocations share a temp path.
type WorkDir struct {
	root string
}

// NewWorkDir creates a work dir rooted at root ("" = os.TempDir()).
func NewWorkDir(root string) WorkDir {
	if root == "" {
		root = os.TempDir()
	}
	return WorkDir{root: filepath.Join(root, "archives")}
}

// Root returns the directory holding temp artifacts.
func (w WorkDir) Root() string { return w.root }

// VideoPath returns the temp path for an archive's downloaded video.
func (w WorkDir) VideoPath(archiveID string) string {
	return filepath.Join(w.root, archiveID+".mp4")
}

// ThumbnailPath returns the temp path for an archive's derived thumbnail.
func (w WorkDir) ThumbnailPath(archiveID string) string {
	return filepath.Join(w.root, archiveID+".png")
}

// Cleanup removes both temp artifacts for an archive. Missing files are not
// an error; cleanup runs on every pipeline exit path.
func (w WorkDir) Cleanup(archiveID string) {
	for _, p := range []string{w.VideoPath(archiveID), w.ThumbnailPath(archiveID)} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			// leave it to the reaper
			continue
		}
	}
}

// Reaper periodically deletes temp files older than a TTL so failures never
// accumulate local files.
type Reaper struct {
	work     WorkDir
	ttl      time.Duration
	interval time.Duration
	logger   *zap.Logger
}

// NewReaper creates a reaper over the work dir.
func NewReaper(work WorkDir, ttl, interval time.Duration, logger *zap.Logger) *Reaper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reaper{work: work, ttl: ttl, interval: interval, logger: logger}
}

// Run sweeps until ctx is done.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("temp file reaper stopping")
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// Sweep removes stale files once.
func (r *Reaper) Sweep() {
	entries, err := os.ReadDir(r.work.Root())
	if err != nil {
		return
	}
	cutoff := time.Now().Add(-r.ttl)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			p := filepath.Join(r.work.Root(), e.Name())
			if err := os.Remove(p); err == nil {
				r.logger.Info("reaped stale temp file", zap.String("path", p))
			}
		}
	}
}
