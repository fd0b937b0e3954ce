package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Thumbnailer derives a single representative still image from a local
// video file by shelling out to ffmpeg.
type Thumbnailer struct {
	ffmpegPath string
	run        func(ctx context.Context, name string, args ...string) error
}

// NewThumbnailer creates a thumbnailer. ffmpegPath may be empty to use
// "ffmpeg" from PATH.
func NewThumbnailer(ffmpegPath string) *Thumbnailer {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	t := &Thumbnailer{ffmpegPath: ffmpegPath}
	t.run = t.runFFmpeg
	return t
}

// Generate writes one 320x240 PNG frame from videoPath to thumbPath.
func (t *Thumbnailer) Generate(ctx context.Context, videoPath, thumbPath string) error {
	args := ThumbnailArgs(videoPath, thumbPath)
	if err := t.run(ctx, t.ffmpegPath, args...); err != nil {
		return fmt.Errorf("generate thumbnail: %w", err)
	}
	return nil
}

// ThumbnailArgs returns the ffmpeg arguments for a single-frame screenshot.
func ThumbnailArgs(videoPath, thumbPath string) []string {
	return []string{
		"-i", videoPath,
		"-ss", "00:00:01",
		"-vframes", "1",
		"-s", "320x240",
		"-y",
		thumbPath,
	}
}

func (t *Thumbnailer) runFFmpeg(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if len(detail) > 512 {
			detail = detail[len(detail)-512:]
		}
		if detail != "" {
			return fmt.Errorf("%w: %s", err, detail)
		}
		return err
	}
	return nil
}
