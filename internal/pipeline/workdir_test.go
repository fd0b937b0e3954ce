package pipeline

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWorkDirPathsUniquePerArchive(t *testing.T) {
	w := NewWorkDir("/var/tmp")
	require.Equal(t, filepath.Join("/var/tmp", "archives", "A1.mp4"), w.VideoPath("A1"))
	require.Equal(t, filepath.Join("/var/tmp", "archives", "A1.png"), w.ThumbnailPath("A1"))
	require.NotEqual(t, w.VideoPath("A1"), w.VideoPath("A2"))
}

func TestCleanupIgnoresMissingFiles(t *testing.T) {
	w := NewWorkDir(t.TempDir())
	// nothing exists yet; must not panic or error
	w.Cleanup("A1")

	require.NoError(t, os.MkdirAll(w.Root(), 0750))
	require.NoError(t, os.WriteFile(w.VideoPath("A1"), []byte("x"), 0600))
	w.Cleanup("A1")

	_, err := os.Stat(w.VideoPath("A1"))
	require.True(t, os.IsNotExist(err))
}

func TestReaperSweepRemovesOnlyStaleFiles(t *testing.T) {
	w := NewWorkDir(t.TempDir())
	require.NoError(t, os.MkdirAll(w.Root(), 0750))

	stale := w.VideoPath("old")
	fresh := w.VideoPath("new")
	require.NoError(t, os.WriteFile(stale, []byte("x"), 0600))
	require.NoError(t, os.WriteFile(fresh, []byte("x"), 0600))
	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(stale, past, past))

	r := NewReaper(w, time.Hour, time.Minute, nil)
	r.Sweep()

	_, err := os.Stat(stale)
	require.True(t, os.IsNotExist(err), "stale file reaped")
	_, err = os.Stat(fresh)
	require.NoError(t, err, "fresh file kept")
}
