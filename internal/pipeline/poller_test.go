package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/da314jones/CapStone-Backend/internal/models"
)

// scriptedGetter returns one response per call, in order.
type scriptedGetter struct {
	responses []func() (*models.Archive, error)
	calls     int
}

func (s *scriptedGetter) GetArchive(_ context.Context, archiveID string) (*models.Archive, error) {
	idx := s.calls
	s.calls++
	if idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}
	return s.responses[idx]()
}

func pending() (*models.Archive, error) {
	return &models.Archive{ID: "A1", Status: models.ArchiveStatusStopped}, nil
}

func available() (*models.Archive, error) {
	return &models.Archive{ID: "A1", Status: models.ArchiveStatusAvailable, URL: "https://cdn/a1.mp4"}, nil
}

func noSleep(p *Poller) int {
	sleeps := 0
	p.sleep = func(context.Context, time.Duration) error {
		sleeps++
		return nil
	}
	return sleeps
}

func TestPollAvailableAfterTwoAttempts(t *testing.T) {
	getter := &scriptedGetter{responses: []func() (*models.Archive, error){pending, available}}
	p := NewPoller(getter, 5, time.Second, nil)
	noSleep(p)

	arch, err := p.Poll(context.Background(), "A1")
	require.NoError(t, err)
	require.True(t, arch.Available())
	require.Equal(t, 2, getter.calls)
}

func TestPollExhaustsExactlyNAttempts(t *testing.T) {
	getter := &scriptedGetter{responses: []func() (*models.Archive, error){pending}}
	p := NewPoller(getter, 4, time.Second, nil)
	noSleep(p)

	_, err := p.Poll(context.Background(), "A1")
	require.ErrorIs(t, err, ErrArchiveNotAvailable)
	require.Equal(t, 4, getter.calls)
}

func TestPollStatusAvailableButNoURLKeepsPolling(t *testing.T) {
	noURL := func() (*models.Archive, error) {
		return &models.Archive{ID: "A1", Status: models.ArchiveStatusAvailable}, nil
	}
	getter := &scriptedGetter{responses: []func() (*models.Archive, error){noURL}}
	p := NewPoller(getter, 3, time.Second, nil)
	noSleep(p)

	_, err := p.Poll(context.Background(), "A1")
	require.ErrorIs(t, err, ErrArchiveNotAvailable)
	require.Equal(t, 3, getter.calls)
}

func TestPollTransportErrorPropagatesImmediately(t *testing.T) {
	transportErr := errors.New("connection refused")
	getter := &scriptedGetter{responses: []func() (*models.Archive, error){
		func() (*models.Archive, error) { return nil, transportErr },
	}}
	p := NewPoller(getter, 5, time.Second, nil)
	noSleep(p)

	_, err := p.Poll(context.Background(), "A1")
	require.ErrorIs(t, err, transportErr)
	require.NotErrorIs(t, err, ErrArchiveNotAvailable)
	require.Equal(t, 1, getter.calls)
}

func TestPollHonorsCancellation(t *testing.T) {
	getter := &scriptedGetter{responses: []func() (*models.Archive, error){pending}}
	p := NewPoller(getter, 5, time.Second, nil)

	ctx, cancel := context.WithCancel(context.Background())
	p.sleep = func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}

	_, err := p.Poll(ctx, "A1")
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, getter.calls)
}
