package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/da314jones/CapStone-Backend/internal/pipeline"
	"github.com/da314jones/CapStone-Backend/pkg/queue"
)

type fakeQueue struct {
	jobs    []*queue.Job
	retries []*queue.Job
}

func (f *fakeQueue) Dequeue(ctx context.Context) (*queue.Job, error) {
	if len(f.jobs) == 0 {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	job := f.jobs[0]
	f.jobs = f.jobs[1:]
	return job, nil
}

func (f *fakeQueue) Retry(_ context.Context, job *queue.Job) error {
	f.retries = append(f.retries, job)
	return nil
}

type fakeRunner struct {
	err   error
	calls []string
}

func (f *fakeRunner) Run(_ context.Context, archiveID string) (*pipeline.Result, error) {
	f.calls = append(f.calls, archiveID)
	if f.err != nil {
		return nil, f.err
	}
	return &pipeline.Result{VideoURL: "https://bucket/videos/" + archiveID + ".mp4"}, nil
}

func archiveJob(t *testing.T, archiveID string) *queue.Job {
	t.Helper()
	payload, err := json.Marshal(queue.ArchivePipelinePayload{ArchiveID: archiveID})
	require.NoError(t, err)
	return &queue.Job{ID: "j1", Type: queue.JobTypeArchivePipeline, Payload: payload, Attempt: 1}
}

func newTestProcessor(q *fakeQueue, r *fakeRunner) *ArchiveProcessor {
	p := NewArchiveProcessor(q, r, nil)
	p.backoff = 5 * time.Millisecond
	return p
}

func TestProcessSuccessNoRetry(t *testing.T) {
	q := &fakeQueue{}
	r := &fakeRunner{}
	p := newTestProcessor(q, r)

	p.process(context.Background(), archiveJob(t, "A1"))

	require.Equal(t, []string{"A1"}, r.calls)
	require.Empty(t, q.retries)
}

func TestProcessTransientFailureRetriesAfterBackoff(t *testing.T) {
	q := &fakeQueue{}
	r := &fakeRunner{err: errors.New("download: connection reset")}
	p := newTestProcessor(q, r)
	p.backoff = 30 * time.Millisecond

	start := time.Now()
	p.process(context.Background(), archiveJob(t, "A1"))
	elapsed := time.Since(start)

	require.Len(t, q.retries, 1)
	require.Equal(t, "A1", archivePayload(t, q.retries[0]))
	require.GreaterOrEqual(t, elapsed, 30*time.Millisecond, "failed job must wait out the backoff")
}

func TestProcessBackoffCutShortByCancel(t *testing.T) {
	q := &fakeQueue{}
	r := &fakeRunner{err: errors.New("download: connection reset")}
	p := newTestProcessor(q, r)
	p.backoff = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	p.process(ctx, archiveJob(t, "A1"))

	require.Less(t, time.Since(start), time.Second)
	require.Len(t, q.retries, 1)
}

func TestProcessPermanentFailureDropped(t *testing.T) {
	for _, permanent := range []error{pipeline.ErrVideoNotFound, pipeline.ErrAlreadyProcessed} {
		q := &fakeQueue{}
		r := &fakeRunner{err: permanent}
		p := newTestProcessor(q, r)

		p.process(context.Background(), archiveJob(t, "A1"))

		require.Empty(t, q.retries, "no retry for %v", permanent)
	}
}

func TestProcessUnknownJobTypeDropped(t *testing.T) {
	q := &fakeQueue{}
	r := &fakeRunner{}
	p := newTestProcessor(q, r)

	p.process(context.Background(), &queue.Job{ID: "j1", Type: "mystery"})

	require.Empty(t, r.calls)
	require.Empty(t, q.retries)
}

func TestRunStopsOnCancel(t *testing.T) {
	q := &fakeQueue{jobs: []*queue.Job{archiveJob(t, "A1")}}
	r := &fakeRunner{}
	p := newTestProcessor(q, r)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after cancel")
	}
	require.Equal(t, []string{"A1"}, r.calls)
}

func archivePayload(t *testing.T, job *queue.Job) string {
	t.Helper()
	var payload queue.ArchivePipelinePayload
	require.NoError(t, json.Unmarshal(job.Payload, &payload))
	return payload.ArchiveID
}
