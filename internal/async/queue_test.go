package async

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Rutuj912/medical-and-charity-document-extraction-system/constants"
	"github.com/Rutuj912/medical-and-charity-document-extraction-system/internal/common"
	"github.com/Rutuj912/medical-and-charity-document-extraction-system/internal/pipeline"
	"github.com/Rutuj912/medical-and-charity-document-extraction-system/internal/repository"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeProcessor struct {
	mu    sync.Mutex
	seen  []string
	block chan struct{}
}

func (f *fakeProcessor) ProcessDocument(_ context.Context, path string, _ pipeline.DocumentOptions) (*pipeline.DocumentResult, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	f.seen = append(f.seen, path)
	f.mu.Unlock()
	switch path {
	case "locked.pdf":
		return nil, common.NewDocumentError(common.ErrPasswordProtected, path, nil)
	case "boom.pdf":
		panic("decoder exploded")
	}
	return &pipeline.DocumentResult{ID: "doc-" + path, SourcePath: path, PageCount: 1, CreatedAt: time.Now()}, nil
}

type outcome struct {
	path     string
	location string
	err      error
}

func collect() (ResultHandler, func() []outcome) {
	var mu sync.Mutex
	var out []outcome
	h := func(job Job, _ *pipeline.DocumentResult, loc string, err error) {
		mu.Lock()
		defer mu.Unlock()
		out = append(out, outcome{job.Path, loc, err})
	}
	return h, func() []outcome {
		mu.Lock()
		defer mu.Unlock()
		sort.Slice(out, func(i, j int) bool { return out[i].path < out[j].path })
		return append([]outcome(nil), out...)
	}
}

func TestQueueProcessesAndTracksJobs(t *testing.T) {
	ctx := context.Background()
	store, err := repository.OpenSQLite(ctx, ":memory:", quiet)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	h, results := collect()
	q := NewProcessorQueue(&fakeProcessor{}, quiet,
		WithWorkers(3), WithQueueSize(8), WithProcessTimeout(time.Second),
		WithResults(store), WithJobTracking(store), WithResultHandler(h))
	for _, p := range []string{"a.pdf", "boom.pdf", "locked.pdf"} {
		if err := q.Enqueue(ctx, Job{Path: p}); err != nil {
			t.Fatalf("enqueue %s: %v", p, err)
		}
	}
	if err := q.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	got := results()
	if len(got) != 3 {
		t.Fatalf("outcomes = %+v", got)
	}
	if got[0].err != nil || got[0].location != "sqlite://:memory:#documents/doc-a.pdf" {
		t.Fatalf("a.pdf = %+v", got[0])
	}
	if got[1].err == nil || common.KindOf(got[1].err) != common.KindInternal {
		t.Fatalf("panic not contained: %+v", got[1])
	}
	if !errors.Is(got[2].err, common.ErrPasswordProtected) {
		t.Fatalf("locked.pdf = %+v", got[2])
	}
	if _, err := store.GetDocument(ctx, "doc-a.pdf"); err != nil {
		t.Fatalf("document not persisted: %v", err)
	}
}

type fakeJobs struct {
	mu       sync.Mutex
	statuses map[string]constants.JobStatus
}

func (f *fakeJobs) StartJob(_ context.Context, path string) (*repository.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[path] = constants.JobStatusRunning
	return &repository.Job{ID: path, SourcePath: path, Status: constants.JobStatusRunning}, nil
}

func (f *fakeJobs) FinishJob(_ context.Context, id, _ string) error {
	return f.set(id, constants.JobStatusDone)
}

func (f *fakeJobs) FailJob(_ context.Context, id, _ string) error {
	return f.set(id, constants.JobStatusFailed)
}

func (f *fakeJobs) GetJob(context.Context, string) (*repository.Job, error) { return nil, nil }

func (f *fakeJobs) set(id string, s constants.JobStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[id] = s
	return nil
}

func TestJobStatusRecorded(t *testing.T) {
	jobs := &fakeJobs{statuses: map[string]constants.JobStatus{}}
	q := NewProcessorQueue(&fakeProcessor{}, quiet, WithWorkers(2), WithJobTracking(jobs))
	for _, p := range []string{"a.pdf", "locked.pdf"} {
		_ = q.Enqueue(context.Background(), Job{Path: p})
	}
	if err := q.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	if jobs.statuses["a.pdf"] != constants.JobStatusDone || jobs.statuses["locked.pdf"] != constants.JobStatusFailed {
		t.Fatalf("statuses = %v", jobs.statuses)
	}
}

func TestEnqueueAfterShutdown(t *testing.T) {
	q := NewProcessorQueue(&fakeProcessor{}, quiet, WithWorkers(1))
	for i := 0; i < 2; i++ {
		if err := q.Shutdown(context.Background()); err != nil {
			t.Fatalf("shutdown %d: %v", i, err)
		}
	}
	if err := q.Enqueue(context.Background(), Job{Path: "a.pdf"}); !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("err = %v", err)
	}
	if err := q.Enqueue(context.Background(), Job{}); common.KindOf(err) != common.KindValidation {
		t.Fatalf("empty path err = %v", err)
	}
}

func TestEnqueueBackpressureHonoursContext(t *testing.T) {
	proc := &fakeProcessor{block: make(chan struct{})}
	q := NewProcessorQueue(proc, quiet, WithWorkers(1), WithQueueSize(1))
	ctx := context.Background()

	_ = q.Enqueue(ctx, Job{Path: "1.pdf"}) // taken by the worker
	deadline := time.Now().Add(time.Second)
	for len(q.ch) != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	_ = q.Enqueue(ctx, Job{Path: "2.pdf"}) // fills the buffer

	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if err := q.Enqueue(short, Job{Path: "3.pdf"}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v", err)
	}
	close(proc.block)
	if err := q.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if len(proc.seen) != 2 {
		t.Fatalf("seen = %v", proc.seen)
	}
}

// ctxProcessor records the request ID of each job and blocks until release or ctx ends.
type ctxProcessor struct {
	mu       sync.Mutex
	ids      map[string]string
	started  chan struct{}
	release  chan struct{}
	canceled atomic.Int32
}

func (c *ctxProcessor) ProcessDocument(ctx context.Context, path string, _ pipeline.DocumentOptions) (*pipeline.DocumentResult, error) {
	c.mu.Lock()
	c.ids[path] = common.RequestIDFromContext(ctx)
	c.mu.Unlock()
	if c.started != nil {
		c.started <- struct{}{}
	}
	if c.release != nil {
		select {
		case <-c.release:
		case <-ctx.Done():
			c.canceled.Add(1)
			return nil, common.Internal(ctx.Err(), "process "+path)
		}
	}
	return &pipeline.DocumentResult{ID: "doc-" + path, SourcePath: path}, nil
}

func TestJobContextCarriesRequestID(t *testing.T) {
	proc := &ctxProcessor{ids: map[string]string{}}
	q := NewProcessorQueue(proc, quiet, WithWorkers(2))
	jobs := []Job{{ID: "req-1", Path: "a.pdf"}, {Path: "b.pdf"}}
	for _, j := range jobs {
		if err := q.Enqueue(context.Background(), j); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}
	if err := q.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if proc.ids["a.pdf"] != "req-1" {
		t.Fatalf("a.pdf request id = %q", proc.ids["a.pdf"])
	}
	if proc.ids["b.pdf"] == "" {
		t.Fatalf("generated job id not propagated")
	}
}

func TestShutdownReportsUnfinishedJobs(t *testing.T) {
	proc := &ctxProcessor{ids: map[string]string{}, started: make(chan struct{}, 1), release: make(chan struct{})}
	h, results := collect()
	q := NewProcessorQueue(proc, quiet, WithWorkers(1), WithProcessTimeout(time.Minute), WithResultHandler(h))
	if err := q.Enqueue(context.Background(), Job{Path: "slow.pdf"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	<-proc.started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := q.Shutdown(ctx)
	if !errors.Is(err, ErrDrainIncomplete) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want drain incomplete", err)
	}
	if !strings.Contains(err.Error(), "1 running") {
		t.Fatalf("err = %v, want running count", err)
	}

	deadline := time.Now().Add(time.Second)
	for (len(results()) == 0 || q.Running() != 0) && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	got := results()
	if len(got) != 1 || common.KindOf(got[0].err) != common.KindCanceled {
		t.Fatalf("outcomes = %+v, want cancelled job", got)
	}
	if proc.canceled.Load() != 1 || q.Running() != 0 {
		t.Fatalf("canceled = %d running = %d", proc.canceled.Load(), q.Running())
	}
}

func TestShutdownReleasesBlockedEnqueue(t *testing.T) {
	proc := &ctxProcessor{ids: map[string]string{}, started: make(chan struct{}, 1), release: make(chan struct{})}
	q := NewProcessorQueue(proc, quiet, WithWorkers(1), WithQueueSize(1))
	ctx := context.Background()
	if err := q.Enqueue(ctx, Job{Path: "1.pdf"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	<-proc.started
	if err := q.Enqueue(ctx, Job{Path: "2.pdf"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	blocked := make(chan error, 1)
	go func() { blocked <- q.Enqueue(ctx, Job{Path: "3.pdf"}) }()
	time.Sleep(20 * time.Millisecond)

	shut := make(chan error, 1)
	go func() { shut <- q.Shutdown(ctx) }()
	select {
	case err := <-blocked:
		if !errors.Is(err, ErrQueueClosed) {
			t.Fatalf("blocked enqueue err = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("enqueue still blocked after shutdown")
	}

	close(proc.release)
	if err := <-shut; err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if _, ok := proc.ids["3.pdf"]; ok {
		t.Fatalf("rejected job was processed")
	}
	if _, ok := proc.ids["2.pdf"]; !ok {
		t.Fatalf("queued job was dropped")
	}
}
