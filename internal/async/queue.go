package async

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/Rutuj912/medical-and-charity-document-extraction-system/internal/common"
	"github.com/Rutuj912/medical-and-charity-document-extraction-system/internal/pipeline"
	"github.com/Rutuj912/medical-and-charity-document-extraction-system/internal/repository"
)

var (
	// ErrQueueClosed is returned by Enqueue once Shutdown has started.
	ErrQueueClosed = errors.New("queue is shutting down")
	// ErrDrainIncomplete is returned by Shutdown when ctx ends before the workers finish.
	ErrDrainIncomplete = errors.New("queue did not drain")
)

// Job is one document waiting to be processed.
type Job struct {
	ID          string
	Path        string
	Options     pipeline.DocumentOptions
	SubmittedAt time.Time
}

// Processor runs the document pipeline.
type Processor interface {
	ProcessDocument(ctx context.Context, path string, opts pipeline.DocumentOptions) (*pipeline.DocumentResult, error)
}

// ResultHandler observes every finished job; err is nil on success.
type ResultHandler func(job Job, doc *pipeline.DocumentResult, location string, err error)

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context) error
}

// ProcessorQueue feeds jobs to a fixed pool of workers.
type ProcessorQueue struct {
	proc    Processor
	results repository.ResultRepository
	jobs    repository.JobRepository
	onDone  ResultHandler
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch      chan Job
	wg      sync.WaitGroup
	once    sync.Once
	running atomic.Int64

	// base parents every job context; cancelled when a drain times out
	base   context.Context
	cancel context.CancelFunc

	mu      sync.RWMutex
	closed  bool
	quit    chan struct{}
	senders sync.WaitGroup
}

type Option func(*ProcessorQueue)

func WithWorkers(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

func WithProcessTimeout(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// WithResults persists successful documents.
func WithResults(r repository.ResultRepository) Option {
	return func(q *ProcessorQueue) { q.results = r }
}

// WithJobTracking records a job row per document.
func WithJobTracking(r repository.JobRepository) Option {
	return func(q *ProcessorQueue) { q.jobs = r }
}

func WithResultHandler(h ResultHandler) Option {
	return func(q *ProcessorQueue) { q.onDone = h }
}

func NewProcessorQueue(proc Processor, logger *slog.Logger, opts ...Option) *ProcessorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ProcessorQueue{
		proc:    proc,
		logger:  logger,
		workers: 4,
		timeout: 3 * time.Minute,
		ch:      make(chan Job, 256),
		quit:    make(chan struct{}),
	}
	for _, o := range opts {
		o(q)
	}
	q.base, q.cancel = context.WithCancel(context.Background())
	q.start()
	return q
}

func (q *ProcessorQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("worker started", "worker_id", workerID)
				for job := range q.ch {
					q.running.Add(1)
					q.run(workerID, job)
					q.running.Add(-1)
				}
				q.logger.Info("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *ProcessorQueue) run(workerID int, job Job) {
	ctx, cancel := common.WithTimeout(common.WithRequestID(q.base, job.ID), q.timeout)
	defer cancel()
	logger := common.LoggerFromContext(ctx, q.logger).With("worker_id", workerID, "path", job.Path)

	var tracked *repository.Job
	if q.jobs != nil {
		var err error
		if tracked, err = q.jobs.StartJob(ctx, job.Path); err != nil {
			logger.Warn("job tracking unavailable", "error", err)
		}
	}

	doc, location, err := q.process(ctx, job)
	if err != nil {
		logger.Error("processing failed", "error", err, "kind", common.KindOf(err))
		if tracked != nil {
			if ferr := q.jobs.FailJob(context.Background(), tracked.ID, err.Error()); ferr != nil {
				logger.Warn("failed to record job failure", "error", ferr)
			}
		}
	} else {
		logger.Info("processed document successfully",
			"document_id", doc.ID,
			"pages", doc.PageCount,
			"confidence", doc.AverageConfidence,
			"location", location,
		)
		if tracked != nil {
			if ferr := q.jobs.FinishJob(context.Background(), tracked.ID, doc.ID); ferr != nil {
				logger.Warn("failed to record job completion", "error", ferr)
			}
		}
	}
	if q.onDone != nil {
		q.onDone(job, doc, location, err)
	}
}

func (q *ProcessorQueue) process(ctx context.Context, job Job) (doc *pipeline.DocumentResult, location string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = common.NewAppError("WORKER_PANIC", "document processing panicked", errors.New(panicText(r)))
		}
	}()
	doc, err = q.proc.ProcessDocument(ctx, job.Path, job.Options)
	if err != nil {
		return nil, "", err
	}
	if q.results != nil {
		location, err = q.results.SaveDocument(ctx, doc)
		if err != nil {
			return nil, "", err
		}
	}
	return doc, location, nil
}

// Enqueue blocks while the queue is full until ctx is done or Shutdown starts.
func (q *ProcessorQueue) Enqueue(ctx context.Context, job Job) error {
	if job.Path == "" {
		return common.NewValidationError("job path is required")
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}

	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		q.logger.Warn("cannot enqueue: queue is shutting down", "path", job.Path)
		return ErrQueueClosed
	}
	// Shutdown closes ch only after every registered sender has returned.
	q.senders.Add(1)
	q.mu.RUnlock()
	defer q.senders.Done()

	select {
	case q.ch <- job:
		q.logger.Info("queued document for processing", "job_id", job.ID, "path", job.Path)
		return nil
	default:
	}
	q.logger.Warn("queue full, applying backpressure", "path", job.Path)
	select {
	case q.ch <- job:
		return nil
	case <-q.quit:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Running reports how many jobs a worker is processing right now.
func (q *ProcessorQueue) Running() int {
	return int(q.running.Load())
}

// Shutdown stops intake and waits for queued jobs to drain. If ctx ends first the
// in-flight jobs are cancelled and the returned error wraps ErrDrainIncomplete.
func (q *ProcessorQueue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.quit)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		q.senders.Wait()
		close(q.ch)
		q.wg.Wait()
	}()

	select {
	case <-done:
		q.cancel()
		q.logger.Info("queue drained, shutdown complete")
		return nil
	case <-ctx.Done():
		running, queued := q.Running(), len(q.ch)
		q.cancel()
		q.logger.Warn("shutdown interrupted by context", "running", running, "queued", queued)
		return fmt.Errorf("%w: %d running, %d queued: %w", ErrDrainIncomplete, running, queued, ctx.Err())
	}
}

func panicText(r any) string {
	if err, ok := r.(error); ok {
		return err.Error()
	}
	if s, ok := r.(string); ok {
		return s
	}
	return "unknown panic"
}
