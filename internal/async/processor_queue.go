package async

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/joseph-ayodele/protocol-extractor/internal/common"
	"github.com/joseph-ayodele/protocol-extractor/internal/pipeline"
)

// DocumentProcessor runs the pipeline for one source document.
type DocumentProcessor interface {
	Process(ctx context.Context, source string) pipeline.Result
}

// DoneFunc is called from the worker goroutine after each job.
// writeErr is set when the XML could not be written to Job.Output.
type DoneFunc func(job Job, res pipeline.Result, writeErr error)

// ProcessorQueue runs independent documents on a fixed pool of workers.
type ProcessorQueue struct {
	proc    DocumentProcessor
	logger  *slog.Logger
	workers int
	timeout time.Duration
	onDone  DoneFunc

	// jobs derive their context from base; Shutdown cancels it when the
	// drain deadline passes.
	base   context.Context
	cancel context.CancelFunc

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
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

// WithBaseContext makes every job stop when ctx is done.
func WithBaseContext(ctx context.Context) Option {
	return func(q *ProcessorQueue) {
		if ctx != nil {
			q.base = ctx
		}
	}
}

func WithOnDone(fn DoneFunc) Option {
	return func(q *ProcessorQueue) { q.onDone = fn }
}

func NewProcessorQueue(proc DocumentProcessor, logger *slog.Logger, opts ...Option) *ProcessorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ProcessorQueue{
		proc:    proc,
		logger:  logger,
		workers: 4,
		timeout: 10 * time.Minute,
		ch:      make(chan Job, 256),
		base:    context.Background(),
	}
	for _, o := range opts {
		o(q)
	}
	q.base, q.cancel = context.WithCancel(q.base)
	q.start()
	return q
}

func (q *ProcessorQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go q.work(i + 1)
		}
	})
}

func (q *ProcessorQueue) work(workerID int) {
	defer q.wg.Done()
	q.logger.Debug("queue.worker.started", "worker_id", workerID)

	for job := range q.ch {
		if q.base.Err() != nil {
			q.logger.Warn("queue.job.cancelled", "worker_id", workerID, "source", job.Source, "error", q.base.Err())
			continue
		}
		ctx, cancel := context.WithTimeout(q.base, q.timeout)
		if job.TraceID != "" {
			ctx = common.WithRequestID(ctx, job.TraceID)
		}
		res := q.proc.Process(ctx, job.Source)
		cancel()

		// an interrupted run leaves existing output alone
		if q.base.Err() != nil {
			q.logger.Warn("queue.job.cancelled", "worker_id", workerID, "source", job.Source, "error", q.base.Err())
			continue
		}

		var writeErr error
		if job.Output != "" {
			writeErr = pipeline.WriteXML(job.Output, res.XML)
		}

		switch {
		case writeErr != nil:
			q.logger.Error("queue.job.write_failed", "worker_id", workerID, "source", job.Source, "output", job.Output, "error", writeErr)
		case res.Err != nil:
			q.logger.Warn("queue.job.failed", "worker_id", workerID, "source", job.Source, "error", res.Err)
		default:
			q.logger.Info("queue.job.done", "worker_id", workerID, "source", job.Source,
				"waited_ms", time.Since(job.SubmittedAt).Milliseconds())
		}
		if q.onDone != nil {
			q.onDone(job, res, writeErr)
		}
	}

	q.logger.Debug("queue.worker.stopped", "worker_id", workerID)
}

// Enqueue adds a job, blocking while the queue is full.
func (q *ProcessorQueue) Enqueue(ctx context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("queue.enqueue.closed", "source", job.Source)
		return ErrQueueClosed
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	select {
	case q.ch <- job:
	default:
		q.logger.Warn("queue.full", "source", job.Source)
		select {
		case q.ch <- job:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	q.logger.Debug("queue.enqueued", "source", job.Source)
	return nil
}

// Shutdown stops accepting jobs and waits for queued ones to finish. When ctx
// ends first, in-flight jobs are cancelled and the rest are dropped.
func (q *ProcessorQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.cancel()
		<-done
		q.logger.Warn("queue.shutdown.interrupted", "error", ctx.Err())
	case <-done:
		q.cancel()
		q.logger.Info("queue.shutdown.drained")
	}
}
