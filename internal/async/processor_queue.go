package async

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/joseph-ayodele/labs-tracker/internal/common"
	"github.com/joseph-ayodele/labs-tracker/internal/entity"
)

// Extractor is satisfied by *pipeline.Processor.
type Extractor interface {
	Extract(ctx context.Context, fileName string, data []byte) (entity.ExtractionDraft, error)
}

type ProcessorQueue struct {
	proc      Extractor
	logger    *slog.Logger
	workers   int
	timeout   time.Duration
	retries   int
	maxWait   time.Duration
	onResult  func(Result)
	readFile  func(string) ([]byte, error)
	baseCtx   context.Context
	cancelAll context.CancelFunc

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	// stopping is closed first on shutdown so blocked enqueuers release mu.
	stopping chan struct{}
	stopOnce sync.Once

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

// WithRateLimitRetries retries a rate-limited job up to n times, sleeping
// for the server's retry hint capped at maxWait.
func WithRateLimitRetries(n int, maxWait time.Duration) Option {
	return func(q *ProcessorQueue) {
		if n >= 0 {
			q.retries = n
		}
		if maxWait > 0 {
			q.maxWait = maxWait
		}
	}
}

// WithResultHandler registers fn to receive every result. fn is called from
// worker goroutines and must be safe for concurrent use.
func WithResultHandler(fn func(Result)) Option {
	return func(q *ProcessorQueue) { q.onResult = fn }
}

func NewProcessorQueue(proc Extractor, logger *slog.Logger, opts ...Option) *ProcessorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	q := &ProcessorQueue{
		proc:      proc,
		logger:    logger,
		workers:   4,
		timeout:   3 * time.Minute,
		maxWait:   2 * time.Minute,
		ch:        make(chan Job, 256),
		stopping:  make(chan struct{}),
		onResult:  func(Result) {},
		readFile:  os.ReadFile,
		baseCtx:   ctx,
		cancelAll: cancel,
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *ProcessorQueue) start() {
	q.once.Do(func() {
		for i := range q.workers {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("worker started", "worker_id", workerID)

				for job := range q.ch {
					res := q.process(job)
					if res.Err != nil {
						q.logger.Error("processing failed", "worker_id", workerID, "file", job.FileName, "attempts", res.Attempts, "error", res.Err)
					} else {
						q.logger.Info("processed file successfully", "worker_id", workerID, "file", job.FileName,
							"markers", len(res.Draft.Markers), "elapsed_ms", res.Elapsed.Milliseconds())
					}
					q.onResult(res)
				}

				q.logger.Info("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *ProcessorQueue) process(job Job) Result {
	start := time.Now()
	res := Result{Job: job}

	data := job.Data
	if len(data) == 0 && job.Path != "" {
		b, err := q.readFile(job.Path)
		if err != nil {
			res.Err = fmt.Errorf("read %s: %w", job.Path, err)
			res.Elapsed = time.Since(start)
			return res
		}
		data = b
	}

	for {
		res.Attempts++
		ctx, cancel := context.WithTimeout(q.baseCtx, q.timeout)
		if job.TraceID != "" {
			ctx = common.WithRequestID(ctx, job.TraceID)
		}
		res.Draft, res.Err = q.proc.Extract(ctx, job.FileName, data)
		cancel()

		if !errors.Is(res.Err, common.ErrRemoteRateLimited) || res.Attempts > q.retries {
			break
		}
		wait, _ := common.RetryAfterFrom(res.Err)
		wait = min(max(wait, time.Second), q.maxWait)
		q.logger.Warn("rate limited, backing off", "file", job.FileName, "wait_ms", wait.Milliseconds(), "attempt", res.Attempts)
		if !sleep(q.baseCtx, wait) {
			break
		}
	}
	res.Elapsed = time.Since(start)
	return res
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (q *ProcessorQueue) Enqueue(ctx context.Context, job Job) error {
	if job.FileName == "" {
		job.FileName = filepath.Base(job.Path)
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "file", job.FileName)
		return ErrQueueClosed
	}
	select {
	case q.ch <- job:
		q.logger.Debug("queued file for processing", "file", job.FileName)
		return nil
	default:
	}
	q.logger.Warn("queue full, applying backpressure", "file", job.FileName)
	select {
	case q.ch <- job:
		return nil
	case <-q.stopping:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting jobs and waits for queued jobs to finish. When ctx
// ends first, in-flight extractions are cancelled.
func (q *ProcessorQueue) Shutdown(ctx context.Context) {
	first := false
	q.stopOnce.Do(func() {
		first = true
		close(q.stopping)
	})
	if !first {
		return
	}

	q.mu.Lock()
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
		q.cancelAll()
		<-done
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
	q.cancelAll()
}
