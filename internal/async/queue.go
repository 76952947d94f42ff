package async

import (
	"context"
	"errors"
	"time"

	"github.com/joseph-ayodele/labs-tracker/internal/entity"
)

var ErrQueueClosed = errors.New("queue is shutting down")

// Job is one document to extract. Data is read from Path when empty.
type Job struct {
	Path        string
	FileName    string
	Data        []byte
	SubmittedAt time.Time
	TraceID     string
}

// Result is delivered once per job.
type Result struct {
	Job      Job
	Draft    entity.ExtractionDraft
	Err      error
	Attempts int
	Elapsed  time.Duration
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
