package async

import (
	"context"
	"errors"
	"time"
)

var ErrQueueClosed = errors.New("queue is shutting down")

// Job is one document to process.
type Job struct {
	Source      string
	Output      string // "" = keep the XML in memory only
	SubmittedAt time.Time
	TraceID     string
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
