package ports

import (
	"context"
	"time"

	"github.com/eloquentlog/montafon/internal/core/domain/queue"
)

// JobQueue is a durable, at-least-once work queue. Enqueued jobs survive
// producer restarts; Dequeue claims a job exclusively for the calling
// worker. A claimed job stays invisible to other workers until it is
// acked, nacked back onto the queue, or parked on the dead-letter path.
//
// Redelivery after a worker crash is expected; consumers must be
// idempotent.
type JobQueue interface {
	// Enqueue durably appends a job and returns its id.
	// Returns queue.ErrQueueUnavailable when the broker is unreachable.
	Enqueue(ctx context.Context, job *queue.Job) (string, error)

	// Dequeue blocks up to timeout for an available job and claims it.
	// Returns (nil, nil) when the timeout elapses with no job.
	Dequeue(ctx context.Context, timeout time.Duration) (*queue.Job, error)

	// Ack marks a claimed job complete and removes it.
	Ack(ctx context.Context, job *queue.Job) error

	// Nack returns a claimed job to the queue for redelivery with its
	// attempt count incremented.
	Nack(ctx context.Context, job *queue.Job) error

	// DeadLetter parks a claimed job for operator inspection and removes
	// it from the live queue.
	DeadLetter(ctx context.Context, job *queue.Job) error
}
