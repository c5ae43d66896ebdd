package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/eloquentlog/montafon/internal/core/domain/queue"
	"github.com/eloquentlog/montafon/internal/core/ports"
)

// MemoryQueue implements the JobQueue contract in process memory. It
// exists so the worker logic can be exercised without a broker; it keeps
// the same claim/ack/nack semantics as the Redis queue, minus durability.
type MemoryQueue struct {
	mu         sync.Mutex
	pending    []*queue.Job
	processing map[string]*queue.Job
	dead       []*queue.Job
	notify     chan struct{}
	closed     bool
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{
		processing: make(map[string]*queue.Job),
		notify:     make(chan struct{}, 1),
	}
}

var _ ports.JobQueue = (*MemoryQueue)(nil)

func (q *MemoryQueue) Enqueue(ctx context.Context, job *queue.Job) (string, error) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return "", queue.ErrQueueUnavailable
	}
	q.pending = append(q.pending, job)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}

	return job.ID, nil
}

func (q *MemoryQueue) Dequeue(ctx context.Context, timeout time.Duration) (*queue.Job, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return nil, queue.ErrQueueUnavailable
		}
		if len(q.pending) > 0 {
			job := q.pending[0]
			q.pending = q.pending[1:]
			// Claimed entries carry their wire form so redelivery after a
			// simulated crash matches the broker behavior.
			if b, err := json.Marshal(job); err == nil {
				job.SetRaw(b)
			}
			q.processing[job.ID] = job
			q.mu.Unlock()
			return job, nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, nil
		case <-q.notify:
		}
	}
}

func (q *MemoryQueue) Ack(ctx context.Context, job *queue.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.processing[job.ID]; !ok {
		return fmt.Errorf("job %s is not claimed", job.ID)
	}
	delete(q.processing, job.ID)
	return nil
}

func (q *MemoryQueue) Nack(ctx context.Context, job *queue.Job) error {
	q.mu.Lock()

	if _, ok := q.processing[job.ID]; !ok {
		q.mu.Unlock()
		return fmt.Errorf("job %s is not claimed", job.ID)
	}
	delete(q.processing, job.ID)
	job.Attempts++
	q.pending = append(q.pending, job)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}

	return nil
}

func (q *MemoryQueue) DeadLetter(ctx context.Context, job *queue.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.processing[job.ID]; !ok {
		return fmt.Errorf("job %s is not claimed", job.ID)
	}
	delete(q.processing, job.ID)
	q.dead = append(q.dead, job)
	return nil
}

// Requeue returns claimed-but-unacked jobs to the pending list, as a
// broker recovery sweep would after a worker crash.
func (q *MemoryQueue) Requeue() int {
	q.mu.Lock()

	n := len(q.processing)
	for id, job := range q.processing {
		delete(q.processing, id)
		q.pending = append(q.pending, job)
	}
	q.mu.Unlock()

	if n > 0 {
		select {
		case q.notify <- struct{}{}:
		default:
		}
	}
	return n
}

// DeadJobs returns the jobs parked on the dead-letter path.
func (q *MemoryQueue) DeadJobs() []*queue.Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]*queue.Job(nil), q.dead...)
}

// PendingCount reports the number of unclaimed jobs.
func (q *MemoryQueue) PendingCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Close rejects further operations. Blocked Dequeue calls return on
// their next wakeup.
func (q *MemoryQueue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}
