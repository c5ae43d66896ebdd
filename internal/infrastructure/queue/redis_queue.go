package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/eloquentlog/montafon/internal/core/domain/queue"
	"github.com/eloquentlog/montafon/internal/core/ports"
)

// RedisQueue is a durable, at-least-once job queue on Redis lists.
//
// Enqueue pushes onto the pending list. Dequeue claims with BRPOPLPUSH,
// atomically moving the job onto a processing list so no two workers ever
// observe it at once; a worker crash leaves the job parked there for
// recovery instead of losing it. Ack removes the claimed entry from the
// processing list; Nack moves it back to pending with its attempt count
// incremented; DeadLetter parks it on a separate list for operator
// inspection.
type RedisQueue struct {
	client *redis.Client
	logger *logrus.Logger

	pendingKey    string
	processingKey string
	deadKey       string
}

// NewRedisQueue creates a queue namespaced under the given name.
func NewRedisQueue(client *redis.Client, name string, logger *logrus.Logger) ports.JobQueue {
	prefix := fmt.Sprintf("montafon:queue:%s", name)
	return &RedisQueue{
		client:        client,
		logger:        logger,
		pendingKey:    prefix + ":pending",
		processingKey: prefix + ":processing",
		deadKey:       prefix + ":dead",
	}
}

var _ ports.JobQueue = (*RedisQueue)(nil)

// Enqueue durably appends a job to the pending list.
func (q *RedisQueue) Enqueue(ctx context.Context, job *queue.Job) (string, error) {
	b, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("failed to marshal job: %w", err)
	}

	if err := q.client.LPush(ctx, q.pendingKey, b).Err(); err != nil {
		if q.logger != nil {
			q.logger.WithFields(logrus.Fields{"job_id": job.ID}).WithError(err).Error("queue: enqueue failed")
		}
		return "", fmt.Errorf("%w: %v", queue.ErrQueueUnavailable, err)
	}

	if q.logger != nil {
		q.logger.WithFields(logrus.Fields{"job_id": job.ID, "kind": job.Kind}).Debug("queue: job enqueued")
	}

	return job.ID, nil
}

// Dequeue blocks up to timeout for a job and claims it exclusively by
// moving it onto the processing list. Returns (nil, nil) on timeout.
func (q *RedisQueue) Dequeue(ctx context.Context, timeout time.Duration) (*queue.Job, error) {
	raw, err := q.client.BRPopLPush(ctx, q.pendingKey, q.processingKey, timeout).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", queue.ErrQueueUnavailable, err)
	}

	var job queue.Job
	if err := json.Unmarshal(raw, &job); err != nil {
		// Undecodable entries cannot be retried meaningfully; park them.
		if q.logger != nil {
			q.logger.WithError(err).Error("queue: discarding undecodable job to dead-letter list")
		}
		pipe := q.client.TxPipeline()
		pipe.LRem(ctx, q.processingKey, 1, raw)
		pipe.LPush(ctx, q.deadKey, raw)
		if _, pErr := pipe.Exec(ctx); pErr != nil {
			return nil, fmt.Errorf("%w: %v", queue.ErrQueueUnavailable, pErr)
		}
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}

	job.SetRaw(raw)
	return &job, nil
}

// Ack removes a claimed job from the processing list.
func (q *RedisQueue) Ack(ctx context.Context, job *queue.Job) error {
	if err := q.client.LRem(ctx, q.processingKey, 1, job.Raw()).Err(); err != nil {
		return fmt.Errorf("%w: %v", queue.ErrQueueUnavailable, err)
	}
	return nil
}

// Nack returns a claimed job to the pending list for redelivery with its
// attempt count incremented.
func (q *RedisQueue) Nack(ctx context.Context, job *queue.Job) error {
	job.Attempts++
	b, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	pipe := q.client.TxPipeline()
	pipe.LRem(ctx, q.processingKey, 1, job.Raw())
	pipe.LPush(ctx, q.pendingKey, b)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", queue.ErrQueueUnavailable, err)
	}

	if q.logger != nil {
		q.logger.WithFields(logrus.Fields{"job_id": job.ID, "attempts": job.Attempts}).Debug("queue: job returned for redelivery")
	}

	return nil
}

// DeadLetter parks a claimed job on the dead-letter list.
func (q *RedisQueue) DeadLetter(ctx context.Context, job *queue.Job) error {
	b, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	pipe := q.client.TxPipeline()
	pipe.LRem(ctx, q.processingKey, 1, job.Raw())
	pipe.LPush(ctx, q.deadKey, b)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", queue.ErrQueueUnavailable, err)
	}

	if q.logger != nil {
		q.logger.WithFields(logrus.Fields{"job_id": job.ID, "attempts": job.Attempts}).Warn("queue: job dead-lettered")
	}

	return nil
}
