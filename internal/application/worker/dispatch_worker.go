package worker

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/eloquentlog/montafon/internal/core/domain/email"
	"github.com/eloquentlog/montafon/internal/core/domain/queue"
	"github.com/eloquentlog/montafon/internal/core/ports"
	"github.com/eloquentlog/montafon/internal/infrastructure/metrics"
)

// DispatchWorker consumes identification email jobs and delivers them.
//
// Delivery is at-least-once: a redelivered job resends the email for the
// token snapshot in its payload and nothing else. The worker never
// mutates record state and never issues tokens; all of that happened at
// issue time, before the job was enqueued. Transport failures are
// retried up to MaxAttempts, then parked on the dead-letter path so they
// surface to an operator instead of being dropped.
type DispatchWorker struct {
	jobQueue   ports.JobQueue
	dispatcher ports.EmailDispatcher
	repo       ports.UserEmailRepository
	renderer   *Renderer
	logger     *logrus.Logger

	maxAttempts    int
	dequeueTimeout time.Duration
}

// NewDispatchWorker creates a worker bound to the given queue and
// transport.
func NewDispatchWorker(jobQueue ports.JobQueue, dispatcher ports.EmailDispatcher, repo ports.UserEmailRepository, renderer *Renderer, maxAttempts int, dequeueTimeout time.Duration, logger *logrus.Logger) *DispatchWorker {
	return &DispatchWorker{
		jobQueue:       jobQueue,
		dispatcher:     dispatcher,
		repo:           repo,
		renderer:       renderer,
		logger:         logger,
		maxAttempts:    maxAttempts,
		dequeueTimeout: dequeueTimeout,
	}
}

// Run blocks consuming jobs until the context is canceled. Errors are
// logged and retried; they never stop the loop.
func (w *DispatchWorker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := w.jobQueue.Dequeue(ctx, w.dequeueTimeout)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			if w.logger != nil {
				w.logger.WithError(err).Error("worker: dequeue failed")
			}
			// Back off before hammering an unreachable broker.
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		if job == nil {
			continue
		}

		w.process(ctx, job)
	}
}

// process handles one claimed job end to end.
func (w *DispatchWorker) process(ctx context.Context, job *queue.Job) {
	log := w.logger
	if log == nil {
		log = logrus.New()
	}
	fields := logrus.Fields{"job_id": job.ID, "record_id": job.Payload.RecordID, "attempts": job.Attempts}

	record, err := w.repo.GetByID(ctx, job.Payload.RecordID)
	switch {
	case errors.Is(err, email.ErrRecordNotFound):
		// The record is gone; the email would dangle. Skip, don't fail.
		log.WithFields(fields).Warn("worker: record no longer exists, skipping job")
		metrics.JobsSkipped.Inc()
		w.ack(ctx, job)
		return
	case err != nil:
		log.WithFields(fields).WithError(err).Error("worker: failed to load record")
		w.retryOrPark(ctx, job)
		return
	}

	if record.IsVerified() {
		// Verified through an earlier delivery; resending serves nobody.
		log.WithFields(fields).Debug("worker: record already verified, skipping job")
		metrics.JobsSkipped.Inc()
		w.ack(ctx, job)
		return
	}

	subject, body, err := w.renderer.Render(job.Payload.RecordID, job.Payload.Token)
	if err != nil {
		log.WithFields(fields).WithError(err).Error("worker: failed to render email")
		w.retryOrPark(ctx, job)
		return
	}

	if err := w.dispatcher.Send(ctx, job.Payload.Email, subject, body); err != nil {
		log.WithFields(fields).WithError(err).Warn("worker: email send failed")
		w.retryOrPark(ctx, job)
		return
	}

	metrics.JobsProcessed.Inc()
	w.ack(ctx, job)
}

// retryOrPark nacks a failed job for redelivery, or parks it on the
// dead-letter path once the attempt limit is reached.
func (w *DispatchWorker) retryOrPark(ctx context.Context, job *queue.Job) {
	if job.Attempts+1 >= w.maxAttempts {
		if err := w.jobQueue.DeadLetter(ctx, job); err != nil {
			if w.logger != nil {
				w.logger.WithFields(logrus.Fields{"job_id": job.ID}).WithError(err).Error("worker: failed to dead-letter job")
			}
			return
		}
		metrics.JobsDeadLettered.Inc()
		if w.logger != nil {
			w.logger.WithFields(logrus.Fields{"job_id": job.ID, "attempts": job.Attempts + 1}).Error("worker: job exhausted retries")
		}
		return
	}

	if err := w.jobQueue.Nack(ctx, job); err != nil {
		if w.logger != nil {
			w.logger.WithFields(logrus.Fields{"job_id": job.ID}).WithError(err).Error("worker: failed to nack job")
		}
		return
	}
	metrics.JobsRetried.Inc()
}

func (w *DispatchWorker) ack(ctx context.Context, job *queue.Job) {
	if err := w.jobQueue.Ack(ctx, job); err != nil && w.logger != nil {
		// The claim stays parked on the processing list; a recovery sweep
		// will redeliver it. At-least-once makes that harmless.
		w.logger.WithFields(logrus.Fields{"job_id": job.ID}).WithError(err).Error("worker: failed to ack job")
	}
}
