package mocks

import (
	"context"
	"fmt"
	"time"

	"github.com/eloquentlog/montafon/internal/core/domain/email"
	"github.com/eloquentlog/montafon/internal/core/domain/queue"
)

// UserEmailRepositoryMock is a lightweight mock for UserEmailRepository
type UserEmailRepositoryMock struct {
	CreateFn     func(ctx context.Context, rec *email.UserEmail) error
	GetByIDFn    func(ctx context.Context, id int64) (*email.UserEmail, error)
	GetByTokenFn func(ctx context.Context, token string) (*email.UserEmail, error)
	UpdateFn     func(ctx context.Context, rec *email.UserEmail) error
}

func (m *UserEmailRepositoryMock) Create(ctx context.Context, rec *email.UserEmail) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, rec)
	}
	return nil
}
func (m *UserEmailRepositoryMock) GetByID(ctx context.Context, id int64) (*email.UserEmail, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return nil, email.ErrRecordNotFound
}
func (m *UserEmailRepositoryMock) GetByToken(ctx context.Context, token string) (*email.UserEmail, error) {
	if m.GetByTokenFn != nil {
		return m.GetByTokenFn(ctx, token)
	}
	return nil, email.ErrRecordNotFound
}
func (m *UserEmailRepositoryMock) Update(ctx context.Context, rec *email.UserEmail) error {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, rec)
	}
	return nil
}

// JobQueueMock is a lightweight mock for JobQueue
type JobQueueMock struct {
	EnqueueFn    func(ctx context.Context, job *queue.Job) (string, error)
	DequeueFn    func(ctx context.Context, timeout time.Duration) (*queue.Job, error)
	AckFn        func(ctx context.Context, job *queue.Job) error
	NackFn       func(ctx context.Context, job *queue.Job) error
	DeadLetterFn func(ctx context.Context, job *queue.Job) error
}

func (m *JobQueueMock) Enqueue(ctx context.Context, job *queue.Job) (string, error) {
	if m.EnqueueFn != nil {
		return m.EnqueueFn(ctx, job)
	}
	return job.ID, nil
}
func (m *JobQueueMock) Dequeue(ctx context.Context, timeout time.Duration) (*queue.Job, error) {
	if m.DequeueFn != nil {
		return m.DequeueFn(ctx, timeout)
	}
	return nil, nil
}
func (m *JobQueueMock) Ack(ctx context.Context, job *queue.Job) error {
	if m.AckFn != nil {
		return m.AckFn(ctx, job)
	}
	return nil
}
func (m *JobQueueMock) Nack(ctx context.Context, job *queue.Job) error {
	if m.NackFn != nil {
		return m.NackFn(ctx, job)
	}
	return nil
}
func (m *JobQueueMock) DeadLetter(ctx context.Context, job *queue.Job) error {
	if m.DeadLetterFn != nil {
		return m.DeadLetterFn(ctx, job)
	}
	return nil
}

// EmailDispatcherMock is a lightweight mock for EmailDispatcher
type EmailDispatcherMock struct {
	SendFn func(ctx context.Context, to, subject, body string) error
}

func (m *EmailDispatcherMock) Send(ctx context.Context, to, subject, body string) error {
	if m.SendFn != nil {
		return m.SendFn(ctx, to, subject, body)
	}
	return nil
}

// TokenGeneratorMock is a lightweight mock for TokenGenerator
type TokenGeneratorMock struct {
	GenerateFn func() (string, time.Time, error)
}

func (m *TokenGeneratorMock) Generate() (string, time.Time, error) {
	if m.GenerateFn != nil {
		return m.GenerateFn()
	}
	return fmt.Sprintf("token-%d", time.Now().UnixNano()), time.Now().Add(24 * time.Hour), nil
}
