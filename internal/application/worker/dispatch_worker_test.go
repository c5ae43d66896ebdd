package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	config "github.com/eloquentlog/montafon/configs"
	"github.com/eloquentlog/montafon/internal/core/domain/email"
	domain "github.com/eloquentlog/montafon/internal/core/domain/queue"
	"github.com/eloquentlog/montafon/internal/core/ports"
	"github.com/eloquentlog/montafon/internal/infrastructure/queue"
	tmocks "github.com/eloquentlog/montafon/test/mocks"
)

func testRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := NewRenderer(&config.EmailConfig{
		CompanyName: "Montafon",
		BaseURL:     "https://montafon.example.org",
	})
	require.NoError(t, err)
	return r
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func pendingStoreWith(t *testing.T, addr string) (*tmocks.UserEmailStore, *email.UserEmail) {
	t.Helper()
	store := tmocks.NewUserEmailStore()
	rec := &email.UserEmail{UserID: 1, Email: &addr, Role: email.RolePrimary}
	require.NoError(t, store.Create(context.Background(), rec))
	return store, rec
}

func newWorker(q ports.JobQueue, d ports.EmailDispatcher, repo ports.UserEmailRepository, maxAttempts int) *DispatchWorker {
	return NewDispatchWorker(q, d, repo, nil, maxAttempts, 50*time.Millisecond, testLogger())
}

func TestProcess_SendsAndAcks(t *testing.T) {
	ctx := context.Background()
	store, rec := pendingStoreWith(t, "oswald@example.org")
	// pretend a token was issued for the snapshot in the job payload
	tok := "snapshot-token"
	rec.IdentificationToken = &tok
	exp := time.Now().Add(time.Hour)
	rec.IdentificationTokenExpiresAt = &exp
	require.NoError(t, store.Update(ctx, rec))

	q := queue.NewMemoryQueue()
	_, err := q.Enqueue(ctx, domain.NewIdentificationEmailJob(rec.ID, "oswald@example.org", tok))
	require.NoError(t, err)

	var sentTo, sentBody string
	dispatcher := &tmocks.EmailDispatcherMock{SendFn: func(ctx context.Context, to, subject, body string) error {
		sentTo, sentBody = to, body
		return nil
	}}

	w := NewDispatchWorker(q, dispatcher, store, testRenderer(t), 3, 50*time.Millisecond, testLogger())
	job, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	w.process(ctx, job)

	require.Equal(t, "oswald@example.org", sentTo)
	require.Contains(t, sentBody, tok)
	require.Zero(t, q.PendingCount())
	require.Zero(t, q.Requeue(), "job must be acked after successful send")
}

func TestProcess_TransportFailureRetriesThenDeadLetters(t *testing.T) {
	ctx := context.Background()
	store, rec := pendingStoreWith(t, "lisa@example.org")
	tok := "snapshot-token"
	rec.IdentificationToken = &tok
	exp := time.Now().Add(time.Hour)
	rec.IdentificationTokenExpiresAt = &exp
	require.NoError(t, store.Update(ctx, rec))

	q := queue.NewMemoryQueue()
	_, err := q.Enqueue(ctx, domain.NewIdentificationEmailJob(rec.ID, "lisa@example.org", tok))
	require.NoError(t, err)

	var attempts int32
	dispatcher := &tmocks.EmailDispatcherMock{SendFn: func(ctx context.Context, to, subject, body string) error {
		atomic.AddInt32(&attempts, 1)
		return ports.ErrTransport
	}}

	const maxAttempts = 3
	w := NewDispatchWorker(q, dispatcher, store, testRenderer(t), maxAttempts, 50*time.Millisecond, testLogger())

	// drive the loop by hand until the job leaves the live queue
	for {
		job, err := q.Dequeue(ctx, 50*time.Millisecond)
		require.NoError(t, err)
		if job == nil {
			break
		}
		w.process(ctx, job)
	}

	require.Equal(t, int32(maxAttempts), atomic.LoadInt32(&attempts))
	dead := q.DeadJobs()
	require.Len(t, dead, 1, "exhausted job must be parked, not dropped")
	require.Zero(t, q.PendingCount())
}

func TestProcess_UnknownRecordSkips(t *testing.T) {
	ctx := context.Background()
	store := tmocks.NewUserEmailStore()

	q := queue.NewMemoryQueue()
	_, err := q.Enqueue(ctx, domain.NewIdentificationEmailJob(404, "gone@example.org", "tok"))
	require.NoError(t, err)

	var sends int32
	dispatcher := &tmocks.EmailDispatcherMock{SendFn: func(ctx context.Context, to, subject, body string) error {
		atomic.AddInt32(&sends, 1)
		return nil
	}}

	w := NewDispatchWorker(q, dispatcher, store, testRenderer(t), 3, 50*time.Millisecond, testLogger())
	job, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	w.process(ctx, job)

	require.Zero(t, atomic.LoadInt32(&sends))
	require.Zero(t, q.PendingCount())
	require.Zero(t, q.Requeue(), "stale job must be acked away")
	require.Empty(t, q.DeadJobs())
}

func TestProcess_VerifiedRecordSkips(t *testing.T) {
	ctx := context.Background()
	store, rec := pendingStoreWith(t, "done@example.org")
	now := time.Now().UTC()
	rec.IdentificationState = email.IdentificationStateDone
	rec.IdentificationTokenGrantedAt = &now
	require.NoError(t, store.Update(ctx, rec))

	q := queue.NewMemoryQueue()
	_, err := q.Enqueue(ctx, domain.NewIdentificationEmailJob(rec.ID, "done@example.org", "tok"))
	require.NoError(t, err)

	var sends int32
	dispatcher := &tmocks.EmailDispatcherMock{SendFn: func(ctx context.Context, to, subject, body string) error {
		atomic.AddInt32(&sends, 1)
		return nil
	}}

	w := NewDispatchWorker(q, dispatcher, store, testRenderer(t), 3, 50*time.Millisecond, testLogger())
	job, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	w.process(ctx, job)

	require.Zero(t, atomic.LoadInt32(&sends))
	require.Zero(t, q.Requeue())
}

func TestProcess_RedeliveryIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store, rec := pendingStoreWith(t, "crash@example.org")
	tok := "snapshot-token"
	rec.IdentificationToken = &tok
	exp := time.Now().Add(time.Hour)
	rec.IdentificationTokenExpiresAt = &exp
	require.NoError(t, store.Update(ctx, rec))
	versionBefore := rec.Version

	q := queue.NewMemoryQueue()
	_, err := q.Enqueue(ctx, domain.NewIdentificationEmailJob(rec.ID, "crash@example.org", tok))
	require.NoError(t, err)

	var sends int32
	dispatcher := &tmocks.EmailDispatcherMock{SendFn: func(ctx context.Context, to, subject, body string) error {
		atomic.AddInt32(&sends, 1)
		return nil
	}}
	w := NewDispatchWorker(q, dispatcher, store, testRenderer(t), 3, 50*time.Millisecond, testLogger())

	// first worker crashes after the send, before the ack
	job, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	require.NoError(t, dispatcher.Send(ctx, job.Payload.Email, "s", "b"))
	require.Equal(t, 1, q.Requeue())

	// redelivery resends the same snapshot once more and acks
	job, err = q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	w.process(ctx, job)

	require.Equal(t, int32(2), atomic.LoadInt32(&sends), "at most one extra send per redelivery")
	require.Zero(t, q.Requeue())

	// no state mutation happened on either delivery
	stored, err := store.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	require.Equal(t, versionBefore, stored.Version)
	require.Equal(t, tok, *stored.IdentificationToken)
	require.Equal(t, email.IdentificationStatePending, stored.IdentificationState)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	q := queue.NewMemoryQueue()
	w := newWorker(q, &tmocks.EmailDispatcherMock{}, tmocks.NewUserEmailStore(), 3)
	w.renderer = testRenderer(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop on cancel")
	}
}
