package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/eloquentlog/montafon/internal/core/domain/email"
	"github.com/eloquentlog/montafon/internal/core/domain/queue"
	"github.com/eloquentlog/montafon/internal/core/ports"
)

// conflictRetries bounds the reload-and-retry loop when an optimistic
// version check loses against a concurrent writer.
const conflictRetries = 3

// IdentificationService implements the email identification state machine.
// All mutations go through the repository's version-checked Update, so
// concurrent issue/verify calls on the same record resolve to exactly one
// winner.
type IdentificationService struct {
	repo      ports.UserEmailRepository
	generator ports.TokenGenerator
	jobQueue  ports.JobQueue
	logger    *logrus.Logger
	now       func() time.Time
}

// NewIdentificationService creates the state machine service.
func NewIdentificationService(repo ports.UserEmailRepository, generator ports.TokenGenerator, jobQueue ports.JobQueue, logger *logrus.Logger) ports.IdentificationService {
	return &IdentificationService{
		repo:      repo,
		generator: generator,
		jobQueue:  jobQueue,
		logger:    logger,
		now:       time.Now,
	}
}

// Issue generates a fresh identification token for a pending record,
// persists it and enqueues the dispatch job. The two steps are one
// logical operation: if the enqueue fails, the token write is rolled back
// and the whole call fails with queue.ErrQueueUnavailable.
//
// Issuing again while still pending overwrites the previous token, which
// becomes permanently invalid. Issuing on a done record fails with
// email.ErrInvalidState.
func (s *IdentificationService) Issue(ctx context.Context, recordID int64) (*email.UserEmail, error) {
	var lastErr error
	for attempt := 0; attempt < conflictRetries; attempt++ {
		record, err := s.issueOnce(ctx, recordID)
		if err == nil {
			return record, nil
		}
		if !errors.Is(err, email.ErrStaleRecord) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

func (s *IdentificationService) issueOnce(ctx context.Context, recordID int64) (*email.UserEmail, error) {
	record, err := s.repo.GetByID(ctx, recordID)
	if err != nil {
		return nil, err
	}

	if record.IsVerified() {
		return nil, fmt.Errorf("cannot issue identification token for record %d: %w", recordID, email.ErrInvalidState)
	}
	if record.EmailAddress() == "" {
		return nil, fmt.Errorf("record %d has no email address: %w", recordID, email.ErrInvalidState)
	}

	token, expiresAt, err := s.generator.Generate()
	if err != nil {
		return nil, err
	}

	prevToken := record.IdentificationToken
	prevExpiresAt := record.IdentificationTokenExpiresAt

	record.IdentificationToken = &token
	record.IdentificationTokenExpiresAt = &expiresAt
	if err := s.repo.Update(ctx, record); err != nil {
		record.IdentificationToken = prevToken
		record.IdentificationTokenExpiresAt = prevExpiresAt
		return nil, err
	}

	job := queue.NewIdentificationEmailJob(record.ID, record.EmailAddress(), token)
	if _, err := s.jobQueue.Enqueue(ctx, job); err != nil {
		// The dispatch email must not be silently lost while the token
		// stands. Restore the previous token state before failing.
		record.IdentificationToken = prevToken
		record.IdentificationTokenExpiresAt = prevExpiresAt
		if rbErr := s.repo.Update(ctx, record); rbErr != nil {
			if s.logger != nil {
				s.logger.WithFields(logrus.Fields{"record_id": record.ID}).WithError(rbErr).Error("identification: failed to roll back token after enqueue failure")
			}
		}
		return nil, fmt.Errorf("failed to enqueue identification email for record %d: %w", record.ID, err)
	}

	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{
			"record_id": record.ID,
			"job_id":    job.ID,
		}).Info("identification: token issued")
	}

	return record, nil
}

// Verify consumes a presented token. The token is compared in constant
// time against the stored one, re-read from the store on every call. On a
// match within the validity window the record transitions to done exactly
// once; the token and its expiry are cleared and the grant time recorded.
func (s *IdentificationService) Verify(ctx context.Context, recordID int64, presentedToken string) (*email.UserEmail, error) {
	var lastErr error
	for attempt := 0; attempt < conflictRetries; attempt++ {
		record, err := s.verifyOnce(ctx, recordID, presentedToken)
		if err == nil {
			return record, nil
		}
		// A lost version check means a concurrent issue or verify won the
		// race; re-evaluating against the fresh state yields the error the
		// winner's outcome implies.
		if !errors.Is(err, email.ErrStaleRecord) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// VerifyByToken resolves the record currently holding the presented token
// and verifies it. Verification links carry only the token, so a token no
// record holds is indistinguishable from a mismatch.
func (s *IdentificationService) VerifyByToken(ctx context.Context, presentedToken string) (*email.UserEmail, error) {
	if presentedToken == "" {
		return nil, email.ErrTokenMismatch
	}
	record, err := s.repo.GetByToken(ctx, presentedToken)
	if err != nil {
		if errors.Is(err, email.ErrRecordNotFound) {
			return nil, email.ErrTokenMismatch
		}
		return nil, err
	}
	return s.Verify(ctx, record.ID, presentedToken)
}

func (s *IdentificationService) verifyOnce(ctx context.Context, recordID int64, presentedToken string) (*email.UserEmail, error) {
	record, err := s.repo.GetByID(ctx, recordID)
	if err != nil {
		return nil, err
	}

	if record.IsVerified() {
		return nil, email.ErrAlreadyVerified
	}
	if !record.HasToken() {
		return nil, email.ErrNoPendingToken
	}

	if subtle.ConstantTimeCompare([]byte(presentedToken), []byte(*record.IdentificationToken)) != 1 {
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"record_id": record.ID}).Warn("identification: token mismatch")
		}
		return nil, email.ErrTokenMismatch
	}

	now := s.now().UTC()
	if record.TokenExpiredAt(now) {
		return nil, email.ErrTokenExpired
	}

	record.IdentificationState = email.IdentificationStateDone
	record.IdentificationToken = nil
	record.IdentificationTokenExpiresAt = nil
	record.IdentificationTokenGrantedAt = &now
	if err := s.repo.Update(ctx, record); err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"record_id": record.ID}).Info("identification: email verified")
	}

	return record, nil
}
