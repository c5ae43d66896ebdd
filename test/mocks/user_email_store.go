package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/eloquentlog/montafon/internal/core/domain/email"
)

// UserEmailStore is an in-memory UserEmailRepository honoring the real
// store's version semantics: Update only applies when the caller's
// version matches, so races between concurrent callers resolve exactly
// like they do against Postgres.
type UserEmailStore struct {
	mu      sync.Mutex
	records map[int64]*email.UserEmail
	nextID  int64
}

func NewUserEmailStore() *UserEmailStore {
	return &UserEmailStore{records: make(map[int64]*email.UserEmail), nextID: 1}
}

func (s *UserEmailStore) Create(ctx context.Context, rec *email.UserEmail) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.Email != nil {
		for _, existing := range s.records {
			if existing.Email != nil && *existing.Email == *rec.Email {
				return email.ErrEmailTaken
			}
		}
	}

	now := time.Now().UTC()
	rec.ID = s.nextID
	s.nextID++
	rec.IdentificationState = email.IdentificationStatePending
	if rec.Role == "" {
		rec.Role = email.RoleGeneral
	}
	rec.Version = 1
	rec.CreatedAt = now
	rec.UpdatedAt = now

	s.records[rec.ID] = clone(rec)
	return nil
}

func (s *UserEmailStore) GetByID(ctx context.Context, id int64) (*email.UserEmail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, email.ErrRecordNotFound
	}
	return clone(rec), nil
}

func (s *UserEmailStore) GetByToken(ctx context.Context, token string) (*email.UserEmail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range s.records {
		if rec.IdentificationToken != nil && *rec.IdentificationToken == token {
			return clone(rec), nil
		}
	}
	return nil, email.ErrRecordNotFound
}

func (s *UserEmailStore) Update(ctx context.Context, rec *email.UserEmail) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.records[rec.ID]
	if !ok {
		return email.ErrRecordNotFound
	}
	if stored.Version != rec.Version {
		return email.ErrStaleRecord
	}

	rec.Version++
	rec.UpdatedAt = time.Now().UTC()
	s.records[rec.ID] = clone(rec)
	return nil
}

func clone(rec *email.UserEmail) *email.UserEmail {
	c := *rec
	if rec.Email != nil {
		v := *rec.Email
		c.Email = &v
	}
	if rec.IdentificationToken != nil {
		v := *rec.IdentificationToken
		c.IdentificationToken = &v
	}
	if rec.IdentificationTokenExpiresAt != nil {
		v := *rec.IdentificationTokenExpiresAt
		c.IdentificationTokenExpiresAt = &v
	}
	if rec.IdentificationTokenGrantedAt != nil {
		v := *rec.IdentificationTokenGrantedAt
		c.IdentificationTokenGrantedAt = &v
	}
	return &c
}
