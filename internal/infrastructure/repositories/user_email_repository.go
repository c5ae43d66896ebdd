package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/eloquentlog/montafon/internal/core/domain/email"
	"github.com/eloquentlog/montafon/internal/core/ports"
	"github.com/eloquentlog/montafon/internal/infrastructure/db"
)

const uniqueViolation = "23505"

// UserEmailRepository implements the user email repository interface
// against Postgres. Concurrent writers are serialized through the version
// column: every update is conditioned on the version the caller read.
type UserEmailRepository struct {
	db     *db.Database
	logger *logrus.Logger
}

// NewUserEmailRepository creates a new user email repository
func NewUserEmailRepository(database *db.Database, logger *logrus.Logger) ports.UserEmailRepository {
	return &UserEmailRepository{
		db:     database,
		logger: logger,
	}
}

// Create inserts a new record. New records start pending with no token;
// the store assigns id, version and timestamps.
func (r *UserEmailRepository) Create(ctx context.Context, rec *email.UserEmail) error {
	query := `
		INSERT INTO user_emails (user_id, email, role, identification_state)
		VALUES ($1, $2, $3, $4)
		RETURNING id, version, created_at, updated_at`

	if rec.Role == "" {
		rec.Role = email.RoleGeneral
	}
	rec.IdentificationState = email.IdentificationStatePending

	err := r.db.DB.QueryRowxContext(ctx, query,
		rec.UserID, rec.Email, rec.Role, rec.IdentificationState).
		Scan(&rec.ID, &rec.Version, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			if r.logger != nil {
				r.logger.WithFields(logrus.Fields{"user_id": rec.UserID}).Debug("db: email already claimed")
			}
			return email.ErrEmailTaken
		}
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"user_id": rec.UserID}).WithError(err).Error("db: failed to create user email")
		}
		return fmt.Errorf("failed to create user email: %w", err)
	}
	if r.logger != nil {
		r.logger.WithFields(logrus.Fields{"record_id": rec.ID, "user_id": rec.UserID}).Info("db: user email created")
	}

	return nil
}

// GetByID retrieves a record by ID
func (r *UserEmailRepository) GetByID(ctx context.Context, id int64) (*email.UserEmail, error) {
	var rec email.UserEmail
	query := `
		SELECT id, user_id, email, role, identification_state,
			   identification_token, identification_token_expires_at,
			   identification_token_granted_at, version, created_at, updated_at
		FROM user_emails
		WHERE id = $1`

	err := r.db.DB.GetContext(ctx, &rec, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if r.logger != nil {
				r.logger.WithFields(logrus.Fields{"record_id": id}).Debug("db: user email not found by ID")
			}
			return nil, email.ErrRecordNotFound
		}
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"record_id": id}).WithError(err).Error("db: failed to get user email by ID")
		}
		return nil, fmt.Errorf("failed to get user email by ID: %w", err)
	}

	return &rec, nil
}

// GetByToken retrieves a record by its current identification token.
func (r *UserEmailRepository) GetByToken(ctx context.Context, token string) (*email.UserEmail, error) {
	var rec email.UserEmail
	query := `
		SELECT id, user_id, email, role, identification_state,
			   identification_token, identification_token_expires_at,
			   identification_token_granted_at, version, created_at, updated_at
		FROM user_emails
		WHERE identification_token = $1`

	err := r.db.DB.GetContext(ctx, &rec, query, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, email.ErrRecordNotFound
		}
		if r.logger != nil {
			r.logger.WithError(err).Error("db: failed to get user email by token")
		}
		return nil, fmt.Errorf("failed to get user email by token: %w", err)
	}

	return &rec, nil
}

// Update writes the record back under an optimistic version check. When
// another writer got in between, no row matches and email.ErrStaleRecord
// is returned; callers reload and retry. On success the record's version
// and updated_at are advanced in place.
func (r *UserEmailRepository) Update(ctx context.Context, rec *email.UserEmail) error {
	query := `
		UPDATE user_emails
		SET email = $3, role = $4, identification_state = $5,
			identification_token = $6, identification_token_expires_at = $7,
			identification_token_granted_at = $8,
			version = version + 1, updated_at = $9
		WHERE id = $1 AND version = $2`

	now := time.Now().UTC()
	result, err := r.db.DB.ExecContext(ctx, query,
		rec.ID, rec.Version, rec.Email, rec.Role, rec.IdentificationState,
		rec.IdentificationToken, rec.IdentificationTokenExpiresAt,
		rec.IdentificationTokenGrantedAt, now)
	if err != nil {
		if isUniqueViolation(err) {
			return email.ErrEmailTaken
		}
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"record_id": rec.ID}).WithError(err).Error("db: failed to update user email")
		}
		return fmt.Errorf("failed to update user email: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		// Either the record is gone or a concurrent writer bumped the
		// version first. Distinguish so callers get the right signal.
		var exists bool
		if err := r.db.DB.GetContext(ctx, &exists,
			`SELECT EXISTS (SELECT 1 FROM user_emails WHERE id = $1)`, rec.ID); err != nil {
			return fmt.Errorf("failed to check user email existence: %w", err)
		}
		if !exists {
			return email.ErrRecordNotFound
		}
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"record_id": rec.ID}).Debug("db: user email update lost version race")
		}
		return email.ErrStaleRecord
	}

	rec.Version++
	rec.UpdatedAt = now

	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
