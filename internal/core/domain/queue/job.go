package queue

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// JobKind names the work a job carries. The identification core only
// produces one kind.
type JobKind string

const KindIdentificationEmail JobKind = "identification_email"

// Payload is the snapshot captured at enqueue time. The worker resends
// from this snapshot; it never re-reads or re-issues the token.
type Payload struct {
	RecordID int64  `json:"record_id"`
	Email    string `json:"email"`
	Token    string `json:"token"`
}

// Job is a unit of work on the dispatch queue.
type Job struct {
	ID         string    `json:"id"`
	Kind       JobKind   `json:"kind"`
	Payload    Payload   `json:"payload"`
	EnqueuedAt time.Time `json:"enqueued_at"`
	Attempts   int       `json:"attempts"`

	// raw holds the exact bytes the job was claimed with, so the broker
	// can remove it from its processing list on ack/nack.
	raw []byte
}

// NewIdentificationEmailJob builds a dispatch job for the given record
// snapshot.
func NewIdentificationEmailJob(recordID int64, email, token string) *Job {
	return &Job{
		ID:   uuid.New().String(),
		Kind: KindIdentificationEmail,
		Payload: Payload{
			RecordID: recordID,
			Email:    email,
			Token:    token,
		},
		EnqueuedAt: time.Now().UTC(),
	}
}

// Raw returns the claimed wire bytes, if any.
func (j *Job) Raw() []byte {
	return j.raw
}

// SetRaw records the wire bytes a job was claimed with.
func (j *Job) SetRaw(b []byte) {
	j.raw = b
}

// ErrQueueUnavailable indicates the broker could not be reached. At
// enqueue time this fails the whole issuance; the verification email must
// not be silently lost.
var ErrQueueUnavailable = errors.New("job queue unavailable")
