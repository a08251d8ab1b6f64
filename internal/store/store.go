// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/ashureev/boothsim/internal/domain"
)

var (
	// ErrVersionConflict is returned when a session was changed since it was read.
	ErrVersionConflict = errors.New("session version conflict")
	// ErrNotFound is returned by updates of records that do not exist.
	ErrNotFound = errors.New("record not found")
	// ErrScoreExists is returned when a score was already saved for the session.
	ErrScoreExists = errors.New("score already recorded")
)

// Repository defines the interface for persisting trainees, sessions and scores.
// Lookups return nil, nil when the record does not exist.
type Repository interface {
	// GetTrainee retrieves a trainee by ID.
	GetTrainee(ctx context.Context, traineeID string) (*domain.Trainee, error)

	// UpsertTrainee creates or updates a trainee record.
	UpsertTrainee(ctx context.Context, trainee *domain.Trainee) error

	// CreateSession stores a new session and sets its Version to 1.
	CreateSession(ctx context.Context, session *domain.Session) error

	// GetSession retrieves a session by ID.
	GetSession(ctx context.Context, sessionID string) (*domain.Session, error)

	// UpdateSession replaces a session if its stored Version still equals
	// session.Version, then increments session.Version.
	UpdateSession(ctx context.Context, session *domain.Session) error

	// ListSessions returns a trainee's sessions, newest first.
	ListSessions(ctx context.Context, traineeID string) ([]*domain.Session, error)

	// DeleteExpiredSessions removes sessions not updated within ttl.
	DeleteExpiredSessions(ctx context.Context, ttl time.Duration) (int64, error)

	// SaveScore records the score for a completed session. Scores are immutable.
	SaveScore(ctx context.Context, score *domain.ScoreRecord) error

	// GetScore retrieves the score for a session.
	GetScore(ctx context.Context, sessionID string) (*domain.ScoreRecord, error)

	// Ping verifies connectivity.
	Ping(ctx context.Context) error

	// Close releases the underlying connection.
	Close() error
}
