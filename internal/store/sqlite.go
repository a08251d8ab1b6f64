package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ashureev/boothsim/internal/domain"
	_ "modernc.org/sqlite"
)

const (
	busyRetries   = 3
	busyBaseDelay = 100 * time.Millisecond
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db      *sql.DB
	writeMu sync.Mutex // serializes session writes to keep SQLITE_BUSY rare
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS trainees (
		trainee_id TEXT PRIMARY KEY,
		display_name TEXT NOT NULL,
		last_seen_at INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sessions (
		session_id TEXT PRIMARY KEY,
		trainee_id TEXT NOT NULL,
		difficulty TEXT NOT NULL,
		phase TEXT NOT NULL,
		persona_json TEXT NOT NULL,
		phase_history_json TEXT NOT NULL,
		transcript_json TEXT NOT NULL,
		violations_json TEXT NOT NULL,
		intents_json TEXT NOT NULL,
		tooling_json TEXT NOT NULL,
		outcome_seed TEXT NOT NULL,
		pending_outcome TEXT,
		trainer_guidance TEXT,
		outcome TEXT,
		outcome_reason TEXT,
		active INTEGER NOT NULL,
		version INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		ended_at INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_trainee ON sessions(trainee_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(updated_at);

	CREATE TABLE IF NOT EXISTS scores (
		session_id TEXT PRIMARY KEY,
		record_json TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// GetTrainee retrieves a trainee by ID.
func (s *SQLiteStore) GetTrainee(ctx context.Context, traineeID string) (*domain.Trainee, error) {
	query := `
		SELECT trainee_id, display_name, last_seen_at, created_at, updated_at
		FROM trainees WHERE trainee_id = ?`

	var t domain.Trainee
	var lastSeen, createdAt, updatedAt int64
	err := s.db.QueryRowContext(ctx, query, traineeID).Scan(
		&t.TraineeID, &t.DisplayName, &lastSeen, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan trainee row: %w", err)
	}
	t.LastSeenAt = fromNanos(lastSeen)
	t.CreatedAt = fromNanos(createdAt)
	t.UpdatedAt = fromNanos(updatedAt)
	return &t, nil
}

// UpsertTrainee creates or updates a trainee record.
func (s *SQLiteStore) UpsertTrainee(ctx context.Context, t *domain.Trainee) error {
	query := `
	INSERT INTO trainees (trainee_id, display_name, last_seen_at, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(trainee_id) DO UPDATE SET
		display_name = excluded.display_name,
		last_seen_at = excluded.last_seen_at,
		updated_at = excluded.updated_at`

	return s.withBusyRetry(ctx, "upsert trainee", func() error {
		_, err := s.db.ExecContext(ctx, query,
			t.TraineeID, t.DisplayName,
			t.LastSeenAt.UnixNano(), t.CreatedAt.UnixNano(), t.UpdatedAt.UnixNano(),
		)
		return err
	})
}

const sessionColumns = `session_id, trainee_id, difficulty, phase, persona_json,
	phase_history_json, transcript_json, violations_json, intents_json, tooling_json,
	outcome_seed, pending_outcome, trainer_guidance, outcome, outcome_reason,
	active, version, created_at, updated_at, ended_at`

// CreateSession stores a new session with Version 1.
func (s *SQLiteStore) CreateSession(ctx context.Context, session *domain.Session) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	session.Version = 1
	row, err := encodeSession(session)
	if err != nil {
		return err
	}
	query := `INSERT INTO sessions (` + sessionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	return s.withBusyRetry(ctx, "insert session", func() error {
		_, err := s.db.ExecContext(ctx, query, row.args()...)
		return err
	})
}

// GetSession retrieves a session by ID.
func (s *SQLiteStore) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE session_id = ?`
	session, err := scanSession(s.db.QueryRowContext(ctx, query, sessionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

// UpdateSession replaces a session guarded by its Version.
func (s *SQLiteStore) UpdateSession(ctx context.Context, session *domain.Session) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	expected := session.Version
	next := *session
	next.Version = expected + 1
	row, err := encodeSession(&next)
	if err != nil {
		return err
	}

	query := `
		UPDATE sessions SET
			difficulty = ?, phase = ?, persona_json = ?, phase_history_json = ?,
			transcript_json = ?, violations_json = ?, intents_json = ?, tooling_json = ?,
			pending_outcome = ?, trainer_guidance = ?, outcome = ?, outcome_reason = ?,
			active = ?, version = ?, updated_at = ?, ended_at = ?
		WHERE session_id = ? AND version = ?`

	var affected int64
	err = s.withBusyRetry(ctx, "update session", func() error {
		res, err := s.db.ExecContext(ctx, query,
			row.difficulty, row.phase, row.persona, row.history,
			row.transcript, row.violations, row.intents, row.tooling,
			row.pending, row.guidance, row.outcome, row.outcomeReason,
			row.active, row.version, row.updatedAt, row.endedAt,
			session.ID, expected,
		)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return err
	}
	if affected == 0 {
		var exists int
		err := s.db.QueryRowContext(ctx, `SELECT 1 FROM sessions WHERE session_id = ?`, session.ID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("update session %s: %w", session.ID, ErrNotFound)
		}
		slog.Debug("session update lost optimistic lock", "session_id", session.ID, "expected_version", expected)
		return fmt.Errorf("update session %s: %w", session.ID, ErrVersionConflict)
	}
	session.Version = next.Version
	return nil
}

// ListSessions returns a trainee's sessions, newest first.
func (s *SQLiteStore) ListSessions(ctx context.Context, traineeID string) ([]*domain.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE trainee_id = ? ORDER BY created_at DESC`
	rows, err := s.db.QueryContext(ctx, query, traineeID)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close session rows", "error", closeErr)
		}
	}()

	var sessions []*domain.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// DeleteExpiredSessions removes sessions not updated within ttl.
func (s *SQLiteStore) DeleteExpiredSessions(ctx context.Context, ttl time.Duration) (int64, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	threshold := time.Now().Add(-ttl).UnixNano()
	var deleted int64
	err := s.withBusyRetry(ctx, "delete expired sessions", func() error {
		res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE updated_at < ?`, threshold)
		if err != nil {
			return err
		}
		deleted, err = res.RowsAffected()
		return err
	})
	return deleted, err
}

// SaveScore records the score for a session once.
func (s *SQLiteStore) SaveScore(ctx context.Context, score *domain.ScoreRecord) error {
	data, err := json.Marshal(score)
	if err != nil {
		return fmt.Errorf("encode score: %w", err)
	}
	query := `INSERT INTO scores (session_id, record_json, created_at) VALUES (?, ?, ?)
		ON CONFLICT(session_id) DO NOTHING`

	var affected int64
	err = s.withBusyRetry(ctx, "insert score", func() error {
		res, err := s.db.ExecContext(ctx, query, score.SessionID, string(data), time.Now().UnixNano())
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("save score for %s: %w", score.SessionID, ErrScoreExists)
	}
	return nil
}

// GetScore retrieves the score for a session.
func (s *SQLiteStore) GetScore(ctx context.Context, sessionID string) (*domain.ScoreRecord, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT record_json FROM scores WHERE session_id = ?`, sessionID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan score row: %w", err)
	}
	var score domain.ScoreRecord
	if err := json.Unmarshal([]byte(data), &score); err != nil {
		return nil, fmt.Errorf("decode score: %w", err)
	}
	return &score, nil
}

// withBusyRetry retries fn with exponential backoff (100ms, 200ms) while SQLite
// reports busy or locked.
func (s *SQLiteStore) withBusyRetry(ctx context.Context, op string, fn func() error) error {
	var err error
	for i := 0; i < busyRetries; i++ {
		err = fn()
		if err == nil {
			return nil
		}
		if !isRetryable(err) || i == busyRetries-1 {
			break
		}
		delay := busyBaseDelay * time.Duration(1<<i)
		slog.Debug("sqlite busy, retrying", "op", op, "attempt", i+1, "delay", delay)
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", op, ctx.Err())
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// sessionRow is a session flattened into column values.
type sessionRow struct {
	id, traineeID, difficulty, phase                  string
	persona, history, transcript, violations, intents string
	tooling, seed                                     string
	pending, guidance, outcome, outcomeReason         sql.NullString
	active                                            bool
	version, createdAt, updatedAt                     int64
	endedAt                                           sql.NullInt64
}

func (r *sessionRow) args() []any {
	return []any{
		r.id, r.traineeID, r.difficulty, r.phase, r.persona,
		r.history, r.transcript, r.violations, r.intents, r.tooling,
		r.seed, r.pending, r.guidance, r.outcome, r.outcomeReason,
		r.active, r.version, r.createdAt, r.updatedAt, r.endedAt,
	}
}

func encodeSession(s *domain.Session) (*sessionRow, error) {
	row := &sessionRow{
		id:            s.ID,
		traineeID:     s.TraineeID,
		difficulty:    s.Difficulty,
		phase:         string(s.Phase),
		seed:          s.OutcomeSeed,
		pending:       nullString(string(s.PendingOutcome)),
		guidance:      nullString(s.TrainerGuidance),
		outcome:       nullString(string(s.Outcome)),
		outcomeReason: nullString(s.OutcomeReason),
		active:        s.Active,
		version:       s.Version,
		createdAt:     s.CreatedAt.UnixNano(),
		updatedAt:     s.UpdatedAt.UnixNano(),
	}
	if s.EndedAt != nil {
		row.endedAt = sql.NullInt64{Int64: s.EndedAt.UnixNano(), Valid: true}
	}
	fields := []struct {
		dst *string
		v   any
	}{
		{&row.persona, s.Persona},
		{&row.history, nonNil(s.PhaseHistory)},
		{&row.transcript, nonNil(s.Transcript)},
		{&row.violations, nonNil(s.Violations)},
		{&row.intents, nonNil(s.ExpressedIntents)},
		{&row.tooling, nonNil(s.ToolingContext)},
	}
	for _, f := range fields {
		data, err := json.Marshal(f.v)
		if err != nil {
			return nil, fmt.Errorf("encode session %s: %w", s.ID, err)
		}
		*f.dst = string(data)
	}
	return row, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(sc scanner) (*domain.Session, error) {
	var row sessionRow
	err := sc.Scan(
		&row.id, &row.traineeID, &row.difficulty, &row.phase, &row.persona,
		&row.history, &row.transcript, &row.violations, &row.intents, &row.tooling,
		&row.seed, &row.pending, &row.guidance, &row.outcome, &row.outcomeReason,
		&row.active, &row.version, &row.createdAt, &row.updatedAt, &row.endedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan session row: %w", err)
	}

	s := &domain.Session{
		ID:              row.id,
		TraineeID:       row.traineeID,
		Difficulty:      row.difficulty,
		Phase:           domain.Phase(row.phase),
		OutcomeSeed:     row.seed,
		PendingOutcome:  domain.Outcome(row.pending.String),
		TrainerGuidance: row.guidance.String,
		Outcome:         domain.Outcome(row.outcome.String),
		OutcomeReason:   row.outcomeReason.String,
		Active:          row.active,
		Version:         row.version,
		CreatedAt:       fromNanos(row.createdAt),
		UpdatedAt:       fromNanos(row.updatedAt),
	}
	if row.endedAt.Valid {
		t := fromNanos(row.endedAt.Int64)
		s.EndedAt = &t
	}
	fields := []struct {
		src string
		dst any
	}{
		{row.persona, &s.Persona},
		{row.history, &s.PhaseHistory},
		{row.transcript, &s.Transcript},
		{row.violations, &s.Violations},
		{row.intents, &s.ExpressedIntents},
		{row.tooling, &s.ToolingContext},
	}
	for _, f := range fields {
		if err := json.Unmarshal([]byte(f.src), f.dst); err != nil {
			return nil, fmt.Errorf("decode session %s: %w", row.id, err)
		}
	}
	return s, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nonNil[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}
