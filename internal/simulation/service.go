// Package simulation runs engine turns against persisted sessions. It owns
// per-session turn serialization, score persistence and conversation logging,
// and is shared by the HTTP API and the live websocket channel.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ashureev/boothsim/internal/agent"
	"github.com/ashureev/boothsim/internal/domain"
	"github.com/ashureev/boothsim/internal/engine"
	"github.com/ashureev/boothsim/internal/store"
)

var (
	// ErrSessionNotFound is returned for unknown sessions and sessions owned by
	// another trainee.
	ErrSessionNotFound = errors.New("session not found")
	// ErrTurnInFlight is returned when another turn for the session is running.
	ErrTurnInFlight = errors.New("turn already in progress")
	// ErrUnknownPersona is returned when a preset key does not exist.
	ErrUnknownPersona = errors.New("unknown persona")
	// ErrScoreNotReady is returned for score lookups on active sessions.
	ErrScoreNotReady = errors.New("session not completed")
)

// Service coordinates the engine and the repository.
type Service struct {
	engine *engine.Engine
	repo   store.Repository
	convo  agent.ConversationLogger
	logger *slog.Logger

	turnLocks sync.Map // session ID -> *sync.Mutex
}

// New creates a Service. A nil conversation logger disables conversation logging.
func New(e *engine.Engine, repo store.Repository, convo agent.ConversationLogger, logger *slog.Logger) *Service {
	if convo == nil {
		convo = agent.NopConversationLogger()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{engine: e, repo: repo, convo: convo, logger: logger}
}

// Personas returns the configured persona presets.
func (s *Service) Personas() []domain.Persona {
	return append([]domain.Persona(nil), s.engine.Rules().Personas...)
}

// StartRequest describes a new session. Persona overrides PersonaKey when its
// Role is set.
type StartRequest struct {
	PersonaKey string          `json:"persona_key"`
	Persona    *domain.Persona `json:"persona,omitempty"`
	Difficulty string          `json:"difficulty,omitempty"`
	Seed       string          `json:"seed,omitempty"`
}

// Start creates and persists a new session for traineeID.
func (s *Service) Start(ctx context.Context, traineeID string, req StartRequest) (*domain.Session, error) {
	var persona domain.Persona
	switch {
	case req.Persona != nil && req.Persona.Role != "":
		persona = *req.Persona
	default:
		p, ok := s.engine.Rules().Persona(req.PersonaKey)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownPersona, req.PersonaKey)
		}
		persona = p
	}

	session := s.engine.StartSession(engine.StartParams{
		TraineeID:  traineeID,
		Persona:    persona,
		Difficulty: req.Difficulty,
		Seed:       req.Seed,
	})
	if err := s.repo.CreateSession(ctx, &session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	for _, m := range session.Transcript {
		s.logMessage(&session, "session_start", m)
	}
	return &session, nil
}

// Get returns a session owned by traineeID.
func (s *Service) Get(ctx context.Context, traineeID, sessionID string) (*domain.Session, error) {
	session, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if session == nil || session.TraineeID != traineeID {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// List returns the trainee's sessions, newest first.
func (s *Service) List(ctx context.Context, traineeID string) ([]*domain.Session, error) {
	sessions, err := s.repo.ListSessions(ctx, traineeID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// Turn processes one trainee message. Only one turn per session runs at a time;
// concurrent callers get ErrTurnInFlight.
func (s *Service) Turn(ctx context.Context, traineeID, sessionID, message string) (*engine.TurnResult, error) {
	unlock, ok := s.tryLock(sessionID)
	if !ok {
		s.logger.Warn("turn already in progress", "session_id", sessionID, "trainee_id", traineeID)
		return nil, ErrTurnInFlight
	}
	defer unlock()

	session, err := s.Get(ctx, traineeID, sessionID)
	if err != nil {
		return nil, err
	}
	result, err := s.engine.ProcessTurn(ctx, *session, message)
	if err != nil {
		return nil, err
	}

	// The score goes in before the session flips inactive, so a failed save
	// leaves the session active and the turn can be retried.
	if result.Completed && result.Score != nil {
		if err := s.saveScore(ctx, result.Score); err != nil {
			return nil, err
		}
	}

	next := result.Session
	next.Version = session.Version
	if err := s.repo.UpdateSession(ctx, &next); err != nil {
		return nil, fmt.Errorf("persist turn: %w", err)
	}
	result.Session = next

	s.logMessage(&next, "trainee_message", result.Trainee)
	s.logMessage(&next, "attendee_reply", result.Reply, "source", string(result.Source),
		"intent", string(result.Intent.Intent), "phase", string(next.Phase))

	if result.Completed {
		s.turnLocks.Delete(sessionID)
	}
	return &result, nil
}

// End completes the session at the trainee's request and returns its score.
func (s *Service) End(ctx context.Context, traineeID, sessionID string) (*domain.Session, *domain.ScoreRecord, error) {
	unlock, ok := s.tryLock(sessionID)
	if !ok {
		return nil, nil, ErrTurnInFlight
	}
	defer unlock()

	session, err := s.Get(ctx, traineeID, sessionID)
	if err != nil {
		return nil, nil, err
	}
	next, score, err := s.engine.EndSession(*session)
	if err != nil {
		return nil, nil, err
	}
	if err := s.saveScore(ctx, &score); err != nil {
		return nil, nil, err
	}
	next.Version = session.Version
	if err := s.repo.UpdateSession(ctx, &next); err != nil {
		return nil, nil, fmt.Errorf("persist session end: %w", err)
	}
	s.turnLocks.Delete(sessionID)
	s.convo.Log(agent.ConversationLogEvent{
		UserID:    traineeID,
		SessionID: sessionID,
		Channel:   "simulation",
		Direction: "inbound",
		EventType: "session_end",
		Meta:      map[string]any{"outcome": string(next.Outcome), "total": score.Total, "grade": score.Grade},
	})
	return &next, &score, nil
}

// Score returns the saved score of a completed session.
func (s *Service) Score(ctx context.Context, traineeID, sessionID string) (*domain.ScoreRecord, error) {
	session, err := s.Get(ctx, traineeID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Active {
		return nil, ErrScoreNotReady
	}
	score, err := s.repo.GetScore(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load score: %w", err)
	}
	if score == nil {
		return nil, ErrScoreNotReady
	}
	return score, nil
}

func (s *Service) saveScore(ctx context.Context, score *domain.ScoreRecord) error {
	err := s.repo.SaveScore(ctx, score)
	if errors.Is(err, store.ErrScoreExists) {
		s.logger.Warn("score already recorded", "session_id", score.SessionID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("save score: %w", err)
	}
	return nil
}

// PruneLocks drops turn locks whose sessions are gone or no longer active and
// returns how many were removed.
func (s *Service) PruneLocks(ctx context.Context) int {
	pruned := 0
	s.turnLocks.Range(func(key, _ any) bool {
		id := key.(string)
		session, err := s.repo.GetSession(ctx, id)
		if err != nil {
			s.logger.Debug("skip lock prune", "session_id", id, "error", err)
			return ctx.Err() == nil
		}
		if session == nil || !session.Active {
			s.turnLocks.Delete(id)
			pruned++
		}
		return true
	})
	return pruned
}

func (s *Service) hasLock(sessionID string) bool {
	_, ok := s.turnLocks.Load(sessionID)
	return ok
}

func (s *Service) tryLock(sessionID string) (func(), bool) {
	lock, _ := s.turnLocks.LoadOrStore(sessionID, &sync.Mutex{})
	mu := lock.(*sync.Mutex)
	if !mu.TryLock() {
		return nil, false
	}
	return mu.Unlock, true
}

func (s *Service) logMessage(session *domain.Session, eventType string, m domain.Message, kv ...string) {
	direction := "inbound"
	if m.Type == domain.MessageTrainee {
		direction = "outbound"
	}
	meta := map[string]any{"message_id": m.ID, "message_type": string(m.Type)}
	for i := 0; i+1 < len(kv); i += 2 {
		meta[kv[i]] = kv[i+1]
	}
	s.convo.Log(agent.ConversationLogEvent{
		Timestamp:  m.Timestamp.UTC().Format(time.RFC3339Nano),
		UserID:     session.TraineeID,
		SessionID:  session.ID,
		Channel:    "simulation",
		Direction:  direction,
		EventType:  eventType,
		ContentRaw: m.Text,
		Meta:       meta,
	})
}
