// Package engine runs conversation turns. Every operation takes a session value
// and returns an updated copy; the engine performs no I/O and holds no
// per-session state, so callers must serialize turns for the same session.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ashureev/boothsim/internal/domain"
	"github.com/ashureev/boothsim/internal/guardrail"
	"github.com/ashureev/boothsim/internal/intent"
	"github.com/ashureev/boothsim/internal/outcome"
	"github.com/ashureev/boothsim/internal/phase"
	"github.com/ashureev/boothsim/internal/response"
	"github.com/ashureev/boothsim/internal/rules"
	"github.com/ashureev/boothsim/internal/scoring"
	"github.com/google/uuid"
)

var (
	// ErrSessionInactive is returned for turns against a completed session.
	ErrSessionInactive = errors.New("session is not active")
	// ErrEmptyMessage is returned for blank trainee messages.
	ErrEmptyMessage = errors.New("message is empty")
)

// Completion reasons that do not come from the outcome resolver.
const (
	ReasonTraineeEnded = "trainee_ended"
	ReasonTurnLimit    = "turn_limit"
)

// Options configures the collaborators around the engine. All fields are optional.
type Options struct {
	// Generator is the primary generative collaborator.
	Generator response.Generator
	// Fallback is tried when Generator fails, typically the mock generator.
	Fallback      response.Generator
	EnrichTimeout time.Duration
	Logger        *slog.Logger
	Clock         func() time.Time
	NewID         func() string
}

// Engine wires the analyzers together.
type Engine struct {
	rules      *rules.Rules
	guard      *guardrail.Analyzer
	classifier *intent.Classifier
	resolver   *response.Resolver
	fallback   *response.Fallback
	phases     *phase.Machine
	outcomes   *outcome.Resolver
	scorer     *scoring.Engine
	logger     *slog.Logger
	now        func() time.Time
	newID      func() string
}

// New creates an engine over the given rule set.
func New(r *rules.Rules, opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Clock
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	resolver := response.NewResolver(r)
	return &Engine{
		rules:      r,
		guard:      guardrail.NewAnalyzer(r),
		classifier: intent.NewClassifier(r),
		resolver:   resolver,
		fallback:   response.NewFallback(opts.Generator, opts.Fallback, opts.EnrichTimeout, resolver, logger),
		phases:     phase.NewMachine(r),
		outcomes:   outcome.NewResolver(r),
		scorer:     scoring.NewEngine(r),
		logger:     logger,
		now:        now,
		newID:      newID,
	}
}

// Rules returns the rule set the engine runs on.
func (e *Engine) Rules() *rules.Rules {
	return e.rules
}

// StartParams describes a new session.
type StartParams struct {
	TraineeID  string
	Persona    domain.Persona
	Difficulty string
	// Seed fixes the outcome seed, for replays. Empty means a fresh one.
	Seed string
}

// StartSession creates an active session in Opening with the scenario and the
// attendee's opening line.
func (e *Engine) StartSession(p StartParams) domain.Session {
	now := e.now()
	seed := p.Seed
	if seed == "" {
		seed = e.newID()
	}
	difficulty := p.Difficulty
	if difficulty == "" {
		difficulty = p.Persona.Difficulty
	}
	if difficulty == "" {
		difficulty = "medium"
	}
	s := domain.Session{
		ID:          e.newID(),
		TraineeID:   p.TraineeID,
		Difficulty:  strings.ToLower(difficulty),
		Phase:       domain.PhaseOpening,
		Persona:     p.Persona,
		OutcomeSeed: seed,
		Violations:  []string{},
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.Transcript = []domain.Message{
		e.message(domain.MessageSystem, scenario(p.Persona), now),
		e.message(domain.MessageAttendee, e.resolver.OpeningLine(seed), now),
	}
	s.TrainerGuidance = e.phaseGuidance(domain.PhaseOpening)
	e.logger.Info("session started",
		"session_id", s.ID, "trainee_id", s.TraineeID, "persona", p.Persona.Key, "difficulty", s.Difficulty)
	return s
}

func scenario(p domain.Persona) string {
	name := p.Name
	if name == "" {
		name = "An attendee"
	}
	return fmt.Sprintf("You are staffing the booth. %s (%s) walks up.", name, p.Describe())
}

// TurnResult is everything one trainee turn produced.
type TurnResult struct {
	Session   domain.Session      `json:"session"`
	Trainee   domain.Message      `json:"trainee"`
	Reply     domain.Message      `json:"reply"`
	Source    response.Source     `json:"source"`
	Guardrail guardrail.Result    `json:"guardrail"`
	Intent    domain.IntentResult `json:"intent"`
	Phase     phase.Decision      `json:"phase"`
	Outcome   *outcome.Decision   `json:"outcome,omitempty"`
	Completed bool                `json:"completed"`
	Score     *domain.ScoreRecord `json:"score,omitempty"`
}

// ProcessTurn applies one trainee message. The input session is not modified.
// Errors are returned only for an inactive session or a blank message.
func (e *Engine) ProcessTurn(ctx context.Context, s domain.Session, message string) (TurnResult, error) {
	if !s.Active {
		return TurnResult{}, ErrSessionInactive
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return TurnResult{}, ErrEmptyMessage
	}

	now := e.now()
	next := s.Clone()
	if domain.PhaseIndex(next.Phase) < 0 {
		e.logger.Warn("unknown phase, resetting to opening", "session_id", next.ID, "phase", next.Phase)
		next.Phase = domain.PhaseOpening
	}
	turnIndex := next.TraineeTurns() + 1
	res := TurnResult{Trainee: e.message(domain.MessageTrainee, message, now)}
	next.Transcript = append(next.Transcript, res.Trainee)

	res.Guardrail = e.guard.Analyze(message, next.Phase)
	next.Violations = append(next.Violations, res.Guardrail.Issues...)

	classified := e.classifier.Classify(message, intent.Context{Expressed: next.ExpressedIntents})
	res.Intent = e.classifier.ApplyExhaustion(classified, next.ExpressedIntents, message)

	reply, source := e.reply(ctx, &next, res.Intent, message, turnIndex)
	res.Source = source
	res.Reply = e.message(domain.MessageAttendee, reply, now)
	next.Transcript = append(next.Transcript, res.Reply)

	res.Phase = e.phases.Evaluate(next.Phase, res.Guardrail, reply)
	phase.Apply(&next, res.Phase, now)

	completed, reason := false, ""
	if next.Phase == domain.PhaseSolutionFraming || next.Phase == domain.PhaseOutcome {
		d := e.outcomes.Resolve(outcome.Input{
			Phase:      next.Phase,
			Signals:    res.Intent.Signals,
			Transcript: next.Transcript,
			Tooling:    next.ToolingContext,
			Persona:    next.Persona,
			Seed:       next.OutcomeSeed,
			TurnIndex:  turnIndex,
		})
		res.Outcome = &d
		e.logger.Debug("outcome decision",
			"session_id", next.ID, "turn", turnIndex, "outcome", d.Outcome, "reason", d.Reason,
			"explicit", d.Explicit, "eligibility", d.Eligibility, "band_key", d.BandKey,
			"jittered_weights", d.Jittered, "weights", d.Weights, "draw", d.Draw)
		switch {
		case !d.Terminal():
		case d.Explicit || next.Phase == domain.PhaseOutcome:
			next.Outcome, reason, completed = d.Outcome, d.Reason, true
		default:
			next.PendingOutcome = d.Outcome
		}
	}

	if !completed && next.TraineeTurns() >= 2*e.rules.TurnLimit(next.Difficulty) {
		next.Outcome, reason, completed = domain.OutcomeUndetermined, ReasonTurnLimit, true
	}

	next.TrainerGuidance = e.guidance(&next, res.Guardrail)
	next.UpdatedAt = now
	if completed {
		score := e.complete(&next, next.Outcome, reason, now)
		res.Score = &score
	}
	res.Completed = completed
	res.Session = next

	e.logger.Info("turn processed",
		"session_id", next.ID, "turn", turnIndex, "intent", res.Intent.Intent,
		"confidence", res.Intent.Confidence, "source", source, "phase", next.Phase,
		"advanced", res.Phase.Advanced, "issues", len(res.Guardrail.Issues), "completed", completed)
	return res, nil
}

// reply runs template -> generator -> mock -> canned.
func (e *Engine) reply(ctx context.Context, s *domain.Session, ir domain.IntentResult, message string, turnIndex int) (string, response.Source) {
	if e.classifier.Usable(ir) {
		if text, ok := e.resolver.Resolve(ir, s, turnIndex); ok {
			if !s.HasExpressed(ir.Intent) {
				s.ExpressedIntents = append(s.ExpressedIntents, ir.Intent)
			}
			return text, response.SourceTemplate
		}
	}
	e.resolver.EnsureTooling(s)
	text, source := e.fallback.Reply(ctx, response.ComposeRequest(e.rules, s, message))
	if source == response.SourceCanned {
		e.logger.Warn("no generator reply, using canned line", "session_id", s.ID, "phase", s.Phase)
	}
	return text, source
}

// EndSession completes a session at the trainee's request.
func (e *Engine) EndSession(s domain.Session) (domain.Session, domain.ScoreRecord, error) {
	if !s.Active {
		return s, domain.ScoreRecord{}, ErrSessionInactive
	}
	next := s.Clone()
	now := e.now()
	next.UpdatedAt = now
	score := e.complete(&next, domain.OutcomeUndetermined, ReasonTraineeEnded, now)
	return next, score, nil
}

// Score grades a session without changing it.
func (e *Engine) Score(s domain.Session) domain.ScoreRecord {
	return e.scorer.Score(s)
}

func (e *Engine) complete(s *domain.Session, o domain.Outcome, reason string, at time.Time) domain.ScoreRecord {
	s.Active = false
	s.Outcome = o
	s.OutcomeReason = reason
	s.PendingOutcome = ""
	s.EndedAt = &at
	s.TrainerGuidance = e.phaseGuidance(s.Phase)
	score := e.scorer.Score(*s)
	e.logger.Info("session completed",
		"session_id", s.ID, "outcome", o, "reason", reason, "total", score.Total, "grade", score.Grade)
	return score
}

func (e *Engine) message(t domain.MessageType, text string, at time.Time) domain.Message {
	return domain.Message{ID: e.newID(), Type: t, Text: text, Timestamp: at}
}
