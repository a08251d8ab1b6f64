package api

import (
	"net/http"

	"github.com/ashureev/boothsim/internal/domain"
	"github.com/ashureev/boothsim/internal/engine"
	"github.com/ashureev/boothsim/internal/identity"
	"github.com/ashureev/boothsim/internal/outcome"
	"github.com/ashureev/boothsim/internal/phase"
	"github.com/ashureev/boothsim/internal/simulation"
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers the simulator routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/me", h.GetMe)
		r.Get("/personas", h.ListPersonas)
		r.Get("/sessions", h.ListSessions)
		r.Post("/sessions", h.StartSession)
		r.Route("/sessions/{sessionID}", func(r chi.Router) {
			r.Get("/", h.GetSession)
			r.Get("/score", h.GetScore)
			r.Post("/end", h.EndSession)
			r.Group(func(r chi.Router) {
				if h.limiter != nil {
					r.Use(h.limiter.Middleware)
				}
				r.Post("/turns", h.PostTurn)
			})
		})
	})
}

// sessionView hides the seed, which would let a trainee predict outcomes.
type sessionView struct {
	ID              string                   `json:"id"`
	Difficulty      string                   `json:"difficulty"`
	Phase           domain.Phase             `json:"phase"`
	PhaseHistory    []domain.PhaseTransition `json:"phase_history"`
	Transcript      []domain.Message         `json:"transcript"`
	Violations      []string                 `json:"violations"`
	Persona         domain.Persona           `json:"persona"`
	TrainerGuidance string                   `json:"trainer_guidance,omitempty"`
	PendingOutcome  domain.Outcome           `json:"pending_outcome,omitempty"`
	Outcome         domain.Outcome           `json:"outcome,omitempty"`
	OutcomeReason   string                   `json:"outcome_reason,omitempty"`
	Active          bool                     `json:"active"`
	Version         int64                    `json:"version"`
	CreatedAt       string                   `json:"created_at"`
	UpdatedAt       string                   `json:"updated_at"`
}

func newSessionView(s *domain.Session) sessionView {
	return sessionView{
		ID:              s.ID,
		Difficulty:      s.Difficulty,
		Phase:           s.Phase,
		PhaseHistory:    s.PhaseHistory,
		Transcript:      s.Transcript,
		Violations:      s.Violations,
		Persona:         s.Persona,
		TrainerGuidance: s.TrainerGuidance,
		PendingOutcome:  s.PendingOutcome,
		Outcome:         s.Outcome,
		OutcomeReason:   s.OutcomeReason,
		Active:          s.Active,
		Version:         s.Version,
		CreatedAt:       s.CreatedAt.Format(timeFormat),
		UpdatedAt:       s.UpdatedAt.Format(timeFormat),
	}
}

const timeFormat = "2006-01-02T15:04:05.000Z07:00"

// TurnView is the response to a trainee turn.
type TurnView struct {
	Session   sessionView         `json:"session"`
	Reply     domain.Message      `json:"reply"`
	Source    string              `json:"source"`
	Intent    domain.IntentResult `json:"intent"`
	Issues    []string            `json:"issues"`
	Phase     phase.Decision      `json:"phase"`
	Outcome   *outcome.Decision   `json:"outcome,omitempty"`
	Completed bool                `json:"completed"`
	Score     *domain.ScoreRecord `json:"score,omitempty"`
}

// NewTurnView builds the client-facing turn response.
func NewTurnView(res *engine.TurnResult) TurnView {
	v := TurnView{
		Session:   newSessionView(&res.Session),
		Reply:     res.Reply,
		Source:    string(res.Source),
		Intent:    res.Intent,
		Issues:    res.Guardrail.Issues,
		Phase:     res.Phase,
		Outcome:   res.Outcome,
		Completed: res.Completed,
		Score:     res.Score,
	}
	if v.Issues == nil {
		v.Issues = []string{}
	}
	return v
}

// GetMe returns the current trainee's identity.
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	traineeID := identity.TraineeIDFromContext(r.Context())
	if traineeID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	JSON(w, http.StatusOK, map[string]string{
		"trainee_id":   traineeID,
		"display_name": identity.DisplayNameFromContext(r.Context()),
		"client_id":    identity.ClientIDFromContext(r.Context()),
	})
}

// ListPersonas returns the persona presets.
func (h *Handler) ListPersonas(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]any{"personas": h.svc.Personas()})
}

// StartSession creates a session for the current trainee.
func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	var req simulation.StartRequest
	if err := decodeJSON(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid_request")
		return
	}
	s, err := h.svc.Start(r.Context(), identity.TraineeIDFromContext(r.Context()), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	JSON(w, http.StatusCreated, newSessionView(s))
}

// ListSessions returns the trainee's sessions.
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.svc.List(r.Context(), identity.TraineeIDFromContext(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	views := make([]sessionView, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, newSessionView(s))
	}
	JSON(w, http.StatusOK, map[string]any{"sessions": views})
}

// GetSession returns one session.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.Get(r.Context(), identity.TraineeIDFromContext(r.Context()), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, newSessionView(s))
}

type turnRequest struct {
	Message string `json:"message"`
}

// PostTurn runs one trainee turn.
func (h *Handler) PostTurn(w http.ResponseWriter, r *http.Request) {
	var req turnRequest
	if err := decodeJSON(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid_request")
		return
	}
	res, err := h.svc.Turn(r.Context(), identity.TraineeIDFromContext(r.Context()), chi.URLParam(r, "sessionID"), req.Message)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, NewTurnView(res))
}

// EndSession completes the session and returns its score.
func (h *Handler) EndSession(w http.ResponseWriter, r *http.Request) {
	s, score, err := h.svc.End(r.Context(), identity.TraineeIDFromContext(r.Context()), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{"session": newSessionView(s), "score": score})
}

// GetScore returns the score of a completed session.
func (h *Handler) GetScore(w http.ResponseWriter, r *http.Request) {
	score, err := h.svc.Score(r.Context(), identity.TraineeIDFromContext(r.Context()), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, score)
}
