package domain

import (
	"slices"
	"time"
)

// Phase is one of the ordered conversation stages.
type Phase string

const (
	PhaseOpening         Phase = "opening"
	PhaseExploration     Phase = "exploration"
	PhasePainDiscovery   Phase = "pain_discovery"
	PhaseSolutionFraming Phase = "solution_framing"
	PhaseOutcome         Phase = "outcome"
)

// PhaseOrder is the fixed forward-only order of phases.
var PhaseOrder = []Phase{
	PhaseOpening,
	PhaseExploration,
	PhasePainDiscovery,
	PhaseSolutionFraming,
	PhaseOutcome,
}

// PhaseIndex returns the position of p in PhaseOrder, or -1 if p is unknown.
func PhaseIndex(p Phase) int {
	return slices.Index(PhaseOrder, p)
}

// Next returns the phase after p. ok is false for the terminal phase and
// for phases outside PhaseOrder.
func (p Phase) Next() (next Phase, ok bool) {
	i := PhaseIndex(p)
	if i < 0 || i >= len(PhaseOrder)-1 {
		return p, false
	}
	return PhaseOrder[i+1], true
}

// MessageType identifies who produced a transcript entry.
type MessageType string

const (
	MessageSystem   MessageType = "system"
	MessageTrainee  MessageType = "trainee"
	MessageAttendee MessageType = "attendee"
)

// Message is a single transcript entry.
type Message struct {
	ID        string      `json:"id"`
	Type      MessageType `json:"type"`
	Text      string      `json:"text"`
	Timestamp time.Time   `json:"timestamp"`
}

// PhaseTransition records a forward phase move.
type PhaseTransition struct {
	From Phase     `json:"from"`
	To   Phase     `json:"to"`
	At   time.Time `json:"at"`
}

// Session is the unit of simulation.
type Session struct {
	ID               string            `json:"id"`
	TraineeID        string            `json:"trainee_id"`
	Difficulty       string            `json:"difficulty"`
	Phase            Phase             `json:"phase"`
	PhaseHistory     []PhaseTransition `json:"phase_history"`
	Transcript       []Message         `json:"transcript"`
	Violations       []string          `json:"violations"`
	Persona          Persona           `json:"persona"`
	OutcomeSeed      string            `json:"outcome_seed"`
	ExpressedIntents []Intent          `json:"expressed_intents"`
	ToolingContext   []string          `json:"tooling_context"`
	PendingOutcome   Outcome           `json:"pending_outcome,omitempty"`
	TrainerGuidance  string            `json:"trainer_guidance,omitempty"`
	Outcome          Outcome           `json:"outcome,omitempty"`
	OutcomeReason    string            `json:"outcome_reason,omitempty"`
	Active           bool              `json:"active"`
	Version          int64             `json:"version"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
	EndedAt          *time.Time        `json:"ended_at,omitempty"`
}

// Clone returns a deep copy so a turn can be computed without touching the input.
func (s Session) Clone() Session {
	out := s
	out.PhaseHistory = slices.Clone(s.PhaseHistory)
	out.Transcript = slices.Clone(s.Transcript)
	out.Violations = slices.Clone(s.Violations)
	out.ExpressedIntents = slices.Clone(s.ExpressedIntents)
	out.ToolingContext = slices.Clone(s.ToolingContext)
	out.Persona.Modifiers = slices.Clone(s.Persona.Modifiers)
	if s.EndedAt != nil {
		t := *s.EndedAt
		out.EndedAt = &t
	}
	return out
}

// HasExpressed reports whether the attendee already voiced intent.
func (s *Session) HasExpressed(intent Intent) bool {
	return slices.Contains(s.ExpressedIntents, intent)
}

// TraineeTurns returns the number of trainee messages in the transcript.
func (s *Session) TraineeTurns() int {
	n := 0
	for _, m := range s.Transcript {
		if m.Type == MessageTrainee {
			n++
		}
	}
	return n
}

// RecentMessages returns the last n transcript entries.
func (s *Session) RecentMessages(n int) []Message {
	if n >= len(s.Transcript) {
		return s.Transcript
	}
	return s.Transcript[len(s.Transcript)-n:]
}
