// Package phase implements the forward-only conversation state machine.
package phase

import (
	"strings"
	"time"

	"github.com/ashureev/boothsim/internal/domain"
	"github.com/ashureev/boothsim/internal/guardrail"
	"github.com/ashureev/boothsim/internal/rules"
	"github.com/ashureev/boothsim/internal/shared"
)

// Decision reasons.
const (
	ReasonGuardrailBlocked   = "guardrail_blocked"
	ReasonOpenQuestion       = "open_question"
	ReasonOpenEnded          = "open_ended"
	ReasonEmpathy            = "empathy"
	ReasonCommitment         = "commitment"
	ReasonAwaitingCommitment = "awaiting_commitment"
	ReasonCriteriaNotMet     = "criteria_not_met"
	ReasonTerminal           = "terminal_phase"
	ReasonReset              = "phase_reset"
)

// Decision is the machine's verdict for one trainee turn.
type Decision struct {
	From     domain.Phase `json:"from"`
	To       domain.Phase `json:"to"`
	Advanced bool         `json:"advanced"`
	Reason   string       `json:"reason"`
}

// Machine evaluates phase advancement.
type Machine struct {
	cues rules.CueRules
}

// NewMachine creates a machine over the given rule set.
func NewMachine(r *rules.Rules) *Machine {
	return &Machine{cues: r.Cues}
}

// DetectCommitment reports whether the attendee's line voices a concrete next step.
// A line that asks a question commits to nothing, even when it mentions one.
func (m *Machine) DetectCommitment(attendeeLine string) bool {
	if strings.Contains(attendeeLine, "?") {
		return false
	}
	return shared.ContainsAny(shared.Normalize(attendeeLine), m.cues.Commitment)
}

// Evaluate decides whether the current phase advances this turn. A phase outside
// the known order resets to Opening.
func (m *Machine) Evaluate(current domain.Phase, guard guardrail.Result, attendeeLine string) Decision {
	d := Decision{From: current, To: current}
	if domain.PhaseIndex(current) < 0 {
		d.To = domain.PhaseOpening
		d.Reason = ReasonReset
		return d
	}
	if !guard.Clean() {
		d.Reason = ReasonGuardrailBlocked
		return d
	}

	var ok bool
	switch current {
	case domain.PhaseOpening:
		ok, d.Reason = guard.IsOpenEnded && guard.IsQuestion, ReasonOpenQuestion
	case domain.PhaseExploration:
		ok, d.Reason = guard.IsOpenEnded, ReasonOpenEnded
	case domain.PhasePainDiscovery:
		ok, d.Reason = guard.IsEmpathetic, ReasonEmpathy
	case domain.PhaseSolutionFraming:
		if !m.DetectCommitment(attendeeLine) {
			d.Reason = ReasonAwaitingCommitment
			return d
		}
		ok, d.Reason = true, ReasonCommitment
	default:
		d.Reason = ReasonTerminal
		return d
	}
	if !ok {
		d.Reason = ReasonCriteriaNotMet
		return d
	}
	next, _ := current.Next()
	d.To = next
	d.Advanced = true
	return d
}

// Apply records the decision on the session. Only forward moves enter the history.
func Apply(s *domain.Session, d Decision, at time.Time) {
	if d.To == s.Phase {
		return
	}
	if d.Advanced {
		s.PhaseHistory = append(s.PhaseHistory, domain.PhaseTransition{From: d.From, To: d.To, At: at})
	}
	s.Phase = d.To
}
