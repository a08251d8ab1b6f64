package engine

import (
	"strings"

	"github.com/ashureev/boothsim/internal/domain"
	"github.com/ashureev/boothsim/internal/guardrail"
)

func (e *Engine) phaseGuidance(p domain.Phase) string {
	if pr, ok := e.rules.PhaseRule(p); ok {
		return pr.Guidance
	}
	return ""
}

// guidance prefixes the phase guidance with the most pressing note for this turn.
func (e *Engine) guidance(s *domain.Session, guard guardrail.Result) string {
	base := e.phaseGuidance(s.Phase)
	var note string
	switch {
	case len(guard.Issues) > 0:
		note = "Watch out: " + guard.Issues[len(guard.Issues)-1] + "."
	case guard.MentionsRestrictedTopic:
		note = "Steer away from " + guard.RestrictedTopic + "."
	case s.PendingOutcome.IsTerminal():
		note = "The attendee is leaning toward " + humanize(string(s.PendingOutcome)) + ". Confirm a concrete next step."
	}
	if note == "" {
		return base
	}
	if base == "" {
		return note
	}
	return note + " " + base
}

func humanize(s string) string {
	return strings.ReplaceAll(s, "_", " ")
}
