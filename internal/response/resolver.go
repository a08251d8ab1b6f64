// Package response produces the attendee's reply: deterministic template
// selection first, then generative collaborators, then a canned line per phase.
package response

import (
	"fmt"

	"github.com/ashureev/boothsim/internal/domain"
	"github.com/ashureev/boothsim/internal/prng"
	"github.com/ashureev/boothsim/internal/rules"
)

// Resolver picks templated attendee lines.
type Resolver struct {
	rules *rules.Rules
}

// NewResolver creates a resolver over the given rule set.
func NewResolver(r *rules.Rules) *Resolver {
	return &Resolver{rules: r}
}

// ContextKey is the PRNG key for an intent's phrasing on a given turn.
func ContextKey(intent domain.Intent, turnIndex int) string {
	return fmt.Sprintf("intent:%s:turn:%d", intent, turnIndex)
}

// Resolve returns the templated reply for result, or false when the caller must
// fall back. The session's tooling context is frozen on first use.
func (r *Resolver) Resolve(result domain.IntentResult, s *domain.Session, turnIndex int) (string, bool) {
	if result.Intent == domain.IntentUnknown || result.Exhausted {
		return "", false
	}
	variants := r.rules.Responses[result.Intent]
	if len(variants) == 0 {
		return "", false
	}
	r.EnsureTooling(s)
	template, _ := prng.Pick(s.OutcomeSeed, ContextKey(result.Intent, turnIndex), variants)
	text := Clean(FillSlots(template, ToolSlots(s.ToolingContext)))
	return text, text != ""
}

// EnsureTooling derives the attendee's toolset from the persona role once.
func (r *Resolver) EnsureTooling(s *domain.Session) {
	if len(s.ToolingContext) == 0 {
		s.ToolingContext = r.rules.ToolingFor(s.Persona.Role)
	}
}

// OpeningLine is the attendee's first line for a session seed.
func (r *Resolver) OpeningLine(seed string) string {
	line, ok := prng.Pick(seed, "opening", r.rules.OpeningLines)
	if !ok {
		return r.Canned(domain.PhaseOpening)
	}
	return Clean(line)
}

// Canned is the last-resort reply for a phase.
func (r *Resolver) Canned(phase domain.Phase) string {
	if line, ok := r.rules.CannedReplies[phase]; ok && line != "" {
		return line
	}
	return defaultCanned
}

const defaultCanned = "Sorry, it's loud in here. Could you say that again?"
