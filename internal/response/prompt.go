package response

import (
	"fmt"
	"strings"

	"github.com/ashureev/boothsim/internal/domain"
	"github.com/ashureev/boothsim/internal/rules"
)

const historyWindow = 8

// ComposeRequest builds the generative request for the session's current turn.
// The session should already carry the trainee message being answered.
func ComposeRequest(r *rules.Rules, s *domain.Session, message string) Request {
	var history []domain.Message
	for _, m := range s.RecentMessages(historyWindow) {
		if m.Type != domain.MessageSystem {
			history = append(history, m)
		}
	}
	return Request{
		SessionID: s.ID,
		Seed:      s.OutcomeSeed,
		System:    composeSystemPrompt(r, s),
		History:   history,
		Message:   message,
		Phase:     s.Phase,
		Persona:   s.Persona,
	}
}

func composeSystemPrompt(r *rules.Rules, s *domain.Session) string {
	var b strings.Builder
	name := s.Persona.Name
	if name == "" {
		name = "a conference attendee"
	}
	fmt.Fprintf(&b, "You are %s, %s, visiting an observability vendor's booth at a tech conference.\n", name, s.Persona.Describe())
	if pr, ok := r.PhaseRule(s.Phase); ok {
		fmt.Fprintf(&b, "The conversation is in the %s phase: %s\n", strings.ReplaceAll(string(s.Phase), "_", " "), pr.Description)
	}
	if len(s.ToolingContext) > 0 {
		fmt.Fprintf(&b, "You currently use %s. Never claim other tools.\n", joinTools(s.ToolingContext))
	}
	b.WriteString("Answer as the attendee in one or two short spoken sentences. ")
	b.WriteString("No lists, no stage directions, and do not turn the question back on the booth staff.")
	return b.String()
}
