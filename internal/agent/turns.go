package agent

import (
	"github.com/ashureev/boothsim/internal/domain"
	"github.com/ashureev/boothsim/internal/response"
)

// chatTurn is one message in provider-neutral chat form. fromAttendee marks
// the model's own prior lines.
type chatTurn struct {
	fromAttendee bool
	text         string
}

// chatTurns flattens a request into alternating chat turns that always end
// with the trainee message being answered.
func chatTurns(req response.Request) []chatTurn {
	turns := make([]chatTurn, 0, len(req.History)+1)
	for _, m := range req.History {
		switch m.Type {
		case domain.MessageTrainee:
			turns = append(turns, chatTurn{text: m.Text})
		case domain.MessageAttendee:
			turns = append(turns, chatTurn{fromAttendee: true, text: m.Text})
		}
	}
	if req.Message == "" {
		return turns
	}
	if n := len(turns); n > 0 && !turns[n-1].fromAttendee && turns[n-1].text == req.Message {
		return turns
	}
	return append(turns, chatTurn{text: req.Message})
}
