package agent

import (
	"context"
	"fmt"

	"github.com/ashureev/boothsim/internal/domain"
	"github.com/ashureev/boothsim/internal/prng"
	"github.com/ashureev/boothsim/internal/response"
)

// mockLines are attendee lines per phase. Each stays within the cleaned reply
// shape so the fallback chain passes it through unchanged.
var mockLines = map[domain.Phase][]string{
	domain.PhaseOpening: {
		"Just browsing the booths between talks.",
		"I saw the banner and got curious what you folks do.",
		"A colleague mentioned you, so I figured I'd stop by.",
	},
	domain.PhaseExploration: {
		"We mostly get by with what we have, but it's a bit of a patchwork.",
		"Honestly our setup grew organically and nobody owns all of it.",
		"Day to day it's dashboards and a lot of guessing.",
	},
	domain.PhasePainDiscovery: {
		"The worst part is the late night pages where nobody can find the cause.",
		"Incidents drag on because we jump between too many tools.",
		"It wears the team down when the same outages keep coming back.",
	},
	domain.PhaseSolutionFraming: {
		"That could help, though I'd need to see how it fits with what we run.",
		"Interesting. I'd want to know how much work the rollout is.",
		"Maybe. It depends on whether the team would actually adopt it.",
	},
	domain.PhaseOutcome: {
		"Let me think about it and talk to the team.",
		"Thanks, this was useful.",
	},
}

// MockGenerator returns deterministic phase-appropriate lines. It never fails
// and serves as the secondary step of the fallback chain.
type MockGenerator struct{}

// NewMockGenerator returns a MockGenerator.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

// Name implements response.Generator.
func (m *MockGenerator) Name() string {
	return "mock"
}

// Generate implements response.Generator.
func (m *MockGenerator) Generate(ctx context.Context, req response.Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	lines, ok := mockLines[req.Phase]
	if !ok {
		lines = mockLines[domain.PhaseOpening]
	}
	key := fmt.Sprintf("mock:%s:%d", req.Phase, len(req.History))
	seed := req.Seed
	if seed == "" {
		seed = req.SessionID
	}
	line, _ := prng.Pick(seed, key, lines)
	return line, nil
}
