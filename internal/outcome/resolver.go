// Package outcome decides how a conversation ends: explicit attendee signals
// first, persona-weighted sampling second.
package outcome

import (
	"strconv"
	"strings"

	"github.com/ashureev/boothsim/internal/domain"
	"github.com/ashureev/boothsim/internal/prng"
	"github.com/ashureev/boothsim/internal/rules"
	"github.com/ashureev/boothsim/internal/shared"
)

// Decision reasons.
const (
	ReasonPhaseNotEligible      = "phase_not_eligible"
	ReasonAttendeeQuestion      = "attendee_question"
	ReasonExplicitDemo          = "explicit_demo"
	ReasonExplicitSelfService   = "explicit_self_service"
	ReasonExplicitDeferred      = "explicit_deferred"
	ReasonExplicitQualifiedLead = "explicit_qualified_lead"
	ReasonExplicitPoliteExit    = "explicit_polite_exit"
	ReasonNoBandMatch           = "no_band_match"
	ReasonNoPlausibleOutcomes   = "no_plausible_outcomes"
	ReasonWeightedSample        = "weighted_sample"
)

const (
	demoEligibilityThreshold = 2
	sampleDrawOffset         = 101
)

// Input is everything the resolver reads. It never sees the session itself.
type Input struct {
	Phase      domain.Phase
	Signals    []string
	Transcript []domain.Message
	Tooling    []string
	Persona    domain.Persona
	Seed       string
	TurnIndex  int
}

// Decision is the resolved outcome with its trace.
type Decision struct {
	Outcome      domain.Outcome             `json:"outcome"`
	Reason       string                     `json:"reason"`
	Explicit     bool                       `json:"explicit"`
	Eligibility  int                        `json:"eligibility"`
	DemoEligible bool                       `json:"demo_eligible"`
	BandKey      string                     `json:"band_key,omitempty"`
	Jittered     map[domain.Outcome]float64 `json:"jittered_weights,omitempty"`
	Weights      map[domain.Outcome]float64 `json:"weights,omitempty"`
	Draw         float64                    `json:"draw,omitempty"`
	Signals      []string                   `json:"signals,omitempty"`
}

// Terminal reports whether the decision names a terminal outcome.
func (d Decision) Terminal() bool {
	return d.Outcome.IsTerminal()
}

// lineCues are the cue matches on the attendee's last line.
type lineCues struct {
	demoRequest bool
	acceptance  bool
	selfService bool
	deferred    bool
	qualified   bool
	nearTerm    bool
	disengaged  bool
}

// override is one explicit-signal rule. Overrides are evaluated in order.
type override struct {
	outcome domain.Outcome
	reason  string
	match   func(c lineCues) bool
}

var overrides = []override{
	{domain.OutcomeDemo, ReasonExplicitDemo, func(c lineCues) bool {
		return c.demoRequest && c.acceptance
	}},
	{domain.OutcomeSelfService, ReasonExplicitSelfService, func(c lineCues) bool {
		return c.selfService
	}},
	{domain.OutcomeDeferred, ReasonExplicitDeferred, func(c lineCues) bool {
		return c.deferred && !c.selfService
	}},
	{domain.OutcomeQualifiedLead, ReasonExplicitQualifiedLead, func(c lineCues) bool {
		return c.qualified && c.nearTerm && !c.deferred && c.acceptance
	}},
	{domain.OutcomePoliteExit, ReasonExplicitPoliteExit, func(c lineCues) bool {
		return c.disengaged
	}},
}

// Resolver determines terminal outcomes.
type Resolver struct {
	rules *rules.Rules
}

// NewResolver creates a resolver over the given rule set.
func NewResolver(r *rules.Rules) *Resolver {
	return &Resolver{rules: r}
}

// Resolve runs the cascade. It only considers Solution-Framing and Outcome.
func (r *Resolver) Resolve(in Input) Decision {
	d := Decision{Outcome: domain.OutcomeUndetermined, Signals: in.Signals}
	if in.Phase != domain.PhaseSolutionFraming && in.Phase != domain.PhaseOutcome {
		d.Reason = ReasonPhaseNotEligible
		return d
	}

	last := lastAttendeeLine(in.Transcript)
	if strings.Contains(last, "?") {
		d.Reason = ReasonAttendeeQuestion
		return d
	}

	cues := r.cuesFor(shared.Normalize(last), in.Transcript)
	for _, o := range overrides {
		if o.match(cues) {
			d.Outcome = o.outcome
			d.Reason = o.reason
			d.Explicit = true
			return d
		}
	}

	d.Eligibility = r.Eligibility(in.Transcript, in.Tooling)
	d.DemoEligible = d.Eligibility >= demoEligibilityThreshold

	band, ok := r.rules.BandFor(in.Persona.Role)
	if !ok {
		d.Reason = ReasonNoBandMatch
		return d
	}
	d.BandKey = band.Key

	base := prng.Hash(in.Seed + ":outcome:turn:" + strconv.Itoa(in.TurnIndex))
	jittered := make(map[domain.Outcome]float64, len(domain.TerminalOutcomes))
	for i, o := range domain.TerminalOutcomes {
		w := band.Weights[o] + (2*prng.Draw(base, i+1)-1)*band.Tolerance
		jittered[o] = max(0, w)
	}
	if !normalize(jittered) {
		d.Reason = ReasonNoPlausibleOutcomes
		return d
	}
	d.Jittered = jittered

	plausible := make(map[domain.Outcome]float64, len(jittered))
	for _, o := range domain.TerminalOutcomes {
		if r.plausible(o, d.DemoEligible, cues) {
			plausible[o] = jittered[o]
		}
	}
	if !normalize(plausible) {
		d.Reason = ReasonNoPlausibleOutcomes
		return d
	}
	d.Weights = plausible

	d.Draw = prng.Draw(base, sampleDrawOffset)
	d.Outcome = sample(plausible, d.Draw)
	d.Reason = ReasonWeightedSample
	return d
}

func (r *Resolver) plausible(o domain.Outcome, demoEligible bool, c lineCues) bool {
	switch o {
	case domain.OutcomeDemo:
		return demoEligible
	case domain.OutcomeQualifiedLead:
		return c.acceptance && !c.deferred
	}
	return true
}

func (r *Resolver) cuesFor(norm string, transcript []domain.Message) lineCues {
	cues := r.rules.Cues
	c := lineCues{
		demoRequest: shared.ContainsAny(norm, cues.DemoRequest),
		acceptance:  shared.ContainsAny(norm, cues.Acceptance),
		selfService: shared.ContainsAny(norm, cues.SelfService),
		deferred:    shared.ContainsAny(norm, cues.Deferred),
		qualified:   shared.ContainsAny(norm, cues.QualifiedLead),
		disengaged:  shared.ContainsAny(norm, cues.Disengagement),
	}
	for _, m := range transcript {
		if m.Type == domain.MessageAttendee && shared.ContainsAny(shared.Normalize(m.Text), cues.NearTerm) {
			c.nearTerm = true
			break
		}
	}
	return c
}

// Eligibility is the 0-5 soft demo eligibility over the conversation so far:
// customer impact, near-term urgency, named tooling, effort and team evaluation
// each count once.
func (r *Resolver) Eligibility(transcript []domain.Message, tooling []string) int {
	var b strings.Builder
	for _, m := range transcript {
		if m.Type == domain.MessageSystem {
			continue
		}
		b.WriteString(shared.Normalize(m.Text))
		b.WriteByte(' ')
	}
	text := strings.TrimSpace(b.String())
	cues := r.rules.Cues
	score := 0
	for _, set := range [][]string{cues.CustomerImpact, cues.NearTerm, tooling, cues.Effort, cues.TeamEvaluation} {
		if shared.ContainsAny(text, set) {
			score++
		}
	}
	return score
}

func lastAttendeeLine(transcript []domain.Message) string {
	for i := len(transcript) - 1; i >= 0; i-- {
		if transcript[i].Type == domain.MessageAttendee {
			return transcript[i].Text
		}
	}
	return ""
}

// normalize scales weights to sum to 1. It returns false when they sum to zero.
func normalize(weights map[domain.Outcome]float64) bool {
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	if sum <= 0 {
		return false
	}
	for o, w := range weights {
		weights[o] = w / sum
	}
	return true
}

// sample walks the weights in terminal order and returns the outcome whose
// cumulative weight first exceeds draw.
func sample(weights map[domain.Outcome]float64, draw float64) domain.Outcome {
	cumulative := 0.0
	picked := domain.OutcomeUndetermined
	for _, o := range domain.TerminalOutcomes {
		w, ok := weights[o]
		if !ok || w <= 0 {
			continue
		}
		picked = o
		cumulative += w
		if draw < cumulative {
			return o
		}
	}
	return picked
}
