// Package rules holds the data-driven rule tables the simulation engine runs on.
// A Rules value is injected into every engine component; nothing reads it from
// package state.
package rules

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ashureev/boothsim/internal/domain"
	"github.com/ashureev/boothsim/internal/shared"
	"gopkg.in/yaml.v3"
)

// ErrInvalidRules is returned by Validate for inconsistent rule documents.
var ErrInvalidRules = errors.New("invalid rules")

// Rules is the full engine configuration.
type Rules struct {
	BannedKeywords []string                   `yaml:"banned_keywords"`
	Phases         []PhaseRule                `yaml:"phases"`
	Guardrails     GuardrailRules             `yaml:"guardrails"`
	Intents        IntentRules                `yaml:"intents"`
	Cues           CueRules                   `yaml:"cues"`
	Bands          []OutcomeBand              `yaml:"outcome_bands"`
	Scoring        ScoringRules               `yaml:"scoring"`
	TurnLimits     map[string]int             `yaml:"turn_limits"`
	Tooling        ToolingRules               `yaml:"tooling"`
	Responses      map[domain.Intent][]string `yaml:"responses"`
	OpeningLines   []string                   `yaml:"opening_lines"`
	CannedReplies  map[domain.Phase]string    `yaml:"canned_replies"`
	Personas       []domain.Persona           `yaml:"personas"`
}

// PhaseRule describes what a phase is for and what moves it forward.
type PhaseRule struct {
	Phase       domain.Phase `yaml:"phase"`
	Description string       `yaml:"description"`
	Behaviors   []string     `yaml:"behaviors"`
	Guidance    string       `yaml:"guidance"`
}

// GuardrailRules configures message analysis.
type GuardrailRules struct {
	CompetitorPhrases     []string `yaml:"competitor_phrases"`
	PitchPhrases          []string `yaml:"pitch_phrases"`
	AssertionPhrases      []string `yaml:"assertion_phrases"`
	AskingPhrases         []string `yaml:"asking_phrases"`
	Technologies          []string `yaml:"technologies"`
	InterrogativeStarters []string `yaml:"interrogative_starters"`
	OpenEndedMarkers      []string `yaml:"open_ended_markers"`
	OpenEndedPrompts      []string `yaml:"open_ended_prompts"`
	ClosedStarters        []string `yaml:"closed_starters"`
	EmpathyPhrases        []string `yaml:"empathy_phrases"`
	RestrictedTopics      []string `yaml:"restricted_topics"`
}

// IntentRule maps a phrase set to an attendee intent.
type IntentRule struct {
	Intent     domain.Intent `yaml:"intent"`
	Phrases    []string      `yaml:"phrases"`
	Confidence float64       `yaml:"confidence"`
}

// IntentRules configures the classifier. Rules are evaluated in order; the first
// match wins.
type IntentRules struct {
	UsableConfidence     float64         `yaml:"usable_confidence"`
	ExhaustionConfidence float64         `yaml:"exhaustion_confidence"`
	TransitionFactor     float64         `yaml:"transition_factor"`
	UnknownConfidence    float64         `yaml:"unknown_confidence"`
	FollowUpConfidence   float64         `yaml:"follow_up_confidence"`
	DenialConfidence     float64         `yaml:"denial_confidence"`
	DenialPhrases        []string        `yaml:"denial_phrases"`
	FollowUpPhrases      []string        `yaml:"follow_up_phrases"`
	TransitionSources    []domain.Intent `yaml:"transition_sources"`
	Rules                []IntentRule    `yaml:"rules"`
}

// CueRules are the phrase sets used for commitment, outcome and eligibility signals.
type CueRules struct {
	DemoRequest    []string `yaml:"demo_request"`
	Acceptance     []string `yaml:"acceptance"`
	SelfService    []string `yaml:"self_service"`
	Deferred       []string `yaml:"deferred"`
	QualifiedLead  []string `yaml:"qualified_lead"`
	NearTerm       []string `yaml:"near_term"`
	Disengagement  []string `yaml:"disengagement"`
	Commitment     []string `yaml:"commitment"`
	CustomerImpact []string `yaml:"customer_impact"`
	Effort         []string `yaml:"effort"`
	TeamEvaluation []string `yaml:"team_evaluation"`
}

// OutcomeBand holds persona-specific base weights and the jitter tolerance.
type OutcomeBand struct {
	Key       string                     `yaml:"key"`
	Match     []string                   `yaml:"match"`
	Weights   map[domain.Outcome]float64 `yaml:"weights"`
	Tolerance float64                    `yaml:"tolerance"`
}

// SubScoreRule counts phrase occurrences into a bounded sub-score.
type SubScoreRule struct {
	Base      int      `yaml:"base"`
	Increment int      `yaml:"increment"`
	Phrases   []string `yaml:"phrases"`
}

// GradeThreshold is the minimum total for a grade.
type GradeThreshold struct {
	Grade string `yaml:"grade"`
	Min   int    `yaml:"min"`
}

// ScoringRules configures the scoring engine.
type ScoringRules struct {
	MaxSubScore           int                       `yaml:"max_sub_score"`
	Listening             SubScoreRule              `yaml:"listening"`
	Discovery             SubScoreRule              `yaml:"discovery"`
	Empathy               SubScoreRule              `yaml:"empathy"`
	AssumptionAvoidance   SubScoreRule              `yaml:"assumption_avoidance"`
	AssumptionPenalty     int                       `yaml:"assumption_penalty"`
	ViolationPenalty      int                       `yaml:"violation_penalty"`
	EarlyPitchPenalty     int                       `yaml:"early_pitch_penalty"`
	CustomerImpactBonus   int                       `yaml:"customer_impact_bonus"`
	CustomerImpactPhrases []string                  `yaml:"customer_impact_phrases"`
	OutcomeBonuses        map[domain.Outcome]int    `yaml:"outcome_bonuses"`
	InefficiencyPenalty   int                       `yaml:"inefficiency_penalty"`
	GradeThresholds       []GradeThreshold          `yaml:"grade_thresholds"`
	GradeFloors           map[domain.Outcome]string `yaml:"grade_floors"`
}

// ToolingRule maps role phrases to the tools an attendee in that role uses.
type ToolingRule struct {
	Match []string `yaml:"match"`
	Tools []string `yaml:"tools"`
}

// ToolingRules configures the frozen tooling context.
type ToolingRules struct {
	Roles   []ToolingRule `yaml:"roles"`
	Default []string      `yaml:"default"`
}

// Parse overlays a YAML document on the defaults. Lists in the document replace
// the default lists; maps are merged key by key.
func Parse(data []byte) (*Rules, error) {
	r := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(r); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode rules: %w", err)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// Load reads and parses a rules file.
func Load(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	return Parse(data)
}

// Validate checks the rule tables for internal consistency.
func (r *Rules) Validate() error {
	var problems []string
	for _, p := range domain.PhaseOrder {
		if _, ok := r.PhaseRule(p); !ok {
			problems = append(problems, fmt.Sprintf("phase %q has no rule", p))
		}
	}
	in := r.Intents
	for name, v := range map[string]float64{
		"usable_confidence":     in.UsableConfidence,
		"exhaustion_confidence": in.ExhaustionConfidence,
		"transition_factor":     in.TransitionFactor,
		"unknown_confidence":    in.UnknownConfidence,
		"follow_up_confidence":  in.FollowUpConfidence,
		"denial_confidence":     in.DenialConfidence,
	} {
		if v < 0 || v > 1 {
			problems = append(problems, fmt.Sprintf("intents.%s must be within [0,1]", name))
		}
	}
	for i, rule := range in.Rules {
		if rule.Intent == "" || len(rule.Phrases) == 0 {
			problems = append(problems, fmt.Sprintf("intents.rules[%d] needs an intent and phrases", i))
		}
		if rule.Confidence < 0 || rule.Confidence > 1 {
			problems = append(problems, fmt.Sprintf("intents.rules[%d] confidence must be within [0,1]", i))
		}
	}
	for _, b := range r.Bands {
		if b.Key == "" || len(b.Match) == 0 {
			problems = append(problems, "outcome band needs a key and match phrases")
		}
		if b.Tolerance < 0 || b.Tolerance > 1 {
			problems = append(problems, fmt.Sprintf("band %q tolerance must be within [0,1]", b.Key))
		}
		for o, w := range b.Weights {
			if !o.IsTerminal() {
				problems = append(problems, fmt.Sprintf("band %q weights unknown outcome %q", b.Key, o))
			}
			if w < 0 {
				problems = append(problems, fmt.Sprintf("band %q has negative weight for %q", b.Key, o))
			}
		}
	}
	s := r.Scoring
	if s.MaxSubScore <= 0 {
		problems = append(problems, "scoring.max_sub_score must be > 0")
	}
	if len(s.GradeThresholds) == 0 {
		problems = append(problems, "scoring.grade_thresholds cannot be empty")
	}
	for i := 1; i < len(s.GradeThresholds); i++ {
		if s.GradeThresholds[i].Min >= s.GradeThresholds[i-1].Min {
			problems = append(problems, "scoring.grade_thresholds must be strictly descending")
			break
		}
	}
	for o, g := range s.GradeFloors {
		if r.GradeRank(g) < 0 {
			problems = append(problems, fmt.Sprintf("grade floor for %q names unknown grade %q", o, g))
		}
	}
	for d, n := range r.TurnLimits {
		if n <= 0 {
			problems = append(problems, fmt.Sprintf("turn limit for %q must be > 0", d))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidRules, strings.Join(problems, "; "))
	}
	return nil
}

// PhaseRule returns the rule for phase p.
func (r *Rules) PhaseRule(p domain.Phase) (PhaseRule, bool) {
	for _, pr := range r.Phases {
		if pr.Phase == p {
			return pr, true
		}
	}
	return PhaseRule{}, false
}

// BandFor returns the first outcome band whose match phrases appear in the role text.
func (r *Rules) BandFor(role string) (OutcomeBand, bool) {
	norm := shared.Normalize(role)
	for _, b := range r.Bands {
		if shared.ContainsAny(norm, b.Match) {
			return b, true
		}
	}
	return OutcomeBand{}, false
}

// ToolingFor returns the toolset for a role, falling back to the default set.
func (r *Rules) ToolingFor(role string) []string {
	norm := shared.Normalize(role)
	for _, tr := range r.Tooling.Roles {
		if shared.ContainsAny(norm, tr.Match) {
			return append([]string(nil), tr.Tools...)
		}
	}
	return append([]string(nil), r.Tooling.Default...)
}

// TurnLimit returns the trainee turn budget for a difficulty, defaulting to "medium".
func (r *Rules) TurnLimit(difficulty string) int {
	if n, ok := r.TurnLimits[strings.ToLower(difficulty)]; ok {
		return n
	}
	if n, ok := r.TurnLimits["medium"]; ok {
		return n
	}
	return 12
}

// Persona returns the preset with the given key.
func (r *Rules) Persona(key string) (domain.Persona, bool) {
	for _, p := range r.Personas {
		if p.Key == key {
			return p, true
		}
	}
	return domain.Persona{}, false
}

// GradeRank returns the position of grade in the threshold list (0 is best), or -1.
func (r *Rules) GradeRank(grade string) int {
	for i, t := range r.Scoring.GradeThresholds {
		if t.Grade == grade {
			return i
		}
	}
	return -1
}
