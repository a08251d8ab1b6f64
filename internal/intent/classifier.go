// Package intent classifies trainee messages into the attendee intent to answer with.
package intent

import (
	"slices"

	"github.com/ashureev/boothsim/internal/domain"
	"github.com/ashureev/boothsim/internal/rules"
	"github.com/ashureev/boothsim/internal/shared"
)

// Signal tags attached to results.
const (
	SignalDenial     = "capability_denial"
	SignalFollowUp   = "follow_up"
	SignalTransition = "intent_transition"
	SignalFallback   = "no_match"
)

// Rule is one entry of the priority cascade. Rules are evaluated in order and
// the first whose Match succeeds decides the result.
type Rule struct {
	Intent     domain.Intent
	Confidence float64
	Signal     string
	Match      func(norm string) (matched string, ok bool)
}

// Context is what the classifier may consult besides the message itself.
// Expressed drives follow-up resolution: a follow-up repeats its last entry.
type Context struct {
	Expressed []domain.Intent
}

// Classifier maps a trainee message to an attendee intent.
type Classifier struct {
	cfg   rules.IntentRules
	cues  rules.CueRules
	rules []Rule
}

// NewClassifier builds the cascade from the rule set. The capability-denial
// override is always first.
func NewClassifier(r *rules.Rules) *Classifier {
	cfg := r.Intents
	cascade := []Rule{{
		Intent:     domain.IntentNoTracing,
		Confidence: cfg.DenialConfidence,
		Signal:     SignalDenial,
		Match:      phraseMatcher(cfg.DenialPhrases),
	}}
	for _, ir := range cfg.Rules {
		cascade = append(cascade, Rule{
			Intent:     ir.Intent,
			Confidence: ir.Confidence,
			Signal:     string(ir.Intent),
			Match:      phraseMatcher(ir.Phrases),
		})
	}
	return &Classifier{cfg: cfg, cues: r.Cues, rules: cascade}
}

func phraseMatcher(phrases []string) func(string) (string, bool) {
	return func(norm string) (string, bool) {
		return shared.MatchAny(norm, phrases)
	}
}

// Rules returns the cascade in evaluation order.
func (c *Classifier) Rules() []Rule {
	return slices.Clone(c.rules)
}

// Classify returns the first matching rule's intent. A bare follow-up repeats the
// most recently expressed intent; anything else falls back to unknown.
func (c *Classifier) Classify(message string, ctx Context) domain.IntentResult {
	norm := shared.Normalize(message)
	for _, rule := range c.rules {
		if matched, ok := rule.Match(norm); ok {
			return domain.IntentResult{
				Intent:     rule.Intent,
				Confidence: rule.Confidence,
				Signals:    []string{rule.Signal, "phrase:" + shared.Normalize(matched)},
			}
		}
	}
	if n := len(ctx.Expressed); n > 0 && shared.ContainsAny(norm, c.cfg.FollowUpPhrases) {
		return domain.IntentResult{
			Intent:     ctx.Expressed[n-1],
			Confidence: c.cfg.FollowUpConfidence,
			Signals:    []string{SignalFollowUp},
		}
	}
	return domain.IntentResult{
		Intent:     domain.IntentUnknown,
		Confidence: c.cfg.UnknownConfidence,
		Signals:    []string{SignalFallback},
	}
}

// ApplyExhaustion handles an intent the attendee already voiced. Transition
// sources move to effort, urgency or next steps depending on the message;
// anything else comes back marked exhausted.
func (c *Classifier) ApplyExhaustion(result domain.IntentResult, expressed []domain.Intent, message string) domain.IntentResult {
	if !slices.Contains(expressed, result.Intent) || result.Confidence < c.cfg.ExhaustionConfidence {
		return result
	}
	if !slices.Contains(c.cfg.TransitionSources, result.Intent) {
		result.Signals = slices.Clone(result.Signals)
		result.Exhausted = true
		return result
	}
	norm := shared.Normalize(message)
	next := domain.IntentNextSteps
	switch {
	case shared.ContainsAny(norm, c.cues.Effort):
		next = domain.IntentEffortConcern
	case shared.ContainsAny(norm, c.cues.NearTerm):
		next = domain.IntentUrgency
	}
	signals := append(slices.Clone(result.Signals), SignalTransition)
	return domain.IntentResult{
		Intent:     next,
		Confidence: result.Confidence * c.cfg.TransitionFactor,
		Signals:    signals,
	}
}

// Usable reports whether the result is confident enough to answer from templates.
func (c *Classifier) Usable(result domain.IntentResult) bool {
	return result.Intent != domain.IntentUnknown && !result.Exhausted && result.Confidence >= c.cfg.UsableConfidence
}
