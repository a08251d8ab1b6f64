// Package scoring grades completed sessions.
package scoring

import (
	"fmt"
	"slices"

	"github.com/ashureev/boothsim/internal/domain"
	"github.com/ashureev/boothsim/internal/guardrail"
	"github.com/ashureev/boothsim/internal/rules"
	"github.com/ashureev/boothsim/internal/shared"
)

const maxTotal = 100

// Engine computes score records.
type Engine struct {
	rules *rules.Rules
}

// NewEngine creates a scoring engine over the given rule set.
func NewEngine(r *rules.Rules) *Engine {
	return &Engine{rules: r}
}

// counts are phrase tallies over every trainee message.
type counts struct {
	listening      int
	discovery      int
	empathy        int
	asking         int
	customerImpact int
}

// Score grades the final session. It is pure and does not modify s.
func (e *Engine) Score(s domain.Session) domain.ScoreRecord {
	cfg := e.rules.Scoring
	c := e.count(s)

	assumptions, earlyPitches := 0, 0
	for _, v := range s.Violations {
		switch {
		case guardrail.IsAssumption(v):
			assumptions++
		case guardrail.IsEarlyPitch(v):
			earlyPitches++
		}
	}

	rec := domain.ScoreRecord{
		SessionID:           s.ID,
		Listening:           e.sub(cfg.Listening, c.listening),
		Discovery:           e.sub(cfg.Discovery, c.discovery),
		Empathy:             e.sub(cfg.Empathy, c.empathy),
		AssumptionAvoidance: e.clamp(cfg.AssumptionAvoidance.Base + cfg.AssumptionAvoidance.Increment*c.asking - cfg.AssumptionPenalty*assumptions),
		GuardrailDiscipline: e.clamp(cfg.MaxSubScore - cfg.ViolationPenalty*len(s.Violations) - cfg.EarlyPitchPenalty*earlyPitches),
		Outcome:             s.Outcome,
		Violations:          slices.Clone(s.Violations),
	}
	if rec.Outcome == "" {
		rec.Outcome = domain.OutcomeUndetermined
	}
	if rec.Violations == nil {
		rec.Violations = []string{}
	}
	if c.customerImpact > 0 {
		rec.Bonus = cfg.CustomerImpactBonus
	}
	reached := rec.Outcome.IsTerminal()
	if reached {
		rec.OutcomeBonus = cfg.OutcomeBonuses[rec.Outcome]
	}
	limit := e.rules.TurnLimit(difficulty(s))
	if !reached && s.TraineeTurns() > limit {
		rec.Penalty = cfg.InefficiencyPenalty
	}

	total := rec.Listening + rec.Discovery + rec.Empathy + rec.AssumptionAvoidance + rec.GuardrailDiscipline +
		rec.Bonus + rec.OutcomeBonus - rec.Penalty
	rec.Total = min(max(total, 0), maxTotal)
	rec.Grade = e.Grade(rec.Total, rec.Outcome)
	rec.Highlights, rec.Mistakes = e.feedback(rec, c, limit)
	return rec
}

// Grade maps a total to a letter, then raises it to the outcome's floor if one is configured.
func (e *Engine) Grade(total int, outcome domain.Outcome) string {
	thresholds := e.rules.Scoring.GradeThresholds
	if len(thresholds) == 0 {
		return ""
	}
	grade := thresholds[len(thresholds)-1].Grade
	for _, t := range thresholds {
		if total >= t.Min {
			grade = t.Grade
			break
		}
	}
	if !outcome.IsTerminal() {
		return grade
	}
	floor, ok := e.rules.Scoring.GradeFloors[outcome]
	if !ok {
		return grade
	}
	if e.rules.GradeRank(grade) > e.rules.GradeRank(floor) {
		return floor
	}
	return grade
}

func (e *Engine) count(s domain.Session) counts {
	cfg := e.rules.Scoring
	var c counts
	for _, m := range s.Transcript {
		if m.Type != domain.MessageTrainee {
			continue
		}
		norm := shared.Normalize(m.Text)
		c.listening += shared.CountPhrases(norm, cfg.Listening.Phrases)
		c.discovery += shared.CountPhrases(norm, cfg.Discovery.Phrases)
		c.empathy += shared.CountPhrases(norm, cfg.Empathy.Phrases)
		c.asking += shared.CountPhrases(norm, cfg.AssumptionAvoidance.Phrases)
		c.customerImpact += shared.CountPhrases(norm, cfg.CustomerImpactPhrases)
	}
	return c
}

func (e *Engine) sub(rule rules.SubScoreRule, n int) int {
	return e.clamp(rule.Base + rule.Increment*n)
}

func (e *Engine) clamp(v int) int {
	return min(max(v, 0), e.rules.Scoring.MaxSubScore)
}

func (e *Engine) feedback(rec domain.ScoreRecord, c counts, limit int) (highlights, mistakes []string) {
	highlights, mistakes = []string{}, []string{}
	if rec.Outcome.IsTerminal() && rec.Outcome != domain.OutcomePoliteExit {
		highlights = append(highlights, fmt.Sprintf("reached a %s outcome", rec.Outcome))
	}
	if c.discovery > 0 {
		highlights = append(highlights, fmt.Sprintf("asked %d discovery questions", c.discovery))
	} else {
		mistakes = append(mistakes, "no discovery questions about their world")
	}
	if c.empathy > 0 {
		highlights = append(highlights, "acknowledged the attendee's pain")
	} else {
		mistakes = append(mistakes, "never acknowledged the attendee's pain")
	}
	if c.listening > 0 {
		highlights = append(highlights, "reflected back what the attendee said")
	}
	if rec.Bonus > 0 {
		highlights = append(highlights, "connected the problem to customer impact")
	}
	if len(rec.Violations) == 0 {
		highlights = append(highlights, "no guardrail violations")
	}
	mistakes = append(mistakes, rec.Violations...)
	if rec.Penalty > 0 {
		mistakes = append(mistakes, fmt.Sprintf("ran past %d turns without reaching an outcome", limit))
	}
	return highlights, mistakes
}

func difficulty(s domain.Session) string {
	if s.Difficulty != "" {
		return s.Difficulty
	}
	return s.Persona.Difficulty
}
