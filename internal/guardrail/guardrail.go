// Package guardrail flags rule breaches in trainee messages.
package guardrail

import (
	"strings"

	"github.com/ashureev/boothsim/internal/domain"
	"github.com/ashureev/boothsim/internal/rules"
	"github.com/ashureev/boothsim/internal/shared"
)

// Issue texts recorded on the session. Scoring keys off these.
const (
	IssueEarlyPitch         = "early pitch detected"
	IssueAssumedFamiliarity = "assumed familiarity without asking"
	bannedKeywordPrefix     = "used banned keyword: "
)

// assertionWindow is how many words after an assertion phrase may name the technology.
const assertionWindow = 5

// BannedKeywordIssue formats the issue for a banned keyword.
func BannedKeywordIssue(keyword string) string {
	return bannedKeywordPrefix + keyword
}

// Result is the analysis of one trainee message.
type Result struct {
	Issues                  []string `json:"issues"`
	IsQuestion              bool     `json:"is_question"`
	IsOpenEnded             bool     `json:"is_open_ended"`
	IsEmpathetic            bool     `json:"is_empathetic"`
	MentionsRestrictedTopic bool     `json:"mentions_restricted_topic"`
	RestrictedTopic         string   `json:"restricted_topic,omitempty"`
}

// Clean reports whether no issue was raised.
func (r Result) Clean() bool {
	return len(r.Issues) == 0
}

// Analyzer evaluates guardrail rules against trainee messages.
type Analyzer struct {
	rules *rules.Rules
}

// NewAnalyzer creates an analyzer over the given rule set.
func NewAnalyzer(r *rules.Rules) *Analyzer {
	return &Analyzer{rules: r}
}

// Analyze runs every check independently. It has no side effects.
func (a *Analyzer) Analyze(message string, phase domain.Phase) Result {
	g := a.rules.Guardrails
	norm := shared.Normalize(message)

	res := Result{
		Issues:       []string{},
		IsQuestion:   strings.Contains(message, "?") || shared.StartsWithAny(norm, g.InterrogativeStarters),
		IsEmpathetic: shared.ContainsAny(norm, g.EmpathyPhrases),
	}
	res.IsOpenEnded = shared.ContainsAny(norm, g.OpenEndedPrompts) ||
		(res.IsQuestion && shared.ContainsAny(norm, g.OpenEndedMarkers) && !shared.StartsWithAny(norm, g.ClosedStarters))

	if topic, ok := shared.MatchAny(norm, g.RestrictedTopics); ok {
		res.MentionsRestrictedTopic = true
		res.RestrictedTopic = topic
	}

	for _, kw := range a.rules.BannedKeywords {
		if shared.ContainsPhrase(norm, kw) {
			res.Issues = append(res.Issues, BannedKeywordIssue(kw))
		}
	}
	if phase == domain.PhaseOpening && a.earlyPitch(norm, res.IsQuestion) {
		res.Issues = append(res.Issues, IssueEarlyPitch)
	}
	if a.assumesFamiliarity(norm) {
		res.Issues = append(res.Issues, IssueAssumedFamiliarity)
	}
	return res
}

func (a *Analyzer) earlyPitch(norm string, isQuestion bool) bool {
	g := a.rules.Guardrails
	if shared.ContainsAny(norm, g.CompetitorPhrases) {
		return true
	}
	return !isQuestion && shared.ContainsAny(norm, g.PitchPhrases)
}

// assumesFamiliarity reports an assertion phrase shortly followed by a named technology,
// unless an asking phrase comes before the assertion.
func (a *Analyzer) assumesFamiliarity(norm string) bool {
	g := a.rules.Guardrails
	padded := " " + norm + " "
	firstAsk := firstIndex(padded, g.AskingPhrases)
	for _, phrase := range g.AssertionPhrases {
		p := shared.Normalize(phrase)
		if p == "" {
			continue
		}
		at := strings.Index(padded, " "+p+" ")
		if at < 0 {
			continue
		}
		if firstAsk >= 0 && firstAsk < at {
			continue
		}
		tail := strings.Fields(padded[at+len(p)+1:])
		if len(tail) > assertionWindow {
			tail = tail[:assertionWindow]
		}
		if shared.ContainsAny(strings.Join(tail, " "), g.Technologies) {
			return true
		}
	}
	return false
}

func firstIndex(padded string, phrases []string) int {
	best := -1
	for _, phrase := range phrases {
		p := shared.Normalize(phrase)
		if p == "" {
			continue
		}
		if i := strings.Index(padded, " "+p+" "); i >= 0 && (best < 0 || i < best) {
			best = i
		}
	}
	return best
}

// IsEarlyPitch reports whether a recorded violation is a premature pitch.
func IsEarlyPitch(issue string) bool {
	return issue == IssueEarlyPitch
}

// IsAssumption reports whether a recorded violation is an unearned assumption.
func IsAssumption(issue string) bool {
	return issue == IssueAssumedFamiliarity
}
