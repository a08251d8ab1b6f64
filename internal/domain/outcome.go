package domain

// Outcome is the terminal classification of a conversation.
type Outcome string

const (
	OutcomeUndetermined  Outcome = "undetermined"
	OutcomeDemo          Outcome = "demo_ready"
	OutcomeSelfService   Outcome = "self_service_ready"
	OutcomeQualifiedLead Outcome = "qualified_lead_ready"
	OutcomeDeferred      Outcome = "deferred_interest"
	OutcomePoliteExit    Outcome = "polite_exit"
)

// TerminalOutcomes lists the outcomes a session can end in, in sampling order.
var TerminalOutcomes = []Outcome{
	OutcomeDemo,
	OutcomeSelfService,
	OutcomeQualifiedLead,
	OutcomeDeferred,
	OutcomePoliteExit,
}

// IsTerminal reports whether o ends a conversation.
func (o Outcome) IsTerminal() bool {
	return o != "" && o != OutcomeUndetermined
}

// ScoreRecord is the graded result of a completed session. It is immutable once saved.
type ScoreRecord struct {
	SessionID           string   `json:"session_id"`
	Listening           int      `json:"listening"`
	Discovery           int      `json:"discovery"`
	Empathy             int      `json:"empathy"`
	AssumptionAvoidance int      `json:"assumption_avoidance"`
	GuardrailDiscipline int      `json:"guardrail_discipline"`
	Bonus               int      `json:"bonus"`
	OutcomeBonus        int      `json:"outcome_bonus"`
	Penalty             int      `json:"penalty"`
	Total               int      `json:"total"`
	Grade               string   `json:"grade"`
	Outcome             Outcome  `json:"outcome"`
	Highlights          []string `json:"highlights"`
	Mistakes            []string `json:"mistakes"`
	Violations          []string `json:"violations"`
}
