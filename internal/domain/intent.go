package domain

// Intent is the communicative purpose the attendee adopts in reply to a trainee message.
type Intent string

const (
	IntentUnknown             Intent = "unknown"
	IntentNoTracing           Intent = "no_tracing"
	IntentAskWhatProductIs    Intent = "ask_what_product_is"
	IntentShareTooling        Intent = "share_current_tooling"
	IntentAskDifferentiation  Intent = "ask_differentiation"
	IntentIncidentPain        Intent = "describe_incident_pain"
	IntentCorrelationPain     Intent = "describe_correlation_pain"
	IntentAlertFatigue        Intent = "describe_alert_fatigue"
	IntentAskOpenTelemetry    Intent = "ask_opentelemetry"
	IntentAskRolloutEffort    Intent = "ask_rollout_effort"
	IntentAskPricing          Intent = "ask_pricing"
	IntentDemoInterest        Intent = "demo_interest"
	IntentSelfService         Intent = "self_service"
	IntentQualifiedLead       Intent = "qualified_lead"
	IntentDeferredInterest    Intent = "deferred_interest"
	IntentEffortConcern       Intent = "effort_concern"
	IntentUrgency             Intent = "urgency"
	IntentNextSteps           Intent = "next_steps"
)

// IntentResult is the classifier's verdict for one trainee message.
type IntentResult struct {
	Intent     Intent   `json:"intent"`
	Confidence float64  `json:"confidence"`
	Signals    []string `json:"signals,omitempty"`
	Exhausted  bool     `json:"exhausted"`
}
