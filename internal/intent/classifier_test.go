package intent

import (
	"math"
	"slices"
	"testing"

	"github.com/ashureev/boothsim/internal/domain"
	"github.com/ashureev/boothsim/internal/rules"
)

func TestClassifyCascade(t *testing.T) {
	t.Parallel()

	c := NewClassifier(rules.Default())
	tests := []struct {
		message string
		want    domain.Intent
		conf    float64
	}{
		{"We don't have tracing, so what do you use for incidents?", domain.IntentNoTracing, 0.95},
		{"No tracing here, what does pricing look like?", domain.IntentNoTracing, 0.95},
		{"What are you using for monitoring today?", domain.IntentShareTooling, 0.8},
		{"Are you different from Datadog?", domain.IntentAskDifferentiation, 0.85},
		{"Would you like to see a quick demo?", domain.IntentDemoInterest, 0.85},
		{"Can I scan your badge and show you a demo?", domain.IntentQualifiedLead, 0.9},
		{"How painful are incidents for your on call team?", domain.IntentIncidentPain, 0.85},
		{"Do you get a lot of noisy alerts?", domain.IntentAlertFatigue, 0.85},
		{"Is OpenTelemetry on your roadmap?", domain.IntentAskOpenTelemetry, 0.85},
		{"Hi there!", domain.IntentAskWhatProductIs, 0.75},
		{"Mmm.", domain.IntentUnknown, 0.3},
	}
	for _, tt := range tests {
		got := c.Classify(tt.message, Context{})
		if got.Intent != tt.want || math.Abs(got.Confidence-tt.conf) > 1e-9 {
			t.Errorf("Classify(%q) = %s@%.2f, want %s@%.2f", tt.message, got.Intent, got.Confidence, tt.want, tt.conf)
		}
		if len(got.Signals) == 0 {
			t.Errorf("Classify(%q) returned no signals", tt.message)
		}
	}
}

func TestClassifyDenialIsFirstRule(t *testing.T) {
	t.Parallel()

	c := NewClassifier(rules.Default())
	cascade := c.Rules()
	if cascade[0].Intent != domain.IntentNoTracing || cascade[0].Signal != SignalDenial {
		t.Fatalf("first rule = %+v", cascade[0])
	}
	if len(cascade) != len(rules.Default().Intents.Rules)+1 {
		t.Fatalf("cascade has %d rules", len(cascade))
	}
}

func TestClassifyFollowUp(t *testing.T) {
	t.Parallel()

	c := NewClassifier(rules.Default())
	ctx := Context{Expressed: []domain.Intent{domain.IntentShareTooling, domain.IntentIncidentPain}}
	got := c.Classify("Tell me more.", ctx)
	if got.Intent != domain.IntentIncidentPain || got.Confidence != 0.72 {
		t.Fatalf("follow-up = %+v", got)
	}
	if !slices.Contains(got.Signals, SignalFollowUp) {
		t.Fatalf("expected follow_up signal, got %v", got.Signals)
	}
	if got := c.Classify("Tell me more.", Context{}); got.Intent != domain.IntentUnknown {
		t.Fatalf("follow-up with nothing expressed = %s", got.Intent)
	}
}

func TestApplyExhaustionTransitions(t *testing.T) {
	t.Parallel()

	c := NewClassifier(rules.Default())
	pain := domain.IntentResult{Intent: domain.IntentIncidentPain, Confidence: 0.85, Signals: []string{"describe_incident_pain"}}
	expressed := []domain.Intent{domain.IntentIncidentPain}

	tests := []struct {
		message string
		want    domain.Intent
	}{
		{"That sounds like a lot of effort to fix after an incident", domain.IntentEffortConcern},
		{"So incidents need fixing soon?", domain.IntentUrgency},
		{"More incidents?", domain.IntentNextSteps},
	}
	for _, tt := range tests {
		got := c.ApplyExhaustion(pain, expressed, tt.message)
		if got.Intent != tt.want {
			t.Errorf("ApplyExhaustion(%q) = %s, want %s", tt.message, got.Intent, tt.want)
		}
		if got.Exhausted {
			t.Errorf("transition should not be exhausted")
		}
		if math.Abs(got.Confidence-0.765) > 1e-9 {
			t.Errorf("transition confidence = %v, want 0.765", got.Confidence)
		}
		if !slices.Contains(got.Signals, SignalTransition) {
			t.Errorf("missing transition signal: %v", got.Signals)
		}
	}
	if len(pain.Signals) != 1 {
		t.Fatal("ApplyExhaustion mutated its input")
	}
}

func TestApplyExhaustionMarksExhausted(t *testing.T) {
	t.Parallel()

	c := NewClassifier(rules.Default())
	pricing := domain.IntentResult{Intent: domain.IntentAskPricing, Confidence: 0.85}
	got := c.ApplyExhaustion(pricing, []domain.Intent{domain.IntentAskPricing}, "what does it cost")
	if !got.Exhausted || got.Intent != domain.IntentAskPricing {
		t.Fatalf("expected exhausted pricing, got %+v", got)
	}
	if c.Usable(got) {
		t.Fatal("exhausted result must not be usable")
	}
}

func TestApplyExhaustionLeavesFreshOrWeakResults(t *testing.T) {
	t.Parallel()

	c := NewClassifier(rules.Default())
	fresh := domain.IntentResult{Intent: domain.IntentAskPricing, Confidence: 0.85}
	if got := c.ApplyExhaustion(fresh, nil, "pricing?"); got.Exhausted || got.Intent != fresh.Intent {
		t.Fatalf("fresh result changed: %+v", got)
	}
	weak := domain.IntentResult{Intent: domain.IntentIncidentPain, Confidence: 0.72}
	if got := c.ApplyExhaustion(weak, []domain.Intent{domain.IntentIncidentPain}, "go on"); got.Exhausted || got.Intent != weak.Intent {
		t.Fatalf("weak result changed: %+v", got)
	}
}

func TestUsable(t *testing.T) {
	t.Parallel()

	c := NewClassifier(rules.Default())
	tests := []struct {
		res  domain.IntentResult
		want bool
	}{
		{domain.IntentResult{Intent: domain.IntentAskPricing, Confidence: 0.85}, true},
		{domain.IntentResult{Intent: domain.IntentIncidentPain, Confidence: 0.72}, true},
		{domain.IntentResult{Intent: domain.IntentAskPricing, Confidence: 0.69}, false},
		{domain.IntentResult{Intent: domain.IntentUnknown, Confidence: 0.9}, false},
		{domain.IntentResult{Intent: domain.IntentAskPricing, Confidence: 0.9, Exhausted: true}, false},
	}
	for _, tt := range tests {
		if got := c.Usable(tt.res); got != tt.want {
			t.Errorf("Usable(%+v) = %v, want %v", tt.res, got, tt.want)
		}
	}
}
