package outcome

import (
	"fmt"
	"math"
	"testing"

	"github.com/ashureev/boothsim/internal/domain"
	"github.com/ashureev/boothsim/internal/rules"
)

func transcript(lines ...string) []domain.Message {
	msgs := make([]domain.Message, 0, len(lines))
	for i, line := range lines {
		typ := domain.MessageTrainee
		if i%2 == 1 {
			typ = domain.MessageAttendee
		}
		msgs = append(msgs, domain.Message{ID: fmt.Sprint(i), Type: typ, Text: line})
	}
	return msgs
}

func sreInput(lines ...string) Input {
	return Input{
		Phase:      domain.PhaseSolutionFraming,
		Transcript: transcript(lines...),
		Tooling:    []string{"Prometheus", "Grafana", "PagerDuty"},
		Persona:    domain.Persona{Role: "Senior SRE"},
		Seed:       "s1",
		TurnIndex:  5,
	}
}

func TestResolveExplicitOverrides(t *testing.T) {
	t.Parallel()

	r := NewResolver(rules.Default())
	tests := []struct {
		name   string
		lines  []string
		want   domain.Outcome
		reason string
	}{
		{"qualified lead", []string{"Want us to follow up?", "Sure, scan my badge and have sales follow up. We need something this quarter."},
			domain.OutcomeQualifiedLead, ReasonExplicitQualifiedLead},
		{"qualified lead with earlier urgency", []string{"How urgent is this?", "We're actively looking right now.", "Shall we connect you with sales?", "Sure, scan my badge, have sales follow up."},
			domain.OutcomeQualifiedLead, ReasonExplicitQualifiedLead},
		{"demo", []string{"Want to see it?", "Yeah, show me."}, domain.OutcomeDemo, ReasonExplicitDemo},
		{"self service", []string{"Docs?", "Send me the docs and I'll poke around."}, domain.OutcomeSelfService, ReasonExplicitSelfService},
		{"deferred", []string{"Timing?", "Not right now, maybe next quarter."}, domain.OutcomeDeferred, ReasonExplicitDeferred},
		{"self service beats deferred", []string{"Timing?", "Not right now, but I'll read the docs."}, domain.OutcomeSelfService, ReasonExplicitSelfService},
		{"polite exit", []string{"So...", "I should go, thanks anyway."}, domain.OutcomePoliteExit, ReasonExplicitPoliteExit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := r.Resolve(sreInput(tt.lines...))
			if d.Outcome != tt.want || d.Reason != tt.reason || !d.Explicit {
				t.Fatalf("Resolve = %s (%s, explicit=%v), want %s (%s)", d.Outcome, d.Reason, d.Explicit, tt.want, tt.reason)
			}
		})
	}
}

func TestResolveQualifiedLeadNeedsNearTerm(t *testing.T) {
	t.Parallel()

	d := NewResolver(rules.Default()).Resolve(sreInput("Want a follow up?", "Sure, scan my badge."))
	if d.Reason == ReasonExplicitQualifiedLead {
		t.Fatal("qualified lead override fired without a near-term signal")
	}
	if d.Reason != ReasonWeightedSample {
		t.Fatalf("expected weighted sample, got %s", d.Reason)
	}
}

func TestResolveAttendeeQuestionIsUndetermined(t *testing.T) {
	t.Parallel()

	r := NewResolver(rules.Default())
	for _, line := range []string{
		"Sure, could you scan my badge and have sales follow up this quarter?",
		"Can I see a demo?",
		"What does pricing look like?",
	} {
		d := r.Resolve(sreInput("hi", line))
		if d.Terminal() || d.Reason != ReasonAttendeeQuestion {
			t.Errorf("Resolve(%q) = %s (%s), want undetermined", line, d.Outcome, d.Reason)
		}
	}
}

func TestResolvePhaseGate(t *testing.T) {
	t.Parallel()

	in := sreInput("hi", "Yeah, show me.")
	in.Phase = domain.PhasePainDiscovery
	d := NewResolver(rules.Default()).Resolve(in)
	if d.Terminal() || d.Reason != ReasonPhaseNotEligible {
		t.Fatalf("Resolve = %s (%s)", d.Outcome, d.Reason)
	}
}

func TestResolveNoBandMatch(t *testing.T) {
	t.Parallel()

	in := sreInput("hi", "Hmm, interesting.")
	in.Persona.Role = "Sommelier"
	d := NewResolver(rules.Default()).Resolve(in)
	if d.Outcome != domain.OutcomeUndetermined || d.Reason != ReasonNoBandMatch {
		t.Fatalf("Resolve = %s (%s)", d.Outcome, d.Reason)
	}
}

func TestResolveWeightedSample(t *testing.T) {
	t.Parallel()

	r := NewResolver(rules.Default())
	in := sreInput("What brings you here?", "Hmm, interesting.")
	first := r.Resolve(in)
	second := r.Resolve(in)
	if first.Outcome != second.Outcome || first.Draw != second.Draw {
		t.Fatal("weighted sample is not reproducible")
	}
	if first.Reason != ReasonWeightedSample || first.BandKey != "sre" {
		t.Fatalf("decision = %+v", first)
	}
	if _, ok := first.Weights[first.Outcome]; !ok {
		t.Fatalf("sampled %s outside plausible set %v", first.Outcome, first.Weights)
	}
	sum := 0.0
	for _, w := range first.Weights {
		sum += w
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Fatalf("weights sum to %v", sum)
	}
	if _, ok := first.Weights[domain.OutcomeDemo]; ok {
		t.Error("demo should not be plausible without eligibility")
	}
	if _, ok := first.Weights[domain.OutcomeQualifiedLead]; ok {
		t.Error("qualified lead should not be plausible without acceptance")
	}
	if len(first.Jittered) != len(domain.TerminalOutcomes) {
		t.Errorf("jittered weights = %v", first.Jittered)
	}
}

func TestResolveJitterStaysWithinTolerance(t *testing.T) {
	t.Parallel()

	r := NewResolver(rules.Default())
	band, _ := rules.Default().BandFor("Senior SRE")
	for turn := 1; turn <= 30; turn++ {
		in := sreInput("Tell me about your customers", "Our customers notice outages and my team is evaluating fixes.")
		in.TurnIndex = turn
		d := r.Resolve(in)
		if d.Reason != ReasonWeightedSample {
			t.Fatalf("turn %d reason %s", turn, d.Reason)
		}
		// Each raw weight moves by at most the tolerance before the jittered set is renormalized.
		var rawSum float64
		for _, o := range domain.TerminalOutcomes {
			rawSum += band.Weights[o]
		}
		for _, o := range domain.TerminalOutcomes {
			lo := math.Max(0, band.Weights[o]-band.Tolerance) / (rawSum + float64(len(domain.TerminalOutcomes))*band.Tolerance)
			hi := (band.Weights[o] + band.Tolerance) / math.Max(rawSum-float64(len(domain.TerminalOutcomes))*band.Tolerance, 1e-9)
			if w := d.Jittered[o]; w < lo-1e-9 || w > hi+1e-9 {
				t.Fatalf("turn %d: jittered %s = %v outside [%v, %v]", turn, o, w, lo, hi)
			}
		}
	}
}

func TestResolveNeverDemoWhenIneligible(t *testing.T) {
	t.Parallel()

	r := NewResolver(rules.Default())
	for i := 0; i < 200; i++ {
		in := sreInput("hello", "Okay then.")
		in.Seed = fmt.Sprintf("seed-%d", i)
		d := r.Resolve(in)
		if d.DemoEligible {
			t.Fatalf("unexpected eligibility %d", d.Eligibility)
		}
		if d.Outcome == domain.OutcomeDemo {
			t.Fatalf("seed %s sampled demo while ineligible", in.Seed)
		}
	}
}

func TestResolveNoPlausibleOutcomes(t *testing.T) {
	t.Parallel()

	rs := rules.Default()
	rs.Bands = []rules.OutcomeBand{{
		Key:     "demo_only",
		Match:   []string{"sre"},
		Weights: map[domain.Outcome]float64{domain.OutcomeDemo: 1},
	}}
	d := NewResolver(rs).Resolve(sreInput("hi", "Hmm."))
	if d.Outcome != domain.OutcomeUndetermined || d.Reason != ReasonNoPlausibleOutcomes {
		t.Fatalf("Resolve = %s (%s)", d.Outcome, d.Reason)
	}
}

func TestEligibility(t *testing.T) {
	t.Parallel()

	r := NewResolver(rules.Default())
	msgs := transcript(
		"How does this affect your customers?",
		"Our rollout of Prometheus took ages.",
		"Who else is involved?",
		"My team has to evaluate anything new this quarter.",
	)
	if got := r.Eligibility(msgs, []string{"Prometheus"}); got != 5 {
		t.Fatalf("Eligibility = %d, want 5", got)
	}
	if got := r.Eligibility(transcript("hi", "hello"), []string{"Prometheus"}); got != 0 {
		t.Fatalf("Eligibility = %d, want 0", got)
	}
}

func TestSample(t *testing.T) {
	t.Parallel()

	w := map[domain.Outcome]float64{domain.OutcomeDemo: 0.5, domain.OutcomePoliteExit: 0.5}
	if got := sample(w, 0.4); got != domain.OutcomeDemo {
		t.Errorf("sample(0.4) = %s", got)
	}
	if got := sample(w, 0.6); got != domain.OutcomePoliteExit {
		t.Errorf("sample(0.6) = %s", got)
	}
	if got := sample(w, 0.9999999999); got != domain.OutcomePoliteExit {
		t.Errorf("sample(~1) = %s", got)
	}
}
