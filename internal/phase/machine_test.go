package phase

import (
	"testing"
	"time"

	"github.com/ashureev/boothsim/internal/domain"
	"github.com/ashureev/boothsim/internal/guardrail"
	"github.com/ashureev/boothsim/internal/rules"
)

func TestEvaluate(t *testing.T) {
	t.Parallel()

	m := NewMachine(rules.Default())
	clean := guardrail.Result{Issues: []string{}}
	openQ := guardrail.Result{IsQuestion: true, IsOpenEnded: true}
	openStatement := guardrail.Result{IsOpenEnded: true}
	empathetic := guardrail.Result{IsEmpathetic: true}
	dirty := guardrail.Result{Issues: []string{guardrail.IssueEarlyPitch}, IsQuestion: true, IsOpenEnded: true, IsEmpathetic: true}

	tests := []struct {
		name     string
		phase    domain.Phase
		guard    guardrail.Result
		attendee string
		want     domain.Phase
		reason   string
	}{
		{"opening open question", domain.PhaseOpening, openQ, "", domain.PhaseExploration, ReasonOpenQuestion},
		{"opening statement", domain.PhaseOpening, openStatement, "", domain.PhaseOpening, ReasonCriteriaNotMet},
		{"opening with issue", domain.PhaseOpening, dirty, "", domain.PhaseOpening, ReasonGuardrailBlocked},
		{"exploration open statement", domain.PhaseExploration, openStatement, "", domain.PhasePainDiscovery, ReasonOpenEnded},
		{"exploration closed", domain.PhaseExploration, clean, "", domain.PhaseExploration, ReasonCriteriaNotMet},
		{"pain empathy", domain.PhasePainDiscovery, empathetic, "", domain.PhaseSolutionFraming, ReasonEmpathy},
		{"pain no empathy", domain.PhasePainDiscovery, openQ, "", domain.PhasePainDiscovery, ReasonCriteriaNotMet},
		{"framing without commitment", domain.PhaseSolutionFraming, openQ, "Interesting, maybe.", domain.PhaseSolutionFraming, ReasonAwaitingCommitment},
		{"framing next-step question", domain.PhaseSolutionFraming, clean, "Okay, so what would a next step look like with you?", domain.PhaseSolutionFraming, ReasonAwaitingCommitment},
		{"framing with commitment", domain.PhaseSolutionFraming, clean, "Sure, scan my badge.", domain.PhaseOutcome, ReasonCommitment},
		{"framing commitment but issue", domain.PhaseSolutionFraming, dirty, "Scan my badge.", domain.PhaseSolutionFraming, ReasonGuardrailBlocked},
		{"outcome stays", domain.PhaseOutcome, openQ, "Send me the docs.", domain.PhaseOutcome, ReasonTerminal},
		{"drift resets", domain.Phase("closing"), openQ, "", domain.PhaseOpening, ReasonReset},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := m.Evaluate(tt.phase, tt.guard, tt.attendee)
			if d.To != tt.want || d.Reason != tt.reason {
				t.Fatalf("Evaluate = %s (%s), want %s (%s)", d.To, d.Reason, tt.want, tt.reason)
			}
		})
	}
}

func TestPhaseNeverRegresses(t *testing.T) {
	t.Parallel()

	m := NewMachine(rules.Default())
	guards := []guardrail.Result{
		{IsQuestion: true, IsOpenEnded: true},
		{Issues: []string{"used banned keyword: synergy"}},
		{IsEmpathetic: true},
		{},
		{IsOpenEnded: true},
	}
	lines := []string{"", "Send me the docs", "Let's book a demo", "maybe"}
	s := &domain.Session{Phase: domain.PhaseOpening}
	last := domain.PhaseIndex(s.Phase)
	for i := 0; i < 200; i++ {
		d := m.Evaluate(s.Phase, guards[(i*7)%len(guards)], lines[(i*3)%len(lines)])
		Apply(s, d, time.Unix(int64(i), 0))
		idx := domain.PhaseIndex(s.Phase)
		if idx < last {
			t.Fatalf("phase regressed from %d to %d at step %d", last, idx, i)
		}
		last = idx
	}
	for _, tr := range s.PhaseHistory {
		if domain.PhaseIndex(tr.To) != domain.PhaseIndex(tr.From)+1 {
			t.Fatalf("history has a non-forward move %+v", tr)
		}
	}
}

func TestApplyRecordsHistory(t *testing.T) {
	t.Parallel()

	s := &domain.Session{Phase: domain.PhaseOpening}
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	Apply(s, Decision{From: domain.PhaseOpening, To: domain.PhaseExploration, Advanced: true}, at)
	if s.Phase != domain.PhaseExploration || len(s.PhaseHistory) != 1 || !s.PhaseHistory[0].At.Equal(at) {
		t.Fatalf("unexpected session after advance: %+v", s)
	}
	Apply(s, Decision{From: domain.PhaseExploration, To: domain.PhaseExploration}, at)
	if len(s.PhaseHistory) != 1 {
		t.Fatal("no-op decision should not record history")
	}

	drifted := &domain.Session{Phase: domain.Phase("bogus")}
	Apply(drifted, Decision{From: "bogus", To: domain.PhaseOpening, Reason: ReasonReset}, at)
	if drifted.Phase != domain.PhaseOpening || len(drifted.PhaseHistory) != 0 {
		t.Fatalf("reset should not enter history: %+v", drifted)
	}
}
