package rules

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/ashureev/boothsim/internal/domain"
)

func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default rules invalid: %v", err)
	}
}

func TestDefaultReturnsFreshValue(t *testing.T) {
	a := Default()
	a.BannedKeywords[0] = "changed"
	a.TurnLimits["medium"] = 1
	b := Default()
	if b.BannedKeywords[0] == "changed" || b.TurnLimits["medium"] == 1 {
		t.Fatal("Default shares state between calls")
	}
}

func TestDefaultCoversEveryPhaseAndIntent(t *testing.T) {
	r := Default()
	for _, p := range domain.PhaseOrder {
		if _, ok := r.CannedReplies[p]; !ok {
			t.Errorf("no canned reply for phase %s", p)
		}
	}
	for _, rule := range r.Intents.Rules {
		if len(r.Responses[rule.Intent]) == 0 {
			t.Errorf("intent %s has no response variants", rule.Intent)
		}
	}
	for _, in := range []domain.Intent{domain.IntentNoTracing, domain.IntentEffortConcern, domain.IntentUrgency, domain.IntentNextSteps} {
		if len(r.Responses[in]) == 0 {
			t.Errorf("intent %s has no response variants", in)
		}
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	r, err := Load(filepath.Join("testdata", "override.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(r.BannedKeywords) != 2 || r.BannedKeywords[1] != "leverage" {
		t.Errorf("banned keywords not replaced: %v", r.BannedKeywords)
	}
	if got := r.TurnLimit("hard"); got != 8 {
		t.Errorf("TurnLimit(hard) = %d, want 8", got)
	}
	if got := r.TurnLimit("medium"); got != 12 {
		t.Errorf("TurnLimit(medium) = %d, want default 12", got)
	}
	if len(r.Bands) != 1 || r.Bands[0].Key != "sre" {
		t.Errorf("bands not replaced: %+v", r.Bands)
	}
	if len(r.Personas) == 0 {
		t.Error("personas should keep their defaults")
	}
}

func TestParseEmptyDocumentKeepsDefaults(t *testing.T) {
	r, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(r.Intents.Rules) != len(Default().Intents.Rules) {
		t.Error("expected default intent rules")
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	if _, err := Parse([]byte("banned_words: [x]\n")); err == nil {
		t.Fatal("expected unknown field to be rejected")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *Rules)
	}{
		{"missing phase rule", func(r *Rules) { r.Phases = r.Phases[:4] }},
		{"confidence out of range", func(r *Rules) { r.Intents.UsableConfidence = 1.5 }},
		{"empty intent rule", func(r *Rules) { r.Intents.Rules[0].Phrases = nil }},
		{"negative band weight", func(r *Rules) { r.Bands[0].Weights[domain.OutcomeDemo] = -0.1 }},
		{"unknown band outcome", func(r *Rules) { r.Bands[0].Weights[domain.OutcomeUndetermined] = 0.1 }},
		{"thresholds not descending", func(r *Rules) { r.Scoring.GradeThresholds[1].Min = 95 }},
		{"unknown floor grade", func(r *Rules) { r.Scoring.GradeFloors[domain.OutcomeDemo] = "S" }},
		{"zero turn limit", func(r *Rules) { r.TurnLimits["easy"] = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Default()
			tt.mutate(r)
			err := r.Validate()
			if !errors.Is(err, ErrInvalidRules) {
				t.Fatalf("Validate() = %v, want ErrInvalidRules", err)
			}
		})
	}
}

func TestBandFor(t *testing.T) {
	r := Default()
	tests := []struct {
		role string
		want string
		ok   bool
	}{
		{"Senior SRE", "sre", true},
		{"Director of Engineering", "engineering_manager", true},
		{"Platform Engineer", "platform", true},
		{"Computer Science Student", "student", true},
		{"Backend Developer", "developer", true},
		{"Sommelier", "", false},
	}
	for _, tt := range tests {
		b, ok := r.BandFor(tt.role)
		if ok != tt.ok || b.Key != tt.want {
			t.Errorf("BandFor(%q) = %q, %v; want %q, %v", tt.role, b.Key, ok, tt.want, tt.ok)
		}
	}
}

func TestToolingFor(t *testing.T) {
	r := Default()
	got := r.ToolingFor("Senior SRE")
	if len(got) != 3 || got[0] != "Prometheus" {
		t.Fatalf("ToolingFor(SRE) = %v", got)
	}
	got[0] = "mutated"
	if r.ToolingFor("Senior SRE")[0] != "Prometheus" {
		t.Fatal("ToolingFor must return a copy")
	}
	if def := r.ToolingFor("Sommelier"); len(def) != 2 || def[1] != "Grafana" {
		t.Fatalf("default tooling = %v", def)
	}
}

func TestTurnLimitFallbacks(t *testing.T) {
	r := Default()
	if got := r.TurnLimit("HARD"); got != 10 {
		t.Errorf("TurnLimit(HARD) = %d", got)
	}
	if got := r.TurnLimit("unknown"); got != 12 {
		t.Errorf("TurnLimit(unknown) = %d", got)
	}
	r.TurnLimits = nil
	if got := r.TurnLimit("easy"); got != 12 {
		t.Errorf("TurnLimit with no table = %d", got)
	}
}

func TestPersonaAndGradeRank(t *testing.T) {
	r := Default()
	if p, ok := r.Persona("skeptical-sre"); !ok || p.Difficulty != "hard" {
		t.Errorf("Persona(skeptical-sre) = %+v, %v", p, ok)
	}
	if _, ok := r.Persona("nobody"); ok {
		t.Error("expected unknown persona miss")
	}
	if r.GradeRank("A") != 0 || r.GradeRank("F") != 4 || r.GradeRank("Z") != -1 {
		t.Error("unexpected grade ranks")
	}
}
