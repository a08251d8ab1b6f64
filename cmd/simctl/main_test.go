package main

import (
	"bytes"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestReplayIsReproducible(t *testing.T) {
	first, err := execute(t, "replay", "--script", "testdata/discovery.yaml")
	if err != nil {
		t.Fatalf("replay failed: %v\n%s", err, first)
	}
	second, err := execute(t, "replay", "--script", "testdata/discovery.yaml")
	if err != nil {
		t.Fatalf("second replay failed: %v", err)
	}
	if first != second {
		t.Fatalf("replay output differs between runs:\n%s\n---\n%s", first, second)
	}
	for _, want := range []string{"persona: Sam", "#1 [", "trainee: What brings you by the booth today?", "score:"} {
		if !strings.Contains(first, want) {
			t.Errorf("output missing %q:\n%s", want, first)
		}
	}
}

func TestReplayRequiresScript(t *testing.T) {
	if _, err := execute(t, "replay"); err == nil {
		t.Fatal("expected missing --script to fail")
	}
	if _, err := execute(t, "replay", "--script", "testdata/missing.yaml"); err == nil {
		t.Fatal("expected unreadable script to fail")
	}
}

func TestPersonasListsPresets(t *testing.T) {
	out, err := execute(t, "personas")
	if err != nil {
		t.Fatalf("personas failed: %v", err)
	}
	for _, key := range []string{"KEY", "skeptical-sre", "curious-developer", "student"} {
		if !strings.Contains(out, key) {
			t.Errorf("personas output missing %q:\n%s", key, out)
		}
	}
}

func TestCheckRules(t *testing.T) {
	out, err := execute(t, "check-rules", "../../internal/rules/testdata/override.yaml")
	if err != nil {
		t.Fatalf("valid rules rejected: %v\n%s", err, out)
	}

	out, err = execute(t, "check-rules", "testdata/bad_rules.yaml")
	if err == nil {
		t.Fatalf("expected invalid rules to fail:\n%s", out)
	}
	if !strings.Contains(out, "FAIL testdata/bad_rules.yaml") {
		t.Errorf("unexpected output: %s", out)
	}
}
