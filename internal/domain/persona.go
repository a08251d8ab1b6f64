package domain

import "strings"

// Persona describes the synthetic attendee. All fields are free text.
type Persona struct {
	Key              string   `json:"key,omitempty" yaml:"key"`
	Name             string   `json:"name,omitempty" yaml:"name"`
	Role             string   `json:"role" yaml:"role"`
	Modifiers        []string `json:"modifiers,omitempty" yaml:"modifiers"`
	EmotionalPosture string   `json:"emotional_posture,omitempty" yaml:"emotional_posture"`
	ToolingBias      string   `json:"tooling_bias,omitempty" yaml:"tooling_bias"`
	Familiarity      string   `json:"familiarity,omitempty" yaml:"familiarity"`
	Difficulty       string   `json:"difficulty,omitempty" yaml:"difficulty"`
}

// Describe renders the persona as a single line for prompts and logs.
func (p Persona) Describe() string {
	parts := []string{p.Role}
	if len(p.Modifiers) > 0 {
		parts = append(parts, strings.Join(p.Modifiers, ", "))
	}
	if p.EmotionalPosture != "" {
		parts = append(parts, "feeling "+p.EmotionalPosture)
	}
	if p.ToolingBias != "" {
		parts = append(parts, "prefers "+p.ToolingBias)
	}
	if p.Familiarity != "" {
		parts = append(parts, p.Familiarity+" familiarity with observability")
	}
	return strings.Join(parts, "; ")
}
