package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/ashureev/boothsim/internal/agent"
	"github.com/ashureev/boothsim/internal/domain"
	"github.com/ashureev/boothsim/internal/engine"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var errEmptyScript = errors.New("script has no messages")

// replayScript is a scripted trainee side of a conversation.
type replayScript struct {
	Persona    string          `yaml:"persona"`
	Custom     *domain.Persona `yaml:"custom_persona"`
	Difficulty string          `yaml:"difficulty"`
	Seed       string          `yaml:"seed"`
	Messages   []string        `yaml:"messages"`
}

func newReplayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay --script file.yaml",
		Short: "Replay a scripted conversation against the engine",
		Long: `Runs every trainee message of the script through the engine with the
mock generator and prints phase, intent, reply and the final score. The same
script and seed always print the same transcript.`,
		Args: cobra.NoArgs,
		RunE: runReplay,
	}
	cmd.Flags().String("script", "", "conversation script (YAML)")
	_ = cmd.MarkFlagRequired("script")
	return cmd
}

func runReplay(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.Flags().GetString("script")
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read script: %w", err)
	}
	var script replayScript
	if err := yaml.Unmarshal(data, &script); err != nil {
		return fmt.Errorf("decode script: %w", err)
	}
	if len(script.Messages) == 0 {
		return errEmptyScript
	}

	r, err := loadRules(cmd)
	if err != nil {
		return err
	}
	persona, err := scriptPersona(r.Persona, script)
	if err != nil {
		return err
	}
	if script.Seed == "" {
		script.Seed = "replay"
	}

	e := engine.New(r, engine.Options{
		Fallback: agent.NewMockGenerator(),
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Clock:    replayClock(),
		NewID:    sequentialIDs(script.Seed),
	})
	s := e.StartSession(engine.StartParams{
		TraineeID:  "trn_replay",
		Persona:    persona,
		Difficulty: script.Difficulty,
		Seed:       script.Seed,
	})

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "persona: %s (%s)\n", persona.Name, persona.Role)
	for _, m := range s.Transcript {
		fmt.Fprintf(out, "%s: %s\n", m.Type, m.Text)
	}

	for i, msg := range script.Messages {
		if !s.Active {
			fmt.Fprintf(out, "session ended before message %d\n", i+1)
			break
		}
		res, err := e.ProcessTurn(cmd.Context(), s, msg)
		if err != nil {
			return fmt.Errorf("turn %d: %w", i+1, err)
		}
		s = res.Session
		fmt.Fprintf(out, "\n#%d [%s -> %s] intent=%s (%.2f) source=%s\n",
			i+1, res.Phase.From, res.Phase.To, res.Intent.Intent, res.Intent.Confidence, res.Source)
		fmt.Fprintf(out, "trainee: %s\n", res.Trainee.Text)
		fmt.Fprintf(out, "attendee: %s\n", res.Reply.Text)
		if len(res.Guardrail.Issues) > 0 {
			fmt.Fprintf(out, "issues: %s\n", strings.Join(res.Guardrail.Issues, "; "))
		}
		if res.Outcome != nil {
			fmt.Fprintf(out, "outcome: %s (%s)\n", res.Outcome.Outcome, res.Outcome.Reason)
		}
	}

	score := e.Score(s)
	if s.Active {
		s, score, err = e.EndSession(s)
		if err != nil {
			return err
		}
	}
	printScore(out, s, score)
	return nil
}

func scriptPersona(lookup func(string) (domain.Persona, bool), script replayScript) (domain.Persona, error) {
	if script.Custom != nil {
		return *script.Custom, nil
	}
	p, ok := lookup(script.Persona)
	if !ok {
		return domain.Persona{}, fmt.Errorf("unknown persona %q", script.Persona)
	}
	return p, nil
}

func printScore(out io.Writer, s domain.Session, score domain.ScoreRecord) {
	fmt.Fprintf(out, "\noutcome: %s (%s)\n", s.Outcome, s.OutcomeReason)
	fmt.Fprintf(out, "score: %d grade %s\n", score.Total, score.Grade)
	fmt.Fprintf(out, "  listening=%d discovery=%d empathy=%d assumption_avoidance=%d guardrail_discipline=%d\n",
		score.Listening, score.Discovery, score.Empathy, score.AssumptionAvoidance, score.GuardrailDiscipline)
	fmt.Fprintf(out, "  bonus=%d outcome_bonus=%d penalty=%d\n", score.Bonus, score.OutcomeBonus, score.Penalty)
	for _, h := range score.Highlights {
		fmt.Fprintf(out, "  + %s\n", h)
	}
	for _, m := range score.Mistakes {
		fmt.Fprintf(out, "  - %s\n", m)
	}
}

// replayClock advances one second per call from a fixed epoch.
func replayClock() func() time.Time {
	t := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}
