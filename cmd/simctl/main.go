// Command simctl runs simulator conversations offline and checks rule files.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ashureev/boothsim/internal/rules"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "simctl",
		Short:         "Booth simulator tooling",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("rules", "", "rules YAML overlay (defaults when empty)")
	root.AddCommand(newReplayCmd(), newPersonasCmd(), newCheckRulesCmd(), newServeGeneratorCmd())
	return root
}

// loadRules resolves the --rules flag.
func loadRules(cmd *cobra.Command) (*rules.Rules, error) {
	path, _ := cmd.Flags().GetString("rules")
	if path == "" {
		return rules.Default(), nil
	}
	return rules.Load(path)
}
