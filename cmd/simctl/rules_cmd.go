package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/ashureev/boothsim/internal/rules"
	"github.com/spf13/cobra"
)

func newPersonasCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "personas",
		Short: "List persona presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := loadRules(cmd)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KEY\tNAME\tROLE\tDIFFICULTY")
			for _, p := range r.Personas {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.Key, p.Name, p.Role, p.Difficulty)
			}
			return tw.Flush()
		},
	}
}

func newCheckRulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check-rules [file...]",
		Short: "Validate rules YAML files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := 0
			for _, path := range args {
				if _, err := rules.Load(path); err != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "FAIL %s: %v\n", path, err)
					failed++
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "ok   %s\n", path)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d rule files invalid", failed, len(args))
			}
			return nil
		},
	}
}
