package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hostforge/hostforge/pkg/engine"
)

func newProcessCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "process",
		Short: "Run one reconciliation pass",
		Long: `Run one reconciliation pass over every entity table.

The pass snapshots all rows carrying a pending status keyword, drives each
row through its handler in dependency order, and writes the outcome back.
A pass already running elsewhere is not an error: the command exits zero
without doing anything.`,
		Example: `  # Process all pending rows once
  hostforge process

  # With an explicit config
  hostforge process --config /etc/hostforge/hostforge.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := buildApp(ctx, version)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			summary, err := a.processor.Run(ctx)
			if err != nil {
				if errors.Is(err, engine.ErrLockHeld) {
					return nil
				}
				return err
			}

			fmt.Printf("pass %s: processed=%d failed=%d cascaded=%d duration=%s\n",
				summary.PassID, summary.Processed(), summary.Failed(),
				summary.Cascaded, summary.Duration)
			for _, kind := range engine.ProcessingOrder {
				ks := summary.PerKind[kind]
				if ks.Processed == 0 {
					continue
				}
				fmt.Printf("  %-16s processed=%d succeeded=%d failed=%d removed=%d skipped=%d\n",
					kind, ks.Processed, ks.Succeeded, ks.Failed, ks.Removed, ks.Skipped)
			}
			return nil
		},
	}
}
