package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hostforge/hostforge/pkg/engine"
)

func newQueueCommand(version string) *cobra.Command {
	var errored bool

	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Show pending or errored rows",
		Long: `List the rows a pass would process, per entity kind and in
processing order. With --errored, list rows stuck with diagnostic text
instead; those need an operator requeue before any pass touches them
again.`,
		Example: `  # What would the next pass do
  hostforge queue

  # What has failed and is waiting for an operator
  hostforge queue --errored`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			st, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			total := 0
			for _, kind := range engine.ProcessingOrder {
				rows, err := st.ListPending(ctx, kind)
				if errored {
					rows, err = st.ListErrored(ctx, kind)
				}
				if err != nil {
					return err
				}
				for _, row := range rows {
					fmt.Printf("%-16s %6d  %s\n", kind, row.ID, row.Status)
					total++
				}
			}
			if total == 0 {
				fmt.Println("queue is empty")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&errored, "errored", false, "list failed rows instead of pending ones")

	return cmd
}
