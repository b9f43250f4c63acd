package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/hostforge/hostforge/pkg/status"
	"github.com/hostforge/hostforge/pkg/store"
)

func newRequeueCommand(version string) *cobra.Command {
	var (
		to    string
		force bool
	)

	cmd := &cobra.Command{
		Use:   "requeue <kind> <id>",
		Short: "Put a failed row back on the queue",
		Long: `Overwrite a row's diagnostic text with a pending status keyword
so the next pass picks it up again. By default only rows currently in
error state can be requeued; --force also flips stable or pending rows.`,
		Example: `  # Retry a failed domain from scratch
  hostforge requeue domain 42 --to toadd

  # Retry the delete that failed halfway
  hostforge requeue mail_account 7 --to todelete`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			kind := store.EntityKind(args[0])
			if kind.Table() == "" {
				return fmt.Errorf("unknown entity kind %q", args[0])
			}
			id, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid entity id %q", args[1])
			}
			target := status.Status(to)
			if !target.IsPending() {
				return fmt.Errorf("%q is not a pending status keyword", to)
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			st, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			if !force {
				rows, err := st.ListErrored(ctx, kind)
				if err != nil {
					return err
				}
				found := false
				for _, row := range rows {
					if row.ID == id {
						found = true
						break
					}
				}
				if !found {
					return fmt.Errorf("%s %d is not in error state (use --force to requeue anyway)", kind, id)
				}
			}

			if err := st.CommitStatus(ctx, kind, id, target); err != nil {
				return err
			}
			fmt.Printf("%s %d requeued as %s\n", kind, id, target)
			return nil
		},
	}

	cmd.Flags().StringVar(&to, "to", string(status.ToChange), "pending status keyword to set")
	cmd.Flags().BoolVar(&force, "force", false, "requeue even if the row is not in error state")

	return cmd
}
