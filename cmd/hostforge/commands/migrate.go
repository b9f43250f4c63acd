package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMigrateCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Long: `Create or upgrade the entity store schema.

Running migrations is also part of normal startup; this command exists for
provisioning a host before the first pass and for upgrade scripts.`,
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

			fmt.Printf("store at %s is up to date\n", cfg.Store.Path)
			return nil
		},
	}
}
