package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
)

// Execute runs the root command.
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "hostforge",
		Short: "HostForge - hosting control panel backend",
		Long: `HostForge is the provisioning backend of a hosting control panel.

The panel frontend writes desired state into entity tables and marks rows
with pending status keywords; hostforge reconciles those rows against the
system by generating service configuration, managing mail and FTP accounts,
publishing DNS zones, and provisioning SQL databases.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")

	rootCmd.AddCommand(newProcessCommand(version))
	rootCmd.AddCommand(newDaemonCommand(version))
	rootCmd.AddCommand(newMigrateCommand(version))
	rootCmd.AddCommand(newQueueCommand(version))
	rootCmd.AddCommand(newRequeueCommand(version))
	rootCmd.AddCommand(newHashCommand())

	return rootCmd
}
