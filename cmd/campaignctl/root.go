package main

import (
	"github.com/spf13/cobra"

	"digital.vasic.campaigns/pkg/config"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "campaignctl",
		Short:         "Run, inspect and report test campaign executions",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	persistent := cmd.PersistentFlags()
	persistent.String("config", config.DefaultPath, "configuration file")
	persistent.String("env-file", ".env", "file with CAMPAIGNS_* overrides, ignored when missing")
	persistent.String("log-level", "", "override logging.level")

	cmd.AddCommand(newShowCmd())
	cmd.AddCommand(newHistoryCmd())
	cmd.AddCommand(newRenameEnvCmd())
	cmd.AddCommand(newReportCmd())
	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newMonitorCmd())
	cmd.AddCommand(newImportCmd())
	cmd.AddCommand(newValidateCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}
