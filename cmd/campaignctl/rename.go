package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRenameEnvCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename-env <old> <new>",
		Short: "Rebind every campaign from one environment to another",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			oldName, newName := args[0], args[1]
			if oldName == newName {
				return fmt.Errorf("environments are identical: %q", oldName)
			}
			return withApp(cmd, func(a *app) error {
				bound, err := a.campaigns.FindCampaignsByEnvironment(cmd.Context(), oldName)
				if err != nil {
					return err
				}
				if err := a.service.RenameEnvironment(cmd.Context(), oldName, newName); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(),
					"Renamed %q to %q in %d campaign(s)\n", oldName, newName, len(bound))
				return nil
			})
		},
	}
}
