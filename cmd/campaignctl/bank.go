package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"digital.vasic.campaigns/pkg/bank"
)

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <path>...",
		Short: "Create or update campaigns from bank files or directories",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b := bank.New()
			for _, path := range args {
				if err := b.Load(path); err != nil {
					return err
				}
			}
			return withApp(cmd, func(a *app) error {
				imported, err := b.Import(cmd.Context(), a.campaigns, a.logger)
				for _, c := range imported {
					fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", c.ID, c.Title)
				}
				return err
			})
		},
	}
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <path>...",
		Short: "Check bank files without importing them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := bankFiles(args)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			problems := 0
			for _, f := range files {
				errs := bank.ValidateFile(f)
				if len(errs) == 0 {
					fmt.Fprintf(out, "ok\t%s\n", f)
					continue
				}
				problems += len(errs)
				for _, e := range errs {
					fmt.Fprintf(out, "invalid\t%s\t%s\n", f, e.Error())
				}
			}
			if problems > 0 {
				return fmt.Errorf("%d validation problem(s) in %d file(s)", problems, len(files))
			}
			return nil
		},
	}
}

// bankFiles expands directories into the bank files they hold.
func bankFiles(paths []string) ([]string, error) {
	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}
		if !info.IsDir() {
			files = append(files, path)
			continue
		}
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, fmt.Errorf("read dir %s: %w", path, err)
		}
		for _, e := range entries {
			switch strings.ToLower(filepath.Ext(e.Name())) {
			case ".json", ".yaml", ".yml":
				if !e.IsDir() {
					files = append(files, filepath.Join(path, e.Name()))
				}
			}
		}
	}
	return files, nil
}
