package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"digital.vasic.campaigns/pkg/campaign"
	"digital.vasic.campaigns/pkg/logging"
	"digital.vasic.campaigns/pkg/report"
)

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report <executionID>",
		Short: "Render the report of an execution, or of a campaign history",
		Long: "Render the report of a campaign execution. With --history the " +
			"argument is a campaign id and every execution of it is summarised.",
		Args: cobra.ExactArgs(1),
		RunE: runReport,
	}
	flags := cmd.Flags()
	flags.String("format", report.FormatMarkdown, "report format (json|markdown|html)")
	flags.StringP("output", "o", "", "write the report to a file instead of stdout")
	flags.Bool("history", false, "treat the argument as a campaign id")
	flags.Bool("save", false, "save JSON and Markdown summaries under reports.dir and append to the history file")
	flags.Bool("archive", false, "upload the JSON report to the configured archive")
	return cmd
}

func runReport(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	format, err := flags.GetString("format")
	if err != nil {
		return fmt.Errorf("parse --format: %w", err)
	}
	reporter, err := report.New(format)
	if err != nil {
		return err
	}
	output, _ := flags.GetString("output")
	history, _ := flags.GetBool("history")
	save, _ := flags.GetBool("save")
	upload, _ := flags.GetBool("archive")

	what := "execution"
	if history {
		what = "campaign"
	}
	id, err := parseID(args[0], what)
	if err != nil {
		return err
	}

	return withApp(cmd, func(a *app) error {
		ctx := cmd.Context()
		var data []byte
		if history {
			execs, err := a.executions.GetExecutionHistory(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to load execution history of campaign %d: %w", id, err)
			}
			data, err = reporter.GenerateHistoryReport(execs)
			if err != nil {
				return err
			}
			return writeOutput(cmd, output, data)
		}

		exec, err := a.executions.GetCampaignExecutionByID(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to load campaign execution %d: %w", id, err)
		}
		data, err = reporter.GenerateReport(exec)
		if err != nil {
			return err
		}
		if save {
			if err := a.saveReport(exec); err != nil {
				return err
			}
		}
		if upload {
			arch, err := a.archiver(ctx)
			if err != nil {
				return err
			}
			if arch == nil {
				return fmt.Errorf("archive is not enabled")
			}
			location, err := arch.Archive(ctx, exec)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.ErrOrStderr(), "archived to", location)
		}
		return writeOutput(cmd, output, data)
	})
}

// saveReport writes the summaries of exec and appends it to the
// history file.
func (a *app) saveReport(exec campaign.CampaignExecution) error {
	if err := report.SaveExecutionSummary(exec, a.cfg.Reports.Dir); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(a.cfg.Reports.HistoryFile), 0o755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}
	if err := report.AppendToHistory(
		a.cfg.Reports.HistoryFile, exec, a.reportPath(exec.ExecutionID),
	); err != nil {
		return err
	}
	a.logger.Info("execution report saved",
		logging.ExecutionField(exec.ExecutionID),
		logging.StringField("dir", a.cfg.Reports.Dir),
	)
	return nil
}

func writeOutput(cmd *cobra.Command, path string, data []byte) error {
	if path == "" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
