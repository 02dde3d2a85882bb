package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"digital.vasic.campaigns/pkg/campaign"
	"digital.vasic.campaigns/pkg/report"
)

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <executionID>",
		Short: "Show a campaign execution with retries collapsed",
		Args:  cobra.ExactArgs(1),
		RunE:  runShow,
	}
}

func runShow(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0], "execution")
	if err != nil {
		return err
	}
	return withApp(cmd, func(a *app) error {
		exec, err := a.service.FindByExecutionID(cmd.Context(), id)
		if err != nil {
			return err
		}
		renderExecution(cmd.OutOrStdout(), exec)
		return nil
	})
}

func renderExecution(out io.Writer, exec campaign.CampaignExecution) {
	fmt.Fprintf(out, "Execution %d: %s\n", exec.ExecutionID, exec.CampaignName)
	fmt.Fprintf(out, "Status:      %s\n", exec.Status())
	fmt.Fprintf(out, "Environment: %s\n", exec.ExecutionEnvironment)
	if exec.UserID != "" {
		fmt.Fprintf(out, "User:        %s\n", exec.UserID)
	}
	if exec.PartialExecution {
		fmt.Fprintln(out, "Partial:     yes")
	}
	fmt.Fprintf(out, "Started:     %s\n", formatStart(exec.StartDate))
	fmt.Fprintf(out, "Duration:    %s\n\n", exec.Duration())

	if len(exec.ScenarioExecutionReports) == 0 {
		fmt.Fprintln(out, "No scenarios executed")
		return
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SCENARIO\tSTATUS\tDURATION\tERROR")
	for _, s := range exec.ScenarioExecutionReports {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			s.ScenarioID,
			s.Status(),
			time.Duration(s.Execution.Duration)*time.Millisecond,
			strings.ReplaceAll(s.Execution.Error, "\n", "; "),
		)
	}
	_ = tw.Flush()
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history <campaignID>",
		Short: "List the executions of a campaign, most recent first",
		Args:  cobra.ExactArgs(1),
		RunE:  runHistory,
	}
	cmd.Flags().Bool("log", false, "read the saved report history file instead of the store")
	return cmd
}

func runHistory(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0], "campaign")
	if err != nil {
		return err
	}
	fromLog, _ := cmd.Flags().GetBool("log")
	return withApp(cmd, func(a *app) error {
		if fromLog {
			return renderHistoryLog(cmd.OutOrStdout(), a.cfg.Reports.HistoryFile, id)
		}
		history, err := a.service.FindExecutionsByID(cmd.Context(), id)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(history) == 0 {
			fmt.Fprintf(out, "No executions for campaign %d\n", id)
			return nil
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "EXECUTION\tSTATUS\tENVIRONMENT\tSCENARIOS\tSTARTED\tDURATION")
		for _, exec := range history {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\n",
				exec.ExecutionID,
				exec.Status(),
				exec.ExecutionEnvironment,
				exec.ScenarioCount(),
				formatStart(exec.StartDate),
				exec.Duration(),
			)
		}
		return tw.Flush()
	})
}

func formatStart(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

// renderHistoryLog prints the saved report entries of campaignID in
// the order they were appended.
func renderHistoryLog(out io.Writer, path string, campaignID int64) error {
	entries, err := report.ReadHistory(path)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "EXECUTION\tSTATUS\tPASSED\tFINISHED\tDURATION\tREPORT")
	n := 0
	for _, e := range entries {
		if e.CampaignID == nil || *e.CampaignID != campaignID {
			continue
		}
		n++
		fmt.Fprintf(tw, "%d\t%s\t%d/%d\t%s\t%s\t%s\n",
			e.ExecutionID, e.Status, e.Passed, e.Total,
			formatStart(e.Timestamp), e.Duration, e.ReportPath,
		)
	}
	if n == 0 {
		fmt.Fprintf(out, "No saved reports for campaign %d\n", campaignID)
		return nil
	}
	return tw.Flush()
}
