package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"digital.vasic.campaigns/pkg/campaign"
)

// MarkdownReporter renders campaign executions as Markdown.
type MarkdownReporter struct{}

// NewMarkdownReporter creates a Markdown reporter.
func NewMarkdownReporter() *MarkdownReporter {
	return &MarkdownReporter{}
}

// GenerateReport renders a single campaign execution.
func (r *MarkdownReporter) GenerateReport(
	exec campaign.CampaignExecution,
) ([]byte, error) {
	return []byte(r.render(exec, BuildExecutionSummary(exec))), nil
}

// WriteReport writes the Markdown report of exec to w.
func (r *MarkdownReporter) WriteReport(
	w io.Writer,
	exec campaign.CampaignExecution,
) error {
	_, err := io.WriteString(
		w, r.render(exec, BuildExecutionSummary(exec)),
	)
	return err
}

// GenerateHistoryReport renders one row per execution.
func (r *MarkdownReporter) GenerateHistoryReport(
	execs []campaign.CampaignExecution,
) ([]byte, error) {
	summary := BuildHistorySummary(execs)

	var sb strings.Builder
	sb.WriteString("# Campaign Execution History\n\n")
	sb.WriteString(fmt.Sprintf(
		"**Generated:** %s\n\n",
		summary.GeneratedAt.Format(time.RFC3339),
	))

	sb.WriteString(
		"| Execution | Campaign | Environment | Status " +
			"| Scenarios | Passed | Duration | Started |\n",
	)
	sb.WriteString(
		"|-----------|----------|-------------|--------" +
			"|-----------|--------|----------|---------|\n",
	)
	for _, e := range summary.Executions {
		sb.WriteString(fmt.Sprintf(
			"| %d | %s | %s | %s | %d | %d | %v | %s |\n",
			e.ExecutionID, escapeCell(e.CampaignName),
			escapeCell(e.Environment), e.Status, e.Total,
			e.Passed, millis(e.Duration), formatTime(e.StartDate),
		))
	}

	sb.WriteString("\n## Statistics\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Executions | %d |\n", summary.Total))
	sb.WriteString(fmt.Sprintf("| Succeeded | %d |\n", summary.Succeeded))
	sb.WriteString(fmt.Sprintf("| Failed | %d |\n", summary.Failed))

	return []byte(sb.String()), nil
}

func (r *MarkdownReporter) render(
	exec campaign.CampaignExecution,
	summary *ExecutionSummary,
) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(
		"# Campaign Execution Report: %s\n\n", summary.CampaignName,
	))
	sb.WriteString(fmt.Sprintf(
		"**Execution ID:** %d\n\n", summary.ExecutionID,
	))
	if summary.CampaignID != nil {
		sb.WriteString(fmt.Sprintf(
			"**Campaign ID:** %d\n\n", *summary.CampaignID,
		))
	}
	sb.WriteString(fmt.Sprintf(
		"**Environment:** %s\n\n", summary.Environment,
	))
	if summary.User != "" {
		sb.WriteString(fmt.Sprintf("**User:** %s\n\n", summary.User))
	}
	if summary.DataSetID != "" {
		sb.WriteString(fmt.Sprintf(
			"**Dataset:** %s\n\n", summary.DataSetID,
		))
	}
	if summary.Partial {
		sb.WriteString("**Partial execution:** yes\n\n")
	}
	sb.WriteString(fmt.Sprintf(
		"**Started:** %s\n\n", formatTime(summary.StartDate),
	))
	sb.WriteString(fmt.Sprintf("**Status:** %s\n\n", summary.Status))

	sb.WriteString("## Scenarios\n\n")
	sb.WriteString(
		"| Scenario | Name | Status | Attempts | Duration | Error |\n",
	)
	sb.WriteString(
		"|----------|------|--------|----------|----------|-------|\n",
	)
	for _, s := range summary.Scenarios {
		sb.WriteString(fmt.Sprintf(
			"| %s | %s | %s | %d | %v | %s |\n",
			escapeCell(s.ScenarioID), escapeCell(s.ScenarioName),
			s.Status, s.Attempts, millis(s.Duration),
			escapeCell(s.Error),
		))
	}

	if exec.HasRetries() {
		sb.WriteString("\n## Attempts\n\n")
		sb.WriteString("| # | Scenario | Execution | Status | Started |\n")
		sb.WriteString("|---|----------|-----------|--------|---------|\n")
		for i, a := range exec.ScenarioExecutionReports {
			sb.WriteString(fmt.Sprintf(
				"| %d | %s | %d | %s | %s |\n",
				i+1, escapeCell(a.ScenarioID),
				a.Execution.ExecutionID, a.Status(),
				formatTime(a.Execution.Time),
			))
		}
	}

	sb.WriteString("\n## Statistics\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Scenarios | %d |\n", summary.Total))
	sb.WriteString(fmt.Sprintf("| Passed | %d |\n", summary.Passed))
	sb.WriteString(fmt.Sprintf("| Failed | %d |\n", summary.Failed))
	sb.WriteString(fmt.Sprintf(
		"| Not Executed | %d |\n", summary.NotExecuted,
	))
	sb.WriteString(fmt.Sprintf("| Retried | %d |\n", summary.Retried))
	sb.WriteString(fmt.Sprintf(
		"| Pass Rate | %.0f%% |\n", summary.PassRate*100,
	))
	sb.WriteString(fmt.Sprintf(
		"| Duration | %v |\n", millis(summary.Duration),
	))

	return sb.String()
}

func millis(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(time.RFC3339)
}

// escapeCell keeps a value inside a single table cell.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
