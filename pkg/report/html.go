package report

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"time"

	"digital.vasic.campaigns/pkg/campaign"
	"digital.vasic.campaigns/pkg/execution"
)

// HTMLReporter renders campaign executions as standalone HTML
// pages.
type HTMLReporter struct{}

// NewHTMLReporter creates a new HTML reporter.
func NewHTMLReporter() *HTMLReporter {
	return &HTMLReporter{}
}

// GenerateReport creates an HTML report for a single campaign
// execution.
func (r *HTMLReporter) GenerateReport(
	exec campaign.CampaignExecution,
) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.WriteReport(&buf, exec); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteReport writes an HTML report to the specified writer.
func (r *HTMLReporter) WriteReport(
	w io.Writer,
	exec campaign.CampaignExecution,
) error {
	summary := BuildExecutionSummary(exec)
	title := "Campaign Execution Report: " + summary.CampaignName

	ew := &errWriter{w: w}
	r.writeHeader(ew, title)

	fmt.Fprintf(ew, "<h1>%s</h1>\n", html.EscapeString(title))
	fmt.Fprintf(
		ew,
		"<p><strong>Execution ID:</strong> %d</p>\n",
		summary.ExecutionID,
	)
	if summary.CampaignID != nil {
		fmt.Fprintf(
			ew,
			"<p><strong>Campaign ID:</strong> %d</p>\n",
			*summary.CampaignID,
		)
	}

	r.writeSummaryTable(ew, summary)
	r.writeScenariosSection(ew, summary)
	if exec.HasRetries() {
		r.writeAttemptsSection(ew, exec)
	}

	r.writeFooter(ew)
	return ew.err
}

// GenerateHistoryReport creates an HTML overview of several
// executions.
func (r *HTMLReporter) GenerateHistoryReport(
	execs []campaign.CampaignExecution,
) ([]byte, error) {
	summary := BuildHistorySummary(execs)

	var buf bytes.Buffer
	r.writeHeader(&buf, "Campaign Execution History")

	fmt.Fprintln(&buf, "<h1>Campaign Execution History</h1>")
	fmt.Fprintf(
		&buf,
		"<p><strong>Generated:</strong> %s</p>\n",
		summary.GeneratedAt.Format(time.RFC3339),
	)

	fmt.Fprintln(&buf, "<h2>Overview</h2>")
	fmt.Fprintln(&buf, "<table>")
	fmt.Fprintln(&buf, "<tr><th>Metric</th><th>Value</th></tr>")
	fmt.Fprintf(
		&buf,
		"<tr><td>Executions</td><td>%d</td></tr>\n",
		summary.Total,
	)
	fmt.Fprintf(
		&buf,
		"<tr><td>Succeeded</td>"+
			"<td class=\"status-passed\">%d</td></tr>\n",
		summary.Succeeded,
	)
	fmt.Fprintf(
		&buf,
		"<tr><td>Failed</td>"+
			"<td class=\"status-failed\">%d</td></tr>\n",
		summary.Failed,
	)
	fmt.Fprintln(&buf, "</table>")

	fmt.Fprintln(&buf, "<h2>Executions</h2>")
	fmt.Fprintln(&buf, "<table>")
	fmt.Fprintln(
		&buf,
		"<tr><th>Execution</th><th>Campaign</th>"+
			"<th>Environment</th><th>Status</th>"+
			"<th>Passed</th><th>Duration</th><th>Started</th></tr>",
	)
	for _, e := range summary.Executions {
		fmt.Fprintf(
			&buf,
			"<tr><td>%d</td><td>%s</td><td>%s</td>"+
				"<td class=\"%s\">%s</td><td>%d/%d</td>"+
				"<td>%v</td><td>%s</td></tr>\n",
			e.ExecutionID,
			html.EscapeString(e.CampaignName),
			html.EscapeString(e.Environment),
			statusClass(e.Status), e.Status,
			e.Passed, e.Total,
			millis(e.Duration), formatTime(e.StartDate),
		)
	}
	fmt.Fprintln(&buf, "</table>")

	r.writeFooter(&buf)
	return buf.Bytes(), nil
}

func (r *HTMLReporter) writeSummaryTable(
	w io.Writer,
	summary *ExecutionSummary,
) {
	fmt.Fprintln(w, "<h2>Summary</h2>")
	fmt.Fprintln(w, "<table>")
	fmt.Fprintln(w, "<tr><th>Metric</th><th>Value</th></tr>")
	fmt.Fprintf(
		w,
		"<tr><td>Status</td><td class=\"%s\">"+
			"<strong>%s</strong></td></tr>\n",
		statusClass(summary.Status), summary.Status,
	)
	fmt.Fprintf(
		w,
		"<tr><td>Environment</td><td>%s</td></tr>\n",
		html.EscapeString(summary.Environment),
	)
	if summary.User != "" {
		fmt.Fprintf(
			w,
			"<tr><td>User</td><td>%s</td></tr>\n",
			html.EscapeString(summary.User),
		)
	}
	if summary.DataSetID != "" {
		fmt.Fprintf(
			w,
			"<tr><td>Dataset</td><td><code>%s</code></td></tr>\n",
			html.EscapeString(summary.DataSetID),
		)
	}
	if summary.Partial {
		fmt.Fprintln(w, "<tr><td>Partial Execution</td><td>yes</td></tr>")
	}
	fmt.Fprintf(
		w,
		"<tr><td>Start Time</td><td>%s</td></tr>\n",
		formatTime(summary.StartDate),
	)
	fmt.Fprintf(
		w,
		"<tr><td>Duration</td><td>%v</td></tr>\n",
		millis(summary.Duration),
	)
	fmt.Fprintf(
		w,
		"<tr><td>Scenarios</td><td>%d passed, %d failed, "+
			"%d not executed (%.0f%%)</td></tr>\n",
		summary.Passed, summary.Failed, summary.NotExecuted,
		summary.PassRate*100,
	)
	fmt.Fprintln(w, "</table>")
}

func (r *HTMLReporter) writeScenariosSection(
	w io.Writer,
	summary *ExecutionSummary,
) {
	if len(summary.Scenarios) == 0 {
		return
	}

	fmt.Fprintln(w, "<h2>Scenarios</h2>")
	fmt.Fprintln(w, "<table>")
	fmt.Fprintln(
		w,
		"<tr><th>Scenario</th><th>Name</th><th>Status</th>"+
			"<th>Attempts</th><th>Duration</th><th>Error</th></tr>",
	)
	for _, s := range summary.Scenarios {
		errText := "-"
		if s.Error != "" {
			errText = html.EscapeString(s.Error)
		}
		fmt.Fprintf(
			w,
			"<tr><td><code>%s</code></td><td>%s</td>"+
				"<td class=\"%s\">%s</td><td>%d</td>"+
				"<td>%v</td><td>%s</td></tr>\n",
			html.EscapeString(s.ScenarioID),
			html.EscapeString(s.ScenarioName),
			statusClass(s.Status), s.Status,
			s.Attempts, millis(s.Duration), errText,
		)
	}
	fmt.Fprintln(w, "</table>")
}

func (r *HTMLReporter) writeAttemptsSection(
	w io.Writer,
	exec campaign.CampaignExecution,
) {
	fmt.Fprintln(w, "<h2>Attempts</h2>")
	fmt.Fprintln(w, "<table>")
	fmt.Fprintln(
		w,
		"<tr><th>#</th><th>Scenario</th><th>Execution</th>"+
			"<th>Status</th><th>Started</th></tr>",
	)
	for i, a := range exec.ScenarioExecutionReports {
		fmt.Fprintf(
			w,
			"<tr><td>%d</td><td><code>%s</code></td><td>%d</td>"+
				"<td class=\"%s\">%s</td><td>%s</td></tr>\n",
			i+1,
			html.EscapeString(a.ScenarioID),
			a.Execution.ExecutionID,
			statusClass(a.Status()), a.Status(),
			formatTime(a.Execution.Time),
		)
	}
	fmt.Fprintln(w, "</table>")
}

func statusClass(s execution.Status) string {
	switch {
	case s == execution.StatusSuccess:
		return "status-passed"
	case s.IsFailed():
		return "status-failed"
	default:
		return "status-pending"
	}
}

func (r *HTMLReporter) writeHeader(w io.Writer, title string) {
	fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>%s</title>
<style>
body {
  font-family: -apple-system, BlinkMacSystemFont,
    "Segoe UI", Roboto, sans-serif;
  max-width: 1080px;
  margin: 0 auto;
  padding: 20px;
  color: #333;
  background: #f9f9f9;
}
h1 { color: #2c3e50; border-bottom: 2px solid #3498db; padding-bottom: 10px; }
h2 { color: #2c3e50; margin-top: 30px; }
table {
  border-collapse: collapse;
  width: 100%%;
  margin: 10px 0;
  background: #fff;
}
th, td {
  border: 1px solid #ddd;
  padding: 8px 12px;
  text-align: left;
}
th { background: #3498db; color: #fff; }
tr:nth-child(even) { background: #f2f2f2; }
.status-passed { color: #27ae60; font-weight: bold; }
.status-failed { color: #e74c3c; font-weight: bold; }
.status-pending { color: #f39c12; font-weight: bold; }
code {
  background: #ecf0f1;
  padding: 2px 6px;
  border-radius: 3px;
  font-size: 0.9em;
}
footer {
  margin-top: 40px;
  padding-top: 10px;
  border-top: 1px solid #ddd;
  color: #7f8c8d;
  font-size: 0.9em;
}
</style>
</head>
<body>
`, html.EscapeString(title))
}

func (r *HTMLReporter) writeFooter(w io.Writer) {
	fmt.Fprintln(w, "<footer>")
	fmt.Fprintln(w, "<p>Generated by campaignctl</p>")
	fmt.Fprintln(w, "</footer>")
	fmt.Fprintln(w, "</body>")
	fmt.Fprintln(w, "</html>")
}

// errWriter remembers the first write error and drops every
// later write.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	n, err := e.w.Write(p)
	e.err = err
	return n, err
}
