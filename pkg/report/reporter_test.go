package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"digital.vasic.campaigns/pkg/campaign"
	"digital.vasic.campaigns/pkg/execution"
)

func TestNew(t *testing.T) {
	tests := []struct {
		format string
		want   Reporter
	}{
		{FormatJSON, &JSONReporter{}},
		{FormatMarkdown, &MarkdownReporter{}},
		{"md", &MarkdownReporter{}},
		{FormatHTML, &HTMLReporter{}},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			r, err := New(tt.format)
			require.NoError(t, err)
			assert.IsType(t, tt.want, r)
		})
	}

	_, err := New("pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown report format")
}

func TestJSONReporter_GenerateReport(t *testing.T) {
	for _, pretty := range []bool{true, false} {
		r := NewJSONReporter(pretty)

		data, err := r.GenerateReport(sampleExecution())
		require.NoError(t, err)
		assert.Equal(t, pretty, strings.Contains(string(data), "\n  "))

		var decoded struct {
			Summary   ExecutionSummary            `json:"summary"`
			Execution campaign.CampaignExecution `json:"execution"`
		}
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Len(t, decoded.Summary.Scenarios, 3)
		assert.Len(t, decoded.Execution.ScenarioExecutionReports, 4)
		assert.Equal(t, "nightly", decoded.Execution.CampaignName)
	}
}

func TestJSONReporter_GenerateHistoryReport(t *testing.T) {
	r := NewJSONReporter(false)

	data, err := r.GenerateHistoryReport(
		[]campaign.CampaignExecution{sampleExecution()},
	)
	require.NoError(t, err)

	var decoded HistorySummary
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, 1, decoded.Total)
	assert.Equal(t, 1, decoded.Succeeded)
}

func TestJSONReporter_MarshalErrors(t *testing.T) {
	originalMarshal := jsonReportMarshal
	originalIndent := jsonReportMarshalIndent
	t.Cleanup(func() {
		jsonReportMarshal = originalMarshal
		jsonReportMarshalIndent = originalIndent
	})
	jsonReportMarshal = func(any) ([]byte, error) {
		return nil, assert.AnError
	}
	jsonReportMarshalIndent = func(any, string, string) ([]byte, error) {
		return nil, assert.AnError
	}

	_, err := NewJSONReporter(true).GenerateReport(sampleExecution())
	assert.ErrorIs(t, err, assert.AnError)

	var buf bytes.Buffer
	err = NewJSONReporter(false).WriteReport(&buf, sampleExecution())
	assert.ErrorIs(t, err, assert.AnError)
	assert.Zero(t, buf.Len())
}

func TestMarkdownReporter_GenerateReport(t *testing.T) {
	data, err := NewMarkdownReporter().GenerateReport(sampleExecution())
	require.NoError(t, err)
	md := string(data)

	assert.Contains(t, md, "# Campaign Execution Report: nightly")
	assert.Contains(t, md, "**Execution ID:** 7")
	assert.Contains(t, md, "**Campaign ID:** 3")
	assert.Contains(t, md, "**Status:** SUCCESS")
	assert.Contains(t, md, "| B | scenario B | SUCCESS | 2 | 800ms |  |")
	assert.Contains(t, md, "## Attempts")
	assert.Contains(t, md, "| 2 | B | 12 | FAILURE |")
	assert.Contains(t, md, "| Pass Rate | 67% |")
	assert.Contains(t, md, "| Duration | 2.8s |")
}

func TestMarkdownReporter_NoAttemptsSectionWithoutRetries(t *testing.T) {
	exec := campaign.NewCampaignExecutionReportBuilder().
		CampaignName("smoke | daily").
		AddScenarioExecutionReport(
			attempt("A", 1, execution.StatusFailure, 0, 5),
		).
		Build()

	var buf bytes.Buffer
	require.NoError(t, NewMarkdownReporter().WriteReport(&buf, exec))

	assert.NotContains(t, buf.String(), "## Attempts")
	assert.Contains(t, buf.String(), "**Status:** FAILURE")
	assert.Contains(t, buf.String(), "**Started:** -")
}

func TestMarkdownReporter_GenerateHistoryReport(t *testing.T) {
	data, err := NewMarkdownReporter().GenerateHistoryReport(
		[]campaign.CampaignExecution{sampleExecution()},
	)
	require.NoError(t, err)

	md := string(data)
	assert.Contains(t, md, "# Campaign Execution History")
	assert.Contains(t, md, "| 7 | nightly | staging | SUCCESS | 3 | 2 | 2.8s |")
	assert.Contains(t, md, "| Executions | 1 |")
}

func TestEscapeCell(t *testing.T) {
	assert.Equal(t, `a \| b c`, escapeCell("a | b\nc"))
}

func TestHTMLReporter_GenerateReport(t *testing.T) {
	exec := sampleExecution()
	exec.CampaignName = "<nightly>"

	data, err := NewHTMLReporter().GenerateReport(exec)
	require.NoError(t, err)
	page := string(data)

	assert.True(t, strings.HasPrefix(page, "<!DOCTYPE html>"))
	assert.Contains(t, page, "&lt;nightly&gt;")
	assert.NotContains(t, page, "<nightly>")
	assert.Contains(t, page, "<h2>Scenarios</h2>")
	assert.Contains(t, page, "<h2>Attempts</h2>")
	assert.Contains(t, page, `class="status-passed"`)
	assert.Contains(t, page, `class="status-failed">FAILURE`)
	assert.Contains(t, page, `class="status-failed">NOT_EXECUTED`)
	assert.Contains(t, page, "width: 100%;")
	assert.True(t, strings.HasSuffix(page, "</html>\n"))
}

func TestHTMLReporter_GenerateHistoryReport(t *testing.T) {
	running := campaign.NewCampaignExecutionReportBuilder().
		ExecutionID(9).
		Status(execution.StatusRunning).
		Build()

	data, err := NewHTMLReporter().GenerateHistoryReport(
		[]campaign.CampaignExecution{running, sampleExecution()},
	)
	require.NoError(t, err)

	page := string(data)
	assert.Contains(t, page, "<h1>Campaign Execution History</h1>")
	assert.Contains(t, page, `class="status-pending">RUNNING`)
	assert.Contains(t, page, "<td>2/3</td>")
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestHTMLReporter_WriteReport_PropagatesWriteError(t *testing.T) {
	err := NewHTMLReporter().WriteReport(failingWriter{}, sampleExecution())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}
