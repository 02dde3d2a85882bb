package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"digital.vasic.campaigns/pkg/campaign"
	"digital.vasic.campaigns/pkg/execution"
)

var t0 = time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)

func attempt(
	scenarioID string,
	executionID int64,
	status execution.Status,
	offset time.Duration,
	durationMs int64,
) campaign.ScenarioExecutionCampaign {
	return campaign.ScenarioExecutionCampaign{
		ScenarioID:   scenarioID,
		ScenarioName: "scenario " + scenarioID,
		Execution: campaign.ExecutionSummary{
			ExecutionID: executionID,
			Time:        t0.Add(offset),
			Duration:    durationMs,
			Environment: "staging",
			Status:      status,
			ScenarioID:  scenarioID,
		},
	}
}

// sampleExecution has one retried scenario: B fails, then passes.
func sampleExecution() campaign.CampaignExecution {
	failed := attempt("B", 12, execution.StatusFailure, time.Second, 500)
	failed.Execution.Error = "boom"

	return campaign.NewCampaignExecutionReportBuilder().
		ExecutionID(7).
		CampaignID(3).
		CampaignName("nightly").
		Environment("staging").
		UserID("qa").
		StartDate(t0).
		AddScenarioExecutionReport(
			attempt("A", 11, execution.StatusSuccess, 0, 1000),
		).
		AddScenarioExecutionReport(failed).
		AddScenarioExecutionReport(
			attempt("C", 0, execution.StatusNotExecuted, 0, 0),
		).
		AddScenarioExecutionReport(
			attempt("B", 13, execution.StatusSuccess, 2*time.Second, 800),
		).
		Build()
}

func TestBuildExecutionSummary_CollapsesRetries(t *testing.T) {
	s := BuildExecutionSummary(sampleExecution())

	assert.Equal(t, int64(7), s.ExecutionID)
	require.NotNil(t, s.CampaignID)
	assert.Equal(t, int64(3), *s.CampaignID)
	assert.Equal(t, "nightly", s.CampaignName)
	assert.Equal(t, execution.StatusSuccess, s.Status)
	assert.Equal(t, int64(2800), s.Duration)

	require.Len(t, s.Scenarios, 3)
	assert.Equal(t, "A", s.Scenarios[0].ScenarioID)
	assert.Equal(t, "B", s.Scenarios[1].ScenarioID)
	assert.Equal(t, "C", s.Scenarios[2].ScenarioID)

	b := s.Scenarios[1]
	assert.Equal(t, execution.StatusSuccess, b.Status)
	assert.Equal(t, 2, b.Attempts)
	assert.Equal(t, int64(800), b.Duration)
	assert.Empty(t, b.Error)

	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 2, s.Passed)
	assert.Equal(t, 0, s.Failed)
	assert.Equal(t, 1, s.NotExecuted)
	assert.Equal(t, 1, s.Retried)
	assert.InDelta(t, 2.0/3.0, s.PassRate, 0.0001)
}

func TestBuildExecutionSummary_Empty(t *testing.T) {
	s := BuildExecutionSummary(campaign.CampaignExecution{})

	assert.Equal(t, execution.StatusSuccess, s.Status)
	assert.NotNil(t, s.Scenarios)
	assert.Zero(t, s.Total)
	assert.Zero(t, s.PassRate)
}

func TestBuildHistorySummary(t *testing.T) {
	failing := campaign.NewCampaignExecutionReportBuilder().
		ExecutionID(8).
		AddScenarioExecutionReport(
			attempt("A", 21, execution.StatusFailure, 0, 10),
		).
		Build()
	running := campaign.NewCampaignExecutionReportBuilder().
		ExecutionID(9).
		Status(execution.StatusRunning).
		Build()

	h := BuildHistorySummary([]campaign.CampaignExecution{
		running, failing, sampleExecution(),
	})

	assert.Equal(t, 3, h.Total)
	assert.Equal(t, 1, h.Succeeded)
	assert.Equal(t, 1, h.Failed)
	require.Len(t, h.Executions, 3)
	assert.Equal(t, int64(9), h.Executions[0].ExecutionID)
	assert.Equal(t, int64(7), h.Executions[2].ExecutionID)
}

func TestSaveExecutionSummary(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")

	require.NoError(t, SaveExecutionSummary(sampleExecution(), dir))

	data, err := os.ReadFile(filepath.Join(dir, "execution_7.json"))
	require.NoError(t, err)
	var decoded ExecutionSummary
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, 3, decoded.Total)

	md, err := os.ReadFile(filepath.Join(dir, "execution_7.md"))
	require.NoError(t, err)
	assert.Contains(t, string(md), "# Campaign Execution Report: nightly")

	target, err := os.Readlink(filepath.Join(dir, "latest_summary.json"))
	require.NoError(t, err)
	assert.Equal(t, "execution_7.json", target)
}

func TestSaveExecutionSummary_MarshalError(t *testing.T) {
	original := jsonMarshalIndent
	t.Cleanup(func() { jsonMarshalIndent = original })
	jsonMarshalIndent = func(any, string, string) ([]byte, error) {
		return nil, assert.AnError
	}

	err := SaveExecutionSummary(sampleExecution(), t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "marshal summary")
}

func TestSaveExecutionSummary_WriteMarkdownError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "execution_7.md"), 0755))

	err := SaveExecutionSummary(sampleExecution(), dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write Markdown summary")
}
