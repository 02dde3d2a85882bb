package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"digital.vasic.campaigns/pkg/campaign"
	"digital.vasic.campaigns/pkg/execution"
)

var jsonMarshalIndent = json.MarshalIndent

// ScenarioSummary is the final outcome of one scenario of a
// campaign execution.
type ScenarioSummary struct {
	ScenarioID   string           `json:"scenarioId"`
	ScenarioName string           `json:"scenarioName"`
	DatasetID    string           `json:"datasetId,omitempty"`
	Status       execution.Status `json:"status"`
	Attempts     int              `json:"attempts"`

	// Duration of the last attempt, in milliseconds.
	Duration int64 `json:"duration"`

	Error string `json:"error,omitempty"`
}

// ExecutionSummary aggregates a campaign execution with retries
// collapsed to their last attempt.
type ExecutionSummary struct {
	ExecutionID  int64             `json:"executionId"`
	CampaignID   *int64            `json:"campaignId,omitempty"`
	CampaignName string            `json:"campaignName"`
	Environment  string            `json:"environment"`
	User         string            `json:"user"`
	DataSetID    string            `json:"dataSetId,omitempty"`
	Partial      bool              `json:"partialExecution"`
	StartDate    time.Time         `json:"startDate"`
	Duration     int64             `json:"duration"`
	Status       execution.Status  `json:"status"`
	Scenarios    []ScenarioSummary `json:"scenarios"`
	Total        int               `json:"total"`
	Passed       int               `json:"passed"`
	Failed       int               `json:"failed"`
	NotExecuted  int               `json:"notExecuted"`
	Retried      int               `json:"retried"`
	PassRate     float64           `json:"passRate"`
}

// BuildExecutionSummary summarizes exec.
func BuildExecutionSummary(
	exec campaign.CampaignExecution,
) *ExecutionSummary {
	attempts := exec.AttemptCounts()
	latest := exec.WithoutRetries().ScenarioExecutionReports

	summary := &ExecutionSummary{
		ExecutionID:  exec.ExecutionID,
		CampaignID:   exec.CampaignID,
		CampaignName: exec.CampaignName,
		Environment:  exec.ExecutionEnvironment,
		User:         exec.UserID,
		DataSetID:    exec.DataSetID,
		Partial:      exec.PartialExecution,
		StartDate:    exec.StartDate,
		Duration:     exec.Duration().Milliseconds(),
		Status:       exec.Status(),
		Scenarios:    make([]ScenarioSummary, 0, len(latest)),
	}

	for _, s := range latest {
		summary.Scenarios = append(summary.Scenarios, ScenarioSummary{
			ScenarioID:   s.ScenarioID,
			ScenarioName: s.ScenarioName,
			DatasetID:    s.DatasetID,
			Status:       s.Status(),
			Attempts:     attempts[s.ScenarioID],
			Duration:     s.Execution.Duration,
			Error:        s.Execution.Error,
		})
		summary.Total++
		if attempts[s.ScenarioID] > 1 {
			summary.Retried++
		}
		switch s.Status() {
		case execution.StatusSuccess:
			summary.Passed++
		case execution.StatusNotExecuted:
			summary.NotExecuted++
		case execution.StatusFailure, execution.StatusStopped:
			summary.Failed++
		}
	}

	if summary.Total > 0 {
		summary.PassRate = float64(summary.Passed) /
			float64(summary.Total)
	}
	return summary
}

// HistorySummary aggregates several executions of a campaign.
type HistorySummary struct {
	GeneratedAt time.Time          `json:"generatedAt"`
	Executions  []ExecutionSummary `json:"executions"`
	Total       int                `json:"total"`
	Succeeded   int                `json:"succeeded"`
	Failed      int                `json:"failed"`
}

// BuildHistorySummary summarizes execs in the given order.
func BuildHistorySummary(
	execs []campaign.CampaignExecution,
) *HistorySummary {
	summary := &HistorySummary{
		GeneratedAt: time.Now(),
		Executions:  make([]ExecutionSummary, 0, len(execs)),
	}
	for _, exec := range execs {
		s := BuildExecutionSummary(exec)
		summary.Executions = append(summary.Executions, *s)
		summary.Total++
		switch {
		case s.Status == execution.StatusSuccess:
			summary.Succeeded++
		case s.Status.IsFailed():
			summary.Failed++
		}
	}
	return summary
}

// SaveExecutionSummary writes the summary of exec as JSON and
// Markdown into outputDir and points latest_summary.{json,md} at
// them.
func SaveExecutionSummary(
	exec campaign.CampaignExecution,
	outputDir string,
) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf(
			"failed to create output directory: %w", err,
		)
	}

	summary := BuildExecutionSummary(exec)
	base := fmt.Sprintf("execution_%d", exec.ExecutionID)

	jsonPath := filepath.Join(outputDir, base+".json")
	jsonData, err := jsonMarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf(
			"failed to marshal summary: %w", err,
		)
	}
	if err := os.WriteFile(jsonPath, jsonData, 0644); err != nil {
		return fmt.Errorf(
			"failed to write JSON summary: %w", err,
		)
	}

	mdPath := filepath.Join(outputDir, base+".md")
	md := NewMarkdownReporter().render(exec, summary)
	if err := os.WriteFile(mdPath, []byte(md), 0644); err != nil {
		return fmt.Errorf(
			"failed to write Markdown summary: %w", err,
		)
	}

	latestJSON := filepath.Join(outputDir, "latest_summary.json")
	latestMD := filepath.Join(outputDir, "latest_summary.md")

	_ = os.Remove(latestJSON)
	_ = os.Remove(latestMD)
	_ = os.Symlink(filepath.Base(jsonPath), latestJSON)
	_ = os.Symlink(filepath.Base(mdPath), latestMD)

	return nil
}
