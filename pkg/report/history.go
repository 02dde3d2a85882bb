package report

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"digital.vasic.campaigns/pkg/campaign"
	"digital.vasic.campaigns/pkg/execution"
)

var jsonMarshal = json.Marshal

// HistoricalEntry represents one campaign execution in the
// historical log.
type HistoricalEntry struct {
	Timestamp    time.Time        `json:"timestamp"`
	ExecutionID  int64            `json:"executionId"`
	CampaignID   *int64           `json:"campaignId,omitempty"`
	CampaignName string           `json:"campaignName"`
	Environment  string           `json:"environment"`
	Status       execution.Status `json:"status"`
	Partial      bool             `json:"partialExecution,omitempty"`
	Duration     string           `json:"duration"`
	Passed       int              `json:"passed"`
	Total        int              `json:"total"`
	ReportPath   string           `json:"reportPath,omitempty"`
}

// AppendToHistory adds an entry for exec to the historical log
// stored at historyPath. Each entry is a single JSON line.
func AppendToHistory(
	historyPath string,
	exec campaign.CampaignExecution,
	reportPath string,
) error {
	summary := BuildExecutionSummary(exec)

	entry := HistoricalEntry{
		Timestamp:    exec.StartDate.Add(exec.Duration()),
		ExecutionID:  exec.ExecutionID,
		CampaignID:   exec.CampaignID,
		CampaignName: exec.CampaignName,
		Environment:  exec.ExecutionEnvironment,
		Status:       summary.Status,
		Partial:      exec.PartialExecution,
		Duration:     exec.Duration().String(),
		Passed:       summary.Passed,
		Total:        summary.Total,
		ReportPath:   reportPath,
	}

	data, err := jsonMarshal(entry)
	if err != nil {
		return fmt.Errorf(
			"failed to marshal history entry: %w", err,
		)
	}

	file, err := os.OpenFile(
		historyPath,
		os.O_CREATE|os.O_APPEND|os.O_WRONLY,
		0644,
	)
	if err != nil {
		return fmt.Errorf(
			"failed to open history file: %w", err,
		)
	}
	defer func() { _ = file.Close() }()

	_, err = fmt.Fprintln(file, string(data))
	return err
}

// ReadHistory returns the entries of the historical log in the
// order they were appended. A missing log is empty. Blank lines
// are skipped; a malformed line is an error.
func ReadHistory(historyPath string) ([]HistoricalEntry, error) {
	file, err := os.Open(historyPath)
	if errors.Is(err, os.ErrNotExist) {
		return []HistoricalEntry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf(
			"failed to open history file: %w", err,
		)
	}
	defer func() { _ = file.Close() }()

	entries := []HistoricalEntry{}
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var entry HistoricalEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			return nil, fmt.Errorf(
				"failed to parse history line %d: %w", line, err,
			)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf(
			"failed to read history file: %w", err,
		)
	}
	return entries, nil
}
