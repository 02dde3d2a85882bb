// Package runner schedules campaign executions. It runs the
// scenarios of a campaign through a ScenarioExecutor, sequentially
// or in parallel, retries failures and records every attempt in a
// CampaignExecution.
package runner

import (
	"context"

	"digital.vasic.campaigns/pkg/dataset"
	"digital.vasic.campaigns/pkg/execution"
)

// ScenarioRequest describes one scenario attempt.
type ScenarioRequest struct {
	CampaignID  int64
	ExecutionID int64
	ScenarioID  string
	DatasetID   string
	Environment string
	User        string

	// Attempt starts at 1 and grows with every retry.
	Attempt int

	// DataSet is loaded from the data set repository when one is
	// configured and DatasetID is set.
	DataSet *dataset.DataSet

	Parameters map[string]string

	// Progress lets the executor signal that it is alive. When a
	// stale threshold is configured, an attempt that stops
	// reporting is cancelled.
	Progress *ProgressReporter
}

// ScenarioExecutor runs one scenario and reports its step tree.
type ScenarioExecutor interface {
	Execute(
		ctx context.Context,
		req ScenarioRequest,
	) (execution.ScenarioExecutionReport, error)
}

// ExecutorFunc adapts a function to ScenarioExecutor.
type ExecutorFunc func(
	ctx context.Context,
	req ScenarioRequest,
) (execution.ScenarioExecutionReport, error)

func (f ExecutorFunc) Execute(
	ctx context.Context,
	req ScenarioRequest,
) (execution.ScenarioExecutionReport, error) {
	return f(ctx, req)
}
