package campaign

import (
	"encoding/json"
	"slices"
	"time"

	"digital.vasic.campaigns/pkg/execution"
)

// ExecutionSummary summarizes one scenario execution attempt.
type ExecutionSummary struct {
	ExecutionID int64     `json:"executionId"`
	Time        time.Time `json:"time"`

	// Duration is in milliseconds.
	Duration int64 `json:"duration"`

	Environment string           `json:"environment"`
	User        string           `json:"user"`
	Status      execution.Status `json:"status"`
	ScenarioID  string           `json:"scenarioId"`
	Title       string           `json:"testCaseTitle"`
	Info        string           `json:"info,omitempty"`
	Error       string           `json:"error,omitempty"`
}

// End returns when the attempt finished.
func (s ExecutionSummary) End() time.Time {
	return s.Time.Add(time.Duration(s.Duration) * time.Millisecond)
}

// ScenarioExecutionCampaign ties one scenario execution attempt to
// the campaign execution it belongs to. Several values sharing a
// ScenarioID are successive attempts of the same scenario.
type ScenarioExecutionCampaign struct {
	ScenarioID   string           `json:"scenarioId"`
	ScenarioName string           `json:"scenarioName"`
	DatasetID    string           `json:"datasetId,omitempty"`
	Execution    ExecutionSummary `json:"execution"`
}

// Status is the status of the attempt.
func (s ScenarioExecutionCampaign) Status() execution.Status {
	return s.Execution.Status
}

// CampaignExecution is one run of a campaign. It is built once by
// CampaignExecutionReportBuilder and then only read; derived data
// is computed on demand.
type CampaignExecution struct {
	ExecutionID int64 `json:"executionId"`

	// CampaignID is nil while the execution has not been
	// attached to a stored campaign.
	CampaignID *int64 `json:"campaignId,omitempty"`

	CampaignName string `json:"campaignName"`

	// PartialExecution is set when the run only re-executed the
	// failed scenarios of a previous run.
	PartialExecution bool `json:"partialExecution"`

	ExecutionEnvironment string    `json:"executionEnvironment"`
	UserID               string    `json:"userId"`
	DataSetID            string    `json:"dataSetId,omitempty"`
	StartDate            time.Time `json:"startDate"`

	// ExplicitStatus overrides the status derived from the
	// scenario executions when set.
	ExplicitStatus execution.Status `json:"explicitStatus,omitempty"`

	// ScenarioExecutionReports lists every attempt in execution
	// order.
	ScenarioExecutionReports []ScenarioExecutionCampaign `json:"scenarioExecutionReports"`
}

// Status returns the explicit status when one was recorded, or
// else the aggregate of the latest attempt of every scenario.
func (c CampaignExecution) Status() execution.Status {
	if c.ExplicitStatus != "" {
		return c.ExplicitStatus
	}
	latest := collapseRetries(c.ScenarioExecutionReports)
	statuses := make([]execution.Status, 0, len(latest))
	for _, s := range latest {
		statuses = append(statuses, s.Status())
	}
	return execution.Aggregate(statuses)
}

// MarshalJSON adds the resolved "status" next to the stored fields.
// It is output only: decoding ignores it and keeps deriving.
func (c CampaignExecution) MarshalJSON() ([]byte, error) {
	type fields CampaignExecution
	return json.Marshal(struct {
		fields
		Status execution.Status `json:"status"`
	}{fields(c), c.Status()})
}

// WithoutRetries returns a copy of the execution that keeps, per
// scenario id, only the last attempt. Each survivor sits where
// its scenario id first appeared.
func (c CampaignExecution) WithoutRetries() CampaignExecution {
	out := c
	out.ScenarioExecutionReports = collapseRetries(
		c.ScenarioExecutionReports,
	)
	return out
}

// collapseRetries overwrites the value held for a scenario id on
// every later occurrence without moving its position.
func collapseRetries(
	attempts []ScenarioExecutionCampaign,
) []ScenarioExecutionCampaign {
	position := make(map[string]int, len(attempts))
	out := make([]ScenarioExecutionCampaign, 0, len(attempts))
	for _, a := range attempts {
		if i, seen := position[a.ScenarioID]; seen {
			out[i] = a
			continue
		}
		position[a.ScenarioID] = len(out)
		out = append(out, a)
	}
	return out
}

// HasRetries reports whether any scenario was attempted more than
// once.
func (c CampaignExecution) HasRetries() bool {
	seen := make(map[string]struct{}, len(c.ScenarioExecutionReports))
	for _, s := range c.ScenarioExecutionReports {
		if _, ok := seen[s.ScenarioID]; ok {
			return true
		}
		seen[s.ScenarioID] = struct{}{}
	}
	return false
}

// AttemptCounts returns how many attempts each scenario id got.
func (c CampaignExecution) AttemptCounts() map[string]int {
	counts := make(map[string]int)
	for _, s := range c.ScenarioExecutionReports {
		counts[s.ScenarioID]++
	}
	return counts
}

// FailedScenarios returns the latest attempt of every scenario
// whose outcome makes it a candidate for a partial re-execution.
func (c CampaignExecution) FailedScenarios() []ScenarioExecutionCampaign {
	var failed []ScenarioExecutionCampaign
	for _, s := range collapseRetries(c.ScenarioExecutionReports) {
		if s.Status().IsFailed() {
			failed = append(failed, s)
		}
	}
	return failed
}

// ScenarioCount returns the number of distinct scenarios run.
func (c CampaignExecution) ScenarioCount() int {
	return len(collapseRetries(c.ScenarioExecutionReports))
}

// Duration returns the time from the start of the execution to the
// end of its last finished attempt. It is zero when the start date
// is unknown or nothing has finished yet.
func (c CampaignExecution) Duration() time.Duration {
	if c.StartDate.IsZero() {
		return 0
	}
	var end time.Time
	for _, s := range c.ScenarioExecutionReports {
		if e := s.Execution.End(); e.After(end) {
			end = e
		}
	}
	if end.Before(c.StartDate) {
		return 0
	}
	return end.Sub(c.StartDate)
}

// Clone returns a copy sharing no slices with c.
func (c CampaignExecution) Clone() CampaignExecution {
	out := c
	out.ScenarioExecutionReports = slices.Clone(c.ScenarioExecutionReports)
	if out.ScenarioExecutionReports == nil {
		out.ScenarioExecutionReports = []ScenarioExecutionCampaign{}
	}
	if c.CampaignID != nil {
		id := *c.CampaignID
		out.CampaignID = &id
	}
	return out
}
