package runner

import (
	"sync"

	"digital.vasic.campaigns/pkg/campaign"
	"digital.vasic.campaigns/pkg/execution"
)

// LiveExecution is a campaign execution under construction. It
// serializes appends from concurrently running scenarios, so the
// attempt order is the completion order.
type LiveExecution struct {
	mu      sync.Mutex
	builder *campaign.CampaignExecutionReportBuilder
}

// NewLiveExecution wraps builder.
func NewLiveExecution(
	builder *campaign.CampaignExecutionReportBuilder,
) *LiveExecution {
	return &LiveExecution{builder: builder}
}

// Append records one finished attempt.
func (l *LiveExecution) Append(attempt campaign.ScenarioExecutionCampaign) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.builder.AddScenarioExecutionReport(attempt)
}

// SetExecutionID sets the id assigned by the store.
func (l *LiveExecution) SetExecutionID(id int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.builder.ExecutionID(id)
}

// SetStatus sets the explicit status. The empty status lets the
// execution derive its status from its attempts.
func (l *LiveExecution) SetStatus(status execution.Status) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.builder.Status(status)
}

// Snapshot returns the execution as built so far.
func (l *LiveExecution) Snapshot() campaign.CampaignExecution {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.builder.Build()
}
