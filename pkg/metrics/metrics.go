// Package metrics records counters and timings for campaign runs.
package metrics

import "time"

// CampaignMetrics defines the interface for recording campaign
// metrics.
type CampaignMetrics interface {
	// RecordScenario records one scenario attempt.
	RecordScenario(scenarioID, status string, duration time.Duration)
	// RecordCampaign records a finished campaign execution.
	RecordCampaign(campaignID int64, status string, duration time.Duration)
	// IncrementRetries counts a scenario re-executed after a
	// failure.
	IncrementRetries(scenarioID string)
	// SetActiveScenarios sets the gauge of running scenarios.
	SetActiveScenarios(count int)
}

// NoopMetrics is a no-op implementation of CampaignMetrics
// useful for testing or when metrics collection is disabled.
type NoopMetrics struct{}

func (NoopMetrics) RecordScenario(_, _ string, _ time.Duration)         {}
func (NoopMetrics) RecordCampaign(_ int64, _ string, _ time.Duration) {}
func (NoopMetrics) IncrementRetries(_ string)                          {}
func (NoopMetrics) SetActiveScenarios(_ int)                           {}
