// Package campaign models campaigns, their executions, and the
// service that reads execution history back from storage.
//
// A CampaignExecution holds one ScenarioExecutionCampaign per
// scenario attempt, in execution order. Retries of a scenario
// appear as several entries with the same scenario id; readers
// normally see the retry-collapsed view returned by
// WithoutRetries.
package campaign

import (
	"maps"
	"slices"
)

// CampaignScenario is one scenario scheduled by a campaign,
// optionally bound to a data set.
type CampaignScenario struct {
	ScenarioID string `json:"scenarioId" yaml:"scenario_id"`
	DatasetID  string `json:"datasetId,omitempty" yaml:"dataset_id,omitempty"`
}

// Campaign is the configuration of a named group of scenarios. It
// is treated as immutable: changes are made by building a new
// value, as WithEnvironment does.
type Campaign struct {
	// ID is zero until the campaign is first stored.
	ID int64 `json:"id" yaml:"id"`

	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`

	// Scenarios lists the scheduled scenarios in order.
	Scenarios []CampaignScenario `json:"scenarios" yaml:"scenarios"`

	// Environment is the target environment executions run in
	// unless overridden.
	Environment string `json:"environment" yaml:"environment"`

	// ParallelRun executes the scenarios concurrently.
	ParallelRun bool `json:"parallelRun" yaml:"parallel_run"`

	// RetryAuto re-executes failed scenarios once the first pass
	// is over.
	RetryAuto bool `json:"retryAuto" yaml:"retry_auto"`

	ExternalDatasetID   string            `json:"externalDatasetId,omitempty" yaml:"external_dataset_id,omitempty"`
	Tags                []string          `json:"tags" yaml:"tags"`
	ExecutionParameters map[string]string `json:"executionParameters,omitempty" yaml:"execution_parameters,omitempty"`
}

// WithEnvironment returns a copy of c bound to environment. No
// other field changes.
func (c Campaign) WithEnvironment(environment string) Campaign {
	out := c.Clone()
	out.Environment = environment
	return out
}

// Clone returns a copy of c that shares no slices or maps with it.
func (c Campaign) Clone() Campaign {
	out := c
	out.Scenarios = slices.Clone(c.Scenarios)
	out.Tags = slices.Clone(c.Tags)
	out.ExecutionParameters = maps.Clone(c.ExecutionParameters)
	return out
}

// ScenarioIDs returns the distinct scenario ids of the campaign in
// scheduling order.
func (c Campaign) ScenarioIDs() []string {
	seen := make(map[string]struct{}, len(c.Scenarios))
	ids := make([]string, 0, len(c.Scenarios))
	for _, s := range c.Scenarios {
		if _, ok := seen[s.ScenarioID]; ok {
			continue
		}
		seen[s.ScenarioID] = struct{}{}
		ids = append(ids, s.ScenarioID)
	}
	return ids
}

// HasScenario reports whether the campaign schedules scenarioID.
func (c Campaign) HasScenario(scenarioID string) bool {
	for _, s := range c.Scenarios {
		if s.ScenarioID == scenarioID {
			return true
		}
	}
	return false
}
