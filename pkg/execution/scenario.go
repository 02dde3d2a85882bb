package execution

import (
	"maps"
	"slices"

	"digital.vasic.campaigns/pkg/dataset"
)

// ScenarioExecutionReport wraps the step report tree of one
// scenario execution together with the scenario metadata it ran
// with. It is immutable once constructed.
type ScenarioExecutionReport struct {
	ExecutionID  int64    `json:"executionId"`
	ScenarioName string   `json:"scenarioName"`
	Environment  string   `json:"environment"`
	User         string   `json:"user"`
	Tags         []string `json:"tags"`

	// ContextVariables holds the outputs of every leaf step,
	// harvested once at construction. Later leaves overwrite
	// earlier ones on key collision.
	ContextVariables map[string]any `json:"contextVariables"`

	Constants map[string]string   `json:"constants"`
	Datatable []map[string]string `json:"datatable"`

	// Report is the root of the step tree.
	Report StepExecutionReport `json:"report"`
}

// NewScenarioExecutionReport builds a report whose constants and
// data table come from ds. A nil data set yields empty constants
// and an empty data table.
func NewScenarioExecutionReport(
	executionID int64,
	scenarioName, environment, user string,
	tags []string,
	ds *dataset.DataSet,
	report StepExecutionReport,
) ScenarioExecutionReport {
	var (
		constants map[string]string
		datatable []map[string]string
	)
	if ds != nil {
		constants = ds.Constants
		datatable = ds.Datatable
	}
	return NewScenarioExecutionReportWithData(
		executionID, scenarioName, environment, user,
		tags, constants, datatable, report,
	)
}

// NewScenarioExecutionReportWithData builds a report from explicit
// constants and data table rows.
func NewScenarioExecutionReportWithData(
	executionID int64,
	scenarioName, environment, user string,
	tags []string,
	constants map[string]string,
	datatable []map[string]string,
	report StepExecutionReport,
) ScenarioExecutionReport {
	if constants == nil {
		constants = map[string]string{}
	}
	rows := make([]map[string]string, 0, len(datatable))
	for _, row := range datatable {
		rows = append(rows, maps.Clone(row))
	}

	return ScenarioExecutionReport{
		ExecutionID:      executionID,
		ScenarioName:     scenarioName,
		Environment:      environment,
		User:             user,
		Tags:             normalizeTags(tags),
		ContextVariables: searchContextVariables(report),
		Constants:        maps.Clone(constants),
		Datatable:        rows,
		Report:           report,
	}
}

// Status is the aggregated status of the whole step tree.
func (r ScenarioExecutionReport) Status() Status {
	return r.Report.AggregatedStatus()
}

// HasTag reports whether the scenario ran with tag.
func (r ScenarioExecutionReport) HasTag(tag string) bool {
	_, found := slices.BinarySearch(r.Tags, tag)
	return found
}

// normalizeTags returns a sorted set; tag order carries no
// meaning.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	out = append(out, tags...)
	slices.Sort(out)
	return slices.Compact(out)
}

// searchContextVariables merges the outputs of every leaf below
// the root. Outputs of steps that have children are ignored.
func searchContextVariables(
	root StepExecutionReport,
) map[string]any {
	vars := make(map[string]any)
	collectLeafOutputs(root.Steps, vars)
	return vars
}

func collectLeafOutputs(
	steps []StepExecutionReport,
	into map[string]any,
) {
	for _, step := range steps {
		if step.IsLeaf() {
			if step.StepOutputs != nil {
				maps.Copy(into, step.StepOutputs)
			}
			continue
		}
		collectLeafOutputs(step.Steps, into)
	}
}
