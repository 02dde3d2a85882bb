package execution

import (
	"encoding/json"
	"fmt"
	"maps"
	"time"
)

// Target is the endpoint a step acted upon.
type Target interface {
	// Name returns the display name of the target.
	Name() string

	// RawURI returns the target URI as configured.
	RawURI() string
}

// StepExecutionReportBuilder accumulates the fields of a step
// report while the step executes. It is not safe for concurrent
// use.
type StepExecutionReportBuilder struct {
	executionID             int64
	name                    string
	environment             string
	duration                int64
	startDate               time.Time
	status                  Status
	information             []string
	errors                  []string
	steps                   []StepExecutionReport
	stepType                string
	targetName              string
	targetURL               string
	strategy                string
	evaluatedInputs         map[string]any
	stepOutputs             map[string]any
	scenarioContext         map[string]any
	evaluatedInputsSnapshot map[string]string
	stepOutputsSnapshot     map[string]string
}

// NewStepExecutionReportBuilder returns a builder with the default
// strategy and empty target fields.
func NewStepExecutionReportBuilder() *StepExecutionReportBuilder {
	return &StepExecutionReportBuilder{
		strategy: DefaultStrategy,
	}
}

// From seeds every field from an existing report, so a copy can be
// built with only some fields changed.
func (b *StepExecutionReportBuilder) From(
	r StepExecutionReport,
) *StepExecutionReportBuilder {
	return b.SetExecutionID(r.ExecutionID).
		SetName(r.Name).
		SetEnvironment(r.Environment).
		SetDuration(r.Duration).
		SetStartDate(r.StartDate).
		SetStatus(r.Status).
		SetInformation(r.Information).
		SetErrors(r.Errors).
		SetSteps(r.Steps).
		SetType(r.Type).
		SetTargetName(r.TargetName).
		SetTargetURL(r.TargetURL).
		SetStrategy(r.Strategy).
		SetEvaluatedInputs(r.EvaluatedInputs).
		SetStepOutputs(r.StepOutputs).
		SetScenarioContext(r.ScenarioContext).
		SetEvaluatedInputsSnapshot(r.EvaluatedInputsSnapshot).
		SetStepOutputsSnapshot(r.StepOutputsSnapshot)
}

func (b *StepExecutionReportBuilder) SetExecutionID(
	id int64,
) *StepExecutionReportBuilder {
	b.executionID = id
	return b
}

func (b *StepExecutionReportBuilder) SetName(
	name string,
) *StepExecutionReportBuilder {
	b.name = name
	return b
}

func (b *StepExecutionReportBuilder) SetEnvironment(
	environment string,
) *StepExecutionReportBuilder {
	b.environment = environment
	return b
}

// SetDuration sets the step duration in milliseconds.
func (b *StepExecutionReportBuilder) SetDuration(
	millis int64,
) *StepExecutionReportBuilder {
	b.duration = millis
	return b
}

func (b *StepExecutionReportBuilder) SetStartDate(
	start time.Time,
) *StepExecutionReportBuilder {
	b.startDate = start
	return b
}

func (b *StepExecutionReportBuilder) SetStatus(
	status Status,
) *StepExecutionReportBuilder {
	b.status = status
	return b
}

func (b *StepExecutionReportBuilder) SetInformation(
	information []string,
) *StepExecutionReportBuilder {
	b.information = information
	return b
}

func (b *StepExecutionReportBuilder) SetErrors(
	errs []string,
) *StepExecutionReportBuilder {
	b.errors = errs
	return b
}

func (b *StepExecutionReportBuilder) SetSteps(
	steps []StepExecutionReport,
) *StepExecutionReportBuilder {
	b.steps = steps
	return b
}

// AddStep appends one child step.
func (b *StepExecutionReportBuilder) AddStep(
	step StepExecutionReport,
) *StepExecutionReportBuilder {
	b.steps = append(b.steps, step)
	return b
}

func (b *StepExecutionReportBuilder) SetType(
	stepType string,
) *StepExecutionReportBuilder {
	b.stepType = stepType
	return b
}

// SetTarget copies the name and raw URI of target. A nil target
// leaves the current values untouched.
func (b *StepExecutionReportBuilder) SetTarget(
	target Target,
) *StepExecutionReportBuilder {
	if target != nil {
		b.targetName = target.Name()
		b.targetURL = target.RawURI()
	}
	return b
}

func (b *StepExecutionReportBuilder) SetTargetName(
	name string,
) *StepExecutionReportBuilder {
	b.targetName = name
	return b
}

func (b *StepExecutionReportBuilder) SetTargetURL(
	url string,
) *StepExecutionReportBuilder {
	b.targetURL = url
	return b
}

// SetStrategy overrides the execution strategy. An empty strategy
// is ignored and the current one, "sequential" by default, is
// kept.
func (b *StepExecutionReportBuilder) SetStrategy(
	strategy string,
) *StepExecutionReportBuilder {
	if strategy != "" {
		b.strategy = strategy
	}
	return b
}

func (b *StepExecutionReportBuilder) SetEvaluatedInputs(
	inputs map[string]any,
) *StepExecutionReportBuilder {
	b.evaluatedInputs = inputs
	return b
}

func (b *StepExecutionReportBuilder) SetStepOutputs(
	outputs map[string]any,
) *StepExecutionReportBuilder {
	b.stepOutputs = outputs
	return b
}

func (b *StepExecutionReportBuilder) SetScenarioContext(
	scenarioContext map[string]any,
) *StepExecutionReportBuilder {
	b.scenarioContext = scenarioContext
	return b
}

func (b *StepExecutionReportBuilder) SetEvaluatedInputsSnapshot(
	snapshot map[string]string,
) *StepExecutionReportBuilder {
	b.evaluatedInputsSnapshot = snapshot
	return b
}

func (b *StepExecutionReportBuilder) SetStepOutputsSnapshot(
	snapshot map[string]string,
) *StepExecutionReportBuilder {
	b.stepOutputsSnapshot = snapshot
	return b
}

// Build materializes an immutable report. Lists never set become
// empty, not nil. Snapshots never set are rendered from their
// source maps. When no status was set, it is aggregated from the
// children, or NOT_EXECUTED for a leaf.
func (b *StepExecutionReportBuilder) Build() StepExecutionReport {
	status := b.status
	if status == "" {
		status = StatusNotExecuted
		if len(b.steps) > 0 {
			statuses := make([]Status, 0, len(b.steps))
			for _, s := range b.steps {
				statuses = append(statuses, s.AggregatedStatus())
			}
			status = Aggregate(statuses)
		}
	}

	inputsSnapshot := maps.Clone(b.evaluatedInputsSnapshot)
	if inputsSnapshot == nil {
		inputsSnapshot = renderSnapshot(b.evaluatedInputs)
	}
	outputsSnapshot := maps.Clone(b.stepOutputsSnapshot)
	if outputsSnapshot == nil {
		outputsSnapshot = renderSnapshot(b.stepOutputs)
	}

	steps := make([]StepExecutionReport, len(b.steps))
	copy(steps, b.steps)

	return StepExecutionReport{
		ExecutionID:             b.executionID,
		Name:                    b.name,
		Environment:             b.environment,
		Duration:                b.duration,
		StartDate:               b.startDate,
		Status:                  status,
		Information:             copyStrings(b.information),
		Errors:                  copyStrings(b.errors),
		Steps:                   steps,
		Type:                    b.stepType,
		TargetName:              b.targetName,
		TargetURL:               b.targetURL,
		Strategy:                b.strategy,
		EvaluatedInputs:         maps.Clone(b.evaluatedInputs),
		StepOutputs:             maps.Clone(b.stepOutputs),
		ScenarioContext:         maps.Clone(b.scenarioContext),
		EvaluatedInputsSnapshot: inputsSnapshot,
		StepOutputsSnapshot:     outputsSnapshot,
	}
}

func copyStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

// renderSnapshot turns runtime values into their string form.
// Strings are kept as is, other values are JSON encoded, and
// values JSON cannot encode fall back to fmt formatting.
func renderSnapshot(values map[string]any) map[string]string {
	if values == nil {
		return nil
	}
	out := make(map[string]string, len(values))
	for k, v := range values {
		out[k] = renderValue(v)
	}
	return out
}

func renderValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
