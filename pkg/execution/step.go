package execution

import "time"

// DefaultStrategy is the strategy a step runs with when none is
// given.
const DefaultStrategy = "sequential"

// StepExecutionReport is the immutable record of one step
// execution attempt. A report exclusively owns its child steps.
// Values are built through StepExecutionReportBuilder, which
// copies every slice and map it is handed; callers must treat a
// built report as read-only.
type StepExecutionReport struct {
	// ExecutionID identifies the scenario execution the step
	// belongs to.
	ExecutionID int64 `json:"executionId"`

	// Name is the step name as authored in the scenario.
	Name string `json:"name"`

	// Environment is the target environment the step ran in.
	Environment string `json:"environment"`

	// Duration is the wall-clock time of the step, in
	// milliseconds.
	Duration int64 `json:"duration"`

	// StartDate is when the step began.
	StartDate time.Time `json:"startDate"`

	// Status is the status recorded for the step itself.
	Status Status `json:"status"`

	// Information holds informational messages.
	Information []string `json:"information"`

	// Errors holds error messages.
	Errors []string `json:"errors"`

	// Steps holds the child steps in execution order.
	Steps []StepExecutionReport `json:"steps"`

	// Type is the action type (e.g. "http-get", "assert").
	Type string `json:"type"`

	// TargetName is the display name of the target.
	TargetName string `json:"targetName"`

	// TargetURL is the raw URI of the target.
	TargetURL string `json:"targetUrl"`

	// Strategy is the execution strategy of the step.
	Strategy string `json:"strategy"`

	EvaluatedInputs map[string]any `json:"evaluatedInputs,omitempty"`
	StepOutputs     map[string]any `json:"stepOutputs,omitempty"`
	ScenarioContext map[string]any `json:"scenarioContext,omitempty"`

	// EvaluatedInputsSnapshot and StepOutputsSnapshot are string
	// renderings of the corresponding maps, stable across
	// serialization round trips.
	EvaluatedInputsSnapshot map[string]string `json:"evaluatedInputsSnapshot,omitempty"`
	StepOutputsSnapshot     map[string]string `json:"stepOutputsSnapshot,omitempty"`
}

// IsLeaf reports whether the step has no children.
func (r StepExecutionReport) IsLeaf() bool {
	return len(r.Steps) == 0
}

// AggregatedStatus returns the status of the step combined with
// the aggregated statuses of its whole subtree. A leaf reports its
// own status.
func (r StepExecutionReport) AggregatedStatus() Status {
	if r.IsLeaf() {
		return r.Status
	}
	statuses := make([]Status, 0, len(r.Steps)+1)
	if r.Status != "" {
		statuses = append(statuses, r.Status)
	}
	for _, child := range r.Steps {
		statuses = append(statuses, child.AggregatedStatus())
	}
	return Aggregate(statuses)
}

// Walk visits the step and its descendants depth-first, parents
// before children. Returning false from fn skips the subtree of
// the visited step.
func (r StepExecutionReport) Walk(
	fn func(step StepExecutionReport, depth int) bool,
) {
	r.walk(fn, 0)
}

func (r StepExecutionReport) walk(
	fn func(step StepExecutionReport, depth int) bool,
	depth int,
) {
	if !fn(r, depth) {
		return
	}
	for _, child := range r.Steps {
		child.walk(fn, depth+1)
	}
}

// Leaves returns the childless steps below and including r in
// traversal order.
func (r StepExecutionReport) Leaves() []StepExecutionReport {
	var leaves []StepExecutionReport
	r.Walk(func(step StepExecutionReport, _ int) bool {
		if step.IsLeaf() {
			leaves = append(leaves, step)
		}
		return true
	})
	return leaves
}

// FindStep returns the first step named name in traversal order.
func (r StepExecutionReport) FindStep(
	name string,
) (StepExecutionReport, bool) {
	var (
		found StepExecutionReport
		ok    bool
	)
	r.Walk(func(step StepExecutionReport, _ int) bool {
		if ok {
			return false
		}
		if step.Name == name {
			found, ok = step, true
			return false
		}
		return true
	})
	return found, ok
}
