package report

import (
	"encoding/json"
	"io"

	"digital.vasic.campaigns/pkg/campaign"
)

var (
	jsonReportMarshal       = json.Marshal
	jsonReportMarshalIndent = json.MarshalIndent
)

// JSONReporter renders campaign executions as JSON.
type JSONReporter struct {
	pretty bool
}

// NewJSONReporter creates a new JSON reporter. When pretty is
// true, output is indented for readability.
func NewJSONReporter(pretty bool) *JSONReporter {
	return &JSONReporter{pretty: pretty}
}

// jsonExecutionReport carries the raw execution next to its
// retry-collapsed summary.
type jsonExecutionReport struct {
	Summary   *ExecutionSummary          `json:"summary"`
	Execution campaign.CampaignExecution `json:"execution"`
}

// GenerateReport creates a JSON report for a single campaign
// execution.
func (r *JSONReporter) GenerateReport(
	exec campaign.CampaignExecution,
) ([]byte, error) {
	return r.marshal(jsonExecutionReport{
		Summary:   BuildExecutionSummary(exec),
		Execution: exec.Clone(),
	})
}

// GenerateHistoryReport creates a JSON summary of several
// executions.
func (r *JSONReporter) GenerateHistoryReport(
	execs []campaign.CampaignExecution,
) ([]byte, error) {
	return r.marshal(BuildHistorySummary(execs))
}

// WriteReport writes a JSON report to the specified writer.
func (r *JSONReporter) WriteReport(
	w io.Writer,
	exec campaign.CampaignExecution,
) error {
	data, err := r.GenerateReport(exec)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func (r *JSONReporter) marshal(v any) ([]byte, error) {
	if r.pretty {
		return jsonReportMarshalIndent(v, "", "  ")
	}
	return jsonReportMarshal(v)
}
