package campaign

import (
	"time"

	"digital.vasic.campaigns/pkg/execution"
)

// CampaignExecutionReportBuilder assembles a CampaignExecution
// while a campaign run is in flight. It is not safe for concurrent
// use; the scheduler that owns it serializes appends.
//
// ExecutionID, CampaignName, PartialExecution, Environment,
// DataSetID and UserID have no defaults and should be supplied on
// production paths. The scenario list starts empty; CampaignID,
// StartDate and Status start unset, meaning "derive at read
// time".
type CampaignExecutionReportBuilder struct {
	executionID          int64
	campaignName         string
	partialExecution     bool
	executionEnvironment string
	dataSetID            string
	userID               string

	scenarioExecutionReports []ScenarioExecutionCampaign
	campaignID               *int64
	startDate                time.Time
	status                   execution.Status
}

// NewCampaignExecutionReportBuilder returns an empty builder.
func NewCampaignExecutionReportBuilder() *CampaignExecutionReportBuilder {
	return &CampaignExecutionReportBuilder{
		scenarioExecutionReports: []ScenarioExecutionCampaign{},
	}
}

func (b *CampaignExecutionReportBuilder) ExecutionID(
	id int64,
) *CampaignExecutionReportBuilder {
	b.executionID = id
	return b
}

func (b *CampaignExecutionReportBuilder) CampaignName(
	name string,
) *CampaignExecutionReportBuilder {
	b.campaignName = name
	return b
}

func (b *CampaignExecutionReportBuilder) PartialExecution(
	partial bool,
) *CampaignExecutionReportBuilder {
	b.partialExecution = partial
	return b
}

func (b *CampaignExecutionReportBuilder) Environment(
	environment string,
) *CampaignExecutionReportBuilder {
	b.executionEnvironment = environment
	return b
}

func (b *CampaignExecutionReportBuilder) StartDate(
	start time.Time,
) *CampaignExecutionReportBuilder {
	b.startDate = start
	return b
}

func (b *CampaignExecutionReportBuilder) Status(
	status execution.Status,
) *CampaignExecutionReportBuilder {
	b.status = status
	return b
}

func (b *CampaignExecutionReportBuilder) DataSetID(
	id string,
) *CampaignExecutionReportBuilder {
	b.dataSetID = id
	return b
}

func (b *CampaignExecutionReportBuilder) UserID(
	id string,
) *CampaignExecutionReportBuilder {
	b.userID = id
	return b
}

func (b *CampaignExecutionReportBuilder) CampaignID(
	id int64,
) *CampaignExecutionReportBuilder {
	b.campaignID = &id
	return b
}

// AddScenarioExecutionReport appends one attempt. Call order is
// the execution order seen by every reader.
func (b *CampaignExecutionReportBuilder) AddScenarioExecutionReport(
	report ScenarioExecutionCampaign,
) *CampaignExecutionReportBuilder {
	b.scenarioExecutionReports = append(
		b.scenarioExecutionReports, report,
	)
	return b
}

// ScenarioExecutionReport replaces the attempt list with a copy of
// reports; later changes to reports do not reach the builder.
func (b *CampaignExecutionReportBuilder) ScenarioExecutionReport(
	reports []ScenarioExecutionCampaign,
) *CampaignExecutionReportBuilder {
	b.scenarioExecutionReports = make(
		[]ScenarioExecutionCampaign, len(reports),
	)
	copy(b.scenarioExecutionReports, reports)
	return b
}

// Len returns the number of attempts appended so far.
func (b *CampaignExecutionReportBuilder) Len() int {
	return len(b.scenarioExecutionReports)
}

// Build returns the execution. The builder may keep being used;
// the returned value shares nothing with it.
func (b *CampaignExecutionReportBuilder) Build() CampaignExecution {
	exec := CampaignExecution{
		ExecutionID:              b.executionID,
		CampaignName:             b.campaignName,
		PartialExecution:         b.partialExecution,
		ExecutionEnvironment:     b.executionEnvironment,
		UserID:                   b.userID,
		DataSetID:                b.dataSetID,
		StartDate:                b.startDate,
		ExplicitStatus:           b.status,
		ScenarioExecutionReports: b.scenarioExecutionReports,
	}
	if b.campaignID != nil {
		id := *b.campaignID
		exec.CampaignID = &id
	}
	return exec.Clone()
}
