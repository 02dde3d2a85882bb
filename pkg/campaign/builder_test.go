package campaign

import (
	"testing"

	"digital.vasic.campaigns/pkg/execution"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCampaignExecutionReportBuilder_Defaults(t *testing.T) {
	exec := NewCampaignExecutionReportBuilder().Build()

	assert.Nil(t, exec.CampaignID)
	assert.True(t, exec.StartDate.IsZero())
	assert.Empty(t, exec.ExplicitStatus)
	require.NotNil(t, exec.ScenarioExecutionReports)
	assert.Empty(t, exec.ScenarioExecutionReports)
}

func TestCampaignExecutionReportBuilder_AllFields(t *testing.T) {
	exec := NewCampaignExecutionReportBuilder().
		ExecutionID(42).
		CampaignID(7).
		CampaignName("nightly").
		PartialExecution(true).
		Environment("staging").
		DataSetID("users").
		UserID("alice").
		StartDate(t0).
		Status(execution.StatusRunning).
		Build()

	require.NotNil(t, exec.CampaignID)
	assert.Equal(t, int64(7), *exec.CampaignID)
	assert.Equal(t, int64(42), exec.ExecutionID)
	assert.Equal(t, "nightly", exec.CampaignName)
	assert.True(t, exec.PartialExecution)
	assert.Equal(t, "staging", exec.ExecutionEnvironment)
	assert.Equal(t, "users", exec.DataSetID)
	assert.Equal(t, "alice", exec.UserID)
	assert.Equal(t, t0, exec.StartDate)
	assert.Equal(t, execution.StatusRunning, exec.Status())
}

func TestCampaignExecutionReportBuilder_AppendOrder(t *testing.T) {
	b := NewCampaignExecutionReportBuilder()
	for _, id := range []string{"C", "A", "B"} {
		b.AddScenarioExecutionReport(attempt(id, 1, execution.StatusSuccess))
	}
	assert.Equal(t, 3, b.Len())

	exec := b.Build()
	var ids []string
	for _, s := range exec.ScenarioExecutionReports {
		ids = append(ids, s.ScenarioID)
	}
	assert.Equal(t, []string{"C", "A", "B"}, ids)
}

func TestCampaignExecutionReportBuilder_CopiesCallerList(t *testing.T) {
	list := []ScenarioExecutionCampaign{
		attempt("A", 1, execution.StatusSuccess),
		attempt("B", 1, execution.StatusSuccess),
	}

	exec := NewCampaignExecutionReportBuilder().
		ScenarioExecutionReport(list).
		Build()

	list[0] = attempt("Z", 9, execution.StatusFailure)

	require.Len(t, exec.ScenarioExecutionReports, 2)
	assert.Equal(t, "A", exec.ScenarioExecutionReports[0].ScenarioID)
	assert.Equal(t, execution.StatusSuccess, exec.Status())
}

func TestCampaignExecutionReportBuilder_BuildSnapshots(t *testing.T) {
	b := NewCampaignExecutionReportBuilder().
		CampaignID(1).
		AddScenarioExecutionReport(attempt("A", 1, execution.StatusSuccess))
	first := b.Build()

	b.AddScenarioExecutionReport(attempt("B", 1, execution.StatusFailure)).
		CampaignID(2)
	second := b.Build()

	assert.Len(t, first.ScenarioExecutionReports, 1)
	assert.Equal(t, int64(1), *first.CampaignID)
	assert.Equal(t, execution.StatusSuccess, first.Status())
	assert.Len(t, second.ScenarioExecutionReports, 2)
	assert.Equal(t, int64(2), *second.CampaignID)
}
