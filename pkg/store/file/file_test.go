package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"digital.vasic.campaigns/pkg/campaign"
	"digital.vasic.campaigns/pkg/execution"
)

func TestCampaignStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s, err := NewCampaignStore(root)
	require.NoError(t, err)

	c, err := s.CreateOrUpdate(ctx, campaign.Campaign{
		Title:       "nightly",
		Environment: "staging",
		ParallelRun: true,
		Scenarios: []campaign.CampaignScenario{
			{ScenarioID: "login"},
			{ScenarioID: "checkout", DatasetID: "carts"},
		},
		Tags:                []string{"smoke"},
		ExecutionParameters: map[string]string{"locale": "fr"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), c.ID)
	assert.FileExists(t, filepath.Join(root, "campaigns", "1.yaml"))

	got, err := s.FindByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, c, got)

	_, err = s.FindByID(ctx, 2)
	assert.ErrorIs(t, err, campaign.ErrNotFound)
}

func TestCampaignStore_ResumesIDs(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s, err := NewCampaignStore(root)
	require.NoError(t, err)
	_, err = s.CreateOrUpdate(ctx, campaign.Campaign{ID: 7, Title: "a"})
	require.NoError(t, err)

	reopened, err := NewCampaignStore(root)
	require.NoError(t, err)
	c, err := reopened.CreateOrUpdate(ctx, campaign.Campaign{Title: "b"})
	require.NoError(t, err)
	assert.Equal(t, int64(8), c.ID)
}

func TestCampaignStore_QueriesAndRemove(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s, err := NewCampaignStore(root)
	require.NoError(t, err)

	for _, c := range []campaign.Campaign{
		{Title: "one", Environment: "staging",
			Scenarios: []campaign.CampaignScenario{{ScenarioID: "A"}}},
		{Title: "two", Environment: "prod",
			Scenarios: []campaign.CampaignScenario{{ScenarioID: "B"}}},
		{Title: "one", Environment: "prod"},
	} {
		_, err := s.CreateOrUpdate(ctx, c)
		require.NoError(t, err)
	}
	// Stray files are ignored.
	require.NoError(t, os.WriteFile(
		filepath.Join(root, "campaigns", "README.md"), []byte("x"), 0o644,
	))

	byName, err := s.FindByName(ctx, "one")
	require.NoError(t, err)
	require.Len(t, byName, 2)
	assert.Equal(t, int64(1), byName[0].ID)

	byEnv, err := s.FindCampaignsByEnvironment(ctx, "prod")
	require.NoError(t, err)
	assert.Len(t, byEnv, 2)

	byScenario, err := s.FindCampaignsByScenarioID(ctx, "B")
	require.NoError(t, err)
	require.Len(t, byScenario, 1)
	assert.Equal(t, "two", byScenario[0].Title)

	removed, err := s.RemoveByID(ctx, 2)
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = s.RemoveByID(ctx, 2)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestCampaignStore_CorruptFile(t *testing.T) {
	root := t.TempDir()
	s, err := NewCampaignStore(root)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(
		filepath.Join(root, "campaigns", "3.yaml"), []byte("title: [oops"), 0o644,
	))

	_, err = s.FindByID(context.Background(), 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse campaign 3")
}

func sampleExecution(campaignID int64, start time.Time) campaign.CampaignExecution {
	return campaign.NewCampaignExecutionReportBuilder().
		CampaignID(campaignID).
		CampaignName("nightly").
		Environment("staging").
		StartDate(start).
		AddScenarioExecutionReport(campaign.ScenarioExecutionCampaign{
			ScenarioID: "A",
			Execution: campaign.ExecutionSummary{
				ExecutionID: 11, Time: start, Duration: 250,
				Status: execution.StatusFailure, ScenarioID: "A",
			},
		}).
		AddScenarioExecutionReport(campaign.ScenarioExecutionCampaign{
			ScenarioID: "A",
			Execution: campaign.ExecutionSummary{
				ExecutionID: 12, Time: start.Add(time.Second), Duration: 300,
				Status: execution.StatusSuccess, ScenarioID: "A",
			},
		}).
		Build()
}

func TestExecutionStore_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s, err := NewExecutionStore(root)
	require.NoError(t, err)
	start := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)

	saved, err := s.SaveCampaignExecution(ctx, sampleExecution(3, start))
	require.NoError(t, err)
	assert.Equal(t, int64(1), saved.ExecutionID)
	assert.FileExists(t, filepath.Join(root, "executions", "3", "1.json"))

	got, err := s.GetCampaignExecutionByID(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, got.ScenarioExecutionReports, 2)
	assert.True(t, got.StartDate.Equal(start))
	assert.Equal(t, execution.StatusSuccess, got.Status())

	_, err = s.GetCampaignExecutionByID(ctx, 9)
	assert.ErrorIs(t, err, campaign.ErrNotFound)
}

func TestExecutionStore_UnattachedMovesWhenAttached(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s, err := NewExecutionStore(root)
	require.NoError(t, err)

	exec, err := s.SaveCampaignExecution(ctx, campaign.CampaignExecution{})
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(root, "executions", unattached, "1.json"))

	id := int64(5)
	exec.CampaignID = &id
	_, err = s.SaveCampaignExecution(ctx, exec)
	require.NoError(t, err)

	assert.NoFileExists(t, filepath.Join(root, "executions", unattached, "1.json"))
	history, err := s.GetExecutionHistory(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestExecutionStore_HistoryHighestIDFirst(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s, err := NewExecutionStore(root)
	require.NoError(t, err)
	start := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		_, err := s.SaveCampaignExecution(ctx, sampleExecution(1, start))
		require.NoError(t, err)
	}
	_, err = s.SaveCampaignExecution(ctx, sampleExecution(2, start))
	require.NoError(t, err)

	history, err := s.GetExecutionHistory(ctx, 1)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, int64(3), history[0].ExecutionID)
	assert.Equal(t, int64(1), history[2].ExecutionID)

	empty, err := s.GetExecutionHistory(ctx, 99)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	reopened, err := NewExecutionStore(root)
	require.NoError(t, err)
	next, err := reopened.SaveCampaignExecution(ctx, campaign.CampaignExecution{})
	require.NoError(t, err)
	assert.Equal(t, int64(5), next.ExecutionID)
}

func TestService_OverFileStores(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	campaigns, err := NewCampaignStore(root)
	require.NoError(t, err)
	executions, err := NewExecutionStore(root)
	require.NoError(t, err)
	svc := campaign.NewService(campaigns, executions)

	c, err := campaigns.CreateOrUpdate(ctx, campaign.Campaign{Title: "nightly"})
	require.NoError(t, err)
	_, err = executions.SaveCampaignExecution(ctx, sampleExecution(c.ID, time.Now()))
	require.NoError(t, err)

	history, err := svc.FindExecutionsByID(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Len(t, history[0].ScenarioExecutionReports, 1)
	assert.Equal(t, int64(12), history[0].ScenarioExecutionReports[0].Execution.ExecutionID)
}
