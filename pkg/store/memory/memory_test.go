package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"digital.vasic.campaigns/pkg/campaign"
	"digital.vasic.campaigns/pkg/execution"
)

var (
	_ campaign.Repository     = (*CampaignStore)(nil)
	_ campaign.ExecutionStore = (*ExecutionStore)(nil)
)

func TestCampaignStore_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	s := NewCampaignStore()

	c, err := s.CreateOrUpdate(ctx, campaign.Campaign{
		Title:       "nightly",
		Environment: "staging",
		Scenarios:   []campaign.CampaignScenario{{ScenarioID: "A"}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), c.ID)

	got, err := s.FindByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "nightly", got.Title)

	// Returned values are copies.
	got.Scenarios[0].ScenarioID = "changed"
	again, _ := s.FindByID(ctx, 1)
	assert.Equal(t, "A", again.Scenarios[0].ScenarioID)

	_, err = s.FindByID(ctx, 99)
	assert.ErrorIs(t, err, campaign.ErrNotFound)
}

func TestCampaignStore_UpdateAndExplicitIDs(t *testing.T) {
	ctx := context.Background()
	s := NewCampaignStore()

	_, err := s.CreateOrUpdate(ctx, campaign.Campaign{ID: 10, Title: "a"})
	require.NoError(t, err)
	next, err := s.CreateOrUpdate(ctx, campaign.Campaign{Title: "b"})
	require.NoError(t, err)
	assert.Equal(t, int64(11), next.ID)

	_, err = s.CreateOrUpdate(ctx, campaign.Campaign{ID: 10, Title: "renamed"})
	require.NoError(t, err)
	got, _ := s.FindByID(ctx, 10)
	assert.Equal(t, "renamed", got.Title)
	assert.Len(t, s.All(), 2)
}

func TestCampaignStore_Queries(t *testing.T) {
	ctx := context.Background()
	s := NewCampaignStore()
	for _, c := range []campaign.Campaign{
		{Title: "one", Environment: "staging",
			Scenarios: []campaign.CampaignScenario{{ScenarioID: "A"}}},
		{Title: "two", Environment: "prod",
			Scenarios: []campaign.CampaignScenario{{ScenarioID: "A"}, {ScenarioID: "B"}}},
		{Title: "one", Environment: "staging"},
	} {
		_, err := s.CreateOrUpdate(ctx, c)
		require.NoError(t, err)
	}

	byName, _ := s.FindByName(ctx, "one")
	require.Len(t, byName, 2)
	assert.Equal(t, int64(1), byName[0].ID)
	assert.Equal(t, int64(3), byName[1].ID)

	byScenario, _ := s.FindCampaignsByScenarioID(ctx, "A")
	assert.Len(t, byScenario, 2)

	byEnv, _ := s.FindCampaignsByEnvironment(ctx, "prod")
	require.Len(t, byEnv, 1)
	assert.Equal(t, "two", byEnv[0].Title)

	none, err := s.FindCampaignsByEnvironment(ctx, "qa")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestCampaignStore_RemoveByID(t *testing.T) {
	ctx := context.Background()
	s := NewCampaignStore()
	c, _ := s.CreateOrUpdate(ctx, campaign.Campaign{Title: "x"})

	removed, err := s.RemoveByID(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = s.RemoveByID(ctx, c.ID)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestExecutionStore_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	s := NewExecutionStore()

	exec, err := s.SaveCampaignExecution(ctx, campaign.NewCampaignExecutionReportBuilder().
		CampaignID(1).
		Status(execution.StatusRunning).
		Build())
	require.NoError(t, err)
	assert.Equal(t, int64(1), exec.ExecutionID)

	exec.ExplicitStatus = ""
	exec.ScenarioExecutionReports = append(exec.ScenarioExecutionReports,
		campaign.ScenarioExecutionCampaign{ScenarioID: "A"})
	_, err = s.SaveCampaignExecution(ctx, exec)
	require.NoError(t, err)

	got, err := s.GetCampaignExecutionByID(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, got.ScenarioExecutionReports, 1)
	assert.Empty(t, got.ExplicitStatus)

	_, err = s.GetCampaignExecutionByID(ctx, 2)
	assert.ErrorIs(t, err, campaign.ErrNotFound)
}

func TestExecutionStore_HistoryMostRecentFirst(t *testing.T) {
	ctx := context.Background()
	s := NewExecutionStore()
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	save := func(campaignID int64, start time.Time) {
		_, err := s.SaveCampaignExecution(ctx,
			campaign.NewCampaignExecutionReportBuilder().
				CampaignID(campaignID).
				StartDate(start).
				Build())
		require.NoError(t, err)
	}
	save(1, t0)
	save(1, t0.Add(2*time.Hour))
	save(2, t0.Add(time.Hour))
	save(1, t0.Add(time.Hour))
	_, err := s.SaveCampaignExecution(ctx, campaign.CampaignExecution{})
	require.NoError(t, err)

	history, err := s.GetExecutionHistory(ctx, 1)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, int64(2), history[0].ExecutionID)
	assert.Equal(t, int64(4), history[1].ExecutionID)
	assert.Equal(t, int64(1), history[2].ExecutionID)

	empty, err := s.GetExecutionHistory(ctx, 42)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestExecutionStore_ConcurrentSaves(t *testing.T) {
	ctx := context.Background()
	s := NewExecutionStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.SaveCampaignExecution(ctx,
				campaign.NewCampaignExecutionReportBuilder().CampaignID(1).Build())
		}()
	}
	wg.Wait()

	history, err := s.GetExecutionHistory(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, history, 50)
}

func TestService_OverMemoryStores(t *testing.T) {
	ctx := context.Background()
	campaigns := NewCampaignStore()
	executions := NewExecutionStore()
	svc := campaign.NewService(campaigns, executions)

	c, _ := campaigns.CreateOrUpdate(ctx, campaign.Campaign{
		Title: "nightly", Environment: "old",
	})
	_, err := executions.SaveCampaignExecution(ctx,
		campaign.NewCampaignExecutionReportBuilder().
			CampaignID(c.ID).
			AddScenarioExecutionReport(campaign.ScenarioExecutionCampaign{
				ScenarioID: "A",
				Execution:  campaign.ExecutionSummary{Status: execution.StatusFailure},
			}).
			AddScenarioExecutionReport(campaign.ScenarioExecutionCampaign{
				ScenarioID: "A",
				Execution:  campaign.ExecutionSummary{Status: execution.StatusSuccess},
			}).
			Build())
	require.NoError(t, err)

	got, err := svc.FindByExecutionID(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got.ScenarioExecutionReports, 1)
	assert.Equal(t, execution.StatusSuccess, got.Status())

	require.NoError(t, svc.RenameEnvironment(ctx, "old", "new"))
	renamed, _ := campaigns.FindByID(ctx, c.ID)
	assert.Equal(t, "new", renamed.Environment)
}
