package campaign

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"digital.vasic.campaigns/pkg/execution"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- stub repositories ---

type stubExecutions struct {
	byID    map[int64]CampaignExecution
	history map[int64][]CampaignExecution
	err     error
}

func (s *stubExecutions) GetCampaignExecutionByID(
	_ context.Context,
	id int64,
) (CampaignExecution, error) {
	if s.err != nil {
		return CampaignExecution{}, s.err
	}
	exec, ok := s.byID[id]
	if !ok {
		return CampaignExecution{}, fmt.Errorf(
			"execution %d: %w", id, ErrNotFound,
		)
	}
	return exec, nil
}

func (s *stubExecutions) GetExecutionHistory(
	_ context.Context,
	campaignID int64,
) ([]CampaignExecution, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.history[campaignID], nil
}

type stubCampaigns struct {
	campaigns map[int64]Campaign
	failOn    map[int64]error
	saved     []Campaign
}

func newStubCampaigns(cs ...Campaign) *stubCampaigns {
	s := &stubCampaigns{
		campaigns: make(map[int64]Campaign),
		failOn:    make(map[int64]error),
	}
	for _, c := range cs {
		s.campaigns[c.ID] = c
	}
	return s
}

func (s *stubCampaigns) FindByID(
	_ context.Context,
	id int64,
) (Campaign, error) {
	c, ok := s.campaigns[id]
	if !ok {
		return Campaign{}, ErrNotFound
	}
	return c, nil
}

func (s *stubCampaigns) FindByName(
	_ context.Context,
	name string,
) ([]Campaign, error) {
	var out []Campaign
	for _, c := range s.campaigns {
		if c.Title == name {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *stubCampaigns) CreateOrUpdate(
	_ context.Context,
	c Campaign,
) (Campaign, error) {
	if err := s.failOn[c.ID]; err != nil {
		return Campaign{}, err
	}
	s.campaigns[c.ID] = c
	s.saved = append(s.saved, c)
	return c, nil
}

func (s *stubCampaigns) RemoveByID(
	_ context.Context,
	id int64,
) (bool, error) {
	_, ok := s.campaigns[id]
	delete(s.campaigns, id)
	return ok, nil
}

func (s *stubCampaigns) FindCampaignsByScenarioID(
	_ context.Context,
	scenarioID string,
) ([]Campaign, error) {
	var out []Campaign
	for _, c := range s.campaigns {
		if c.HasScenario(scenarioID) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *stubCampaigns) FindCampaignsByEnvironment(
	_ context.Context,
	environment string,
) ([]Campaign, error) {
	var out []Campaign
	for id := int64(1); id <= int64(len(s.campaigns))+10; id++ {
		if c, ok := s.campaigns[id]; ok && c.Environment == environment {
			out = append(out, c)
		}
	}
	return out, nil
}

// --- tests ---

func TestService_FindByExecutionID_CollapsesRetries(t *testing.T) {
	raw := NewCampaignExecutionReportBuilder().
		ExecutionID(10).
		AddScenarioExecutionReport(attempt("A", 1, execution.StatusFailure)).
		AddScenarioExecutionReport(attempt("B", 1, execution.StatusSuccess)).
		AddScenarioExecutionReport(attempt("A", 2, execution.StatusSuccess)).
		Build()
	execs := &stubExecutions{byID: map[int64]CampaignExecution{10: raw}}
	svc := NewService(newStubCampaigns(), execs)

	got, err := svc.FindByExecutionID(context.Background(), 10)

	require.NoError(t, err)
	require.Len(t, got.ScenarioExecutionReports, 2)
	assert.Equal(t, int64(2),
		got.ScenarioExecutionReports[0].Execution.ExecutionID)
	assert.Equal(t, execution.StatusSuccess, got.Status())
}

func TestService_FindByExecutionID_NotFound(t *testing.T) {
	svc := NewService(newStubCampaigns(), &stubExecutions{})

	_, err := svc.FindByExecutionID(context.Background(), 99)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_FindExecutionsByID(t *testing.T) {
	first := NewCampaignExecutionReportBuilder().
		ExecutionID(3).
		AddScenarioExecutionReport(attempt("A", 3, execution.StatusSuccess)).
		Build()
	second := NewCampaignExecutionReportBuilder().
		ExecutionID(2).
		AddScenarioExecutionReport(attempt("B", 2, execution.StatusFailure)).
		Build()
	third := NewCampaignExecutionReportBuilder().
		ExecutionID(1).
		AddScenarioExecutionReport(attempt("A", 1, execution.StatusFailure)).
		AddScenarioExecutionReport(attempt("B", 1, execution.StatusSuccess)).
		AddScenarioExecutionReport(attempt("A", 4, execution.StatusSuccess)).
		Build()
	execs := &stubExecutions{history: map[int64][]CampaignExecution{
		1: {first, second, third},
	}}
	svc := NewService(newStubCampaigns(), execs)

	got, err := svc.FindExecutionsByID(context.Background(), 1)

	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, int64(3), got[0].ExecutionID)
	assert.Equal(t, int64(2), got[1].ExecutionID)
	assert.Equal(t, int64(1), got[2].ExecutionID)
	assert.Len(t, got[0].ScenarioExecutionReports, 1)
	assert.Len(t, got[1].ScenarioExecutionReports, 1)
	assert.Len(t, got[2].ScenarioExecutionReports, 2)
}

func TestService_FindExecutionsByID_Empty(t *testing.T) {
	svc := NewService(newStubCampaigns(), &stubExecutions{})

	got, err := svc.FindExecutionsByID(context.Background(), 5)

	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestService_FindExecutionsByID_RepositoryError(t *testing.T) {
	boom := errors.New("connection refused")
	svc := NewService(newStubCampaigns(), &stubExecutions{err: boom})

	_, err := svc.FindExecutionsByID(context.Background(), 1)

	assert.ErrorIs(t, err, boom)
}

func TestService_RenameEnvironmentInCampaigns(t *testing.T) {
	bound := Campaign{
		ID:                1,
		Title:             "nightly",
		Description:       "all the things",
		Scenarios:         []CampaignScenario{{ScenarioID: "A"}, {ScenarioID: "B", DatasetID: "users"}},
		Environment:       "old",
		ParallelRun:       true,
		RetryAuto:         true,
		ExternalDatasetID: "ext",
		Tags:              []string{"smoke"},
	}
	other := Campaign{ID: 2, Title: "other", Environment: "prod"}
	repo := newStubCampaigns(bound, other)
	svc := NewService(repo, &stubExecutions{})

	err := svc.RenameEnvironmentInCampaigns(context.Background(), "old", "new")

	require.NoError(t, err)
	require.Len(t, repo.saved, 1)
	want := bound
	want.Environment = "new"
	assert.Equal(t, want, repo.campaigns[1])
	assert.Equal(t, "prod", repo.campaigns[2].Environment)
	// The value read from the repository is not modified.
	assert.Equal(t, "old", bound.Environment)
}

func TestService_RenameEnvironmentCollectsErrors(t *testing.T) {
	repo := newStubCampaigns(
		Campaign{ID: 1, Environment: "old"},
		Campaign{ID: 2, Environment: "old"},
		Campaign{ID: 3, Environment: "old"},
	)
	boom := errors.New("write failed")
	repo.failOn[2] = boom
	svc := NewService(repo, &stubExecutions{})

	err := svc.RenameEnvironment(context.Background(), "old", "new")

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "campaign 2")
	assert.Equal(t, "new", repo.campaigns[1].Environment)
	assert.Equal(t, "old", repo.campaigns[2].Environment)
	assert.Equal(t, "new", repo.campaigns[3].Environment)
}

func TestService_RenameEnvironmentNoCampaigns(t *testing.T) {
	repo := newStubCampaigns(Campaign{ID: 1, Environment: "prod"})
	svc := NewService(repo, &stubExecutions{})

	err := svc.RenameEnvironmentInCampaigns(context.Background(), "old", "new")

	require.NoError(t, err)
	assert.Empty(t, repo.saved)
}

func TestCampaign_WithEnvironmentDoesNotAlias(t *testing.T) {
	c := Campaign{
		ID:                  1,
		Environment:         "a",
		Tags:                []string{"x"},
		ExecutionParameters: map[string]string{"k": "v"},
	}
	moved := c.WithEnvironment("b")
	moved.Tags[0] = "y"
	moved.ExecutionParameters["k"] = "w"

	assert.Equal(t, "a", c.Environment)
	assert.Equal(t, "x", c.Tags[0])
	assert.Equal(t, "v", c.ExecutionParameters["k"])
	assert.Equal(t, []string{"A", "B"}, Campaign{Scenarios: []CampaignScenario{
		{ScenarioID: "A"}, {ScenarioID: "B"}, {ScenarioID: "A", DatasetID: "d"},
	}}.ScenarioIDs())
}
