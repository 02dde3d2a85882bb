// Package memory provides in-process campaign and execution
// stores. They are safe for concurrent use and lose everything on
// exit.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"digital.vasic.campaigns/pkg/campaign"
)

// CampaignStore is an in-memory campaign.Repository.
type CampaignStore struct {
	mu        sync.RWMutex
	campaigns map[int64]campaign.Campaign
	nextID    int64
}

// NewCampaignStore creates an empty store. Ids start at 1.
func NewCampaignStore() *CampaignStore {
	return &CampaignStore{
		campaigns: make(map[int64]campaign.Campaign),
		nextID:    1,
	}
}

func (s *CampaignStore) FindByID(
	_ context.Context,
	id int64,
) (campaign.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.campaigns[id]
	if !ok {
		return campaign.Campaign{}, fmt.Errorf(
			"campaign %d: %w", id, campaign.ErrNotFound,
		)
	}
	return c.Clone(), nil
}

func (s *CampaignStore) FindByName(
	_ context.Context,
	name string,
) ([]campaign.Campaign, error) {
	return s.filter(func(c campaign.Campaign) bool {
		return c.Title == name
	}), nil
}

func (s *CampaignStore) CreateOrUpdate(
	_ context.Context,
	c campaign.Campaign,
) (campaign.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == 0 {
		c.ID = s.nextID
	}
	if c.ID >= s.nextID {
		s.nextID = c.ID + 1
	}
	s.campaigns[c.ID] = c.Clone()
	return c.Clone(), nil
}

func (s *CampaignStore) RemoveByID(
	_ context.Context,
	id int64,
) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.campaigns[id]
	delete(s.campaigns, id)
	return ok, nil
}

func (s *CampaignStore) FindCampaignsByScenarioID(
	_ context.Context,
	scenarioID string,
) ([]campaign.Campaign, error) {
	return s.filter(func(c campaign.Campaign) bool {
		return c.HasScenario(scenarioID)
	}), nil
}

func (s *CampaignStore) FindCampaignsByEnvironment(
	_ context.Context,
	environment string,
) ([]campaign.Campaign, error) {
	return s.filter(func(c campaign.Campaign) bool {
		return c.Environment == environment
	}), nil
}

// All returns every campaign sorted by id.
func (s *CampaignStore) All() []campaign.Campaign {
	return s.filter(func(campaign.Campaign) bool { return true })
}

// filter returns copies of the matching campaigns sorted by id.
func (s *CampaignStore) filter(
	keep func(campaign.Campaign) bool,
) []campaign.Campaign {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []campaign.Campaign{}
	for _, c := range s.campaigns {
		if keep(c) {
			out = append(out, c.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out
}

// ExecutionStore is an in-memory campaign.ExecutionStore.
type ExecutionStore struct {
	mu         sync.RWMutex
	executions map[int64]campaign.CampaignExecution
	nextID     int64
}

// NewExecutionStore creates an empty store. Ids start at 1.
func NewExecutionStore() *ExecutionStore {
	return &ExecutionStore{
		executions: make(map[int64]campaign.CampaignExecution),
		nextID:     1,
	}
}

func (s *ExecutionStore) SaveCampaignExecution(
	_ context.Context,
	exec campaign.CampaignExecution,
) (campaign.CampaignExecution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if exec.ExecutionID == 0 {
		exec.ExecutionID = s.nextID
	}
	if exec.ExecutionID >= s.nextID {
		s.nextID = exec.ExecutionID + 1
	}
	s.executions[exec.ExecutionID] = exec.Clone()
	return exec.Clone(), nil
}

func (s *ExecutionStore) GetCampaignExecutionByID(
	_ context.Context,
	executionID int64,
) (campaign.CampaignExecution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	exec, ok := s.executions[executionID]
	if !ok {
		return campaign.CampaignExecution{}, fmt.Errorf(
			"campaign execution %d: %w", executionID, campaign.ErrNotFound,
		)
	}
	return exec.Clone(), nil
}

// GetExecutionHistory returns the executions of campaignID, most
// recent first.
func (s *ExecutionStore) GetExecutionHistory(
	_ context.Context,
	campaignID int64,
) ([]campaign.CampaignExecution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []campaign.CampaignExecution{}
	for _, exec := range s.executions {
		if exec.CampaignID != nil && *exec.CampaignID == campaignID {
			out = append(out, exec.Clone())
		}
	}
	sortMostRecentFirst(out)
	return out, nil
}

// sortMostRecentFirst orders by start date, then by id, both
// descending.
func sortMostRecentFirst(execs []campaign.CampaignExecution) {
	sort.Slice(execs, func(i, j int) bool {
		a, b := execs[i], execs[j]
		if !a.StartDate.Equal(b.StartDate) {
			return a.StartDate.After(b.StartDate)
		}
		return a.ExecutionID > b.ExecutionID
	})
}
