// Package file stores campaigns as YAML and executions as JSON
// under a root directory:
//
//	<root>/campaigns/<id>.yaml
//	<root>/executions/<campaignID>/<executionID>.json
//
// Executions not attached to a campaign live under
// executions/unattached.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"digital.vasic.campaigns/pkg/campaign"
)

const unattached = "unattached"

// CampaignStore is a campaign.Repository backed by YAML files.
type CampaignStore struct {
	mu     sync.RWMutex
	dir    string
	nextID int64
}

var _ campaign.Repository = (*CampaignStore)(nil)

// NewCampaignStore creates <root>/campaigns if needed and resumes
// id assignment after the highest stored id.
func NewCampaignStore(root string) (*CampaignStore, error) {
	dir := filepath.Join(root, "campaigns")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create campaign directory %s: %w", dir, err)
	}
	ids, err := idsIn(dir, ".yaml")
	if err != nil {
		return nil, err
	}
	s := &CampaignStore{dir: dir, nextID: 1}
	if len(ids) > 0 {
		s.nextID = ids[len(ids)-1] + 1
	}
	return s, nil
}

func (s *CampaignStore) path(id int64) string {
	return filepath.Join(s.dir, strconv.FormatInt(id, 10)+".yaml")
}

func (s *CampaignStore) FindByID(
	_ context.Context,
	id int64,
) (campaign.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.load(id)
}

func (s *CampaignStore) load(id int64) (campaign.Campaign, error) {
	data, err := os.ReadFile(s.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return campaign.Campaign{}, fmt.Errorf(
			"campaign %d: %w", id, campaign.ErrNotFound,
		)
	}
	if err != nil {
		return campaign.Campaign{}, fmt.Errorf("read campaign %d: %w", id, err)
	}
	var c campaign.Campaign
	if err := yaml.Unmarshal(data, &c); err != nil {
		return campaign.Campaign{}, fmt.Errorf("parse campaign %d: %w", id, err)
	}
	c.ID = id
	return c, nil
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

	data, err := yaml.Marshal(c)
	if err != nil {
		return campaign.Campaign{}, fmt.Errorf("marshal campaign %d: %w", c.ID, err)
	}
	if err := writeAtomic(s.path(c.ID), data); err != nil {
		return campaign.Campaign{}, fmt.Errorf("write campaign %d: %w", c.ID, err)
	}
	return c.Clone(), nil
}

func (s *CampaignStore) RemoveByID(
	_ context.Context,
	id int64,
) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("remove campaign %d: %w", id, err)
	}
	return true, nil
}

func (s *CampaignStore) FindByName(
	_ context.Context,
	name string,
) ([]campaign.Campaign, error) {
	return s.filter(func(c campaign.Campaign) bool {
		return c.Title == name
	})
}

func (s *CampaignStore) FindCampaignsByScenarioID(
	_ context.Context,
	scenarioID string,
) ([]campaign.Campaign, error) {
	return s.filter(func(c campaign.Campaign) bool {
		return c.HasScenario(scenarioID)
	})
}

func (s *CampaignStore) FindCampaignsByEnvironment(
	_ context.Context,
	environment string,
) ([]campaign.Campaign, error) {
	return s.filter(func(c campaign.Campaign) bool {
		return c.Environment == environment
	})
}

// filter loads every campaign and keeps the matching ones, sorted
// by id.
func (s *CampaignStore) filter(
	keep func(campaign.Campaign) bool,
) ([]campaign.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids, err := idsIn(s.dir, ".yaml")
	if err != nil {
		return nil, err
	}
	out := []campaign.Campaign{}
	for _, id := range ids {
		c, err := s.load(id)
		if err != nil {
			return nil, err
		}
		if keep(c) {
			out = append(out, c)
		}
	}
	return out, nil
}

// ExecutionStore is a campaign.ExecutionStore backed by JSON
// files.
type ExecutionStore struct {
	mu     sync.RWMutex
	dir    string
	nextID int64
}

var _ campaign.ExecutionStore = (*ExecutionStore)(nil)

// NewExecutionStore creates <root>/executions if needed and
// resumes id assignment after the highest stored id.
func NewExecutionStore(root string) (*ExecutionStore, error) {
	dir := filepath.Join(root, "executions")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create execution directory %s: %w", dir, err)
	}
	s := &ExecutionStore{dir: dir, nextID: 1}

	groups, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read execution directory %s: %w", dir, err)
	}
	for _, g := range groups {
		if !g.IsDir() {
			continue
		}
		ids, err := idsIn(filepath.Join(dir, g.Name()), ".json")
		if err != nil {
			return nil, err
		}
		if len(ids) > 0 && ids[len(ids)-1] >= s.nextID {
			s.nextID = ids[len(ids)-1] + 1
		}
	}
	return s, nil
}

func (s *ExecutionStore) group(campaignID *int64) string {
	if campaignID == nil {
		return filepath.Join(s.dir, unattached)
	}
	return filepath.Join(s.dir, strconv.FormatInt(*campaignID, 10))
}

// locate returns the file holding executionID, or "" when there is
// none.
func (s *ExecutionStore) locate(executionID int64) (string, error) {
	matches, err := filepath.Glob(filepath.Join(
		s.dir, "*", strconv.FormatInt(executionID, 10)+".json",
	))
	if err != nil {
		return "", fmt.Errorf("locate execution %d: %w", executionID, err)
	}
	if len(matches) == 0 {
		return "", nil
	}
	return matches[0], nil
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
	exec = exec.Clone()

	dir := s.group(exec.CampaignID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return campaign.CampaignExecution{}, fmt.Errorf(
			"create execution directory %s: %w", dir, err,
		)
	}
	target := filepath.Join(dir, strconv.FormatInt(exec.ExecutionID, 10)+".json")

	// An execution attached to another campaign since it was last
	// saved moves.
	previous, err := s.locate(exec.ExecutionID)
	if err != nil {
		return campaign.CampaignExecution{}, err
	}

	data, err := json.MarshalIndent(exec, "", "  ")
	if err != nil {
		return campaign.CampaignExecution{}, fmt.Errorf(
			"marshal execution %d: %w", exec.ExecutionID, err,
		)
	}
	if err := writeAtomic(target, data); err != nil {
		return campaign.CampaignExecution{}, fmt.Errorf(
			"write execution %d: %w", exec.ExecutionID, err,
		)
	}
	if previous != "" && previous != target {
		_ = os.Remove(previous)
	}
	return exec, nil
}

func (s *ExecutionStore) GetCampaignExecutionByID(
	_ context.Context,
	executionID int64,
) (campaign.CampaignExecution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	path, err := s.locate(executionID)
	if err != nil {
		return campaign.CampaignExecution{}, err
	}
	if path == "" {
		return campaign.CampaignExecution{}, fmt.Errorf(
			"campaign execution %d: %w", executionID, campaign.ErrNotFound,
		)
	}
	return loadExecution(path, executionID)
}

// GetExecutionHistory returns the executions of campaignID sorted
// by execution id, highest first.
func (s *ExecutionStore) GetExecutionHistory(
	_ context.Context,
	campaignID int64,
) ([]campaign.CampaignExecution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dir := s.group(&campaignID)
	ids, err := idsIn(dir, ".json")
	if errors.Is(err, os.ErrNotExist) {
		return []campaign.CampaignExecution{}, nil
	}
	if err != nil {
		return nil, err
	}

	out := make([]campaign.CampaignExecution, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		exec, err := loadExecution(
			filepath.Join(dir, strconv.FormatInt(ids[i], 10)+".json"), ids[i],
		)
		if err != nil {
			return nil, err
		}
		out = append(out, exec)
	}
	return out, nil
}

func loadExecution(path string, id int64) (campaign.CampaignExecution, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return campaign.CampaignExecution{}, fmt.Errorf("read execution %d: %w", id, err)
	}
	var exec campaign.CampaignExecution
	if err := json.Unmarshal(data, &exec); err != nil {
		return campaign.CampaignExecution{}, fmt.Errorf("parse execution %d: %w", id, err)
	}
	return exec.Clone(), nil
}

// idsIn returns the numeric file names with extension ext found in
// dir, ascending. Other files are ignored.
func idsIn(dir, ext string) ([]int64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", dir, err)
	}
	ids := make([]int64, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ext {
			continue
		}
		id, err := strconv.ParseInt(strings.TrimSuffix(name, ext), 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// writeAtomic writes data next to path and renames it into place.
func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
