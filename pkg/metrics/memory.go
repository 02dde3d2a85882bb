package metrics

import (
	"strconv"
	"sync"
	"time"
)

// InMemoryMetrics implements CampaignMetrics with counters and
// duration samples kept in memory. The monitor exposes a
// Snapshot of it; exporting to a metrics backend is left to the
// host application.
type InMemoryMetrics struct {
	mu        sync.RWMutex
	scenarios map[string]int
	campaigns map[string]int
	durations map[string][]time.Duration
	retries   map[string]int
	runTotal  int
	active    int
}

// NewInMemoryMetrics creates a new InMemoryMetrics instance.
func NewInMemoryMetrics() *InMemoryMetrics {
	return &InMemoryMetrics{
		scenarios: make(map[string]int),
		campaigns: make(map[string]int),
		durations: make(map[string][]time.Duration),
		retries:   make(map[string]int),
	}
}

func (m *InMemoryMetrics) RecordScenario(
	scenarioID, status string,
	duration time.Duration,
) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scenarios[scenarioID+":"+status]++
	m.durations[scenarioID] = append(m.durations[scenarioID], duration)
}

func (m *InMemoryMetrics) RecordCampaign(
	campaignID int64,
	status string,
	_ time.Duration,
) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.campaigns[strconv.FormatInt(campaignID, 10)+":"+status]++
	m.runTotal++
}

func (m *InMemoryMetrics) IncrementRetries(scenarioID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retries[scenarioID]++
}

func (m *InMemoryMetrics) SetActiveScenarios(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = count
}

// ScenarioCount returns the count for a scenario+status
// combination.
func (m *InMemoryMetrics) ScenarioCount(scenarioID, status string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.scenarios[scenarioID+":"+status]
}

// CampaignCount returns the count for a campaign+status
// combination.
func (m *InMemoryMetrics) CampaignCount(campaignID int64, status string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.campaigns[strconv.FormatInt(campaignID, 10)+":"+status]
}

// Retries returns how many times a scenario was retried.
func (m *InMemoryMetrics) Retries(scenarioID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.retries[scenarioID]
}

// RunTotal returns the number of finished campaign executions.
func (m *InMemoryMetrics) RunTotal() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.runTotal
}

// ActiveScenarios returns the current running scenarios gauge.
func (m *InMemoryMetrics) ActiveScenarios() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active
}

// Snapshot is a point-in-time copy of the recorded metrics.
type Snapshot struct {
	RunTotal        int            `json:"run_total"`
	ActiveScenarios int            `json:"active_scenarios"`
	Scenarios       map[string]int `json:"scenarios"`
	Campaigns       map[string]int `json:"campaigns"`
	Retries         map[string]int `json:"retries"`

	// MeanDurations holds the mean attempt duration per
	// scenario in milliseconds.
	MeanDurations map[string]int64 `json:"mean_durations_ms"`
}

// Snapshot returns a copy of the current state.
func (m *InMemoryMetrics) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := Snapshot{
		RunTotal:        m.runTotal,
		ActiveScenarios: m.active,
		Scenarios:       make(map[string]int, len(m.scenarios)),
		Campaigns:       make(map[string]int, len(m.campaigns)),
		Retries:         make(map[string]int, len(m.retries)),
		MeanDurations:   make(map[string]int64, len(m.durations)),
	}
	for k, v := range m.scenarios {
		s.Scenarios[k] = v
	}
	for k, v := range m.campaigns {
		s.Campaigns[k] = v
	}
	for k, v := range m.retries {
		s.Retries[k] = v
	}
	for k, ds := range m.durations {
		var total time.Duration
		for _, d := range ds {
			total += d
		}
		s.MeanDurations[k] = (total / time.Duration(len(ds))).Milliseconds()
	}
	return s
}
