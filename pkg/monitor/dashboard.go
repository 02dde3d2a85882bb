package monitor

import (
	"sync"
	"time"
)

// DashboardData provides a real-time snapshot of a campaign
// execution.
type DashboardData struct {
	mu          sync.RWMutex
	ExecutionID int64                    `json:"execution_id"`
	Campaign    string                   `json:"campaign"`
	StartTime   time.Time                `json:"start_time"`
	Status      string                   `json:"status"`
	Scenarios   map[string]ScenarioState `json:"scenarios"`
	Summary     DashboardSummary         `json:"summary"`
}

// ScenarioState is the latest known state of one scenario.
type ScenarioState struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Status    string        `json:"status"`
	Attempts  int           `json:"attempts"`
	StartTime *time.Time    `json:"start_time,omitempty"`
	EndTime   *time.Time    `json:"end_time,omitempty"`
	Duration  time.Duration `json:"duration,omitempty"`
	Message   string        `json:"message,omitempty"`
}

// DashboardSummary holds aggregate stats for the dashboard.
type DashboardSummary struct {
	Total    int     `json:"total"`
	Passed   int     `json:"passed"`
	Failed   int     `json:"failed"`
	Skipped  int     `json:"skipped"`
	Running  int     `json:"running"`
	PassRate float64 `json:"pass_rate"`
	Elapsed  string  `json:"elapsed"`
}

// NewDashboardData creates an empty dashboard.
func NewDashboardData() *DashboardData {
	return &DashboardData{
		StartTime: time.Now(),
		Status:    "idle",
		Scenarios: make(map[string]ScenarioState),
	}
}

// UpdateFromEvent updates dashboard state from an event. A new
// campaign execution clears the scenarios of the previous one.
func (d *DashboardData) UpdateFromEvent(event Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch event.Type {
	case EventCampaignStarted:
		d.ExecutionID = event.ExecutionID
		d.Campaign = event.Name
		d.StartTime = event.Timestamp
		d.Status = "RUNNING"
		d.Scenarios = make(map[string]ScenarioState)
		d.recalcSummary()
		return
	case EventCampaignCompleted, EventCampaignStopped:
		d.Status = event.Status
		d.recalcSummary()
		return
	}

	now := event.Timestamp
	state, exists := d.Scenarios[event.ScenarioID]
	if !exists {
		state = ScenarioState{ID: event.ScenarioID, Name: event.Name}
	}

	switch event.Type {
	case EventScenarioStarted:
		state.Status = "RUNNING"
		state.Attempts++
		state.StartTime = &now
		state.EndTime = nil
	case EventScenarioCompleted, EventScenarioFailed:
		state.Status = event.Status
		state.EndTime = &now
		state.Duration = event.Duration
		state.Message = event.Message
	case EventScenarioRetried:
		state.Message = event.Message
	case EventScenarioSkipped:
		state.Status = event.Status
	}

	d.Scenarios[event.ScenarioID] = state
	d.recalcSummary()
}

func (d *DashboardData) recalcSummary() {
	s := DashboardSummary{}
	for _, sc := range d.Scenarios {
		s.Total++
		switch sc.Status {
		case "SUCCESS":
			s.Passed++
		case "FAILURE", "STOPPED":
			s.Failed++
		case "NOT_EXECUTED":
			s.Skipped++
		case "RUNNING":
			s.Running++
		}
	}
	if completed := s.Passed + s.Failed; completed > 0 {
		s.PassRate = float64(s.Passed) / float64(completed) * 100
	}
	s.Elapsed = time.Since(d.StartTime).Round(time.Millisecond).String()
	d.Summary = s
}

// Snapshot returns a copy of the current dashboard state.
func (d *DashboardData) Snapshot() *DashboardData {
	d.mu.RLock()
	defer d.mu.RUnlock()
	snap := &DashboardData{
		ExecutionID: d.ExecutionID,
		Campaign:    d.Campaign,
		StartTime:   d.StartTime,
		Status:      d.Status,
		Summary:     d.Summary,
		Scenarios:   make(map[string]ScenarioState, len(d.Scenarios)),
	}
	for k, v := range d.Scenarios {
		snap.Scenarios[k] = v
	}
	return snap
}

// BuildDashboardData replays every event of a collector.
func BuildDashboardData(collector *EventCollector) *DashboardData {
	data := NewDashboardData()
	for _, event := range collector.Events() {
		data.UpdateFromEvent(event)
	}
	return data
}
