// Package monitor publishes campaign execution events and serves
// them live to dashboards over WebSocket.
package monitor

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of campaign event.
type EventType string

const (
	EventCampaignStarted   EventType = "campaign_started"
	EventCampaignCompleted EventType = "campaign_completed"
	EventCampaignStopped   EventType = "campaign_stopped"
	EventScenarioStarted   EventType = "scenario_started"
	EventScenarioCompleted EventType = "scenario_completed"
	EventScenarioFailed    EventType = "scenario_failed"
	EventScenarioRetried   EventType = "scenario_retried"
	EventScenarioSkipped   EventType = "scenario_skipped"
)

// Event represents a lifecycle event during a campaign execution.
type Event struct {
	ID          string        `json:"id"`
	Type        EventType     `json:"type"`
	CampaignID  int64         `json:"campaign_id"`
	ExecutionID int64         `json:"execution_id"`
	ScenarioID  string        `json:"scenario_id,omitempty"`
	Name        string        `json:"name"`
	Status      string        `json:"status,omitempty"`
	Attempt     int           `json:"attempt,omitempty"`
	Message     string        `json:"message,omitempty"`
	Duration    time.Duration `json:"duration,omitempty"`
	Timestamp   time.Time     `json:"timestamp"`
}

// Publisher receives campaign events.
type Publisher interface {
	Publish(event Event)
}

// NoopPublisher drops every event.
type NoopPublisher struct{}

func (NoopPublisher) Publish(Event) {}

// stamp fills in the id and timestamp of an event when unset.
func stamp(event Event) Event {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	return event
}
