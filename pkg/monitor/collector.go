package monitor

import (
	"sync"
	"time"
)

// EventCollector captures campaign events and timing data.
type EventCollector struct {
	mu       sync.RWMutex
	events   []Event
	handlers []func(Event)
	stats    CollectorStats
}

var _ Publisher = (*EventCollector)(nil)

// CollectorStats holds aggregate statistics over scenario
// attempts.
type CollectorStats struct {
	Total     int           `json:"total"`
	Passed    int           `json:"passed"`
	Failed    int           `json:"failed"`
	Retried   int           `json:"retried"`
	Skipped   int           `json:"skipped"`
	Campaigns int           `json:"campaigns"`
	StartTime time.Time     `json:"start_time"`
	Duration  time.Duration `json:"duration"`
}

// NewEventCollector creates a new event collector.
func NewEventCollector() *EventCollector {
	return &EventCollector{
		events: make([]Event, 0, 64),
		stats:  CollectorStats{StartTime: time.Now()},
	}
}

// OnEvent registers a handler to be called for each event.
func (c *EventCollector) OnEvent(handler func(Event)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, handler)
}

// Publish records an event and notifies all handlers.
func (c *EventCollector) Publish(event Event) {
	event = stamp(event)

	c.mu.Lock()
	c.events = append(c.events, event)
	switch event.Type {
	case EventScenarioCompleted:
		c.stats.Total++
		c.stats.Passed++
	case EventScenarioFailed:
		c.stats.Total++
		c.stats.Failed++
	case EventScenarioSkipped:
		c.stats.Total++
		c.stats.Skipped++
	case EventScenarioRetried:
		c.stats.Retried++
	case EventCampaignStarted:
		c.stats.Campaigns++
	}
	c.stats.Duration = time.Since(c.stats.StartTime)
	handlers := make([]func(Event), len(c.handlers))
	copy(handlers, c.handlers)
	c.mu.Unlock()

	for _, h := range handlers {
		h(event)
	}
}

// Events returns a copy of all collected events.
func (c *EventCollector) Events() []Event {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]Event, len(c.events))
	copy(result, c.events)
	return result
}

// EventsFor returns the events of one campaign execution.
func (c *EventCollector) EventsFor(executionID int64) []Event {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var result []Event
	for _, e := range c.events {
		if e.ExecutionID == executionID {
			result = append(result, e)
		}
	}
	return result
}

// Stats returns the current aggregate statistics.
func (c *EventCollector) Stats() CollectorStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := c.stats
	s.Duration = time.Since(s.StartTime)
	return s
}

// Reset clears all collected events and statistics.
func (c *EventCollector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = c.events[:0]
	c.stats = CollectorStats{StartTime: time.Now()}
}
