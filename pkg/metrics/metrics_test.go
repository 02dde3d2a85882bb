package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInMemoryMetrics_ImplementsInterface(t *testing.T) {
	var _ CampaignMetrics = &InMemoryMetrics{}
	var _ CampaignMetrics = &NoopMetrics{}
}

func TestInMemoryMetrics_RecordScenario(t *testing.T) {
	m := NewInMemoryMetrics()
	m.RecordScenario("login", "SUCCESS", 2*time.Second)
	m.RecordScenario("login", "SUCCESS", 4*time.Second)
	m.RecordScenario("search", "FAILURE", time.Second)

	assert.Equal(t, 2, m.ScenarioCount("login", "SUCCESS"))
	assert.Equal(t, 1, m.ScenarioCount("search", "FAILURE"))
	assert.Equal(t, 0, m.ScenarioCount("checkout", "SUCCESS"))
	assert.Equal(t, int64(3000), m.Snapshot().MeanDurations["login"])
}

func TestInMemoryMetrics_RecordCampaign(t *testing.T) {
	m := NewInMemoryMetrics()
	m.RecordCampaign(1, "SUCCESS", time.Minute)
	m.RecordCampaign(1, "FAILURE", time.Minute)
	m.RecordCampaign(2, "SUCCESS", time.Minute)

	assert.Equal(t, 1, m.CampaignCount(1, "SUCCESS"))
	assert.Equal(t, 1, m.CampaignCount(1, "FAILURE"))
	assert.Equal(t, 3, m.RunTotal())
}

func TestInMemoryMetrics_RetriesAndActive(t *testing.T) {
	m := NewInMemoryMetrics()
	m.IncrementRetries("login")
	m.IncrementRetries("login")
	m.SetActiveScenarios(5)

	assert.Equal(t, 2, m.Retries("login"))
	assert.Equal(t, 5, m.ActiveScenarios())
}

func TestInMemoryMetrics_SnapshotIsACopy(t *testing.T) {
	m := NewInMemoryMetrics()
	m.RecordScenario("login", "SUCCESS", time.Second)

	s := m.Snapshot()
	s.Scenarios["login:SUCCESS"] = 100

	assert.Equal(t, 1, m.ScenarioCount("login", "SUCCESS"))
}

func TestInMemoryMetrics_Concurrent(t *testing.T) {
	m := NewInMemoryMetrics()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.RecordScenario("s", "SUCCESS", time.Millisecond)
			m.IncrementRetries("s")
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, m.ScenarioCount("s", "SUCCESS"))
	assert.Equal(t, 50, m.Retries("s"))
}

func TestNoopMetrics(t *testing.T) {
	m := &NoopMetrics{}
	// Should not panic
	m.RecordScenario("s", "SUCCESS", time.Second)
	m.RecordCampaign(1, "SUCCESS", time.Second)
	m.IncrementRetries("s")
	m.SetActiveScenarios(0)
}
