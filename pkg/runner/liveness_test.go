package runner

import (
	"context"
	"sync"
	"testing"
	"time"

	"digital.vasic.campaigns/pkg/campaign"
	"digital.vasic.campaigns/pkg/execution"
	"digital.vasic.campaigns/pkg/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLivenessMonitor_NilProgress_NoOp(t *testing.T) {
	_, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop, stuck := startLivenessMonitor(
		nil, 100*time.Millisecond, cancel,
		logging.NullLogger{}, "nil",
	)
	defer stop()

	assert.Nil(t, stuck)
}

func TestLivenessMonitor_ZeroThreshold_NoOp(t *testing.T) {
	_, cancel := context.WithCancel(context.Background())
	defer cancel()

	progress := NewProgressReporter()
	defer progress.Close()

	stop, stuck := startLivenessMonitor(
		progress, 0, cancel, logging.NullLogger{}, "zero",
	)
	defer stop()

	assert.Nil(t, stuck)
}

func TestLivenessMonitor_DetectsStuck(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	progress := NewProgressReporter()
	defer progress.Close()

	stop, stuck := startLivenessMonitor(
		progress, 100*time.Millisecond, cancel,
		logging.NullLogger{}, "stuck",
	)
	defer stop()
	require.NotNil(t, stuck)

	select {
	case <-stuck:
	case <-time.After(2 * time.Second):
		t.Fatal("expected stuck detection within 2s")
	}
	assert.Error(t, ctx.Err())
}

func TestLivenessMonitor_ProgressPreventsStuck(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	progress := NewProgressReporter()
	defer progress.Close()

	stop, stuck := startLivenessMonitor(
		progress, 200*time.Millisecond, cancel,
		logging.NullLogger{}, "alive",
	)

	for i := 0; i < 6; i++ {
		progress.Report("step")
		time.Sleep(50 * time.Millisecond)
	}
	stop()

	select {
	case <-stuck:
		t.Fatal("monitor reported a scenario that kept reporting")
	default:
	}
	assert.NoError(t, ctx.Err())
}

func TestProgressReporter(t *testing.T) {
	p := NewProgressReporter()
	assert.Nil(t, p.LastUpdate())

	p.Report("first")
	require.NotNil(t, p.LastUpdate())
	assert.Equal(t, "first", p.LastUpdate().Message)

	p.Close()
	p.Close()
	p.Report("after close")
	assert.Equal(t, "after close", p.LastUpdate().Message)

	var nilReporter *ProgressReporter
	nilReporter.Report("ignored")
}

func TestLiveExecution_ConcurrentAppends(t *testing.T) {
	live := NewLiveExecution(campaign.NewCampaignExecutionReportBuilder())
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			live.Append(campaign.ScenarioExecutionCampaign{
				ScenarioID: "s",
				Execution:  campaign.ExecutionSummary{Status: execution.StatusSuccess},
			})
		}()
	}
	wg.Wait()

	live.SetExecutionID(9)
	live.SetStatus(execution.StatusStopped)
	snap := live.Snapshot()
	assert.Len(t, snap.ScenarioExecutionReports, 100)
	assert.Equal(t, int64(9), snap.ExecutionID)
	assert.Equal(t, execution.StatusStopped, snap.Status())
}
