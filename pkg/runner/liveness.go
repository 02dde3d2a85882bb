package runner

import (
	"context"
	"sync"
	"time"

	"digital.vasic.campaigns/pkg/logging"
)

// livenessMonitor cancels a scenario attempt when its executor
// stops reporting progress for longer than the stale threshold.
// Long attempts are fine as long as they keep reporting.
type livenessMonitor struct {
	progress       *ProgressReporter
	staleThreshold time.Duration
	cancel         context.CancelFunc
	logger         logging.Logger
	scenarioID     string
}

// startLivenessMonitor starts the monitor goroutine. The returned
// stop function must be called when the attempt completes and waits
// for the goroutine to exit; the
// stuck channel is closed if the attempt was cancelled for
// inactivity.
//
// If progress is nil or staleThreshold is zero, liveness
// detection is disabled and stuck is nil.
func startLivenessMonitor(
	progress *ProgressReporter,
	staleThreshold time.Duration,
	cancel context.CancelFunc,
	logger logging.Logger,
	scenarioID string,
) (stop func(), stuck <-chan struct{}) {
	if progress == nil || staleThreshold <= 0 {
		return func() {}, nil
	}

	m := &livenessMonitor{
		progress:       progress,
		staleThreshold: staleThreshold,
		cancel:         cancel,
		logger:         logger,
		scenarioID:     scenarioID,
	}

	stopCh := make(chan struct{})
	stuckCh := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		m.run(stopCh, stuckCh)
	}()

	// stop returns once the goroutine has exited, so stuck cannot
	// close after it.
	var once sync.Once
	return func() {
		once.Do(func() { close(stopCh) })
		<-done
	}, stuckCh
}

func (m *livenessMonitor) run(
	stopCh <-chan struct{},
	stuckCh chan<- struct{},
) {
	timer := time.NewTimer(m.staleThreshold)
	defer timer.Stop()

	progressCh := m.progress.Channel()

	for {
		select {
		case <-stopCh:
			return

		case _, ok := <-progressCh:
			if !ok {
				return
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(m.staleThreshold)

		case <-timer.C:
			m.logger.Error("scenario stuck",
				logging.ScenarioField(m.scenarioID),
				logging.LogField("stale_threshold_seconds",
					m.staleThreshold.Seconds()),
			)
			close(stuckCh)
			m.cancel()
			return
		}
	}
}
