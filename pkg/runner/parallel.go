package runner

import (
	"context"
	"sync"

	"digital.vasic.campaigns/pkg/campaign"
)

// runParallel executes the scenarios concurrently with a
// semaphore limiting maxConcurrency goroutines. Each attempt is
// appended to live as soon as it completes; scenarios still
// waiting for a slot when ctx is done are recorded as not
// executed.
func (s *Scheduler) runParallel(
	ctx context.Context,
	run *campaignRun,
	scenarios []campaign.CampaignScenario,
	attempt int,
) {
	maxConcurrency := s.maxConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}

	sem := make(chan struct{}, maxConcurrency)
	var wg sync.WaitGroup

	for _, sc := range scenarios {
		wg.Add(1)
		go func(sc campaign.CampaignScenario) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				run.live.Append(s.notExecuted(run, sc))
				return
			}
			if ctx.Err() != nil {
				run.live.Append(s.notExecuted(run, sc))
				return
			}

			run.live.Append(s.executeScenario(ctx, run, sc, attempt))
		}(sc)
	}

	wg.Wait()
}

// runSequential executes the scenarios one after the other.
func (s *Scheduler) runSequential(
	ctx context.Context,
	run *campaignRun,
	scenarios []campaign.CampaignScenario,
	attempt int,
) {
	for _, sc := range scenarios {
		if ctx.Err() != nil {
			run.live.Append(s.notExecuted(run, sc))
			continue
		}
		run.live.Append(s.executeScenario(ctx, run, sc, attempt))
	}
}
