package runner

import (
	"time"

	"digital.vasic.campaigns/pkg/campaign"
	"digital.vasic.campaigns/pkg/dataset"
	"digital.vasic.campaigns/pkg/logging"
	"digital.vasic.campaigns/pkg/metrics"
	"digital.vasic.campaigns/pkg/monitor"
)

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithLogger sets the logger used by the scheduler.
func WithLogger(logger logging.Logger) SchedulerOption {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// WithStore persists executions when they start and when they
// finish.
func WithStore(store campaign.ExecutionStore) SchedulerOption {
	return func(s *Scheduler) {
		s.store = store
	}
}

// WithDatasets resolves the data sets scenarios run with.
func WithDatasets(repo dataset.Repository) SchedulerOption {
	return func(s *Scheduler) {
		s.datasets = repo
	}
}

// WithPublisher sets where lifecycle events are published.
func WithPublisher(p monitor.Publisher) SchedulerOption {
	return func(s *Scheduler) {
		s.publisher = p
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m metrics.CampaignMetrics) SchedulerOption {
	return func(s *Scheduler) {
		s.metrics = m
	}
}

// WithArchiver stores every finished execution report.
func WithArchiver(a Archiver) SchedulerOption {
	return func(s *Scheduler) {
		s.archiver = a
	}
}

// WithMaxConcurrency bounds the scenarios run at once by a
// parallel campaign.
func WithMaxConcurrency(n int) SchedulerOption {
	return func(s *Scheduler) {
		s.maxConcurrency = n
	}
}

// WithMaxRetries sets how many retry rounds a campaign with
// automatic retry gets.
func WithMaxRetries(n int) SchedulerOption {
	return func(s *Scheduler) {
		s.maxRetries = n
	}
}

// WithTimeout sets the hard limit of a single scenario attempt.
// Zero keeps the default.
func WithTimeout(timeout time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// WithStaleThreshold cancels attempts whose executor reports no
// progress for the given duration. Zero disables the check.
func WithStaleThreshold(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		s.staleThreshold = d
	}
}

// WithPreHook adds a hook run before every attempt. An error
// fails the attempt without running the scenario.
func WithPreHook(h Hook) SchedulerOption {
	return func(s *Scheduler) {
		s.preHooks = append(s.preHooks, h)
	}
}

// WithPostHook adds a hook run after every attempt. Errors are
// logged as warnings.
func WithPostHook(h Hook) SchedulerOption {
	return func(s *Scheduler) {
		s.postHooks = append(s.postHooks, h)
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) {
		s.now = now
	}
}
