package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"digital.vasic.campaigns/pkg/campaign"
	"digital.vasic.campaigns/pkg/dataset"
	"digital.vasic.campaigns/pkg/execution"
	"digital.vasic.campaigns/pkg/logging"
	"digital.vasic.campaigns/pkg/metrics"
	"digital.vasic.campaigns/pkg/monitor"
)

// Hook is invoked before or after a scenario attempt.
type Hook func(ctx context.Context, req ScenarioRequest) error

// Archiver stores a finished execution report and returns where
// it was put.
type Archiver interface {
	Archive(ctx context.Context, exec campaign.CampaignExecution) (string, error)
}

// RunOptions tunes one campaign execution.
type RunOptions struct {
	// Environment overrides the campaign environment.
	Environment string

	// DatasetID overrides the campaign external data set.
	DatasetID string

	User string

	// Partial re-executes only the scenarios Previous failed.
	Partial  bool
	Previous *campaign.CampaignExecution
}

// Scheduler runs campaigns. It is safe for concurrent use; each
// Run builds its own execution.
type Scheduler struct {
	executor       ScenarioExecutor
	logger         logging.Logger
	store          campaign.ExecutionStore
	datasets       dataset.Repository
	publisher      monitor.Publisher
	metrics        metrics.CampaignMetrics
	archiver       Archiver
	maxConcurrency int
	maxRetries     int
	timeout        time.Duration
	staleThreshold time.Duration
	preHooks       []Hook
	postHooks      []Hook
	now            func() time.Time

	// nextID numbers executions when no store is configured.
	nextID atomic.Int64
	active atomic.Int64
}

// NewScheduler creates a Scheduler with the supplied options.
func NewScheduler(
	executor ScenarioExecutor,
	opts ...SchedulerOption,
) *Scheduler {
	s := &Scheduler{
		executor:       executor,
		logger:         logging.NullLogger{},
		publisher:      monitor.NoopPublisher{},
		metrics:        metrics.NoopMetrics{},
		maxConcurrency: 4,
		maxRetries:     1,
		timeout:        30 * time.Minute,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// campaignRun is the state shared by the attempts of one Run.
type campaignRun struct {
	campaign    campaign.Campaign
	live        *LiveExecution
	executionID int64
	environment string
	datasetID   string
	user        string
	logger      logging.Logger
}

// Run executes c and returns the finished execution. When ctx is
// cancelled, scenarios not yet started are recorded as
// NOT_EXECUTED, the execution ends STOPPED, and the context error
// is returned along with it.
func (s *Scheduler) Run(
	ctx context.Context,
	c campaign.Campaign,
	opts RunOptions,
) (campaign.CampaignExecution, error) {
	scenarios, err := s.plan(c, opts)
	if err != nil {
		return campaign.CampaignExecution{}, err
	}

	run := &campaignRun{
		campaign:    c,
		environment: firstNonEmpty(opts.Environment, c.Environment),
		datasetID:   firstNonEmpty(opts.DatasetID, c.ExternalDatasetID),
		user:        opts.User,
	}
	builder := campaign.NewCampaignExecutionReportBuilder().
		CampaignName(c.Title).
		PartialExecution(opts.Partial).
		Environment(run.environment).
		DataSetID(run.datasetID).
		UserID(run.user).
		StartDate(s.now()).
		Status(execution.StatusRunning)
	if c.ID != 0 {
		builder.CampaignID(c.ID)
	}
	run.live = NewLiveExecution(builder)

	if err := s.start(ctx, run); err != nil {
		return campaign.CampaignExecution{}, err
	}

	run.logger.Info("campaign started",
		logging.IntField("scenarios", len(scenarios)),
		logging.BoolField("parallel", c.ParallelRun),
		logging.BoolField("partial", opts.Partial),
	)
	s.publisher.Publish(monitor.Event{
		Type:        monitor.EventCampaignStarted,
		CampaignID:  c.ID,
		ExecutionID: run.executionID,
		Name:        c.Title,
		Status:      string(execution.StatusRunning),
	})

	s.pass(ctx, run, scenarios, 1)
	if c.RetryAuto {
		s.retry(ctx, run)
	}

	return s.finish(ctx, run)
}

// plan returns the scenarios the run schedules.
func (s *Scheduler) plan(
	c campaign.Campaign,
	opts RunOptions,
) ([]campaign.CampaignScenario, error) {
	if !opts.Partial {
		return c.Scenarios, nil
	}
	if opts.Previous == nil {
		return nil, errors.New(
			"partial execution requires a previous execution",
		)
	}
	if prev := opts.Previous.CampaignID; prev == nil || *prev != c.ID {
		return nil, fmt.Errorf(
			"campaign execution %d does not belong to campaign %d",
			opts.Previous.ExecutionID, c.ID,
		)
	}
	failed := opts.Previous.FailedScenarios()
	scenarios := make([]campaign.CampaignScenario, 0, len(failed))
	for _, f := range failed {
		scenarios = append(scenarios, campaign.CampaignScenario{
			ScenarioID: f.ScenarioID,
			DatasetID:  f.DatasetID,
		})
	}
	return scenarios, nil
}

// start persists the running execution and fixes its id.
func (s *Scheduler) start(ctx context.Context, run *campaignRun) error {
	if s.store == nil {
		run.executionID = s.nextID.Add(1)
	} else {
		saved, err := s.store.SaveCampaignExecution(ctx, run.live.Snapshot())
		if err != nil {
			return fmt.Errorf(
				"failed to save campaign execution: %w", err,
			)
		}
		run.executionID = saved.ExecutionID
	}
	run.live.SetExecutionID(run.executionID)
	run.logger = s.logger.WithFields(
		logging.CampaignField(run.campaign.ID),
		logging.ExecutionField(run.executionID),
	)
	return nil
}

func (s *Scheduler) pass(
	ctx context.Context,
	run *campaignRun,
	scenarios []campaign.CampaignScenario,
	attempt int,
) {
	if run.campaign.ParallelRun {
		s.runParallel(ctx, run, scenarios, attempt)
		return
	}
	s.runSequential(ctx, run, scenarios, attempt)
}

// retry re-executes the scenarios whose latest attempt failed, up
// to maxRetries rounds.
func (s *Scheduler) retry(ctx context.Context, run *campaignRun) {
	for round := 1; round <= s.maxRetries; round++ {
		if ctx.Err() != nil {
			return
		}
		failed := run.live.Snapshot().FailedScenarios()
		if len(failed) == 0 {
			return
		}
		scenarios := make([]campaign.CampaignScenario, 0, len(failed))
		for _, f := range failed {
			s.metrics.IncrementRetries(f.ScenarioID)
			s.publisher.Publish(monitor.Event{
				Type:        monitor.EventScenarioRetried,
				CampaignID:  run.campaign.ID,
				ExecutionID: run.executionID,
				ScenarioID:  f.ScenarioID,
				Name:        f.ScenarioName,
				Attempt:     round + 1,
				Message:     f.Execution.Error,
			})
			scenarios = append(scenarios, campaign.CampaignScenario{
				ScenarioID: f.ScenarioID,
				DatasetID:  f.DatasetID,
			})
		}
		run.logger.Info("retrying failed scenarios",
			logging.IntField("round", round),
			logging.IntField("scenarios", len(scenarios)),
		)
		s.pass(ctx, run, scenarios, round+1)
	}
}

// finish settles the final status, persists, archives and
// reports the execution.
func (s *Scheduler) finish(
	ctx context.Context,
	run *campaignRun,
) (campaign.CampaignExecution, error) {
	stopped := ctx.Err() != nil
	if stopped {
		run.live.SetStatus(execution.StatusStopped)
	} else {
		run.live.SetStatus("")
	}
	exec := run.live.Snapshot()
	status := exec.Status()

	// The execution is recorded even when the run was cancelled.
	saveCtx := context.WithoutCancel(ctx)

	var errs []error
	if s.store != nil {
		if _, err := s.store.SaveCampaignExecution(saveCtx, exec); err != nil {
			errs = append(errs, fmt.Errorf(
				"failed to save campaign execution %d: %w",
				run.executionID, err,
			))
		}
	}
	if s.archiver != nil {
		location, err := s.archiver.Archive(saveCtx, exec)
		if err != nil {
			run.logger.Warn("failed to archive campaign execution",
				logging.ErrorField(err),
			)
		} else {
			run.logger.Debug("campaign execution archived",
				logging.StringField("location", location),
			)
		}
	}

	s.metrics.RecordCampaign(run.campaign.ID, string(status), exec.Duration())
	eventType := monitor.EventCampaignCompleted
	if stopped {
		eventType = monitor.EventCampaignStopped
	}
	s.publisher.Publish(monitor.Event{
		Type:        eventType,
		CampaignID:  run.campaign.ID,
		ExecutionID: run.executionID,
		Name:        run.campaign.Title,
		Status:      string(status),
		Duration:    exec.Duration(),
	})
	run.logger.Info("campaign finished",
		logging.StringField("status", string(status)),
		logging.IntField("attempts", len(exec.ScenarioExecutionReports)),
		logging.Int64Field("duration_ms", exec.Duration().Milliseconds()),
	)

	if stopped {
		errs = append(errs, fmt.Errorf(
			"campaign execution %d stopped: %w",
			run.executionID, context.Cause(ctx),
		))
	}
	return exec, errors.Join(errs...)
}

// executeScenario runs one attempt and never fails: every problem
// is recorded in the returned attempt.
func (s *Scheduler) executeScenario(
	ctx context.Context,
	run *campaignRun,
	sc campaign.CampaignScenario,
	attempt int,
) campaign.ScenarioExecutionCampaign {
	req := ScenarioRequest{
		CampaignID:  run.campaign.ID,
		ExecutionID: run.executionID,
		ScenarioID:  sc.ScenarioID,
		DatasetID:   firstNonEmpty(sc.DatasetID, run.datasetID),
		Environment: run.environment,
		User:        run.user,
		Attempt:     attempt,
		Parameters:  run.campaign.ExecutionParameters,
	}
	logger := run.logger.WithFields(
		logging.ScenarioField(sc.ScenarioID),
		logging.IntField("attempt", attempt),
	)

	s.setActive(1)
	defer s.setActive(-1)

	start := s.now()
	s.publisher.Publish(monitor.Event{
		Type:        monitor.EventScenarioStarted,
		CampaignID:  run.campaign.ID,
		ExecutionID: run.executionID,
		ScenarioID:  sc.ScenarioID,
		Attempt:     attempt,
		Timestamp:   start,
	})

	result := s.attempt(ctx, logger, &req)
	result.ScenarioID = sc.ScenarioID
	result.DatasetID = req.DatasetID
	if result.ScenarioName == "" {
		result.ScenarioName = sc.ScenarioID
	}
	summary := &result.Execution
	summary.ScenarioID = sc.ScenarioID
	summary.Time = start
	summary.Duration = s.now().Sub(start).Milliseconds()
	summary.Environment = run.environment
	summary.User = run.user
	if summary.Title == "" {
		summary.Title = result.ScenarioName
	}

	for _, hook := range s.postHooks {
		if err := hook(ctx, req); err != nil {
			logger.Warn("post-hook failed", logging.ErrorField(err))
		}
	}

	duration := time.Duration(summary.Duration) * time.Millisecond
	s.metrics.RecordScenario(sc.ScenarioID, string(summary.Status), duration)
	eventType := monitor.EventScenarioCompleted
	if summary.Status != execution.StatusSuccess {
		eventType = monitor.EventScenarioFailed
	}
	s.publisher.Publish(monitor.Event{
		Type:        eventType,
		CampaignID:  run.campaign.ID,
		ExecutionID: run.executionID,
		ScenarioID:  sc.ScenarioID,
		Name:        result.ScenarioName,
		Status:      string(summary.Status),
		Attempt:     attempt,
		Message:     summary.Error,
		Duration:    duration,
	})
	logger.Info("scenario finished",
		logging.StringField("status", string(summary.Status)),
		logging.Int64Field("duration_ms", summary.Duration),
	)
	return result
}

// attempt resolves the data set, runs the hooks and the executor,
// and maps the outcome to an attempt record.
func (s *Scheduler) attempt(
	ctx context.Context,
	logger logging.Logger,
	req *ScenarioRequest,
) campaign.ScenarioExecutionCampaign {
	failed := func(status execution.Status, msg string) campaign.ScenarioExecutionCampaign {
		logger.Error("scenario attempt failed", logging.StringField("reason", msg))
		return campaign.ScenarioExecutionCampaign{
			Execution: campaign.ExecutionSummary{Status: status, Error: msg},
		}
	}

	if req.DatasetID != "" && s.datasets != nil {
		ds, err := s.datasets.FindByID(ctx, req.DatasetID)
		if err != nil {
			return failed(execution.StatusFailure, fmt.Sprintf(
				"failed to load dataset %s: %v", req.DatasetID, err,
			))
		}
		req.DataSet = &ds
	}

	for _, hook := range s.preHooks {
		if err := hook(ctx, *req); err != nil {
			return failed(execution.StatusFailure,
				fmt.Sprintf("pre-hook failed: %v", err))
		}
	}

	execCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var progress *ProgressReporter
	if s.staleThreshold > 0 {
		progress = NewProgressReporter()
		defer progress.Close()
		req.Progress = progress
	}
	stopLiveness, stuckCh := startLivenessMonitor(
		progress, s.staleThreshold, cancel, logger, req.ScenarioID,
	)
	defer stopLiveness()

	report, execErr := s.executor.Execute(execCtx, *req)
	stopLiveness()

	// An attempt that completed without failing keeps its outcome even
	// when the stale timer or the deadline fired as it returned.
	completed := execErr == nil && !report.Status().IsFailed()
	if ctx.Err() == nil && completed {
		return s.summarize(report)
	}

	if stuckCh != nil {
		select {
		case <-stuckCh:
			return failed(execution.StatusFailure, fmt.Sprintf(
				"scenario stuck: no progress reported within %v",
				s.staleThreshold,
			))
		default:
		}
	}
	if ctx.Err() != nil {
		return failed(execution.StatusStopped, "scenario execution stopped")
	}
	if errors.Is(execCtx.Err(), context.DeadlineExceeded) {
		return failed(execution.StatusFailure, "scenario execution timed out")
	}
	if execErr != nil {
		return failed(execution.StatusFailure,
			fmt.Sprintf("execution failed: %v", execErr))
	}

	return s.summarize(report)
}

func (s *Scheduler) summarize(
	report execution.ScenarioExecutionReport,
) campaign.ScenarioExecutionCampaign {
	return campaign.ScenarioExecutionCampaign{
		ScenarioName: report.ScenarioName,
		Execution: campaign.ExecutionSummary{
			ExecutionID: report.ExecutionID,
			Status:      report.Status(),
			Title:       report.ScenarioName,
			Info:        strings.Join(report.Report.Information, "\n"),
			Error:       strings.Join(report.Report.Errors, "\n"),
		},
	}
}

// notExecuted records a scenario skipped because the run was
// cancelled before it started.
func (s *Scheduler) notExecuted(
	run *campaignRun,
	sc campaign.CampaignScenario,
) campaign.ScenarioExecutionCampaign {
	s.publisher.Publish(monitor.Event{
		Type:        monitor.EventScenarioSkipped,
		CampaignID:  run.campaign.ID,
		ExecutionID: run.executionID,
		ScenarioID:  sc.ScenarioID,
		Status:      string(execution.StatusNotExecuted),
	})
	return campaign.ScenarioExecutionCampaign{
		ScenarioID:   sc.ScenarioID,
		ScenarioName: sc.ScenarioID,
		DatasetID:    firstNonEmpty(sc.DatasetID, run.datasetID),
		Execution: campaign.ExecutionSummary{
			ScenarioID:  sc.ScenarioID,
			Time:        s.now(),
			Environment: run.environment,
			User:        run.user,
			Status:      execution.StatusNotExecuted,
			Title:       sc.ScenarioID,
		},
	}
}

func (s *Scheduler) setActive(delta int64) {
	s.metrics.SetActiveScenarios(int(s.active.Add(delta)))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
