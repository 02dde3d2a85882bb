package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"digital.vasic.campaigns/pkg/campaign"
	"digital.vasic.campaigns/pkg/config"
	"digital.vasic.campaigns/pkg/dataset"
	"digital.vasic.campaigns/pkg/logging"
	"digital.vasic.campaigns/pkg/metrics"
	"digital.vasic.campaigns/pkg/monitor"
	"digital.vasic.campaigns/pkg/runner"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <campaignID>",
		Short: "Execute a campaign, running each scenario as <scripts>/<scenario id>.sh",
		Args:  cobra.ExactArgs(1),
		RunE:  runRun,
	}
	addRunFlags(cmd)
	cmd.Flags().Int64("retry-failed", 0, "re-execute only the failed scenarios of this execution")
	cmd.Flags().Bool("monitor", false, "serve the live monitor while the campaign runs")
	return cmd
}

func addRunFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.String("scripts", "scenarios", "directory holding one <scenario id>.sh per scenario")
	flags.String("env", "", "override the campaign environment")
	flags.String("dataset", "", "override the campaign data set")
	flags.String("user", os.Getenv("USER"), "user recorded on the execution")
	flags.String("datasets", "", "data set root directory (defaults to store.path for the file store)")
	flags.String("logs", "", "keep the output of every attempt under this directory")
	flags.Bool("save", true, "save the execution summary and append it to the report history")
}

// runSetup is what a campaign run needs besides the campaign.
type runSetup struct {
	scheduler *runner.Scheduler
	executor  *runner.ShellExecutor
	metrics   *metrics.InMemoryMetrics
	collector *monitor.EventCollector
	opts      runner.RunOptions
	save      bool
}

func newRunSetup(cmd *cobra.Command, a *app) (*runSetup, error) {
	flags := cmd.Flags()
	scripts, _ := flags.GetString("scripts")
	logsDir, _ := flags.GetString("logs")
	datasetsDir, _ := flags.GetString("datasets")
	save, _ := flags.GetBool("save")

	rs := &runSetup{
		metrics:   metrics.NewInMemoryMetrics(),
		collector: monitor.NewEventCollector(),
		save:      save,
	}
	rs.opts.Environment, _ = flags.GetString("env")
	rs.opts.DatasetID, _ = flags.GetString("dataset")
	rs.opts.User, _ = flags.GetString("user")

	rs.executor = runner.NewShellExecutor(scripts,
		runner.WithShellLogger(a.logger),
		runner.WithShellLogsDir(logsDir),
	)

	r := a.cfg.Runner
	opts := []runner.SchedulerOption{
		runner.WithLogger(a.logger),
		runner.WithStore(a.executions),
		runner.WithMetrics(rs.metrics),
		runner.WithPublisher(rs.collector),
		runner.WithMaxConcurrency(r.MaxConcurrency),
		runner.WithMaxRetries(r.MaxRetries),
		runner.WithTimeout(r.Timeout),
		runner.WithStaleThreshold(r.StaleThreshold),
	}

	if datasetsDir == "" && a.cfg.Store.Kind == config.StoreFile {
		datasetsDir = a.cfg.Store.Path
	}
	if datasetsDir != "" {
		repo, err := dataset.NewFileRepository(datasetsDir)
		if err != nil {
			return nil, err
		}
		opts = append(opts, runner.WithDatasets(repo))
	}

	arch, err := a.archiver(cmd.Context())
	if err != nil {
		return nil, err
	}
	if arch != nil {
		opts = append(opts, runner.WithArchiver(arch))
	}

	if err := a.notifier(rs.collector); err != nil {
		return nil, err
	}

	rs.scheduler = runner.NewScheduler(rs.executor, opts...)
	return rs, nil
}

// execute runs c, prints the collapsed result and saves the report.
// A finished run that failed is an error so the exit code reflects
// it.
func (rs *runSetup) execute(
	ctx context.Context,
	cmd *cobra.Command,
	a *app,
	c campaign.Campaign,
	opts runner.RunOptions,
) error {
	if err := rs.executor.Validate(c.ScenarioIDs()); err != nil {
		return fmt.Errorf("campaign %d is missing scenario scripts: %w", c.ID, err)
	}

	exec, runErr := rs.scheduler.Run(ctx, c, opts)
	if exec.ExecutionID == 0 {
		return runErr
	}
	renderExecution(cmd.OutOrStdout(), exec.WithoutRetries())

	var errs []error
	errs = append(errs, runErr)
	if rs.save {
		errs = append(errs, a.saveReport(exec))
	}
	if runErr == nil && exec.Status().IsFailed() {
		errs = append(errs, fmt.Errorf(
			"campaign execution %d finished with status %s",
			exec.ExecutionID, exec.Status(),
		))
	}
	return errors.Join(errs...)
}

func runRun(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0], "campaign")
	if err != nil {
		return err
	}
	retryFailed, _ := cmd.Flags().GetInt64("retry-failed")
	withMonitor, _ := cmd.Flags().GetBool("monitor")

	return withApp(cmd, func(a *app) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		c, err := a.campaigns.FindByID(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to load campaign %d: %w", id, err)
		}
		rs, err := newRunSetup(cmd, a)
		if err != nil {
			return err
		}

		opts := rs.opts
		if retryFailed != 0 {
			previous, err := a.executions.GetCampaignExecutionByID(ctx, retryFailed)
			if err != nil {
				return fmt.Errorf("failed to load campaign execution %d: %w", retryFailed, err)
			}
			opts.Partial = true
			opts.Previous = &previous
		}

		if withMonitor {
			srv := newMonitorServer(a, rs)
			monitorCtx, cancel := context.WithCancel(ctx)
			defer cancel()
			go func() {
				if err := srv.Start(monitorCtx); err != nil {
					a.logger.Error("monitor stopped", logging.ErrorField(err))
				}
			}()
		}

		return rs.execute(ctx, cmd, a, c, opts)
	})
}
