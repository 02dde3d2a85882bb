package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"digital.vasic.campaigns/pkg/archive"
	"digital.vasic.campaigns/pkg/campaign"
	"digital.vasic.campaigns/pkg/config"
	"digital.vasic.campaigns/pkg/env"
	"digital.vasic.campaigns/pkg/logging"
	"digital.vasic.campaigns/pkg/monitor"
	"digital.vasic.campaigns/pkg/store/file"
	"digital.vasic.campaigns/pkg/store/memory"
	"digital.vasic.campaigns/pkg/store/postgres"
	"digital.vasic.campaigns/pkg/webhook"
)

// app holds what every command needs: configuration, logger and
// the stores it selects.
type app struct {
	cfg        config.Config
	logger     logging.Logger
	campaigns  campaign.Repository
	executions campaign.ExecutionStore
	service    *campaign.Service
	closers    []func() error
}

// loadConfig reads the file named by --config with the .env and
// CAMPAIGNS_* overrides applied.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	flags := cmd.Flags()
	path, err := flags.GetString("config")
	if err != nil {
		return config.Config{}, fmt.Errorf("parse --config: %w", err)
	}
	envFile, err := flags.GetString("env-file")
	if err != nil {
		return config.Config{}, fmt.Errorf("parse --env-file: %w", err)
	}

	loader := env.NewPrefixedLoader(config.EnvPrefix)
	if envFile != "" {
		if err := loader.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return config.Config{}, err
		}
	}

	cfg, err := config.Load(path, loader)
	if err != nil {
		return cfg, err
	}
	if level, _ := flags.GetString("log-level"); level != "" {
		cfg.Logging.Level = level
		if err := cfg.Validate(); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

func openApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger, err := cfg.Logging.NewLogger(cfg.Secrets()...)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger}
	a.closers = append(a.closers, logger.Close)
	if err := a.openStores(cmd.Context()); err != nil {
		_ = a.Close()
		return nil, err
	}
	a.service = campaign.NewService(
		a.campaigns, a.executions, campaign.WithLogger(logger),
	)
	return a, nil
}

func (a *app) openStores(ctx context.Context) error {
	switch a.cfg.Store.Kind {
	case config.StoreMemory:
		a.campaigns = memory.NewCampaignStore()
		a.executions = memory.NewExecutionStore()
	case config.StoreFile:
		campaigns, err := file.NewCampaignStore(a.cfg.Store.Path)
		if err != nil {
			return err
		}
		executions, err := file.NewExecutionStore(a.cfg.Store.Path)
		if err != nil {
			return err
		}
		a.campaigns, a.executions = campaigns, executions
	case config.StorePostgres:
		pg := a.cfg.Postgres
		db, err := postgres.Open(ctx, postgres.Config{
			URL:             pg.URL,
			PingTimeout:     5 * time.Second,
			MaxOpenConns:    pg.MaxOpenConns,
			MaxIdleConns:    pg.MaxIdleConns,
			ConnMaxLifetime: pg.ConnMaxLifetime,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		if err := postgres.Migrate(ctx, db); err != nil {
			return err
		}
		a.campaigns = postgres.NewCampaignStore(db)
		a.executions = postgres.NewExecutionStore(db)
	default:
		return fmt.Errorf("unknown store kind: %q", a.cfg.Store.Kind)
	}
	a.logger.Debug("stores opened", logging.StringField("kind", a.cfg.Store.Kind))
	return nil
}

// archiver returns the report archive, or nil when it is disabled.
func (a *app) archiver(ctx context.Context) (*archive.MinIOArchive, error) {
	if !a.cfg.Archive.Enabled {
		return nil, nil
	}
	arch, err := archive.New(archive.FromConfig(a.cfg.Archive))
	if err != nil {
		return nil, err
	}
	if err := arch.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to prepare archive bucket: %w", err)
	}
	return arch, nil
}

// notifier forwards the events of collector to the configured
// webhook. Pending deliveries are flushed when the app closes.
func (a *app) notifier(collector *monitor.EventCollector) error {
	n := a.cfg.Notify
	if n.WebhookURL == "" {
		return nil
	}
	types := make([]monitor.EventType, 0, len(n.Events))
	for _, e := range n.Events {
		types = append(types, monitor.EventType(e))
	}
	hook, err := webhook.New(n.WebhookURL,
		webhook.WithToken(n.Token),
		webhook.WithTimeout(n.Timeout),
		webhook.WithEvents(types...),
		webhook.WithLogger(a.logger),
	)
	if err != nil {
		return err
	}
	collector.OnEvent(hook.Publish)
	a.closers = append(a.closers, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), n.Timeout+5*time.Second)
		defer cancel()
		return hook.Close(ctx)
	})
	return nil
}

// Close releases the stores and flushes the logger, last opened
// first.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

// withApp opens the app for the duration of fn.
func withApp(cmd *cobra.Command, fn func(a *app) error) (err error) {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, a.Close())
	}()
	return fn(a)
}

func parseID(arg, what string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id: %q", what, arg)
	}
	return id, nil
}

// reportPath returns where the markdown summary of exec is saved.
func (a *app) reportPath(executionID int64) string {
	return filepath.Join(a.cfg.Reports.Dir, fmt.Sprintf("execution_%d.md", executionID))
}
