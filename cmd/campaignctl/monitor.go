package main

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"digital.vasic.campaigns/pkg/logging"
	"digital.vasic.campaigns/pkg/monitor"
)

func newMonitorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "monitor [campaignID...]",
		Short: "Serve the live monitor and run the given campaigns one after another",
		Long: "Serve the WebSocket monitor on monitor.addr. Each campaign given " +
			"is run in turn while clients watch; the server keeps running " +
			"until interrupted.",
		RunE: runMonitor,
	}
	addRunFlags(cmd)
	cmd.Flags().String("addr", "", "override monitor.addr")
	return cmd
}

func newMonitorServer(a *app, rs *runSetup) *monitor.WebSocketServer {
	return monitor.NewWebSocketServer(
		a.cfg.Monitor.Addr,
		rs.collector,
		monitor.NewDashboardData(),
		monitor.WithServerLogger(a.logger),
		monitor.WithStats(func() any { return rs.metrics.Snapshot() }),
	)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := parseID(arg, "campaign")
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}
	addr, _ := cmd.Flags().GetString("addr")

	return withApp(cmd, func(a *app) error {
		if addr != "" {
			a.cfg.Monitor.Addr = addr
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		rs, err := newRunSetup(cmd, a)
		if err != nil {
			return err
		}
		srv := newMonitorServer(a, rs)
		serveErr := make(chan error, 1)
		go func() { serveErr <- srv.Start(ctx) }()

		var errs []error
		for _, id := range ids {
			if ctx.Err() != nil {
				break
			}
			c, err := a.campaigns.FindByID(ctx, id)
			if err != nil {
				a.logger.Error("failed to load campaign",
					logging.CampaignField(id), logging.ErrorField(err))
				errs = append(errs, err)
				continue
			}
			if err := rs.execute(ctx, cmd, a, c, rs.opts); err != nil {
				errs = append(errs, err)
			}
		}

		select {
		case err := <-serveErr:
			errs = append(errs, err)
		case <-ctx.Done():
			errs = append(errs, <-serveErr)
		}
		return errors.Join(errs...)
	})
}
