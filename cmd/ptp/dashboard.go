package main

import (
	"github.com/papertoplan/ptp/internal/api"
	"github.com/papertoplan/ptp/internal/dashboard"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newDashboardCmd() *cobra.Command {
	var (
		configPath   string
		port         int
		showReviewed bool
	)

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Start the local web dashboard",
		Long:  "Serves the polled item list as JSON at /api/items and as a live event stream at /api/events.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDashboard(cmd, configPath, port, showReviewed)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (defaults to dashboard.port)")
	cmd.Flags().BoolVar(&showReviewed, "reviewed", false, "fill the reviewed column")
	return cmd
}

func runDashboard(cmd *cobra.Command, configPath string, port int, showReviewed bool) error {
	return withApp(cmd, configPath, func(a *app) error {
		out := &lockedWriter{w: cmd.OutOrStdout()}
		ctx, cancel := signalContext(cmd, out)
		defer cancel()

		if port <= 0 {
			port = a.cfg.Dashboard.Port
		}
		log := a.log.Named("dashboard")
		hub := dashboard.NewHub()
		p, err := newItemPoller(a, 0, hub.Publish, func(err error) {
			log.Warn("refresh failed", zap.String("notice", api.UserMessage(err)))
		})
		if err != nil {
			return err
		}
		if err := p.Start(ctx); err != nil {
			return err
		}
		defer p.Stop()

		return dashboard.Start(ctx, dashboard.StartOpts{
			Items:        p,
			Session:      a.store,
			Hub:          hub,
			Resource:     a.cfg.Resource,
			ShowReviewed: showReviewed,
			Port:         port,
			Out:          out,
			Logger:       log,
		})
	})
}
