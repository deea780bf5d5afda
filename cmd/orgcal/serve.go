package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"orgcal/internal/fullcalendar"
	appLog "orgcal/internal/log"
	"orgcal/internal/model"
	"orgcal/internal/scheduler"
	"orgcal/internal/web"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve [paths...]",
		Short: "Serve the calendar over HTTP and refresh it on a schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.settings(cmd)
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Listen = listen
			}
			paths, err := sourcePaths(args, cfg)
			if err != nil {
				return err
			}
			mode, err := fullcalendar.ParseMode(cfg.Mode)
			if err != nil {
				return err
			}

			ropts := scheduler.Options{
				Loader:     newLoader(cfg),
				Sources:    paths,
				BeforeDays: cfg.BeforeDays,
				AfterDays:  cfg.AfterDays,
				Mode:       mode,
				Output:     cfg.Output,
			}
			if opts.now != "" {
				now, err := opts.reference()
				if err != nil {
					return err
				}
				ropts.Now = func() model.PointInTime { return now }
			}
			refresher := scheduler.NewRefresher(ropts)

			sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			ctx, cancel := context.WithCancel(sigCtx)
			defer cancel()

			appLog.Info("orgcal starting",
				"listen", cfg.Listen,
				"sources", len(paths),
				"mode", mode,
				"refresh", cfg.RefreshCron,
			)

			// Either side failing stops the other.
			refreshErr := make(chan error, 1)
			go func() {
				err := refresher.Run(ctx, cfg.RefreshCron)
				if err != nil {
					cancel()
				}
				refreshErr <- err
			}()

			serveErr := web.StartServer(ctx, cfg, refresher)
			cancel()
			if err := <-refreshErr; err != nil {
				return err
			}
			if serveErr != nil {
				return serveErr
			}
			appLog.Info("orgcal exiting")
			return nil
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (overrides config if set)")
	return cmd
}
