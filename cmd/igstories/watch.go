package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/spf13/cobra"

	"igstories/pkg/ui"
)

var interval time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run repeatedly until interrupted",
	Long: `Run immediately, then again every interval until Ctrl-C. Stories expire
after 24 hours, so any interval well below that captures everything.

A run that is still going when the next one is due delays it instead of
overlapping.`,
	Example: `  igstories watch --interval 4h`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		app, err := setup(cmd)
		if err != nil {
			return err
		}
		return app.watch(ctx, app.cfg.Schedule.Interval)
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	addRunFlags(watchCmd)
	watchCmd.Flags().DurationVar(&interval, "interval", 0, "time between runs (default 6h)")
}

func (a *app) watch(ctx context.Context, every time.Duration) error {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(every),
		gocron.NewTask(func() {
			if ctx.Err() != nil {
				return
			}
			a.log.Info("starting scheduled run")
			if _, err := a.runOnce(ctx); err != nil && ctx.Err() == nil {
				a.log.WithError(err).Error("scheduled run failed")
				ui.PrintError("Run failed", err)
			}
			if ctx.Err() == nil && !quiet {
				ui.PrintInfo("Next run", time.Now().Add(every).Format(time.RFC1123))
			}
		}),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule runs: %w", err)
	}

	a.log.InfoWithFields("watching story tray", map[string]interface{}{
		"interval": every.String(),
	})
	scheduler.Start()

	<-ctx.Done()
	a.log.Info("stopping scheduler")
	if err := scheduler.Shutdown(); err != nil {
		return fmt.Errorf("failed to shut down scheduler: %w", err)
	}
	return nil
}
