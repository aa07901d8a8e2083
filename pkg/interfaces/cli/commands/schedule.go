package commands

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/fatih/color"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vsinha/mrpcrp/pkg/domain/entities"
)

func newScheduleCommand(app *App) *cobra.Command {
	var (
		scenarioDir string
		spec        string
		crp         bool
		runs        int
	)

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Re-plan a scenario periodically on a cron schedule",
		Long: `schedule reloads the scenario and runs a fresh plan on every tick of a cron
schedule, until interrupted or until --runs plans have been run. A tick that
arrives while the previous run is still going is skipped.`,
		Example: `  # Nightly regeneration at 02:30 with capacity planning
  mrp schedule --scenario /data/plant --cron "30 2 * * *" --crp

  # Every 15 minutes, metrics exported for the node exporter
  MRP_METRICS_PATH=/var/lib/node_exporter/mrp.prom mrp schedule --scenario /data/plant --cron "@every 15m"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if spec == "" {
				spec = app.Config.Schedule
			}
			if _, err := cron.ParseStandard(spec); err != nil {
				return fmt.Errorf("invalid cron schedule %q: %w", spec, err)
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			cronLogger := cron.PrintfLogger(zap.NewStdLog(app.Logger.Named("cron")))
			c := cron.New(
				cron.WithLogger(cronLogger),
				cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
			)

			var (
				completed atomic.Int64
				stopOnce  sync.Once
			)
			_, err := c.AddFunc(spec, func() {
				runScheduled(ctx, app, scenarioDir, crp)
				if n := completed.Add(1); runs > 0 && n >= int64(runs) {
					stopOnce.Do(cancel)
				}
			})
			if err != nil {
				return err
			}

			app.Logger.Info("scheduler started", zap.String("schedule", spec), zap.String("scenario", scenarioDir))
			c.Start()
			<-ctx.Done()
			<-c.Stop().Done()
			app.Logger.Info("scheduler stopped", zap.Int64("runs", completed.Load()))
			return nil
		},
	}

	cmd.Flags().StringVar(&scenarioDir, "scenario", "", "scenario directory containing the CSV files")
	cmd.Flags().StringVar(&spec, "cron", "", "cron expression or descriptor (default from config)")
	cmd.Flags().BoolVar(&crp, "crp", false, "run a CRP plan after each MRP plan")
	cmd.Flags().IntVar(&runs, "runs", 0, "stop after this many runs (0 runs until interrupted)")
	_ = cmd.MarkFlagRequired("scenario")
	return cmd
}

// runScheduled runs one tick. Failures are reported and the schedule continues.
func runScheduled(ctx context.Context, app *App, scenarioDir string, crp bool) {
	e, err := app.openEngine(scenarioDir)
	if err != nil {
		app.Logger.Error("scheduled run skipped", zap.Error(err))
		return
	}
	defer e.close()

	results, err := e.plan(ctx, runOptions{Start: app.Clock.Now(), CRP: crp})
	if err != nil {
		app.Logger.Error("scheduled run failed", zap.Error(err))
		return
	}
	for _, r := range results {
		mark := color.GreenString("ok")
		if r.Plan.Status != entities.PlanCompleted {
			mark = color.RedString("failed")
		}
		fmt.Fprintf(app.out, "%s %s %s\n", mark, r.Plan.Number, r.GetSummary())
	}
}
