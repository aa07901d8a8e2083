// Package commands implements the mrp command line.
package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vsinha/mrpcrp/pkg/application/services/shared"
	"github.com/vsinha/mrpcrp/pkg/infrastructure/config"
	"github.com/vsinha/mrpcrp/pkg/infrastructure/logging"
)

// NewRootCommand builds the mrp command tree
func NewRootCommand() *cobra.Command {
	app := &App{Clock: shared.SystemClock{}}
	var configPath, logLevel string

	root := &cobra.Command{
		Use:   "mrp",
		Short: "Material and capacity requirements planning",
		Long: `mrp explodes independent demand through bills of material into time-phased
requirements and planned orders, then loads those orders onto work centers.

Master data is read from a scenario directory of CSV files:
  items.csv, bom.csv, inventory.csv, demands.csv (required)
  receipts.csv, workcenters.csv, routings.csv, calendar.csv (optional)

Settings come from --config and MRP_* environment variables.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			logger, err := logging.New(cfg.Env, cfg.LogLevel)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			app.Config = cfg
			app.Logger = logger
			app.out = cmd.OutOrStdout()
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if app.Logger != nil {
				_ = app.Logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file; MRP_* environment variables override it")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(
		newRunCommand(app),
		newScheduleCommand(app),
		newValidateCommand(app),
		newGenerateCommand(app),
		newPlansCommand(app),
	)
	return root
}

func parseStart(app *App, s string) (time.Time, error) {
	if s == "" {
		return app.Clock.Now(), nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --start %q (expected YYYY-MM-DD)", s)
	}
	return t, nil
}
