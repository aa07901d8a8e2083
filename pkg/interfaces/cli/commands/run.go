package commands

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vsinha/mrpcrp/pkg/domain/entities"
	"github.com/vsinha/mrpcrp/pkg/interfaces/cli/output"
)

func newRunCommand(app *App) *cobra.Command {
	var (
		scenarioDir string
		start       string
		crp         bool
		format      string
		outputDir   string
		verbose     bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run an MRP plan over a scenario, optionally followed by CRP",
		Example: `  # Run a scenario and print the plan
  mrp run --scenario examples/aerospace

  # Load the planned orders onto work centers and write a workbook
  mrp run --scenario examples/aerospace --crp --format xlsx --output results/

  # Plan from a fixed date in weekly buckets
  MRP_BUCKET_DAYS=7 mrp run --scenario examples/aerospace --start 2025-01-06`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			startDate, err := parseStart(app, start)
			if err != nil {
				return err
			}
			e, err := app.openEngine(scenarioDir)
			if err != nil {
				return err
			}
			defer e.close()

			results, err := e.plan(cmd.Context(), runOptions{Start: startDate, CRP: crp})
			if err != nil {
				return err
			}

			for _, result := range results {
				cfg := output.Config{Format: format, Verbose: verbose, Stdout: app.out}
				if outputDir != "" {
					// each plan gets its own directory so MRP and CRP files do not collide
					cfg.OutputDir = filepath.Join(outputDir, strings.ToLower(result.Plan.Type.String()))
				}
				if err := output.Generate(result, cfg); err != nil {
					return fmt.Errorf("error generating output: %w", err)
				}
			}

			if last := results[len(results)-1]; last.Plan.Status == entities.PlanFailed {
				return fmt.Errorf("plan %s failed: %s", last.Plan.Number, last.Plan.FailureReason)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&scenarioDir, "scenario", "", "scenario directory containing the CSV files")
	cmd.Flags().StringVar(&start, "start", "", "horizon start date YYYY-MM-DD (default today)")
	cmd.Flags().BoolVar(&crp, "crp", false, "run a CRP plan on the MRP plan's orders")
	cmd.Flags().StringVar(&format, "format", "text", "output format: "+strings.Join(output.Formats, ", "))
	cmd.Flags().StringVar(&outputDir, "output", "", "output directory (required for csv, xlsx and gantt)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "include requirement records and idle buckets")
	_ = cmd.MarkFlagRequired("scenario")
	return cmd
}
