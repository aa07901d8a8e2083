package commands

import (
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/vsinha/mrpcrp/pkg/domain/entities"
	"github.com/vsinha/mrpcrp/pkg/domain/services"
	"github.com/vsinha/mrpcrp/pkg/infrastructure/repositories/csv"
)

func newValidateCommand(app *App) *cobra.Command {
	var scenarioDir string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a scenario's master data before planning",
		Long: `validate loads a scenario and reports BOM cycles, duplicate component lines,
components without an item record, products with more than one default BOM,
routing operations on unknown work centers and demand for unknown items.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			scenario, err := csv.NewLoader().LoadScenario(scenarioDir)
			if err != nil {
				return err
			}

			problems := validateScenario(scenario)
			if len(problems) == 0 {
				fmt.Fprintf(app.out, "%s scenario is valid: %d items, %d BOMs, %d routings, %d demands\n",
					color.GreenString("✓"), len(scenario.Items), len(scenario.Boms), len(scenario.Routings), len(scenario.Demands))
				return nil
			}

			fmt.Fprintf(app.out, "%s found %d problem(s):\n", color.YellowString("⚠"), len(problems))
			for _, p := range problems {
				fmt.Fprintf(app.out, "  %s %s\n", color.RedString("-"), p)
			}
			return fmt.Errorf("%w: scenario has %d problem(s)", entities.ErrValidation, len(problems))
		},
	}

	cmd.Flags().StringVar(&scenarioDir, "scenario", "", "scenario directory containing the CSV files")
	_ = cmd.MarkFlagRequired("scenario")
	return cmd
}

func validateScenario(s *csv.Scenario) []string {
	items := make([]entities.Item, 0, len(s.Items))
	known := make(map[entities.ProductID]bool, len(s.Items))
	for _, item := range s.Items {
		items = append(items, *item)
		known[item.ProductID] = true
	}
	boms := make([]entities.BillOfMaterial, 0, len(s.Boms))
	for _, bom := range s.Boms {
		boms = append(boms, *bom)
	}

	problems := services.NewBOMValidator().Validate(boms, items).Errors

	workCenters := make(map[entities.WorkCenterID]bool, len(s.WorkCenters))
	for _, wc := range s.WorkCenters {
		workCenters[wc.ID] = true
	}
	for _, r := range s.Routings {
		for _, op := range r.Operations {
			if !workCenters[op.WorkCenterID] {
				problems = append(problems, fmt.Sprintf("routing %s operation %d uses unknown work center %s", r.ID, op.Sequence, op.WorkCenterID))
			}
		}
	}

	missing := make(map[entities.ProductID]bool)
	for _, d := range s.Demands {
		if !known[d.ProductID] {
			missing[d.ProductID] = true
		}
	}
	ids := make([]string, 0, len(missing))
	for id := range missing {
		ids = append(ids, string(id))
	}
	sort.Strings(ids)
	for _, id := range ids {
		problems = append(problems, fmt.Sprintf("demand for %s which has no item record", id))
	}
	return problems
}
