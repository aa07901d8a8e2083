package commands

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/vsinha/mrpcrp/pkg/application/dto"
	"github.com/vsinha/mrpcrp/pkg/application/services/planning"
	"github.com/vsinha/mrpcrp/pkg/domain/entities"
	"github.com/vsinha/mrpcrp/pkg/domain/repositories"
	"github.com/vsinha/mrpcrp/pkg/infrastructure/events"
	"github.com/vsinha/mrpcrp/pkg/infrastructure/repositories/sqlite"
	"github.com/vsinha/mrpcrp/pkg/interfaces/cli/output"
)

// openLifecycle opens the plan store for actions on stored plans. Lifecycle
// actions never touch master data, so only the plan repository is wired.
func (a *App) openLifecycle() (*planning.Service, func() error, error) {
	if a.Config.StoragePath == "" {
		return nil, nil, fmt.Errorf("%w: plan commands need a plan store (set storage_path or MRP_STORAGE_PATH)", entities.ErrValidation)
	}
	store, err := sqlite.New(a.Config.StoragePath)
	if err != nil {
		return nil, nil, fmt.Errorf("open plan store: %w", err)
	}
	evs := events.NewInMemoryEventStore(a.Logger)
	if err := evs.Subscribe(events.AllEvents(), events.LogHandler{Logger: a.Logger.Named("events")}); err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	service := planning.NewService(planning.Dependencies{
		Plans:  store,
		Events: evs,
		Clock:  a.Clock,
		Logger: a.Logger,
	}, planning.Config{})
	return service, store.Close, nil
}

// lifecycleCommand wraps an action on the plan store
func lifecycleCommand(app *App, use, short string, args cobra.PositionalArgs, action func(*cobra.Command, *planning.Service, []string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, a []string) error {
			service, closeStore, err := app.openLifecycle()
			if err != nil {
				return err
			}
			defer func() { _ = closeStore() }()
			return action(cmd, service, a)
		},
	}
}

func newPlansCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plans",
		Short: "Inspect stored plans and act on their orders and exceptions",
		Long: `plans works on the plan store named by storage_path (MRP_STORAGE_PATH).
Plans are written there by "mrp run" and "mrp schedule".`,
	}
	cmd.AddCommand(newPlansListCommand(app), newPlansShowCommand(app))
	cmd.AddCommand(newPlansOrdersCommand(app), newPlansLoadCommand(app))
	cmd.AddCommand(newPlanTransitionCommands(app)...)
	cmd.AddCommand(newOrderCommands(app)...)
	cmd.AddCommand(newResolveCommand(app))
	return cmd
}

func newPlansListCommand(app *App) *cobra.Command {
	var status, planType, source string
	cmd := lifecycleCommand(app, "list", "List stored plans, newest first", cobra.NoArgs,
		func(cmd *cobra.Command, service *planning.Service, _ []string) error {
			filter := repositories.PlanFilter{SourcePlanID: entities.PlanID(source)}
			if status != "" {
				st, err := entities.ParsePlanStatus(status)
				if err != nil {
					return err
				}
				filter.Status = &st
			}
			if planType != "" {
				typ, err := entities.ParsePlanType(planType)
				if err != nil {
					return err
				}
				filter.Type = &typ
			}
			plans, err := service.ListPlans(cmd.Context(), filter)
			if err != nil {
				return err
			}
			sort.Slice(plans, func(i, j int) bool { return plans[i].CreatedAt.After(plans[j].CreatedAt) })

			fmt.Fprintf(app.out, "%-36s %-22s %-4s %-10s %s\n", "ID", "Number", "Type", "Status", "Created")
			fmt.Fprintf(app.out, "%s\n", strings.Repeat("-", 96))
			for _, p := range plans {
				fmt.Fprintf(app.out, "%-36s %-22s %-4s %-10s %s\n",
					p.ID, p.Number, p.Type, p.Status, p.CreatedAt.Format("2006-01-02 15:04:05"))
			}
			return nil
		})
	cmd.Flags().StringVar(&status, "status", "", "only plans in this status (Draft, Running, Completed, Failed, Approved, Cancelled)")
	cmd.Flags().StringVar(&planType, "type", "", "only MRP or CRP plans")
	cmd.Flags().StringVar(&source, "source", "", "only CRP plans loaded from this MRP plan")
	return cmd
}

func newPlansOrdersCommand(app *App) *cobra.Command {
	var planID, product, status string
	cmd := lifecycleCommand(app, "orders", "Query planned orders across stored plans", cobra.NoArgs,
		func(cmd *cobra.Command, service *planning.Service, _ []string) error {
			filter := repositories.PlannedOrderFilter{
				PlanID:    entities.PlanID(planID),
				ProductID: entities.ProductID(product),
			}
			if status != "" {
				st, err := entities.ParsePlannedOrderStatus(status)
				if err != nil {
					return err
				}
				filter.Status = &st
			}
			orders, err := service.ListPlannedOrders(cmd.Context(), filter)
			if err != nil {
				return err
			}

			fmt.Fprintf(app.out, "%-36s %-36s %-16s %-5s %10s %-10s %-10s %s\n",
				"Order", "Plan", "Product", "Type", "Quantity", "Start", "End", "Status")
			fmt.Fprintf(app.out, "%s\n", strings.Repeat("-", 140))
			for _, o := range orders {
				fmt.Fprintf(app.out, "%-36s %-36s %-16s %-5s %10s %-10s %-10s %s\n",
					o.ID, o.PlanID, o.ProductID, o.OrderType, o.Quantity,
					o.PlannedStart.Format(time.DateOnly), o.PlannedEnd.Format(time.DateOnly), o.Status)
			}
			return nil
		})
	cmd.Flags().StringVar(&planID, "plan", "", "only orders of this plan")
	cmd.Flags().StringVar(&product, "product", "", "only orders for this product")
	cmd.Flags().StringVar(&status, "status", "", "only orders in this status (Suggested, Firmed, Released, Converted, Cancelled)")
	return cmd
}

func newPlansLoadCommand(app *App) *cobra.Command {
	var (
		workCenter string
		from, to   string
		overloaded bool
	)
	cmd := lifecycleCommand(app, "load PLAN_ID", "Summarize a plan's capacity load per work center", cobra.ExactArgs(1),
		func(cmd *cobra.Command, service *planning.Service, args []string) error {
			filter := repositories.CapacityFilter{
				PlanID:         entities.PlanID(args[0]),
				WorkCenterID:   entities.WorkCenterID(workCenter),
				OnlyOverloaded: overloaded,
			}
			var err error
			if filter.From, err = optionalDate(from); err != nil {
				return err
			}
			if filter.To, err = optionalDate(to); err != nil {
				return err
			}
			loads, err := service.WorkCenterLoads(cmd.Context(), filter)
			if err != nil {
				return err
			}

			fmt.Fprintf(app.out, "%-16s %-10s %-10s %10s %10s %8s %10s %s\n",
				"Work Center", "From", "To", "Available", "Required", "Load %", "Overloaded", "Peak")
			fmt.Fprintf(app.out, "%s\n", strings.Repeat("-", 100))
			for _, l := range loads {
				load := fmt.Sprintf("%8s", l.LoadPercent.StringFixed(1))
				if l.IsOverloaded {
					load = color.RedString(load)
				}
				fmt.Fprintf(app.out, "%-16s %-10s %-10s %10s %10s %s %10d %s%% on %s\n",
					l.WorkCenterID, l.PeriodStart.Format(time.DateOnly), l.PeriodEnd.Format(time.DateOnly),
					l.AvailableHours.StringFixed(1), l.RequiredHours.StringFixed(1), load, l.OverloadedBuckets,
					l.PeakLoadPercent.StringFixed(1), l.PeakBucket.Format(time.DateOnly))
			}
			return nil
		})
	cmd.Flags().StringVar(&workCenter, "work-center", "", "only this work center")
	cmd.Flags().StringVar(&from, "from", "", "first bucket date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "last bucket date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&overloaded, "overloaded", false, "only buckets at or above the overload threshold")
	return cmd
}

func optionalDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q, want YYYY-MM-DD", entities.ErrValidation, s)
	}
	return d, nil
}

func newPlansShowCommand(app *App) *cobra.Command {
	var (
		format    string
		outputDir string
		verbose   bool
	)
	cmd := lifecycleCommand(app, "show PLAN_ID", "Render a stored plan and its outputs", cobra.ExactArgs(1),
		func(cmd *cobra.Command, service *planning.Service, args []string) error {
			id := entities.PlanID(args[0])
			plan, err := service.GetPlan(cmd.Context(), id)
			if err != nil {
				return err
			}
			outputs, err := service.GetOutputs(cmd.Context(), id)
			if err != nil {
				return err
			}
			result := &dto.RunResult{Plan: *plan, Outputs: *outputs}
			return output.Generate(result, output.Config{Format: format, OutputDir: outputDir, Verbose: verbose, Stdout: app.out})
		})
	cmd.Flags().StringVar(&format, "format", "text", "output format: "+strings.Join(output.Formats, ", "))
	cmd.Flags().StringVar(&outputDir, "output", "", "output directory (required for csv, xlsx and gantt)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "include requirement records and idle buckets")
	return cmd
}

func newPlanTransitionCommands(app *App) []*cobra.Command {
	var approvedBy, reason string

	approve := lifecycleCommand(app, "approve PLAN_ID", "Approve a Completed plan", cobra.ExactArgs(1),
		func(cmd *cobra.Command, service *planning.Service, args []string) error {
			plan, err := service.ApprovePlan(cmd.Context(), entities.PlanID(args[0]), approvedBy)
			return reportPlan(app, plan, err)
		})
	approve.Flags().StringVar(&approvedBy, "by", "", "who approves the plan")
	_ = approve.MarkFlagRequired("by")

	cancel := lifecycleCommand(app, "cancel PLAN_ID", "Cancel a plan that is not running or approved", cobra.ExactArgs(1),
		func(cmd *cobra.Command, service *planning.Service, args []string) error {
			plan, err := service.CancelPlan(cmd.Context(), entities.PlanID(args[0]), reason)
			return reportPlan(app, plan, err)
		})
	cancel.Flags().StringVar(&reason, "reason", "", "why the plan is cancelled")

	redraft := lifecycleCommand(app, "redraft PLAN_ID", "Return a Failed plan to Draft", cobra.ExactArgs(1),
		func(cmd *cobra.Command, service *planning.Service, args []string) error {
			plan, err := service.RedraftPlan(cmd.Context(), entities.PlanID(args[0]))
			return reportPlan(app, plan, err)
		})

	return []*cobra.Command{approve, cancel, redraft}
}

func newOrderCommands(app *App) []*cobra.Command {
	var (
		reason      string
		orderID     string
		orderType   string
		convertedBy string
	)

	firm := lifecycleCommand(app, "firm ORDER_ID", "Firm a suggested planned order", cobra.ExactArgs(1),
		func(cmd *cobra.Command, service *planning.Service, args []string) error {
			order, err := service.FirmOrder(cmd.Context(), args[0])
			return reportOrder(app, order, err)
		})

	release := lifecycleCommand(app, "release ORDER_ID", "Release a planned order for execution", cobra.ExactArgs(1),
		func(cmd *cobra.Command, service *planning.Service, args []string) error {
			order, err := service.ReleaseOrder(cmd.Context(), args[0])
			return reportOrder(app, order, err)
		})

	cancelOrder := lifecycleCommand(app, "cancel-order ORDER_ID", "Cancel an open planned order", cobra.ExactArgs(1),
		func(cmd *cobra.Command, service *planning.Service, args []string) error {
			order, err := service.CancelOrder(cmd.Context(), args[0], reason)
			return reportOrder(app, order, err)
		})
	cancelOrder.Flags().StringVar(&reason, "reason", "", "why the order is cancelled")

	convert := lifecycleCommand(app, "convert ORDER_ID", "Record the execution order a planned order became", cobra.ExactArgs(1),
		func(cmd *cobra.Command, service *planning.Service, args []string) error {
			order, err := service.ConvertToOrder(cmd.Context(), args[0], orderID, entities.TargetOrderType(orderType), convertedBy)
			return reportOrder(app, order, err)
		})
	convert.Flags().StringVar(&orderID, "order-id", "", "id of the production, purchase or transfer order")
	convert.Flags().StringVar(&orderType, "type", "", "ProductionOrder, PurchaseOrder or TransferOrder (default from the replenishment type)")
	convert.Flags().StringVar(&convertedBy, "by", "", "who converted the order")
	_ = convert.MarkFlagRequired("order-id")

	return []*cobra.Command{firm, release, cancelOrder, convert}
}

func newResolveCommand(app *App) *cobra.Command {
	var resolvedBy, notes string
	cmd := lifecycleCommand(app, "resolve EXCEPTION_ID", "Mark a planning exception as resolved", cobra.ExactArgs(1),
		func(cmd *cobra.Command, service *planning.Service, args []string) error {
			exception, err := service.ResolveException(cmd.Context(), args[0], resolvedBy, notes)
			if err != nil {
				return err
			}
			fmt.Fprintf(app.out, "%s %s %s resolved by %s\n", color.GreenString("✓"), exception.ID, exception.Type, exception.ResolvedBy)
			return nil
		})
	cmd.Flags().StringVar(&resolvedBy, "by", "", "who resolved the exception")
	cmd.Flags().StringVar(&notes, "notes", "", "resolution notes")
	_ = cmd.MarkFlagRequired("by")
	return cmd
}

func reportPlan(app *App, plan *entities.Plan, err error) error {
	if err != nil {
		return err
	}
	fmt.Fprintf(app.out, "%s plan %s is %s\n", color.GreenString("✓"), plan.Number, plan.Status)
	return nil
}

func reportOrder(app *App, order *entities.PlannedOrder, err error) error {
	if err != nil {
		return err
	}
	fmt.Fprintf(app.out, "%s order %s (%s %s) is %s\n", color.GreenString("✓"), order.ID, order.Quantity, order.ProductID, order.Status)
	return nil
}
