// Command example plans the aerospace demo scenario through the library API:
// an MRP run, a CRP run on its orders, then firming the earliest order.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/vsinha/mrpcrp/pkg/application/services/planning"
	"github.com/vsinha/mrpcrp/pkg/application/services/shared"
	mrptest "github.com/vsinha/mrpcrp/pkg/application/services/testing"
	"github.com/vsinha/mrpcrp/pkg/domain/entities"
	"github.com/vsinha/mrpcrp/pkg/infrastructure/events"
	"github.com/vsinha/mrpcrp/pkg/infrastructure/logging"
	"github.com/vsinha/mrpcrp/pkg/interfaces/cli/output"
)

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	logger, err := logging.New("local", "warn")
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	start := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	s := mrptest.BuildAerospaceScenario(start)

	store := events.NewInMemoryEventStore(logger)
	service := planning.NewService(planning.Dependencies{
		Items:       s.Items,
		Structures:  s.Structures,
		Inventory:   s.Inventory,
		Demand:      s.Demands,
		WorkCenters: s.WorkCenters,
		Plans:       s.Plans,
		Events:      store,
		Clock:       shared.NewFixedClock(start),
		Logger:      logger,
	}, planning.Config{})

	capacity := entities.DefaultCapacityPolicy()
	capacity.Mode = entities.FiniteCapacity

	fmt.Println("🚀 Planning two Saturn V stacks")
	mrpPlan, err := service.CreatePlan(ctx, planning.CreatePlanRequest{
		Number:   "MRP-DEMO",
		Type:     entities.MRPPlan,
		Horizon:  s.Horizon(120, 1),
		Policy:   entities.DefaultPlanningPolicy(),
		Capacity: capacity,
	})
	if err != nil {
		return err
	}
	mrpResult, err := service.RunPlan(ctx, mrpPlan.ID)
	if err != nil {
		return err
	}
	if err := output.Generate(mrpResult, output.Config{Format: "text"}); err != nil {
		return err
	}
	if mrpResult.Plan.Status != entities.PlanCompleted {
		return fmt.Errorf("plan %s failed: %s", mrpResult.Plan.Number, mrpResult.Plan.FailureReason)
	}

	crpPlan, err := service.CreatePlan(ctx, planning.CreatePlanRequest{
		Number:       "CRP-DEMO",
		Type:         entities.CRPPlan,
		Horizon:      s.Horizon(120, 7),
		Policy:       entities.DefaultPlanningPolicy(),
		Capacity:     capacity,
		SourcePlanID: mrpPlan.ID,
	})
	if err != nil {
		return err
	}
	crpResult, err := service.RunPlan(ctx, crpPlan.ID)
	if err != nil {
		return err
	}
	if err := output.Generate(crpResult, output.Config{Format: "text"}); err != nil {
		return err
	}

	if len(mrpResult.Outputs.PlannedOrders) == 0 {
		return nil
	}
	earliest := mrpResult.Outputs.PlannedOrders[0]
	for _, o := range mrpResult.Outputs.PlannedOrders[1:] {
		if o.PlannedStart.Before(earliest.PlannedStart) {
			earliest = o
		}
	}
	firmed, err := service.FirmOrder(ctx, earliest.ID)
	if err != nil {
		return err
	}
	fmt.Printf("📌 firmed %s: %s %s starting %s\n", firmed.ID, firmed.Quantity, firmed.ProductID,
		firmed.PlannedStart.Format(time.DateOnly))

	evs, err := store.ReadEvents(events.PlanStream(mrpPlan.ID), 1)
	if err != nil {
		return err
	}
	for _, e := range evs {
		logger.Debug("plan event", zap.String("event", string(e.Name)))
	}
	fmt.Printf("📜 %d events recorded on %s\n", len(evs), mrpPlan.Number)
	return nil
}
