package planning

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/vsinha/mrpcrp/pkg/application/dto"
	"github.com/vsinha/mrpcrp/pkg/application/services/capacity"
	"github.com/vsinha/mrpcrp/pkg/application/services/criticalpath"
	"github.com/vsinha/mrpcrp/pkg/application/services/exceptions"
	"github.com/vsinha/mrpcrp/pkg/application/services/explosion"
	"github.com/vsinha/mrpcrp/pkg/application/services/structure"
	"github.com/vsinha/mrpcrp/pkg/domain/entities"
)

// execution is what one pass over a plan produced
type execution struct {
	outputs       entities.PlanOutputs
	processed     int
	overloaded    int
	lateOrders    int
	failureReason string
	roots         []entities.ProductID
}

// RunPlan executes a Draft plan. The plan moves to Running, then to Completed
// or Failed with a summary; its previous outputs are replaced. Exceptions never
// stop the run: a Completed plan may still carry Critical exceptions.
func (s *Service) RunPlan(ctx context.Context, id entities.PlanID) (*dto.RunResult, error) {
	plan, err := s.deps.Plans.GetPlan(ctx, id)
	if err != nil {
		return nil, err
	}
	if plan.Type == entities.CRPPlan {
		if err := s.checkSource(ctx, *plan); err != nil {
			return nil, err
		}
	}

	startedAt := s.deps.Clock.Now()
	running, evs, err := plan.Start(startedAt)
	if err != nil {
		return nil, err
	}
	// a concurrent run that started first leaves the stored plan Running
	if err := s.deps.Plans.SavePlanFrom(ctx, running, plan.Status); err != nil {
		return nil, fmt.Errorf("start plan: %w", err)
	}
	s.publish(id, evs)
	s.logger.Info("plan run started",
		zap.String("plan", string(id)),
		zap.String("type", running.Type.String()),
		zap.Int("run", running.RunCount),
		zap.Int("buckets", running.Horizon.Len()))

	runCtx := ctx
	if s.config.Deadline > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.config.Deadline)
		defer cancel()
	}

	recorder := exceptions.NewRecorder(id, s.deps.Clock, s.deps.IDs, s.logger)
	resolver := structure.NewResolver(s.deps.Structures, s.deps.Items)

	var exec *execution
	if running.Type == entities.CRPPlan {
		exec, err = s.executeCRP(runCtx, running, resolver, recorder)
	} else {
		exec, err = s.executeMRP(runCtx, running, resolver, recorder)
	}
	if err != nil {
		return nil, s.abort(ctx, running, err)
	}

	exec.outputs.Exceptions = recorder.Exceptions()
	finishedAt := s.deps.Clock.Now()
	summary := entities.PlanSummary{
		ProcessedProducts:     exec.processed,
		GeneratedRequirements: len(exec.outputs.Requirements),
		GeneratedOrders:       len(exec.outputs.PlannedOrders),
		CapacityBuckets:       len(exec.outputs.CapacityRequirements),
		OverloadedBuckets:     exec.overloaded,
		LateOrders:            exec.lateOrders,
		UnresolvedBySeverity:  recorder.Summary(),
		Duration:              finishedAt.Sub(startedAt),
	}

	if err := s.deps.Plans.ReplaceOutputs(ctx, id, exec.outputs); err != nil {
		return nil, s.abort(ctx, running, fmt.Errorf("save outputs: %w", err))
	}

	var final entities.Plan
	if exec.failureReason != "" {
		final, evs, err = running.Fail(finishedAt, exec.failureReason, &summary)
	} else {
		final, evs, err = running.Complete(finishedAt, summary)
	}
	if err != nil {
		return nil, err
	}
	if err := s.deps.Plans.SavePlanFrom(ctx, final, entities.PlanRunning); err != nil {
		return nil, fmt.Errorf("save plan: %w", err)
	}
	s.publish(id, evs)
	if s.deps.Observer != nil {
		s.deps.Observer.ObserveRun(final, exec.outputs)
	}

	result := &dto.RunResult{Plan: final, Outputs: exec.outputs, Duration: summary.Duration}
	if final.Type == entities.MRPPlan {
		result.CriticalPaths = s.criticalPaths(ctx, resolver, final, exec.roots)
	}

	s.logger.Info("plan run finished",
		zap.String("plan", string(id)),
		zap.String("status", final.Status.String()),
		zap.Int("requirements", summary.GeneratedRequirements),
		zap.Int("orders", summary.GeneratedOrders),
		zap.Int("capacity_buckets", summary.CapacityBuckets),
		zap.Int("critical", summary.UnresolvedBySeverity[entities.SeverityCritical]),
		zap.Duration("duration", summary.Duration))
	return result, nil
}

// checkSource requires the source MRP plan of a CRP plan to have finished successfully
func (s *Service) checkSource(ctx context.Context, plan entities.Plan) error {
	source, err := s.deps.Plans.GetPlan(ctx, plan.SourcePlanID)
	if err != nil {
		return fmt.Errorf("source plan: %w", err)
	}
	if source.Status != entities.PlanCompleted && source.Status != entities.PlanApproved {
		return fmt.Errorf("%w: source plan %s is %s", entities.ErrInvalidState, source.ID, source.Status)
	}
	return nil
}

func (s *Service) executeMRP(
	ctx context.Context,
	plan entities.Plan,
	resolver *structure.Resolver,
	recorder *exceptions.Recorder,
) (*execution, error) {
	roots, rootDemand, err := s.rootDemand(ctx, plan.Horizon)
	if err != nil {
		return nil, err
	}

	driver := explosion.NewDriver(resolver, s.deps.Items, s.deps.Inventory, s.deps.IDs, s.logger,
		explosion.Config{Workers: s.config.Workers})
	exploded, err := driver.Explode(ctx, plan, rootDemand, recorder)
	if err != nil {
		return nil, fmt.Errorf("explode: %w", err)
	}

	exec := &execution{
		outputs: entities.PlanOutputs{
			Requirements:  exploded.Requirements,
			PlannedOrders: exploded.PlannedOrders,
		},
		processed:     exploded.ProcessedProducts,
		failureReason: exploded.FailureReason,
		roots:         roots,
	}

	if plan.Policy.RunCapacity && exec.failureReason == "" {
		loaded, ok, err := s.load(ctx, plan, exploded.PlannedOrders, resolver, recorder)
		if err != nil {
			return nil, err
		}
		if !ok {
			exec.failureReason = "deadline exceeded"
		} else {
			exec.outputs.CapacityRequirements = loaded.CapacityRequirements
			exec.overloaded = loaded.OverloadedBuckets
			for i := range exec.outputs.PlannedOrders {
				if loaded.LateOrders[exec.outputs.PlannedOrders[i].ID] {
					exec.outputs.PlannedOrders[i].IsLate = true
				}
			}
		}
	}

	for _, o := range exec.outputs.PlannedOrders {
		if o.IsLate {
			exec.lateOrders++
		}
	}
	return exec, nil
}

func (s *Service) executeCRP(
	ctx context.Context,
	plan entities.Plan,
	resolver *structure.Resolver,
	recorder *exceptions.Recorder,
) (*execution, error) {
	source, err := s.deps.Plans.GetOutputs(ctx, plan.SourcePlanID)
	if err != nil {
		return nil, fmt.Errorf("source outputs: %w", err)
	}

	exec := &execution{}
	loaded, ok, err := s.load(ctx, plan, source.PlannedOrders, resolver, recorder)
	if err != nil {
		return nil, err
	}
	if !ok {
		exec.failureReason = "deadline exceeded"
		return exec, nil
	}
	exec.outputs.CapacityRequirements = loaded.CapacityRequirements
	exec.overloaded = loaded.OverloadedBuckets
	exec.lateOrders = len(loaded.LateOrders)
	for _, o := range source.PlannedOrders {
		if capacity.Loadable(o) {
			exec.processed++
		}
	}
	return exec, nil
}

// load runs the capacity pass unless the run deadline has already passed
func (s *Service) load(
	ctx context.Context,
	plan entities.Plan,
	orders []entities.PlannedOrder,
	resolver *structure.Resolver,
	recorder *exceptions.Recorder,
) (*dto.LoadResult, bool, error) {
	if err := ctx.Err(); err != nil {
		recorder.Record(entities.DeadlineExceeded, "", "", "capacity loading not started: %v", err)
		return nil, false, nil
	}
	loader := capacity.NewLoader(s.deps.WorkCenters, s.logger, s.config.Workers)
	loaded, err := loader.Load(context.WithoutCancel(ctx), plan, orders, resolver, recorder)
	if err != nil {
		return nil, false, fmt.Errorf("load capacity: %w", err)
	}
	return loaded, true, nil
}

// rootDemand collects the independent demand of every demanded product
func (s *Service) rootDemand(ctx context.Context, horizon entities.Horizon) ([]entities.ProductID, []entities.DemandEntry, error) {
	products, err := s.deps.Demand.ListDemandedProducts(ctx, horizon)
	if err != nil {
		return nil, nil, fmt.Errorf("list demanded products: %w", err)
	}
	var entries []entities.DemandEntry
	for _, p := range products {
		demand, err := s.deps.Demand.GetIndependentDemand(ctx, p, horizon)
		if err != nil {
			return nil, nil, fmt.Errorf("independent demand of %s: %w", p, err)
		}
		entries = append(entries, demand...)
	}
	return products, entries, nil
}

func (s *Service) criticalPaths(
	ctx context.Context,
	resolver *structure.Resolver,
	plan entities.Plan,
	roots []entities.ProductID,
) map[entities.ProductID]entities.LeadTimePath {
	analysis, err := criticalpath.NewCriticalPathService(resolver).AnalyzeCriticalPath(ctx, roots, plan.Horizon.Start, 0)
	if err != nil {
		s.logger.Warn("critical path analysis failed", zap.String("plan", string(plan.ID)), zap.Error(err))
		return nil
	}
	return analysis.ByProduct()
}

// abort marks a Running plan Failed after an unexpected error and returns that error
func (s *Service) abort(ctx context.Context, running entities.Plan, cause error) error {
	failed, evs, err := running.Fail(s.deps.Clock.Now(), cause.Error(), nil)
	if err != nil {
		return fmt.Errorf("run plan %s: %w", running.ID, cause)
	}
	if err := s.deps.Plans.SavePlanFrom(ctx, failed, entities.PlanRunning); err != nil {
		s.logger.Error("save failed plan", zap.String("plan", string(running.ID)), zap.Error(err))
	}
	s.publish(running.ID, evs)
	s.logger.Error("plan run aborted", zap.String("plan", string(running.ID)), zap.Error(cause))
	return fmt.Errorf("run plan %s: %w", running.ID, cause)
}
