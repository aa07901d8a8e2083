// Package capacity converts planned orders into work center load and
// compares it against available hours.
package capacity

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vsinha/mrpcrp/pkg/application/dto"
	"github.com/vsinha/mrpcrp/pkg/application/services/exceptions"
	"github.com/vsinha/mrpcrp/pkg/application/services/shared"
	"github.com/vsinha/mrpcrp/pkg/application/services/structure"
	"github.com/vsinha/mrpcrp/pkg/domain/entities"
	"github.com/vsinha/mrpcrp/pkg/domain/repositories"
)

// RoutingLookup resolves the routing in effect for a product on a date
type RoutingLookup interface {
	GetRouting(ctx context.Context, productID entities.ProductID, asOf time.Time) (*entities.Routing, error)
}

// Loader accumulates required hours per work center and bucket
type Loader struct {
	workCenters repositories.WorkCenterRepository
	logger      *zap.Logger
	workers     int
}

// NewLoader creates a capacity loader; workers bounds concurrent order loading, 0 means one per CPU
func NewLoader(workCenters repositories.WorkCenterRepository, logger *zap.Logger, workers int) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{workCenters: workCenters, logger: logger, workers: shared.WorkerCount(workers)}
}

// Loadable reports whether an order places load on work centers
func Loadable(order entities.PlannedOrder) bool {
	return order.OrderType == entities.Make && order.Status.IsOpen()
}

// Load places the operations of every loadable order into buckets, then
// evaluates each work center, bottlenecks first. In finite mode excess hours
// are shifted forward; what cannot be placed raises a CapacityBottleneck
// exception and flags the contributing orders late.
func (l *Loader) Load(
	ctx context.Context,
	plan entities.Plan,
	orders []entities.PlannedOrder,
	routings RoutingLookup,
	recorder *exceptions.Recorder,
) (*dto.LoadResult, error) {
	policy := plan.Capacity
	if err := policy.Thresholds.Validate(); err != nil {
		return nil, err
	}

	book := newLedger(plan.ID, plan.Horizon)
	wcs := newWorkCenterCache(l.workCenters)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.workers)
	loaded := 0
	for _, order := range orders {
		if !Loadable(order) {
			continue
		}
		loaded++
		order := order
		g.Go(func() error {
			return l.loadOrder(gctx, plan, order, routings, wcs, book, recorder)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load orders: %w", err)
	}

	result := &dto.LoadResult{LateOrders: make(map[string]bool)}
	centers, err := l.evaluationOrder(ctx, book, wcs)
	if err != nil {
		return nil, err
	}
	for _, wc := range centers {
		reqs, err := l.evaluate(ctx, plan, wc, book, recorder, result.LateOrders)
		if err != nil {
			return nil, fmt.Errorf("work center %s: %w", wc.ID, err)
		}
		result.CapacityRequirements = append(result.CapacityRequirements, reqs...)
	}

	for _, req := range result.CapacityRequirements {
		if req.Status >= entities.LoadOverloaded {
			result.OverloadedBuckets++
		}
	}

	l.logger.Info("capacity loaded",
		zap.String("plan", string(plan.ID)),
		zap.String("mode", policy.Mode.String()),
		zap.Int("orders", loaded),
		zap.Int("buckets", len(result.CapacityRequirements)),
		zap.Int("overloaded", result.OverloadedBuckets),
		zap.Int("late_orders", len(result.LateOrders)),
	)
	return result, nil
}

// loadOrder resolves the routing of one order and adds each operation's hours
func (l *Loader) loadOrder(
	ctx context.Context,
	plan entities.Plan,
	order entities.PlannedOrder,
	routings RoutingLookup,
	wcs *workCenterCache,
	book *ledger,
	recorder *exceptions.Recorder,
) error {
	routing, err := routings.GetRouting(ctx, order.ProductID, order.PlannedStart)
	switch {
	case errors.Is(err, structure.ErrAmbiguousStructure):
		recorder.RecordOnce("routing-ambiguous/"+string(order.ProductID), entities.AmbiguousStructure, order.ProductID, "",
			"%s has several active routings on %s and no single default", order.ProductID, order.PlannedStart.Format(time.DateOnly))
		return nil
	case errors.Is(err, entities.ErrDataIncomplete), errors.Is(err, entities.ErrNotFound):
		recorder.RecordOnce("routing/"+string(order.ProductID), entities.MissingRouting, order.ProductID, "",
			"make item %s has no active routing on %s", order.ProductID, order.PlannedStart.Format(time.DateOnly))
		return nil
	case err != nil:
		return err
	}

	policy := plan.Capacity
	for _, op := range routing.Operations {
		if _, err := wcs.get(ctx, op.WorkCenterID); errors.Is(err, entities.ErrNotFound) {
			recorder.RecordOnce("wc/"+string(op.WorkCenterID), entities.MissingWorkCenter, order.ProductID, op.WorkCenterID,
				"routing of %s references unknown work center %s", order.ProductID, op.WorkCenterID)
			continue
		} else if err != nil {
			return err
		}

		date := entities.AddDays(order.PlannedStart, op.OffsetDays)
		detail := entities.LoadDetail{
			PlannedOrderID:    order.ID,
			ProductID:         order.ProductID,
			OperationSequence: op.Sequence,
			Date:              date,
			RunHours:          op.RunHoursPerUnit.Mul(order.Quantity),
			SetupHours:        decimal.Zero,
			QueueHours:        decimal.Zero,
			MoveHours:         decimal.Zero,
		}
		if policy.IncludeSetupTime {
			detail.SetupHours = op.SetupHours
		}
		if policy.IncludeQueueTime {
			detail.QueueHours = op.QueueHours
		}
		if policy.IncludeMoveTime {
			detail.MoveHours = op.MoveHours
		}
		detail.TotalHours = sum(detail.SetupHours, detail.RunHours, detail.QueueHours, detail.MoveHours)
		if detail.TotalHours.IsZero() {
			continue
		}

		book.cell(op.WorkCenterID, bucketOf(plan.Horizon, date)).add(detail)
	}
	return nil
}

// evaluationOrder returns the loaded work centers, bottlenecks first, then by id
func (l *Loader) evaluationOrder(ctx context.Context, book *ledger, wcs *workCenterCache) ([]entities.WorkCenter, error) {
	var centers []entities.WorkCenter
	for id := range book.workCenters() {
		wc, err := wcs.get(ctx, id)
		if err != nil {
			return nil, err
		}
		centers = append(centers, *wc)
	}
	sort.Slice(centers, func(i, j int) bool {
		if centers[i].IsBottleneck != centers[j].IsBottleneck {
			return centers[i].IsBottleneck
		}
		return centers[i].ID < centers[j].ID
	})
	return centers, nil
}

// evaluate fills in available hours for every bucket of one work center,
// resolves or reports overloads and returns the non-empty buckets
func (l *Loader) evaluate(
	ctx context.Context,
	plan entities.Plan,
	wc entities.WorkCenter,
	book *ledger,
	recorder *exceptions.Recorder,
	late map[string]bool,
) ([]entities.CapacityRequirement, error) {
	horizon := plan.Horizon
	policy := plan.Capacity
	buckets := make([]*entities.CapacityRequirement, horizon.Len())
	for i := range buckets {
		available, err := l.availableHours(ctx, wc, horizon, i, policy.IncludeEfficiency)
		if err != nil {
			return nil, err
		}
		c := book.cell(wc.ID, i)
		c.req.AvailableHours = available
		buckets[i] = &c.req
	}

	for i, req := range buckets {
		excess := req.RequiredHours.Sub(req.AvailableHours)
		if !excess.IsPositive() {
			continue
		}
		if policy.Mode == entities.InfiniteCapacity {
			recorder.RecordSuggesting(entities.InsufficientCapacity, "", wc.ID, overloadAction(buckets, i, wc.ID, excess),
				"%s requires %s h against %s h available in bucket %s",
				wc.ID, req.RequiredHours, req.AvailableHours, req.BucketDate.Format(time.DateOnly))
			continue
		}

		var unplaced decimal.Decimal
		if policy.Shift == entities.ShiftSplit {
			unplaced = shiftSplit(buckets, i, excess)
		} else {
			unplaced = shiftWhole(buckets, i, excess)
		}
		if unplaced.IsPositive() {
			recorder.RecordSuggesting(entities.CapacityBottleneck, "", wc.ID,
				fmt.Sprintf("add %s h of capacity on %s or move due dates beyond the horizon", unplaced, wc.ID),
				"%s h on %s in bucket %s cannot be placed within the horizon",
				unplaced, wc.ID, req.BucketDate.Format(time.DateOnly))
			for _, d := range req.Details {
				late[d.PlannedOrderID] = true
			}
		}
	}

	var out []entities.CapacityRequirement
	for _, req := range buckets {
		if req.RequiredHours.IsZero() && req.ShiftedOut.IsZero() && len(req.Details) == 0 {
			continue
		}
		req.Finalize(policy.Thresholds)
		out = append(out, *req)
	}
	return out, nil
}

// shiftWhole moves the full excess into the first later bucket whose spare
// hours cover it and returns what could not be moved
func shiftWhole(buckets []*entities.CapacityRequirement, from int, excess decimal.Decimal) decimal.Decimal {
	for j := from + 1; j < len(buckets); j++ {
		if spare(buckets[j]).GreaterThanOrEqual(excess) {
			move(buckets[from], buckets[j], excess)
			return decimal.Zero
		}
	}
	return excess
}

// shiftSplit spreads the excess over later buckets with spare hours
func shiftSplit(buckets []*entities.CapacityRequirement, from int, excess decimal.Decimal) decimal.Decimal {
	remaining := excess
	for j := from + 1; j < len(buckets) && remaining.IsPositive(); j++ {
		free := spare(buckets[j])
		if !free.IsPositive() {
			continue
		}
		amount := decimal.Min(free, remaining)
		move(buckets[from], buckets[j], amount)
		remaining = remaining.Sub(amount)
	}
	return remaining
}

// overloadAction proposes where the excess of an infinite-mode bucket could go:
// the first later bucket whose spare hours cover it, else overtime
func overloadAction(buckets []*entities.CapacityRequirement, from int, wc entities.WorkCenterID, excess decimal.Decimal) string {
	for j := from + 1; j < len(buckets); j++ {
		if spare(buckets[j]).GreaterThanOrEqual(excess) {
			return fmt.Sprintf("move %s h on %s to bucket %s", excess, wc, buckets[j].BucketDate.Format(time.DateOnly))
		}
	}
	return fmt.Sprintf("add %s h of overtime on %s or offload to another work center", excess, wc)
}

func spare(req *entities.CapacityRequirement) decimal.Decimal {
	return req.AvailableHours.Sub(req.RequiredHours)
}

// move transfers hours between buckets; ShiftedTo records the last target
func move(from, to *entities.CapacityRequirement, hours decimal.Decimal) {
	from.RequiredHours = from.RequiredHours.Sub(hours)
	from.ShiftedOut = from.ShiftedOut.Add(hours)
	target := to.BucketDate
	from.ShiftedTo = &target
	to.RequiredHours = to.RequiredHours.Add(hours)
	to.ShiftedIn = to.ShiftedIn.Add(hours)
}

// availableHours sums the calendar hours over the days of a bucket
func (l *Loader) availableHours(
	ctx context.Context,
	wc entities.WorkCenter,
	horizon entities.Horizon,
	bucket int,
	includeEfficiency bool,
) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, day := range horizon.BucketDaysOf(bucket) {
		hours, err := l.workCenters.GetWorkCenterCalendar(ctx, wc.ID, day)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(wc.EffectiveHours(hours, includeEfficiency))
	}
	return total, nil
}
