package explosion

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vsinha/mrpcrp/pkg/application/dto"
	"github.com/vsinha/mrpcrp/pkg/application/services/demand"
	"github.com/vsinha/mrpcrp/pkg/application/services/exceptions"
	"github.com/vsinha/mrpcrp/pkg/application/services/lotsizing"
	"github.com/vsinha/mrpcrp/pkg/application/services/netting"
	"github.com/vsinha/mrpcrp/pkg/application/services/shared"
	"github.com/vsinha/mrpcrp/pkg/application/services/structure"
	"github.com/vsinha/mrpcrp/pkg/domain/entities"
	"github.com/vsinha/mrpcrp/pkg/domain/repositories"
)

// maxPhantomDepth bounds phantom-through-phantom expansion
const maxPhantomDepth = 32

// Config holds explosion driver settings
type Config struct {
	// Workers bounds the products planned concurrently within one wave; 0 means one per CPU
	Workers int
}

// Driver runs netting, lot sizing and BOM explosion level by level
type Driver struct {
	resolver  *structure.Resolver
	items     repositories.ItemRepository
	inventory repositories.InventoryRepository
	netting   *netting.Engine
	sizing    *lotsizing.Engine
	logger    *zap.Logger
	workers   int
}

// NewDriver creates an explosion driver
func NewDriver(
	resolver *structure.Resolver,
	items repositories.ItemRepository,
	inventory repositories.InventoryRepository,
	ids shared.IDGenerator,
	logger *zap.Logger,
	config Config,
) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{
		resolver:  resolver,
		items:     items,
		inventory: inventory,
		netting:   netting.NewEngine(logger),
		sizing:    lotsizing.NewEngine(ids, logger),
		logger:    logger,
		workers:   shared.WorkerCount(config.Workers),
	}
}

// run carries the mutable state of one explosion
type run struct {
	plan     entities.Plan
	levels   *Levels
	backlog  *demand.Aggregator
	recorder *exceptions.Recorder

	mu           sync.Mutex
	requirements []entities.Requirement
	orders       []entities.PlannedOrder
	processed    int
}

func (r *run) collect(reqs []entities.Requirement, orders []entities.PlannedOrder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processed++
	active := false
	for _, req := range reqs {
		if !req.IsIdle() {
			active = true
			break
		}
	}
	if active {
		r.requirements = append(r.requirements, reqs...)
	}
	r.orders = append(r.orders, orders...)
}

// Explode plans every product reachable from the root demand. Products are
// processed in waves of equal low-level code; a wave starts only after the
// previous one has finished, so a product's backlog is complete before it is
// netted. Once ctx is done no further wave starts and the result is marked failed.
func (d *Driver) Explode(ctx context.Context, plan entities.Plan, rootDemand []entities.DemandEntry, recorder *exceptions.Recorder) (*dto.ExplosionResult, error) {
	backlog := demand.NewAggregator()
	if err := backlog.Append(rootDemand...); err != nil {
		return nil, err
	}

	// Step 1: low-level codes and cycle detection over the reachable structure
	levels, err := BuildLevels(ctx, d.resolver, backlog.Products())
	if err != nil {
		return nil, fmt.Errorf("build low-level codes: %w", err)
	}
	for _, cycle := range levels.Cycles.Cycles {
		recorder.Record(entities.CycleDetected, cycle[0], "", "BOM cycle detected: %s", joinPath(cycle))
	}

	r := &run{plan: plan, levels: levels, backlog: backlog, recorder: recorder}
	result := &dto.ExplosionResult{LowLevelCodes: levels.Codes}
	if levels.Cycles.HasCycles() {
		result.Failed = true
		result.FailureReason = fmt.Sprintf("%d BOM cycle(s) detected", len(levels.Cycles.Cycles))
	}

	// Step 2: waves, each bounded by the worker limit and closed by Wait
	work := context.WithoutCancel(ctx)
	for level, wave := range levels.Waves {
		if err := ctx.Err(); err != nil {
			recorder.Record(entities.DeadlineExceeded, "", "",
				"planning stopped before level %d of %d: %v", level, len(levels.Waves)-1, err)
			result.Failed = true
			result.FailureReason = "deadline exceeded"
			break
		}

		g, gctx := errgroup.WithContext(work)
		g.SetLimit(d.workers)
		for _, productID := range wave {
			productID := productID
			g.Go(func() error {
				return d.processProduct(gctx, r, productID, level)
			})
		}
		if err := g.Wait(); err != nil {
			return nil, fmt.Errorf("level %d: %w", level, err)
		}
		result.Waves++

		d.logger.Debug("wave complete", zap.Int("level", level), zap.Int("products", len(wave)))
	}

	// Step 3: stable output order
	sort.SliceStable(r.requirements, func(i, j int) bool {
		a, b := r.requirements[i], r.requirements[j]
		if a.LowLevelCode != b.LowLevelCode {
			return a.LowLevelCode < b.LowLevelCode
		}
		if a.ProductID != b.ProductID {
			return a.ProductID < b.ProductID
		}
		return a.BucketIndex < b.BucketIndex
	})
	sort.SliceStable(r.orders, func(i, j int) bool {
		a, b := r.orders[i], r.orders[j]
		if a.LowLevelCode != b.LowLevelCode {
			return a.LowLevelCode < b.LowLevelCode
		}
		if a.ProductID != b.ProductID {
			return a.ProductID < b.ProductID
		}
		if !a.PlannedEnd.Equal(b.PlannedEnd) {
			return a.PlannedEnd.Before(b.PlannedEnd)
		}
		return a.DemandTrace < b.DemandTrace
	})

	result.Requirements = r.requirements
	result.PlannedOrders = r.orders
	result.ProcessedProducts = r.processed
	result.Exceptions = recorder.Exceptions()

	d.logger.Info("explosion finished",
		zap.String("plan", string(plan.ID)),
		zap.Int("products", r.processed),
		zap.Int("orders", len(r.orders)),
		zap.Int("waves", result.Waves),
		zap.Bool("failed", result.Failed),
	)
	return result, nil
}

// processProduct nets, sizes and explodes one product. Data problems become
// exceptions; only unexpected repository failures are returned.
func (d *Driver) processProduct(ctx context.Context, r *run, productID entities.ProductID, level int) error {
	horizon := r.plan.Horizon

	item, err := d.items.GetItem(ctx, productID)
	if errors.Is(err, entities.ErrNotFound) {
		r.recorder.RecordOnce("item/"+string(productID), entities.MissingItemData, productID, "",
			"no item master record for %s", productID)
		return nil
	}
	if err != nil {
		return err
	}

	onHand, receipts, err := d.inventory.GetOnHandAndScheduledReceipts(ctx, productID)
	if errors.Is(err, entities.ErrNotFound) {
		r.recorder.RecordOnce("stock/"+string(productID), entities.MissingItemData, productID, "",
			"no stock record for %s", productID)
		return nil
	}
	if err != nil {
		return err
	}

	bucketed := demand.Bucket(r.backlog.Entries(productID), horizon)
	if n := len(bucketed.Dropped); n > 0 {
		total := decimal.Zero
		for _, e := range bucketed.Dropped {
			total = total.Add(e.Quantity)
		}
		r.recorder.Record(entities.DemandOutsideHorizon, productID, "",
			"%d demand entries totalling %s fall after the horizon end and were ignored", n, total)
	}

	reqs, err := d.netting.Net(netting.Input{
		PlanID:            r.plan.ID,
		ProductID:         productID,
		LowLevelCode:      level,
		Horizon:           horizon,
		Gross:             bucketed.Gross,
		ScheduledReceipts: demand.BucketReceipts(receipts, horizon),
		OnHand:            onHand,
		SafetyStock:       item.SafetyStock,
	}, netting.Policy{IncludeSafetyStock: r.plan.Policy.IncludeSafetyStock})
	if errors.Is(err, entities.ErrValidation) {
		r.recorder.Record(entities.ValidationFailure, productID, "", "netting rejected %s: %v", productID, err)
		return nil
	}
	if err != nil {
		return err
	}

	policy := lotsizing.PolicyFor(item, r.plan.Policy)
	policy.LowLevelCode = level
	sized, err := d.sizing.Size(reqs, horizon, policy)
	if errors.Is(err, entities.ErrValidation) {
		r.recorder.Record(entities.ValidationFailure, productID, "", "lot sizing rejected %s: %v", productID, err)
		return nil
	}
	if err != nil {
		return err
	}

	if r.plan.Policy.IncludeSafetyStock && item.SafetyStock.IsPositive() && onHand.LessThan(item.SafetyStock) {
		r.recorder.Record(entities.InsufficientStock, productID, "",
			"on hand %s of %s is below safety stock %s", onHand, productID, item.SafetyStock)
	}

	orders := sized.Orders
	for i := range orders {
		if orders[i].PlannedStart.Before(horizon.Start) {
			orders[i].IsLate = true
			r.recorder.Record(entities.LeadTimeOverrun, productID, "",
				"order for %s %s due %s must start %s, %d days before the horizon",
				orders[i].Quantity, productID, orders[i].PlannedEnd.Format("2006-01-02"),
				orders[i].PlannedStart.Format("2006-01-02"), entities.DaysBetween(orders[i].PlannedStart, horizon.Start))
		}
	}

	if item.Replenishment == entities.Make && !r.levels.IsCyclic(productID) {
		if err := d.explodeOrders(ctx, r, productID, orders); err != nil {
			return err
		}
	}

	r.collect(sized.Requirements, orders)
	return nil
}

// explodeOrders turns each planned order into dependent demand for its
// components, dated at the order's planned start
func (d *Driver) explodeOrders(ctx context.Context, r *run, productID entities.ProductID, orders []entities.PlannedOrder) error {
	for _, order := range orders {
		bom, ok, err := d.activeBom(ctx, r, productID, order.PlannedStart)
		if err != nil {
			return err
		}
		if !ok {
			// each order resolves against the structure effective on its own start
			continue
		}
		entries, err := d.componentDemand(ctx, r, bom, order.Quantity, order.PlannedStart, order.ID, 0)
		if err != nil {
			return err
		}
		if err := r.backlog.Append(entries...); err != nil {
			return err
		}
	}
	return nil
}

// activeBom resolves a BOM, recording missing or ambiguous structures once per product
func (d *Driver) activeBom(ctx context.Context, r *run, productID entities.ProductID, asOf time.Time) (*entities.BillOfMaterial, bool, error) {
	bom, err := d.resolver.GetActiveBom(ctx, productID, asOf)
	switch {
	case err == nil:
		return bom, true, nil
	case errors.Is(err, structure.ErrNoActiveStructure):
		r.recorder.RecordOnce("bom/"+string(productID), entities.MissingBom, productID, "",
			"make item %s has no active BOM on %s", productID, asOf.Format(time.DateOnly))
		return nil, false, nil
	case errors.Is(err, structure.ErrAmbiguousStructure):
		r.recorder.RecordOnce("ambiguous/"+string(productID), entities.AmbiguousStructure, productID, "",
			"%s has several active BOMs on %s and no single default", productID, asOf.Format(time.DateOnly))
		return nil, false, nil
	default:
		return nil, false, err
	}
}

// componentDemand expands one BOM level; phantom lines pass their quantity
// straight through to their own components
func (d *Driver) componentDemand(
	ctx context.Context,
	r *run,
	bom *entities.BillOfMaterial,
	parentQty decimal.Decimal,
	date time.Time,
	reference string,
	depth int,
) ([]entities.DemandEntry, error) {
	entries := make([]entities.DemandEntry, 0, len(bom.Lines))
	for _, line := range bom.LinesEffectiveOn(date) {
		qty := parentQty.Mul(line.NetQuantity)
		if !line.IsPhantom {
			entries = append(entries, entities.DemandEntry{
				ProductID: line.ComponentID,
				Date:      date,
				Quantity:  qty,
				Source:    entities.DependentDemand,
				Reference: reference,
			})
			continue
		}

		entries = append(entries, entities.DemandEntry{
			ProductID: line.ComponentID,
			Date:      date,
			Quantity:  qty,
			Source:    entities.PhantomPassThrough,
			Reference: reference,
		})
		if r.levels.IsCyclic(line.ComponentID) || depth >= maxPhantomDepth {
			continue
		}
		phantomBom, ok, err := d.activeBom(ctx, r, line.ComponentID, date)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		nested, err := d.componentDemand(ctx, r, phantomBom, qty, date, reference, depth+1)
		if err != nil {
			return nil, err
		}
		entries = append(entries, nested...)
	}
	return entries, nil
}

func joinPath(path []entities.ProductID) string {
	parts := make([]string, len(path))
	for i, p := range path {
		parts[i] = string(p)
	}
	return strings.Join(parts, " -> ")
}
