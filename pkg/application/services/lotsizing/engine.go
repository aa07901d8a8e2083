package lotsizing

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vsinha/mrpcrp/pkg/application/services/shared"
	"github.com/vsinha/mrpcrp/pkg/domain/entities"
)

// Policy holds the lot sizing parameters resolved for one product
type Policy struct {
	Method          entities.LotSizingMethod
	FixedQty        decimal.Decimal
	PeriodsOfSupply int
	MinQty          decimal.Decimal
	MaxQty          decimal.Decimal // zero means unlimited
	LeadTimeDays    int
	OrderType       entities.OrderType
	LowLevelCode    int
}

// PolicyFor resolves an item's lot sizing parameters against the plan defaults
func PolicyFor(item *entities.Item, plan entities.PlanningPolicy) Policy {
	p := Policy{
		Method:          item.LotSizing,
		FixedQty:        item.FixedOrderQty,
		PeriodsOfSupply: item.PeriodsOfSupply,
		MinQty:          item.MinOrderQty,
		MaxQty:          item.MaxOrderQty,
		OrderType:       item.Replenishment,
	}
	if p.Method == entities.LotSizingUnspecified {
		p.Method = plan.DefaultLotSizing
	}
	if p.Method == entities.LotSizingUnspecified {
		p.Method = entities.LotForLot
	}
	if !p.FixedQty.IsPositive() {
		p.FixedQty = plan.DefaultFixedQty
	}
	if p.PeriodsOfSupply <= 0 {
		p.PeriodsOfSupply = plan.DefaultPeriodsOfSupply
	}
	if plan.ConsiderLeadTimes {
		p.LeadTimeDays = item.LeadTimeDays
	}
	return p
}

// Result is the re-projected requirement series and the orders covering it
type Result struct {
	Requirements []entities.Requirement
	Orders       []entities.PlannedOrder
}

// Engine turns net requirements into planned orders
type Engine struct {
	ids    shared.IDGenerator
	logger *zap.Logger
}

// NewEngine creates a lot sizing engine
func NewEngine(ids shared.IDGenerator, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{ids: ids, logger: logger}
}

// Size re-projects the requirement series bucket by bucket from its opening
// stock, sizing a receipt wherever the balance would fall below safety stock.
// It reads only Gross, ScheduledReceipts, SafetyStock and the first OnHand,
// so sizing its own output again yields the same quantities and dates.
func (e *Engine) Size(reqs []entities.Requirement, horizon entities.Horizon, p Policy) (Result, error) {
	if len(reqs) == 0 {
		return Result{}, nil
	}
	if err := validate(p); err != nil {
		return Result{}, fmt.Errorf("%s: %w", reqs[0].ProductID, err)
	}

	out := make([]entities.Requirement, len(reqs))
	orders := make([]entities.PlannedOrder, 0)
	onHand := reqs[0].OnHand

	for i, r := range reqs {
		available := onHand.Add(r.ScheduledReceipts).Sub(r.Gross)
		net := decimal.Max(decimal.Zero, r.SafetyStock.Sub(available))

		receipt := decimal.Zero
		if net.IsPositive() {
			qty, err := e.applyLotSizing(net, reqs, i, p)
			if err != nil {
				return Result{}, fmt.Errorf("%s bucket %d: %w", r.ProductID, i, err)
			}
			receipt = qty
			split, err := e.splitOrderByMaxQty(qty, net, r, p)
			if err != nil {
				return Result{}, err
			}
			orders = append(orders, split...)
		}

		r.OnHand = onHand
		r.Net = net
		r.PlannedReceipt = receipt
		r.PlannedRelease = decimal.Zero
		r.ProjectedOnHand = available.Add(receipt)
		r.NeedsOrder = net.IsPositive()
		r.LowLevelCode = p.LowLevelCode
		out[i] = r
		onHand = r.ProjectedOnHand
	}

	for _, o := range orders {
		idx, ok := horizon.BucketIndex(o.PlannedStart)
		if ok && idx < len(out) {
			out[idx].PlannedRelease = out[idx].PlannedRelease.Add(o.Quantity)
		}
	}

	e.logger.Debug("sized product",
		zap.String("product", string(reqs[0].ProductID)),
		zap.String("method", p.Method.String()),
		zap.Int("orders", len(orders)),
	)
	return Result{Requirements: out, Orders: orders}, nil
}

func validate(p Policy) error {
	switch p.Method {
	case entities.FixedOrderQuantity:
		if !p.FixedQty.IsPositive() {
			return fmt.Errorf("%w: fixed order quantity must be positive, got %s", entities.ErrValidation, p.FixedQty)
		}
	case entities.PeriodsOfSupply:
		if p.PeriodsOfSupply <= 0 {
			return fmt.Errorf("%w: periods of supply must be positive, got %d", entities.ErrValidation, p.PeriodsOfSupply)
		}
	case entities.LotForLot, entities.MinimumQuantity:
	default:
		return fmt.Errorf("%w: unsupported lot sizing method %s", entities.ErrValidation, p.Method)
	}
	if p.LeadTimeDays < 0 {
		return fmt.Errorf("%w: lead time cannot be negative, got %d", entities.ErrValidation, p.LeadTimeDays)
	}
	if p.MaxQty.IsNegative() || p.MinQty.IsNegative() {
		return fmt.Errorf("%w: order quantity limits cannot be negative", entities.ErrValidation)
	}
	return nil
}

// applyLotSizing applies the lot sizing rule to determine the order quantity
func (e *Engine) applyLotSizing(net decimal.Decimal, reqs []entities.Requirement, i int, p Policy) (decimal.Decimal, error) {
	var qty decimal.Decimal
	switch p.Method {
	case entities.FixedOrderQuantity:
		packs := net.Div(p.FixedQty).Ceil()
		qty = packs.Mul(p.FixedQty)
	case entities.PeriodsOfSupply:
		qty = net
		last := i + p.PeriodsOfSupply - 1
		if last > len(reqs)-1 {
			last = len(reqs) - 1
		}
		for j := i + 1; j <= last; j++ {
			qty = qty.Add(reqs[j].Gross).Sub(reqs[j].ScheduledReceipts)
		}
		qty = decimal.Max(qty, net)
	case entities.MinimumQuantity:
		qty = decimal.Max(net, p.MinQty)
	default:
		qty = net
	}

	if p.Method != entities.MinimumQuantity && p.MinQty.IsPositive() && qty.LessThan(p.MinQty) {
		return decimal.Zero, fmt.Errorf("%w: order quantity %s is below the minimum %s", entities.ErrValidation, qty, p.MinQty)
	}
	return qty, nil
}

// splitOrderByMaxQty splits a receipt into orders of at most MaxQty, all due in the bucket
func (e *Engine) splitOrderByMaxQty(qty, net decimal.Decimal, r entities.Requirement, p Policy) ([]entities.PlannedOrder, error) {
	due := r.BucketDate
	start := entities.AddDays(due, -p.LeadTimeDays)
	trace := fmt.Sprintf("%s net %s on %s", r.ProductID, net, due.Format("2006-01-02"))

	chunks := []decimal.Decimal{qty}
	if p.MaxQty.IsPositive() && qty.GreaterThan(p.MaxQty) {
		chunks = chunks[:0]
		for remaining := qty; remaining.IsPositive(); remaining = remaining.Sub(p.MaxQty) {
			chunks = append(chunks, decimal.Min(remaining, p.MaxQty))
		}
	}

	orders := make([]entities.PlannedOrder, 0, len(chunks))
	remainingNet := net
	for n, chunk := range chunks {
		order, err := entities.NewPlannedOrder(e.ids.NewID(), r.PlanID, r.ProductID, p.OrderType, chunk, start, due)
		if err != nil {
			return nil, err
		}
		order.LotSizing = p.Method
		order.LowLevelCode = p.LowLevelCode
		order.OriginalQuantity = decimal.Min(chunk, remainingNet)
		remainingNet = decimal.Max(decimal.Zero, remainingNet.Sub(chunk))
		order.DemandTrace = trace
		if len(chunks) > 1 {
			order.DemandTrace = fmt.Sprintf("%s (Split %d)", trace, n+1)
		}
		orders = append(orders, *order)
	}
	return orders, nil
}
