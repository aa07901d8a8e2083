// Package testing builds in-memory planning scenarios for tests and demos.
package testing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/mrpcrp/pkg/domain/entities"
	"github.com/vsinha/mrpcrp/pkg/infrastructure/repositories/memory"
)

// Scenario bundles the in-memory collaborators of one planning run
type Scenario struct {
	Start       time.Time
	Items       *memory.ItemRepository
	Structures  *memory.StructureRepository
	Inventory   *memory.InventoryRepository
	Demands     *memory.DemandRepository
	WorkCenters *memory.WorkCenterRepository
	Plans       *memory.PlanRepository
}

// NewScenario creates an empty scenario whose day 0 is start
func NewScenario(start time.Time) *Scenario {
	return &Scenario{
		Start:       entities.DayOf(start),
		Items:       memory.NewItemRepository(16),
		Structures:  memory.NewStructureRepository(),
		Inventory:   memory.NewInventoryRepository(),
		Demands:     memory.NewDemandRepository(),
		WorkCenters: memory.NewWorkCenterRepository(),
		Plans:       memory.NewPlanRepository(),
	}
}

// Day returns the date offset days after the scenario start
func (s *Scenario) Day(offset int) time.Time {
	return entities.AddDays(s.Start, offset)
}

// ItemOption adjusts an item before it is stored
type ItemOption func(*entities.Item)

// WithSafetyStock sets the safety stock
func WithSafetyStock(qty int64) ItemOption {
	return func(i *entities.Item) { i.SafetyStock = decimal.NewFromInt(qty) }
}

// WithFixedOrderQty selects fixed order quantity lot sizing
func WithFixedOrderQty(qty int64) ItemOption {
	return func(i *entities.Item) {
		i.LotSizing = entities.FixedOrderQuantity
		i.FixedOrderQty = decimal.NewFromInt(qty)
	}
}

// WithPeriodsOfSupply selects periods of supply lot sizing
func WithPeriodsOfSupply(periods int) ItemOption {
	return func(i *entities.Item) {
		i.LotSizing = entities.PeriodsOfSupply
		i.PeriodsOfSupply = periods
	}
}

// WithOrderLimits sets minimum and maximum order quantities; zero leaves a limit unset
func WithOrderLimits(minQty, maxQty int64) ItemOption {
	return func(i *entities.Item) {
		i.MinOrderQty = decimal.NewFromInt(minQty)
		i.MaxOrderQty = decimal.NewFromInt(maxQty)
	}
}

// mustCreateItem is a helper for tests - panics on validation error
func mustCreateItem(id string, leadTime int, replenishment entities.OrderType, opts ...ItemOption) *entities.Item {
	item, err := entities.NewItem(entities.ProductID(id), id, leadTime, replenishment, entities.LotForLot, decimal.Zero)
	if err != nil {
		panic(err)
	}
	for _, opt := range opts {
		opt(item)
	}
	if err := item.Validate(); err != nil {
		panic(err)
	}
	return item
}

// Item stores an item with an empty stock record
func (s *Scenario) Item(id string, leadTime int, replenishment entities.OrderType, opts ...ItemOption) *Scenario {
	s.Items.AddItem(*mustCreateItem(id, leadTime, replenishment, opts...))
	s.Inventory.RegisterProduct(entities.ProductID(id))
	return s
}

// OnHand sets a product's available stock
func (s *Scenario) OnHand(id string, qty int64) *Scenario {
	s.Inventory.SetOnHand(entities.ProductID(id), decimal.NewFromInt(qty))
	return s
}

// Receipt adds a scheduled receipt on a day offset
func (s *Scenario) Receipt(id string, day int, qty int64) *Scenario {
	if err := s.Inventory.LoadScheduledReceipts([]*entities.ScheduledReceipt{{
		ProductID: entities.ProductID(id),
		Date:      s.Day(day),
		Quantity:  decimal.NewFromInt(qty),
		Reference: "SR-" + id,
	}}); err != nil {
		panic(err)
	}
	return s
}

// Line builds a BOM line; scrap is a percentage string such as "10"
func Line(component string, qtyPer string, scrap string) entities.BomLine {
	line, err := entities.NewBomLine(entities.ProductID(component), decimal.RequireFromString(qtyPer), "EA", decimal.RequireFromString(scrap))
	if err != nil {
		panic(err)
	}
	return *line
}

// PhantomLine builds a phantom BOM line without scrap
func PhantomLine(component string, qtyPer string) entities.BomLine {
	line := Line(component, qtyPer, "0")
	line.IsPhantom = true
	return line
}

// Bom stores an active default BOM for the parent
func (s *Scenario) Bom(parent string, lines ...entities.BomLine) *Scenario {
	bom, err := entities.NewBillOfMaterial("BOM-"+parent, entities.ProductID(parent), "1", entities.StructureActive, true)
	if err != nil {
		panic(err)
	}
	for _, l := range lines {
		if err := bom.AddLine(l); err != nil {
			panic(err)
		}
	}
	s.Structures.AddBom(*bom)
	return s
}

// BomBetween stores an active default BOM effective from day from through
// day to; a negative offset leaves that end open
func (s *Scenario) BomBetween(id, parent string, from, to int, lines ...entities.BomLine) *Scenario {
	bom, err := entities.NewBillOfMaterial(id, entities.ProductID(parent), id, entities.StructureActive, true)
	if err != nil {
		panic(err)
	}
	if from >= 0 {
		d := s.Day(from)
		bom.Effectivity.From = &d
	}
	if to >= 0 {
		d := s.Day(to)
		bom.Effectivity.To = &d
	}
	for _, l := range lines {
		if err := bom.AddLine(l); err != nil {
			panic(err)
		}
	}
	s.Structures.AddBom(*bom)
	return s
}

// Demand adds a sales order on a day offset
func (s *Scenario) Demand(id string, day int, qty int64) *Scenario {
	if err := s.Demands.LoadDemands([]*entities.DemandEntry{{
		ProductID: entities.ProductID(id),
		Date:      s.Day(day),
		Quantity:  decimal.NewFromInt(qty),
		Source:    entities.SalesOrderDemand,
		Reference: "SO-" + id,
	}}); err != nil {
		panic(err)
	}
	return s
}

// WorkCenter stores a work center with the given daily hours
func (s *Scenario) WorkCenter(id string, hoursPerDay int64, bottleneck bool) *Scenario {
	wc, err := entities.NewWorkCenter(entities.WorkCenterID(id), id, decimal.NewFromInt(hoursPerDay), bottleneck)
	if err != nil {
		panic(err)
	}
	if err := s.WorkCenters.LoadWorkCenters([]*entities.WorkCenter{wc}); err != nil {
		panic(err)
	}
	return s
}

// Op builds a routing operation; hours are decimal strings
func Op(sequence int, workCenter string, setup, runPerUnit, queue, move string) entities.Operation {
	op, err := entities.NewOperation(sequence, entities.WorkCenterID(workCenter),
		decimal.RequireFromString(setup), decimal.RequireFromString(runPerUnit),
		decimal.RequireFromString(queue), decimal.RequireFromString(move))
	if err != nil {
		panic(err)
	}
	return *op
}

// Routing stores an active default routing for the product
func (s *Scenario) Routing(product string, ops ...entities.Operation) *Scenario {
	routing := entities.Routing{
		ID:        "RT-" + product,
		ProductID: entities.ProductID(product),
		Version:   "1",
		Status:    entities.StructureActive,
		IsDefault: true,
	}
	for _, op := range ops {
		if err := routing.AddOperation(op); err != nil {
			panic(err)
		}
	}
	s.Structures.AddRouting(routing)
	return s
}

// Horizon returns a horizon of the given length starting at day 0
func (s *Scenario) Horizon(days, bucketDays int) entities.Horizon {
	h, err := entities.NewHorizon(s.Start, s.Day(days-1), bucketDays)
	if err != nil {
		panic(err)
	}
	return h
}

// Plan returns a Draft MRP plan over the given horizon
func (s *Scenario) Plan(id string, horizon entities.Horizon, policy entities.PlanningPolicy, capacity entities.CapacityPolicy) entities.Plan {
	plan, _, err := entities.NewPlan(entities.PlanID(id), id, entities.MRPPlan, horizon, policy, capacity, s.Start)
	if err != nil {
		panic(err)
	}
	return *plan
}

// BuildSimpleScenario is a single make item X: 100 due on day 10, 20 on hand,
// safety stock 5 and a 3 day lead time
func BuildSimpleScenario(start time.Time) *Scenario {
	s := NewScenario(start)
	s.Item("X", 3, entities.Buy, WithSafetyStock(5)).
		OnHand("X", 20).
		Demand("X", 10, 100)
	return s
}

// BuildCommonPartScenario has BOLT used directly by FRAME and through
// ASSEMBLY -> FRAME, plus service demand for BOLT itself
func BuildCommonPartScenario(start time.Time) *Scenario {
	s := NewScenario(start)
	s.Item("ASSEMBLY", 2, entities.Make).
		Item("FRAME", 3, entities.Make).
		Item("BOLT", 1, entities.Buy).
		Bom("ASSEMBLY", Line("FRAME", "1", "0"), Line("BOLT", "4", "0")).
		Bom("FRAME", Line("BOLT", "6", "0")).
		Demand("ASSEMBLY", 20, 10).
		Demand("BOLT", 15, 7)
	return s
}

// BuildAerospaceScenario builds a launch vehicle structure with an engine
// cutover, scrap on turbopumps and capacity on two work centers
func BuildAerospaceScenario(start time.Time) *Scenario {
	s := NewScenario(start)
	s.Item("SATURN_V", 20, entities.Make, WithOrderLimits(0, 10)).
		Item("F1_ENGINE", 12, entities.Make, WithOrderLimits(0, 50), WithSafetyStock(2)).
		Item("J2_ENGINE", 9, entities.Make).
		Item("F1_TURBOPUMP", 6, entities.Buy, WithFixedOrderQty(25)).
		Item("INJECTOR_KIT", 0, entities.Make).
		Item("INJECTOR_PLATE", 4, entities.Buy).
		Item("GASKET", 2, entities.Buy, WithPeriodsOfSupply(7)).
		OnHand("F1_ENGINE", 3).
		OnHand("GASKET", 40).
		Bom("SATURN_V", Line("F1_ENGINE", "5", "0"), Line("J2_ENGINE", "6", "0")).
		Bom("F1_ENGINE", Line("F1_TURBOPUMP", "1", "4"), PhantomLine("INJECTOR_KIT", "1")).
		Bom("INJECTOR_KIT", Line("INJECTOR_PLATE", "1", "0"), Line("GASKET", "12", "0")).
		Bom("J2_ENGINE", Line("GASKET", "8", "0")).
		WorkCenter("VAB", 16, true).
		WorkCenter("ENGINE_SHOP", 40, false).
		Routing("SATURN_V", Op(10, "VAB", "8", "12", "0", "2")).
		Routing("F1_ENGINE", Op(10, "ENGINE_SHOP", "4", "6", "2", "1"), Op(20, "ENGINE_SHOP", "2", "3", "0", "1")).
		Routing("J2_ENGINE", Op(10, "ENGINE_SHOP", "3", "4", "1", "1")).
		Demand("SATURN_V", 60, 2).
		Demand("SATURN_V", 85, 1)
	return s
}
