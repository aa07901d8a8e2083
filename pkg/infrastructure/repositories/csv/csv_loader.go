package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/mrpcrp/pkg/domain/entities"
	"github.com/vsinha/mrpcrp/pkg/infrastructure/repositories/memory"
)

const dateLayout = "2006-01-02"

var (
	itemsHeader       = []string{"product_id", "description", "lead_time_days", "replenishment", "lot_sizing", "fixed_order_qty", "periods_of_supply", "min_order_qty", "max_order_qty", "safety_stock", "unit_of_measure"}
	bomHeader         = []string{"bom_id", "parent_id", "version", "status", "is_default", "component_id", "quantity_per", "unit", "scrap_pct", "effective_from", "effective_to", "phantom"}
	inventoryHeader   = []string{"product_id", "lot_number", "location", "quantity", "receipt_date", "status"}
	receiptsHeader    = []string{"product_id", "due_date", "quantity", "reference"}
	demandsHeader     = []string{"product_id", "need_date", "quantity", "source", "reference"}
	workCentersHeader = []string{"work_center_id", "name", "hours_per_day", "efficiency", "is_bottleneck"}
	routingsHeader    = []string{"routing_id", "product_id", "version", "status", "is_default", "sequence", "work_center_id", "setup_hours", "run_hours_per_unit", "queue_hours", "move_hours", "offset_days"}
	calendarHeader    = []string{"work_center_id", "date", "hours"}
)

// CalendarOverride replaces a work center's standard hours on one day
type CalendarOverride struct {
	WorkCenterID entities.WorkCenterID
	Date         time.Time
	Hours        decimal.Decimal
}

// Scenario is the master data of one planning run as read from a directory
type Scenario struct {
	Items       []*entities.Item
	Boms        []*entities.BillOfMaterial
	Lots        []*entities.InventoryLot
	Receipts    []*entities.ScheduledReceipt
	Demands     []*entities.DemandEntry
	WorkCenters []*entities.WorkCenter
	Routings    []*entities.Routing
	Calendar    []CalendarOverride
}

// Repositories are the in-memory stores a scenario populates
type Repositories struct {
	Items       *memory.ItemRepository
	Structures  *memory.StructureRepository
	Inventory   *memory.InventoryRepository
	Demand      *memory.DemandRepository
	WorkCenters *memory.WorkCenterRepository
}

// Loader handles loading MRP data from CSV files
type Loader struct{}

// NewLoader creates a new CSV loader
func NewLoader() *Loader {
	return &Loader{}
}

// LoadScenario reads every scenario file in dir. items.csv, bom.csv,
// inventory.csv and demands.csv are required; the rest are optional.
func (l *Loader) LoadScenario(dir string) (*Scenario, error) {
	var (
		s   Scenario
		err error
	)
	path := func(name string) string { return filepath.Join(dir, name) }

	if s.Items, err = l.LoadItems(path("items.csv")); err != nil {
		return nil, err
	}
	if s.Boms, err = l.LoadBOM(path("bom.csv")); err != nil {
		return nil, err
	}
	if s.Lots, err = l.LoadInventory(path("inventory.csv")); err != nil {
		return nil, err
	}
	if s.Demands, err = l.LoadDemands(path("demands.csv")); err != nil {
		return nil, err
	}
	if s.Receipts, err = optional(l.LoadReceipts, path("receipts.csv")); err != nil {
		return nil, err
	}
	if s.WorkCenters, err = optional(l.LoadWorkCenters, path("workcenters.csv")); err != nil {
		return nil, err
	}
	if s.Routings, err = optional(l.LoadRoutings, path("routings.csv")); err != nil {
		return nil, err
	}
	if s.Calendar, err = optional(l.LoadCalendar, path("calendar.csv")); err != nil {
		return nil, err
	}
	return &s, nil
}

func optional[T any](load func(string) ([]T, error), filename string) ([]T, error) {
	if _, err := os.Stat(filename); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return load(filename)
}

// Populate builds in-memory repositories holding the scenario. Every item is
// registered with inventory so items without stock read as zero on hand.
func (s *Scenario) Populate() (*Repositories, error) {
	repos := &Repositories{
		Items:       memory.NewItemRepository(len(s.Items)),
		Structures:  memory.NewStructureRepository(),
		Inventory:   memory.NewInventoryRepository(),
		Demand:      memory.NewDemandRepository(),
		WorkCenters: memory.NewWorkCenterRepository(),
	}
	if err := repos.Items.LoadItems(s.Items); err != nil {
		return nil, fmt.Errorf("failed to load items: %w", err)
	}
	for _, item := range s.Items {
		repos.Inventory.RegisterProduct(item.ProductID)
	}
	if err := repos.Structures.LoadBoms(s.Boms); err != nil {
		return nil, fmt.Errorf("failed to load boms: %w", err)
	}
	if err := repos.Structures.LoadRoutings(s.Routings); err != nil {
		return nil, fmt.Errorf("failed to load routings: %w", err)
	}
	if err := repos.Inventory.LoadInventoryLots(s.Lots); err != nil {
		return nil, fmt.Errorf("failed to load inventory: %w", err)
	}
	if err := repos.Inventory.LoadScheduledReceipts(s.Receipts); err != nil {
		return nil, fmt.Errorf("failed to load receipts: %w", err)
	}
	if err := repos.Demand.LoadDemands(s.Demands); err != nil {
		return nil, fmt.Errorf("failed to load demands: %w", err)
	}
	if err := repos.WorkCenters.LoadWorkCenters(s.WorkCenters); err != nil {
		return nil, fmt.Errorf("failed to load work centers: %w", err)
	}
	for _, o := range s.Calendar {
		repos.WorkCenters.SetCalendarHours(o.WorkCenterID, o.Date, o.Hours)
	}
	return repos, nil
}

// LoadItems loads items from a CSV file
func (l *Loader) LoadItems(filename string) ([]*entities.Item, error) {
	rows, err := readRecords(filename, "items", itemsHeader)
	if err != nil {
		return nil, err
	}

	var items []*entities.Item
	for i, record := range rows {
		item, err := parseItem(record)
		if err != nil {
			return nil, fmt.Errorf("items CSV row %d: %w", i+2, err)
		}
		items = append(items, item)
	}
	return items, nil
}

// LoadBOM loads bills of material from a CSV file, one component line per row.
// Rows sharing a bom_id form one BOM; its header fields come from the first row.
func (l *Loader) LoadBOM(filename string) ([]*entities.BillOfMaterial, error) {
	rows, err := readRecords(filename, "BOM", bomHeader)
	if err != nil {
		return nil, err
	}

	var boms []*entities.BillOfMaterial
	byID := make(map[string]*entities.BillOfMaterial)
	for i, record := range rows {
		bom, ok := byID[record[0]]
		if !ok {
			bom, err = parseBomHeader(record)
			if err != nil {
				return nil, fmt.Errorf("BOM CSV row %d: %w", i+2, err)
			}
			byID[bom.ID] = bom
			boms = append(boms, bom)
		} else if bom.ProductID != entities.ProductID(record[1]) {
			return nil, fmt.Errorf("BOM CSV row %d: bom %s belongs to %s, got parent %s", i+2, bom.ID, bom.ProductID, record[1])
		}

		line, err := parseBomLine(record)
		if err != nil {
			return nil, fmt.Errorf("BOM CSV row %d: %w", i+2, err)
		}
		if err := bom.AddLine(*line); err != nil {
			return nil, fmt.Errorf("BOM CSV row %d: %w", i+2, err)
		}
	}
	return boms, nil
}

// LoadInventory loads inventory lots from a CSV file
func (l *Loader) LoadInventory(filename string) ([]*entities.InventoryLot, error) {
	rows, err := readRecords(filename, "inventory", inventoryHeader)
	if err != nil {
		return nil, err
	}

	var lots []*entities.InventoryLot
	for i, record := range rows {
		lot, err := parseInventoryLot(record)
		if err != nil {
			return nil, fmt.Errorf("inventory CSV row %d: %w", i+2, err)
		}
		lots = append(lots, lot)
	}
	return lots, nil
}

// LoadReceipts loads scheduled receipts from a CSV file
func (l *Loader) LoadReceipts(filename string) ([]*entities.ScheduledReceipt, error) {
	rows, err := readRecords(filename, "receipts", receiptsHeader)
	if err != nil {
		return nil, err
	}

	var receipts []*entities.ScheduledReceipt
	for i, record := range rows {
		date, err := parseDate("due_date", record[1])
		if err != nil {
			return nil, fmt.Errorf("receipts CSV row %d: %w", i+2, err)
		}
		qty, err := parseDecimal("quantity", record[2])
		if err != nil {
			return nil, fmt.Errorf("receipts CSV row %d: %w", i+2, err)
		}
		receipt, err := entities.NewScheduledReceipt(entities.ProductID(record[0]), date, qty, record[3])
		if err != nil {
			return nil, fmt.Errorf("receipts CSV row %d: %w", i+2, err)
		}
		receipts = append(receipts, receipt)
	}
	return receipts, nil
}

// LoadDemands loads independent demand from a CSV file
func (l *Loader) LoadDemands(filename string) ([]*entities.DemandEntry, error) {
	rows, err := readRecords(filename, "demands", demandsHeader)
	if err != nil {
		return nil, err
	}

	var demands []*entities.DemandEntry
	for i, record := range rows {
		demand, err := parseDemand(record)
		if err != nil {
			return nil, fmt.Errorf("demands CSV row %d: %w", i+2, err)
		}
		demands = append(demands, demand)
	}
	return demands, nil
}

// LoadWorkCenters loads work centers from a CSV file
func (l *Loader) LoadWorkCenters(filename string) ([]*entities.WorkCenter, error) {
	rows, err := readRecords(filename, "work centers", workCentersHeader)
	if err != nil {
		return nil, err
	}

	var workCenters []*entities.WorkCenter
	for i, record := range rows {
		wc, err := parseWorkCenter(record)
		if err != nil {
			return nil, fmt.Errorf("work centers CSV row %d: %w", i+2, err)
		}
		workCenters = append(workCenters, wc)
	}
	return workCenters, nil
}

// LoadRoutings loads routings from a CSV file, one operation per row
func (l *Loader) LoadRoutings(filename string) ([]*entities.Routing, error) {
	rows, err := readRecords(filename, "routings", routingsHeader)
	if err != nil {
		return nil, err
	}

	var routings []*entities.Routing
	byID := make(map[string]*entities.Routing)
	for i, record := range rows {
		routing, ok := byID[record[0]]
		if !ok {
			routing, err = parseRoutingHeader(record)
			if err != nil {
				return nil, fmt.Errorf("routings CSV row %d: %w", i+2, err)
			}
			byID[routing.ID] = routing
			routings = append(routings, routing)
		}

		op, err := parseOperation(record)
		if err != nil {
			return nil, fmt.Errorf("routings CSV row %d: %w", i+2, err)
		}
		if err := routing.AddOperation(*op); err != nil {
			return nil, fmt.Errorf("routings CSV row %d: %w", i+2, err)
		}
	}
	return routings, nil
}

// LoadCalendar loads per-day work center hour overrides from a CSV file
func (l *Loader) LoadCalendar(filename string) ([]CalendarOverride, error) {
	rows, err := readRecords(filename, "calendar", calendarHeader)
	if err != nil {
		return nil, err
	}

	var overrides []CalendarOverride
	for i, record := range rows {
		date, err := parseDate("date", record[1])
		if err != nil {
			return nil, fmt.Errorf("calendar CSV row %d: %w", i+2, err)
		}
		hours, err := parseDecimal("hours", record[2])
		if err != nil {
			return nil, fmt.Errorf("calendar CSV row %d: %w", i+2, err)
		}
		if record[0] == "" || hours.IsNegative() {
			return nil, fmt.Errorf("calendar CSV row %d: invalid override %v", i+2, record)
		}
		overrides = append(overrides, CalendarOverride{
			WorkCenterID: entities.WorkCenterID(record[0]),
			Date:         entities.DayOf(date),
			Hours:        hours,
		})
	}
	return overrides, nil
}

// readRecords opens a CSV file, checks its header and returns the data rows.
// A file with only a header yields no rows.
func readRecords(filename, kind string, expectedHeader []string) ([][]string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s file %s: %w", kind, filename, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s CSV: %w", kind, err)
	}

	if len(records) < 1 {
		return nil, fmt.Errorf("%s CSV must have a header row", kind)
	}

	header := records[0]
	if !validateHeader(header, expectedHeader) {
		return nil, fmt.Errorf("%s CSV header mismatch. Expected: %v, Got: %v", kind, expectedHeader, header)
	}

	rows := records[1:]
	for i, record := range rows {
		if len(record) != len(expectedHeader) {
			return nil, fmt.Errorf("%s CSV row %d: expected %d columns, got %d", kind, i+2, len(expectedHeader), len(record))
		}
		for j := range record {
			record[j] = strings.TrimSpace(record[j])
		}
	}
	return rows, nil
}

func validateHeader(actual, expected []string) bool {
	if len(actual) != len(expected) {
		return false
	}
	for i, col := range expected {
		if strings.TrimSpace(strings.ToLower(actual[i])) != col {
			return false
		}
	}
	return true
}

func parseItem(record []string) (*entities.Item, error) {
	leadTime, err := parseInt("lead_time_days", record[2])
	if err != nil {
		return nil, err
	}
	replenishment, err := entities.ParseOrderType(record[3])
	if err != nil {
		return nil, err
	}
	lotSizing, err := entities.ParseLotSizingMethod(record[4])
	if err != nil {
		return nil, err
	}
	fixedQty, err := parseDecimal("fixed_order_qty", record[5])
	if err != nil {
		return nil, err
	}
	periods, err := parseInt("periods_of_supply", record[6])
	if err != nil {
		return nil, err
	}
	minQty, err := parseDecimal("min_order_qty", record[7])
	if err != nil {
		return nil, err
	}
	maxQty, err := parseDecimal("max_order_qty", record[8])
	if err != nil {
		return nil, err
	}
	safetyStock, err := parseDecimal("safety_stock", record[9])
	if err != nil {
		return nil, err
	}

	item, err := entities.NewItem(entities.ProductID(record[0]), record[1], leadTime, replenishment, lotSizing, safetyStock)
	if err != nil {
		return nil, err
	}
	item.FixedOrderQty = fixedQty
	item.PeriodsOfSupply = periods
	item.MinOrderQty = minQty
	item.MaxOrderQty = maxQty
	if record[10] != "" {
		item.UnitOfMeasure = record[10]
	}
	if err := item.Validate(); err != nil {
		return nil, err
	}
	return item, nil
}

func parseBomHeader(record []string) (*entities.BillOfMaterial, error) {
	status, err := entities.ParseStructureStatus(record[3])
	if err != nil {
		return nil, err
	}
	isDefault, err := parseBool("is_default", record[4])
	if err != nil {
		return nil, err
	}
	return entities.NewBillOfMaterial(record[0], entities.ProductID(record[1]), record[2], status, isDefault)
}

func parseBomLine(record []string) (*entities.BomLine, error) {
	qtyPer, err := parseDecimal("quantity_per", record[6])
	if err != nil {
		return nil, err
	}
	scrap, err := parseDecimal("scrap_pct", record[8])
	if err != nil {
		return nil, err
	}
	effectivity, err := parseEffectivity(record[9], record[10])
	if err != nil {
		return nil, err
	}
	phantom, err := parseBool("phantom", record[11])
	if err != nil {
		return nil, err
	}

	line, err := entities.NewBomLine(entities.ProductID(record[5]), qtyPer, record[7], scrap)
	if err != nil {
		return nil, err
	}
	line.Effectivity = effectivity
	line.IsPhantom = phantom
	return line, nil
}

func parseInventoryLot(record []string) (*entities.InventoryLot, error) {
	qty, err := parseDecimal("quantity", record[3])
	if err != nil {
		return nil, err
	}
	var received time.Time
	if record[4] != "" {
		if received, err = parseDate("receipt_date", record[4]); err != nil {
			return nil, err
		}
	}
	status, err := entities.ParseInventoryStatus(record[5])
	if err != nil {
		return nil, err
	}
	return entities.NewInventoryLot(entities.ProductID(record[0]), record[1], record[2], qty, received, status)
}

func parseDemand(record []string) (*entities.DemandEntry, error) {
	needDate, err := parseDate("need_date", record[1])
	if err != nil {
		return nil, err
	}
	qty, err := parseDecimal("quantity", record[2])
	if err != nil {
		return nil, err
	}
	source, err := entities.ParseDemandSource(record[3])
	if err != nil {
		return nil, err
	}
	return entities.NewDemandEntry(entities.ProductID(record[0]), needDate, qty, source, record[4])
}

func parseWorkCenter(record []string) (*entities.WorkCenter, error) {
	hours, err := parseDecimal("hours_per_day", record[2])
	if err != nil {
		return nil, err
	}
	bottleneck, err := parseBool("is_bottleneck", record[4])
	if err != nil {
		return nil, err
	}
	wc, err := entities.NewWorkCenter(entities.WorkCenterID(record[0]), record[1], hours, bottleneck)
	if err != nil {
		return nil, err
	}
	if record[3] != "" {
		eff, err := parseDecimal("efficiency", record[3])
		if err != nil {
			return nil, err
		}
		if !eff.IsPositive() {
			return nil, fmt.Errorf("%w: efficiency must be positive, got %s", entities.ErrValidation, eff)
		}
		wc.Efficiency = eff
	}
	return wc, nil
}

func parseRoutingHeader(record []string) (*entities.Routing, error) {
	if record[0] == "" || record[1] == "" {
		return nil, fmt.Errorf("%w: routing id and product id are required", entities.ErrValidation)
	}
	status, err := entities.ParseStructureStatus(record[3])
	if err != nil {
		return nil, err
	}
	isDefault, err := parseBool("is_default", record[4])
	if err != nil {
		return nil, err
	}
	return &entities.Routing{
		ID:        record[0],
		ProductID: entities.ProductID(record[1]),
		Version:   record[2],
		Status:    status,
		IsDefault: isDefault,
	}, nil
}

func parseOperation(record []string) (*entities.Operation, error) {
	seq, err := parseInt("sequence", record[5])
	if err != nil {
		return nil, err
	}
	hours := make([]decimal.Decimal, 4)
	for i, name := range routingsHeader[7:11] {
		if hours[i], err = parseDecimal(name, record[7+i]); err != nil {
			return nil, err
		}
	}
	offset, err := parseInt("offset_days", record[11])
	if err != nil {
		return nil, err
	}
	op, err := entities.NewOperation(seq, entities.WorkCenterID(record[6]), hours[0], hours[1], hours[2], hours[3])
	if err != nil {
		return nil, err
	}
	op.OffsetDays = offset
	return op, nil
}

func parseEffectivity(from, to string) (entities.DateEffectivity, error) {
	var bounds [2]*time.Time
	for i, s := range []string{from, to} {
		if s == "" {
			continue
		}
		d, err := parseDate("effectivity", s)
		if err != nil {
			return entities.DateEffectivity{}, err
		}
		bounds[i] = &d
	}
	return entities.NewDateEffectivity(bounds[0], bounds[1])
}

func parseDecimal(field, s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s: %s", field, s)
	}
	return d, nil
}

func parseInt(field, s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %s", field, s)
	}
	return n, nil
}

func parseBool(field, s string) (bool, error) {
	if s == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(strings.ToLower(s))
	if err != nil {
		return false, fmt.Errorf("invalid %s: %s (expected true or false)", field, s)
	}
	return b, nil
}

func parseDate(field, s string) (time.Time, error) {
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s format: %s (expected YYYY-MM-DD)", field, s)
	}
	return d, nil
}
