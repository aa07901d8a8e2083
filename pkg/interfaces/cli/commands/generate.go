package commands

import (
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

// GenerateConfig holds configuration for scenario generation
type GenerateConfig struct {
	Items       int     // total number of items
	MaxDepth    int     // maximum BOM depth below the roots
	Demands     int     // number of top-level demand lines
	Inventory   float64 // stock as a multiple of one root's explosion (0.5 = half coverage)
	WorkCenters int     // 0 writes no capacity data
	Start       time.Time
	HorizonDays int // demand dates fall inside this window from Start
	OutputDir   string
	Seed        int64
}

// bomNode is one product of the generated structure
type bomNode struct {
	ID       string
	Level    int
	IsRoot   bool
	Children []bomEdge
	Parents  []*bomNode
}

type bomEdge struct {
	child *bomNode
	qty   int
}

// Generator writes synthetic scenarios for load and regression testing
type Generator struct {
	config GenerateConfig
	rand   *rand.Rand
	nodes  []*bomNode // creation order keeps output reproducible for a seed
}

// NewGenerator creates a generator; a zero seed picks a random one
func NewGenerator(config GenerateConfig) *Generator {
	seed := config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if config.HorizonDays <= 0 {
		config.HorizonDays = 90
	}
	return &Generator{config: config, rand: rand.New(rand.NewSource(seed))}
}

func newGenerateCommand(app *App) *cobra.Command {
	var (
		cfg   GenerateConfig
		start string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a synthetic scenario directory",
		Example: `  # Small scenario with capacity data
  mrp generate --items 100 --max-depth 5 --demands 10 --inventory 0.5 --work-centers 4 --output ./test_scenario

  # Reproducible large scenario
  mrp generate --items 30000 --max-depth 8 --demands 50 --inventory 1.2 --output ./large --seed 12345`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cfg.Items < 1 || cfg.MaxDepth < 1 || cfg.Demands < 1 {
				return fmt.Errorf("--items, --max-depth and --demands must be positive")
			}
			startDate, err := parseStart(app, start)
			if err != nil {
				return err
			}
			cfg.Start = startDate
			if err := NewGenerator(cfg).Generate(); err != nil {
				return err
			}
			fmt.Fprintf(app.out, "Scenario generated in %s\n", cfg.OutputDir)
			return nil
		},
	}

	cmd.Flags().IntVar(&cfg.Items, "items", 100, "number of items to generate")
	cmd.Flags().IntVar(&cfg.MaxDepth, "max-depth", 5, "maximum depth of the BOM tree")
	cmd.Flags().IntVar(&cfg.Demands, "demands", 10, "number of demand lines")
	cmd.Flags().Float64Var(&cfg.Inventory, "inventory", 0.5, "inventory multiplier (0.5 = half coverage, 4.0 = 4x coverage)")
	cmd.Flags().IntVar(&cfg.WorkCenters, "work-centers", 0, "number of work centers; make items get routings")
	cmd.Flags().IntVar(&cfg.HorizonDays, "horizon-days", 90, "demand dates fall within this many days of the start")
	cmd.Flags().StringVar(&start, "start", "", "first demand window date YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&cfg.OutputDir, "output", "", "output directory for the CSV files")
	cmd.Flags().Int64Var(&cfg.Seed, "seed", 0, "random seed for reproducible generation")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

type scenarioFile struct {
	name  string
	write func() [][]string
}

// Generate writes the scenario CSV files into the output directory
func (g *Generator) Generate() error {
	if err := os.MkdirAll(g.config.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	g.generateBOMTree()

	files := []scenarioFile{
		{"items.csv", g.items},
		{"bom.csv", g.bom},
		{"demands.csv", g.demands},
		{"inventory.csv", g.inventory},
	}
	if g.config.WorkCenters > 0 {
		files = append(files,
			scenarioFile{"workcenters.csv", g.workCenters},
			scenarioFile{"routings.csv", g.routings},
		)
	}
	for _, f := range files {
		if err := writeRecords(filepath.Join(g.config.OutputDir, f.name), f.write()); err != nil {
			return fmt.Errorf("failed to generate %s: %w", f.name, err)
		}
	}
	return nil
}

// generateBOMTree builds a level-by-level structure in which about a fifth
// of the components below level 1 are shared between parents
func (g *Generator) generateBOMTree() {
	g.nodes = nil
	numRoots := max(1, g.config.Items/50+g.rand.Intn(3))
	numRoots = min(numRoots, g.config.Items)

	var roots []*bomNode
	for i := 0; i < numRoots; i++ {
		node := &bomNode{ID: fmt.Sprintf("ROOT_ASSEMBLY_%03d", i+1), IsRoot: true}
		g.nodes = append(g.nodes, node)
		roots = append(roots, node)
	}

	generated := numRoots
	currentLevel := roots
	level := 0
	for level < g.config.MaxDepth && generated < g.config.Items {
		level++
		var nextLevel []*bomNode

		for _, parent := range currentLevel {
			numChildren := 2 + g.rand.Intn(7)
			for c := 0; c < numChildren && generated < g.config.Items; c++ {
				var child *bomNode
				if level > 1 && g.rand.Float64() < 0.2 {
					if candidates := g.shareable(level, parent); len(candidates) > 0 {
						child = candidates[g.rand.Intn(len(candidates))]
					}
				}
				if child == nil {
					child = &bomNode{ID: fmt.Sprintf("PART_L%d_%04d", level, generated), Level: level}
					g.nodes = append(g.nodes, child)
					nextLevel = append(nextLevel, child)
					generated++
				}

				qty := 1 + g.rand.Intn(5)
				if level > 2 {
					qty += g.rand.Intn(5)
				}
				parent.Children = append(parent.Children, bomEdge{child: child, qty: qty})
				child.Parents = append(child.Parents, parent)
			}
		}

		if len(nextLevel) == 0 {
			break
		}
		currentLevel = nextLevel
	}

	for generated < g.config.Items {
		node := &bomNode{ID: fmt.Sprintf("COMPONENT_%04d", generated), Level: level + 1}
		g.nodes = append(g.nodes, node)
		parent := currentLevel[g.rand.Intn(len(currentLevel))]
		parent.Children = append(parent.Children, bomEdge{child: node, qty: 1 + g.rand.Intn(10)})
		node.Parents = append(node.Parents, parent)
		generated++
	}
}

// shareable returns existing parts deep enough to reuse under parent without
// creating a cycle or a duplicate line
func (g *Generator) shareable(level int, parent *bomNode) []*bomNode {
	var candidates []*bomNode
	for _, node := range g.nodes {
		if node.IsRoot || node.Level < level-1 || len(node.Parents) >= 3 || node == parent {
			continue
		}
		if isAncestor(node, parent) || hasChild(parent, node) {
			continue
		}
		candidates = append(candidates, node)
	}
	return candidates
}

func isAncestor(candidate, node *bomNode) bool {
	visited := make(map[*bomNode]bool)
	stack := []*bomNode{node}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, p := range n.Parents {
			if p == candidate {
				return true
			}
			if !visited[p] {
				visited[p] = true
				stack = append(stack, p)
			}
		}
	}
	return false
}

func hasChild(parent, child *bomNode) bool {
	for _, e := range parent.Children {
		if e.child == child {
			return true
		}
	}
	return false
}

func (g *Generator) items() [][]string {
	records := [][]string{{"product_id", "description", "lead_time_days", "replenishment", "lot_sizing", "fixed_order_qty", "periods_of_supply", "min_order_qty", "max_order_qty", "safety_stock", "unit_of_measure"}}
	for _, node := range g.nodes {
		replenishment := "Buy"
		if len(node.Children) > 0 {
			replenishment = "Make"
		}
		lotSizing, fixed, periods, safety := g.lotSizing(node)
		maxQty := ""
		if node.IsRoot && g.rand.Float64() < 0.5 {
			maxQty = strconv.Itoa(5 + g.rand.Intn(6))
		}
		records = append(records, []string{
			node.ID, g.description(node), strconv.Itoa(g.leadTime(node)), replenishment,
			lotSizing, fixed, periods, "", maxQty, safety, "EA",
		})
	}
	return records
}

func (g *Generator) description(node *bomNode) string {
	switch {
	case node.IsRoot:
		return node.ID + " Complete Assembly"
	case node.Level <= 2:
		return node.ID + " Subassembly"
	}
	kinds := []string{"Component", "Module", "Unit", "Assembly", "Block", "Element"}
	return node.ID + " " + kinds[g.rand.Intn(len(kinds))]
}

// leadTime is longer for higher levels so roots dominate cumulative lead time
func (g *Generator) leadTime(node *bomNode) int {
	switch {
	case node.IsRoot:
		return 10 + g.rand.Intn(11)
	case node.Level <= 1:
		return 5 + g.rand.Intn(11)
	case node.Level <= 2:
		return 3 + g.rand.Intn(8)
	default:
		return 1 + g.rand.Intn(7)
	}
}

func (g *Generator) lotSizing(node *bomNode) (method, fixed, periods, safety string) {
	if node.IsRoot || node.Level <= 2 {
		return "LotForLot", "", "", "0"
	}
	roll := g.rand.Float64()
	switch {
	case roll < 0.6:
		return "LotForLot", "", "", strconv.Itoa(g.rand.Intn(3))
	case roll < 0.8:
		pack := 10 + g.rand.Intn(90)
		return "FixedOrderQuantity", strconv.Itoa(pack), "", strconv.Itoa(pack / 10)
	default:
		return "PeriodsOfSupply", "", strconv.Itoa(3 + g.rand.Intn(5)), strconv.Itoa(g.rand.Intn(5))
	}
}

func (g *Generator) bom() [][]string {
	records := [][]string{{"bom_id", "parent_id", "version", "status", "is_default", "component_id", "quantity_per", "unit", "scrap_pct", "effective_from", "effective_to", "phantom"}}
	for _, parent := range g.nodes {
		for _, e := range parent.Children {
			scrap := ""
			if e.child.Level > 2 && g.rand.Float64() < 0.1 {
				scrap = strconv.Itoa(1 + g.rand.Intn(5))
			}
			records = append(records, []string{"BOM_" + parent.ID, parent.ID, "1", "Active", "true",
				e.child.ID, strconv.Itoa(e.qty), "EA", scrap, "", "", "false"})
		}
	}
	return records
}

func (g *Generator) demands() [][]string {
	records := [][]string{{"product_id", "need_date", "quantity", "source", "reference"}}
	var roots []*bomNode
	for _, node := range g.nodes {
		if node.IsRoot {
			roots = append(roots, node)
		}
	}
	// leave the first third of the horizon for lead times
	earliest := g.config.HorizonDays / 3
	for i := 0; i < g.config.Demands; i++ {
		root := roots[g.rand.Intn(len(roots))]
		offset := earliest + g.rand.Intn(max(g.config.HorizonDays-earliest, 1))
		records = append(records, []string{
			root.ID,
			g.config.Start.AddDate(0, 0, offset).Format(time.DateOnly),
			strconv.Itoa(1 + g.rand.Intn(5)),
			"SalesOrder",
			fmt.Sprintf("SO_%03d", i+1),
		})
	}
	return records
}

func (g *Generator) inventory() [][]string {
	records := [][]string{{"product_id", "lot_number", "location", "quantity", "receipt_date", "status"}}
	counts := explode(g.nodes[0])

	locations := []string{"FACTORY_A", "FACTORY_B", "WAREHOUSE_1", "WAREHOUSE_2"}
	lot := 1
	for _, node := range g.nodes {
		qty := int(float64(counts[node]) * g.config.Inventory)
		if qty <= 0 {
			continue
		}
		received := g.config.Start.AddDate(0, 0, -1-g.rand.Intn(365))
		records = append(records, []string{
			node.ID, fmt.Sprintf("LOT_%06d", lot), locations[g.rand.Intn(len(locations))],
			strconv.Itoa(qty), received.Format(time.DateOnly), "Available",
		})
		lot++
	}
	return records
}

// explode returns the quantity of every part needed for one unit of root.
// Shared parts are visited once, after all of their parents.
func explode(root *bomNode) map[*bomNode]int {
	pending := make(map[*bomNode]int)
	stack := []*bomNode{root}
	seen := map[*bomNode]bool{root: true}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, e := range n.Children {
			pending[e.child]++
			if !seen[e.child] {
				seen[e.child] = true
				stack = append(stack, e.child)
			}
		}
	}

	counts := map[*bomNode]int{root: 1}
	queue := []*bomNode{root}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, e := range n.Children {
			counts[e.child] += counts[n] * e.qty
			if pending[e.child]--; pending[e.child] == 0 {
				queue = append(queue, e.child)
			}
		}
	}
	return counts
}

func (g *Generator) workCenters() [][]string {
	records := [][]string{{"work_center_id", "name", "hours_per_day", "efficiency", "is_bottleneck"}}
	for i := 0; i < g.config.WorkCenters; i++ {
		hours := "8"
		if g.rand.Float64() < 0.5 {
			hours = "16"
		}
		records = append(records, []string{
			workCenterID(i), fmt.Sprintf("Work center %d", i+1), hours,
			strconv.Itoa(85 + g.rand.Intn(16)), strconv.FormatBool(i == 0),
		})
	}
	return records
}

func workCenterID(i int) string {
	return fmt.Sprintf("WC_%02d", i+1)
}

func (g *Generator) routings() [][]string {
	records := [][]string{{"routing_id", "product_id", "version", "status", "is_default", "sequence", "work_center_id", "setup_hours", "run_hours_per_unit", "queue_hours", "move_hours", "offset_days"}}
	for _, node := range g.nodes {
		if len(node.Children) == 0 {
			continue
		}
		ops := 1 + g.rand.Intn(3)
		for op := 0; op < ops; op++ {
			records = append(records, []string{
				"RT_" + node.ID, node.ID, "1", "Active", "true",
				strconv.Itoa((op + 1) * 10),
				workCenterID(g.rand.Intn(g.config.WorkCenters)),
				fmt.Sprintf("%.1f", 0.5+g.rand.Float64()*1.5),
				fmt.Sprintf("%.2f", 0.05+g.rand.Float64()*0.45),
				fmt.Sprintf("%.1f", g.rand.Float64()),
				fmt.Sprintf("%.1f", g.rand.Float64()*0.5),
				strconv.Itoa(op),
			})
		}
	}
	return records
}

func writeRecords(path string, records [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.WriteAll(records); err != nil {
		return err
	}
	return f.Sync()
}
