package services

import (
	"fmt"
	"sort"

	"github.com/vsinha/mrpcrp/pkg/domain/entities"
)

// Edge is a parent -> component link of the product structure
type Edge struct {
	Parent    entities.ProductID
	Component entities.ProductID
}

// StructureGraph is the parent -> component adjacency of a set of BOMs
type StructureGraph map[entities.ProductID][]entities.ProductID

// BuildStructureGraph collects the component links of every BOM without duplicates
func BuildStructureGraph(boms []entities.BillOfMaterial) StructureGraph {
	graph := make(StructureGraph)
	for _, bom := range boms {
		for _, line := range bom.Lines {
			graph.AddEdge(bom.ProductID, line.ComponentID)
		}
	}
	return graph
}

// AddEdge links a parent to a component once
func (g StructureGraph) AddEdge(parent, component entities.ProductID) {
	for _, c := range g[parent] {
		if c == component {
			return
		}
	}
	g[parent] = append(g[parent], component)
}

// Parents returns the graph's parent products in sorted order
func (g StructureGraph) Parents() []entities.ProductID {
	parents := make([]entities.ProductID, 0, len(g))
	for p := range g {
		parents = append(parents, p)
	}
	sort.Slice(parents, func(i, j int) bool { return parents[i] < parents[j] })
	return parents
}

// CycleReport lists the cycles found and the back edges that close them
type CycleReport struct {
	Cycles    [][]entities.ProductID
	BackEdges map[Edge]bool
	Members   map[entities.ProductID]bool
}

// HasCycles reports whether any cycle was found
func (r *CycleReport) HasCycles() bool {
	return len(r.Cycles) > 0
}

// DetectCycles walks the graph depth first from the given roots, then from
// every remaining parent, and reports each back edge as one cycle.
// Traversal order is sorted so results are stable across runs.
func DetectCycles(graph StructureGraph, roots []entities.ProductID) *CycleReport {
	report := &CycleReport{
		Cycles:    make([][]entities.ProductID, 0),
		BackEdges: make(map[Edge]bool),
		Members:   make(map[entities.ProductID]bool),
	}
	visited := make(map[entities.ProductID]bool)
	onStack := make(map[entities.ProductID]bool)

	sortedRoots := append([]entities.ProductID(nil), roots...)
	sort.Slice(sortedRoots, func(i, j int) bool { return sortedRoots[i] < sortedRoots[j] })

	for _, start := range append(sortedRoots, graph.Parents()...) {
		if !visited[start] {
			dfsDetectCycle(start, graph, visited, onStack, nil, report)
		}
	}
	return report
}

func dfsDetectCycle(
	current entities.ProductID,
	graph StructureGraph,
	visited, onStack map[entities.ProductID]bool,
	path []entities.ProductID,
	report *CycleReport,
) {
	visited[current] = true
	onStack[current] = true
	path = append(path, current)

	children := append([]entities.ProductID(nil), graph[current]...)
	sort.Slice(children, func(i, j int) bool { return children[i] < children[j] })

	for _, child := range children {
		if !visited[child] {
			dfsDetectCycle(child, graph, visited, onStack, path, report)
			continue
		}
		if !onStack[child] {
			continue
		}
		for i, part := range path {
			if part != child {
				continue
			}
			cycle := append(append([]entities.ProductID(nil), path[i:]...), child)
			report.Cycles = append(report.Cycles, cycle)
			for _, member := range path[i:] {
				report.Members[member] = true
			}
			break
		}
		report.BackEdges[Edge{Parent: current, Component: child}] = true
	}

	onStack[current] = false
}

// ValidationResult contains the results of structure validation
type ValidationResult struct {
	Cycles            [][]entities.ProductID
	DuplicateLines    []string
	UnknownComponents []entities.ProductID
	AmbiguousDefaults []entities.ProductID
	Errors            []string
}

// IsValid reports whether no problem was found
func (r *ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

// BOMValidator checks the integrity of product structures before planning
type BOMValidator struct{}

// NewBOMValidator creates a new BOM validator
func NewBOMValidator() *BOMValidator {
	return &BOMValidator{}
}

// Validate checks cycles, duplicate components, references to unknown items and
// products with more than one active default BOM
func (v *BOMValidator) Validate(boms []entities.BillOfMaterial, items []entities.Item) *ValidationResult {
	result := &ValidationResult{}

	report := DetectCycles(BuildStructureGraph(boms), nil)
	result.Cycles = report.Cycles
	for _, cycle := range report.Cycles {
		result.Errors = append(result.Errors, fmt.Sprintf("BOM cycle detected: %v", cycle))
	}

	result.DuplicateLines = v.detectDuplicateLines(boms)
	if len(result.DuplicateLines) > 0 {
		result.Errors = append(result.Errors, fmt.Sprintf("found %d duplicate BOM lines", len(result.DuplicateLines)))
	}

	if items != nil {
		result.UnknownComponents = v.detectUnknownComponents(boms, items)
		for _, id := range result.UnknownComponents {
			result.Errors = append(result.Errors, fmt.Sprintf("component %s has no item master record", id))
		}
	}

	result.AmbiguousDefaults = v.detectAmbiguousDefaults(boms)
	for _, id := range result.AmbiguousDefaults {
		result.Errors = append(result.Errors, fmt.Sprintf("product %s has more than one active default BOM", id))
	}

	return result
}

// detectDuplicateLines finds components listed twice in the same BOM with overlapping effectivity
func (v *BOMValidator) detectDuplicateLines(boms []entities.BillOfMaterial) []string {
	duplicates := make([]string, 0)
	for _, bom := range boms {
		seen := make(map[entities.ProductID][]entities.DateEffectivity)
		for _, line := range bom.Lines {
			for _, eff := range seen[line.ComponentID] {
				if overlaps(eff, line.Effectivity) {
					duplicates = append(duplicates, fmt.Sprintf("%s/%s", bom.ID, line.ComponentID))
					break
				}
			}
			seen[line.ComponentID] = append(seen[line.ComponentID], line.Effectivity)
		}
	}
	return duplicates
}

func overlaps(a, b entities.DateEffectivity) bool {
	if a.To != nil && b.From != nil && a.To.Before(*b.From) {
		return false
	}
	if b.To != nil && a.From != nil && b.To.Before(*a.From) {
		return false
	}
	return true
}

func (v *BOMValidator) detectUnknownComponents(boms []entities.BillOfMaterial, items []entities.Item) []entities.ProductID {
	known := make(map[entities.ProductID]bool, len(items))
	for _, item := range items {
		known[item.ProductID] = true
	}
	missing := make(map[entities.ProductID]bool)
	for _, bom := range boms {
		if !known[bom.ProductID] {
			missing[bom.ProductID] = true
		}
		for _, line := range bom.Lines {
			if !known[line.ComponentID] {
				missing[line.ComponentID] = true
			}
		}
	}
	return sortedIDs(missing)
}

func (v *BOMValidator) detectAmbiguousDefaults(boms []entities.BillOfMaterial) []entities.ProductID {
	defaults := make(map[entities.ProductID]int)
	for _, bom := range boms {
		if bom.IsDefault && bom.Status == entities.StructureActive && bom.Effectivity.From == nil && bom.Effectivity.To == nil {
			defaults[bom.ProductID]++
		}
	}
	ambiguous := make(map[entities.ProductID]bool)
	for id, n := range defaults {
		if n > 1 {
			ambiguous[id] = true
		}
	}
	return sortedIDs(ambiguous)
}

func sortedIDs(set map[entities.ProductID]bool) []entities.ProductID {
	ids := make([]entities.ProductID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
