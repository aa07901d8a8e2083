package explosion

import (
	"context"
	"sort"

	"github.com/vsinha/mrpcrp/pkg/domain/entities"
	"github.com/vsinha/mrpcrp/pkg/domain/services"
)

// ComponentSource lists the components a product may consume
type ComponentSource interface {
	ComponentEdges(ctx context.Context, productID entities.ProductID) ([]entities.ProductID, error)
}

// Levels is the low-level coding of every product reachable from the roots
type Levels struct {
	Codes  map[entities.ProductID]int
	Waves  [][]entities.ProductID
	Cycles *services.CycleReport
	Graph  services.StructureGraph
}

// IsCyclic reports whether the product sits on a BOM cycle
func (l *Levels) IsCyclic(productID entities.ProductID) bool {
	return l.Cycles.Members[productID]
}

// BuildLevels walks the structure from the roots, detects cycles and assigns
// each product the deepest level at which it is used. Edges that close a cycle
// are left out of the level computation so it always terminates.
func BuildLevels(ctx context.Context, source ComponentSource, roots []entities.ProductID) (*Levels, error) {
	graph, err := buildStructureGraph(ctx, source, roots)
	if err != nil {
		return nil, err
	}
	report := services.DetectCycles(graph, roots)

	codes := calculateLevels(graph, report, roots)

	maxLevel := 0
	for _, level := range codes {
		if level > maxLevel {
			maxLevel = level
		}
	}
	waves := make([][]entities.ProductID, maxLevel+1)
	for id, level := range codes {
		waves[level] = append(waves[level], id)
	}
	for _, wave := range waves {
		sort.Slice(wave, func(i, j int) bool { return wave[i] < wave[j] })
	}
	if len(codes) == 0 {
		waves = nil
	}

	return &Levels{Codes: codes, Waves: waves, Cycles: report, Graph: graph}, nil
}

// buildStructureGraph discovers the reachable structure breadth first
func buildStructureGraph(ctx context.Context, source ComponentSource, roots []entities.ProductID) (services.StructureGraph, error) {
	graph := make(services.StructureGraph)
	visited := make(map[entities.ProductID]bool)
	queue := append([]entities.ProductID(nil), roots...)
	for _, r := range roots {
		visited[r] = true
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		components, err := source.ComponentEdges(ctx, current)
		if err != nil {
			return nil, err
		}
		for _, c := range components {
			graph.AddEdge(current, c)
			if !visited[c] {
				visited[c] = true
				queue = append(queue, c)
			}
		}
		if _, ok := graph[current]; !ok {
			graph[current] = nil
		}
	}
	return graph, nil
}

// calculateLevels relaxes levels top down: a component sits at least one
// level below every parent that uses it
func calculateLevels(graph services.StructureGraph, report *services.CycleReport, roots []entities.ProductID) map[entities.ProductID]int {
	codes := make(map[entities.ProductID]int, len(graph))
	queue := make([]entities.ProductID, 0, len(roots))
	for _, r := range roots {
		if _, ok := codes[r]; !ok {
			codes[r] = 0
			queue = append(queue, r)
		}
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		level := codes[current]

		for _, child := range graph[current] {
			if report.BackEdges[services.Edge{Parent: current, Component: child}] {
				continue
			}
			if existing, ok := codes[child]; !ok || level+1 > existing {
				codes[child] = level + 1
				queue = append(queue, child)
			}
		}
	}
	return codes
}
