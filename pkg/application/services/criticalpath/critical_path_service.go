package criticalpath

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/vsinha/mrpcrp/pkg/domain/entities"
)

// LeadTimeSource computes the cumulative lead time path of a product
type LeadTimeSource interface {
	CumulativeLeadTime(ctx context.Context, productID entities.ProductID, asOf time.Time) (entities.LeadTimePath, error)
}

// Analysis holds the cumulative lead time paths of a set of products
type Analysis struct {
	AsOf         time.Time
	CriticalPath entities.LeadTimePath // longest path
	TopPaths     []entities.LeadTimePath
	TotalPaths   int
	Skipped      map[entities.ProductID]error
}

// CriticalPathService ranks products by cumulative lead time
type CriticalPathService struct {
	source LeadTimeSource
}

// NewCriticalPathService creates a new critical path service
func NewCriticalPathService(source LeadTimeSource) *CriticalPathService {
	return &CriticalPathService{source: source}
}

// AnalyzeCriticalPath computes the path of every product and returns the top N,
// longest first. Products whose structure cannot be walked are reported in
// Skipped rather than failing the analysis.
func (cps *CriticalPathService) AnalyzeCriticalPath(
	ctx context.Context,
	products []entities.ProductID,
	asOf time.Time,
	topN int,
) (*Analysis, error) {
	if topN < 0 {
		return nil, fmt.Errorf("%w: top paths cannot be negative, got %d", entities.ErrValidation, topN)
	}

	analysis := &Analysis{AsOf: asOf, Skipped: make(map[entities.ProductID]error)}
	var allPaths []entities.LeadTimePath
	for _, id := range products {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path, err := cps.source.CumulativeLeadTime(ctx, id, asOf)
		if err != nil {
			analysis.Skipped[id] = err
			continue
		}
		allPaths = append(allPaths, path)
	}
	if len(allPaths) == 0 {
		return analysis, nil
	}

	sort.Slice(allPaths, func(i, j int) bool {
		// Primary sort: total lead time
		if allPaths[i].TotalLeadTime != allPaths[j].TotalLeadTime {
			return allPaths[i].TotalLeadTime > allPaths[j].TotalLeadTime
		}
		// Secondary sort: path length (longer paths first)
		if len(allPaths[i].Path) != len(allPaths[j].Path) {
			return len(allPaths[i].Path) > len(allPaths[j].Path)
		}
		return allPaths[i].Path[0] < allPaths[j].Path[0]
	})

	if topN == 0 || topN > len(allPaths) {
		topN = len(allPaths)
	}
	analysis.CriticalPath = allPaths[0]
	analysis.TopPaths = allPaths[:topN]
	analysis.TotalPaths = len(allPaths)
	return analysis, nil
}

// ByProduct indexes the analysed paths by their top-level product
func (a *Analysis) ByProduct() map[entities.ProductID]entities.LeadTimePath {
	out := make(map[entities.ProductID]entities.LeadTimePath, len(a.TopPaths))
	for _, p := range a.TopPaths {
		out[p.Path[0]] = p
	}
	return out
}

// GetCriticalPathSummary returns a one-line description of the longest path
func (a *Analysis) GetCriticalPathSummary() string {
	if a.TotalPaths == 0 {
		return "no paths analysed"
	}
	return fmt.Sprintf("%d days via %s (bottleneck %s)",
		a.CriticalPath.TotalLeadTime, a.CriticalPath.String(), a.CriticalPath.Bottleneck)
}
