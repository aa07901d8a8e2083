package structure

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/vsinha/mrpcrp/pkg/domain/entities"
	"github.com/vsinha/mrpcrp/pkg/domain/repositories"
)

var (
	// ErrNoActiveStructure means no active, effective BOM or routing exists for the date
	ErrNoActiveStructure = fmt.Errorf("%w: no active structure", entities.ErrDataIncomplete)
	// ErrAmbiguousStructure means several candidates qualify and none is the single default
	ErrAmbiguousStructure = fmt.Errorf("%w: multiple active structures without a single default", entities.ErrDataIncomplete)
)

// Resolver picks the BOM and routing in effect for a product on a date and
// answers lead time questions. Repository reads are cached per product.
type Resolver struct {
	structures repositories.StructureRepository
	items      repositories.ItemRepository

	mu       sync.RWMutex
	boms     map[entities.ProductID][]entities.BillOfMaterial
	routings map[entities.ProductID][]entities.Routing
}

// NewResolver creates a new structure resolver
func NewResolver(structures repositories.StructureRepository, items repositories.ItemRepository) *Resolver {
	return &Resolver{
		structures: structures,
		items:      items,
		boms:       make(map[entities.ProductID][]entities.BillOfMaterial),
		routings:   make(map[entities.ProductID][]entities.Routing),
	}
}

// Reset drops cached structures so the next run sees repository changes
func (r *Resolver) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.boms = make(map[entities.ProductID][]entities.BillOfMaterial)
	r.routings = make(map[entities.ProductID][]entities.Routing)
}

func (r *Resolver) listBoms(ctx context.Context, productID entities.ProductID) ([]entities.BillOfMaterial, error) {
	r.mu.RLock()
	boms, ok := r.boms[productID]
	r.mu.RUnlock()
	if ok {
		return boms, nil
	}

	boms, err := r.structures.ListBoms(ctx, productID)
	if err != nil && !errors.Is(err, entities.ErrNotFound) {
		return nil, fmt.Errorf("list boms of %s: %w", productID, err)
	}

	r.mu.Lock()
	r.boms[productID] = boms
	r.mu.Unlock()
	return boms, nil
}

func (r *Resolver) listRoutings(ctx context.Context, productID entities.ProductID) ([]entities.Routing, error) {
	r.mu.RLock()
	routings, ok := r.routings[productID]
	r.mu.RUnlock()
	if ok {
		return routings, nil
	}

	routings, err := r.structures.ListRoutings(ctx, productID)
	if err != nil && !errors.Is(err, entities.ErrNotFound) {
		return nil, fmt.Errorf("list routings of %s: %w", productID, err)
	}

	r.mu.Lock()
	r.routings[productID] = routings
	r.mu.Unlock()
	return routings, nil
}

// selectVersion returns the index of the single default among the effective
// candidates, else of the only effective candidate.
func selectVersion(n int, effective, isDefault func(i int) bool) (int, error) {
	candidates := make([]int, 0, n)
	defaults := make([]int, 0, 1)
	for i := 0; i < n; i++ {
		if !effective(i) {
			continue
		}
		candidates = append(candidates, i)
		if isDefault(i) {
			defaults = append(defaults, i)
		}
	}
	switch {
	case len(defaults) == 1:
		return defaults[0], nil
	case len(defaults) > 1:
		return -1, ErrAmbiguousStructure
	case len(candidates) == 1:
		return candidates[0], nil
	case len(candidates) == 0:
		return -1, ErrNoActiveStructure
	default:
		return -1, ErrAmbiguousStructure
	}
}

// GetActiveBom returns the BOM in effect for the product on asOf
func (r *Resolver) GetActiveBom(ctx context.Context, productID entities.ProductID, asOf time.Time) (*entities.BillOfMaterial, error) {
	boms, err := r.listBoms(ctx, productID)
	if err != nil {
		return nil, err
	}
	idx, err := selectVersion(len(boms),
		func(i int) bool { return boms[i].IsEffectiveOn(asOf) },
		func(i int) bool { return boms[i].IsDefault },
	)
	if err != nil {
		return nil, fmt.Errorf("bom for %s on %s: %w", productID, asOf.Format(time.DateOnly), err)
	}
	bom := boms[idx]
	return &bom, nil
}

// GetRouting returns the routing in effect for the product on asOf
func (r *Resolver) GetRouting(ctx context.Context, productID entities.ProductID, asOf time.Time) (*entities.Routing, error) {
	routings, err := r.listRoutings(ctx, productID)
	if err != nil {
		return nil, err
	}
	idx, err := selectVersion(len(routings),
		func(i int) bool { return routings[i].IsEffectiveOn(asOf) },
		func(i int) bool { return routings[i].IsDefault },
	)
	if err != nil {
		return nil, fmt.Errorf("routing for %s on %s: %w", productID, asOf.Format(time.DateOnly), err)
	}
	routing := routings[idx]
	return &routing, nil
}

// ComponentEdges returns every component referenced by any active BOM of the
// product, whatever its effectivity. Low-level codes are computed on this
// superset so a component never plans before a parent that may use it.
func (r *Resolver) ComponentEdges(ctx context.Context, productID entities.ProductID) ([]entities.ProductID, error) {
	boms, err := r.listBoms(ctx, productID)
	if err != nil {
		return nil, err
	}
	seen := make(map[entities.ProductID]bool)
	components := make([]entities.ProductID, 0)
	for _, bom := range boms {
		if bom.Status != entities.StructureActive {
			continue
		}
		for _, line := range bom.Lines {
			if !seen[line.ComponentID] {
				seen[line.ComponentID] = true
				components = append(components, line.ComponentID)
			}
		}
	}
	sort.Slice(components, func(i, j int) bool { return components[i] < components[j] })
	return components, nil
}

// LeadTime returns the product's own replenishment lead time in days
func (r *Resolver) LeadTime(ctx context.Context, productID entities.ProductID) (int, error) {
	item, err := r.items.GetItem(ctx, productID)
	if err != nil {
		return 0, fmt.Errorf("lead time of %s: %w", productID, err)
	}
	return item.LeadTimeDays, nil
}
