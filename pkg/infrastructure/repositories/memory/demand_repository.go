package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/vsinha/mrpcrp/pkg/domain/entities"
	"github.com/vsinha/mrpcrp/pkg/domain/repositories"
)

// DemandRepository provides in-memory independent demand storage
type DemandRepository struct {
	mu      sync.RWMutex
	demands []entities.DemandEntry
}

// NewDemandRepository creates a new in-memory demand repository
func NewDemandRepository() *DemandRepository {
	return &DemandRepository{demands: make([]entities.DemandEntry, 0)}
}

// Verify interface compliance
var _ repositories.DemandRepository = (*DemandRepository)(nil)

// LoadDemands loads demand entries into the repository
func (r *DemandRepository) LoadDemands(demands []*entities.DemandEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range demands {
		r.demands = append(r.demands, *d)
	}
	return nil
}

// GetIndependentDemand returns a product's demand dated up to the horizon end, past due included
func (r *DemandRepository) GetIndependentDemand(_ context.Context, productID entities.ProductID, horizon entities.Horizon) ([]entities.DemandEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]entities.DemandEntry, 0)
	for _, d := range r.demands {
		if d.ProductID == productID && !d.Date.After(horizon.End) {
			result = append(result, d)
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result, nil
}

// ListDemandedProducts returns the products with demand up to the horizon end, sorted
func (r *DemandRepository) ListDemandedProducts(_ context.Context, horizon entities.Horizon) ([]entities.ProductID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[entities.ProductID]bool)
	ids := make([]entities.ProductID, 0)
	for _, d := range r.demands {
		if d.Date.After(horizon.End) || seen[d.ProductID] {
			continue
		}
		seen[d.ProductID] = true
		ids = append(ids, d.ProductID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// AllDemands returns every stored entry
func (r *DemandRepository) AllDemands() []entities.DemandEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]entities.DemandEntry(nil), r.demands...)
}
