package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/vsinha/mrpcrp/pkg/domain/entities"
	"github.com/vsinha/mrpcrp/pkg/domain/repositories"
)

// StructureRepository provides in-memory BOM and routing storage
type StructureRepository struct {
	mu       sync.RWMutex
	boms     map[entities.ProductID][]entities.BillOfMaterial
	routings map[entities.ProductID][]entities.Routing
}

// NewStructureRepository creates a new in-memory structure repository
func NewStructureRepository() *StructureRepository {
	return &StructureRepository{
		boms:     make(map[entities.ProductID][]entities.BillOfMaterial),
		routings: make(map[entities.ProductID][]entities.Routing),
	}
}

// Verify interface compliance
var _ repositories.StructureRepository = (*StructureRepository)(nil)

// LoadBoms stores BOM versions, keyed by their product
func (r *StructureRepository) LoadBoms(boms []*entities.BillOfMaterial) error {
	for _, bom := range boms {
		r.AddBom(*bom)
	}
	return nil
}

// AddBom stores one BOM version
func (r *StructureRepository) AddBom(bom entities.BillOfMaterial) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.boms[bom.ProductID] = append(r.boms[bom.ProductID], bom)
}

// LoadRoutings stores routing versions, keyed by their product
func (r *StructureRepository) LoadRoutings(routings []*entities.Routing) error {
	for _, routing := range routings {
		r.AddRouting(*routing)
	}
	return nil
}

// AddRouting stores one routing version
func (r *StructureRepository) AddRouting(routing entities.Routing) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routings[routing.ProductID] = append(r.routings[routing.ProductID], routing)
}

// ListBoms returns the BOM versions of a product
func (r *StructureRepository) ListBoms(_ context.Context, productID entities.ProductID) ([]entities.BillOfMaterial, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]entities.BillOfMaterial(nil), r.boms[productID]...), nil
}

// ListRoutings returns the routing versions of a product
func (r *StructureRepository) ListRoutings(_ context.Context, productID entities.ProductID) ([]entities.Routing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]entities.Routing(nil), r.routings[productID]...), nil
}

// ListStructuredProducts returns every product with at least one BOM, sorted
func (r *StructureRepository) ListStructuredProducts(_ context.Context) ([]entities.ProductID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]entities.ProductID, 0, len(r.boms))
	for id := range r.boms {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// AllBoms returns every stored BOM, ordered by product
func (r *StructureRepository) AllBoms() []entities.BillOfMaterial {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]entities.ProductID, 0, len(r.boms))
	for id := range r.boms {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	all := make([]entities.BillOfMaterial, 0)
	for _, id := range ids {
		all = append(all, r.boms[id]...)
	}
	return all
}
