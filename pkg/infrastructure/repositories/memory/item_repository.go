package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/vsinha/mrpcrp/pkg/domain/entities"
	"github.com/vsinha/mrpcrp/pkg/domain/repositories"
)

// ItemRepository provides in-memory item storage
type ItemRepository struct {
	mu       sync.RWMutex
	items    []entities.Item
	itemsMap map[entities.ProductID]int
}

// NewItemRepository creates a new in-memory item repository
func NewItemRepository(expectedItems int) *ItemRepository {
	return &ItemRepository{
		items:    make([]entities.Item, 0, expectedItems),
		itemsMap: make(map[entities.ProductID]int, expectedItems),
	}
}

// Verify interface compliance
var _ repositories.ItemRepository = (*ItemRepository)(nil)

// LoadItems loads items into the repository
func (r *ItemRepository) LoadItems(items []*entities.Item) error {
	for _, item := range items {
		if err := item.Validate(); err != nil {
			return err
		}
		r.AddItem(*item)
	}
	return nil
}

// AddItem adds or replaces an item
func (r *ItemRepository) AddItem(item entities.Item) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if idx, ok := r.itemsMap[item.ProductID]; ok {
		r.items[idx] = item
		return
	}
	r.itemsMap[item.ProductID] = len(r.items)
	r.items = append(r.items, item)
}

// GetItem returns item master data for a product
func (r *ItemRepository) GetItem(_ context.Context, productID entities.ProductID) (*entities.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	index, exists := r.itemsMap[productID]
	if !exists {
		return nil, fmt.Errorf("item %s: %w", productID, entities.ErrNotFound)
	}
	item := r.items[index]
	return &item, nil
}

// ListItems returns all items in load order
func (r *ItemRepository) ListItems(_ context.Context) ([]entities.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]entities.Item(nil), r.items...), nil
}
