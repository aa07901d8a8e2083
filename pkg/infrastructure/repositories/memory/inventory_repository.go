package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/vsinha/mrpcrp/pkg/domain/entities"
	"github.com/vsinha/mrpcrp/pkg/domain/repositories"
)

// InventoryRepository provides in-memory lot and scheduled receipt storage
type InventoryRepository struct {
	mu       sync.RWMutex
	lots     map[entities.ProductID][]entities.InventoryLot
	receipts map[entities.ProductID][]entities.ScheduledReceipt
	known    map[entities.ProductID]bool
}

// NewInventoryRepository creates a new in-memory inventory repository
func NewInventoryRepository() *InventoryRepository {
	return &InventoryRepository{
		lots:     make(map[entities.ProductID][]entities.InventoryLot),
		receipts: make(map[entities.ProductID][]entities.ScheduledReceipt),
		known:    make(map[entities.ProductID]bool),
	}
}

// Verify interface compliance
var _ repositories.InventoryRepository = (*InventoryRepository)(nil)

// RegisterProduct records a product with no stock so lookups return zero instead of not found
func (r *InventoryRepository) RegisterProduct(productID entities.ProductID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.known[productID] = true
}

// LoadInventoryLots loads inventory lots into the repository
func (r *InventoryRepository) LoadInventoryLots(lots []*entities.InventoryLot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, lot := range lots {
		r.lots[lot.ProductID] = append(r.lots[lot.ProductID], *lot)
		r.known[lot.ProductID] = true
	}
	return nil
}

// LoadScheduledReceipts loads open receipts into the repository
func (r *InventoryRepository) LoadScheduledReceipts(receipts []*entities.ScheduledReceipt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, receipt := range receipts {
		r.receipts[receipt.ProductID] = append(r.receipts[receipt.ProductID], *receipt)
		r.known[receipt.ProductID] = true
	}
	return nil
}

// SetOnHand replaces a product's stock with a single available lot
func (r *InventoryRepository) SetOnHand(productID entities.ProductID, quantity decimal.Decimal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lots[productID] = []entities.InventoryLot{{
		ProductID: productID,
		LotNumber: "ON-HAND",
		Quantity:  quantity,
		Status:    entities.Available,
	}}
	r.known[productID] = true
}

// GetInventoryLots returns a product's lots ordered by receipt date
func (r *InventoryRepository) GetInventoryLots(productID entities.ProductID) []entities.InventoryLot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	lots := append([]entities.InventoryLot(nil), r.lots[productID]...)
	sort.SliceStable(lots, func(i, j int) bool {
		return lots[i].ReceiptDate.Before(lots[j].ReceiptDate)
	})
	return lots
}

// GetOnHandAndScheduledReceipts sums available lots and returns open receipts by date
func (r *InventoryRepository) GetOnHandAndScheduledReceipts(_ context.Context, productID entities.ProductID) (decimal.Decimal, []entities.ScheduledReceipt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.known[productID] {
		return decimal.Zero, nil, fmt.Errorf("stock of %s: %w", productID, entities.ErrNotFound)
	}

	onHand := decimal.Zero
	for _, lot := range r.lots[productID] {
		if lot.Status == entities.Available {
			onHand = onHand.Add(lot.Quantity)
		}
	}

	receipts := append([]entities.ScheduledReceipt(nil), r.receipts[productID]...)
	sort.SliceStable(receipts, func(i, j int) bool {
		return receipts[i].Date.Before(receipts[j].Date)
	})
	return onHand, receipts, nil
}
