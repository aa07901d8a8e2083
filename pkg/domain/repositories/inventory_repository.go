package repositories

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/vsinha/mrpcrp/pkg/domain/entities"
)

// InventoryRepository provides access to stock positions
type InventoryRepository interface {
	// GetOnHandAndScheduledReceipts returns available on-hand stock and open receipts.
	// Products without any stock record return an error wrapping entities.ErrNotFound.
	GetOnHandAndScheduledReceipts(ctx context.Context, productID entities.ProductID) (decimal.Decimal, []entities.ScheduledReceipt, error)
}
