package repositories

import (
	"context"

	"github.com/vsinha/mrpcrp/pkg/domain/entities"
)

// ItemRepository provides access to item master data
type ItemRepository interface {
	// GetItem returns an error wrapping entities.ErrNotFound for unknown products
	GetItem(ctx context.Context, productID entities.ProductID) (*entities.Item, error)
	ListItems(ctx context.Context) ([]entities.Item, error)
}
