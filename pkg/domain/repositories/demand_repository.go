package repositories

import (
	"context"

	"github.com/vsinha/mrpcrp/pkg/domain/entities"
)

// DemandRepository provides access to independent demand
type DemandRepository interface {
	GetIndependentDemand(ctx context.Context, productID entities.ProductID, horizon entities.Horizon) ([]entities.DemandEntry, error)
	// ListDemandedProducts returns the products carrying independent demand up to the horizon end
	ListDemandedProducts(ctx context.Context, horizon entities.Horizon) ([]entities.ProductID, error)
}
