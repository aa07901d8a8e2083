package repositories

import (
	"context"

	"github.com/vsinha/mrpcrp/pkg/domain/entities"
)

// StructureRepository provides access to bills of material and routings
type StructureRepository interface {
	// ListBoms returns every BOM version of a product regardless of status
	ListBoms(ctx context.Context, productID entities.ProductID) ([]entities.BillOfMaterial, error)
	// ListRoutings returns every routing version of a product regardless of status
	ListRoutings(ctx context.Context, productID entities.ProductID) ([]entities.Routing, error)
	// ListStructuredProducts returns every product that owns at least one BOM
	ListStructuredProducts(ctx context.Context) ([]entities.ProductID, error)
}
