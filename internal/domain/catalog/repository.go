package catalog

import (
	"context"

	"stockledger/internal/core/id"
)

// Repository resolves reference data. Read-only from this core's point of
// view; creation happens through seed tooling or the external catalog.
type Repository interface {
	GetProduct(ctx context.Context, productID id.ID) (Product, error)
	GetLocation(ctx context.Context, locationID id.ID) (StockLocation, error)
	GetWarehouse(ctx context.Context, warehouseID id.ID) (Warehouse, error)
	ListLocations(ctx context.Context) ([]StockLocation, error)
}
