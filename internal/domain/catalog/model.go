// Package catalog provides immutable reference data: products, warehouses
// and stock locations. Ownership of this data lives in an external catalog
// service; this core only reads it.
package catalog

import (
	"stockledger/internal/core/id"
)

// Product carries identity only as far as this core cares.
type Product struct {
	ID   id.ID  `db:"id" json:"id"`
	SKU  string `db:"sku" json:"sku"`
	Name string `db:"name" json:"name"`
}

// Warehouse is a physical storage site.
type Warehouse struct {
	ID   id.ID  `db:"id" json:"id"`
	Code string `db:"code" json:"code"`
	Name string `db:"name" json:"name"`
}

// LocationKind classifies a stock location.
type LocationKind string

const (
	LocationSupplier      LocationKind = "supplier"
	LocationInternal      LocationKind = "internal"
	LocationCustomer      LocationKind = "customer"
	LocationInventoryLoss LocationKind = "inventoryLoss"
	LocationQuality       LocationKind = "quality"
)

// StockLocation is an endpoint of a stock move. Internal locations are
// attached to a warehouse; virtual locations (supplier, customer, loss,
// quality) have no warehouse and no ledger effect.
type StockLocation struct {
	ID          id.ID        `db:"id" json:"id"`
	Name        string       `db:"name" json:"name"`
	Kind        LocationKind `db:"kind" json:"kind"`
	WarehouseID *id.ID       `db:"warehouse_id" json:"warehouseId,omitempty"`
}

// IsWarehouse reports whether moves through this location post ledger entries.
func (l StockLocation) IsWarehouse() bool {
	return l.Kind == LocationInternal && l.WarehouseID != nil && !id.IsNil(*l.WarehouseID)
}
