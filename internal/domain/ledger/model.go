// Package ledger provides the append-only warehouse movement log and the
// balances derived from it.
package ledger

import (
	"time"

	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
)

// Direction of a ledger entry relative to the warehouse.
type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

// Entry is one immutable movement record. Entries are never updated or
// deleted; corrections append a compensating entry with its own reference.
type Entry struct {
	ID          id.ID          `db:"id" json:"id"`
	ProductID   id.ID          `db:"product_id" json:"productId"`
	WarehouseID id.ID          `db:"warehouse_id" json:"warehouseId"`
	Quantity    types.Quantity `db:"quantity" json:"quantity"`
	Direction   Direction      `db:"direction" json:"direction"`
	Reference   string         `db:"reference" json:"reference"`
	CreatedAt   time.Time      `db:"created_at" json:"createdAt"`
}

// NewEntry creates an entry with generated ID and timestamp.
func NewEntry(productID, warehouseID id.ID, qty types.Quantity, dir Direction, reference string) Entry {
	return Entry{
		ID:          id.New(),
		ProductID:   productID,
		WarehouseID: warehouseID,
		Quantity:    qty,
		Direction:   dir,
		Reference:   reference,
		CreatedAt:   time.Now().UTC(),
	}
}

// Signed returns the quantity with direction applied: in positive, out negative.
func (e Entry) Signed() types.Quantity {
	if e.Direction == DirectionOut {
		return e.Quantity.Neg()
	}
	return e.Quantity
}

// Balance is the derived on-hand quantity for a (product, warehouse).
// Always equal to sum(in) - sum(out) over entries; any stored row is a
// read optimization, never a source of truth.
type Balance struct {
	ProductID      id.ID          `db:"product_id" json:"productId"`
	WarehouseID    id.ID          `db:"warehouse_id" json:"warehouseId"`
	Quantity       types.Quantity `db:"quantity" json:"quantity"`
	LastMovementAt time.Time      `db:"last_movement_at" json:"lastMovementAt"`
}
