package order

import (
	"context"

	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
)

// Repository persists orders, order lines and returns.
//
// All mutation of ReturnedQuantity goes through IncrementReturned inside the
// caller's transaction; no other component writes to order lines.
type Repository interface {
	GetOrder(ctx context.Context, orderID id.ID) (*Order, error)

	// GetLines returns all lines of an order, ordered by id ascending.
	GetLines(ctx context.Context, orderID id.ID) ([]OrderLine, error)

	// GetLinesForUpdate returns the order's lines for one product, ordered
	// by id ascending, locked for the enclosing transaction. The allocation
	// engine's returnable check and the subsequent increment form one
	// read-modify-write under this lock.
	GetLinesForUpdate(ctx context.Context, orderID, productID id.ID) ([]OrderLine, error)

	// IncrementReturned adds qty to a line's returned_quantity. Implementations
	// must refuse an increment that would exceed the line quantity.
	IncrementReturned(ctx context.Context, lineID id.ID, qty types.Quantity) error

	CreateReturn(ctx context.Context, ret *Return) error
	SaveReturnLines(ctx context.Context, returnID id.ID, lines []ReturnLine) error

	GetReturn(ctx context.Context, returnID id.ID) (*Return, error)
	GetReturnLines(ctx context.Context, returnID id.ID) ([]ReturnLine, error)
}
