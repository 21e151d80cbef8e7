package movement

import (
	"context"

	"stockledger/internal/core/id"
)

// Repository persists stock moves.
type Repository interface {
	Create(ctx context.Context, move *StockMove) error

	GetByID(ctx context.Context, moveID id.ID) (*StockMove, error)

	// GetByIDForUpdate locks the move row for the enclosing transaction so
	// concurrent transitions on the same move serialize.
	GetByIDForUpdate(ctx context.Context, moveID id.ID) (*StockMove, error)

	// Update persists state, approver and approval metadata.
	Update(ctx context.Context, move *StockMove) error

	List(ctx context.Context, filter ListFilter) ([]*StockMove, error)
}

// ListFilter narrows move listings.
type ListFilter struct {
	State     *State
	ProductID *id.ID
	Limit     int
	Offset    int
}
