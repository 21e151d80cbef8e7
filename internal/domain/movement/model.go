// Package movement owns the stock move lifecycle: a requested transfer of
// product quantity between two locations, approved or rejected, with all
// ledger effects posted exactly once at confirm time.
package movement

import (
	"context"
	"time"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
)

// State of a stock move. done and rejected are terminal.
type State string

const (
	StateDraft     State = "draft"
	StateConfirmed State = "confirmed"
	StateDone      State = "done"
	StateRejected  State = "rejected"
)

// Terminal reports whether no further transitions are allowed.
func (s State) Terminal() bool {
	return s == StateDone || s == StateRejected
}

// StockMove is a requested transfer of quantity units of a product from a
// source location to a destination location.
type StockMove struct {
	ID                    id.ID          `db:"id" json:"id"`
	ProductID             id.ID          `db:"product_id" json:"productId"`
	SourceLocationID      id.ID          `db:"source_location_id" json:"sourceLocationId"`
	DestinationLocationID id.ID          `db:"destination_location_id" json:"destinationLocationId"`
	Quantity              types.Quantity `db:"quantity" json:"quantity"`
	State                 State          `db:"state" json:"state"`
	Reference             string         `db:"reference" json:"reference,omitempty"`
	Notes                 string         `db:"notes" json:"notes,omitempty"`
	ApprovalNotes         string         `db:"approval_notes" json:"approvalNotes,omitempty"`
	CreatedBy             string         `db:"created_by" json:"createdBy"`
	ApprovedBy            string         `db:"approved_by" json:"approvedBy,omitempty"`
	ApprovedAt            *time.Time     `db:"approved_at" json:"approvedAt,omitempty"`
	CreatedAt             time.Time      `db:"created_at" json:"createdAt"`
}

// NewStockMove creates a draft move with generated ID.
func NewStockMove(productID, sourceID, destID id.ID, qty types.Quantity, createdBy string) *StockMove {
	return &StockMove{
		ID:                    id.New(),
		ProductID:             productID,
		SourceLocationID:      sourceID,
		DestinationLocationID: destID,
		Quantity:              qty,
		State:                 StateDraft,
		CreatedBy:             createdBy,
		CreatedAt:             time.Now().UTC(),
	}
}

// Validate checks move invariants without database access.
func (m *StockMove) Validate(ctx context.Context) error {
	if id.IsNil(m.ProductID) {
		return apperror.NewValidation("product is required").WithDetail("field", "productId")
	}
	if id.IsNil(m.SourceLocationID) {
		return apperror.NewValidation("source location is required").WithDetail("field", "sourceLocationId")
	}
	if id.IsNil(m.DestinationLocationID) {
		return apperror.NewValidation("destination location is required").WithDetail("field", "destinationLocationId")
	}
	if m.SourceLocationID == m.DestinationLocationID {
		return apperror.NewValidation("source and destination must differ")
	}
	if !m.Quantity.IsPositive() {
		return apperror.NewInvalidQuantity("move quantity must be positive").
			WithDetail("quantity", int64(m.Quantity))
	}
	return nil
}

// MoveReference is the ledger reference for entries posted at confirm.
func MoveReference(moveID id.ID) string {
	return "move:" + moveID.String()
}

// RejectReference is the ledger reference for the compensating entry
// appended on rejection. One reference, at most one entry, ever.
func RejectReference(moveID id.ID) string {
	return "reject:" + moveID.String()
}
