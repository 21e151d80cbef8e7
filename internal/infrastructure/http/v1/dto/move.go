package dto

import (
	"time"

	"stockledger/internal/domain/movement"
)

// CreateMoveRequest creates a draft stock move.
type CreateMoveRequest struct {
	ProductID             string `json:"productId" binding:"required,uuid"`
	SourceLocationID      string `json:"sourceLocationId" binding:"required,uuid"`
	DestinationLocationID string `json:"destinationLocationId" binding:"required,uuid"`
	Quantity              int64  `json:"quantity" binding:"required,gt=0"`
	Reference             string `json:"reference" binding:"omitempty,max=255"`
	Notes                 string `json:"notes" binding:"omitempty,max=2000"`
}

// TransitionMoveRequest carries optional approval metadata for
// confirm/reject/complete transitions.
type TransitionMoveRequest struct {
	Notes string `json:"notes" binding:"omitempty,max=2000"`
}

// MoveResponse is the API representation of a stock move.
type MoveResponse struct {
	ID                    string     `json:"id"`
	ProductID             string     `json:"productId"`
	SourceLocationID      string     `json:"sourceLocationId"`
	DestinationLocationID string     `json:"destinationLocationId"`
	Quantity              int64      `json:"quantity"`
	State                 string     `json:"state"`
	Reference             string     `json:"reference,omitempty"`
	Notes                 string     `json:"notes,omitempty"`
	ApprovalNotes         string     `json:"approvalNotes,omitempty"`
	CreatedBy             string     `json:"createdBy"`
	ApprovedBy            string     `json:"approvedBy,omitempty"`
	ApprovedAt            *time.Time `json:"approvedAt,omitempty"`
	CreatedAt             time.Time  `json:"createdAt"`
}

// MoveToResponse converts a domain move to its API representation.
func MoveToResponse(m *movement.StockMove) MoveResponse {
	return MoveResponse{
		ID:                    m.ID.String(),
		ProductID:             m.ProductID.String(),
		SourceLocationID:      m.SourceLocationID.String(),
		DestinationLocationID: m.DestinationLocationID.String(),
		Quantity:              int64(m.Quantity),
		State:                 string(m.State),
		Reference:             m.Reference,
		Notes:                 m.Notes,
		ApprovalNotes:         m.ApprovalNotes,
		CreatedBy:             m.CreatedBy,
		ApprovedBy:            m.ApprovedBy,
		ApprovedAt:            m.ApprovedAt,
		CreatedAt:             m.CreatedAt,
	}
}

// MovesToResponse converts a list of moves.
func MovesToResponse(moves []*movement.StockMove) []MoveResponse {
	out := make([]MoveResponse, 0, len(moves))
	for _, m := range moves {
		out = append(out, MoveToResponse(m))
	}
	return out
}

// MoveListQuery filters move listings.
type MoveListQuery struct {
	PaginationRequest
	State     string `form:"state" binding:"omitempty,oneof=draft confirmed done rejected"`
	ProductID string `form:"productId" binding:"omitempty,uuid"`
}
