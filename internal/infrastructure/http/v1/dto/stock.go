package dto

import (
	"time"

	"stockledger/internal/domain/ledger"
)

// BalanceQuery identifies one (product, warehouse) balance.
type BalanceQuery struct {
	ProductID   string `form:"productId" binding:"required,uuid"`
	WarehouseID string `form:"warehouseId" binding:"required,uuid"`
}

// BalanceResponse is the current balance for one (product, warehouse) pair.
type BalanceResponse struct {
	ProductID   string `json:"productId"`
	WarehouseID string `json:"warehouseId"`
	Quantity    int64  `json:"quantity"`
}

// HistoryQuery pages through a product's movement history.
type HistoryQuery struct {
	Limit  int `form:"limit" binding:"omitempty,gt=0,lte=500"`
	Offset int `form:"offset" binding:"omitempty,gte=0"`
}

// RecalculateRequest identifies the cached balance row to rebuild.
type RecalculateRequest struct {
	ProductID   string `json:"productId" binding:"required,uuid"`
	WarehouseID string `json:"warehouseId" binding:"required,uuid"`
}

// EntryResponse is the API representation of one ledger entry.
type EntryResponse struct {
	ID          string    `json:"id"`
	ProductID   string    `json:"productId"`
	WarehouseID string    `json:"warehouseId"`
	Quantity    int64     `json:"quantity"`
	Direction   string    `json:"direction"`
	Reference   string    `json:"reference"`
	CreatedAt   time.Time `json:"createdAt"`
}

// EntriesToResponse converts ledger entries.
func EntriesToResponse(entries []ledger.Entry) []EntryResponse {
	out := make([]EntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, EntryResponse{
			ID:          e.ID.String(),
			ProductID:   e.ProductID.String(),
			WarehouseID: e.WarehouseID.String(),
			Quantity:    int64(e.Quantity),
			Direction:   string(e.Direction),
			Reference:   e.Reference,
			CreatedAt:   e.CreatedAt,
		})
	}
	return out
}
