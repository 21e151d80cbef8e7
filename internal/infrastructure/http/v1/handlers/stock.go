package handlers

import (
	"github.com/gin-gonic/gin"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/domain/ledger"
	"stockledger/internal/infrastructure/http/v1/dto"
)

var errMissingReference = apperror.NewValidation("reference query parameter is required")

// StockHandler exposes ledger balances and movement history.
type StockHandler struct {
	*BaseHandler
	store ledger.Store
}

// NewStockHandler creates a new stock handler.
func NewStockHandler(store ledger.Store) *StockHandler {
	return &StockHandler{
		BaseHandler: NewBaseHandler(),
		store:       store,
	}
}

// Balance returns the current balance for one (product, warehouse) pair.
// Always the live sum over entries, never a cached value.
// GET /api/v1/stock/balance
func (h *StockHandler) Balance(c *gin.Context) {
	var query dto.BalanceQuery
	if !h.BindQuery(c, &query) {
		return
	}

	productID := id.MustParse(query.ProductID)
	warehouseID := id.MustParse(query.WarehouseID)

	balance, err := h.store.Balance(c.Request.Context(), productID, warehouseID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.BalanceResponse{
		ProductID:   query.ProductID,
		WarehouseID: query.WarehouseID,
		Quantity:    int64(balance),
	})
}

// EntriesByReference returns all entries recorded under one reference.
// GET /api/v1/stock/entries?reference=move:<id>
func (h *StockHandler) EntriesByReference(c *gin.Context) {
	reference := c.Query("reference")
	if reference == "" {
		h.Error(c, errMissingReference)
		return
	}

	entries, err := h.store.EntriesByReference(c.Request.Context(), reference)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{Items: dto.EntriesToResponse(entries)})
}

// History returns a product's movement history, newest first.
// GET /api/v1/stock/products/:id/entries
func (h *StockHandler) History(c *gin.Context) {
	productID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var query dto.HistoryQuery
	if !h.BindQuery(c, &query) {
		return
	}
	if query.Limit == 0 {
		query.Limit = 100
	}

	entries, err := h.store.EntriesByProduct(c.Request.Context(), productID, query.Limit, query.Offset)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{Items: dto.EntriesToResponse(entries)})
}

// Recalculate rebuilds one cached balance row from the entry log.
// POST /api/v1/stock/recalculate
func (h *StockHandler) Recalculate(c *gin.Context) {
	var req dto.RecalculateRequest
	if !h.BindJSON(c, &req) {
		return
	}

	productID := id.MustParse(req.ProductID)
	warehouseID := id.MustParse(req.WarehouseID)

	if err := h.store.RecalculateBalance(c.Request.Context(), productID, warehouseID); err != nil {
		h.Error(c, err)
		return
	}

	balance, err := h.store.Balance(c.Request.Context(), productID, warehouseID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.BalanceResponse{
		ProductID:   req.ProductID,
		WarehouseID: req.WarehouseID,
		Quantity:    int64(balance),
	})
}
