package handlers

import (
	"github.com/gin-gonic/gin"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/reconcile"
	"stockledger/internal/infrastructure/http/v1/dto"
)

// ReturnHandler handles customer return endpoints.
type ReturnHandler struct {
	*BaseHandler
	facade *reconcile.Facade
}

// NewReturnHandler creates a new return handler.
func NewReturnHandler(facade *reconcile.Facade) *ReturnHandler {
	return &ReturnHandler{
		BaseHandler: NewBaseHandler(),
		facade:      facade,
	}
}

// Submit creates a return against a completed order, allocating requested
// quantities across the order's lines.
// POST /api/v1/returns
func (h *ReturnHandler) Submit(c *gin.Context) {
	var req dto.SubmitReturnRequest
	if !h.BindJSON(c, &req) {
		return
	}

	items := make([]reconcile.ReturnItem, 0, len(req.Items))
	for i, item := range req.Items {
		ri := reconcile.ReturnItem{
			ProductID:  id.MustParse(item.ProductID),
			Quantity:   types.Quantity(item.Quantity),
			ReasonCode: item.ReasonCode,
		}
		if item.UnitPrice != nil {
			price, err := types.NewMoneyFromString(*item.UnitPrice)
			if err != nil {
				h.Error(c, apperror.NewValidation("invalid unit price").
					WithDetail("item", i).
					WithDetail("unitPrice", *item.UnitPrice))
				return
			}
			ri.UnitPrice = &price
		}
		items = append(items, ri)
	}

	result, err := h.facade.SubmitReturn(c.Request.Context(), reconcile.SubmitReturnRequest{
		OrderID:      id.MustParse(req.OrderID),
		Items:        items,
		RefundMethod: req.RefundMethod,
		Notes:        req.Notes,
		CreatedBy:    h.GetActorID(c),
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.SubmitResultToResponse(result))
}

// Get returns one return with its lines.
// GET /api/v1/returns/:id
func (h *ReturnHandler) Get(c *gin.Context) {
	returnID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	ret, err := h.facade.GetReturn(c.Request.Context(), returnID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ReturnToResponse(ret))
}
