package dto

import (
	"time"

	"stockledger/internal/domain/order"
	"stockledger/internal/domain/reconcile"
)

// ReturnItemRequest is one product position of a return submission.
// UnitPrice is only consulted when the product never appeared on the order;
// allocated lines always inherit the original order line's price.
type ReturnItemRequest struct {
	ProductID  string  `json:"productId" binding:"required,uuid"`
	Quantity   int64   `json:"quantity" binding:"required,gt=0"`
	ReasonCode string  `json:"reasonCode" binding:"omitempty,max=64"`
	UnitPrice  *string `json:"unitPrice" binding:"omitempty"`
}

// SubmitReturnRequest submits a customer return against a completed order.
type SubmitReturnRequest struct {
	OrderID      string              `json:"orderId" binding:"required,uuid"`
	Items        []ReturnItemRequest `json:"items" binding:"required,min=1,dive"`
	RefundMethod string              `json:"refundMethod" binding:"omitempty,max=64"`
	Notes        string              `json:"notes" binding:"omitempty,max=2000"`
}

// ReturnLineResponse is the API representation of a return line.
type ReturnLineResponse struct {
	ID                  string `json:"id"`
	ProductID           string `json:"productId"`
	ProductName         string `json:"productName,omitempty"`
	Quantity            int64  `json:"quantity"`
	UnitPrice           string `json:"unitPrice"`
	Subtotal            string `json:"subtotal"`
	ReasonCode          string `json:"reasonCode,omitempty"`
	OriginalOrderLineID string `json:"originalOrderLineId,omitempty"`
}

// ReturnResponse is the API representation of a return.
type ReturnResponse struct {
	ID           string               `json:"id"`
	OrderID      string               `json:"orderId"`
	Reference    string               `json:"reference"`
	TotalAmount  string               `json:"totalAmount"`
	RefundAmount string               `json:"refundAmount"`
	RefundMethod string               `json:"refundMethod,omitempty"`
	State        string               `json:"state"`
	Notes        string               `json:"notes,omitempty"`
	CreatedBy    string               `json:"createdBy"`
	CreatedAt    time.Time            `json:"createdAt"`
	Lines        []ReturnLineResponse `json:"lines"`
}

// SkippedItemResponse reports an item dropped during allocation.
type SkippedItemResponse struct {
	ProductID string `json:"productId"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

// SubmitReturnResponse is the result of a return submission.
type SubmitReturnResponse struct {
	Return  ReturnResponse        `json:"return"`
	Capped  bool                  `json:"capped"`
	Skipped []SkippedItemResponse `json:"skipped,omitempty"`
}

// ReturnToResponse converts a domain return with lines.
func ReturnToResponse(r *order.Return) ReturnResponse {
	lines := make([]ReturnLineResponse, 0, len(r.Lines))
	for _, line := range r.Lines {
		lr := ReturnLineResponse{
			ID:          line.ID.String(),
			ProductID:   line.ProductID.String(),
			ProductName: line.ProductName,
			Quantity:    int64(line.Quantity),
			UnitPrice:   line.UnitPrice.StringFixed(2),
			Subtotal:    line.Subtotal.StringFixed(2),
			ReasonCode:  line.ReasonCode,
		}
		if line.OriginalOrderLineID != nil {
			lr.OriginalOrderLineID = line.OriginalOrderLineID.String()
		}
		lines = append(lines, lr)
	}

	return ReturnResponse{
		ID:           r.ID.String(),
		OrderID:      r.OrderID.String(),
		Reference:    r.Reference,
		TotalAmount:  r.TotalAmount.StringFixed(2),
		RefundAmount: r.RefundAmount.StringFixed(2),
		RefundMethod: r.RefundMethod,
		State:        string(r.State),
		Notes:        r.Notes,
		CreatedBy:    r.CreatedBy,
		CreatedAt:    r.CreatedAt,
		Lines:        lines,
	}
}

// SubmitResultToResponse converts a submission result.
func SubmitResultToResponse(res *reconcile.SubmitReturnResult) SubmitReturnResponse {
	skipped := make([]SkippedItemResponse, 0, len(res.Skipped))
	for _, s := range res.Skipped {
		skipped = append(skipped, SkippedItemResponse{
			ProductID: s.ProductID.String(),
			Code:      s.Code,
			Message:   s.Message,
		})
	}

	return SubmitReturnResponse{
		Return:  ReturnToResponse(res.Return),
		Capped:  res.Capped,
		Skipped: skipped,
	}
}
