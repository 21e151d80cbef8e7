// Package order holds completed orders, their lines and customer returns.
// Cross-references between return lines and original order lines are plain
// IDs resolved through the repository, never owning pointers.
package order

import (
	"time"

	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
)

// Order is a completed sale. Only completed orders are returnable.
type Order struct {
	ID        id.ID     `db:"id" json:"id"`
	Number    string    `db:"number" json:"number"`
	State     string    `db:"state" json:"state"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// OrderStateCompleted is the only state this core allocates returns against.
const OrderStateCompleted = "completed"

// OrderLine is one product position of an order. Quantity is fixed at order
// completion; ReturnedQuantity only ever grows, and only through the
// allocation engine.
//
// Invariant: 0 <= ReturnedQuantity <= Quantity.
type OrderLine struct {
	ID               id.ID          `db:"id" json:"id"`
	OrderID          id.ID          `db:"order_id" json:"orderId"`
	ProductID        id.ID          `db:"product_id" json:"productId"`
	Quantity         types.Quantity `db:"quantity" json:"quantity"`
	UnitPrice        types.Money    `db:"unit_price" json:"unitPrice"`
	ReturnedQuantity types.Quantity `db:"returned_quantity" json:"returnedQuantity"`
}

// Returnable is the amount still eligible to be returned from this line.
func (l OrderLine) Returnable() types.Quantity {
	r := l.Quantity - l.ReturnedQuantity
	if r < 0 {
		return 0
	}
	return r
}

// ReturnState of a customer return.
type ReturnState string

const (
	ReturnStateDraft     ReturnState = "draft"
	ReturnStateValidated ReturnState = "validated"
	ReturnStateCancelled ReturnState = "cancelled"
)

// Return is a customer return against one order.
//
// Invariant: TotalAmount always equals the live sum of its lines' subtotals.
type Return struct {
	ID           id.ID       `db:"id" json:"id"`
	OrderID      id.ID       `db:"order_id" json:"orderId"`
	Reference    string      `db:"reference" json:"reference"`
	TotalAmount  types.Money `db:"total_amount" json:"totalAmount"`
	RefundAmount types.Money `db:"refund_amount" json:"refundAmount"`
	RefundMethod string      `db:"refund_method" json:"refundMethod,omitempty"`
	State        ReturnState `db:"state" json:"state"`
	Notes        string      `db:"notes" json:"notes,omitempty"`
	CreatedBy    string      `db:"created_by" json:"createdBy"`
	CreatedAt    time.Time   `db:"created_at" json:"createdAt"`

	Lines []ReturnLine `db:"-" json:"lines"`
}

// RecalculateTotal recomputes TotalAmount from the lines. The stored value
// is never trusted to diverge from this sum.
func (r *Return) RecalculateTotal() {
	total := types.ZeroMoney()
	for _, line := range r.Lines {
		total = total.Add(line.Subtotal)
	}
	r.TotalAmount = total
}

// ReturnLine is one returned product position. Created once, immutable
// thereafter; a correction is a new return, not an edit.
//
// Invariant: Subtotal == round2(Quantity * UnitPrice).
type ReturnLine struct {
	ID                  id.ID          `db:"id" json:"id"`
	ReturnID            id.ID          `db:"return_id" json:"returnId"`
	ProductID           id.ID          `db:"product_id" json:"productId"`
	ProductName         string         `db:"product_name" json:"productName,omitempty"`
	Quantity            types.Quantity `db:"quantity" json:"quantity"`
	UnitPrice           types.Money    `db:"unit_price" json:"unitPrice"`
	Subtotal            types.Money    `db:"subtotal" json:"subtotal"`
	ReasonCode          string         `db:"reason_code" json:"reasonCode,omitempty"`
	OriginalOrderLineID *id.ID         `db:"original_order_line_id" json:"originalOrderLineId,omitempty"`
}

// NewReturnLine creates a line with the subtotal computed once at creation.
func NewReturnLine(returnID, productID id.ID, qty types.Quantity, unitPrice types.Money, reasonCode string, originalLineID *id.ID) ReturnLine {
	return ReturnLine{
		ID:                  id.New(),
		ReturnID:            returnID,
		ProductID:           productID,
		Quantity:            qty,
		UnitPrice:           unitPrice,
		Subtotal:            types.Subtotal(qty, unitPrice),
		ReasonCode:          reasonCode,
		OriginalOrderLineID: originalLineID,
	}
}
