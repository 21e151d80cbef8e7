// Package allocation distributes a requested return quantity across the
// original lines of an order.
package allocation

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/order"
	"stockledger/pkg/logger"
)

// AllocatedLine is one consumed slice of an original order line. The unit
// price is always inherited from that line, never from client input.
type AllocatedLine struct {
	OriginalOrderLineID id.ID
	ProductID           id.ID
	Quantity            types.Quantity
	UnitPrice           types.Money
}

// Result reports what an allocation consumed. Allocated may be less than
// Requested: when the order's returnable total runs out the engine caps
// silently and reports the capped amount instead of failing.
type Result struct {
	Lines     []AllocatedLine
	Requested types.Quantity
	Allocated types.Quantity
	Capped    bool
}

// Reasons attached to NO_MATCHING_LINES errors, distinguishing a product
// that was never part of the order from lines that are fully returned.
const (
	ReasonProductNotInOrder = "product_not_in_order"
	ReasonNothingReturnable = "nothing_returnable"
)

// Engine computes return allocations. It must be called inside a
// transaction: the returnable check and the returned-quantity increments
// are one read-modify-write under the row locks taken by the repository.
type Engine struct {
	orders order.Repository
}

// NewEngine creates a new allocation engine.
func NewEngine(orders order.Repository) *Engine {
	return &Engine{orders: orders}
}

// Allocate distributes requested units of a product across the order's
// lines, oldest line first, and increments each consumed line's
// returned_quantity.
//
// Fails with NO_MATCHING_LINES when the order has no line for the product
// with returnable quantity left; fails with INVALID_QUANTITY when the
// request is not positive.
func (e *Engine) Allocate(ctx context.Context, orderID, productID id.ID, requested types.Quantity) (Result, error) {
	result := Result{Requested: requested}

	if !requested.IsPositive() {
		return result, apperror.NewInvalidQuantity("requested return quantity must be positive").
			WithDetail("quantity", int64(requested))
	}

	lines, err := e.orders.GetLinesForUpdate(ctx, orderID, productID)
	if err != nil {
		return result, fmt.Errorf("load order lines: %w", err)
	}
	if len(lines) == 0 {
		return result, apperror.NewNoMatchingLines(orderID.String(), productID.String()).
			WithDetail("reason", ReasonProductNotInOrder)
	}

	open := lines[:0]
	for _, line := range lines {
		if line.Returnable().IsPositive() {
			open = append(open, line)
		}
	}
	if len(open) == 0 {
		return result, apperror.NewNoMatchingLines(orderID.String(), productID.String()).
			WithDetail("reason", ReasonNothingReturnable)
	}

	// Deterministic, earliest-purchased-line-first. UUIDv7 ids are
	// time-ordered, so byte order is creation order.
	sort.Slice(open, func(i, j int) bool {
		return bytes.Compare(open[i].ID[:], open[j].ID[:]) < 0
	})

	remaining := requested
	for _, line := range open {
		if !remaining.IsPositive() {
			break
		}

		consume := remaining.Min(line.Returnable())
		if err := e.orders.IncrementReturned(ctx, line.ID, consume); err != nil {
			return result, fmt.Errorf("increment returned quantity on line %s: %w", line.ID, err)
		}

		result.Lines = append(result.Lines, AllocatedLine{
			OriginalOrderLineID: line.ID,
			ProductID:           line.ProductID,
			Quantity:            consume,
			UnitPrice:           line.UnitPrice,
		})
		result.Allocated += consume
		remaining -= consume
	}

	if remaining.IsPositive() {
		result.Capped = true
		logger.Warn(ctx, "return allocation capped at total returnable",
			"order_id", orderID,
			"product_id", productID,
			"requested", requested,
			"allocated", result.Allocated,
		)
	}

	return result, nil
}
