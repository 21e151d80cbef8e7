// Package reconcile is the single entry point external callers use to
// confirm, reject and complete stock moves and to submit customer returns.
// It composes the movement manager and the allocation engine and guarantees
// the cross-component invariants: one transaction per call, and a return
// never implicitly changes warehouse balances. Wiring a validated return
// to a physical stock movement is a separate, explicit Manager call.
package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/core/tx"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/allocation"
	"stockledger/internal/domain/audit"
	"stockledger/internal/domain/catalog"
	"stockledger/internal/domain/movement"
	"stockledger/internal/domain/order"
	"stockledger/pkg/logger"
	"stockledger/pkg/numerator"
)

// ReturnItem is one requested product/quantity of a return submission.
// UnitPrice is an optional client-supplied fallback, consulted only when no
// original order line for the product can be resolved at all.
type ReturnItem struct {
	ProductID  id.ID
	Quantity   types.Quantity
	ReasonCode string
	UnitPrice  *types.Money
}

// SubmitReturnRequest is the typed, validated-once boundary for returns.
type SubmitReturnRequest struct {
	OrderID      id.ID
	Items        []ReturnItem
	RefundMethod string
	Notes        string
	CreatedBy    string
}

// SkippedItem reports a single return item that could not be allocated and
// was dropped without failing the rest of the submission.
type SkippedItem struct {
	ProductID id.ID
	Code      string
	Message   string
}

// SubmitReturnResult is what the caller gets back: the persisted return,
// whether any item was capped at its returnable total, and the items that
// were skipped for lack of a resolvable price.
type SubmitReturnResult struct {
	Return  *order.Return
	Capped  bool
	Skipped []SkippedItem
}

// Facade composes the reconciliation core. All collaborators are injected
// at construction; there is no process-wide state.
type Facade struct {
	moves     *movement.Manager
	engine    *allocation.Engine
	orders    order.Repository
	catalog   catalog.Repository
	numerator *numerator.Service // optional; nil falls back to timestamp references
	auditLog  audit.Recorder
	txManager tx.ReadOnlyManager
}

// NewFacade creates the reconciliation facade.
func NewFacade(
	moves *movement.Manager,
	engine *allocation.Engine,
	orders order.Repository,
	cat catalog.Repository,
	num *numerator.Service,
	auditLog audit.Recorder,
	txManager tx.ReadOnlyManager,
) *Facade {
	if auditLog == nil {
		auditLog = audit.NopRecorder{}
	}
	return &Facade{
		moves:     moves,
		engine:    engine,
		orders:    orders,
		catalog:   cat,
		numerator: num,
		auditLog:  auditLog,
		txManager: txManager,
	}
}

// CreateMove registers a draft transfer request.
func (f *Facade) CreateMove(ctx context.Context, move *movement.StockMove) error {
	return f.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := f.moves.Create(ctx, move); err != nil {
			return err
		}
		return f.record(ctx, "stock_move", move.ID, audit.ActionCreate, move.CreatedBy, move)
	})
}

// ConfirmMove approves a pending transfer and posts its ledger entries.
func (f *Facade) ConfirmMove(ctx context.Context, moveID id.ID, approverID, notes string) error {
	return f.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := f.moves.Confirm(ctx, moveID, approverID, notes); err != nil {
			return err
		}
		return f.record(ctx, "stock_move", moveID, audit.ActionConfirm, approverID, nil)
	})
}

// RejectMove refuses a pending or approved transfer, restoring stock once.
func (f *Facade) RejectMove(ctx context.Context, moveID id.ID, approverID, notes string) error {
	return f.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := f.moves.Reject(ctx, moveID, approverID, notes); err != nil {
			return err
		}
		return f.record(ctx, "stock_move", moveID, audit.ActionReject, approverID, nil)
	})
}

// CompleteMove marks an approved transfer as physically completed.
func (f *Facade) CompleteMove(ctx context.Context, moveID id.ID, actorID string) error {
	return f.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := f.moves.Complete(ctx, moveID); err != nil {
			return err
		}
		return f.record(ctx, "stock_move", moveID, audit.ActionComplete, actorID, nil)
	})
}

// GetMove returns a move by id.
func (f *Facade) GetMove(ctx context.Context, moveID id.ID) (*movement.StockMove, error) {
	return f.moves.Get(ctx, moveID)
}

// ListMoves returns moves matching the filter.
func (f *Facade) ListMoves(ctx context.Context, filter movement.ListFilter) ([]*movement.StockMove, error) {
	return f.moves.List(ctx, filter)
}

// GetReturn loads a return with its lines. Both reads run in one read-only
// transaction so the header and lines come from the same snapshot.
func (f *Facade) GetReturn(ctx context.Context, returnID id.ID) (*order.Return, error) {
	var ret *order.Return
	err := f.txManager.ReadOnly(ctx, func(ctx context.Context) error {
		var err error
		ret, err = f.orders.GetReturn(ctx, returnID)
		if err != nil {
			return err
		}
		lines, err := f.orders.GetReturnLines(ctx, returnID)
		if err != nil {
			return fmt.Errorf("get return lines: %w", err)
		}
		ret.Lines = lines
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// SubmitReturn processes a customer return in a single transaction: every
// item is allocated (capping where the returnable total runs out), the
// produced lines and the return are persisted, and each consumed order
// line's returned_quantity is incremented. Any error rolls the whole
// submission back, so a partially applied return is never visible.
//
// The ledger is deliberately untouched here. Moving the returned goods into
// a quality or warehouse location is an explicit CreateMove/ConfirmMove by
// the caller.
func (f *Facade) SubmitReturn(ctx context.Context, req SubmitReturnRequest) (*SubmitReturnResult, error) {
	if len(req.Items) == 0 {
		return nil, apperror.NewValidation("at least one return item is required")
	}
	for i, item := range req.Items {
		if !item.Quantity.IsPositive() {
			return nil, apperror.NewInvalidQuantity("return quantity must be positive").
				WithDetail("item", i).
				WithDetail("quantity", int64(item.Quantity))
		}
	}

	result := &SubmitReturnResult{}

	err := f.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		ord, err := f.orders.GetOrder(ctx, req.OrderID)
		if err != nil {
			return err
		}
		if ord.State != order.OrderStateCompleted {
			return apperror.NewBusinessRule(apperror.CodeInvalidState, "only completed orders are returnable").
				WithDetail("order_id", ord.ID.String()).
				WithDetail("state", ord.State)
		}

		ret := &order.Return{
			ID:           id.New(),
			OrderID:      ord.ID,
			Reference:    f.nextReference(ctx),
			RefundMethod: req.RefundMethod,
			State:        order.ReturnStateDraft,
			Notes:        req.Notes,
			CreatedBy:    req.CreatedBy,
			CreatedAt:    time.Now().UTC(),
		}

		for _, item := range req.Items {
			lines, skipped, err := f.allocateItem(ctx, ord.ID, ret.ID, item)
			if err != nil {
				return err
			}
			if skipped != nil {
				result.Skipped = append(result.Skipped, *skipped)
				continue
			}
			ret.Lines = append(ret.Lines, lines.Lines...)
			if lines.Capped {
				result.Capped = true
			}
		}

		if len(ret.Lines) == 0 {
			return apperror.NewValidation("no return lines could be produced").
				WithDetail("skipped", len(result.Skipped))
		}

		ret.RecalculateTotal()
		ret.RefundAmount = ret.TotalAmount

		if err := f.orders.CreateReturn(ctx, ret); err != nil {
			return fmt.Errorf("create return: %w", err)
		}
		if err := f.orders.SaveReturnLines(ctx, ret.ID, ret.Lines); err != nil {
			return fmt.Errorf("save return lines: %w", err)
		}

		result.Return = ret
		return f.record(ctx, "return", ret.ID, audit.ActionReturn, req.CreatedBy, ret)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "return submitted",
		"return_id", result.Return.ID,
		"reference", result.Return.Reference,
		"lines", len(result.Return.Lines),
		"total_amount", result.Return.TotalAmount,
		"capped", result.Capped,
		"skipped", len(result.Skipped),
	)
	return result, nil
}

// returnLines wraps the produced lines of a single item.
type returnLines struct {
	Lines  []order.ReturnLine
	Capped bool
}

// allocateItem turns one requested item into return lines. When the product
// was never part of the order the client-supplied price is the fallback; if
// that is missing too, the item is skipped and reported rather than failing
// the whole submission.
func (f *Facade) allocateItem(ctx context.Context, orderID, returnID id.ID, item ReturnItem) (returnLines, *SkippedItem, error) {
	var out returnLines

	res, err := f.engine.Allocate(ctx, orderID, item.ProductID, item.Quantity)
	if err != nil {
		appErr, ok := apperror.AsAppError(err)
		if !ok || appErr.Code != apperror.CodeNoMatchingLines {
			return out, nil, err
		}
		if reason, _ := appErr.Details["reason"].(string); reason != allocation.ReasonProductNotInOrder {
			// Lines exist but are exhausted: the bound on returned
			// quantity wins over any fallback.
			return out, nil, err
		}
		if item.UnitPrice == nil {
			skip := &SkippedItem{
				ProductID: item.ProductID,
				Code:      apperror.CodePriceResolution,
				Message:   apperror.NewPriceResolution(item.ProductID.String()).Message,
			}
			return out, skip, nil
		}

		line := order.NewReturnLine(returnID, item.ProductID, item.Quantity, *item.UnitPrice, item.ReasonCode, nil)
		f.snapshotProductName(ctx, &line)
		out.Lines = append(out.Lines, line)
		return out, nil, nil
	}

	for _, alloc := range res.Lines {
		lineID := alloc.OriginalOrderLineID
		line := order.NewReturnLine(returnID, alloc.ProductID, alloc.Quantity, alloc.UnitPrice, item.ReasonCode, &lineID)
		f.snapshotProductName(ctx, &line)
		out.Lines = append(out.Lines, line)
	}
	out.Capped = res.Capped
	return out, nil, nil
}

// snapshotProductName denormalizes the catalog name onto the line so the
// return stays readable after catalog renames. Best effort.
func (f *Facade) snapshotProductName(ctx context.Context, line *order.ReturnLine) {
	product, err := f.catalog.GetProduct(ctx, line.ProductID)
	if err != nil {
		return
	}
	line.ProductName = product.Name
}

func (f *Facade) nextReference(ctx context.Context) string {
	if f.numerator != nil {
		number, err := f.numerator.GetNextNumber(ctx, numerator.DefaultConfig("RET"), nil, time.Now())
		if err == nil {
			return number
		}
		logger.Warn(ctx, "return number generation failed, using timestamp", "error", err)
	}
	return "RET-" + time.Now().UTC().Format("20060102150405")
}

func (f *Facade) record(ctx context.Context, entityType string, entityID id.ID, action audit.Action, actorID string, payload any) error {
	entry := audit.Entry{
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		ActorID:    actorID,
	}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err == nil {
			entry.Payload = raw
		}
	}
	if err := f.auditLog.Record(ctx, entry); err != nil {
		return fmt.Errorf("record audit entry: %w", err)
	}
	return nil
}
