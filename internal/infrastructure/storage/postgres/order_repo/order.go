// Package order_repo provides the PostgreSQL implementation of the order
// and return repository.
package order_repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/order"
	"stockledger/internal/infrastructure/storage/postgres"
)

const (
	ordersTable      = "orders"
	orderLinesTable  = "order_lines"
	returnsTable     = "returns"
	returnLinesTable = "return_lines"
)

var orderLineColumns = []string{
	"id", "order_id", "product_id", "quantity", "unit_price", "returned_quantity",
}

var returnLineColumns = []string{
	"id", "return_id", "product_id", "product_name", "quantity",
	"unit_price", "subtotal", "reason_code", "original_order_line_id",
}

// OrderRepo implements order.Repository.
type OrderRepo struct {
	txManager *postgres.TxManager
	batch     *postgres.BatchInserter
	builder   squirrel.StatementBuilderType
}

var _ order.Repository = (*OrderRepo)(nil)

// NewOrderRepo creates a new order repository.
func NewOrderRepo(txManager *postgres.TxManager) *OrderRepo {
	return &OrderRepo{
		txManager: txManager,
		batch:     postgres.NewBatchInserter(txManager),
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *OrderRepo) GetOrder(ctx context.Context, orderID id.ID) (*order.Order, error) {
	sql, args, err := r.builder.Select("id", "number", "state", "created_at").
		From(ordersTable).
		Where(squirrel.Eq{"id": orderID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var ord order.Order
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &ord, sql, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFound("order", orderID)
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return &ord, nil
}

func (r *OrderRepo) GetLines(ctx context.Context, orderID id.ID) ([]order.OrderLine, error) {
	return r.selectLines(ctx, squirrel.Eq{"order_id": orderID}, false)
}

// GetLinesForUpdate locks the matching lines in id order. Consistent lock
// ordering across callers keeps concurrent allocations against the same
// order from deadlocking.
func (r *OrderRepo) GetLinesForUpdate(ctx context.Context, orderID, productID id.ID) ([]order.OrderLine, error) {
	if r.txManager.GetTx(ctx) == nil {
		return nil, fmt.Errorf("GetLinesForUpdate requires transaction context")
	}
	return r.selectLines(ctx, squirrel.Eq{"order_id": orderID, "product_id": productID}, true)
}

func (r *OrderRepo) selectLines(ctx context.Context, where squirrel.Eq, forUpdate bool) ([]order.OrderLine, error) {
	q := r.builder.Select(orderLineColumns...).
		From(orderLinesTable).
		Where(where).
		OrderBy("id ASC")
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lines []order.OrderLine
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("select order lines: %w", err)
	}
	return lines, nil
}

// IncrementReturned adds qty to a line's returned quantity. The WHERE clause
// re-checks the bound so even a caller that skipped GetLinesForUpdate cannot
// push returned_quantity past quantity.
func (r *OrderRepo) IncrementReturned(ctx context.Context, lineID id.ID, qty types.Quantity) error {
	if !qty.IsPositive() {
		return apperror.NewInvalidQuantity("returned increment must be positive").
			WithDetail("quantity", int64(qty))
	}

	sql := `
		UPDATE order_lines
		SET returned_quantity = returned_quantity + $1
		WHERE id = $2 AND returned_quantity + $1 <= quantity
	`
	querier := r.txManager.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, qty, lineID)
	if err != nil {
		return fmt.Errorf("increment returned quantity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewConflict("returned quantity would exceed line quantity").
			WithDetail("orderLineId", lineID.String()).
			WithDetail("increment", int64(qty))
	}
	return nil
}

func (r *OrderRepo) CreateReturn(ctx context.Context, ret *order.Return) error {
	if ret.CreatedAt.IsZero() {
		ret.CreatedAt = time.Now().UTC()
	}

	sql, args, err := r.builder.Insert(returnsTable).
		Columns("id", "order_id", "reference", "total_amount", "refund_amount",
			"refund_method", "state", "notes", "created_by", "created_at").
		Values(ret.ID, ret.OrderID, ret.Reference, ret.TotalAmount, ret.RefundAmount,
			ret.RefundMethod, ret.State, ret.Notes, ret.CreatedBy, ret.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert return: %w", err)
	}
	return nil
}

// SaveReturnLines bulk-inserts the lines of a freshly created return via
// COPY. Requires the caller's transaction; lines are never written outside
// the return they belong to.
func (r *OrderRepo) SaveReturnLines(ctx context.Context, returnID id.ID, lines []order.ReturnLine) error {
	if len(lines) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(lines))
	for _, line := range lines {
		if line.ReturnID != returnID {
			return apperror.NewValidation("return line belongs to a different return").
				WithDetail("returnId", returnID.String()).
				WithDetail("lineReturnId", line.ReturnID.String())
		}
		rows = append(rows, []any{
			line.ID, line.ReturnID, line.ProductID, line.ProductName, line.Quantity,
			line.UnitPrice, line.Subtotal, line.ReasonCode, line.OriginalOrderLineID,
		})
	}

	if _, err := r.batch.CopyFromSlice(ctx, returnLinesTable, returnLineColumns, rows); err != nil {
		return fmt.Errorf("copy return lines: %w", err)
	}
	return nil
}

func (r *OrderRepo) GetReturn(ctx context.Context, returnID id.ID) (*order.Return, error) {
	sql, args, err := r.builder.Select("id", "order_id", "reference", "total_amount",
		"refund_amount", "refund_method", "state", "notes", "created_by", "created_at").
		From(returnsTable).
		Where(squirrel.Eq{"id": returnID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var ret order.Return
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &ret, sql, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFound("return", returnID)
		}
		return nil, fmt.Errorf("get return: %w", err)
	}
	return &ret, nil
}

func (r *OrderRepo) GetReturnLines(ctx context.Context, returnID id.ID) ([]order.ReturnLine, error) {
	sql, args, err := r.builder.Select(returnLineColumns...).
		From(returnLinesTable).
		Where(squirrel.Eq{"return_id": returnID}).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lines []order.ReturnLine
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("select return lines: %w", err)
	}
	return lines, nil
}
