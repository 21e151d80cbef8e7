// Package ledger_repo provides the PostgreSQL implementation of the
// append-only warehouse movement ledger.
package ledger_repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgconn"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/ledger"
	"stockledger/internal/infrastructure/storage/postgres"
)

const (
	entriesTable  = "ledger_entries"
	balancesTable = "ledger_balances"
)

// uniqueViolation is the PostgreSQL error code for unique constraint violations.
const uniqueViolation = "23505"

// LedgerRepo implements ledger.Store.
//
// Entries are insert-only; the balances table is a cached materialization
// updated in the same transaction as every append, so it can never be
// observed stale across a transaction boundary. Reads still sum the
// entries; the cache only serves row locks and reporting.
type LedgerRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

var _ ledger.Store = (*LedgerRepo)(nil)

// NewLedgerRepo creates a new ledger repository.
func NewLedgerRepo(txManager *postgres.TxManager) *LedgerRepo {
	return &LedgerRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Append inserts one immutable entry and folds it into the cached balance.
func (r *LedgerRepo) Append(ctx context.Context, entry ledger.Entry) (id.ID, error) {
	if !entry.Quantity.IsPositive() {
		return id.Nil(), apperror.NewInvalidQuantity("ledger entry quantity must be positive").
			WithDetail("quantity", int64(entry.Quantity)).
			WithDetail("reference", entry.Reference)
	}
	if entry.Direction != ledger.DirectionIn && entry.Direction != ledger.DirectionOut {
		return id.Nil(), apperror.NewValidation("ledger entry direction must be in or out").
			WithDetail("direction", string(entry.Direction))
	}

	if id.IsNil(entry.ID) {
		entry.ID = id.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	querier := r.txManager.GetQuerier(ctx)

	insertSQL, args, err := r.builder.Insert(entriesTable).
		Columns("id", "product_id", "warehouse_id", "quantity", "direction", "reference", "created_at").
		Values(entry.ID, entry.ProductID, entry.WarehouseID, entry.Quantity, entry.Direction, entry.Reference, entry.CreatedAt).
		ToSql()
	if err != nil {
		return id.Nil(), fmt.Errorf("build insert: %w", err)
	}

	if _, err := querier.Exec(ctx, insertSQL, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			// The partial unique index on compensating references caught a
			// racing writer: exactly one restoration entry may ever exist.
			return id.Nil(), apperror.NewDuplicate("ledger entry", "reference", entry.Reference).WithCause(err)
		}
		return id.Nil(), fmt.Errorf("insert ledger entry: %w", err)
	}

	balanceSQL := `
		INSERT INTO ledger_balances (product_id, warehouse_id, quantity, last_movement_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (product_id, warehouse_id)
		DO UPDATE SET quantity = ledger_balances.quantity + $3, last_movement_at = $4
	`
	if _, err := querier.Exec(ctx, balanceSQL, entry.ProductID, entry.WarehouseID, entry.Signed(), entry.CreatedAt); err != nil {
		return id.Nil(), fmt.Errorf("update cached balance: %w", err)
	}

	return entry.ID, nil
}

// Balance returns the live sum over entries for (product, warehouse).
func (r *LedgerRepo) Balance(ctx context.Context, productID, warehouseID id.ID) (types.Quantity, error) {
	return r.sumEntries(ctx, productID, warehouseID)
}

// BalanceForUpdate locks the (product, warehouse) balance row for the rest
// of the enclosing transaction and returns the live entry sum. The row is
// created on demand so first-ever moves through a warehouse still have
// something to lock.
func (r *LedgerRepo) BalanceForUpdate(ctx context.Context, productID, warehouseID id.ID) (types.Quantity, error) {
	querier := r.txManager.GetQuerier(ctx)
	if r.txManager.GetTx(ctx) == nil {
		return 0, fmt.Errorf("BalanceForUpdate requires transaction context")
	}

	ensureSQL := `
		INSERT INTO ledger_balances (product_id, warehouse_id, quantity, last_movement_at)
		VALUES ($1, $2, 0, $3)
		ON CONFLICT (product_id, warehouse_id) DO NOTHING
	`
	if _, err := querier.Exec(ctx, ensureSQL, productID, warehouseID, time.Now().UTC()); err != nil {
		return 0, fmt.Errorf("ensure balance row: %w", err)
	}

	lockSQL := `
		SELECT quantity FROM ledger_balances
		WHERE product_id = $1 AND warehouse_id = $2
		FOR UPDATE
	`
	var cached types.Quantity
	if err := querier.QueryRow(ctx, lockSQL, productID, warehouseID).Scan(&cached); err != nil {
		return 0, fmt.Errorf("lock balance row: %w", err)
	}

	// The cached value is trustworthy under the lock, but the ledger sum is
	// the source of truth; return that.
	return r.sumEntries(ctx, productID, warehouseID)
}

// EntriesByReference returns all entries recorded under a reference.
func (r *LedgerRepo) EntriesByReference(ctx context.Context, reference string) ([]ledger.Entry, error) {
	q := r.builder.Select(
		"id", "product_id", "warehouse_id", "quantity", "direction", "reference", "created_at",
	).From(entriesTable).
		Where(squirrel.Eq{"reference": reference}).
		OrderBy("created_at")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var entries []ledger.Entry
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &entries, sql, args...); err != nil {
		return nil, fmt.Errorf("select entries: %w", err)
	}

	return entries, nil
}

// EntriesByProduct returns movement history for a product, newest first.
func (r *LedgerRepo) EntriesByProduct(ctx context.Context, productID id.ID, limit, offset int) ([]ledger.Entry, error) {
	q := r.builder.Select(
		"id", "product_id", "warehouse_id", "quantity", "direction", "reference", "created_at",
	).From(entriesTable).
		Where(squirrel.Eq{"product_id": productID}).
		OrderBy("created_at DESC")

	if limit > 0 {
		q = q.Limit(uint64(limit)).Offset(uint64(offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var entries []ledger.Entry
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &entries, sql, args...); err != nil {
		return nil, fmt.Errorf("select entries: %w", err)
	}

	return entries, nil
}

// RecalculateBalance rebuilds the cached row from entries. Maintenance
// operation; the steady-state path never needs it.
func (r *LedgerRepo) RecalculateBalance(ctx context.Context, productID, warehouseID id.ID) error {
	sql := `
		INSERT INTO ledger_balances (product_id, warehouse_id, quantity, last_movement_at)
		SELECT $1, $2,
			COALESCE(SUM(CASE WHEN direction = 'in' THEN quantity ELSE -quantity END), 0),
			COALESCE(MAX(created_at), now())
		FROM ledger_entries
		WHERE product_id = $1 AND warehouse_id = $2
		ON CONFLICT (product_id, warehouse_id)
		DO UPDATE SET quantity = EXCLUDED.quantity, last_movement_at = EXCLUDED.last_movement_at
	`
	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, productID, warehouseID); err != nil {
		return fmt.Errorf("recalculate balance: %w", err)
	}
	return nil
}

func (r *LedgerRepo) sumEntries(ctx context.Context, productID, warehouseID id.ID) (types.Quantity, error) {
	sql := `
		SELECT COALESCE(SUM(CASE WHEN direction = 'in' THEN quantity ELSE -quantity END), 0)
		FROM ledger_entries
		WHERE product_id = $1 AND warehouse_id = $2
	`
	var balance types.Quantity
	querier := r.txManager.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, sql, productID, warehouseID).Scan(&balance); err != nil {
		return 0, fmt.Errorf("sum entries: %w", err)
	}
	return balance, nil
}
