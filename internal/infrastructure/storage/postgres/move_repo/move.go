// Package move_repo provides the PostgreSQL implementation of the stock
// move repository.
package move_repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/domain/movement"
	"stockledger/internal/infrastructure/storage/postgres"
)

const movesTable = "stock_moves"

var moveColumns = []string{
	"id", "product_id", "source_location_id", "destination_location_id",
	"quantity", "state", "reference", "notes", "approval_notes",
	"created_by", "approved_by", "approved_at", "created_at",
}

// MoveRepo implements movement.Repository.
type MoveRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

var _ movement.Repository = (*MoveRepo)(nil)

// NewMoveRepo creates a new stock move repository.
func NewMoveRepo(txManager *postgres.TxManager) *MoveRepo {
	return &MoveRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *MoveRepo) Create(ctx context.Context, move *movement.StockMove) error {
	sql, args, err := r.builder.Insert(movesTable).
		Columns(moveColumns...).
		Values(
			move.ID, move.ProductID, move.SourceLocationID, move.DestinationLocationID,
			move.Quantity, move.State, move.Reference, move.Notes, move.ApprovalNotes,
			move.CreatedBy, move.ApprovedBy, move.ApprovedAt, move.CreatedAt,
		).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert stock move: %w", err)
	}
	return nil
}

func (r *MoveRepo) GetByID(ctx context.Context, moveID id.ID) (*movement.StockMove, error) {
	return r.getByID(ctx, moveID, false)
}

func (r *MoveRepo) GetByIDForUpdate(ctx context.Context, moveID id.ID) (*movement.StockMove, error) {
	if r.txManager.GetTx(ctx) == nil {
		return nil, fmt.Errorf("GetByIDForUpdate requires transaction context")
	}
	return r.getByID(ctx, moveID, true)
}

func (r *MoveRepo) getByID(ctx context.Context, moveID id.ID, forUpdate bool) (*movement.StockMove, error) {
	q := r.builder.Select(moveColumns...).
		From(movesTable).
		Where(squirrel.Eq{"id": moveID})
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var move movement.StockMove
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &move, sql, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFound("stock move", moveID)
		}
		return nil, fmt.Errorf("get stock move: %w", err)
	}
	return &move, nil
}

// Update persists the mutable fields: state, approver and approval metadata.
// Identity, endpoints and quantity are immutable after creation.
func (r *MoveRepo) Update(ctx context.Context, move *movement.StockMove) error {
	sql, args, err := r.builder.Update(movesTable).
		Set("state", move.State).
		Set("approval_notes", move.ApprovalNotes).
		Set("approved_by", move.ApprovedBy).
		Set("approved_at", move.ApprovedAt).
		Where(squirrel.Eq{"id": move.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update stock move: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("stock move", move.ID)
	}
	return nil
}

func (r *MoveRepo) List(ctx context.Context, filter movement.ListFilter) ([]*movement.StockMove, error) {
	sql, args, err := r.buildListQuery(filter)
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var moves []*movement.StockMove
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &moves, sql, args...); err != nil {
		return nil, fmt.Errorf("list stock moves: %w", err)
	}
	return moves, nil
}

func (r *MoveRepo) buildListQuery(filter movement.ListFilter) (string, []any, error) {
	q := r.builder.Select(moveColumns...).
		From(movesTable).
		OrderBy("created_at DESC")

	if filter.State != nil {
		q = q.Where(squirrel.Eq{"state": *filter.State})
	}
	if filter.ProductID != nil {
		q = q.Where(squirrel.Eq{"product_id": *filter.ProductID})
	}
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit)).Offset(uint64(filter.Offset))
	}

	return q.ToSql()
}
