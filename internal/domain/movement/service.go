package movement

import (
	"context"
	"fmt"
	"time"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/core/tx"
	"stockledger/internal/domain/catalog"
	"stockledger/internal/domain/ledger"
	"stockledger/pkg/logger"
)

// Manager owns the move state machine:
//
//	draft -confirm-> confirmed -complete-> done
//	draft|confirmed -reject-> rejected
//
// Ledger effects are applied once, at confirm time, so reject always has a
// well-defined compensating action no matter how long a move sat confirmed.
type Manager struct {
	moves     Repository
	store     ledger.Store
	catalog   catalog.Repository
	txManager tx.Manager
}

// NewManager creates a new stock movement manager.
func NewManager(moves Repository, store ledger.Store, cat catalog.Repository, txManager tx.Manager) *Manager {
	return &Manager{
		moves:     moves,
		store:     store,
		catalog:   cat,
		txManager: txManager,
	}
}

// Create validates and persists a draft move.
func (m *Manager) Create(ctx context.Context, move *StockMove) error {
	if err := move.Validate(ctx); err != nil {
		return err
	}

	if _, err := m.catalog.GetLocation(ctx, move.SourceLocationID); err != nil {
		return fmt.Errorf("resolve source location: %w", err)
	}
	if _, err := m.catalog.GetLocation(ctx, move.DestinationLocationID); err != nil {
		return fmt.Errorf("resolve destination location: %w", err)
	}

	if err := m.moves.Create(ctx, move); err != nil {
		return fmt.Errorf("create move: %w", err)
	}

	logger.Info(ctx, "stock move created",
		"move_id", move.ID,
		"product_id", move.ProductID,
		"quantity", move.Quantity,
	)
	return nil
}

// Get returns a move by id.
func (m *Manager) Get(ctx context.Context, moveID id.ID) (*StockMove, error) {
	return m.moves.GetByID(ctx, moveID)
}

// List returns moves matching the filter.
func (m *Manager) List(ctx context.Context, filter ListFilter) ([]*StockMove, error) {
	return m.moves.List(ctx, filter)
}

// Confirm accepts a draft move and posts its ledger entries.
//
// If the source is a warehouse location, the source balance is read under a
// row lock and the move fails with INSUFFICIENT_BALANCE when the post-move
// balance would go negative. The lock is held until commit, so two
// concurrent confirms against the same (product, warehouse) cannot both
// pass the check against a stale balance.
func (m *Manager) Confirm(ctx context.Context, moveID id.ID, approverID, notes string) error {
	err := m.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		move, err := m.moves.GetByIDForUpdate(ctx, moveID)
		if err != nil {
			return err
		}
		if move.State != StateDraft {
			return apperror.NewInvalidState(move.ID.String(), string(move.State), string(StateDraft))
		}

		source, err := m.catalog.GetLocation(ctx, move.SourceLocationID)
		if err != nil {
			return fmt.Errorf("resolve source location: %w", err)
		}
		dest, err := m.catalog.GetLocation(ctx, move.DestinationLocationID)
		if err != nil {
			return fmt.Errorf("resolve destination location: %w", err)
		}

		reference := MoveReference(move.ID)

		if source.IsWarehouse() {
			balance, err := m.store.BalanceForUpdate(ctx, move.ProductID, *source.WarehouseID)
			if err != nil {
				return fmt.Errorf("source balance: %w", err)
			}
			if balance < move.Quantity {
				return apperror.NewInsufficientBalance(
					move.ProductID.String(),
					source.WarehouseID.String(),
					int64(move.Quantity),
					int64(balance),
				)
			}
			entry := ledger.NewEntry(move.ProductID, *source.WarehouseID, move.Quantity, ledger.DirectionOut, reference)
			if _, err := m.store.Append(ctx, entry); err != nil {
				return fmt.Errorf("append out entry: %w", err)
			}
		}

		if dest.IsWarehouse() {
			entry := ledger.NewEntry(move.ProductID, *dest.WarehouseID, move.Quantity, ledger.DirectionIn, reference)
			if _, err := m.store.Append(ctx, entry); err != nil {
				return fmt.Errorf("append in entry: %w", err)
			}
		}

		move.State = StateConfirmed
		move.ApprovedBy = approverID
		move.ApprovalNotes = notes
		now := time.Now().UTC()
		move.ApprovedAt = &now

		return m.moves.Update(ctx, move)
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "stock move confirmed", "move_id", moveID, "approved_by", approverID)
	return nil
}

// Reject refuses a draft or confirmed move and restores any stock the
// confirm already took out of the source warehouse.
//
// Restoration is idempotent: the compensating entry is keyed by
// RejectReference(moveID) and never appended twice. Rejecting an
// already-rejected move is a successful no-op, which makes retries safe.
func (m *Manager) Reject(ctx context.Context, moveID id.ID, approverID, notes string) error {
	var restored bool

	err := m.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		move, err := m.moves.GetByIDForUpdate(ctx, moveID)
		if err != nil {
			return err
		}

		switch move.State {
		case StateRejected:
			// Retry of a completed reject.
			return nil
		case StateDraft, StateConfirmed:
		default:
			return apperror.NewInvalidState(move.ID.String(), string(move.State), "draft or confirmed")
		}

		// Query-then-append runs inside the transaction; the unique index on
		// the reject reference catches the racing writer this check cannot see.
		existing, err := m.store.EntriesByReference(ctx, RejectReference(move.ID))
		if err != nil {
			return fmt.Errorf("check compensating entries: %w", err)
		}

		if len(existing) == 0 {
			posted, err := m.store.EntriesByReference(ctx, MoveReference(move.ID))
			if err != nil {
				return fmt.Errorf("load posted entries: %w", err)
			}
			for _, e := range posted {
				if e.Direction != ledger.DirectionOut {
					continue
				}
				comp := ledger.NewEntry(e.ProductID, e.WarehouseID, e.Quantity, ledger.DirectionIn, RejectReference(move.ID))
				if _, err := m.store.Append(ctx, comp); err != nil {
					return fmt.Errorf("append compensating entry: %w", err)
				}
				restored = true
			}
		}

		move.State = StateRejected
		move.ApprovedBy = approverID
		move.ApprovalNotes = notes
		now := time.Now().UTC()
		move.ApprovedAt = &now

		return m.moves.Update(ctx, move)
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "stock move rejected",
		"move_id", moveID,
		"approved_by", approverID,
		"stock_restored", restored,
	)
	return nil
}

// Complete marks a confirmed move as physically done. No ledger effect:
// the ledger already moved at confirm.
func (m *Manager) Complete(ctx context.Context, moveID id.ID) error {
	err := m.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		move, err := m.moves.GetByIDForUpdate(ctx, moveID)
		if err != nil {
			return err
		}
		if move.State != StateConfirmed {
			return apperror.NewInvalidState(move.ID.String(), string(move.State), string(StateConfirmed))
		}

		move.State = StateDone
		return m.moves.Update(ctx, move)
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "stock move completed", "move_id", moveID)
	return nil
}
