package ledger

import (
	"context"

	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
)

// Store is the durable append-only movement log.
//
// Implementations may cache balances, but a cache must be updated in the
// same transaction as the append it reflects: a stale balance must never
// be served across a logical transaction boundary.
type Store interface {
	// Append writes one immutable entry.
	// Fails with INVALID_QUANTITY if entry.Quantity <= 0.
	Append(ctx context.Context, entry Entry) (id.ID, error)

	// Balance returns the live sum over all entries for (product, warehouse).
	Balance(ctx context.Context, productID, warehouseID id.ID) (types.Quantity, error)

	// BalanceForUpdate returns the balance while holding a row lock on the
	// (product, warehouse) key for the rest of the enclosing transaction.
	// Concurrent confirm calls against the same key serialize here, so a
	// balance check and the append it guards are atomic.
	BalanceForUpdate(ctx context.Context, productID, warehouseID id.ID) (types.Quantity, error)

	// EntriesByReference returns all entries recorded under a reference,
	// e.g. "move:<id>" or "reject:<id>". Used for idempotency checks on
	// compensating entries.
	EntriesByReference(ctx context.Context, reference string) ([]Entry, error)

	// EntriesByProduct returns a product's movement history, newest first.
	EntriesByProduct(ctx context.Context, productID id.ID, limit, offset int) ([]Entry, error)

	// RecalculateBalance rebuilds the cached balance row from entries.
	// Maintenance operation; the steady-state path keeps the cache current.
	RecalculateBalance(ctx context.Context, productID, warehouseID id.ID) error
}
