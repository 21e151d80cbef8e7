package movement

import (
	"context"
	"testing"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/catalog"
	"stockledger/internal/domain/ledger"
)

// --- Fakes ---

// nopTxManager satisfies tx.Manager for tests; the fakes have no real
// transactions so fn runs directly.
type nopTxManager struct{}

func (nopTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type memMoveRepo struct {
	moves map[id.ID]*StockMove
}

func newMemMoveRepo() *memMoveRepo {
	return &memMoveRepo{moves: make(map[id.ID]*StockMove)}
}

func (r *memMoveRepo) Create(_ context.Context, move *StockMove) error {
	cp := *move
	r.moves[move.ID] = &cp
	return nil
}

func (r *memMoveRepo) GetByID(_ context.Context, moveID id.ID) (*StockMove, error) {
	move, ok := r.moves[moveID]
	if !ok {
		return nil, apperror.NewNotFound("stock move", moveID)
	}
	cp := *move
	return &cp, nil
}

func (r *memMoveRepo) GetByIDForUpdate(ctx context.Context, moveID id.ID) (*StockMove, error) {
	return r.GetByID(ctx, moveID)
}

func (r *memMoveRepo) Update(_ context.Context, move *StockMove) error {
	if _, ok := r.moves[move.ID]; !ok {
		return apperror.NewNotFound("stock move", move.ID)
	}
	cp := *move
	r.moves[move.ID] = &cp
	return nil
}

func (r *memMoveRepo) List(_ context.Context, filter ListFilter) ([]*StockMove, error) {
	var out []*StockMove
	for _, m := range r.moves {
		if filter.State != nil && m.State != *filter.State {
			continue
		}
		cp := *m
		out = append(out, &cp)
	}
	return out, nil
}

type memLedger struct {
	entries []ledger.Entry
}

func (s *memLedger) Append(_ context.Context, entry ledger.Entry) (id.ID, error) {
	if !entry.Quantity.IsPositive() {
		return id.Nil(), apperror.NewInvalidQuantity("ledger entry quantity must be positive")
	}
	if id.IsNil(entry.ID) {
		entry.ID = id.New()
	}
	s.entries = append(s.entries, entry)
	return entry.ID, nil
}

func (s *memLedger) Balance(_ context.Context, productID, warehouseID id.ID) (types.Quantity, error) {
	var balance types.Quantity
	for _, e := range s.entries {
		if e.ProductID == productID && e.WarehouseID == warehouseID {
			balance += e.Signed()
		}
	}
	return balance, nil
}

func (s *memLedger) BalanceForUpdate(ctx context.Context, productID, warehouseID id.ID) (types.Quantity, error) {
	return s.Balance(ctx, productID, warehouseID)
}

func (s *memLedger) EntriesByReference(_ context.Context, reference string) ([]ledger.Entry, error) {
	var out []ledger.Entry
	for _, e := range s.entries {
		if e.Reference == reference {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *memLedger) EntriesByProduct(_ context.Context, productID id.ID, _, _ int) ([]ledger.Entry, error) {
	var out []ledger.Entry
	for _, e := range s.entries {
		if e.ProductID == productID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *memLedger) RecalculateBalance(context.Context, id.ID, id.ID) error {
	return nil
}

type memCatalog struct {
	locations map[id.ID]catalog.StockLocation
}

func (c *memCatalog) GetProduct(_ context.Context, productID id.ID) (catalog.Product, error) {
	return catalog.Product{ID: productID, Name: "product"}, nil
}

func (c *memCatalog) GetLocation(_ context.Context, locationID id.ID) (catalog.StockLocation, error) {
	loc, ok := c.locations[locationID]
	if !ok {
		return catalog.StockLocation{}, apperror.NewNotFound("stock location", locationID)
	}
	return loc, nil
}

func (c *memCatalog) GetWarehouse(_ context.Context, warehouseID id.ID) (catalog.Warehouse, error) {
	return catalog.Warehouse{ID: warehouseID}, nil
}

func (c *memCatalog) ListLocations(_ context.Context) ([]catalog.StockLocation, error) {
	var out []catalog.StockLocation
	for _, l := range c.locations {
		out = append(out, l)
	}
	return out, nil
}

// --- Fixture ---

type fixture struct {
	manager *Manager
	moves   *memMoveRepo
	store   *memLedger
	cat     *memCatalog

	productID  id.ID
	mainLoc    catalog.StockLocation
	returnsLoc catalog.StockLocation
	supplier   catalog.StockLocation
	customer   catalog.StockLocation
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	mainWH := id.New()
	returnsWH := id.New()

	f := &fixture{
		moves:     newMemMoveRepo(),
		store:     &memLedger{},
		cat:       &memCatalog{locations: make(map[id.ID]catalog.StockLocation)},
		productID: id.New(),
		mainLoc: catalog.StockLocation{
			ID: id.New(), Name: "Main stock", Kind: catalog.LocationInternal, WarehouseID: &mainWH,
		},
		returnsLoc: catalog.StockLocation{
			ID: id.New(), Name: "Returns stock", Kind: catalog.LocationInternal, WarehouseID: &returnsWH,
		},
		supplier: catalog.StockLocation{
			ID: id.New(), Name: "Suppliers", Kind: catalog.LocationSupplier,
		},
		customer: catalog.StockLocation{
			ID: id.New(), Name: "Customers", Kind: catalog.LocationCustomer,
		},
	}
	for _, loc := range []catalog.StockLocation{f.mainLoc, f.returnsLoc, f.supplier, f.customer} {
		f.cat.locations[loc.ID] = loc
	}

	f.manager = NewManager(f.moves, f.store, f.cat, nopTxManager{})
	return f
}

// receive puts qty units into the main warehouse via a confirmed supplier move.
func (f *fixture) receive(t *testing.T, qty types.Quantity) {
	t.Helper()
	ctx := context.Background()

	move := NewStockMove(f.productID, f.supplier.ID, f.mainLoc.ID, qty, "tester")
	if err := f.manager.Create(ctx, move); err != nil {
		t.Fatalf("create receipt: %v", err)
	}
	if err := f.manager.Confirm(ctx, move.ID, "approver", ""); err != nil {
		t.Fatalf("confirm receipt: %v", err)
	}
}

func (f *fixture) balance(t *testing.T, loc catalog.StockLocation) types.Quantity {
	t.Helper()
	balance, err := f.store.Balance(context.Background(), f.productID, *loc.WarehouseID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	return balance
}

// --- Tests ---

func TestConfirm_PostsBothSides(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.receive(t, 100)

	move := NewStockMove(f.productID, f.mainLoc.ID, f.returnsLoc.ID, 30, "tester")
	if err := f.manager.Create(ctx, move); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := f.manager.Confirm(ctx, move.ID, "approver", "ok to move"); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	if got := f.balance(t, f.mainLoc); got != 70 {
		t.Errorf("main balance = %d, want 70", got)
	}
	if got := f.balance(t, f.returnsLoc); got != 30 {
		t.Errorf("returns balance = %d, want 30", got)
	}

	saved, _ := f.moves.GetByID(ctx, move.ID)
	if saved.State != StateConfirmed {
		t.Errorf("state = %s, want confirmed", saved.State)
	}
	if saved.ApprovedBy != "approver" || saved.ApprovedAt == nil {
		t.Error("approver metadata not recorded")
	}
	if saved.ApprovalNotes != "ok to move" {
		t.Errorf("approval notes = %q", saved.ApprovalNotes)
	}

	entries, _ := f.store.EntriesByReference(ctx, MoveReference(move.ID))
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
}

func TestConfirm_VirtualSourcePostsOnlyIn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	move := NewStockMove(f.productID, f.supplier.ID, f.mainLoc.ID, 10, "tester")
	if err := f.manager.Create(ctx, move); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := f.manager.Confirm(ctx, move.ID, "approver", ""); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	entries, _ := f.store.EntriesByReference(ctx, MoveReference(move.ID))
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if entries[0].Direction != ledger.DirectionIn {
		t.Errorf("direction = %s, want in", entries[0].Direction)
	}
}

func TestConfirm_InsufficientBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.receive(t, 5)

	move := NewStockMove(f.productID, f.mainLoc.ID, f.customer.ID, 10, "tester")
	if err := f.manager.Create(ctx, move); err != nil {
		t.Fatalf("create: %v", err)
	}

	err := f.manager.Confirm(ctx, move.ID, "approver", "")
	appErr, ok := apperror.AsAppError(err)
	if !ok || appErr.Code != apperror.CodeInsufficientBalance {
		t.Fatalf("expected INSUFFICIENT_BALANCE, got %v", err)
	}

	// Nothing posted, move still draft.
	if got := f.balance(t, f.mainLoc); got != 5 {
		t.Errorf("balance = %d, want 5", got)
	}
	saved, _ := f.moves.GetByID(ctx, move.ID)
	if saved.State != StateDraft {
		t.Errorf("state = %s, want draft", saved.State)
	}
}

func TestConfirm_OnlyFromDraft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.receive(t, 100)

	move := NewStockMove(f.productID, f.mainLoc.ID, f.returnsLoc.ID, 10, "tester")
	if err := f.manager.Create(ctx, move); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := f.manager.Confirm(ctx, move.ID, "approver", ""); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	err := f.manager.Confirm(ctx, move.ID, "approver", "")
	appErr, ok := apperror.AsAppError(err)
	if !ok || appErr.Code != apperror.CodeInvalidState {
		t.Fatalf("expected INVALID_STATE, got %v", err)
	}

	// Double confirm must not double the ledger effect.
	if got := f.balance(t, f.returnsLoc); got != 10 {
		t.Errorf("returns balance = %d, want 10", got)
	}
}

func TestReject_RestoresConfirmedMoveOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.receive(t, 100)

	move := NewStockMove(f.productID, f.mainLoc.ID, f.customer.ID, 40, "tester")
	if err := f.manager.Create(ctx, move); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := f.manager.Confirm(ctx, move.ID, "approver", ""); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if got := f.balance(t, f.mainLoc); got != 60 {
		t.Fatalf("balance after confirm = %d, want 60", got)
	}

	if err := f.manager.Reject(ctx, move.ID, "approver", "damaged truck"); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if got := f.balance(t, f.mainLoc); got != 100 {
		t.Errorf("balance after reject = %d, want 100", got)
	}

	comp, _ := f.store.EntriesByReference(ctx, RejectReference(move.ID))
	if len(comp) != 1 {
		t.Fatalf("compensating entries = %d, want 1", len(comp))
	}
	if comp[0].Direction != ledger.DirectionIn {
		t.Errorf("compensating direction = %s, want in", comp[0].Direction)
	}

	saved, _ := f.moves.GetByID(ctx, move.ID)
	if saved.State != StateRejected {
		t.Errorf("state = %s, want rejected", saved.State)
	}
}

func TestReject_IdempotentOnRetry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.receive(t, 50)

	move := NewStockMove(f.productID, f.mainLoc.ID, f.customer.ID, 20, "tester")
	if err := f.manager.Create(ctx, move); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := f.manager.Confirm(ctx, move.ID, "approver", ""); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	if err := f.manager.Reject(ctx, move.ID, "approver", ""); err != nil {
		t.Fatalf("first reject: %v", err)
	}
	// Retry must succeed without a second compensating entry.
	if err := f.manager.Reject(ctx, move.ID, "approver", ""); err != nil {
		t.Fatalf("second reject: %v", err)
	}

	if got := f.balance(t, f.mainLoc); got != 50 {
		t.Errorf("balance = %d, want 50", got)
	}
	comp, _ := f.store.EntriesByReference(ctx, RejectReference(move.ID))
	if len(comp) != 1 {
		t.Errorf("compensating entries = %d, want exactly 1", len(comp))
	}
}

func TestReject_DraftHasNoLedgerEffect(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	move := NewStockMove(f.productID, f.mainLoc.ID, f.customer.ID, 20, "tester")
	if err := f.manager.Create(ctx, move); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := f.manager.Reject(ctx, move.ID, "approver", ""); err != nil {
		t.Fatalf("reject: %v", err)
	}

	if len(f.store.entries) != 0 {
		t.Errorf("entries = %d, want 0", len(f.store.entries))
	}
	saved, _ := f.moves.GetByID(ctx, move.ID)
	if saved.State != StateRejected {
		t.Errorf("state = %s, want rejected", saved.State)
	}
}

func TestReject_DoneMoveFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.receive(t, 50)

	move := NewStockMove(f.productID, f.mainLoc.ID, f.customer.ID, 10, "tester")
	if err := f.manager.Create(ctx, move); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := f.manager.Confirm(ctx, move.ID, "approver", ""); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if err := f.manager.Complete(ctx, move.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}

	err := f.manager.Reject(ctx, move.ID, "approver", "")
	appErr, ok := apperror.AsAppError(err)
	if !ok || appErr.Code != apperror.CodeInvalidState {
		t.Fatalf("expected INVALID_STATE, got %v", err)
	}
}

func TestComplete_OnlyFromConfirmed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.receive(t, 50)

	move := NewStockMove(f.productID, f.mainLoc.ID, f.customer.ID, 10, "tester")
	if err := f.manager.Create(ctx, move); err != nil {
		t.Fatalf("create: %v", err)
	}

	// Draft cannot complete.
	err := f.manager.Complete(ctx, move.ID)
	if appErr, ok := apperror.AsAppError(err); !ok || appErr.Code != apperror.CodeInvalidState {
		t.Fatalf("expected INVALID_STATE, got %v", err)
	}

	if err := f.manager.Confirm(ctx, move.ID, "approver", ""); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	balanceBefore := f.balance(t, f.mainLoc)

	if err := f.manager.Complete(ctx, move.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}

	// Complete has no ledger effect; the stock moved at confirm.
	if got := f.balance(t, f.mainLoc); got != balanceBefore {
		t.Errorf("balance changed on complete: %d -> %d", balanceBefore, got)
	}
	saved, _ := f.moves.GetByID(ctx, move.ID)
	if saved.State != StateDone {
		t.Errorf("state = %s, want done", saved.State)
	}
}

func TestCreate_RejectsSameSourceAndDestination(t *testing.T) {
	f := newFixture(t)

	move := NewStockMove(f.productID, f.mainLoc.ID, f.mainLoc.ID, 10, "tester")
	err := f.manager.Create(context.Background(), move)
	if appErr, ok := apperror.AsAppError(err); !ok || appErr.Code != apperror.CodeValidation {
		t.Fatalf("expected VALIDATION error, got %v", err)
	}
}

func TestCreate_RejectsNonPositiveQuantity(t *testing.T) {
	f := newFixture(t)

	move := NewStockMove(f.productID, f.mainLoc.ID, f.customer.ID, 0, "tester")
	err := f.manager.Create(context.Background(), move)
	if appErr, ok := apperror.AsAppError(err); !ok || appErr.Code != apperror.CodeInvalidQuantity {
		t.Fatalf("expected INVALID_QUANTITY, got %v", err)
	}
}
