package allocation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/order"
)

// fakeOrderRepo keeps lines in memory and enforces the returned-quantity
// bound the way the SQL implementation does.
type fakeOrderRepo struct {
	order.Repository

	lines []order.OrderLine
}

func (f *fakeOrderRepo) GetLinesForUpdate(_ context.Context, orderID, productID id.ID) ([]order.OrderLine, error) {
	var out []order.OrderLine
	for _, l := range f.lines {
		if l.OrderID == orderID && l.ProductID == productID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeOrderRepo) IncrementReturned(_ context.Context, lineID id.ID, qty types.Quantity) error {
	for i := range f.lines {
		if f.lines[i].ID == lineID {
			if f.lines[i].ReturnedQuantity+qty > f.lines[i].Quantity {
				return apperror.NewConflict("returned quantity would exceed line quantity")
			}
			f.lines[i].ReturnedQuantity += qty
			return nil
		}
	}
	return apperror.NewNotFound("order line", lineID)
}

func (f *fakeOrderRepo) lineByID(lineID id.ID) order.OrderLine {
	for _, l := range f.lines {
		if l.ID == lineID {
			return l
		}
	}
	return order.OrderLine{}
}

func newLine(orderID, productID id.ID, qty, returned types.Quantity, price string) order.OrderLine {
	return order.OrderLine{
		ID:               id.New(),
		OrderID:          orderID,
		ProductID:        productID,
		Quantity:         qty,
		UnitPrice:        types.MustMoney(price),
		ReturnedQuantity: returned,
	}
}

func TestAllocate_SpreadsAcrossLinesOldestFirst(t *testing.T) {
	orderID := id.New()
	productID := id.New()

	// id.New() is time-ordered, so declaration order is allocation order.
	first := newLine(orderID, productID, 10, 0, "2.50")
	second := newLine(orderID, productID, 5, 0, "2.30")
	repo := &fakeOrderRepo{lines: []order.OrderLine{first, second}}

	res, err := NewEngine(repo).Allocate(context.Background(), orderID, productID, 12)
	require.NoError(t, err)

	require.Len(t, res.Lines, 2)
	assert.Equal(t, first.ID, res.Lines[0].OriginalOrderLineID)
	assert.Equal(t, types.Quantity(10), res.Lines[0].Quantity)
	assert.Equal(t, second.ID, res.Lines[1].OriginalOrderLineID)
	assert.Equal(t, types.Quantity(2), res.Lines[1].Quantity)

	assert.Equal(t, types.Quantity(12), res.Allocated)
	assert.False(t, res.Capped)

	// Prices inherited from the original lines, and increments persisted.
	assert.Equal(t, "2.50", res.Lines[0].UnitPrice.StringFixed(2))
	assert.Equal(t, "2.30", res.Lines[1].UnitPrice.StringFixed(2))
	assert.Equal(t, types.Quantity(10), repo.lineByID(first.ID).ReturnedQuantity)
	assert.Equal(t, types.Quantity(2), repo.lineByID(second.ID).ReturnedQuantity)
}

func TestAllocate_CapsAtTotalReturnable(t *testing.T) {
	orderID := id.New()
	productID := id.New()
	line := newLine(orderID, productID, 10, 4, "1.00")
	repo := &fakeOrderRepo{lines: []order.OrderLine{line}}

	res, err := NewEngine(repo).Allocate(context.Background(), orderID, productID, 9)
	require.NoError(t, err)

	assert.True(t, res.Capped)
	assert.Equal(t, types.Quantity(9), res.Requested)
	assert.Equal(t, types.Quantity(6), res.Allocated)
	assert.Equal(t, types.Quantity(10), repo.lineByID(line.ID).ReturnedQuantity)
}

func TestAllocate_SkipsExhaustedLines(t *testing.T) {
	orderID := id.New()
	productID := id.New()
	exhausted := newLine(orderID, productID, 5, 5, "3.00")
	open := newLine(orderID, productID, 5, 0, "2.00")
	repo := &fakeOrderRepo{lines: []order.OrderLine{exhausted, open}}

	res, err := NewEngine(repo).Allocate(context.Background(), orderID, productID, 3)
	require.NoError(t, err)

	require.Len(t, res.Lines, 1)
	assert.Equal(t, open.ID, res.Lines[0].OriginalOrderLineID)
	assert.Equal(t, types.Quantity(3), res.Allocated)
}

func TestAllocate_ProductNotInOrder(t *testing.T) {
	orderID := id.New()
	repo := &fakeOrderRepo{}

	_, err := NewEngine(repo).Allocate(context.Background(), orderID, id.New(), 1)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeNoMatchingLines, appErr.Code)
	assert.Equal(t, ReasonProductNotInOrder, appErr.Details["reason"])
}

func TestAllocate_NothingReturnable(t *testing.T) {
	orderID := id.New()
	productID := id.New()
	repo := &fakeOrderRepo{lines: []order.OrderLine{
		newLine(orderID, productID, 5, 5, "3.00"),
	}}

	_, err := NewEngine(repo).Allocate(context.Background(), orderID, productID, 1)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeNoMatchingLines, appErr.Code)
	assert.Equal(t, ReasonNothingReturnable, appErr.Details["reason"])
}

func TestAllocate_RejectsNonPositiveQuantity(t *testing.T) {
	repo := &fakeOrderRepo{}

	for _, qty := range []types.Quantity{0, -3} {
		_, err := NewEngine(repo).Allocate(context.Background(), id.New(), id.New(), qty)
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok, "quantity %d", qty)
		assert.Equal(t, apperror.CodeInvalidQuantity, appErr.Code)
	}
}

func TestAllocate_Deterministic(t *testing.T) {
	orderID := id.New()
	productID := id.New()
	a := newLine(orderID, productID, 3, 0, "1.00")
	b := newLine(orderID, productID, 3, 0, "1.00")

	// Same lines presented in reverse order must allocate identically.
	repo := &fakeOrderRepo{lines: []order.OrderLine{b, a}}

	res, err := NewEngine(repo).Allocate(context.Background(), orderID, productID, 4)
	require.NoError(t, err)

	require.Len(t, res.Lines, 2)
	assert.Equal(t, a.ID, res.Lines[0].OriginalOrderLineID)
	assert.Equal(t, types.Quantity(3), res.Lines[0].Quantity)
	assert.Equal(t, b.ID, res.Lines[1].OriginalOrderLineID)
	assert.Equal(t, types.Quantity(1), res.Lines[1].Quantity)
}
