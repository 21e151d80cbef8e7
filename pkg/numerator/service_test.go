package numerator

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
)

type mockRow struct {
	val int64
	err error
}

func (m *mockRow) Scan(dest ...any) error {
	if m.err != nil {
		return m.err
	}
	if len(dest) > 0 {
		if ptr, ok := dest[0].(*int64); ok {
			*ptr = m.val
		}
	}
	return nil
}

// mockQuerier simulates the sys_sequences UPSERT..RETURNING for both
// strategies: strict passes (prefix, year) and increments by 1, cached
// passes (key, rangeSize) and increments by the range size.
type mockQuerier struct {
	mu           sync.Mutex
	currentValue int64
	queries      int
}

func (m *mockQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries++

	var increment int64 = 1
	if len(args) == 2 {
		if val, ok := args[1].(int64); ok {
			increment = val
		}
	}

	m.currentValue += increment
	return &mockRow{val: m.currentValue}
}

func TestGetNextNumber_Strict(t *testing.T) {
	q := &mockQuerier{}
	svc := New(q)
	ctx := context.Background()
	cfg := DefaultConfig("RET")
	year := time.Now().Year()

	num, err := svc.GetNextNumber(ctx, cfg, nil, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := fmt.Sprintf("RET-%d-00001", year); num != want {
		t.Errorf("expected %s, got %s", want, num)
	}

	num, err = svc.GetNextNumber(ctx, cfg, nil, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := fmt.Sprintf("RET-%d-00002", year); num != want {
		t.Errorf("expected %s, got %s", want, num)
	}
}

func TestGetNextNumber_CachedAllocatesRangeOnce(t *testing.T) {
	q := &mockQuerier{}
	svc := New(q)
	ctx := context.Background()
	cfg := DefaultConfig("MOV")
	year := time.Now().Year()

	opts := &Options{Strategy: StrategyCached, RangeSize: 10}

	for i := 1; i <= 10; i++ {
		num, err := svc.GetNextNumber(ctx, cfg, opts, time.Now())
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		if want := fmt.Sprintf("MOV-%d-%05d", year, i); num != want {
			t.Errorf("call %d: expected %s, got %s", i, want, num)
		}
	}

	// Ten numbers from one range allocation.
	if q.queries != 1 {
		t.Errorf("db queries = %d, want 1", q.queries)
	}

	// Eleventh number triggers a refill.
	if _, err := svc.GetNextNumber(ctx, cfg, opts, time.Now()); err != nil {
		t.Fatalf("refill call: %v", err)
	}
	if q.queries != 2 {
		t.Errorf("db queries = %d, want 2", q.queries)
	}
}

func TestGetNextNumber_NilService(t *testing.T) {
	var svc *Service
	if _, err := svc.GetNextNumber(context.Background(), DefaultConfig("X"), nil, time.Now()); err == nil {
		t.Fatal("expected error from nil service")
	}
}

func TestFormatNumber_NoYear(t *testing.T) {
	svc := New(&mockQuerier{})
	cfg := Config{Prefix: "TRX", IncludeYear: false, PadWidth: 3}

	got := svc.formatNumber(cfg, time.Now(), 42)
	if got != "TRX-042" {
		t.Errorf("expected TRX-042, got %s", got)
	}
}
