package postgres

import (
	"bytes"
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"stockledger/internal/core/id"
	"stockledger/internal/domain/audit"
)

// recordingTx captures the SQL and arguments of the last Exec so tests can
// assert what would go over the wire.
type recordingTx struct {
	pgx.Tx

	sql  string
	args []any
}

func (t *recordingTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	t.sql = sql
	t.args = args
	return pgconn.CommandTag{}, nil
}

func newAuditFixture(t *testing.T) (*AuditStore, *recordingTx, context.Context) {
	t.Helper()

	store, err := NewAuditStore(&TxManager{})
	if err != nil {
		t.Fatalf("NewAuditStore: %v", err)
	}

	rec := &recordingTx{}
	ctx := context.WithValue(context.Background(), txKey{}, &Tx{Tx: rec})
	return store, rec, ctx
}

func TestAuditRecord_SmallPayloadStoredUncompressed(t *testing.T) {
	store, rec, ctx := newAuditFixture(t)
	payload := []byte(`{"state":"confirmed"}`)

	err := store.Record(ctx, audit.Entry{
		EntityType: "stock_move",
		EntityID:   id.New(),
		Action:     audit.ActionConfirm,
		ActorID:    "approver",
		Payload:    payload,
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	if len(rec.args) != 9 {
		t.Fatalf("args = %d, want 9", len(rec.args))
	}

	// $6 payload carries the bytes, $7 payload_compressed is a boolean.
	got, ok := rec.args[5].([]byte)
	if !ok || !bytes.Equal(got, payload) {
		t.Errorf("payload arg = %v (%T), want original bytes", rec.args[5], rec.args[5])
	}
	flag, ok := rec.args[6].(bool)
	if !ok {
		t.Fatalf("payload_compressed arg is %T, want bool", rec.args[6])
	}
	if flag {
		t.Error("payload_compressed = true for a small payload")
	}
	if rec.args[7] != CompressionNone {
		t.Errorf("compression_algo = %v, want %v", rec.args[7], CompressionNone)
	}
}

func TestAuditRecord_LargePayloadCompressedRoundTrips(t *testing.T) {
	store, rec, ctx := newAuditFixture(t)
	payload := bytes.Repeat([]byte(`{"line":"returned"}`), 1024) // > 10KB

	err := store.Record(ctx, audit.Entry{
		EntityType: "return",
		EntityID:   id.New(),
		Action:     audit.ActionReturn,
		ActorID:    "clerk-7",
		Payload:    payload,
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	stored, ok := rec.args[5].([]byte)
	if !ok || len(stored) == 0 {
		t.Fatalf("payload arg = %v (%T), want compressed bytes", rec.args[5], rec.args[5])
	}
	if bytes.Equal(stored, payload) {
		t.Error("payload stored uncompressed above the threshold")
	}
	flag, ok := rec.args[6].(bool)
	if !ok || !flag {
		t.Fatalf("payload_compressed arg = %v (%T), want true", rec.args[6], rec.args[6])
	}
	if rec.args[7] != CompressionZstd {
		t.Errorf("compression_algo = %v, want %v", rec.args[7], CompressionZstd)
	}

	restored, err := store.Decompress(stored)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if !bytes.Equal(restored, payload) {
		t.Error("decompressed payload differs from original")
	}
}
