package storage

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	errs "ChatRelay/tools/errs"
)

func testRecord(value string, expireAt int64) Record {
	return Record{
		"value":       value,
		FieldExpireAt: strconv.FormatInt(expireAt, 10),
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGateway()

	if err := g.Put(ctx, "users", "alice", testRecord("a", 0), CondNone); err != nil {
		t.Fatalf("put: %v", err)
	}

	rec, err := g.Get(ctx, "users", "alice")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec["value"] != "a" {
		t.Errorf("got value %q, want %q", rec["value"], "a")
	}

	if _, err := g.Get(ctx, "users", "bob"); !errors.Is(err, errs.ErrRecordNotFound) {
		t.Errorf("get missing key: got %v, want ErrRecordNotFound", err)
	}
}

func TestConditionalPut(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGateway()

	if err := g.Put(ctx, "users", "alice", testRecord("a", 0), CondIfAbsent); err != nil {
		t.Fatalf("first put: %v", err)
	}
	err := g.Put(ctx, "users", "alice", testRecord("b", 0), CondIfAbsent)
	if !errors.Is(err, errs.ErrConditionFailed) {
		t.Fatalf("second put: got %v, want ErrConditionFailed", err)
	}

	rec, err := g.Get(ctx, "users", "alice")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec["value"] != "a" {
		t.Errorf("record overwritten despite failed condition: %q", rec["value"])
	}
}

func TestTransactWriteAtomic(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGateway()

	if err := g.Put(ctx, "conns", "conn-1", testRecord("taken", 0), CondNone); err != nil {
		t.Fatalf("seed: %v", err)
	}

	err := g.TransactWrite(ctx, []TxOp{
		{Kind: OpPut, Table: "users", Key: "alice", Rec: testRecord("a", 0), Cond: CondIfAbsent},
		{Kind: OpPut, Table: "conns", Key: "conn-1", Rec: testRecord("b", 0), Cond: CondIfAbsent},
	})
	if !errors.Is(err, errs.ErrConditionFailed) {
		t.Fatalf("got %v, want ErrConditionFailed", err)
	}

	if _, err := g.Get(ctx, "users", "alice"); !errors.Is(err, errs.ErrRecordNotFound) {
		t.Errorf("partial write leaked: users/alice exists, err=%v", err)
	}
	rec, err := g.Get(ctx, "conns", "conn-1")
	if err != nil {
		t.Fatalf("get conns/conn-1: %v", err)
	}
	if rec["value"] != "taken" {
		t.Errorf("existing record modified: %q", rec["value"])
	}
}

func TestTransactWriteDeletes(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGateway()

	_ = g.Put(ctx, "users", "alice", testRecord("a", 0), CondNone)
	_ = g.Put(ctx, "conns", "conn-1", testRecord("b", 0), CondNone)

	err := g.TransactWrite(ctx, []TxOp{
		{Kind: OpDelete, Table: "users", Key: "alice"},
		{Kind: OpDelete, Table: "conns", Key: "conn-1"},
	})
	if err != nil {
		t.Fatalf("transact delete: %v", err)
	}
	if _, err := g.Get(ctx, "users", "alice"); !errors.Is(err, errs.ErrRecordNotFound) {
		t.Errorf("users/alice still present: %v", err)
	}
	if _, err := g.Get(ctx, "conns", "conn-1"); !errors.Is(err, errs.ErrRecordNotFound) {
		t.Errorf("conns/conn-1 still present: %v", err)
	}
}

func TestScanColumn(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGateway()

	_ = g.Put(ctx, "users", "alice", Record{"user_id": "alice"}, CondNone)
	_ = g.Put(ctx, "users", "bob", Record{"user_id": "bob"}, CondNone)
	_ = g.Put(ctx, "users", "carol", Record{"other": "x"}, CondNone)

	vals, err := g.ScanColumn(ctx, "users", "user_id")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(vals) != 2 {
		t.Fatalf("got %d values %v, want 2", len(vals), vals)
	}
	seen := map[string]bool{}
	for _, v := range vals {
		seen[v] = true
	}
	if !seen["alice"] || !seen["bob"] {
		t.Errorf("scan missing expected values: %v", vals)
	}
}

func TestLazyExpiry(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGateway()

	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	g.SetClock(func() time.Time { return base })

	expireAt := base.Add(time.Hour).Unix()
	if err := g.Put(ctx, "users", "alice", testRecord("a", expireAt), CondNone); err != nil {
		t.Fatalf("put: %v", err)
	}

	if _, err := g.Get(ctx, "users", "alice"); err != nil {
		t.Fatalf("get before expiry: %v", err)
	}

	g.SetClock(func() time.Time { return base.Add(2 * time.Hour) })

	if _, err := g.Get(ctx, "users", "alice"); !errors.Is(err, errs.ErrRecordNotFound) {
		t.Errorf("get after expiry: got %v, want ErrRecordNotFound", err)
	}

	// 过期后位置可复用
	if err := g.Put(ctx, "users", "alice", testRecord("b", 0), CondIfAbsent); err != nil {
		t.Errorf("conditional put after expiry: %v", err)
	}

	vals, err := g.ScanColumn(ctx, "users", "value")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(vals) != 1 || vals[0] != "b" {
		t.Errorf("scan after expiry: got %v, want [b]", vals)
	}
}
