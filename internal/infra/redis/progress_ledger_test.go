package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestProgressLedgerStoresPasses(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	ledger := NewProgressLedger(newClient(mr), time.Hour)

	passed, err := ledger.Passed(ctx, "c1", "v1")
	if err != nil {
		t.Fatalf("passed: %v", err)
	}
	if len(passed) != 0 {
		t.Fatalf("expected empty set, got %v", passed)
	}

	if err := ledger.MarkPassed(ctx, "c1", "v1", "s0"); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if err := ledger.MarkPassed(ctx, "c1", "v1", "s1"); err != nil {
		t.Fatalf("mark: %v", err)
	}

	if !mr.Exists("progress:c1:v1") {
		t.Fatalf("expected redis key to be set")
	}
	if ttl := mr.TTL("progress:c1:v1"); ttl != time.Hour {
		t.Fatalf("expected 1h ttl, got %v", ttl)
	}

	passed, err = ledger.Passed(ctx, "c1", "v1")
	if err != nil {
		t.Fatalf("passed: %v", err)
	}
	if len(passed) != 2 {
		t.Fatalf("expected 2 passes, got %v", passed)
	}
	if other, _ := ledger.Passed(ctx, "c2", "v1"); len(other) != 0 {
		t.Fatalf("expected per-client partition, got %v", other)
	}
}

func TestProgressLedgerWithoutTTL(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ledger := NewProgressLedger(newClient(mr), 0)
	if err := ledger.MarkPassed(context.Background(), "c1", "v1", "s0"); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if ttl := mr.TTL("progress:c1:v1"); ttl != 0 {
		t.Fatalf("expected no ttl, got %v", ttl)
	}
}

func TestProgressLedgerSurfacesErrors(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	client := newClient(mr)
	mr.Close()

	ledger := NewProgressLedger(client, time.Minute)
	if _, err := ledger.Passed(context.Background(), "c1", "v1"); err == nil {
		t.Fatalf("expected error once redis is gone")
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
