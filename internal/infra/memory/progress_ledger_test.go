package memory

import (
	"context"
	"testing"
)

func TestProgressLedgerLifecycle(t *testing.T) {
	ctx := context.Background()
	ledger := NewProgressLedger()

	passed, err := ledger.Passed(ctx, "c1", "v1")
	if err != nil || len(passed) != 0 {
		t.Fatalf("expected empty set, got %v %v", passed, err)
	}
	if _, ok := ledger.progress["c1"]["v1"]; !ok {
		t.Fatalf("expected entry created lazily")
	}

	if err := ledger.MarkPassed(ctx, "c1", "v1", "s0"); err != nil {
		t.Fatalf("mark: %v", err)
	}
	_ = ledger.MarkPassed(ctx, "c1", "v1", "s0")

	passed, _ = ledger.Passed(ctx, "c1", "v1")
	if _, ok := passed["s0"]; !ok || len(passed) != 1 {
		t.Fatalf("expected {s0}, got %v", passed)
	}

	// Callers get a copy.
	passed["s9"] = struct{}{}
	again, _ := ledger.Passed(ctx, "c1", "v1")
	if _, ok := again["s9"]; ok {
		t.Fatalf("ledger must not be mutated through a snapshot")
	}

	other, _ := ledger.Passed(ctx, "c2", "v1")
	if len(other) != 0 {
		t.Fatalf("progress must be partitioned per client, got %v", other)
	}
}
