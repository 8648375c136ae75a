package warnings

import (
	"reflect"
	"testing"

	"github.com/SX2s/SX2-Enforcer/internal/store"

	"go.uber.org/zap"
)

func newTestLedger(t *testing.T) (*Ledger, string) {
	t.Helper()
	dir := t.TempDir()
	docs, err := store.New(dir, zap.NewNop())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ledger, err := New(docs)
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	return ledger, dir
}

func TestWarningsAccumulateInOrder(t *testing.T) {
	ledger, _ := newTestLedger(t)

	reasons := []string{"spam", "links", "caps"}
	for i, reason := range reasons {
		if count := ledger.Add("g1", "u1", reason); count != i+1 {
			t.Fatalf("expected count %d, got %d", i+1, count)
		}
	}

	got := ledger.List("g1", "u1")
	if !reflect.DeepEqual(got, reasons) {
		t.Fatalf("expected %v in order, got %v", reasons, got)
	}
}

func TestClearRemovesAllWarnings(t *testing.T) {
	ledger, _ := newTestLedger(t)

	ledger.Add("g1", "u1", "spam")
	ledger.Add("g1", "u1", "links")

	if removed := ledger.Clear("g1", "u1"); removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}
	if count := ledger.Count("g1", "u1"); count != 0 {
		t.Fatalf("expected 0 after clear, got %d", count)
	}
	if removed := ledger.Clear("g1", "u1"); removed != 0 {
		t.Fatalf("expected clear on empty to be a no-op")
	}
}

func TestWarningsAreGuildScoped(t *testing.T) {
	ledger, _ := newTestLedger(t)

	ledger.Add("g1", "u1", "spam")
	ledger.Add("g2", "u1", "other guild")

	if count := ledger.Count("g1", "u1"); count != 1 {
		t.Fatalf("expected 1 warning in g1, got %d", count)
	}
	ledger.Clear("g1", "u1")
	if count := ledger.Count("g2", "u1"); count != 1 {
		t.Fatalf("expected g2 ledger untouched, got %d", count)
	}
}

func TestWarningsSurviveReload(t *testing.T) {
	ledger, dir := newTestLedger(t)
	ledger.Add("g1", "u1", "spam")
	ledger.Add("g1", "u2", "links")

	docs, err := store.New(dir, zap.NewNop())
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	reloaded, err := New(docs)
	if err != nil {
		t.Fatalf("reload ledger: %v", err)
	}

	if got := reloaded.List("g1", "u1"); !reflect.DeepEqual(got, []string{"spam"}) {
		t.Fatalf("expected persisted warning, got %v", got)
	}
	if count := reloaded.Count("g1", "u2"); count != 1 {
		t.Fatalf("expected second member persisted, got %d", count)
	}
}
