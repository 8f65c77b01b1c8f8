package history

import (
	"context"
	"testing"
	"time"

	"github.com/nodegraph/engine/model"
)

func TestMemoryStore_SaveLoadRun(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	rec := RunRecord{
		RunID:      "run-001",
		StartedAt:  time.Now().Add(-time.Second),
		FinishedAt: time.Now(),
		Outcome:    "completed",
		Outputs:    map[string]model.Value{"node-a/Result": model.Int(42)},
		Variables:  map[string]model.Value{"counter": model.Int(1)},
	}
	if err := store.SaveRun(ctx, rec); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	loaded, err := store.LoadRun(ctx, "run-001")
	if err != nil {
		t.Fatalf("LoadRun failed: %v", err)
	}
	if loaded.Outcome != "completed" {
		t.Errorf("expected outcome completed, got %q", loaded.Outcome)
	}
	if loaded.Outputs["node-a/Result"].Int != 42 {
		t.Errorf("expected output 42, got %d", loaded.Outputs["node-a/Result"].Int)
	}
}

func TestMemoryStore_LoadRun_NotFound(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.LoadRun(context.Background(), "missing")
	if err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_ListRuns_OrderAndLimit(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	base := time.Now()
	for i, id := range []string{"run-a", "run-b", "run-c"} {
		_ = store.SaveRun(ctx, RunRecord{
			RunID:     id,
			StartedAt: base.Add(time.Duration(i) * time.Minute),
			Outcome:   "completed",
		})
	}

	all, err := store.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(all))
	}
	if all[0].RunID != "run-c" {
		t.Errorf("expected newest run first, got %q", all[0].RunID)
	}

	limited, err := store.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns with limit failed: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("expected 2 runs with limit, got %d", len(limited))
	}
}
