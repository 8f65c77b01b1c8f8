package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/nodegraph/engine/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	return store
}

func TestSQLiteStore_SaveLoadRun(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t)
	defer store.Close()

	rec := RunRecord{
		RunID:      "run-001",
		StartedAt:  time.Now().Add(-time.Second).UTC(),
		FinishedAt: time.Now().UTC(),
		Outcome:    "completed",
		Outputs:    map[string]model.Value{"node-a/Result": model.String("done")},
		Variables:  map[string]model.Value{"counter": model.Int(3)},
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
	if loaded.Outputs["node-a/Result"].Str != "done" {
		t.Errorf("expected output %q, got %q", "done", loaded.Outputs["node-a/Result"].Str)
	}
	if loaded.Variables["counter"].Int != 3 {
		t.Errorf("expected variable 3, got %d", loaded.Variables["counter"].Int)
	}
}

func TestSQLiteStore_SaveRun_Upsert(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t)
	defer store.Close()

	rec := RunRecord{RunID: "run-002", StartedAt: time.Now().UTC(), FinishedAt: time.Now().UTC(), Outcome: "failed"}
	if err := store.SaveRun(ctx, rec); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}
	rec.Outcome = "completed"
	if err := store.SaveRun(ctx, rec); err != nil {
		t.Fatalf("SaveRun (update) failed: %v", err)
	}

	loaded, err := store.LoadRun(ctx, "run-002")
	if err != nil {
		t.Fatalf("LoadRun failed: %v", err)
	}
	if loaded.Outcome != "completed" {
		t.Errorf("expected updated outcome completed, got %q", loaded.Outcome)
	}
}

func TestSQLiteStore_LoadRun_NotFound(t *testing.T) {
	store := newTestSQLiteStore(t)
	defer store.Close()

	_, err := store.LoadRun(context.Background(), "missing")
	if err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteStore_ListRuns_OrderAndLimit(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t)
	defer store.Close()

	base := time.Now().UTC()
	for i, id := range []string{"run-a", "run-b", "run-c"} {
		rec := RunRecord{
			RunID:      id,
			StartedAt:  base.Add(time.Duration(i) * time.Minute),
			FinishedAt: base.Add(time.Duration(i)*time.Minute + time.Second),
			Outcome:    "completed",
		}
		if err := store.SaveRun(ctx, rec); err != nil {
			t.Fatalf("SaveRun(%s) failed: %v", id, err)
		}
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
