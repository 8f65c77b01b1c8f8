// Package history persists completed-run results: final storage
// snapshot and outcome, queryable by run id (spec.md §6's "queryable
// storage" external interface). It never persists the graph itself —
// only what one Run produced — adapted from the teacher's store
// package, repurposed from checkpoint/resume to after-the-fact query.
package history

import (
	"context"
	"errors"
	"time"

	"github.com/nodegraph/engine/model"
)

// ErrNotFound is returned when a requested run id does not exist.
var ErrNotFound = errors.New("history: run not found")

// RunRecord is the queryable result of one completed Engine.Run call.
type RunRecord struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Outcome    string // "completed", "failed", or "canceled"
	Outputs    map[string]model.Value
	Variables  map[string]model.Value
}

// Store persists and retrieves RunRecords.
type Store interface {
	SaveRun(ctx context.Context, rec RunRecord) error
	LoadRun(ctx context.Context, runID string) (RunRecord, error)
	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)
}
