// Package storage implements the per-run execution storage of spec.md
// §3/§4.3: socket values, variables, the executed-node set, and scoped
// overlays for parallel-foreach isolation.
package storage

import (
	"strings"
	"sync"

	"github.com/nodegraph/engine/bus"
	"github.com/nodegraph/engine/model"
)

type socketKey struct {
	nodeID string
	socket string
}

// Storage is a run's mutable state: socket output values, variables,
// the set of nodes that have completed in the current flow, and a
// handle to the run's event bus. A Storage may have a parent, in which
// case reads fall through to the parent on a local miss and writes
// stay local (spec.md §3 "scoped overlays") — used to isolate each
// Parallel ForEach branch's storage from its siblings.
type Storage struct {
	parent *Storage
	bus    *bus.Bus

	mu       sync.RWMutex
	sockets  map[socketKey]model.Value
	executed map[string]bool

	varMu sync.RWMutex
	vars  map[string]model.Value
}

// New creates a root Storage for a run, bound to b for the lifetime of
// that run.
func New(b *bus.Bus) *Storage {
	return &Storage{
		bus:      b,
		sockets:  make(map[socketKey]model.Value),
		executed: make(map[string]bool),
		vars:     make(map[string]model.Value),
	}
}

// Scope creates a child overlay: reads that miss locally fall through
// to s, writes never escape the child. Used for Parallel ForEach
// branches so concurrent iterations cannot observe each other's
// (node, socket) writes.
func (s *Storage) Scope() *Storage {
	return &Storage{
		parent:   s,
		bus:      s.bus,
		sockets:  make(map[socketKey]model.Value),
		executed: make(map[string]bool),
		vars:     make(map[string]model.Value),
	}
}

// Bus returns the event bus bound to this run.
func (s *Storage) Bus() *bus.Bus { return s.bus }

// SetOutput records the value produced on (nodeID, socket).
func (s *Storage) SetOutput(nodeID, socket string, v model.Value) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sockets[socketKey{nodeID, socket}] = v
}

// GetOutput looks up (nodeID, socket), falling through to the parent
// scope on a local miss.
func (s *Storage) GetOutput(nodeID, socket string) (model.Value, bool) {
	s.mu.RLock()
	v, ok := s.sockets[socketKey{nodeID, socket}]
	s.mu.RUnlock()
	if ok {
		return v, true
	}
	if s.parent != nil {
		return s.parent.GetOutput(nodeID, socket)
	}
	return model.Nil, false
}

// MarkExecuted records that nodeID has completed in the current flow
// (spec.md §3 invariant 5).
func (s *Storage) MarkExecuted(nodeID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.executed[nodeID] = true
}

// ResetExecuted clears nodeID's executed mark, used at the start of
// each loop-body iteration (spec.md §4.2 "body-node executed-marks are
// reset at the start of each iteration so nodes re-run").
func (s *Storage) ResetExecuted(nodeID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.executed, nodeID)
}

// HasExecuted reports whether nodeID has completed in the current
// flow, checking the parent scope on a local miss.
func (s *Storage) HasExecuted(nodeID string) bool {
	s.mu.RLock()
	ok := s.executed[nodeID]
	s.mu.RUnlock()
	if ok {
		return true
	}
	if s.parent != nil {
		return s.parent.HasExecuted(nodeID)
	}
	return false
}

// SnapshotOutputs returns a flat copy of this scope's own (node,
// socket) -> value outputs, keyed "nodeID/socket", for run-history
// persistence. Parent-scope values are not included.
func (s *Storage) SnapshotOutputs() map[string]model.Value {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]model.Value, len(s.sockets))
	for k, v := range s.sockets {
		out[k.nodeID+"/"+k.socket] = v
	}
	return out
}

// SnapshotVariables returns a copy of this scope's own variables, for
// run-history persistence.
func (s *Storage) SnapshotVariables() map[string]model.Value {
	s.varMu.RLock()
	defer s.varMu.RUnlock()
	out := make(map[string]model.Value, len(s.vars))
	for k, v := range s.vars {
		out[k] = v
	}
	return out
}

func normalizeVar(name string) string { return strings.ToLower(name) }

// SetVariable assigns a run-scoped variable, case-insensitively.
func (s *Storage) SetVariable(name string, v model.Value) {
	s.varMu.Lock()
	defer s.varMu.Unlock()
	s.vars[normalizeVar(name)] = v
}

// GetVariable reads a run-scoped variable, falling through to the
// parent scope on a local miss.
func (s *Storage) GetVariable(name string) (model.Value, bool) {
	key := normalizeVar(name)
	s.varMu.RLock()
	v, ok := s.vars[key]
	s.varMu.RUnlock()
	if ok {
		return v, true
	}
	if s.parent != nil {
		return s.parent.GetVariable(name)
	}
	return model.Nil, false
}
