// Package binder implements node method binding (spec.md §4.4):
// resolving a node descriptor to an invocable Operator via one of
// three routes — declared operators, inline operators, or legacy
// reflective binding — and marshaling inputs/outputs across the
// boundary.
package binder

import (
	"fmt"

	"github.com/nodegraph/engine/model"
	"github.com/nodegraph/engine/storage"
)

// FeedbackKind classifies an EmitFeedback call (spec.md §4.3).
type FeedbackKind int

const (
	FeedbackDebug FeedbackKind = iota
	FeedbackWarning
	FeedbackError
	FeedbackBreak
)

func (k FeedbackKind) String() string {
	switch k {
	case FeedbackDebug:
		return "debug"
	case FeedbackWarning:
		return "warning"
	case FeedbackError:
		return "error"
	case FeedbackBreak:
		return "break"
	default:
		return "unknown"
	}
}

// Context is the operator-facing facade of spec.md §4.3. engine.Context
// implements it; binder only depends on the interface so the engine
// package (which depends on binder to resolve operators) never creates
// an import cycle.
type Context interface {
	GetInput(name string) (model.Value, error)
	SetOutput(name string, v model.Value)
	Trigger(socket string) error
	TriggerScoped(socket string, child *storage.Storage) error
	Emit(streamSocket string, v model.Value) error
	TriggerEvent(eventName string) error
	GetVariable(name string) (model.Value, bool)
	SetVariable(name string, v model.Value)
	EmitFeedback(message string, kind FeedbackKind)
	Node() model.NodeDescriptor
	Storage() *storage.Storage
}

// Operator is an invocable node body (spec.md §4.2.1: "Invoke the
// operator via the method binder").
type Operator interface {
	Execute(ctx Context, cancel <-chan struct{}) error
}

// OperatorFunc adapts a plain function to Operator — the shape used by
// inline operators (spec.md §4.4 route 2).
type OperatorFunc func(ctx Context, cancel <-chan struct{}) error

func (f OperatorFunc) Execute(ctx Context, cancel <-chan struct{}) error { return f(ctx, cancel) }

// Lifecycle declares on-created/on-disposed hooks an Operator may
// implement. The engine does not call them: no code path in this module
// invokes OnCreated or OnDisposed.
type Lifecycle interface {
	OnCreated() error
	OnDisposed()
}

// Factory constructs one fresh Operator instance. Registry.Resolve calls
// it on every resolution and the engine resolves once per node
// invocation, so a node that runs several times in one run (inside a
// loop body, for example) gets a new instance each time; there is no
// per-run instance cache.
type Factory func() Operator

// Registry holds the two lookup tables spec.md §4.4 "Resolution"
// describes: by definition id (preferred) and by human name
// (fallback).
type Registry struct {
	byDefinitionID map[string]Factory
	byName         map[string]Factory
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{byDefinitionID: make(map[string]Factory), byName: make(map[string]Factory)}
}

// Register adds a declared or inline operator factory under
// definitionID, and additionally under name as a fallback if name is
// non-empty and not already claimed.
func (r *Registry) Register(definitionID, name string, factory Factory) {
	r.byDefinitionID[definitionID] = factory
	if name != "" {
		if _, exists := r.byName[name]; !exists {
			r.byName[name] = factory
		}
	}
}

// RegisterInline is a convenience wrapper for the common case of an
// inline operator: a descriptor (already known to the caller) plus a
// stateless closure, with no per-run instance state.
func (r *Registry) RegisterInline(definitionID, name string, fn OperatorFunc) {
	r.Register(definitionID, name, func() Operator { return fn })
}

// Resolve produces a fresh Operator instance for node, preferring
// definition-id lookup and falling back to name.
func (r *Registry) Resolve(node model.NodeDescriptor) (Operator, error) {
	if f, ok := r.byDefinitionID[node.DefinitionID]; ok {
		return f(), nil
	}
	if f, ok := r.byName[node.Name]; ok {
		return f(), nil
	}
	return nil, fmt.Errorf("binder: no operator registered for definition %q (name %q)", node.DefinitionID, node.Name)
}
