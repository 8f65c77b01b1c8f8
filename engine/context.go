package engine

import (
	"fmt"

	"github.com/nodegraph/engine/binder"
	"github.com/nodegraph/engine/emit"
	"github.com/nodegraph/engine/model"
	"github.com/nodegraph/engine/storage"
)

// execContext is the per-invocation binder.Context handed to a node's
// operator. It is created fresh for every node invocation and closes
// over the run it belongs to plus the node being executed.
type execContext struct {
	run  *run
	node model.NodeDescriptor
	st   *storage.Storage
}

var _ binder.Context = (*execContext)(nil)

// GetInput resolves a data input by walking its incoming connection,
// lazily evaluating a non-callable source node on demand (spec.md §3
// invariant 7, §4.2.2). A connection from a callable node that has not
// yet executed is a MissingDependency error: execution order for
// callable producers is the engine's job, not GetInput's.
func (c *execContext) GetInput(name string) (model.Value, error) {
	socket, ok := c.node.InputByName(name)
	if !ok {
		return model.Nil, newError(CodeGraphValidation, c.node.ID, fmt.Sprintf("unknown input socket %q", name), nil)
	}

	conn, ok := c.run.graph.IncomingData(c.node.ID, name)
	if !ok {
		if socket.HasDefault {
			v, err := c.run.resolver.DecodeDefault(socket.TypeName, socket.Default)
			if err != nil {
				return model.Nil, newError(CodeTypeMismatch, c.node.ID, fmt.Sprintf("default for %q", name), err)
			}
			return v, nil
		}
		return model.Nil, nil
	}

	src, ok := c.run.graph.Node(conn.FromNodeID)
	if !ok {
		return model.Nil, newError(CodeGraphValidation, c.node.ID, fmt.Sprintf("input %q references unknown node %q", name, conn.FromNodeID), nil)
	}

	if !c.st.HasExecuted(src.ID) {
		if src.IsCallable {
			return model.Nil, newError(CodeMissingDependency, c.node.ID,
				fmt.Sprintf("input %q depends on node %q, which has not executed yet", name, src.ID), nil)
		}
		if err := c.run.executeNode(src, c.st); err != nil {
			return model.Nil, err
		}
	}

	v, ok := c.st.GetOutput(src.ID, conn.FromSocket)
	if !ok {
		v = model.Nil
	}
	converted, err := c.run.resolver.Convert(socket.TypeName, v)
	if err != nil {
		return model.Nil, newError(CodeTypeMismatch, c.node.ID, fmt.Sprintf("input %q", name), err)
	}
	return converted, nil
}

func (c *execContext) SetOutput(name string, v model.Value) {
	c.st.SetOutput(c.node.ID, name, v)
}

// Trigger marks socket as fired. It does not itself invoke downstream
// nodes: the run's static layer dispatcher (run.executeSteps) picks up
// the firing once it reaches the downstream node's LayerStep, which is
// what gives concurrent fan-out (spec.md §4.2.3) a single dispatch
// point rather than ad hoc recursive calls.
func (c *execContext) Trigger(socket string) error {
	c.run.markFired(c.node.ID, socket)
	return nil
}

// TriggerScoped recursively executes socket's downstream connections
// immediately, against child rather than this invocation's own
// storage. Unlike Trigger, this bypasses the static plan entirely: it
// exists for operators like Parallel ForEach whose body fan-out is
// runtime-determined (item count is data, not graph shape), so the
// planner claims the body out of the ordinary remainder layers and
// the operator drives it directly (spec.md §4.2.5).
func (c *execContext) TriggerScoped(socket string, child *storage.Storage) error {
	return c.run.triggerScoped(c.node.ID, socket, child)
}

// Emit marks streamSocket as fired after recording v, for the common
// case of a single emission consumed once by the static dispatcher
// (spec.md §4.2.6 Sequential mode). An operator needing multiple
// emissions actually fanned out to fresh invocations per emission
// should drive its downstream chain with TriggerScoped instead.
func (c *execContext) Emit(streamSocket string, v model.Value) error {
	c.st.SetOutput(c.node.ID, streamSocket, v)
	c.run.markFired(c.node.ID, streamSocket)
	return nil
}

// TriggerEvent fires eventName on the run's event bus, invoking every
// handler subscribed at the moment of the call concurrently and
// returning once all complete (spec.md §4.5 "Trigger Event", the
// user-facing counterpart of the runtime's own custom-event-listener
// auto-subscription).
func (c *execContext) TriggerEvent(eventName string) error {
	return c.run.triggerEvent(eventName)
}

func (c *execContext) GetVariable(name string) (model.Value, bool) {
	return c.st.GetVariable(name)
}

func (c *execContext) SetVariable(name string, v model.Value) {
	c.st.SetVariable(name, v)
}

func (c *execContext) EmitFeedback(message string, kind binder.FeedbackKind) {
	c.run.emitter.Emit(emit.Event{
		RunID:  c.run.id,
		NodeID: c.node.ID,
		Msg:    "feedback",
		Meta:   map[string]interface{}{"kind": kind.String(), "message": message},
	})
}

func (c *execContext) Node() model.NodeDescriptor { return c.node }

func (c *execContext) Storage() *storage.Storage { return c.st }
