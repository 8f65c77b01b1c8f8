package engine

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/nodegraph/engine/binder"
	"github.com/nodegraph/engine/bus"
	"github.com/nodegraph/engine/emit"
	"github.com/nodegraph/engine/gate"
	"github.com/nodegraph/engine/history"
	"github.com/nodegraph/engine/model"
	"github.com/nodegraph/engine/plan"
	"github.com/nodegraph/engine/storage"
)

// Engine compiles a graph once per Run and drives it to completion,
// invoking node operators through the binder registry and routing
// execution signals along the graph's connections (spec.md §4.2).
type Engine struct {
	registry *binder.Registry
	cfg      *engineConfig
	gate     *gate.Gate
}

// New builds an Engine bound to registry, which must already hold
// every operator the graphs it runs will reference.
func New(registry *binder.Registry, opts ...Option) (*Engine, error) {
	cfg, err := newConfig(registry, nil, opts)
	if err != nil {
		return nil, err
	}
	return &Engine{registry: registry, cfg: cfg, gate: gate.New()}, nil
}

// Gate exposes the run's pause/resume/step-once control (spec.md
// §4.6). Shared across every Run this Engine drives.
func (e *Engine) Gate() *gate.Gate { return e.gate }

// History returns the recorded node/layer/loop/run events for runID,
// in emission order (SPEC_FULL.md §3's "CLI host's history query").
// Every Run feeds this regardless of the configured Emitter.
func (e *Engine) History(runID string) []emit.Event {
	return e.cfg.eventHistory.GetHistory(runID)
}

// HistoryWithFilter is History narrowed by filter.
func (e *Engine) HistoryWithFilter(runID string, filter emit.HistoryFilter) []emit.Event {
	return e.cfg.eventHistory.GetHistoryWithFilter(runID, filter)
}

// ClearHistory discards the buffered event history for runID, or for
// every run if runID is empty. Callers should call this once a
// completed run's history has been read, so a long-lived Engine
// doesn't accumulate history for every run it ever drove.
func (e *Engine) ClearHistory(runID string) {
	e.cfg.eventHistory.Clear(runID)
}

// Result is what a completed (or failed, or cancelled) Run returns.
type Result struct {
	RunID     string
	Storage   *storage.Storage
	Metrics   SchedulerMetrics
	Warnings  []plan.Message
	Err       error
	StartedAt time.Time
	EndedAt   time.Time
}

// Run validates and plans nodes/connections, then executes them to
// completion (spec.md §4.2 steps 1-8).
func (e *Engine) Run(ctx context.Context, nodes []model.NodeDescriptor, connections []model.Connection) (*Result, error) {
	graph := model.Snapshot(nodes, connections)

	hp, warnings, err := plan.Plan(nodes, connections, e.cfg.loopOperators)
	if err != nil {
		return nil, newError(CodeGraphValidation, "", "planning failed", err)
	}

	runID := uuid.NewString()
	started := time.Now()

	if e.cfg.runWallClockBudget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.runWallClockBudget)
		defer cancel()
	}

	r := &run{
		id:       runID,
		graph:    graph,
		resolver: e.cfg.resolver,
		registry: e.registry,
		bus:      bus.New(),
		gate:     e.gate,
		emitter:  &fanoutEmitter{primary: e.cfg.emitter, secondary: e.cfg.eventHistory},
		cfg:      e.cfg,
		ctx:      ctx,
		fired:    make(map[fireKey]bool),
	}
	r.storage = storage.New(r.bus)
	r.subscribeEventListeners(graph)

	for _, w := range warnings {
		r.emitter.Emit(emit.Event{RunID: runID, Msg: "plan-warning", Meta: map[string]interface{}{
			"severity": w.Severity.String(), "text": w.Text, "nodeID": w.NodeID,
		}})
	}

	r.emitter.Emit(emit.Event{RunID: runID, Msg: "run-started"})

	runErr := r.executeSteps(hp.Steps, r.storage)

	outcome := "completed"
	switch {
	case runErr != nil && ctx.Err() != nil:
		outcome = "canceled"
	case runErr != nil:
		outcome = "failed"
	}
	r.emitter.Emit(emit.Event{RunID: runID, Msg: "run-" + outcome, Meta: map[string]interface{}{
		"error": errString(runErr),
	}})

	res := &Result{
		RunID:     runID,
		Storage:   r.storage,
		Metrics:   r.counters.snapshot(),
		Warnings:  warnings,
		Err:       runErr,
		StartedAt: started,
		EndedAt:   time.Now(),
	}

	if e.cfg.history != nil {
		rec := history.RunRecord{
			RunID:      runID,
			StartedAt:  res.StartedAt,
			FinishedAt: res.EndedAt,
			Outcome:    outcome,
			Outputs:    r.storage.SnapshotOutputs(),
			Variables:  r.storage.SnapshotVariables(),
		}
		if err := e.cfg.history.SaveRun(ctx, rec); err != nil {
			r.emitter.Emit(emit.Event{RunID: runID, Msg: "history-save-failed", Meta: map[string]interface{}{"error": err.Error()}})
		}
	}

	return res, runErr
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// fireKey identifies one (node, output socket) pair that may have
// fired this run, used to gate whether a downstream node is ready.
type fireKey struct {
	nodeID string
	socket string
}

// run is the per-invocation state of one Engine.Run call.
type run struct {
	id       string
	graph    *model.Graph
	resolver model.TypeResolver
	registry *binder.Registry
	bus      *bus.Bus
	gate     *gate.Gate
	emitter  emit.Emitter
	cfg      *engineConfig
	ctx      context.Context
	storage  *storage.Storage
	counters schedulerCounters

	mu    sync.Mutex
	fired map[fireKey]bool
}

func (r *run) markFired(nodeID, socket string) {
	r.mu.Lock()
	r.fired[fireKey{nodeID, socket}] = true
	r.mu.Unlock()
}

func (r *run) isFired(nodeID, socket string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fired[fireKey{nodeID, socket}]
}

func (r *run) resetFiredForNodes(ids []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	for k := range r.fired {
		if set[k.nodeID] {
			delete(r.fired, k)
		}
	}
}

// anyIncomingFired reports whether at least one incoming execution
// connection into nodeID's Enter socket has fired.
func (r *run) anyIncomingFired(nodeID string) bool {
	for _, c := range r.graph.IncomingExecution(nodeID, model.ExecutionInputName) {
		if r.isFired(c.FromNodeID, c.FromSocket) {
			return true
		}
	}
	return false
}

// executeSteps drives one HierarchicalPlan's Steps in order (spec.md
// §4.2.3/§4.2.4). Each LayerStep dispatches its ready nodes (execution
// initiators, or nodes whose incoming execution edge already fired)
// concurrently, bounded by MaxDegreeOfParallelism; a LoopStep iterates
// its header and body until Exit fires or the iteration cap trips.
func (r *run) executeSteps(steps []plan.Step, st *storage.Storage) error {
	for i, step := range steps {
		switch step.Kind {
		case plan.StepLayer:
			if err := r.executeLayerStep(i, step.Layer, st); err != nil {
				return err
			}
		case plan.StepLoop:
			if err := r.executeLoop(step.Loop, st); err != nil {
				return err
			}
		case plan.StepBranch:
			// Never produced by this planner (see plan.BranchStep doc).
		}
		if r.ctx.Err() != nil {
			return newError(CodeCanceled, "", "run cancelled", r.ctx.Err())
		}
	}
	return nil
}

// executeLayerStep wraps executeLayer with layer-started/-completed/
// -failed events (spec.md §6), giving the emit.Event.LayerID field a
// producer: layers are positional within a HierarchicalPlan, so index
// i within this pass is a stable id for them.
func (r *run) executeLayerStep(index int, layer plan.LayerStep, st *storage.Storage) error {
	layerID := fmt.Sprintf("layer-%d", index)
	r.emitter.Emit(emit.Event{RunID: r.id, LayerID: layerID, Msg: "layer-started", Meta: map[string]interface{}{
		"node_count": len(layer.Nodes),
	}})
	if err := r.executeLayer(layer, st); err != nil {
		r.emitter.Emit(emit.Event{RunID: r.id, LayerID: layerID, Msg: "layer-failed", Meta: map[string]interface{}{
			"error": err.Error(),
		}})
		return err
	}
	r.emitter.Emit(emit.Event{RunID: r.id, LayerID: layerID, Msg: "layer-completed"})
	return nil
}

func (r *run) executeLayer(layer plan.LayerStep, st *storage.Storage) error {
	var ready []model.NodeDescriptor
	for _, n := range layer.Nodes {
		if st.HasExecuted(n.ID) {
			// Already ran via a synchronous TriggerScoped call (Try/Catch,
			// event-bus fan-out) before the static dispatcher reached this
			// layer; invariant 5 forbids a second execution outside a loop
			// body, so skip it here rather than invoking it again.
			continue
		}
		if n.IsExecutionInitiator || r.anyIncomingFired(n.ID) {
			ready = append(ready, n)
		}
	}
	if len(ready) == 0 {
		return nil
	}
	sort.Slice(ready, func(i, j int) bool { return ready[i].ID < ready[j].ID })
	return r.runConcurrently(ready, st)
}

// runConcurrently executes nodes bounded by MaxDegreeOfParallelism,
// propagating the first failure and cancelling its siblings (spec.md
// §7), grounded on the teacher's errgroup+semaphore fan-out.
func (r *run) runConcurrently(nodes []model.NodeDescriptor, st *storage.Storage) error {
	if len(nodes) == 1 {
		return r.executeNode(nodes[0], st)
	}
	limit := int64(r.cfg.maxDegreeOfParallelism)
	if limit <= 0 {
		limit = int64(len(nodes))
	}
	sem := semaphore.NewWeighted(limit)
	g, gctx := errgroup.WithContext(r.ctx)
	for _, n := range nodes {
		n := n
		if err := sem.Acquire(gctx, 1); err != nil {
			return newError(CodeCanceled, "", "run cancelled", err)
		}
		g.Go(func() error {
			defer sem.Release(1)
			return r.executeNode(n, st)
		})
	}
	return g.Wait()
}

// executeLoop drives one loop header to completion (spec.md §4.2.4).
// The header operator is an ordinary node whose Execute fires either
// LoopSocket (continue: run the body once more) or ExitSocket (stop);
// the engine enforces LoopIterationCap independently of what the
// operator does.
func (r *run) executeLoop(step plan.LoopStep, st *storage.Storage) error {
	r.emitter.Emit(emit.Event{RunID: r.id, NodeID: step.Header.ID, Msg: "loop-started"})
	iterations, err := r.runLoopBody(step, st)
	meta := map[string]interface{}{"iterations": iterations}
	if err != nil {
		meta["error"] = err.Error()
		r.emitter.Emit(emit.Event{RunID: r.id, NodeID: step.Header.ID, Msg: "loop-failed", Meta: meta})
		return err
	}
	r.emitter.Emit(emit.Event{RunID: r.id, NodeID: step.Header.ID, Msg: "loop-completed", Meta: meta})
	return nil
}

// runLoopBody is executeLoop's original body, factored out so the
// loop-started/-completed/-failed bracket above has a single return
// path to attach iteration counts and errors to.
func (r *run) runLoopBody(step plan.LoopStep, st *storage.Storage) (int, error) {
	bodyIDs := append([]string{step.Header.ID}, step.BodyNodeIDs...)
	iterations := 0
	for {
		if r.ctx.Err() != nil {
			return iterations, newError(CodeCanceled, step.Header.ID, "run cancelled", r.ctx.Err())
		}
		iterations++
		if iterations > r.cfg.loopIterationCap {
			return iterations, newError(CodeLoopCapExceeded, step.Header.ID,
				fmt.Sprintf("loop exceeded %d iterations", r.cfg.loopIterationCap), nil)
		}
		r.resetFiredForNodes(bodyIDs)
		for _, id := range bodyIDs {
			st.ResetExecuted(id)
		}

		if err := r.executeNode(step.Header, st); err != nil {
			return iterations, err
		}

		switch {
		case r.isFired(step.Header.ID, step.ExitSocket):
			return iterations, nil
		case r.isFired(step.Header.ID, step.LoopSocket):
			if step.Body != nil {
				if err := r.executeSteps(step.Body.Steps, st); err != nil {
					return iterations, err
				}
			}
		default:
			return iterations, nil
		}
	}
}

// executeNode invokes one node's operator, applying its opt-in
// NodePolicy (timeout/retry) and emitting lifecycle events.
func (r *run) executeNode(node model.NodeDescriptor, st *storage.Storage) error {
	if err := r.gate.Wait(r.ctx); err != nil {
		return newError(CodeCanceled, node.ID, "run cancelled while paused", err)
	}
	if err := r.ctx.Err(); err != nil {
		return newError(CodeCanceled, node.ID, "run cancelled", err)
	}

	op, err := r.registry.Resolve(node)
	if err != nil {
		return newError(CodeGraphValidation, node.ID, "unresolved operator", err)
	}

	policy, hasPolicy := r.cfg.policies[node.ID]
	if !hasPolicy {
		policy, hasPolicy = r.cfg.policies[node.DefinitionID]
	}

	r.counters.nodeStarted()
	r.counters.stepTaken()
	r.emitter.Emit(emit.Event{RunID: r.id, NodeID: node.ID, Msg: "node-started"})

	ctx := &execContext{run: r, node: node, st: st}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	started := time.Now()

	var execErr error
	attempt := 0
	for {
		execErr = r.invokeWithTimeout(op, ctx, policy, hasPolicy)
		if execErr == nil || !hasPolicy || policy.RetryPolicy == nil {
			break
		}
		if !policy.RetryPolicy.shouldRetry(attempt, execErr) {
			break
		}
		delay := computeBackoff(attempt, policy.RetryPolicy.BaseDelay, policy.RetryPolicy.MaxDelay, rng)
		cancelled := false
		select {
		case <-time.After(delay):
		case <-r.ctx.Done():
			execErr = newError(CodeCanceled, node.ID, "run cancelled during retry backoff", r.ctx.Err())
			cancelled = true
		}
		if cancelled {
			break
		}
		attempt++
	}

	r.counters.nodeFinished()
	durationMs := time.Since(started).Milliseconds()

	if execErr != nil {
		r.emitter.Emit(emit.Event{RunID: r.id, NodeID: node.ID, Msg: "node-failed", Meta: map[string]interface{}{
			"error":       execErr.Error(),
			"duration_ms": durationMs,
			"attempt":     attempt,
		}})
		return wrapOperatorError(node.ID, execErr)
	}
	st.MarkExecuted(node.ID)
	r.emitter.Emit(emit.Event{RunID: r.id, NodeID: node.ID, Msg: "node-completed", Meta: map[string]interface{}{
		"duration_ms": durationMs,
		"attempt":     attempt,
	}})
	return nil
}

func wrapOperatorError(nodeID string, err error) error {
	if _, ok := err.(*EngineError); ok {
		return err
	}
	return newError(CodeOperatorFailure, nodeID, "operator returned an error", err)
}

func (r *run) invokeWithTimeout(op binder.Operator, ctx *execContext, policy NodePolicy, hasPolicy bool) error {
	if !hasPolicy || policy.Timeout <= 0 {
		return op.Execute(ctx, r.ctx.Done())
	}

	done := make(chan error, 1)
	cancel := make(chan struct{})
	go func() { done <- op.Execute(ctx, cancel) }()

	timer := time.NewTimer(policy.Timeout)
	defer timer.Stop()
	select {
	case err := <-done:
		return err
	case <-timer.C:
		close(cancel)
		return newError(CodeOperatorFailure, ctx.node.ID, "node execution timed out", context.DeadlineExceeded)
	case <-r.ctx.Done():
		close(cancel)
		<-done
		return newError(CodeCanceled, ctx.node.ID, "run cancelled", r.ctx.Err())
	}
}

// subscribeEventListeners implements spec.md §4.2 step 3 / §4.5: every
// node whose definition id was registered via WithEventListenerOperators
// gets its Exit-successor chain subscribed to the event bus under the
// event name carried in its eventNameSocket input's literal default —
// read once, statically, since subscription happens before any node
// (and therefore any data connection) has run.
func (r *run) subscribeEventListeners(graph *model.Graph) {
	for _, n := range graph.Nodes {
		if !r.cfg.eventListenerOperators[n.DefinitionID] {
			continue
		}
		socket, ok := n.InputByName(r.cfg.eventNameSocket)
		if !ok || !socket.HasDefault {
			r.emitter.Emit(emit.Event{RunID: r.id, NodeID: n.ID, Msg: "event-listener-misconfigured", Meta: map[string]interface{}{
				"reason": "missing " + r.cfg.eventNameSocket + " literal default",
			}})
			continue
		}
		name, err := r.resolver.DecodeDefault(socket.TypeName, socket.Default)
		if err != nil {
			r.emitter.Emit(emit.Event{RunID: r.id, NodeID: n.ID, Msg: "event-listener-misconfigured", Meta: map[string]interface{}{"error": err.Error()}})
			continue
		}
		nodeID, eventName := n.ID, name.AsString()
		r.bus.Subscribe(eventName, func(ctx context.Context) error {
			return r.triggerScoped(nodeID, "Exit", r.storage)
		})
	}
}

// triggerEvent fires eventName on the run's bus, run from within an
// operator via execContext.TriggerEvent (spec.md §4.5 "Trigger Event").
func (r *run) triggerEvent(eventName string) error {
	return r.bus.Trigger(r.ctx, eventName)
}

// triggerScoped recursively and immediately executes every downstream
// node connected to fromNodeID's fromSocket, against st, bounded by
// MaxDegreeOfParallelism when it fans out to more than one target.
// Used by TriggerScoped (Parallel ForEach's dynamic body dispatch,
// Try/Catch's synchronous branches) and by the handlers
// subscribeEventListeners installs; ordinary Trigger never calls this
// (see execContext.Trigger).
func (r *run) triggerScoped(fromNodeID, fromSocket string, st *storage.Storage) error {
	r.markFired(fromNodeID, fromSocket)

	var targets []model.NodeDescriptor
	for _, c := range r.graph.OutgoingFromSocket(fromNodeID, fromSocket) {
		if !c.IsExecution {
			continue
		}
		n, ok := r.graph.Node(c.ToNodeID)
		if !ok {
			continue
		}
		targets = append(targets, n)
	}
	if len(targets) == 0 {
		return nil
	}
	return r.runConcurrently(targets, st)
}
