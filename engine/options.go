package engine

import (
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/nodegraph/engine/binder"
	"github.com/nodegraph/engine/emit"
	"github.com/nodegraph/engine/history"
	"github.com/nodegraph/engine/model"
)

// Option is a functional option for configuring an Engine, grounded on
// the teacher's Option func(*engineConfig) error pattern.
type Option func(*engineConfig) error

type engineConfig struct {
	maxDegreeOfParallelism int
	allowBackground        bool
	loopIterationCap       int
	queueDepth             int
	runWallClockBudget     time.Duration
	loopOperators          map[string]bool
	eventListenerOperators map[string]bool
	eventNameSocket        string
	resolver               model.TypeResolver
	policies               map[string]NodePolicy
	emitter                emit.Emitter
	history                history.Store
	eventHistory           *emit.BufferedEmitter
}

func defaultConfig() *engineConfig {
	return &engineConfig{
		maxDegreeOfParallelism: 8,
		loopIterationCap:       10000,
		queueDepth:             1024,
		loopOperators:          map[string]bool{},
		eventListenerOperators: map[string]bool{},
		eventNameSocket:        "EventName",
		resolver:               model.DefaultResolver{},
		policies:               map[string]NodePolicy{},
		emitter:                emit.NewLogEmitter(nil, false),
		eventHistory:           emit.NewBufferedEmitter(),
	}
}

// WithMaxDegreeOfParallelism bounds how many nodes in one layer may run
// concurrently (spec.md §4.2.3). Default 8.
func WithMaxDegreeOfParallelism(n int) Option {
	return func(cfg *engineConfig) error {
		cfg.maxDegreeOfParallelism = n
		return nil
	}
}

// WithAllowBackground stores whether nodes may keep running past the
// run's nominal completion. The engine does not read this setting:
// every Run waits for all the nodes it starts, whatever the value.
func WithAllowBackground(allow bool) Option {
	return func(cfg *engineConfig) error {
		cfg.allowBackground = allow
		return nil
	}
}

// WithLoopIterationCap bounds loop iterations so a missing Exit
// condition cannot spin forever (spec.md §4.2.4). Default 10,000.
func WithLoopIterationCap(n int) Option {
	return func(cfg *engineConfig) error {
		cfg.loopIterationCap = n
		return nil
	}
}

// WithQueueDepth stores a queue capacity for the layer dispatcher. The
// dispatcher has no queue and does not read this value; layer fan-out
// is bounded only by WithMaxDegreeOfParallelism.
func WithQueueDepth(n int) Option {
	return func(cfg *engineConfig) error {
		cfg.queueDepth = n
		return nil
	}
}

// WithRunWallClockBudget bounds the total wall-clock time of one Run.
// Zero disables the budget.
func WithRunWallClockBudget(d time.Duration) Option {
	return func(cfg *engineConfig) error {
		cfg.runWallClockBudget = d
		return nil
	}
}

// WithLoopOperators registers the definition ids the planner treats as
// loop headers (spec.md §4.1 loop detection).
func WithLoopOperators(definitionIDs ...string) Option {
	return func(cfg *engineConfig) error {
		for _, id := range definitionIDs {
			cfg.loopOperators[id] = true
		}
		return nil
	}
}

// WithEventListenerOperators registers the definition ids the engine
// treats as custom-event-listener nodes (spec.md §4.5): at run start,
// each such node's Exit-successor chain is subscribed to the event bus
// under the event name read from its eventNameSocket input default
// (spec.md §4.2 step 3).
func WithEventListenerOperators(definitionIDs ...string) Option {
	return func(cfg *engineConfig) error {
		for _, id := range definitionIDs {
			cfg.eventListenerOperators[id] = true
		}
		return nil
	}
}

// WithEventNameSocket overrides the input socket name a custom-event-
// listener node carries its literal event name on. Defaults to
// "EventName".
func WithEventNameSocket(name string) Option {
	return func(cfg *engineConfig) error {
		cfg.eventNameSocket = name
		return nil
	}
}

// WithTypeResolver overrides the socket-type-name to Go-value resolver
// (spec.md §6). Defaults to model.DefaultResolver.
func WithTypeResolver(r model.TypeResolver) Option {
	return func(cfg *engineConfig) error {
		cfg.resolver = r
		return nil
	}
}

// WithNodePolicy registers an opt-in NodePolicy for a node id or
// definition id (see SPEC_FULL.md §7.1). Never applied automatically.
func WithNodePolicy(nodeOrDefinitionID string, policy NodePolicy) Option {
	return func(cfg *engineConfig) error {
		cfg.policies[nodeOrDefinitionID] = policy
		return nil
	}
}

// WithEmitter sets the observability sink for run/layer/node events
// (spec.md §6). Defaults to a text-mode LogEmitter writing to
// os.Stdout; callers normally supply their own. Passing nil installs a
// NullEmitter rather than leaving the engine without a sink.
//
// Every Run additionally and unconditionally feeds its event stream to
// a BufferedEmitter (see Engine.History), regardless of what is set
// here.
func WithEmitter(e emit.Emitter) Option {
	return func(cfg *engineConfig) error {
		if e == nil {
			e = emit.NewNullEmitter()
		}
		cfg.emitter = e
		return nil
	}
}

// WithTracing fans every event out to an OTelEmitter built on tracer,
// in addition to whatever emitter is otherwise configured. Use it to
// get distributed tracing without giving up an existing log or
// Prometheus sink.
func WithTracing(tracer trace.Tracer) Option {
	return func(cfg *engineConfig) error {
		cfg.emitter = &fanoutEmitter{primary: cfg.emitter, secondary: emit.NewOTelEmitter(tracer)}
		return nil
	}
}

// WithHistory attaches a run-history store (SPEC_FULL.md §7.3).
func WithHistory(s history.Store) Option {
	return func(cfg *engineConfig) error {
		cfg.history = s
		return nil
	}
}

func newConfig(reg *binder.Registry, resolver model.TypeResolver, opts []Option) (*engineConfig, error) {
	cfg := defaultConfig()
	if resolver != nil {
		cfg.resolver = resolver
	}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
