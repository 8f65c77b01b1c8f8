package binder_test

import (
	"errors"
	"testing"

	"github.com/nodegraph/engine/binder"
	"github.com/nodegraph/engine/bus"
	"github.com/nodegraph/engine/model"
	"github.com/nodegraph/engine/storage"
)

type fakeContext struct {
	inputs    map[string]model.Value
	outputs   map[string]model.Value
	triggered []string
	store     *storage.Storage
}

func newFakeContext() *fakeContext {
	return &fakeContext{
		inputs:  make(map[string]model.Value),
		outputs: make(map[string]model.Value),
		store:   storage.New(bus.New()),
	}
}

func (f *fakeContext) GetInput(name string) (model.Value, error) { return f.inputs[name], nil }
func (f *fakeContext) SetOutput(name string, v model.Value)      { f.outputs[name] = v }
func (f *fakeContext) Trigger(socket string) error                { f.triggered = append(f.triggered, socket); return nil }
func (f *fakeContext) TriggerScoped(socket string, _ *storage.Storage) error {
	f.triggered = append(f.triggered, socket)
	return nil
}
func (f *fakeContext) Emit(string, model.Value) error           { return nil }
func (f *fakeContext) TriggerEvent(string) error                { return nil }
func (f *fakeContext) GetVariable(string) (model.Value, bool)   { return model.Nil, false }
func (f *fakeContext) SetVariable(string, model.Value)          {}
func (f *fakeContext) EmitFeedback(string, binder.FeedbackKind) {}
func (f *fakeContext) Node() model.NodeDescriptor                { return model.NodeDescriptor{} }
func (f *fakeContext) Storage() *storage.Storage                 { return f.store }

func TestRegistry_ResolvesByDefinitionIDThenName(t *testing.T) {
	r := binder.New()
	called := false
	r.RegisterInline("add.v1", "Add", func(ctx binder.Context, cancel <-chan struct{}) error {
		called = true
		return nil
	})

	op, err := r.Resolve(model.NodeDescriptor{ID: "n1", DefinitionID: "add.v1", Name: "Add"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := op.Execute(nil, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Fatal("expected operator to be invoked")
	}
}

func TestRegistry_FallsBackToName(t *testing.T) {
	r := binder.New()
	r.RegisterInline("add.v1", "Add", func(ctx binder.Context, cancel <-chan struct{}) error { return nil })

	if _, err := r.Resolve(model.NodeDescriptor{ID: "n1", DefinitionID: "unregistered", Name: "Add"}); err != nil {
		t.Fatalf("expected name fallback to resolve, got %v", err)
	}
}

func TestRegistry_UnresolvedReturnsError(t *testing.T) {
	r := binder.New()
	if _, err := r.Resolve(model.NodeDescriptor{ID: "n1", DefinitionID: "missing"}); err == nil {
		t.Fatal("expected error for unregistered node")
	}
}

func TestRegistry_EachResolveIsAFreshInstance(t *testing.T) {
	r := binder.New()
	type counter struct{ n int }
	var created []*counter
	r.Register("counted", "", func() binder.Operator {
		c := &counter{}
		created = append(created, c)
		return binder.OperatorFunc(func(ctx binder.Context, cancel <-chan struct{}) error {
			c.n++
			return nil
		})
	})

	op1, _ := r.Resolve(model.NodeDescriptor{DefinitionID: "counted"})
	op2, _ := r.Resolve(model.NodeDescriptor{DefinitionID: "counted"})
	_ = op1.Execute(nil, nil)
	_ = op2.Execute(nil, nil)
	if len(created) != 2 || created[0] == created[1] {
		t.Fatal("expected two distinct instances, one per Resolve call")
	}
}

type addIn struct {
	A int64 `in:"A"`
	B int64 `in:"B"`
}

type addOut struct {
	Sum  int64        `out:"Sum"`
	Done binder.Signal `out:"Done"`
}

func TestRegisterReflective_PopulatesAndAppliesOut(t *testing.T) {
	r := binder.New()
	node := model.NodeDescriptor{
		ID:           "n1",
		DefinitionID: "reflective.add",
		Outputs: []model.SocketDescriptor{
			{Name: "Done", Side: model.SideOutput, Flavor: model.FlavorExecution},
		},
	}
	err := binder.RegisterReflective(r, node, func(in *addIn, out *addOut) error {
		out.Sum = in.A + in.B
		out.Done = binder.Fire
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	op, err := r.Resolve(node)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx := newFakeContext()
	ctx.inputs["A"] = model.Int(3)
	ctx.inputs["B"] = model.Int(4)

	if err := op.Execute(ctx, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sum, _ := ctx.outputs["Sum"].AsInt()
	if sum != 7 {
		t.Fatalf("expected Sum=7, got %d", sum)
	}
	if len(ctx.triggered) != 1 || ctx.triggered[0] != "Done" {
		t.Fatalf("expected Done to be triggered, got %v", ctx.triggered)
	}
}

func TestRegisterReflective_RejectsWrongShape(t *testing.T) {
	r := binder.New()
	err := binder.RegisterReflective(r, model.NodeDescriptor{DefinitionID: "bad"}, func() {})
	if err == nil {
		t.Fatal("expected error for non-matching function shape")
	}
}

func TestRegisterReflective_PropagatesCallError(t *testing.T) {
	r := binder.New()
	node := model.NodeDescriptor{DefinitionID: "reflective.fail"}
	wantErr := errors.New("boom")
	_ = binder.RegisterReflective(r, node, func(in *addIn, out *addOut) error { return wantErr })

	op, _ := r.Resolve(node)
	ctx := newFakeContext()
	ctx.inputs["A"] = model.Int(1)
	ctx.inputs["B"] = model.Int(2)
	if err := op.Execute(ctx, nil); !errors.Is(err, wantErr) {
		t.Fatalf("expected %v, got %v", wantErr, err)
	}
}
