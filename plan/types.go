package plan

import "github.com/nodegraph/engine/model"

// StepKind discriminates the three step shapes of spec.md §3's Plan
// model.
type StepKind int

const (
	StepLayer StepKind = iota
	StepLoop
	StepBranch
)

// Step is one element of a HierarchicalPlan. Exactly one of the
// payload fields is meaningful, selected by Kind — a plain struct
// rather than an interface hierarchy, since the three shapes are fixed
// and the planner is the only producer.
type Step struct {
	Kind StepKind

	// Layer is populated when Kind == StepLayer.
	Layer LayerStep

	// Loop is populated when Kind == StepLoop.
	Loop LoopStep

	// Branch is populated when Kind == StepBranch. The standard branch
	// operator uses execution signals instead, so the planner never
	// emits this variant; it exists for operators whose arms are
	// statically known (spec.md §3).
	Branch BranchStep
}

// LayerStep holds independent nodes that may run concurrently (spec.md
// §3).
type LayerStep struct {
	Nodes []model.NodeDescriptor
}

// LoopStep holds a loop header node and its body plan (spec.md §3).
type LoopStep struct {
	Header      model.NodeDescriptor
	LoopSocket  string
	ExitSocket  string
	Body        *HierarchicalPlan
	BodyNodeIDs []string
}

// BranchStep is reserved for operators with statically-known arms
// (spec.md §3); the planner in this package never produces one.
type BranchStep struct {
	ConditionNode model.NodeDescriptor
	Arms          []BranchArm
}

// BranchArm pairs an arm label with its compiled sub-plan.
type BranchArm struct {
	Label string
	Plan  *HierarchicalPlan
}

// HierarchicalPlan is an ordered sequence of Steps (spec.md §3).
type HierarchicalPlan struct {
	Steps    []Step
	Warnings []Message
}
