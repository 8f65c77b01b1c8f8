package plan

import (
	"fmt"
	"sort"

	"github.com/nodegraph/engine/model"
)

// planner carries the state shared across the recursive sub-plans of
// one Plan call: the graph snapshot, the globally classified back-edge
// set, and the headers discovered anywhere in the graph, indexed by
// id so a nested body can look its own header back up without
// recomputation.
type planner struct {
	g          *model.Graph
	back       map[model.Connection]bool
	headersByID map[string]*loopHeader
}

// Plan validates (nodes, connections) and, if no error-severity message
// is present, produces a HierarchicalPlan per spec.md §4.1. loopOperators
// names the operator (definition id) set that marks a node as a loop
// header.
func Plan(nodes []model.NodeDescriptor, connections []model.Connection, loopOperators map[string]bool) (*HierarchicalPlan, []Message, error) {
	g := model.Snapshot(nodes, connections)
	msgs := Validate(g)
	if HasErrors(msgs) {
		return nil, msgs, fmt.Errorf("graph validation failed with %d error(s)", countErrors(msgs))
	}

	headers := detectLoopHeaders(g, loopOperators)
	back := classifyBackEdges(g, headers)

	order := append([]*loopHeader(nil), headers...)
	sort.Slice(order, func(i, j int) bool {
		si, sj := trialBodySize(g, order[i], back), trialBodySize(g, order[j], back)
		if si != sj {
			return si < sj
		}
		return order[i].node.ID < order[j].node.ID
	})
	claimed := make(map[string]string)
	for _, h := range order {
		extractBody(g, h, back, claimed)
	}

	p := &planner{g: g, back: back, headersByID: make(map[string]*loopHeader, len(headers))}
	for _, h := range headers {
		p.headersByID[h.node.ID] = h
	}

	scope := make(map[string]bool)
	for _, n := range g.Nodes {
		if n.IsCallable && claimed[n.ID] == "" {
			scope[n.ID] = true
		}
	}

	plan, warnings := p.planScope(scope)
	plan.Warnings = append(append([]Message(nil), msgs...), warnings...)
	return plan, plan.Warnings, nil
}

func countErrors(msgs []Message) int {
	n := 0
	for _, m := range msgs {
		if m.Severity == SeverityError {
			n++
		}
	}
	return n
}

// trialBodySize measures how large h's body would be if it claimed
// freely, used only to order extraction so that the smallest (most
// deeply nested) loops claim their nodes before their containing loop
// runs its own BFS and is stopped at the boundary.
func trialBodySize(g *model.Graph, h *loopHeader, back map[model.Connection]bool) int {
	trial := &loopHeader{node: h.node, loopPathNexts: h.loopPathNexts, exitNexts: h.exitNexts, bodyIDs: make(map[string]bool)}
	extractBody(g, trial, back, make(map[string]string))
	return len(trial.bodyIDs)
}

// planScope produces the steps for one level of nesting: the headers
// whose node id is a member of scope are compiled into LoopSteps (with
// their bodies planned recursively); everything else in scope is
// layered by Kahn's algorithm over forward execution edges, gated by
// loop-exit dependencies (spec.md §4.1 "Remainder layering").
func (p *planner) planScope(scope map[string]bool) (*HierarchicalPlan, []Message) {
	var headersInScope []*loopHeader
	for id := range scope {
		if h, ok := p.headersByID[id]; ok {
			headersInScope = append(headersInScope, h)
		}
	}
	sort.Slice(headersInScope, func(i, j int) bool { return headersInScope[i].node.ID < headersInScope[j].node.ID })

	remainder := make(map[string]bool, len(scope))
	for id := range scope {
		remainder[id] = true
	}
	for _, h := range headersInScope {
		delete(remainder, h.node.ID)
	}

	inDegree := make(map[string]int, len(remainder))
	for id := range remainder {
		inDegree[id] = 0
	}
	for _, c := range p.g.Connections {
		if !c.IsExecution || p.back[c] {
			continue
		}
		if remainder[c.FromNodeID] && remainder[c.ToNodeID] {
			inDegree[c.ToNodeID]++
		}
	}

	exitDeps := make(map[string][]string)
	headerPreds := make(map[string][]string)
	for _, h := range headersInScope {
		for target := range h.exitNexts {
			if remainder[target] {
				exitDeps[target] = append(exitDeps[target], h.node.ID)
			}
		}
		for _, c := range p.g.IncomingExecution(h.node.ID, model.ExecutionInputName) {
			if p.back[c] {
				continue
			}
			if remainder[c.FromNodeID] {
				headerPreds[h.node.ID] = append(headerPreds[h.node.ID], c.FromNodeID)
			}
		}
	}

	emitted := make(map[string]bool)
	headerEmitted := make(map[string]bool)
	var steps []Step

	for {
		progressed := false

		for _, h := range headersInScope {
			if headerEmitted[h.node.ID] {
				continue
			}
			if !allIn(headerPreds[h.node.ID], emitted) {
				continue
			}
			bodyScope := make(map[string]bool, len(h.bodyIDs))
			for id := range h.bodyIDs {
				bodyScope[id] = true
			}
			bodyPlan, bodyWarnings := p.planScope(bodyScope)
			bodyPlan.Warnings = bodyWarnings
			steps = append(steps, Step{
				Kind: StepLoop,
				Loop: LoopStep{
					Header:      h.node,
					LoopSocket:  LoopPathSocket,
					ExitSocket:  ExitSocket,
					Body:        bodyPlan,
					BodyNodeIDs: h.bodyOrder,
				},
			})
			headerEmitted[h.node.ID] = true
			emitted[h.node.ID] = true
			progressed = true
		}

		var ready []string
		for id := range remainder {
			if emitted[id] || inDegree[id] != 0 {
				continue
			}
			if !allIn(exitDeps[id], headerEmitted) {
				continue
			}
			ready = append(ready, id)
		}
		if len(ready) > 0 {
			sort.Strings(ready)
			nodes := make([]model.NodeDescriptor, 0, len(ready))
			for _, id := range ready {
				n, _ := p.g.Node(id)
				nodes = append(nodes, n)
			}
			steps = append(steps, Step{Kind: StepLayer, Layer: LayerStep{Nodes: nodes}})
			for _, id := range ready {
				emitted[id] = true
				for _, c := range p.g.Outgoing(id) {
					if !c.IsExecution || p.back[c] {
						continue
					}
					if _, ok := inDegree[c.ToNodeID]; ok {
						inDegree[c.ToNodeID]--
					}
				}
			}
			progressed = true
		}

		if !progressed {
			break
		}
	}

	var warnings []Message
	var leftover []model.NodeDescriptor
	for id := range remainder {
		if !emitted[id] {
			n, _ := p.g.Node(id)
			leftover = append(leftover, n)
		}
	}
	for _, h := range headersInScope {
		if !headerEmitted[h.node.ID] {
			leftover = append(leftover, h.node)
		}
	}
	if len(leftover) > 0 {
		sort.Slice(leftover, func(i, j int) bool { return leftover[i].ID < leftover[j].ID })
		steps = append(steps, Step{Kind: StepLayer, Layer: LayerStep{Nodes: leftover}})
		warnings = append(warnings, Message{Severity: SeverityWarning, Text: "planner fallback: nodes remained after layering, indicating an undetected cycle"})
	}

	return &HierarchicalPlan{Steps: steps}, warnings
}

func allIn(ids []string, set map[string]bool) bool {
	for _, id := range ids {
		if !set[id] {
			return false
		}
	}
	return true
}
