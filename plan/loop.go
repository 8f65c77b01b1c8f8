package plan

import (
	"sort"

	"github.com/nodegraph/engine/model"
)

// LoopPathSocket and ExitSocket are the conventional execution-output
// socket names a loop header exposes (spec.md §4.1 rule 1).
const (
	LoopPathSocket = "LoopPath"
	ExitSocket     = "Exit"
)

// loopHeader is the planner's working record for one detected loop.
type loopHeader struct {
	node          model.NodeDescriptor
	loopPathNexts []string // OutgoingFromSocket(node, LoopPathSocket) targets, ascending
	exitNexts     map[string]bool
	bodyIDs       map[string]bool
	bodyOrder     []string
}

// detectLoopHeaders returns every node whose operator (definition id)
// matches loopOperators, in ascending node-id order (spec.md §4.1 rule
// 1: "a node is a loop header iff its operator name matches a
// configured set of loop operator names").
func detectLoopHeaders(g *model.Graph, loopOperators map[string]bool) []*loopHeader {
	var headers []*loopHeader
	for _, n := range g.Nodes {
		if !loopOperators[n.DefinitionID] {
			continue
		}
		h := &loopHeader{node: n, exitNexts: make(map[string]bool), bodyIDs: make(map[string]bool)}
		for _, c := range g.OutgoingFromSocket(n.ID, LoopPathSocket) {
			if c.IsExecution {
				h.loopPathNexts = append(h.loopPathNexts, c.ToNodeID)
			}
		}
		for _, c := range g.OutgoingFromSocket(n.ID, ExitSocket) {
			if c.IsExecution {
				h.exitNexts[c.ToNodeID] = true
			}
		}
		sort.Strings(h.loopPathNexts)
		headers = append(headers, h)
	}
	sort.Slice(headers, func(i, j int) bool { return headers[i].node.ID < headers[j].node.ID })
	return headers
}

// reachableFrom returns the set of node ids reachable from any of
// starts by following outgoing execution connections, including the
// start nodes themselves.
func reachableFrom(g *model.Graph, starts []string) map[string]bool {
	visited := make(map[string]bool, len(starts))
	queue := append([]string(nil), starts...)
	for _, s := range starts {
		visited[s] = true
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, c := range g.Outgoing(cur) {
			if !c.IsExecution || visited[c.ToNodeID] {
				continue
			}
			visited[c.ToNodeID] = true
			queue = append(queue, c.ToNodeID)
		}
	}
	return visited
}

// classifyBackEdges returns the set of connections that are back-edges
// per spec.md §4.1 rule 2: a self-loop, or an execution connection
// into a loop header's execution-input from a node reachable from that
// header's LoopPath successors.
func classifyBackEdges(g *model.Graph, headers []*loopHeader) map[model.Connection]bool {
	back := make(map[model.Connection]bool)
	for _, c := range g.Connections {
		if c.FromNodeID == c.ToNodeID {
			back[c] = true
		}
	}
	for _, h := range headers {
		if len(h.loopPathNexts) == 0 {
			continue
		}
		reach := reachableFrom(g, h.loopPathNexts)
		for _, c := range g.IncomingExecution(h.node.ID, model.ExecutionInputName) {
			if reach[c.FromNodeID] {
				back[c] = true
			}
		}
	}
	return back
}

// extractBody runs the BFS of spec.md §4.1 "Loop-body extraction":
// from h's LoopPath successors along forward (non-back-edge) execution
// connections, stopping at the header itself, an Exit-path successor,
// or a node already claimed by another header's body. claimed is
// mutated with every node this call adds.
func extractBody(g *model.Graph, h *loopHeader, back map[model.Connection]bool, claimed map[string]string) {
	queue := append([]string(nil), h.loopPathNexts...)
	visited := make(map[string]bool)
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if visited[cur] {
			continue
		}
		if cur == h.node.ID {
			continue
		}
		if h.exitNexts[cur] {
			continue
		}
		if owner, ok := claimed[cur]; ok && owner != h.node.ID {
			continue
		}
		visited[cur] = true
		h.bodyIDs[cur] = true
		claimed[cur] = h.node.ID
		for _, c := range g.Outgoing(cur) {
			if !c.IsExecution || back[c] {
				continue
			}
			if !visited[c.ToNodeID] {
				queue = append(queue, c.ToNodeID)
			}
		}
	}
	h.bodyOrder = make([]string, 0, len(h.bodyIDs))
	for id := range h.bodyIDs {
		h.bodyOrder = append(h.bodyOrder, id)
	}
	sort.Strings(h.bodyOrder)
}
