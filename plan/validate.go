// Package plan implements the hierarchical execution planner of
// spec.md §4.1: graph validation, loop detection, loop-body extraction,
// and Kahn's-algorithm layering of the non-loop remainder.
package plan

import (
	"fmt"
	"sort"

	"github.com/nodegraph/engine/model"
)

// Severity tags a Message as blocking or informational.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// Message is one validation finding.
type Message struct {
	Severity Severity
	Text     string
	NodeID   string
}

func (m Message) String() string {
	if m.NodeID != "" {
		return fmt.Sprintf("[%s] %s (node %s)", m.Severity, m.Text, m.NodeID)
	}
	return fmt.Sprintf("[%s] %s", m.Severity, m.Text)
}

// Validate checks the structural invariants of spec.md §3/§4.1 against
// g and returns every finding. The runtime refuses to start a run if
// any returned Message has SeverityError (spec.md §4.1 "Validation").
func Validate(g *model.Graph) []Message {
	var msgs []Message

	for _, c := range g.Connections {
		from, fromOK := g.Node(c.FromNodeID)
		to, toOK := g.Node(c.ToNodeID)
		if !fromOK {
			msgs = append(msgs, Message{SeverityError, fmt.Sprintf("connection references unknown source node %q", c.FromNodeID), c.FromNodeID})
			continue
		}
		if !toOK {
			msgs = append(msgs, Message{SeverityError, fmt.Sprintf("connection references unknown destination node %q", c.ToNodeID), c.ToNodeID})
			continue
		}
		fromSocket, fromSockOK := from.OutputByName(c.FromSocket)
		if !fromSockOK {
			msgs = append(msgs, Message{SeverityError, fmt.Sprintf("unknown output socket %q", c.FromSocket), from.ID})
		}
		toSocket, toSockOK := to.InputByName(c.ToSocket)
		if !toSockOK {
			msgs = append(msgs, Message{SeverityError, fmt.Sprintf("unknown input socket %q", c.ToSocket), to.ID})
		}
		if fromSockOK && toSockOK {
			fromIsExec := fromSocket.Flavor == model.FlavorExecution
			toIsExec := toSocket.Flavor == model.FlavorExecution
			if fromIsExec != toIsExec || fromIsExec != c.IsExecution {
				msgs = append(msgs, Message{SeverityError, fmt.Sprintf("connection %s.%s -> %s.%s mismatches execution/data flavor", from.ID, c.FromSocket, to.ID, c.ToSocket), to.ID})
			}
		}
	}

	seenInput := make(map[[2]string]int)
	for _, c := range g.Connections {
		seenInput[[2]string{c.ToNodeID, c.ToSocket}]++
	}
	for key, count := range seenInput {
		if count > 1 {
			msgs = append(msgs, Message{SeverityError, fmt.Sprintf("input socket %q receives %d connections, at most one allowed", key[1], count), key[0]})
		}
	}

	initiators := initiatorIDs(g)
	for _, initID := range initiators {
		for _, otherID := range initiators {
			if initID == otherID {
				continue
			}
			if reachableViaExecution(g, otherID, initID) {
				msgs = append(msgs, Message{SeverityError, fmt.Sprintf("execution initiator %q is reachable from another initiator %q", initID, otherID), initID})
			}
		}
	}

	sort.Slice(msgs, func(i, j int) bool {
		if msgs[i].NodeID != msgs[j].NodeID {
			return msgs[i].NodeID < msgs[j].NodeID
		}
		return msgs[i].Text < msgs[j].Text
	})
	return msgs
}

// HasErrors reports whether any message in msgs is a SeverityError.
func HasErrors(msgs []Message) bool {
	for _, m := range msgs {
		if m.Severity == SeverityError {
			return true
		}
	}
	return false
}

func initiatorIDs(g *model.Graph) []string {
	var ids []string
	for _, n := range g.Nodes {
		if n.IsExecutionInitiator {
			ids = append(ids, n.ID)
		}
	}
	sort.Strings(ids)
	return ids
}

// reachableViaExecution reports whether target is reachable from start
// by following execution connections forward.
func reachableViaExecution(g *model.Graph, start, target string) bool {
	visited := map[string]bool{start: true}
	queue := []string{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, c := range g.Outgoing(cur) {
			if !c.IsExecution {
				continue
			}
			if c.ToNodeID == target {
				return true
			}
			if !visited[c.ToNodeID] {
				visited[c.ToNodeID] = true
				queue = append(queue, c.ToNodeID)
			}
		}
	}
	return false
}
