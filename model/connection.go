package model

// Connection is a tuple (from-node, from-socket, to-node, to-socket,
// is-execution). An input socket admits at most one incoming
// connection; an output socket may fan out to many.
type Connection struct {
	FromNodeID  string
	FromSocket  string
	ToNodeID    string
	ToSocket    string
	IsExecution bool
}

// socketKey identifies the destination side of a connection and keys
// the incoming-connection indices. The "at most one incoming connection
// per input socket" rule is enforced by plan.Validate, not here.
type socketKey struct {
	NodeID string
	Socket string
}

func (c Connection) toKey() socketKey { return socketKey{c.ToNodeID, c.ToSocket} }

// Graph is an immutable snapshot of a node graph taken at run start
// (spec.md §9 Open Question (c): the runtime must not observe later
// mutation of caller-owned slices). Index fields are derived, not
// authored.
type Graph struct {
	Nodes       []NodeDescriptor
	Connections []Connection

	nodesByID    map[string]NodeDescriptor
	outgoing     map[string][]Connection // by FromNodeID
	incomingData map[socketKey]Connection
	incomingExec map[socketKey][]Connection
}

// Snapshot makes a defensive copy of nodes and connections and builds
// the lookup indices the planner and runtime need repeatedly.
func Snapshot(nodes []NodeDescriptor, connections []Connection) *Graph {
	g := &Graph{
		Nodes:        append([]NodeDescriptor(nil), nodes...),
		Connections:  append([]Connection(nil), connections...),
		nodesByID:    make(map[string]NodeDescriptor, len(nodes)),
		outgoing:     make(map[string][]Connection),
		incomingData: make(map[socketKey]Connection),
		incomingExec: make(map[socketKey][]Connection),
	}
	for _, n := range g.Nodes {
		g.nodesByID[n.ID] = n
	}
	for _, c := range g.Connections {
		g.outgoing[c.FromNodeID] = append(g.outgoing[c.FromNodeID], c)
		if c.IsExecution {
			k := c.toKey()
			g.incomingExec[k] = append(g.incomingExec[k], c)
		} else {
			g.incomingData[c.toKey()] = c
		}
	}
	return g
}

// Node looks up a node descriptor by id.
func (g *Graph) Node(id string) (NodeDescriptor, bool) {
	n, ok := g.nodesByID[id]
	return n, ok
}

// Outgoing returns every connection whose source is nodeID, in the
// order they were supplied.
func (g *Graph) Outgoing(nodeID string) []Connection {
	return g.outgoing[nodeID]
}

// OutgoingFromSocket returns every connection leaving a specific output
// socket, preserving declaration order — used to fan out a fired
// execution trigger to all downstream consumers.
func (g *Graph) OutgoingFromSocket(nodeID, socket string) []Connection {
	var out []Connection
	for _, c := range g.outgoing[nodeID] {
		if c.FromSocket == socket {
			out = append(out, c)
		}
	}
	return out
}

// IncomingData returns the single incoming data connection to
// (nodeID, socket), if any.
func (g *Graph) IncomingData(nodeID, socket string) (Connection, bool) {
	c, ok := g.incomingData[socketKey{nodeID, socket}]
	return c, ok
}

// IncomingExecution returns every incoming execution connection into
// (nodeID, socket).
func (g *Graph) IncomingExecution(nodeID, socket string) []Connection {
	return g.incomingExec[socketKey{nodeID, socket}]
}
