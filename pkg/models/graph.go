package models

// Graph is the read-only view of a workflow's nodes and edges used during one execution.
type Graph struct {
	nodes    []*Node
	edges    []*Edge
	byID     map[string]*Node
	outgoing map[string][]*Edge
}

// NewGraph indexes nodes by id and edges by source. Nil entries are ignored.
// When two nodes share an id the later one wins the lookup, as in the editor.
func NewGraph(nodes []*Node, edges []*Edge) *Graph {
	g := &Graph{
		byID:     make(map[string]*Node, len(nodes)),
		outgoing: make(map[string][]*Edge, len(edges)),
	}

	for _, node := range nodes {
		if node == nil {
			continue
		}

		g.nodes = append(g.nodes, node)
		g.byID[node.ID] = node
	}

	for _, edge := range edges {
		if edge == nil {
			continue
		}

		g.edges = append(g.edges, edge)
		g.outgoing[edge.Source] = append(g.outgoing[edge.Source], edge)
	}

	return g
}

// Nodes returns the graph's nodes in declaration order.
func (g *Graph) Nodes() []*Node {
	return g.nodes
}

// Edges returns the graph's edges in declaration order.
func (g *Graph) Edges() []*Edge {
	return g.edges
}

// Node looks a node up by id.
func (g *Graph) Node(id string) (*Node, bool) {
	node, ok := g.byID[id]

	return node, ok
}

// Outgoing returns the edges whose source is the given node, in declaration order.
func (g *Graph) Outgoing(nodeID string) []*Edge {
	return g.outgoing[nodeID]
}

// Roots returns every node with no incoming edge, in declaration order, whatever its kind.
func (g *Graph) Roots() []*Node {
	targeted := make(map[string]struct{}, len(g.edges))
	for _, edge := range g.edges {
		targeted[edge.Target] = struct{}{}
	}

	roots := make([]*Node, 0, len(g.nodes))

	for _, node := range g.nodes {
		if _, ok := targeted[node.ID]; !ok {
			roots = append(roots, node)
		}
	}

	return roots
}
