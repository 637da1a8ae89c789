package engine

import (
	"fmt"
	"sort"
	"strings"
)

// Validate checks the structural invariants of the graph: unique logical
// IDs, no dangling dependencies, and no cycles. A validated spec can only
// produce a well-formed graph, so any failure here is an engine defect and
// is reported as an internal error.
func (g *Graph) Validate() error {
	index := make(map[string]*Node, len(g.Nodes))
	for _, n := range g.Nodes {
		if n.LogicalID == "" {
			return NewInternalError("graph node has empty logical ID", nil).
				WithCode(ErrCodeInternal)
		}
		if _, exists := index[n.LogicalID]; exists {
			return NewInternalError(fmt.Sprintf("duplicate node %q", n.LogicalID), nil).
				WithCode(ErrCodeDuplicateNode).WithNode(n.LogicalID)
		}
		index[n.LogicalID] = n
	}

	for _, n := range g.Nodes {
		for _, dep := range n.DependsOn {
			if _, exists := index[dep]; !exists {
				return NewInternalError(
					fmt.Sprintf("node %q depends on non-existent node %q", n.LogicalID, dep), nil).
					WithCode(ErrCodeDanglingEdge).WithNode(n.LogicalID)
			}
		}
	}

	if _, err := g.topoOrder(index); err != nil {
		return err
	}
	return nil
}

// Sort reorders the graph's nodes into dependency order: every node appears
// after the nodes it depends on. Ties break on logical ID so the ordering is
// deterministic across runs.
func (g *Graph) Sort() error {
	index := make(map[string]*Node, len(g.Nodes))
	for _, n := range g.Nodes {
		index[n.LogicalID] = n
	}

	order, err := g.topoOrder(index)
	if err != nil {
		return err
	}

	sorted := make([]*Node, 0, len(g.Nodes))
	for _, id := range order {
		sorted = append(sorted, index[id])
	}
	g.Nodes = sorted
	return nil
}

// topoOrder runs Kahn's algorithm over the dependency edges. If any node
// never reaches in-degree zero the graph has a cycle.
func (g *Graph) topoOrder(index map[string]*Node) ([]string, error) {
	inDegree := make(map[string]int, len(g.Nodes))
	dependents := make(map[string][]string, len(g.Nodes))

	for _, n := range g.Nodes {
		inDegree[n.LogicalID] += 0
		for _, dep := range n.DependsOn {
			inDegree[n.LogicalID]++
			dependents[dep] = append(dependents[dep], n.LogicalID)
		}
	}

	ready := make([]string, 0, len(g.Nodes))
	for id, deg := range inDegree {
		if deg == 0 {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(g.Nodes))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)

		next := make([]string, 0)
		for _, dep := range dependents[id] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				next = append(next, dep)
			}
		}
		sort.Strings(next)
		ready = append(ready, next...)
	}

	if len(order) != len(g.Nodes) {
		cyclic := make([]string, 0)
		for id, deg := range inDegree {
			if deg > 0 {
				cyclic = append(cyclic, id)
			}
		}
		sort.Strings(cyclic)
		return nil, NewInternalError(
			fmt.Sprintf("dependency cycle involving: %s", strings.Join(cyclic, ", ")), nil).
			WithCode(ErrCodeCycle)
	}

	return order, nil
}

// ManagedByTag is stamped onto every node the engine produces.
const ManagedByTag = "loom"

// ApplyTags stamps the fixed tag set plus caller-supplied tags onto every
// node and records the applied set on the graph. Tagging is unconditional
// metadata attachment and never fails; caller tags win on collision.
func (g *Graph) ApplyTags(extra map[string]string) {
	applied := map[string]string{
		"ManagedBy": ManagedByTag,
		"Construct": string(g.Family),
	}
	for k, v := range extra {
		applied[k] = v
	}

	for _, n := range g.Nodes {
		if n.Tags == nil {
			n.Tags = make(map[string]string, len(applied))
		}
		for k, v := range applied {
			n.Tags[k] = v
		}
	}
	g.Tags = applied
}

// ToDOT renders the graph in DOT format for Graphviz visualization.
func (g *Graph) ToDOT() string {
	var sb strings.Builder

	sb.WriteString("digraph ResourceGraph {\n")
	sb.WriteString("  rankdir=TB;\n")
	sb.WriteString("  node [shape=box, style=rounded];\n\n")

	for _, n := range g.Nodes {
		sb.WriteString(fmt.Sprintf("  %q [label=\"%s\\n%s\"];\n", n.LogicalID, n.LogicalID, n.Kind))
	}
	sb.WriteString("\n")

	for _, n := range g.Nodes {
		for _, dep := range n.DependsOn {
			sb.WriteString(fmt.Sprintf("  %q -> %q;\n", dep, n.LogicalID))
		}
	}

	sb.WriteString("}\n")
	return sb.String()
}
