package engine

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/loomworks/loom/pkg/spec"
)

// Kind identifies the concrete resource type of a graph node.
type Kind string

const (
	// KindQueue is a message queue node.
	KindQueue Kind = "queue"

	// KindTopic is a pub/sub topic node.
	KindTopic Kind = "topic"

	// KindBucket is an object storage bucket node.
	KindBucket Kind = "bucket"

	// KindKey is an encryption key node.
	KindKey Kind = "key"

	// KindKeyAlias is a companion alias node for an encryption key.
	KindKeyAlias Kind = "key_alias"

	// KindRecord is a high-level DNS record node.
	KindRecord Kind = "record"

	// KindRecordSet is a low-level DNS record set node, used when a routing
	// mode cannot be expressed in the high-level form.
	KindRecordSet Kind = "record_set"

	// KindRole is an identity role node.
	KindRole Kind = "role"
)

// nodeNamespace seeds deterministic node UIDs. Synthesis of the same spec
// must be idempotent, so UIDs derive from logical IDs, never from randomness
// or time.
var nodeNamespace = uuid.MustParse("5f8a1b86-9a14-4b6e-8a33-6f4fb2e0d7c1")

// NodeUID returns the opaque, deterministic identifier for a node.
func NodeUID(kind Kind, logicalID string) string {
	return uuid.NewSHA1(nodeNamespace, []byte(string(kind)+"/"+logicalID)).String()
}

// Token returns a late-bound reference to an attribute of a node, resolved
// by the synthesis backend. Tokens are plain strings so graphs stay
// JSON-serializable.
func Token(logicalID, attr string) string {
	return fmt.Sprintf("${%s.%s}", logicalID, attr)
}

// Node is one concrete entity in the output graph, primary or auxiliary.
type Node struct {
	// Kind is the resource type of this node.
	Kind Kind `json:"kind"`

	// LogicalID is the node's logical identifier within the graph.
	LogicalID string `json:"logical_id"`

	// UID is the opaque deterministic identifier for this node.
	UID string `json:"uid"`

	// Props are the fully resolved properties handed to synthesis.
	Props map[string]any `json:"props"`

	// DependsOn lists logical IDs of nodes this node depends on. The graph
	// is a DAG: a primary may depend on an auxiliary, never the reverse.
	DependsOn []string `json:"depends_on,omitempty"`

	// RemovalPolicy is the resolved lifecycle policy for this node.
	RemovalPolicy spec.RemovalPolicy `json:"removal_policy"`

	// Tags are the tags stamped onto this node.
	Tags map[string]string `json:"tags,omitempty"`
}

// NewNode creates a node with a deterministic UID and an empty property set.
func NewNode(kind Kind, logicalID string) *Node {
	return &Node{
		Kind:      kind,
		LogicalID: logicalID,
		UID:       NodeUID(kind, logicalID),
		Props:     make(map[string]any),
	}
}

// Set assigns a resolved property and returns the node for chaining.
func (n *Node) Set(key string, value any) *Node {
	n.Props[key] = value
	return n
}

// AddDependency records a dependency on another node's logical ID.
func (n *Node) AddDependency(logicalID string) *Node {
	n.DependsOn = append(n.DependsOn, logicalID)
	return n
}

// Output is a named value the graph exposes to the synthesis backend:
// an identifier, an ARN-equivalent, or a family-specific derived value.
type Output struct {
	// Name is the output's name, namespaced by the primary logical ID.
	Name string `json:"name"`

	// Value is the output value, usually a Token.
	Value string `json:"value"`

	// Description documents what the output carries.
	Description string `json:"description,omitempty"`
}

// Graph is the engine's sole product: an ordered list of resolved nodes plus
// declared outputs and applied tags, handed to the synthesis backend.
type Graph struct {
	// Family is the resource family of the primary construct.
	Family spec.Family `json:"family"`

	// Nodes are the resolved nodes in dependency order (auxiliaries before
	// the primaries that reference them).
	Nodes []*Node `json:"nodes"`

	// Outputs are the graph's declared outputs.
	Outputs []Output `json:"outputs,omitempty"`

	// Tags are the tags applied to every node in the graph.
	Tags map[string]string `json:"tags,omitempty"`
}

// NewGraph creates an empty graph for the given family.
func NewGraph(family spec.Family) *Graph {
	return &Graph{
		Family: family,
		Nodes:  make([]*Node, 0, 2),
	}
}

// Add appends a node to the graph.
func (g *Graph) Add(node *Node) *Graph {
	g.Nodes = append(g.Nodes, node)
	return g
}

// Node returns the node with the given logical ID, or nil.
func (g *Graph) Node(logicalID string) *Node {
	for _, n := range g.Nodes {
		if n.LogicalID == logicalID {
			return n
		}
	}
	return nil
}

// DeclareOutput records a named output on the graph.
func (g *Graph) DeclareOutput(name, value, description string) {
	g.Outputs = append(g.Outputs, Output{Name: name, Value: value, Description: description})
}
