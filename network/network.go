// Package network implements rooted phylogenetic networks: trees
// with additional hybrid nodes which have two parents.
package network

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/op/go-logging"
)

// log is the global logging variable.
var log = logging.MustGetLogger("network")

var (
	// ErrCycle is returned if the network contains a directed cycle
	// or nodes unreachable from the root.
	ErrCycle = errors.New("network is not a rooted DAG")
	// ErrHybrid is returned if a hybrid node doesn't have exactly
	// two parents.
	ErrHybrid = errors.New("hybrid node must have exactly two parents")
	// ErrNoRoot is returned if root is not set.
	ErrNoRoot = errors.New("network has no root")
	// ErrParents is returned if a tree node has more than one parent.
	ErrParents = errors.New("tree node has more than one parent")
)

// Network is a phylogenetic network. Node order is computed on demand
// and cached, ClearCache should be called after topology changes.
type Network struct {
	Root   *Node
	nodes  []*Node
	edges  []*Edge
	rooted bool

	preorder []*Node
	leaves   []*Node
}

// Node is a network node.
type Node struct {
	Name string
	// ID is a numeric node identifier, unique within a network.
	ID     int
	Hybrid bool

	parents  []*Edge
	children []*Edge
}

// Edge connects parent node to child node.
type Edge struct {
	ID     int
	Parent *Node
	Child  *Node
	Length float64
	// Gamma is the inheritance probability, it is 1 for tree edges.
	Gamma float64
	// IsMajor is false only for the minor edge of a hybrid node.
	IsMajor bool
}

// New creates an empty rooted network.
func New() *Network {
	return &Network{rooted: true}
}

// ClearCache removes the cached node orders.
func (net *Network) ClearCache() {
	net.preorder = nil
	net.leaves = nil
}

// AddNode creates a new node.
func (net *Network) AddNode(name string) *Node {
	node := &Node{Name: name, ID: len(net.nodes)}
	net.nodes = append(net.nodes, node)
	net.ClearCache()
	return node
}

// SetRoot sets the root node. The first node added is the root by
// default.
func (net *Network) SetRoot(node *Node) {
	net.Root = node
	net.ClearCache()
}

// AddEdge adds a tree edge from parent to child.
func (net *Network) AddEdge(parent, child *Node, length float64) *Edge {
	return net.addEdge(parent, child, length, 1)
}

// AddHybridEdge adds one of two edges leading to a hybrid node with
// the inheritance probability gamma. Edge with larger gamma becomes
// major, in case of a tie the first edge added is major.
func (net *Network) AddHybridEdge(parent, child *Node, length, gamma float64) *Edge {
	e := net.addEdge(parent, child, length, gamma)
	child.Hybrid = true
	if len(child.parents) == 2 {
		other := child.parents[0]
		other.IsMajor = other.Gamma >= e.Gamma
		e.IsMajor = !other.IsMajor
	}
	return e
}

func (net *Network) addEdge(parent, child *Node, length, gamma float64) *Edge {
	e := &Edge{
		ID:      len(net.edges),
		Parent:  parent,
		Child:   child,
		Length:  length,
		Gamma:   gamma,
		IsMajor: true,
	}
	net.edges = append(net.edges, e)
	parent.children = append(parent.children, e)
	child.parents = append(child.parents, e)
	if net.Root == nil {
		net.Root = parent
	}
	net.ClearCache()
	return e
}

// IsRooted returns true if the network has a root and is considered
// rooted.
func (net *Network) IsRooted() bool {
	return net.rooted && net.Root != nil
}

// Unroot marks the network as unrooted. The root node is kept as the
// starting point for traversal and output.
func (net *Network) Unroot() {
	net.rooted = false
}

// Nodes returns all nodes in the order of their IDs.
func (net *Network) Nodes() []*Node {
	return net.nodes
}

// Edges returns all edges in the order of their IDs.
func (net *Network) Edges() []*Edge {
	return net.edges
}

// NNodes returns the number of nodes.
func (net *Network) NNodes() int {
	return len(net.nodes)
}

// NLeaves returns the number of leaves.
func (net *Network) NLeaves() int {
	return len(net.Leaves())
}

// Leaves returns leaves in preorder. If the preorder cannot be
// computed, leaves are returned in the ID order.
func (net *Network) Leaves() []*Node {
	if net.leaves == nil {
		nodes, err := net.Preorder()
		if err != nil {
			nodes = net.nodes
		}
		net.leaves = make([]*Node, 0, len(nodes))
		for _, node := range nodes {
			if node.IsTerminal() {
				net.leaves = append(net.leaves, node)
			}
		}
	}
	return net.leaves
}

// NodeByName returns the first node with a given name or nil.
func (net *Network) NodeByName(name string) *Node {
	for _, node := range net.nodes {
		if node.Name == name {
			return node
		}
	}
	return nil
}

// Label returns node name, or its ID if the node has no name.
func (node *Node) Label() string {
	if node.Name != "" {
		return node.Name
	}
	return strconv.Itoa(node.ID)
}

// Parents returns the edges leading to the node.
func (node *Node) Parents() []*Edge {
	return node.parents
}

// Children returns the edges leading from the node.
func (node *Node) Children() []*Edge {
	return node.children
}

// MajorParent returns the major parent edge or nil for the root.
func (node *Node) MajorParent() *Edge {
	for _, e := range node.parents {
		if e.IsMajor {
			return e
		}
	}
	return nil
}

// MinorParent returns the minor parent edge of a hybrid node or nil.
func (node *Node) MinorParent() *Edge {
	for _, e := range node.parents {
		if !e.IsMajor {
			return e
		}
	}
	return nil
}

// IsRoot returns true if the node has no parents.
func (node *Node) IsRoot() bool {
	return len(node.parents) == 0
}

// IsTerminal returns true for leaves.
func (node *Node) IsTerminal() bool {
	return len(node.children) == 0
}

// LongString returns a description of the node.
func (node *Node) LongString() (s string) {
	s = "<"
	if node.IsRoot() {
		s += "root, "
	}
	if node.Hybrid {
		s += "hybrid, "
	}
	if node.Name != "" {
		s += "name=" + node.Name + ", "
	}
	s += fmt.Sprintf("ID=%v", node.ID)
	for _, e := range node.parents {
		s += fmt.Sprintf(", parent=%v:%v", e.Parent.ID, e.Length)
		if node.Hybrid {
			s += fmt.Sprintf("::%v", e.Gamma)
		}
	}
	s += ">"
	return
}

// FullString returns descriptions of all nodes in preorder, one per
// line.
func (net *Network) FullString() string {
	nodes, err := net.Preorder()
	if err != nil {
		nodes = net.nodes
	}
	var b strings.Builder
	for _, node := range nodes {
		b.WriteString(node.LongString())
		b.WriteByte('\n')
	}
	return strings.TrimSpace(b.String())
}
