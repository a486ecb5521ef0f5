package network

// Visitor is called by Traverse for every node of the network in
// preorder. Every parent is visited before its children, both parents
// of a hybrid node are visited before the hybrid node.
type Visitor interface {
	// VisitRoot is called for the root node.
	VisitRoot(node *Node) error
	// VisitTree is called for a node with a single parent.
	VisitTree(node *Node, parent *Edge) error
	// VisitHybrid is called for a hybrid node, the major parent
	// edge goes first.
	VisitHybrid(node *Node, major, minor *Edge) error
}

// Preorder returns the nodes ordered so that all the parents come
// before their children. The order is cached. A node is added to the
// order as soon as all of its parents are, children are explored in
// the order they were added.
func (net *Network) Preorder() ([]*Node, error) {
	if net.preorder != nil {
		return net.preorder, nil
	}
	if net.Root == nil {
		return nil, ErrNoRoot
	}
	if !net.Root.IsRoot() {
		return nil, ErrCycle
	}
	for _, node := range net.nodes {
		switch {
		case node.Hybrid && len(node.parents) != 2:
			return nil, ErrHybrid
		case node.Hybrid && (node.MajorParent() == nil || node.MinorParent() == nil):
			return nil, ErrHybrid
		case !node.Hybrid && len(node.parents) > 1:
			return nil, ErrParents
		}
	}

	// number of parents already in the order
	seen := make(map[*Node]int, len(net.nodes))
	order := make([]*Node, 0, len(net.nodes))
	stack := []*Node{net.Root}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		order = append(order, node)
		for i := len(node.children) - 1; i >= 0; i-- {
			child := node.children[i].Child
			seen[child]++
			if seen[child] == len(child.parents) {
				stack = append(stack, child)
			}
		}
	}

	if len(order) != len(net.nodes) {
		log.Debugf("Preorder reached %d of %d nodes", len(order), len(net.nodes))
		return nil, ErrCycle
	}
	net.preorder = order
	return order, nil
}

// Traverse calls the visitor for every node in preorder. Traversal
// stops at the first error returned by the visitor.
func (net *Network) Traverse(v Visitor) error {
	nodes, err := net.Preorder()
	if err != nil {
		return err
	}
	for _, node := range nodes {
		switch {
		case node == net.Root:
			err = v.VisitRoot(node)
		case node.Hybrid:
			err = v.VisitHybrid(node, node.MajorParent(), node.MinorParent())
		default:
			err = v.VisitTree(node, node.parents[0])
		}
		if err != nil {
			return err
		}
	}
	return nil
}
