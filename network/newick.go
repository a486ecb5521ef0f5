package network

import (
	"bufio"
	"errors"
	"io"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Mode is the parser mode, i.e. how the next text token is used.
type Mode int

// Parser modes.
const (
	// NORMAL: token is a node name.
	NORMAL Mode = iota
	// HYBRID: token is a hybrid label following '#'.
	HYBRID
	// FIELD: token is an edge field following one or several ':'.
	FIELD
)

// unknownGamma marks hybrid edges without inheritance probability.
const unknownGamma = -1

// pnode is a node of the parsed Newick string. A hybrid node appears
// in the string several times, each appearance is a separate pnode.
type pnode struct {
	name     string
	hybrid   string
	length   float64
	gamma    float64
	parent   *pnode
	children []*pnode
}

func (p *pnode) addChild(c *pnode) {
	c.parent = p
	p.children = append(p.children, c)
}

// IsSpecial returns true for the characters which have special
// meaning in Newick.
func IsSpecial(c rune) bool {
	switch c {
	case '(', ')', ':', '#', ';', ',':
		return true
	}
	return false
}

// NewickSplit is a bufio.SplitFunc splitting Newick into tokens.
func NewickSplit(data []byte, atEOF bool) (advance int, token []byte, err error) {
	start := 0
	// Skip leading spaces; and return 1-char tokens.
	for width := 0; start < len(data); start += width {
		var r rune
		r, width = utf8.DecodeRune(data[start:])
		if IsSpecial(r) {
			return start + width, data[start : start+width], nil
		}
		if !unicode.IsSpace(r) {
			break
		}
	}
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	// Scan until space or special character.
	for width, i := 0, start; i < len(data); i += width {
		var r rune
		r, width = utf8.DecodeRune(data[i:])
		if unicode.IsSpace(r) || IsSpecial(r) {
			return i, data[start:i], nil
		}
	}
	// If we're at EOF, we have a final, non-empty, non-terminated word. Return it.
	if atEOF && len(data) > start {
		return len(data), data[start:], nil
	}
	// Request more data.
	return 0, nil, nil
}

// parseNewick reads the Newick string into a pnode tree.
func parseNewick(rd io.Reader) (*pnode, error) {
	scanner := bufio.NewScanner(rd)
	scanner.Split(NewickSplit)

	root := &pnode{gamma: unknownGamma}
	node := root
	mode := NORMAL
	// number of ':' after the current node
	field := 0

	for scanner.Scan() {
		text := scanner.Text()
		switch text {
		case "(":
			sub := &pnode{gamma: unknownGamma}
			node.addChild(sub)
			node = sub
			mode, field = NORMAL, 0
		case ",":
			if node.parent == nil {
				return nil, errors.New("top level comma mismatch")
			}
			sub := &pnode{gamma: unknownGamma}
			node.parent.addChild(sub)
			node = sub
			mode, field = NORMAL, 0
		case ")":
			if node.parent == nil {
				return nil, errors.New("brackets mismatch")
			}
			node = node.parent
			mode, field = NORMAL, 0
		case "#":
			mode = HYBRID
		case ":":
			mode = FIELD
			field++
		case ";":
			if node != root {
				return nil, errors.New("brackets mismatch")
			}
			return root, nil
		default:
			switch mode {
			case HYBRID:
				node.hybrid = text
			case FIELD:
				v, err := strconv.ParseFloat(text, 64)
				if err != nil {
					return nil, err
				}
				switch field {
				case 1:
					node.length = v
				case 2:
					// support values are ignored
				case 3:
					if v < 0 || v > 1 {
						return nil, errors.New("inheritance probability out of [0, 1]: " + text)
					}
					node.gamma = v
				default:
					return nil, errors.New("too many edge fields")
				}
			default:
				node.name = text
			}
			mode = NORMAL
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return nil, errors.New("unexpected end of input, missing ';'")
}

// ParseNewick reads a network in the extended Newick format. Hybrid
// nodes are marked with '#label' and appear once for each of their
// parents; the edge fields are ':length:support:gamma'. A root with
// three or more children means the network is unrooted.
func ParseNewick(rd io.Reader) (net *Network, err error) {
	root, err := parseNewick(rd)
	if err != nil {
		return nil, err
	}

	net = New()
	hybrids := make(map[string]*Node)
	var hybridOrder []*Node

	nodeFor := func(p *pnode) *Node {
		if p.hybrid == "" {
			return net.AddNode(p.name)
		}
		if node, ok := hybrids[p.hybrid]; ok {
			if node.Name == p.hybrid && p.name != "" {
				node.Name = p.name
			}
			return node
		}
		name := p.name
		if name == "" {
			name = p.hybrid
		}
		node := net.AddNode(name)
		node.Hybrid = true
		hybrids[p.hybrid] = node
		hybridOrder = append(hybridOrder, node)
		return node
	}

	var build func(p *pnode, node *Node)
	build = func(p *pnode, node *Node) {
		for _, c := range p.children {
			child := nodeFor(c)
			if c.hybrid != "" {
				net.addEdge(node, child, c.length, c.gamma)
			} else {
				net.addEdge(node, child, c.length, 1)
			}
			build(c, child)
		}
	}
	rootNode := nodeFor(root)
	net.SetRoot(rootNode)
	build(root, rootNode)

	for _, node := range hybridOrder {
		if err := resolveGamma(node); err != nil {
			return nil, err
		}
	}

	if len(root.children) > 2 {
		log.Debug("Basal polytomy, network is unrooted")
		net.Unroot()
	}

	return net, nil
}

// resolveGamma fills in missing inheritance probabilities of the
// hybrid node parent edges and sets the major edge.
func resolveGamma(node *Node) error {
	if len(node.parents) != 2 {
		return ErrHybrid
	}
	e1, e2 := node.parents[0], node.parents[1]
	switch {
	case e1.Gamma == unknownGamma && e2.Gamma == unknownGamma:
		e1.Gamma, e2.Gamma = 0.5, 0.5
	case e1.Gamma == unknownGamma:
		e1.Gamma = 1 - e2.Gamma
	case e2.Gamma == unknownGamma:
		e2.Gamma = 1 - e1.Gamma
	}
	e1.IsMajor = e1.Gamma >= e2.Gamma
	e2.IsMajor = !e1.IsMajor
	return nil
}

// formatFloat formats float for Newick output.
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// hybridLabel returns the label used after '#'.
func (node *Node) hybridLabel() string {
	if node.Name != "" {
		return node.Name
	}
	return "H" + strconv.Itoa(node.ID)
}

// String returns the network in the extended Newick format. The
// subtree of a hybrid node is written at its first appearance.
func (net *Network) String() string {
	if net.Root == nil {
		return ";"
	}
	var b strings.Builder
	written := make(map[*Node]bool)
	var write func(node *Node, e *Edge)
	write = func(node *Node, e *Edge) {
		if !written[node] && len(node.children) > 0 {
			written[node] = true
			b.WriteByte('(')
			for i, c := range node.children {
				if i > 0 {
					b.WriteByte(',')
				}
				write(c.Child, c)
			}
			b.WriteByte(')')
		}
		if node.Hybrid {
			b.WriteString("#" + node.hybridLabel())
		} else {
			b.WriteString(node.Name)
		}
		if e != nil {
			b.WriteString(":" + formatFloat(e.Length))
			if node.Hybrid {
				b.WriteString("::" + formatFloat(e.Gamma))
			}
		}
	}
	write(net.Root, nil)
	b.WriteByte(';')
	return b.String()
}
