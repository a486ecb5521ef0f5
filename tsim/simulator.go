package tsim

import (
	"errors"
	"fmt"

	"bitbucket.org/Davydov/traitsim/dist"
	"bitbucket.org/Davydov/traitsim/network"
	"bitbucket.org/Davydov/traitsim/tmodel"
)

var (
	// ErrNotRooted is returned when simulating on an unrooted network.
	ErrNotRooted = errors.New("network is not rooted")
	// ErrNTraits is returned if the number of traits is not positive.
	ErrNTraits = errors.New("number of traits must be positive")
)

// Options control the network simulation.
type Options struct {
	// NTraits is the number of independent traits.
	NTraits int
	// KeepInternal requests states of all the nodes, otherwise only
	// leaf states are returned.
	KeepInternal bool
	// CheckPreorder recomputes the node order before the simulation.
	CheckPreorder bool
	// Source is the random number source, nil means DefaultSource.
	Source Source
	// RateVariation enables gamma distributed rates across traits.
	RateVariation *dist.RateVariation
}

// DefaultOptions returns options for a single trait with all the
// nodes reported.
func DefaultOptions() Options {
	return Options{
		NTraits:       1,
		KeepInternal:  true,
		CheckPreorder: true,
	}
}

// Result is a simulated trait matrix.
type Result struct {
	// States has one row per trait and one column per node.
	States [][]int
	// Labels are the node names, or IDs for unnamed nodes.
	Labels []string
}

// StateLabels converts state indices to the model state labels.
func (r *Result) StateLabels(m tmodel.Model) ([][]string, error) {
	labels := m.Labels()
	res := make([][]string, len(r.States))
	for i, row := range r.States {
		res[i] = make([]string, len(row))
		for j, s := range row {
			if s < 1 || s > len(labels) {
				return nil, fmt.Errorf("%w: trait %d, node %s: %d", ErrState, i+1, r.Labels[j], s)
			}
			res[i][j] = labels[s-1]
		}
	}
	return res, nil
}

// Simulator is a network visitor, which draws trait states for every
// node. Parent states must be simulated before the child states.
type Simulator struct {
	model   tmodel.Model
	k       int
	src     Source
	ntraits int
	// states by node ID, 0 means not simulated
	states [][]int
	// candidates along the second hybrid edge
	alt []int

	// rate multipliers per category and traits in every category
	catRates  []float64
	catTraits [][]int
}

// NewSimulator creates a simulator for a network with nnodes nodes.
// With rate variation every trait is assigned to a rate category.
func NewSimulator(m tmodel.Model, nnodes int, opts Options) (*Simulator, error) {
	if opts.NTraits < 1 {
		return nil, fmt.Errorf("%w: %d", ErrNTraits, opts.NTraits)
	}
	k, err := tmodel.NStates(m)
	if err != nil {
		return nil, err
	}
	s := &Simulator{
		model:   m,
		k:       k,
		src:     source(opts.Source),
		ntraits: opts.NTraits,
		states:  make([][]int, nnodes),
		alt:     make([]int, opts.NTraits),
	}
	for i := range s.states {
		s.states[i] = make([]int, opts.NTraits)
	}
	if rv := opts.RateVariation; rv != nil {
		s.catRates = rv.Rates()
		s.catTraits = make([][]int, len(s.catRates))
		for i := 0; i < s.ntraits; i++ {
			c := uniform(s.src, len(s.catRates)) - 1
			s.catTraits[c] = append(s.catTraits[c], i)
		}
		log.Debugf("Rate categories: %v", s.catRates)
	}
	return s, nil
}

// States returns the node states. The slice is owned by the
// simulator.
func (s *Simulator) States(node *network.Node) []int {
	return s.states[node.ID]
}

// uniform returns a uniform random integer in [1, n].
func uniform(src Source, n int) int {
	i := int(src.Float64()*float64(n)) + 1
	if i > n {
		return n
	}
	return i
}

// evolve draws states at the end of the edge.
func (s *Simulator) evolve(e *network.Edge, end []int) error {
	start := s.states[e.Parent.ID]
	if s.catTraits == nil {
		if err := RandomTraitInto(s.src, s.model, e.Length, start, end); err != nil {
			return fmt.Errorf("edge %s→%s: %w", e.Parent.Label(), e.Child.Label(), err)
		}
		return nil
	}
	for c, traits := range s.catTraits {
		if len(traits) == 0 {
			continue
		}
		tr, err := newTransition(s.model, e.Length*s.catRates[c])
		if err != nil {
			return fmt.Errorf("edge %s→%s: %w", e.Parent.Label(), e.Child.Label(), err)
		}
		for _, i := range traits {
			if end[i], err = tr.draw(s.src, start[i]); err != nil {
				return fmt.Errorf("edge %s→%s: trait %d: %w", e.Parent.Label(), e.Child.Label(), i+1, err)
			}
		}
	}
	return nil
}

// VisitRoot draws root states uniformly.
func (s *Simulator) VisitRoot(node *network.Node) error {
	st := s.states[node.ID]
	for i := range st {
		st[i] = uniform(s.src, s.k)
	}
	return nil
}

// VisitTree draws states along the parent edge.
func (s *Simulator) VisitTree(node *network.Node, parent *network.Edge) error {
	return s.evolve(parent, s.states[node.ID])
}

// VisitHybrid draws a candidate state along each parent edge. If the
// candidates differ, the first edge candidate is kept with probability
// e1.Gamma, otherwise the second edge candidate is taken.
func (s *Simulator) VisitHybrid(node *network.Node, e1, e2 *network.Edge) error {
	st := s.states[node.ID]
	if err := s.evolve(e1, st); err != nil {
		return err
	}
	if err := s.evolve(e2, s.alt); err != nil {
		return err
	}
	switched := 0
	for i, alt := range s.alt {
		if alt != st[i] && s.src.Float64() > e1.Gamma {
			st[i] = alt
			switched++
		}
	}
	log.Debugf("Hybrid %s: %d of %d traits from %s", node.Label(), switched, s.ntraits, e2.Parent.Label())
	return nil
}

// RandomTraitNetwork simulates independent traits on a rooted
// network. The result columns are in preorder.
func RandomTraitNetwork(m tmodel.Model, net *network.Network, opts Options) (*Result, error) {
	if !net.IsRooted() {
		return nil, ErrNotRooted
	}
	if opts.CheckPreorder {
		net.ClearCache()
	}
	nodes, err := net.Preorder()
	if err != nil {
		return nil, err
	}
	sim, err := NewSimulator(m, net.NNodes(), opts)
	if err != nil {
		return nil, err
	}
	log.Infof("Simulating %d traits on %d nodes", opts.NTraits, len(nodes))
	if err := net.Traverse(sim); err != nil {
		return nil, err
	}

	if !opts.KeepInternal {
		nodes = net.Leaves()
	}
	res := &Result{
		States: make([][]int, opts.NTraits),
		Labels: make([]string, len(nodes)),
	}
	for j, node := range nodes {
		res.Labels[j] = node.Label()
	}
	for i := range res.States {
		row := make([]int, len(nodes))
		for j, node := range nodes {
			row[j] = sim.states[node.ID][i]
		}
		res.States[i] = row
	}
	return res, nil
}
