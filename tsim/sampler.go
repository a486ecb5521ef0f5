// Package tsim simulates discrete traits along the edges of
// phylogenetic networks.
//
// States are numbered from 1. The random numbers come from a Source,
// nil means the process-wide math/rand source, which can be seeded with
// rand.Seed for reproducible results.
package tsim

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/gonum/floats"
	"github.com/gonum/matrix/mat64"
	"github.com/op/go-logging"

	"bitbucket.org/Davydov/traitsim/tmodel"
)

// log is the global logging variable.
var log = logging.MustGetLogger("tsim")

var (
	// ErrLength is returned if the output buffer length differs from
	// the number of start states.
	ErrLength = errors.New("start and end lengths differ")
	// ErrState is returned for a state outside of [1, k].
	ErrState = errors.New("state out of range")
	// ErrWeights is returned for a categorical distribution without
	// positive weights or with negative weights.
	ErrWeights = errors.New("invalid categorical weights")
)

// Source is a source of uniformly distributed random numbers in
// [0, 1). *rand.Rand implements Source.
type Source interface {
	Float64() float64
}

type globalSource struct{}

func (globalSource) Float64() float64 {
	return rand.Float64()
}

// DefaultSource returns the process-wide source.
func DefaultSource() Source {
	return globalSource{}
}

func source(src Source) Source {
	if src == nil {
		return DefaultSource()
	}
	return src
}

// Categorical is a distribution over states 1..k.
type Categorical struct {
	// cumulative weights with a leading zero
	cum []float64
	// last state with a positive weight
	last int
}

// NewCategorical creates a distribution with probabilities
// proportional to the weights.
func NewCategorical(weights []float64) (*Categorical, error) {
	c := &Categorical{cum: make([]float64, len(weights)+1)}
	for i, w := range weights {
		if !(w >= 0) || math.IsInf(w, 1) {
			return nil, fmt.Errorf("%w: weight %d is %v", ErrWeights, i+1, w)
		}
		if w > 0 {
			c.last = i + 1
		}
	}
	if c.last == 0 {
		return nil, fmt.Errorf("%w: no positive weights", ErrWeights)
	}
	floats.CumSum(c.cum[1:], weights)
	return c, nil
}

// Len returns the number of states.
func (c *Categorical) Len() int {
	return len(c.cum) - 1
}

// Draw returns a random state.
func (c *Categorical) Draw(src Source) int {
	v := src.Float64() * c.cum[len(c.cum)-1]
	if i := floats.Within(c.cum, v); i >= 0 {
		return i + 1
	}
	// rounding can put v at the upper bound
	return c.last
}

// transition samples end states given start states for one P(t)
// matrix. Categorical distributions are created only for the start
// states which are actually used.
type transition struct {
	p    *mat64.Dense
	rows []*Categorical
}

func newTransition(m tmodel.Model, t float64) (*transition, error) {
	p, err := tmodel.P(m, t)
	if err != nil {
		return nil, err
	}
	n, _ := p.Dims()
	return &transition{p: p, rows: make([]*Categorical, n)}, nil
}

// check returns ErrState for a start state outside of 1..k.
func (tr *transition) check(start int) error {
	if start < 1 || start > len(tr.rows) {
		return fmt.Errorf("%w: %d not in [1, %d]", ErrState, start, len(tr.rows))
	}
	return nil
}

func (tr *transition) draw(src Source, start int) (int, error) {
	if err := tr.check(start); err != nil {
		return 0, err
	}
	c := tr.rows[start-1]
	if c == nil {
		var err error
		c, err = NewCategorical(mat64.Row(nil, start-1, tr.p))
		if err != nil {
			return 0, err
		}
		tr.rows[start-1] = c
	}
	return c.Draw(src), nil
}

// RandomTrait evolves every trait from its start state for time t and
// returns the end states.
func RandomTrait(src Source, m tmodel.Model, t float64, start []int) ([]int, error) {
	end := make([]int, len(start))
	if err := RandomTraitInto(src, m, t, start, end); err != nil {
		return nil, err
	}
	return end, nil
}

// RandomTraitInto is like RandomTrait, but the end states are written
// to the caller-supplied slice. The slice is not modified if any of the
// start states is invalid.
func RandomTraitInto(src Source, m tmodel.Model, t float64, start, end []int) error {
	if len(start) != len(end) {
		return fmt.Errorf("%w: %d start states, %d end states", ErrLength, len(start), len(end))
	}
	tr, err := newTransition(m, t)
	if err != nil {
		return err
	}
	for i, s := range start {
		if err := tr.check(s); err != nil {
			return fmt.Errorf("trait %d: %w", i+1, err)
		}
	}
	src = source(src)
	for i, s := range start {
		if end[i], err = tr.draw(src, s); err != nil {
			return err
		}
	}
	return nil
}
