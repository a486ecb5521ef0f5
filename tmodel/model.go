// Package tmodel provides continuous-time Markov models of discrete
// trait evolution: the rate matrix Q and the transition probabilities
// P(t) = e^Qt.
//
// States are numbered from 1 to the number of states; 0 is never a
// valid state.
package tmodel

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/gonum/matrix/mat64"
	"github.com/op/go-logging"
)

// log is the global logging variable.
var log = logging.MustGetLogger("tmodel")

var (
	// ErrInvalidRate is returned by the constructors for negative,
	// non-finite or jointly zero rates.
	ErrInvalidRate = errors.New("invalid rate")
	// ErrLabels is returned if the number of labels doesn't match the
	// number of states or labels are not distinct.
	ErrLabels = errors.New("invalid state labels")
	// ErrStates is returned for an invalid number of states.
	ErrStates = errors.New("invalid number of states")
	// ErrNegativeTime is returned if the elapsed time is negative.
	ErrNegativeTime = errors.New("time must be non-negative")
	// ErrUnsupported is returned when a function is not defined for
	// the model type.
	ErrUnsupported = errors.New("operation is not supported for the model")
)

// Model is a substitution model for a discrete trait. The models
// are immutable, Labels and Rates return copies.
type Model interface {
	// Name returns the model name.
	Name() string
	// Labels returns the state labels.
	Labels() []string
	// Rates returns the rate parameters.
	Rates() []float64
}

// BinaryModel is a model for a binary trait with rate alpha for the
// 0→1 change and rate beta for the 1→0 change.
type BinaryModel struct {
	alpha, beta float64
	labels      []string
}

// TwoBinaryModel is a model for two binary traits x and y evolving
// together; the rate of change of one trait can depend on the state of
// the other one. The joint states are x0-y0, x0-y1, x1-y0, x1-y1 and
// only one trait changes at a time.
type TwoBinaryModel struct {
	rates       []float64
	traitLabels []string
	labels      []string
}

// EqualRatesModel is a k-state model where all the changes happen
// with the same rate.
type EqualRatesModel struct {
	k      int
	alpha  float64
	labels []string
}

// checkRate returns error if the rate is negative or not finite.
func checkRate(name string, r float64) error {
	if !(r >= 0) || math.IsInf(r, 1) {
		return fmt.Errorf("%w: %s=%v", ErrInvalidRate, name, r)
	}
	return nil
}

// checkLabels checks labels number and uniqueness; if no labels are
// given, default labels are returned.
func checkLabels(labels, def []string) ([]string, error) {
	if len(labels) == 0 {
		return def, nil
	}
	if len(labels) != len(def) {
		return nil, fmt.Errorf("%w: expected %d labels, got %d", ErrLabels, len(def), len(labels))
	}
	seen := make(map[string]bool, len(labels))
	for _, l := range labels {
		if seen[l] {
			return nil, fmt.Errorf("%w: duplicate label %q", ErrLabels, l)
		}
		seen[l] = true
	}
	return append([]string(nil), labels...), nil
}

// NewBinaryModel creates a binary trait model. Default labels are "0"
// and "1".
func NewBinaryModel(alpha, beta float64, labels ...string) (*BinaryModel, error) {
	if err := checkRate("alpha", alpha); err != nil {
		return nil, err
	}
	if err := checkRate("beta", beta); err != nil {
		return nil, err
	}
	if alpha+beta <= 0 {
		return nil, fmt.Errorf("%w: alpha and beta are both zero", ErrInvalidRate)
	}
	l, err := checkLabels(labels, []string{"0", "1"})
	if err != nil {
		return nil, err
	}
	return &BinaryModel{alpha: alpha, beta: beta, labels: l}, nil
}

// Name returns the model name.
func (m *BinaryModel) Name() string {
	return "Binary Trait Substitution Model"
}

// Labels returns the state labels.
func (m *BinaryModel) Labels() []string {
	return append([]string(nil), m.labels...)
}

// Rates returns alpha and beta.
func (m *BinaryModel) Rates() []float64 {
	return []float64{m.alpha, m.beta}
}

// Alpha returns the rate of the change from the first to the second
// state.
func (m *BinaryModel) Alpha() float64 {
	return m.alpha
}

// Beta returns the rate of the change from the second to the first
// state.
func (m *BinaryModel) Beta() float64 {
	return m.beta
}

// String returns the model description with the rate matrix.
func (m *BinaryModel) String() string {
	return modelString(m)
}

// NewTwoBinaryModel creates a model for two binary traits. rates are
// the eight rates:
//  x 0→1 if y=0, x 1→0 if y=0, x 0→1 if y=1, x 1→0 if y=1,
//  y 0→1 if x=0, y 1→0 if x=0, y 0→1 if x=1, y 1→0 if x=1.
// labels are the labels of x0, x1, y0, y1 (default "x0", "x1", "y0",
// "y1").
func NewTwoBinaryModel(rates []float64, labels ...string) (*TwoBinaryModel, error) {
	if len(rates) != 8 {
		return nil, fmt.Errorf("%w: expected 8 rates, got %d", ErrInvalidRate, len(rates))
	}
	for i, r := range rates {
		if err := checkRate("rate"+strconv.Itoa(i+1), r); err != nil {
			return nil, err
		}
	}
	tl, err := checkLabels(labels, []string{"x0", "x1", "y0", "y1"})
	if err != nil {
		return nil, err
	}
	return &TwoBinaryModel{
		rates:       append([]float64(nil), rates...),
		traitLabels: tl,
		labels: []string{
			tl[0] + "-" + tl[2],
			tl[0] + "-" + tl[3],
			tl[1] + "-" + tl[2],
			tl[1] + "-" + tl[3],
		},
	}, nil
}

// Name returns the model name.
func (m *TwoBinaryModel) Name() string {
	return "Two Binary Trait Substitution Model"
}

// Labels returns the labels of the four joint states.
func (m *TwoBinaryModel) Labels() []string {
	return append([]string(nil), m.labels...)
}

// TraitLabels returns the labels of x0, x1, y0 and y1.
func (m *TwoBinaryModel) TraitLabels() []string {
	return append([]string(nil), m.traitLabels...)
}

// Rates returns the eight rates.
func (m *TwoBinaryModel) Rates() []float64 {
	return append([]float64(nil), m.rates...)
}

// String returns the model description with the rate matrix.
func (m *TwoBinaryModel) String() string {
	return modelString(m)
}

// NewEqualRatesModel creates a k-state equal rates model. Default
// labels are "1", "2", ..., "k".
func NewEqualRatesModel(k int, alpha float64, labels ...string) (*EqualRatesModel, error) {
	if k < 2 {
		return nil, fmt.Errorf("%w: k=%d, at least 2 states required", ErrStates, k)
	}
	if err := checkRate("alpha", alpha); err != nil {
		return nil, err
	}
	if alpha == 0 {
		return nil, fmt.Errorf("%w: alpha must be positive", ErrInvalidRate)
	}
	def := make([]string, k)
	for i := range def {
		def[i] = strconv.Itoa(i + 1)
	}
	l, err := checkLabels(labels, def)
	if err != nil {
		return nil, err
	}
	return &EqualRatesModel{k: k, alpha: alpha, labels: l}, nil
}

// Name returns the model name.
func (m *EqualRatesModel) Name() string {
	return "Equal Rates Substitution Model"
}

// Labels returns the state labels.
func (m *EqualRatesModel) Labels() []string {
	return append([]string(nil), m.labels...)
}

// Rates returns the single rate.
func (m *EqualRatesModel) Rates() []float64 {
	return []float64{m.alpha}
}

// String returns the model description with the rate matrix.
func (m *EqualRatesModel) String() string {
	return modelString(m)
}

// NStates returns the number of states.
func NStates(m Model) (int, error) {
	switch m := m.(type) {
	case *BinaryModel:
		return 2, nil
	case *TwoBinaryModel:
		return 4, nil
	case *EqualRatesModel:
		return m.k, nil
	}
	return 0, unsupported("NStates", m)
}

// NParams returns the number of free rate parameters.
func NParams(m Model) (int, error) {
	switch m.(type) {
	case *BinaryModel:
		return 2, nil
	case *TwoBinaryModel:
		return 8, nil
	case *EqualRatesModel:
		return 1, nil
	}
	return 0, unsupported("NParams", m)
}

// Q returns a new rate matrix. Off-diagonal elements are the rates,
// every row sums to zero.
func Q(m Model) (*mat64.Dense, error) {
	var q *mat64.Dense
	switch m := m.(type) {
	case *BinaryModel:
		return mat64.NewDense(2, 2, []float64{
			-m.alpha, m.alpha,
			m.beta, -m.beta,
		}), nil
	case *TwoBinaryModel:
		r := m.rates
		q = mat64.NewDense(4, 4, nil)
		q.Set(0, 2, r[0])
		q.Set(2, 0, r[1])
		q.Set(1, 3, r[2])
		q.Set(3, 1, r[3])
		q.Set(0, 1, r[4])
		q.Set(1, 0, r[5])
		q.Set(2, 3, r[6])
		q.Set(3, 2, r[7])
	case *EqualRatesModel:
		q = mat64.NewDense(m.k, m.k, nil)
		for i := 0; i < m.k; i++ {
			for j := 0; j < m.k; j++ {
				if i != j {
					q.Set(i, j, m.alpha)
				}
			}
		}
	default:
		return nil, unsupported("Q", m)
	}
	setDiagonal(q)
	return q, nil
}

// setDiagonal sets diagonal elements so that all the rows sum to zero.
func setDiagonal(q *mat64.Dense) {
	n, _ := q.Dims()
	for i := 0; i < n; i++ {
		rowSum := 0.0
		for j := 0; j < n; j++ {
			if i != j {
				rowSum += q.At(i, j)
			}
		}
		q.Set(i, i, -rowSum)
	}
}

// unsupported returns ErrUnsupported annotated with the operation and
// the model type.
func unsupported(op string, m Model) error {
	return fmt.Errorf("%w: %s is not defined for %T", ErrUnsupported, op, m)
}
