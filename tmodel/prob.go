package tmodel

import (
	"fmt"
	"math"

	"github.com/gonum/matrix/mat64"
)

// maxExpNorm is the maximum norm of Qt passed to mat64 Exp. Larger
// matrices are scaled down and the result is squared back.
const maxExpNorm = 0.5

// maxSquarings limits the number of squarings in limitP, e^Q is raised
// to the power of at most 2^maxSquarings.
const maxSquarings = 64

// checkTime returns ErrNegativeTime for negative or NaN time.
func checkTime(t float64) error {
	if !(t >= 0) {
		return fmt.Errorf("%w: t=%v", ErrNegativeTime, t)
	}
	return nil
}

// P returns the transition probability matrix for time t, P[i,j] is
// the probability to end in state j starting from state i.
func P(m Model, t float64) (*mat64.Dense, error) {
	if err := checkTime(t); err != nil {
		return nil, err
	}
	if b, ok := m.(*BinaryModel); ok {
		return binaryP(b, t), nil
	}
	q, err := Q(m)
	if err != nil {
		return nil, err
	}
	if math.IsInf(t, 1) {
		pi, err := Stationary(m)
		if err != nil {
			log.Debugf("%v, squaring the exponent", err)
			return limitP(q), nil
		}
		p := mat64.NewDense(len(pi), len(pi), nil)
		for i := range pi {
			p.SetRow(i, pi)
		}
		return p, nil
	}
	return expm(q, t), nil
}

// limitP computes the limit of P(t) for t going to infinity by
// squaring e^Q until the result stops changing. It works for
// reducible chains and defective Q.
func limitP(q *mat64.Dense) *mat64.Dense {
	p := expm(q, 1)
	tmp := new(mat64.Dense)
	for i := 0; i < maxSquarings; i++ {
		tmp.Mul(p, p)
		p, tmp = tmp, p
		if mat64.EqualApprox(p, tmp, 1e-14) {
			break
		}
	}
	clampProb(p)
	return p
}

// PMulti returns transition probability matrices for several times.
// Q is decomposed only once. If Q is not diagonalizable, every matrix
// is computed separately.
func PMulti(m Model, ts []float64) ([]*mat64.Dense, error) {
	for _, t := range ts {
		if err := checkTime(t); err != nil {
			return nil, err
		}
	}
	q, err := Q(m)
	if err != nil {
		return nil, err
	}
	res := make([]*mat64.Dense, len(ts))
	em := NewEMatrix(q)
	if err := em.Eigen(); err != nil {
		log.Debugf("%v, exponentiating %d matrices", err, len(ts))
		for i, t := range ts {
			if res[i], err = P(m, t); err != nil {
				return nil, err
			}
		}
		return res, nil
	}
	for i, t := range ts {
		if res[i], err = em.Exp(t); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// binaryP computes P for the binary model:
//  P = [[p0 + p1 e, p1 - p1 e], [p0 - p0 e, p1 + p0 e]],
// where e = exp(-(alpha+beta) t) and (p0, p1) is the stationary
// distribution.
func binaryP(m *BinaryModel, t float64) *mat64.Dense {
	a := m.alpha + m.beta
	e := math.Exp(-a * t)
	p0 := m.beta / a
	p1 := m.alpha / a
	return mat64.NewDense(2, 2, []float64{
		p0 + p1*e, p1 - p1*e,
		p0 - p0*e, p1 + p0*e,
	})
}

// expm computes e^Qt using scaling and squaring: Qt is scaled by 2^-s
// so that its norm is at most maxExpNorm, exponentiated and squared s
// times.
func expm(q *mat64.Dense, t float64) *mat64.Dense {
	n, _ := q.Dims()
	a := mat64.NewDense(n, n, nil)
	a.Scale(t, q)
	s := 0
	if norm := mat64.Norm(a, math.Inf(1)); norm > maxExpNorm {
		s = int(math.Ceil(math.Log2(norm / maxExpNorm)))
		a.Scale(math.Pow(2, -float64(s)), a)
	}
	p := new(mat64.Dense)
	p.Exp(a)
	tmp := new(mat64.Dense)
	for i := 0; i < s; i++ {
		tmp.Mul(p, p)
		p, tmp = tmp, p
	}
	clampProb(p)
	return p
}

// Stationary returns the stationary distribution of the model.
func Stationary(m Model) ([]float64, error) {
	switch m := m.(type) {
	case *BinaryModel:
		a := m.alpha + m.beta
		return []float64{m.beta / a, m.alpha / a}, nil
	case *EqualRatesModel:
		pi := make([]float64, m.k)
		for i := range pi {
			pi[i] = 1 / float64(m.k)
		}
		return pi, nil
	case *TwoBinaryModel:
		return stationaryQ(m)
	}
	return nil, unsupported("Stationary", m)
}

// stationaryQ solves pi Q = 0 with sum(pi) = 1, the last equation of
// the system is replaced by the normalization.
func stationaryQ(m Model) ([]float64, error) {
	q, err := Q(m)
	if err != nil {
		return nil, err
	}
	n, _ := q.Dims()
	a := mat64.DenseCopyOf(q.T())
	b := mat64.NewDense(n, 1, nil)
	for j := 0; j < n; j++ {
		a.Set(n-1, j, 1)
	}
	b.Set(n-1, 0, 1)
	var x mat64.Dense
	if err := x.Solve(a, b); err != nil {
		return nil, fmt.Errorf("no unique stationary distribution: %w", err)
	}
	pi := mat64.Col(nil, 0, &x)
	for i := range pi {
		pi[i] = math.Max(0, pi[i])
	}
	return pi, nil
}
