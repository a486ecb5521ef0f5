package tmodel

import (
	"errors"
	"math"

	"github.com/gonum/matrix/mat64"
)

const (
	// zeroEigen is a relative threshold below which eigenvalues are
	// treated as zero.
	zeroEigen = 1e-12
	// maxCond is the maximum condition number of the eigenvector
	// matrix. Larger values mean that Q is (close to) not
	// diagonalizable.
	maxCond = 1e10
)

// ErrDecomposition is returned if the eigendecomposition cannot be used
// to exponentiate the matrix.
var ErrDecomposition = errors.New("eigendecomposition failed")

// EMatrix stores Q-matrix and it's eigendecomposition to quickly
// compute e^Qt for many values of t.
type EMatrix struct {
	// Q is the rate matrix.
	Q *mat64.Dense
	// eigenvectors; for a complex pair of eigenvalues the two columns
	// are the real and the imaginary parts of the first eigenvector
	v   *mat64.Dense
	iv  *mat64.Dense
	re  []float64
	im  []float64
	sym bool
}

// NewEMatrix creates a new EMatrix.
func NewEMatrix(Q *mat64.Dense) *EMatrix {
	return &EMatrix{Q: Q}
}

// Symmetric returns true if the decomposition was done using the
// symmetric eigensolver. It is only meaningful after Eigen.
func (m *EMatrix) Symmetric() bool {
	return m.sym
}

// Eigen performs eigendecomposition. Symmetric matrices are
// decomposed with the symmetric solver, the eigenvectors are
// orthonormal and the inverse is the transpose. Other matrices use
// the general solver and the explicit inverse. ErrDecomposition is
// returned if Q is not diagonalizable.
func (m *EMatrix) Eigen() (err error) {
	if m.v != nil {
		return nil
	}
	r, c := m.Q.Dims()
	if r != c {
		return errors.New("Q isn't a square matrix")
	}
	if symmetric(m.Q) {
		if m.eigenSym() {
			return nil
		}
		log.Debug("Symmetric eigendecomposition failed")
	} else {
		log.Debug("Q isn't symmetric, using general eigendecomposition")
	}
	return m.eigen()
}

// eigenSym decomposes a symmetric Q.
func (m *EMatrix) eigenSym() bool {
	n, _ := m.Q.Dims()
	sq := mat64.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sq.SetSym(i, j, m.Q.At(i, j))
		}
	}
	var es mat64.EigenSym
	if !es.Factorize(sq, true) {
		return false
	}
	v := new(mat64.Dense)
	v.EigenvectorsSym(&es)
	m.re = es.Values(nil)
	m.im = make([]float64, n)
	m.cleanValues()
	m.iv = mat64.DenseCopyOf(v.T())
	m.v = v
	m.sym = true
	return true
}

// eigen decomposes a general Q.
func (m *EMatrix) eigen() error {
	n, _ := m.Q.Dims()
	var e mat64.Eigen
	if !e.Factorize(m.Q, false, true) {
		return ErrDecomposition
	}
	v := e.Vectors()
	if mat64.Cond(v, 1) > maxCond {
		return ErrDecomposition
	}
	iv := mat64.NewDense(n, n, nil)
	if err := iv.Inverse(v); err != nil {
		return ErrDecomposition
	}
	m.re = make([]float64, n)
	m.im = make([]float64, n)
	for i, val := range e.Values(nil) {
		m.re[i] = real(val)
		m.im[i] = imag(val)
	}
	m.cleanValues()
	m.v = v
	m.iv = iv
	m.sym = false
	return nil
}

// cleanValues sets the real parts which are zero up to the rounding
// error to zero. Real parts of generator matrix eigenvalues cannot be
// positive.
func (m *EMatrix) cleanValues() {
	scale := 0.0
	for i := range m.re {
		scale = math.Max(scale, math.Abs(m.re[i]))
	}
	for i := range m.re {
		if m.re[i] > 0 || math.Abs(m.re[i]) <= zeroEigen*scale {
			m.re[i] = 0
		}
	}
}

// Exp computes P=e^Qt.
func (m *EMatrix) Exp(t float64) (*mat64.Dense, error) {
	if err := m.Eigen(); err != nil {
		return nil, err
	}
	// This allows infinite branches, zero eigenvalues give 1.
	if math.IsInf(t, 1) {
		t = math.MaxFloat64
	}

	n := len(m.re)
	cD := mat64.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		e := math.Exp(m.re[i] * t)
		if m.im[i] == 0 {
			cD.Set(i, i, e)
			continue
		}
		if e == 0 {
			i++
			continue
		}
		// complex pair a±bi: the block is e^at [[cos bt, sin bt], [-sin bt, cos bt]]
		s, c := math.Sincos(m.im[i] * t)
		cD.Set(i, i, e*c)
		cD.Set(i, i+1, e*s)
		cD.Set(i+1, i, -e*s)
		cD.Set(i+1, i+1, e*c)
		i++
	}
	tmp := mat64.NewDense(n, n, nil)
	tmp.Mul(m.v, cD)
	res := mat64.NewDense(n, n, nil)
	res.Mul(tmp, m.iv)
	clampProb(res)
	return res, nil
}

// symmetric returns true if m is a square symmetric matrix.
func symmetric(m *mat64.Dense) bool {
	n, c := m.Dims()
	if n != c {
		return false
	}
	for i := 0; i < n; i++ {
		for j := 0; j < i; j++ {
			if m.At(i, j) != m.At(j, i) {
				return false
			}
		}
	}
	return true
}

// clampProb removes slightly negative values and values slightly
// larger than one.
func clampProb(p *mat64.Dense) {
	p.Apply(func(r, c int, v float64) float64 {
		return math.Min(1, math.Max(0, v))
	}, p)
}
