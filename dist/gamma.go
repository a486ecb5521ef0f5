// Package dist implements discretized gamma distribution used to
// model rate variation across traits.
package dist

import (
	"errors"
	"fmt"
	"math"

	"github.com/gonum/mathext"
)

// ErrParameter is returned for invalid distribution parameters.
var ErrParameter = errors.New("invalid distribution parameter")

// IncompleteGamma returns the regularized incomplete gamma ratio
// I(x, alpha), where x is the upper limit of the integration and alpha
// is the shape parameter.
func IncompleteGamma(x, alpha float64) float64 {
	return mathext.GammaInc(alpha, x)
}

// QuantileGamma returns x such that Prob{X<x}=prob for X distributed
// as gamma with shape alpha and rate beta.
func QuantileGamma(prob, alpha, beta float64) float64 {
	switch {
	case prob <= 0:
		return 0
	case prob >= 1:
		return math.Inf(1)
	}
	return mathext.GammaIncInv(alpha, prob) / beta
}

// DiscreteGamma returns K categories of equal probability for
// G(alpha, beta). Each category is represented either by its mean, or
// by its median rescaled so that the mean of all the categories is
// alpha/beta. tmp and res are optional buffers of length K.
func DiscreteGamma(alpha, beta float64, K int, UseMedian bool, tmp, res []float64) []float64 {
	if res == nil {
		res = make([]float64, K)
	}
	mean := alpha / beta
	if K == 1 {
		res[0] = mean
		return res
	}
	if tmp == nil {
		tmp = make([]float64, K)
	}

	if UseMedian {
		sum := 0.0
		for i := range res {
			res[i] = QuantileGamma((float64(i)+0.5)/float64(K), alpha, beta)
			sum += res[i]
		}
		for i := range res {
			res[i] *= mean * float64(K) / sum
		}
		return res
	}

	// Cut points; the partial mean of G(alpha, beta) below x is
	// mean * I(x*beta, alpha+1).
	for i := 0; i < K-1; i++ {
		x := QuantileGamma(float64(i+1)/float64(K), alpha, beta)
		tmp[i] = IncompleteGamma(x*beta, alpha+1)
	}
	tmp[K-1] = 1
	prev := 0.0
	for i := range res {
		res[i] = (tmp[i] - prev) * mean * float64(K)
		prev = tmp[i]
	}
	return res
}

// RateVariation describes gamma distributed rate variation across
// traits with mean rate 1.
type RateVariation struct {
	// Alpha is the gamma shape parameter.
	Alpha float64
	// NCat is the number of rate categories.
	NCat  int
	rates []float64
}

// NewRateVariation creates rate variation with ncat categories of
// equal probability; each category rate is a median of G(alpha, alpha)
// category, the rates are normalized to have mean 1.
func NewRateVariation(alpha float64, ncat int) (*RateVariation, error) {
	if !(alpha > 0) || math.IsInf(alpha, 1) {
		return nil, fmt.Errorf("%w: alpha=%v", ErrParameter, alpha)
	}
	if ncat < 1 {
		return nil, fmt.Errorf("%w: ncat=%v", ErrParameter, ncat)
	}
	return &RateVariation{
		Alpha: alpha,
		NCat:  ncat,
		rates: DiscreteGamma(alpha, alpha, ncat, true, nil, nil),
	}, nil
}

// Rates returns the category rates.
func (rv *RateVariation) Rates() []float64 {
	return append([]float64(nil), rv.rates...)
}

// String returns a short description.
func (rv *RateVariation) String() string {
	return fmt.Sprintf("gamma rate variation: alpha=%g, %d categories, rates=%v", rv.Alpha, rv.NCat, rv.rates)
}
