package dist

import (
	"errors"
	"math"
	"testing"

	"github.com/gonum/floats"
)

const smallDiff = 1e-4

func TestQuantileGamma(tst *testing.T) {
	// exponential distribution median
	if q := QuantileGamma(0.5, 1, 1); math.Abs(q-math.Ln2) > smallDiff {
		tst.Error("Expected ln 2, got", q)
	}
	// rate scales the quantile
	if q := QuantileGamma(0.5, 1, 2); math.Abs(q-math.Ln2/2) > smallDiff {
		tst.Error("Expected ln 2 / 2, got", q)
	}
	if QuantileGamma(0, 2, 1) != 0 || !math.IsInf(QuantileGamma(1, 2, 1), 1) {
		tst.Error("Wrong quantiles at the boundaries")
	}
}

// QuantileGamma inverts the incomplete gamma ratio.
func TestQuantileGammaInverse(tst *testing.T) {
	for _, alpha := range []float64{0.5, 1, 3.7, 20} {
		for _, p := range []float64{0.01, 0.125, 0.5, 0.9, 0.99} {
			x := QuantileGamma(p, alpha, 2)
			if got := IncompleteGamma(x*2, alpha); math.Abs(got-p) > 1e-7 {
				tst.Errorf("alpha=%g: I(Q(%g))=%g", alpha, p, got)
			}
		}
	}
}

/*** Yang (1994) discrete gamma, alpha=0.5, four categories ***/
func TestDiscreteGammaMean(tst *testing.T) {
	r := DiscreteGamma(0.5, 0.5, 4, false, nil, nil)
	exp := []float64{0.0334, 0.2519, 0.8203, 2.8944}
	if !floats.EqualApprox(r, exp, 1e-3) {
		tst.Error("Results missmatch:", r, exp)
	}
}

// Test that both methods keep the mean.
func TestDiscreteGammaRange(tst *testing.T) {
	if testing.Short() {
		tst.Skip("skipping test in short mode.")
	}

	for a := math.Log(0.05); a <= math.Log(50); a += 0.5 {
		alpha := math.Exp(a)
		for n := 1; n <= 8; n++ {
			for _, median := range []bool{false, true} {
				r := DiscreteGamma(alpha, alpha, n, median, nil, nil)
				if mean := floats.Sum(r) / float64(n); math.Abs(mean-1) > smallDiff {
					tst.Errorf("Mean is not 1; alpha=%g, n=%d, median=%v, categories: %v", alpha, n, median, r)
				}
				for i := 1; i < n; i++ {
					if r[i] < r[i-1] {
						tst.Errorf("Categories are not sorted; alpha=%g, n=%d, median=%v, categories: %v", alpha, n, median, r)
					}
				}
			}
		}
	}
}

func TestRateVariation(tst *testing.T) {
	rv, err := NewRateVariation(2, 4)
	if err != nil {
		tst.Fatal(err)
	}
	rates := rv.Rates()
	if len(rates) != 4 {
		tst.Fatal("Wrong number of categories:", rates)
	}
	if math.Abs(floats.Sum(rates)/4-1) > smallDiff {
		tst.Error("Mean rate is not 1:", rates)
	}
	rates[0] = 100
	if rv.Rates()[0] == 100 {
		tst.Error("Rates should return a copy")
	}

	rv, err = NewRateVariation(0.3, 1)
	if err != nil || rv.Rates()[0] != 1 {
		tst.Error("Single category should have rate 1")
	}

	for _, c := range []struct {
		alpha float64
		ncat  int
	}{{0, 4}, {-1, 4}, {math.NaN(), 4}, {1, 0}} {
		if _, err := NewRateVariation(c.alpha, c.ncat); !errors.Is(err, ErrParameter) {
			tst.Error("Expected parameter error for", c)
		}
	}
}
