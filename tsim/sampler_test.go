package tsim

import (
	"math/rand"
	"testing"

	"github.com/gonum/matrix/mat64"
	"github.com/op/go-logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bitbucket.org/Davydov/traitsim/tmodel"
)

func init() {
	logging.SetLevel(logging.WARNING, "tsim")
	logging.SetLevel(logging.WARNING, "tmodel")
	logging.SetLevel(logging.WARNING, "network")
}

// constSource always returns the same number.
type constSource float64

func (c constSource) Float64() float64 {
	return float64(c)
}

func TestCategorical(tst *testing.T) {
	c, err := NewCategorical([]float64{0, 1, 0})
	require.NoError(tst, err)
	assert.Equal(tst, 3, c.Len())
	for _, v := range []float64{0, 0.3, 0.999999} {
		assert.Equal(tst, 2, c.Draw(constSource(v)))
	}

	c, err = NewCategorical([]float64{0.25, 0.25, 0.5})
	require.NoError(tst, err)
	assert.Equal(tst, 1, c.Draw(constSource(0)))
	assert.Equal(tst, 2, c.Draw(constSource(0.3)))
	assert.Equal(tst, 3, c.Draw(constSource(0.5)))
	assert.Equal(tst, 3, c.Draw(constSource(0.9999999)))

	// unnormalized weights
	c, err = NewCategorical([]float64{2, 0, 6, 0})
	require.NoError(tst, err)
	assert.Equal(tst, 1, c.Draw(constSource(0.2)))
	assert.Equal(tst, 3, c.Draw(constSource(0.25)))
	assert.Equal(tst, 3, c.Draw(constSource(0.99)))

	for _, w := range [][]float64{
		{0, 0},
		{0.5, -0.5, 1},
		{},
	} {
		_, err = NewCategorical(w)
		assert.ErrorIs(tst, err, ErrWeights, "weights %v", w)
	}
}

func TestCategoricalFrequencies(tst *testing.T) {
	w := []float64{0.1, 0.6, 0.3}
	c, err := NewCategorical(w)
	require.NoError(tst, err)
	src := rand.New(rand.NewSource(1))
	const n = 100000
	counts := make([]float64, 3)
	for i := 0; i < n; i++ {
		counts[c.Draw(src)-1]++
	}
	for i := range w {
		assert.InDelta(tst, w[i], counts[i]/n, 0.01, "state %d", i+1)
	}
}

func TestRandomTraitZeroTime(tst *testing.T) {
	bm, _ := tmodel.NewBinaryModel(1, 2)
	erm, _ := tmodel.NewEqualRatesModel(5, 0.5)
	tbm, _ := tmodel.NewTwoBinaryModel([]float64{1, 2, 3, 4, 5, 6, 7, 8})
	for _, tc := range []struct {
		m     tmodel.Model
		start []int
	}{
		{bm, []int{1, 2, 1, 2, 2}},
		{erm, []int{5, 4, 3, 2, 1, 1, 1}},
		{tbm, []int{4, 3, 2, 1}},
	} {
		for rep := 0; rep < 20; rep++ {
			end, err := RandomTrait(nil, tc.m, 0, tc.start)
			require.NoError(tst, err)
			assert.Equal(tst, tc.start, end, tc.m.Name())
		}
	}
}

func TestRandomTraitSeed(tst *testing.T) {
	m, err := tmodel.NewBinaryModel(1.0, 2.0)
	require.NoError(tst, err)
	start := []int{1, 2, 1, 2, 2}

	end1, err := RandomTrait(rand.New(rand.NewSource(42)), m, 0.2, start)
	require.NoError(tst, err)
	end2, err := RandomTrait(rand.New(rand.NewSource(42)), m, 0.2, start)
	require.NoError(tst, err)
	assert.Equal(tst, end1, end2)
	assert.Len(tst, end1, len(start))
	for _, s := range end1 {
		assert.Contains(tst, []int{1, 2}, s)
	}
	assert.Equal(tst, []int{1, 2, 1, 2, 2}, start, "start states should not change")

	// seeding the default source
	rand.Seed(7)
	end1, err = RandomTrait(nil, m, 0.2, start)
	require.NoError(tst, err)
	rand.Seed(7)
	end2, err = RandomTrait(DefaultSource(), m, 0.2, start)
	require.NoError(tst, err)
	assert.Equal(tst, end1, end2)
}

func TestRandomTraitFrequencies(tst *testing.T) {
	m, _ := tmodel.NewEqualRatesModel(3, 1)
	const n = 60000
	const t = 0.3
	start := make([]int, n)
	for i := range start {
		start[i] = i%3 + 1
	}
	end, err := RandomTrait(rand.New(rand.NewSource(3)), m, t, start)
	require.NoError(tst, err)
	p, err := tmodel.P(m, t)
	require.NoError(tst, err)
	counts := mat64.NewDense(3, 3, nil)
	for i := range start {
		counts.Set(start[i]-1, end[i]-1, counts.At(start[i]-1, end[i]-1)+1)
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			assert.InDelta(tst, p.At(i, j), counts.At(i, j)/(n/3), 0.015, "P[%d,%d]", i, j)
		}
	}
}

func TestRandomTraitInto(tst *testing.T) {
	m, _ := tmodel.NewBinaryModel(1, 1)
	start := []int{1, 2, 2}
	end := make([]int, 3)
	require.NoError(tst, RandomTraitInto(constSource(0.5), m, 1, start, end))
	for _, s := range end {
		assert.Contains(tst, []int{1, 2}, s)
	}

	err := RandomTraitInto(nil, m, 1, start, make([]int, 2))
	assert.ErrorIs(tst, err, ErrLength)

	_, err = RandomTrait(nil, m, -1, start)
	assert.ErrorIs(tst, err, tmodel.ErrNegativeTime)

	for _, bad := range []int{0, 3, -1} {
		_, err = RandomTrait(nil, m, 1, []int{1, bad})
		assert.ErrorIs(tst, err, ErrState)
	}

	// end states are untouched if any start state is invalid
	end = []int{7, 7, 7}
	err = RandomTraitInto(constSource(0.5), m, 1, []int{1, 2, 0}, end)
	assert.ErrorIs(tst, err, ErrState)
	assert.Contains(tst, err.Error(), "trait 3")
	assert.Equal(tst, []int{7, 7, 7}, end)

	end, err = RandomTrait(nil, m, 1, nil)
	require.NoError(tst, err)
	assert.Empty(tst, end)
}
