package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/op/go-logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bitbucket.org/Davydov/traitsim/network"
	"bitbucket.org/Davydov/traitsim/tmodel"
	"bitbucket.org/Davydov/traitsim/tsim"
)

func init() {
	logging.SetLevel(logging.WARNING, "traitsim")
	logging.SetLevel(logging.WARNING, "tsim")
	logging.SetLevel(logging.WARNING, "tmodel")
	logging.SetLevel(logging.WARNING, "network")
}

func defaultSettings() *settings {
	return &settings{
		Model:     "binary",
		K:         2,
		NTraits:   1,
		GammaNCat: 4,
		Seed:      -1,
	}
}

func TestParseRates(tst *testing.T) {
	r, err := parseRates("1, 2.5,0")
	require.NoError(tst, err)
	assert.Equal(tst, []float64{1, 2.5, 0}, r)

	r, err = parseRates("")
	require.NoError(tst, err)
	assert.Nil(tst, r)

	_, err = parseRates("1,x")
	assert.Error(tst, err)

	assert.Equal(tst, []string{"a", "b"}, splitList("a, b"))
}

func TestCreateModel(tst *testing.T) {
	s := defaultSettings()
	m, err := s.createModel()
	require.NoError(tst, err)
	assert.Equal(tst, []float64{1, 1}, m.Rates())

	s.Model = "equal"
	s.K = 5
	s.Rates = []float64{0.3}
	m, err = s.createModel()
	require.NoError(tst, err)
	n, err := tmodel.NStates(m)
	require.NoError(tst, err)
	assert.Equal(tst, 5, n)

	s.Model = "twobinary"
	s.Rates = nil
	s.Labels = []string{"a", "b", "c", "d"}
	m, err = s.createModel()
	require.NoError(tst, err)
	assert.Equal(tst, []string{"a-c", "a-d", "b-c", "b-d"}, m.Labels())

	s.Rates = []float64{1, 2}
	m, err = s.createModel()
	assert.Error(tst, err)
	assert.Nil(tst, m)

	s = defaultSettings()
	s.Rates = []float64{-1, 1}
	_, err = s.createModel()
	assert.ErrorIs(tst, err, tmodel.ErrInvalidRate)

	s.Model = "unknown"
	_, err = s.createModel()
	assert.Error(tst, err)
}

func TestReadYAML(tst *testing.T) {
	s := defaultSettings()
	err := s.readYAML(strings.NewReader(`
model: equal
k: 3
rates: [0.5]
labels: [red, green, blue]
ntraits: 10
internal: true
gammaAlpha: 0.5
seed: 42
`))
	require.NoError(tst, err)
	assert.Equal(tst, "equal", s.Model)
	assert.Equal(tst, 3, s.K)
	assert.Equal(tst, []float64{0.5}, s.Rates)
	assert.Equal(tst, []string{"red", "green", "blue"}, s.Labels)
	assert.Equal(tst, 10, s.NTraits)
	assert.True(tst, s.Internal)
	assert.False(tst, s.NoPreorder)
	assert.Equal(tst, 4, s.GammaNCat, "unset values are kept")
	assert.Equal(tst, int64(42), s.Seed)

	opts, err := s.options()
	require.NoError(tst, err)
	assert.Equal(tst, 10, opts.NTraits)
	assert.True(tst, opts.KeepInternal)
	assert.True(tst, opts.CheckPreorder)
	require.NotNil(tst, opts.RateVariation)
	assert.Len(tst, opts.RateVariation.Rates(), 4)

	// zero and false values override
	err = s.readYAML(strings.NewReader(`
seed: 0
internal: false
gammaAlpha: 0
`))
	require.NoError(tst, err)
	assert.Equal(tst, int64(0), s.Seed)
	assert.False(tst, s.Internal)
	assert.Equal(tst, 0.0, s.GammaAlpha)
	assert.Equal(tst, 10, s.NTraits)

	s.NoPreorder = true
	require.NoError(tst, s.readYAML(strings.NewReader("nopreorder: false\n")))
	assert.False(tst, s.NoPreorder)

	require.NoError(tst, defaultSettings().readYAML(strings.NewReader("")))

	err = defaultSettings().readYAML(strings.NewReader("unknown: 1\n"))
	assert.Error(tst, err)
}

func TestOptionsNoVariation(tst *testing.T) {
	s := defaultSettings()
	s.NoPreorder = true
	opts, err := s.options()
	require.NoError(tst, err)
	assert.Nil(tst, opts.RateVariation)
	assert.False(tst, opts.CheckPreorder)
	assert.False(tst, opts.KeepInternal)
}

func TestWriteStates(tst *testing.T) {
	m, err := tmodel.NewBinaryModel(1, 1, "no", "yes")
	require.NoError(tst, err)
	res := &tsim.Result{
		States: [][]int{{1, 2}, {2, 2}},
		Labels: []string{"A", "B"},
	}

	var b bytes.Buffer
	require.NoError(tst, writeStates(&b, res, m, false))
	assert.Equal(tst, "trait\tA\tB\n1\tno\tyes\n2\tyes\tyes\n", b.String())

	b.Reset()
	require.NoError(tst, writeStates(&b, res, m, true))
	assert.Equal(tst, "trait\tA\tB\n1\t1\t2\n2\t2\t2\n", b.String())
}

func TestSimulateFromSettings(tst *testing.T) {
	s := defaultSettings()
	s.Model = "equal"
	s.K = 4
	s.NTraits = 5
	m, err := s.createModel()
	require.NoError(tst, err)
	opts, err := s.options()
	require.NoError(tst, err)
	net, err := network.ParseNewick(strings.NewReader("((A:1,(B:1)#H1:1::0.6):1,(#H1:1::0.4,C:1):1);"))
	require.NoError(tst, err)
	res, err := tsim.RandomTraitNetwork(m, net, opts)
	require.NoError(tst, err)

	var b bytes.Buffer
	require.NoError(tst, writeStates(&b, res, m, false))
	lines := strings.Split(strings.TrimSpace(b.String()), "\n")
	assert.Len(tst, lines, 6)
	assert.Equal(tst, "trait\tA\tB\tC", lines[0])

	j, err := json.Marshal(RunSummary{Model: newModelSummary(m), NTraits: s.NTraits})
	require.NoError(tst, err)
	assert.Contains(tst, string(j), `"name":"Equal Rates Substitution Model"`)
	assert.Contains(tst, string(j), `"stationary":[0.25,0.25,0.25,0.25]`)
}

// setFlags sets the command-line globals used by run and restores
// them after the test.
func setFlags(tst *testing.T, networkFile, out string) {
	oldNetwork, oldOut, oldIndices, oldShow := *networkFileName, *outF, *indices, *show
	tst.Cleanup(func() {
		*networkFileName, *outF, *indices, *show = oldNetwork, oldOut, oldIndices, oldShow
	})
	*networkFileName, *outF, *indices, *show = networkFile, out, true, true
}

func TestRunReducible(tst *testing.T) {
	dir := tst.TempDir()
	nwk := filepath.Join(dir, "net.nwk")
	out := filepath.Join(dir, "states.tsv")
	require.NoError(tst, os.WriteFile(nwk, []byte("((A:1,(B:1)#H1:1::0.6):1,(#H1:1::0.4,C:1):1);\n"), 0644))
	setFlags(tst, nwk, out)

	s := defaultSettings()
	s.Model = "twobinary"
	s.Rates, _ = parseRates("0,0,1,0,1,0,0,0")
	s.NTraits = 20
	summary, err := run(s)
	require.NoError(tst, err)
	assert.Nil(tst, summary.Model.Stationary)
	assert.Equal(tst, 20, summary.NTraits)

	b, err := os.ReadFile(out)
	require.NoError(tst, err)
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	require.Len(tst, lines, 21)
	assert.Equal(tst, "trait\tA\tB\tC", lines[0])

	j, err := json.Marshal(summary)
	require.NoError(tst, err)
	assert.NotContains(tst, string(j), "stationary")
	assert.Contains(tst, string(j), `"rates":[0,0,1,0,1,0,0,0]`)
}
