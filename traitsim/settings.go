package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"bitbucket.org/Davydov/traitsim/dist"
	"bitbucket.org/Davydov/traitsim/tmodel"
	"bitbucket.org/Davydov/traitsim/tsim"
)

// settings stores the model and simulation settings.
type settings struct {
	Model      string
	Rates      []float64
	K          int
	Labels     []string
	NTraits    int
	Internal   bool
	NoPreorder bool
	GammaAlpha float64
	GammaNCat  int
	Seed       int64
}

// settingsFile is the YAML settings file, nil values are not set in
// the file.
type settingsFile struct {
	Model      *string   `yaml:"model"`
	Rates      []float64 `yaml:"rates"`
	K          *int      `yaml:"k"`
	Labels     []string  `yaml:"labels"`
	NTraits    *int      `yaml:"ntraits"`
	Internal   *bool     `yaml:"internal"`
	NoPreorder *bool     `yaml:"nopreorder"`
	GammaAlpha *float64  `yaml:"gammaAlpha"`
	GammaNCat  *int      `yaml:"gammaNCat"`
	Seed       *int64    `yaml:"seed"`
}

// newSettings initializes settings from global variables
// (command-line arguments).
func newSettings() (*settings, error) {
	r, err := parseRates(*rates)
	if err != nil {
		return nil, err
	}
	return &settings{
		Model:      *model,
		Rates:      r,
		K:          *nStates,
		Labels:     splitList(*labels),
		NTraits:    *nTraits,
		Internal:   *internal,
		NoPreorder: *noPreorder,
		GammaAlpha: *gammaAlpha,
		GammaNCat:  *gammaNCat,
		Seed:       *seed,
	}, nil
}

// splitList splits a comma-separated list.
func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	res := strings.Split(s, ",")
	for i := range res {
		res[i] = strings.TrimSpace(res[i])
	}
	return res
}

// parseRates parses comma-separated rates.
func parseRates(s string) ([]float64, error) {
	fields := splitList(s)
	if fields == nil {
		return nil, nil
	}
	res := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("error parsing rate %d: %v", i+1, err)
		}
		res[i] = v
	}
	return res, nil
}

// readYAML reads settings from YAML, values which are set in the file
// replace the current ones.
func (s *settings) readYAML(rd io.Reader) error {
	var o settingsFile
	dec := yaml.NewDecoder(rd)
	dec.KnownFields(true)
	if err := dec.Decode(&o); err != nil && err != io.EOF {
		return err
	}
	if o.Model != nil {
		s.Model = *o.Model
	}
	if o.Rates != nil {
		s.Rates = o.Rates
	}
	if o.K != nil {
		s.K = *o.K
	}
	if o.Labels != nil {
		s.Labels = o.Labels
	}
	if o.NTraits != nil {
		s.NTraits = *o.NTraits
	}
	if o.Internal != nil {
		s.Internal = *o.Internal
	}
	if o.NoPreorder != nil {
		s.NoPreorder = *o.NoPreorder
	}
	if o.GammaAlpha != nil {
		s.GammaAlpha = *o.GammaAlpha
	}
	if o.GammaNCat != nil {
		s.GammaNCat = *o.GammaNCat
	}
	if o.Seed != nil {
		s.Seed = *o.Seed
	}
	return nil
}

// ratesOrOnes returns the rates or n ones if no rates are set.
func (s *settings) ratesOrOnes(n int) ([]float64, error) {
	if s.Rates == nil {
		r := make([]float64, n)
		for i := range r {
			r[i] = 1
		}
		return r, nil
	}
	if len(s.Rates) != n {
		return nil, fmt.Errorf("%s model requires %d rate(s), got %d", s.Model, n, len(s.Rates))
	}
	return s.Rates, nil
}

// createModel creates a new model from settings.
func (s *settings) createModel() (m tmodel.Model, err error) {
	var r []float64
	switch s.Model {
	case "binary":
		if r, err = s.ratesOrOnes(2); err == nil {
			m, err = tmodel.NewBinaryModel(r[0], r[1], s.Labels...)
		}
	case "twobinary":
		if r, err = s.ratesOrOnes(8); err == nil {
			m, err = tmodel.NewTwoBinaryModel(r, s.Labels...)
		}
	case "equal":
		if r, err = s.ratesOrOnes(1); err == nil {
			m, err = tmodel.NewEqualRatesModel(s.K, r[0], s.Labels...)
		}
	default:
		err = fmt.Errorf("unknown model: %s", s.Model)
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// options returns the simulation options.
func (s *settings) options() (tsim.Options, error) {
	opts := tsim.DefaultOptions()
	opts.NTraits = s.NTraits
	opts.KeepInternal = s.Internal
	opts.CheckPreorder = !s.NoPreorder
	if s.GammaAlpha > 0 && s.GammaNCat > 1 {
		rv, err := dist.NewRateVariation(s.GammaAlpha, s.GammaNCat)
		if err != nil {
			return opts, err
		}
		opts.RateVariation = rv
	}
	return opts, nil
}
