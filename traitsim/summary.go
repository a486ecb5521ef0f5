package main

import (
	"bitbucket.org/Davydov/traitsim/tmodel"
)

// RunSummary is storing traitsim run summary information.
type RunSummary struct {
	// Version stores traitsim version.
	Version string `json:"version"`
	// CommandLine is an array storing binary name and all command-line parameters.
	CommandLine []string `json:"commandLine"`
	// Seed is the seed used for random number generation initialization.
	Seed int64 `json:"seed"`
	// Model is the model summary.
	Model ModelSummary `json:"model"`
	// Network is the network used for the simulation.
	Network string `json:"network"`
	// NTraits is the number of simulated traits.
	NTraits int `json:"nTraits"`
	// GammaRates are the rate categories, only with rate variation.
	GammaRates []float64 `json:"gammaRates,omitempty"`
	// Time is the computations time in seconds.
	Time float64 `json:"time"`
}

// ModelSummary stores model parameters.
type ModelSummary struct {
	Name       string    `json:"name"`
	Labels     []string  `json:"labels"`
	Rates      []float64 `json:"rates"`
	Stationary []float64 `json:"stationary,omitempty"`
}

// newModelSummary creates a summary for a model. The stationary
// distribution is omitted if it is not unique.
func newModelSummary(m tmodel.Model) ModelSummary {
	pi, err := tmodel.Stationary(m)
	if err != nil {
		log.Debugf("Stationary distribution: %v", err)
		pi = nil
	}
	return ModelSummary{
		Name:       m.Name(),
		Labels:     m.Labels(),
		Rates:      m.Rates(),
		Stationary: pi,
	}
}
