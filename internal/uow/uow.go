// Package uow defines the UnitOfWork interface that decouples the engine
// (ring, worker, orchestrator) from problem-specific logic: candidate
// generation, fitness evaluation, mutation, crossover, and termination.
//
// A UoW is looked up by name through a small registry (Register/New)
// instead of the source's dynamic class-name dispatch, so the engine never
// needs reflection to instantiate a problem definition.
package uow

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Candidate is a single member of the population: an opaque feature
// payload, the generation it was produced in, its derived Key, and its
// fitness once evaluated.
type Candidate struct {
	Key        string          `json:"key"`
	Generation int             `json:"gen"`
	Features   json.RawMessage `json:"features"`
	Fitness    *float64        `json:"fitness,omitempty"`
}

// Params holds the engine parameters threaded through a UoW instance in
// place of source-level global/class attributes.
type Params struct {
	NPop            int     `yaml:"n_pop" json:"n_pop"`
	NGen            int     `yaml:"n_gen" json:"n_gen"`
	SelectionRate   float64 `yaml:"selection_rate" json:"selection_rate"`
	MutationRate    float64 `yaml:"mutation_rate" json:"mutation_rate"`
	HistGranularity int     `yaml:"hist_granularity" json:"hist_granularity"`
	TermLimit       float64 `yaml:"term_limit" json:"term_limit"`
	// MaxTotalIndiv is an optional cap; zero means "no cap".
	MaxTotalIndiv int `yaml:"max_total_indiv" json:"max_total_indiv"`
}

// Histogram maps a decimal-string fitness bin to the count of candidates
// observed in that bin.
type Histogram map[string]int

// UnitOfWork is the set of problem-specific callbacks the worker and
// orchestrator invoke. Names match the contractual operations; a Go type
// satisfying this interface is the only thing a new problem domain needs
// to supply.
type UnitOfWork interface {
	// Generate produces a fresh, opaque feature payload (used to seed
	// generation 0, and for backfill).
	Generate() json.RawMessage

	// KeyOf derives the candidate Key from a feature payload. Must be a
	// pure function of features.
	KeyOf(features json.RawMessage) string

	// Evaluate computes fitness in [0.0, 1.0] for a feature payload.
	Evaluate(features json.RawMessage) float64

	// Mutate returns a minor perturbation of features.
	Mutate(features json.RawMessage) json.RawMessage

	// Crossover combines two parents' features into a child's features.
	Crossover(a, b json.RawMessage) json.RawMessage

	// ShouldTerminate inspects the merged histogram and total candidates
	// ever seen and reports whether the run should stop.
	ShouldTerminate(currentGen int, hist Histogram, totalSeen int) bool

	// Params returns the engine parameters this UoW was constructed with.
	Params() Params
}

// Constructor builds a UnitOfWork instance from engine parameters.
type Constructor func(params Params) (UnitOfWork, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Constructor{}
)

// Register associates a UoW name with a constructor. Re-registering the
// same name overwrites the previous constructor; this is normally only
// done once per name at package init time.
func Register(name string, ctor Constructor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = ctor
}

// New instantiates the UoW registered under name. It returns an error if
// no such UoW is registered — a configuration error, fatal at orchestrator
// startup per the error-handling taxonomy.
func New(name string, params Params) (UnitOfWork, error) {
	registryMu.RLock()
	ctor, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("uow: no UnitOfWork registered under name %q", name)
	}
	return ctor(params)
}

// Names returns the currently registered UoW names, for diagnostics and
// CLI validation.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]string, 0, len(registry))
	for n := range registry {
		out = append(out, n)
	}
	return out
}

// RoundFitness bins a fitness value to the configured number of decimal
// digits and renders it as the canonical histogram key.
func RoundFitness(fitness float64, granularity int) string {
	return fmt.Sprintf("%.*f", granularity, fitness)
}
