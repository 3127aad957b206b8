package neat

import (
	"fmt"
	"math"
	"sort"
)

// Stagnation detects species whose aggregate fitness has stopped improving.
type Stagnation struct {
	Config      *StagnationConfig
	fitnessFunc func([]float64) float64
}

// NewStagnation creates a stagnation manager.
func NewStagnation(config *StagnationConfig) (*Stagnation, error) {
	fn, ok := StatFunctions[config.SpeciesFitnessFunc]
	if !ok {
		return nil, fmt.Errorf("invalid species_fitness_func in config: %s", config.SpeciesFitnessFunc)
	}
	return &Stagnation{Config: config, fitnessFunc: fn}, nil
}

// StagnationInfo holds the stagnation verdict for one species.
type StagnationInfo struct {
	Species    *Species
	IsStagnant bool
}

// Update recomputes each species' aggregate fitness, advances its
// generations-since-improvement counter, and marks species stagnant when
// they have not improved for max_stagnation generations. The single best
// species overall is always spared, so stagnation alone can never wipe out
// the population.
func (s *Stagnation) Update(ss *SpeciesSet, generation int) []StagnationInfo {
	keys := ss.sortedKeys()
	if len(keys) == 0 {
		return nil
	}

	bestKey := keys[0]
	bestFitness := math.Inf(-1)
	for _, sk := range keys {
		sp := ss.Species[sk]
		sp.Fitness = s.fitnessFunc(sp.MemberFitnesses())
		sp.AdjustedFitness = 0
		if sp.Fitness > sp.BestFitness {
			sp.BestFitness = sp.Fitness
			sp.LastImproved = generation
		}
		if sp.BestFitness > bestFitness {
			bestFitness = sp.BestFitness
			bestKey = sk
		}
	}

	infos := make([]StagnationInfo, 0, len(keys))
	for _, sk := range keys {
		sp := ss.Species[sk]
		stagnant := generation-sp.LastImproved >= s.Config.MaxStagnation && sk != bestKey
		if stagnant {
			sp.State = SpeciesStagnant
		}
		infos = append(infos, StagnationInfo{Species: sp, IsStagnant: stagnant})
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Species.Key < infos[j].Species.Key
	})
	return infos
}
