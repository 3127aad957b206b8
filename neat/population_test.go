package neat

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPopulationSeedsPopSize(t *testing.T) {
	config := testConfig(t)
	pop, err := NewPopulation(config)
	require.NoError(t, err)

	assert.Len(t, pop.Genomes, config.Neat.PopSize)
	assert.Equal(t, 0, pop.Generation)
	assert.Nil(t, pop.Best)
}

func TestRunGenerationTracksBest(t *testing.T) {
	config := testConfig(t)
	pop, err := NewPopulation(config)
	require.NoError(t, err)

	evaluated := 0
	_, err = pop.RunGeneration(func(genomes map[int]*Genome) error {
		for _, g := range genomes {
			g.Fitness = float64(g.Key)
			evaluated++
		}
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, config.Neat.PopSize, evaluated)
	assert.Equal(t, 1, pop.Generation)
	require.NotNil(t, pop.Best)
	assert.Equal(t, float64(config.Neat.PopSize), pop.Best.Fitness)
	assert.Len(t, pop.Genomes, config.Neat.PopSize)
}

func TestRunGenerationBestIsSnapshot(t *testing.T) {
	config := testConfig(t)
	pop, err := NewPopulation(config)
	require.NoError(t, err)

	_, err = pop.RunGeneration(func(genomes map[int]*Genome) error {
		for _, g := range genomes {
			g.Fitness = float64(g.Key)
		}
		return nil
	})
	require.NoError(t, err)

	best := pop.Best
	weights := map[int]float64{}
	for innov, cg := range best.Connections {
		weights[innov] = cg.Weight
	}

	// Later generations must not mutate the recorded snapshot.
	for i := 0; i < 3; i++ {
		_, err = pop.RunGeneration(func(genomes map[int]*Genome) error {
			for _, g := range genomes {
				g.Fitness = 0
			}
			return nil
		})
		require.NoError(t, err)
	}
	for innov, cg := range best.Connections {
		assert.Equal(t, weights[innov], cg.Weight)
	}
}

func TestRunGenerationFitnessThreshold(t *testing.T) {
	config := testConfig(t)
	config.Neat.NoFitnessTermination = false
	config.Neat.FitnessThreshold = 100.0
	pop, err := NewPopulation(config)
	require.NoError(t, err)

	winner, err := pop.RunGeneration(func(genomes map[int]*Genome) error {
		for _, g := range genomes {
			g.Fitness = 1.0
		}
		return nil
	})
	require.NoError(t, err)
	assert.Nil(t, winner, "threshold not met")

	winner, err = pop.RunGeneration(func(genomes map[int]*Genome) error {
		for _, g := range genomes {
			g.Fitness = 150.0
		}
		return nil
	})
	require.NoError(t, err)
	require.NotNil(t, winner)
	assert.GreaterOrEqual(t, winner.Fitness, 100.0)
}

func TestRunGenerationFitnessError(t *testing.T) {
	config := testConfig(t)
	pop, err := NewPopulation(config)
	require.NoError(t, err)

	_, err = pop.RunGeneration(func(genomes map[int]*Genome) error {
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)
}

// countingReporter records which callbacks fired.
type countingReporter struct {
	starts, evals, stagnants, ends int
}

func (c *countingReporter) StartGeneration(int)                                  { c.starts++ }
func (c *countingReporter) PostEvaluate(int, map[int]*Genome, *Genome)           { c.evals++ }
func (c *countingReporter) SpeciesStagnant(int, *Species)                        { c.stagnants++ }
func (c *countingReporter) EndGeneration(int, map[int]*Genome, map[int]*Species) { c.ends++ }

func TestReportersReceiveCallbacks(t *testing.T) {
	config := testConfig(t)
	pop, err := NewPopulation(config)
	require.NoError(t, err)

	rep := &countingReporter{}
	pop.AddReporter(rep)

	for i := 0; i < 3; i++ {
		_, err = pop.RunGeneration(func(genomes map[int]*Genome) error {
			for _, g := range genomes {
				g.Fitness = 1.0
			}
			return nil
		})
		require.NoError(t, err)
	}
	assert.Equal(t, 3, rep.starts)
	assert.Equal(t, 3, rep.evals)
	assert.Equal(t, 3, rep.ends)
}

// TestEvolveWeightTowardTarget drives the whole loop on the simplest
// possible task: a single input, a single identity output, fitness the
// negated distance between the output for input 1.0 and the target 1.0.
// The best evolved weight must land near the target.
func TestEvolveWeightTowardTarget(t *testing.T) {
	config := DefaultConfig()
	config.Neat.PopSize = 50
	config.Neat.RandomSeed = 42
	config.Genome.NumInputs = 1
	config.Genome.NumOutputs = 1
	config.Genome.ActivationHiddenName = "identity"
	config.Genome.ActivationOutputName = "identity"
	require.NoError(t, config.Finalize())

	pop, err := NewPopulation(config)
	require.NoError(t, err)

	evalLinear := func(genomes map[int]*Genome) error {
		for _, g := range genomes {
			// With identity activations the network is a weighted sum over
			// paths; three propagation passes cover the depths this run
			// can reach.
			value := map[int]float64{config.Genome.InputKeys[0]: 1.0, config.Genome.BiasKey: 1.0}
			for iter := 0; iter < 3; iter++ {
				next := map[int]float64{config.Genome.InputKeys[0]: 1.0, config.Genome.BiasKey: 1.0}
				for _, cg := range g.Connections {
					if cg.Enabled {
						next[cg.Out] += value[cg.In] * cg.Weight
					}
				}
				value = next
			}
			g.Fitness = -math.Abs(value[0] - 1.0)
		}
		return nil
	}

	for i := 0; i < 20; i++ {
		_, err = pop.RunGeneration(evalLinear)
		require.NoError(t, err)
	}

	require.NotNil(t, pop.Best)
	assert.Greater(t, pop.Best.Fitness, -0.05,
		"best genome should produce an output within 0.05 of the target")
}

func TestResetOnExtinctionKeepsRegistry(t *testing.T) {
	config := testConfig(t)
	config.Neat.ResetOnExtinction = true
	config.Stagnation.MaxStagnation = 1
	pop, err := NewPopulation(config)
	require.NoError(t, err)

	pairsBefore := pop.Registry.PairCount()
	require.Positive(t, pairsBefore)

	pop.reset()
	assert.Len(t, pop.Genomes, config.Neat.PopSize)
	assert.Empty(t, pop.SpeciesSet.Species)
	assert.GreaterOrEqual(t, pop.Registry.PairCount(), pairsBefore)
}
