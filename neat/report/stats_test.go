package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baldhumanity/neatevo/neat"
)

func fakeGenomes(fitnesses ...float64) (map[int]*neat.Genome, *neat.Genome) {
	genomes := map[int]*neat.Genome{}
	var best *neat.Genome
	for i, f := range fitnesses {
		g := neat.NewGenome(i + 1)
		g.Fitness = f
		genomes[g.Key] = g
		if best == nil || f > best.Fitness {
			best = g
		}
	}
	return genomes, best
}

func TestStatisticsCollectsGenerations(t *testing.T) {
	s := NewStatistics()

	genomes, best := fakeGenomes(1.0, 2.0, 3.0)
	s.StartGeneration(1)
	s.PostEvaluate(1, genomes, best)
	s.EndGeneration(1, genomes, map[int]*neat.Species{1: nil, 2: nil})

	records := s.Generations()
	require.Len(t, records, 1)
	rec := records[0]
	assert.Equal(t, 1, rec.Generation)
	assert.Equal(t, 3.0, rec.BestFitness)
	assert.InDelta(t, 2.0, rec.MeanFitness, 1e-12)
	assert.InDelta(t, 1.0, rec.StdevFitness, 1e-12)
	assert.Equal(t, 2, rec.SpeciesCount)
}

func TestStatisticsBestEverSurvivesRegression(t *testing.T) {
	s := NewStatistics()

	genomes, best := fakeGenomes(1.0, 5.0)
	s.StartGeneration(1)
	s.PostEvaluate(1, genomes, best)
	s.EndGeneration(1, genomes, nil)

	// A weaker later generation must not displace the record.
	genomes, best = fakeGenomes(0.5, 2.0)
	s.StartGeneration(2)
	s.PostEvaluate(2, genomes, best)
	s.EndGeneration(2, genomes, nil)

	require.NotNil(t, s.BestEver())
	assert.Equal(t, 5.0, s.BestEver().Fitness)
	assert.Equal(t, []float64{5.0, 2.0}, s.BestFitnessHistory())
}

func TestStatisticsBestEverIsACopy(t *testing.T) {
	s := NewStatistics()

	genomes, best := fakeGenomes(1.0, 5.0)
	s.StartGeneration(1)
	s.PostEvaluate(1, genomes, best)

	best.Fitness = -1 // later mutation of the live genome
	assert.Equal(t, 5.0, s.BestEver().Fitness)
}
