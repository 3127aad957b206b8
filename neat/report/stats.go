package report

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/baldhumanity/neatevo/neat"
)

// GenerationStats summarizes one generation for analysis and CSV export.
type GenerationStats struct {
	Generation      int     `csv:"generation"`
	BestFitness     float64 `csv:"best_fitness"`
	MeanFitness     float64 `csv:"mean_fitness"`
	StdevFitness    float64 `csv:"stdev_fitness"`
	SpeciesCount    int     `csv:"species"`
	MeanHiddenNodes float64 `csv:"mean_hidden_nodes"`
	MeanConnections float64 `csv:"mean_connections"`
}

// Statistics collects per-generation summaries over a run and tracks the
// best genome ever evaluated. It implements neat.Reporter and is driven
// from the single-threaded generation loop.
type Statistics struct {
	generations []GenerationStats
	bestEver    *neat.Genome

	// Output, when set, receives each completed GenerationStats record.
	Output *OutputManager

	pending GenerationStats
}

// NewStatistics creates an empty statistics collector.
func NewStatistics() *Statistics {
	return &Statistics{}
}

// StartGeneration implements neat.Reporter.
func (s *Statistics) StartGeneration(generation int) {
	s.pending = GenerationStats{Generation: generation}
}

// PostEvaluate implements neat.Reporter.
func (s *Statistics) PostEvaluate(generation int, genomes map[int]*neat.Genome, best *neat.Genome) {
	fitnesses := make([]float64, 0, len(genomes))
	hidden := make([]float64, 0, len(genomes))
	conns := make([]float64, 0, len(genomes))
	for _, g := range genomes {
		fitnesses = append(fitnesses, g.Fitness)
		hidden = append(hidden, float64(g.HiddenNodes()))
		conns = append(conns, float64(g.EnabledConnections()))
	}
	sort.Float64s(fitnesses)

	s.pending.MeanFitness = stat.Mean(fitnesses, nil)
	s.pending.StdevFitness = stat.StdDev(fitnesses, nil)
	s.pending.MeanHiddenNodes = stat.Mean(hidden, nil)
	s.pending.MeanConnections = stat.Mean(conns, nil)

	if best != nil {
		s.pending.BestFitness = best.Fitness
		if s.bestEver == nil || best.Fitness > s.bestEver.Fitness {
			snap := best.Clone()
			snap.Fitness = best.Fitness
			s.bestEver = snap
		}
	}
}

// SpeciesStagnant implements neat.Reporter.
func (s *Statistics) SpeciesStagnant(generation int, sp *neat.Species) {}

// EndGeneration implements neat.Reporter.
func (s *Statistics) EndGeneration(generation int, genomes map[int]*neat.Genome, species map[int]*neat.Species) {
	s.pending.SpeciesCount = len(species)
	s.generations = append(s.generations, s.pending)
	if s.Output != nil {
		// Export errors must not abort the run; the OutputManager keeps
		// the first error for inspection.
		_ = s.Output.WriteStats(s.pending)
	}
}

// Generations returns the collected per-generation records.
func (s *Statistics) Generations() []GenerationStats {
	return s.generations
}

// BestEver returns a copy of the fittest genome seen so far, or nil before
// the first evaluation.
func (s *Statistics) BestEver() *neat.Genome {
	return s.bestEver
}

// BestFitnessHistory returns the best fitness per generation, in order.
func (s *Statistics) BestFitnessHistory() []float64 {
	history := make([]float64, len(s.generations))
	for i, g := range s.generations {
		history[i] = g.BestFitness
	}
	return history
}
