package neat

import (
	"fmt"
	"math"
	"math/rand"
	"time"
)

// FitnessFunc evaluates the current generation and writes each genome's
// Fitness field. Implementations may evaluate genomes concurrently; the
// env package provides one backed by a worker pool.
type FitnessFunc func(genomes map[int]*Genome) error

// Population owns the genomes of the current generation and drives the
// evolutionary loop: evaluate, speciate, reproduce, replace.
type Population struct {
	Config       *Config
	Genomes      map[int]*Genome
	SpeciesSet   *SpeciesSet
	Registry     *InnovationRegistry
	Reproduction *Reproduction
	Stagnation   *Stagnation
	Mutator      *Mutator
	Generation   int

	// Best is an immutable snapshot of the fittest genome seen so far. It
	// is safe to read (or persist) concurrently with the next generation's
	// evaluation.
	Best *Genome

	rng       *rand.Rand
	reporters reporterSet
}

// NewPopulation seeds a population of minimal-topology genomes from the
// configuration. The innovation registry is created fresh: numbering is
// process-wide per run.
func NewPopulation(config *Config) (*Population, error) {
	if err := config.Finalize(); err != nil {
		return nil, err
	}

	seed := config.Neat.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	stagnation, err := NewStagnation(&config.Stagnation)
	if err != nil {
		return nil, fmt.Errorf("failed to create stagnation manager: %w", err)
	}

	registry := NewInnovationRegistry(config.Genome.FirstHiddenID())
	reproduction := NewReproduction(&config.Reproduction, stagnation, registry, rng)
	mutator := NewMutator(&config.Genome, registry, rng)

	p := &Population{
		Config:       config,
		Genomes:      reproduction.CreateNewPopulation(&config.Genome, config.Neat.PopSize),
		SpeciesSet:   NewSpeciesSet(&config.SpeciesSet),
		Registry:     registry,
		Reproduction: reproduction,
		Stagnation:   stagnation,
		Mutator:      mutator,
		rng:          rng,
	}
	reproduction.OnStagnant = func(gen int, sp *Species) {
		p.reporters.speciesStagnant(gen, sp)
	}
	return p, nil
}

// AddReporter registers a progress reporter.
func (p *Population) AddReporter(r Reporter) {
	p.reporters.add(r)
}

// RunGeneration executes one generation: fitness evaluation through the
// supplied function, speciation, and reproduction. It returns the best
// genome snapshot if the fitness threshold was met this generation,
// otherwise nil. Termination on generation count is the caller's loop.
func (p *Population) RunGeneration(fitness FitnessFunc) (*Genome, error) {
	p.Generation++
	p.reporters.startGeneration(p.Generation)

	if err := fitness(p.Genomes); err != nil {
		return nil, fmt.Errorf("fitness evaluation failed in generation %d: %w", p.Generation, err)
	}

	best := p.bestOfGeneration()
	if best != nil && (p.Best == nil || best.Fitness > p.Best.Fitness) {
		p.Best = best.snapshot()
	}
	p.reporters.postEvaluate(p.Generation, p.Genomes, best)

	if !p.Config.Neat.NoFitnessTermination && p.Best != nil &&
		p.Best.Fitness >= p.Config.Neat.FitnessThreshold {
		return p.Best, nil
	}

	p.SpeciesSet.Speciate(&p.Config.Genome, p.Genomes, p.Generation, p.rng)

	next, err := p.Reproduction.Reproduce(p.Config, p.SpeciesSet, p.Mutator, p.Config.Neat.PopSize, p.Generation)
	if err != nil {
		if err == ErrExtinct && p.Config.Neat.ResetOnExtinction {
			p.reset()
			return nil, nil
		}
		return nil, fmt.Errorf("reproduction failed in generation %d: %w", p.Generation, err)
	}

	p.Genomes = next
	p.reporters.endGeneration(p.Generation, p.Genomes, p.SpeciesSet.Species)
	return nil, nil
}

// reset reseeds a fresh minimal population after total extinction. The
// innovation registry is deliberately kept: numbering stays consistent for
// the whole run.
func (p *Population) reset() {
	p.Genomes = p.Reproduction.CreateNewPopulation(&p.Config.Genome, p.Config.Neat.PopSize)
	p.SpeciesSet = NewSpeciesSet(&p.Config.SpeciesSet)
}

// bestOfGeneration finds the fittest genome of the current generation.
func (p *Population) bestOfGeneration() *Genome {
	var best *Genome
	maxFitness := math.Inf(-1)
	for _, g := range p.Genomes {
		if best == nil || g.Fitness > maxFitness || (g.Fitness == maxFitness && g.Key < best.Key) {
			maxFitness = g.Fitness
			best = g
		}
	}
	return best
}
