// Package report provides progress reporters for the generation loop:
// structured logging, statistics aggregation, and CSV/YAML run artifacts.
package report

import (
	"log/slog"

	"github.com/baldhumanity/neatevo/neat"
)

// LogReporter logs generation progress through slog.
type LogReporter struct {
	log *slog.Logger
}

// NewLogReporter creates a reporter writing to the given logger.
func NewLogReporter(logger *slog.Logger) *LogReporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogReporter{log: logger}
}

// StartGeneration implements neat.Reporter.
func (r *LogReporter) StartGeneration(generation int) {
	r.log.Info("generation start", "generation", generation)
}

// PostEvaluate implements neat.Reporter.
func (r *LogReporter) PostEvaluate(generation int, genomes map[int]*neat.Genome, best *neat.Genome) {
	if best == nil {
		return
	}
	r.log.Info("generation evaluated",
		"generation", generation,
		"genomes", len(genomes),
		"best_key", best.Key,
		"best_fitness", best.Fitness,
		"best_nodes", len(best.Nodes),
		"best_connections", best.EnabledConnections(),
	)
}

// SpeciesStagnant implements neat.Reporter.
func (r *LogReporter) SpeciesStagnant(generation int, sp *neat.Species) {
	r.log.Info("species removed for stagnation",
		"generation", generation,
		"species", sp.Key,
		"last_improved", sp.LastImproved,
		"best_fitness", sp.BestFitness,
	)
}

// EndGeneration implements neat.Reporter.
func (r *LogReporter) EndGeneration(generation int, genomes map[int]*neat.Genome, species map[int]*neat.Species) {
	r.log.Info("generation end",
		"generation", generation,
		"population", len(genomes),
		"species", len(species),
	)
}
