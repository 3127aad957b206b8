package neat

import (
	"compress/gzip"
	"encoding/gob"
	"fmt"
	"math/rand"
	"os"
	"time"
)

// populationSaveData holds the parts of a Population worth persisting. The
// configuration is not saved; it is supplied again on restore. The
// innovation registry snapshot is included so a resumed run keeps
// allocating consistent innovation numbers and node ids.
type populationSaveData struct {
	Generation     int
	Genomes        map[int]*Genome
	Species        map[int]*Species
	SpeciesIndexer int
	NextGenomeKey  int
	Best           *Genome
	Registry       RegistrySnapshot
}

// SaveCheckpoint saves the population state to a gzip-compressed gob file.
func (p *Population) SaveCheckpoint(filePath string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create checkpoint file %q: %w", filePath, err)
	}
	defer file.Close()

	gzWriter := gzip.NewWriter(file)
	defer gzWriter.Close()

	saveData := populationSaveData{
		Generation:     p.Generation,
		Genomes:        p.Genomes,
		Species:        p.SpeciesSet.Species,
		SpeciesIndexer: p.SpeciesSet.Indexer,
		NextGenomeKey:  p.Reproduction.NextGenomeKey,
		Best:           p.Best,
		Registry:       p.Registry.Snapshot(),
	}

	if err := gob.NewEncoder(gzWriter).Encode(saveData); err != nil {
		return fmt.Errorf("failed to encode population data: %w", err)
	}
	return nil
}

// LoadCheckpoint restores a Population from a checkpoint file. The config
// must describe the same experiment the checkpoint was taken from; it is
// finalized and re-linked into the restored state.
func LoadCheckpoint(filePath string, config *Config) (*Population, error) {
	if err := config.Finalize(); err != nil {
		return nil, err
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint file %q: %w", filePath, err)
	}
	defer file.Close()

	gzReader, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader for checkpoint: %w", err)
	}
	defer gzReader.Close()

	saveData := populationSaveData{}
	if err := gob.NewDecoder(gzReader).Decode(&saveData); err != nil {
		return nil, fmt.Errorf("failed to decode population data from checkpoint: %w", err)
	}

	seed := config.Neat.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	stagnation, err := NewStagnation(&config.Stagnation)
	if err != nil {
		return nil, fmt.Errorf("failed to re-initialize stagnation from config: %w", err)
	}

	registry := RestoreInnovationRegistry(saveData.Registry)
	reproduction := NewReproduction(&config.Reproduction, stagnation, registry, rng)
	reproduction.NextGenomeKey = saveData.NextGenomeKey

	speciesSet := NewSpeciesSet(&config.SpeciesSet)
	if saveData.Species != nil {
		speciesSet.Species = saveData.Species
	}
	speciesSet.Indexer = saveData.SpeciesIndexer
	if speciesSet.Indexer < 1 {
		speciesSet.Indexer = 1
	}

	p := &Population{
		Config:       config,
		Genomes:      saveData.Genomes,
		SpeciesSet:   speciesSet,
		Registry:     registry,
		Reproduction: reproduction,
		Stagnation:   stagnation,
		Mutator:      NewMutator(&config.Genome, registry, rng),
		Generation:   saveData.Generation,
		Best:         saveData.Best,
		rng:          rng,
	}
	reproduction.OnStagnant = func(gen int, sp *Species) {
		p.reporters.speciesStagnant(gen, sp)
	}
	return p, nil
}
