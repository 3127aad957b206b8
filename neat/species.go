package neat

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// SpeciesState tracks a species through its lifecycle. A species is active
// while it keeps members, becomes stagnant once its best fitness stops
// improving for the configured window, and is removed when stagnant or
// empty.
type SpeciesState uint8

const (
	SpeciesActive SpeciesState = iota
	SpeciesStagnant
	SpeciesRemoved
)

// String returns a short name for the state.
func (s SpeciesState) String() string {
	switch s {
	case SpeciesActive:
		return "active"
	case SpeciesStagnant:
		return "stagnant"
	case SpeciesRemoved:
		return "removed"
	default:
		return fmt.Sprintf("state(%d)", s)
	}
}

// Species is a cluster of genomes within the compatibility threshold of a
// representative genome.
type Species struct {
	Key             int
	Created         int
	LastImproved    int
	State           SpeciesState
	Representative  *Genome
	Members         map[int]*Genome
	Fitness         float64 // aggregate member fitness for this generation
	AdjustedFitness float64
	BestFitness     float64 // best aggregate fitness ever seen
}

// NewSpecies creates a species founded in the given generation.
func NewSpecies(key, generation int) *Species {
	return &Species{
		Key:          key,
		Created:      generation,
		LastImproved: generation,
		State:        SpeciesActive,
		Members:      make(map[int]*Genome),
		BestFitness:  math.Inf(-1),
	}
}

// MemberFitnesses returns the fitness values of all members.
func (s *Species) MemberFitnesses() []float64 {
	fitnesses := make([]float64, 0, len(s.Members))
	for _, g := range s.Members {
		fitnesses = append(fitnesses, g.Fitness)
	}
	return fitnesses
}

// sortedMembers returns the members ordered by descending fitness, ties
// broken by key for determinism.
func (s *Species) sortedMembers() []*Genome {
	members := make([]*Genome, 0, len(s.Members))
	for _, g := range s.Members {
		members = append(members, g)
	}
	sort.Slice(members, func(i, j int) bool {
		if members[i].Fitness != members[j].Fitness {
			return members[i].Fitness > members[j].Fitness
		}
		return members[i].Key < members[j].Key
	})
	return members
}

// genomePair keys the distance cache by an ordered pair of genome keys.
type genomePair struct {
	A, B int
}

// distanceCache memoizes genome distances within one speciation pass.
type distanceCache struct {
	distances map[genomePair]float64
	cfg       *GenomeConfig
}

func newDistanceCache(cfg *GenomeConfig) *distanceCache {
	return &distanceCache{distances: make(map[genomePair]float64), cfg: cfg}
}

func (dc *distanceCache) distance(a, b *Genome) float64 {
	ka, kb := a.Key, b.Key
	if ka > kb {
		ka, kb = kb, ka
	}
	key := genomePair{A: ka, B: kb}
	if d, ok := dc.distances[key]; ok {
		return d
	}
	d := a.Distance(b, dc.cfg)
	dc.distances[key] = d
	return d
}

// SpeciesSet manages the species partition of a population across
// generations.
type SpeciesSet struct {
	Species map[int]*Species
	Indexer int // next species key, starts at 1
	Config  *SpeciesSetConfig
}

// NewSpeciesSet creates an empty species set.
func NewSpeciesSet(config *SpeciesSetConfig) *SpeciesSet {
	return &SpeciesSet{
		Species: make(map[int]*Species),
		Indexer: 1,
		Config:  config,
	}
}

// sortedKeys returns the species keys in ascending order.
func (ss *SpeciesSet) sortedKeys() []int {
	keys := make([]int, 0, len(ss.Species))
	for k := range ss.Species {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// Speciate partitions the population by genetic distance. Each genome joins
// the first existing species (in ascending key order) whose representative
// is within the compatibility threshold; if none match, it founds a new
// species with itself as representative. Afterwards each surviving species
// picks a random member as next generation's representative, and species
// left without members are removed.
func (ss *SpeciesSet) Speciate(cfg *GenomeConfig, population map[int]*Genome, generation int, rng *rand.Rand) {
	cache := newDistanceCache(cfg)

	for _, sp := range ss.Species {
		sp.Members = make(map[int]*Genome)
	}

	genomeKeys := make([]int, 0, len(population))
	for k := range population {
		genomeKeys = append(genomeKeys, k)
	}
	sort.Ints(genomeKeys)

	for _, gk := range genomeKeys {
		g := population[gk]
		assigned := false
		for _, sk := range ss.sortedKeys() {
			sp := ss.Species[sk]
			if cache.distance(sp.Representative, g) < ss.Config.CompatibilityThreshold {
				sp.Members[gk] = g
				g.SpeciesID = sk
				assigned = true
				break
			}
		}
		if assigned {
			continue
		}

		sk := ss.Indexer
		ss.Indexer++
		sp := NewSpecies(sk, generation)
		sp.Representative = g
		sp.Members[gk] = g
		g.SpeciesID = sk
		ss.Species[sk] = sp
	}

	// Drop emptied species, refresh representatives for the rest.
	for _, sk := range ss.sortedKeys() {
		sp := ss.Species[sk]
		if len(sp.Members) == 0 {
			sp.State = SpeciesRemoved
			delete(ss.Species, sk)
			continue
		}
		memberKeys := make([]int, 0, len(sp.Members))
		for k := range sp.Members {
			memberKeys = append(memberKeys, k)
		}
		sort.Ints(memberKeys)
		sp.Representative = sp.Members[memberKeys[rng.Intn(len(memberKeys))]]
	}
}

// Remove deletes a species from the set, marking it removed.
func (ss *SpeciesSet) Remove(key int) {
	if sp, ok := ss.Species[key]; ok {
		sp.State = SpeciesRemoved
		delete(ss.Species, key)
	}
}
