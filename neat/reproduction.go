package neat

import (
	"math"
	"math/rand"
	"sort"
)

// Reproduction creates genomes: the initial minimal-topology population,
// and each next generation via species-relative selection, crossover, and
// mutation.
type Reproduction struct {
	Config        *ReproductionConfig
	Stagnation    *Stagnation
	NextGenomeKey int

	// OnStagnant, when set, is invoked for each species removed for
	// stagnation during Reproduce.
	OnStagnant func(generation int, sp *Species)

	reg *InnovationRegistry
	rng *rand.Rand
}

// NewReproduction creates a reproduction manager sharing the run's
// innovation registry and RNG.
func NewReproduction(config *ReproductionConfig, stagnation *Stagnation, reg *InnovationRegistry, rng *rand.Rand) *Reproduction {
	return &Reproduction{
		Config:        config,
		Stagnation:    stagnation,
		NextGenomeKey: 1,
		reg:           reg,
		rng:           rng,
	}
}

// getNextKey gets the next available genome key.
func (r *Reproduction) getNextKey() int {
	key := r.NextGenomeKey
	r.NextGenomeKey++
	return key
}

// CreateNewPopulation seeds popSize minimal-topology genomes.
func (r *Reproduction) CreateNewPopulation(cfg *GenomeConfig, popSize int) map[int]*Genome {
	genomes := make(map[int]*Genome, popSize)
	for i := 0; i < popSize; i++ {
		g := NewMinimalGenome(r.getNextKey(), cfg, r.reg, r.rng)
		genomes[g.Key] = g
	}
	return genomes
}

// Reproduce produces the next generation. Per species: stagnant species
// are removed (the single best species is protected by Stagnation.Update),
// offspring quota is allotted from adjusted fitness, the top member
// carries over unchanged when the species is large enough, and the rest of
// the quota is filled by crossover of selected parents followed by
// mutation.
//
// Returns ErrExtinct when every species was removed.
func (r *Reproduction) Reproduce(cfg *Config, ss *SpeciesSet, mut *Mutator, popSize, generation int) (map[int]*Genome, error) {
	infos := r.Stagnation.Update(ss, generation)

	allFitnesses := []float64{}
	remaining := []*Species{}
	for _, info := range infos {
		if info.IsStagnant {
			if r.OnStagnant != nil {
				r.OnStagnant(generation, info.Species)
			}
			ss.Remove(info.Species.Key)
			continue
		}
		fitnesses := info.Species.MemberFitnesses()
		if len(fitnesses) == 0 {
			ss.Remove(info.Species.Key)
			continue
		}
		allFitnesses = append(allFitnesses, fitnesses...)
		remaining = append(remaining, info.Species)
	}
	if len(remaining) == 0 {
		return nil, ErrExtinct
	}

	// Shift species fitness into [0,1] before sharing, so negative-fitness
	// regimes still allot proportionally.
	minFitness := MinFloat(allFitnesses)
	maxFitness := MaxFloat(allFitnesses)
	fitnessRange := math.Max(1.0, maxFitness-minFitness)

	adjustedSum := 0.0
	for _, sp := range remaining {
		sp.AdjustedFitness = (sp.Fitness - minFitness) / fitnessRange
		adjustedSum += sp.AdjustedFitness
	}

	spawnAmounts := r.computeSpawnAmounts(remaining, adjustedSum, popSize)

	newPopulation := make(map[int]*Genome)
	for i, sp := range remaining {
		spawn := spawnAmounts[i]
		members := sp.sortedMembers()

		if len(members) >= r.Config.ElitismMinSpeciesSize {
			for j := 0; j < r.Config.Elitism && j < len(members) && spawn > 0; j++ {
				elite := members[j]
				newPopulation[elite.Key] = elite
				spawn--
			}
		}
		if spawn <= 0 {
			continue
		}

		cutoff := int(math.Ceil(r.Config.SurvivalThreshold * float64(len(members))))
		if cutoff < 2 {
			cutoff = 2
		}
		if cutoff > len(members) {
			cutoff = len(members)
		}
		parents := members[:cutoff]

		for j := 0; j < spawn; j++ {
			p1 := r.selectParent(parents)
			p2 := r.selectParent(parents)
			child := Crossover(r.getNextKey(), p1, p2, &cfg.Genome, r.rng)
			mut.Mutate(child)
			newPopulation[child.Key] = child
		}
	}

	return newPopulation, nil
}

// selectParent picks one parent from the surviving pool using the
// configured selection scheme.
func (r *Reproduction) selectParent(parents []*Genome) *Genome {
	if len(parents) == 1 {
		return parents[0]
	}
	switch r.Config.ParentSelection {
	case "proportionate":
		return r.selectProportionate(parents)
	default:
		return r.selectTournament(parents)
	}
}

// selectTournament draws tournament_size candidates uniformly and returns
// the fittest.
func (r *Reproduction) selectTournament(parents []*Genome) *Genome {
	size := r.Config.TournamentSize
	if size > len(parents) {
		size = len(parents)
	}
	best := parents[r.rng.Intn(len(parents))]
	for i := 1; i < size; i++ {
		c := parents[r.rng.Intn(len(parents))]
		if c.Fitness > best.Fitness {
			best = c
		}
	}
	return best
}

// selectProportionate samples a parent with probability proportional to
// fitness shifted above zero.
func (r *Reproduction) selectProportionate(parents []*Genome) *Genome {
	minF := parents[len(parents)-1].Fitness // sorted descending
	total := 0.0
	for _, p := range parents {
		total += p.Fitness - minF + 1.0
	}
	target := r.rng.Float64() * total
	acc := 0.0
	for _, p := range parents {
		acc += p.Fitness - minF + 1.0
		if acc >= target {
			return p
		}
	}
	return parents[len(parents)-1]
}

// computeSpawnAmounts allots the population quota across species in
// proportion to adjusted fitness, dampened toward each species' previous
// size, with a floor of min_species_size, then normalized to popSize.
func (r *Reproduction) computeSpawnAmounts(species []*Species, adjustedSum float64, popSize int) []int {
	minSize := r.Config.MinSpeciesSize

	spawns := make([]int, len(species))
	total := 0
	for i, sp := range species {
		prev := len(sp.Members)
		var want float64
		if adjustedSum > 0 {
			want = sp.AdjustedFitness / adjustedSum * float64(popSize)
		} else {
			want = float64(popSize) / float64(len(species))
		}
		want = math.Max(float64(minSize), want)

		// Dampen: move halfway from previous size toward the target.
		spawn := prev + int(math.Round((want-float64(prev))*0.5))
		if spawn < minSize {
			spawn = minSize
		}
		spawns[i] = spawn
		total += spawn
	}

	if total == 0 {
		for i := range spawns {
			spawns[i] = minSize
		}
		total = minSize * len(spawns)
	}

	// Normalize so the totals track popSize, respecting the floor.
	norm := float64(popSize) / float64(total)
	current := 0
	for i, s := range spawns {
		n := int(math.Round(float64(s) * norm))
		if n < minSize {
			n = minSize
		}
		spawns[i] = n
		current += n
	}

	// Distribute rounding leftovers across species, largest first.
	order := make([]int, len(spawns))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool { return spawns[order[i]] > spawns[order[j]] })
	for diff := popSize - current; diff != 0; {
		moved := false
		for _, idx := range order {
			if diff == 0 {
				break
			}
			if diff > 0 {
				spawns[idx]++
				diff--
				moved = true
			} else if spawns[idx] > minSize {
				spawns[idx]--
				diff++
				moved = true
			}
		}
		if !moved {
			break // floor prevents shrinking further
		}
	}

	return spawns
}
