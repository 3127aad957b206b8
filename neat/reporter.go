package neat

// Reporter receives progress callbacks from the generation loop. Reporters
// must treat the genomes and species they receive as read-only.
type Reporter interface {
	StartGeneration(generation int)
	// PostEvaluate runs after fitness evaluation; best is the fittest
	// genome of this generation.
	PostEvaluate(generation int, genomes map[int]*Genome, best *Genome)
	SpeciesStagnant(generation int, sp *Species)
	EndGeneration(generation int, genomes map[int]*Genome, species map[int]*Species)
}

// reporterSet fans callbacks out to registered reporters.
type reporterSet struct {
	reporters []Reporter
}

func (rs *reporterSet) add(r Reporter) {
	rs.reporters = append(rs.reporters, r)
}

func (rs *reporterSet) startGeneration(gen int) {
	for _, r := range rs.reporters {
		r.StartGeneration(gen)
	}
}

func (rs *reporterSet) postEvaluate(gen int, genomes map[int]*Genome, best *Genome) {
	for _, r := range rs.reporters {
		r.PostEvaluate(gen, genomes, best)
	}
}

func (rs *reporterSet) speciesStagnant(gen int, sp *Species) {
	for _, r := range rs.reporters {
		r.SpeciesStagnant(gen, sp)
	}
}

func (rs *reporterSet) endGeneration(gen int, genomes map[int]*Genome, species map[int]*Species) {
	for _, r := range rs.reporters {
		r.EndGeneration(gen, genomes, species)
	}
}
