package neat

import (
	"math/rand"
	"sort"
)

// Crossover combines two parents into a child genome, aligning connection
// genes by innovation number.
//
// Matching genes are inherited from the fitter parent (ties broken
// uniformly per gene). Disjoint and excess genes are inherited only from
// the fitter parent; when fitness is equal, each is inherited with 50%
// probability from its owner. A gene inherited disabled is re-enabled with
// reenable_probability if either parent carries it enabled. In feed-forward
// mode a tie-inherited disjoint gene that would close a cycle in the child
// is skipped.
//
// The child's node set is the union of the endpoints of its inherited
// connections plus every input, bias, and output node, so differing
// topologies recombine without any graph matching.
func Crossover(key int, a, b *Genome, cfg *GenomeConfig, rng *rand.Rand) *Genome {
	tie := a.Fitness == b.Fitness
	if b.Fitness > a.Fitness {
		a, b = b, a // a is the fitter parent from here on
	}

	child := NewGenome(key)

	innovs := unionInnovations(a, b)
	for _, innov := range innovs {
		ga, inA := a.Connections[innov]
		gb, inB := b.Connections[innov]

		var pick *ConnectionGene
		switch {
		case inA && inB:
			pick = ga
			if tie && rng.Float64() < 0.5 {
				pick = gb
			}
		case inA:
			pick = ga
			if tie && rng.Float64() >= 0.5 {
				continue
			}
		case inB:
			if !tie {
				continue // disjoint/excess of the weaker parent
			}
			if rng.Float64() >= 0.5 {
				continue
			}
			pick = gb
		}

		// Each parent is acyclic in feed-forward mode, but mixing both
		// parents' disjoint genes on a tie can close a cycle neither has.
		if tie && !(inA && inB) && cfg.FeedForward && createsCycle(child, pick.In, pick.Out) {
			continue
		}

		gene := pick.Copy()
		if !gene.Enabled {
			eitherEnabled := (inA && ga.Enabled) || (inB && gb.Enabled)
			if eitherEnabled && rng.Float64() < cfg.ReenableProbability {
				gene.Enabled = true
			}
		}
		child.Connections[gene.Innovation] = gene
	}

	// Fixed-role nodes always exist so the child can be compiled and can
	// keep mutating even if crossover inherited nothing touching them.
	inheritNode(child, cfg.BiasKey, a, b)
	for _, ik := range cfg.InputKeys {
		inheritNode(child, ik, a, b)
	}
	for _, ok := range cfg.OutputKeys {
		inheritNode(child, ok, a, b)
	}
	for _, cg := range child.Connections {
		inheritNode(child, cg.In, a, b)
		inheritNode(child, cg.Out, a, b)
	}

	return child
}

// inheritNode copies the node gene for id from whichever parent has it,
// preferring the fitter parent a. Panics if neither parent knows the id,
// which would mean an inherited connection references a node outside both
// parents.
func inheritNode(child *Genome, id int, a, b *Genome) {
	if _, ok := child.Nodes[id]; ok {
		return
	}
	if ng, ok := a.Nodes[id]; ok {
		child.Nodes[id] = ng.Copy()
		return
	}
	if ng, ok := b.Nodes[id]; ok {
		child.Nodes[id] = ng.Copy()
		return
	}
	panic("crossover: inherited connection references a node unknown to both parents")
}

// unionInnovations returns the sorted union of both parents' innovation
// numbers.
func unionInnovations(a, b *Genome) []int {
	seen := make(map[int]struct{}, len(a.Connections)+len(b.Connections))
	for innov := range a.Connections {
		seen[innov] = struct{}{}
	}
	for innov := range b.Connections {
		seen[innov] = struct{}{}
	}
	innovs := make([]int, 0, len(seen))
	for innov := range seen {
		innovs = append(innovs, innov)
	}
	sort.Ints(innovs)
	return innovs
}
