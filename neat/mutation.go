package neat

import (
	"fmt"
	"math/rand"
	"sort"
)

// Mutator applies the structural and parametric mutation operators to
// genomes. All operators are total over valid genomes: a failed attempt
// (no candidate pair, no enabled connection) leaves the genome unchanged
// rather than violating an invariant.
//
// The registry reference makes the cross-genome innovation-number guarantee
// explicit: every Mutator in a run must share one registry.
type Mutator struct {
	cfg *GenomeConfig
	reg *InnovationRegistry
	rng *rand.Rand
}

// NewMutator creates a mutator bound to the run's innovation registry.
func NewMutator(cfg *GenomeConfig, reg *InnovationRegistry, rng *rand.Rand) *Mutator {
	return &Mutator{cfg: cfg, reg: reg, rng: rng}
}

// Mutate applies each operator to the genome according to its configured
// probability.
func (m *Mutator) Mutate(g *Genome) {
	if m.rng.Float64() < m.cfg.NodeAddProb {
		m.AddNode(g)
	}
	if m.rng.Float64() < m.cfg.ConnAddProb {
		m.AddConnection(g)
	}
	m.MutateWeights(g)
	m.ToggleEnable(g)
}

// maxConnectionAttempts bounds the random pair search in AddConnection so
// densely connected genomes don't loop forever.
const maxConnectionAttempts = 20

// AddConnection attempts to connect two previously unconnected nodes with a
// random weight, resolving the innovation number through the registry.
// Reports whether a connection was added.
func (m *Mutator) AddConnection(g *Genome) bool {
	sources := make([]int, 0, len(g.Nodes))
	targets := make([]int, 0, len(g.Nodes))
	for id, ng := range g.Nodes {
		sources = append(sources, id)
		// Inputs and the bias never receive connections.
		if ng.Role == RoleHidden || ng.Role == RoleOutput {
			targets = append(targets, id)
		}
	}
	if len(sources) == 0 || len(targets) == 0 {
		return false
	}
	sort.Ints(sources)
	sort.Ints(targets)

	for i := 0; i < maxConnectionAttempts; i++ {
		in := sources[m.rng.Intn(len(sources))]
		out := targets[m.rng.Intn(len(targets))]

		if in == out && !m.cfg.AllowLoops {
			continue
		}
		if g.ConnectionByPair(in, out) != nil {
			continue
		}
		if m.cfg.FeedForward && createsCycle(g, in, out) {
			continue
		}

		if _, err := g.AddConnection(m.reg, in, out, randomWeight(m.rng, m.cfg)); err != nil {
			// Candidates were drawn from the genome's own node set.
			panic(fmt.Sprintf("add-connection mutation: %v", err))
		}
		return true
	}
	return false
}

// AddNode splits a random enabled connection: the original gene is
// disabled and a new hidden node bridges it with two fresh genes. The
// inbound gene gets weight 1.0 and the outbound gene inherits the original
// weight, so the split initially approximates the original function.
// Reports whether a node was added.
func (m *Mutator) AddNode(g *Genome) bool {
	enabled := make([]int, 0, len(g.Connections))
	for _, innov := range g.sortedInnovations() {
		if g.Connections[innov].Enabled {
			enabled = append(enabled, innov)
		}
	}
	if len(enabled) == 0 {
		return false
	}

	split := g.Connections[enabled[m.rng.Intn(len(enabled))]]
	split.Enabled = false

	nodeID := m.reg.NewNodeID()
	g.AddNode(nodeID, RoleHidden, m.cfg.ActivationHidden)

	if _, err := g.AddConnection(m.reg, split.In, nodeID, 1.0); err != nil {
		panic(fmt.Sprintf("add-node mutation (inbound): %v", err))
	}
	if _, err := g.AddConnection(m.reg, nodeID, split.Out, split.Weight); err != nil {
		panic(fmt.Sprintf("add-node mutation (outbound): %v", err))
	}
	return true
}

// MutateWeights perturbs or replaces each connection weight independently:
// with weight_mutate_rate the weight is nudged by a gaussian delta, with
// weight_replace_rate it is redrawn from the init distribution.
func (m *Mutator) MutateWeights(g *Genome) {
	for _, innov := range g.sortedInnovations() {
		cg := g.Connections[innov]
		r := m.rng.Float64()
		switch {
		case r < m.cfg.WeightMutateRate:
			w := cg.Weight + m.rng.NormFloat64()*m.cfg.WeightMutatePower
			cg.Weight = clamp(w, m.cfg.WeightMinValue, m.cfg.WeightMaxValue)
		case r < m.cfg.WeightMutateRate+m.cfg.WeightReplaceRate:
			cg.Weight = randomWeight(m.rng, m.cfg)
		}
	}
}

// ToggleEnable flips each connection's enabled flag with low probability.
// Genes are never deleted; a disabled gene stays available for crossover
// alignment. Re-enabling is skipped when it would create a cycle in a
// feed-forward genome.
func (m *Mutator) ToggleEnable(g *Genome) {
	for _, innov := range g.sortedInnovations() {
		cg := g.Connections[innov]
		if m.rng.Float64() >= m.cfg.EnabledMutateRate {
			continue
		}
		if cg.Enabled {
			cg.Enabled = false
			continue
		}
		if m.cfg.FeedForward && createsCycle(g, cg.In, cg.Out) {
			continue
		}
		cg.Enabled = true
	}
}
