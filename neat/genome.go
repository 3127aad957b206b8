package neat

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// Genome is the genetic encoding of one network: a node arena and a set of
// connection genes keyed by innovation number. Node ids and innovation
// numbers are plain integers so genomes can be cloned, compared, and
// serialized by value.
//
// The connection graph need not be acyclic; recurrent genomes are handled
// at evaluation time by the phenotype, never rejected here.
type Genome struct {
	Key         int
	Nodes       map[int]*NodeGene
	Connections map[int]*ConnectionGene // keyed by innovation number
	Fitness     float64
	SpeciesID   int // 0 while unassigned
}

// NewGenome creates an empty genome with the given key.
func NewGenome(key int) *Genome {
	return &Genome{
		Key:         key,
		Nodes:       make(map[int]*NodeGene),
		Connections: make(map[int]*ConnectionGene),
	}
}

// NewMinimalGenome creates a seed genome: input, bias, and output nodes,
// connected according to the initial_connection setting. All innovation
// numbers come from the registry, so every seed genome shares the same
// numbering for the same pairs.
func NewMinimalGenome(key int, cfg *GenomeConfig, reg *InnovationRegistry, rng *rand.Rand) *Genome {
	g := NewGenome(key)
	for _, ik := range cfg.InputKeys {
		g.putNode(&NodeGene{ID: ik, Role: RoleInput, Activation: ActIdentity})
	}
	g.putNode(&NodeGene{ID: cfg.BiasKey, Role: RoleBias, Activation: ActIdentity})
	for _, ok := range cfg.OutputKeys {
		g.putNode(&NodeGene{ID: ok, Role: RoleOutput, Activation: cfg.ActivationOutput})
	}

	if cfg.InitialConnection == "unconnected" {
		return g
	}

	sources := make([]int, 0, len(cfg.InputKeys)+1)
	sources = append(sources, cfg.InputKeys...)
	sources = append(sources, cfg.BiasKey)
	for _, in := range sources {
		for _, out := range cfg.OutputKeys {
			if cfg.InitialConnection == "sparse" && rng.Float64() >= cfg.ConnectionFraction {
				continue
			}
			if _, err := g.AddConnection(reg, in, out, randomWeight(rng, cfg)); err != nil {
				// Seed construction only wires known nodes to known nodes.
				panic(fmt.Sprintf("seed genome construction: %v", err))
			}
		}
	}
	return g
}

// putNode inserts a node gene, panicking on a duplicate id. Duplicates can
// only come from an engine bug, never from caller input.
func (g *Genome) putNode(ng *NodeGene) {
	if _, exists := g.Nodes[ng.ID]; exists {
		panic(fmt.Sprintf("duplicate node id %d in genome %d", ng.ID, g.Key))
	}
	g.Nodes[ng.ID] = ng
}

// AddNode adds a node with the given id, role, and activation, returning
// the node id. The id must be unique within the genome; ids for hidden
// nodes should come from the registry so they stay stable across the
// lineage.
func (g *Genome) AddNode(id int, role NodeRole, activation Activation) int {
	g.putNode(&NodeGene{ID: id, Role: role, Activation: activation})
	return id
}

// AddConnection adds a connection gene between two existing nodes, resolving
// its innovation number through the registry. It fails with
// ErrInvalidTopology if either endpoint is unknown or a gene for the pair
// already exists in this genome.
func (g *Genome) AddConnection(reg *InnovationRegistry, in, out int, weight float64) (*ConnectionGene, error) {
	if _, ok := g.Nodes[in]; !ok {
		return nil, topologyError("connection source node %d not in genome %d", in, g.Key)
	}
	if _, ok := g.Nodes[out]; !ok {
		return nil, topologyError("connection target node %d not in genome %d", out, g.Key)
	}
	if existing := g.ConnectionByPair(in, out); existing != nil {
		return nil, topologyError("connection %d->%d already present in genome %d (enabled=%t)",
			in, out, g.Key, existing.Enabled)
	}

	cg := &ConnectionGene{
		Innovation: reg.Innovation(in, out),
		In:         in,
		Out:        out,
		Weight:     weight,
		Enabled:    true,
	}
	g.Connections[cg.Innovation] = cg
	return cg, nil
}

// ConnectionByPair returns the gene linking in to out, or nil. Genomes are
// small enough that a scan beats maintaining a second index.
func (g *Genome) ConnectionByPair(in, out int) *ConnectionGene {
	for _, cg := range g.Connections {
		if cg.In == in && cg.Out == out {
			return cg
		}
	}
	return nil
}

// Distance computes the genetic distance to another genome: the count of
// disjoint and excess genes (innovations present in only one genome)
// normalized by the larger gene count, plus the average weight difference
// over matching innovations, each scaled by its compatibility coefficient.
func (g *Genome) Distance(other *Genome, cfg *GenomeConfig) float64 {
	unmatched := 0
	weightDiffSum := 0.0
	matching := 0

	for innov, cg := range g.Connections {
		if oc, ok := other.Connections[innov]; ok {
			weightDiffSum += math.Abs(cg.Weight - oc.Weight)
			matching++
		} else {
			unmatched++
		}
	}
	for innov := range other.Connections {
		if _, ok := g.Connections[innov]; !ok {
			unmatched++
		}
	}

	n := float64(len(g.Connections))
	if m := float64(len(other.Connections)); m > n {
		n = m
	}
	if n < 1.0 {
		n = 1.0
	}

	d := cfg.CompatibilityDisjointCoefficient * float64(unmatched) / n
	if matching > 0 {
		d += cfg.CompatibilityWeightCoefficient * weightDiffSum / float64(matching)
	}
	return d
}

// Clone deep-copies the genome with fresh ownership of all genes. Fitness
// is reset and the clone starts unassigned to any species.
func (g *Genome) Clone() *Genome {
	c := NewGenome(g.Key)
	for id, ng := range g.Nodes {
		c.Nodes[id] = ng.Copy()
	}
	for innov, cg := range g.Connections {
		c.Connections[innov] = cg.Copy()
	}
	return c
}

// snapshot deep-copies the genome preserving fitness and species, for
// immutable best-genome tracking that may be read concurrently with the
// next generation.
func (g *Genome) snapshot() *Genome {
	c := g.Clone()
	c.Fitness = g.Fitness
	c.SpeciesID = g.SpeciesID
	return c
}

// EnabledConnections counts the genes currently expressed in the phenotype.
func (g *Genome) EnabledConnections() int {
	n := 0
	for _, cg := range g.Connections {
		if cg.Enabled {
			n++
		}
	}
	return n
}

// HiddenNodes counts hidden nodes.
func (g *Genome) HiddenNodes() int {
	n := 0
	for _, ng := range g.Nodes {
		if ng.Role == RoleHidden {
			n++
		}
	}
	return n
}

// sortedInnovations returns the genome's innovation numbers in ascending
// order, for deterministic iteration.
func (g *Genome) sortedInnovations() []int {
	innovs := make([]int, 0, len(g.Connections))
	for innov := range g.Connections {
		innovs = append(innovs, innov)
	}
	sort.Ints(innovs)
	return innovs
}

// String returns a short description of the genome.
func (g *Genome) String() string {
	return fmt.Sprintf("Genome(Key: %d, Nodes: %d, Connections: %d, Fitness: %.4f)",
		g.Key, len(g.Nodes), len(g.Connections), g.Fitness)
}

// createsCycle reports whether adding a connection in->out would create a
// cycle among the genome's existing connections. Disabled genes count:
// they can be re-enabled later, and the feed-forward invariant must hold
// for the genome, not just the current phenotype.
func createsCycle(g *Genome, in, out int) bool {
	if in == out {
		return true
	}

	visited := map[int]bool{}
	queue := []int{out}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if current == in {
			return true
		}
		if visited[current] {
			continue
		}
		visited[current] = true
		for _, cg := range g.Connections {
			if cg.In == current {
				queue = append(queue, cg.Out)
			}
		}
	}
	return false
}

// randomWeight draws a fresh connection weight from the configured
// gaussian, clamped to the weight bounds.
func randomWeight(rng *rand.Rand, cfg *GenomeConfig) float64 {
	w := rng.NormFloat64()*cfg.WeightInitStdev + cfg.WeightInitMean
	return clamp(w, cfg.WeightMinValue, cfg.WeightMaxValue)
}
