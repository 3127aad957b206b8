package neat

import "fmt"

// NodeRole classifies a node gene within the network.
type NodeRole uint8

const (
	RoleInput NodeRole = iota
	RoleBias
	RoleHidden
	RoleOutput
)

// String returns a short name for the role.
func (r NodeRole) String() string {
	switch r {
	case RoleInput:
		return "input"
	case RoleBias:
		return "bias"
	case RoleHidden:
		return "hidden"
	case RoleOutput:
		return "output"
	default:
		return fmt.Sprintf("role(%d)", r)
	}
}

// NodeGene represents a neuron in the genome. Node ids are stable across a
// lineage: once allocated, an id always refers to the same structural node,
// even after the node becomes disconnected.
type NodeGene struct {
	ID         int
	Role       NodeRole
	Activation Activation
}

// Copy creates a deep copy of the NodeGene.
func (ng *NodeGene) Copy() *NodeGene {
	c := *ng
	return &c
}

// String returns a string representation of the NodeGene.
func (ng *NodeGene) String() string {
	return fmt.Sprintf("NodeGene(ID: %d, Role: %s, Activation: %s)", ng.ID, ng.Role, ng.Activation)
}

// ConnectionGene represents a weighted, directed connection between two
// nodes. The innovation number is the global historical marker assigned by
// the InnovationRegistry the first time the (In, Out) pair appears anywhere
// in the run; it is what aligns genes across genomes during crossover.
// Disabled genes are kept, never deleted, so alignment survives toggling.
type ConnectionGene struct {
	Innovation int
	In         int
	Out        int
	Weight     float64
	Enabled    bool
}

// Copy creates a deep copy of the ConnectionGene.
func (cg *ConnectionGene) Copy() *ConnectionGene {
	c := *cg
	return &c
}

// String returns a string representation of the ConnectionGene.
func (cg *ConnectionGene) String() string {
	return fmt.Sprintf("ConnGene(Innov: %d, %d->%d, Weight: %.3f, Enabled: %t)",
		cg.Innovation, cg.In, cg.Out, cg.Weight, cg.Enabled)
}
