// Package nn compiles genomes into runnable networks (phenotypes).
//
// Feed-forward genomes are evaluated in a single pass over a topological
// order. Genomes with cycles are evaluated by fixed-point relaxation: a
// configured number of passes in which every node reads the previous
// pass's activations, so recurrent links see values one pass old.
// Evaluation is pure: the same genome and inputs always produce the same
// outputs.
package nn

import (
	"fmt"
	"sort"

	"github.com/baldhumanity/neatevo/neat"
)

// Options controls phenotype compilation and evaluation.
type Options struct {
	// FeedForward selects single-pass topological evaluation. Compilation
	// fails if the genome contains a cycle in this mode.
	FeedForward bool
	// RelaxationPasses is the number of fixed-point passes used when
	// FeedForward is false.
	RelaxationPasses int
}

// OptionsFromConfig derives evaluation options from the engine config.
func OptionsFromConfig(cfg *neat.Config) Options {
	return Options{
		FeedForward:      cfg.Genome.FeedForward,
		RelaxationPasses: cfg.Network.RelaxationPasses,
	}
}

// link is a compiled enabled connection, with node indices resolved.
type link struct {
	from   int // index into the values slice
	weight float64
}

// node is a compiled non-input node.
type node struct {
	index      int // index into the values slice
	activation neat.Activation
	incoming   []link
}

// Network is the executable phenotype compiled from a genome. It is
// immutable after compilation and safe for concurrent use; per-evaluation
// state lives in slices scoped to Evaluate.
type Network struct {
	inputIdx  []int
	biasIdx   int // -1 when the genome has no bias node
	outputIdx []int
	nodes     []node // evaluation order
	numValues int
	options   Options

	disconnectedOutputs []int
}

// Compile builds an adjacency structure restricted to enabled connections.
// Outputs with no incoming enabled connection are recorded as disconnected
// but never cause an error: such an output yields the activation of zero
// net input.
func Compile(g *neat.Genome, options Options) (*Network, error) {
	if options.RelaxationPasses <= 0 {
		options.RelaxationPasses = 1
	}

	ids := make([]int, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	index := make(map[int]int, len(ids))
	for i, id := range ids {
		index[id] = i
	}

	incoming := make(map[int][]link)
	hasIncoming := make(map[int]bool)
	for _, cg := range g.Connections {
		if !cg.Enabled {
			continue
		}
		incoming[cg.Out] = append(incoming[cg.Out], link{from: index[cg.In], weight: cg.Weight})
		hasIncoming[cg.Out] = true
	}
	// Deterministic summation order regardless of map iteration.
	for _, links := range incoming {
		sort.Slice(links, func(i, j int) bool { return links[i].from < links[j].from })
	}

	net := &Network{
		biasIdx:   -1,
		numValues: len(ids),
		options:   options,
	}

	var evalIDs []int
	for _, id := range ids {
		ng := g.Nodes[id]
		switch ng.Role {
		case neat.RoleInput:
			net.inputIdx = append(net.inputIdx, index[id])
		case neat.RoleBias:
			net.biasIdx = index[id]
		default:
			evalIDs = append(evalIDs, id)
			if ng.Role == neat.RoleOutput {
				net.outputIdx = append(net.outputIdx, index[id])
				if !hasIncoming[id] {
					net.disconnectedOutputs = append(net.disconnectedOutputs, id)
				}
			}
		}
	}

	if options.FeedForward {
		ordered, err := topoOrder(g, evalIDs)
		if err != nil {
			return nil, err
		}
		evalIDs = ordered
	}

	net.nodes = make([]node, 0, len(evalIDs))
	for _, id := range evalIDs {
		net.nodes = append(net.nodes, node{
			index:      index[id],
			activation: g.Nodes[id].Activation,
			incoming:   incoming[id],
		})
	}
	return net, nil
}

// DisconnectedOutputs lists output node ids with no incoming enabled
// connection. Informational only.
func (n *Network) DisconnectedOutputs() []int {
	return n.disconnectedOutputs
}

// Evaluate runs the network on one input vector and returns the output
// vector, ordered by output node id. Inputs must match the genome's input
// node count.
func (n *Network) Evaluate(inputs []float64) ([]float64, error) {
	if len(inputs) != len(n.inputIdx) {
		return nil, fmt.Errorf("mismatch between input count (%d) and network input nodes (%d)",
			len(inputs), len(n.inputIdx))
	}

	prev := make([]float64, n.numValues)
	for i, idx := range n.inputIdx {
		prev[idx] = inputs[i]
	}
	if n.biasIdx >= 0 {
		prev[n.biasIdx] = 1.0
	}

	if n.options.FeedForward {
		// Topological order makes one in-place pass exact.
		for _, nd := range n.nodes {
			prev[nd.index] = activate(nd, prev)
		}
		return n.collect(prev), nil
	}

	cur := make([]float64, n.numValues)
	copy(cur, prev)
	for pass := 0; pass < n.options.RelaxationPasses; pass++ {
		for _, nd := range n.nodes {
			cur[nd.index] = activate(nd, prev)
		}
		copy(prev, cur)
	}
	return n.collect(prev), nil
}

func activate(nd node, values []float64) float64 {
	sum := 0.0
	for _, l := range nd.incoming {
		sum += values[l.from] * l.weight
	}
	return nd.activation.Apply(sum)
}

func (n *Network) collect(values []float64) []float64 {
	outputs := make([]float64, len(n.outputIdx))
	for i, idx := range n.outputIdx {
		outputs[i] = values[idx]
	}
	return outputs
}

// topoOrder sorts the non-input node ids so every node follows all of its
// enabled-connection sources (Kahn's algorithm). Returns an error if the
// enabled connections contain a cycle.
func topoOrder(g *neat.Genome, evalIDs []int) ([]int, error) {
	inDegree := make(map[int]int, len(evalIDs))
	adj := make(map[int][]int)
	for _, id := range evalIDs {
		inDegree[id] = 0
	}
	for _, cg := range g.Connections {
		if !cg.Enabled {
			continue
		}
		if _, ok := inDegree[cg.Out]; !ok {
			continue
		}
		// Edges from input/bias nodes don't constrain ordering among
		// evaluated nodes: their values are fixed before the pass.
		if _, evaluated := inDegree[cg.In]; !evaluated {
			continue
		}
		adj[cg.In] = append(adj[cg.In], cg.Out)
		inDegree[cg.Out]++
	}

	queue := make([]int, 0, len(evalIDs))
	for _, id := range evalIDs {
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}
	sort.Ints(queue)

	order := make([]int, 0, len(evalIDs))
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		order = append(order, u)

		next := adj[u]
		sort.Ints(next)
		for _, v := range next {
			inDegree[v]--
			if inDegree[v] == 0 {
				queue = append(queue, v)
			}
		}
		sort.Ints(queue)
	}

	if len(order) != len(evalIDs) {
		return nil, fmt.Errorf("failed topological sort: cycle among enabled connections (expected %d nodes, got %d)",
			len(evalIDs), len(order))
	}
	return order, nil
}
