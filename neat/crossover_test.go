package neat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCrossoverIdenticalParents(t *testing.T) {
	config := testConfig(t)
	reg := NewInnovationRegistry(config.Genome.FirstHiddenID())
	rng := testRNG()

	a := NewMinimalGenome(1, &config.Genome, reg, rng)
	b := a.Clone()
	a.Fitness, b.Fitness = 1.0, 1.0

	child := Crossover(3, a, b, &config.Genome, rng)

	assert.Equal(t, 3, child.Key)
	// Identical parents have no disjoint genes: the child carries every
	// innovation regardless of tie coin flips.
	require.Len(t, child.Connections, len(a.Connections))
	for innov := range a.Connections {
		assert.Contains(t, child.Connections, innov)
	}
	assert.Len(t, child.Nodes, len(a.Nodes))
}

func TestCrossoverDisjointFromFitterOnly(t *testing.T) {
	config := testConfig(t)
	reg := NewInnovationRegistry(config.Genome.FirstHiddenID())
	rng := testRNG()

	weak := NewMinimalGenome(1, &config.Genome, reg, rng)
	fit := weak.Clone()
	fit.Key = 2

	// Grow structure in both parents: each gets genes the other lacks.
	hiddenF := reg.NewNodeID()
	fit.AddNode(hiddenF, RoleHidden, ActIdentity)
	_, err := fit.AddConnection(reg, -1, hiddenF, 0.5)
	require.NoError(t, err)
	_, err = fit.AddConnection(reg, hiddenF, 0, 0.5)
	require.NoError(t, err)

	hiddenW := reg.NewNodeID()
	weak.AddNode(hiddenW, RoleHidden, ActIdentity)
	_, err = weak.AddConnection(reg, -2, hiddenW, 0.5)
	require.NoError(t, err)
	_, err = weak.AddConnection(reg, hiddenW, 0, 0.5)
	require.NoError(t, err)

	fit.Fitness = 10
	weak.Fitness = 1

	for i := 0; i < 20; i++ {
		child := Crossover(100+i, weak, fit, &config.Genome, rng)

		// All of the fitter parent's genes, none unique to the weaker.
		for innov := range fit.Connections {
			assert.Contains(t, child.Connections, innov)
		}
		for innov := range weak.Connections {
			if _, inFit := fit.Connections[innov]; !inFit {
				assert.NotContains(t, child.Connections, innov)
			}
		}
		assert.NotContains(t, child.Nodes, hiddenW)
	}
}

func TestCrossoverMatchingWeightsFromFitter(t *testing.T) {
	config := testConfig(t)
	reg := NewInnovationRegistry(config.Genome.FirstHiddenID())
	rng := testRNG()

	a := NewMinimalGenome(1, &config.Genome, reg, rng)
	b := a.Clone()
	b.Key = 2
	for _, cg := range a.Connections {
		cg.Weight = 1.0
	}
	for _, cg := range b.Connections {
		cg.Weight = -1.0
	}
	a.Fitness, b.Fitness = 5, 1

	child := Crossover(3, a, b, &config.Genome, rng)
	for _, cg := range child.Connections {
		assert.Equal(t, 1.0, cg.Weight)
	}
}

func TestCrossoverChildAlwaysHasFixedNodes(t *testing.T) {
	config := testConfig(t)
	config.Genome.InitialConnection = "unconnected"
	reg := NewInnovationRegistry(config.Genome.FirstHiddenID())
	rng := testRNG()

	a := NewMinimalGenome(1, &config.Genome, reg, rng)
	b := NewMinimalGenome(2, &config.Genome, reg, rng)
	a.Fitness, b.Fitness = 1, 1

	child := Crossover(3, a, b, &config.Genome, rng)
	assert.Empty(t, child.Connections)
	for _, ik := range config.Genome.InputKeys {
		assert.Contains(t, child.Nodes, ik)
	}
	assert.Contains(t, child.Nodes, config.Genome.BiasKey)
	for _, ok := range config.Genome.OutputKeys {
		assert.Contains(t, child.Nodes, ok)
	}
}

func TestCrossoverTieKeepsChildAcyclicInFeedForwardMode(t *testing.T) {
	config := testConfig(t)
	config.Genome.FeedForward = true
	reg := NewInnovationRegistry(config.Genome.FirstHiddenID())
	rng := testRNG()

	a := NewMinimalGenome(1, &config.Genome, reg, rng)
	b := a.Clone()
	b.Key = 2
	a.Fitness, b.Fitness = 1, 1

	// Each parent is acyclic on its own, but a carries h1->h2 and b the
	// reverse, so naive tie inheritance could hand the child both.
	h1 := reg.NewNodeID()
	h2 := reg.NewNodeID()
	for _, g := range []*Genome{a, b} {
		g.AddNode(h1, RoleHidden, ActIdentity)
		g.AddNode(h2, RoleHidden, ActIdentity)
	}
	forward, err := a.AddConnection(reg, h1, h2, 0.5)
	require.NoError(t, err)
	backward, err := b.AddConnection(reg, h2, h1, 0.5)
	require.NoError(t, err)
	require.NotEqual(t, forward.Innovation, backward.Innovation)

	for i := 0; i < 50; i++ {
		child := Crossover(100+i, a, b, &config.Genome, rng)
		_, hasForward := child.Connections[forward.Innovation]
		_, hasBackward := child.Connections[backward.Innovation]
		assert.False(t, hasForward && hasBackward, "child %d inherited a cycle", i)
	}
}

func TestCrossoverDisabledGeneReenable(t *testing.T) {
	config := testConfig(t)
	config.Genome.ReenableProbability = 1.0
	reg := NewInnovationRegistry(config.Genome.FirstHiddenID())
	rng := testRNG()

	a := NewMinimalGenome(1, &config.Genome, reg, rng)
	b := a.Clone()
	b.Key = 2
	a.Fitness, b.Fitness = 5, 1

	// Disabled in the fitter parent, still enabled in the weaker one:
	// with probability 1 the child re-enables it.
	a.ConnectionByPair(-1, 0).Enabled = false
	child := Crossover(3, a, b, &config.Genome, rng)
	cg := child.ConnectionByPair(-1, 0)
	require.NotNil(t, cg)
	assert.True(t, cg.Enabled)

	// Disabled in both parents: it stays disabled no matter the setting.
	a.ConnectionByPair(-2, 0).Enabled = false
	b.ConnectionByPair(-2, 0).Enabled = false
	child = Crossover(4, a, b, &config.Genome, rng)
	cg = child.ConnectionByPair(-2, 0)
	require.NotNil(t, cg)
	assert.False(t, cg.Enabled)
}
