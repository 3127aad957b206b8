package env

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baldhumanity/neatevo/neat"
	"github.com/baldhumanity/neatevo/neat/nn"
)

// echoEnv feeds a constant observation and finishes after a fixed number
// of steps, scoring the sum of the actions it received.
type echoEnv struct {
	stepsLeft int
	score     float64

	resetErr error
	stepErr  error
}

func (e *echoEnv) Reset() ([]float64, error) {
	if e.resetErr != nil {
		return nil, e.resetErr
	}
	e.score = 0
	return []float64{1.0}, nil
}

func (e *echoEnv) Step(action []float64) ([]float64, bool, error) {
	if e.stepErr != nil {
		return nil, false, e.stepErr
	}
	for _, a := range action {
		e.score += a
	}
	e.stepsLeft--
	return []float64{1.0}, e.stepsLeft <= 0, nil
}

func (e *echoEnv) Score() float64 {
	return e.score
}

// passthroughNet compiles a single-input single-output identity genome
// with the given weight.
func passthroughNet(t *testing.T, weight float64) *nn.Network {
	t.Helper()
	g := neat.NewGenome(1)
	g.AddNode(-1, neat.RoleInput, neat.ActIdentity)
	g.AddNode(0, neat.RoleOutput, neat.ActIdentity)
	reg := neat.NewInnovationRegistry(1)
	_, err := g.AddConnection(reg, -1, 0, weight)
	require.NoError(t, err)

	net, err := nn.Compile(g, nn.Options{FeedForward: true})
	require.NoError(t, err)
	return net
}

func TestRunEpisode(t *testing.T) {
	net := passthroughNet(t, 2.0)
	e := &echoEnv{stepsLeft: 5}

	score, err := RunEpisode(context.Background(), e, net, 100)
	require.NoError(t, err)
	// Five steps, each receiving action 2.0.
	assert.InDelta(t, 10.0, score, 1e-12)
}

func TestRunEpisodeMaxStepsCutoff(t *testing.T) {
	net := passthroughNet(t, 1.0)
	e := &echoEnv{stepsLeft: 1000}

	score, err := RunEpisode(context.Background(), e, net, 3)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, score, 1e-12)
}

func TestRunEpisodeEnvironmentErrors(t *testing.T) {
	net := passthroughNet(t, 1.0)

	_, err := RunEpisode(context.Background(), &echoEnv{resetErr: errors.New("boom")}, net, 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, neat.ErrEnvironment)

	_, err = RunEpisode(context.Background(), &echoEnv{stepsLeft: 5, stepErr: errors.New("boom")}, net, 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, neat.ErrEnvironment)
}

func TestRunEpisodeCancelledContext(t *testing.T) {
	net := passthroughNet(t, 1.0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := RunEpisode(ctx, &echoEnv{stepsLeft: 5}, net, 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, neat.ErrEnvironment)
}

func evaluationConfig(t *testing.T) *neat.Config {
	t.Helper()
	config := neat.DefaultConfig()
	config.Genome.NumInputs = 1
	config.Genome.NumOutputs = 1
	config.Genome.ActivationHiddenName = "identity"
	config.Genome.ActivationOutputName = "identity"
	config.Evaluation.Workers = 2
	config.Evaluation.MaxSteps = 5
	config.Evaluation.FitnessFloor = -100
	require.NoError(t, config.Finalize())
	return config
}

func seedGenomes(t *testing.T, config *neat.Config, n int) map[int]*neat.Genome {
	t.Helper()
	pop, err := neat.NewPopulation(config)
	require.NoError(t, err)
	genomes := map[int]*neat.Genome{}
	i := 0
	for key, g := range pop.Genomes {
		if i == n {
			break
		}
		genomes[key] = g
		i++
	}
	return genomes
}

func TestEvaluatorScoresAllGenomes(t *testing.T) {
	config := evaluationConfig(t)
	genomes := seedGenomes(t, config, 8)

	ev := NewEvaluator(func() (Environment, error) {
		return &echoEnv{stepsLeft: 5}, nil
	}, config, nil)

	require.NoError(t, ev.Evaluate(context.Background(), genomes))
	for _, g := range genomes {
		assert.NotEqual(t, config.Evaluation.FitnessFloor, g.Fitness)
	}
}

func TestEvaluatorEnvironmentFailureFloorsFitness(t *testing.T) {
	config := evaluationConfig(t)
	genomes := seedGenomes(t, config, 4)

	ev := NewEvaluator(func() (Environment, error) {
		return &echoEnv{stepsLeft: 5, stepErr: errors.New("sim crashed")}, nil
	}, config, nil)

	// Environment failures floor the affected genomes without failing the
	// generation.
	require.NoError(t, ev.Evaluate(context.Background(), genomes))
	for _, g := range genomes {
		assert.Equal(t, config.Evaluation.FitnessFloor, g.Fitness)
	}
}

// endlessEnv never finishes an episode on its own.
type endlessEnv struct{}

func (endlessEnv) Reset() ([]float64, error) { return []float64{1.0}, nil }
func (endlessEnv) Step([]float64) ([]float64, bool, error) {
	return []float64{1.0}, false, nil
}
func (endlessEnv) Score() float64 { return 42 }

func TestEvaluatorEpisodeTimeoutFloorsFitness(t *testing.T) {
	config := evaluationConfig(t)
	config.Evaluation.MaxSteps = 0 // only the timeout can end the episode
	config.Evaluation.EpisodeTimeout = 10 * time.Millisecond
	genomes := seedGenomes(t, config, 2)

	ev := NewEvaluator(func() (Environment, error) {
		return endlessEnv{}, nil
	}, config, nil)

	require.NoError(t, ev.Evaluate(context.Background(), genomes))
	for _, g := range genomes {
		assert.Equal(t, config.Evaluation.FitnessFloor, g.Fitness)
	}
}

func TestEvaluatorFactoryFailure(t *testing.T) {
	config := evaluationConfig(t)
	genomes := seedGenomes(t, config, 4)

	ev := NewEvaluator(func() (Environment, error) {
		return nil, errors.New("no simulator available")
	}, config, nil)

	err := ev.Evaluate(context.Background(), genomes)
	require.Error(t, err)
	for _, g := range genomes {
		assert.Equal(t, config.Evaluation.FitnessFloor, g.Fitness)
	}
}

func TestEvaluatorFitnessFuncAdapter(t *testing.T) {
	config := evaluationConfig(t)
	genomes := seedGenomes(t, config, 2)

	ev := NewEvaluator(func() (Environment, error) {
		return &echoEnv{stepsLeft: 5}, nil
	}, config, nil)

	fitness := ev.FitnessFunc(context.Background())
	require.NoError(t, fitness(genomes))
}
