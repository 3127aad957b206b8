// Package env defines the environment collaborator interface and a
// parallel fitness evaluator that scores genomes by running episodes
// against it.
package env

import (
	"context"
	"fmt"

	"github.com/baldhumanity/neatevo/neat"
	"github.com/baldhumanity/neatevo/neat/nn"
)

// Environment is the external episode simulator. One instance runs one
// episode at a time: Reset starts a fresh episode and returns the first
// observation, Step consumes the network's output vector and advances the
// simulation, Score reports the episode outcome once done.
//
// Implementations need not be safe for concurrent use; the evaluator gives
// each worker its own instance.
type Environment interface {
	Reset() ([]float64, error)
	Step(action []float64) (obs []float64, done bool, err error)
	Score() float64
}

// RunEpisode drives one full episode: observation in, network evaluation,
// action out, until the environment reports done, maxSteps is reached, or
// the context is cancelled. Returns the episode score.
func RunEpisode(ctx context.Context, e Environment, net *nn.Network, maxSteps int) (float64, error) {
	obs, err := e.Reset()
	if err != nil {
		return 0, fmt.Errorf("%w: reset: %v", neat.ErrEnvironment, err)
	}

	for step := 0; maxSteps <= 0 || step < maxSteps; step++ {
		if err := ctx.Err(); err != nil {
			return 0, fmt.Errorf("%w: episode cancelled: %v", neat.ErrEnvironment, err)
		}

		action, err := net.Evaluate(obs)
		if err != nil {
			return 0, fmt.Errorf("network evaluation: %w", err)
		}

		var done bool
		obs, done, err = e.Step(action)
		if err != nil {
			return 0, fmt.Errorf("%w: step: %v", neat.ErrEnvironment, err)
		}
		if done {
			break
		}
	}
	return e.Score(), nil
}
