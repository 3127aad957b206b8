package env

import (
	"context"
	"io"
	"log/slog"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/baldhumanity/neatevo/neat"
	"github.com/baldhumanity/neatevo/neat/nn"
)

// Evaluator scores a generation of genomes against an Environment using a
// worker pool. Evaluations are mutually independent, so genomes fan out
// across workers; each worker owns one environment instance, which keeps
// stateful environments serialized per instance.
//
// An environment error or an episode exceeding the timeout does not abort
// the generation: the affected genome receives the configured floor
// fitness and evaluation continues.
type Evaluator struct {
	factory Factory
	options nn.Options
	cfg     neat.EvaluationConfig
	log     *slog.Logger
}

// Factory creates one environment instance per worker.
type Factory func() (Environment, error)

// NewEvaluator creates an evaluator. logger may be nil to discard episode
// failure warnings.
func NewEvaluator(factory Factory, config *neat.Config, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Evaluator{
		factory: factory,
		options: nn.OptionsFromConfig(config),
		cfg:     config.Evaluation,
		log:     logger,
	}
}

// FitnessFunc adapts the evaluator to the population loop.
func (ev *Evaluator) FitnessFunc(ctx context.Context) neat.FitnessFunc {
	return func(genomes map[int]*neat.Genome) error {
		return ev.Evaluate(ctx, genomes)
	}
}

// Evaluate runs one episode per genome and writes the resulting fitness.
func (ev *Evaluator) Evaluate(ctx context.Context, genomes map[int]*neat.Genome) error {
	workers := ev.cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(genomes) {
		workers = len(genomes)
	}
	if workers < 1 {
		workers = 1
	}

	keys := make([]int, 0, len(genomes))
	for k := range genomes {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	work := make(chan *neat.Genome)
	errOnce := sync.Once{}
	var firstErr error

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e, err := ev.factory()
			if err != nil {
				errOnce.Do(func() { firstErr = err })
				for g := range work {
					g.Fitness = ev.cfg.FitnessFloor
				}
				return
			}
			for g := range work {
				g.Fitness = ev.evaluateOne(ctx, e, g)
			}
		}()
	}

	for _, k := range keys {
		work <- genomes[k]
	}
	close(work)
	wg.Wait()

	return firstErr
}

// evaluateOne compiles and scores a single genome, mapping every failure
// mode to the floor fitness.
func (ev *Evaluator) evaluateOne(ctx context.Context, e Environment, g *neat.Genome) float64 {
	net, err := nn.Compile(g, ev.options)
	if err != nil {
		ev.log.Warn("genome failed to compile, assigning floor fitness",
			"genome", g.Key, "err", err)
		return ev.cfg.FitnessFloor
	}

	episodeCtx := ctx
	if ev.cfg.EpisodeTimeout > 0 {
		var cancel context.CancelFunc
		episodeCtx, cancel = context.WithTimeout(ctx, ev.cfg.EpisodeTimeout)
		defer cancel()
	}

	start := time.Now()
	score, err := RunEpisode(episodeCtx, e, net, ev.cfg.MaxSteps)
	if err != nil {
		ev.log.Warn("episode failed, assigning floor fitness",
			"genome", g.Key, "elapsed", time.Since(start), "err", err)
		return ev.cfg.FitnessFloor
	}
	return score
}
