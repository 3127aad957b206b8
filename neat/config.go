package neat

import (
	"fmt"
	"time"

	"gopkg.in/ini.v1"
)

// Config stores the configuration parameters for the evolution engine.
type Config struct {
	Neat         NeatConfig         `ini:"NEAT"`
	Genome       GenomeConfig       `ini:"Genome"`
	Reproduction ReproductionConfig `ini:"Reproduction"`
	SpeciesSet   SpeciesSetConfig   `ini:"SpeciesSet"`
	Stagnation   StagnationConfig   `ini:"Stagnation"`
	Network      NetworkConfig      `ini:"Network"`
	Evaluation   EvaluationConfig   `ini:"Evaluation"`
}

// NeatConfig holds parameters for the run as a whole.
type NeatConfig struct {
	PopSize              int     `ini:"pop_size" yaml:"pop_size"`
	FitnessThreshold     float64 `ini:"fitness_threshold" yaml:"fitness_threshold"`
	NoFitnessTermination bool    `ini:"no_fitness_termination" yaml:"no_fitness_termination"`
	ResetOnExtinction    bool    `ini:"reset_on_extinction" yaml:"reset_on_extinction"`
	RandomSeed           int64   `ini:"random_seed" yaml:"random_seed"` // 0 means seed from the clock
	CheckpointInterval   int     `ini:"checkpoint_interval" yaml:"checkpoint_interval"`
}

// GenomeConfig holds parameters for genome structure and mutation.
type GenomeConfig struct {
	NumInputs   int  `ini:"num_inputs" yaml:"num_inputs"`
	NumOutputs  int  `ini:"num_outputs" yaml:"num_outputs"`
	FeedForward bool `ini:"feed_forward" yaml:"feed_forward"` // if true, recurrent connections are disallowed
	AllowLoops  bool `ini:"allow_loops" yaml:"allow_loops"`   // self connections, only meaningful when recurrent

	CompatibilityDisjointCoefficient float64 `ini:"compatibility_disjoint_coefficient" yaml:"compatibility_disjoint_coefficient"`
	CompatibilityWeightCoefficient   float64 `ini:"compatibility_weight_coefficient" yaml:"compatibility_weight_coefficient"`

	ConnAddProb float64 `ini:"conn_add_prob" yaml:"conn_add_prob"`
	NodeAddProb float64 `ini:"node_add_prob" yaml:"node_add_prob"`

	WeightInitMean    float64 `ini:"weight_init_mean" yaml:"weight_init_mean"`
	WeightInitStdev   float64 `ini:"weight_init_stdev" yaml:"weight_init_stdev"`
	WeightMutateRate  float64 `ini:"weight_mutate_rate" yaml:"weight_mutate_rate"`
	WeightReplaceRate float64 `ini:"weight_replace_rate" yaml:"weight_replace_rate"`
	WeightMutatePower float64 `ini:"weight_mutate_power" yaml:"weight_mutate_power"`
	WeightMinValue    float64 `ini:"weight_min_value" yaml:"weight_min_value"`
	WeightMaxValue    float64 `ini:"weight_max_value" yaml:"weight_max_value"`

	EnabledMutateRate    float64 `ini:"enabled_mutate_rate" yaml:"enabled_mutate_rate"`
	ReenableProbability  float64 `ini:"reenable_probability" yaml:"reenable_probability"`
	ActivationHiddenName string  `ini:"activation_hidden" yaml:"activation_hidden"`
	ActivationOutputName string  `ini:"activation_output" yaml:"activation_output"`

	// InitialConnection selects the seed topology: "full" connects every
	// input and the bias to every output, "sparse" connects each such pair
	// with probability ConnectionFraction, "unconnected" adds no genes.
	InitialConnection  string  `ini:"initial_connection" yaml:"initial_connection"`
	ConnectionFraction float64 `ini:"connection_fraction" yaml:"connection_fraction"`

	// Derived at load time.
	InputKeys        []int      `ini:"-" yaml:"-"`
	BiasKey          int        `ini:"-" yaml:"-"`
	OutputKeys       []int      `ini:"-" yaml:"-"`
	ActivationHidden Activation `ini:"-" yaml:"-"`
	ActivationOutput Activation `ini:"-" yaml:"-"`
}

// ReproductionConfig holds parameters for selection and offspring creation.
type ReproductionConfig struct {
	Elitism               int     `ini:"elitism" yaml:"elitism"`
	ElitismMinSpeciesSize int     `ini:"elitism_min_species_size" yaml:"elitism_min_species_size"`
	SurvivalThreshold     float64 `ini:"survival_threshold" yaml:"survival_threshold"`
	MinSpeciesSize        int     `ini:"min_species_size" yaml:"min_species_size"`
	ParentSelection       string  `ini:"parent_selection" yaml:"parent_selection"` // "tournament" or "proportionate"
	TournamentSize        int     `ini:"tournament_size" yaml:"tournament_size"`
}

// SpeciesSetConfig holds parameters for speciation.
type SpeciesSetConfig struct {
	CompatibilityThreshold float64 `ini:"compatibility_threshold" yaml:"compatibility_threshold"`
}

// StagnationConfig holds parameters for stagnation-based species removal.
type StagnationConfig struct {
	SpeciesFitnessFunc string `ini:"species_fitness_func" yaml:"species_fitness_func"`
	MaxStagnation      int    `ini:"max_stagnation" yaml:"max_stagnation"`
}

// NetworkConfig holds parameters for phenotype evaluation.
type NetworkConfig struct {
	// RelaxationPasses is the number of fixed-point passes used to evaluate
	// recurrent genomes. Feed-forward genomes ignore it and use a single
	// topologically ordered pass.
	RelaxationPasses int `ini:"relaxation_passes" yaml:"relaxation_passes"`
}

// EvaluationConfig holds parameters for parallel fitness evaluation.
type EvaluationConfig struct {
	Workers        int           `ini:"workers" yaml:"workers"` // 0 means GOMAXPROCS
	MaxSteps       int           `ini:"max_steps" yaml:"max_steps"`
	EpisodeTimeout time.Duration `ini:"episode_timeout" yaml:"episode_timeout"`
	FitnessFloor   float64       `ini:"fitness_floor" yaml:"fitness_floor"`
}

// DefaultConfig returns a configuration with the documented defaults for
// every parameter. Callers adjust fields and then call Finalize.
func DefaultConfig() *Config {
	return &Config{
		Neat: NeatConfig{
			PopSize:              150,
			FitnessThreshold:     0,
			NoFitnessTermination: true,
			ResetOnExtinction:    false,
			CheckpointInterval:   5,
		},
		Genome: GenomeConfig{
			NumInputs:                        2,
			NumOutputs:                       1,
			FeedForward:                      true,
			CompatibilityDisjointCoefficient: 1.0,
			CompatibilityWeightCoefficient:   0.5,
			ConnAddProb:                      0.5,
			NodeAddProb:                      0.2,
			WeightInitMean:                   0.0,
			WeightInitStdev:                  1.0,
			WeightMutateRate:                 0.8,
			WeightReplaceRate:                0.1,
			WeightMutatePower:                0.5,
			WeightMinValue:                   -30.0,
			WeightMaxValue:                   30.0,
			EnabledMutateRate:                0.01,
			ReenableProbability:              0.25,
			ActivationHiddenName:             "sigmoid",
			ActivationOutputName:             "sigmoid",
			InitialConnection:                "full",
			ConnectionFraction:               0.5,
		},
		Reproduction: ReproductionConfig{
			Elitism:               1,
			ElitismMinSpeciesSize: 5,
			SurvivalThreshold:     0.2,
			MinSpeciesSize:        2,
			ParentSelection:       "tournament",
			TournamentSize:        3,
		},
		SpeciesSet: SpeciesSetConfig{
			CompatibilityThreshold: 3.0,
		},
		Stagnation: StagnationConfig{
			SpeciesFitnessFunc: "mean",
			MaxStagnation:      15,
		},
		Network: NetworkConfig{
			RelaxationPasses: 3,
		},
		Evaluation: EvaluationConfig{
			Workers:        0,
			MaxSteps:       1000,
			EpisodeTimeout: 30 * time.Second,
			FitnessFloor:   0,
		},
	}
}

// LoadConfig loads configuration parameters from an INI file and finalizes
// them. Unset keys keep the documented defaults.
func LoadConfig(filePath string) (*Config, error) {
	cfg, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment:         true,
		UnescapeValueCommentSymbols: true,
	}, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file %q: %w", filePath, err)
	}

	config := DefaultConfig()

	sections := []struct {
		name string
		dst  any
	}{
		{"NEAT", &config.Neat},
		{"Genome", &config.Genome},
		{"Reproduction", &config.Reproduction},
		{"SpeciesSet", &config.SpeciesSet},
		{"Stagnation", &config.Stagnation},
		{"Network", &config.Network},
		{"Evaluation", &config.Evaluation},
	}
	for _, s := range sections {
		if err := cfg.Section(s.name).MapTo(s.dst); err != nil {
			return nil, fmt.Errorf("failed to map [%s] section: %w", s.name, err)
		}
	}

	if err := config.Finalize(); err != nil {
		return nil, err
	}
	return config, nil
}

// Finalize validates the configuration and computes the derived fields
// (node id layout and parsed activation tags). It must be called after any
// programmatic modification of the genome section.
func (c *Config) Finalize() error {
	g := &c.Genome

	if c.Neat.PopSize <= 0 {
		return fmt.Errorf("config error: pop_size must be positive")
	}
	if c.Neat.CheckpointInterval <= 0 {
		return fmt.Errorf("config error: checkpoint_interval must be positive")
	}
	if g.NumInputs <= 0 {
		return fmt.Errorf("config error: num_inputs must be positive")
	}
	if g.NumOutputs <= 0 {
		return fmt.Errorf("config error: num_outputs must be positive")
	}
	if g.CompatibilityDisjointCoefficient < 0 || g.CompatibilityWeightCoefficient < 0 {
		return fmt.Errorf("config error: compatibility coefficients cannot be negative")
	}
	for name, p := range map[string]float64{
		"conn_add_prob":        g.ConnAddProb,
		"node_add_prob":        g.NodeAddProb,
		"weight_mutate_rate":   g.WeightMutateRate,
		"weight_replace_rate":  g.WeightReplaceRate,
		"enabled_mutate_rate":  g.EnabledMutateRate,
		"reenable_probability": g.ReenableProbability,
		"connection_fraction":  g.ConnectionFraction,
	} {
		if p < 0 || p > 1 {
			return fmt.Errorf("config error: %s must be between 0 and 1", name)
		}
	}
	if g.WeightMaxValue < g.WeightMinValue {
		return fmt.Errorf("config error: weight_max_value cannot be less than weight_min_value")
	}
	switch g.InitialConnection {
	case "full", "sparse", "unconnected":
	default:
		return fmt.Errorf("config error: invalid initial_connection type %q", g.InitialConnection)
	}
	if c.Reproduction.SurvivalThreshold < 0 || c.Reproduction.SurvivalThreshold > 1 {
		return fmt.Errorf("config error: survival_threshold must be between 0 and 1")
	}
	if c.Reproduction.MinSpeciesSize <= 0 {
		return fmt.Errorf("config error: min_species_size must be positive")
	}
	switch c.Reproduction.ParentSelection {
	case "tournament", "proportionate":
	default:
		return fmt.Errorf("config error: invalid parent_selection %q", c.Reproduction.ParentSelection)
	}
	if c.Reproduction.TournamentSize < 2 {
		return fmt.Errorf("config error: tournament_size must be at least 2")
	}
	if c.SpeciesSet.CompatibilityThreshold < 0 {
		return fmt.Errorf("config error: compatibility_threshold cannot be negative")
	}
	if _, ok := StatFunctions[c.Stagnation.SpeciesFitnessFunc]; !ok {
		return fmt.Errorf("config error: invalid species_fitness_func %q", c.Stagnation.SpeciesFitnessFunc)
	}
	if c.Stagnation.MaxStagnation <= 0 {
		return fmt.Errorf("config error: max_stagnation must be positive")
	}
	if c.Network.RelaxationPasses <= 0 {
		return fmt.Errorf("config error: relaxation_passes must be positive")
	}

	var err error
	if g.ActivationHidden, err = ParseActivation(g.ActivationHiddenName); err != nil {
		return fmt.Errorf("config error: activation_hidden: %w", err)
	}
	if g.ActivationOutput, err = ParseActivation(g.ActivationOutputName); err != nil {
		return fmt.Errorf("config error: activation_output: %w", err)
	}

	// Node id layout: inputs -(1..n), bias -(n+1), outputs 0..m-1, hidden
	// ids allocated by the registry starting at m.
	g.InputKeys = make([]int, g.NumInputs)
	for i := 0; i < g.NumInputs; i++ {
		g.InputKeys[i] = -(i + 1)
	}
	g.BiasKey = -(g.NumInputs + 1)
	g.OutputKeys = make([]int, g.NumOutputs)
	for i := 0; i < g.NumOutputs; i++ {
		g.OutputKeys[i] = i
	}

	return nil
}

// FirstHiddenID returns the first node id available for hidden nodes.
func (g *GenomeConfig) FirstHiddenID() int {
	return g.NumOutputs
}
