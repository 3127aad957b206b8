package neat

import (
	"fmt"
	"math"
)

// Activation identifies a node activation function. The set is closed and
// dispatched by tag so that network evaluation stays type-safe and avoids
// per-node function lookups.
type Activation uint8

const (
	ActIdentity Activation = iota
	ActSigmoid
	ActTanh
	ActReLU
	ActStep
	ActClamped
	ActGaussian
	ActSine
	ActAbs
)

// sigmoidSteepness matches the steepened sigmoid from the original NEAT
// experiments.
const sigmoidSteepness = 4.9

// Apply evaluates the activation function at x.
func (a Activation) Apply(x float64) float64 {
	switch a {
	case ActIdentity:
		return x
	case ActSigmoid:
		return 1.0 / (1.0 + math.Exp(-sigmoidSteepness*x))
	case ActTanh:
		return math.Tanh(x)
	case ActReLU:
		return math.Max(0, x)
	case ActStep:
		if x > 0 {
			return 1.0
		}
		return 0.0
	case ActClamped:
		return clamp(x, -1.0, 1.0)
	case ActGaussian:
		return math.Exp(-x * x / 2.0)
	case ActSine:
		return math.Sin(x)
	case ActAbs:
		return math.Abs(x)
	default:
		panic(fmt.Sprintf("unknown activation tag: %d", a))
	}
}

// String returns the configuration name of the activation.
func (a Activation) String() string {
	switch a {
	case ActIdentity:
		return "identity"
	case ActSigmoid:
		return "sigmoid"
	case ActTanh:
		return "tanh"
	case ActReLU:
		return "relu"
	case ActStep:
		return "step"
	case ActClamped:
		return "clamped"
	case ActGaussian:
		return "gaussian"
	case ActSine:
		return "sine"
	case ActAbs:
		return "abs"
	default:
		return fmt.Sprintf("activation(%d)", a)
	}
}

// ParseActivation resolves a configuration name to an activation tag.
func ParseActivation(name string) (Activation, error) {
	switch name {
	case "identity", "linear", "":
		return ActIdentity, nil
	case "sigmoid":
		return ActSigmoid, nil
	case "tanh":
		return ActTanh, nil
	case "relu":
		return ActReLU, nil
	case "step":
		return ActStep, nil
	case "clamped":
		return ActClamped, nil
	case "gaussian":
		return ActGaussian, nil
	case "sine", "sin":
		return ActSine, nil
	case "abs", "absolute":
		return ActAbs, nil
	}
	return ActIdentity, fmt.Errorf("unknown activation function: %q", name)
}
