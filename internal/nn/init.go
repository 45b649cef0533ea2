package nn

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/tom-ml/tom/internal/tensor"
)

// RNG is the source of randomness used by initializers and dropout.
type RNG interface {
	// Uniform draws from U[min, max).
	Uniform(min, max float64) float64
	// Normal draws from N(mu, sigma²).
	Normal(mu, sigma float64) float64
}

type distRNG struct {
	src rand.Source
}

// NewRNG returns the default RNG, a PCG stream seeded with seed.
// Two RNGs with the same seed produce the same sequence.
func NewRNG(seed uint64) RNG {
	return &distRNG{src: rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)}
}

func (r *distRNG) Uniform(min, max float64) float64 {
	if min == max {
		return min
	}
	return distuv.Uniform{Min: min, Max: max, Src: r.src}.Rand()
}

func (r *distRNG) Normal(mu, sigma float64) float64 {
	if sigma == 0 {
		return mu
	}
	return distuv.Normal{Mu: mu, Sigma: sigma, Src: r.src}.Rand()
}

// Initializer selects how a parameter tensor is filled at materialization.
//
// The zero value means "use the layer's default".
type Initializer int

// Initializer policies.
const (
	InitDefault Initializer = iota
	Zeros
	Ones
	UniformRandom
	NormalRandom
	GlorotUniform
	GlorotNormal
	HeUniform
	HeNormal
)

// String implements fmt.Stringer.
func (i Initializer) String() string {
	switch i {
	case InitDefault:
		return "Default"
	case Zeros:
		return "Zeros"
	case Ones:
		return "Ones"
	case UniformRandom:
		return "UniformRandom"
	case NormalRandom:
		return "NormalRandom"
	case GlorotUniform:
		return "GlorotUniform"
	case GlorotNormal:
		return "GlorotNormal"
	case HeUniform:
		return "HeUniform"
	case HeNormal:
		return "HeNormal"
	default:
		return fmt.Sprintf("Initializer(%d)", int(i))
	}
}

func (i Initializer) or(def Initializer) Initializer {
	if i == InitDefault {
		return def
	}
	return i
}

// Fill initializes t according to policy.
//
// Glorot variants use both fanIn and fanOut, He variants only fanIn:
//
//	GlorotUniform: U(-sqrt(6/(in+out)), sqrt(6/(in+out)))
//	GlorotNormal:  N(0, sqrt(2/(in+out)))
//	HeUniform:     U(-sqrt(6/in), sqrt(6/in))
//	HeNormal:      N(0, sqrt(2/in))
//
// UniformRandom draws from U(-1, 1) and NormalRandom from N(0, 1).
// Returns ErrInvalidKind for an unknown policy.
func Fill(t *tensor.Tensor, policy Initializer, fanIn, fanOut int, rng RNG) error {
	switch policy {
	case Zeros:
		t.Zero()
		return nil
	case Ones:
		t.Fill(1)
		return nil
	}

	if rng == nil {
		return fmt.Errorf("%w: initializer %s requires an RNG", ErrInvalidConfig, policy)
	}

	var draw func() float64
	switch policy {
	case UniformRandom:
		draw = func() float64 { return rng.Uniform(-1, 1) }
	case NormalRandom:
		draw = func() float64 { return rng.Normal(0, 1) }
	case GlorotUniform:
		v := math.Sqrt(6 / float64(fanIn+fanOut))
		draw = func() float64 { return rng.Uniform(-v, v) }
	case GlorotNormal:
		sigma := math.Sqrt(2 / float64(fanIn+fanOut))
		draw = func() float64 { return rng.Normal(0, sigma) }
	case HeUniform:
		v := math.Sqrt(6 / float64(fanIn))
		draw = func() float64 { return rng.Uniform(-v, v) }
	case HeNormal:
		sigma := math.Sqrt(2 / float64(fanIn))
		draw = func() float64 { return rng.Normal(0, sigma) }
	default:
		return fmt.Errorf("%w: initializer %s", ErrInvalidKind, policy)
	}

	for i := range t.Data {
		t.Data[i] = draw()
	}
	return nil
}
