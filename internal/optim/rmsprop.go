package optim

import (
	"errors"
	"math"
)

// RMSPropConfig configures the RMSProp optimizer.
//
// Update rule:
//
//	c = rho * c + (1-rho) * gradient²
//	param = param - lr * gradient / (sqrt(c) + epsilon)
type RMSPropConfig struct {
	LearningRate float64 // default: 0.001
	Decay        float64 // learning rate decay per iteration (default: 0)
	Rho          float64 // cache decay (default: 0.9)
	Epsilon      float64 // numerical stability term (default: 1e-7)
}

// Kind implements Config.
func (c RMSPropConfig) Kind() Kind { return KindRMSProp }

// Schedule implements Config.
func (c RMSPropConfig) Schedule() (lr, decay float64) {
	d := c.withDefaults().(RMSPropConfig)
	return d.LearningRate, d.Decay
}

func (c RMSPropConfig) withDefaults() rule {
	if c.LearningRate == 0 {
		c.LearningRate = 0.001
	}
	if c.Rho == 0 {
		c.Rho = 0.9
	}
	if c.Epsilon == 0 {
		c.Epsilon = 1e-7
	}
	return c
}

func (c RMSPropConfig) validate() error {
	return errors.Join(
		checkPositive("rmsprop learning rate", c.LearningRate),
		checkNonNegative("rmsprop decay", c.Decay),
		checkRange("rmsprop rho", c.Rho, 0, 1),
		checkNonNegative("rmsprop epsilon", c.Epsilon),
	)
}

func (c RMSPropConfig) slots() int { return 1 }

func (c RMSPropConfig) apply(p, g []float64, state [][]float64, lr float64, _ int) {
	cache := state[0]
	for i := range p {
		cache[i] = c.Rho*cache[i] + (1-c.Rho)*g[i]*g[i]
		p[i] -= lr * g[i] / (math.Sqrt(cache[i]) + c.Epsilon)
	}
}
