package optim

import (
	"errors"
	"fmt"

	"github.com/tom-ml/tom/internal/nn"
)

// SGDConfig configures Stochastic Gradient Descent.
//
// Update rule without momentum:
//
//	param = param - lr * gradient
//
// Update rule with momentum:
//
//	m = momentum * m - lr * gradient
//	param = param + m
//
// With Nesterov the parameter step re-applies the gradient term on top of
// the look-ahead momentum:
//
//	m = momentum * m - lr * gradient
//	param = param + momentum * m - lr * gradient
//
// Example:
//
//	cfg := optim.SGDConfig{
//	    LearningRate: 0.01,
//	    Momentum:     0.9,
//	    Nesterov:     true,
//	}
type SGDConfig struct {
	LearningRate float64 // default: 0.01
	Decay        float64 // learning rate decay per iteration (default: 0)
	Momentum     float64 // range: [0, 1) (default: 0)
	Nesterov     bool    // requires Momentum > 0
}

// Kind implements Config.
func (c SGDConfig) Kind() Kind { return KindSGD }

// Schedule implements Config.
func (c SGDConfig) Schedule() (lr, decay float64) {
	d := c.withDefaults().(SGDConfig)
	return d.LearningRate, d.Decay
}

func (c SGDConfig) withDefaults() rule {
	if c.LearningRate == 0 {
		c.LearningRate = 0.01
	}
	return c
}

func (c SGDConfig) validate() error {
	var nesterov error
	if c.Nesterov && c.Momentum == 0 {
		nesterov = fmt.Errorf("%w: sgd nesterov requires momentum > 0", nn.ErrInvalidConfig)
	}
	return errors.Join(
		checkPositive("sgd learning rate", c.LearningRate),
		checkNonNegative("sgd decay", c.Decay),
		checkRange("sgd momentum", c.Momentum, 0, 1),
		nesterov,
	)
}

func (c SGDConfig) slots() int {
	if c.Momentum == 0 {
		return 0
	}
	return 1
}

func (c SGDConfig) apply(p, g []float64, state [][]float64, lr float64, _ int) {
	if c.Momentum == 0 {
		for i := range p {
			p[i] -= lr * g[i]
		}
		return
	}

	m := state[0]
	for i := range p {
		m[i] = m[i]*c.Momentum - lr*g[i]
		if c.Nesterov {
			p[i] += m[i]*c.Momentum - lr*g[i]
		} else {
			p[i] += m[i]
		}
	}
}
