package optim

import (
	"errors"
	"math"
)

// AdamConfig configures the Adam optimizer (Kingma & Ba, 2014).
//
// Update rule, with t the zero-based iteration:
//
//	m = beta1 * m + (1-beta1) * gradient
//	c = beta2 * c + (1-beta2) * gradient²
//	m_hat = m / (1 - beta1^(t+1))
//	c_hat = c / (1 - beta2^(t+1))
//	param = param - lr * m_hat / (sqrt(c_hat) + epsilon)
//
// Example:
//
//	cfg := optim.AdamConfig{
//	    LearningRate: 0.001,
//	    Beta1:        0.9,
//	    Beta2:        0.999,
//	    Epsilon:      1e-8,
//	}
type AdamConfig struct {
	LearningRate float64 // default: 0.001
	Decay        float64 // learning rate decay per iteration (default: 0)
	Beta1        float64 // first moment decay (default: 0.9)
	Beta2        float64 // second moment decay (default: 0.999)
	Epsilon      float64 // numerical stability term (default: 1e-8)
}

// Kind implements Config.
func (c AdamConfig) Kind() Kind { return KindAdam }

// Schedule implements Config.
func (c AdamConfig) Schedule() (lr, decay float64) {
	d := c.withDefaults().(AdamConfig)
	return d.LearningRate, d.Decay
}

func (c AdamConfig) withDefaults() rule {
	if c.LearningRate == 0 {
		c.LearningRate = 0.001
	}
	if c.Beta1 == 0 {
		c.Beta1 = 0.9
	}
	if c.Beta2 == 0 {
		c.Beta2 = 0.999
	}
	if c.Epsilon == 0 {
		c.Epsilon = 1e-8
	}
	return c
}

func (c AdamConfig) validate() error {
	return errors.Join(
		checkPositive("adam learning rate", c.LearningRate),
		checkNonNegative("adam decay", c.Decay),
		checkRange("adam beta1", c.Beta1, 0, 1),
		checkRange("adam beta2", c.Beta2, 0, 1),
		checkNonNegative("adam epsilon", c.Epsilon),
	)
}

func (c AdamConfig) slots() int { return 2 }

func (c AdamConfig) apply(p, g []float64, state [][]float64, lr float64, t int) {
	m, v := state[0], state[1]
	correct1 := 1 - math.Pow(c.Beta1, float64(t+1))
	correct2 := 1 - math.Pow(c.Beta2, float64(t+1))
	for i := range p {
		m[i] = c.Beta1*m[i] + (1-c.Beta1)*g[i]
		v[i] = c.Beta2*v[i] + (1-c.Beta2)*g[i]*g[i]
		mHat := m[i] / correct1
		vHat := v[i] / correct2
		p[i] -= lr * mHat / (math.Sqrt(vHat) + c.Epsilon)
	}
}
