// Package optim implements the per-layer optimizers used to train models.
//
// This package provides:
//   - SGD: Stochastic Gradient Descent with momentum, Nesterov and decay
//   - Adam: Adaptive Moment Estimation with bias correction
//   - RMSProp: Root Mean Square Propagation
//
// One optimizer instance is bound to one trainable layer. Every update rule
// is written once over (parameter, gradient, auxiliary state) triples and
// applies unchanged to Dense, Conv2D, Quadratic and Normalization layers.
//
// All optimizers decay the learning rate by iteration:
//
//	lr(t) = lr₀ / (1 + decay·t)
//
// Example:
//
//	opt, err := optim.New(optim.AdamConfig{LearningRate: 0.001}, dense)
//	if err != nil {
//	    return err
//	}
//	for range steps {
//	    // forward, backward ...
//	    opt.Step()
//	}
package optim

import (
	"fmt"

	"github.com/tom-ml/tom/internal/nn"
	"github.com/tom-ml/tom/internal/tensor"
)

// Kind identifies an optimizer algorithm.
type Kind uint32

// Optimizer kinds.
const (
	KindSGD Kind = iota
	KindAdam
	KindRMSProp
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindSGD:
		return "SGD"
	case KindAdam:
		return "Adam"
	case KindRMSProp:
		return "RMSProp"
	default:
		return fmt.Sprintf("Kind(%d)", uint32(k))
	}
}

// Config is an optimizer configuration: SGDConfig, AdamConfig or RMSPropConfig.
type Config interface {
	// Kind returns the optimizer algorithm.
	Kind() Kind

	// Schedule returns the initial learning rate and decay after defaults.
	Schedule() (lr, decay float64)

	validate() error
}

// rule is the update math of one algorithm.
type rule interface {
	Config
	withDefaults() rule
	// slots is the number of auxiliary buffers kept per parameter.
	slots() int
	// apply updates p in place from g. state holds slots() buffers shaped
	// like p. t is the zero-based iteration.
	apply(p, g []float64, state [][]float64, lr float64, t int)
}

// Optimizer updates the parameters of one trainable layer.
type Optimizer interface {
	// Kind returns the algorithm.
	Kind() Kind

	// Step applies one update from the layer's current gradients and
	// advances the iteration counter.
	Step()

	// Iteration returns the number of completed steps.
	Iteration() int

	// LearningRate returns the decayed learning rate for the next step.
	LearningRate() float64

	// Release frees auxiliary state.
	Release()
}

// Supports reports whether optimizers can be bound to layers of kind k.
func Supports(k nn.Kind) bool {
	switch k {
	case nn.KindDense, nn.KindConv2D, nn.KindQuadratic, nn.KindNormalization:
		return true
	default:
		return false
	}
}

// New binds an optimizer described by config to layer.
//
// Returns nn.ErrInvalidKind if the layer has no parameters or its kind is
// not supported, and nn.ErrInvalidConfig for out-of-range hyperparameters.
// Auxiliary state starts at zero.
func New(config Config, layer nn.Layer) (Optimizer, error) {
	tr, ok := layer.(nn.Trainable)
	if !ok || !Supports(layer.Kind()) {
		return nil, fmt.Errorf("%w: %s optimizer on %s layer", nn.ErrInvalidKind, config.Kind(), layer.Kind())
	}

	switch c := config.(type) {
	case SGDConfig:
		return bind(c, tr.Params())
	case AdamConfig:
		return bind(c, tr.Params())
	case RMSPropConfig:
		return bind(c, tr.Params())
	default:
		return nil, fmt.Errorf("%w: optimizer config %T", nn.ErrInvalidKind, config)
	}
}

type slot struct {
	param nn.Param
	state []*tensor.Tensor
	views [][]float64
}

type optimizer[R rule] struct {
	rule  R
	slots []slot
	iter  int
}

func bind[R rule](r R, params []nn.Param) (Optimizer, error) {
	r = r.withDefaults().(R)
	if err := r.validate(); err != nil {
		return nil, err
	}
	o := &optimizer[R]{rule: r, slots: make([]slot, len(params))}
	for i, p := range params {
		if p.Value == nil || p.Grad == nil || !p.Value.SameShape(p.Grad) {
			o.Release()
			return nil, fmt.Errorf("%w: parameter %q has no matching gradient", nn.ErrShapeMismatch, p.Name)
		}
		s := slot{param: p}
		for range r.slots() {
			t, err := tensor.New(p.Value.Rows, p.Value.Cols)
			if err != nil {
				o.Release()
				return nil, err
			}
			s.state = append(s.state, t)
			s.views = append(s.views, t.Data)
		}
		o.slots[i] = s
	}
	return o, nil
}

func (o *optimizer[R]) Kind() Kind { return o.rule.Kind() }

func (o *optimizer[R]) Iteration() int { return o.iter }

func (o *optimizer[R]) LearningRate() float64 {
	lr, decay := o.rule.Schedule()
	return decayed(lr, decay, o.iter)
}

func (o *optimizer[R]) Step() {
	lr := o.LearningRate()
	for _, s := range o.slots {
		o.rule.apply(s.param.Value.Data, s.param.Grad.Data, s.views, lr, o.iter)
	}
	o.iter++
}

func (o *optimizer[R]) Release() {
	for _, s := range o.slots {
		for _, t := range s.state {
			t.Release()
		}
	}
	o.slots = nil
}

func decayed(lr, decay float64, t int) float64 {
	if decay == 0 {
		return lr
	}
	return lr / (1 + decay*float64(t))
}

func checkRange(name string, v, lo, hi float64) error {
	if v < lo || v >= hi {
		return fmt.Errorf("%w: %s %g outside [%g, %g)", nn.ErrInvalidConfig, name, v, lo, hi)
	}
	return nil
}

func checkPositive(name string, v float64) error {
	if v <= 0 {
		return fmt.Errorf("%w: %s %g must be positive", nn.ErrInvalidConfig, name, v)
	}
	return nil
}

func checkNonNegative(name string, v float64) error {
	if v < 0 {
		return fmt.Errorf("%w: %s %g must not be negative", nn.ErrInvalidConfig, name, v)
	}
	return nil
}
