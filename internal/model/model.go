// Package model implements the layer chain engine: declaration, buffer
// wiring, forward and backward passes, optimizer binding and the training
// and evaluation loops.
//
// A Model moves through three states:
//
//	Building  → layers and the loss are declared, no buffers exist
//	Finalized → buffers are allocated and wired, layers are materialized
//	Ready     → optimizers are bound, Update and Train may run
//
// The model owns every activation and gradient buffer in an arena:
// acts[i] is the input of layer i and acts[i+1] its output; grads[i] is the
// gradient with respect to acts[i]. Layers borrow these buffers and own only
// their parameters.
package model

import (
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/tom-ml/tom/internal/nn"
	"github.com/tom-ml/tom/internal/optim"
	"github.com/tom-ml/tom/internal/tensor"
)

// State is a model lifecycle state.
type State int

// Model states.
const (
	Building State = iota
	Finalized
	Ready
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case Building:
		return "Building"
	case Finalized:
		return "Finalized"
	case Ready:
		return "Ready"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// DefaultDropoutRate is the rate of Dropout layers declared via AddLayer.
const DefaultDropoutRate = 0.5

// Option configures a Model.
type Option func(*Model)

// WithRNG sets the random source used for initialization and dropout.
func WithRNG(rng nn.RNG) Option {
	return func(m *Model) { m.rng = rng }
}

// WithSeed seeds the default random source.
func WithSeed(seed uint64) Option {
	return func(m *Model) { m.rng = nn.NewRNG(seed) }
}

// WithLogger sets the logger used for training progress.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Model) { m.logger = logger }
}

// Model is a fixed chain of layers terminated by a loss.
//
// A Model is not safe for concurrent use.
type Model struct {
	batch  int
	state  State
	broken bool // set by a failed Finalize or by Close

	layers   []nn.Layer
	lossKind nn.LossKind
	lossSet  bool

	// Arena, allocated by Finalize.
	acts  []*tensor.Tensor
	grads []*tensor.Tensor
	y     *tensor.Tensor
	loss  *nn.Loss
	fused bool

	optimizers []optim.Optimizer // parallel to layers, nil for non-trainable

	batchLoss float64
	rng       nn.RNG
	logger    *slog.Logger
}

// New creates an empty model that processes batchSize samples per pass.
func New(batchSize int, opts ...Option) (*Model, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("%w: batch size %d must be positive", nn.ErrInvalidConfig, batchSize)
	}
	m := &Model{batch: batchSize}
	for _, opt := range opts {
		opt(m)
	}
	if m.rng == nil {
		m.rng = nn.NewRNG(rand.Uint64())
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	return m, nil
}

// State returns the lifecycle state.
func (m *Model) State() State { return m.state }

// BatchSize returns the number of samples per pass.
func (m *Model) BatchSize() int { return m.batch }

// Len returns the number of layers.
func (m *Model) Len() int { return len(m.layers) }

// Layers returns the chain in order.
func (m *Model) Layers() []nn.Layer {
	return append([]nn.Layer(nil), m.layers...)
}

// Layer returns the i-th layer.
func (m *Model) Layer(i int) nn.Layer { return m.layers[i] }

// LossKind returns the declared loss and whether one has been set.
func (m *Model) LossKind() (nn.LossKind, bool) { return m.lossKind, m.lossSet }

// Loss returns the loss node. Nil before Finalize.
func (m *Model) Loss() *nn.Loss { return m.loss }

// Fused reports whether the softmax and cross-entropy backward passes are
// combined.
func (m *Model) Fused() bool { return m.fused }

// Optimizer returns the optimizer bound to layer i, or nil.
func (m *Model) Optimizer(i int) optim.Optimizer {
	if m.optimizers == nil {
		return nil
	}
	return m.optimizers[i]
}

// RNG returns the model's random source.
func (m *Model) RNG() nn.RNG { return m.rng }

// Input returns the (batch, input size) buffer read by the first layer.
func (m *Model) Input() *tensor.Tensor { return m.arena(0) }

// Output returns the (batch, output size) buffer written by the last layer.
func (m *Model) Output() *tensor.Tensor { return m.arena(len(m.layers)) }

// Target returns the (batch, output size) target buffer read by the loss.
func (m *Model) Target() *tensor.Tensor { return m.y }

// BatchLoss returns the loss computed by the last Forward.
func (m *Model) BatchLoss() float64 { return m.batchLoss }

func (m *Model) arena(i int) *tensor.Tensor {
	if m.acts == nil {
		return nil
	}
	return m.acts[i]
}

// InputSize returns the number of features the first layer expects.
func (m *Model) InputSize() int {
	if len(m.layers) == 0 {
		return 0
	}
	return m.layers[0].Shape().InputSize
}

// OutputSize returns the number of features the last layer produces.
func (m *Model) OutputSize() int {
	if len(m.layers) == 0 {
		return 0
	}
	return m.layers[len(m.layers)-1].Shape().OutputSize
}

// Regularization returns the sum of the Dense layers' regularization terms.
func (m *Model) Regularization() float64 {
	if m.state == Building {
		return 0
	}
	var r float64
	for _, l := range m.layers {
		if d, ok := l.(*nn.Dense); ok {
			r += d.Regularization()
		}
	}
	return r
}

func (m *Model) requireBuilding(op string) error {
	if m.broken || m.state != Building {
		return fmt.Errorf("%w: %s in state %s", nn.ErrState, op, m.describeState())
	}
	return nil
}

func (m *Model) requireWired(op string) error {
	if m.broken || m.state == Building {
		return fmt.Errorf("%w: %s in state %s", nn.ErrState, op, m.describeState())
	}
	return nil
}

func (m *Model) describeState() string {
	if m.broken {
		return "closed"
	}
	return m.state.String()
}

// Close releases every buffer owned by the model and its layers.
// The model cannot be used afterwards. Close is idempotent.
func (m *Model) Close() {
	if m.broken && m.acts == nil {
		return
	}
	m.release()
	m.broken = true
}

func (m *Model) release() {
	for i, opt := range m.optimizers {
		if opt != nil {
			opt.Release()
			m.optimizers[i] = nil
		}
	}
	m.optimizers = nil
	if m.acts != nil {
		for _, l := range m.layers {
			l.Release()
		}
	}
	if m.loss != nil {
		m.loss.Release()
		m.loss = nil
	}
	for _, t := range m.acts {
		if t != nil {
			t.Release()
		}
	}
	for _, t := range m.grads {
		if t != nil {
			t.Release()
		}
	}
	if m.y != nil {
		m.y.Release()
	}
	m.acts, m.grads, m.y = nil, nil, nil
}
