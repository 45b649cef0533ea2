package model

import (
	"fmt"

	"github.com/tom-ml/tom/internal/nn"
	"github.com/tom-ml/tom/internal/optim"
	"github.com/tom-ml/tom/internal/tensor"
)

// Add appends a declared layer to the chain.
//
// The layer must not have been materialized. Consecutive sizes are checked
// by Finalize, not here.
func (m *Model) Add(layer nn.Layer) error {
	if err := m.requireBuilding("add layer"); err != nil {
		return err
	}
	if layer == nil {
		return fmt.Errorf("%w: nil layer", nn.ErrInvalidKind)
	}
	if layer.Buffers().Input != nil {
		return fmt.Errorf("%w: %s layer is already materialized", nn.ErrState, layer.Kind())
	}
	m.layers = append(m.layers, layer)
	return nil
}

// AddLayer declares a layer of a kind described by its input and output
// sizes and returns it so the caller can adjust initializers, rates or
// regularization before Finalize.
//
// Element-wise kinds require in == out. Spatial kinds must be declared with
// AddConv2D, AddMaxPool2D or AddPadding2D.
func (m *Model) AddLayer(kind nn.Kind, in, out int) (nn.Layer, error) {
	if err := m.requireBuilding("add layer"); err != nil {
		return nil, err
	}
	if in <= 0 || out <= 0 {
		return nil, fmt.Errorf("%w: %s sizes %d -> %d must be positive", nn.ErrShapeMismatch, kind, in, out)
	}

	var layer nn.Layer
	switch kind {
	case nn.KindDense:
		layer = nn.NewDense(in, out, nn.DenseConfig{})
	case nn.KindQuadratic:
		layer = nn.NewQuadratic(in, out, nn.QuadraticConfig{})
	case nn.KindDropout, nn.KindNormalization, nn.KindReLU, nn.KindLeakyReLU,
		nn.KindSigmoid, nn.KindTanh, nn.KindSoftmax:
		if in != out {
			return nil, fmt.Errorf("%w: %s layer maps %d -> %d, want equal sizes", nn.ErrShapeMismatch, kind, in, out)
		}
		layer = elementwise(kind, in)
	case nn.KindConv2D, nn.KindMaxPool2D, nn.KindPadding2D:
		return nil, fmt.Errorf("%w: %s layers need spatial geometry", nn.ErrInvalidKind, kind)
	default:
		return nil, fmt.Errorf("%w: layer %s", nn.ErrInvalidKind, kind)
	}

	m.layers = append(m.layers, layer)
	return layer, nil
}

func elementwise(kind nn.Kind, size int) nn.Layer {
	switch kind {
	case nn.KindDropout:
		return nn.NewDropout(size, DefaultDropoutRate)
	case nn.KindNormalization:
		return nn.NewNormalization(size, nn.NormalizationConfig{})
	case nn.KindReLU:
		return nn.NewReLU(size)
	case nn.KindLeakyReLU:
		return nn.NewLeakyReLU(size, 0)
	case nn.KindSigmoid:
		return nn.NewSigmoid(size)
	case nn.KindTanh:
		return nn.NewTanh(size)
	default:
		return nn.NewSoftmax(size)
	}
}

// AddConv2D declares a convolution over channels×height×width inputs with
// filters square kernels of side filterSize.
func (m *Model) AddConv2D(channels, height, width, filters, filterSize, stride int) (*nn.Conv2D, error) {
	if err := m.requireBuilding("add conv2d"); err != nil {
		return nil, err
	}
	l, err := nn.NewConv2D(channels, height, width, nn.Conv2DConfig{
		Filters:    filters,
		FilterSize: filterSize,
		Stride:     stride,
	})
	if err != nil {
		return nil, err
	}
	m.layers = append(m.layers, l)
	return l, nil
}

// AddMaxPool2D declares max pooling over channels×height×width inputs.
func (m *Model) AddMaxPool2D(channels, height, width, pool, stride int) (*nn.MaxPool2D, error) {
	if err := m.requireBuilding("add maxpool2d"); err != nil {
		return nil, err
	}
	l, err := nn.NewMaxPool2D(channels, height, width, pool, stride)
	if err != nil {
		return nil, err
	}
	m.layers = append(m.layers, l)
	return l, nil
}

// AddPadding2D declares spatial padding over channels×height×width inputs.
func (m *Model) AddPadding2D(channels, height, width, padX, padY int, mode nn.PaddingMode) (*nn.Padding2D, error) {
	if err := m.requireBuilding("add padding2d"); err != nil {
		return nil, err
	}
	l, err := nn.NewPadding2D(channels, height, width, padX, padY, mode)
	if err != nil {
		return nil, err
	}
	m.layers = append(m.layers, l)
	return l, nil
}

// SetLoss declares the loss terminating the chain.
func (m *Model) SetLoss(kind nn.LossKind) error {
	if err := m.requireBuilding("set loss"); err != nil {
		return err
	}
	if !kind.Valid() {
		return fmt.Errorf("%w: loss %s", nn.ErrInvalidKind, kind)
	}
	m.lossKind, m.lossSet = kind, true
	return nil
}

// Finalize checks shape closure along the chain, allocates the activation
// and gradient arena, materializes every layer and wires the loss.
//
// When the loss is categorical cross-entropy and the last layer is Softmax
// the two backward passes are fused: the loss writes (ŷ-y)/n directly into
// the softmax layer's DInput.
//
// On failure every allocation is released and the model becomes unusable.
func (m *Model) Finalize() error {
	if err := m.requireBuilding("finalize"); err != nil {
		return err
	}
	if err := m.finalize(); err != nil {
		m.release()
		m.broken = true
		return err
	}
	m.state = Finalized
	return nil
}

func (m *Model) finalize() error {
	n := len(m.layers)
	if n == 0 {
		return fmt.Errorf("%w: model has no layers", nn.ErrShapeMismatch)
	}
	if !m.lossSet {
		return fmt.Errorf("%w: no loss declared", nn.ErrInvalidKind)
	}
	for i := 1; i < n; i++ {
		prev, cur := m.layers[i-1].Shape().OutputSize, m.layers[i].Shape().InputSize
		if prev != cur {
			return &nn.LayerError{
				Op:    "finalize",
				Index: i,
				Kind:  m.layers[i].Kind(),
				Err:   fmt.Errorf("%w: input %d does not match previous output %d", nn.ErrShapeMismatch, cur, prev),
			}
		}
	}

	m.acts = make([]*tensor.Tensor, n+1)
	m.grads = make([]*tensor.Tensor, n+1)
	for i := 0; i <= n; i++ {
		cols := m.OutputSize()
		if i < n {
			cols = m.layers[i].Shape().InputSize
		}
		var err error
		if m.acts[i], err = tensor.New(m.batch, cols); err != nil {
			return err
		}
		if m.grads[i], err = tensor.New(m.batch, cols); err != nil {
			return err
		}
	}
	y, err := tensor.New(m.batch, m.OutputSize())
	if err != nil {
		return err
	}
	m.y = y

	for i, l := range m.layers {
		io := nn.Buffers{
			Input:   m.acts[i],
			Output:  m.acts[i+1],
			DOutput: m.grads[i+1],
			DInput:  m.grads[i],
		}
		if err := l.Materialize(io, m.rng); err != nil {
			return &nn.LayerError{Op: "materialize", Index: i, Kind: l.Kind(), Err: err}
		}
	}

	m.fused = m.lossKind == nn.LossCategoricalCrossEntropy && m.layers[n-1].Kind() == nn.KindSoftmax
	seed := m.grads[n]
	if m.fused {
		seed = m.grads[n-1]
	}
	loss, err := nn.NewLoss(m.lossKind, m.acts[n], m.y, seed)
	if err != nil {
		return err
	}
	m.loss = loss
	return nil
}

// InitOptimizers binds one optimizer built from config to every trainable
// layer, replacing any previous binding. Auxiliary state starts at zero.
func (m *Model) InitOptimizers(config optim.Config) error {
	if err := m.requireWired("init optimizers"); err != nil {
		return err
	}
	if config == nil {
		return fmt.Errorf("%w: nil optimizer config", nn.ErrInvalidKind)
	}

	opts := make([]optim.Optimizer, len(m.layers))
	for i, l := range m.layers {
		if _, ok := l.(nn.Trainable); !ok {
			continue
		}
		opt, err := optim.New(config, l)
		if err != nil {
			for _, o := range opts {
				if o != nil {
					o.Release()
				}
			}
			return &nn.LayerError{Op: "init optimizer", Index: i, Kind: l.Kind(), Err: err}
		}
		opts[i] = opt
	}

	for _, o := range m.optimizers {
		if o != nil {
			o.Release()
		}
	}
	m.optimizers = opts
	m.state = Ready
	return nil
}
