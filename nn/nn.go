// Copyright 2025 The Tom Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/tom-ml/tom/internal/nn"
	"github.com/tom-ml/tom/internal/tensor"
)

// Layer is one stage of a model's chain.
type Layer = nn.Layer

// Trainable is implemented by layers with parameters.
type Trainable = nn.Trainable

// Param is a trainable tensor paired with its gradient.
type Param = nn.Param

// Buffers are the activation and gradient tensors a layer is wired to.
type Buffers = nn.Buffers

// Shape is the shape record every layer carries.
type Shape = nn.Shape

// LayerError attaches chain position and layer kind to a failure.
type LayerError = nn.LayerError

// Kind identifies a layer variant.
type Kind = nn.Kind

// Layer kinds.
const (
	KindDense         = nn.KindDense
	KindConv2D        = nn.KindConv2D
	KindMaxPool2D     = nn.KindMaxPool2D
	KindDropout       = nn.KindDropout
	KindReLU          = nn.KindReLU
	KindLeakyReLU     = nn.KindLeakyReLU
	KindSigmoid       = nn.KindSigmoid
	KindSoftmax       = nn.KindSoftmax
	KindTanh          = nn.KindTanh
	KindNormalization = nn.KindNormalization
	KindQuadratic     = nn.KindQuadratic
	KindPadding2D     = nn.KindPadding2D
)

// LossKind identifies a loss function.
type LossKind = nn.LossKind

// Loss kinds.
const (
	LossMSE                     = nn.LossMSE
	LossMAE                     = nn.LossMAE
	LossCategoricalCrossEntropy = nn.LossCategoricalCrossEntropy
	LossBinaryCrossEntropy      = nn.LossBinaryCrossEntropy
)

// Errors shared by layers, losses, optimizers and models.
var (
	ErrShapeMismatch       = nn.ErrShapeMismatch
	ErrAllocation          = nn.ErrAllocation
	ErrInvalidKind         = nn.ErrInvalidKind
	ErrInvalidConfig       = nn.ErrInvalidConfig
	ErrUnevenBatchDivision = nn.ErrUnevenBatchDivision
	ErrSampleCountMismatch = nn.ErrSampleCountMismatch
	ErrState               = nn.ErrState
)

// Initialization

// RNG is the random source used for initialization and dropout.
type RNG = nn.RNG

// NewRNG returns a seeded RNG.
func NewRNG(seed uint64) RNG {
	return nn.NewRNG(seed)
}

// Initializer selects how a parameter tensor is filled.
type Initializer = nn.Initializer

// Initializer policies.
const (
	InitDefault   = nn.InitDefault
	Zeros         = nn.Zeros
	Ones          = nn.Ones
	UniformRandom = nn.UniformRandom
	NormalRandom  = nn.NormalRandom
	GlorotUniform = nn.GlorotUniform
	GlorotNormal  = nn.GlorotNormal
	HeUniform     = nn.HeUniform
	HeNormal      = nn.HeNormal
)

// Fill initializes t according to policy.
func Fill(t *tensor.Tensor, policy Initializer, fanIn, fanOut int, rng RNG) error {
	return nn.Fill(t, policy, fanIn, fanOut, rng)
}

// Layers

// Dense is a fully connected layer.
type Dense = nn.Dense

// DenseConfig configures a Dense layer.
type DenseConfig = nn.DenseConfig

// NewDense declares a fully connected layer.
//
// Example:
//
//	fc := nn.NewDense(784, 128, nn.DenseConfig{WeightInit: nn.HeUniform})
func NewDense(in, out int, config DenseConfig) *Dense {
	return nn.NewDense(in, out, config)
}

// Conv2D is a 2D convolution layer.
type Conv2D = nn.Conv2D

// Conv2DConfig configures a Conv2D layer.
type Conv2DConfig = nn.Conv2DConfig

// NewConv2D declares a convolution over channels×height×width inputs.
//
// Example:
//
//	conv, err := nn.NewConv2D(1, 28, 28, nn.Conv2DConfig{Filters: 8, FilterSize: 5})
func NewConv2D(channels, height, width int, config Conv2DConfig) (*Conv2D, error) {
	return nn.NewConv2D(channels, height, width, config)
}

// MaxPool2D is a 2D max pooling layer.
type MaxPool2D = nn.MaxPool2D

// NewMaxPool2D declares max pooling over channels×height×width inputs.
func NewMaxPool2D(channels, height, width, pool, stride int) (*MaxPool2D, error) {
	return nn.NewMaxPool2D(channels, height, width, pool, stride)
}

// Padding2D pads every channel plane.
type Padding2D = nn.Padding2D

// PaddingMode selects how border cells are filled.
type PaddingMode = nn.PaddingMode

// Padding modes.
const (
	PadZero       = nn.PadZero
	PadSymmetric  = nn.PadSymmetric
	PadReflection = nn.PadReflection
)

// NewPadding2D declares a padding layer.
func NewPadding2D(channels, height, width, padX, padY int, mode PaddingMode) (*Padding2D, error) {
	return nn.NewPadding2D(channels, height, width, padX, padY, mode)
}

// Dropout zeroes units with a fixed probability during training.
type Dropout = nn.Dropout

// NewDropout declares a dropout layer.
func NewDropout(size int, rate float64) *Dropout {
	return nn.NewDropout(size, rate)
}

// Normalization is a batch normalization layer.
type Normalization = nn.Normalization

// NormalizationConfig configures a Normalization layer.
type NormalizationConfig = nn.NormalizationConfig

// NewNormalization declares a batch normalization layer.
func NewNormalization(size int, config NormalizationConfig) *Normalization {
	return nn.NewNormalization(size, config)
}

// Quadratic adds a learned quadratic term to an affine layer.
type Quadratic = nn.Quadratic

// QuadraticConfig configures a Quadratic layer.
type QuadraticConfig = nn.QuadraticConfig

// NewQuadratic declares a quadratic layer.
func NewQuadratic(in, out int, config QuadraticConfig) *Quadratic {
	return nn.NewQuadratic(in, out, config)
}

// Activations

// ReLU is the rectified linear unit.
type ReLU = nn.ReLU

// NewReLU declares a ReLU activation.
func NewReLU(size int) *ReLU { return nn.NewReLU(size) }

// LeakyReLU is ReLU with a small negative slope.
type LeakyReLU = nn.LeakyReLU

// NewLeakyReLU declares a leaky ReLU. A zero rate defaults to 0.01.
func NewLeakyReLU(size int, rate float64) *LeakyReLU { return nn.NewLeakyReLU(size, rate) }

// Sigmoid is the logistic activation.
type Sigmoid = nn.Sigmoid

// NewSigmoid declares a sigmoid activation.
func NewSigmoid(size int) *Sigmoid { return nn.NewSigmoid(size) }

// Tanh is the hyperbolic tangent activation.
type Tanh = nn.Tanh

// NewTanh declares a tanh activation.
func NewTanh(size int) *Tanh { return nn.NewTanh(size) }

// Softmax normalizes each row into a probability distribution.
type Softmax = nn.Softmax

// NewSoftmax declares a softmax activation.
func NewSoftmax(size int) *Softmax { return nn.NewSoftmax(size) }

// Loss

// Loss is the terminal node of a model.
type Loss = nn.Loss

// NewLoss wires a loss of the given kind.
func NewLoss(kind LossKind, input, target, dInput *tensor.Tensor) (*Loss, error) {
	return nn.NewLoss(kind, input, target, dInput)
}
