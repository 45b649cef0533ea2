package serialization

import (
	"crypto/sha256"
	"fmt"

	"github.com/tom-ml/tom/internal/nn"
	"github.com/tom-ml/tom/internal/tensor"
)

// Format constants.
const (
	MagicBytes    = "TOMN"
	FormatVersion = 1
	ChecksumSize  = sha256.Size
	MaxLayers     = 1 << 16 // maximum number of layers in a file
	MaxDim        = 1 << 24 // maximum value of a single shape integer
)

// record is the header entry of one layer.
type record struct {
	kind  nn.Kind
	shape nn.Shape
	hyper []float64
	mode  nn.PaddingMode
}

// hyperCount returns the number of float64 hyperparameters stored for kind.
func hyperCount(kind nn.Kind) int {
	switch kind {
	case nn.KindDense:
		return 4
	case nn.KindNormalization:
		return 2
	case nn.KindDropout, nn.KindLeakyReLU:
		return 1
	default:
		return 0
	}
}

// recordOf captures the header entry of a declared layer.
func recordOf(l nn.Layer) record {
	rec := record{kind: l.Kind(), shape: l.Shape()}
	switch v := l.(type) {
	case *nn.Dense:
		c := v.Config()
		rec.hyper = []float64{c.WeightL1, c.WeightL2, c.BiasL1, c.BiasL2}
	case *nn.Normalization:
		c := v.Config()
		rec.hyper = []float64{c.Epsilon, c.Momentum}
	case *nn.Dropout:
		rec.hyper = []float64{v.Rate()}
	case *nn.LeakyReLU:
		rec.hyper = []float64{v.Rate()}
	case *nn.Padding2D:
		rec.mode = v.Mode()
	}
	return rec
}

// declare rebuilds an unmaterialized layer from its header entry and checks
// that the recomputed shape matches the stored one.
func declare(rec record) (nn.Layer, error) {
	s, h := rec.shape, rec.hyper
	var (
		l   nn.Layer
		err error
	)
	switch rec.kind {
	case nn.KindDense:
		l = nn.NewDense(s.InputSize, s.OutputSize, nn.DenseConfig{
			WeightL1: h[0],
			WeightL2: h[1],
			BiasL1:   h[2],
			BiasL2:   h[3],
		})
	case nn.KindQuadratic:
		l = nn.NewQuadratic(s.InputSize, s.OutputSize, nn.QuadraticConfig{})
	case nn.KindConv2D:
		l, err = nn.NewConv2D(s.InputChannels, s.InputHeight, s.InputWidth, nn.Conv2DConfig{
			Filters:    s.OutputChannels,
			FilterSize: s.FilterSize,
			Stride:     s.Stride,
		})
	case nn.KindMaxPool2D:
		l, err = nn.NewMaxPool2D(s.InputChannels, s.InputHeight, s.InputWidth, s.FilterSize, s.Stride)
	case nn.KindPadding2D:
		padX := (s.OutputWidth - s.InputWidth) / 2
		padY := (s.OutputHeight - s.InputHeight) / 2
		l, err = nn.NewPadding2D(s.InputChannels, s.InputHeight, s.InputWidth, padX, padY, rec.mode)
	case nn.KindDropout:
		l = nn.NewDropout(s.InputSize, h[0])
	case nn.KindLeakyReLU:
		leaky := nn.NewLeakyReLU(s.InputSize, h[0])
		leaky.SetRate(h[0])
		l = leaky
	case nn.KindNormalization:
		l = nn.NewNormalization(s.InputSize, nn.NormalizationConfig{Epsilon: h[0], Momentum: h[1]})
	case nn.KindReLU:
		l = nn.NewReLU(s.InputSize)
	case nn.KindSigmoid:
		l = nn.NewSigmoid(s.InputSize)
	case nn.KindTanh:
		l = nn.NewTanh(s.InputSize)
	case nn.KindSoftmax:
		l = nn.NewSoftmax(s.InputSize)
	default:
		return nil, fmt.Errorf("%w: layer %s", ErrUnknownKind, rec.kind)
	}
	if err != nil {
		return nil, err
	}
	if l.Shape() != s {
		return nil, fmt.Errorf("%w: stored shape %v, declared %v", nn.ErrShapeMismatch, s.Ints(), l.Shape().Ints())
	}
	return l, nil
}

// tensorsOf returns the persisted tensors of a materialized layer in file order.
func tensorsOf(l nn.Layer) []*tensor.Tensor {
	switch v := l.(type) {
	case *nn.Dense:
		return []*tensor.Tensor{v.Weights(), v.Biases()}
	case *nn.Conv2D:
		return []*tensor.Tensor{v.Weights(), v.Biases()}
	case *nn.Quadratic:
		return []*tensor.Tensor{v.Weights(), v.Biases(), v.Quad()}
	case *nn.Normalization:
		return []*tensor.Tensor{v.Gamma(), v.Beta(), v.RunningMean(), v.RunningVariance()}
	default:
		return nil
	}
}
