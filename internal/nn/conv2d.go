package nn

import (
	"gonum.org/v1/gonum/floats"

	"github.com/tom-ml/tom/internal/parallel"
	"github.com/tom-ml/tom/internal/tensor"
)

// Conv2DConfig configures a Conv2D layer.
type Conv2DConfig struct {
	Filters    int         // Number of output channels
	FilterSize int         // Square kernel side
	Stride     int         // default: 1
	WeightInit Initializer // default: GlorotUniform
	BiasInit   Initializer // default: Zeros
}

// Conv2D is a direct (nested loop) 2D cross-correlation layer.
//
// Input rows hold C planes of H×W values; output rows hold F planes of
// OH×OW values with OH = (H-K)/S + 1 and OW = (W-K)/S + 1.
//
// Weights are stored as (F*C, K*K): row f*C+c is the K×K kernel of filter f
// over channel c. Biases are (1, F).
//
// Backward averages all gradients over the batch: each gradient is zeroed,
// accumulated over every sample, then scaled by 1/n.
type Conv2D struct {
	base
	config Conv2DConfig

	weights  *tensor.Tensor
	biases   *tensor.Tensor
	dWeights *tensor.Tensor
	dBiases  *tensor.Tensor
}

// NewConv2D declares a convolution over channels×height×width inputs.
//
// Returns ErrShapeMismatch if the kernel does not fit or the stride does not
// tile the input exactly.
func NewConv2D(channels, height, width int, config Conv2DConfig) (*Conv2D, error) {
	if config.Stride == 0 {
		config.Stride = 1
	}
	if channels <= 0 || config.Filters <= 0 {
		return nil, shapeErrorf("conv2d: channels %d and filters %d must be positive", channels, config.Filters)
	}
	oh, err := OutputDim(height, config.FilterSize, config.Stride)
	if err != nil {
		return nil, err
	}
	ow, err := OutputDim(width, config.FilterSize, config.Stride)
	if err != nil {
		return nil, err
	}
	return &Conv2D{
		base: base{shape: Shape{
			InputSize:      channels * height * width,
			OutputSize:     config.Filters * oh * ow,
			InputChannels:  channels,
			InputHeight:    height,
			InputWidth:     width,
			OutputChannels: config.Filters,
			OutputHeight:   oh,
			OutputWidth:    ow,
			FilterSize:     config.FilterSize,
			Stride:         config.Stride,
		}},
		config: config,
	}, nil
}

// Kind implements Layer.
func (l *Conv2D) Kind() Kind { return KindConv2D }

// SetInitializers overrides the weight and bias initializers.
// Has no effect after Materialize.
func (l *Conv2D) SetInitializers(weights, biases Initializer) {
	l.config.WeightInit = weights
	l.config.BiasInit = biases
}

// Materialize implements Layer.
func (l *Conv2D) Materialize(io Buffers, rng RNG) error {
	if err := l.bind(io); err != nil {
		return err
	}
	s := l.shape
	kk := s.FilterSize * s.FilterSize
	rows := s.OutputChannels * s.InputChannels
	ts, err := allocate(
		[2]int{rows, kk}, [2]int{1, s.OutputChannels},
		[2]int{rows, kk}, [2]int{1, s.OutputChannels},
	)
	if err != nil {
		return err
	}
	l.weights, l.biases, l.dWeights, l.dBiases = ts[0], ts[1], ts[2], ts[3]

	fanIn := s.InputHeight * s.InputWidth
	fanOut := s.OutputHeight * s.OutputWidth
	if err := Fill(l.weights, l.config.WeightInit.or(GlorotUniform), fanIn, fanOut, rng); err != nil {
		l.Release()
		return err
	}
	if err := Fill(l.biases, l.config.BiasInit.or(Zeros), fanIn, fanOut, rng); err != nil {
		l.Release()
		return err
	}
	return nil
}

// Forward implements Layer.
func (l *Conv2D) Forward(bool) {
	s := l.shape
	k := s.FilterSize
	inPlane := s.InputHeight * s.InputWidth
	outPlane := s.OutputHeight * s.OutputWidth
	cost := outPlane * s.InputChannels * k * k

	parallel.ForBatch(l.io.Input.Rows, s.OutputChannels, cost, func(n, f int) {
		in := l.io.Input.Row(n)
		out := l.io.Output.Row(n)[f*outPlane : (f+1)*outPlane]
		for oy := 0; oy < s.OutputHeight; oy++ {
			for ox := 0; ox < s.OutputWidth; ox++ {
				sum := l.biases.Data[f]
				for c := 0; c < s.InputChannels; c++ {
					w := l.weights.Row(f*s.InputChannels + c)
					plane := in[c*inPlane:]
					for ky := 0; ky < k; ky++ {
						row := (oy*s.Stride+ky)*s.InputWidth + ox*s.Stride
						for kx := 0; kx < k; kx++ {
							sum += plane[row+kx] * w[ky*k+kx]
						}
					}
				}
				out[oy*s.OutputWidth+ox] = sum
			}
		}
	}, loops)
}

// Backward implements Layer.
//
// Input gradients are computed per sample and parameter gradients per
// filter, so each goroutine owns the rows it writes.
func (l *Conv2D) Backward() {
	s := l.shape
	k := s.FilterSize
	inPlane := s.InputHeight * s.InputWidth
	outPlane := s.OutputHeight * s.OutputWidth
	samples := l.io.Input.Rows
	cost := outPlane * s.InputChannels * k * k

	l.io.DInput.Zero()
	parallel.For(samples, cost*s.OutputChannels, func(n int) {
		dIn := l.io.DInput.Row(n)
		dOut := l.io.DOutput.Row(n)
		for f := 0; f < s.OutputChannels; f++ {
			for oy := 0; oy < s.OutputHeight; oy++ {
				for ox := 0; ox < s.OutputWidth; ox++ {
					g := dOut[f*outPlane+oy*s.OutputWidth+ox]
					for c := 0; c < s.InputChannels; c++ {
						w := l.weights.Row(f*s.InputChannels + c)
						for ky := 0; ky < k; ky++ {
							row := c*inPlane + (oy*s.Stride+ky)*s.InputWidth + ox*s.Stride
							for kx := 0; kx < k; kx++ {
								dIn[row+kx] += w[ky*k+kx] * g
							}
						}
					}
				}
			}
		}
	}, loops)

	l.dWeights.Zero()
	l.dBiases.Zero()
	parallel.For(s.OutputChannels, cost*samples, func(f int) {
		for n := 0; n < samples; n++ {
			in := l.io.Input.Row(n)
			dOut := l.io.DOutput.Row(n)
			for oy := 0; oy < s.OutputHeight; oy++ {
				for ox := 0; ox < s.OutputWidth; ox++ {
					g := dOut[f*outPlane+oy*s.OutputWidth+ox]
					l.dBiases.Data[f] += g
					for c := 0; c < s.InputChannels; c++ {
						dw := l.dWeights.Row(f*s.InputChannels + c)
						for ky := 0; ky < k; ky++ {
							row := c*inPlane + (oy*s.Stride+ky)*s.InputWidth + ox*s.Stride
							for kx := 0; kx < k; kx++ {
								dw[ky*k+kx] += in[row+kx] * g
							}
						}
					}
				}
			}
		}
	}, loops)

	scale := 1 / float64(samples)
	floats.Scale(scale, l.dWeights.Data)
	floats.Scale(scale, l.dBiases.Data)
	floats.Scale(scale, l.io.DInput.Data)
}

// Params implements Trainable.
func (l *Conv2D) Params() []Param {
	return []Param{
		{Name: "weights", Value: l.weights, Grad: l.dWeights},
		{Name: "biases", Value: l.biases, Grad: l.dBiases},
	}
}

// Weights returns the (F*C, K*K) kernel tensor.
func (l *Conv2D) Weights() *tensor.Tensor { return l.weights }

// Biases returns the (1, F) bias tensor.
func (l *Conv2D) Biases() *tensor.Tensor { return l.biases }

// Release implements Layer.
func (l *Conv2D) Release() {
	release(l.weights, l.biases, l.dWeights, l.dBiases)
	l.weights, l.biases, l.dWeights, l.dBiases = nil, nil, nil, nil
}
